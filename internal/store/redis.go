package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/itskum47/pa-control/internal/observability"
	"github.com/redis/go-redis/v9"
)

const stateKey = "pac:state"

func scheduleKey(id string) string { return "pac:schedule:" + id }

// RedisStore implements Store on top of a single Redis instance. It is
// the recommended backend once more than one PAC process needs to read
// the last-published state (e.g. a dashboard reading directly from
// Redis instead of the websocket hub).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials addr and verifies the connection before returning.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) SetState(ctx context.Context, doc StateDoc) error {
	start := time.Now()
	defer func() { observability.RedisLatency.Observe(time.Since(start).Seconds()) }()

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, stateKey, data, 0).Err()
}

func (s *RedisStore) MarkScheduleCompleted(ctx context.Context, scheduleID string) error {
	start := time.Now()
	defer func() { observability.RedisLatency.Observe(time.Since(start).Seconds()) }()

	return s.client.HSet(ctx, scheduleKey(scheduleID), "status", "Completed").Err()
}

// BatchUpdateScheduleTimes applies every update through a single
// pipeline so the round trips are batched, even though Redis pipelines
// do not give cross-key atomicity the way a Postgres transaction does.
func (s *RedisStore) BatchUpdateScheduleTimes(ctx context.Context, updates []ScheduleTimeUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observability.RedisLatency.Observe(time.Since(start).Seconds()) }()

	pipe := s.client.Pipeline()
	for _, u := range updates {
		pipe.HSet(ctx, scheduleKey(u.ID), "date", u.Date, "time", u.Time)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ListPendingSchedules(ctx context.Context) ([]ScheduleDoc, error) {
	start := time.Now()
	defer func() { observability.RedisLatency.Observe(time.Since(start).Seconds()) }()

	var out []ScheduleDoc
	iter := s.client.Scan(ctx, 0, "pac:schedule:*", 0).Iterator()
	for iter.Next(ctx) {
		fields, err := s.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, err
		}
		if fields["status"] != "Pending" {
			continue
		}
		scheduledAt, err := time.ParseInLocation("2006-01-02 15:04", fields["date"]+" "+fields["time"], time.Local)
		if err != nil {
			return nil, err
		}
		out = append(out, ScheduleDoc{
			ID:            iter.Val()[len("pac:schedule:"):],
			Status:        fields["status"],
			ScheduledTime: scheduledAt,
			Payload: map[string]any{
				"date": fields["date"],
				"time": fields["time"],
			},
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Set and Get give RedisStore double duty as an idempotency.Backend,
// on top of its narrower Store role above.
func (s *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}
