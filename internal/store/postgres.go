package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/itskum47/pa-control/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store against a PostgreSQL database holding
// two tables: a single-row pac_state table and a pac_schedules table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) SetState(ctx context.Context, doc StateDoc) error {
	start := time.Now()
	defer func() { observability.PostgresLatency.Observe(time.Since(start).Seconds()) }()

	var activeTask []byte
	if doc.ActiveTask != nil {
		var err error
		activeTask, err = json.Marshal(doc.ActiveTask)
		if err != nil {
			return err
		}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pac_state (id, active_task, priority, mode, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			active_task = EXCLUDED.active_task,
			priority = EXCLUDED.priority,
			mode = EXCLUDED.mode,
			updated_at = EXCLUDED.updated_at
	`, activeTask, doc.Priority, doc.Mode, doc.Timestamp)
	return err
}

func (s *PostgresStore) MarkScheduleCompleted(ctx context.Context, scheduleID string) error {
	start := time.Now()
	defer func() { observability.PostgresLatency.Observe(time.Since(start).Seconds()) }()

	_, err := s.pool.Exec(ctx,
		`UPDATE pac_schedules SET status = 'Completed' WHERE id = $1`, scheduleID)
	return err
}

// BatchUpdateScheduleTimes sends every update as one pgx.Batch so the
// round trip is a single network exchange; a failure on any statement
// fails the whole batch rather than leaving schedules half-shifted.
func (s *PostgresStore) BatchUpdateScheduleTimes(ctx context.Context, updates []ScheduleTimeUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observability.PostgresLatency.Observe(time.Since(start).Seconds()) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(`UPDATE pac_schedules SET date = $1, time = $2 WHERE id = $3`, u.Date, u.Time, u.ID)
	}
	br := tx.SendBatch(ctx, batch)
	for range updates {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListPendingSchedules(ctx context.Context) ([]ScheduleDoc, error) {
	start := time.Now()
	defer func() { observability.PostgresLatency.Observe(time.Since(start).Seconds()) }()

	rows, err := s.pool.Query(ctx,
		`SELECT id, date, time, status, payload FROM pac_schedules WHERE status = 'Pending'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduleDoc
	for rows.Next() {
		var (
			id, date, tod, status string
			payload               []byte
		)
		if err := rows.Scan(&id, &date, &tod, &status, &payload); err != nil {
			return nil, err
		}
		var p map[string]any
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, err
			}
		} else {
			p = make(map[string]any)
		}
		scheduledAt, err := time.ParseInLocation("2006-01-02 15:04", date+" "+tod, time.Local)
		if err != nil {
			return nil, err
		}
		out = append(out, ScheduleDoc{ID: id, Status: status, Payload: p, ScheduledTime: scheduledAt})
	}
	return out, rows.Err()
}
