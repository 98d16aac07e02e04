// Package idempotency caches HTTP submission responses so a client
// retrying a request/stop call after a timeout gets back the original
// decision instead of a second arbitration decision.
package idempotency

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Response is the cached shape of a prior HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string][]string
}

// Backend is the narrow surface a Store needs from a remote cache.
// internal/store.RedisStore does not implement this directly (its
// Store interface is narrower); a thin adapter is wired in cmd/pacontrold
// when Redis is configured.
type Backend interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// Store caches responses keyed by client-supplied idempotency key. With
// no backend it falls back to an in-process sync.Map, which only
// de-duplicates retries within the same process.
type Store struct {
	backend Backend
	cache   sync.Map
}

type entry struct {
	Resp      Response
	Timestamp time.Time
}

// NewStore returns a Store. backend may be nil to use the in-process
// fallback only.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Get returns the cached response for key, if present and not expired.
func (s *Store) Get(ctx context.Context, key string) (Response, bool) {
	if s.backend != nil {
		val, err := s.backend.Get(ctx, key)
		if err != nil {
			log.Printf("idempotency: backend error getting %s: %v", key, err)
			return Response{}, false
		}
		if val == "" {
			return Response{}, false
		}
		var e entry
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			return Response{}, false
		}
		return e.Resp, true
	}

	val, ok := s.cache.Load(key)
	if !ok {
		return Response{}, false
	}
	e := val.(entry)
	if time.Since(e.Timestamp) > time.Hour {
		s.cache.Delete(key)
		return Response{}, false
	}
	return e.Resp, true
}

// Set caches resp under key for later retries.
func (s *Store) Set(ctx context.Context, key string, resp Response) {
	e := entry{Resp: resp, Timestamp: time.Now()}

	if s.backend != nil {
		data, _ := json.Marshal(e)
		if err := s.backend.Set(ctx, key, string(data), 24*time.Hour); err != nil {
			log.Printf("idempotency: backend error setting %s: %v", key, err)
		}
		return
	}
	s.cache.Store(key, e)
}
