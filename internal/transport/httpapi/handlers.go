package httpapi

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/itskum47/pa-control/internal/arbiter"
	"github.com/itskum47/pa-control/internal/idempotency"
)

// scheduledTimeLayout matches the date/time wire format used throughout
// the store package ("2006-01-02 15:04", controller's local timezone).
const scheduledTimeLayout = "2006-01-02 15:04"

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body = append(r.body, b...)
	return r.ResponseWriter.Write(b)
}

// withIdempotency replays a cached response for a request carrying the
// same X-Idempotency-Key, so a client retrying after a network timeout
// gets the original decision rather than a second arbitration attempt.
func (s *Server) withIdempotency(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.idempotency == nil {
			next(w, r)
			return
		}
		key := r.Header.Get("X-Idempotency-Key")
		if key == "" {
			next(w, r)
			return
		}

		if resp, found := s.idempotency.Get(r.Context(), key); found {
			for k, vv := range resp.Headers {
				for _, v := range vv {
					w.Header().Add(k, v)
				}
			}
			w.WriteHeader(resp.StatusCode)
			w.Write(resp.Body)
			return
		}

		rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next(rec, r)

		s.idempotency.Set(r.Context(), key, idempotency.Response{
			StatusCode: rec.statusCode,
			Body:       rec.body,
			Headers:    rec.Header(),
		})
	}
}

func (s *Server) writeRateLimitError(w http.ResponseWriter) {
	retryAfterSeconds := 1 + rand.Intn(2)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	http.Error(w, "too many requests", http.StatusTooManyRequests)
}

type requestBody struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Priority int            `json:"priority"`
	Payload  map[string]any `json:"payload"`
	Date     string         `json:"date"` // YYYY-MM-DD, required for kind=="schedule"
	Time     string         `json:"time"` // HH:MM, required for kind=="schedule"
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.limiter != nil && !s.limiter.Allow(claims.User) {
		s.writeRateLimitError(w)
		return
	}

	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.ID == "" || body.Kind == "" {
		http.Error(w, "id and kind are required", http.StatusBadRequest)
		return
	}

	var scheduledTime time.Time
	if arbiter.Kind(body.Kind) == arbiter.KindSchedule {
		if body.Date == "" || body.Time == "" {
			http.Error(w, "date and time are required for kind=schedule", http.StatusBadRequest)
			return
		}
		parsed, err := time.ParseInLocation(scheduledTimeLayout, body.Date+" "+body.Time, time.Local)
		if err != nil {
			http.Error(w, "date/time must match YYYY-MM-DD/HH:MM", http.StatusBadRequest)
			return
		}
		scheduledTime = parsed
	} else if body.Date != "" && body.Time != "" {
		parsed, err := time.ParseInLocation(scheduledTimeLayout, body.Date+" "+body.Time, time.Local)
		if err != nil {
			http.Error(w, "date/time must match YYYY-MM-DD/HH:MM", http.StatusBadRequest)
			return
		}
		scheduledTime = parsed
	}

	payload := body.Payload
	if payload == nil {
		payload = make(map[string]any)
	}
	payload["user"] = claims.User

	t := &arbiter.Task{
		ID:            body.ID,
		Kind:          arbiter.Kind(body.Kind),
		Priority:      arbiter.Priority(body.Priority),
		Payload:       payload,
		ScheduledTime: scheduledTime,
	}

	accepted := s.controller.Request(r.Context(), t)
	if accepted && t.Kind == arbiter.KindEmergency {
		if report := s.captureOnEmergency(t); report != nil {
			log.Printf("[httpapi] incident captured for emergency %s", t.ID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !accepted {
		w.WriteHeader(http.StatusConflict)
	}
	json.NewEncoder(w).Encode(map[string]any{"accepted": accepted})
}

type stopBody struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := claimsFromContext(r.Context()); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body stopBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.controller.Stop(r.Context(), body.ID, arbiter.Kind(body.Kind))
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	s.controller.Remove(body.ID)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.controller.Queue())
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.controller.Current())
}

func (s *Server) handleActiveEmergency(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, active := s.controller.ActiveEmergencyUser()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"active": active, "user": user})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if s.events == nil {
		json.NewEncoder(w).Encode([]string{})
		return
	}
	json.NewEncoder(w).Encode(s.events.Recent(100))
}
