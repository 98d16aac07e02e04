package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/itskum47/pa-control/internal/arbiter"
	"github.com/itskum47/pa-control/internal/auth"
	"github.com/itskum47/pa-control/internal/idempotency"
	"github.com/itskum47/pa-control/internal/timeline"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret-at-least-32-characters-long")
	os.Exit(m.Run())
}

func bearerToken(t *testing.T, user string) string {
	t.Helper()
	tok, err := auth.GenerateToken(user, "operator")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + tok
}

func TestE2ERequestThenStopOverHTTP(t *testing.T) {
	t.Log("=== end-to-end request/stop over HTTP ===")

	events := timeline.NewStore(100)
	controller := arbiter.New(nil, nil, events)
	server := NewServer(controller, events, idempotency.NewStore(nil), nil, nil)

	body, _ := json.Marshal(requestBody{ID: "v1", Kind: "voice", Priority: 30})
	req := httptest.NewRequest(http.MethodPost, "/api/request", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "alice"))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]bool
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp["accepted"] {
		t.Fatalf("expected task to be accepted, got %+v", resp)
	}
	t.Log("✓ task admitted over HTTP")

	stopBody, _ := json.Marshal(stopBody{ID: "v1", Kind: "voice"})
	stopReq := httptest.NewRequest(http.MethodPost, "/api/stop", bytes.NewReader(stopBody))
	stopReq.Header.Set("Authorization", bearerToken(t, "alice"))
	stopRec := httptest.NewRecorder()
	server.ServeHTTP(stopRec, stopReq)

	if stopRec.Code != http.StatusOK {
		t.Fatalf("expected 200 on stop, got %d", stopRec.Code)
	}
	if cur := controller.Current(); cur != nil {
		t.Fatalf("expected channel idle after stop, got %+v", cur)
	}
	t.Log("✓ task stopped over HTTP")
}

func TestRequestWithoutAuthRejected(t *testing.T) {
	controller := arbiter.New(nil, nil, nil)
	server := NewServer(controller, nil, nil, nil, nil)

	body, _ := json.Marshal(requestBody{ID: "v1", Kind: "voice", Priority: 30})
	req := httptest.NewRequest(http.MethodPost, "/api/request", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", rec.Code)
	}
}

func TestScheduleRequestRequiresDateAndTime(t *testing.T) {
	controller := arbiter.New(nil, nil, nil)
	server := NewServer(controller, nil, nil, nil, nil)

	body, _ := json.Marshal(requestBody{ID: "s1", Kind: "schedule", Priority: 20})
	req := httptest.NewRequest(http.MethodPost, "/api/request", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "alice"))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without date/time, got %d", rec.Code)
	}
	if len(controller.Queue()) != 0 {
		t.Fatalf("rejected schedule request must never reach the queue")
	}
}

func TestScheduleRequestParsesDateAndTime(t *testing.T) {
	controller := arbiter.New(nil, nil, nil)
	server := NewServer(controller, nil, nil, nil, nil)

	body, _ := json.Marshal(requestBody{ID: "s1", Kind: "schedule", Priority: 20, Date: "2026-08-01", Time: "09:30"})
	req := httptest.NewRequest(http.MethodPost, "/api/request", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "alice"))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	queue := controller.Queue()
	if len(queue) != 1 {
		t.Fatalf("expected one queued schedule, got %d", len(queue))
	}
	want := time.Date(2026, 8, 1, 9, 30, 0, 0, time.Local)
	if !queue[0].ScheduledTime.Equal(want) {
		t.Fatalf("expected ScheduledTime %v, got %v", want, queue[0].ScheduledTime)
	}
}

func TestIdempotentRequestReplaysFirstDecision(t *testing.T) {
	controller := arbiter.New(nil, nil, nil)
	server := NewServer(controller, nil, idempotency.NewStore(nil), nil, nil)

	body, _ := json.Marshal(requestBody{ID: "v1", Kind: "voice", Priority: 30})
	mkReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/request", bytes.NewReader(body))
		req.Header.Set("Authorization", bearerToken(t, "alice"))
		req.Header.Set("X-Idempotency-Key", "dup-1")
		return req
	}

	first := httptest.NewRecorder()
	server.ServeHTTP(first, mkReq())

	// Stop the task out of band so a second live Request would behave
	// differently — the cached replay must still match the first result.
	controller.Stop(context.Background(), "v1", arbiter.KindVoice)

	second := httptest.NewRecorder()
	server.ServeHTTP(second, mkReq())

	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected idempotent replay, got %q then %q", first.Body.String(), second.Body.String())
	}
}
