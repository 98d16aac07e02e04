// Package httpapi exposes the controller over HTTP: submitting and
// stopping tasks, inspecting the queue, and the operator dashboard's
// websocket feed. Authentication, CORS, idempotency, and per-user rate
// limiting all live here, outside the controller's core decision
// surface.
package httpapi

import (
	"net/http"

	"github.com/itskum47/pa-control/internal/arbiter"
	"github.com/itskum47/pa-control/internal/idempotency"
	"github.com/itskum47/pa-control/internal/incident"
	"github.com/itskum47/pa-control/internal/timeline"
	"github.com/itskum47/pa-control/internal/wshub"
)

// Server wires the controller and its collaborators behind an
// http.Handler.
type Server struct {
	controller  *arbiter.Controller
	events      *timeline.Store
	idempotency *idempotency.Store
	limiter     RateLimiter

	mux *http.ServeMux
}

// NewServer builds the routed handler. idem and limiter may be nil to
// disable idempotency caching / rate limiting respectively. hub may be
// nil to disable the dashboard websocket stream.
func NewServer(c *arbiter.Controller, events *timeline.Store, idem *idempotency.Store, limiter RateLimiter, hub *wshub.Hub) *Server {
	s := &Server{
		controller:  c,
		events:      events,
		idempotency: idem,
		limiter:     limiter,
		mux:         http.NewServeMux(),
	}
	s.routes(hub)
	return s
}

func (s *Server) routes(hub *wshub.Hub) {
	s.mux.HandleFunc("/api/request", s.withIdempotency(s.handleRequest))
	s.mux.HandleFunc("/api/stop", s.withIdempotency(s.handleStop))
	s.mux.HandleFunc("/api/queue", s.handleQueue)
	s.mux.HandleFunc("/api/queue/remove", s.handleRemove)
	s.mux.HandleFunc("/api/current", s.handleCurrent)
	s.mux.HandleFunc("/api/emergency/active", s.handleActiveEmergency)
	s.mux.HandleFunc("/api/timeline", s.handleTimeline)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	if hub != nil {
		s.mux.HandleFunc("/ws/dashboard", s.handleDashboardStream(hub))
	}
}

// ServeHTTP satisfies http.Handler, wrapping every route in CORS then
// auth (health checks bypass both — see handleHealthz's own path).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/healthz" {
		s.mux.ServeHTTP(w, r)
		return
	}
	corsMiddleware(authMiddleware(s.mux)).ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// captureOnEmergency is called after an EMERGENCY task is admitted; it
// is a hook point, not a controller concern (see internal/incident).
func (s *Server) captureOnEmergency(t *arbiter.Task) *incident.Report {
	return incident.Capture(s.controller, s.events, t.ID, 50)
}
