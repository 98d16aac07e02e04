// Package streaming defines the logging/audit sink the controller emits
// transition events to: a narrow, best-effort collaborator never
// consulted for arbitration decisions.
package streaming

import "context"

// Event is a single published occurrence.
type Event struct {
	Topic   string
	Payload any
}

// Publisher is the outbound side of the logging sink. Publish must not
// block indefinitely; implementations should bound their own latency.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}
