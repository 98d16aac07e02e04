package streaming

import (
	"context"
	"encoding/json"
	"log"
)

// LogPublisher writes published events through the standard logger. It
// is the default sink until a real log/audit backend is wired in.
type LogPublisher struct {
	logger *log.Logger
}

// NewLogPublisher returns a Publisher backed by log.Default().
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: log.Default()}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.logger.Printf("[audit] %s: %s", topic, string(data))
	return nil
}

func (p *LogPublisher) Close() error {
	p.logger.Println("[audit] log publisher closed")
	return nil
}
