package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher enqueues typed messages.
type Publisher interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

type Config struct {
	Name        string        // key prefix, e.g. "stro:jobs"
	Workers     int           // concurrent consumers
	MaxRetries  int           // attempts after the first failure before the DLQ
	RetryDelay  time.Duration // delay before a failed message is re-queued
	PollTimeout time.Duration // BRPOP block time
}

func (c *Config) withDefaults() {
	if c.Name == "" {
		c.Name = "stro:jobs"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals a job payload.
func Decode[T any](payload []byte) (*T, error) {
	var v T
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &v, nil
}
