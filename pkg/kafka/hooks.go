package kafka

import "context"

// ConsumerHook observes handler outcomes. err is nil on success.
type ConsumerHook interface {
	AfterHandle(ctx context.Context, topic string, data []byte, attempt int, err error)
}

type NoopHook struct{}

func (NoopHook) AfterHandle(context.Context, string, []byte, int, error) {}

// HookFunc adapts a function to ConsumerHook.
type HookFunc func(ctx context.Context, topic string, data []byte, attempt int, err error)

func (f HookFunc) AfterHandle(ctx context.Context, topic string, data []byte, attempt int, err error) {
	f(ctx, topic, data, attempt, err)
}
