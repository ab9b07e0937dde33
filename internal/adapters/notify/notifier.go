package notify

// Package notify implements the user-facing notification surface. Delivery
// is fire-and-forget: the session controller never blocks on a sink.

import (
	"context"
	"log/slog"
	"time"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is the canonical payload delivered to sinks.
type Notification struct {
	Level      Level
	Message    string
	OccurredAt time.Time
}

// Sink describes a destination capable of consuming notifications.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, n Notification) error

// Send implements the Sink interface.
func (f SinkFunc) Send(ctx context.Context, n Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, n)
}

// Notifier fans notifications out to its sinks with a per-delivery timeout.
// It satisfies the controller's Notifier port.
type Notifier struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
}

// NewNotifier builds a fan-out notifier. A zero timeout defaults to 5s.
func NewNotifier(logger *slog.Logger, timeout time.Duration, sinks ...Sink) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{sinks: sinks, timeout: timeout, logger: logger}
}

// ShowSuccess delivers a success notification to all sinks.
func (n *Notifier) ShowSuccess(ctx context.Context, message string) {
	n.deliver(ctx, Notification{Level: LevelSuccess, Message: message, OccurredAt: time.Now()})
}

// ShowError delivers an error notification to all sinks.
func (n *Notifier) ShowError(ctx context.Context, message string) {
	n.deliver(ctx, Notification{Level: LevelError, Message: message, OccurredAt: time.Now()})
}

func (n *Notifier) deliver(ctx context.Context, notification Notification) {
	for _, sink := range n.sinks {
		sink := sink
		go func() {
			// Detach from the caller's context: a request finishing must not
			// cancel an in-flight delivery.
			deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
			defer cancel()
			if err := sink.Send(deliverCtx, notification); err != nil {
				n.logger.Warn("notification delivery failed",
					"level", notification.Level,
					"error", err)
			}
		}()
	}
}

// SlogSink writes notifications to the structured log. It is always safe to
// use and is the default sink when nothing else is configured.
type SlogSink struct {
	Logger *slog.Logger
}

// Send implements the Sink interface.
func (s SlogSink) Send(ctx context.Context, n Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch n.Level {
	case LevelError:
		logger.WarnContext(ctx, "user notification", "level", n.Level, "message", n.Message)
	default:
		logger.InfoContext(ctx, "user notification", "level", n.Level, "message", n.Message)
	}
	return nil
}
