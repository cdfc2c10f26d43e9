package monitor

import (
	"context"
	"log/slog"

	"github.com/Veraticus/spice-ops/internal/model"
)

// Notifier delivers a raised business event to the user.
type Notifier interface {
	Notify(ctx context.Context, event model.BusinessEvent) error
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs to logger, or the default
// logger when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the event. High and critical events log at warn level.
func (n *LogNotifier) Notify(ctx context.Context, event model.BusinessEvent) error {
	level := slog.LevelInfo
	if event.Tier.AtLeast(model.TierHigh) {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.Int64("user_id", event.UserID),
		slog.String("type", string(event.Type)),
		slog.String("category", string(event.Category)),
		slog.String("tier", string(event.Tier)),
		slog.String("event_id", event.ID.String()),
	}
	if event.Amount != nil {
		attrs = append(attrs, slog.String("amount", event.Amount.StringFixed(2)))
	}

	n.logger.LogAttrs(ctx, level, event.Title, attrs...)
	return nil
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event model.BusinessEvent) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, event model.BusinessEvent) error {
	return f(ctx, event)
}
