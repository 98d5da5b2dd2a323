// Package notify tells card owners that their card was processed.
package notify

import (
	"context"
	"log/slog"
)

// ProcessedMessage is sent once a card has been stored.
const ProcessedMessage = "Your visiting card has been processed successfully!"

// Notifier delivers a message to a phone number.
type Notifier interface {
	Notify(ctx context.Context, phone, message string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, phone, message string) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, phone, message string) error {
	return f(ctx, phone, message)
}

// LogNotifier writes notifications to a structured log instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, phone, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "notification sent", "phone", phone, "message", message)
	return nil
}
