package v1

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Notification is one transient user-facing event, typically a provider
// fallback.
type Notification struct {
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// NotificationBuffer is a fixed-size ring of recent notifications. It
// implements orchestrator.Notifier.
type NotificationBuffer struct {
	mu     sync.Mutex
	items  []Notification
	limit  int
	logger *slog.Logger
}

func NewNotificationBuffer(limit int) *NotificationBuffer {
	if limit <= 0 {
		limit = 32
	}
	return &NotificationBuffer{limit: limit, logger: slog.Default()}
}

// Notify records one event, evicting the oldest past the buffer limit.
func (b *NotificationBuffer) Notify(_ context.Context, message string) {
	b.logger.Info("notification", "message", message)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, Notification{Message: message, Time: time.Now()})
	if len(b.items) > b.limit {
		b.items = b.items[len(b.items)-b.limit:]
	}
}

// Recent returns the buffered notifications, newest last.
func (b *NotificationBuffer) Recent() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, len(b.items))
	copy(out, b.items)
	return out
}
