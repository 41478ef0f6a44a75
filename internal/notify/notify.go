// Package notify — push-уведомления получателям, у которых нет живого соединения.
package notify

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
)

type Notification struct {
	DeviceToken string           `json:"device_token"`
	UserID      domain.UserID    `json:"user_id"`
	Event       string           `json:"event"`
	ChatID      domain.ChatID    `json:"chat_id"`
	MessageID   domain.MessageID `json:"message_id"`
	Title       string           `json:"title"`
	Body        string           `json:"body"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	Close() error
}

// Noop ничего не отправляет.
type Noop struct{}

func (Noop) Notify(ctx context.Context, n Notification) error {
	slog.DebugContext(ctx, "push skipped", "user_id", n.UserID, "event", n.Event)
	return nil
}

func (Noop) Close() error { return nil }

const maxBody = 120

// Preview обрезает текст сообщения для уведомления.
func Preview(text *string) string {
	if text == nil {
		return ""
	}
	r := []rune(*text)
	if len(r) <= maxBody {
		return *text
	}
	return string(r[:maxBody-1]) + "…"
}
