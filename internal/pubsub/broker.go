// Package pubsub доставляет кадры в комнаты пользователей.
// Кадр публикуется в комнату и приходит всем подписчикам этой комнаты,
// где бы они ни были подключены.
package pubsub

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("broker closed")

// Subscriber — получатель кадров комнаты. Deliver не должен блокироваться;
// false означает, что кадр не принят (очередь переполнена или соединение закрыто).
type Subscriber interface {
	Deliver(frame []byte) bool
}

type Subscription interface {
	// Unsubscribe идемпотентен.
	Unsubscribe(ctx context.Context) error
}

type Broker interface {
	Subscribe(ctx context.Context, room string, sub Subscriber) (Subscription, error)
	// Publish возвращает число живых получателей; 0 — комнату никто не слушает.
	Publish(ctx context.Context, room string, frame []byte) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

type subscription struct {
	once sync.Once
	fn   func(ctx context.Context) error
	err  error
}

func newSubscription(fn func(ctx context.Context) error) *subscription {
	return &subscription{fn: fn}
}

func (s *subscription) Unsubscribe(ctx context.Context) error {
	s.once.Do(func() { s.err = s.fn(ctx) })
	return s.err
}
