package pubsub

import (
	"context"
	"sync/atomic"
)

// MemoryBroker — брокер в пределах процесса: для тестов и одиночного инстанса.
type MemoryBroker struct {
	hub    *Hub
	closed atomic.Bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{hub: NewHub()}
}

func (b *MemoryBroker) Subscribe(_ context.Context, room string, sub Subscriber) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	b.hub.Add(room, sub)
	return newSubscription(func(context.Context) error {
		b.hub.Remove(room, sub)
		return nil
	}), nil
}

func (b *MemoryBroker) Publish(_ context.Context, room string, frame []byte) (int, error) {
	if b.closed.Load() {
		return 0, ErrClosed
	}
	return b.hub.Broadcast(room, frame), nil
}

func (b *MemoryBroker) Ping(context.Context) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (b *MemoryBroker) Close() error {
	b.closed.Store(true)
	return nil
}

// Subscribers — число подписчиков комнаты.
func (b *MemoryBroker) Subscribers(room string) int {
	return b.hub.Count(room)
}
