package service

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
	"github.com/cwrk-planet/dealer-chat/internal/notify"
	"github.com/cwrk-planet/dealer-chat/internal/pubsub"
	"github.com/cwrk-planet/dealer-chat/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Delivery — кадр для одной комнаты; Push отправляется, если комнату никто не слушает.
type Delivery struct {
	Receiver Receiver
	Event    domain.Event
	Push     *notify.Notification
}

type Fanout struct {
	broker   pubsub.Broker
	notifier notify.Notifier
}

func NewFanout(broker pubsub.Broker, notifier notify.Notifier) *Fanout {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Fanout{broker: broker, notifier: notifier}
}

// Publish рассылает кадры по комнатам параллельно; неудача одной комнаты
// не мешает остальным. Возвращает первую ошибку для логирования.
func (f *Fanout) Publish(ctx context.Context, deliveries []Delivery) error {
	var g errgroup.Group
	for _, d := range deliveries {
		g.Go(func() error {
			return f.deliver(ctx, d)
		})
	}
	return g.Wait()
}

func (f *Fanout) deliver(ctx context.Context, d Delivery) error {
	frame, err := d.Event.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.Event.MessageType, err)
	}

	n, err := f.broker.Publish(ctx, d.Receiver.Room, frame)
	if err != nil {
		logger.FromCtx(ctx).Warn("publish failed", "room", d.Receiver.Room, "event", d.Event.MessageType, "err", err)
		return fmt.Errorf("publish %s: %w", d.Receiver.Room, err)
	}
	if n > 0 || d.Push == nil || d.Receiver.DeviceToken == nil || *d.Receiver.DeviceToken == "" {
		return nil
	}

	push := *d.Push
	push.DeviceToken = *d.Receiver.DeviceToken
	push.UserID = d.Receiver.UserID
	if err := f.notifier.Notify(ctx, push); err != nil {
		logger.FromCtx(ctx).Warn("push failed", "user_id", push.UserID, "err", err)
		return fmt.Errorf("push %d: %w", push.UserID, err)
	}
	return nil
}
