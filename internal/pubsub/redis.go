package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"poolSize"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// RedisBroker — общий брокер для нескольких инстансов шлюза.
// На процесс одно соединение redis.PubSub; канал комнаты подписывается
// при первом локальном подписчике и отписывается при уходе последнего.
type RedisBroker struct {
	client *redis.Client
	ps     *redis.PubSub
	hub    *Hub

	subMu sync.Mutex // порядок SUBSCRIBE/UNSUBSCRIBE относительно hub
	done  chan struct{}
	once  sync.Once
}

func NewRedisBroker(ctx context.Context, cfg RedisConfig) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newRedisBroker(client), nil
}

func newRedisBroker(client *redis.Client) *RedisBroker {
	b := &RedisBroker{
		client: client,
		ps:     client.Subscribe(context.Background()),
		hub:    NewHub(),
		done:   make(chan struct{}),
	}
	go b.processMessages()
	return b
}

func (b *RedisBroker) Subscribe(ctx context.Context, room string, sub Subscriber) (Subscription, error) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	select {
	case <-b.done:
		return nil, ErrClosed
	default:
	}

	if b.hub.Add(room, sub) {
		if err := b.ps.Subscribe(ctx, RoomChannel(room)); err != nil {
			b.hub.Remove(room, sub)
			return nil, fmt.Errorf("subscribe %s: %w", room, err)
		}
	}
	return newSubscription(func(ctx context.Context) error {
		return b.release(ctx, room, sub)
	}), nil
}

func (b *RedisBroker) release(ctx context.Context, room string, sub Subscriber) error {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	if !b.hub.Remove(room, sub) {
		return nil
	}
	select {
	case <-b.done:
		return nil
	default:
	}
	return b.ps.Unsubscribe(ctx, RoomChannel(room))
}

// Publish возвращает число инстансов, подписанных на комнату.
func (b *RedisBroker) Publish(ctx context.Context, room string, frame []byte) (int, error) {
	n, err := b.client.Publish(ctx, RoomChannel(room), frame).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBroker) Close() error {
	var err error
	b.once.Do(func() {
		b.subMu.Lock()
		close(b.done)
		b.subMu.Unlock()

		if cerr := b.ps.Close(); cerr != nil {
			err = cerr
		}
		if cerr := b.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

// processMessages раздаёт входящие сообщения локальным подписчикам.
func (b *RedisBroker) processMessages() {
	ch := b.ps.Channel()
	for {
		select {
		case <-b.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			room, ok := RoomFromChannel(msg.Channel)
			if !ok {
				slog.Debug("redis: unexpected channel", "channel", msg.Channel)
				continue
			}
			b.hub.Broadcast(room, []byte(msg.Payload))
		}
	}
}
