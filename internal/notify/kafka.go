package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
}

// KafkaNotifier кладёт уведомления в топик; доставку по device token
// выполняет отдельный push-сервис.
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kn := &KafkaNotifier{
		producer: p,
		topic:    cfg.Topic,
		doneCh:   make(chan struct{}),
	}
	go kn.deliveryReports()
	return kn, nil
}

func (k *KafkaNotifier) deliveryReports() {
	for e := range k.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			slog.Warn("push delivery failed", "topic", k.topic, "err", m.TopicPartition.Error)
		}
	}
	close(k.doneCh)
}

func (k *KafkaNotifier) Notify(_ context.Context, n Notification) error {
	msg, err := k.message(n)
	if err != nil {
		return err
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce notification: %w", err)
	}
	return nil
}

// message: ключ — пользователь, чтобы уведомления одного получателя шли по порядку.
func (k *KafkaNotifier) message(n Notification) (*kafka.Message, error) {
	value, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(strconv.FormatInt(int64(n.UserID), 10)),
		Value:          value,
	}, nil
}

func (k *KafkaNotifier) Close() error {
	k.producer.Flush(5000)
	k.producer.Close()
	<-k.doneCh
	return nil
}
