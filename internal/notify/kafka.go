package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/plugmarket-bot/internal/domain/models"
	"github.com/segmentio/kafka-go"
)

// MessageWriter часть kafka.Writer, которой пользуется трекер
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter писатель в топик трекера; ключ - id заказа, поэтому события одного заказа
// попадают в одну партицию и читаются по порядку.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// trackedEvent запись топика трекера
type trackedEvent struct {
	Kind      models.EventKind  `json:"kind"`
	OrderID   string            `json:"order_id"`
	Status    models.Status     `json:"status"`
	ActorID   int64             `json:"actor_id"`
	Audiences []models.Audience `json:"audiences,omitempty"`
	Order     models.Order      `json:"order"`
	At        time.Time         `json:"at"`
}

// KafkaTracker публикует каждое событие заказа, включая служебные без адресатов
type KafkaTracker struct {
	log    *slog.Logger
	writer MessageWriter
}

func NewKafkaTracker(log *slog.Logger, writer MessageWriter) *KafkaTracker {
	return &KafkaTracker{log: log, writer: writer}
}

func (k *KafkaTracker) Notify(ctx context.Context, event models.Event) error {
	const op = "notify.KafkaTracker.Notify"

	payload, err := json.Marshal(trackedEvent{
		Kind:      event.Kind,
		OrderID:   event.Order.ID,
		Status:    event.Order.Status,
		ActorID:   event.ActorID,
		Audiences: event.Audiences,
		Order:     event.Order,
		At:        event.At,
	})
	if err != nil {
		return fmt.Errorf("%s: marshal event: %w", op, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Order.ID),
		Value: payload,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(event.Kind)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s: write message: %w", op, err)
	}

	k.log.Debug("event tracked", slog.String("op", op), slog.String("orderID", event.Order.ID), slog.String("event", string(event.Kind)))
	return nil
}
