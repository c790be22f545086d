package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yashrajoria/storefront-backend/models"
	awspkg "github.com/yashrajoria/storefront-backend/pkg/aws"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher announces materialized orders to downstream consumers.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	Close() error
}

type NoopEventPublisher struct{}

func (NoopEventPublisher) PublishOrderCreated(context.Context, *models.Order) error { return nil }
func (NoopEventPublisher) Close() error                                              { return nil }

// SNSEventPublisher publishes order events to an SNS topic.
type SNSEventPublisher struct {
	sns      awspkg.SNSPublisher
	topicArn string
}

func NewSNSEventPublisher(sns awspkg.SNSPublisher, topicArn string) *SNSEventPublisher {
	return &SNSEventPublisher{sns: sns, topicArn: topicArn}
}

func (p *SNSEventPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	event := models.NewOrderCreatedEvent(order)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	return p.sns.Publish(ctx, p.topicArn, data, map[string]string{
		"event_type": event.Type,
		"session_id": event.SessionID,
	})
}

func (p *SNSEventPublisher) Close() error { return nil }

// kafkaWriter is the subset of *kafka.Writer the publisher uses.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventPublisher writes order events keyed by order id.
type KafkaEventPublisher struct {
	writer kafkaWriter
	topic  string
	logger *zap.Logger
}

// KafkaBatchTimeout bounds how long a single event waits for a batch to fill.
// Events are written while a webhook delivery is still open.
const KafkaBatchTimeout = 10 * time.Millisecond

func NewKafkaEventPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaEventPublisher {
	w := newKafkaWriter(brokers, topic)
	logger.Info("Kafka order event producer initialized",
		zap.String("topic", topic),
		zap.Strings("brokers", brokers),
	)
	return &KafkaEventPublisher{writer: w, topic: topic, logger: logger}
}

func newKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           KafkaBatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func (p *KafkaEventPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	event := models.NewOrderCreatedEvent(order)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order event to %s: %w", p.topic, err)
	}
	p.logger.Debug("Order event sent", zap.String("order_id", event.OrderID), zap.String("topic", p.topic))
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
