package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	awspkg "github.com/yashrajoria/distributor-backend/pkg/aws"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"go.uber.org/zap"
)

// EventPublisher delivers committed shipment batches to one destination.
type EventPublisher interface {
	Name() string
	Publish(ctx context.Context, event models.ShipmentEvent) error
}

// MultiPublisher fans an event out to every publisher. A failing publisher is
// logged and counted; it never fails the batch that has already committed.
type MultiPublisher struct {
	publishers []EventPublisher
	metrics    *awspkg.MetricsClient
}

func NewMultiPublisher(metrics *awspkg.MetricsClient, publishers ...EventPublisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers, metrics: metrics}
}

func (m *MultiPublisher) Name() string { return "multi" }

func (m *MultiPublisher) Publish(ctx context.Context, event models.ShipmentEvent) error {
	var failed int
	for _, p := range m.publishers {
		if err := p.Publish(ctx, event); err != nil {
			failed++
			logger.Error(ctx, "Failed to publish shipment event", err,
				zap.String("publisher", p.Name()),
				zap.String("batch_id", event.BatchID),
			)
			recordCount(m.metrics, awspkg.MetricEventPublishFailure, map[string]string{"Publisher": p.Name()})
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d publishers failed", failed, len(m.publishers))
	}
	return nil
}

// SNSEventPublisher publishes events to an SNS topic.
type SNSEventPublisher struct {
	client   awspkg.SNSPublisher
	topicArn string
}

func NewSNSEventPublisher(client awspkg.SNSPublisher, topicArn string) *SNSEventPublisher {
	return &SNSEventPublisher{client: client, topicArn: topicArn}
}

func (p *SNSEventPublisher) Name() string { return "sns" }

func (p *SNSEventPublisher) Publish(ctx context.Context, event models.ShipmentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal shipment event: %w", err)
	}
	return p.client.Publish(ctx, p.topicArn, event.Type, payload)
}

// MessageWriter is the subset of *kafka.Writer used for publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventPublisher writes events to a Kafka topic keyed by batch ID.
type KafkaEventPublisher struct {
	writer MessageWriter
}

// NewKafkaWriter builds the writer the way the cart producer does.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
}

func NewKafkaEventPublisher(writer MessageWriter) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: writer}
}

func (p *KafkaEventPublisher) Name() string { return "kafka" }

func (p *KafkaEventPublisher) Publish(ctx context.Context, event models.ShipmentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal shipment event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.BatchID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

// Close flushes and closes the writer.
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
