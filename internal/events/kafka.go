package events

import (
	"context"
	"encoding/json"
	"fmt"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/vortex-catalog/internal/config"
)

// Producer is the subset of a Kafka writer the publisher needs
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaPublisher routes each event type to its own topic
type KafkaPublisher struct {
	producers map[string]Producer
	retry     RetryConfig
}

// NewKafkaPublisher creates a publisher over prebuilt producers keyed by
// event type. Failed writes are retried per retry.
func NewKafkaPublisher(producers map[string]Producer, retry RetryConfig) *KafkaPublisher {
	return &KafkaPublisher{producers: producers, retry: retry}
}

// DialKafka builds traced writers for the configured topics. Writers connect
// lazily, so no broker round trip happens here.
func DialKafka(cfg config.KafkaConfig, tp trace.TracerProvider, serviceName string) (*KafkaPublisher, error) {
	routes := map[string]string{
		TypeMovementRegistered: cfg.MovementsTopic,
		TypeOrderStatusChanged: cfg.StatusTopic,
	}

	producers := make(map[string]Producer, len(routes))
	for eventType, topic := range routes {
		base := &kafka.Writer{
			Addr:         kafka.TCP(cfg.Broker),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
			BatchSize:    cfg.BatchSize,
		}
		writer, err := otelkafka.NewWriter(base,
			otelkafka.WithTracerProvider(tp),
			otelkafka.WithPropagator(propagation.TraceContext{}),
			otelkafka.WithAttributes(
				[]attribute.KeyValue{
					semconv.MessagingDestinationNameKey.String(topic),
					attribute.String("messaging.kafka.client_id", serviceName),
				},
			),
		)
		if err != nil {
			for _, p := range producers {
				_ = p.Close()
			}
			return nil, fmt.Errorf("failed to create kafka writer for %s: %w", topic, err)
		}
		producers[eventType] = writer
	}
	retry := DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	return NewKafkaPublisher(producers, retry), nil
}

// Publish serializes the event and writes it to the topic for its type
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	producer, ok := p.producers[event.Type]
	if !ok {
		return fmt.Errorf("no topic configured for event type %q", event.Type)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-id", Value: []byte(event.ID)},
		},
	}
	err = retryWithBackoff(ctx, p.retry, func() error {
		return producer.WriteMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close closes every underlying producer
func (p *KafkaPublisher) Close() error {
	var firstErr error
	for _, producer := range p.producers {
		if err := producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
