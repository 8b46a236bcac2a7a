package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var publisherTracer = otel.Tracer("messaging/publisher")

// Publisher sends JSON events to any topic. Writes are asynchronous: Publish
// returns once the message is queued and delivery failures are logged by the
// completion callback.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

type PublisherOption func(*kafka.Writer)

// WithSyncWrites makes Publish wait for the broker acknowledgement.
func WithSyncWrites() PublisherOption {
	return func(w *kafka.Writer) {
		w.Async = false
		w.Completion = nil
	}
}

func NewPublisher(brokers []string, logger *slog.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{logger: logger}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		Completion:             p.completed,
	}
	for _, opt := range opts {
		opt(p.writer)
	}
	return p
}

func (p *Publisher) Publish(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}

	ctx, span := publisherTracer.Start(ctx, "send "+topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(topic),
			semconv.MessagingKafkaMessageKey(key),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, carrierFor(&msg))

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write %s event: %w", topic, err)
	}
	return nil
}

func (p *Publisher) completed(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, msg := range messages {
		p.logger.Error("failed to deliver event", "error", err, "topic", msg.Topic, "key", string(msg.Key))
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
