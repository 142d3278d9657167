package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/skyfare/booking-finance/internal/config"
)

// BookingEventProducer publishes booking lifecycle events accepted by the API
// onto the event topic consumed by the processor.
type BookingEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewBookingEventProducer creates the producer and ensures the topic exists
func NewBookingEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*BookingEventProducer, error) {
	if cfg.BookingEventTopic == "" {
		return nil, fmt.Errorf("kafka booking event topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for booking event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.BookingEventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists for booking event producer: %w", cfg.BookingEventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.BookingEventTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Using async for high throughput
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write booking events asynchronously", "topic", cfg.BookingEventTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Wrote booking events asynchronously", "topic", cfg.BookingEventTopic, "count", len(messages))
			}
		},
	}

	return &BookingEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.BookingEventTopic,
	}, nil
}

func (p *BookingEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish booking event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish booking event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published booking event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *BookingEventProducer) Close() error {
	p.logger.Info("Closing booking event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
