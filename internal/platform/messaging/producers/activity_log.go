package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/skyfare/booking-finance/internal/config"
)

// ActivityLogProducer publishes human-readable financial activity records.
// Publishing is best effort and must never block or fail a money movement.
type ActivityLogProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewActivityLogProducer returns a nil producer when the activity topic is
// not configured, which disables activity logging.
func NewActivityLogProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ActivityLogProducer, error) {
	if cfg.ActivityLogTopic == "" {
		logger.Info("Activity log topic is not configured. ActivityLogProducer will not be initialized.")
		return nil, nil
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for activity log producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.ActivityLogTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists for activity log producer: %w", cfg.ActivityLogTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ActivityLogTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write activity records asynchronously", "topic", cfg.ActivityLogTopic, "error", err, "count", len(messages))
			}
		},
	}

	return &ActivityLogProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ActivityLogTopic,
	}, nil
}

func (p *ActivityLogProducer) Publish(ctx context.Context, key string, value interface{}) error {
	if p == nil || p.writer == nil {
		return nil
	}

	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal activity record: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish activity record",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish activity record to %s: %w", p.topic, err)
	}

	return nil
}

func (p *ActivityLogProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing activity log producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
