// Package sink publishes reconciled updates to external systems.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rickgao/hashwatch/internal/model"
)

// KafkaConfig holds Kafka producer configuration.
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	InstanceID string // message key, keeps one instance on one partition
}

// messageWriter is the part of kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes each update as a JSON message.
type KafkaSink struct {
	writer messageWriter
	key    []byte
	now    func() time.Time
	logger *slog.Logger
}

// NewKafkaSink creates an asynchronous producer. Delivery failures are
// logged; they never block the reconciler.
func NewKafkaSink(cfg KafkaConfig, logger *slog.Logger) *KafkaSink {
	if logger == nil {
		logger = slog.Default()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 100 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Warn("kafka delivery failed", "topic", cfg.Topic, "messages", len(msgs), "err", err)
			}
		},
	}
	return newKafkaSink(writer, cfg.InstanceID, logger)
}

func newKafkaSink(w messageWriter, instanceID string, logger *slog.Logger) *KafkaSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaSink{
		writer: w,
		key:    []byte(instanceID),
		now:    time.Now,
		logger: logger,
	}
}

// Publish implements broadcast.Sink.
func (s *KafkaSink) Publish(ctx context.Context, update model.Update) error {
	msg, err := s.encode(update)
	if err != nil {
		return err
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (s *KafkaSink) encode(update model.Update) (kafka.Message, error) {
	data, err := json.Marshal(update)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode update: %w", err)
	}
	return kafka.Message{
		Key:   s.key,
		Value: data,
		Time:  s.now(),
		Headers: []kafka.Header{
			{Key: "state", Value: []byte(update.State)},
		},
	}, nil
}

// Close flushes pending messages and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
