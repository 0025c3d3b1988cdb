package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSinkConfig configures a KafkaSink.
type KafkaSinkConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string

	// Topic is the Kafka topic to write audit events to.
	Topic string

	// BatchTimeout is the maximum time to wait before flushing a batch.
	// Default: 1 second
	BatchTimeout time.Duration

	// WriteTimeout is the timeout for writing messages.
	// Default: 10 seconds
	WriteTimeout time.Duration
}

// KafkaSink writes audit events to a Kafka topic, keyed by instance ID so
// events for one workflow instance stay ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewKafkaSink creates a Kafka audit sink.
func NewKafkaSink(cfg KafkaSinkConfig, logger *zap.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka sink requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka sink requires a topic")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
	}

	return &KafkaSink{
		writer: writer,
		logger: logger.Named("kafka-audit"),
	}, nil
}

// Write sends one audit event to the configured topic.
func (s *KafkaSink) Write(ctx context.Context, event *Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("kafka sink is closed")
	}
	s.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling audit event %s: %w", event.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.InstanceID),
		Value: value,
		Time:  event.Timestamp,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing audit event %s to kafka: %w", event.ID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}

// Name returns the sink identifier.
func (s *KafkaSink) Name() string {
	return "kafka"
}
