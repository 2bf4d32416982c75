// Package events mirrors notification events to Kafka for downstream
// consumers (analytics, email fan-out). The sink is asynchronous: Publish
// only enqueues and a single worker writes to the broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/notify"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/metrics"
)

// ErrQueueFull is returned by Publish when the worker is behind.
var ErrQueueFull = errors.New("event sink queue full")

// ErrClosed is returned by Publish after Shutdown.
var ErrClosed = errors.New("event sink closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaSink struct {
	writer       messageWriter
	writeTimeout time.Duration
	metrics      *metrics.Collector
	log          *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

func NewKafkaSink(brokers []string, topic string, queueSize int, writeTimeout time.Duration, m *metrics.Collector, log *zap.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaSink(w, queueSize, writeTimeout, m, log)
}

func newKafkaSink(w messageWriter, queueSize int, writeTimeout time.Duration, m *metrics.Collector, log *zap.Logger) *KafkaSink {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	s := &KafkaSink{
		writer:       w,
		writeTimeout: writeTimeout,
		metrics:      m,
		log:          log.Named("events"),
		queue:        make(chan kafka.Message, queueSize),
		done:         make(chan struct{}),
	}
	go s.worker()
	return s
}

// Publish implements notify.Publisher. Events are keyed by channel so each
// channel keeps its order within a partition.
func (s *KafkaSink) Publish(_ context.Context, ev notify.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Channel),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Name)},
		},
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	select {
	case s.queue <- msg:
		return nil
	default:
		s.metrics.SinkDropped()
		return ErrQueueFull
	}
}

// Shutdown stops accepting events and waits for the queue to drain.
func (s *KafkaSink) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
		s.log.Warn("event sink shutdown timed out; some events may be lost")
	}
	return s.writer.Close()
}

func (s *KafkaSink) worker() {
	defer close(s.done)
	for msg := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		if err := s.writer.WriteMessages(ctx, msg); err != nil {
			s.metrics.NotificationFailed("sink")
			s.log.Error("failed to write event to kafka",
				zap.ByteString("key", msg.Key),
				zap.Error(err),
			)
		}
		cancel()
	}
}
