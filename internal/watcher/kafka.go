package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/atmx/betting-dashboard/internal/metrics"
)

// MessageReader is the part of *kafka.Reader Kafka needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Kafka reads a results topic and treats every message keyed with the
// watched node id as a change signal.
type Kafka struct {
	newReader func() MessageReader
	logger    *slog.Logger
	backoff   time.Duration
}

// NewKafka creates a subscriber reading topic from brokers.
func NewKafka(brokers []string, topic, groupID string, logger *slog.Logger) *Kafka {
	return NewKafkaWithReader(func() MessageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        groupID,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
		})
	}, logger)
}

// NewKafkaWithReader creates a subscriber over readers built by newReader.
func NewKafkaWithReader(newReader func() MessageReader, logger *slog.Logger) *Kafka {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{newReader: newReader, logger: logger, backoff: 500 * time.Millisecond}
}

func (k *Kafka) Subscribe(ctx context.Context, nodeID string, onChange func()) (func(), error) {
	reader := k.newReader()
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				k.logger.Warn("kafka read failed", "err", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(k.backoff):
				}
				continue
			}
			if string(m.Key) != nodeID {
				continue
			}
			metrics.WatcherSignals.WithLabelValues("kafka").Inc()
			onChange()
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}
