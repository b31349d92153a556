package watcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/betting-dashboard/internal/metrics"
)

// PubSubClient is the part of a Redis client Redis needs.
type PubSubClient interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Redis treats every message on channel "dom:<nodeID>" as a change signal.
type Redis struct {
	client PubSubClient
	logger *slog.Logger
}

// NewRedis creates a Redis-backed subscriber.
func NewRedis(client PubSubClient, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, logger: logger}
}

// Channel returns the Redis channel carrying signals for nodeID.
func Channel(nodeID string) string {
	return fmt.Sprintf("dom:%s", nodeID)
}

func (r *Redis) Subscribe(ctx context.Context, nodeID string, onChange func()) (func(), error) {
	channel := Channel(nodeID)
	sub := r.client.Subscribe(ctx, channel)

	// Wait for the subscription confirmation so errors surface here.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				metrics.WatcherSignals.WithLabelValues("redis").Inc()
				onChange()
			}
		}
	}()

	r.logger.Debug("redis watcher subscribed", "channel", channel)
	return cancel, nil
}
