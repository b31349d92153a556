// Package watcher relays "the foreign result node changed" signals to the
// engine. It never inspects what changed; any insertion is a signal.
//
// Signals arrive from the dashboard page's MutationObserver over HTTP
// (Local), from a Redis channel (Redis), or from a Kafka results topic
// (Kafka).
package watcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/atmx/betting-dashboard/internal/metrics"
)

// DefaultNodeID is the result node the page watches.
const DefaultNodeID = "double_your_btc_result"

// Subscriber delivers change signals for one node.
type Subscriber interface {
	Subscribe(ctx context.Context, nodeID string, onChange func()) (unsubscribe func(), err error)
}

// Install subscribes onChange to nodeID. An empty nodeID or nil subscriber
// means there is nothing to watch, and the watcher is simply not installed.
// Subscription errors are logged, never returned.
func Install(ctx context.Context, sub Subscriber, nodeID string, onChange func(), logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}
	if sub == nil || nodeID == "" || onChange == nil {
		return func() {}
	}
	unsubscribe, err := sub.Subscribe(ctx, nodeID, onChange)
	if err != nil {
		logger.Warn("watcher not installed", "node", nodeID, "err", err)
		return func() {}
	}
	logger.Info("watcher installed", "node", nodeID)
	return unsubscribe
}

// Local is an in-process registry fed by Notify.
type Local struct {
	mu   sync.RWMutex
	next int
	subs map[string]map[int]func()
}

// NewLocal creates an empty registry.
func NewLocal() *Local {
	return &Local{subs: make(map[string]map[int]func())}
}

func (l *Local) Subscribe(_ context.Context, nodeID string, onChange func()) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	id := l.next
	if l.subs[nodeID] == nil {
		l.subs[nodeID] = make(map[int]func())
	}
	l.subs[nodeID][id] = onChange

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs[nodeID], id)
		if len(l.subs[nodeID]) == 0 {
			delete(l.subs, nodeID)
		}
	}, nil
}

// Notify reports that nodeID gained added children. Nothing fires when
// added is zero or nobody watches nodeID. It returns the number of
// callbacks run.
func (l *Local) Notify(nodeID string, added int) int {
	if added <= 0 {
		return 0
	}
	l.mu.RLock()
	fns := make([]func(), 0, len(l.subs[nodeID]))
	for _, fn := range l.subs[nodeID] {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()

	if len(fns) > 0 {
		metrics.WatcherSignals.WithLabelValues("http").Inc()
	}
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Watching reports whether anyone subscribed to nodeID.
func (l *Local) Watching(nodeID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs[nodeID]) > 0
}
