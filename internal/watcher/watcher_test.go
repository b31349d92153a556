package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocal_NotifyFiresSubscribers(t *testing.T) {
	l := NewLocal()
	var fired int
	unsub := Install(context.Background(), l, DefaultNodeID, func() { fired++ }, quietLogger())

	if n := l.Notify(DefaultNodeID, 2); n != 1 {
		t.Errorf("callbacks run = %d, want 1", n)
	}
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}

	unsub()
	l.Notify(DefaultNodeID, 1)
	if fired != 1 {
		t.Error("callback ran after unsubscribe")
	}
	if l.Watching(DefaultNodeID) {
		t.Error("node still watched after unsubscribe")
	}
}

func TestLocal_NoInsertionsNoSignal(t *testing.T) {
	l := NewLocal()
	fired := false
	Install(context.Background(), l, DefaultNodeID, func() { fired = true }, quietLogger())

	l.Notify(DefaultNodeID, 0)
	if fired {
		t.Error("zero added nodes should not signal")
	}
}

func TestLocal_UnknownNodeIsNoop(t *testing.T) {
	l := NewLocal()
	if n := l.Notify("missing", 3); n != 0 {
		t.Errorf("callbacks run = %d, want 0", n)
	}
}

func TestInstall_EmptyNodeNotInstalled(t *testing.T) {
	l := NewLocal()
	unsub := Install(context.Background(), l, "", func() {}, quietLogger())
	unsub()
	if len(l.subs) != 0 {
		t.Error("empty node id should not install a watcher")
	}
}

type failingSubscriber struct{}

func (failingSubscriber) Subscribe(context.Context, string, func()) (func(), error) {
	return nil, errors.New("unreachable")
}

func TestInstall_ErrorIsSilent(t *testing.T) {
	unsub := Install(context.Background(), failingSubscriber{}, DefaultNodeID, func() {}, quietLogger())
	if unsub == nil {
		t.Fatal("Install should always return a callable unsubscribe")
	}
	unsub()
}

// chanReader feeds scripted messages, then blocks until ctx ends.
type chanReader struct {
	msgs   chan kafka.Message
	closed atomic.Bool
}

func (r *chanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *chanReader) Close() error {
	r.closed.Store(true)
	return nil
}

func TestKafka_SignalsOnMatchingKey(t *testing.T) {
	reader := &chanReader{msgs: make(chan kafka.Message, 3)}
	k := NewKafkaWithReader(func() MessageReader { return reader }, quietLogger())

	signals := make(chan struct{}, 3)
	unsub, err := k.Subscribe(context.Background(), DefaultNodeID, func() { signals <- struct{}{} })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	reader.msgs <- kafka.Message{Key: []byte("other_node"), Value: []byte("x")}
	reader.msgs <- kafka.Message{Key: []byte(DefaultNodeID), Value: []byte("<div>won</div>")}

	select {
	case <-signals:
	case <-time.After(2 * time.Second):
		t.Fatal("no signal for matching key")
	}

	unsub()
	if !reader.closed.Load() {
		t.Error("reader not closed on unsubscribe")
	}
	if len(signals) != 0 {
		t.Errorf("unexpected extra signals: %d", len(signals))
	}
}

func TestChannelName(t *testing.T) {
	if got := Channel("double_your_btc_result"); got != "dom:double_your_btc_result" {
		t.Errorf("Channel = %q", got)
	}
}

func TestRedis_UnreachableServerFailsSubscribe(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	var fired atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	unsub, err := NewRedis(rdb, quietLogger()).Subscribe(ctx, "double_your_btc_result", func() { fired.Add(1) })
	if err == nil {
		unsub()
		t.Fatal("expected subscribe error against an unreachable server")
	}
	if fired.Load() != 0 {
		t.Error("callback fired without a subscription")
	}
}
