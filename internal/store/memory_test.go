package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/atmx/betting-dashboard/internal/codec"
	"github.com/atmx/betting-dashboard/internal/model"
	"github.com/atmx/betting-dashboard/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryPersister_EmptyIsNotFound(t *testing.T) {
	p := store.NewMemoryPersister(0)
	if _, err := p.Load(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryPersister_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := store.NewMemoryPersister(7 * 24 * time.Hour)
	p.SetClock(func() time.Time { return now })

	ctx := context.Background()
	if err := p.Save(ctx, "x"); err != nil {
		t.Fatalf("save: %v", err)
	}

	now = now.Add(6 * 24 * time.Hour)
	if v, err := p.Load(ctx); err != nil || v != "x" {
		t.Errorf("before expiry: got %q, %v", v, err)
	}

	now = now.Add(2 * 24 * time.Hour)
	if _, err := p.Load(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("after expiry: expected ErrNotFound, got %v", err)
	}
}

func TestLoadState_MissingYieldsDefault(t *testing.T) {
	s := store.LoadState(context.Background(), store.NewMemoryPersister(0), quietLogger())
	if !s.IsDefault() {
		t.Errorf("expected default state, got %+v", s)
	}
}

func TestLoadState_CorruptYieldsDefault(t *testing.T) {
	p := store.NewMemoryPersister(0)
	p.Save(context.Background(), "%7Bnot-json")

	s := store.LoadState(context.Background(), p, quietLogger())
	if !s.IsDefault() {
		t.Errorf("expected default state for corrupt text, got %+v", s)
	}
}

type brokenPersister struct{}

func (brokenPersister) Load(context.Context) (string, error) { return "", errors.New("boom") }
func (brokenPersister) Save(context.Context, string) error   { return errors.New("boom") }

func TestLoadState_BackendErrorYieldsDefault(t *testing.T) {
	s := store.LoadState(context.Background(), brokenPersister{}, quietLogger())
	if !s.IsDefault() {
		t.Errorf("expected default state on backend error, got %+v", s)
	}
}

func TestSaveThenLoadState(t *testing.T) {
	st := store.NewStateStore(model.Default())
	st.ApplyAutoRollTick(true)
	st.ApplyMultiplyTick(d("1"), d("4"), false)
	want := st.Get()

	p := store.NewMemoryPersister(store.DefaultTTL)
	ctx := context.Background()
	if err := store.SaveState(ctx, p, want, time.Second); err != nil {
		t.Fatalf("save: %v", err)
	}

	text, _ := p.Load(ctx)
	if text != codec.Encode(want) {
		t.Errorf("persisted text is not the codec encoding")
	}

	got := store.LoadState(ctx, p, quietLogger())
	if !got.Equal(want) {
		t.Errorf("loaded %+v, want %+v", got, want)
	}
}
