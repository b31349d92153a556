// Package store holds the in-memory betting state and the persistence
// backends its snapshots are written to. Backends include PostgreSQL,
// Redis (standalone or as a read-through cache) and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/atmx/betting-dashboard/internal/codec"
	"github.com/atmx/betting-dashboard/internal/model"
)

// ErrNotFound is returned by Load when no unexpired value is stored.
var ErrNotFound = errors.New("store: no persisted state")

// DefaultKey names the persisted record, mirroring the cookie name.
const DefaultKey = codec.DefaultCookieName

// DefaultTTL is how long a persisted snapshot stays valid.
const DefaultTTL = codec.CookieMaxAge

// Persister stores the encoded state text. It is the server-side
// equivalent of the browser cookie: one named value with an expiry.
type Persister interface {
	// Load returns the stored text or ErrNotFound.
	Load(ctx context.Context) (string, error)

	// Save replaces the stored text with a full snapshot.
	Save(ctx context.Context, text string) error
}

// LoadState reads and decodes the persisted record. Any failure yields
// model.Default(); nothing is returned to the caller as an error.
func LoadState(ctx context.Context, p Persister, logger *slog.Logger) model.BettingState {
	if logger == nil {
		logger = slog.Default()
	}
	if p == nil {
		return model.Default()
	}
	text, err := p.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("load persisted state failed, using defaults", "err", err)
		}
		return model.Default()
	}
	s, ok := codec.Decode(text)
	if !ok {
		logger.Warn("persisted state is corrupt, using defaults", "len", len(text))
		return model.Default()
	}
	return s
}

// SaveState encodes s and writes it with a bounded timeout.
func SaveState(ctx context.Context, p Persister, s model.BettingState, timeout time.Duration) error {
	if p == nil {
		return nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.Save(ctx, codec.Encode(s))
}
