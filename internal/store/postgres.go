package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the table PostgresPersister reads and writes.
const Schema = `CREATE TABLE IF NOT EXISTS betting_state (
	name       TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// DBTX is the part of a pgx pool or connection PostgresPersister needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresPersister implements Persister with one row per named state.
// Expired rows read as ErrNotFound, matching cookie expiry.
type PostgresPersister struct {
	pool DBTX
	name string
	ttl  time.Duration
	now  func() time.Time
}

// NewPostgresPersister creates a PostgreSQL-backed persister.
func NewPostgresPersister(pool DBTX, name string, ttl time.Duration) *PostgresPersister {
	if name == "" {
		name = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresPersister{pool: pool, name: name, ttl: ttl, now: time.Now}
}

// Migrate ensures the backing table exists.
func (p *PostgresPersister) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate betting_state: %w", err)
	}
	return nil
}

func (p *PostgresPersister) Load(ctx context.Context) (string, error) {
	var value string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM betting_state WHERE name = $1 AND expires_at > NOW()`,
		p.name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load state %s: %w", p.name, err)
	}
	return value, nil
}

func (p *PostgresPersister) Save(ctx context.Context, text string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO betting_state (name, value, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE
		 SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		p.name, text, p.now().UTC().Add(p.ttl),
	)
	if err != nil {
		return fmt.Errorf("save state %s: %w", p.name, err)
	}
	return nil
}
