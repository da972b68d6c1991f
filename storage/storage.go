package storage

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// Store is a persistent string key-value store. A missing key is reported as
// ("", false, nil), never as an error.
type Store interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value string) error
	// Close releases the resources held by the store.
	Close() error
}

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("storage: store is closed")
	// ErrCircuitOpen is returned by a Breaker while the backend is considered down.
	ErrCircuitOpen = errors.New("storage: circuit breaker is open")
)

// DefaultQueryTimeout is the per-operation timeout for stores that perform
// I/O (SQLite, Redis).
const DefaultQueryTimeout = 5 * time.Second

type config struct {
	queryTimeout time.Duration
	prefix       string
}

// Option configures a Store implementation.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := config{queryTimeout: DefaultQueryTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.queryTimeout <= 0 {
		cfg.queryTimeout = DefaultQueryTimeout
	}
	return cfg
}

// WithQueryTimeout sets the per-operation timeout for the SQLite and Redis
// stores. Defaults to DefaultQueryTimeout.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithPrefix namespaces keys. Applies to the Redis store.
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}
