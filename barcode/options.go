package barcode

import (
	"time"

	"github.com/agentuity/stockroom/logger"
)

type config struct {
	key     string
	maxSize int
	expiry  time.Duration
	now     func() time.Time
	logger  logger.Logger
}

// Option configures a Cache.
type Option func(*config)

func defaultConfig() config {
	return config{
		key:     StorageKey,
		maxSize: MaxCacheSize,
		expiry:  CacheExpiry,
		now:     time.Now,
		logger:  logger.NewDiscardLogger(),
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	def := defaultConfig()
	if cfg.key == "" {
		cfg.key = def.key
	}
	if cfg.maxSize <= 0 {
		cfg.maxSize = def.maxSize
	}
	if cfg.expiry <= 0 {
		cfg.expiry = def.expiry
	}
	if cfg.now == nil {
		cfg.now = def.now
	}
	if cfg.logger == nil {
		cfg.logger = def.logger
	}
	return cfg
}

// WithStorageKey sets the storage slot. Defaults to StorageKey.
func WithStorageKey(key string) Option {
	return func(c *config) { c.key = key }
}

// WithMaxSize sets the capacity enforced on every write. Defaults to MaxCacheSize.
func WithMaxSize(n int) Option {
	return func(c *config) { c.maxSize = n }
}

// WithExpiry sets how long an entry survives without being used. Defaults to CacheExpiry.
func WithExpiry(d time.Duration) Option {
	return func(c *config) { c.expiry = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithLogger sets the logger storage faults are reported to. By default
// nothing is logged.
func WithLogger(log logger.Logger) Option {
	return func(c *config) { c.logger = log }
}
