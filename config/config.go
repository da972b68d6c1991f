package config

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/agentuity/stockroom/barcode"
	"github.com/agentuity/stockroom/logger"
	"github.com/agentuity/stockroom/storage"
	"github.com/cockroachdb/errors"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvStore    = "STOCKROOM_STORE"
	EnvCacheKey = "STOCKROOM_CACHE_KEY"
	EnvMaxSize  = "STOCKROOM_MAX_SIZE"
	EnvExpiry   = "STOCKROOM_EXPIRY"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Duration is a time.Duration that also accepts days and weeks ("30d", "1w2d").
type Duration time.Duration

func ParseDuration(s string) (Duration, error) {
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "duration %q: %s", s, err)
	}
	return Duration(d), nil
}

func (d Duration) String() string {
	return str2duration.String(time.Duration(d))
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

type Breaker struct {
	MaxFailures int      `yaml:"max_failures,omitempty"`
	Cooldown    Duration `yaml:"cooldown,omitempty"`
}

type Redis struct {
	Prefix string `yaml:"prefix,omitempty"`
}

// Config describes where the barcode cache lives and how it behaves.
type Config struct {
	// Store is a storage DSN, see storage.Open.
	Store        string   `yaml:"store"`
	CacheKey     string   `yaml:"cache_key,omitempty"`
	MaxSize      int      `yaml:"max_size,omitempty"`
	Expiry       Duration `yaml:"expiry,omitempty"`
	QueryTimeout Duration `yaml:"query_timeout,omitempty"`
	LogLevel     string   `yaml:"log_level,omitempty"`
	Redis        Redis    `yaml:"redis,omitempty"`
	// Breaker is applied to every store except memory when MaxFailures > 0.
	Breaker Breaker `yaml:"breaker,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store:        "memory",
		CacheKey:     barcode.StorageKey,
		MaxSize:      barcode.MaxCacheSize,
		Expiry:       Duration(barcode.CacheExpiry),
		QueryTimeout: Duration(storage.DefaultQueryTimeout),
		LogLevel:     "info",
	}
}

// Load reads filename over the defaults, applies environment overrides and
// validates the result. An empty filename skips the file.
func Load(filename string) (Config, error) {
	cfg := Default()
	if filename != "" {
		buf, err := os.ReadFile(filename)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config %s", filename)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", filename)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvStore); v != "" {
		c.Store = v
	}
	if v := os.Getenv(EnvCacheKey); v != "" {
		c.CacheKey = v
	}
	if v := os.Getenv(EnvMaxSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%s=%q is not a number", EnvMaxSize, v)
		}
		c.MaxSize = n
	}
	if v := os.Getenv(EnvExpiry); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return err
		}
		c.Expiry = d
	}
	return nil
}

// Validate rejects values the cache or the store would not accept.
func (c Config) Validate() error {
	if c.MaxSize < 0 {
		return errors.Wrapf(ErrInvalidConfig, "max_size must be >= 0, got %d", c.MaxSize)
	}
	if c.Expiry < 0 {
		return errors.Wrapf(ErrInvalidConfig, "expiry must be >= 0, got %s", c.Expiry)
	}
	if c.Breaker.MaxFailures < 0 {
		return errors.Wrapf(ErrInvalidConfig, "breaker.max_failures must be >= 0, got %d", c.Breaker.MaxFailures)
	}
	if err := storage.ValidateDSN(c.Store); err != nil {
		return errors.Mark(errors.Wrap(err, "store"), ErrInvalidConfig)
	}
	return nil
}

// Options converts the configuration into cache options.
func (c Config) Options(log logger.Logger) []barcode.Option {
	return []barcode.Option{
		barcode.WithStorageKey(c.CacheKey),
		barcode.WithMaxSize(c.MaxSize),
		barcode.WithExpiry(time.Duration(c.Expiry)),
		barcode.WithLogger(log),
	}
}

// OpenStore opens the configured store, wrapped in a breaker when enabled.
func (c Config) OpenStore(ctx context.Context) (storage.Store, error) {
	store, err := storage.Open(ctx, c.Store,
		storage.WithQueryTimeout(time.Duration(c.QueryTimeout)),
		storage.WithPrefix(c.Redis.Prefix),
	)
	if err != nil {
		return nil, err
	}
	if c.Breaker.MaxFailures > 0 && c.Store != "memory" && c.Store != "" {
		return storage.NewBreaker(store, c.Breaker.MaxFailures, time.Duration(c.Breaker.Cooldown)), nil
	}
	return store, nil
}
