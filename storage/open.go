package storage

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// ErrUnknownScheme is returned by Open for a DSN it does not understand.
var ErrUnknownScheme = errors.New("storage: unknown store scheme")

type ownedRedisStore struct {
	*redisStore
}

func (s *ownedRedisStore) Close() error {
	return s.client.Close()
}

// Open builds a Store from a DSN:
//
//	memory                  in-process map
//	file:<dir>              one file per key under dir
//	sqlite:<path>           SQLite database (sqlite::memory: for in-memory)
//	redis://host:port/db    Redis, rediss:// for TLS
//
// A Redis store created here owns its client and closes it on Close.
func Open(ctx context.Context, dsn string, opts ...Option) (Store, error) {
	switch {
	case dsn == "" || dsn == "memory":
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "file:"):
		dir := strings.TrimPrefix(dsn, "file:")
		if dir == "" {
			return nil, errors.Newf("storage: file store requires a directory: %q", dsn)
		}
		return NewFileDir(dir)
	case strings.HasPrefix(dsn, "sqlite:"):
		return NewSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"), opts...)
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		ropts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, errors.Wrap(err, "storage: parse redis url")
		}
		rs := NewRedis(ctx, redis.NewClient(ropts), opts...).(*redisStore)
		return &ownedRedisStore{rs}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownScheme, "%q", dsn)
	}
}

// ValidateDSN reports whether Open would recognise dsn, without connecting.
func ValidateDSN(dsn string) error {
	switch {
	case dsn == "" || dsn == "memory", strings.HasPrefix(dsn, "sqlite:"):
		return nil
	case strings.HasPrefix(dsn, "file:"):
		if strings.TrimPrefix(dsn, "file:") == "" {
			return errors.Newf("storage: file store requires a directory: %q", dsn)
		}
		return nil
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		if _, err := redis.ParseURL(dsn); err != nil {
			return errors.Wrap(err, "storage: parse redis url")
		}
		return nil
	default:
		return errors.Wrapf(ErrUnknownScheme, "%q", dsn)
	}
}
