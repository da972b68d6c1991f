package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	ctx    context.Context
	cfg    config
}

var _ Store = (*redisStore)(nil)

// NewRedis returns a Store backed by Redis string values. Keys carry no TTL.
// The caller owns the redis.Client lifecycle, Close is a no-op on the client.
func NewRedis(ctx context.Context, client *redis.Client, opts ...Option) Store {
	return &redisStore{
		client: client,
		ctx:    ctx,
		cfg:    applyOptions(opts),
	}
}

func (s *redisStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = s.ctx
	}
	return context.WithTimeout(parent, s.cfg.queryTimeout)
}

func (s *redisStore) prefixKey(key string) string {
	if s.cfg.prefix == "" {
		return key
	}
	return s.cfg.prefix + ":" + key
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	val, err := s.client.Get(qctx, s.prefixKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "storage: redis get %s", key)
	}
	return val, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value string) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := s.client.Set(qctx, s.prefixKey(key), value, 0).Err(); err != nil {
		return errors.Wrapf(err, "storage: redis set %s", key)
	}
	return nil
}

// Close is a no-op, the caller owns the redis.Client lifecycle.
func (s *redisStore) Close() error {
	return nil
}
