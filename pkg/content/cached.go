package content

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

// Cache is a byte cache keyed by content ref. olric.Client implements it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedStore reads through a Cache in front of another Store. Refs name
// immutable payloads so entries never need invalidation. Cache failures are
// logged and otherwise ignored.
type CachedStore struct {
	next   Store
	cache  Cache
	ttl    time.Duration
	logger *logging.ColoredLogger
}

// NewCachedStore wraps next with cache.
func NewCachedStore(next Store, cache Cache, ttl time.Duration, logger *logging.ColoredLogger) *CachedStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CachedStore{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	ref, err := c.next.Put(ctx, data, name)
	if err != nil {
		return "", err
	}
	c.fill(ctx, ref, data)
	return ref, nil
}

func (c *CachedStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}

	data, ok, err := c.cache.Get(ctx, ref)
	if err != nil {
		c.logger.ComponentWarn(logging.ComponentCache, "Cache read failed", zap.String("ref", ref), zap.Error(err))
	} else if ok {
		return data, nil
	}

	data, err = c.next.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, ref, data)
	return data, nil
}

func (c *CachedStore) Health(ctx context.Context) error {
	return c.next.Health(ctx)
}

func (c *CachedStore) fill(ctx context.Context, ref string, data []byte) {
	if err := c.cache.Put(ctx, ref, data, c.ttl); err != nil {
		c.logger.ComponentWarn(logging.ComponentCache, "Cache write failed", zap.String("ref", ref), zap.Error(err))
	}
}
