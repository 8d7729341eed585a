package memory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"reimubot/pkg/cache"
	"reimubot/pkg/logger"
)

type jsonCache interface {
	Key(parts ...string) string
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedStore keeps background info in Redis, since it is read on every chat
// reply and rarely changes.
type CachedStore struct {
	Store
	cache jsonCache
}

func NewCachedStore(store Store, cache jsonCache) *CachedStore {
	return &CachedStore{
		Store: store,
		cache: cache,
	}
}

func (c *CachedStore) BackgroundInfo(ctx context.Context, owner string) ([]BackgroundInfo, error) {
	key := c.cache.Key("background_info", owner)

	var infos []BackgroundInfo
	err := c.cache.GetJSON(ctx, key, &infos)
	if err == nil {
		return infos, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		logger.Warn("[Memory] cache read failed", zap.String("key", key), zap.Error(err))
	}

	infos, err = c.Store.BackgroundInfo(ctx, owner)
	if err != nil {
		return nil, err
	}

	// An empty result is not cached so a fresh seed shows up immediately.
	if len(infos) > 0 {
		if err := c.cache.SetJSON(ctx, key, infos, cache.BackgroundInfoTTL); err != nil {
			logger.Warn("[Memory] cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return infos, nil
}

func (c *CachedStore) AddBackgroundInfo(ctx context.Context, owner string, infos ...string) error {
	if err := c.Store.AddBackgroundInfo(ctx, owner, infos...); err != nil {
		return err
	}
	c.invalidate(ctx, c.cache.Key("background_info", owner))
	return nil
}

func (c *CachedStore) DeleteBackgroundInfo(ctx context.Context, ids ...string) (int, error) {
	infos, err := c.Store.ListBackgroundInfo(ctx)
	if err != nil {
		return 0, err
	}

	n, err := c.Store.DeleteBackgroundInfo(ctx, ids...)

	owners := make(map[string]bool)
	for _, info := range infos {
		owners[info.Owner] = true
	}
	for owner := range owners {
		c.invalidate(ctx, c.cache.Key("background_info", owner))
	}
	return n, err
}

func (c *CachedStore) invalidate(ctx context.Context, key string) {
	if err := c.cache.Delete(ctx, key); err != nil {
		logger.Warn("[Memory] cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
