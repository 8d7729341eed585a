package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"reimubot/pkg/cache"
	"reimubot/pkg/economy"
	"reimubot/pkg/logger"
)

type stateCache interface {
	Key(parts ...string) string
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedStore serves Load from Redis and drops the cached copy around every
// Update. Cache failures fall through to the underlying store.
//
// A Load that misses reads the store without the account lock, so each key
// carries a generation that invalidate bumps. The fill is skipped when the
// generation moved during the read.
type CachedStore struct {
	Store
	cache stateCache
	ttl   time.Duration

	genMu sync.Mutex
	gens  map[string]uint64
}

func NewCachedStore(store Store, cache stateCache, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, cache: cache, ttl: ttl, gens: make(map[string]uint64)}
}

func (c *CachedStore) generation(key string) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.gens[key]
}

func (c *CachedStore) key(acct economy.Account) string {
	return c.cache.Key("state", acct.RealmID, acct.UserID)
}

func (c *CachedStore) Load(ctx context.Context, acct economy.Account) (economy.State, error) {
	key := c.key(acct)

	var st economy.State
	err := c.cache.GetJSON(ctx, key, &st)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		logger.Warn("[Ledger] cache read failed", zap.String("key", key), zap.Error(err))
	}

	gen := c.generation(key)
	st, err = c.Store.Load(ctx, acct)
	if err != nil {
		return economy.State{}, err
	}

	c.fill(ctx, key, gen, st)
	return st, nil
}

// fill caches st unless key was invalidated after gen was read. The check and
// the write happen under genMu so a concurrent invalidate either sees the
// cached copy and deletes it, or stops the write.
func (c *CachedStore) fill(ctx context.Context, key string, gen uint64, st economy.State) {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if c.gens[key] != gen {
		logger.Debug("[Ledger] skipping stale cache fill", zap.String("key", key))
		return
	}
	if err := c.cache.SetJSON(ctx, key, st, c.ttl); err != nil {
		logger.Warn("[Ledger] cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedStore) Update(ctx context.Context, acct economy.Account, fn func(*economy.State) error) error {
	key := c.key(acct)
	c.invalidate(ctx, key)
	err := c.Store.Update(ctx, acct, fn)
	c.invalidate(ctx, key)
	return err
}

func (c *CachedStore) invalidate(ctx context.Context, key string) {
	c.genMu.Lock()
	c.gens[key]++
	c.genMu.Unlock()

	if err := c.cache.Delete(ctx, key); err != nil {
		logger.Warn("[Ledger] cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
