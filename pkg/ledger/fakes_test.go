package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"reimubot/pkg/cache"
	"reimubot/pkg/economy"
)

// memoryCache is an in-memory stand-in for the Redis cache.
type memoryCache struct {
	mu      sync.Mutex
	data    map[string]string
	failGet error
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]string)}
}

func (m *memoryCache) Key(parts ...string) string {
	return "test:" + strings.Join(parts, ":")
}

func (m *memoryCache) GetJSON(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return m.failGet
	}
	v, ok := m.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal([]byte(v), dest)
}

func (m *memoryCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = string(data)
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.deletes++
	return nil
}

func (m *memoryCache) AcquireLock(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.data[key]; held {
		return false, nil
	}
	m.data[key] = token
	return true, nil
}

func (m *memoryCache) ReleaseLock(_ context.Context, key, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[key] != token {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

// countingStore is a map-backed Store that counts calls.
type countingStore struct {
	mu      sync.Mutex
	states  map[economy.Account]economy.State
	loads   int
	updates int
	loadErr error
}

func newCountingStore() *countingStore {
	return &countingStore{states: make(map[economy.Account]economy.State)}
}

func (s *countingStore) Load(_ context.Context, acct economy.Account) (economy.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return economy.State{}, s.loadErr
	}
	return s.states[acct], nil
}

func (s *countingStore) Update(_ context.Context, acct economy.Account, fn func(*economy.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	st := s.states[acct]
	if err := fn(&st); err != nil {
		return err
	}
	s.states[acct] = st
	return nil
}

// pausingStore holds every Load after it has read the state until release
// is closed.
type pausingStore struct {
	*countingStore
	loaded  chan struct{}
	release chan struct{}
}

func newPausingStore() *pausingStore {
	return &pausingStore{
		countingStore: newCountingStore(),
		loaded:        make(chan struct{}, 1),
		release:       make(chan struct{}),
	}
}

func (s *pausingStore) Load(ctx context.Context, acct economy.Account) (economy.State, error) {
	st, err := s.countingStore.Load(ctx, acct)
	s.loaded <- struct{}{}
	<-s.release
	return st, err
}

var errBoom = errors.New("boom")
