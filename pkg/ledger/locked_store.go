package ledger

import (
	"context"

	"reimubot/pkg/economy"
)

// LockedStore serializes updates per account.
type LockedStore struct {
	Store
	locker Locker
}

func NewLockedStore(store Store, locker Locker) *LockedStore {
	return &LockedStore{Store: store, locker: locker}
}

func (s *LockedStore) Update(ctx context.Context, acct economy.Account, fn func(*economy.State) error) error {
	unlock, err := s.locker.Lock(ctx, acct.Key())
	if err != nil {
		return err
	}
	defer unlock()
	return s.Store.Update(ctx, acct, fn)
}
