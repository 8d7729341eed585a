package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimubot/pkg/economy"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLStore_FreshAccountIsZero(t *testing.T) {
	store := openTestStore(t)
	st, err := store.Load(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, economy.State{}, st)
}

func TestSQLStore_UpdatePersistsEveryField(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	work := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	draw := work.Add(30 * time.Minute)

	want := economy.State{
		Balance:  economy.Balance{Primary: 1200, Secondary: 4000},
		Progress: economy.Progress{Basic: 10, Normal: 3, Hard: 1},
		Cooldowns: economy.Cooldowns{
			LastWorkAt:      &work,
			LastDrawAt:      &draw,
			DrawRepeatCount: 2,
		},
		Donations: economy.Donations{Count: 4, Total: 9000},
	}

	require.NoError(t, store.Update(ctx, acct, func(st *economy.State) error {
		*st = want
		return nil
	}))

	got, err := store.Load(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, want.Balance, got.Balance)
	assert.Equal(t, want.Progress, got.Progress)
	assert.Equal(t, want.Donations, got.Donations)
	assert.Equal(t, 2, got.Cooldowns.DrawRepeatCount)
	require.NotNil(t, got.Cooldowns.LastWorkAt)
	assert.True(t, got.Cooldowns.LastWorkAt.Equal(work))
	require.NotNil(t, got.Cooldowns.LastDrawAt)
	assert.True(t, got.Cooldowns.LastDrawAt.Equal(draw))
	assert.Nil(t, got.Cooldowns.LastDonationAt)

	// Clearing a cooldown and zeroing counters must overwrite the old row.
	require.NoError(t, store.Update(ctx, acct, func(st *economy.State) error {
		st.Cooldowns.LastDrawAt = nil
		st.Cooldowns.DrawRepeatCount = 0
		st.Balance.Primary = 0
		return nil
	}))

	got, err = store.Load(ctx, acct)
	require.NoError(t, err)
	assert.Nil(t, got.Cooldowns.LastDrawAt)
	assert.Zero(t, got.Cooldowns.DrawRepeatCount)
	assert.Zero(t, got.Balance.Primary)
	assert.Equal(t, int64(4000), got.Balance.Secondary)
}

func TestSQLStore_FailedUpdateRollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, acct, func(st *economy.State) error {
		st.Balance.Primary = 100
		return nil
	}))

	err := store.Update(ctx, acct, func(st *economy.State) error {
		st.Balance.Primary = 0
		return &economy.InsufficientFundsError{Total: 100, Needed: 500}
	})
	var insufficient *economy.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)

	st, err := store.Load(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, int64(100), st.Balance.Primary)
}

func TestSQLStore_RejectsNegativeBalance(t *testing.T) {
	store := openTestStore(t)
	err := store.Update(context.Background(), acct, func(st *economy.State) error {
		st.Balance.Secondary = -1
		return nil
	})
	assert.Error(t, err)
}

func TestSQLStore_RealmsAreIsolated(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	other := economy.Account{RealmID: "other-guild", UserID: acct.UserID}

	require.NoError(t, store.Update(ctx, acct, func(st *economy.State) error {
		st.Balance.Primary = 500
		return nil
	}))

	st, err := store.Load(ctx, other)
	require.NoError(t, err)
	assert.Zero(t, st.Balance.Total())

	st, err = store.Load(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, int64(500), st.Balance.Primary)
}

func TestSQLStore_ConcurrentUpdates(t *testing.T) {
	store := NewLockedStore(openTestStore(t), NewKeyedMutex(10*time.Second))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Update(ctx, acct, func(st *economy.State) error {
				st.Balance.Primary += 10
				return nil
			}))
		}()
	}
	wg.Wait()

	st, err := store.Load(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, int64(250), st.Balance.Primary)
}
