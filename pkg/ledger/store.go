// Package ledger persists economy state per account and serializes access to
// it.
package ledger

import (
	"context"

	"reimubot/pkg/economy"
)

// Store loads and atomically rewrites an account's economy state.
type Store interface {
	// Load returns the current state, or the zero State for an unknown
	// account.
	Load(ctx context.Context, acct economy.Account) (economy.State, error)

	// Update loads the state, passes it to fn and saves whatever fn leaves
	// behind, all in one transaction. If fn returns an error nothing is
	// written and that error is returned unchanged.
	Update(ctx context.Context, acct economy.Account, fn func(*economy.State) error) error
}
