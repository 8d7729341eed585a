package economy

import "math"

// Spend deducts amount across both stores, primary first. On failure the
// returned balance equals b.
func Spend(b Balance, amount int64) (Balance, error) {
	if amount <= 0 {
		return b, ErrInvalidAmount
	}
	total := b.Total()
	if total < amount {
		return b, &InsufficientFundsError{Total: total, Needed: amount}
	}
	if b.Primary >= amount {
		b.Primary -= amount
		return b, nil
	}
	b.Secondary -= amount - b.Primary
	b.Primary = 0
	return b, nil
}

// Credit adds amount to the primary store. On failure the returned balance
// equals b.
func Credit(b Balance, amount int64) (Balance, error) {
	if amount <= 0 {
		return b, ErrInvalidAmount
	}
	if b.Primary > math.MaxInt64-amount {
		return b, ErrBalanceOverflow
	}
	b.Primary += amount
	return b, nil
}
