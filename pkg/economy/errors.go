package economy

import (
	"errors"
	"fmt"
	"time"
)

// Action names a cooldown-gated command.
type Action string

const (
	ActionWork   Action = "work"
	ActionDraw   Action = "draw"
	ActionDonate Action = "donate"
)

// ErrInvalidAmount is returned for non-positive donation or spend amounts.
var ErrInvalidAmount = errors.New("economy: amount must be positive")

// ErrBalanceOverflow is returned when a credit would push the primary store
// past the largest representable amount.
var ErrBalanceOverflow = errors.New("economy: balance overflow")

// CooldownError is returned when an action is attempted inside its window.
type CooldownError struct {
	Action    Action
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	h, m := SplitRemaining(e.Remaining)
	return fmt.Sprintf("economy: %s on cooldown for %dh%dm", e.Action, h, m)
}

// TooSoonError is the draw-specific warning for the first and second repeat
// attempts inside the draw window. Attempt is the repeat count after the
// increment (1 or 2).
type TooSoonError struct {
	Remaining time.Duration
	Attempt   int
}

func (e *TooSoonError) Error() string {
	h, m := SplitRemaining(e.Remaining)
	return fmt.Sprintf("economy: draw attempted too soon (attempt %d, %dh%dm left)", e.Attempt, h, m)
}

// InsufficientFundsError is returned when a spend exceeds both stores combined.
type InsufficientFundsError struct {
	Total  int64
	Needed int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("economy: insufficient funds: have %d, need %d", e.Total, e.Needed)
}

// InsufficientPenaltyFundsError is returned when a repeat-draw penalty is
// waived because the account cannot cover it.
type InsufficientPenaltyFundsError struct {
	Total   int64
	Penalty int64
	Attempt int
}

func (e *InsufficientPenaltyFundsError) Error() string {
	return fmt.Sprintf("economy: penalty of %d waived, balance is only %d", e.Penalty, e.Total)
}

// IsUserError reports whether err is an expected outcome of a user action
// rather than an infrastructure failure.
func IsUserError(err error) bool {
	var (
		cooldown *CooldownError
		tooSoon  *TooSoonError
		funds    *InsufficientFundsError
		penalty  *InsufficientPenaltyFundsError
	)
	return errors.Is(err, ErrInvalidAmount) ||
		errors.As(err, &cooldown) ||
		errors.As(err, &tooSoon) ||
		errors.As(err, &funds) ||
		errors.As(err, &penalty)
}
