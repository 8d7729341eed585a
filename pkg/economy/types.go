package economy

import (
	"math"
	"time"
)

// Account identifies a wallet inside one realm (a Discord guild).
type Account struct {
	RealmID string
	UserID  string
}

// Key returns the "realm:user" form used for locks and cache keys.
func (a Account) Key() string {
	return a.RealmID + ":" + a.UserID
}

// Balance holds the two spendable stores of an account. Primary is the
// shrine's own offering money and is always spent first; Secondary is the
// regular balance shared with other bots.
type Balance struct {
	Primary   int64 `json:"primary"`
	Secondary int64 `json:"secondary"`
}

// Total is the spendable amount across both stores, saturating at
// math.MaxInt64.
func (b Balance) Total() int64 {
	if b.Secondary > math.MaxInt64-b.Primary {
		return math.MaxInt64
	}
	return b.Primary + b.Secondary
}

// Progress counts completed work per tier.
type Progress struct {
	Basic  int `json:"basic"`
	Normal int `json:"normal"`
	Hard   int `json:"hard"`
}

// Count returns the number of completed jobs for a tier.
func (p Progress) Count(t Tier) int {
	switch t {
	case TierBasic:
		return p.Basic
	case TierNormal:
		return p.Normal
	case TierHard:
		return p.Hard
	}
	return 0
}

func (p *Progress) increment(t Tier) {
	switch t {
	case TierBasic:
		p.Basic++
	case TierNormal:
		p.Normal++
	case TierHard:
		p.Hard++
	}
}

// Cooldowns tracks the three independent cooldown classes. A nil timestamp
// means the action has never been taken.
type Cooldowns struct {
	LastWorkAt      *time.Time `json:"last_work_at,omitempty"`
	LastDrawAt      *time.Time `json:"last_draw_at,omitempty"`
	LastDonationAt  *time.Time `json:"last_donation_at,omitempty"`
	DrawRepeatCount int        `json:"draw_repeat_count"`
}

// Donations accumulates an account's donation history.
type Donations struct {
	Count int   `json:"count"`
	Total int64 `json:"total"`
}

// State is everything the engine reads and writes for one account. The zero
// value is a fresh account.
type State struct {
	Balance   Balance   `json:"balance"`
	Progress  Progress  `json:"progress"`
	Cooldowns Cooldowns `json:"cooldowns"`
	Donations Donations `json:"donations"`
}

func timePtr(t time.Time) *time.Time {
	return &t
}
