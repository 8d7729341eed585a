package economy

import "time"

// Tier is a work difficulty class.
type Tier string

const (
	TierBasic  Tier = "basic"
	TierNormal Tier = "normal"
	TierHard   Tier = "hard"
)

// Tiers lists every tier in unlock order.
var Tiers = []Tier{TierBasic, TierNormal, TierHard}

// RewardRange is an inclusive reward interval.
type RewardRange struct {
	Min int64
	Max int64
}

// Rules holds the tunable constants of the economy.
type Rules struct {
	WorkCooldown     time.Duration
	DrawCooldown     time.Duration
	DonationCooldown time.Duration

	Rewards map[Tier]RewardRange

	// NormalUnlock is the basic count at which normal work becomes available,
	// HardUnlock the normal count at which hard work does.
	NormalUnlock int
	HardUnlock   int

	DrawPenalty int64

	// Donations of at least DonationBonusThreshold shave DonationBonusReduction
	// off an active draw cooldown.
	DonationBonusThreshold int64
	DonationBonusReduction time.Duration
}

// DefaultRules returns the shrine's standard economy.
func DefaultRules() Rules {
	return Rules{
		WorkCooldown:     time.Hour,
		DrawCooldown:     5 * time.Hour,
		DonationCooldown: time.Hour,
		Rewards: map[Tier]RewardRange{
			TierBasic:  {Min: 100, Max: 500},
			TierNormal: {Min: 1200, Max: 3000},
			TierHard:   {Min: 50000, Max: 1000000},
		},
		NormalUnlock:           10,
		HardUnlock:             25,
		DrawPenalty:            5000,
		DonationBonusThreshold: 1000,
		DonationBonusReduction: time.Hour,
	}
}

// eligibleTiers returns the tiers an account may be assigned, in unlock order.
func (r Rules) eligibleTiers(p Progress) []Tier {
	tiers := []Tier{TierBasic}
	if p.Basic >= r.NormalUnlock {
		tiers = append(tiers, TierNormal)
	}
	if p.Normal >= r.HardUnlock {
		tiers = append(tiers, TierHard)
	}
	return tiers
}
