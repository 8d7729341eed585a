package economy

import "time"

// Engine applies the shrine's economy rules to an account state. It performs
// no I/O; callers load the state, pass a single captured now, and persist
// whatever state comes back.
type Engine struct {
	rules Rules
	rng   Rand
}

// NewEngine builds an engine. A nil rng uses the process-wide source.
func NewEngine(rules Rules, rng Rand) *Engine {
	if rng == nil {
		rng = globalRand{}
	}
	return &Engine{rules: rules, rng: rng}
}

// Rules returns the engine's configuration.
func (e *Engine) Rules() Rules {
	return e.rules
}

// WorkResult describes a completed job.
type WorkResult struct {
	Tier   Tier
	Reward int64
	Total  int64
}

// Work assigns a random eligible job, pays its reward into the primary store
// and starts the work cooldown. On error the state is returned unchanged.
func (e *Engine) Work(st State, now time.Time) (State, WorkResult, error) {
	if on, remaining := CheckCooldown(st.Cooldowns.LastWorkAt, now, e.rules.WorkCooldown); on {
		return st, WorkResult{}, &CooldownError{Action: ActionWork, Remaining: remaining}
	}

	tiers := e.rules.eligibleTiers(st.Progress)
	tier := tiers[e.rng.IntN(len(tiers))]
	reward := e.reward(tier)

	balance, err := Credit(st.Balance, reward)
	if err != nil {
		return st, WorkResult{}, err
	}

	st.Balance = balance
	st.Progress.increment(tier)
	st.Cooldowns.LastWorkAt = timePtr(now)

	return st, WorkResult{Tier: tier, Reward: reward, Total: st.Balance.Total()}, nil
}

func (e *Engine) reward(t Tier) int64 {
	r := e.rules.Rewards[t]
	span := r.Max - r.Min + 1
	if span <= 1 {
		return r.Min
	}
	return r.Min + int64(e.rng.IntN(int(span)))
}

// DrawKind distinguishes the successful draw outcomes.
type DrawKind int

const (
	DrawFortune DrawKind = iota + 1
	DrawPenalty
)

// DrawResult is the outcome of a draw that did not fail.
type DrawResult struct {
	Kind    DrawKind
	Fortune Fortune
	Penalty int64
	// Attempt is the repeat count that triggered a penalty.
	Attempt int
	Total   int64
}

// Draw pulls a fortune, or escalates when the draw cooldown is still running:
// two warnings, then a penalty charged across both stores. The returned state
// must be persisted even when err is a *TooSoonError or
// *InsufficientPenaltyFundsError, because the repeat counter has moved.
func (e *Engine) Draw(st State, now time.Time) (State, DrawResult, error) {
	on, remaining := CheckCooldown(st.Cooldowns.LastDrawAt, now, e.rules.DrawCooldown)
	if !on {
		fortune := Fortunes[e.rng.IntN(len(Fortunes))]
		st.Cooldowns.DrawRepeatCount = 0
		st.Cooldowns.LastDrawAt = timePtr(now)
		return st, DrawResult{Kind: DrawFortune, Fortune: fortune, Total: st.Balance.Total()}, nil
	}

	st.Cooldowns.DrawRepeatCount++
	attempt := st.Cooldowns.DrawRepeatCount

	if attempt < 3 {
		return st, DrawResult{}, &TooSoonError{Remaining: remaining, Attempt: attempt}
	}

	balance, err := Spend(st.Balance, e.rules.DrawPenalty)
	if err != nil {
		return st, DrawResult{}, &InsufficientPenaltyFundsError{
			Total:   st.Balance.Total(),
			Penalty: e.rules.DrawPenalty,
			Attempt: attempt,
		}
	}

	st.Balance = balance
	st.Cooldowns.DrawRepeatCount = 0
	return st, DrawResult{
		Kind:    DrawPenalty,
		Penalty: e.rules.DrawPenalty,
		Attempt: attempt,
		Total:   st.Balance.Total(),
	}, nil
}

// DonateResult describes an accepted donation.
type DonateResult struct {
	Amount int64
	Total  int64
	// DrawCooldownReduced is set when the donation shortened an active draw
	// cooldown; DrawCooldownCleared additionally when that ended it.
	DrawCooldownReduced bool
	DrawCooldownCleared bool
}

// Donate spends amount (primary first), records the donation and, for large
// donations, shortens a running draw cooldown once. On error the state is
// returned unchanged.
func (e *Engine) Donate(st State, amount int64, now time.Time) (State, DonateResult, error) {
	if amount <= 0 {
		return st, DonateResult{}, ErrInvalidAmount
	}
	if on, remaining := CheckCooldown(st.Cooldowns.LastDonationAt, now, e.rules.DonationCooldown); on {
		return st, DonateResult{}, &CooldownError{Action: ActionDonate, Remaining: remaining}
	}

	balance, err := Spend(st.Balance, amount)
	if err != nil {
		return st, DonateResult{}, err
	}

	st.Balance = balance
	st.Cooldowns.LastDonationAt = timePtr(now)
	st.Donations.Count++
	st.Donations.Total += amount

	res := DonateResult{Amount: amount, Total: st.Balance.Total()}

	if amount >= e.rules.DonationBonusThreshold {
		if on, _ := CheckCooldown(st.Cooldowns.LastDrawAt, now, e.rules.DrawCooldown); on {
			adjusted := st.Cooldowns.LastDrawAt.Add(-e.rules.DonationBonusReduction)
			res.DrawCooldownReduced = true
			if still, _ := CheckCooldown(&adjusted, now, e.rules.DrawCooldown); still {
				st.Cooldowns.LastDrawAt = timePtr(adjusted)
			} else {
				st.Cooldowns.LastDrawAt = nil
				res.DrawCooldownCleared = true
			}
		}
	}

	return st, res, nil
}
