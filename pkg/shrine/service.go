// Package shrine exposes the economy actions to command handlers. Each action
// reads the clock once, then runs the engine inside a single store update.
package shrine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"reimubot/pkg/economy"
	"reimubot/pkg/ledger"
	"reimubot/pkg/logger"
)

// ErrInvalidAccount is returned when the realm or user id is empty.
var ErrInvalidAccount = errors.New("shrine: realm and user ids are required")

// BalanceView is the read-only answer to a balance query.
type BalanceView struct {
	Primary   int64
	Secondary int64
	Total     int64
}

type Service struct {
	store  ledger.Store
	engine *economy.Engine
	clock  economy.Clock
}

// NewService wires the engine to a store. A nil clock uses the system clock.
func NewService(store ledger.Store, engine *economy.Engine, clock economy.Clock) *Service {
	if clock == nil {
		clock = economy.SystemClock{}
	}
	return &Service{store: store, engine: engine, clock: clock}
}

func account(realm, user string) (economy.Account, error) {
	if realm == "" || user == "" {
		return economy.Account{}, ErrInvalidAccount
	}
	return economy.Account{RealmID: realm, UserID: user}, nil
}

func (s *Service) Work(ctx context.Context, realm, user string) (economy.WorkResult, error) {
	acct, err := account(realm, user)
	if err != nil {
		return economy.WorkResult{}, err
	}
	now := s.clock.Now()

	var res economy.WorkResult
	err = s.store.Update(ctx, acct, func(st *economy.State) error {
		next, r, err := s.engine.Work(*st, now)
		if err != nil {
			return err
		}
		*st, res = next, r
		return nil
	})
	if err != nil {
		s.logFailure("[Work]", acct, err)
		return economy.WorkResult{}, err
	}

	logger.Info("[Work] job completed",
		zap.String("account", acct.Key()),
		zap.String("tier", string(res.Tier)),
		zap.Int64("reward", res.Reward))
	return res, nil
}

// Draw always commits the engine's state, so warnings and waived penalties
// still advance the repeat counter. The engine's outcome error is returned
// after the commit.
func (s *Service) Draw(ctx context.Context, realm, user string) (economy.DrawResult, error) {
	acct, err := account(realm, user)
	if err != nil {
		return economy.DrawResult{}, err
	}
	now := s.clock.Now()

	var (
		res     economy.DrawResult
		outcome error
	)
	err = s.store.Update(ctx, acct, func(st *economy.State) error {
		*st, res, outcome = s.engine.Draw(*st, now)
		return nil
	})
	if err != nil {
		s.logFailure("[Draw]", acct, err)
		return economy.DrawResult{}, err
	}
	if outcome != nil {
		logger.Debug("[Draw] refused", zap.String("account", acct.Key()), zap.Error(outcome))
		return economy.DrawResult{}, outcome
	}

	switch res.Kind {
	case economy.DrawPenalty:
		logger.Info("[Draw] repeat penalty charged",
			zap.String("account", acct.Key()),
			zap.Int("attempt", res.Attempt),
			zap.Int64("penalty", res.Penalty))
	default:
		logger.Info("[Draw] fortune drawn",
			zap.String("account", acct.Key()),
			zap.String("fortune", string(res.Fortune)))
	}
	return res, nil
}

func (s *Service) Donate(ctx context.Context, realm, user string, amount int64) (economy.DonateResult, error) {
	acct, err := account(realm, user)
	if err != nil {
		return economy.DonateResult{}, err
	}
	if amount <= 0 {
		return economy.DonateResult{}, economy.ErrInvalidAmount
	}
	now := s.clock.Now()

	var res economy.DonateResult
	err = s.store.Update(ctx, acct, func(st *economy.State) error {
		next, r, err := s.engine.Donate(*st, amount, now)
		if err != nil {
			return err
		}
		*st, res = next, r
		return nil
	})
	if err != nil {
		s.logFailure("[Donate]", acct, err)
		return economy.DonateResult{}, err
	}

	logger.Info("[Donate] donation accepted",
		zap.String("account", acct.Key()),
		zap.Int64("amount", amount),
		zap.Bool("draw_cooldown_reduced", res.DrawCooldownReduced))
	return res, nil
}

func (s *Service) Balance(ctx context.Context, realm, user string) (BalanceView, error) {
	st, err := s.load(ctx, realm, user)
	if err != nil {
		return BalanceView{}, err
	}
	return BalanceView{
		Primary:   st.Balance.Primary,
		Secondary: st.Balance.Secondary,
		Total:     st.Balance.Total(),
	}, nil
}

func (s *Service) Progress(ctx context.Context, realm, user string) (economy.Progress, error) {
	st, err := s.load(ctx, realm, user)
	if err != nil {
		return economy.Progress{}, err
	}
	return st.Progress, nil
}

func (s *Service) load(ctx context.Context, realm, user string) (economy.State, error) {
	acct, err := account(realm, user)
	if err != nil {
		return economy.State{}, err
	}
	st, err := s.store.Load(ctx, acct)
	if err != nil {
		s.logFailure("[Balance]", acct, err)
		return economy.State{}, err
	}
	return st, nil
}

func (s *Service) logFailure(tag string, acct economy.Account, err error) {
	if economy.IsUserError(err) {
		logger.Debug(tag+" refused", zap.String("account", acct.Key()), zap.Error(err))
		return
	}
	logger.Error(tag+" store failure", zap.String("account", acct.Key()), zap.Error(err))
}
