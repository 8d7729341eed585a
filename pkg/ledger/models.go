package ledger

import (
	"time"

	"reimubot/pkg/economy"
)

type BalanceRow struct {
	RealmID   string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	Primary   int64  `gorm:"column:primary_balance;not null;check:primary_balance >= 0"`
	Secondary int64  `gorm:"column:secondary_balance;not null;check:secondary_balance >= 0"`
	UpdatedAt time.Time
}

func (BalanceRow) TableName() string { return "balances" }

type CooldownRow struct {
	RealmID         string `gorm:"primaryKey"`
	UserID          string `gorm:"primaryKey"`
	LastWorkAt      *time.Time
	LastDrawAt      *time.Time
	LastDonationAt  *time.Time
	DrawRepeatCount int   `gorm:"not null"`
	DonationCount   int   `gorm:"not null"`
	TotalDonated    int64 `gorm:"not null"`
}

func (CooldownRow) TableName() string { return "cooldowns" }

type ProgressRow struct {
	RealmID     string `gorm:"primaryKey"`
	UserID      string `gorm:"primaryKey"`
	BasicCount  int    `gorm:"not null"`
	NormalCount int    `gorm:"not null"`
	HardCount   int    `gorm:"not null"`
}

func (ProgressRow) TableName() string { return "progresses" }

func toState(b BalanceRow, c CooldownRow, p ProgressRow) economy.State {
	return economy.State{
		Balance: economy.Balance{Primary: b.Primary, Secondary: b.Secondary},
		Progress: economy.Progress{
			Basic:  p.BasicCount,
			Normal: p.NormalCount,
			Hard:   p.HardCount,
		},
		Cooldowns: economy.Cooldowns{
			LastWorkAt:      c.LastWorkAt,
			LastDrawAt:      c.LastDrawAt,
			LastDonationAt:  c.LastDonationAt,
			DrawRepeatCount: c.DrawRepeatCount,
		},
		Donations: economy.Donations{Count: c.DonationCount, Total: c.TotalDonated},
	}
}

func fromState(acct economy.Account, st economy.State) (BalanceRow, CooldownRow, ProgressRow) {
	b := BalanceRow{
		RealmID:   acct.RealmID,
		UserID:    acct.UserID,
		Primary:   st.Balance.Primary,
		Secondary: st.Balance.Secondary,
	}
	c := CooldownRow{
		RealmID:         acct.RealmID,
		UserID:          acct.UserID,
		LastWorkAt:      st.Cooldowns.LastWorkAt,
		LastDrawAt:      st.Cooldowns.LastDrawAt,
		LastDonationAt:  st.Cooldowns.LastDonationAt,
		DrawRepeatCount: st.Cooldowns.DrawRepeatCount,
		DonationCount:   st.Donations.Count,
		TotalDonated:    st.Donations.Total,
	}
	p := ProgressRow{
		RealmID:     acct.RealmID,
		UserID:      acct.UserID,
		BasicCount:  st.Progress.Basic,
		NormalCount: st.Progress.Normal,
		HardCount:   st.Progress.Hard,
	}
	return b, c, p
}
