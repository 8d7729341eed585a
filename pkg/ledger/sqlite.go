package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"reimubot/pkg/economy"
	"reimubot/pkg/logger"
)

// SQLStore keeps account state in three SQLite tables keyed by
// (realm_id, user_id).
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates the
// schema.
func OpenSQLite(path string) (*SQLStore, error) {
	logger.Debug("[Ledger] opening database", zap.String("path", path))

	dsn := path + "?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite allows one writer; a single connection keeps transactions from
	// tripping over each other with SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&BalanceRow{}, &CooldownRow{}, &ProgressRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) Load(ctx context.Context, acct economy.Account) (economy.State, error) {
	st, err := load(s.db.WithContext(ctx), acct)
	if err != nil {
		return economy.State{}, fmt.Errorf("load account %s: %w", acct.Key(), err)
	}
	return st, nil
}

func (s *SQLStore) Update(ctx context.Context, acct economy.Account, fn func(*economy.State) error) error {
	var loadErr, saveErr error

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := load(tx, acct)
		if err != nil {
			loadErr = err
			return err
		}
		if err := fn(&st); err != nil {
			return err
		}
		if err := save(tx, acct, st); err != nil {
			saveErr = err
			return err
		}
		return nil
	})

	switch {
	case loadErr != nil:
		return fmt.Errorf("load account %s: %w", acct.Key(), loadErr)
	case saveErr != nil:
		return fmt.Errorf("save account %s: %w", acct.Key(), saveErr)
	case err != nil:
		return err
	}
	return nil
}

func load(tx *gorm.DB, acct economy.Account) (economy.State, error) {
	var (
		b BalanceRow
		c CooldownRow
		p ProgressRow
	)
	where := "realm_id = ? AND user_id = ?"
	if err := tx.Where(where, acct.RealmID, acct.UserID).Limit(1).Find(&b).Error; err != nil {
		return economy.State{}, err
	}
	if err := tx.Where(where, acct.RealmID, acct.UserID).Limit(1).Find(&c).Error; err != nil {
		return economy.State{}, err
	}
	if err := tx.Where(where, acct.RealmID, acct.UserID).Limit(1).Find(&p).Error; err != nil {
		return economy.State{}, err
	}
	return toState(b, c, p), nil
}

func save(tx *gorm.DB, acct economy.Account, st economy.State) error {
	b, c, p := fromState(acct, st)
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&b).Error; err != nil {
		return err
	}
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&c).Error; err != nil {
		return err
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&p).Error
}
