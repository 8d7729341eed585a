package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"reimubot/pkg/economy"
	"reimubot/pkg/logger"
)

type RewardRange struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

type EconomySettings struct {
	WorkCooldown           time.Duration          `yaml:"work_cooldown"`
	DrawCooldown           time.Duration          `yaml:"draw_cooldown"`
	DonationCooldown       time.Duration          `yaml:"donation_cooldown"`
	Rewards                map[string]RewardRange `yaml:"rewards"`
	NormalUnlock           int                    `yaml:"normal_unlock"`
	HardUnlock             int                    `yaml:"hard_unlock"`
	DrawPenalty            int64                  `yaml:"draw_penalty"`
	DonationBonusThreshold int64                  `yaml:"donation_bonus_threshold"`
	DonationBonusReduction time.Duration          `yaml:"donation_bonus_reduction"`
}

type ChatSettings struct {
	Model          string        `yaml:"model"`
	FallbackModels []string      `yaml:"fallback_models"`
	MaxTokens      int           `yaml:"max_tokens"`
	BusyMessage    string        `yaml:"busy_message"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// A message repeated this many times is kept forever.
	PermanentAfter   int           `yaml:"permanent_after"`
	MessageRetention time.Duration `yaml:"message_retention"`
	ContextWordLimit int           `yaml:"context_word_limit"`
	ContextCharLimit int           `yaml:"context_char_limit"`
}

type StorageSettings struct {
	SQLitePath  string        `yaml:"sqlite_path"`
	CachePrefix string        `yaml:"cache_prefix"`
	BalanceTTL  time.Duration `yaml:"balance_ttl"`
	LockTTL     time.Duration `yaml:"lock_ttl"`
	LockWait    time.Duration `yaml:"lock_wait"`
}

type Config struct {
	ModelSettings struct {
		Temperature float64 `yaml:"temperature"`
		TopP        float64 `yaml:"top_p"`
	} `yaml:"model_settings"`
	Chat    ChatSettings         `yaml:"chat"`
	Economy EconomySettings      `yaml:"economy"`
	Storage StorageSettings      `yaml:"storage"`
	Logging logger.Configuration `yaml:"logging"`
}

// Default returns the configuration used when no config file exists. Values
// present in a file override these field by field.
func Default() *Config {
	config := &Config{}
	config.ModelSettings.Temperature = 1
	config.ModelSettings.TopP = 1

	config.Chat = ChatSettings{
		Model:            "gpt-4o-mini",
		MaxTokens:        1024,
		BusyMessage:      "Reimu is a bit busy right now, come back later~♪",
		RequestTimeout:   60 * time.Second,
		PermanentAfter:   10,
		MessageRetention: 30 * time.Minute,
		ContextWordLimit: 3000,
		ContextCharLimit: 1500,
	}

	rules := economy.DefaultRules()
	config.Economy = EconomySettings{
		WorkCooldown:           rules.WorkCooldown,
		DrawCooldown:           rules.DrawCooldown,
		DonationCooldown:       rules.DonationCooldown,
		Rewards:                make(map[string]RewardRange, len(rules.Rewards)),
		NormalUnlock:           rules.NormalUnlock,
		HardUnlock:             rules.HardUnlock,
		DrawPenalty:            rules.DrawPenalty,
		DonationBonusThreshold: rules.DonationBonusThreshold,
		DonationBonusReduction: rules.DonationBonusReduction,
	}
	for tier, r := range rules.Rewards {
		config.Economy.Rewards[string(tier)] = RewardRange{Min: r.Min, Max: r.Max}
	}

	config.Storage = StorageSettings{
		SQLitePath:  "shrine.db",
		CachePrefix: "reimu",
		BalanceTTL:  30 * time.Second,
		LockTTL:     10 * time.Second,
		LockWait:    3 * time.Second,
	}

	config.Logging = logger.Configuration{Level: "info", Console: true}
	return config
}

func LoadConfig(path string) (*Config, error) {
	config := Default()

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, err
	}

	if err := config.Economy.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (e EconomySettings) validate() error {
	for _, tier := range economy.Tiers {
		r, ok := e.Rewards[string(tier)]
		if !ok {
			return fmt.Errorf("economy.rewards: missing tier %q", tier)
		}
		if r.Min <= 0 || r.Max < r.Min {
			return fmt.Errorf("economy.rewards.%s: invalid range %d-%d", tier, r.Min, r.Max)
		}
	}
	for name, d := range map[string]time.Duration{
		"work_cooldown":     e.WorkCooldown,
		"draw_cooldown":     e.DrawCooldown,
		"donation_cooldown": e.DonationCooldown,
	} {
		if d <= 0 {
			return fmt.Errorf("economy.%s must be positive", name)
		}
	}
	if e.DrawPenalty <= 0 {
		return fmt.Errorf("economy.draw_penalty must be positive")
	}
	return nil
}

// Rules converts the economy section into engine rules.
func (c *Config) Rules() economy.Rules {
	e := c.Economy
	rules := economy.Rules{
		WorkCooldown:           e.WorkCooldown,
		DrawCooldown:           e.DrawCooldown,
		DonationCooldown:       e.DonationCooldown,
		Rewards:                make(map[economy.Tier]economy.RewardRange, len(e.Rewards)),
		NormalUnlock:           e.NormalUnlock,
		HardUnlock:             e.HardUnlock,
		DrawPenalty:            e.DrawPenalty,
		DonationBonusThreshold: e.DonationBonusThreshold,
		DonationBonusReduction: e.DonationBonusReduction,
	}
	for tier, r := range e.Rewards {
		rules.Rewards[economy.Tier(tier)] = economy.RewardRange{Min: r.Min, Max: r.Max}
	}
	return rules
}
