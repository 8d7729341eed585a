package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Secrets holds everything read from the environment.
type Secrets struct {
	DiscordToken string   `env:"REIMU_TOKEN,required"`
	AuthorID     string   `env:"AUTHOR_ID"`
	GuildID      string   `env:"DISCORD_GUILD_ID"`
	ChatAPIKeys  []string `env:"CHATANYWHERE_API_KEY,required" envSeparator:","`
	ChatAPIURL   string   `env:"CHAT_API_URL" envDefault:"https://api.chatanywhere.org/v1/"`
	RedisURL     string   `env:"REDIS_URL"`

	Surreal SurrealSecrets `envPrefix:"SURREAL_DB_"`
}

type SurrealSecrets struct {
	Host      string `env:"HOST"`
	User      string `env:"USER"`
	Pass      string `env:"PASS"`
	Namespace string `env:"NAMESPACE" envDefault:"reimu"`
	Database  string `env:"DATABASE" envDefault:"shrine"`
}

// Enabled reports whether conversation memory can be persisted.
func (s SurrealSecrets) Enabled() bool {
	return s.Host != ""
}

// URL returns the websocket RPC endpoint, adding the scheme and path when the
// host is given bare.
func (s SurrealSecrets) URL() string {
	if strings.HasPrefix(s.Host, "ws://") || strings.HasPrefix(s.Host, "wss://") {
		return s.Host
	}
	return "wss://" + s.Host + "/rpc"
}

// LoadSecrets parses the process environment.
func LoadSecrets() (*Secrets, error) {
	return parseSecrets(env.Options{})
}

func parseSecrets(opts env.Options) (*Secrets, error) {
	var s Secrets
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	keys := s.ChatAPIKeys[:0]
	for _, k := range s.ChatAPIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("parse env: CHATANYWHERE_API_KEY has no usable keys")
	}
	s.ChatAPIKeys = keys
	return &s, nil
}

// ToolSecrets is the subset of Secrets needed by tools that do not talk to
// Discord.
type ToolSecrets struct {
	RedisURL string         `env:"REDIS_URL"`
	Surreal  SurrealSecrets `envPrefix:"SURREAL_DB_"`
}

// LoadToolSecrets reads REDIS_URL and the SURREAL_DB_* variables.
func LoadToolSecrets() (*ToolSecrets, error) {
	return parseToolSecrets(env.Options{})
}

func parseToolSecrets(opts env.Options) (*ToolSecrets, error) {
	var s ToolSecrets
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &s, nil
}
