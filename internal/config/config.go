// Package config loads vtubot configuration from environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Defaults applied by Normalize when the environment leaves fields empty.
const (
	DefaultStateDir   = "/var/lib/vtubot"
	DefaultDBFileName = "vtubot.db"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr       string        `envconfig:"API_ADDR" default:":8080"`
	WebhookKey string        `envconfig:"WEBHOOK_KEY"`
	AdminKey   string        `envconfig:"ADMIN_HTTP_KEY"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

// BotConfig holds dialogue-level settings.
type BotConfig struct {
	BrandName     string `envconfig:"BRAND_NAME" default:"Sregle"`
	CommandPrefix string `envconfig:"CMD_PREFIX" default:"sreg"`
}

// ProviderConfig holds the external wallet API settings. AdminID and
// AdminAPIKey are only used for catalog fetching.
type ProviderConfig struct {
	BaseURL     string        `envconfig:"VPREST_BASE_URL"`
	Timeout     time.Duration `envconfig:"VPREST_TIMEOUT" default:"120s"`
	AdminID     string        `envconfig:"VPREST_ADMIN_ID"`
	AdminAPIKey string        `envconfig:"VPREST_ADMIN_APIKEY"`
}

// TwilioConfig holds the optional receipt-notifier credentials. Notifier
// support is disabled when the SID is empty.
type TwilioConfig struct {
	AccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	FromNumber string `envconfig:"TWILIO_FROM_NUMBER"`
}

// Config aggregates all vtubot settings.
type Config struct {
	Server   ServerConfig
	Bot      BotConfig
	Provider ProviderConfig
	Twilio   TwilioConfig

	StateDir      string `envconfig:"VTUBOT_STATE_DIR"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	PlanOverrides string `envconfig:"PLAN_OVERRIDES_FILE"`
	Debug         bool   `envconfig:"DEBUG"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills derived defaults: the state
// directory and, when no database URL is set, a SQLite file inside it.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if strings.TrimSpace(cfg.Provider.BaseURL) == "" {
		return fmt.Errorf("VPREST_BASE_URL is required")
	}
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = filepath.Join(cfg.StateDir, DefaultDBFileName)
	}
	if cfg.Server.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must be >= 0")
	}
	return nil
}

// TwilioEnabled reports whether the receipt notifier is configured.
func (c *Config) TwilioEnabled() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.FromNumber != ""
}
