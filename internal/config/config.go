package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var codePrefixPattern = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{2,8}$`)

type Config struct {
	Port                  int    `env:"PORT" envDefault:"3000"`
	AppEnv                string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL           string `env:"DATABASE_URL,required"`
	RedisURL              string `env:"REDIS_URL,required"`
	StripeSecretKey       string `env:"STRIPE_SECRET_KEY,required"`
	StripePublishableKey  string `env:"STRIPE_PUBLISHABLE_KEY"`
	StripeWebhookSecret   string `env:"STRIPE_WEBHOOK_SECRET"`
	AdminTokenHash        string `env:"ADMIN_TOKEN_HASH"`
	MaxUses               int    `env:"UNLOCK_MAX_USES" envDefault:"3"`
	CodePrefix            string `env:"UNLOCK_CODE_PREFIX" envDefault:"FCF"`
	DefaultAmount         int64  `env:"PAYMENT_DEFAULT_AMOUNT" envDefault:"100"`
	DefaultCurrency       string `env:"PAYMENT_DEFAULT_CURRENCY" envDefault:"eur"`
	PaymentDescription    string `env:"PAYMENT_DESCRIPTION" envDefault:"FCF Tessere Premium"`
	RedeemRateLimitPerMin int    `env:"REDEEM_RATE_LIMIT_PER_MIN" envDefault:"30"`
	WebhookEventTTLHours  int    `env:"WEBHOOK_EVENT_TTL_HOURS" envDefault:"72"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) WebhookEventTTL() time.Duration {
	return time.Duration(c.WebhookEventTTLHours) * time.Hour
}

func (c *Config) Validate() error {
	if c.MaxUses < 1 {
		return fmt.Errorf("UNLOCK_MAX_USES must be at least 1, got %d", c.MaxUses)
	}
	if !codePrefixPattern.MatchString(c.CodePrefix) {
		return fmt.Errorf("UNLOCK_CODE_PREFIX must be 2-8 unambiguous characters (A-Z without I and O, 2-9), got %q", c.CodePrefix)
	}
	if c.DefaultAmount <= 0 {
		return fmt.Errorf("PAYMENT_DEFAULT_AMOUNT must be positive, got %d", c.DefaultAmount)
	}
	if c.AdminTokenHash != "" {
		if !strings.HasPrefix(c.AdminTokenHash, "$2a$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2b$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2y$") {
			return fmt.Errorf("ADMIN_TOKEN_HASH must be a bcrypt hash (generate with: go run scripts/hash-token.go <token>)")
		}
	}

	if c.IsProduction() {
		if c.StripeWebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in production")
		}
		if strings.HasPrefix(c.StripeSecretKey, "sk_test_") {
			log.Warn().Msg("STRIPE_SECRET_KEY is a test key in production")
		}
		if c.AdminTokenHash == "" {
			log.Warn().Msg("ADMIN_TOKEN_HASH is empty in production: admin endpoints are disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.CodePrefix = strings.ToUpper(cfg.CodePrefix)
	cfg.DefaultCurrency = strings.ToLower(cfg.DefaultCurrency)
	return &cfg, nil
}
