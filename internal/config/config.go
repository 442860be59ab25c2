package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("configuração inválida")

// Prices são os price ids da Stripe para cada par plano/período.
type Prices struct {
	ProfessionalMonthly string `env:"PROFESSIONAL_MONTHLY"`
	ProfessionalYearly  string `env:"PROFESSIONAL_YEARLY"`
	BusinessMonthly     string `env:"BUSINESS_MONTHLY"`
	BusinessYearly      string `env:"BUSINESS_YEARLY"`
}

type Config struct {
	ServerAddr   string `env:"SERVER_ADDR" envDefault:":8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./sqlite-database.db"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY,required,notEmpty"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required,notEmpty"`
	Prices              Prices `envPrefix:"STRIPE_PRICE_"`

	StripeTimeout          time.Duration `env:"STRIPE_TIMEOUT" envDefault:"30s"`
	StripeWebhookTolerance time.Duration `env:"STRIPE_WEBHOOK_TOLERANCE" envDefault:"5m"`

	// Sem URL o notificador de workflows fica desligado.
	WorkflowURL     string        `env:"WORKFLOW_WEBHOOK_URL"`
	WorkflowSecret  string        `env:"WORKFLOW_WEBHOOK_SECRET"`
	WorkflowTimeout time.Duration `env:"WORKFLOW_TIMEOUT" envDefault:"10s"`

	// Sem REDIS_URL as chaves de notificação ficam no SQLite.
	RedisURL           string        `env:"REDIS_URL"`
	NotificationKeyTTL time.Duration `env:"NOTIFICATION_KEY_TTL" envDefault:"720h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load lê o .env (se existir) e depois as variáveis de ambiente.
func Load() (*Config, error) {
	// O .env é opcional.
	_ = godotenv.Load()
	return parse()
}

func parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}
	if cfg.WorkflowTimeout <= 0 {
		return nil, fmt.Errorf("%w: WORKFLOW_TIMEOUT deve ser positivo", ErrInvalidConfig)
	}
	if cfg.StripeTimeout <= 0 || cfg.StripeWebhookTolerance <= 0 {
		return nil, fmt.Errorf("%w: STRIPE_TIMEOUT e STRIPE_WEBHOOK_TOLERANCE devem ser positivos", ErrInvalidConfig)
	}
	return &cfg, nil
}

// SlogLevel converte LOG_LEVEL (debug, info, warn, error) para slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalidConfig, c.LogLevel)
	}
	return level, nil
}

func (c *Config) WorkflowEnabled() bool {
	return c.WorkflowURL != ""
}
