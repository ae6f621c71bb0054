package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	RazorpayKeyID         string `env:"RAZORPAY_KEY_ID,required" validate:"required"`
	RazorpayKeySecret     string `env:"RAZORPAY_KEY_SECRET,required" validate:"required"`
	RazorpayWebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET,required" validate:"required"`
	RazorpayAPIURL        string `env:"RAZORPAY_API_URL" envDefault:"https://api.razorpay.com" validate:"required,url"`

	Currency                   string `env:"CURRENCY" envDefault:"INR" validate:"required,len=3,uppercase"`
	ShippingFlatRatePaise      int64  `env:"SHIPPING_FLAT_RATE_PAISE" envDefault:"9900" validate:"gte=0"`
	FreeShippingThresholdPaise int64  `env:"FREE_SHIPPING_THRESHOLD_PAISE" envDefault:"99900" validate:"gte=0"`

	BaseURL        string   `env:"BASE_URL" validate:"omitempty,url"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," validate:"dive,url"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	SentryDSN              string  `env:"SENTRY_DSN"`
	SentryEnvironment      string  `env:"SENTRY_ENVIRONMENT" envDefault:"development"`
	SentryTracesSampleRate float64 `env:"SENTRY_TRACES_SAMPLE_RATE" envDefault:"0.2" validate:"gte=0,lte=1"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

// SeedConfig is the subset the catalog seeder needs.
type SeedConfig struct {
	DatabaseURL string     `env:"DATABASE_URL,required" validate:"required"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat   string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
}

var configValidator = validator.New()

// LoadDotEnv loads a .env file from the working directory when present.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func LoadSeed() (*SeedConfig, error) {
	var cfg SeedConfig

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := configValidator.Struct(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if c.RazorpayWebhookSecret == c.RazorpayKeySecret {
		return fmt.Errorf("RAZORPAY_WEBHOOK_SECRET must differ from RAZORPAY_KEY_SECRET")
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("BASE_URL must be a valid absolute URL")
		}
		if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
			return fmt.Errorf("BASE_URL must use https outside local development")
		}
	}

	return nil
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
