// Package config содержит логику чтения конфигурации сервиса заказов столовой.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	JWTSecret   string `env:"JWT_SECRET"`

	PaymentKeyID     string `env:"PAYMENT_KEY_ID"`
	PaymentKeySecret string `env:"PAYMENT_KEY_SECRET"`
	PaymentBaseURL   string `env:"PAYMENT_BASE_URL" envDefault:"https://api.razorpay.com"`
	PaymentCurrency  string `env:"PAYMENT_CURRENCY" envDefault:"INR"`

	StrictTransitions bool `env:"STRICT_STATUS_TRANSITIONS"`

	RedisURL      string        `env:"REDIS_URL"`
	LoginAttempts int64         `env:"LOGIN_ATTEMPTS" envDefault:"5"`
	LoginWindow   time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	// APIRateLimit задаётся в формате ulule/limiter, например "100-M". Пустое значение отключает ограничение.
	APIRateLimit string `env:"API_RATE_LIMIT"`

	MaxOrderTotal decimal.Decimal `env:"MAX_ORDER_TOTAL" envDefault:"10000"`
	MaxTopUp      decimal.Decimal `env:"MAX_TOPUP" envDefault:"10000"`

	// AuditInterval задаёт период сверки балансов с журналом проводок. 0 отключает сверку.
	AuditInterval time.Duration `env:"AUDIT_INTERVAL" envDefault:"1h"`
}

// PaymentEnabled сообщает, заданы ли ключи платёжного шлюза.
func (c *Config) PaymentEnabled() bool {
	return c.PaymentKeyID != "" && c.PaymentKeySecret != ""
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envStrict, strictSet := os.LookupEnv("STRICT_STATUS_TRANSITIONS")
	envStrictValue := cfg.StrictTransitions

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.BoolVar(&cfg.StrictTransitions, "strict", false, "allow only forward order status transitions")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if strictSet && envStrict != "" {
		cfg.StrictTransitions = envStrictValue
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.LoginAttempts <= 0:
		return fmt.Errorf("LOGIN_ATTEMPTS must be positive, got %d", c.LoginAttempts)
	case c.LoginWindow <= 0:
		return fmt.Errorf("LOGIN_WINDOW must be positive, got %s", c.LoginWindow)
	case !c.MaxOrderTotal.IsPositive():
		return fmt.Errorf("MAX_ORDER_TOTAL must be positive, got %s", c.MaxOrderTotal)
	case !c.MaxTopUp.IsPositive():
		return fmt.Errorf("MAX_TOPUP must be positive, got %s", c.MaxTopUp)
	}
	return nil
}
