package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // BUSINESS_TIMEZONE must resolve on hosts without a zoneinfo database

	"github.com/spf13/viper"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
)

// DefaultJWTSecret is the development signing secret. It is refused with the postgres
// driver.
const DefaultJWTSecret = "change-me"

// Config holds the service settings read from the environment.
type Config struct {
	AppPort            string
	DatabaseDriver     string
	DatabaseDSN        string
	RabbitMQURL        string
	RedisAddr          string
	RedisTTL           time.Duration
	JWTSecret          string
	LogLevel           string
	Location           *time.Location
	SweepSchedule      string
	SweepPaymentMethod models.PaymentMethod
	SweepGrace         time.Duration
	SweepTimeout       time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:shoe-store.db?_foreign_keys=on")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_TTL", "10m")
	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BUSINESS_TIMEZONE", "UTC")
	v.SetDefault("SWEEP_SCHEDULE", "@every 5m")
	v.SetDefault("SWEEP_PAYMENT_METHOD", string(models.PaymentMethodVNPay))
	v.SetDefault("SWEEP_GRACE", "12h")
	v.SetDefault("SWEEP_TIMEOUT", "2m")
}

// Load reads the configuration from environment variables, falling back to defaults.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("BUSINESS_TIMEZONE"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid BUSINESS_TIMEZONE: %w", err)
	}

	cfg := Config{
		AppPort:            v.GetString("APP_PORT"),
		DatabaseDriver:     strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisTTL:           v.GetDuration("REDIS_TTL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		Location:           loc,
		SweepSchedule:      v.GetString("SWEEP_SCHEDULE"),
		SweepPaymentMethod: models.PaymentMethod(strings.ToUpper(v.GetString("SWEEP_PAYMENT_METHOD"))),
		SweepGrace:         v.GetDuration("SWEEP_GRACE"),
		SweepTimeout:       v.GetDuration("SWEEP_TIMEOUT"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set to a non-default value with the postgres driver")
	}
	if !c.SweepPaymentMethod.Valid() {
		return fmt.Errorf("unsupported SWEEP_PAYMENT_METHOD %q", c.SweepPaymentMethod)
	}
	if c.SweepGrace < 0 {
		return fmt.Errorf("SWEEP_GRACE must not be negative, got %s", c.SweepGrace)
	}
	if c.SweepSchedule == "" {
		return fmt.Errorf("SWEEP_SCHEDULE is required")
	}
	return nil
}
