package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	JWTSecret     string

	// DBTimeout bounds every storage call; timed-out writes are safely
	// retryable because all write paths carry idempotency keys.
	DBTimeout time.Duration

	// DeliveryMarginRate is the platform's fractional cut of delivery fees.
	DeliveryMarginRate decimal.Decimal

	// PaymentFailurePolicy is "debt" (track a client receivable) or
	// "writeoff" (flag the order, post nothing).
	PaymentFailurePolicy string

	// SettlementCron is the cron spec of the periodic settlement sweep.
	SettlementCron string

	// SettlementPeriodDays is the length of the settlement window.
	SettlementPeriodDays int

	// IngestRateLimit is a ulule/limiter formatted rate ("100-M") applied to
	// the event ingest endpoints.
	IngestRateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("DB_TIMEOUT", "5s")
	viper.SetDefault("DELIVERY_MARGIN_RATE", "0.20")
	viper.SetDefault("PAYMENT_FAILURE_POLICY", "debt")
	viper.SetDefault("SETTLEMENT_CRON", "0 3 * * 1")
	viper.SetDefault("SETTLEMENT_PERIOD_DAYS", 7)
	viper.SetDefault("INGEST_RATE_LIMIT", "300-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET not set. Using default insecure key.")
	}

	dbTimeoutStr := viper.GetString("DB_TIMEOUT")
	dbTimeout, err := time.ParseDuration(dbTimeoutStr)
	if err != nil {
		dbTimeout = 5 * time.Second
		log.Printf("Warning: Invalid value for DB_TIMEOUT ('%s'). Defaulting to %s.\n", dbTimeoutStr, dbTimeout)
	}
	cfg.DBTimeout = dbTimeout

	marginStr := viper.GetString("DELIVERY_MARGIN_RATE")
	margin, err := decimal.NewFromString(marginStr)
	if err != nil || margin.IsNegative() || margin.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("invalid DELIVERY_MARGIN_RATE %q: must be a fraction in [0, 1)", marginStr)
	}
	cfg.DeliveryMarginRate = margin

	cfg.PaymentFailurePolicy = viper.GetString("PAYMENT_FAILURE_POLICY")
	if cfg.PaymentFailurePolicy != "debt" && cfg.PaymentFailurePolicy != "writeoff" {
		return nil, fmt.Errorf("invalid PAYMENT_FAILURE_POLICY %q: must be debt or writeoff", cfg.PaymentFailurePolicy)
	}

	cfg.SettlementCron = viper.GetString("SETTLEMENT_CRON")

	cfg.SettlementPeriodDays = viper.GetInt("SETTLEMENT_PERIOD_DAYS")
	if cfg.SettlementPeriodDays < 1 {
		return nil, fmt.Errorf("invalid SETTLEMENT_PERIOD_DAYS %d: must be at least 1", cfg.SettlementPeriodDays)
	}

	cfg.IngestRateLimit = viper.GetString("INGEST_RATE_LIMIT")

	return cfg, nil
}
