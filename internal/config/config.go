// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/loot_kingdom/internal/domain"
	"github.com/fjod/loot_kingdom/internal/repository"
)

type Config struct {
	HTTPPort string
	GRPCPort string

	DBDriver       string // postgres or sqlite
	DB             repository.Credentials
	SQLitePath     string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	CartCacheTTL  time.Duration

	KafkaBrokers     []string
	KafkaTopic       string
	OutboxPollEvery  time.Duration
	HealthProbeEvery time.Duration
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
	PaymentAPIURL    string
	PaymentToken     string
	PaymentTimeout   time.Duration
	PublicBaseURL    string
	LootCoinRate     int64
	LogLevel         string
	LogFormat        string
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) (int64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads the configuration. Unset variables take their defaults; set
// but malformed numbers and durations are errors.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		GRPCPort:       getEnv("GRPC_PORT", "50051"),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", string(repository.DialectPostgres))),
		SQLitePath:     getEnv("SQLITE_PATH", "lootkingdom.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "lootkingdom-events"),
		PaymentAPIURL:  strings.TrimRight(getEnv("PAYMENT_API_URL", "https://api.mercadopago.com"), "/"),
		PaymentToken:   getEnv("PAYMENT_ACCESS_TOKEN", ""),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		DB: repository.Credentials{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "lootkingdom"),
		},
	}

	port, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	cfg.DB.Port = int(port)

	if cfg.LootCoinRate, err = getEnvInt("LOOT_COIN_RATE", domain.LootCoinRate); err != nil {
		return nil, err
	}
	if cfg.LootCoinRate <= 0 {
		return nil, fmt.Errorf("invalid LOOT_COIN_RATE: must be positive")
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"CART_CACHE_TTL", 15 * time.Minute, &cfg.CartCacheTTL},
		{"OUTBOX_POLL_INTERVAL", 2 * time.Second, &cfg.OutboxPollEvery},
		{"HEALTH_PROBE_INTERVAL", 5 * time.Second, &cfg.HealthProbeEvery},
		{"REQUEST_TIMEOUT", 10 * time.Second, &cfg.RequestTimeout},
		{"SHUTDOWN_TIMEOUT", 10 * time.Second, &cfg.ShutdownTimeout},
		{"PAYMENT_TIMEOUT", 5 * time.Second, &cfg.PaymentTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	switch repository.Dialect(cfg.DBDriver) {
	case repository.DialectPostgres, repository.DialectSQLite:
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want postgres or sqlite", cfg.DBDriver)
	}

	return cfg, nil
}
