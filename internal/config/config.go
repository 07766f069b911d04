package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port                  string
	AllowedOrigins        []string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RedisPrefix           string
	AuthSecret            string
	AccessTokenTTLMinutes int
	SystemPassword        string
	InventoryPassword     string
	ShopName              string
	Currency              string
	TaxRate               decimal.Decimal
	Timezone              string
	LogLevel              string
	LogFormat             string
	MetricsNamespace      string
}

// Load reads the environment, after merging an optional .env file. Secrets are
// never defaulted.
func Load() (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	redisDB, _ := strconv.Atoi(strings.TrimSpace(k.String("REDIS_DB")))
	tokenTTL, err := strconv.Atoi(getEnv(k, "ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	taxRate, err := decimal.NewFromString(getEnv(k, "TAX_RATE", "0.08"))
	if err != nil || taxRate.IsNegative() {
		taxRate = decimal.RequireFromString("0.08")
	}

	cfg := Config{
		Port:                  getEnv(k, "PORT", "8080"),
		AllowedOrigins:        splitAndTrim(getEnv(k, "ALLOWED_ORIGINS", "http://127.0.0.1:3000")),
		DatabaseURL:           strings.TrimSpace(k.String("DATABASE_URL")),
		RedisAddr:             strings.TrimSpace(k.String("REDIS_ADDR")),
		RedisPassword:         k.String("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		RedisPrefix:           k.String("REDIS_PREFIX"),
		AuthSecret:            strings.TrimSpace(k.String("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		SystemPassword:        strings.TrimSpace(k.String("SYSTEM_PASSWORD")),
		InventoryPassword:     strings.TrimSpace(k.String("INVENTORY_PASSWORD")),
		ShopName:              getEnv(k, "SHOP_NAME", "GODWILL SHOP"),
		Currency:              getEnv(k, "CURRENCY", "Ksh"),
		TaxRate:               taxRate,
		Timezone:              getEnv(k, "TIMEZONE", "Local"),
		LogLevel:              getEnv(k, "LOG_LEVEL", "info"),
		LogFormat:             getEnv(k, "LOG_FORMAT", "json"),
		MetricsNamespace:      getEnv(k, "METRICS_NAMESPACE", "godwill"),
	}
	return cfg, nil
}

func (c Config) Address() string {
	port := strings.TrimSpace(c.Port)
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func getEnv(k *koanf.Koanf, key string, fallback string) string {
	val := strings.TrimSpace(k.String(key))
	if val == "" {
		return fallback
	}
	return val
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
