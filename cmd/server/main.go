package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"godwillpos/backend/internal/config"
	"godwillpos/backend/internal/httpapi"
	"godwillpos/backend/internal/obs"
	"godwillpos/backend/internal/persist"
	"godwillpos/backend/internal/service"
	"godwillpos/backend/internal/store/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)
	log.Logger = logger

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid security configuration")
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Warn().Err(err).Str("timezone", cfg.Timezone).Msg("unknown timezone, using UTC")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend, closers, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("persistence backend unavailable")
	}

	defaults, err := service.DefaultSettings(cfg.ShopName, cfg.SystemPassword, cfg.InventoryPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("hash shop secrets")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := service.New(memory.NewSeeded(defaults), backend, service.Config{
		Logger:   logger,
		Metrics:  obs.NewMetrics(cfg.MetricsNamespace, registry),
		Location: loc,
		TaxRate:  decimal.NewNullDecimal(cfg.TaxRate),
		Currency: cfg.Currency,
		Defaults: defaults,
	})
	if _, err := svc.Hydrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("hydrate state")
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), svc)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
		Gatherer:       registry,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Address()).Str("shop", cfg.ShopName).Msg("POS backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error().Err(err).Msg("close error")
		}
	}

	logger.Info().Msg("server stopped")
}

// openBackend picks the document store: postgres when DATABASE_URL is set,
// then redis, then none. A configured postgres that cannot be reached is
// fatal; an unreachable redis falls back to running without persistence.
func openBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger) (persist.Backend, []func() error, error) {
	if cfg.DatabaseURL != "" {
		pg, err := persist.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		logger.Info().Msg("persistence: postgres")
		return pg, []func() error{pg.Close}, nil
	}

	if cfg.RedisAddr != "" {
		rdb := persist.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB).WithPrefix(cfg.RedisPrefix)
		if err := rdb.Ping(ctx); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, running without persistence")
			_ = rdb.Close()
			return persist.Noop{}, nil, nil
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("persistence: redis")
		return rdb, []func() error{rdb.Close}, nil
	}

	logger.Warn().Msg("persistence: none, state is lost on restart")
	return persist.Noop{}, nil, nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if err := validatePasswordStrength(cfg.SystemPassword); err != nil {
		return fmt.Errorf("SYSTEM_PASSWORD is too weak: %w", err)
	}
	if err := validatePasswordStrength(cfg.InventoryPassword); err != nil {
		return fmt.Errorf("INVENTORY_PASSWORD is too weak: %w", err)
	}
	if cfg.SystemPassword == cfg.InventoryPassword {
		return fmt.Errorf("SYSTEM_PASSWORD and INVENTORY_PASSWORD must differ")
	}
	return nil
}

// validatePasswordStrength rejects short passwords, a single repeated
// character, straight runs such as "abcdef" or "987654", and a known-weak list.
func validatePasswordStrength(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("must be set and at least 6 characters")
	}
	known := map[string]bool{
		"123456": true, "654321": true, "password": true, "admin123": true,
		"godwill": true, "godwill123": true, "qwerty": true, "letmein": true,
		"112233": true, "123123": true, "121212": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character password not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(password); i++ {
		diff := int(password[i]) - int(password[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential password not allowed")
	}
	return nil
}
