package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"godwillpos/backend/internal/config"
	"godwillpos/backend/internal/persist"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cases := []config.Config{
		{AuthSecret: "short", SystemPassword: "till-7391", InventoryPassword: "stock-8402"},
		{AuthSecret: "0123456789abcdef0123456789abcdef", SystemPassword: "123456", InventoryPassword: "stock-8402"},
		{AuthSecret: "0123456789abcdef0123456789abcdef", SystemPassword: "till-7391", InventoryPassword: "aaaaaaaa"},
		{AuthSecret: "0123456789abcdef0123456789abcdef", SystemPassword: "abcdefg", InventoryPassword: "stock-8402"},
		{AuthSecret: "0123456789abcdef0123456789abcdef", SystemPassword: "till-7391", InventoryPassword: "till-7391"},
		{AuthSecret: "0123456789abcdef0123456789abcdef", SystemPassword: "", InventoryPassword: "stock-8402"},
	}
	for i, cfg := range cases {
		if err := validateSecurityConfig(cfg); err == nil {
			t.Fatalf("case %d: expected weak security config to be rejected", i)
		}
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		AuthSecret:        "0123456789abcdef0123456789abcdef",
		SystemPassword:    "till-7391",
		InventoryPassword: "stock-8402",
	})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestOpenBackendPrefersRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)

	backend, closers, err := openBackend(context.Background(), config.Config{RedisAddr: mr.Addr(), RedisPrefix: "test:"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	if _, ok := backend.(*persist.Redis); !ok {
		t.Fatalf("expected redis backend, got %T", backend)
	}
	if len(closers) != 1 {
		t.Fatalf("expected one closer, got %d", len(closers))
	}
	if err := backend.Save(context.Background(), "godwill_day_closed", []byte("true")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("test:godwill_day_closed") {
		t.Fatalf("expected prefixed key in redis")
	}
	for _, closeFn := range closers {
		_ = closeFn()
	}
}

func TestOpenBackendFallsBackToNoop(t *testing.T) {
	backend, closers, err := openBackend(context.Background(), config.Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	if _, ok := backend.(persist.Noop); !ok || len(closers) != 0 {
		t.Fatalf("expected noop backend, got %T", backend)
	}

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	backend, _, err = openBackend(context.Background(), config.Config{RedisAddr: addr}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	if _, ok := backend.(persist.Noop); !ok {
		t.Fatalf("expected noop fallback for unreachable redis, got %T", backend)
	}
}
