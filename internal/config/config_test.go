package config

import (
	"testing"
	"time"

	"giveaway-referrals/internal/admission"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("REFERRAL_MODE", "")
	t.Setenv("DATABASE_DRIVER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Referral.Mode != admission.ModeDedup {
		t.Errorf("expected dedup mode by default, got %q", cfg.Referral.Mode)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected postgres driver by default, got %q", cfg.Database.Driver)
	}
	if cfg.Referral.RetryBackoff != 50*time.Millisecond {
		t.Errorf("unexpected retry backoff %v", cfg.Referral.RetryBackoff)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("REFERRAL_MODE", "accumulate")
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("STORE_RETRY_BACKOFF", "10ms")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, ,10.0.0.2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Referral.Mode != admission.ModeAccumulate {
		t.Errorf("expected accumulate, got %q", cfg.Referral.Mode)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.Referral.RetryBackoff != 10*time.Millisecond {
		t.Errorf("expected 10ms backoff, got %v", cfg.Referral.RetryBackoff)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("expected redis db 3, got %d", cfg.Redis.DB)
	}
	if len(cfg.Server.TrustedProxies) != 2 {
		t.Errorf("expected 2 trusted proxies, got %v", cfg.Server.TrustedProxies)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("REFERRAL_MODE", "whenever")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown referral mode")
	}

	t.Setenv("REFERRAL_MODE", "dedup")
	t.Setenv("DATABASE_DRIVER", "mysql")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
