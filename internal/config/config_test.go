package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv = %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.InviteTTL != 7*24*time.Hour {
		t.Errorf("InviteTTL = %v", cfg.InviteTTL)
	}
	if cfg.SignInLimit != 5 {
		t.Errorf("SignInLimit = %d", cfg.SignInLimit)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CC_ADDR", ":9000")
	t.Setenv("CC_SIGNIN_LIMIT", "10")
	t.Setenv("CC_INVITE_TTL", "48h")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv = %v", err)
	}
	if cfg.Addr != ":9000" || cfg.SignInLimit != 10 || cfg.InviteTTL != 48*time.Hour {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("CC_SIGNIN_LIMIT", "many")
	if _, err := FromEnv(); err == nil {
		t.Fatal("FromEnv with bad int = nil, want error")
	}
}
