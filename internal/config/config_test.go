package config

import "testing"

func TestLoadStatsTTLFallsBackOnGarbage(t *testing.T) {
	t.Setenv("STATS_TTL_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.StatsTTLSeconds != 20 {
		t.Fatalf("expected default stats TTL 20, got %d", cfg.StatsTTLSeconds)
	}
}

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PIN", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.ManagerPIN != "" {
		t.Fatalf("expected empty MANAGER_PIN when unset, got %q", cfg.ManagerPIN)
	}
}
