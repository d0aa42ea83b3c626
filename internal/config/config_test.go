package config

import (
	"log/slog"
	"testing"
)

// --- LoadConfig ---

func TestLoadConfig(t *testing.T) {
	// Helper sets the minimum required env vars for a valid config
	setRequired := func(t *testing.T) {
		t.Helper()
		t.Setenv("CLIENT_ID", "app-id")
		t.Setenv("CLIENT_SECRET", "app-secret")
		t.Setenv("TENANT_ID", "contoso.onmicrosoft.com")
		t.Setenv("SESSION_SECRET", "sshhhhhh")
	}

	t.Run("returns valid config with all required vars", func(t *testing.T) {
		setRequired(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.ClientID != "app-id" {
			t.Errorf("ClientID: expected %q, got %q", "app-id", cfg.ClientID)
		}
		if cfg.TenantID != "contoso.onmicrosoft.com" {
			t.Errorf("TenantID: expected %q, got %q", "contoso.onmicrosoft.com", cfg.TenantID)
		}
	})

	t.Run("errors when CLIENT_ID is missing", func(t *testing.T) {
		setRequired(t)
		t.Setenv("CLIENT_ID", "")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for missing CLIENT_ID, got nil")
		}
	})

	t.Run("errors when CLIENT_SECRET is missing", func(t *testing.T) {
		setRequired(t)
		t.Setenv("CLIENT_SECRET", "")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for missing CLIENT_SECRET, got nil")
		}
	})

	t.Run("errors when both TENANT_ID and ISSUER_URL are missing", func(t *testing.T) {
		setRequired(t)
		t.Setenv("TENANT_ID", "")
		t.Setenv("ISSUER_URL", "")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for missing tenant, got nil")
		}
	})

	t.Run("accepts ISSUER_URL in place of TENANT_ID", func(t *testing.T) {
		setRequired(t)
		t.Setenv("TENANT_ID", "")
		t.Setenv("ISSUER_URL", "https://idp.example.com/v2.0")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Issuer != "https://idp.example.com/v2.0" {
			t.Errorf("Issuer: expected override, got %q", cfg.Issuer)
		}
	})

	t.Run("errors when SESSION_SECRET is missing", func(t *testing.T) {
		setRequired(t)
		t.Setenv("SESSION_SECRET", "")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("expected error for missing SESSION_SECRET, got nil")
		}
	})

	t.Run("defaults PORT to 3000", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PORT", "")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Port != "3000" {
			t.Errorf("Port: expected %q, got %q", "3000", cfg.Port)
		}
	})

	t.Run("derives RedirectURL and HomeURL from PORT", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PORT", "9090")
		t.Setenv("REDIRECT_URL", "")
		t.Setenv("HOME_URL", "")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.RedirectURL != "http://localhost:9090/token" {
			t.Errorf("RedirectURL: expected derived default, got %q", cfg.RedirectURL)
		}
		if cfg.HomeURL != "http://localhost:9090" {
			t.Errorf("HomeURL: expected derived default, got %q", cfg.HomeURL)
		}
	})

	t.Run("parses LOG_LEVEL", func(t *testing.T) {
		setRequired(t)
		for val, want := range map[string]slog.Level{
			"debug": slog.LevelDebug,
			"warn":  slog.LevelWarn,
			"error": slog.LevelError,
			"":      slog.LevelInfo,
			"typo":  slog.LevelInfo,
		} {
			t.Setenv("LOG_LEVEL", val)

			cfg, err := LoadConfig()
			if err != nil {
				t.Fatalf("LoadConfig failed for %q: %v", val, err)
			}
			if cfg.LogLevel != want {
				t.Errorf("LogLevel for %q: expected %v, got %v", val, want, cfg.LogLevel)
			}
		}
	})
}
