// config.go

// Environment variable loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config holds all env configuration vars for the mail sender.
type Config struct {
	// App registration with the identity provider.
	ClientID     string
	ClientSecret string
	TenantID     string

	// Issuer overrides the discovery endpoint derived from TenantID.
	// Used for sovereign clouds and tests.
	Issuer string

	// RedirectURL is the registered /token callback. Defaults to
	// http://localhost:<port>/token for local development.
	RedirectURL string

	// SessionSecret signs the session cookie. Required; rotating it
	// invalidates every session.
	SessionSecret string

	// GraphURL overrides the Microsoft Graph endpoint. Empty means production.
	GraphURL string

	Port     string
	HomeURL  string
	LogLevel slog.Level
}

// LoadConfig reads environment variables and returns a validated Config.
// Returns an error if a required variable is missing.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.ClientID = os.Getenv("CLIENT_ID")
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("CLIENT_ID is required")
	}

	cfg.ClientSecret = os.Getenv("CLIENT_SECRET")
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("CLIENT_SECRET is required")
	}

	cfg.TenantID = os.Getenv("TENANT_ID")
	cfg.Issuer = os.Getenv("ISSUER_URL")
	if cfg.TenantID == "" && cfg.Issuer == "" {
		return nil, fmt.Errorf("TENANT_ID (or ISSUER_URL) is required")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "3000"
	}

	cfg.RedirectURL = os.Getenv("REDIRECT_URL")
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "http://localhost:" + cfg.Port + "/token"
	}

	cfg.HomeURL = os.Getenv("HOME_URL")
	if cfg.HomeURL == "" {
		cfg.HomeURL = "http://localhost:" + cfg.Port
	}

	cfg.GraphURL = os.Getenv("GRAPH_URL")

	// Parse log level, default to info
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	return cfg, nil
}
