package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string

	// Owner-facing API auth (static bearer tokens and/or HMAC JWT).
	StaticTokens []string
	JWTSecret    string

	// 32-byte key for sealing OAuth tokens at rest, hex encoded.
	VaultKey []byte

	// Calendar provider OAuth clients.
	GoogleClientID      string
	GoogleClientSecret  string
	OutlookClientID     string
	OutlookClientSecret string
	OutlookTenant       string

	// Meeting resource provider (Zoom-style server-to-server app).
	MeetingAPIBase      string
	MeetingAccountID    string
	MeetingClientID     string
	MeetingClientSecret string

	// Transactional mail relay.
	MailRelayURL string
	MailAPIKey   string
	MailFrom     string

	// Bound on every outbound provider call.
	HTTPTimeout time.Duration

	// Access tokens expiring within this window are refreshed proactively.
	TokenFreshnessBuffer time.Duration
}

// Load reads configuration from environment variables. DATABASE_URL and
// VAULT_KEY are required; everything else has a default or degrades to
// "feature off".
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL required")
	}

	keyHex := os.Getenv("VAULT_KEY")
	if keyHex == "" {
		return nil, errors.New("VAULT_KEY required")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("VAULT_KEY must be hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("VAULT_KEY must decode to 32 bytes, got %d", len(key))
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: dbURL,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_HMAC_SECRET")),
		VaultKey:    key,

		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  os.Getenv("GOOGLE_CLIENT_SECRET"),
		OutlookClientID:     os.Getenv("OUTLOOK_CLIENT_ID"),
		OutlookClientSecret: os.Getenv("OUTLOOK_CLIENT_SECRET"),
		OutlookTenant:       getEnv("OUTLOOK_TENANT", "common"),

		MeetingAPIBase:      getEnv("MEETING_API_BASE", "https://api.zoom.us/v2"),
		MeetingAccountID:    os.Getenv("MEETING_ACCOUNT_ID"),
		MeetingClientID:     os.Getenv("MEETING_CLIENT_ID"),
		MeetingClientSecret: os.Getenv("MEETING_CLIENT_SECRET"),

		MailRelayURL: os.Getenv("MAIL_RELAY_URL"),
		MailAPIKey:   os.Getenv("MAIL_API_KEY"),
		MailFrom:     getEnv("MAIL_FROM", "no-reply@localhost"),

		HTTPTimeout:          getDuration("HTTP_TIMEOUT_SECONDS", 15*time.Second),
		TokenFreshnessBuffer: getDuration("TOKEN_FRESHNESS_BUFFER_SECONDS", 5*time.Minute),
	}

	if tokens := strings.TrimSpace(os.Getenv("STATIC_TOKENS")); tokens != "" {
		for _, t := range strings.Split(tokens, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.StaticTokens = append(cfg.StaticTokens, t)
			}
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
