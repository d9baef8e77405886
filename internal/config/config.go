package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

// RateLimit bounds how many events a single connection may send.
type RateLimit struct {
	// PerSecond is the sustained event rate.
	PerSecond float64
	// Burst is the number of events allowed at once.
	Burst int
}

type Config struct {
	ServerAddr     string
	DatabaseDriver string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string
	AllowAll       bool
	RateLimit      RateLimit
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, fmt.Errorf("empty secret")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, dbDriver, databaseDSN, base64Secret string, allowedOrigins []string, rl RateLimit) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if dbDriver != DriverPostgres && dbDriver != DriverSqlite {
		return nil, fmt.Errorf("unsupported database driver %q", dbDriver)
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	if rl.PerSecond <= 0 {
		rl.PerSecond = 5
	}
	if rl.Burst <= 0 {
		rl.Burst = 10
	}

	origins, allowAll := normalizeOrigins(allowedOrigins)

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDriver: dbDriver,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: origins,
		AllowAll:       allowAll,
		RateLimit:      rl,
	}, nil
}

func normalizeOrigins(origins []string) ([]string, bool) {
	normalized := make([]string, 0, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			allowAll = true
			continue
		}

		if o, ok := NormalizeOrigin(trimmed); ok {
			normalized = append(normalized, o)
		}
	}

	return normalized, allowAll
}

// NormalizeOrigin reduces origin to a lower-case scheme://host form.
func NormalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
