package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the access service.
type Config struct {
	HTTPPort     int
	SQLiteDSN    string
	TokenSecret  string
	SessionTTL   time.Duration
	CORSOrigins  []string
	AccessLogCap int
}

// Load parses configuration values from the current process environment. A
// .env file in the working directory is merged in first when present; real
// environment variables win over file entries.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting every missing or malformed entry at once.
func Load() (Config, error) {
	// Ignore a missing .env; it is a development convenience only.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:     8080,
		SQLiteDSN:    "file:access.db?_foreign_keys=on",
		SessionTTL:   24 * time.Hour,
		AccessLogCap: 0,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ACCESS_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ACCESS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ACCESS_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("ACCESS_TOKEN_SECRET")); secret == "" {
		missing = append(missing, "ACCESS_TOKEN_SECRET")
	} else {
		cfg.TokenSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ACCESS_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ACCESS_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if origins := strings.TrimSpace(os.Getenv("ACCESS_CORS_ORIGINS")); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, trimmed)
			}
		}
	}

	if capValue := strings.TrimSpace(os.Getenv("ACCESS_LOG_CAP")); capValue != "" {
		logCap, err := strconv.Atoi(capValue)
		if err != nil || logCap < 0 {
			invalid = append(invalid, "ACCESS_LOG_CAP")
		} else {
			cfg.AccessLogCap = logCap
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
