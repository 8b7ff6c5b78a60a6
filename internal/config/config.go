package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains runtime configuration required by the service.
type Config struct {
	DBURL      string `env:"DB_URL"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// APIKeysRaw format: "caller1:key1,caller2:key2"
	APIKeysRaw string `env:"API_KEYS"`

	// ExcludedUserIDs are removed from every analytics read path.
	ExcludedUserIDs []int64 `env:"EXCLUDED_USER_IDS" envSeparator:","`

	// UTCOffsetHours is the canonical civil-time offset used for all
	// day-boundary bucketing in analytics.
	UTCOffsetHours int `env:"UTC_OFFSET_HOURS" envDefault:"0"`

	// RefreshCron drives the dashboard snapshot refresher (5-field cron).
	RefreshCron string `env:"REFRESH_CRON" envDefault:"*/10 * * * *"`

	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogConsole bool   `env:"LOG_CONSOLE" envDefault:"false"`

	APIKeys map[string]string // apiKey -> caller name, parsed from APIKeysRaw
}

// Warnings collects non-fatal degradations found while loading config, so
// the caller can log them once the logger exists.
type Warnings []string

// Load reads configuration from environment variables.
//
// A missing exclusion list or a bad offset is not an error: analytics
// degrades to an empty exclusion set and UTC, reported via the returned
// warnings. A missing DB_URL is fatal, the service cannot run without
// storage.
func Load() (Config, Warnings, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, nil, fmt.Errorf("parse env: %w", err)
	}

	var warns Warnings

	if strings.TrimSpace(cfg.DBURL) == "" {
		return Config{}, nil, errors.New("DB_URL required")
	}

	keys, err := parseAPIKeys(cfg.APIKeysRaw)
	if err != nil {
		return Config{}, nil, err
	}
	// Local dev fallback so the service runs out-of-the-box.
	if len(keys) == 0 {
		keys["flow-key-123"] = "flow"
		warns = append(warns, "API_KEYS not set, using the local dev key")
	}
	cfg.APIKeys = keys

	if len(cfg.ExcludedUserIDs) == 0 {
		warns = append(warns, "EXCLUDED_USER_IDS not set, analytics will count every user")
	}

	if cfg.UTCOffsetHours < -12 || cfg.UTCOffsetHours > 14 {
		warns = append(warns, fmt.Sprintf("UTC_OFFSET_HOURS=%d out of range, falling back to UTC", cfg.UTCOffsetHours))
		cfg.UTCOffsetHours = 0
	}

	return cfg, warns, nil
}

// parseAPIKeys parses "caller:key,caller:key" into key -> caller.
func parseAPIKeys(raw string) (map[string]string, error) {
	keys := map[string]string{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return keys, nil
	}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(`API_KEYS must be "caller:key,caller:key"`)
		}
		caller := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if caller == "" || key == "" {
			return nil, errors.New(`API_KEYS must be "caller:key,caller:key"`)
		}
		keys[key] = caller
	}
	return keys, nil
}

// Location returns the canonical civil-time location built from the offset.
func (c Config) Location() *time.Location {
	if c.UTCOffsetHours == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.UTCOffsetHours), c.UTCOffsetHours*3600)
}

// ExclusionSet returns the excluded user ids as a set.
func (c Config) ExclusionSet() map[int64]struct{} {
	set := make(map[int64]struct{}, len(c.ExcludedUserIDs))
	for _, id := range c.ExcludedUserIDs {
		set[id] = struct{}{}
	}
	return set
}
