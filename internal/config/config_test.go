package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("DB_URL", "postgres://localhost/app")
	t.Setenv("API_KEYS", "")
	t.Setenv("EXCLUDED_USER_IDS", "")
	t.Setenv("UTC_OFFSET_HOURS", "")
	t.Setenv("REFRESH_CRON", "")
}

func TestLoadRequiresDBURL(t *testing.T) {
	setBase(t)
	t.Setenv("DB_URL", "")

	_, _, err := Load()
	require.Error(t, err)
}

func TestLoadParsesAPIKeys(t *testing.T) {
	setBase(t)
	t.Setenv("API_KEYS", "flow:abc, dashboard:def")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "flow", cfg.APIKeys["abc"])
	assert.Equal(t, "dashboard", cfg.APIKeys["def"])
}

func TestLoadRejectsMalformedAPIKeys(t *testing.T) {
	setBase(t)
	t.Setenv("API_KEYS", "just-a-key")

	_, _, err := Load()
	require.Error(t, err)
}

func TestLoadDegradesWithWarnings(t *testing.T) {
	setBase(t)

	cfg, warns, err := Load()
	require.NoError(t, err)

	// Safe defaults: dev key, empty exclusion set, UTC.
	assert.NotEmpty(t, cfg.APIKeys)
	assert.Empty(t, cfg.ExclusionSet())
	assert.Equal(t, "UTC", cfg.Location().String())
	assert.GreaterOrEqual(t, len(warns), 2)
}

func TestLoadFallsBackOnAbsurdOffset(t *testing.T) {
	setBase(t)
	t.Setenv("UTC_OFFSET_HOURS", "99")

	cfg, warns, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.UTCOffsetHours)
	assert.NotEmpty(t, warns)
}

func TestLocationAndExclusionSet(t *testing.T) {
	setBase(t)
	t.Setenv("UTC_OFFSET_HOURS", "3")
	t.Setenv("EXCLUDED_USER_IDS", "10,20")

	cfg, _, err := Load()
	require.NoError(t, err)

	_, offset := time.Now().In(cfg.Location()).Zone()
	assert.Equal(t, 3*3600, offset)

	set := cfg.ExclusionSet()
	assert.Contains(t, set, int64(10))
	assert.Contains(t, set, int64(20))
	assert.Len(t, set, 2)
}
