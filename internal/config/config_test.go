package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://places.googleapis.com/v1", cfg.Google.BaseURL)
	assert.InDelta(t, 10.0, cfg.RateLimit.RequestsPerSecond, 0.001)
	assert.Equal(t, 25000, cfg.RateLimit.DailyLimit)
	assert.Equal(t, "percentile", cfg.Scoring.Formula)
	assert.InDelta(t, 50.0, cfg.Scoring.RadiusMeters, 0.001)
	assert.Equal(t, 10, cfg.Scoring.MinSample)
	assert.Equal(t, 50, cfg.Crawl.MaxPoints)
	assert.InDelta(t, 200.0, cfg.Crawl.DiscoveryStep, 0.001)
	assert.Equal(t, 30, cfg.Crawl.DiscoveryMaxPoints)
	assert.Equal(t, 20, cfg.Crawl.VerificationTopN)
	assert.Equal(t, 2000, cfg.Crawl.PageDelayMillis)
	assert.Equal(t, 3, cfg.Crawl.MaxPages)
	assert.Equal(t, 20, cfg.Crawl.PageSize)
	assert.Equal(t, 4, cfg.Stats.Concurrency)
	assert.Contains(t, cfg.Crawl.BusinessTypes, "restaurant")
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Empty(t, cfg.Monitoring.WebhookURL)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: roads.db
log:
  level: debug
  format: console
server:
  port: 9090
scoring:
  formula: tiered
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "roads.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "tiered", cfg.Scoring.Formula)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Crawl.MaxPages)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ROADCRAWL_STORE_DRIVER", "postgres")
	t.Setenv("ROADCRAWL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROADCRAWL_GOOGLE_KEY=from-dotenv\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("ROADCRAWL_GOOGLE_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Google.Key)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ROADCRAWL_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/roads"
	cfg.Scoring.Formula = "percentile"
	cfg.Scoring.RadiusMeters = 50
	cfg.RateLimit.RequestsPerSecond = 10
	cfg.Crawl.MaxPages = 3
	cfg.Crawl.PageSize = 20
	cfg.Crawl.MaxPoints = 50
	cfg.Stats.Concurrency = 4
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Base(t *testing.T) {
	assert.NoError(t, validDefaults().Validate(""))

	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""
	cfg.Scoring.Formula = "magic"

	err := cfg.Validate("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite")
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "scoring.formula")
}

func TestValidateCrawl_RequiresKey(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("crawl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google.key is required")

	cfg.Google.Key = "k"
	assert.NoError(t, cfg.Validate("crawl"))

	cfg.Crawl.MaxPages = 4
	cfg.Crawl.PageSize = 50
	err = cfg.Validate("crawl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl.max_pages")
	assert.Contains(t, err.Error(), "crawl.page_size")
}

func TestValidateStats_Concurrency(t *testing.T) {
	cfg := validDefaults()
	cfg.Stats.Concurrency = 0
	assert.Error(t, cfg.Validate("stats"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}
