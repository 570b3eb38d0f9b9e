package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/road-crawl-cli/internal/config"
)

func TestInitStore_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: dsn},
	}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close() //nolint:errcheck

	n, err := st.CountAPICallsSince(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInitStore_SQLiteDefaultDSN(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(origDir) //nolint:errcheck

	cfg = &config.Config{Store: config.StoreConfig{Driver: "sqlite"}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, statErr := os.Stat(filepath.Join(tmpDir, "road-crawl.db"))
	assert.NoError(t, statErr)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "mysql"}}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitEnv_WithCrawl(t *testing.T) {
	cfg = &config.Config{
		Store:     config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "env.db")},
		Google:    config.GoogleConfig{Key: "k", BaseURL: "http://127.0.0.1:0", TimeoutSecs: 1},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 10, DailyLimit: 100},
		Scoring:   config.ScoringConfig{Formula: "tiered", RadiusMeters: 50},
	}

	e, err := initEnv(context.Background(), true)
	require.NoError(t, err)
	defer e.Close()

	assert.NotNil(t, e.Service)
	assert.Nil(t, e.Redis)
	assert.Nil(t, e.Calibration)
}

func TestInitEnv_MissingCalibration(t *testing.T) {
	cfg = &config.Config{
		Store:   config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "env.db")},
		Scoring: config.ScoringConfig{Formula: "percentile", RadiusMeters: 50, CalibrationFile: "/nonexistent/cal.yaml"},
	}

	_, err := initEnv(context.Background(), false)
	assert.Error(t, err)
}
