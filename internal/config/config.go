package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit" mapstructure:"ratelimit"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Stats      StatsConfig      `yaml:"stats" mapstructure:"stats"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend. For the sqlite driver
// DatabaseURL is a file path (or ":memory:").
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// GoogleConfig configures the Places API (New) client.
type GoogleConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Language    string `yaml:"language" mapstructure:"language"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RateLimitConfig bounds paid API usage.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	DailyLimit        int     `yaml:"daily_limit" mapstructure:"daily_limit"`
}

// RedisConfig enables the shared score cache and daily cap. Empty URL
// disables Redis and falls back to in-process state.
type RedisConfig struct {
	URL             string `yaml:"url" mapstructure:"url"`
	ScoreTTLSeconds int    `yaml:"score_ttl_secs" mapstructure:"score_ttl_secs"`
}

// ScoringConfig selects the road business potential formula.
type ScoringConfig struct {
	Formula          string  `yaml:"formula" mapstructure:"formula"`
	CalibrationFile  string  `yaml:"calibration_file" mapstructure:"calibration_file"`
	RadiusMeters     float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
	MinSample        int     `yaml:"min_sample" mapstructure:"min_sample"`
	MinPositiveScore float64 `yaml:"min_positive_score" mapstructure:"min_positive_score"`
}

// CrawlConfig tunes plan generation and execution against the Places API.
type CrawlConfig struct {
	MaxPoints          int      `yaml:"max_points" mapstructure:"max_points"`
	DiscoveryStep      float64  `yaml:"discovery_step" mapstructure:"discovery_step"`
	DiscoveryExclusion float64  `yaml:"discovery_exclusion" mapstructure:"discovery_exclusion"`
	DiscoveryRadius    float64  `yaml:"discovery_radius" mapstructure:"discovery_radius"`
	DiscoveryMaxPoints int      `yaml:"discovery_max_points" mapstructure:"discovery_max_points"`
	TargetedRadius     float64  `yaml:"targeted_radius" mapstructure:"targeted_radius"`
	VerificationRadius float64  `yaml:"verification_radius" mapstructure:"verification_radius"`
	VerificationTopN   int      `yaml:"verification_top_n" mapstructure:"verification_top_n"`
	PageDelayMillis    int      `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	MaxPages           int      `yaml:"max_pages" mapstructure:"max_pages"`
	PageSize           int      `yaml:"page_size" mapstructure:"page_size"`
	MatchRadius        float64  `yaml:"match_radius" mapstructure:"match_radius"`
	MaxAttempts        int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	BreakerThreshold   int      `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs   int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	BusinessTypes      []string `yaml:"business_types" mapstructure:"business_types"`
}

// StatsConfig configures the RoadBusinessStats rebuild.
type StatsConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// PricingConfig overrides Places prices, in USD per 1,000 requests keyed by
// field mask tier.
type PricingConfig struct {
	Places map[string]float64 `yaml:"places" mapstructure:"places"`
}

// MonitoringConfig configures the background alert checker run by serve.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	BudgetUsageThreshold float64 `yaml:"budget_usage_threshold" mapstructure:"budget_usage_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml, and the environment,
// in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ROADCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.language", "en")
	v.SetDefault("google.timeout_secs", 15)
	v.SetDefault("ratelimit.requests_per_second", 10.0)
	v.SetDefault("ratelimit.burst", 1)
	v.SetDefault("ratelimit.daily_limit", 25000)
	v.SetDefault("redis.score_ttl_secs", 3600)
	v.SetDefault("scoring.formula", "percentile")
	v.SetDefault("scoring.radius_meters", 50.0)
	v.SetDefault("scoring.min_sample", 10)
	v.SetDefault("scoring.min_positive_score", 0.5)
	v.SetDefault("crawl.max_points", 50)
	v.SetDefault("crawl.discovery_step", 200.0)
	v.SetDefault("crawl.discovery_exclusion", 100.0)
	v.SetDefault("crawl.discovery_radius", 200.0)
	v.SetDefault("crawl.discovery_max_points", 30)
	v.SetDefault("crawl.targeted_radius", 50.0)
	v.SetDefault("crawl.verification_radius", 30.0)
	v.SetDefault("crawl.verification_top_n", 20)
	v.SetDefault("crawl.page_delay_ms", 2000)
	v.SetDefault("crawl.max_pages", 3)
	v.SetDefault("crawl.page_size", 20)
	v.SetDefault("crawl.match_radius", 50.0)
	v.SetDefault("crawl.max_attempts", 3)
	v.SetDefault("crawl.breaker_threshold", 5)
	v.SetDefault("crawl.breaker_reset_secs", 30)
	v.SetDefault("crawl.business_types", []string{"restaurant", "store", "gas_station", "bank", "pharmacy"})
	v.SetDefault("stats.concurrency", 4)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.budget_usage_threshold", 0.9)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings a command needs. Mode is one of "serve",
// "crawl", "stats", or "" for the checks every command shares. All problems
// are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be postgres or sqlite (got %q)", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch c.Scoring.Formula {
	case "tiered", "percentile", "highway":
	default:
		errs = append(errs, fmt.Sprintf("scoring.formula must be tiered, percentile, or highway (got %q)", c.Scoring.Formula))
	}
	if c.Scoring.RadiusMeters <= 0 {
		errs = append(errs, "scoring.radius_meters must be > 0")
	}

	switch mode {
	case "crawl":
		if c.Google.Key == "" {
			errs = append(errs, "google.key is required")
		}
		if c.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, "ratelimit.requests_per_second must be > 0")
		}
		if c.RateLimit.DailyLimit < 0 {
			errs = append(errs, "ratelimit.daily_limit must be >= 0")
		}
		if c.Crawl.MaxPages < 1 || c.Crawl.MaxPages > 3 {
			errs = append(errs, "crawl.max_pages must be between 1 and 3")
		}
		if c.Crawl.PageSize < 1 || c.Crawl.PageSize > 20 {
			errs = append(errs, "crawl.page_size must be between 1 and 20")
		}
		if c.Crawl.MaxPoints < 1 {
			errs = append(errs, "crawl.max_points must be >= 1")
		}
	case "stats":
		if c.Stats.Concurrency < 1 {
			errs = append(errs, "stats.concurrency must be >= 1")
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port must be 1-65535 (got %d)", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
