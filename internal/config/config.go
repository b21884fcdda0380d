// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Dedup     DedupConfig     `yaml:"dedup" mapstructure:"dedup"`
	Review    ReviewConfig    `yaml:"review" mapstructure:"review"`
	Learn     LearnConfig     `yaml:"learn" mapstructure:"learn"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the extraction agent.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// FetchConfig configures source HTML fetching.
type FetchConfig struct {
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries   int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	ChunkBytes   int     `yaml:"chunk_bytes" mapstructure:"chunk_bytes"`
	RatePerHost  float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	Concurrency  int     `yaml:"concurrency" mapstructure:"concurrency"`
	MaxBodyBytes int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// GeocodeConfig configures the external geocoder.
type GeocodeConfig struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SchedulerConfig configures source batch selection.
type SchedulerConfig struct {
	BatchSize     int `yaml:"batch_size" mapstructure:"batch_size"`
	ClaimTTLMins  int `yaml:"claim_ttl_mins" mapstructure:"claim_ttl_mins"`
	DisableStreak int `yaml:"disable_streak" mapstructure:"disable_streak"`
}

// DedupConfig configures fuzzy duplicate detection.
type DedupConfig struct {
	Threshold  float64 `yaml:"threshold" mapstructure:"threshold"`
	WindowDays int     `yaml:"window_days" mapstructure:"window_days"`
}

// ReviewConfig configures the admin review gateway.
type ReviewConfig struct {
	BatchCap int `yaml:"batch_cap" mapstructure:"batch_cap"`
}

// LearnConfig configures the priority recompute loop.
type LearnConfig struct {
	WindowDays int `yaml:"window_days" mapstructure:"window_days"`
	Floor      int `yaml:"floor" mapstructure:"floor"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Port       int    `yaml:"port" mapstructure:"port"`
	AdminToken string `yaml:"admin_token" mapstructure:"admin_token"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SHOWSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "showscout.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "showscout/1.0")
	v.SetDefault("fetch.chunk_bytes", 50*1024)
	v.SetDefault("fetch.rate_per_host", 2)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.max_body_bytes", 5*1024*1024)
	v.SetDefault("geocode.enabled", true)
	v.SetDefault("geocode.rate_limit", 10)
	v.SetDefault("scheduler.batch_size", 10)
	v.SetDefault("scheduler.claim_ttl_mins", 30)
	v.SetDefault("scheduler.disable_streak", 5)
	v.SetDefault("dedup.threshold", 0.6)
	v.SetDefault("dedup.window_days", 7)
	v.SetDefault("review.batch_cap", 100)
	v.SetDefault("learn.window_days", 30)
	v.SetDefault("learn.floor", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
