// Package config provides configuration for the orchestrator.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the orchestrator configuration. Values are read by viper from
// environment variables, falling back to defaults.
type Config struct {
	// Server settings
	HTTPPort int `mapstructure:"http_port"`

	// Database
	DatabaseURL string `mapstructure:"database_url"`

	// Answer-generation service (OpenAI-compatible endpoint)
	AnswerServiceURL string        `mapstructure:"answer_service_url"`
	AnswerServiceKey string        `mapstructure:"answer_service_key"`
	AnswerModel      string        `mapstructure:"answer_model"`
	AnswerTimeout    time.Duration `mapstructure:"answer_timeout"`

	// Supervisor loop
	IterationBudget int           `mapstructure:"iteration_budget"`
	TurnDeadline    time.Duration `mapstructure:"turn_deadline"`
	FanOutDispatch  bool          `mapstructure:"fan_out_dispatch"`

	// Cache
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	CacheSweepInterval time.Duration `mapstructure:"cache_sweep_interval"`

	// Conversation context
	ContextWindow int `mapstructure:"context_window"`

	// Health monitor
	ProbeInterval time.Duration `mapstructure:"probe_interval"`

	// Structured lookups
	StructuredResultCap int `mapstructure:"structured_result_cap"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from the environment with the AQ_ prefix
// (AQ_HTTP_PORT, AQ_DATABASE_URL, ...).
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_port", 8080)
	v.SetDefault("database_url", "file:aquasense.db?cache=shared&mode=rwc")
	v.SetDefault("answer_service_url", "http://localhost:4000")
	v.SetDefault("answer_service_key", "")
	v.SetDefault("answer_model", "gpt-4o-mini")
	v.SetDefault("answer_timeout", 20*time.Second)
	v.SetDefault("iteration_budget", 5)
	v.SetDefault("turn_deadline", 30*time.Second)
	v.SetDefault("fan_out_dispatch", false)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("cache_sweep_interval", time.Minute)
	v.SetDefault("context_window", 10)
	v.SetDefault("probe_interval", 30*time.Second)
	v.SetDefault("structured_result_cap", 10)
	v.SetDefault("log_level", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
