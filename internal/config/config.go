// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Portal     PortalConfig     `mapstructure:"portal"`
	Filter     FilterConfig     `mapstructure:"filter"`
	Detail     DetailConfig     `mapstructure:"detail"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Politeness PolitenessConfig `mapstructure:"politeness"`
	Job        JobConfig        `mapstructure:"job"`
	Sink       SinkConfig       `mapstructure:"sink"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Blob       BlobConfig       `mapstructure:"blob"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls the status HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// PortalConfig governs navigation against the procurement portal.
type PortalConfig struct {
	EntryURL          string `mapstructure:"entry_url"`
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSec     int    `mapstructure:"nav_timeout_seconds"`
	WaitTimeoutSec    int    `mapstructure:"wait_timeout_seconds"`
	GridTimeoutSec    int    `mapstructure:"grid_timeout_seconds"`
	NavRetries        int    `mapstructure:"nav_retries"`
	ResultPageSize    int    `mapstructure:"result_page_size"`
	ExcludeExpired    bool   `mapstructure:"exclude_expired"`
	MaxRowsPerKeyword int    `mapstructure:"max_rows_per_keyword"`
}

// FilterConfig holds the acceptance policy knobs.
type FilterConfig struct {
	CategoryTokens  []string `mapstructure:"category_tokens"`
	MaxPostAgeDays  int      `mapstructure:"max_post_age_days"`
	MinLeadTimeDays int      `mapstructure:"min_lead_time_days"`
}

// DetailConfig governs the detail extraction fallback chain.
type DetailConfig struct {
	Strategy  string `mapstructure:"strategy"`
	MinFields int    `mapstructure:"min_fields"`
}

// OracleConfig configures the AI text/vision completion service.
type OracleConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PolitenessConfig bounds the deliberate inter-request delays.
type PolitenessConfig struct {
	MinDelayMs int     `mapstructure:"min_delay_ms"`
	MaxDelayMs int     `mapstructure:"max_delay_ms"`
	NavQPS     float64 `mapstructure:"nav_qps"`
}

// JobConfig controls job-level behavior.
type JobConfig struct {
	CheckpointMinutes int `mapstructure:"checkpoint_minutes"`
}

// SinkConfig selects and configures the results sink.
type SinkConfig struct {
	Provider string `mapstructure:"provider"`
	Dir      string `mapstructure:"dir"`
	DSN      string `mapstructure:"dsn"`
}

// PubSubConfig holds metadata for publish-subscribe status forwarding.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// BlobConfig selects where vision-tier screenshots are archived.
type BlobConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Dir       string `mapstructure:"dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BIDCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	// An explicit empty default keeps the key visible to AutomaticEnv so the
	// URL can come from BIDCRAWLER_PORTAL_ENTRY_URL alone.
	v.SetDefault("portal.entry_url", "")
	v.SetDefault("portal.user_agent", "bid-crawler/0.1")
	v.SetDefault("portal.nav_timeout_seconds", 30)
	v.SetDefault("portal.wait_timeout_seconds", 10)
	v.SetDefault("portal.grid_timeout_seconds", 8)
	v.SetDefault("portal.nav_retries", 3)
	v.SetDefault("portal.result_page_size", 100)
	v.SetDefault("portal.exclude_expired", true)
	v.SetDefault("portal.max_rows_per_keyword", 0)
	v.SetDefault("filter.category_tokens", []string{"물품", "용역"})
	v.SetDefault("filter.max_post_age_days", 3)
	v.SetDefault("filter.min_lead_time_days", 9)
	v.SetDefault("detail.strategy", "ai_text")
	v.SetDefault("detail.min_fields", 5)
	v.SetDefault("oracle.model", "gpt-4o-mini")
	v.SetDefault("oracle.timeout_seconds", 60)
	v.SetDefault("politeness.min_delay_ms", 1000)
	v.SetDefault("politeness.max_delay_ms", 3000)
	v.SetDefault("politeness.nav_qps", 1.0)
	v.SetDefault("job.checkpoint_minutes", 5)
	v.SetDefault("sink.provider", "fs")
	v.SetDefault("sink.dir", "./results")
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("blob.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Portal.EntryURL == "" {
		return fmt.Errorf("portal.entry_url must be set")
	}
	if c.Portal.NavRetries <= 0 {
		return fmt.Errorf("portal.nav_retries must be > 0")
	}
	if len(c.Filter.CategoryTokens) == 0 {
		return fmt.Errorf("filter.category_tokens must not be empty")
	}
	if c.Filter.MaxPostAgeDays < 0 || c.Filter.MinLeadTimeDays < 0 {
		return fmt.Errorf("filter windows must be >= 0")
	}
	if c.Detail.MinFields < 0 {
		return fmt.Errorf("detail.min_fields must be >= 0")
	}
	switch c.Detail.Strategy {
	case "dom_only", "ai_text", "ai_vision":
	default:
		return fmt.Errorf("detail.strategy must be one of dom_only, ai_text, ai_vision")
	}
	if c.Politeness.MinDelayMs < 0 || c.Politeness.MaxDelayMs < c.Politeness.MinDelayMs {
		return fmt.Errorf("politeness delay bounds are inverted")
	}
	if c.Job.CheckpointMinutes <= 0 {
		return fmt.Errorf("job.checkpoint_minutes must be > 0")
	}
	switch c.Sink.Provider {
	case "fs", "postgres", "memory":
	default:
		return fmt.Errorf("unknown sink provider: %s", c.Sink.Provider)
	}
	if c.Sink.Provider == "postgres" && c.Sink.DSN == "" {
		return fmt.Errorf("sink.dsn must be set for the postgres sink")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	switch c.Blob.Provider {
	case "noop", "local", "gcs":
	default:
		return fmt.Errorf("unknown blob provider: %s", c.Blob.Provider)
	}
	if c.Blob.Provider == "gcs" && c.Blob.GCSBucket == "" {
		return fmt.Errorf("blob.gcs_bucket must be set for the gcs provider")
	}
	return nil
}

// NavTimeout converts the configured navigation timeout to a duration.
func (c PortalConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// WaitTimeout converts the configured element-wait timeout to a duration.
func (c PortalConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSec) * time.Second
}

// GridTimeout converts the configured result-grid timeout to a duration.
func (c PortalConfig) GridTimeout() time.Duration {
	return time.Duration(c.GridTimeoutSec) * time.Second
}

// CheckpointInterval converts the checkpoint period to a duration.
func (c JobConfig) CheckpointInterval() time.Duration {
	return time.Duration(c.CheckpointMinutes) * time.Minute
}

// MinDelay returns the lower politeness delay bound.
func (c PolitenessConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMs) * time.Millisecond
}

// MaxDelay returns the upper politeness delay bound.
func (c PolitenessConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

// Timeout converts the oracle timeout to a duration.
func (c OracleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
