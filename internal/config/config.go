package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crosslogic/fieldmap-cli/internal/cost"
	"github.com/crosslogic/fieldmap-cli/internal/db"
	"github.com/crosslogic/fieldmap-cli/internal/extract"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Resolver  ResolverConfig  `yaml:"resolver" mapstructure:"resolver"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Verify    VerifyConfig    `yaml:"verify" mapstructure:"verify"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Pricing   cost.Rates      `yaml:"pricing" mapstructure:"pricing"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// RetrievalConfig configures the reference index database.
type RetrievalConfig struct {
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	Pool        db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Google Gemini API settings. The embed model also serves
// retrieval-side embedding queries.
type GeminiConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	Model      string `yaml:"model" mapstructure:"model"`
	EmbedModel string `yaml:"embed_model" mapstructure:"embed_model"`
}

// ResolverConfig configures the resolution pipeline.
type ResolverConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	TaskTimeoutSecs   int     `yaml:"task_timeout_secs" mapstructure:"task_timeout_secs"`
	BatchDeadlineSecs int     `yaml:"batch_deadline_secs" mapstructure:"batch_deadline_secs"`
	// MaxRetries counts retries after the first attempt.
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffBaseMS     int     `yaml:"backoff_base_ms" mapstructure:"backoff_base_ms"`
	BackoffMaxSecs    int     `yaml:"backoff_max_secs" mapstructure:"backoff_max_secs"`
	RateLimitFloorSec int     `yaml:"rate_limit_floor_secs" mapstructure:"rate_limit_floor_secs"`
	CustomThreshold   float64 `yaml:"custom_threshold" mapstructure:"custom_threshold"`
	StandardThreshold float64 `yaml:"standard_threshold" mapstructure:"standard_threshold"`
	ScenarioTopN      int     `yaml:"scenario_top_n" mapstructure:"scenario_top_n"`
	MaxCandidateViews int     `yaml:"max_candidate_views" mapstructure:"max_candidate_views"`
	ProfilePath       string  `yaml:"profile_path" mapstructure:"profile_path"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	RequestBurst      int     `yaml:"request_burst" mapstructure:"request_burst"`
}

// TaskTimeout returns the per-field resolution timeout.
func (r ResolverConfig) TaskTimeout() time.Duration {
	return time.Duration(r.TaskTimeoutSecs) * time.Second
}

// BatchDeadline returns the whole-batch deadline; zero disables it.
func (r ResolverConfig) BatchDeadline() time.Duration {
	return time.Duration(r.BatchDeadlineSecs) * time.Second
}

// BackoffBase returns the initial retry backoff.
func (r ResolverConfig) BackoffBase() time.Duration {
	return time.Duration(r.BackoffBaseMS) * time.Millisecond
}

// BackoffMax returns the retry backoff cap.
func (r ResolverConfig) BackoffMax() time.Duration {
	return time.Duration(r.BackoffMaxSecs) * time.Second
}

// RateLimitFloor returns the minimum delay after a rate-limit rejection.
func (r ResolverConfig) RateLimitFloor() time.Duration {
	return time.Duration(r.RateLimitFloorSec) * time.Second
}

// ExtractConfig configures workbook input and output locations.
type ExtractConfig struct {
	InputDir   string         `yaml:"input_dir" mapstructure:"input_dir"`
	OutputDir  string         `yaml:"output_dir" mapstructure:"output_dir"`
	ArchiveDir string         `yaml:"archive_dir" mapstructure:"archive_dir"`
	Layout     extract.Layout `yaml:"layout" mapstructure:"layout"`
}

// VerifyConfig configures the optional OData verification pass.
type VerifyConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	URL      string `yaml:"url" mapstructure:"url"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Note     string `yaml:"note" mapstructure:"note"`
}

// BatchConfig configures directory-level batch processing.
type BatchConfig struct {
	MaxConcurrentFiles int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FIELDMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "fieldmap.db")
	v.SetDefault("retrieval.pool.max_conns", 10)
	v.SetDefault("retrieval.pool.min_conns", 2)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.embed_model", "gemini-embedding-001")
	v.SetDefault("resolver.concurrency", 5)
	v.SetDefault("resolver.task_timeout_secs", 120)
	v.SetDefault("resolver.batch_deadline_secs", 0)
	v.SetDefault("resolver.max_retries", 2)
	v.SetDefault("resolver.backoff_base_ms", 1000)
	v.SetDefault("resolver.backoff_max_secs", 30)
	v.SetDefault("resolver.rate_limit_floor_secs", 5)
	v.SetDefault("resolver.custom_threshold", 0.85)
	v.SetDefault("resolver.standard_threshold", 0.5)
	v.SetDefault("resolver.scenario_top_n", 3)
	v.SetDefault("resolver.max_candidate_views", 20)
	v.SetDefault("resolver.requests_per_second", 2.0)
	v.SetDefault("resolver.request_burst", 4)
	v.SetDefault("extract.input_dir", "data/input")
	v.SetDefault("extract.output_dir", "data/output")
	v.SetDefault("extract.archive_dir", "data/archive")
	v.SetDefault("verify.note", "rejected by verification")
	v.SetDefault("batch.max_concurrent_files", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	// Sheet layout defaults apply wholesale unless the file overrides them.
	if cfg.Extract.Layout.StartRow == 0 {
		cfg.Extract.Layout = extract.DefaultLayout()
	}
	if len(cfg.Pricing) == 0 {
		cfg.Pricing = cost.DefaultRates()
	}

	return &cfg, nil
}

// Validate checks that the configuration required for the given command mode
// is present. Collected problems are reported together.
func (c *Config) Validate(mode string) error {
	var problems []string

	requireResolution := func() {
		if c.Retrieval.DatabaseURL == "" {
			problems = append(problems, "retrieval.database_url is required")
		}
		if c.Gemini.Key == "" {
			problems = append(problems, "gemini.key is required (embedding queries)")
		}
		if c.Anthropic.Key == "" && c.Gemini.Key == "" {
			problems = append(problems, "at least one completion provider key is required")
		}
		if c.Resolver.Concurrency < 1 || c.Resolver.Concurrency > 50 {
			problems = append(problems, "resolver.concurrency must be between 1 and 50")
		}
		for _, t := range []struct {
			name  string
			value float64
		}{
			{"resolver.custom_threshold", c.Resolver.CustomThreshold},
			{"resolver.standard_threshold", c.Resolver.StandardThreshold},
		} {
			if t.value < 0 || t.value > 1 {
				problems = append(problems, t.name+" must be between 0 and 1")
			}
		}
		if c.Verify.Enabled && c.Verify.URL == "" {
			problems = append(problems, "verify.url is required when verify.enabled")
		}
	}

	switch mode {
	case "resolve":
		requireResolution()
	case "batch":
		requireResolution()
		if c.Batch.MaxConcurrentFiles < 1 || c.Batch.MaxConcurrentFiles > 10 {
			problems = append(problems, "batch.max_concurrent_files must be between 1 and 10")
		}
	case "index":
		if c.Retrieval.DatabaseURL == "" {
			problems = append(problems, "retrieval.database_url is required")
		}
		if c.Gemini.Key == "" {
			problems = append(problems, "gemini.key is required (embedding queries)")
		}
	case "runs":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
