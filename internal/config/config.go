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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Ollama     OllamaConfig     `yaml:"ollama" mapstructure:"ollama"`
	Summarizer SummarizerConfig `yaml:"summarizer" mapstructure:"summarizer"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Reader     ReaderConfig     `yaml:"reader" mapstructure:"reader"`
	Analytics  AnalyticsConfig  `yaml:"analytics" mapstructure:"analytics"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Loop       LoopConfig       `yaml:"loop" mapstructure:"loop"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures ledger persistence.
type StoreConfig struct {
	// Driver is one of "file", "sqlite", "postgres".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	LoopLogPath string `yaml:"loop_log_path" mapstructure:"loop_log_path"`
}

// OllamaConfig configures the local subprocess backend tier.
type OllamaConfig struct {
	Bin   string `yaml:"bin" mapstructure:"bin"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SummarizerConfig configures the self-hosted summarizer service tier.
type SummarizerConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// AnthropicConfig holds Anthropic API settings for the cloud tier.
type AnthropicConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	HaikuModel    string  `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel   string  `yaml:"sonnet_model" mapstructure:"sonnet_model"`
	RPS           float64 `yaml:"rps" mapstructure:"rps"`
	RateRetries   int     `yaml:"rate_retries" mapstructure:"rate_retries"`
	RateDelaySecs int     `yaml:"rate_delay_secs" mapstructure:"rate_delay_secs"`
}

// ReaderConfig configures the document-to-text collaborator.
type ReaderConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Key         string `yaml:"key" mapstructure:"key"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnalyticsConfig configures the text-analytics collaborator.
type AnalyticsConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ResearchConfig holds the orchestration thresholds. Defaults match the
// original pipeline's constants; override any of them via config or env.
type ResearchConfig struct {
	MaxAttempts         int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	MaxCycles           int     `yaml:"max_cycles" mapstructure:"max_cycles"`
	MaxCandidates       int     `yaml:"max_candidates" mapstructure:"max_candidates"`
	MaxSubtopics        int     `yaml:"max_subtopics" mapstructure:"max_subtopics"`
	MinDocumentChars    int     `yaml:"min_document_chars" mapstructure:"min_document_chars"`
	MinSummaryChars     int     `yaml:"min_summary_chars" mapstructure:"min_summary_chars"`
	MinReportChars      int     `yaml:"min_report_chars" mapstructure:"min_report_chars"`
	DocumentCap         int     `yaml:"document_cap" mapstructure:"document_cap"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	BlacklistFloor      int     `yaml:"blacklist_floor" mapstructure:"blacklist_floor"`
	Markup              float64 `yaml:"markup" mapstructure:"markup"`
	ChainFile           string  `yaml:"chain_file" mapstructure:"chain_file"`
}

// PricingConfig holds per-tier cost rates.
type PricingConfig struct {
	Anthropic      map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	LocalPerSecond float64                 `yaml:"local_per_second" mapstructure:"local_per_second"`
	CloudSurcharge float64                 `yaml:"cloud_surcharge" mapstructure:"cloud_surcharge"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// LoopConfig configures the unattended research loop.
type LoopConfig struct {
	IntervalSecs     int `yaml:"interval_secs" mapstructure:"interval_secs"`
	ErrorBackoffSecs int `yaml:"error_backoff_secs" mapstructure:"error_backoff_secs"`
}

// ServerConfig configures the HTTP API.
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
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "research_log.json")
	v.SetDefault("store.loop_log_path", "self_reinforce_log.json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("ollama.bin", "ollama")
	v.SetDefault("ollama.model", "mistral")
	v.SetDefault("summarizer.base_url", "http://localhost:5000")
	v.SetDefault("summarizer.rps", 4)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.rps", 2)
	v.SetDefault("anthropic.rate_retries", 3)
	v.SetDefault("anthropic.rate_delay_secs", 2)
	v.SetDefault("reader.base_url", "https://r.jina.ai")
	v.SetDefault("reader.timeout_secs", 20)
	v.SetDefault("analytics.base_url", "http://localhost:5005")
	v.SetDefault("analytics.timeout_secs", 15)
	v.SetDefault("research.max_attempts", 3)
	v.SetDefault("research.max_cycles", 2)
	v.SetDefault("research.max_candidates", 10)
	v.SetDefault("research.max_subtopics", 7)
	v.SetDefault("research.min_document_chars", 100)
	v.SetDefault("research.min_summary_chars", 60)
	v.SetDefault("research.min_report_chars", 300)
	v.SetDefault("research.document_cap", 3000)
	v.SetDefault("research.similarity_threshold", 0.2)
	v.SetDefault("research.blacklist_floor", -4)
	v.SetDefault("research.markup", 2.0)
	v.SetDefault("pricing.local_per_second", 0.0002)
	v.SetDefault("pricing.cloud_surcharge", 0.01)
	v.SetDefault("loop.interval_secs", 60)
	v.SetDefault("loop.error_backoff_secs", 30)

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

	if cfg.Pricing.Anthropic == nil {
		cfg.Pricing.Anthropic = DefaultAnthropicPricing()
	}

	return &cfg, nil
}

// DefaultAnthropicPricing returns the default per-model token rates.
func DefaultAnthropicPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
	}
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
