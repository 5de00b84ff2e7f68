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
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Crunchbase CrunchbaseConfig `yaml:"crunchbase" mapstructure:"crunchbase"`
	Tavily     TavilyConfig     `yaml:"tavily" mapstructure:"tavily"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	HaikuModel     string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel    string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
	ThinkingBudget int64  `yaml:"thinking_budget" mapstructure:"thinking_budget"`
}

// CrunchbaseConfig holds Crunchbase API settings.
type CrunchbaseConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	FoundedAfter string  `yaml:"founded_after" mapstructure:"founded_after"`
}

// TavilyConfig holds Tavily web search settings.
type TavilyConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	FreshnessDays int    `yaml:"freshness_days" mapstructure:"freshness_days"`
}

// PipelineConfig configures stage thresholds and fan-out bounds.
type PipelineConfig struct {
	FitThreshold       int `yaml:"fit_threshold" mapstructure:"fit_threshold"`
	DeepAnalysisTopN   int `yaml:"deep_analysis_top_n" mapstructure:"deep_analysis_top_n"`
	ResultsPerQuery    int `yaml:"results_per_query" mapstructure:"results_per_query"`
	MaxKeywords        int `yaml:"max_keywords" mapstructure:"max_keywords"`
	MaxSearchQueries   int `yaml:"max_search_queries" mapstructure:"max_search_queries"`
	MaxAdjacentThemes  int `yaml:"max_adjacent_themes" mapstructure:"max_adjacent_themes"`
	EnrichmentBatch    int `yaml:"enrichment_batch" mapstructure:"enrichment_batch"`
}

// ServerConfig configures the read-only HTTP API.
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
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.thinking_budget", 0)
	v.SetDefault("crunchbase.base_url", "https://api.crunchbase.com/api/v4")
	v.SetDefault("crunchbase.rate_limit", 4.0)
	v.SetDefault("crunchbase.founded_after", "2015-01-01")
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("tavily.freshness_days", 365)
	v.SetDefault("pipeline.fit_threshold", 6)
	v.SetDefault("pipeline.deep_analysis_top_n", 10)
	v.SetDefault("pipeline.results_per_query", 15)
	v.SetDefault("pipeline.max_keywords", 3)
	v.SetDefault("pipeline.max_search_queries", 5)
	v.SetDefault("pipeline.max_adjacent_themes", 5)
	v.SetDefault("pipeline.enrichment_batch", 5)

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
