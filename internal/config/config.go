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
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" mapstructure:"scheduler"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Places     PlacesConfig     `yaml:"places" mapstructure:"places"`
	Hunter     HunterConfig     `yaml:"hunter" mapstructure:"hunter"`
	Snov       SnovConfig       `yaml:"snov" mapstructure:"snov"`
	Webscrape  WebscrapeConfig  `yaml:"webscrape" mapstructure:"webscrape"`
	Serp       SerpConfig       `yaml:"serp" mapstructure:"serp"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the job API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SchedulerConfig configures chunked job execution.
type SchedulerConfig struct {
	ChunkBudgetSecs      int `yaml:"chunk_budget_secs" mapstructure:"chunk_budget_secs"`
	ChunkDelaySecs       int `yaml:"chunk_delay_secs" mapstructure:"chunk_delay_secs"`
	Workers              int `yaml:"workers" mapstructure:"workers"`
	QueueDepth           int `yaml:"queue_depth" mapstructure:"queue_depth"`
	ExtractionChunkSize  int `yaml:"extraction_chunk_size" mapstructure:"extraction_chunk_size"`
	EnrichmentChunkSize  int `yaml:"enrichment_chunk_size" mapstructure:"enrichment_chunk_size"`
	ItemSafetyMarginSecs int `yaml:"item_safety_margin_secs" mapstructure:"item_safety_margin_secs"`
}

// ExtractionConfig configures the place extraction walker.
type ExtractionConfig struct {
	MaxCandidates  int     `yaml:"max_candidates" mapstructure:"max_candidates"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	PageTokenDelay int     `yaml:"page_token_delay_secs" mapstructure:"page_token_delay_secs"`
}

// EnrichConfig configures the provider waterfall.
type EnrichConfig struct {
	WaterfallPath     string `yaml:"waterfall_path" mapstructure:"waterfall_path"`
	ProviderTimeout   int    `yaml:"provider_timeout_secs" mapstructure:"provider_timeout_secs"`
	InterProviderWait int    `yaml:"inter_provider_wait_secs" mapstructure:"inter_provider_wait_secs"`
}

// PlacesConfig holds mapping API credentials.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// HunterConfig holds Hunter.io credentials.
type HunterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SnovConfig holds Snov.io OAuth credentials.
type SnovConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
}

// SerpConfig holds web search API credentials for social profile lookups.
type SerpConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// WebscrapeConfig holds the site email scraper endpoint settings.
type WebscrapeConfig struct {
	URL       string `yaml:"url" mapstructure:"url"`
	AuthToken string `yaml:"auth_token" mapstructure:"auth_token"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credentials have none: keys arrive via file or environment only.
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("scheduler.chunk_budget_secs", 50)
	v.SetDefault("scheduler.chunk_delay_secs", 2)
	v.SetDefault("scheduler.workers", 2)
	v.SetDefault("scheduler.queue_depth", 256)
	v.SetDefault("scheduler.extraction_chunk_size", 10)
	v.SetDefault("scheduler.enrichment_chunk_size", 5)
	v.SetDefault("scheduler.item_safety_margin_secs", 10)
	v.SetDefault("extraction.max_candidates", 100)
	v.SetDefault("extraction.rate_limit", 2)
	v.SetDefault("extraction.page_token_delay_secs", 2)
	v.SetDefault("enrich.waterfall_path", "waterfall.yaml")
	v.SetDefault("enrich.provider_timeout_secs", 8)
	v.SetDefault("enrich.inter_provider_wait_secs", 1)
	v.SetDefault("places.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("hunter.base_url", "https://api.hunter.io/v2")
	v.SetDefault("snov.base_url", "https://api.snov.io")
	v.SetDefault("serp.base_url", "https://serpapi.com")

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
