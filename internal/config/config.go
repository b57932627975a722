// Package config loads application configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Apify  ApifyConfig  `yaml:"apify" mapstructure:"apify"`
	Enrich EnrichConfig `yaml:"enrich" mapstructure:"enrich"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// ApifyConfig holds Apify API settings and the actor bound to each job kind.
type ApifyConfig struct {
	Token    string            `yaml:"token" mapstructure:"token"`
	BaseURL  string            `yaml:"base_url" mapstructure:"base_url"`
	RateRPS  float64           `yaml:"rate_rps" mapstructure:"rate_rps"`
	Actors   map[string]string `yaml:"actors" mapstructure:"actors"`
}

// EnrichConfig tunes the orchestrator.
type EnrichConfig struct {
	Workers   int           `yaml:"workers" mapstructure:"workers"`
	MaxRunAge time.Duration `yaml:"max_run_age" mapstructure:"max_run_age"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("LEADINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.rate_rps", 10)
	v.SetDefault("apify.actors", map[string]string{
		"directory-lookup":      "compass~crawler-google-places",
		"social-profile-lookup": "apify~social-media-finder",
		"decision-maker-lookup": "apify~contact-info-scraper",
		"contact-scrape":        "vdrmota~contact-info-scraper",
		"tech-stack":            "apify~website-technology-checker",
	})
	v.SetDefault("enrich.workers", 4)
	v.SetDefault("enrich.max_run_age", 30*time.Minute)
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
