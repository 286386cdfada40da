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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Census  CensusConfig  `yaml:"census" mapstructure:"census"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the geography snapshot database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CatalogConfig configures the variable definition catalog.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CensusConfig configures the upstream ACS API client.
type CensusConfig struct {
	Key         string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Source      string  `yaml:"source" mapstructure:"source"`
	Year        int     `yaml:"year" mapstructure:"year"`
	Workers     int     `yaml:"workers" mapstructure:"workers"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
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
	v.SetEnvPrefix("CENSUSVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "geos.db")
	v.SetDefault("catalog.path", "vars.json")
	v.SetDefault("census.api_key", "")
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.source", "acs5")
	v.SetDefault("census.year", 2018)
	v.SetDefault("census.workers", 4)
	v.SetDefault("census.timeout_secs", 30)
	v.SetDefault("census.max_attempts", 2)
	v.SetDefault("census.rate_per_sec", 10)
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
