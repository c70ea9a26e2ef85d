// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Proxy   ProxyConfig   `yaml:"proxy" mapstructure:"proxy"`
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PathsConfig holds the input/output directories.
type PathsConfig struct {
	Input  string `yaml:"input" mapstructure:"input"`
	Output string `yaml:"output" mapstructure:"output"`
}

// ProxyConfig holds the egress identity rotation settings.
type ProxyConfig struct {
	List            []string `yaml:"list" mapstructure:"list"`
	RotationEnabled bool     `yaml:"rotation_enabled" mapstructure:"rotation_enabled"`
}

// EnrichConfig configures the enrichment executor.
type EnrichConfig struct {
	MaxConcurrent      int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	BatchSize          int     `yaml:"batch_size" mapstructure:"batch_size"`
	RequestTimeoutSecs int     `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	MaxRetries         int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond  float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// SourcesConfig holds per-registry base URLs.
type SourcesConfig struct {
	FSSPBaseURL  string `yaml:"fssp_base_url" mapstructure:"fssp_base_url"`
	FedresursURL string `yaml:"fedresurs_api_url" mapstructure:"fedresurs_api_url"`
	RosreestrURL string `yaml:"rosreestr_api_url" mapstructure:"rosreestr_api_url"`
	CourtAPIURL  string `yaml:"court_api_url" mapstructure:"court_api_url"`
	TaxAPIURL    string `yaml:"tax_api_url" mapstructure:"tax_api_url"`
}

// ScoringConfig configures the scoring pass.
type ScoringConfig struct {
	MinDebtAmount     float64 `yaml:"min_debt_amount" mapstructure:"min_debt_amount"`
	MinScoreThreshold float64 `yaml:"min_score_threshold" mapstructure:"min_score_threshold"`
	BatchSize         int     `yaml:"batch_size" mapstructure:"batch_size"`
}

// ServerConfig configures the control API server.
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
	v.SetEnvPrefix("SCORING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "scoring.db")
	v.SetDefault("paths.input", "data/input")
	v.SetDefault("paths.output", "data/output")
	v.SetDefault("proxy.rotation_enabled", true)
	v.SetDefault("enrich.max_concurrent", 50)
	v.SetDefault("enrich.batch_size", 10000)
	v.SetDefault("enrich.request_timeout_secs", 30)
	v.SetDefault("enrich.max_retries", 3)
	v.SetDefault("enrich.requests_per_second", 100)
	v.SetDefault("sources.fssp_base_url", "https://fssp.gov.ru")
	v.SetDefault("sources.fedresurs_api_url", "https://fedresurs.ru/backend/companies")
	v.SetDefault("sources.rosreestr_api_url", "https://rosreestr.gov.ru/api")
	v.SetDefault("sources.court_api_url", "https://api.courts.ru")
	v.SetDefault("sources.tax_api_url", "https://service.nalog.ru")
	v.SetDefault("scoring.min_debt_amount", 250000)
	v.SetDefault("scoring.min_score_threshold", 50)
	v.SetDefault("scoring.batch_size", 10000)
	v.SetDefault("server.port", 8000)
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
