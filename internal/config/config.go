package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full process configuration. Business rules live in the
// per-module JSON files referenced by Modules; everything here is plumbing.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Oracle     OracleConfig     `yaml:"oracle" mapstructure:"oracle"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Modules    ModulesConfig    `yaml:"modules" mapstructure:"modules"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// ServerConfig configures the claim API server.
type ServerConfig struct {
	Port           int       `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string  `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	TPAuth         BasicAuth `yaml:"tp_auth" mapstructure:"tp_auth"`
	COAuth         BasicAuth `yaml:"co_auth" mapstructure:"co_auth"`
}

// BasicAuth holds one module's API credentials. TP and CO credentials are
// independent so the lines stay isolated.
type BasicAuth struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Enabled reports whether credentials are configured for this module.
func (a BasicAuth) Enabled() bool {
	return a.Username != ""
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// OracleConfig configures the inference endpoint.
type OracleConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	DecisionModel    string  `yaml:"decision_model" mapstructure:"decision_model"`
	TranslationModel string  `yaml:"translation_model" mapstructure:"translation_model"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffMillis    int     `yaml:"backoff_millis" mapstructure:"backoff_millis"`
	RequestsPerSec   float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	MaxConcurrent    int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// StoreConfig configures the decision audit store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ModulesConfig points at the per-module business-rule files.
type ModulesConfig struct {
	TPRulesPath string `yaml:"tp_rules_path" mapstructure:"tp_rules_path"`
	CORulesPath string `yaml:"co_rules_path" mapstructure:"co_rules_path"`
}

// MonitoringConfig configures the background oracle health checker and its
// optional alert webhook.
type MonitoringConfig struct {
	CheckIntervalSecs int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackHours     int    `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ValidationConfig tunes oracle-output validation strictness.
type ValidationConfig struct {
	CaseSensitiveOutcomes bool    `yaml:"case_sensitive_outcomes" mapstructure:"case_sensitive_outcomes"`
	LiabilityTolerance    float64 `yaml:"liability_tolerance" mapstructure:"liability_tolerance"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/claims-engine")

	// Environment
	v.SetEnvPrefix("CLAIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("oracle.base_url", "http://localhost:11434")
	v.SetDefault("oracle.decision_model", "qwen2.5:14b")
	v.SetDefault("oracle.translation_model", "llama3.2:latest")
	v.SetDefault("oracle.timeout_secs", 90)
	v.SetDefault("oracle.max_attempts", 3)
	v.SetDefault("oracle.backoff_millis", 500)
	v.SetDefault("oracle.requests_per_sec", 2)
	v.SetDefault("oracle.max_concurrent", 4)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "claims.db")
	v.SetDefault("modules.tp_rules_path", "configs/tp.rules.json")
	v.SetDefault("modules.co_rules_path", "configs/co.rules.json")
	v.SetDefault("validation.case_sensitive_outcomes", false)
	v.SetDefault("validation.liability_tolerance", 0.5)
	v.SetDefault("monitoring.check_interval_secs", 60)
	v.SetDefault("monitoring.lookback_hours", 24)

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
