package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Mode         string        `mapstructure:"mode" validate:"oneof=debug release test"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// GatewayConfig selects and tunes the counterparty verification backend
type GatewayConfig struct {
	URL      string        `mapstructure:"url" validate:"omitempty,url"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Simulate bool          `mapstructure:"simulate"`
}

// ComplianceConfig holds reconciliation settings
type ComplianceConfig struct {
	ProductName       string `mapstructure:"product_name" validate:"required"`
	Dialect           string `mapstructure:"dialect" validate:"oneof=standard tally"`
	VerifyConcurrency int    `mapstructure:"verify_concurrency" validate:"min=1,max=64"`
	CacheVerdicts     bool   `mapstructure:"cache_verdicts"`
}

// StorageConfig holds artifact output configuration
type StorageConfig struct {
	OutputDir string `mapstructure:"output_dir" validate:"required"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
}

// Load reads configuration from an optional .env file, the YAML file at configPath
// and the environment. An empty configPath uses defaults and environment only.
func Load(configPath string) (*Config, error) {
	return LoadWithEnvFile(configPath, ".env")
}

// LoadWithEnvFile is Load with an explicit dotenv path
func LoadWithEnvFile(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.mode", "release")

	// Database defaults
	v.SetDefault("database.path", "data/gstr1.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Gateway defaults
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("gateway.simulate", false)

	// Compliance defaults
	v.SetDefault("compliance.product_name", "Speqta")
	v.SetDefault("compliance.dialect", "standard")
	v.SetDefault("compliance.verify_concurrency", 1)
	v.SetDefault("compliance.cache_verdicts", true)

	// Storage defaults
	v.SetDefault("storage.output_dir", "generated_returns")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"gateway.url":                   "GSTR1_GATEWAY_URL",
		"gateway.simulate":              "GSTR1_GATEWAY_SIMULATE",
		"compliance.product_name":       "GSTR1_PRODUCT_NAME",
		"compliance.verify_concurrency": "GSTR1_VERIFY_CONCURRENCY",
		"database.path":                 "GSTR1_DATABASE_PATH",
		"storage.output_dir":            "GSTR1_OUTPUT_DIR",
		"server.port":                   "GSTR1_PORT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return err
	}

	// Validate gateway selection
	if !c.Gateway.Simulate && c.Gateway.URL == "" {
		return fmt.Errorf("gateway.url is required unless gateway.simulate is set")
	}

	return nil
}

// Addr is the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
