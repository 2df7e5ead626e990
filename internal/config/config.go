package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Plan      PlanConfig      `mapstructure:"plan"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// InvoiceConfig holds invoice numbering configuration
type InvoiceConfig struct {
	NumberPrefix string `mapstructure:"number_prefix"`
}

// NotifierConfig holds the background notification scan configuration
type NotifierConfig struct {
	ScanInterval time.Duration `mapstructure:"scan_interval"`
}

// SchedulerConfig holds the recurring emission sweep configuration
type SchedulerConfig struct {
	ScanInterval time.Duration `mapstructure:"scan_interval"`
}

// PlanConfig holds per-plan resource quotas. Zero means unlimited.
type PlanConfig struct {
	MaxRecurringTemplates int `mapstructure:"max_recurring_templates"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/facturio.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("invoice.number_prefix", "FAC")

	viper.SetDefault("notifier.scan_interval", time.Hour)
	viper.SetDefault("scheduler.scan_interval", time.Hour)

	viper.SetDefault("plan.max_recurring_templates", 0)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("invoice.number_prefix", "INVOICE_NUMBER_PREFIX")
	viper.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Invoice.NumberPrefix == "" {
		return fmt.Errorf("invoice.number_prefix is required")
	}
	if c.Notifier.ScanInterval < time.Minute {
		return fmt.Errorf("notifier.scan_interval must be at least one minute")
	}
	if c.Scheduler.ScanInterval < time.Minute {
		return fmt.Errorf("scheduler.scan_interval must be at least one minute")
	}
	if c.Plan.MaxRecurringTemplates < 0 {
		return fmt.Errorf("plan.max_recurring_templates cannot be negative")
	}
	return nil
}
