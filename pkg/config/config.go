package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Store configuration
	Store StoreConfig `mapstructure:"store"`

	// Schedule engine configuration
	Schedule ScheduleConfig `mapstructure:"schedule"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// StoreConfig holds key-value store configuration. Driver selects the
// backing implementation: "memory" or "postgres".
type StoreConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// ScheduleConfig holds the schedule engine parameters
type ScheduleConfig struct {
	HorizonDays         int `mapstructure:"horizon_days"`
	DueWindowMinutes    int `mapstructure:"due_window_minutes"`
	MissedWindowMinutes int `mapstructure:"missed_window_minutes"`
	DueCheckSeconds     int `mapstructure:"due_check_seconds"`
	MissedCheckSeconds  int `mapstructure:"missed_check_seconds"`
}

// DueWindow returns the due lookahead as a duration
func (s ScheduleConfig) DueWindow() time.Duration {
	return time.Duration(s.DueWindowMinutes) * time.Minute
}

// MissedWindow returns the missed lookback as a duration
func (s ScheduleConfig) MissedWindow() time.Duration {
	return time.Duration(s.MissedWindowMinutes) * time.Minute
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/medique")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Override with environment variables
	overrideWithEnv(&config)

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	// Store defaults
	viper.SetDefault("store.driver", "memory")
	viper.SetDefault("store.host", "localhost")
	viper.SetDefault("store.port", 5432)
	viper.SetDefault("store.name", "medique")
	viper.SetDefault("store.user", "medique")
	viper.SetDefault("store.ssl_mode", "disable")
	viper.SetDefault("store.max_open_conns", 25)
	viper.SetDefault("store.max_idle_conns", 5)
	viper.SetDefault("store.conn_max_lifetime", 300)

	// Schedule defaults: 30-day generation horizon, due within 5 minutes,
	// missed within 120 minutes, sweeps at 60s/300s
	viper.SetDefault("schedule.horizon_days", 30)
	viper.SetDefault("schedule.due_window_minutes", 5)
	viper.SetDefault("schedule.missed_window_minutes", 120)
	viper.SetDefault("schedule.due_check_seconds", 60)
	viper.SetDefault("schedule.missed_check_seconds", 300)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.health_path", "/health")

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		config.Store.Driver = driver
	}

	if password := os.Getenv("STORE_PASSWORD"); password != "" {
		config.Store.Password = password
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Store.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown store driver: %s", config.Store.Driver)
	}

	if config.Store.Driver == "postgres" && config.Store.Password == "" {
		return fmt.Errorf("store password is required for the postgres driver")
	}

	if config.Schedule.HorizonDays <= 0 {
		return fmt.Errorf("schedule horizon must be positive: %d", config.Schedule.HorizonDays)
	}

	if config.Schedule.DueWindowMinutes <= 0 || config.Schedule.MissedWindowMinutes <= 0 {
		return fmt.Errorf("sweep windows must be positive")
	}

	return nil
}
