package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Helios HeliosConfig `mapstructure:"helios"`
	Poll   PollConfig   `mapstructure:"poll"`
	State  StateConfig  `mapstructure:"state"`
	Host   HostConfig   `mapstructure:"host"`
}

// HostConfig holds the host platform integration configuration
type HostConfig struct {
	// IngestURL is the host incident ingestion endpoint. When empty,
	// incidents are only logged.
	IngestURL string `mapstructure:"ingestUrl"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port            string `mapstructure:"port"`
	ShutdownTimeout int    `mapstructure:"shutdownTimeout"`
}

// HeliosConfig holds the Cohesity Helios connection configuration
type HeliosConfig struct {
	BaseURL  string `mapstructure:"baseUrl"`
	APIKey   string `mapstructure:"apiKey"`
	Insecure bool   `mapstructure:"insecure"`
	ProxyURL string `mapstructure:"proxyUrl"`
	MaxFetch int    `mapstructure:"maxFetch"`
}

// PollConfig holds the background incident polling configuration
type PollConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Lookback time.Duration `mapstructure:"lookback"`
}

// StateConfig holds the watermark store configuration
type StateConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds the Redis connection configuration for the watermark store
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

// LoadConfig loads the application configuration from file or environment variables
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	// Set default values
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdownTimeout", 10)
	viper.SetDefault("helios.maxFetch", 20)
	viper.SetDefault("poll.enabled", false)
	viper.SetDefault("poll.interval", time.Minute)
	viper.SetDefault("poll.lookback", 7*24*time.Hour)
	viper.SetDefault("state.backend", "memory")
	viper.SetDefault("state.redis.addr", "127.0.0.1:6379")
	viper.SetDefault("state.redis.keyPrefix", "helios_connector")

	// Allow environment variables to override config file
	viper.SetEnvPrefix("HELIOS")
	viper.AutomaticEnv()

	// If config file is provided, read it
	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			logrus.Warnf("Error reading config file: %v", err)
		}
	}

	// Unmarshal config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks required fields and rejects unusable values
func (c *Config) Validate() error {
	if c.Helios.BaseURL == "" {
		return fmt.Errorf("helios.baseUrl is required")
	}
	if c.Helios.MaxFetch <= 0 {
		return fmt.Errorf("helios.maxFetch must be positive, got %d", c.Helios.MaxFetch)
	}
	if c.State.Backend != "memory" && c.State.Backend != "redis" {
		return fmt.Errorf("unknown state backend %q (want memory or redis)", c.State.Backend)
	}
	if c.Poll.Enabled && c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive when polling is enabled")
	}
	return nil
}
