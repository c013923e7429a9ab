// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Market   MarketConfig   `mapstructure:"market"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Magic    MagicConfig    `mapstructure:"magic"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	TxMaxAttempts   int           `mapstructure:"tx_max_attempts"`
	TxRetryDelay    time.Duration `mapstructure:"tx_retry_delay"`
}

// MarketConfig holds market engine configuration.
type MarketConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// Volatility is the half-width of the uniform multiplier band around 1.0.
	Volatility  float64 `mapstructure:"volatility"`
	TickWorkers int     `mapstructure:"tick_workers"`
	SeedItems   bool    `mapstructure:"seed_items"`
}

// MinInitiatorHeart is the lowest initiator_min_heart accepted. A principal on
// their last heart may never start a battle.
const MinInitiatorHeart = 2

// CombatConfig holds battle payout configuration.
type CombatConfig struct {
	WinReward         int `mapstructure:"win_reward"`
	InitiatorMinHeart int `mapstructure:"initiator_min_heart"`
}

// MagicConfig holds magic creation configuration.
type MagicConfig struct {
	DefaultCapacity int `mapstructure:"default_capacity"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode,
	)
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded first if present; real
// environment variables take precedence over it.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, MARKET_TICK_INTERVAL, LOG_LEVEL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would make the engine misbehave.
func (c *Config) Validate() error {
	if c.Market.TickInterval <= 0 {
		return fmt.Errorf("market.tick_interval must be positive, got %s", c.Market.TickInterval)
	}
	if c.Market.Volatility < 0 || c.Market.Volatility >= 1 {
		return fmt.Errorf("market.volatility must be in [0,1), got %v", c.Market.Volatility)
	}
	if c.Magic.DefaultCapacity < 1 {
		return fmt.Errorf("magic.default_capacity must be at least 1, got %d", c.Magic.DefaultCapacity)
	}
	if c.Combat.WinReward < 0 {
		return fmt.Errorf("combat.win_reward must not be negative, got %d", c.Combat.WinReward)
	}
	if c.Combat.InitiatorMinHeart < MinInitiatorHeart {
		return fmt.Errorf("combat.initiator_min_heart must be at least %d, got %d",
			MinInitiatorHeart, c.Combat.InitiatorMinHeart)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "hogwarts")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "hogwarts")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.tx_max_attempts", 8)
	v.SetDefault("database.tx_retry_delay", "75ms")

	v.SetDefault("market.tick_interval", "5s")
	v.SetDefault("market.volatility", 0.1)
	v.SetDefault("market.tick_workers", 4)
	v.SetDefault("market.seed_items", true)

	v.SetDefault("combat.win_reward", 2)
	v.SetDefault("combat.initiator_min_heart", 2)

	v.SetDefault("magic.default_capacity", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}
