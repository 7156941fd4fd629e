// Package config provides configuration management using viper.
// It supports loading from YAML files, .env files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Balance   BalanceConfig   `mapstructure:"balance"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Bot       BotConfig       `mapstructure:"bot"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	Timezone string `mapstructure:"timezone"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`

	// SlowQueryThreshold logs queries slower than this; zero disables it.
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
}

// RedisConfig holds Redis connection configuration. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig holds session token settings.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// BalanceConfig tunes the balance aggregator.
type BalanceConfig struct {
	BatchSize        int   `mapstructure:"batch_size"`
	BatchConcurrency int   `mapstructure:"batch_concurrency"`
	MaxPageSize      int   `mapstructure:"max_page_size"`
	DisplayPrecision int32 `mapstructure:"display_precision"`
}

// RateLimitConfig holds per-user request limits for the balance API.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// BotConfig holds Telegram admin bot configuration.
type BotConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

// AdminConfig holds the Telegram user IDs allowed to run admin commands.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode,
	)
}

// Addr returns the HTTP listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Location returns the configured timezone, or UTC when none is set.
// Validate rejects names that do not load.
func (a *AppConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the service runs in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory. A .env file in the
// working directory is loaded into the environment first when present.
func Load(configPath string) (*Config, error) {
	// Missing .env is fine, the environment may already carry everything
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g., DATABASE_HOST, JWT_SECRET, BALANCE_BATCH_SIZE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Bot.Enabled && c.Bot.Token == "" {
		return errors.New("bot.token is required when bot.enabled is true")
	}
	if c.Balance.BatchSize <= 0 || c.Balance.BatchConcurrency <= 0 {
		return errors.New("balance.batch_size and balance.batch_concurrency must be positive")
	}
	if c.Balance.DisplayPrecision < 0 {
		return errors.New("balance.display_precision must not be negative")
	}
	if c.App.Timezone != "" {
		if _, err := time.LoadLocation(c.App.Timezone); err != nil {
			return fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ledger")
	v.SetDefault("database.name", "ledger")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.slow_query_threshold", "500ms")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "balance-ledger")
	v.SetDefault("jwt.ttl", "24h")

	v.SetDefault("balance.batch_size", 200)
	v.SetDefault("balance.batch_concurrency", 4)
	v.SetDefault("balance.max_page_size", 500)
	v.SetDefault("balance.display_precision", 2)

	v.SetDefault("ratelimit.requests", 60)
	v.SetDefault("ratelimit.window", "1m")

	v.SetDefault("bot.enabled", false)
	v.SetDefault("bot.token", "")
}

// IsAdmin checks if a Telegram user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
