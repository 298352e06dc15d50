package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PATIENTS_STORE_BASE_URL.
const EnvPrefix = "PATIENTS"

type Config struct {
	Store         StoreConfig         `mapstructure:"store" envconfig:"STORE"`
	Log           LogConfig           `mapstructure:"log" envconfig:"LOG"`
	Notifications NotificationsConfig `mapstructure:"notifications" envconfig:"NOTIFICATIONS"`
	Server        ServerConfig        `mapstructure:"server" envconfig:"SERVER"`
}

type StoreConfig struct {
	BaseURL        string          `mapstructure:"base_url" envconfig:"BASE_URL"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Breaker        BreakerConfig   `mapstructure:"breaker" envconfig:"BREAKER"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
	Burst             int     `mapstructure:"burst" envconfig:"BURST"`
}

type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures" envconfig:"MAX_FAILURES"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" envconfig:"OPEN_TIMEOUT"`
}

type LogConfig struct {
	Level string `mapstructure:"level" envconfig:"LEVEL"`
	JSON  bool   `mapstructure:"json" envconfig:"JSON"`
}

type NotificationsConfig struct {
	TTL      time.Duration `mapstructure:"ttl" envconfig:"TTL"`
	RedisURL string        `mapstructure:"redis_url" envconfig:"REDIS_URL"`
	Channel  string        `mapstructure:"channel" envconfig:"CHANNEL"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" envconfig:"PORT"`
	BasePath     string        `mapstructure:"base_path" envconfig:"BASE_PATH"`
	AllowOrigins []string      `mapstructure:"allow_origins" envconfig:"ALLOW_ORIGINS"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	SeedFile     string        `mapstructure:"seed_file" envconfig:"SEED_FILE"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.base_url", "http://localhost:3000/patients")
	v.SetDefault("store.request_timeout", 10*time.Second)
	v.SetDefault("store.rate_limit.requests_per_second", 0.0)
	v.SetDefault("store.rate_limit.burst", 10)
	v.SetDefault("store.breaker.max_failures", 5)
	v.SetDefault("store.breaker.open_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("notifications.ttl", 5*time.Second)
	v.SetDefault("notifications.redis_url", "")
	v.SetDefault("notifications.channel", "patients.notices")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.base_path", "/patients")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.seed_file", "")
}

// Load reads path, or config.yaml from the usual locations when path is
// empty. A missing default file is not an error. PATIENTS_* environment
// variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.patients")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Store.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid store.base_url %q", c.Store.BaseURL)
	}
	if c.Store.RequestTimeout < 0 {
		return fmt.Errorf("store.request_timeout must not be negative")
	}
	if c.Store.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("store.rate_limit.requests_per_second must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}
