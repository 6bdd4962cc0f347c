// Package config loads the configuration of the servicestatus command.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// EnvPrefix prefixes the environment variables overriding configuration keys,
// e.g. SERVICESTATUS_REGISTRY_REQUEST_TIMEOUT.
const EnvPrefix = "SERVICESTATUS"

type Config struct {
	Registry  RegistryConfig  `mapstructure:"registry"`
	Log       LogConfig       `mapstructure:"log"`
	Publisher PublisherConfig `mapstructure:"publisher"`
}

type RegistryConfig struct {
	Name           string        `mapstructure:"name"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type PublisherConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interval       time.Duration `mapstructure:"interval"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password"`
	RedisDB        int           `mapstructure:"redis_db"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	Channel        string        `mapstructure:"channel"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Registry: RegistryConfig{
			Name:           "servicestatus",
			RequestTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Publisher: PublisherConfig{
			Interval:       time.Second,
			RedisAddr:      "localhost:6379",
			KeyPrefix:      "servicestatus",
			Channel:        "servicestatus.snapshots",
			ConnectTimeout: 30 * time.Second,
			RetryInterval:  2 * time.Second,
		},
	}
}

// Load reads the configuration file at path, if any, on top of the defaults.
// Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, xerrors.Errorf("load config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, xerrors.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("registry.name", d.Registry.Name)
	v.SetDefault("registry.request_timeout", d.Registry.RequestTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("publisher.enabled", d.Publisher.Enabled)
	v.SetDefault("publisher.interval", d.Publisher.Interval)
	v.SetDefault("publisher.redis_addr", d.Publisher.RedisAddr)
	v.SetDefault("publisher.redis_password", d.Publisher.RedisPassword)
	v.SetDefault("publisher.redis_db", d.Publisher.RedisDB)
	v.SetDefault("publisher.key_prefix", d.Publisher.KeyPrefix)
	v.SetDefault("publisher.channel", d.Publisher.Channel)
	v.SetDefault("publisher.connect_timeout", d.Publisher.ConnectTimeout)
	v.SetDefault("publisher.retry_interval", d.Publisher.RetryInterval)
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Registry.Name == "" {
		return xerrors.New("registry.name must be set")
	}
	if c.Registry.RequestTimeout <= 0 {
		return xerrors.Errorf("registry.request_timeout must be > 0, got %v", c.Registry.RequestTimeout)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return xerrors.Errorf("log.level: %w", err)
	}
	if c.Publisher.Enabled {
		if c.Publisher.Interval <= 0 {
			return xerrors.Errorf("publisher.interval must be > 0, got %v", c.Publisher.Interval)
		}
		if c.Publisher.RedisAddr == "" {
			return xerrors.New("publisher.redis_addr must be set")
		}
		if c.Publisher.ConnectTimeout <= 0 || c.Publisher.RetryInterval <= 0 {
			return xerrors.New("publisher.connect_timeout and publisher.retry_interval must be > 0")
		}
	}
	return nil
}

// NewLogger builds the zap logger described by the log configuration.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, xerrors.Errorf("log.level: %w", err)
	}
	zapCfg := zap.NewProductionConfig()
	if c.Log.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level
	return zapCfg.Build()
}
