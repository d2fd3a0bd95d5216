// Package config loads soxmon settings from a YAML file, SOXMON_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"soxmon/pkg/client"
	"soxmon/pkg/metrics"
	"soxmon/pkg/session"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	fileName  = "soxmon"
	envPrefix = "SOXMON"
)

// Flag names understood by Load.
const (
	FlagConfig   = "config"
	FlagServer   = "server"
	FlagTimeout  = "timeout"
	FlagStore    = "store"
	FlagPath     = "store-path"
	FlagLogLevel = "log-level"
	FlagDebug    = "debug"
)

var (
	ErrInvalid = errors.New("invalid configuration")

	validate = validator.New()

	flagKeys = map[string]string{
		FlagServer:   "server.url",
		FlagTimeout:  "server.timeout",
		FlagStore:    "session.backend",
		FlagPath:     "session.path",
		FlagLogLevel: "log.level",
	}
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// ServerConfig points at the monitoring backend.
type ServerConfig struct {
	URL          string        `mapstructure:"url" validate:"required,url"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RetryMax     int           `mapstructure:"retry_max" validate:"gte=0,lte=10"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min" validate:"gte=0"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max" validate:"gtefield=RetryWaitMin"`
}

// SessionConfig selects where the token is kept.
type SessionConfig struct {
	Backend       string        `mapstructure:"backend" validate:"oneof=memory file sqlite redis"`
	Path          string        `mapstructure:"path"`
	Key           string        `mapstructure:"key" validate:"required"`
	Passphrase    string        `mapstructure:"passphrase"`
	RedisAddr     string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"gte=0"`
	TTL           time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
}

type MetricsConfig struct {
	// Addr enables the /metrics endpoint in watch mode when set.
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gte=1s"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8000")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.retry_max", 0)
	v.SetDefault("server.retry_wait_min", time.Second)
	v.SetDefault("server.retry_wait_max", 30*time.Second)
	v.SetDefault("session.backend", session.BackendFile)
	v.SetDefault("session.path", "")
	v.SetDefault("session.key", session.DefaultKey)
	v.SetDefault("session.passphrase", "")
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.redis_password", "")
	v.SetDefault("session.redis_db", 0)
	v.SetDefault("session.ttl", time.Duration(0))
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("watch.interval", 30*time.Second)
}

// RegisterFlags adds the flags Load knows how to bind.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "config file (default soxmon.yaml in . or $HOME/.config/soxmon)")
	fs.String(FlagServer, "", "backend base URL")
	fs.Duration(FlagTimeout, 0, "per-request timeout")
	fs.String(FlagStore, "", "session store: memory, file, sqlite or redis")
	fs.String(FlagPath, "", "session file or database path")
	fs.String(FlagLogLevel, "", "log level")
	fs.Bool(FlagDebug, false, "shortcut for --log-level=debug")
}

// Load resolves the configuration. fs may be nil; flags only override when
// they were set explicitly.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", fileName))
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if fs != nil {
		if path, _ := fs.GetString(FlagConfig); path != "" {
			v.SetConfigFile(path)
		}
		for name, key := range flagKeys {
			if flag := fs.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("binding --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if fs != nil {
		if debug, _ := fs.GetBool(FlagDebug); debug {
			cfg.Log.Level = "debug"
		}
	}
	cfg.Session.Backend = strings.ToLower(cfg.Session.Backend)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &cfg, nil
}

// ClientOptions maps the server section onto the API client.
func (c *Config) ClientOptions(m *metrics.Metrics) client.Options {
	return client.Options{
		BaseURL:      c.Server.URL,
		Timeout:      c.Server.Timeout,
		RetryMax:     c.Server.RetryMax,
		RetryWaitMin: c.Server.RetryWaitMin,
		RetryWaitMax: c.Server.RetryWaitMax,
		Metrics:      m,
	}
}

// SessionOptions maps the session section onto session.Open.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		Backend:       c.Session.Backend,
		Path:          c.Session.Path,
		Key:           c.Session.Key,
		Passphrase:    c.Session.Passphrase,
		RedisAddr:     c.Session.RedisAddr,
		RedisPassword: c.Session.RedisPassword,
		RedisDB:       c.Session.RedisDB,
		TTL:           c.Session.TTL,
	}
}
