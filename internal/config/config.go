// Package config loads the beekeeper configuration from a YAML file and
// BEEKEEPER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/beekeeper-client/pkg/client"
	"github.com/Sternrassler/beekeeper-client/pkg/logging"
	"github.com/Sternrassler/beekeeper-client/pkg/pagination"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "beekeeper.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BEEKEEPER_"

// Config is the complete beekeeper configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	List     ListConfig     `yaml:"list"`
	Export   ExportConfig   `yaml:"export"`
	Server   ServerConfig   `yaml:"server"`
	Settings SettingsConfig `yaml:"settings"`
}

// APIConfig configures the blog API client.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	UserAgent      string        `yaml:"user_agent" validate:"required"`
	AuthToken      string        `yaml:"auth_token"`
	UserID         int64         `yaml:"user_id" validate:"gte=0"`
	RateLimit      int           `yaml:"rate_limit" validate:"gte=0,lte=1000"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxRetries     int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	InitialBackoff time.Duration `yaml:"initial_backoff" validate:"gte=0"`
}

// RedisConfig configures the optional shared cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0,lte=15"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error disabled"`
	Pretty bool   `yaml:"pretty"`
}

// ListConfig holds the list view defaults.
type ListConfig struct {
	PageSize        int `yaml:"page_size" validate:"gte=1,lte=100"`
	MaxVisiblePages int `yaml:"max_visible_pages" validate:"gte=1,lte=25"`
}

// ExportConfig configures the export command's batch fetcher.
type ExportConfig struct {
	Concurrency int           `yaml:"concurrency" validate:"gte=1,lte=32"`
	PageSize    int           `yaml:"page_size" validate:"gte=1,lte=100"`
	PageTimeout time.Duration `yaml:"page_timeout" validate:"gte=0"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// SettingsConfig configures the site settings service.
type SettingsConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	batch := pagination.DefaultConfig()
	return Config{
		API: APIConfig{
			BaseURL:    "http://localhost:8000",
			UserAgent:  "beekeeper/0.1.0",
			RateLimit:  10,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
		List: ListConfig{
			PageSize:        pagination.DefaultPageSize,
			MaxVisiblePages: pagination.DefaultMaxVisiblePages,
		},
		Export: ExportConfig{
			Concurrency: batch.MaxConcurrency,
			PageSize:    batch.PageSize,
			PageTimeout: batch.Timeout,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Settings: SettingsConfig{
			RefreshInterval: 5 * time.Minute,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path reads DefaultPath when it exists.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no config file; defaults and environment only
	default:
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envOverrides maps variable suffixes to setters.
var envOverrides = map[string]func(c *Config, v string) error{
	"API_BASE_URL":              func(c *Config, v string) error { c.API.BaseURL = v; return nil },
	"API_USER_AGENT":            func(c *Config, v string) error { c.API.UserAgent = v; return nil },
	"API_AUTH_TOKEN":            func(c *Config, v string) error { c.API.AuthToken = v; return nil },
	"API_USER_ID":               func(c *Config, v string) error { return setInt64(&c.API.UserID, v) },
	"API_RATE_LIMIT":            func(c *Config, v string) error { return setInt(&c.API.RateLimit, v) },
	"API_TIMEOUT":               func(c *Config, v string) error { return setDuration(&c.API.Timeout, v) },
	"API_MAX_RETRIES":           func(c *Config, v string) error { return setInt(&c.API.MaxRetries, v) },
	"API_INITIAL_BACKOFF":       func(c *Config, v string) error { return setDuration(&c.API.InitialBackoff, v) },
	"REDIS_ADDR":                func(c *Config, v string) error { c.Redis.Addr = v; return nil },
	"REDIS_PASSWORD":            func(c *Config, v string) error { c.Redis.Password = v; return nil },
	"REDIS_DB":                  func(c *Config, v string) error { return setInt(&c.Redis.DB, v) },
	"LOG_LEVEL":                 func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil },
	"LOG_PRETTY":                func(c *Config, v string) error { return setBool(&c.Log.Pretty, v) },
	"LIST_PAGE_SIZE":            func(c *Config, v string) error { return setInt(&c.List.PageSize, v) },
	"LIST_MAX_VISIBLE_PAGES":    func(c *Config, v string) error { return setInt(&c.List.MaxVisiblePages, v) },
	"EXPORT_CONCURRENCY":        func(c *Config, v string) error { return setInt(&c.Export.Concurrency, v) },
	"EXPORT_PAGE_SIZE":          func(c *Config, v string) error { return setInt(&c.Export.PageSize, v) },
	"EXPORT_PAGE_TIMEOUT":       func(c *Config, v string) error { return setDuration(&c.Export.PageTimeout, v) },
	"SERVER_ADDR":               func(c *Config, v string) error { c.Server.Addr = v; return nil },
	"SERVER_SHUTDOWN_TIMEOUT":   func(c *Config, v string) error { return setDuration(&c.Server.ShutdownTimeout, v) },
	"SETTINGS_REFRESH_INTERVAL": func(c *Config, v string) error { return setDuration(&c.Settings.RefreshInterval, v) },
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for suffix, set := range envOverrides {
		v, ok := lookup(EnvPrefix + suffix)
		if !ok {
			continue
		}
		if err := set(c, v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, suffix, err)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, v string) error {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report yaml names (api.base_url) instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field constraint and reports all violations.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "Config.api.base_url"; drop the root type.
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", field, rule, fe.Value()))
	}
	return fmt.Errorf("config validation: %s", strings.Join(msgs, "; "))
}

// ClientConfig returns the blog client configuration. redisClient may be nil.
func (c Config) ClientConfig(redisClient *redis.Client) client.Config {
	return client.Config{
		BaseURL:        c.API.BaseURL,
		Redis:          redisClient,
		UserAgent:      c.API.UserAgent,
		AuthToken:      c.API.AuthToken,
		UserID:         c.API.UserID,
		RateLimit:      c.API.RateLimit,
		Timeout:        c.API.Timeout,
		MaxRetries:     c.API.MaxRetries,
		InitialBackoff: c.API.InitialBackoff,
	}
}

// RedisOptions returns the Redis connection options, nil when Redis is
// not configured.
func (c Config) RedisOptions() *redis.Options {
	if c.Redis.Addr == "" {
		return nil
	}
	return &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// LoggingConfig returns the zerolog configuration.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// BatchConfig returns the export batch fetcher configuration.
func (c Config) BatchConfig() pagination.Config {
	return pagination.Config{
		MaxConcurrency: c.Export.Concurrency,
		Timeout:        c.Export.PageTimeout,
		PageSize:       c.Export.PageSize,
	}
}
