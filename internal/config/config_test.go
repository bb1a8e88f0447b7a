package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/beekeeper-client/pkg/logging"
	"github.com/Sternrassler/beekeeper-client/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beekeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.List.PageSize)
	assert.Equal(t, 5, cfg.List.MaxVisiblePages)
	assert.Nil(t, cfg.RedisOptions())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://blog.example.com
  user_agent: test-agent/1.0
  auth_token: secret
  timeout: 5s
  max_retries: 2
redis:
  addr: localhost:6379
  db: 3
log:
  level: debug
  pretty: true
list:
  page_size: 20
`)

	cfg, err := load(path, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "https://blog.example.com", cfg.API.BaseURL)
	assert.Equal(t, "test-agent/1.0", cfg.API.UserAgent)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2, cfg.API.MaxRetries)
	assert.Equal(t, 20, cfg.List.PageSize)
	// untouched keys keep their defaults
	assert.Equal(t, 5, cfg.List.MaxVisiblePages)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	opts := cfg.RedisOptions()
	require.NotNil(t, opts)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)

	logCfg := cfg.LoggingConfig()
	assert.Equal(t, logging.LevelDebug, logCfg.Level)
	assert.True(t, logCfg.Pretty)

	clientCfg := cfg.ClientConfig(nil)
	assert.Equal(t, "secret", clientCfg.AuthToken)
	assert.Equal(t, 2, clientCfg.MaxRetries)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_NoDefaultFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := load("", noEnv)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "api: [unclosed")
	_, err := load(path, noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "api:\n  base_url: https://file.example.com\n")

	cfg, err := load(path, envMap(map[string]string{
		"BEEKEEPER_API_BASE_URL":              "https://env.example.com",
		"BEEKEEPER_API_RATE_LIMIT":            "0",
		"BEEKEEPER_API_INITIAL_BACKOFF":       "250ms",
		"BEEKEEPER_LOG_LEVEL":                 "WARN",
		"BEEKEEPER_REDIS_ADDR":                "redis:6379",
		"BEEKEEPER_LIST_MAX_VISIBLE_PAGES":    "7",
		"BEEKEEPER_EXPORT_CONCURRENCY":        "8",
		"BEEKEEPER_EXPORT_PAGE_SIZE":          "25",
		"BEEKEEPER_EXPORT_PAGE_TIMEOUT":       "5s",
		"BEEKEEPER_SERVER_SHUTDOWN_TIMEOUT":   "3s",
		"BEEKEEPER_SETTINGS_REFRESH_INTERVAL": "1m",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
	assert.Equal(t, 0, cfg.API.RateLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.API.InitialBackoff)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 7, cfg.List.MaxVisiblePages)
	assert.Equal(t, pagination.Config{MaxConcurrency: 8, PageSize: 25, Timeout: 5 * time.Second}, cfg.BatchConfig())
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, time.Minute, cfg.Settings.RefreshInterval)
}

func TestEnvOverrides_CoverEveryField(t *testing.T) {
	root := reflect.TypeOf(Config{})
	for i := 0; i < root.NumField(); i++ {
		section := root.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			key := section.Type.Field(j).Tag.Get("yaml")
			name := strings.ToUpper(section.Tag.Get("yaml") + "_" + key)
			assert.Contains(t, envOverrides, name, "no %s%s override", EnvPrefix, name)
		}
	}
}

func TestLoad_EnvParseError(t *testing.T) {
	_, err := load(writeConfig(t, ""), envMap(map[string]string{
		"BEEKEEPER_API_MAX_RETRIES": "many",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BEEKEEPER_API_MAX_RETRIES")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url"},
		{"malformed base url", func(c *Config) { c.API.BaseURL = "not a url" }, "api.base_url"},
		{"missing user agent", func(c *Config) { c.API.UserAgent = "" }, "api.user_agent"},
		{"negative rate limit", func(c *Config) { c.API.RateLimit = -1 }, "api.rate_limit"},
		{"too many retries", func(c *Config) { c.API.MaxRetries = 11 }, "api.max_retries"},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"zero page size", func(c *Config) { c.List.PageSize = 0 }, "list.page_size"},
		{"redis addr without port", func(c *Config) { c.Redis.Addr = "localhost" }, "redis.addr"},
		{"zero export concurrency", func(c *Config) { c.Export.Concurrency = 0 }, "export.concurrency"},
		{"empty server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "config validation: "))
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	cfg := Default()
	cfg.API.UserAgent = ""
	cfg.List.PageSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.user_agent")
	assert.Contains(t, err.Error(), "list.page_size")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir on older toolchains).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("chdir: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("chdir: restoring %s: %v", wd, err)
		}
	})
}
