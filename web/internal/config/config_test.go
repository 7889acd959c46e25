package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
	"github.com/afrinbhuiyan/sales-dashboard/internal/tokenstore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "web.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, salesapi.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, tokenstore.BackendMemory, cfg.TokenStore.Backend)
	assert.Equal(t, 500, cfg.Chart.Limit)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
}

func TestLoadFileWithEnvExpansion(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TEST_SALES_HOST", "sales.internal")

	path := writeConfig(t, `
server:
  port: 9090
api:
  base_url: https://${TEST_SALES_HOST}
  page_size: 20
  timeout: 5s
  max_retries: 2
rate_limit:
  requests_per_second: 1
  burst: 2
notice: "**Maintenance** tonight"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://sales.internal", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "**Maintenance** tonight", cfg.Notice)

	opts := cfg.API.ClientOptions()
	assert.Equal(t, 20, opts.PageSize)
	assert.Equal(t, 2, opts.MaxRetries)
	assert.Equal(t, salesapi.DefaultTokenType, opts.TokenType)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvBaseURL, "http://localhost:4000")
	t.Setenv(EnvSessionSecret, "c2VjcmV0")
	t.Setenv(EnvRedisAddr, "localhost:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000", cfg.API.BaseURL)
	assert.Equal(t, "c2VjcmV0", cfg.Session.Secret)
	assert.Equal(t, tokenstore.BackendRedis, cfg.TokenStore.Backend)
	assert.Equal(t, "localhost:6379", cfg.TokenStore.Redis.Address)
	assert.Equal(t, "salesdash:web", cfg.TokenStore.Redis.Prefix)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SALES_API_BASE_URL=http://dotenv.test\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv(EnvBaseURL) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.test", cfg.API.BaseURL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*WebServerConfig)
	}{
		{"port out of range", func(c *WebServerConfig) { c.Server.Port = 70000 }},
		{"relative base url", func(c *WebServerConfig) { c.API.BaseURL = "/sales" }},
		{"negative page size", func(c *WebServerConfig) { c.API.PageSize = -1 }},
		{"negative retries", func(c *WebServerConfig) { c.API.MaxRetries = -1 }},
		{"unknown backend", func(c *WebServerConfig) { c.TokenStore.Backend = "etcd" }},
		{"redis without address", func(c *WebServerConfig) { c.TokenStore.Backend = tokenstore.BackendRedis }},
		{"negative rate", func(c *WebServerConfig) { c.RateLimit.RequestsPerSecond = -1 }},
		{"zero burst", func(c *WebServerConfig) { c.RateLimit.Burst = 0 }},
		{"zero chart limit", func(c *WebServerConfig) { c.Chart.Limit = 0 }},
	}

	require.NoError(t, validate(Default()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, validate(cfg))
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
