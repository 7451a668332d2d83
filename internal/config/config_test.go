package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestDefaults_MatchDocumentedValues(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "svg-render-service", cfg.Storage.Bucket)
	assert.Equal(t, time.Hour, cfg.Storage.SignedURLTTL)
	assert.Equal(t, 24*time.Hour, cfg.Retention.PruneAfter)
	assert.Equal(t, 512, cfg.Render.MinOutputWidth)
	assert.Equal(t, 4096, cfg.Render.MaxOutputWidth)
	assert.Equal(t, 4096, cfg.Render.MaxOutputHeight)
	assert.Equal(t, int64(5242880), cfg.Fetch.MaxSVGBytes)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, PruneInline, cfg.Retention.Mode)
	assert.Equal(t, EngineOKSVG, cfg.Render.Engine)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("API_KEY", "secret")
	t.Setenv("BUCKET_NAME", "other-bucket")
	t.Setenv("SIGNED_URL_TTL_SECONDS", "60")
	t.Setenv("PRUNE_AFTER_SECONDS", "120")
	t.Setenv("MIN_OUTPUT_WIDTH", "256")
	t.Setenv("MAX_SVG_BYTES", "1024")
	t.Setenv("SVG_FETCH_TIMEOUT_SECONDS", "3")
	t.Setenv("STORAGE_USE_SSL", "false")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Server.APIKey)
	assert.Equal(t, "other-bucket", cfg.Storage.Bucket)
	assert.Equal(t, time.Minute, cfg.Storage.SignedURLTTL)
	assert.Equal(t, 2*time.Minute, cfg.Retention.PruneAfter)
	assert.Equal(t, 256, cfg.Render.MinOutputWidth)
	assert.Equal(t, int64(1024), cfg.Fetch.MaxSVGBytes)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.False(t, cfg.Storage.UseSSL)
	assert.Equal(t, 30*time.Second, cfg.RateLimiter.Window)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFrom_YAMLThenEnv(t *testing.T) {
	p := writeConfig(t, `server:
  port: ":9000"
  api_key: "from-file"
render:
  engine: chrome
  max_output_width: 2048
storage:
  backend: memory
  signed_url_ttl: 15m
`)
	t.Setenv("API_KEY", "from-env")

	cfg, err := LoadFrom(p)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Server.APIKey)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, EngineChrome, cfg.Render.Engine)
	assert.Equal(t, 2048, cfg.Render.MaxOutputWidth)
	assert.Equal(t, 512, cfg.Render.MinOutputWidth)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Storage.SignedURLTTL)
}

func TestLoad_UsesConfigPathEnv(t *testing.T) {
	p := writeConfig(t, "storage:\n  bucket: env-bucket\n")
	t.Setenv("CONFIG_PATH", p)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-bucket", cfg.Storage.Bucket)
}

func TestLoadFrom_InvalidNumbers(t *testing.T) {
	t.Setenv("MAX_SVG_BYTES", "lots")
	t.Setenv("PRUNE_AFTER_SECONDS", "soon")

	_, err := LoadFrom("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_SVG_BYTES")
	assert.Contains(t, err.Error(), "PRUNE_AFTER_SECONDS")
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	valid.Server.APIKey = "k"

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing api key", func(c *Config) { c.Server.APIKey = "" }},
		{"min above max", func(c *Config) { c.Render.MinOutputWidth = 5000 }},
		{"zero max bytes", func(c *Config) { c.Fetch.MaxSVGBytes = 0 }},
		{"unknown engine", func(c *Config) { c.Render.Engine = "cairo" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "gcs" }},
		{"unknown prune mode", func(c *Config) { c.Retention.Mode = "cron" }},
		{"zero ttl", func(c *Config) { c.Storage.SignedURLTTL = 0 }},
		{"negative rate limit", func(c *Config) { c.RateLimiter.Max = -1 }},
	}

	require.NoError(t, valid.Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateOffline_IgnoresAPIKey(t *testing.T) {
	cfg := Defaults()
	assert.Error(t, cfg.Validate())
	assert.NoError(t, cfg.ValidateOffline())

	cfg.Render.Engine = "cairo"
	assert.Error(t, cfg.ValidateOffline())
}
