package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "atscheck/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "json", cfg.App.DefaultFormat)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.App.MaxFileSize)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.Equal(t, DefaultExtractorConfig(), cfg.Extractor)
	assert.Equal(t, DefaultPreviewChars, cfg.Analysis.PreviewChars)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  logLevel: DEBUG
  defaultFormat: markdown
server:
  port: "9000"
extractor:
  maxPages: 3
  highFidelity: false
analysis:
  previewChars: 200
`), 0o600))

	cfg, err := LoadConfig(Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "markdown", cfg.App.DefaultFormat)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Extractor.MaxPages)
	assert.False(t, cfg.Extractor.HighFidelity)
	assert.Equal(t, 200, cfg.Analysis.PreviewChars)
	assert.Equal(t, DefaultMinPrimaryChars, cfg.Extractor.MinPrimaryChars, "unset keys keep defaults")
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9000\"\n"), 0o600))
	t.Setenv("ATSCHECK_SERVER_PORT", "7070")
	t.Setenv("ATSCHECK_EXTRACTOR_MAXPAGES", "4")

	cfg, err := LoadConfig(Options{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Extractor.MaxPages)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ATSCHECK_ANALYSIS_PREVIEWCHARS=321\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("ATSCHECK_ANALYSIS_PREVIEWCHARS") })

	cfg, err := LoadConfig(Options{
		ConfigFile: writeEmptyConfig(t, dir),
		EnvFile:    envFile,
	})
	require.NoError(t, err)
	assert.Equal(t, 321, cfg.Analysis.PreviewChars)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Setenv("ATSCHECK_APP_LOGLEVEL", "loud")

	_, err := LoadConfig(Options{ConfigFile: writeEmptyConfig(t, t.TempDir())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LogLevel")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero pages", func(c *Config) { c.Extractor.MaxPages = 0 }, "MaxPages"},
		{"bad threshold", func(c *Config) { c.Extractor.CircuitBreaker.FailureThreshold = 1.5 }, "FailureThreshold"},
		{"bad format", func(c *Config) { c.App.DefaultFormat = "xml" }, "DefaultFormat"},
		{"bad port", func(c *Config) { c.Server.Port = "http" }, "Port"},
		{"tls without files", func(c *Config) { c.Server.TLS.Mode = "server" }, "TLS configuration error"},
		{"prometheus without port", func(c *Config) { c.Observability.Prometheus.Port = "" }, "prometheus port"},
		{"bad otlp endpoint", func(c *Config) { c.Observability.OTLP.Endpoint = "not a url" }, "Endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidConfig))
		})
	}
}

func writeEmptyConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  host: localhost\n"), 0o600))
	return path
}
