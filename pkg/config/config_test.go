package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "development", cfg.Server.Environment)
	require.Equal(t, 100, cfg.RateLimit.RequestsPerMinute)
	require.Equal(t, 5000, cfg.Translation.MaxTextLength)
	require.Len(t, cfg.Translation.SupportedLanguages, 12)
	require.Equal(t, 10, cfg.Backend.RequestTimeout)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "polyglotd.yaml")
	data := []byte(`
server:
  port: 9090
  environment: staging
auth:
  api_keys: ["k1", "k2"]
rate_limit:
  requests_per_minute: 25
translation:
  max_text_length: 1000
  supported_languages: ["en", "es"]
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "staging", cfg.Server.Environment)
	require.Equal(t, []string{"k1", "k2"}, cfg.Auth.APIKeys)
	require.Equal(t, 25, cfg.RateLimit.RequestsPerMinute)
	require.Equal(t, 1000, cfg.Translation.MaxTextLength)
	require.Equal(t, []string{"en", "es"}, cfg.Translation.SupportedLanguages)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POLYGLOTD_API_KEYS", "a, b ,c")
	t.Setenv("POLYGLOTD_RATE_LIMIT_PER_MINUTE", "7")
	t.Setenv("POLYGLOTD_ENVIRONMENT", "production")
	t.Setenv("POLYGLOTD_PORT", "8443")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, cfg.Auth.APIKeys)
	require.Equal(t, 7, cfg.RateLimit.RequestsPerMinute)
	require.Equal(t, "production", cfg.Server.Environment)
	require.Equal(t, 8443, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.ErrorIs(t, cfg.Validate(), ErrMissingAPIKeys)

	cfg.Auth.APIKeys = []string{"key"}
	cfg.Backend.URL = ""
	require.ErrorIs(t, cfg.Validate(), ErrMissingBackendURL)

	cfg.Backend.URL = "http://localhost:5000"
	cfg.Backend.RequestTimeout = -1
	cfg.RateLimit.RequestsPerMinute = 0
	cfg.Tracing.SampleRatio = 7
	require.NoError(t, cfg.Validate())
	require.Equal(t, 10, cfg.Backend.RequestTimeout)
	require.Equal(t, 100, cfg.RateLimit.RequestsPerMinute)
	require.Equal(t, float64(1), cfg.Tracing.SampleRatio)
}
