package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes(nil)
	require.NoError(t, err)

	assert.Equal(t, "xbl-client", cfg.App.Name)
	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, 20*time.Second, cfg.HTTP.TimeoutWindow)
	assert.Equal(t, 2*time.Second, cfg.HTTP.RetryDelayBase)
	assert.Equal(t, 30*time.Second, cfg.HTTP.AttemptTimeout)
	assert.Equal(t, SandboxRetail, cfg.HTTP.Sandbox)
	assert.Equal(t, "en-US", cfg.HTTP.Locale)
	assert.Equal(t, AuthHeaderFormatXBL3, cfg.HTTP.AuthHeaderFormat)
	assert.False(t, cfg.HTTP.DisableThrottleAsserts)
	assert.False(t, cfg.HTTP.IsDevSandbox())
	assert.Empty(t, cfg.HTTP.Pacing)

	assert.False(t, cfg.Observability.Enabled)
	assert.Equal(t, "stdout", cfg.Observability.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.Observability.ExportInterval)
}

func TestLoadFromBytesOverrides(t *testing.T) {
	content := []byte(`
app:
  name: achievements-sync
  env: staging
http:
  timeoutwindow: 45s
  retrydelaybase: 3s
  sandbox: XDKS.1
  locale: fr-CA
  authheaderformat: bare
  disablethrottleasserts: true
  pacing:
    achievements:
      rate: 2.5
      burst: 5
`)

	cfg, err := LoadFromBytes(content)
	require.NoError(t, err)

	assert.Equal(t, "achievements-sync", cfg.App.Name)
	assert.Equal(t, EnvStaging, cfg.App.Env)
	assert.Equal(t, 45*time.Second, cfg.HTTP.TimeoutWindow)
	assert.Equal(t, 3*time.Second, cfg.HTTP.RetryDelayBase)
	assert.Equal(t, "XDKS.1", cfg.HTTP.Sandbox)
	assert.True(t, cfg.HTTP.IsDevSandbox())
	assert.Equal(t, "fr-CA", cfg.HTTP.Locale)
	assert.Equal(t, AuthHeaderFormatBare, cfg.HTTP.AuthHeaderFormat)
	assert.True(t, cfg.HTTP.DisableThrottleAsserts)

	require.Contains(t, cfg.HTTP.Pacing, "achievements")
	assert.InDelta(t, 2.5, cfg.HTTP.Pacing["achievements"].Rate, 0.0001)
	assert.Equal(t, 5, cfg.HTTP.Pacing["achievements"].Burst)
}

func TestLoadFromBytesValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{name: "retry_base_below_one_second", content: "http:\n  retrydelaybase: 500ms\n", field: "http.retrydelaybase"},
		{name: "unknown_auth_format", content: "http:\n  authheaderformat: basic\n", field: "http.authheaderformat"},
		{name: "bad_environment", content: "app:\n  env: qa\n", field: "app.env"},
		{name: "bad_locale", content: "http:\n  locale: \"!!\"\n", field: "http.locale"},
		{name: "pacing_without_burst", content: "http:\n  pacing:\n    social:\n      rate: 1\n", field: "http.pacing[social].burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.content))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "invalid", cfgErr.Category)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestLoadFromBytesMalformedYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("http: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadFilePriority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  env: staging\nhttp:\n  timeoutwindow: 30s\n  sandbox: XDKS.1\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte("http:\n  locale: de-DE\n"), 0o600))

	t.Setenv("XBL_HTTP_TIMEOUTWINDOW", "40s")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 40*time.Second, cfg.HTTP.TimeoutWindow, "env overrides file")
	assert.Equal(t, "XDKS.1", cfg.HTTP.Sandbox, "file overrides defaults")
	assert.Equal(t, "de-DE", cfg.HTTP.Locale, "environment overlay file is applied")
	assert.Equal(t, 2*time.Second, cfg.HTTP.RetryDelayBase, "defaults fill the rest")
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, cfg.HTTP.TimeoutWindow)
}

func TestLoadReadsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("log:\n  level: debug\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvFileName(t *testing.T) {
	assert.Equal(t, "config.production.yaml", envFileName("config.yaml", "production"))
	assert.Equal(t, "/etc/xbl/client.staging.yml", envFileName("/etc/xbl/client.yml", "staging"))
}

func TestGetters(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("custom:\n  title: halo\n  retries: 3\n  verbose: true\n  grace: 1500ms\n"))
	require.NoError(t, err)

	assert.Equal(t, "halo", cfg.GetString("custom.title"))
	assert.Equal(t, "fallback", cfg.GetString("custom.missing", "fallback"))
	assert.Equal(t, 3, cfg.GetInt("custom.retries"))
	assert.Equal(t, 7, cfg.GetInt("custom.missing", 7))
	assert.True(t, cfg.GetBool("custom.verbose"))
	assert.Equal(t, 1500*time.Millisecond, cfg.GetDuration("custom.grace"))
	assert.Equal(t, time.Second, cfg.GetDuration("custom.missing", time.Second))
	assert.True(t, cfg.Exists("http.sandbox"))
	assert.NotEmpty(t, cfg.All())

	v, err := cfg.GetRequiredString("custom.title")
	require.NoError(t, err)
	assert.Equal(t, "halo", v)

	_, err = cfg.GetRequiredString("custom.endpoint")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "missing", cfgErr.Category)
	assert.Contains(t, err.Error(), "XBL_CUSTOM_ENDPOINT")

	var section map[string]any
	require.NoError(t, cfg.Unmarshal("custom", &section))
	assert.Equal(t, "halo", section["title"])
}

func TestNilConfigGetters(t *testing.T) {
	var cfg *Config
	assert.Equal(t, "x", cfg.GetString("a", "x"))
	assert.False(t, cfg.Exists("a"))
	assert.Nil(t, cfg.All())
	_, err := cfg.GetRequiredString("a")
	assert.Error(t, err)
	assert.Error(t, cfg.Unmarshal("a", &struct{}{}))
}

func TestConfigErrorFormatting(t *testing.T) {
	err := NewValidationError("http.sandbox", "is required")
	assert.Equal(t, "config_invalid: http.sandbox is required", err.Error())
}
