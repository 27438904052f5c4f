package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresProjectURL(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
read_timeout: 30s
supabase:
  project_url: https://abc.supabase.co
  anon_key: anon
rate_limit:
  requests_per_minute: 10
  burst: 2
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "https://abc.supabase.co", cfg.Supabase.ProjectURL)
	assert.Equal(t, 10, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 2, cfg.RateLimit.Burst)

	// Untouched fields keep their defaults.
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.OpenAIBaseURL)
	assert.NotZero(t, cfg.MaxBodyBytes)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
supabase:
  project_url: https://file.supabase.co
`), 0o600))

	t.Setenv("SUPABASE_URL", "https://env.supabase.co")
	t.Setenv("PORT", "7777")
	t.Setenv("RATE_LIMIT_RPM", "42")
	t.Setenv("ALLOWED_ORIGINS", "https://app.caredraft.co.uk, https://staging.caredraft.co.uk")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.supabase.co", cfg.Supabase.ProjectURL)
	assert.Equal(t, ":7777", cfg.Addr)
	assert.Equal(t, 42, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t,
		[]string{"https://app.caredraft.co.uk", "https://staging.caredraft.co.uk"},
		cfg.AllowedOrigins)
}

func TestMissingFileIsNotFatal(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://env.supabase.co")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
}
