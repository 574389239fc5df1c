package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray .env or
// ytt.yaml is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{"API_KEY_1", "API_KEY_2", "API_KEY_3", "GEMINI_API_KEY", "GEMINI_MODEL", "OVERWRITE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.YouTube.APIKeys)
	assert.Equal(t, 3, cfg.YouTube.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.YouTube.Timeout)
	assert.Equal(t, time.Minute, cfg.Filter.MinDuration)
	assert.Equal(t, "it", cfg.Transcript.Primary)
	assert.Equal(t, "en", cfg.Transcript.Secondary)
	assert.Equal(t, 7, cfg.Recent.Days)
	assert.Equal(t, Transcript{Primary: "en", Secondary: "it"}, cfg.Recent.Transcript)
	assert.Equal(t, "yt-channels", cfg.Output.ChannelsDir)
	assert.False(t, cfg.Summary.Enabled)
}

func TestLoadNumberedKeysAndLegacyEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv("API_KEY_1", "k1")
	t.Setenv("API_KEY_2", "k2")
	t.Setenv("API_KEY_4", "ignored after gap")
	t.Setenv("YTT_YOUTUBE_API_KEYS", "k0,k1")
	t.Setenv("GEMINI_API_KEY", "g1")
	t.Setenv("GEMINI_MODEL", "gemini-exp-1206")
	t.Setenv("OVERWRITE", "true")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"k0", "k1", "k2"}, cfg.YouTube.APIKeys)
	assert.Equal(t, "g1", cfg.Summary.APIKey)
	assert.Equal(t, "gemini-exp-1206", cfg.Summary.Model)
	assert.True(t, cfg.Output.Overwrite)
}

func TestLoadDotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("API_KEY_1=from-dotenv\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("API_KEY_1") })

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"from-dotenv"}, cfg.YouTube.APIKeys)
}

func TestLoadConfigFileAndFlags(t *testing.T) {
	dir := inTempDir(t)
	file := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
youtube:
  api_keys: [a, b]
  timeout: 10s
recent:
  days: 3
  transcript:
    primary: fr
summary:
  provider: openai
  api_key: sk
`), 0600))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("days", 7, "")
	flags.Bool("summarize", false, "")
	require.NoError(t, flags.Parse([]string{"--days=14", "--summarize"}))

	cfg, err := Load(file, flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cfg.YouTube.APIKeys)
	assert.Equal(t, 10*time.Second, cfg.YouTube.Timeout)
	assert.Equal(t, 14, cfg.Recent.Days, "flag overrides file")
	assert.Equal(t, Transcript{Primary: "fr", Secondary: "it"}, cfg.Recent.Transcript)
	assert.True(t, cfg.Summary.Enabled)
	assert.Equal(t, "openai", cfg.Summary.Provider)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := inTempDir(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			YouTube:    YouTube{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: time.Minute, Timeout: time.Second},
			Transcript: Transcript{Primary: "it"},
			Recent:     Recent{Days: 7, Transcript: Transcript{Primary: "en"}},
			Summary:    Summary{Provider: "gemini", Model: "m", APIKey: "k", MaxAttempts: 1, Timeout: time.Second},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero attempts", func(c *Config) { c.YouTube.MaxAttempts = 0 }},
		{"backoff inverted", func(c *Config) { c.YouTube.MaxBackoff = time.Millisecond }},
		{"no timeout", func(c *Config) { c.YouTube.Timeout = 0 }},
		{"no primary language", func(c *Config) { c.Transcript.Primary = "" }},
		{"zero days", func(c *Config) { c.Recent.Days = 0 }},
		{"no recent primary language", func(c *Config) { c.Recent.Transcript.Primary = "" }},
		{"summary without key", func(c *Config) { c.Summary.Enabled = true; c.Summary.APIKey = "" }},
		{"unknown provider", func(c *Config) { c.Summary.Enabled = true; c.Summary.Provider = "claude" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSummaryKeys(t *testing.T) {
	c := &Config{Summary: Summary{APIKey: "a", FallbackKeys: []string{"b", "a", " c "}}}
	assert.Equal(t, []string{"a", "b", "c"}, c.SummaryKeys())
}
