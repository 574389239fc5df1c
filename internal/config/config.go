// Package config loads ytt configuration from flags, environment, an
// optional config file and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/n2p5/ytt/internal/quota"
)

// ErrNoYouTubeCredentials is returned when neither API keys nor an OAuth
// token are configured.
var ErrNoYouTubeCredentials = errors.New("no YouTube API credentials configured (set API_KEY_1, API_KEY_2, ... or YTT_YOUTUBE_API_KEYS)")

// maxNumberedKeys bounds the API_KEY_n scan.
const maxNumberedKeys = 100

// Config holds all application configuration.
type Config struct {
	YouTube    YouTube       `mapstructure:"youtube"`
	Summary    Summary       `mapstructure:"summary"`
	Transcript Transcript    `mapstructure:"transcript"`
	Filter     Filter        `mapstructure:"filter"`
	Output     Output        `mapstructure:"output"`
	Inputs     Inputs        `mapstructure:"inputs"`
	Recent     Recent        `mapstructure:"recent"`
	Pace       time.Duration `mapstructure:"pace"`
	Debug      bool          `mapstructure:"debug"`
}

// YouTube configures the Data API client.
type YouTube struct {
	APIKeys        []string      `mapstructure:"api_keys"`
	OAuthSecret    string        `mapstructure:"oauth_client_secret"`
	OAuthToken     string        `mapstructure:"oauth_token"`
	OAuthListen    string        `mapstructure:"oauth_listen"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Summary configures the summarization API.
type Summary struct {
	Enabled      bool          `mapstructure:"enabled"`
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	FallbackKeys []string      `mapstructure:"fallback_keys"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base_url"`
	PromptFile   string        `mapstructure:"prompt_file"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Transcript configures language preference.
type Transcript struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
}

// Filter configures shorts detection.
type Filter struct {
	MinDuration time.Duration `mapstructure:"min_duration"`
	Vertical    bool          `mapstructure:"vertical"`
	Hashtags    bool          `mapstructure:"hashtags"`
}

// Output configures artifact locations.
type Output struct {
	ChannelsDir  string `mapstructure:"channels_dir"`
	PlaylistsDir string `mapstructure:"playlists_dir"`
	RecentDir    string `mapstructure:"recent_dir"`
	Overwrite    bool   `mapstructure:"overwrite"`
}

// Inputs locates the list files used by the recent mode.
type Inputs struct {
	Channels  string `mapstructure:"channels"`
	Playlists string `mapstructure:"playlists"`
}

// Recent configures the trailing window mode. Its transcript languages are
// separate from the channel and playlist modes.
type Recent struct {
	Days       int        `mapstructure:"days"`
	Transcript Transcript `mapstructure:"transcript"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("youtube.api_keys", []string{})
	v.SetDefault("summary.api_key", "")
	v.SetDefault("summary.fallback_keys", []string{})
	v.SetDefault("summary.base_url", "")

	v.SetDefault("youtube.oauth_client_secret", "secrets/oauth.json")
	v.SetDefault("youtube.oauth_token", "secrets/token.json")
	v.SetDefault("youtube.oauth_listen", "localhost:8080")
	v.SetDefault("youtube.max_attempts", 3)
	v.SetDefault("youtube.initial_backoff", time.Second)
	v.SetDefault("youtube.max_backoff", 30*time.Second)
	v.SetDefault("youtube.timeout", 30*time.Second)

	v.SetDefault("summary.enabled", false)
	v.SetDefault("summary.provider", "gemini")
	v.SetDefault("summary.model", "gemini-2.5-flash")
	v.SetDefault("summary.prompt_file", "prompt.txt")
	v.SetDefault("summary.max_attempts", 3)
	v.SetDefault("summary.timeout", 120*time.Second)

	v.SetDefault("transcript.primary", "it")
	v.SetDefault("transcript.secondary", "en")

	v.SetDefault("filter.min_duration", 60*time.Second)
	v.SetDefault("filter.vertical", true)
	v.SetDefault("filter.hashtags", false)

	v.SetDefault("output.channels_dir", "yt-channels")
	v.SetDefault("output.playlists_dir", "yt-playlists")
	v.SetDefault("output.recent_dir", "yt-lastweek")
	v.SetDefault("output.overwrite", false)

	v.SetDefault("inputs.channels", "channels.txt")
	v.SetDefault("inputs.playlists", "playlists.yaml")

	v.SetDefault("recent.days", 7)
	v.SetDefault("recent.transcript.primary", "en")
	v.SetDefault("recent.transcript.secondary", "it")
	v.SetDefault("pace", time.Second)
	v.SetDefault("debug", false)
}

// bindEnv maps the legacy unprefixed variable names onto keys.
// YTT_ prefixed names work for every key through AutomaticEnv.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("YTT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("summary.api_key", "YTT_SUMMARY_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("summary.model", "YTT_SUMMARY_MODEL", "GEMINI_MODEL")
	_ = v.BindEnv("output.overwrite", "YTT_OUTPUT_OVERWRITE", "OVERWRITE")
}

// Load builds the configuration. Precedence: flags > env > config file >
// defaults. A .env file in the working directory is loaded into the
// environment first; existing variables win.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	bindEnv(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ytt")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/ytt")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.YouTube.APIKeys = mergeKeys(cfg.YouTube.APIKeys, numberedKeys("API_KEY_"))
	cfg.Summary.FallbackKeys = compact(cfg.Summary.FallbackKeys)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var flagKeys = map[string]string{
	"summarize":    "summary.enabled",
	"overwrite":    "output.overwrite",
	"days":         "recent.days",
	"min-duration": "filter.min_duration",
	"debug":        "debug",
	"provider":     "summary.provider",
	"model":        "summary.model",
	"prompt":       "summary.prompt_file",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return nil
}

// numberedKeys reads prefix1, prefix2, ... until the first gap.
func numberedKeys(prefix string) []string {
	var keys []string
	for i := 1; i <= maxNumberedKeys; i++ {
		k := strings.TrimSpace(os.Getenv(fmt.Sprintf("%s%d", prefix, i)))
		if k == "" {
			break
		}
		keys = append(keys, k)
	}
	return keys
}

// mergeKeys appends extra to keys, dropping blanks and duplicates while
// keeping first-seen order.
func mergeKeys(keys, extra []string) []string {
	return compact(append(append([]string(nil), keys...), extra...))
}

func compact(keys []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, k := range keys {
		for _, part := range strings.Split(k, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.YouTube.MaxAttempts < 1 {
		return fmt.Errorf("youtube.max_attempts must be at least 1")
	}
	if c.YouTube.InitialBackoff <= 0 || c.YouTube.MaxBackoff < c.YouTube.InitialBackoff {
		return fmt.Errorf("youtube backoff must satisfy 0 < initial_backoff <= max_backoff")
	}
	if c.YouTube.Timeout <= 0 {
		return fmt.Errorf("youtube.timeout must be positive")
	}
	if c.Transcript.Primary == "" {
		return fmt.Errorf("transcript.primary must be set")
	}
	if c.Recent.Transcript.Primary == "" {
		return fmt.Errorf("recent.transcript.primary must be set")
	}
	if c.Filter.MinDuration < 0 {
		return fmt.Errorf("filter.min_duration must be non-negative")
	}
	if c.Recent.Days < 1 {
		return fmt.Errorf("recent.days must be at least 1")
	}
	if c.Pace < 0 {
		return fmt.Errorf("pace must be non-negative")
	}
	if c.Summary.Enabled {
		switch c.Summary.Provider {
		case "gemini", "openai":
		default:
			return fmt.Errorf("summary.provider must be gemini or openai, got %q", c.Summary.Provider)
		}
		if c.Summary.APIKey == "" {
			return fmt.Errorf("summaries enabled but no summary API key (set GEMINI_API_KEY or YTT_SUMMARY_API_KEY)")
		}
		if c.Summary.Model == "" {
			return fmt.Errorf("summary.model must be set")
		}
		if c.Summary.MaxAttempts < 1 || c.Summary.Timeout <= 0 {
			return fmt.Errorf("summary.max_attempts and summary.timeout must be positive")
		}
	}
	return nil
}

// YouTubeQuota returns the request client settings for the Data API.
func (c *Config) YouTubeQuota() quota.Config {
	q := quota.DefaultConfig()
	q.MaxAttempts = c.YouTube.MaxAttempts
	q.InitialBackoff = c.YouTube.InitialBackoff
	q.MaxBackoff = c.YouTube.MaxBackoff
	q.Timeout = c.YouTube.Timeout
	return q
}

// SummaryQuota returns the request client settings for the summary API.
func (c *Config) SummaryQuota() quota.Config {
	q := quota.DefaultConfig()
	q.MaxAttempts = c.Summary.MaxAttempts
	q.Timeout = c.Summary.Timeout
	return q
}

// SummaryKeys returns the summary key followed by its fallbacks.
func (c *Config) SummaryKeys() []string {
	return mergeKeys([]string{c.Summary.APIKey}, c.Summary.FallbackKeys)
}
