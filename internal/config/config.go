package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/repost-sh/repost/internal/repost"
)

const (
	configPathEnv       = "REPOST_CONFIG"
	providerAPIKeyEnv   = "REPOST_OPENAI_API_KEY"
	providerModelEnv    = "REPOST_OPENAI_MODEL"
	providerEndpointEnv = "REPOST_OPENAI_ENDPOINT"
	feedPathEnv         = "REPOST_FEED"
	metricsPathEnv      = "REPOST_METRICS_DB"
	wordLimitEnv        = "REPOST_WORD_LIMIT"
	likeThresholdEnv    = "REPOST_LIKE_THRESHOLD"
)

// Config holds every setting the pipeline needs. There is no ambient
// global: the loaded value is passed explicitly into constructors.
type Config struct {
	Feed      FeedConfig       `yaml:"feed"`
	Provider  ProviderConfig   `yaml:"provider"`
	Fallback  FallbackConfig   `yaml:"fallback"`
	Platforms []PlatformConfig `yaml:"platforms"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Schedule  ScheduleConfig   `yaml:"schedule"`
	Backoff   BackoffConfig    `yaml:"backoff"`
}

// FeedConfig points at the source-post feed (local JSON file or HTTP URL).
type FeedConfig struct {
	Location        string `yaml:"location"`
	MaxPostsPerUser int    `yaml:"maxPostsPerUser"`
}

// ProviderConfig describes the OpenAI-compatible text generation endpoint.
// An empty APIKey means the provider is unconfigured and the deterministic
// fallback transform is used for every post.
type ProviderConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// FallbackConfig tunes the rule-based transform.
type FallbackConfig struct {
	WordLimit     int `yaml:"wordLimit"`
	LikeThreshold int `yaml:"likeThreshold"`
}

// PlatformConfig is the YAML shape of one target platform profile.
type PlatformConfig struct {
	Name                    string  `yaml:"name"`
	MaxTextLength           int     `yaml:"maxTextLength"`
	MaxHashtags             int     `yaml:"maxHashtags"`
	VideoMaxDurationSeconds float64 `yaml:"videoMaxDurationSeconds"`
	VideoMaxSizeBytes       int64   `yaml:"videoMaxSizeBytes"`
	InterPostDelaySeconds   int     `yaml:"interPostDelaySeconds"`
}

// Profile converts the YAML shape into the immutable runtime profile.
func (p PlatformConfig) Profile() repost.PlatformProfile {
	return repost.PlatformProfile{
		Name:                    p.Name,
		MaxTextLength:           p.MaxTextLength,
		MaxHashtags:             p.MaxHashtags,
		VideoMaxDurationSeconds: p.VideoMaxDurationSeconds,
		VideoMaxSizeBytes:       p.VideoMaxSizeBytes,
		InterPostDelay:          time.Duration(p.InterPostDelaySeconds) * time.Second,
	}
}

// MetricsConfig locates the publish-attempt store.
type MetricsConfig struct {
	DataDir string `yaml:"dataDir"`
}

// ScheduleConfig controls watch mode.
type ScheduleConfig struct {
	CronExpression string `yaml:"cronExpression"`
}

// BackoffConfig is the YAML shape of the shared retry policy.
type BackoffConfig struct {
	InitialSeconds int     `yaml:"initialSeconds"`
	Multiplier     float64 `yaml:"multiplier"`
	MaxSeconds     int     `yaml:"maxSeconds"`
	Attempts       int     `yaml:"attempts"`
}

// Policy converts the YAML shape to the runtime backoff policy.
func (b BackoffConfig) Policy() repost.Backoff {
	policy := repost.DefaultBackoff()
	if b.InitialSeconds > 0 {
		policy.Initial = time.Duration(b.InitialSeconds) * time.Second
	}
	if b.Multiplier > 0 {
		policy.Multiplier = b.Multiplier
	}
	if b.MaxSeconds > 0 {
		policy.Max = time.Duration(b.MaxSeconds) * time.Second
	}
	if b.Attempts > 0 {
		policy.Attempts = b.Attempts
	}
	return policy
}

// ProfileFor looks up a platform profile by name.
func (c Config) ProfileFor(name string) (repost.PlatformProfile, bool) {
	for _, p := range c.Platforms {
		if p.Name == name {
			return p.Profile(), true
		}
	}
	return repost.PlatformProfile{}, false
}

// Load reads YAML configuration (explicit path, else $REPOST_CONFIG, else
// defaults only) and applies environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = merge(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(providerAPIKeyEnv); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv(providerModelEnv); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv(providerEndpointEnv); v != "" {
		c.Provider.Endpoint = v
	}
	if v := os.Getenv(feedPathEnv); v != "" {
		c.Feed.Location = v
	}
	if v := os.Getenv(metricsPathEnv); v != "" {
		c.Metrics.DataDir = v
	}
	if v := os.Getenv(wordLimitEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Fallback.WordLimit = n
		}
	}
	if v := os.Getenv(likeThresholdEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Fallback.LikeThreshold = n
		}
	}
}

func (c Config) validate() error {
	for _, p := range c.Platforms {
		if p.Name == "" {
			return fmt.Errorf("platform with empty name")
		}
		if p.MaxTextLength <= 0 {
			return fmt.Errorf("platform %s: maxTextLength must be positive", p.Name)
		}
		if p.MaxHashtags < 0 {
			return fmt.Errorf("platform %s: maxHashtags must not be negative", p.Name)
		}
		if p.VideoMaxDurationSeconds <= 0 || p.VideoMaxSizeBytes <= 0 {
			return fmt.Errorf("platform %s: video limits must be positive", p.Name)
		}
	}
	return nil
}

func merge(base, override Config) Config {
	if override.Feed.Location != "" {
		base.Feed.Location = override.Feed.Location
	}
	if override.Feed.MaxPostsPerUser > 0 {
		base.Feed.MaxPostsPerUser = override.Feed.MaxPostsPerUser
	}

	if override.Provider.Endpoint != "" {
		base.Provider.Endpoint = override.Provider.Endpoint
	}
	if override.Provider.Model != "" {
		base.Provider.Model = override.Provider.Model
	}
	if override.Provider.APIKey != "" {
		base.Provider.APIKey = override.Provider.APIKey
	}
	if override.Provider.SystemPrompt != "" {
		base.Provider.SystemPrompt = override.Provider.SystemPrompt
	}

	if override.Fallback.WordLimit > 0 {
		base.Fallback.WordLimit = override.Fallback.WordLimit
	}
	if override.Fallback.LikeThreshold > 0 {
		base.Fallback.LikeThreshold = override.Fallback.LikeThreshold
	}

	if len(override.Platforms) > 0 {
		base.Platforms = override.Platforms
	}

	if override.Metrics.DataDir != "" {
		base.Metrics.DataDir = override.Metrics.DataDir
	}
	if override.Schedule.CronExpression != "" {
		base.Schedule.CronExpression = override.Schedule.CronExpression
	}

	if override.Backoff.InitialSeconds > 0 {
		base.Backoff.InitialSeconds = override.Backoff.InitialSeconds
	}
	if override.Backoff.Multiplier > 0 {
		base.Backoff.Multiplier = override.Backoff.Multiplier
	}
	if override.Backoff.MaxSeconds > 0 {
		base.Backoff.MaxSeconds = override.Backoff.MaxSeconds
	}
	if override.Backoff.Attempts > 0 {
		base.Backoff.Attempts = override.Backoff.Attempts
	}

	return base
}

// Default returns the built-in configuration. Platform limits mirror the
// published constraints of each network.
func Default() Config {
	return Config{
		Feed: FeedConfig{
			Location:        "posts.json",
			MaxPostsPerUser: 5,
		},
		Provider: ProviderConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a social media content creator.",
		},
		Fallback: FallbackConfig{
			WordLimit:     30,
			LikeThreshold: 1000,
		},
		Platforms: []PlatformConfig{
			{
				Name:                    "twitter",
				MaxTextLength:           280,
				MaxHashtags:             10,
				VideoMaxDurationSeconds: 140,
				VideoMaxSizeBytes:       512 << 20,
				InterPostDelaySeconds:   30,
			},
			{
				Name:                    "linkedin",
				MaxTextLength:           3000,
				MaxHashtags:             30,
				VideoMaxDurationSeconds: 600,
				VideoMaxSizeBytes:       5 << 30,
				InterPostDelaySeconds:   60,
			},
			{
				Name:                    "mastodon",
				MaxTextLength:           500,
				MaxHashtags:             10,
				VideoMaxDurationSeconds: 300,
				VideoMaxSizeBytes:       200 << 20,
				InterPostDelaySeconds:   30,
			},
			{
				Name:                    "bluesky",
				MaxTextLength:           300,
				MaxHashtags:             10,
				VideoMaxDurationSeconds: 180,
				VideoMaxSizeBytes:       100 << 20,
				InterPostDelaySeconds:   30,
			},
		},
		Metrics: MetricsConfig{
			DataDir: "data",
		},
		Schedule: ScheduleConfig{
			CronExpression: "0 * * * *",
		},
		Backoff: BackoffConfig{
			InitialSeconds: 5,
			Multiplier:     2,
			MaxSeconds:     120,
			Attempts:       1,
		},
	}
}
