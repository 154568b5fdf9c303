package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsLoadWithoutFile(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "posts.json", cfg.Feed.Location)
	assert.Equal(t, 30, cfg.Fallback.WordLimit)
	assert.Equal(t, 1000, cfg.Fallback.LikeThreshold)
	assert.Len(t, cfg.Platforms, 4)

	twitter, ok := cfg.ProfileFor("twitter")
	require.True(t, ok)
	assert.Equal(t, 280, twitter.MaxTextLength)
	assert.Equal(t, 30*time.Second, twitter.InterPostDelay)

	linkedin, ok := cfg.ProfileFor("linkedin")
	require.True(t, ok)
	assert.Equal(t, 3000, linkedin.MaxTextLength)
	assert.Equal(t, time.Minute, linkedin.InterPostDelay)

	_, ok = cfg.ProfileFor("myspace")
	assert.False(t, ok)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
feed:
  location: /var/feeds/posts.json
provider:
  model: gpt-4o
fallback:
  wordLimit: 20
backoff:
  attempts: 3
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/feeds/posts.json", cfg.Feed.Location)
	assert.Equal(t, "gpt-4o", cfg.Provider.Model)
	assert.Equal(t, 20, cfg.Fallback.WordLimit)
	// Untouched values keep their defaults.
	assert.Equal(t, 1000, cfg.Fallback.LikeThreshold)
	assert.Len(t, cfg.Platforms, 4)

	policy := cfg.Backoff.Policy()
	assert.Equal(t, 3, policy.Attempts)
	assert.Equal(t, 5*time.Second, policy.Initial)
}

func TestLoadFilePlatformsReplaceDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
platforms:
  - name: twitter
    maxTextLength: 240
    maxHashtags: 5
    videoMaxDurationSeconds: 60
    videoMaxSizeBytes: 1048576
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Platforms, 1)
	profile, ok := cfg.ProfileFor("twitter")
	require.True(t, ok)
	assert.Equal(t, 240, profile.MaxTextLength)
	assert.Equal(t, 5, profile.MaxHashtags)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  apiKey: from-file\n"), 0o644))

	t.Setenv(configPathEnv, "")
	t.Setenv(providerAPIKeyEnv, "from-env")
	t.Setenv(feedPathEnv, "https://feeds.example.com/posts.json")
	t.Setenv(wordLimitEnv, "15")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Provider.APIKey)
	assert.Equal(t, "https://feeds.example.com/posts.json", cfg.Feed.Location)
	assert.Equal(t, 15, cfg.Fallback.WordLimit)
}

func TestEnvConfigPathIsUsedWhenFlagEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  location: env-located.json\n"), 0o644))

	t.Setenv(configPathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-located.json", cfg.Feed.Location)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Setenv(configPathEnv, "")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidPlatform(t *testing.T) {
	t.Setenv(configPathEnv, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
platforms:
  - name: twitter
    maxTextLength: 0
    videoMaxDurationSeconds: 60
    videoMaxSizeBytes: 1048576
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxTextLength")
}

func TestIgnoredMalformedNumericEnv(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(wordLimitEnv, "not-a-number")
	t.Setenv(likeThresholdEnv, "-5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Fallback.WordLimit)
	assert.Equal(t, 1000, cfg.Fallback.LikeThreshold)
}
