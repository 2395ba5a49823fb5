package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "replicate", cfg.Video.Provider)
	assert.Equal(t, "silero", cfg.Voice.Provider)
	assert.Equal(t, 45, cfg.Defaults.Duration)
	assert.Equal(t, []string{"09:00", "15:00", "21:00"}, cfg.Schedule.GenerationHours)
	assert.Equal(t, []string{"tiktok", "instagram", "youtube"}, cfg.Platforms())
	assert.False(t, cfg.Features.AutoPublish)
	assert.True(t, cfg.Features.CacheEnabled)
	assert.Equal(t, filepath.Join("output", "audio"), cfg.StageDir("audio"))
}

func TestLoadEnvOverridesSettings(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	settings := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(settings, []byte(`
defaults:
  duration: 30
  topics: [oceans, volcanoes]
schedule:
  crons: ["0 12 * * 1"]
text:
  timeout: 5s
`), 0644))

	t.Setenv("DEFAULT_DURATION", "60")
	t.Setenv("GENERATION_HOURS", "08:30, 20:15")
	t.Setenv("PUBLISH_TO_TIKTOK", "false")
	t.Setenv("PUBLISH_TO_INSTAGRAM", "FALSE")
	t.Setenv("AUTO_PUBLISH", "True")
	t.Setenv("REPLICATE_API_TOKEN", "r8_token")

	cfg, err := Load(settings)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Defaults.Duration)
	assert.Equal(t, []string{"oceans", "volcanoes"}, cfg.Defaults.Topics)
	assert.Equal(t, []string{"08:30", "20:15"}, cfg.Schedule.GenerationHours)
	assert.Equal(t, []string{"0 12 * * 1"}, cfg.Schedule.Crons)
	assert.Equal(t, 5*time.Second, cfg.Text.Timeout)
	assert.Equal(t, []string{"youtube"}, cfg.Platforms())
	assert.True(t, cfg.Features.AutoPublish)
	assert.Equal(t, "r8_token", cfg.Video.ReplicateAPIToken)
}

func TestInvalidIntegerKeepsDefault(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("VIDEOS_PER_DAY", "many")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Schedule.VideosPerDay)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero duration", func(c *Config) { c.Defaults.Duration = 0 }},
		{"no topics", func(c *Config) { c.Defaults.Topics = nil }},
		{"blank topic", func(c *Config) { c.Defaults.Topics = []string{"space", " "} }},
		{"bad hour", func(c *Config) { c.Schedule.GenerationHours = []string{"25:00"} }},
		{"bad format", func(c *Config) { c.Schedule.GenerationHours = []string{"9am"} }},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("21:05")
	require.NoError(t, err)
	assert.Equal(t, 21, h)
	assert.Equal(t, 5, m)

	_, _, err = ParseClock("12:60")
	assert.Error(t, err)
}

func TestDefaultEnvHasNoCredentials(t *testing.T) {
	env := DefaultEnv()
	for _, key := range []string{"REPLICATE_API_TOKEN", "ELEVENLABS_API_KEY", "BLOTATO_API_KEY", "GROQ_API_KEY"} {
		v, ok := env[key]
		assert.True(t, ok, key)
		assert.Empty(t, v, key)
	}
	assert.Equal(t, "45", env["DEFAULT_DURATION"])
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores the previous one when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
