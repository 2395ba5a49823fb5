package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/types"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProjectLaysOutDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, initProject(root))

	for _, d := range []string{"output/audio", "output/video", "output/final", "output/runs", "logs", "models", "cache", "temp", "config"} {
		fi, err := os.Stat(filepath.Join(root, d))
		require.NoError(t, err, d)
		assert.True(t, fi.IsDir(), d)
	}

	env, err := godotenv.Read(filepath.Join(root, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "ollama", env["TEXT_PROVIDER"])
	assert.Equal(t, "45", env["DEFAULT_DURATION"])
	assert.Empty(t, env["BLOTATO_API_KEY"])

	_, err = os.Stat(filepath.Join(root, config.DefaultSettingsPath))
	assert.NoError(t, err)
}

func TestInitProjectKeepsExistingEnv(t *testing.T) {
	root := t.TempDir()
	envPath := filepath.Join(root, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("BLOTATO_API_KEY=secret\n"), 0600))

	require.NoError(t, initProject(root))

	data, err := os.ReadFile(envPath)
	require.NoError(t, err)
	assert.Equal(t, "BLOTATO_API_KEY=secret\n", string(data))
}

func TestInitSettingsLoadBack(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, initProject(root))

	cfg, err := config.Load(filepath.Join(root, config.DefaultSettingsPath))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Defaults.Topics, cfg.Defaults.Topics)
}

func TestParsePlatforms(t *testing.T) {
	got, err := parsePlatforms("tiktok, YouTube")
	require.NoError(t, err)
	assert.Equal(t, []types.Platform{types.PlatformTikTok, types.PlatformYouTube}, got)

	_, err = parsePlatforms("myspace")
	assert.Error(t, err)

	got, err = parsePlatforms("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"space", "science"}, splitList(" space,,science ,"))
	assert.Nil(t, splitList(""))
}

func TestUnknownCommand(t *testing.T) {
	assert.Error(t, run(context.Background(), []string{"explode"}))
}

func TestPublishRequiresVideo(t *testing.T) {
	assert.EqualError(t, runPublish(context.Background(), nil), "-video is required")
}
