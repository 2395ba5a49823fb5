package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"shorts-pipeline/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	s, err := Open(filepath.Join(t.TempDir(), "cache", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTextCache(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetText(ctx, "ollama:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutText(ctx, "ollama:abc", "first"))
	require.NoError(t, s.PutText(ctx, "ollama:abc", "second"))

	v, ok, err := s.GetText(ctx, "ollama:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestSaveAndListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	older := &types.RunState{
		RunID: "run-a", Topic: types.Topic{Text: "space"}, Duration: 45 * time.Second,
		StartedAt: base, Status: "failed", Error: "fact: backend error",
		Stages: []types.StageReport{{Stage: "fact", Outcome: "failed", Backend: "ollama", Error: "HTTP 500"}},
	}
	newer := &types.RunState{
		RunID: "run-b", Topic: types.Topic{Text: "gravity"}, Duration: 45 * time.Second,
		StartedAt: base.Add(time.Hour), CompletedAt: base.Add(time.Hour + time.Minute),
		Status: "done", Fact: "f", Script: "s", FinalFile: "output/final/x.mp4",
		Stages: []types.StageReport{
			{Stage: "fact", Outcome: "produced", Backend: "ollama", Elapsed: 1500 * time.Millisecond},
			{Stage: "voice", Outcome: "fell_back", Backend: "silence"},
		},
	}
	require.NoError(t, s.SaveRun(ctx, older))
	require.NoError(t, s.SaveRun(ctx, newer))
	// saving again replaces the stages
	require.NoError(t, s.SaveRun(ctx, newer))

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-b", runs[0].RunID)
	assert.Equal(t, "gravity", runs[0].Topic.Text)
	assert.Equal(t, "output/final/x.mp4", runs[0].FinalFile)
	assert.True(t, runs[0].CompletedAt.Equal(newer.CompletedAt))
	require.Len(t, runs[0].Stages, 2)
	assert.Equal(t, "fell_back", runs[0].Stages[1].Outcome)
	assert.Equal(t, 1500*time.Millisecond, runs[0].Stages[0].Elapsed)

	assert.Equal(t, "run-a", runs[1].RunID)
	assert.True(t, runs[1].CompletedAt.IsZero())
	assert.Equal(t, "fact: backend error", runs[1].Error)

	limited, err := s.RecentRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPublications(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePublication(ctx, Publication{VideoPath: "v.mp4", Platform: types.PlatformTikTok, Success: true}))
	require.NoError(t, s.SavePublication(ctx, Publication{VideoPath: "v.mp4", Platform: types.PlatformYouTube, Error: "HTTP 403"}))
	require.NoError(t, s.SavePublication(ctx, Publication{VideoPath: "other.mp4", Platform: types.PlatformTikTok}))

	pubs, err := s.Publications(ctx, "v.mp4")
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	assert.True(t, pubs[0].Success)
	assert.Equal(t, types.PlatformYouTube, pubs[1].Platform)
	assert.False(t, pubs[1].Success)
	assert.Equal(t, "HTTP 403", pubs[1].Error)
}
