package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"shorts-pipeline/internal/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutBucket(t *testing.T) {
	a, err := New(context.Background(), Config{}, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestStoreUploadsRun(t *testing.T) {
	var mu sync.Mutex
	objects := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		objects[r.URL.Path] = string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	video := filepath.Join(dir, "video_20260102_090000_abc.mp4")
	require.NoError(t, os.WriteFile(video, []byte("video"), 0644))

	a, err := New(context.Background(), Config{
		AccessKey: "ak", SecretKey: "sk", Region: "us-east-1", Endpoint: srv.URL, Bucket: "shorts",
	}, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)

	run := &types.RunState{RunID: "r1", StartedAt: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)}
	url, err := a.Store(context.Background(), run, &types.ComposedVideo{Path: video})
	require.NoError(t, err)
	assert.Equal(t, "s3://shorts/runs/2026-01-02/r1/video_20260102_090000_abc.mp4", url)

	var keys []string
	for k := range objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"/shorts/runs/2026-01-02/r1/run.json",
		"/shorts/runs/2026-01-02/r1/video_20260102_090000_abc.mp4",
	}, keys)
	assert.Equal(t, "video", objects["/shorts/runs/2026-01-02/r1/video_20260102_090000_abc.mp4"])
	assert.Contains(t, objects["/shorts/runs/2026-01-02/r1/run.json"], `"archive_url": "s3://shorts/`)
}
