package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/store"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry { return logrus.NewEntry(logrus.New()) }

type stubUploader struct {
	fail  map[types.Platform]bool
	mu    sync.Mutex
	calls []types.Platform
}

func (s *stubUploader) Name() string { return "stub" }

func (s *stubUploader) Upload(ctx context.Context, video string, platform types.Platform, meta Metadata) error {
	s.mu.Lock()
	s.calls = append(s.calls, platform)
	s.mu.Unlock()
	if s.fail[platform] {
		return errors.Errorf("%s rejected the upload", platform)
	}
	return nil
}

type memRecorder struct{ pubs []store.Publication }

func (m *memRecorder) SavePublication(ctx context.Context, p store.Publication) error {
	m.pubs = append(m.pubs, p)
	return nil
}

func tempVideo(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "final.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0644))
	return path
}

func routed(u Uploader) *Publisher {
	return NewPublisher(types.Platforms, testLog()).
		Route(types.PlatformTikTok, u).
		Route(types.PlatformInstagram, u).
		Route(types.PlatformYouTube, u)
}

func TestPublishAtLeastOneSuccess(t *testing.T) {
	u := &stubUploader{fail: map[types.Platform]bool{types.PlatformInstagram: true, types.PlatformYouTube: true}}
	rec := &memRecorder{}
	pub := routed(u).WithRecorder(rec)

	report := pub.Publish(context.Background(), tempVideo(t), Metadata{Title: "t"}, types.Platforms)
	assert.True(t, report.OK())
	assert.Equal(t, types.PublishResult{
		types.PlatformTikTok:    true,
		types.PlatformInstagram: false,
		types.PlatformYouTube:   false,
	}, report.Results)
	assert.True(t, errors.Is(report.Errors[types.PlatformInstagram], provider.ErrPublish))
	// every platform is attempted even after failures
	assert.Equal(t, types.Platforms, u.calls)
	require.Len(t, rec.pubs, 3)
	assert.True(t, rec.pubs[0].Success)
	assert.NotEmpty(t, rec.pubs[2].Error)
}

func TestPublishAllFail(t *testing.T) {
	u := &stubUploader{fail: map[types.Platform]bool{types.PlatformTikTok: true, types.PlatformInstagram: true, types.PlatformYouTube: true}}
	report := routed(u).Publish(context.Background(), tempVideo(t), Metadata{}, types.Platforms)
	assert.False(t, report.OK())
	assert.Len(t, report.Errors, 3)
}

func TestPublishEmptySetMakesNoCalls(t *testing.T) {
	u := &stubUploader{}
	report := routed(u).Publish(context.Background(), tempVideo(t), Metadata{}, nil)
	assert.False(t, report.OK())
	assert.Empty(t, u.calls)
}

func TestPublishMissingVideo(t *testing.T) {
	u := &stubUploader{}
	report := routed(u).Publish(context.Background(), filepath.Join(t.TempDir(), "gone.mp4"), Metadata{}, types.Platforms)
	assert.False(t, report.OK())
	assert.Empty(t, u.calls)
	assert.True(t, errors.Is(report.Errors[types.PlatformTikTok], provider.ErrPublish))
}

func TestPublishUnroutedPlatformFails(t *testing.T) {
	pub := NewPublisher(nil, testLog()).Route(types.PlatformTikTok, &stubUploader{})
	report := pub.Publish(context.Background(), tempVideo(t), Metadata{}, []types.Platform{types.PlatformTikTok, types.PlatformYouTube})
	assert.True(t, report.OK())
	assert.False(t, report.Results[types.PlatformYouTube])
}

func TestBlotatoWithoutKeyMakesNoRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Publish.BlotatoURL = srv.URL
	report := New(cfg, testLog()).Publish(context.Background(), tempVideo(t), Metadata{}, types.Platforms)
	assert.False(t, report.OK())
	assert.True(t, errors.Is(report.Errors[types.PlatformTikTok], provider.ErrBackendUnavailable))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestBlotatoMultipartUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/upload", r.URL.Path)
		assert.Equal(t, "Bearer bk", r.Header.Get("Authorization"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.FormValue("platform") == "instagram" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "Interesting fact!", r.FormValue("title"))
		f, _, err := r.FormFile("video")
		if assert.NoError(t, err) {
			data, _ := io.ReadAll(f)
			assert.Equal(t, "video", string(data))
		}
	}))
	defer srv.Close()

	b := NewBlotato(srv.URL, "bk", 0, srv.Client())
	video := tempVideo(t)
	meta := Metadata{Title: "Interesting fact!"}

	require.NoError(t, b.Upload(context.Background(), video, types.PlatformTikTok, meta))
	err := b.Upload(context.Background(), video, types.PlatformInstagram, meta)
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrBackend))
}

func TestFactoryRoutesYouTubeByCredentials(t *testing.T) {
	cfg := config.Default()
	pub := New(cfg, testLog())
	assert.Equal(t, "blotato", pub.uploaders[types.PlatformYouTube].Name())
	assert.Equal(t, types.Platforms, pub.Defaults())

	cfg.Publish.YouTubeClientID = "id"
	cfg.Publish.YouTubeClientSecret = "secret"
	cfg.Publish.YouTubeRefreshToken = "refresh"
	cfg.Publish.ToInstagram = false
	pub = New(cfg, testLog())
	assert.Equal(t, "youtube-api", pub.uploaders[types.PlatformYouTube].Name())
	assert.Equal(t, []types.Platform{types.PlatformTikTok, types.PlatformYouTube}, pub.Defaults())
}

func TestYouTubeWithoutCredentials(t *testing.T) {
	err := NewYouTube("", "", "", "", testLog()).Upload(context.Background(), "x.mp4", types.PlatformYouTube, Metadata{})
	assert.True(t, errors.Is(err, provider.ErrBackendUnavailable))
}

func TestNewMetadata(t *testing.T) {
	meta := NewMetadata("Interesting fact! 🤯", types.Fact{
		Text:  "Light bends around the sun.",
		Topic: types.Topic{Text: "Black Holes"},
	})
	assert.Equal(t, "Interesting fact! 🤯", meta.Title)
	assert.Equal(t, []string{"shorts", "facts", "blackholes"}, meta.Tags)
	assert.Equal(t, "Light bends around the sun.\n\n#shorts #facts #blackholes", meta.Description)

	long := NewMetadata(string(make([]rune, 150)), types.Fact{})
	assert.Len(t, []rune(long.Title), maxTitleRunes)
}
