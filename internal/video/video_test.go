package video

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/media/mediatest"
	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry { return logrus.NewEntry(logrus.New()) }

var testFrame = Frame{Width: 1080, Height: 1920, FPS: 30}

func TestPlaceholderWithoutToken(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Output = t.TempDir()
	enc := &mediatest.Encoder{}

	a := NewAdapter(cfg, enc, testLog())
	assert.Empty(t, a.Primary())

	asset, res := a.Produce(context.Background(), Request{Prompt: "Gravity bends light.", Duration: 45 * time.Second})
	require.True(t, res.OK())
	assert.Equal(t, provider.FellBack, res.Outcome)
	assert.Equal(t, provider.ArtifactPath(cfg.StageDir("video"), "placeholder", "Gravity bends light.", "mp4"), asset.Path)
	assert.Equal(t, 1080, asset.Width)
	assert.Equal(t, 1920, asset.Height)
	assert.Equal(t, 45*time.Second, asset.Duration)
	assert.FileExists(t, asset.Path)
	assert.Equal(t, []string{"placeholder"}, enc.Calls())
}

func TestPlaceholderRenderFailureIsLocalRender(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Output = t.TempDir()

	_, res := NewAdapter(cfg, &mediatest.Encoder{FailPlaceholder: true}, testLog()).
		Produce(context.Background(), Request{Prompt: "x", Duration: time.Second})
	assert.False(t, res.OK())
	assert.True(t, errors.Is(res.Err, provider.ErrLocalRender))
}

func TestPlaceholderColorAndCaption(t *testing.T) {
	assert.Equal(t, Color("gravity"), Color("gravity"))
	assert.Equal(t, "0xd4e3fc", Color("gravity"))
	assert.Equal(t, "AI Video: short", Caption("short"))
	assert.Equal(t, "AI Video: "+strings.Repeat("a", 30)+"...", Caption(strings.Repeat("a", 40)))
}

func TestPlaceholderReusesCachedClip(t *testing.T) {
	dir := t.TempDir()
	enc := &mediatest.Encoder{}
	p := NewPlaceholder(dir, testFrame, true, enc)

	_, err := p.Produce(context.Background(), Request{Prompt: "x", Duration: time.Second})
	require.NoError(t, err)
	_, err = p.Produce(context.Background(), Request{Prompt: "x", Duration: time.Second})
	require.NoError(t, err)
	assert.Len(t, enc.Calls(), 1)
}

func TestReplicatePollsAndDownloads(t *testing.T) {
	var polls int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/models/owner/model/predictions":
			assert.Equal(t, "Bearer r8_test", r.Header.Get("Authorization"))
			assert.Equal(t, "wait", r.Header.Get("Prefer"))
			var body struct {
				Input predictionInput `json:"input"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Gravity bends light.", body.Input.Prompt)
			assert.Equal(t, 45, body.Input.Duration)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"p1","status":"processing","urls":{"get":"` + srv.URL + `/v1/predictions/p1"}}`))
		case r.URL.Path == "/v1/predictions/p1":
			if atomic.AddInt32(&polls, 1) < 2 {
				_, _ = w.Write([]byte(`{"id":"p1","status":"processing","urls":{"get":"` + srv.URL + `/v1/predictions/p1"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"p1","status":"succeeded","output":["` + srv.URL + `/files/out.mp4"]}`))
		case r.URL.Path == "/files/out.mp4":
			_, _ = w.Write([]byte("mp4 bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	rep := NewReplicate(ReplicateOptions{
		BaseURL: srv.URL, Token: "r8_test", Model: "owner/model", Dir: dir,
		Frame: testFrame, PollInterval: time.Millisecond, HTTPClient: srv.Client(),
	}, testLog())

	asset, err := rep.Produce(context.Background(), Request{Prompt: "Gravity bends light.", Duration: 45 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, provider.ArtifactPath(dir, "video", "Gravity bends light.", "mp4"), asset.Path)
	data, err := os.ReadFile(asset.Path)
	require.NoError(t, err)
	assert.Equal(t, "mp4 bytes", string(data))
	assert.EqualValues(t, 2, atomic.LoadInt32(&polls))
}

func TestReplicateFailedPrediction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"p1","status":"failed","error":"NSFW"}`))
	}))
	defer srv.Close()

	rep := NewReplicate(ReplicateOptions{BaseURL: srv.URL, Token: "t", Model: "m/n", Dir: t.TempDir(), HTTPClient: srv.Client()}, testLog())
	_, err := rep.Produce(context.Background(), Request{Prompt: "x", Duration: time.Second})
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrBackend))
	assert.Contains(t, err.Error(), "NSFW")
}

func TestReplicateErrorFallsBackToPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	rep := NewReplicate(ReplicateOptions{BaseURL: srv.URL, Token: "t", Model: "m/n", Dir: dir, HTTPClient: srv.Client()}, testLog())
	a := provider.NewAdapter[Request, types.VideoAsset](
		"video", rep, NewPlaceholder(dir, testFrame, false, &mediatest.Encoder{}), testLog())

	asset, res := a.Produce(context.Background(), Request{Prompt: "x", Duration: 3 * time.Second})
	require.True(t, res.OK())
	assert.Equal(t, provider.FellBack, res.Outcome)
	assert.True(t, errors.Is(res.Cause, provider.ErrBackend))
	assert.Contains(t, asset.Path, "placeholder_")
}

func TestPollinationsStillToClip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/prompt/"))
		assert.Equal(t, "1080", r.URL.Query().Get("width"))
		assert.Equal(t, "1920", r.URL.Query().Get("height"))
		_, _ = w.Write([]byte(strings.Repeat("j", 200)))
	}))
	defer srv.Close()

	dir := t.TempDir()
	enc := &mediatest.Encoder{}
	p := NewPollinations(PollinationsOptions{BaseURL: srv.URL, Dir: dir, Frame: testFrame, HTTPClient: srv.Client()}, enc, testLog())

	asset, err := p.Produce(context.Background(), Request{Prompt: "a black hole", Duration: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, provider.ArtifactPath(dir, "pollinations", "a black hole", "mp4"), asset.Path)
	assert.FileExists(t, provider.ArtifactPath(dir, "pollinations", "a black hole", "jpg"))
	assert.Equal(t, []string{"still"}, enc.Calls())
}

func TestPollinationsRejectsTinyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("oops"))
	}))
	defer srv.Close()

	p := NewPollinations(PollinationsOptions{BaseURL: srv.URL, Dir: t.TempDir(), Frame: testFrame, HTTPClient: srv.Client()}, &mediatest.Encoder{}, testLog())
	_, err := p.Produce(context.Background(), Request{Prompt: "x", Duration: time.Second})
	assert.True(t, errors.Is(err, provider.ErrBackend))
}
