// Package mediatest provides an in-process Encoder for tests that cannot
// depend on an ffmpeg binary.
package mediatest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shorts-pipeline/internal/media"

	"github.com/pkg/errors"
)

// Encoder writes small marker files instead of encoding. Individual
// operations can be made to fail.
type Encoder struct {
	FailPlaceholder bool
	FailStill       bool
	FailMux         bool
	FailBurn        bool

	mu    sync.Mutex
	calls []string
}

var _ media.Encoder = (*Encoder)(nil)

// Calls returns the operations performed so far
func (e *Encoder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *Encoder) record(op string) {
	e.mu.Lock()
	e.calls = append(e.calls, op)
	e.mu.Unlock()
}

func (e *Encoder) RenderPlaceholder(ctx context.Context, p media.Placeholder, out string) error {
	e.record("placeholder")
	if e.FailPlaceholder {
		return errors.New("placeholder render failed")
	}
	return write(out, fmt.Sprintf("placeholder %dx%d@%d %s %s %q", p.Width, p.Height, p.FPS, p.Duration, p.Color, p.Caption))
}

func (e *Encoder) StillToVideo(ctx context.Context, image string, c media.Clip, out string) error {
	e.record("still")
	if e.FailStill {
		return errors.New("still render failed")
	}
	return write(out, "still "+image)
}

func (e *Encoder) Mux(ctx context.Context, video, audio, out string) error {
	e.record("mux")
	if e.FailMux {
		return errors.New("mux failed")
	}
	return write(out, "mux "+video+" "+audio)
}

func (e *Encoder) BurnSubtitles(ctx context.Context, video, srt, out string) error {
	e.record("burn")
	if e.FailBurn {
		return errors.New("burn failed")
	}
	return write(out, "burn "+video+" "+srt)
}

func (e *Encoder) Probe(ctx context.Context, path string) (time.Duration, error) {
	e.record("probe")
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return 10 * time.Second, nil
}

func write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}
