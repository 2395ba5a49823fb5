package compose

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shorts-pipeline/internal/media"
	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const timestampLayout = "20060102_150405"

// Input is what the compose stage combines. Audio is nil when narration failed.
type Input struct {
	Video  types.VideoAsset
	Audio  *types.AudioAsset
	Script string
}

type job struct {
	Input
	Out string
}

// Editor muxes video and narration into the final file. When there is no
// narration, or the mux fails, it copies the video track as is.
type Editor struct {
	dir   string
	enc   media.Encoder
	burn  bool
	stage *provider.Adapter[job, types.ComposedVideo]
	now   func() time.Time
	log   *logrus.Entry
}

func NewEditor(dir string, enc media.Encoder, burnSubtitles bool, log *logrus.Entry) *Editor {
	return &Editor{
		dir:   dir,
		enc:   enc,
		burn:  burnSubtitles,
		stage: provider.NewAdapter[job, types.ComposedVideo]("compose", &muxer{enc: enc}, copier{}, log),
		now:   time.Now,
		log:   log.WithField("component", "compose"),
	}
}

// WithClock replaces the clock used for output names
func (e *Editor) WithClock(now func() time.Time) *Editor {
	e.now = now
	return e
}

// OutputPath names the final file for a pair of inputs at time t
func (e *Editor) OutputPath(in Input, t time.Time) string {
	key := in.Video.Path
	if in.Audio != nil {
		key += "|" + in.Audio.Path
	}
	return filepath.Join(e.dir, fmt.Sprintf("video_%s_%s.mp4", t.Format(timestampLayout), provider.ContentID(key)))
}

// Compose produces the final video. Any failure carries ErrCompose.
func (e *Editor) Compose(ctx context.Context, in Input) (types.ComposedVideo, provider.Result) {
	if fi, err := os.Stat(in.Video.Path); err != nil || fi.Size() == 0 {
		err = provider.Classify(provider.ErrCompose, "compose", errors.Errorf("video track %q missing", in.Video.Path))
		return types.ComposedVideo{}, provider.Result{Outcome: provider.Failed, Err: err}
	}

	now := e.now()
	out, res := e.stage.Produce(ctx, job{Input: in, Out: e.OutputPath(in, now)})
	if !res.OK() {
		res.Err = provider.Classify(provider.ErrCompose, "compose", res.Err)
		return types.ComposedVideo{}, res
	}
	out.CreatedAt = now

	if strings.TrimSpace(in.Script) != "" {
		out.Subtitles = e.subtitles(ctx, out.Path, in.Script)
	}
	e.log.WithFields(logrus.Fields{"path": out.Path, "mode": res.Backend}).Info("Final video ready")
	return out, res
}

// subtitles writes the SRT next to the video and optionally burns it in.
// Failures here never fail the run.
func (e *Editor) subtitles(ctx context.Context, video, text string) string {
	srt := strings.TrimSuffix(video, filepath.Ext(video)) + ".srt"
	if err := WriteSRT(srt, text); err != nil {
		e.log.WithError(err).Warn("Could not write subtitles")
		return ""
	}
	if !e.burn {
		return srt
	}

	burned := strings.TrimSuffix(video, filepath.Ext(video)) + ".subtitled.mp4"
	if err := e.enc.BurnSubtitles(ctx, video, srt, burned); err != nil {
		e.log.WithError(err).Warn("Subtitle burn failed, keeping video without them")
		return srt
	}
	if err := os.Rename(burned, video); err != nil {
		e.log.WithError(err).Warn("Could not replace video with subtitled version")
		os.Remove(burned)
	}
	return srt
}

type muxer struct {
	enc media.Encoder
}

func (m *muxer) Name() string { return "mux" }

func (m *muxer) Produce(ctx context.Context, j job) (types.ComposedVideo, error) {
	if j.Audio == nil || j.Audio.Path == "" {
		return types.ComposedVideo{}, provider.Unavailable(m.Name(), "no narration track")
	}
	if _, err := os.Stat(j.Audio.Path); err != nil {
		return types.ComposedVideo{}, provider.Unavailable(m.Name(), "narration track missing")
	}
	if err := m.enc.Mux(ctx, j.Video.Path, j.Audio.Path, j.Out); err != nil {
		return types.ComposedVideo{}, err
	}
	return types.ComposedVideo{Path: j.Out}, nil
}

// copier is the video-only path
type copier struct{}

func (copier) Name() string { return "copy" }

func (copier) Produce(ctx context.Context, j job) (types.ComposedVideo, error) {
	src, err := os.Open(j.Video.Path)
	if err != nil {
		return types.ComposedVideo{}, err
	}
	defer src.Close()

	err = provider.WriteAtomic(j.Out, func(f *os.File) error {
		_, err := io.Copy(f, src)
		return err
	})
	if err != nil {
		return types.ComposedVideo{}, err
	}
	return types.ComposedVideo{Path: j.Out}, nil
}
