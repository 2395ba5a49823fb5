package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"shorts-pipeline/internal/compose"
	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/fact"
	"shorts-pipeline/internal/llm"
	"shorts-pipeline/internal/media"
	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/publish"
	"shorts-pipeline/internal/script"
	"shorts-pipeline/internal/types"
	"shorts-pipeline/internal/video"
	"shorts-pipeline/internal/voice"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Archiver copies a finished run somewhere durable
type Archiver interface {
	Store(ctx context.Context, run *types.RunState, video *types.ComposedVideo) (string, error)
}

// Recorder keeps run history
type Recorder interface {
	SaveRun(ctx context.Context, run *types.RunState) error
}

// Pipeline runs fact -> script -> {voice, video} -> compose for one topic.
// Only a missing narration is tolerated; every other stage failure ends the
// run without a video.
type Pipeline struct {
	facts   *provider.Adapter[types.Topic, types.Fact]
	scripts *provider.Adapter[script.Request, types.Script]
	voice   *provider.Adapter[types.Script, types.AudioAsset]
	video   *provider.Adapter[video.Request, types.VideoAsset]
	editor  *compose.Editor

	publisher *publish.Publisher
	archive   Archiver
	recorder  Recorder

	runsDir  string
	parallel bool
	title    string
	newID    func() string
	now      func() time.Time
	log      *logrus.Entry
}

// New wires every stage from configuration. text may be nil, in which case
// the fact stage fails every run.
func New(cfg *config.Config, text llm.Generator, enc media.Encoder, log *logrus.Entry) *Pipeline {
	return &Pipeline{
		facts:     fact.NewAdapter(text, log),
		scripts:   script.NewAdapter(text, cfg.Defaults.Style, log),
		voice:     voice.NewAdapter(cfg, log),
		video:     video.NewAdapter(cfg, enc, log),
		editor:    compose.NewEditor(cfg.StageDir("final"), enc, cfg.Compose.BurnSubtitles, log),
		publisher: publish.New(cfg, log),
		runsDir:   cfg.StageDir("runs"),
		parallel:  cfg.Features.ParallelMedia,
		title:     cfg.Publish.Title,
		newID:     func() string { return uuid.NewString()[:8] },
		now:       time.Now,
		log:       log.WithField("component", "pipeline"),
	}
}

// WithPublisher replaces the configured publisher
func (p *Pipeline) WithPublisher(pub *publish.Publisher) *Pipeline {
	p.publisher = pub
	return p
}

// WithArchive copies every finished run through a
func (p *Pipeline) WithArchive(a Archiver) *Pipeline {
	p.archive = a
	return p
}

// WithRecorder saves every run, finished or failed
func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

// Generate produces one video for topic. The returned video is nil exactly
// when err is non-nil. The run state is always returned.
func (p *Pipeline) Generate(ctx context.Context, topic types.Topic, duration time.Duration) (*types.ComposedVideo, *types.RunState, error) {
	run := &types.RunState{
		RunID:     p.newID(),
		Topic:     topic,
		Duration:  duration,
		StartedAt: p.now().UTC(),
		Status:    Idle.String(),
	}
	log := p.log.WithFields(logrus.Fields{"run_id": run.RunID, "topic": topic.Text})
	log.WithField("duration", duration).Info("Run starting")

	out, err := p.generate(ctx, run, log)
	run.CompletedAt = p.now().UTC()
	if err != nil {
		p.transition(run, Failed, log)
		run.Error = err.Error()
		log.WithError(err).Error("Run failed")
	} else {
		p.transition(run, Done, log)
		run.FinalFile = out.Path
		p.archiveRun(ctx, run, out, log)
		log.WithFields(logrus.Fields{
			"path":    out.Path,
			"elapsed": run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond),
		}).Info("Run complete")
	}
	p.persist(ctx, run, log)

	if err != nil {
		return nil, run, err
	}
	return out, run, nil
}

func (p *Pipeline) generate(ctx context.Context, run *types.RunState, log *logrus.Entry) (*types.ComposedVideo, error) {
	if run.Duration <= 0 {
		return nil, &StageError{Stage: "input", Err: errors.Errorf("duration must be positive, got %s", run.Duration)}
	}

	p.transition(run, FactPending, log)
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: "fact", Err: err}
	}
	f, res := p.facts.Produce(ctx, run.Topic)
	p.report(run, "fact", res)
	if !res.OK() {
		return nil, &StageError{Stage: "fact", Err: res.Err}
	}
	run.Fact = f.Text

	p.transition(run, ScriptPending, log)
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: "script", Err: err}
	}
	scr, res := p.scripts.Produce(ctx, script.Request{Fact: f, Duration: run.Duration})
	p.report(run, "script", res)
	if !res.OK() {
		return nil, &StageError{Stage: "script", Err: res.Err}
	}
	run.Script = scr.Text

	audio, clip, err := p.media(ctx, run, f, scr, log)
	if err != nil {
		return nil, err
	}

	p.transition(run, ComposePending, log)
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: "compose", Err: err}
	}
	out, res := p.editor.Compose(ctx, compose.Input{Video: clip, Audio: audio, Script: scr.Text})
	p.report(run, "compose", res)
	if !res.OK() {
		return nil, &StageError{Stage: "compose", Err: res.Err}
	}
	out.Fact = f
	return &out, nil
}

// media runs the voice and video stages. A video failure cancels narration;
// a narration failure leaves audio nil and the run goes on.
func (p *Pipeline) media(ctx context.Context, run *types.RunState, f types.Fact, scr types.Script, log *logrus.Entry) (*types.AudioAsset, types.VideoAsset, error) {
	var (
		audio      types.AudioAsset
		clip       types.VideoAsset
		ares, vres provider.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	speak := func() error {
		audio, ares = p.voice.Produce(gctx, scr)
		return nil
	}
	render := func() error {
		clip, vres = p.video.Produce(gctx, video.Request{Prompt: f.Text, Duration: run.Duration})
		if !vres.OK() {
			return vres.Err
		}
		return nil
	}

	p.transition(run, VoicePending, log)
	if err := ctx.Err(); err != nil {
		return nil, clip, &StageError{Stage: "voice", Err: err}
	}
	if p.parallel {
		g.Go(speak)
	} else {
		_ = speak()
	}
	p.transition(run, VideoPending, log)
	g.Go(render)
	_ = g.Wait()

	p.report(run, "voice", ares)
	p.report(run, "video", vres)

	if !vres.OK() {
		return nil, clip, &StageError{Stage: "video", Err: vres.Err}
	}
	run.VideoFile = clip.Path

	if !ares.OK() {
		log.WithError(ares.Err).Warn("Narration failed, composing video without audio")
		return nil, clip, nil
	}
	run.AudioFile = audio.Path
	return &audio, clip, nil
}

// Publish uploads video to exactly the given platforms. An empty set publishes
// nothing and reports false.
func (p *Pipeline) Publish(ctx context.Context, video *types.ComposedVideo, platforms []types.Platform) bool {
	if video == nil || p.publisher == nil {
		return false
	}
	meta := publish.NewMetadata(p.title, video.Fact)
	return p.publisher.Publish(ctx, video.Path, meta, platforms).OK()
}

// PublishDefaults uploads video to every platform enabled in configuration
func (p *Pipeline) PublishDefaults(ctx context.Context, video *types.ComposedVideo) bool {
	if p.publisher == nil {
		return false
	}
	return p.Publish(ctx, video, p.publisher.Defaults())
}

func (p *Pipeline) transition(run *types.RunState, to State, log *logrus.Entry) {
	log.WithFields(logrus.Fields{"from": run.Status, "to": to.String()}).Debug("State change")
	run.Status = to.String()
}

func (p *Pipeline) report(run *types.RunState, stage string, res provider.Result) {
	r := types.StageReport{
		Stage:   stage,
		Outcome: res.Outcome.String(),
		Backend: res.Backend,
		Elapsed: res.Elapsed,
	}
	switch {
	case res.Err != nil:
		r.Error = res.Err.Error()
	case res.Cause != nil:
		r.Error = res.Cause.Error()
	}
	run.Stages = append(run.Stages, r)
}

func (p *Pipeline) archiveRun(ctx context.Context, run *types.RunState, out *types.ComposedVideo, log *logrus.Entry) {
	if p.archive == nil {
		return
	}
	url, err := p.archive.Store(ctx, run, out)
	if err != nil {
		log.WithError(err).Warn("Archive upload failed")
		return
	}
	run.ArchiveURL = url
	log.WithField("url", url).Info("Run archived")
}

// persist writes output/runs/<id>.json and, when a recorder is set, the
// history row. Neither failure affects the run's outcome.
func (p *Pipeline) persist(ctx context.Context, run *types.RunState, log *logrus.Entry) {
	path := filepath.Join(p.runsDir, run.RunID+".json")
	err := provider.WriteAtomic(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	})
	if err != nil {
		log.WithError(err).Warn("Could not save run state")
	}

	if p.recorder != nil {
		if err := p.recorder.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			log.WithError(err).Warn("Could not record run")
		}
	}
}
