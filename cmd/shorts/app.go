package main

import (
	"context"
	"io"

	"shorts-pipeline/internal/archive"
	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/llm"
	"shorts-pipeline/internal/logging"
	"shorts-pipeline/internal/media"
	"shorts-pipeline/internal/pipeline"
	"shorts-pipeline/internal/publish"
	"shorts-pipeline/internal/store"
	"shorts-pipeline/internal/topics"

	"github.com/sirupsen/logrus"
)

// app holds everything a command needs once configuration is loaded
type app struct {
	cfg      *config.Config
	store    *store.Store
	pipeline *pipeline.Pipeline
	log      *logrus.Entry

	closers []io.Closer
}

func newApp(ctx context.Context, settingsPath string, override func(*config.Config)) (*app, error) {
	cfg, err := config.Load(settingsPath)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logFile, err := logging.Setup(cfg.Paths.Logs, cfg.Features.Debug)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logging.For("main"), closers: []io.Closer{logFile}}

	st, err := store.Open(cfg.Paths.DB)
	if err != nil {
		a.log.WithError(err).Warn("Run history disabled")
	} else {
		a.store = st
		a.closers = append(a.closers, st)
	}

	base := logrus.NewEntry(logrus.StandardLogger())
	text := llm.New(cfg.Text, base.WithField("component", "llm"))
	if cfg.Features.CacheEnabled && a.store != nil {
		text = llm.WithCache(text, a.store, base.WithField("component", "llm"))
	}

	enc := media.NewFFmpeg(cfg.Compose.FFmpegPath, base.WithField("component", "ffmpeg"))
	if !enc.Available() {
		a.log.WithField("ffmpeg", cfg.Compose.FFmpegPath).Warn("ffmpeg not found, local rendering will fail")
	}

	pub := publish.New(cfg, base)
	a.pipeline = pipeline.New(cfg, text, enc, base).WithPublisher(pub)
	if a.store != nil {
		pub.WithRecorder(a.store)
		a.pipeline.WithRecorder(a.store)
	}

	arc, err := archive.New(ctx, archive.Config{
		AccessKey: cfg.Archive.AccessKey,
		SecretKey: cfg.Archive.SecretKey,
		Region:    cfg.Archive.Region,
		Endpoint:  cfg.Archive.Endpoint,
		Bucket:    cfg.Archive.Bucket,
	}, base)
	switch {
	case err != nil:
		a.log.WithError(err).Warn("Archive disabled")
	case arc != nil:
		a.pipeline.WithArchive(arc)
	}

	return a, nil
}

// topicSource returns nil when no subreddit is configured
func (a *app) topicSource(subreddits []string) *topics.Reddit {
	if len(subreddits) == 0 {
		return nil
	}
	src, err := topics.NewReddit(subreddits, logrus.NewEntry(logrus.StandardLogger()))
	if err != nil {
		a.log.WithError(err).Warn("Topic discovery disabled")
		return nil
	}
	return src
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.WithError(err).Warn("Close failed")
		}
	}
}
