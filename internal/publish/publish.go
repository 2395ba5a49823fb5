package publish

import (
	"context"
	"os"
	"time"

	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/store"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Uploader sends one video to one platform
type Uploader interface {
	Name() string
	Upload(ctx context.Context, video string, platform types.Platform, meta Metadata) error
}

// Recorder persists upload attempts
type Recorder interface {
	SavePublication(ctx context.Context, p store.Publication) error
}

// Report is the outcome of one fan-out
type Report struct {
	Results types.PublishResult
	Errors  map[types.Platform]error
}

// OK reports whether at least one platform accepted the video
func (r Report) OK() bool { return r.Results.Succeeded() }

// Publisher fans a finished video out to its platforms. A failure on one
// platform never prevents attempts on the others.
type Publisher struct {
	uploaders map[types.Platform]Uploader
	defaults  []types.Platform
	recorder  Recorder
	log       *logrus.Entry
}

func NewPublisher(defaults []types.Platform, log *logrus.Entry) *Publisher {
	return &Publisher{
		uploaders: make(map[types.Platform]Uploader),
		defaults:  defaults,
		log:       log.WithField("component", "publish"),
	}
}

// Route sends uploads for platform through u
func (p *Publisher) Route(platform types.Platform, u Uploader) *Publisher {
	p.uploaders[platform] = u
	return p
}

// WithRecorder records every attempt
func (p *Publisher) WithRecorder(r Recorder) *Publisher {
	p.recorder = r
	return p
}

// Defaults returns the platforms enabled in configuration
func (p *Publisher) Defaults() []types.Platform {
	return append([]types.Platform(nil), p.defaults...)
}

// Publish uploads video to each platform in turn. An empty platform set is
// reported as a failure without any upload attempt.
func (p *Publisher) Publish(ctx context.Context, video string, meta Metadata, platforms []types.Platform) Report {
	report := Report{
		Results: make(types.PublishResult, len(platforms)),
		Errors:  make(map[types.Platform]error),
	}
	if len(platforms) == 0 {
		p.log.Warn("No platforms enabled")
		return report
	}
	if _, err := os.Stat(video); err != nil {
		err = provider.Classify(provider.ErrPublish, "publish", err)
		for _, platform := range platforms {
			report.Results[platform] = false
			report.Errors[platform] = err
		}
		p.log.WithError(err).Error("Video to publish is missing")
		return report
	}

	for _, platform := range platforms {
		if ctx.Err() != nil {
			report.Results[platform] = false
			report.Errors[platform] = ctx.Err()
			continue
		}
		err := p.publishOne(ctx, video, platform, meta)
		report.Results[platform] = err == nil
		if err != nil {
			report.Errors[platform] = err
		}
		p.record(ctx, video, platform, err)
	}

	succeeded := 0
	for _, ok := range report.Results {
		if ok {
			succeeded++
		}
	}
	p.log.WithFields(logrus.Fields{
		"video":     video,
		"attempted": len(platforms),
		"succeeded": succeeded,
	}).Info("Publishing finished")
	return report
}

func (p *Publisher) publishOne(ctx context.Context, video string, platform types.Platform, meta Metadata) error {
	entry := p.log.WithField("platform", platform)

	u, ok := p.uploaders[platform]
	if !ok {
		err := provider.Classify(provider.ErrPublish, string(platform), provider.Unavailable(string(platform), "no uploader configured"))
		entry.WithError(err).Warn("Skipping platform")
		return err
	}

	start := time.Now()
	if err := u.Upload(ctx, video, platform, meta); err != nil {
		err = provider.Classify(provider.ErrPublish, string(platform), err)
		if errors.Is(err, provider.ErrBackendUnavailable) {
			entry.WithError(err).Warn("Skipping platform")
		} else {
			entry.WithError(err).Error("Upload failed")
		}
		return err
	}
	entry.WithFields(logrus.Fields{
		"uploader": u.Name(),
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("Published")
	return nil
}

func (p *Publisher) record(ctx context.Context, video string, platform types.Platform, err error) {
	if p.recorder == nil {
		return
	}
	pub := store.Publication{VideoPath: video, Platform: platform, Success: err == nil}
	if err != nil {
		pub.Error = err.Error()
	}
	if rerr := p.recorder.SavePublication(ctx, pub); rerr != nil {
		p.log.WithError(rerr).Warn("Could not record publication")
	}
}
