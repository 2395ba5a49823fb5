package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"shorts-pipeline/internal/config"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Pipeline is what a firing drives
type Pipeline interface {
	Generate(ctx context.Context, topic types.Topic, duration time.Duration) (*types.ComposedVideo, *types.RunState, error)
	PublishDefaults(ctx context.Context, video *types.ComposedVideo) bool
}

// TopicSource turns the rotated topic into a concrete one
type TopicSource interface {
	Pick(ctx context.Context, hint string) (string, error)
}

// Options are the per-firing settings
type Options struct {
	Duration    time.Duration
	Language    string
	AutoPublish bool
}

// Firing is the outcome of one scheduled run
type Firing struct {
	Topic     string
	Video     *types.ComposedVideo
	Published bool
	Err       error
}

// Scheduler fires the pipeline at daily times and cron expressions.
// Firings are serialized: one never starts while another is running.
type Scheduler struct {
	cursor    *Cursor
	schedules []cron.Schedule
	specs     []string
	loc       *time.Location
	clock     Clock
	pipeline  Pipeline
	source    TopicSource
	opts      Options
	log       *logrus.Entry

	mu sync.Mutex
}

// New builds a scheduler over the given topics and firing specs. Daily times
// are HH:MM; crons use the standard five-field syntax.
func New(topics, dailyTimes, crons []string, loc *time.Location, p Pipeline, opts Options, log *logrus.Entry) (*Scheduler, error) {
	cursor, err := NewCursor(topics)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		cursor:   cursor,
		loc:      loc,
		clock:    RealClock(),
		pipeline: p,
		opts:     opts,
		log:      log.WithField("component", "scheduler"),
	}
	for _, hhmm := range dailyTimes {
		h, m, err := config.ParseClock(hhmm)
		if err != nil {
			return nil, err
		}
		if err := s.add(fmt.Sprintf("%d %d * * *", m, h)); err != nil {
			return nil, err
		}
	}
	for _, spec := range crons {
		if err := s.add(spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FromConfig builds the scheduler described by configuration. Daily times
// beyond videos_per_day are ignored.
func FromConfig(cfg *config.Config, p Pipeline, log *logrus.Entry) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	hours := cfg.Schedule.GenerationHours
	if n := cfg.Schedule.VideosPerDay; n > 0 && n < len(hours) {
		hours = hours[:n]
	}
	return New(cfg.Defaults.Topics, hours, cfg.Schedule.Crons, loc, p, Options{
		Duration:    time.Duration(cfg.Defaults.Duration) * time.Second,
		Language:    cfg.Defaults.Language,
		AutoPublish: cfg.Features.AutoPublish,
	}, log)
}

func (s *Scheduler) add(spec string) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return errors.Wrapf(err, "invalid schedule %q", spec)
	}
	s.schedules = append(s.schedules, sched)
	s.specs = append(s.specs, spec)
	return nil
}

// WithClock replaces the wall clock
func (s *Scheduler) WithClock(c Clock) *Scheduler {
	s.clock = c
	return s
}

// WithTopicSource refines each rotated topic through src
func (s *Scheduler) WithTopicSource(src TopicSource) *Scheduler {
	s.source = src
	return s
}

// Cursor exposes the topic rotation
func (s *Scheduler) Cursor() *Cursor { return s.cursor }

// NextFiring returns the earliest firing strictly after t, or the zero time
// when nothing is scheduled
func (s *Scheduler) NextFiring(t time.Time) time.Time {
	var next time.Time
	for _, sched := range s.schedules {
		n := sched.Next(t.In(s.loc))
		if n.IsZero() {
			continue
		}
		if next.IsZero() || n.Before(next) {
			next = n
		}
	}
	return next
}

// Run fires at every scheduled time until ctx is cancelled. Deadlines follow
// the previous scheduled time, so slots missed during a long firing collapse
// into a single immediate firing.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.schedules) == 0 {
		return errors.New("nothing scheduled")
	}
	s.log.WithFields(logrus.Fields{
		"schedules": s.specs,
		"topics":    s.cursor.Len(),
		"timezone":  s.loc.String(),
	}).Info("Scheduler running")

	last := s.clock.Now()
	for {
		next := s.NextFiring(last)
		if next.IsZero() {
			return errors.New("no future firing")
		}

		now := s.clock.Now()
		skipped := 0
		for n := s.NextFiring(next); !n.IsZero() && !n.After(now); n = s.NextFiring(next) {
			next = n
			skipped++
		}
		if skipped > 0 {
			s.log.WithField("skipped", skipped).Warn("Missed firings collapsed into one")
		}

		if wait := next.Sub(now); wait > 0 {
			s.log.WithField("next", next.Format(time.RFC3339)).Debug("Waiting for next firing")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(wait):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		s.Fire(ctx)
		last = next
	}
}

// Fire runs one firing now: the cursor advances first, then the pipeline runs
// and, when auto-publish is on, publishes. Panics are contained.
func (s *Scheduler) Fire(ctx context.Context) (f Firing) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.Topic = s.cursor.Next()
	entry := s.log.WithField("topic", f.Topic)

	defer func() {
		if r := recover(); r != nil {
			f.Err = errors.Errorf("firing panicked: %v", r)
			entry.WithField("stack", string(debug.Stack())).Error(f.Err)
		}
	}()

	if s.source != nil {
		if picked, err := s.source.Pick(ctx, f.Topic); err != nil {
			entry.WithError(err).Warn("Topic source failed, using rotated topic")
		} else {
			f.Topic = picked
			entry = entry.WithField("picked", picked)
		}
	}

	entry.Info("Scheduled run starting")
	video, _, err := s.pipeline.Generate(ctx, types.Topic{Text: f.Topic, Language: s.opts.Language}, s.opts.Duration)
	if err != nil {
		f.Err = err
		entry.WithError(err).Error("Scheduled run failed")
		return f
	}
	f.Video = video

	if s.opts.AutoPublish {
		f.Published = s.pipeline.PublishDefaults(ctx, video)
	}
	entry.WithFields(logrus.Fields{"video": video.Path, "published": f.Published}).Info("Scheduled run complete")
	return f
}
