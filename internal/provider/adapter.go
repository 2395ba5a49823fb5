package provider

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Backend produces one stage artifact from its input.
// Implementations write large artifacts to disk and return references.
type Backend[In, Out any] interface {
	Name() string
	Produce(ctx context.Context, in In) (Out, error)
}

// Outcome is how a stage ended
type Outcome int

const (
	// Produced means the primary backend delivered the artifact
	Produced Outcome = iota
	// FellBack means the local substitute delivered the artifact
	FellBack
	// Failed means no artifact was produced
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Produced:
		return "produced"
	case FellBack:
		return "fell_back"
	default:
		return "failed"
	}
}

// Result describes a single Produce call. The pipeline only cares about OK(),
// the rest is for logs and run history.
type Result struct {
	Outcome Outcome
	Backend string
	// Cause is why the primary was skipped when Outcome is FellBack
	Cause   error
	Err     error
	Elapsed time.Duration
}

// OK reports whether an artifact was produced
func (r Result) OK() bool { return r.Outcome != Failed }

// Adapter wraps a primary backend chosen at construction time with an optional
// deterministic local fallback.
type Adapter[In, Out any] struct {
	role     string
	primary  Backend[In, Out]
	fallback Backend[In, Out]
	log      *logrus.Entry
}

// NewAdapter builds an adapter for one stage role. primary may be nil when the
// configured provider is unknown or lacks a credential; fallback may be nil for
// stages that have no local substitute.
func NewAdapter[In, Out any](role string, primary, fallback Backend[In, Out], log *logrus.Entry) *Adapter[In, Out] {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter[In, Out]{
		role:     role,
		primary:  primary,
		fallback: fallback,
		log:      log.WithField("component", role),
	}
}

// Role returns the stage name
func (a *Adapter[In, Out]) Role() string { return a.role }

// Primary returns the configured primary backend name, or "" when none
func (a *Adapter[In, Out]) Primary() string {
	if a.primary == nil {
		return ""
	}
	return a.primary.Name()
}

// Produce runs the primary backend and silently falls back on failure
func (a *Adapter[In, Out]) Produce(ctx context.Context, in In) (Out, Result) {
	start := time.Now()
	var zero Out

	var cause error
	if a.primary == nil {
		cause = Unavailable(a.role, "no primary backend configured")
	} else {
		out, err := a.primary.Produce(ctx, in)
		if err == nil {
			return out, Result{Outcome: Produced, Backend: a.primary.Name(), Elapsed: time.Since(start)}
		}
		cause = BackendErr(a.primary.Name(), err)
	}

	if err := ctx.Err(); err != nil {
		return zero, Result{Outcome: Failed, Backend: a.Primary(), Err: errors.Wrap(err, a.role), Elapsed: time.Since(start)}
	}

	if a.fallback == nil {
		a.log.WithError(cause).Error("Stage failed and has no fallback")
		return zero, Result{Outcome: Failed, Backend: a.Primary(), Err: cause, Elapsed: time.Since(start)}
	}

	entry := a.log.WithField("fallback", a.fallback.Name()).WithError(cause)
	if errors.Is(cause, ErrBackendUnavailable) {
		entry.Info("Primary backend unavailable, using local substitute")
	} else {
		entry.Warn("Primary backend failed, using local substitute")
	}

	out, err := a.fallback.Produce(ctx, in)
	if err != nil {
		err = Classify(ErrLocalRender, a.fallback.Name(), err)
		a.log.WithError(err).Error("Local substitute failed")
		return zero, Result{Outcome: Failed, Backend: a.fallback.Name(), Cause: cause, Err: err, Elapsed: time.Since(start)}
	}
	return out, Result{Outcome: FellBack, Backend: a.fallback.Name(), Cause: cause, Elapsed: time.Since(start)}
}
