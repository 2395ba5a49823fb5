package provider

import "github.com/pkg/errors"

var (
	// ErrBackendUnavailable means the backend has no credential or configuration.
	// It always triggers the fallback and is never surfaced to callers.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrBackend means the backend answered with a non-success response or failed in transit.
	ErrBackend = errors.New("backend error")
	// ErrLocalRender means the local substitute itself failed; there is nothing left to try.
	ErrLocalRender = errors.New("local render failed")
	// ErrCompose means the final video could not be produced.
	ErrCompose = errors.New("compose failed")
	// ErrPublish marks a single platform upload failure.
	ErrPublish = errors.New("publish failed")
)

// Unavailable wraps ErrBackendUnavailable with the backend and reason
func Unavailable(backend, reason string) error {
	return errors.Wrapf(ErrBackendUnavailable, "%s: %s", backend, reason)
}

// BackendErr marks err as a backend failure, keeping its message
func BackendErr(backend string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrBackend) {
		return err
	}
	return &classified{kind: ErrBackend, msg: backend, err: err}
}

// classified ties a cause to one of the taxonomy sentinels so that
// errors.Is matches both the sentinel and anything wrapped below it.
type classified struct {
	kind error
	msg  string
	err  error
}

func (c *classified) Error() string { return c.msg + ": " + c.kind.Error() + ": " + c.err.Error() }

func (c *classified) Unwrap() error { return c.err }

func (c *classified) Is(target error) bool { return target == c.kind }

// Classify wraps err so that errors.Is(err, kind) holds
func Classify(kind error, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &classified{kind: kind, msg: msg, err: err}
}
