package lifecycle

import "errors"

// notReadyError signals that generation was requested with no model/session
// established. HTTP maps this to 503.
type notReadyError struct{}

func (notReadyError) Error() string { return "engine not ready: no model/session established" }

// ErrEngineNotReady is returned by StartGeneration until EnsureEngine has
// established a model and session.
var ErrEngineNotReady error = notReadyError{}

// IsEngineNotReady reports whether err indicates a missing model/session.
func IsEngineNotReady(err error) bool {
	var e notReadyError
	return errors.As(err, &e)
}

// engineFailureError wraps an adapter-reported error. A generation hitting
// one terminates in the failed state; the process keeps running.
type engineFailureError struct{ err error }

func (e engineFailureError) Error() string { return "engine failure: " + e.err.Error() }
func (e engineFailureError) Unwrap() error { return e.err }

// EngineFailure wraps an error reported by the engine adapter.
func EngineFailure(err error) error { return engineFailureError{err: err} }

// IsEngineFailure reports whether err originated in the engine adapter.
func IsEngineFailure(err error) bool {
	var e engineFailureError
	return errors.As(err, &e)
}

// teardownError signals that the engine failed to release a handle during
// ResetContext. The local handle is cleared regardless, so this is a
// warning, not a fatal condition.
type teardownError struct{ err error }

func (e teardownError) Error() string { return "teardown failure: " + e.err.Error() }
func (e teardownError) Unwrap() error { return e.err }

// TeardownFailure wraps an engine teardown error.
func TeardownFailure(err error) error { return teardownError{err: err} }

// IsTeardownFailure reports whether err is a non-fatal teardown warning.
func IsTeardownFailure(err error) bool {
	var e teardownError
	return errors.As(err, &e)
}

// modelNotFoundError signals a model id absent from the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound returns an error for a model id not present in the registry.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}
