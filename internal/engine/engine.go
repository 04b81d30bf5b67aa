// Package engine is the boundary to the native inference runtime. The
// runtime is opaque: tokenization, KV cache, and model execution all live
// behind this interface. Callers hold Model and Session handles and must
// release them in reverse order of acquisition (a Session is only valid
// while its Model is loaded).
package engine

import (
	"context"
	"errors"
)

// ErrEndOfSequence is returned by PullToken when the engine signals natural
// end of generation. It is not a failure.
var ErrEndOfSequence = errors.New("engine: end of sequence")

// unavailableError signals that the native runtime is not present in this
// build or on this host.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing native runtime.
func IsUnavailable(err error) bool {
	var ue unavailableError
	return errors.As(err, &ue)
}

// LlamaAvailable reports whether this binary carries the native llama
// runtime (built with the 'llama' tag).
func LlamaAvailable() bool { return llamaBuilt }

// ModelConfig captures model-level tunables passed to LoadModel.
type ModelConfig struct {
	// Path to the GGUF file on disk.
	Path string
	// Context window size in tokens. Zero uses the runtime default.
	CtxSize int
	// Worker threads for decoding. Zero uses the runtime default.
	Threads int
}

// SessionParams captures per-session generation parameters.
type SessionParams struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	TopK        int
	Stop        []string
	Seed        int
}

// Engine loads models. Implementations must be safe for use from a single
// goroutine at a time; serialization is the caller's responsibility.
type Engine interface {
	// LoadModel loads the model described by cfg into memory.
	LoadModel(ctx context.Context, cfg ModelConfig) (Model, error)
}

// Model is a loaded model. Close releases the native memory; any Session
// opened from it becomes invalid afterwards.
type Model interface {
	// OpenSession creates a conversation context backed by this model.
	OpenSession(params SessionParams) (Session, error)
	Close() error
}

// Session is one conversation context inside the engine. It produces tokens
// one PullToken call at a time after Begin primes it with a prompt.
type Session interface {
	// Begin starts decoding for prompt. It returns once decoding is under
	// way; tokens are retrieved with PullToken. A second Begin before the
	// previous decode drained is an error.
	Begin(ctx context.Context, prompt string) error
	// PullToken blocks until the next token is available and returns it.
	// Returns ErrEndOfSequence after the final token, or ctx.Err() when the
	// context is canceled mid-pull.
	PullToken(ctx context.Context) (string, error)
	Close() error
}
