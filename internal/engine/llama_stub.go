//go:build !llama

package engine

// This file provides a no-CGO stub for the llama engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real engine lives in llama.go (tagged 'llama').

import "context"

// llamaBuilt indicates whether this binary was compiled with real llama support.
var llamaBuilt = false

type llamaEngine struct{}

// NewLlama returns a stub that refuses to load models without the 'llama'
// build tag. This avoids any mocked behavior in binaries built without CGO.
func NewLlama() Engine { return llamaEngine{} }

func (llamaEngine) LoadModel(ctx context.Context, cfg ModelConfig) (Model, error) {
	return nil, ErrUnavailable("llama support not built (missing 'llama' build tag)")
}
