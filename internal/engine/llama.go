//go:build llama

package engine

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

type llamaEngine struct{}

// NewLlama returns the go-llama.cpp backed engine.
func NewLlama() Engine { return llamaEngine{} }

func (llamaEngine) LoadModel(ctx context.Context, cfg ModelConfig) (Model, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("engine: model path is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var mo []llama.ModelOption
	if cfg.CtxSize > 0 {
		mo = append(mo, llama.SetContext(cfg.CtxSize))
	}
	m, err := llama.New(cfg.Path, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaModel{m: m, threads: cfg.Threads}, nil
}

// llamaModel owns the loaded native model.
type llamaModel struct {
	m       *llama.LLama
	threads int
}

func (lm *llamaModel) OpenSession(params SessionParams) (Session, error) {
	if lm.m == nil {
		return nil, errors.New("engine: model is closed")
	}
	return &llamaSession{m: lm.m, threads: lm.threads, params: params}, nil
}

func (lm *llamaModel) Close() error {
	if lm.m != nil {
		lm.m.Free()
		lm.m = nil
	}
	return nil
}

// llamaSession runs go-llama.cpp's push-style token callback through a
// pullBridge so PullToken can drain it. Close drains the Predict goroutine
// before the model reference is dropped, which keeps the subsequent
// llamaModel.Close from freeing native memory under a live decode.
type llamaSession struct {
	m       *llama.LLama
	threads int
	params  SessionParams
	bridge  pullBridge
}

func (s *llamaSession) Begin(ctx context.Context, prompt string) error {
	if s.m == nil {
		return errors.New("engine: session is closed")
	}
	return s.bridge.begin(ctx, func(runCtx context.Context, push func(string) bool) error {
		s.m.SetTokenCallback(push)
		_, err := s.m.Predict(prompt, predictOptions(s.params, s.threads)...)
		return err
	})
}

func (s *llamaSession) PullToken(ctx context.Context) (string, error) {
	return s.bridge.pull(ctx)
}

func (s *llamaSession) Close() error {
	s.bridge.close()
	s.m = nil
	return nil
}

func pos(v int) int {
	if v > 0 {
		return v
	}
	return 1
}

// predictOptions converts SessionParams into go-llama.cpp options.
func predictOptions(params SessionParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(pos(params.MaxTokens)),
		llama.SetThreads(pos(threads)),
	}
	if params.Temperature > 0 {
		po = append(po, llama.SetTemperature(params.Temperature))
	}
	if params.TopP > 0 {
		po = append(po, llama.SetTopP(params.TopP))
	}
	if params.TopK > 0 {
		po = append(po, llama.SetTopK(params.TopK))
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
