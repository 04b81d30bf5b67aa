package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/engine"
	"inferd/pkg/types"
)

// fakeEngine is an in-memory engine for tests. Sessions replay the script;
// when gate is set, PullToken waits for one tick per call, letting tests
// hold the pump at a suspension point. ignoreCtx simulates an engine that
// keeps computing after a cancellation hint.
type fakeEngine struct {
	mu        sync.Mutex
	script    []string
	gate      chan struct{}
	ignoreCtx bool

	loadErr   error
	openErr   error
	beginErr  error
	pullErr   error
	failAfter int

	sessionCloseErr error
	modelCloseErr   error

	loadCalls int32
	models    []*fakeModel
	sessions  []*fakeSession
}

func (e *fakeEngine) LoadModel(ctx context.Context, cfg engine.ModelConfig) (engine.Model, error) {
	atomic.AddInt32(&e.loadCalls, 1)
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	m := &fakeModel{eng: e, path: cfg.Path}
	e.mu.Lock()
	e.models = append(e.models, m)
	e.mu.Unlock()
	return m, nil
}

type fakeModel struct {
	eng    *fakeEngine
	path   string
	closes int32
}

func (m *fakeModel) OpenSession(params engine.SessionParams) (engine.Session, error) {
	if m.eng.openErr != nil {
		return nil, m.eng.openErr
	}
	s := &fakeSession{eng: m.eng, tokens: append([]string(nil), m.eng.script...)}
	m.eng.mu.Lock()
	m.eng.sessions = append(m.eng.sessions, s)
	m.eng.mu.Unlock()
	return s, nil
}

func (m *fakeModel) Close() error {
	atomic.AddInt32(&m.closes, 1)
	return m.eng.modelCloseErr
}

type fakeSession struct {
	eng    *fakeEngine
	mu     sync.Mutex
	tokens []string
	i      int
	prompt string
	begun  int
	closes int32
}

func (s *fakeSession) Begin(ctx context.Context, prompt string) error {
	if s.eng.beginErr != nil {
		return s.eng.beginErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = prompt
	s.i = 0
	s.begun++
	return nil
}

func (s *fakeSession) PullToken(ctx context.Context) (string, error) {
	if g := s.eng.gate; g != nil {
		if s.eng.ignoreCtx {
			<-g
		} else {
			select {
			case <-g:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	} else if !s.eng.ignoreCtx {
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng.pullErr != nil && s.i >= s.eng.failAfter {
		return "", s.eng.pullErr
	}
	if s.i >= len(s.tokens) {
		return "", engine.ErrEndOfSequence
	}
	tok := s.tokens[s.i]
	s.i++
	return tok, nil
}

func (s *fakeSession) Close() error {
	atomic.AddInt32(&s.closes, 1)
	return s.eng.sessionCloseErr
}

// tick releases one gated PullToken call.
func (e *fakeEngine) tick(t *testing.T) {
	t.Helper()
	select {
	case e.gate <- struct{}{}:
	case <-time.After(2 * time.Second):
		t.Fatalf("no PullToken waiting on gate")
	}
}

// newTestController wires a Controller over e with a one-model registry.
func newTestController(e *fakeEngine, opts ...func(*Config)) *Controller {
	cfg := Config{
		Engine:   e,
		Registry: []types.Model{{ID: "m1", Name: "m1", Path: "/fake/m1.gguf"}},
		Logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return New(cfg)
}

// ensureReady establishes model+session or fails the test.
func ensureReady(t *testing.T, c *Controller) {
	t.Helper()
	if err := c.EnsureEngine(context.Background(), "m1", engine.SessionParams{}); err != nil {
		t.Fatalf("ensure engine: %v", err)
	}
}

// collect drains a stream until it closes or the timeout hits.
func collect(t *testing.T, st *Stream) []Token {
	t.Helper()
	var out []Token
	deadline := time.After(2 * time.Second)
	for {
		select {
		case tok, ok := <-st.Tokens():
			if !ok {
				return out
			}
			out = append(out, tok)
		case <-deadline:
			t.Fatalf("stream did not terminate; got %d tokens", len(out))
		}
	}
}

// recvToken reads one token or fails.
func recvToken(t *testing.T, st *Stream) Token {
	t.Helper()
	select {
	case tok, ok := <-st.Tokens():
		if !ok {
			t.Fatalf("stream closed early")
		}
		return tok
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for token")
	}
	return Token{}
}

// waitClosed asserts the stream terminates without further tokens.
func waitClosed(t *testing.T, st *Stream) {
	t.Helper()
	select {
	case tok, ok := <-st.Tokens():
		if ok {
			t.Fatalf("unexpected token after terminal state: %q", tok.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not close")
	}
}
