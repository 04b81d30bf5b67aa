package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"inferd/internal/engine"
)

// GenerationID identifies one generation attempt. IDs are never reused and
// compared by equality only.
type GenerationID string

func newGenerationID() GenerationID { return GenerationID(uuid.NewString()) }

// activeGeneration is the single in-flight generation record.
type activeGeneration struct {
	id         GenerationID
	cancel     context.CancelFunc
	tokenCount int
}

// Outcome is the terminal state of a generation.
type Outcome string

const (
	// OutcomeCompleted: the engine signaled end of sequence and the stream
	// ended with a completion signal.
	OutcomeCompleted Outcome = "completed"
	// OutcomeCancelled: the stream ended silently, either because the
	// generation was stopped, superseded, or abandoned by its consumer.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeFailed: the engine reported an error mid-generation.
	OutcomeFailed Outcome = "failed"
)

// Token is one unit of model output delivered during a generation.
type Token struct {
	GenerationID GenerationID
	Text         string
	Index        int
}

// Stream is the ordered, finite token sequence of one generation. Tokens()
// closes on any terminal transition; Outcome and Err are valid afterwards.
// Close abandons the stream without stopping the generation record itself —
// the pump notices and goes silent, so no tokens leak either way.
type Stream struct {
	id      GenerationID
	tokens  chan Token
	closed  chan struct{}
	closeFn sync.Once

	mu      sync.Mutex
	outcome Outcome
	err     error
	count   int
}

func newStream(id GenerationID, buffer int) *Stream {
	return &Stream{
		id:     id,
		tokens: make(chan Token, buffer),
		closed: make(chan struct{}),
	}
}

// ID returns the generation identifier this stream was opened with.
func (s *Stream) ID() GenerationID { return s.id }

// Tokens returns the receive side of the stream. It is closed on completion,
// cancellation, and failure alike; check Outcome to tell them apart.
func (s *Stream) Tokens() <-chan Token { return s.tokens }

// Close abandons the stream. Safe to call multiple times and after the
// stream has ended.
func (s *Stream) Close() { s.closeFn.Do(func() { close(s.closed) }) }

// Outcome reports the terminal state. Valid once Tokens() is closed.
func (s *Stream) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Err returns the failure, if any. Nil for completed and cancelled streams.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// TokenCount returns the number of tokens forwarded into the stream.
func (s *Stream) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Stream) finish(outcome Outcome, err error) {
	s.mu.Lock()
	s.outcome = outcome
	s.err = err
	s.mu.Unlock()
	close(s.tokens)
}

// StartGeneration allocates a fresh generation id, registers it as the sole
// active generation, and begins pulling tokens from the engine. Any previous
// active generation is superseded: its record is replaced here and its pump
// observes the mismatch at the next per-token check. Fails with
// ErrEngineNotReady until EnsureEngine has established a model and session.
func (c *Controller) StartGeneration(ctx context.Context, prompt string) (*Stream, error) {
	c.mu.Lock()
	if c.model == nil || c.session == nil {
		c.mu.Unlock()
		return nil, ErrEngineNotReady
	}
	id := newGenerationID()
	genCtx, cancel := context.WithCancel(ctx)
	if prev := c.active; prev != nil {
		// Superseding is authoritative via the id check; canceling the old
		// pull context merely hurries the engine.
		prev.cancel()
	}
	c.active = &activeGeneration{id: id, cancel: cancel}
	c.generations++
	sess := c.session
	c.mu.Unlock()

	generationsStarted.Inc()
	c.pub.Publish(Event{Name: "generation_start", GenerationID: string(id)})
	c.log.Debug().Str("generation_id", string(id)).Msg("generation start")

	if err := sess.Begin(genCtx, prompt); err != nil {
		cancel()
		c.mu.Lock()
		if c.active != nil && c.active.id == id {
			c.active = nil
		}
		delete(c.cancelled, id)
		c.mu.Unlock()
		generationsFinished.WithLabelValues(string(OutcomeFailed)).Inc()
		return nil, EngineFailure(err)
	}

	st := newStream(id, c.tokenBuffer)
	go c.pump(genCtx, cancel, id, sess, st)
	return st, nil
}

// pump is the long-lived per-generation task: one PullToken per emitted
// token, with the cancellation predicate checked before every forward.
func (c *Controller) pump(ctx context.Context, cancel context.CancelFunc, id GenerationID, sess engine.Session, st *Stream) {
	defer cancel()
	for {
		text, err := sess.PullToken(ctx)
		if err != nil {
			switch {
			case errors.Is(err, engine.ErrEndOfSequence):
				c.finish(id, st, OutcomeCompleted, nil)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				c.finish(id, st, OutcomeCancelled, nil)
			default:
				c.finish(id, st, OutcomeFailed, EngineFailure(err))
			}
			return
		}

		c.mu.Lock()
		if c.stale(id) {
			c.mu.Unlock()
			staleTokensDropped.Inc()
			c.finish(id, st, OutcomeCancelled, nil)
			return
		}
		idx := c.active.tokenCount
		c.active.tokenCount++
		c.mu.Unlock()

		// Cancellation and abandonment outrank a deliverable token, so a
		// token never wins a race against a stop that already happened.
		select {
		case <-st.closed:
			c.finish(id, st, OutcomeCancelled, nil)
			return
		case <-ctx.Done():
			c.finish(id, st, OutcomeCancelled, nil)
			return
		default:
		}
		select {
		case st.tokens <- Token{GenerationID: id, Text: text, Index: idx}:
			st.mu.Lock()
			st.count++
			st.mu.Unlock()
			tokensForwarded.Inc()
		case <-st.closed:
			c.finish(id, st, OutcomeCancelled, nil)
			return
		case <-ctx.Done():
			c.finish(id, st, OutcomeCancelled, nil)
			return
		}
	}
}

// stale is the cancellation predicate: the id was told to stop, or it is no
// longer the active generation. Callers hold c.mu.
func (c *Controller) stale(id GenerationID) bool {
	if _, ok := c.cancelled[id]; ok {
		return true
	}
	return c.active == nil || c.active.id != id
}

// finish applies the terminal transition for id: clears the active record if
// it still refers to this generation, removes any cancellation bookkeeping,
// and ends the stream. A generation that was told to stop or was superseded
// never completes and never fails; whatever the engine reported last, its
// stream ends silently.
func (c *Controller) finish(id GenerationID, st *Stream, outcome Outcome, err error) {
	c.mu.Lock()
	_, wasCancelled := c.cancelled[id]
	delete(c.cancelled, id)
	stillActive := c.active != nil && c.active.id == id
	if stillActive {
		c.active = nil
	}
	if (wasCancelled || !stillActive) && outcome != OutcomeCancelled {
		outcome = OutcomeCancelled
		err = nil
	}
	c.mu.Unlock()

	st.finish(outcome, err)
	generationsFinished.WithLabelValues(string(outcome)).Inc()
	c.pub.Publish(Event{Name: "generation_" + string(outcome), GenerationID: string(id)})
	ev := c.log.Debug().Str("generation_id", string(id)).Str("outcome", string(outcome))
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("generation end")
}
