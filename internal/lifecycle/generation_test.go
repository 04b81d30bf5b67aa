package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"inferd/internal/engine"
)

func TestStartGenerationRequiresEngine(t *testing.T) {
	c := newTestController(&fakeEngine{})
	_, err := c.StartGeneration(context.Background(), "hi")
	require.Error(t, err)
	require.True(t, IsEngineNotReady(err))
}

func TestGenerationCompletesInOrder(t *testing.T) {
	e := &fakeEngine{script: []string{"Hello", ",", " world"}}
	c := newTestController(e)
	ensureReady(t, c)

	st, err := c.StartGeneration(context.Background(), "greet")
	require.NoError(t, err)

	toks := collect(t, st)
	require.Len(t, toks, 3)
	for i, tok := range toks {
		require.Equal(t, st.ID(), tok.GenerationID)
		require.Equal(t, i, tok.Index)
	}
	require.Equal(t, "Hello", toks[0].Text)
	require.Equal(t, OutcomeCompleted, st.Outcome())
	require.NoError(t, st.Err())
	require.Equal(t, 3, st.TokenCount())

	status := c.Status()
	require.Nil(t, status.Active)
	require.Zero(t, status.PendingCancels)
}

func TestGenerationPassesPromptToEngine(t *testing.T) {
	e := &fakeEngine{script: []string{"ok"}}
	c := newTestController(e)
	ensureReady(t, c)

	st, err := c.StartGeneration(context.Background(), "Write a haiku")
	require.NoError(t, err)
	collect(t, st)

	require.Len(t, e.sessions, 1)
	require.Equal(t, "Write a haiku", e.sessions[0].prompt)
}

func TestSupersedeSilencesPreviousGeneration(t *testing.T) {
	e := &fakeEngine{script: []string{"a", "b", "c"}, gate: make(chan struct{})}
	c := newTestController(e)
	ensureReady(t, c)

	// A is parked at its first pull when B starts.
	stA, err := c.StartGeneration(context.Background(), "first")
	require.NoError(t, err)
	stB, err := c.StartGeneration(context.Background(), "second")
	require.NoError(t, err)
	require.NotEqual(t, stA.ID(), stB.ID())

	// A's pull context was canceled as a hint; its stream ends silently
	// with nothing delivered.
	toksA := collect(t, stA)
	require.Empty(t, toksA)
	require.Equal(t, OutcomeCancelled, stA.Outcome())
	require.NoError(t, stA.Err())

	// B streams the full script under its own id.
	for i := 0; i < 4; i++ {
		e.tick(t)
	}
	toksB := collect(t, stB)
	require.Len(t, toksB, 3)
	for _, tok := range toksB {
		require.Equal(t, stB.ID(), tok.GenerationID)
	}
	require.Equal(t, OutcomeCompleted, stB.Outcome())
}

func TestSupersededGenerationNeverSignalsCompletion(t *testing.T) {
	// The engine runs dry right after A is superseded. A's end of sequence
	// must surface as a silent end, not a completion.
	e := &fakeEngine{gate: make(chan struct{}), ignoreCtx: true}
	c := newTestController(e)
	ensureReady(t, c)

	stA, err := c.StartGeneration(context.Background(), "first")
	require.NoError(t, err)
	stB, err := c.StartGeneration(context.Background(), "second")
	require.NoError(t, err)

	e.tick(t)
	e.tick(t)
	require.Empty(t, collect(t, stA))
	require.Empty(t, collect(t, stB))
	require.Equal(t, OutcomeCancelled, stA.Outcome())
	require.Equal(t, OutcomeCompleted, stB.Outcome())
}

func TestSupersededGenerationSwallowsEngineError(t *testing.T) {
	// A decode failure lands after A was superseded: A ends silently while
	// the failure stays the current generation's to report.
	e := &fakeEngine{gate: make(chan struct{}), ignoreCtx: true, pullErr: errors.New("decode exploded")}
	c := newTestController(e)
	ensureReady(t, c)

	stA, err := c.StartGeneration(context.Background(), "first")
	require.NoError(t, err)
	stB, err := c.StartGeneration(context.Background(), "second")
	require.NoError(t, err)

	e.tick(t)
	e.tick(t)
	waitClosed(t, stA)
	waitClosed(t, stB)
	require.Equal(t, OutcomeCancelled, stA.Outcome())
	require.NoError(t, stA.Err())
	require.Equal(t, OutcomeFailed, stB.Outcome())
	require.True(t, IsEngineFailure(stB.Err()))
}

func TestCancelledContextBeatsPendingToken(t *testing.T) {
	// The engine hands over a token after the caller's context was already
	// cancelled; the cancellation wins and the token is never delivered.
	e := &fakeEngine{script: []string{"a", "b"}, gate: make(chan struct{}), ignoreCtx: true}
	c := newTestController(e)
	ensureReady(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	st, err := c.StartGeneration(ctx, "p")
	require.NoError(t, err)
	cancel()

	e.tick(t)
	waitClosed(t, st)
	require.Equal(t, OutcomeCancelled, st.Outcome())
	require.Zero(t, st.TokenCount())
}

func TestStaleFilterHoldsWhenEngineIgnoresCancel(t *testing.T) {
	// The engine keeps producing after the stop hint; the per-token
	// predicate is what keeps tokens away from the consumer.
	e := &fakeEngine{script: []string{"a", "b"}, gate: make(chan struct{}), ignoreCtx: true}
	c := newTestController(e)
	ensureReady(t, c)

	st, err := c.StartGeneration(context.Background(), "p")
	require.NoError(t, err)
	require.True(t, c.StopGeneration())

	// Engine still hands over a token; it must be dropped.
	e.tick(t)
	waitClosed(t, st)
	require.Equal(t, OutcomeCancelled, st.Outcome())
	require.Zero(t, st.TokenCount())
	require.Zero(t, c.Status().PendingCancels)
}

func TestCancelledGenerationNeverCompletes(t *testing.T) {
	e := &fakeEngine{script: []string{"only"}, gate: make(chan struct{}), ignoreCtx: true}
	c := newTestController(e)
	ensureReady(t, c)

	st, err := c.StartGeneration(context.Background(), "p")
	require.NoError(t, err)

	e.tick(t)
	tok := recvToken(t, st)
	require.Equal(t, "only", tok.Text)

	require.True(t, c.StopGeneration())
	// Next pull hits end of sequence, but the generation was stopped:
	// silent termination, no completion signal.
	e.tick(t)
	waitClosed(t, st)
	require.Equal(t, OutcomeCancelled, st.Outcome())
	require.Zero(t, c.Status().PendingCancels)
}

func TestAbandonedStreamStopsPump(t *testing.T) {
	e := &fakeEngine{script: make([]string, 64)}
	for i := range e.script {
		e.script[i] = "t"
	}
	c := newTestController(e, func(cfg *Config) { cfg.TokenBuffer = 1 })
	ensureReady(t, c)

	st, err := c.StartGeneration(context.Background(), "p")
	require.NoError(t, err)
	recvToken(t, st)
	st.Close()

	// Drain anything already buffered; the pump must notice the abandoned
	// stream and go silent well before exhausting the script.
	collect(t, st)
	require.Equal(t, OutcomeCancelled, st.Outcome())
	require.Less(t, st.TokenCount(), 64)
	require.Nil(t, c.Status().Active)
}

func TestEngineFailureMidStream(t *testing.T) {
	e := &fakeEngine{script: []string{"a", "b", "c"}, pullErr: errors.New("boom"), failAfter: 2}
	c := newTestController(e)
	ensureReady(t, c)

	st, err := c.StartGeneration(context.Background(), "p")
	require.NoError(t, err)

	toks := collect(t, st)
	require.Len(t, toks, 2)
	require.Equal(t, OutcomeFailed, st.Outcome())
	require.True(t, IsEngineFailure(st.Err()))
	require.Nil(t, c.Status().Active)
}

func TestBeginFailureFailsStart(t *testing.T) {
	e := &fakeEngine{beginErr: errors.New("prime failed")}
	c := newTestController(e)
	ensureReady(t, c)

	_, err := c.StartGeneration(context.Background(), "p")
	require.Error(t, err)
	require.True(t, IsEngineFailure(err))
	require.Nil(t, c.Status().Active)
}

func TestTokensCarryOpeningGenerationID(t *testing.T) {
	// Across arbitrary start/stop interleavings, every delivered token
	// carries the id its stream was opened with.
	e := &fakeEngine{script: []string{"x", "y", "z"}}
	c := newTestController(e)
	ensureReady(t, c)

	for i := 0; i < 20; i++ {
		st, err := c.StartGeneration(context.Background(), "p")
		require.NoError(t, err)
		if i%3 == 0 {
			c.StopGeneration()
		}
		for _, tok := range collect(t, st) {
			require.Equal(t, st.ID(), tok.GenerationID)
		}
	}
}

func TestGenerationIDsNeverReused(t *testing.T) {
	e := &fakeEngine{script: []string{"t"}}
	c := newTestController(e)
	ensureReady(t, c)

	seen := make(map[GenerationID]bool)
	for i := 0; i < 50; i++ {
		st, err := c.StartGeneration(context.Background(), "p")
		require.NoError(t, err)
		require.False(t, seen[st.ID()])
		seen[st.ID()] = true
		collect(t, st)
	}
}

func TestCallerContextCancelEndsSilently(t *testing.T) {
	e := &fakeEngine{script: []string{"a", "b"}, gate: make(chan struct{})}
	c := newTestController(e)
	ensureReady(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	st, err := c.StartGeneration(ctx, "p")
	require.NoError(t, err)
	cancel()

	waitClosed(t, st)
	require.Equal(t, OutcomeCancelled, st.Outcome())
	require.NoError(t, st.Err())
}

func TestMergeParamsOverlaysNonZero(t *testing.T) {
	c := newTestController(&fakeEngine{}, func(cfg *Config) {
		cfg.Params = engine.SessionParams{MaxTokens: 100, Temperature: 0.5}
	})
	got := c.mergeParams(engine.SessionParams{MaxTokens: 7, TopK: 40})
	require.Equal(t, 7, got.MaxTokens)
	require.Equal(t, float32(0.5), got.Temperature)
	require.Equal(t, 40, got.TopK)
}
