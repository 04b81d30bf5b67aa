package engine

import (
	"context"
	"errors"
	"sync"
)

// tokenBufferLen is the channel buffer between producer and puller.
const tokenBufferLen = 8

// pullBridge adapts a push-style token producer to the pull-style Session
// contract. begin runs the producer on its own goroutine behind fresh
// channels; pull drains them; close cancels the producer and blocks until
// its goroutine has exited, so native resources behind the producer can be
// freed safely afterwards.
type pullBridge struct {
	mu     sync.Mutex
	tokens chan string
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// begin waits for any previous decode to drain, installs fresh channel
// state, and starts run on its own goroutine. run pushes tokens via push,
// which reports false once the decode should stop; run's error is surfaced
// by the pull that observes the closed channel, unless the decode was
// cancelled first.
func (b *pullBridge) begin(ctx context.Context, run func(ctx context.Context, push func(string) bool) error) error {
	b.mu.Lock()
	prevDone := b.done
	b.mu.Unlock()
	if prevDone != nil {
		select {
		case <-prevDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	tokens := make(chan string, tokenBufferLen)
	done := make(chan struct{})
	b.mu.Lock()
	b.tokens, b.done, b.err, b.cancel = tokens, done, nil, cancel
	b.mu.Unlock()

	push := func(tok string) bool {
		select {
		case tokens <- tok:
			return true
		case <-runCtx.Done():
			return false
		}
	}
	go func() {
		err := run(runCtx, push)
		if err != nil && runCtx.Err() == nil {
			b.mu.Lock()
			b.err = err
			b.mu.Unlock()
		}
		close(tokens)
		close(done)
		cancel()
	}()
	return nil
}

// pull returns the next token, ErrEndOfSequence when the producer drained
// cleanly, or the producer's error. The snapshot is taken under the mutex
// before the context check: a caller that observes a newer begin was
// necessarily cancelled before that begin ran, so the check below sends it
// away before it can drain a successor's tokens.
func (b *pullBridge) pull(ctx context.Context) (string, error) {
	b.mu.Lock()
	tokens, done := b.tokens, b.done
	b.mu.Unlock()
	if tokens == nil {
		return "", errors.New("engine: Begin not called")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	select {
	case tok, ok := <-tokens:
		if !ok {
			<-done
			b.mu.Lock()
			err := b.err
			b.mu.Unlock()
			if err != nil {
				return "", err
			}
			return "", ErrEndOfSequence
		}
		return tok, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// close cancels the in-flight decode, if any, and blocks until its
// goroutine has exited. Safe to call repeatedly and with no decode started.
func (b *pullBridge) close() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
