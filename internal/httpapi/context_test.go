package httpapi

import (
	"context"
	"testing"
	"time"
)

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled")
	}
}

func TestJoinContextsCancelsOnEither(t *testing.T) {
	a, cancelA := context.WithCancel(context.Background())
	joined, cancel := joinContexts(a, context.Background())
	defer cancel()
	cancelA()
	waitDone(t, joined)

	b, cancelB := context.WithCancel(context.Background())
	joined2, cancel2 := joinContexts(context.Background(), b)
	defer cancel2()
	cancelB()
	waitDone(t, joined2)
}

func TestJoinContextsOwnCancel(t *testing.T) {
	joined, cancel := joinContexts(context.Background(), context.Background())
	cancel()
	waitDone(t, joined)
}
