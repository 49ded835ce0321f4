package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubDeleter struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (s *stubDeleter) DeleteExpired(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return s.n, s.err
}

func TestPruner_Prune(t *testing.T) {
	ok := &stubDeleter{n: 3}
	if got := NewPruner(ok, time.Minute, nil).Prune(context.Background()); got != 3 {
		t.Errorf("expected 3 pruned, got %d", got)
	}

	failing := &stubDeleter{n: 3, err: errors.New("db down")}
	if got := NewPruner(failing, time.Minute, nil).Prune(context.Background()); got != 0 {
		t.Errorf("expected 0 on error, got %d", got)
	}
}

func TestPruner_StartRunsImmediatelyAndStops(t *testing.T) {
	d := &stubDeleter{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewPruner(d, time.Hour, nil).Start(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for d.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial prune did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner did not stop after cancel")
	}
}
