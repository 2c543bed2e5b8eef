package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/synnergy-chain/bridgeworker/internal/listener"
)

type fakeWorker struct {
	mu      sync.Mutex
	state   listener.State
	stopped chan struct{}
	runErr  error
	ran     chan struct{}
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{state: listener.Initializing, stopped: make(chan struct{}), ran: make(chan struct{}, 1)}
}

func (w *fakeWorker) Run(ctx context.Context) error {
	w.setState(listener.Syncing)
	select {
	case <-w.ran:
	default:
		close(w.ran)
	}
	select {
	case <-ctx.Done():
	case <-w.stopped:
	}
	if w.runErr != nil {
		w.setState(listener.Failed)
		return w.runErr
	}
	w.setState(listener.Stopped)
	return nil
}

func (w *fakeWorker) Stop() {
	select {
	case <-w.stopped:
	default:
		close(w.stopped)
	}
}

func (w *fakeWorker) State() listener.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *fakeWorker) FailureError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runErr
}

func (w *fakeWorker) setState(s listener.State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func TestSupervisorStopJoinsAllWorkers(t *testing.T) {
	w1, w2 := newFakeWorker(), newFakeWorker()
	s := New(map[string]Worker{"L1": w1, "L2": w2}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	<-w1.ran
	<-w2.ran
	s.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Stop")
	}

	snap := s.Snapshot()
	if snap["L1"] != listener.Stopped || snap["L2"] != listener.Stopped {
		t.Fatalf("expected both workers stopped, got %+v", snap)
	}
}

func TestSupervisorReportsFailedListener(t *testing.T) {
	w1 := newFakeWorker()
	w1.runErr = errors.New("boom")
	w2 := newFakeWorker()
	s := New(map[string]Worker{"L1": w1, "L2": w2}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	<-w1.ran
	w1.Stop() // fakeWorker exits its select once stopped, runErr makes it fail
	<-w2.ran
	s.Stop()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected a RunError naming the failed listener")
		}
		var rerr *RunError
		if !errors.As(err, &rerr) {
			t.Fatalf("expected *RunError, got %T", err)
		}
		if _, ok := rerr.ListenerErrors["L1"]; !ok {
			t.Fatalf("expected L1 in failed listeners, got %+v", rerr.ListenerErrors)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
}

func TestSupervisorStopIsIdempotent(t *testing.T) {
	w1 := newFakeWorker()
	s := New(map[string]Worker{"L1": w1}, nil)
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	<-w1.ran
	s.Stop()
	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
}
