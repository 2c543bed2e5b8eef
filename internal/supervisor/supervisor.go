// Package supervisor implements the Supervisor (C7): it runs one Listener
// per topology entry on its own goroutine and coordinates their shutdown.
//
// The Start/Stop shape is grounded on core.SyncManager in the teacher
// (blockchain_synchronization.go): a mutex-guarded active flag and a
// once-closed quit channel. Joining the per-listener goroutines uses
// conc.WaitGroup rather than a bare sync.WaitGroup: a panic in a listener
// goroutine is caught and re-raised from Run once every other goroutine has
// returned. The panic is not converted into an error in RunError.
package supervisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/synnergy-chain/bridgeworker/internal/listener"
)

// Worker is the narrow seam the Supervisor needs from a listener.Listener,
// so tests can supervise fakes without constructing real Contexts.
type Worker interface {
	Run(ctx context.Context) error
	Stop()
	State() listener.State
	FailureError() error
}

// Supervisor owns a fixed set of workers, keyed by listener id, and runs
// them to completion concurrently.
type Supervisor struct {
	log     *logrus.Logger
	workers map[string]Worker

	mu       sync.Mutex
	running  bool
	quitOnce sync.Once
	quit     chan struct{}
}

// New builds a Supervisor over the given listener id -> Worker set.
func New(workers map[string]Worker, log *logrus.Logger) *Supervisor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Supervisor{workers: workers, log: log, quit: make(chan struct{})}
}

// Run starts every worker's Run on its own goroutine and blocks until all of
// them return, either because ctx was cancelled, Stop was called, or one of
// them failed. It returns a combined error naming every listener that ended
// in the Failed state; a nil return means every worker reached Stopped.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	var wg conc.WaitGroup
	errs := make(map[string]error, len(s.workers))
	var errsMu sync.Mutex

	for id, w := range s.workers {
		id, w := id, w
		wg.Go(func() {
			if err := w.Run(ctx); err != nil {
				s.log.WithError(err).WithField("listener", id).Error("listener exited with error")
				errsMu.Lock()
				errs[id] = err
				errsMu.Unlock()
			}
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.quit:
		}
	}()

	wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if len(errs) == 0 {
		return nil
	}
	return &RunError{ListenerErrors: errs}
}

// Stop requests cooperative shutdown of every worker; Run returns once they
// have all observed it and finished their current cycle.
func (s *Supervisor) Stop() {
	s.quitOnce.Do(func() {
		close(s.quit)
		for _, w := range s.workers {
			w.Stop()
		}
	})
}

// Snapshot reports each worker's current state, keyed by listener id.
func (s *Supervisor) Snapshot() map[string]listener.State {
	out := make(map[string]listener.State, len(s.workers))
	for id, w := range s.workers {
		out[id] = w.State()
	}
	return out
}

// RunError reports every listener that failed during a Run.
type RunError struct {
	ListenerErrors map[string]error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%d listener(s) failed: %v", len(e.ListenerErrors), e.ListenerErrors)
}
