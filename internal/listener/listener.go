// Package listener implements the Listener Loop (C5): the sync engine that
// paces against a source chain's finalized head, fans deposit events to the
// router, drives relay retries, and advances the durable checkpoint.
//
// The Stop/loop shape follows core.SyncManager in the teacher
// (blockchain_synchronization.go): a mutex-guarded state, a single-shot quit
// channel, and a loop that runs until either the context is cancelled or
// Stop is called. There is no Start method: Run executes the loop on the
// caller's goroutine.
package listener

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-chain/bridgeworker/internal/checkpoint"
	"github.com/synnergy-chain/bridgeworker/internal/fetcher"
	"github.com/synnergy-chain/bridgeworker/internal/primitives"
	"github.com/synnergy-chain/bridgeworker/internal/relayer"
	"github.com/synnergy-chain/bridgeworker/internal/router"
)

// State is one of the terminal/non-terminal states of §4.5's state machine.
type State int

const (
	Initializing State = iota
	Syncing
	Stopped // terminal
	Failed  // terminal
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Syncing:
		return "syncing"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

const maxRelayAttempts = 10

var pacingInterval = time.Second

// Metrics is the narrow seam the listener needs from internal/metrics: a
// gauge setter for its own synced-block watermark (§6.4).
type Metrics interface {
	SetSyncedBlock(listenerID string, block uint64)
}

// Context is the immutable per-listener wiring (§3): id, start block, chain
// id, its route to relayer(s), its fetcher, and its checkpoint store.
type Context struct {
	ID         string
	StartBlock uint64
	ChainID    uint32
	Route      *router.Route
	Fetcher    fetcher.Fetcher
	Checkpoint checkpoint.Store
}

// Listener drives one Context's sync loop.
type Listener struct {
	ctx     Context
	log     *logrus.Logger
	metrics Metrics
	clock   clock.Clock

	mu       sync.Mutex
	state    State
	quit     chan struct{}
	quitOnce sync.Once
	failErr  error
}

// Option configures optional Listener dependencies.
type Option func(*Listener)

// WithLogger overrides the default standard logger.
func WithLogger(log *logrus.Logger) Option {
	return func(l *Listener) { l.log = log }
}

// WithMetrics wires a gauge sink for <listener_id>_synced_block.
func WithMetrics(m Metrics) Option {
	return func(l *Listener) { l.metrics = m }
}

// WithClock overrides the clock used for pacing sleeps (for example with a
// clock.Mock, so that no real time passes).
func WithClock(c clock.Clock) Option {
	return func(l *Listener) { l.clock = c }
}

// New builds a Listener in the Initializing state.
func New(c Context, opts ...Option) *Listener {
	l := &Listener{
		ctx:   c,
		log:   logrus.StandardLogger(),
		clock: clock.New(),
		state: Initializing,
		quit:  make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// State returns the listener's current state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// FailureError returns the error that drove a transition to Failed, if any.
func (l *Listener) FailureError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failErr
}

// Stop requests cooperative shutdown: the listener finishes any in-flight
// event, commits its checkpoint, and then observes the signal at the top of
// its next cycle (§5, Cancellation).
func (l *Listener) Stop() {
	l.quitOnce.Do(func() { close(l.quit) })
}

func (l *Listener) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Listener) fail(err error) {
	l.mu.Lock()
	l.state = Failed
	l.failErr = err
	l.mu.Unlock()
}

// Run executes the listener to completion: it computes the initial
// next_block, then drives the main cycle of §4.5 until it reaches Stopped
// or Failed. Run blocks the calling goroutine; the Supervisor runs it on a
// dedicated goroutine per listener context.
func (l *Listener) Run(ctx context.Context) error {
	l.setState(Syncing)

	cp, err := l.ctx.Checkpoint.Read()
	if err != nil {
		l.fail(err)
		return err
	}
	nextBlock := primitives.NextBlock(cp, l.ctx.StartBlock)

	for {
		select {
		case <-l.quit:
			l.setState(Stopped)
			return nil
		case <-ctx.Done():
			l.setState(Stopped)
			return nil
		default:
		}

		head, err := l.ctx.Fetcher.FinalizedHead(ctx)
		if err != nil {
			if errors.Is(err, fetcher.ErrTransient) {
				l.log.WithError(err).WithField("listener", l.ctx.ID).Debug("transient error fetching finalized head")
				l.sleepPacing(ctx)
				continue
			}
			l.fail(err)
			return err
		}
		if head == nil || *head < nextBlock {
			l.sleepPacing(ctx)
			continue
		}

		events, err := l.ctx.Fetcher.Events(ctx, nextBlock)
		if err != nil {
			if errors.Is(err, fetcher.ErrTransient) {
				l.log.WithError(err).WithField("listener", l.ctx.ID).Debug("transient error fetching events")
				l.sleepPacing(ctx)
				continue
			}
			// Decoding errors (and anything else unclassified) are fatal.
			l.fail(err)
			return err
		}

		for _, d := range events {
			rl := l.ctx.Route.Resolve(d)
			if rl == nil {
				l.log.WithFields(logrus.Fields{"listener": l.ctx.ID, "event_id": d.EventID.String()}).Debug("no relayer for event, skipping")
				continue
			}
			if primitives.ShouldSkip(cp, d.EventID) {
				l.log.WithFields(logrus.Fields{"listener": l.ctx.ID, "event_id": d.EventID.String()}).Debug("event already covered by checkpoint, skipping")
				continue
			}

			if err := l.relayWithRetry(ctx, rl, d); err != nil {
				l.fail(err)
				return err
			}

			next := primitives.FromEvent(d.EventID)
			if err := l.ctx.Checkpoint.Save(next); err != nil {
				l.fail(err)
				return err
			}
			cp = &next
		}

		blockComplete := primitives.FromBlockNum(nextBlock)
		if err := l.ctx.Checkpoint.Save(blockComplete); err != nil {
			l.fail(err)
			return err
		}
		cp = &blockComplete
		if l.metrics != nil {
			l.metrics.SetSyncedBlock(l.ctx.ID, nextBlock)
		}
		nextBlock++

		if head != nil && *head > nextBlock && *head-nextBlock > 1 {
			// fast-catch-up: proceed without the inter-cycle sleep.
			continue
		}
		l.sleepPacing(ctx)
	}
}

// relayWithRetry drives the bounded retry loop of §4.5 step 5c.
func (l *Listener) relayWithRetry(ctx context.Context, rl relayer.Relayer, d primitives.Deposit) error {
	for attempt := 1; attempt <= maxRelayAttempts; attempt++ {
		err := rl.Relay(ctx, d.Amount, d.Nonce, d.ResourceID, d.Payload, l.ctx.ChainID)
		if err == nil {
			return nil
		}
		switch relayer.KindOf(err) {
		case relayer.AlreadyRelayed:
			return nil
		case relayer.Transport:
			l.log.WithError(err).WithFields(logrus.Fields{"listener": l.ctx.ID, "attempt": attempt}).Warn("relay transport error, retrying after backoff")
			l.clock.Sleep(pacingInterval)
		case relayer.Watch:
			l.log.WithError(err).WithFields(logrus.Fields{"listener": l.ctx.ID, "attempt": attempt}).Warn("relay watch failure, retrying immediately")
		default: // Other
			return err
		}
	}
	return errors.New("relay retry budget exhausted")
}

func (l *Listener) sleepPacing(ctx context.Context) {
	timer := l.clock.Timer(pacingInterval)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-l.quit:
	}
}
