// Package poller keeps workflow status reports fresh by re-fetching
// them on a fixed interval. Every watch returns a Subscription the
// caller must stop; stopping cancels the timer and suppresses any
// in-flight fetch from mutating state.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/ArnovZ080/guildboard/pkg/models"
)

const (
	// DefaultInterval is the standard poll cadence.
	DefaultInterval = 5 * time.Second
	// FastInterval is the cadence used by views that need snappier updates.
	FastInterval = 3 * time.Second
)

// StatusClient fetches one workflow's status report.
type StatusClient interface {
	WorkflowStatus(ctx context.Context, id int64) (models.StatusReport, error)
}

// Logger defines the logging interface for the poller.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// State is the lifecycle state of a subscription.
type State string

const (
	StateLoading State = "loading" // no fetch has finished yet
	StateReady   State = "ready"   // at least one fetch succeeded
	StateError   State = "error"   // every fetch so far has failed
)

// Snapshot is the externally visible state of one watched workflow.
// Fetch failures are surfaced, never swallowed: after a failure the
// previous report stays visible with Stale set and Err carrying the
// failure, and polling continues.
type Snapshot struct {
	WorkflowID  int64
	State       State
	Report      models.StatusReport
	Err         error
	Stale       bool
	LastUpdated time.Time
}

// Poller creates subscriptions over a status client.
type Poller struct {
	client    StatusClient
	logger    Logger
	now       func() time.Time
	newTicker func(d time.Duration) (<-chan time.Time, func())
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithTicker injects the interval-timer constructor, used by tests to
// drive polls deterministically. The returned stop func releases the
// ticker's resources.
func WithTicker(f func(d time.Duration) (<-chan time.Time, func())) Option {
	return func(p *Poller) { p.newTicker = f }
}

// New creates a poller over the client.
func New(client StatusClient, logger Logger, opts ...Option) *Poller {
	p := &Poller{
		client: client,
		logger: logger,
		now:    time.Now,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscription is one active watch. Stop must be called when the owning
// view goes away; afterwards no further snapshot updates occur.
type Subscription struct {
	workflowID int64
	mu         sync.RWMutex
	snap       Snapshot
	stopped    bool
	cancel     context.CancelFunc
	updates    chan Snapshot
	done       chan struct{}
}

// Watch starts polling workflow id every interval. The first fetch
// happens immediately. If interval is not positive, DefaultInterval
// is used.
func (p *Poller) Watch(id int64, interval time.Duration) *Subscription {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		workflowID: id,
		snap:       Snapshot{WorkflowID: id, State: StateLoading},
		cancel:     cancel,
		updates:    make(chan Snapshot, 1),
		done:       make(chan struct{}),
	}
	go p.run(ctx, sub, interval)
	return sub
}

func (p *Poller) run(ctx context.Context, sub *Subscription, interval time.Duration) {
	defer close(sub.done)

	ticks, stop := p.newTicker(interval)
	defer stop()

	p.poll(ctx, sub)
	for {
		select {
		case <-ctx.Done():
			p.logger.Infof("Stopped polling workflow %d", sub.workflowID)
			return
		case <-ticks:
			p.poll(ctx, sub)
		}
	}
}

func (p *Poller) poll(ctx context.Context, sub *Subscription) {
	report, err := p.client.WorkflowStatus(ctx, sub.workflowID)
	if err != nil {
		if ctx.Err() != nil {
			// Stopped while the fetch was in flight; drop the result.
			return
		}
		p.logger.Errorf("Polling workflow %d failed: %v", sub.workflowID, err)
		sub.applyError(err, p.now())
		return
	}
	sub.applyReport(report, p.now())
}

// applyReport replaces the snapshot wholesale with the latest report, so
// no node state from an older poll survives.
func (s *Subscription) applyReport(report models.StatusReport, now time.Time) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.snap = Snapshot{
		WorkflowID:  s.workflowID,
		State:       StateReady,
		Report:      report,
		LastUpdated: now,
	}
	snap := s.snap
	s.mu.Unlock()
	s.publish(snap)
}

func (s *Subscription) applyError(err error, now time.Time) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.snap.State == StateReady {
		// Keep the last good report visible, flagged as stale.
		s.snap.Stale = true
		s.snap.Err = err
	} else {
		s.snap = Snapshot{
			WorkflowID:  s.workflowID,
			State:       StateError,
			Err:         err,
			LastUpdated: now,
		}
	}
	snap := s.snap
	s.mu.Unlock()
	s.publish(snap)
}

func (s *Subscription) publish(snap Snapshot) {
	select {
	case s.updates <- snap:
	default:
		// replace a pending snapshot with the newer one
		select {
		case <-s.updates:
		default:
		}
		select {
		case s.updates <- snap:
		default:
		}
	}
}

// Snapshot returns the current state.
func (s *Subscription) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Updates delivers a snapshot after every applied poll result. Slow
// consumers see only the latest snapshot.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.updates
}

// Stop ends the subscription: the poll timer is cancelled and any fetch
// already in flight can no longer update state. Safe to call twice.
func (s *Subscription) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
}

// Done is closed once the polling goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
