package mode

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is how often the engine re-derives the mode from the clock.
const DefaultInterval = 60 * time.Second

// Snapshot is the externally visible state of the engine.
type Snapshot struct {
	Mode  Mode
	Label string
	Auto  bool
}

// Logger defines the logging interface for the engine.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Engine keeps the current mode up to date against the wall clock.
// A manual override pins the mode until auto mode is re-enabled; the
// override lives only for the engine's lifetime.
type Engine struct {
	mu       sync.RWMutex
	mode     Mode
	auto     bool
	now      func() time.Time
	interval time.Duration
	ticks    <-chan time.Time
	logger   Logger
	subs     []chan Snapshot
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the time source, used by tests to pin the hour.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithInterval overrides the re-evaluation interval.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

// WithTicks injects the tick channel directly, bypassing the interval
// ticker. Used by tests to drive re-evaluation deterministically.
func WithTicks(ticks <-chan time.Time) Option {
	return func(e *Engine) { e.ticks = ticks }
}

// NewEngine creates an engine in auto mode, already holding the mode
// derived from the current clock.
func NewEngine(logger Logger, opts ...Option) *Engine {
	e := &Engine{
		now:      time.Now,
		interval: DefaultInterval,
		auto:     true,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.mode = Derive(e.now().Hour())
	return e
}

// Start launches the recurring re-evaluation. It returns immediately;
// the loop stops when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	ticks := e.ticks
	if ticks == nil {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			e.logger.Infof("Mode engine stopped: %v", ctx.Err())
			return
		case <-ticks:
			e.evaluate()
		}
	}
}

func (e *Engine) evaluate() {
	e.mu.Lock()
	if !e.auto {
		e.mu.Unlock()
		return
	}
	derived := Derive(e.now().Hour())
	if derived == e.mode {
		e.mu.Unlock()
		return
	}
	e.mode = derived
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Infof("Mode changed to '%s'", derived)
	e.publish(snap)
}

// Current returns the engine's current snapshot.
func (e *Engine) Current() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{Mode: e.mode, Label: e.mode.Label(), Auto: e.auto}
}

// SetManualMode pins the mode, disabling clock-driven updates until
// EnableAutoMode is called.
func (e *Engine) SetManualMode(m Mode) error {
	if _, err := Parse(string(m)); err != nil {
		return err
	}
	e.mu.Lock()
	e.auto = false
	e.mode = m
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Infof("Mode manually set to '%s'", m)
	e.publish(snap)
	return nil
}

// EnableAutoMode resumes clock-driven mode derivation, immediately
// re-deriving from the current time.
func (e *Engine) EnableAutoMode() {
	e.mu.Lock()
	e.auto = true
	e.mode = Derive(e.now().Hour())
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Infof("Auto mode re-enabled, current mode '%s'", snap.Mode)
	e.publish(snap)
}

// Subscribe returns a channel receiving a snapshot on every mode change.
// Sends never block; a slow consumer misses intermediate snapshots.
func (e *Engine) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	return ch
}

func (e *Engine) publish(snap Snapshot) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
			// drop stale value, replace with the latest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
