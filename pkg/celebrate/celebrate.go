// Package celebrate manages the ephemeral celebration overlay queue:
// fire-and-forget notifications that expire on their own timers.
package celebrate

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Type string

const (
	TaskComplete     Type = "task_complete"
	Milestone        Type = "milestone"
	Achievement      Type = "achievement"
	Revenue          Type = "revenue"
	WorkflowComplete Type = "workflow_complete"
)

// Celebration is a short-lived notification record. It is never persisted;
// the queue lives only as long as the notifier.
type Celebration struct {
	ID        string        `json:"id"`
	Type      Type          `json:"type"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// DurationFor returns the default display duration for a celebration type.
func DurationFor(t Type) time.Duration {
	switch t {
	case TaskComplete:
		return 2 * time.Second
	case Milestone:
		return 3 * time.Second
	case Achievement:
		return 4 * time.Second
	case Revenue, WorkflowComplete:
		return 5 * time.Second
	default:
		return 3 * time.Second
	}
}

func defaultMessage(t Type) string {
	switch t {
	case TaskComplete:
		return "Task completed!"
	case Milestone:
		return "Milestone reached!"
	case Achievement:
		return "Achievement unlocked!"
	case Revenue:
		return "New revenue recorded!"
	case WorkflowComplete:
		return "Workflow finished!"
	default:
		return "Nice work!"
	}
}

// Option customizes a triggered celebration.
type Option func(*Celebration)

// WithMessage overrides the type's default message.
func WithMessage(msg string) Option {
	return func(c *Celebration) { c.Message = msg }
}

// WithDuration overrides the type's default display duration.
func WithDuration(d time.Duration) Option {
	return func(c *Celebration) { c.Duration = d }
}

// Timer is the minimal surface of an expiry timer, satisfied by
// *time.Timer from time.AfterFunc.
type Timer interface {
	Stop() bool
}

// Notifier owns the active celebration queue. Every celebration runs its
// own expiry timer; there is no global sweep.
type Notifier struct {
	mu       sync.Mutex
	active   map[string]Celebration
	order    []string
	timers   map[string]Timer
	now      func() time.Time
	newTimer func(d time.Duration, fn func()) Timer
	onChange func([]Celebration)
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithClock injects the time source.
func WithClock(now func() time.Time) NotifierOption {
	return func(n *Notifier) { n.now = now }
}

// WithTimerFactory injects the expiry timer constructor, used by tests
// to fire expirations deterministically.
func WithTimerFactory(f func(d time.Duration, fn func()) Timer) NotifierOption {
	return func(n *Notifier) { n.newTimer = f }
}

// WithChangeListener registers a callback invoked with the active queue
// after every change.
func WithChangeListener(fn func([]Celebration)) NotifierOption {
	return func(n *Notifier) { n.onChange = fn }
}

// NewNotifier creates an empty notifier.
func NewNotifier(opts ...NotifierOption) *Notifier {
	n := &Notifier{
		active: make(map[string]Celebration),
		timers: make(map[string]Timer),
		now:    time.Now,
		newTimer: func(d time.Duration, fn func()) Timer {
			return time.AfterFunc(d, fn)
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Trigger enqueues a celebration and returns its ID. The celebration is
// removed automatically once its duration elapses.
func (n *Notifier) Trigger(t Type, opts ...Option) string {
	c := Celebration{
		ID:        uuid.NewString(),
		Type:      t,
		Message:   defaultMessage(t),
		Timestamp: n.now(),
		Duration:  DurationFor(t),
	}
	for _, opt := range opts {
		opt(&c)
	}

	n.mu.Lock()
	n.active[c.ID] = c
	n.order = append(n.order, c.ID)
	n.timers[c.ID] = n.newTimer(c.Duration, func() {
		n.Remove(c.ID)
	})
	snap := n.activeLocked()
	n.mu.Unlock()

	n.notify(snap)
	return c.ID
}

// Remove dismisses a celebration ahead of (or at) expiry. It reports
// whether the celebration was still active.
func (n *Notifier) Remove(id string) bool {
	n.mu.Lock()
	_, ok := n.active[id]
	if !ok {
		n.mu.Unlock()
		return false
	}
	n.removeLocked(id)
	snap := n.activeLocked()
	n.mu.Unlock()

	n.notify(snap)
	return true
}

// ClearAll dismisses every active celebration.
func (n *Notifier) ClearAll() {
	n.mu.Lock()
	for id := range n.active {
		if t, ok := n.timers[id]; ok {
			t.Stop()
		}
	}
	n.active = make(map[string]Celebration)
	n.timers = make(map[string]Timer)
	n.order = nil
	n.mu.Unlock()

	n.notify(nil)
}

func (n *Notifier) removeLocked(id string) {
	delete(n.active, id)
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	for i, other := range n.order {
		if other == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// Active returns the current queue in trigger order.
func (n *Notifier) Active() []Celebration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.activeLocked()
}

func (n *Notifier) activeLocked() []Celebration {
	out := make([]Celebration, 0, len(n.order))
	for _, id := range n.order {
		if c, ok := n.active[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (n *Notifier) notify(snap []Celebration) {
	if n.onChange != nil {
		n.onChange(snap)
	}
}

// Get returns an active celebration by ID.
func (n *Notifier) Get(id string) (Celebration, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.active[id]
	if !ok {
		return Celebration{}, errors.Errorf("celebration '%s' not active", id)
	}
	return c, nil
}
