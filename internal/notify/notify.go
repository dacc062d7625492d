// Package notify keeps the short-lived status messages shown to the user.
//
// Entries are kept in insertion order and each one removes itself after its
// duration unless it is dismissed first. There is no bound and no
// deduplication.
package notify

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/meld/coaching-dashboard/internal/metrics"
)

// DefaultDuration is used when neither the caller nor the constructor sets one
const DefaultDuration = 3000 * time.Millisecond

// Kind classifies a notification
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	return k == KindSuccess || k == KindError || k == KindInfo
}

// Notification is one displayed entry
type Notification struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	Kind      Kind          `json:"kind"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

type entry struct {
	Notification
	timer *clock.Timer
}

// Channel is the process's notification queue
type Channel struct {
	mu              sync.Mutex
	entries         []*entry
	clock           clock.Clock
	defaultDuration time.Duration
	metrics         *metrics.Metrics
}

// Option configures a Channel
type Option func(*Channel)

// WithClock replaces the wall clock, mostly for tests
func WithClock(c clock.Clock) Option {
	return func(ch *Channel) { ch.clock = c }
}

// WithDefaultDuration sets the duration used when Notify gets d <= 0
func WithDefaultDuration(d time.Duration) Option {
	return func(ch *Channel) {
		if d > 0 {
			ch.defaultDuration = d
		}
	}
}

// WithMetrics counts shown and removed notifications
func WithMetrics(m *metrics.Metrics) Option {
	return func(ch *Channel) { ch.metrics = m }
}

// New creates an empty channel
func New(opts ...Option) *Channel {
	ch := &Channel{
		clock:           clock.New(),
		defaultDuration: DefaultDuration,
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

// Notify appends a message and schedules its removal after d.
// A non-positive d falls back to the default duration. An empty kind means
// success; any other unknown kind is shown as info.
func (c *Channel) Notify(message string, kind Kind, d time.Duration) Notification {
	if d <= 0 {
		d = c.defaultDuration
	}
	switch {
	case kind == "":
		kind = KindSuccess
	case !kind.Valid():
		kind = KindInfo
	}

	e := &entry{Notification: Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		Duration:  d,
		CreatedAt: c.clock.Now(),
	}}

	c.mu.Lock()
	c.entries = append(c.entries, e)
	e.timer = c.clock.AfterFunc(d, func() { c.expire(e.ID) })
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.Notifications.WithLabelValues(string(kind)).Inc()
	}
	return e.Notification
}

// Dismiss removes the entry early and cancels its pending expiry.
// It reports false if the entry is already gone.
func (c *Channel) Dismiss(id string) bool {
	c.mu.Lock()
	e := c.removeLocked(id)
	c.mu.Unlock()

	if e == nil {
		return false
	}
	e.timer.Stop()
	c.countRemoval(metrics.ReasonDismissed)
	return true
}

// Active returns the displayed entries in display order
func (c *Channel) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Notification)
	}
	return out
}

// Clear dismisses everything
func (c *Channel) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = nil
	c.mu.Unlock()

	for _, e := range entries {
		e.timer.Stop()
		c.countRemoval(metrics.ReasonDismissed)
	}
}

func (c *Channel) expire(id string) {
	c.mu.Lock()
	e := c.removeLocked(id)
	c.mu.Unlock()

	if e != nil {
		c.countRemoval(metrics.ReasonExpired)
	}
}

func (c *Channel) removeLocked(id string) *entry {
	for i, e := range c.entries {
		if e.ID == id {
			c.entries = append(c.entries[:i:i], c.entries[i+1:]...)
			return e
		}
	}
	return nil
}

func (c *Channel) countRemoval(reason string) {
	if c.metrics != nil {
		c.metrics.NotificationRemovals.WithLabelValues(reason).Inc()
	}
}
