// Package ratelimit implements per-user sliding window admission control.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// Config holds the limits applied to every identity.
type Config struct {
	// MaxCalls is the number of accepted calls allowed per Window. Zero denies everything.
	MaxCalls int
	// Window is the length of the rolling window.
	Window time.Duration
}

type Option func(*Limiter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// Limiter keeps one timestamp window per identity. Calls for different
// identities only share the map lock; the prune-decide-append sequence for
// one identity runs under that identity's own mutex.
type Limiter struct {
	config Config
	now    func() time.Time

	mu      sync.Mutex
	windows map[int64]*window
}

type window struct {
	mu         sync.Mutex
	timestamps []time.Time
	// removed is set by Sweep; holders of a stale pointer must look it up again.
	removed bool
}

func New(cfg Config, opts ...Option) (*Limiter, error) {
	if cfg.MaxCalls < 0 {
		return nil, errors.New("max calls must not be negative")
	}
	if cfg.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	l := &Limiter{
		config:  cfg,
		now:     time.Now,
		windows: make(map[int64]*window),
	}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

func (l *Limiter) Config() Config {
	return l.config
}

// CheckAndRecord reports whether identity may make another call right now.
// An accepted call is recorded; a denied one is not.
func (l *Limiter) CheckAndRecord(identity int64) bool {
	for {
		w := l.lookup(identity)

		w.mu.Lock()
		if w.removed {
			w.mu.Unlock()
			continue
		}

		now := l.now()
		w.prune(now, l.config.Window)

		if len(w.timestamps) >= l.config.MaxCalls {
			w.mu.Unlock()
			return false
		}

		w.timestamps = append(w.timestamps, now)
		w.mu.Unlock()
		return true
	}
}

// Remaining returns how many calls identity could still make in the current window.
func (l *Limiter) Remaining(identity int64) int {
	w, ok := l.get(identity)
	if !ok {
		return l.config.MaxCalls
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	remaining := l.config.MaxCalls - w.live(l.now(), l.config.Window)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RetryAfter returns how long identity has to wait before a call can be accepted.
// It is zero when quota is available. With MaxCalls == 0 it is always Window.
func (l *Limiter) RetryAfter(identity int64) time.Duration {
	if l.config.MaxCalls == 0 {
		return l.config.Window
	}

	w, ok := l.get(identity)
	if !ok {
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	live := w.timestamps[len(w.timestamps)-w.live(now, l.config.Window):]
	if len(live) < l.config.MaxCalls {
		return 0
	}

	// the call that must expire before the next one fits
	blocking := live[len(live)-l.config.MaxCalls]
	wait := blocking.Add(l.config.Window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Sweep drops identities whose windows hold no live timestamps and returns how many were dropped.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for identity, w := range l.windows {
		w.mu.Lock()
		w.prune(now, l.config.Window)
		if len(w.timestamps) == 0 {
			w.removed = true
			delete(l.windows, identity)
			removed++
		}
		w.mu.Unlock()
	}

	return removed
}

// Len returns the number of identities currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) lookup(identity int64) *window {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[identity]
	if !ok {
		w = &window{}
		l.windows[identity] = w
	}
	return w
}

func (l *Limiter) get(identity int64) (*window, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[identity]
	return w, ok
}

// prune removes timestamps that are at least size old. Timestamps are kept in
// insertion order, so expired ones always form a prefix.
func (w *window) prune(now time.Time, size time.Duration) {
	expired := len(w.timestamps) - w.live(now, size)
	if expired == 0 {
		return
	}
	w.timestamps = append(w.timestamps[:0], w.timestamps[expired:]...)
}

// live counts the timestamps younger than size without mutating the window.
func (w *window) live(now time.Time, size time.Duration) int {
	cutoff := now.Add(-size)
	for i, ts := range w.timestamps {
		if ts.After(cutoff) {
			return len(w.timestamps) - i
		}
	}
	return 0
}
