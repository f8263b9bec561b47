// Package ratelimit implements an in-memory sliding-window rate limiter.
// State is process-local and resets on restart.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most MaxRequests events per key within a trailing
// Window. Decisions for the same key serialize on a per-key mutex; keys
// do not contend with each other.
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu      sync.RWMutex
	entries map[string]*entry

	stop chan struct{}
	once sync.Once
}

type entry struct {
	mu    sync.Mutex
	times []time.Time
}

// New creates a limiter. maxRequests and window fall back to 10 per
// minute when non-positive.
func New(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		entries:     make(map[string]*entry),
		stop:        make(chan struct{}),
	}
}

// Allow reports whether a request for key is admitted, recording the
// admission timestamp when it is.
func (l *Limiter) Allow(key string) bool {
	e := l.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	e.prune(now.Add(-l.window))

	if len(e.times) >= l.maxRequests {
		return false
	}
	e.times = append(e.times, now)
	return true
}

// Remaining reports headroom for key without recording an admission.
func (l *Limiter) Remaining(key string) int {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()
	if !ok {
		return l.maxRequests
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.prune(time.Now().Add(-l.window))
	if n := l.maxRequests - len(e.times); n > 0 {
		return n
	}
	return 0
}

// Reset forgets all admissions for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Prune drops keys with no admissions inside the window, bounding memory.
func (l *Limiter) Prune() {
	cutoff := time.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		e.mu.Lock()
		e.prune(cutoff)
		empty := len(e.times) == 0
		e.mu.Unlock()
		if empty {
			delete(l.entries, key)
		}
	}
}

// StartPruning runs Prune on the given interval until Stop is called.
func (l *Limiter) StartPruning(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Prune()
			case <-l.stop:
				return
			}
		}
	}()
}

// Stop terminates the background pruning goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// entry returns the per-key state, creating it on first use.
func (l *Limiter) entry(key string) *entry {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[key]; ok {
		return e
	}
	e = &entry{}
	l.entries[key] = e
	return e
}

// prune removes timestamps at or before cutoff. Caller holds e.mu.
func (e *entry) prune(cutoff time.Time) {
	i := 0
	for i < len(e.times) && !e.times[i].After(cutoff) {
		i++
	}
	if i > 0 {
		e.times = append(e.times[:0], e.times[i:]...)
	}
}
