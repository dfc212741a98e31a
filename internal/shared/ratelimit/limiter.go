package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultLimit  = 100
	DefaultWindow = time.Minute

	// sweepThreshold is the number of tracked keys above which expired
	// windows are dropped when a new key arrives.
	sweepThreshold = 10000
)

// Decision is the outcome of a single Check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter charges one request against key. Implementations must be safe for
// concurrent use.
type Limiter interface {
	Check(key string) Decision
}

// Config is the budget applied to every key.
type Config struct {
	Limit  int
	Window time.Duration
}

// FixedWindow is a process-local fixed-window counter per key. Windows are
// created on first use and reset lazily once they elapse.
type FixedWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	mu      sync.Mutex
	start   time.Time
	count   int
	evicted bool
}

func NewFixedWindow(cfg Config, now func() time.Time) *FixedWindow {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &FixedWindow{
		limit:   cfg.Limit,
		window:  cfg.Window,
		now:     now,
		windows: make(map[string]*window),
	}
}

// Check counts the request when the key has budget left in its current window.
// Denied requests are not counted.
func (l *FixedWindow) Check(key string) Decision {
	for {
		w := l.lookup(key)

		w.mu.Lock()
		if w.evicted {
			w.mu.Unlock()
			continue
		}
		now := l.now()
		if now.Sub(w.start) >= l.window {
			w.start = now
			w.count = 0
		}
		resetAt := w.start.Add(l.window)
		d := Decision{Limit: l.limit, ResetAt: resetAt}
		if w.count < l.limit {
			w.count++
			d.Allowed = true
			d.Remaining = l.limit - w.count
		} else {
			d.RetryAfter = resetAt.Sub(now)
		}
		w.mu.Unlock()
		return d
	}
}

// Len reports how many keys are tracked.
func (l *FixedWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *FixedWindow) lookup(key string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[key]; ok {
		return w
	}
	if len(l.windows) >= sweepThreshold {
		l.sweepLocked()
	}
	w := &window{start: l.now()}
	l.windows[key] = w
	return w
}

// sweepLocked drops elapsed windows. Caller holds l.mu.
func (l *FixedWindow) sweepLocked() {
	now := l.now()
	for key, w := range l.windows {
		w.mu.Lock()
		if now.Sub(w.start) >= l.window {
			w.evicted = true
			delete(l.windows, key)
		}
		w.mu.Unlock()
	}
}

var _ Limiter = (*FixedWindow)(nil)
