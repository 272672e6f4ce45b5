package ratelimit

import (
	"sync"
	"time"
)

// OriginLimiter rate-limits admission per origin address using one
// sliding window per origin. Windows for idle origins are pruned by a
// background task owned by the limiter and stopped by Close.
type OriginLimiter struct {
	limit      int64
	window     time.Duration
	bucketSize time.Duration

	mu      sync.Mutex
	origins map[string]*SlidingWindow

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewOriginLimiter creates a limiter allowing limit admissions per
// origin within the window.
func NewOriginLimiter(limit int64, window time.Duration) *OriginLimiter {
	bucketSize := window / 60
	if bucketSize < time.Second {
		bucketSize = time.Second
	}
	if bucketSize > window {
		bucketSize = window
	}

	l := &OriginLimiter{
		limit:      limit,
		window:     window,
		bucketSize: bucketSize,
		origins:    make(map[string]*SlidingWindow),
		stopCh:     make(chan struct{}),
	}

	go l.pruneLoop()
	return l
}

// Allow records an admission attempt for the origin and reports
// whether it is within the limit. The attempt counts against the
// window only when admitted.
func (l *OriginLimiter) Allow(origin string) bool {
	sw := l.windowFor(origin)

	if sw.Sum() >= l.limit {
		return false
	}
	sw.Add(1)
	return true
}

// Remaining returns how many admissions the origin has left in the
// current window.
func (l *OriginLimiter) Remaining(origin string) int64 {
	remaining := l.limit - l.windowFor(origin).Sum()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Close stops the background pruner.
func (l *OriginLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *OriginLimiter) windowFor(origin string) *SlidingWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	sw, ok := l.origins[origin]
	if !ok {
		sw = NewSlidingWindow(l.window, l.bucketSize)
		l.origins[origin] = sw
	}
	return sw
}

// pruneLoop drops windows for origins idle longer than two full
// windows, bounding memory under origin churn.
func (l *OriginLimiter) pruneLoop() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * l.window)
			l.mu.Lock()
			for origin, sw := range l.origins {
				if sw.idleSince(cutoff) {
					delete(l.origins, origin)
				}
			}
			l.mu.Unlock()
		}
	}
}
