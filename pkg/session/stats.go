package session

import (
	"sync"
	"time"
)

// Stats aggregates session-level counters. All methods are safe for
// concurrent use.
type Stats struct {
	mu sync.Mutex

	totalCreated  int64
	active        int64
	peak          int64
	messages      int64
	errors        int64
	closed        int64
	totalDuration time.Duration
}

// StatsSnapshot is a point-in-time copy of the aggregate counters.
type StatsSnapshot struct {
	// TotalCreated counts every session ever admitted.
	TotalCreated int64

	// Active counts currently live sessions.
	Active int64

	// Peak is the highest concurrent active count observed.
	Peak int64

	// Messages counts inbound wire messages across all sessions.
	Messages int64

	// Errors counts error frames sent to callers.
	Errors int64

	// AvgDuration is the mean lifetime of closed sessions.
	AvgDuration time.Duration
}

func (st *Stats) recordConnect() {
	st.mu.Lock()
	st.totalCreated++
	st.active++
	if st.active > st.peak {
		st.peak = st.active
	}
	st.mu.Unlock()
}

func (st *Stats) recordDisconnect(duration time.Duration) {
	st.mu.Lock()
	st.active--
	st.closed++
	st.totalDuration += duration
	st.mu.Unlock()
}

func (st *Stats) recordMessage() {
	st.mu.Lock()
	st.messages++
	st.mu.Unlock()
}

func (st *Stats) recordError() {
	st.mu.Lock()
	st.errors++
	st.mu.Unlock()
}

// Snapshot copies the counters.
func (st *Stats) Snapshot() StatsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	snap := StatsSnapshot{
		TotalCreated: st.totalCreated,
		Active:       st.active,
		Peak:         st.peak,
		Messages:     st.messages,
		Errors:       st.errors,
	}
	if st.closed > 0 {
		snap.AvgDuration = st.totalDuration / time.Duration(st.closed)
	}
	return snap
}
