// Package ratelimit implements the per-origin admission window used by
// both the duplex connect path and the request/response path.
package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow is a rolling counter over a fixed time window. Old
// buckets are pruned as time advances, which avoids the reset spike of
// a fixed window. Safe for concurrent use.
type SlidingWindow struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []bucket
	mu         sync.Mutex
}

// bucket is one time-stamped counter cell.
type bucket struct {
	timestamp time.Time
	value     int64
}

// NewSlidingWindow creates a rolling counter. The bucket count is
// window/bucketSize; smaller buckets trade memory for accuracy.
func NewSlidingWindow(window, bucketSize time.Duration) *SlidingWindow {
	n := int(window / bucketSize)
	if n == 0 {
		n = 1
	}
	return &SlidingWindow{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]bucket, n),
	}
}

// Add increments the counter in the current time bucket.
func (sw *SlidingWindow) Add(value int64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.pruneLocked(now)
	sw.bucketLocked(now).value += value
}

// Sum returns the total across the window, pruning expired buckets.
func (sw *SlidingWindow) Sum() int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.pruneLocked(time.Now())

	var sum int64
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() {
			sum += sw.buckets[i].value
		}
	}
	return sum
}

// idleSince reports whether every bucket is older than the cutoff.
func (sw *SlidingWindow) idleSince(cutoff time.Time) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() && sw.buckets[i].timestamp.After(cutoff) {
			return false
		}
	}
	return true
}

// pruneLocked clears buckets older than the window. Caller holds mu.
func (sw *SlidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-sw.window)
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() && sw.buckets[i].timestamp.Before(cutoff) {
			sw.buckets[i] = bucket{}
		}
	}
}

// bucketLocked finds or claims the bucket for the current time slot.
// Caller holds mu.
func (sw *SlidingWindow) bucketLocked(now time.Time) *bucket {
	slot := now.Truncate(sw.bucketSize)

	for i := range sw.buckets {
		if sw.buckets[i].timestamp.Equal(slot) {
			return &sw.buckets[i]
		}
	}

	// Claim an empty cell, or recycle the oldest.
	target := -1
	for i := range sw.buckets {
		if sw.buckets[i].timestamp.IsZero() {
			target = i
			break
		}
	}
	if target == -1 {
		oldest := 0
		for i := 1; i < len(sw.buckets); i++ {
			if sw.buckets[i].timestamp.Before(sw.buckets[oldest].timestamp) {
				oldest = i
			}
		}
		target = oldest
	}

	sw.buckets[target] = bucket{timestamp: slot}
	return &sw.buckets[target]
}
