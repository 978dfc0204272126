package tf

import (
	"sort"
	"sync"
	"time"
)

// DefaultCacheTime is the default retention window for a TimeCache.
const DefaultCacheTime = 10 * time.Second

// TimeCache is a bounded, time-sorted ring of samples for a single
// directed edge (child→parent at a given instant). All methods are safe
// for concurrent use.
type TimeCache struct {
	mu        sync.RWMutex
	samples   []Sample // sorted ascending by Stamp
	cacheTime time.Duration
}

// NewTimeCache returns an empty TimeCache retaining cacheTime of history.
// A zero or negative cacheTime falls back to DefaultCacheTime.
func NewTimeCache(cacheTime time.Duration) *TimeCache {
	if cacheTime <= 0 {
		cacheTime = DefaultCacheTime
	}
	return &TimeCache{cacheTime: cacheTime}
}

// Insert accepts sample into the cache if its stamp is not older than
// everything currently retained. Returns false (not an error) when the
// sample is rejected as stale.
func (tc *TimeCache) Insert(s Sample) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if len(tc.samples) > 0 {
		oldestPermissible := tc.samples[len(tc.samples)-1].Stamp.Add(-tc.cacheTime)
		if s.Stamp.Before(oldestPermissible) {
			return false
		}
	}

	idx := sort.Search(len(tc.samples), func(i int) bool {
		return tc.samples[i].Stamp.After(s.Stamp)
	})
	tc.samples = append(tc.samples, Sample{})
	copy(tc.samples[idx+1:], tc.samples[idx:])
	tc.samples[idx] = s

	tc.evictLocked()
	return true
}

// evictLocked drops every sample strictly older than newest.Stamp -
// cacheTime. Caller must hold tc.mu for writing.
func (tc *TimeCache) evictLocked() {
	if len(tc.samples) == 0 {
		return
	}
	horizon := tc.samples[len(tc.samples)-1].Stamp.Add(-tc.cacheTime)
	cut := 0
	for cut < len(tc.samples) && tc.samples[cut].Stamp.Before(horizon) {
		cut++
	}
	if cut > 0 {
		tc.samples = tc.samples[cut:]
	}
}

// Query returns the sample applicable at t along with a Mode describing
// how it was produced. An error is returned only when the cache is
// empty.
func (tc *TimeCache) Query(t time.Time) (Sample, Mode, error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	n := len(tc.samples)
	if n == 0 {
		return Sample{}, Empty, newLookupError("time cache is empty")
	}
	if n == 1 {
		return tc.samples[0], OneValue, nil
	}

	oldest := tc.samples[0]
	newest := tc.samples[n-1]

	if t.Before(oldest.Stamp) {
		return oldest, ExtrapolateBack, nil
	}
	if t.After(newest.Stamp) {
		return newest, ExtrapolateForward, nil
	}

	// Locate the bracketing pair: samples[i] <= t <= samples[i+1].
	idx := sort.Search(n, func(i int) bool {
		return tc.samples[i].Stamp.After(t)
	})
	// idx is the first sample strictly after t; idx is in [1, n] here
	// because t is within [oldest, newest], and is n when t equals the
	// newest stamp, so it is clamped to a valid bracketing pair.
	if idx == 0 {
		idx = 1
	}
	if idx >= n {
		idx = n - 1
	}
	before := tc.samples[idx-1]
	after := tc.samples[idx]

	if before.ParentID != after.ParentID {
		// Reparenting boundary: do not interpolate across it. Report
		// extrapolation against whichever side is closer in time.
		if t.Sub(before.Stamp) <= after.Stamp.Sub(t) {
			return before, ExtrapolateForward, nil
		}
		return after, ExtrapolateBack, nil
	}

	if before.Stamp.Equal(after.Stamp) {
		return after, Interpolated, nil
	}

	alpha := float64(t.Sub(before.Stamp)) / float64(after.Stamp.Sub(before.Stamp))
	interp := Sample{
		Stamp:     t,
		Transform: InterpolateTransform(before.Transform, after.Transform, alpha),
		ParentID:  before.ParentID,
	}
	return interp, Interpolated, nil
}

// LatestStamp returns the stamp of the newest retained sample.
func (tc *TimeCache) LatestStamp() (time.Time, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if len(tc.samples) == 0 {
		return time.Time{}, false
	}
	return tc.samples[len(tc.samples)-1].Stamp, true
}

// OldestStamp returns the stamp of the oldest retained sample.
func (tc *TimeCache) OldestStamp() (time.Time, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if len(tc.samples) == 0 {
		return time.Time{}, false
	}
	return tc.samples[0].Stamp, true
}

// Latest returns the most recently inserted sample verbatim, without
// interpolation. Used by latest-common-time discovery, which needs each
// edge's freshest data point rather than a value resampled at a
// not-yet-known query time.
func (tc *TimeCache) Latest() (Sample, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if len(tc.samples) == 0 {
		return Sample{}, false
	}
	return tc.samples[len(tc.samples)-1], true
}

// History returns a copy of every retained sample, oldest first. Used by
// introspection tools that plot an edge's values over time; callers must
// not rely on it for query semantics since it bypasses interpolation.
func (tc *TimeCache) History() []Sample {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	out := make([]Sample, len(tc.samples))
	copy(out, tc.samples)
	return out
}

// Len returns the number of retained samples.
func (tc *TimeCache) Len() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.samples)
}

// Clear removes every retained sample.
func (tc *TimeCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.samples = nil
}
