// Package sessionize implements the window-tree-combinable aggregate core
// behind the `sessionize` SQL function: a session id that increments every
// time the gap between consecutive row timestamps exceeds a threshold.
//
// State is deliberately a fixed handful of scalars so Combine stays O(1): the host's
// segment-tree window evaluator calls Combine on every internal node of a
// balanced binary tree, so its cost sets a hard floor on query latency.
package sessionize

// State is the window-tree-combinable session state. The zero value is a
// valid, empty state (no timestamps observed yet).
//
// Update does not sort: each gap is measured against the latest timestamp
// seen so far, so the count equals the number of sessions only when rows
// arrive in timestamp order (an ORDER BY in the host's window partition).
type State struct {
	hasTimestamps  bool
	firstTs        int64
	lastTs         int64
	boundaries     int64
	thresholdUs    int64
	currentRowNull bool
}

// Update folds one row's timestamp into the state, given the session gap
// threshold in microseconds (recorded on every call; it is assumed
// constant within a group per spec's configuration-immutability invariant).
func (s *State) Update(ts, thresholdUs int64) {
	s.currentRowNull = false
	s.thresholdUs = thresholdUs

	if !s.hasTimestamps {
		s.hasTimestamps = true
		s.firstTs = ts
		s.lastTs = ts
		return
	}

	if ts-s.lastTs > thresholdUs {
		s.boundaries++
	}
	if ts > s.lastTs {
		s.lastTs = ts
	}
	if ts < s.firstTs {
		s.firstTs = ts
	}
}

// MarkNullRow records that the row currently being processed has a NULL
// timestamp, so the host can emit NULL for that row without disturbing the
// session boundary count.
func (s *State) MarkNullRow() {
	s.currentRowNull = true
}

// CurrentRowNull reports whether the most recently processed row was
// NULL-marked.
func (s State) CurrentRowNull() bool {
	return s.currentRowNull
}

// Combine merges self and other into a new state in O(1) time — the
// operation the segment-tree window evaluator depends on. It is associative
// for any binary tree shape: empty-on-either-side is handled explicitly, and
// the non-empty case only ever reads a few scalars from each side.
//
// self is assumed to represent the earlier (left) segment in time and other
// the later (right) segment, matching a left-to-right in-order tree walk.
func Combine(self, other State) State {
	if !self.hasTimestamps {
		return other
	}
	if !other.hasTimestamps {
		out := self
		out.currentRowNull = other.currentRowNull
		return out
	}

	var crossBoundary int64
	if other.firstTs-self.lastTs > self.thresholdUs {
		crossBoundary = 1
	}

	return State{
		hasTimestamps:  true,
		firstTs:        self.firstTs,
		lastTs:         other.lastTs,
		boundaries:     self.boundaries + other.boundaries + crossBoundary,
		thresholdUs:    self.thresholdUs,
		currentRowNull: other.currentRowNull,
	}
}

// Finalize returns the session id: boundaries+1 if any timestamp has been
// observed, else 0. The host converts this to NULL when CurrentRowNull
// holds.
func (s State) Finalize() int64 {
	if !s.hasTimestamps {
		return 0
	}
	return s.boundaries + 1
}
