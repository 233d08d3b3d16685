// Package event provides the row-level data model shared by the
// window-funnel and sequence aggregate cores, plus the sort and merge
// primitives their finalize steps depend on.
package event

import (
	"sort"

	"golang.org/x/sys/cpu"

	"github.com/coregx/behavioral/internal/refstr"
)

// Event is a single timestamped row with a condition bitmask. Bit i of
// Conditions indicates that the i-th boolean condition column was true for
// this row. Only the low 32 bits are meaningful; inputs beyond 32 conditions
// are silently truncated by the caller before Conditions is populated.
type Event struct {
	TimestampUs int64
	Conditions  uint32
}

// HasAnyCondition reports whether any condition bit is set.
func (e Event) HasAnyCondition() bool {
	return e.Conditions != 0
}

// Condition reports whether bit i is set. Indices outside [0, 31] are always
// false, matching spec's truncation rule.
func (e Event) Condition(i int) bool {
	if i < 0 || i >= 32 {
		return false
	}
	return e.Conditions&(1<<uint(i)) != 0
}

// NextNodeEvent is the richer event type used by the sequence_next_node
// core. Value is refcounted so cloning an event (as happens on every
// combine's slice append) never deep-copies the string payload.
type NextNodeEvent struct {
	TimestampUs   int64
	Value         refstr.String
	BaseCondition bool
	Conditions    uint32
}

// HasAnyCondition reports whether any condition bit is set.
func (e NextNodeEvent) HasAnyCondition() bool {
	return e.Conditions != 0
}

// Condition reports whether bit i is set on this event.
func (e NextNodeEvent) Condition(i int) bool {
	if i < 0 || i >= 32 {
		return false
	}
	return e.Conditions&(1<<uint(i)) != 0
}

// hasAVX2 follows the detect-capability-then-pick-loop-shape idiom common
// in this codebase's SIMD-aware packages. There is no assembly kernel here
// — both loop shapes below are plain Go — but wider hardware gets the
// unrolled comparison loop, which reduces branch-predictor pressure on the
// already-sorted fast path.
var hasAVX2 = cpu.X86.HasAVX2

// isSortedEvents performs the O(n) non-decreasing-timestamp check from
// this domain's already-sorted fast path. On capable hardware it unrolls the comparison loop
// 8-wide; elsewhere it falls back to a straight-line loop. Both are
// functionally identical — this only changes constant-factor throughput.
func isSortedEvents(events []Event) bool {
	if len(events) < 2 {
		return true
	}
	if hasAVX2 {
		return isSortedEventsUnrolled(events)
	}
	return isSortedEventsScalar(events)
}

func isSortedEventsScalar(events []Event) bool {
	for i := 1; i < len(events); i++ {
		if events[i].TimestampUs < events[i-1].TimestampUs {
			return false
		}
	}
	return true
}

func isSortedEventsUnrolled(events []Event) bool {
	n := len(events)
	i := 1
	for ; i+8 <= n; i += 8 {
		for j := i; j < i+8; j++ {
			if events[j].TimestampUs < events[j-1].TimestampUs {
				return false
			}
		}
	}
	for ; i < n; i++ {
		if events[i].TimestampUs < events[i-1].TimestampUs {
			return false
		}
	}
	return true
}

// SortEvents sorts events in place by TimestampUs using an in-place,
// unstable comparison sort. Same-timestamp ordering is unspecified (matches
// the reference ClickHouse/DuckDB behavior being modeled); this admits
// stdlib's adaptive pattern-defeating sort, which is O(n) when the input is
// already sorted (the common case when the host delivers rows via an
// ORDER BY) and O(n log n) otherwise.
//
// A bespoke radix sort keyed on TimestampUs was considered and rejected for
// the same reason: the scatter pattern it requires
// thrashes cache on typical partition sizes, and stdlib's introsort-style
// sort.Slice already gives the adaptive behavior this hot path wants.
func SortEvents(events []Event) {
	if isSortedEvents(events) {
		return
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].TimestampUs < events[j].TimestampUs
	})
}

// SortNextNodeEvents sorts NextNodeEvents in place by TimestampUs, same
// semantics as SortEvents.
func SortNextNodeEvents(events []NextNodeEvent) {
	if len(events) < 2 {
		return
	}
	sorted := true
	for i := 1; i < len(events); i++ {
		if events[i].TimestampUs < events[i-1].TimestampUs {
			sorted = false
			break
		}
	}
	if sorted {
		return
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].TimestampUs < events[j].TimestampUs
	})
}

// MergeSorted merges two already-sorted Event slices into a new sorted
// slice using a stable two-pointer merge. Rarely used in production
// (finalize sorts the whole buffer in one pass); useful for combining two
// pre-sorted partials without a full re-sort, and for tests that want to
// assert SortEvents and MergeSorted agree on ordering.
func MergeSorted(a, b []Event) []Event {
	out := make([]Event, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].TimestampUs <= b[j].TimestampUs {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
