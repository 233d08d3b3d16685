// Package host defines the narrow contracts a database host binds against
// to drive the behavioral aggregate cores, plus the handful of decode
// helpers (interval, column counts) every binding needs. The cores
// themselves (event, pattern, retention, sessionize, funnel, sequence,
// nextnode) have no dependency on this package or on any host's types, and
// host does not import them either: its interfaces are satisfied by the
// cores' State types structurally.
package host

import "github.com/coregx/behavioral/internal/conv"

// MicrosPerDay is the number of microseconds in one calendar day, used by
// IntervalToMicros.
const MicrosPerDay int64 = 86_400_000_000

// IntervalToMicros decodes a host interval's {months, days, micros}
// components (as laid out in a 16-byte duckdb_interval-shaped record:
// int32 months, int32 days, int64 micros) into a single microsecond count.
// Only months == 0 is accepted: month-based intervals are ambiguous
// (28-31 days per month) and require a calendar the cores deliberately do
// not depend on. Returns an error on a non-zero months component or on
// arithmetic overflow in days*MicrosPerDay + micros.
func IntervalToMicros(months, days int32, micros int64) (int64, error) {
	if months != 0 {
		return 0, &IntervalError{Reason: "non-zero months component is ambiguous"}
	}
	dayMicros, ok := mulOverflows(int64(days), MicrosPerDay)
	if !ok {
		return 0, &IntervalError{Reason: "days component overflows microseconds"}
	}
	total, ok := addOverflows(dayMicros, micros)
	if !ok {
		return 0, &IntervalError{Reason: "days+micros overflows int64"}
	}
	return total, nil
}

// IntervalError reports a rejected interval decode: a non-zero months
// component, or arithmetic overflow.
type IntervalError struct {
	Reason string
}

func (e *IntervalError) Error() string {
	return "host: interval decode: " + e.Reason
}

func mulOverflows(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

func addOverflows(a, b int64) (int64, bool) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, false
	}
	return r, true
}

// BoolColumn decodes a host boolean vector plus its validity bitmap into a
// plain []bool, treating any invalid (NULL) entry as false — callers that
// need to distinguish a NULL condition from a false one should check the
// validity bitmap themselves before calling this helper.
func BoolColumn(values []bool, validity []bool) []bool {
	n := len(values)
	if len(validity) < n {
		n = len(validity)
	}
	out := make([]bool, conv.IntToUint32(n))
	for i := 0; i < n; i++ {
		out[i] = values[i] && validity[i]
	}
	return out
}

// VarcharColumn decodes a host length+data pair into a Go string. A
// negative length or a length exceeding len(data) is treated as "no value
// present" (a non-fatal string-encoding error), returning ok=false.
func VarcharColumn(data []byte, length int) (string, bool) {
	if length < 0 || length > len(data) {
		return "", false
	}
	return string(data[:length]), true
}

// SessionizeState is the lifecycle contract a host binds the `sessionize`
// aggregate against.
type SessionizeState interface {
	Update(ts, thresholdUs int64)
	MarkNullRow()
	Finalize() int64
}

// RetentionState is the lifecycle contract a host binds the `retention`
// aggregate against.
type RetentionState interface {
	Update(conditions []bool)
	Finalize() []bool
}

// FunnelState is the lifecycle contract a host binds the `window_funnel`
// aggregate against.
type FunnelState interface {
	Finalize() int64
}

// SequenceState is the lifecycle contract a host binds the
// `sequence_match`/`sequence_count`/`sequence_match_events` aggregates
// against.
type SequenceState interface {
	FinalizeMatch() (bool, error)
	FinalizeCount() (int64, error)
	FinalizeEvents() ([]int64, error)
}

// NextNodeState is the lifecycle contract a host binds the
// `sequence_next_node` aggregate against.
type NextNodeState interface {
	Finalize() (string, bool)
}
