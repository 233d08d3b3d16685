// Package nextnode implements the sequential (non-regex) forward/backward
// scan aggregate core behind the `sequence_next_node` SQL function: given a
// chain of ordered steps, find the value of the event immediately following
// (or preceding) the point where the chain completes.
package nextnode

import (
	"strings"

	"github.com/coregx/behavioral/event"
)

// Direction selects whether the step chain is matched walking forward or
// backward through time.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// String renders the direction using its SQL-surface spelling.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "unknown"
	}
}

// ParseDirection accepts a case-insensitive, whitespace-trimmed direction
// string.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward":
		return Forward, nil
	case "backward":
		return Backward, nil
	default:
		return 0, &ParamError{Kind: "direction", Value: s}
	}
}

// Base selects which base-condition event the scan starts from.
type Base int

const (
	Head Base = iota
	Tail
	FirstMatch
	LastMatch
)

// String renders the base policy using its SQL-surface spelling.
func (b Base) String() string {
	switch b {
	case Head:
		return "head"
	case Tail:
		return "tail"
	case FirstMatch:
		return "first_match"
	case LastMatch:
		return "last_match"
	default:
		return "unknown"
	}
}

// ParseBase accepts a case-insensitive, whitespace-trimmed base string.
func ParseBase(s string) (Base, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "head":
		return Head, nil
	case "tail":
		return Tail, nil
	case "first_match":
		return FirstMatch, nil
	case "last_match":
		return LastMatch, nil
	default:
		return 0, &ParamError{Kind: "base", Value: s}
	}
}

// ParamError reports an unrecognized direction or base parameter string.
type ParamError struct {
	Kind  string
	Value string
}

func (e *ParamError) Error() string {
	return "nextnode: unknown " + e.Kind + " value " + "\"" + e.Value + "\""
}

// State accumulates events and the scan configuration for one group. The
// zero value is a valid, empty state.
type State struct {
	events       []event.NextNodeEvent
	direction    Direction
	hasDirection bool
	base         Base
	hasBase      bool
	numSteps     int
}

// Update pushes one event unconditionally — any event, including one with
// no condition bits set, could turn out to be the returned next node.
// numSteps is recorded on every call (it is constant within a group);
// direction and base are absorbed on first use only.
func (s *State) Update(e event.NextNodeEvent, numSteps int, direction Direction, base Base) {
	s.events = append(s.events, e)
	s.numSteps = numSteps
	if !s.hasDirection {
		s.direction = direction
		s.hasDirection = true
	}
	if !s.hasBase {
		s.base = base
		s.hasBase = true
	}
}

// CombineInPlace concatenates other's events into s, absorbing
// direction/base when self is zero-initialized and taking the larger
// numSteps of the two. other keeps its
// own events untouched, so each appended event's Value is cloned rather
// than struct-copied, bumping its refcount the same way the original
// clone-on-extend combine does.
func (s *State) CombineInPlace(other State) {
	for _, e := range other.events {
		e.Value = e.Value.Clone()
		s.events = append(s.events, e)
	}
	if other.numSteps > s.numSteps {
		s.numSteps = other.numSteps
	}
	if !s.hasDirection && other.hasDirection {
		s.direction = other.direction
		s.hasDirection = true
	}
	if !s.hasBase && other.hasBase {
		s.base = other.base
		s.hasBase = true
	}
}

// Combine merges self and other into a newly allocated state, leaving
// both inputs intact. Every event carried into out is a fresh clone of
// its Value, not a bare struct copy, so out's share of each string
// payload is reflected in the refcount.
func Combine(self, other State) State {
	out := State{
		events:       make([]event.NextNodeEvent, 0, len(self.events)+len(other.events)),
		direction:    self.direction,
		hasDirection: self.hasDirection,
		base:         self.base,
		hasBase:      self.hasBase,
		numSteps:     self.numSteps,
	}
	for _, e := range self.events {
		e.Value = e.Value.Clone()
		out.events = append(out.events, e)
	}
	for _, e := range other.events {
		e.Value = e.Value.Clone()
		out.events = append(out.events, e)
	}
	if other.numSteps > out.numSteps {
		out.numSteps = other.numSteps
	}
	if !out.hasDirection && other.hasDirection {
		out.direction = other.direction
		out.hasDirection = true
	}
	if !out.hasBase && other.hasBase {
		out.base = other.base
		out.hasBase = true
	}
	return out
}

// Finalize sorts the collected events (presorted fast-path) and dispatches
// on (direction, base) to find the returned value. Returns ("", false) for
// NULL.
//
// Finalize is this state's terminal operation: once it returns, the host
// discards the state, so every event's Value handle is released here —
// the same point at which a dropped Vec<NextNodeEvent> would release its
// Rc<str> handles.
func (s *State) Finalize() (string, bool) {
	defer s.releaseEvents()
	if len(s.events) == 0 || s.numSteps == 0 {
		return "", false
	}
	event.SortNextNodeEvents(s.events)

	switch s.base {
	case Head:
		return s.fromHeadOrTail(s.leftmostBaseIndex())
	case Tail:
		return s.fromHeadOrTail(s.rightmostBaseIndex())
	case FirstMatch:
		return s.firstMatch()
	case LastMatch:
		return s.lastMatch()
	default:
		return "", false
	}
}

func (s *State) releaseEvents() {
	for _, e := range s.events {
		e.Value.Release()
	}
}

func (s *State) leftmostBaseIndex() (int, bool) {
	for i, e := range s.events {
		if e.BaseCondition {
			return i, true
		}
	}
	return 0, false
}

func (s *State) rightmostBaseIndex() (int, bool) {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].BaseCondition {
			return i, true
		}
	}
	return 0, false
}

func (s *State) fromHeadOrTail(idx int, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	return s.matchFrom(idx)
}

// firstMatch scans candidate base events in the scan direction's own
// order — ascending for Forward, descending for Backward, since Backward
// walks right-to-left — and returns on the first one whose chain
// completes. Mirrors leftmostBaseIndex/rightmostBaseIndex's Head/Tail
// symmetry.
func (s *State) firstMatch() (string, bool) {
	if s.direction == Backward {
		for i := len(s.events) - 1; i >= 0; i-- {
			if !s.events[i].BaseCondition {
				continue
			}
			if v, ok := s.matchFrom(i); ok {
				return v, true
			}
		}
		return "", false
	}
	for i, e := range s.events {
		if !e.BaseCondition {
			continue
		}
		if v, ok := s.matchFrom(i); ok {
			return v, true
		}
	}
	return "", false
}

// lastMatch scans in the same direction-dependent order as firstMatch but
// keeps the last successful chain instead of stopping at the first.
func (s *State) lastMatch() (string, bool) {
	var result string
	var found bool
	if s.direction == Backward {
		for i := len(s.events) - 1; i >= 0; i-- {
			if !s.events[i].BaseCondition {
				continue
			}
			if v, ok := s.matchFrom(i); ok {
				result, found = v, true
			}
		}
		return result, found
	}
	for i, e := range s.events {
		if !e.BaseCondition {
			continue
		}
		if v, ok := s.matchFrom(i); ok {
			result, found = v, true
		}
	}
	return result, found
}

// matchFrom runs the forward or backward scan starting at event index s0,
// starting from event index s0.
func (s *State) matchFrom(s0 int) (string, bool) {
	if s.direction == Backward {
		return s.matchBackward(s0)
	}
	return s.matchForward(s0)
}

func (s *State) matchForward(s0 int) (string, bool) {
	if !s.events[s0].Condition(0) {
		return "", false
	}
	step := 1
	idx := s0
	for idx < len(s.events) && step < s.numSteps {
		idx++
		if idx >= len(s.events) {
			return "", false
		}
		if s.events[idx].Condition(step) {
			step++
		}
	}
	if step != s.numSteps {
		return "", false
	}
	if idx+1 >= len(s.events) {
		return "", false
	}
	next := s.events[idx+1]
	if !next.Value.Valid() {
		return "", false
	}
	return next.Value.Get(), true
}

func (s *State) matchBackward(s0 int) (string, bool) {
	if !s.events[s0].Condition(0) {
		return "", false
	}
	step := 1
	idx := s0
	for idx > 0 && step < s.numSteps {
		idx--
		if s.events[idx].Condition(step) {
			step++
		}
	}
	if step != s.numSteps {
		return "", false
	}
	if idx-1 < 0 {
		return "", false
	}
	prev := s.events[idx-1]
	if !prev.Value.Valid() {
		return "", false
	}
	return prev.Value.Get(), true
}
