// Package sequence implements the event-collection-plus-pattern-execution
// aggregate core shared by `sequence_match`, `sequence_count`, and
// `sequence_match_events`.
package sequence

import (
	"github.com/coregx/behavioral/event"
	"github.com/coregx/behavioral/pattern"
)

// State accumulates events and a pattern string for one group. The zero
// value is a valid, empty state.
type State struct {
	events     []event.Event
	patternStr string
	hasPattern bool
	compiled   pattern.Pattern
	hasCache   bool
}

// Update folds one row into the state: patternStr is absorbed on first
// call only (subsequent calls are ignored, per spec's configuration-
// immutability invariant); the event is recorded only if it carries any
// condition bit.
func (s *State) Update(e event.Event, patternStr string) {
	if !s.hasPattern {
		s.patternStr = patternStr
		s.hasPattern = true
	}
	if e.HasAnyCondition() {
		s.events = append(s.events, e)
	}
}

// CombineInPlace merges other into s, appending events in amortized O(n).
// Intended for left-fold merges over a chain of partials. If s has no
// pattern string yet, it adopts other's; if the adopted string differs
// from whatever was cached, the cache is invalidated.
func (s *State) CombineInPlace(other State) {
	s.events = append(s.events, other.events...)
	if !s.hasPattern && other.hasPattern {
		s.patternStr = other.patternStr
		s.hasPattern = true
	}
	if s.hasCache && s.compiled.Source != s.patternStr {
		s.hasCache = false
	}
}

// Combine merges self and other into a newly allocated state, for
// balanced-tree merges where in-place mutation of either side would be
// unsafe.
func Combine(self, other State) State {
	out := State{
		events:     make([]event.Event, 0, len(self.events)+len(other.events)),
		patternStr: self.patternStr,
		hasPattern: self.hasPattern,
	}
	out.events = append(out.events, self.events...)
	out.events = append(out.events, other.events...)
	if !out.hasPattern && other.hasPattern {
		out.patternStr = other.patternStr
		out.hasPattern = true
	}
	return out
}

func (s *State) ensureCompiled() (pattern.Pattern, error) {
	if s.hasCache && s.compiled.Source == s.patternStr {
		return s.compiled, nil
	}
	p, err := pattern.Parse(s.patternStr)
	if err != nil {
		return pattern.Pattern{}, err
	}
	s.compiled = p
	s.hasCache = true
	return p, nil
}

// FinalizeMatch sorts the collected events, lazily compiles the pattern,
// and reports whether at least one match exists. A pattern parse error
// (including an empty pattern string) is returned to the caller, which
// per spec surfaces as NULL for the group rather than aborting the query.
func (s *State) FinalizeMatch() (bool, error) {
	p, err := s.ensureCompiled()
	if err != nil {
		return false, err
	}
	event.SortEvents(s.events)
	r := pattern.Execute(p, s.events, false, pattern.DefaultExecutorConfig())
	return r.Matched, nil
}

// FinalizeCount sorts the collected events, lazily compiles the pattern,
// and counts all non-overlapping matches.
func (s *State) FinalizeCount() (int64, error) {
	p, err := s.ensureCompiled()
	if err != nil {
		return 0, err
	}
	event.SortEvents(s.events)
	r := pattern.Execute(p, s.events, true, pattern.DefaultExecutorConfig())
	return r.Count, nil
}

// FinalizeEvents sorts the collected events, lazily compiles the pattern,
// and returns the first full match's Condition-step timestamps (nil, not
// an error, if there is no match).
func (s *State) FinalizeEvents() ([]int64, error) {
	p, err := s.ensureCompiled()
	if err != nil {
		return nil, err
	}
	event.SortEvents(s.events)
	ts, _ := pattern.ExecuteEvents(p, s.events, pattern.DefaultExecutorConfig())
	return ts, nil
}
