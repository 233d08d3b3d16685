// Package funnel implements the greedy forward-scan aggregate core behind
// the `window_funnel` SQL function: given a monotone sequence of conversion
// steps and a time window, report how many steps a user completed in order.
package funnel

import (
	"strings"

	"github.com/coregx/behavioral/event"
)

// Mode is a bitmask of independent funnel-matching behaviors. The zero
// value is the default (strict-free) mode.
type Mode uint8

const (
	// Strict breaks the chain when the current event regresses: it has
	// the previous step's bit set but not the current one.
	Strict Mode = 1 << iota
	// StrictOrder aborts the scan the moment an event sets any bit below
	// the current step — an irrelevant-or-earlier event out of order.
	StrictOrder
	// StrictDeduplication skips an event that repeats the previous
	// event's timestamp while also satisfying the current step.
	StrictDeduplication
	// StrictIncrease skips an event satisfying the current step whose
	// timestamp does not strictly increase over the previous one.
	StrictIncrease
	// StrictOnce allows a single event to advance the funnel by at most
	// one step, even if it sets multiple consecutive condition bits.
	StrictOnce
	// AllowReentry lets a later entry-condition event (bit 0) restart the
	// funnel from step 1 instead of being ignored.
	AllowReentry
)

var modeTokens = map[string]Mode{
	"strict":               Strict,
	"strict_order":         StrictOrder,
	"strict_deduplication": StrictDeduplication,
	"strict_increase":      StrictIncrease,
	"strict_once":          StrictOnce,
	"allow_reentry":        AllowReentry,
}

// ParseMode parses a comma-separated mode string into a Mode bitmask. An
// empty string yields the default mode (0). Unknown tokens are a decode
// error.
func ParseMode(s string) (Mode, error) {
	var m Mode
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		flag, ok := modeTokens[tok]
		if !ok {
			return 0, &ModeError{Token: tok}
		}
		m |= flag
	}
	return m, nil
}

// ModeError reports an unrecognized window_funnel mode token.
type ModeError struct {
	Token string
}

func (e *ModeError) Error() string {
	return "funnel: unknown mode token " + "\"" + e.Token + "\""
}

// State accumulates events for one group. The zero value is a valid,
// empty state.
type State struct {
	events        []event.Event
	windowSizeUs  int64
	numConditions int
	mode          Mode
	hasWindow     bool
	hasMode       bool
}

// Update folds one row into the state. n is the total condition count
// for this group, recorded on every call (it is constant within a group);
// windowSizeUs and mode are absorbed on first use only. Events with no
// condition bit set can never
// advance any step, so they are filtered out.
func (s *State) Update(e event.Event, n int, windowSizeUs int64, mode Mode) {
	s.numConditions = n
	if !s.hasWindow {
		s.windowSizeUs = windowSizeUs
		s.hasWindow = true
	}
	if !s.hasMode {
		s.mode = mode
		s.hasMode = true
	}
	if e.HasAnyCondition() {
		s.events = append(s.events, e)
	}
}

// Combine merges other into s in place: events concatenate, numConditions
// takes the max, and windowSizeUs/mode are absorbed from whichever side
// has them set when self is zero-initialized (the segment-tree evaluator
// creates fresh combine targets that must absorb configuration from the
// first non-empty source).
func (s *State) Combine(other State) {
	s.events = append(s.events, other.events...)
	if other.numConditions > s.numConditions {
		s.numConditions = other.numConditions
	}
	if !s.hasWindow && other.hasWindow {
		s.windowSizeUs = other.windowSizeUs
		s.hasWindow = true
	}
	if !s.hasMode && other.hasMode {
		s.mode = other.mode
		s.hasMode = true
	}
}

// Finalize sorts the collected events and returns the maximum number of
// consecutive funnel steps completed by any entry event, in [0,
// numConditions]. Early-terminates once the maximum reaches
// numConditions.
func (s *State) Finalize() int64 {
	if s.numConditions == 0 {
		return 0
	}
	event.SortEvents(s.events)

	var maxSteps int
	for i, e := range s.events {
		if !e.Condition(0) {
			continue
		}
		steps := s.scanFrom(i)
		if steps > maxSteps {
			maxSteps = steps
		}
		if maxSteps >= s.numConditions {
			break
		}
	}
	return int64(maxSteps)
}

// scanFrom runs the forward scan starting at entry index i. Mode checks
// apply in this order: ALLOW_REENTRY, STRICT, STRICT_ORDER,
// STRICT_DEDUPLICATION, STRICT_INCREASE, before the step-advance loop.
func (s *State) scanFrom(i int) int {
	entryTs := s.events[i].TimestampUs
	currentStep := 1
	prevTs := entryTs

	for j := i + 1; j < len(s.events); j++ {
		e := s.events[j]
		if e.TimestampUs-entryTs > s.windowSizeUs {
			break
		}

		if s.mode&AllowReentry != 0 && currentStep > 1 && e.Condition(0) {
			currentStep = 1
			prevTs = e.TimestampUs
			continue
		}

		if s.mode&Strict != 0 {
			if e.Condition(currentStep-1) && !e.Condition(currentStep) {
				break
			}
		}

		if s.mode&StrictOrder != 0 {
			var violated bool
			for k := 0; k < currentStep; k++ {
				if e.Condition(k) {
					violated = true
					break
				}
			}
			if violated {
				return currentStep
			}
		}

		if s.mode&StrictDeduplication != 0 && e.TimestampUs == prevTs && e.Condition(currentStep) {
			continue
		}

		if s.mode&StrictIncrease != 0 && e.Condition(currentStep) && e.TimestampUs <= prevTs {
			continue
		}

		for e.Condition(currentStep) {
			currentStep++
			prevTs = e.TimestampUs
			if currentStep >= s.numConditions {
				return s.numConditions
			}
			if s.mode&StrictOnce != 0 {
				break
			}
		}
	}
	return currentStep
}
