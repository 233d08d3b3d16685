package pattern

import (
	"github.com/coregx/behavioral/event"
	"github.com/coregx/behavioral/internal/conv"
	"github.com/coregx/behavioral/internal/sparse"
)

// MicrosPerSecond is the conversion factor used to turn a timestamp delta
// (microseconds) into the elapsed-seconds value a TimeConstraint compares
// against. Integer-truncating division, matching ClickHouse/DuckDB
// semantics: 1_999_999us elapsed is 1 second, not 2.
const MicrosPerSecond = 1_000_000

// Strategy is the fast-path classification of a compiled Pattern: pick the
// cheapest execution shape the pattern's structure allows.
type Strategy int

const (
	// AdjacentConditions: every step is Condition, no wildcards. Executed
	// with an O(n), zero-allocation sliding window of size len(steps).
	AdjacentConditions Strategy = iota
	// WildcardSeparated: a mix of Condition and AnyEvents steps, at least
	// one of each. Executed with a single O(n), zero-allocation forward
	// pass tracking a step counter.
	WildcardSeparated
	// Complex: contains OneEvent or TimeConstraint steps (or no Condition
	// steps at all). Falls through to the bounded backtracking NFA.
	Complex
)

// String names the strategy, useful in tests and debug logging.
func (s Strategy) String() string {
	switch s {
	case AdjacentConditions:
		return "AdjacentConditions"
	case WildcardSeparated:
		return "WildcardSeparated"
	case Complex:
		return "Complex"
	default:
		return "Unknown"
	}
}

// Classify inspects a compiled pattern's steps and picks the cheapest
// execution strategy capable of running it.
func Classify(steps []Step) Strategy {
	hasAnyEvents := false
	hasCondition := false
	for _, s := range steps {
		switch s.Kind {
		case Condition:
			hasCondition = true
		case AnyEvents:
			hasAnyEvents = true
		case OneEvent, TimeConstraint:
			return Complex
		}
	}
	if !hasCondition {
		return Complex
	}
	if hasAnyEvents {
		return WildcardSeparated
	}
	return AdjacentConditions
}

// ExecutorConfig controls the NFA fallback's runaway-exploration defense.
type ExecutorConfig struct {
	// MaxNFAStates caps the number of frontier pops explored per starting
	// position before giving up on that position and advancing. Defends
	// against pathological patterns like `(?1).*.*.*.*(?2)`.
	MaxNFAStates int
}

// DefaultExecutorConfig returns the documented default of 10,000 iterations
// per starting position.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{MaxNFAStates: 10_000}
}

// Validate checks the configuration is usable.
func (c ExecutorConfig) Validate() error {
	if c.MaxNFAStates < 1 {
		return &ConfigError{Field: "MaxNFAStates", Message: "must be >= 1"}
	}
	return nil
}

// ConfigError reports an invalid ExecutorConfig field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "pattern: invalid config: " + e.Field + ": " + e.Message
}

// Result is the outcome of Execute.
type Result struct {
	Matched bool
	Count   int64
}

// Execute runs pat against sorted_events (must already be sorted by
// TimestampUs; see event.SortEvents). When countAll is false, execution
// stops at the first match (Count is 0 or 1). When true, all non-
// overlapping matches are counted: after a match ending at event e, the
// next search restarts at e+1.
func Execute(pat Pattern, events []event.Event, countAll bool, cfg ExecutorConfig) Result {
	if len(events) == 0 || len(pat.Steps) == 0 {
		return Result{}
	}

	switch Classify(pat.Steps) {
	case AdjacentConditions:
		return executeAdjacent(pat.Steps, events, countAll)
	case WildcardSeparated:
		return executeWildcard(pat.Steps, events, countAll)
	default:
		return executeNFA(pat, events, countAll, cfg)
	}
}

// ExecuteEvents runs pat against sorted_events and, on the first full
// match, returns the timestamps of the events that satisfied each
// Condition step (in pattern order). Wildcard/OneEvent/TimeConstraint
// steps contribute no timestamps. Returns ok=false if there is no match.
func ExecuteEvents(pat Pattern, events []event.Event, cfg ExecutorConfig) ([]int64, bool) {
	if len(events) == 0 || len(pat.Steps) == 0 {
		return nil, false
	}
	return tryMatchCollectingFromAny(pat, events, cfg)
}

// --- Adjacent-conditions fast path ---

func executeAdjacent(steps []Step, events []event.Event, countAll bool) Result {
	k := len(steps)
	if len(events) < k {
		return Result{}
	}

	var count int64
	i := 0
	for i+k <= len(events) {
		matched := true
		for j := 0; j < k; j++ {
			if !events[i+j].Condition(steps[j].ConditionIndex) {
				matched = false
				break
			}
		}
		if matched {
			count++
			if !countAll {
				return Result{Matched: true, Count: 1}
			}
			i += k // non-overlapping: advance past the match
		} else {
			i++
		}
	}
	return Result{Matched: count > 0, Count: count}
}

// --- Wildcard-separated fast path ---

func executeWildcard(steps []Step, events []event.Event, countAll bool) Result {
	// Collect just the Condition indices in order; AnyEvents steps are
	// implicit separators that contribute no constraint of their own.
	conds := conditionIndices(steps)
	k := len(conds)

	var count int64
	step := 0
	for _, ev := range events {
		if ev.Condition(conds[step]) {
			step++
			if step >= k {
				count++
				if !countAll {
					return Result{Matched: true, Count: 1}
				}
				step = 0 // reset for the next non-overlapping match (lazy)
			}
		}
	}
	return Result{Matched: count > 0, Count: count}
}

func conditionIndices(steps []Step) []int {
	var out []int
	for _, s := range steps {
		if s.Kind == Condition {
			out = append(out, s.ConditionIndex)
		}
	}
	return out
}

// --- Bounded backtracking NFA ---

// frame is a single point in the NFA's explicit, LIFO exploration frontier:
// (event index, step index, timestamp of the last *consumed* event).
type frame struct {
	eventIdx       int
	stepIdx        int
	lastMatchTs    int64
	hasLastMatchTs bool
}

func executeNFA(pat Pattern, events []event.Event, countAll bool, cfg ExecutorConfig) Result {
	if cfg.MaxNFAStates <= 0 {
		cfg = DefaultExecutorConfig()
	}
	numSteps := len(pat.Steps)

	// A visited-state dedup is only safe to apply when no step reads
	// lastMatchTs (i.e. no TimeConstraint anywhere in the pattern): two
	// frontier entries with the same (eventIdx, stepIdx) but different
	// lastMatchTs are otherwise NOT interchangeable, since a downstream
	// TimeConstraint could accept one and reject the other. See
	// DESIGN.md for the full argument.
	var visited *sparse.SparseSet
	if !hasTimeConstraint(pat.Steps) {
		// Keys range over eventIdx in [0, len(events)] and stepIdx in
		// [0, numSteps], so the largest key is (len(events)+1)*numSteps.
		capacity := conv.IntToUint32((len(events)+1)*numSteps + 1)
		if capacity == 0 {
			capacity = 1
		}
		visited = sparse.NewSparseSet(capacity)
	}

	// Single frontier buffer allocated once and reused (cleared, not
	// freed) across all starting positions.
	frontier := make([]frame, 0, numSteps*2)

	var count int64
	searchStart := 0
	for searchStart < len(events) {
		if visited != nil {
			visited.Clear()
		}
		frontier = frontier[:0]
		end, ok := tryMatchFrom(pat.Steps, events, searchStart, frontier, visited, numSteps, cfg.MaxNFAStates)
		if ok {
			count++
			if !countAll {
				return Result{Matched: true, Count: 1}
			}
			searchStart = end + 1 // non-overlapping: advance past the match
		} else {
			searchStart++
		}
	}
	return Result{Matched: count > 0, Count: count}
}

func hasTimeConstraint(steps []Step) bool {
	for _, s := range steps {
		if s.Kind == TimeConstraint {
			return true
		}
	}
	return false
}

// tryMatchFrom attempts to match pat starting at events[start:], returning
// the index of the last consumed event on success. frontier is the
// caller-owned, pre-cleared exploration buffer (reused across calls).
func tryMatchFrom(steps []Step, events []event.Event, start int, frontier []frame, visited *sparse.SparseSet, numSteps, maxStates int) (int, bool) {
	frontier = append(frontier, frame{eventIdx: start})

	iterations := 0
	for len(frontier) > 0 {
		f := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		iterations++
		if iterations > maxStates {
			return 0, false
		}

		if visited != nil {
			key := uint32(f.eventIdx*numSteps + f.stepIdx) //nolint:gosec // bounded by capacity computed from the same product
			if visited.Contains(key) {
				continue
			}
			visited.Insert(key)
		}

		if f.stepIdx >= numSteps {
			if f.eventIdx > 0 {
				return f.eventIdx - 1, true
			}
			return 0, true
		}

		if f.eventIdx >= len(events) {
			// Only AnyEvents can still advance past end-of-stream (matching
			// zero remaining events).
			if steps[f.stepIdx].Kind == AnyEvents {
				frontier = append(frontier, frame{eventIdx: f.eventIdx, stepIdx: f.stepIdx + 1, lastMatchTs: f.lastMatchTs, hasLastMatchTs: f.hasLastMatchTs})
			}
			continue
		}

		ev := events[f.eventIdx]
		step := steps[f.stepIdx]

		switch step.Kind {
		case Condition:
			if ev.Condition(step.ConditionIndex) {
				frontier = append(frontier, frame{eventIdx: f.eventIdx + 1, stepIdx: f.stepIdx + 1, lastMatchTs: ev.TimestampUs, hasLastMatchTs: true})
			}
		case AnyEvents:
			// Consume this event, staying on the same step — pushed FIRST
			// so it sits lower in the LIFO stack.
			frontier = append(frontier, frame{eventIdx: f.eventIdx + 1, stepIdx: f.stepIdx, lastMatchTs: f.lastMatchTs, hasLastMatchTs: f.hasLastMatchTs})
			// Match zero events, skip to next step — pushed LAST so it's
			// popped FIRST: this is what makes `.*` lazy.
			frontier = append(frontier, frame{eventIdx: f.eventIdx, stepIdx: f.stepIdx + 1, lastMatchTs: f.lastMatchTs, hasLastMatchTs: f.hasLastMatchTs})
		case OneEvent:
			frontier = append(frontier, frame{eventIdx: f.eventIdx + 1, stepIdx: f.stepIdx + 1, lastMatchTs: ev.TimestampUs, hasLastMatchTs: true})
		case TimeConstraint:
			if !f.hasLastMatchTs {
				// Vacuously true: no previous consumed event yet.
				frontier = append(frontier, frame{eventIdx: f.eventIdx, stepIdx: f.stepIdx + 1, lastMatchTs: f.lastMatchTs, hasLastMatchTs: f.hasLastMatchTs})
				continue
			}
			elapsed := (ev.TimestampUs - f.lastMatchTs) / MicrosPerSecond
			if step.Op.Evaluate(elapsed, step.ThresholdSeconds) {
				frontier = append(frontier, frame{eventIdx: f.eventIdx, stepIdx: f.stepIdx + 1, lastMatchTs: f.lastMatchTs, hasLastMatchTs: f.hasLastMatchTs})
			}
		}
	}
	return 0, false
}

// --- Event-collecting NFA (for sequence_match_events) ---

type collectFrame struct {
	eventIdx       int
	stepIdx        int
	lastMatchTs    int64
	hasLastMatchTs bool
	collected      []int64
}

func tryMatchCollectingFromAny(pat Pattern, events []event.Event, cfg ExecutorConfig) ([]int64, bool) {
	if cfg.MaxNFAStates <= 0 {
		cfg = DefaultExecutorConfig()
	}
	numSteps := len(pat.Steps)
	numConditions := 0
	for _, s := range pat.Steps {
		if s.Kind == Condition {
			numConditions++
		}
	}

	for start := 0; start < len(events); start++ {
		if ts, ok := tryMatchCollectingFrom(pat.Steps, events, start, numSteps, numConditions, cfg.MaxNFAStates); ok {
			return ts, true
		}
	}
	return nil, false
}

func tryMatchCollectingFrom(steps []Step, events []event.Event, start, numSteps, numConditions, maxStates int) ([]int64, bool) {
	frontier := []collectFrame{{eventIdx: start, collected: make([]int64, 0, numConditions)}}

	iterations := 0
	for len(frontier) > 0 {
		f := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		iterations++
		if iterations > maxStates {
			return nil, false
		}

		if f.stepIdx >= numSteps {
			return f.collected, true
		}

		if f.eventIdx >= len(events) {
			if steps[f.stepIdx].Kind == AnyEvents {
				frontier = append(frontier, collectFrame{eventIdx: f.eventIdx, stepIdx: f.stepIdx + 1, lastMatchTs: f.lastMatchTs, hasLastMatchTs: f.hasLastMatchTs, collected: f.collected})
			}
			continue
		}

		ev := events[f.eventIdx]
		step := steps[f.stepIdx]

		switch step.Kind {
		case Condition:
			if ev.Condition(step.ConditionIndex) {
				nc := make([]int64, len(f.collected)+1)
				copy(nc, f.collected)
				nc[len(f.collected)] = ev.TimestampUs
				frontier = append(frontier, collectFrame{eventIdx: f.eventIdx + 1, stepIdx: f.stepIdx + 1, lastMatchTs: ev.TimestampUs, hasLastMatchTs: true, collected: nc})
			}
		case AnyEvents:
			frontier = append(frontier, collectFrame{eventIdx: f.eventIdx + 1, stepIdx: f.stepIdx, lastMatchTs: f.lastMatchTs, hasLastMatchTs: f.hasLastMatchTs, collected: f.collected})
			frontier = append(frontier, collectFrame{eventIdx: f.eventIdx, stepIdx: f.stepIdx + 1, lastMatchTs: f.lastMatchTs, hasLastMatchTs: f.hasLastMatchTs, collected: f.collected})
		case OneEvent:
			frontier = append(frontier, collectFrame{eventIdx: f.eventIdx + 1, stepIdx: f.stepIdx + 1, lastMatchTs: ev.TimestampUs, hasLastMatchTs: true, collected: f.collected})
		case TimeConstraint:
			if !f.hasLastMatchTs {
				frontier = append(frontier, collectFrame{eventIdx: f.eventIdx, stepIdx: f.stepIdx + 1, lastMatchTs: f.lastMatchTs, hasLastMatchTs: f.hasLastMatchTs, collected: f.collected})
				continue
			}
			elapsed := (ev.TimestampUs - f.lastMatchTs) / MicrosPerSecond
			if step.Op.Evaluate(elapsed, step.ThresholdSeconds) {
				frontier = append(frontier, collectFrame{eventIdx: f.eventIdx, stepIdx: f.stepIdx + 1, lastMatchTs: f.lastMatchTs, hasLastMatchTs: f.hasLastMatchTs, collected: f.collected})
			}
		}
	}
	return nil, false
}
