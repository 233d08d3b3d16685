// Package pattern compiles and executes the mini pattern language used by
// sequence_match, sequence_count, sequence_match_events, and (by inclusion)
// the sequence core. See parser.go for the grammar and executor.go for the
// fast-path/NFA execution strategies.
package pattern

// Kind identifies the variant of a compiled Step.
type Kind int

const (
	// Condition requires bit ConditionIndex to be set on the current event.
	Condition Kind = iota
	// AnyEvents matches zero or more events of any kind (the `.*` wildcard),
	// with lazy semantics: the executor prefers advancing the pattern over
	// consuming more events.
	AnyEvents
	// OneEvent matches exactly one arbitrary event (the `.` wildcard).
	OneEvent
	// TimeConstraint is a non-consuming predicate on the elapsed seconds
	// since the previously consumed event.
	TimeConstraint
)

// String returns a human-readable name for the step kind, used in test
// failure output and examples.
func (k Kind) String() string {
	switch k {
	case Condition:
		return "Condition"
	case AnyEvents:
		return "AnyEvents"
	case OneEvent:
		return "OneEvent"
	case TimeConstraint:
		return "TimeConstraint"
	default:
		return "Unknown"
	}
}

// Op is a time-constraint comparison operator.
type Op int

const (
	OpGE Op = iota // >=
	OpLE           // <=
	OpGT           // >
	OpLT           // <
	OpEQ           // ==
	OpNE           // !=
)

// Evaluate reports whether elapsedSeconds <op> threshold holds.
func (op Op) Evaluate(elapsedSeconds, threshold int64) bool {
	switch op {
	case OpGE:
		return elapsedSeconds >= threshold
	case OpLE:
		return elapsedSeconds <= threshold
	case OpGT:
		return elapsedSeconds > threshold
	case OpLT:
		return elapsedSeconds < threshold
	case OpEQ:
		return elapsedSeconds == threshold
	case OpNE:
		return elapsedSeconds != threshold
	default:
		return false
	}
}

// String renders the operator using its pattern-language spelling.
func (op Op) String() string {
	switch op {
	case OpGE:
		return ">="
	case OpLE:
		return "<="
	case OpGT:
		return ">"
	case OpLT:
		return "<"
	case OpEQ:
		return "=="
	case OpNE:
		return "!="
	default:
		return "?"
	}
}

// Step is a single compiled element of a pattern. ConditionIndex is
// meaningful only for Kind == Condition (0-indexed internally, though the
// pattern syntax `(?N)` is 1-indexed). Op/ThresholdSeconds are meaningful
// only for Kind == TimeConstraint.
type Step struct {
	Kind             Kind
	ConditionIndex   int
	Op               Op
	ThresholdSeconds int64
}

// Pattern is a compiled, ready-to-execute pattern: an ordered sequence of
// Steps plus the source string it was parsed from (kept for
// sequence.State's "pattern string differs, invalidate cache" check).
type Pattern struct {
	Steps  []Step
	Source string
}
