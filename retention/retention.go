// Package retention implements the OR-fold aggregate core behind the
// `retention` SQL function: whether a user present at the cohort anchor
// (condition 0) also satisfied each later retention condition.
package retention

// State accumulates the boolean conditions observed across a group's rows.
// The zero value is a valid, empty state.
type State struct {
	conditionsMet uint32
	numConditions int
}

// Update folds one row's boolean conditions into the state. Conditions
// beyond index 31 are silently dropped, matching event.Condition's
// truncation rule.
func (s *State) Update(conditions []bool) {
	if len(conditions) > s.numConditions {
		s.numConditions = len(conditions)
	}
	for i, v := range conditions {
		if i >= 32 {
			break
		}
		if v {
			s.conditionsMet |= 1 << uint(i)
		}
	}
}

// Combine merges other into s in place. Combine is commutative,
// associative, and idempotent: bitwise OR and max have no notion of
// "which side is later", so any merge order or tree shape yields the same
// result.
func (s *State) Combine(other State) {
	s.conditionsMet |= other.conditionsMet
	if other.numConditions > s.numConditions {
		s.numConditions = other.numConditions
	}
}

// Finalize returns one bool per condition, length NumConditions. If the
// cohort anchor (condition 0) was never observed, every result is false:
// retention is meaningless for a user who never appeared in the cohort.
func (s State) Finalize() []bool {
	out := make([]bool, s.numConditions)
	if s.numConditions == 0 {
		return out
	}
	anchor := s.conditionsMet&1 != 0
	if !anchor {
		return out
	}
	out[0] = true
	for i := 1; i < s.numConditions; i++ {
		if i >= 32 {
			break
		}
		out[i] = s.conditionsMet&(1<<uint(i)) != 0
	}
	return out
}

// NumConditions reports the condition count absorbed so far.
func (s State) NumConditions() int {
	return s.numConditions
}
