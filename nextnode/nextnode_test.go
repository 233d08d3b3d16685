package nextnode

import (
	"testing"

	"github.com/coregx/behavioral/event"
	"github.com/coregx/behavioral/internal/refstr"
)

func nev(ts int64, value string, base bool, conds uint32) event.NextNodeEvent {
	return event.NextNodeEvent{
		TimestampUs:   ts,
		Value:         refstr.New(value),
		BaseCondition: base,
		Conditions:    conds,
	}
}

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{
		"forward":   Forward,
		"FORWARD":   Forward,
		" Backward ": Backward,
		"backward":  Backward,
	}
	for s, want := range cases {
		got, err := ParseDirection(s)
		if err != nil {
			t.Fatalf("ParseDirection(%q): %v", s, err)
		}
		if got != want {
			t.Errorf("ParseDirection(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestParseDirectionUnknown(t *testing.T) {
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseBase(t *testing.T) {
	cases := map[string]Base{
		"head":          Head,
		"TAIL":          Tail,
		" first_match ": FirstMatch,
		"last_match":    LastMatch,
	}
	for s, want := range cases {
		got, err := ParseBase(s)
		if err != nil {
			t.Fatalf("ParseBase(%q): %v", s, err)
		}
		if got != want {
			t.Errorf("ParseBase(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestParseBaseUnknown(t *testing.T) {
	if _, err := ParseBase("middle"); err == nil {
		t.Fatal("expected error")
	}
}

func TestScenarioForwardFirstMatch(t *testing.T) {
	// Forward direction, first_match base, a three-step chain.
	var s State
	s.Update(nev(1, "Home", true, 0b001), 3, Forward, FirstMatch)
	s.Update(nev(2, "Product", false, 0b010), 3, Forward, FirstMatch)
	s.Update(nev(3, "Cart", false, 0b100), 3, Forward, FirstMatch)
	s.Update(nev(4, "Checkout", false, 0b000), 3, Forward, FirstMatch)

	got, ok := s.Finalize()
	if !ok {
		t.Fatal("expected a match")
	}
	if got != "Checkout" {
		t.Errorf("got %q, want %q", got, "Checkout")
	}
}

func TestForwardHeadNoRetryOnFailure(t *testing.T) {
	var s State
	s.Update(nev(1, "A", true, 0b001), 2, Forward, Head)
	s.Update(nev(2, "B", true, 0b001), 2, Forward, Head) // a second base event, never tried by Head
	s.Update(nev(3, "C", false, 0b000), 2, Forward, Head)

	_, ok := s.Finalize()
	if ok {
		t.Fatal("expected no match: Head never retries past the leftmost base event")
	}
}

func TestForwardTailUsesRightmostBase(t *testing.T) {
	var s State
	s.Update(nev(1, "A", true, 0b000), 2, Forward, Tail) // leftmost base fails
	s.Update(nev(2, "B", true, 0b001), 2, Forward, Tail) // rightmost base: succeeds
	s.Update(nev(3, "C", false, 0b010), 2, Forward, Tail)
	s.Update(nev(4, "D", false, 0b000), 2, Forward, Tail)

	got, ok := s.Finalize()
	if !ok {
		t.Fatal("expected a match")
	}
	if got != "D" {
		t.Errorf("got %q, want %q", got, "D")
	}
}

func TestForwardLastMatchPrefersRightmostSuccess(t *testing.T) {
	var s State
	s.Update(nev(1, "A", true, 0b001), 2, Forward, LastMatch)
	s.Update(nev(2, "B", false, 0b010), 2, Forward, LastMatch)
	s.Update(nev(3, "C", false, 0b000), 2, Forward, LastMatch)
	s.Update(nev(4, "D", true, 0b001), 2, Forward, LastMatch)
	s.Update(nev(5, "E", false, 0b010), 2, Forward, LastMatch)
	s.Update(nev(6, "F", false, 0b000), 2, Forward, LastMatch)

	got, ok := s.Finalize()
	if !ok {
		t.Fatal("expected a match")
	}
	if got != "F" {
		t.Errorf("got %q, want %q (the later of the two successful base events)", got, "F")
	}
}

func TestBackwardMatchReturnsValueImmediatelyBefore(t *testing.T) {
	var s State
	s.Update(nev(1, "Before", false, 0b000), 2, Backward, Head)
	s.Update(nev(2, "B", false, 0b010), 2, Backward, Head)
	s.Update(nev(3, "A", true, 0b001), 2, Backward, Head)

	got, ok := s.Finalize()
	if !ok {
		t.Fatal("expected a match")
	}
	if got != "Before" {
		t.Errorf("got %q, want %q", got, "Before")
	}
}

func TestFinalizeNoBaseConditionEventYieldsNull(t *testing.T) {
	var s State
	s.Update(nev(1, "A", false, 0b001), 2, Forward, Head)

	if _, ok := s.Finalize(); ok {
		t.Fatal("expected no match: no base-condition event present")
	}
}

func TestFinalizeNoNextEventYieldsNull(t *testing.T) {
	var s State
	s.Update(nev(1, "A", true, 0b001), 2, Forward, Head)
	s.Update(nev(2, "B", false, 0b010), 2, Forward, Head)
	// chain completes at the last event; there is no event after it

	if _, ok := s.Finalize(); ok {
		t.Fatal("expected no match: no event follows the completed chain")
	}
}

func TestCombineInPlaceAbsorbsConfigWhenUnset(t *testing.T) {
	var a, b State
	a.Update(nev(1, "A", true, 0b001), 0, 0, 0)
	a.hasDirection = false
	a.hasBase = false

	b.Update(nev(2, "B", false, 0b010), 2, Forward, FirstMatch)

	a.CombineInPlace(b)
	if a.direction != Forward || a.base != FirstMatch || a.numSteps != 2 {
		t.Errorf("config not absorbed: direction=%v base=%v numSteps=%d", a.direction, a.base, a.numSteps)
	}
}

func TestCombineAllocatesNewState(t *testing.T) {
	var a, b State
	a.Update(nev(1, "Home", true, 0b001), 3, Forward, FirstMatch)
	b.Update(nev(2, "Product", false, 0b010), 3, Forward, FirstMatch)

	out := Combine(a, b)
	if len(a.events) != 1 {
		t.Error("Combine must not mutate self")
	}
	if len(out.events) != 2 {
		t.Errorf("len(out.events) = %d, want 2", len(out.events))
	}
}

func TestValueSharingViaRefstr(t *testing.T) {
	shared := refstr.New("shared")
	clone := shared.Clone()
	if clone.RefCount() != 2 {
		t.Errorf("RefCount() = %d, want 2", clone.RefCount())
	}
	if clone.Get() != shared.Get() {
		t.Error("clone should share the same payload")
	}
}
