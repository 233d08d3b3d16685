package sessionize

import (
	"math/rand"
	"testing"
)

const thirtyMinUs = 1_800_000_000

func TestScenarioThirtyMinuteThreshold(t *testing.T) {
	// Events [0, 600_000_000, 2_000_000_000],
	// threshold 30min. Both consecutive gaps (600s, 1400s) are under 1800s,
	// so the walk yields a single session.
	var s State
	for _, ts := range []int64{0, 600_000_000, 2_000_000_000} {
		s.Update(ts, thirtyMinUs)
	}
	if got := s.Finalize(); got != 1 {
		t.Errorf("Finalize() = %d, want 1", got)
	}
}

func TestSingleEventYieldsOneSession(t *testing.T) {
	var s State
	s.Update(100, thirtyMinUs)
	if got := s.Finalize(); got != 1 {
		t.Errorf("Finalize() = %d, want 1", got)
	}
}

func TestEmptyStateYieldsZero(t *testing.T) {
	var s State
	if got := s.Finalize(); got != 0 {
		t.Errorf("Finalize() = %d, want 0", got)
	}
}

func TestGapExactlyAtThresholdIsNotABoundary(t *testing.T) {
	var s State
	s.Update(0, 1000)
	s.Update(1000, 1000) // gap == threshold, strict > required for a boundary
	if got := s.Finalize(); got != 1 {
		t.Errorf("Finalize() = %d, want 1 (gap==threshold is not a boundary)", got)
	}
}

func TestGapJustOverThresholdIsABoundary(t *testing.T) {
	var s State
	s.Update(0, 1000)
	s.Update(1001, 1000)
	if got := s.Finalize(); got != 2 {
		t.Errorf("Finalize() = %d, want 2", got)
	}
}

func TestCombineEmptyOnEitherSide(t *testing.T) {
	var populated, empty State
	populated.Update(5, 1000)

	out := Combine(populated, empty)
	if got := out.Finalize(); got != 1 {
		t.Errorf("Combine(populated, empty) Finalize() = %d, want 1", got)
	}

	out2 := Combine(empty, populated)
	if got := out2.Finalize(); got != 1 {
		t.Errorf("Combine(empty, populated) Finalize() = %d, want 1", got)
	}
}

func TestCombineEmptyAdoptsOtherCurrentRowNull(t *testing.T) {
	var empty, other State
	other.Update(5, 1000)
	other.MarkNullRow()

	out := Combine(empty, other)
	if !out.CurrentRowNull() {
		t.Error("combine(empty, other) should adopt other.currentRowNull")
	}
}

func TestCombineNonEmptyAdoptsThresholdFromSelf(t *testing.T) {
	var self, other State
	self.Update(0, 1000)
	other.Update(2000, 500) // different threshold, should not matter here

	out := Combine(self, other)
	// cross-boundary uses self.thresholdUs: gap is 2000, self's threshold is 1000.
	if out.Finalize() != 2 {
		t.Errorf("Finalize() = %d, want 2 (cross-boundary gap 2000 > threshold 1000)", out.Finalize())
	}
}

func TestCombineCrossBoundaryStrictGreaterThan(t *testing.T) {
	var self, other State
	self.Update(0, 1000)
	other.Update(1000, 1000) // gap exactly at threshold: no boundary

	out := Combine(self, other)
	if out.Finalize() != 1 {
		t.Errorf("Finalize() = %d, want 1", out.Finalize())
	}
}

func TestCombineAssociativeRandomTreeShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const n = 40
	const threshold = 500

	timestamps := make([]int64, n)
	var ts int64
	for i := range timestamps {
		ts += int64(rng.Intn(2000))
		timestamps[i] = ts
	}

	leaves := make([]State, n)
	for i, t := range timestamps {
		var s State
		s.Update(t, threshold)
		leaves[i] = s
	}

	leftFold := foldLeft(leaves)
	rightFold := foldRight(leaves)
	balanced := foldBalanced(leaves)

	if leftFold.Finalize() != rightFold.Finalize() {
		t.Errorf("left-fold %d != right-fold %d", leftFold.Finalize(), rightFold.Finalize())
	}
	if leftFold.Finalize() != balanced.Finalize() {
		t.Errorf("left-fold %d != balanced-fold %d", leftFold.Finalize(), balanced.Finalize())
	}
}

func foldLeft(leaves []State) State {
	acc := leaves[0]
	for _, l := range leaves[1:] {
		acc = Combine(acc, l)
	}
	return acc
}

func foldRight(leaves []State) State {
	acc := leaves[len(leaves)-1]
	for i := len(leaves) - 2; i >= 0; i-- {
		acc = Combine(leaves[i], acc)
	}
	return acc
}

func foldBalanced(leaves []State) State {
	if len(leaves) == 1 {
		return leaves[0]
	}
	mid := len(leaves) / 2
	left := foldBalanced(leaves[:mid])
	right := foldBalanced(leaves[mid:])
	return Combine(left, right)
}
