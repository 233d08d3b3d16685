package event

import (
	"math/rand"
	"testing"

	"github.com/coregx/behavioral/internal/refstr"
)

func TestEventCondition(t *testing.T) {
	e := Event{Conditions: 1<<0 | 1<<31}
	if !e.Condition(0) {
		t.Error("condition 0 should be set")
	}
	if !e.Condition(31) {
		t.Error("condition 31 should be set")
	}
	if e.Condition(32) {
		t.Error("condition 32 is out of range, must be false")
	}
	if e.Condition(-1) {
		t.Error("negative condition index must be false")
	}
}

func TestEventHasAnyCondition(t *testing.T) {
	if (Event{}).HasAnyCondition() {
		t.Error("zero conditions should report false")
	}
	if !(Event{Conditions: 4}).HasAnyCondition() {
		t.Error("nonzero conditions should report true")
	}
}

func TestSortEventsIdempotentAndPreservesMultiset(t *testing.T) {
	orig := []Event{{TimestampUs: 5}, {TimestampUs: 1}, {TimestampUs: 3}, {TimestampUs: 1}}
	events := append([]Event(nil), orig...)

	SortEvents(events)
	for i := 1; i < len(events); i++ {
		if events[i].TimestampUs < events[i-1].TimestampUs {
			t.Fatalf("not sorted at %d: %+v", i, events)
		}
	}

	sum := func(es []Event) int64 {
		var s int64
		for _, e := range es {
			s += e.TimestampUs
		}
		return s
	}
	if sum(events) != sum(orig) {
		t.Error("sort must preserve the multiset of timestamps")
	}

	again := append([]Event(nil), events...)
	SortEvents(again)
	for i := range again {
		if again[i] != events[i] {
			t.Error("sorting an already-sorted slice must be idempotent")
		}
	}
}

func TestSortEventsAlreadySortedFastPath(t *testing.T) {
	events := []Event{{TimestampUs: 1}, {TimestampUs: 2}, {TimestampUs: 3}}
	SortEvents(events)
	want := []int64{1, 2, 3}
	for i, w := range want {
		if events[i].TimestampUs != w {
			t.Errorf("index %d = %d, want %d", i, events[i].TimestampUs, w)
		}
	}
}

func TestSortEventsRandom(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		n := r.Intn(200)
		events := make([]Event, n)
		for i := range events {
			events[i] = Event{TimestampUs: int64(r.Intn(50))}
		}
		SortEvents(events)
		for i := 1; i < len(events); i++ {
			if events[i].TimestampUs < events[i-1].TimestampUs {
				t.Fatalf("trial %d: not sorted at %d", trial, i)
			}
		}
	}
}

func TestMergeSorted(t *testing.T) {
	a := []Event{{TimestampUs: 1}, {TimestampUs: 3}, {TimestampUs: 5}}
	b := []Event{{TimestampUs: 2}, {TimestampUs: 4}}
	merged := MergeSorted(a, b)
	want := []int64{1, 2, 3, 4, 5}
	if len(merged) != len(want) {
		t.Fatalf("len = %d, want %d", len(merged), len(want))
	}
	for i, w := range want {
		if merged[i].TimestampUs != w {
			t.Errorf("index %d = %d, want %d", i, merged[i].TimestampUs, w)
		}
	}
}

func TestMergeSortedEmptyInputs(t *testing.T) {
	a := []Event{{TimestampUs: 1}}
	if got := MergeSorted(a, nil); len(got) != 1 {
		t.Errorf("merging with empty should return the other side, got %v", got)
	}
	if got := MergeSorted(nil, a); len(got) != 1 {
		t.Errorf("merging with empty should return the other side, got %v", got)
	}
}

func TestNextNodeEventSharesValue(t *testing.T) {
	v := refstr.New("Checkout")
	e1 := NextNodeEvent{TimestampUs: 1, Value: v, Conditions: 1}
	e2 := e1
	e2.Value = e1.Value.Clone()

	if e1.Value.RefCount() != 2 {
		t.Errorf("cloning should bump shared refcount, got %d", e1.Value.RefCount())
	}
	if e2.Value.Get() != "Checkout" {
		t.Errorf("clone should see the same payload, got %q", e2.Value.Get())
	}
}

func TestSortNextNodeEvents(t *testing.T) {
	events := []NextNodeEvent{{TimestampUs: 3}, {TimestampUs: 1}, {TimestampUs: 2}}
	SortNextNodeEvents(events)
	want := []int64{1, 2, 3}
	for i, w := range want {
		if events[i].TimestampUs != w {
			t.Errorf("index %d = %d, want %d", i, events[i].TimestampUs, w)
		}
	}
}
