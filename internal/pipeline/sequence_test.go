package pipeline

import (
	"reflect"
	"testing"
)

func abstractionsNamed(names ...string) []Abstraction {
	out := make([]Abstraction, 0, len(names))
	for _, n := range names {
		out = append(out, Abstraction{Name: n})
	}
	return out
}

func sequenceNames(abstractions []Abstraction, relationships []Relationship) []string {
	seq := Sequence(abstractions, relationships)
	names := make([]string, 0, len(seq))
	for _, a := range seq {
		names = append(names, a.Name)
	}
	return names
}

func TestSequenceDependencyOrder(t *testing.T) {
	// B uses A, C uses B: teach A first, then B, then C.
	got := sequenceNames(abstractionsNamed("C", "A", "B"), []Relationship{
		{From: "B", To: "A", Label: "uses", Weight: 1},
		{From: "C", To: "B", Label: "uses", Weight: 1},
	})
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sequence = %v, want %v", got, want)
	}
}

func TestSequenceBreaksCycle(t *testing.T) {
	abstractions := abstractionsNamed("A", "B", "C")
	cycle := []Relationship{
		{From: "A", To: "B", Label: "uses", Weight: 2},
		{From: "B", To: "C", Label: "uses", Weight: 2},
		{From: "C", To: "A", Label: "uses", Weight: 1},
	}

	got := sequenceNames(abstractions, cycle)
	if len(got) != 3 {
		t.Fatalf("cycle sequence has %d elements: %v", len(got), got)
	}
	seen := map[string]bool{}
	for _, n := range got {
		if seen[n] {
			t.Fatalf("duplicate element %s in %v", n, got)
		}
		seen[n] = true
	}

	// Dropping the weight-1 edge C→A leaves A→B→C, so C is taught first.
	want := []string{"C", "B", "A"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sequence = %v, want %v", got, want)
	}
}

func TestSequenceDeterministic(t *testing.T) {
	abstractions := abstractionsNamed("Delta", "Alpha", "Charlie", "Bravo")
	relationships := []Relationship{
		{From: "Delta", To: "Alpha", Weight: 1},
		{From: "Charlie", To: "Alpha", Weight: 1},
	}
	first := sequenceNames(abstractions, relationships)
	for i := 0; i < 10; i++ {
		if got := sequenceNames(abstractions, relationships); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %v, first run produced %v", i, got, first)
		}
	}
	// No edges touch Bravo; ties resolve lexically.
	want := []string{"Alpha", "Bravo", "Charlie", "Delta"}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("sequence = %v, want %v", first, want)
	}
}

func TestSequenceNoRelationships(t *testing.T) {
	got := sequenceNames(abstractionsNamed("B", "A"), nil)
	want := []string{"A", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sequence = %v, want %v", got, want)
	}
}
