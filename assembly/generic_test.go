package assembly

import "testing"

func TestArgShapeMatchesEmpty(t *testing.T) {
	var empty ArgShape
	if !empty.Matches([]int{0}) {
		t.Fatal("empty shape should match a single all-zero segment")
	}
	if empty.Matches([]int{1}) {
		t.Fatal("empty shape should not match a non-empty segment")
	}
}

func TestArgShapeMatchesFixed(t *testing.T) {
	s := Single(2)
	if !s.Matches([]int{2}) {
		t.Fatal("shape of size 2 should match sizes [2]")
	}
	if s.Matches([]int{3}) {
		t.Fatal("shape of size 2 should not match sizes [3]")
	}
	if s.Matches([]int{1, 1}) {
		t.Fatal("single-segment shape should not match a two-segment argument list")
	}
}

func TestArgShapeMatchesVariable(t *testing.T) {
	s := ArgShape{Segments: []ArgListSegment{{Size: 1}, {Size: 0, Variable: true}}}
	if !s.Matches([]int{1, 0}) {
		t.Fatal("variable segment should accept zero extra arguments")
	}
	if !s.Matches([]int{1, 5}) {
		t.Fatal("variable segment should accept more than its minimum")
	}
	if s.Matches([]int{0, 5}) {
		t.Fatal("fixed segment size mismatch should not match")
	}
}

func TestArgShapeParameterCount(t *testing.T) {
	s := ArgShape{Segments: []ArgListSegment{{Size: 2}, {Size: 3}}}
	if got := s.ParameterCount(); got != 5 {
		t.Fatalf("ParameterCount() = %d, want 5", got)
	}
}
