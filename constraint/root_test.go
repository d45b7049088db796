package constraint

import "testing"

func TestRootChooseReusesSelectionAcrossPasses(t *testing.T) {
	r := NewRoot()
	r.StartBacktrackPoint()
	choice, ok := r.Choose(3)
	if !ok || choice != 0 {
		t.Fatalf("first choice = (%d, %v), want (0, true)", choice, ok)
	}

	r.StartBacktrackPoint()
	choice, ok = r.Choose(3)
	if !ok || choice != 0 {
		t.Fatalf("selection should persist across a pass that didn't backtrack, got (%d, %v)", choice, ok)
	}
}

func TestRootBacktrackAdvancesThenExhausts(t *testing.T) {
	r := NewRoot()
	r.StartBacktrackPoint()
	r.Choose(2)

	if !r.DoBacktrack() {
		t.Fatal("expected a second combination to remain")
	}
	r.StartBacktrackPoint()
	choice, _ := r.Choose(2)
	if choice != 1 {
		t.Fatalf("after one backtrack, choice = %d, want 1", choice)
	}

	if r.DoBacktrack() {
		t.Fatal("expected the search space to be exhausted after trying both candidates")
	}
}

func TestRootBacktrackCarries(t *testing.T) {
	r := NewRoot()
	r.StartBacktrackPoint()
	r.Choose(1) // only one candidate: exhausted immediately on backtrack
	r.Choose(2)

	if !r.DoBacktrack() {
		t.Fatal("expected the second point to still have a candidate left")
	}
	r.StartBacktrackPoint()
	a, _ := r.Choose(1)
	b, _ := r.Choose(2)
	if a != 0 || b != 1 {
		t.Fatalf("got (%d, %d), want (0, 1)", a, b)
	}

	if r.DoBacktrack() {
		t.Fatal("expected both points exhausted: point 0 has only one candidate")
	}
}

func TestRootChooseZeroCandidatesFails(t *testing.T) {
	r := NewRoot()
	r.StartBacktrackPoint()
	if _, ok := r.Choose(0); ok {
		t.Fatal("Choose(0) should report no candidate")
	}
}
