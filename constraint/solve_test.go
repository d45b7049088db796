package constraint

import (
	"testing"

	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/objects"
)

// stubEnv satisfies reflist.Env without touching a real registry; these
// tests only exercise ARGUMENT/SELF/CLONE/TRY/ANY expressions, which
// never call back into it.
type stubEnv struct{}

func (stubEnv) Registry() *assembly.Registry { return nil }
func (stubEnv) InstantiateType(objects.LoadingArguments) (*objects.RuntimeType, error) {
	return nil, nil
}
func (stubEnv) InstantiateFunction(objects.LoadingArguments) (*objects.RuntimeFunction, error) {
	return nil, nil
}
func (stubEnv) ResolveSubtype(*objects.RuntimeType, string, [][]*objects.RuntimeType) (*objects.RuntimeType, error) {
	return nil, nil
}

func TestSolveExistConstraintPasses(t *testing.T) {
	t0 := &objects.RuntimeType{TypeID: 1}
	decl := &assembly.GenericDeclaration{
		Constraints: []assembly.GenericConstraint{
			{
				Kind:           assembly.ConstraintExist,
				TypeReferences: assembly.RefList{{Kind: assembly.RefArgument, Index: 0}},
				Target:         0,
			},
		},
	}
	args := objects.LoadingArguments{Arguments: [][]*objects.RuntimeType{{t0}}}
	if _, err := Solve(stubEnv{}, "A", decl, args, nil); err != nil {
		t.Fatalf("expected constraint to be satisfied, got %v", err)
	}
}

func TestSolveSameConstraintFailsOnMismatch(t *testing.T) {
	t0 := &objects.RuntimeType{TypeID: 1}
	t1 := &objects.RuntimeType{TypeID: 2}
	decl := &assembly.GenericDeclaration{
		Constraints: []assembly.GenericConstraint{
			{
				Kind: assembly.ConstraintSame,
				TypeReferences: assembly.RefList{
					{Kind: assembly.RefArgument, Index: 0}, // 0: target
					{Kind: assembly.RefArgument, Index: 1}, // 1: argument
				},
				Target:    0,
				Arguments: []int{1},
			},
		},
	}
	args := objects.LoadingArguments{Arguments: [][]*objects.RuntimeType{{t0, t1}}}
	if _, err := Solve(stubEnv{}, "A", decl, args, nil); err == nil {
		t.Fatal("expected SAME constraint over distinct types to fail")
	}
}

// TestSolveTryBacktracksToMatchingAlternative builds a SAME constraint
// whose second operand is a TRY node offering a mismatching alternative
// first: solving must backtrack past it to the alternative that satisfies
// the constraint.
func TestSolveTryBacktracksToMatchingAlternative(t *testing.T) {
	t0 := &objects.RuntimeType{TypeID: 1}
	t1 := &objects.RuntimeType{TypeID: 2}

	refs := assembly.RefList{
		{Kind: assembly.RefArgument, Index: 0},      // 0: target = T0
		{Kind: assembly.RefTry},                     // 1: try
		{Kind: assembly.RefClone, Index: 6},          // 2: alt 0 -> idx6 (T1, mismatch)
		{Kind: assembly.RefClone, Index: 7},          // 3: alt 1 -> idx7 (T0, match)
		{Kind: assembly.RefListEnd},                  // 4: terminates alt list
		{Kind: assembly.RefEmpty},                    // 5: padding
		{Kind: assembly.RefArgument, Index: 1},       // 6: T1
		{Kind: assembly.RefArgument, Index: 0},       // 7: T0
	}
	decl := &assembly.GenericDeclaration{
		Constraints: []assembly.GenericConstraint{
			{
				Kind:           assembly.ConstraintSame,
				TypeReferences: refs,
				Target:         0,
				Arguments:      []int{1},
			},
		},
	}
	args := objects.LoadingArguments{Arguments: [][]*objects.RuntimeType{{t0, t1}}}
	if _, err := Solve(stubEnv{}, "A", decl, args, nil); err != nil {
		t.Fatalf("expected backtracking to find the matching alternative, got %v", err)
	}
}

func TestSolveAnyIsAlwaysCompatible(t *testing.T) {
	t0 := &objects.RuntimeType{TypeID: 1}
	refs := assembly.RefList{
		{Kind: assembly.RefArgument, Index: 0}, // 0: target
		{Kind: assembly.RefAny},                // 1: wildcard argument
	}
	decl := &assembly.GenericDeclaration{
		Constraints: []assembly.GenericConstraint{
			{Kind: assembly.ConstraintSame, TypeReferences: refs, Target: 0, Arguments: []int{1}},
		},
	}
	args := objects.LoadingArguments{Arguments: [][]*objects.RuntimeType{{t0}}}
	if _, err := Solve(stubEnv{}, "A", decl, args, nil); err != nil {
		t.Fatalf("ANY should be compatible with any concrete type, got %v", err)
	}
}
