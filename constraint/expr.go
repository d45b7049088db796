package constraint

import (
	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/internal/lerrors"
	"github.com/wippyai/rolrun/objects"
	"github.com/wippyai/rolrun/reflist"
)

// evalExpr evaluates one node of a constraint's private TypeReferences
// list. Most entries are ordinary type expressions delegated to reflist;
// REF_ANY and REF_TRY are meaningful only here, so they are intercepted
// before delegation.
func evalExpr(env reflist.Env, assemblyName string, c *assembly.GenericConstraint, outerArgs objects.LoadingArguments, outerSelf *objects.RuntimeType, root *Root, index int) (Value, error) {
	if index < 0 || index >= len(c.TypeReferences) {
		return Value{}, lerrors.NewProgramErr(lerrors.PhaseConstraint, "constraint expression index %d out of range", index)
	}
	e := c.TypeReferences[index]
	switch e.Kind {
	case assembly.RefAny:
		return Any(), nil
	case assembly.RefTry:
		alts, err := gatherAlternatives(c.TypeReferences, index)
		if err != nil {
			return Value{}, err
		}
		choice, ok := root.Choose(len(alts))
		if !ok {
			return Fail(), nil
		}
		return evalExpr(env, assemblyName, c, outerArgs, outerSelf, root, alts[choice])
	default:
		frame := &reflist.Frame{
			AssemblyName: assemblyName,
			Types:        c.TypeReferences,
			Names:        c.Names,
			Args:         outerArgs,
			Self:         outerSelf,
		}
		t, err := reflist.EvalType(env, frame, index)
		if err != nil {
			return Value{}, err
		}
		return RT(t), nil
	}
}

// gatherAlternatives collects the branch indices following a REF_TRY
// entry, terminated by REF_LISTEND or REF_EMPTY. Each branch must be a
// REF_CLONE indirection to a self-contained expression elsewhere in the
// list (any other kind is a program error), so that a branch needing its
// own trailing argument slots (an ASSEMBLY or IMPORT entry) never collides
// with the next branch.
func gatherAlternatives(list assembly.RefList, tryIndex int) ([]int, error) {
	var out []int
	for i := tryIndex + 1; i < len(list); i++ {
		switch list[i].Kind {
		case assembly.RefListEnd, assembly.RefEmpty:
			return out, nil
		case assembly.RefClone:
			out = append(out, i)
		default:
			return nil, lerrors.NewProgramErr(lerrors.PhaseConstraint, "TRY at %d: alternative %d is %s, not CLONE", tryIndex, i, list[i].Kind)
		}
	}
	return nil, lerrors.NewProgramErr(lerrors.PhaseConstraint, "TRY at %d missing terminator", tryIndex)
}
