package constraint

import (
	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/internal/lerrors"
	"github.com/wippyai/rolrun/objects"
	"github.com/wippyai/rolrun/reflist"
)

// maxSearchAttempts bounds the number of forward passes a single Solve
// call will try before giving up. A malformed declaration with an
// unbounded chain of TRY alternatives could otherwise search forever;
// legitimate declarations exhaust their (small) combination space long
// before this.
const maxSearchAttempts = 100000

// Solve decides whether args (already bound to decl's parameter shape)
// satisfies every constraint decl declares, evaluating constraint
// expressions in the context of assemblyName, args and self (self is the
// type being instantiated when decl belongs to a type, and nil when it
// belongs to a function). On success it returns the trait bindings the
// satisfied TRAIT_ASSEMBLY/TRAIT_IMPORT constraints exported.
func Solve(env reflist.Env, assemblyName string, decl *assembly.GenericDeclaration, args objects.LoadingArguments, self *objects.RuntimeType) (*Exports, error) {
	root := NewRoot()
	for attempt := 0; attempt < maxSearchAttempts; attempt++ {
		root.StartBacktrackPoint()
		exports := newExports()
		ok, err := trySatisfyAll(env, assemblyName, decl, args, self, root, exports)
		if err != nil {
			return nil, err
		}
		if ok {
			return exports, nil
		}
		if !root.DoBacktrack() {
			return nil, lerrors.NewGenericErr(lerrors.PhaseConstraint, "no generic argument binding satisfies the declared constraints")
		}
	}
	return nil, lerrors.NewProgramErr(lerrors.PhaseConstraint, "constraint search exceeded %d attempts", maxSearchAttempts)
}

func trySatisfyAll(env reflist.Env, assemblyName string, decl *assembly.GenericDeclaration, args objects.LoadingArguments, self *objects.RuntimeType, root *Root, exports *Exports) (bool, error) {
	for i := range decl.Constraints {
		c := &decl.Constraints[i]
		ok, err := trySatisfyOne(env, assemblyName, c, args, self, root, exports)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func trySatisfyOne(env reflist.Env, assemblyName string, c *assembly.GenericConstraint, args objects.LoadingArguments, self *objects.RuntimeType, root *Root, exports *Exports) (bool, error) {
	eval := func(idx int) (Value, error) {
		return evalExpr(env, assemblyName, c, args, self, root, idx)
	}

	switch c.Kind {
	case assembly.ConstraintExist:
		v, err := eval(c.Target)
		if err != nil {
			return false, err
		}
		return v.Kind == KindRT, nil

	case assembly.ConstraintSame:
		target, err := eval(c.Target)
		if err != nil {
			return false, err
		}
		for _, argIdx := range c.Arguments {
			v, err := eval(argIdx)
			if err != nil {
				return false, err
			}
			if TryDetermineEqualTypes(target, v) == -1 {
				return false, nil
			}
		}
		return true, nil

	case assembly.ConstraintBase:
		target, err := eval(c.Target)
		if err != nil {
			return false, err
		}
		if target.Kind != KindRT {
			return false, nil
		}
		for _, argIdx := range c.Arguments {
			want, err := eval(argIdx)
			if err != nil {
				return false, err
			}
			if !ancestorMatches(target.RT, want) {
				return false, nil
			}
		}
		return true, nil

	case assembly.ConstraintInterface:
		target, err := eval(c.Target)
		if err != nil {
			return false, err
		}
		if target.Kind != KindRT {
			return false, nil
		}
		for _, argIdx := range c.Arguments {
			want, err := eval(argIdx)
			if err != nil {
				return false, err
			}
			if !implementsInterface(target.RT, want) {
				return false, nil
			}
		}
		return true, nil

	case assembly.ConstraintTraitAssembly:
		target, err := eval(c.Target)
		if err != nil {
			return false, err
		}
		traitArgs, err := evalArgs(env, assemblyName, c, args, self, root, c.Arguments)
		if err != nil {
			return false, err
		}
		return satisfyTrait(env, root, c, assemblyName, c.Index, objects.LoadingArguments{Assembly: assemblyName, ID: c.Index, Arguments: traitArgs}, target.RT, exports)

	case assembly.ConstraintTraitImport:
		a, err := env.Registry().MustAssembly(assemblyName)
		if err != nil {
			return false, err
		}
		if c.Index < 0 || c.Index >= len(a.ImportTraits) {
			return false, lerrors.NewProgramErr(lerrors.PhaseConstraint, "invalid trait import reference %d in %q", c.Index, assemblyName)
		}
		ref, err := env.Registry().FindExportTrait(a.ImportTraits[c.Index])
		if err != nil {
			return false, err
		}
		target, err := eval(c.Target)
		if err != nil {
			return false, err
		}
		traitArgs, err := evalArgs(env, assemblyName, c, args, self, root, c.Arguments)
		if err != nil {
			return false, err
		}
		return satisfyTrait(env, root, c, ref.Assembly, ref.ID, objects.LoadingArguments{Assembly: ref.Assembly, ID: ref.ID, Arguments: traitArgs}, target.RT, exports)

	default:
		return false, lerrors.NewProgramErr(lerrors.PhaseConstraint, "unknown constraint kind %d", c.Kind)
	}
}

func evalArgs(env reflist.Env, assemblyName string, c *assembly.GenericConstraint, args objects.LoadingArguments, self *objects.RuntimeType, root *Root, indices []int) ([][]*objects.RuntimeType, error) {
	seg := make([]*objects.RuntimeType, len(indices))
	for i, idx := range indices {
		v, err := evalExpr(env, assemblyName, c, args, self, root, idx)
		if err != nil {
			return nil, err
		}
		if v.Kind == KindRT {
			seg[i] = v.RT
		}
	}
	return [][]*objects.RuntimeType{seg}, nil
}

func ancestorMatches(t *objects.RuntimeType, want Value) bool {
	for cur := t; cur != nil; cur = cur.BaseType {
		if TryDetermineEqualTypes(RT(cur), want) == 1 {
			return true
		}
	}
	return false
}

func implementsInterface(t *objects.RuntimeType, want Value) bool {
	for cur := t; cur != nil; cur = cur.BaseType {
		for _, iface := range cur.Interfaces {
			if TryDetermineEqualTypes(RT(iface), want) == 1 {
				return true
			}
		}
	}
	return false
}
