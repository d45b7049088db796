// Package reflist evaluates the RefList expressions embedded in assembly
// templates: chains of CLONE indirection terminating in an ASSEMBLY/IMPORT
// instantiation request, an ARGUMENT/SELF/SUBTYPE reference, or an EMPTY
// sentinel. It never touches the instantiation queues itself; recursive
// instantiation is delegated back to the caller through the Env interface,
// keeping this package free of any dependency on the pipeline that drives
// it.
package reflist

import (
	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/internal/lerrors"
	"github.com/wippyai/rolrun/objects"
)

// Env is the callback surface the interpreter needs from whatever owns the
// instantiation queues. Implementations may instantiate synchronously or
// hand back a placeholder for a not-yet-published cyclic type; either way
// the returned pointer is stable for the lifetime of the process.
type Env interface {
	Registry() *assembly.Registry
	InstantiateType(objects.LoadingArguments) (*objects.RuntimeType, error)
	InstantiateFunction(objects.LoadingArguments) (*objects.RuntimeFunction, error)
	ResolveSubtype(parent *objects.RuntimeType, name string, args [][]*objects.RuntimeType) (*objects.RuntimeType, error)
}

// Frame bundles the RefLists and evaluation context an entry is resolved
// against: which assembly declared it, the generic arguments and Self type
// bound at the call site, and the names table the declaration shares
// across its Types/Functions/Fields lists.
type Frame struct {
	AssemblyName string
	Types        assembly.RefList
	Functions    assembly.RefList
	Names        []string

	Args objects.LoadingArguments
	Self *objects.RuntimeType

	// Exports, when non-nil, resolves REF_CONSTRAINT entries to the type
	// a constraint export bound during constraint solving. It is nil for
	// RefLists evaluated outside a constraint-satisfied context.
	Exports ConstraintExports
}

// ConstraintExports looks up a constraint's exported bindings by their
// "exportname/leafname" key: a satisfied TRAIT_ASSEMBLY/TRAIT_IMPORT
// constraint exports both the fields and the functions it matched on the
// target type.
type ConstraintExports interface {
	LookupType(name string) (*objects.RuntimeType, bool)
	LookupFunction(name string) (*objects.RuntimeFunction, bool)
}

const maxCloneChain = 256

// EvalType resolves the type expression at Types[index] to a RuntimeType,
// following CLONE indirection and dispatching on the terminal entry kind.
// A RefEmpty terminal yields (nil, nil): "no type" is a valid answer for
// base-type and finalizer/initializer slots.
func EvalType(env Env, f *Frame, index int) (*objects.RuntimeType, error) {
	entry, err := followClones(f.Types, index)
	if err != nil {
		return nil, err
	}
	switch entry.kind {
	case assembly.RefEmpty:
		return nil, nil
	case assembly.RefAssembly:
		args, err := gatherArgs(env, f, f.Types, entry.index)
		if err != nil {
			return nil, err
		}
		return env.InstantiateType(objects.LoadingArguments{Assembly: f.AssemblyName, ID: entry.entry.Index, Arguments: args})
	case assembly.RefImport:
		a, err := env.Registry().MustAssembly(f.AssemblyName)
		if err != nil {
			return nil, err
		}
		if entry.entry.Index < 0 || entry.entry.Index >= len(a.ImportTypes) {
			return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "invalid type import reference %d in %q", entry.entry.Index, f.AssemblyName)
		}
		target, err := env.Registry().FindExportType(a.ImportTypes[entry.entry.Index])
		if err != nil {
			return nil, err
		}
		args, err := gatherArgs(env, f, f.Types, entry.index)
		if err != nil {
			return nil, err
		}
		return env.InstantiateType(objects.LoadingArguments{Assembly: target.Assembly, ID: target.ID, Arguments: args})
	case assembly.RefArgument:
		flat := f.Args.FlatArguments()
		if entry.entry.Index < 0 || entry.entry.Index >= len(flat) {
			return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "argument index %d out of range (have %d)", entry.entry.Index, len(flat))
		}
		return flat[entry.entry.Index], nil
	case assembly.RefSelf:
		if f.Self == nil {
			return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "SELF referenced outside a bound context")
		}
		return f.Self, nil
	case assembly.RefSubtype:
		return evalSubtype(env, f, entry)
	case assembly.RefConstraint:
		if f.Exports == nil {
			return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "CONSTRAINT referenced outside a constraint-satisfied context")
		}
		if entry.entry.Index < 0 || entry.entry.Index >= len(f.Names) {
			return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "invalid constraint export name index %d", entry.entry.Index)
		}
		t, ok := f.Exports.LookupType(f.Names[entry.entry.Index])
		if !ok {
			return nil, lerrors.NewLinkErr(lerrors.PhaseConstraint, "constraint export %q not bound", f.Names[entry.entry.Index])
		}
		return t, nil
	default:
		return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "%s is not a valid type-list terminal", entry.entry.Kind)
	}
}

// EvalFunction resolves the function expression at Functions[index]. Its
// argument slots hold REF_CLONETYPE entries naming positions in the
// companion Types list rather than nested function expressions: a
// function's own generic arguments are always types.
func EvalFunction(env Env, f *Frame, index int) (*objects.RuntimeFunction, error) {
	entry, err := followClones(f.Functions, index)
	if err != nil {
		return nil, err
	}
	switch entry.kind {
	case assembly.RefEmpty:
		return nil, nil
	case assembly.RefAssembly:
		args, err := gatherCloneTypeArgs(env, f, entry.index)
		if err != nil {
			return nil, err
		}
		return env.InstantiateFunction(objects.LoadingArguments{Assembly: f.AssemblyName, ID: entry.entry.Index, Arguments: args})
	case assembly.RefImport:
		a, err := env.Registry().MustAssembly(f.AssemblyName)
		if err != nil {
			return nil, err
		}
		if entry.entry.Index < 0 || entry.entry.Index >= len(a.ImportFunctions) {
			return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "invalid function import reference %d in %q", entry.entry.Index, f.AssemblyName)
		}
		target, err := env.Registry().FindExportFunction(a.ImportFunctions[entry.entry.Index])
		if err != nil {
			return nil, err
		}
		args, err := gatherCloneTypeArgs(env, f, entry.index)
		if err != nil {
			return nil, err
		}
		return env.InstantiateFunction(objects.LoadingArguments{Assembly: target.Assembly, ID: target.ID, Arguments: args})
	case assembly.RefConstraint:
		if f.Exports == nil {
			return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "CONSTRAINT referenced outside a constraint-satisfied context")
		}
		if entry.entry.Index < 0 || entry.entry.Index >= len(f.Names) {
			return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "invalid constraint export name index %d", entry.entry.Index)
		}
		fn, ok := f.Exports.LookupFunction(f.Names[entry.entry.Index])
		if !ok {
			return nil, lerrors.NewLinkErr(lerrors.PhaseConstraint, "constraint export %q not bound", f.Names[entry.entry.Index])
		}
		return fn, nil
	default:
		return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "%s is not a valid function-list terminal", entry.entry.Kind)
	}
}

func evalSubtype(env Env, f *Frame, at resolvedEntry) (*objects.RuntimeType, error) {
	if at.entry.Index < 0 || at.entry.Index >= len(f.Names) {
		return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "invalid subtype name index %d", at.entry.Index)
	}
	name := f.Names[at.entry.Index]
	if at.index+1 >= len(f.Types) {
		return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "SUBTYPE %q missing parent slot", name)
	}
	parent, err := EvalType(env, f, at.index+1)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "SUBTYPE %q has no parent type", name)
	}
	afterParent, err := skipEntry(f.Types, at.index+1)
	if err != nil {
		return nil, err
	}
	args, err := gatherArgs(env, f, f.Types, afterParent-1)
	if err != nil {
		return nil, err
	}
	return env.ResolveSubtype(parent, name, args)
}

type resolvedEntry struct {
	entry assembly.RefEntry
	kind  assembly.RefKind
	index int
}

// followClones walks CLONE indirection starting at index until it lands on
// a non-CLONE entry, detecting cycles by bounding the chain length: nothing
// in a legitimate template needs more than a handful of indirections.
func followClones(list assembly.RefList, index int) (resolvedEntry, error) {
	for i := 0; i < maxCloneChain; i++ {
		if index < 0 || index >= len(list) {
			return resolvedEntry{}, lerrors.NewProgramErr(lerrors.PhaseResolve, "reflist index %d out of range (have %d)", index, len(list))
		}
		e := list[index]
		if e.Kind != assembly.RefClone {
			return resolvedEntry{entry: e, kind: e.Kind, index: index}, nil
		}
		index = e.Index
	}
	return resolvedEntry{}, lerrors.NewProgramErr(lerrors.PhaseResolve, "CLONE chain exceeds %d indirections", maxCloneChain)
}

// gatherArgs walks the argument slots following an ASSEMBLY/IMPORT/SUBTYPE
// entry at complexIndex, evaluating each as a nested type expression and
// splitting into segments on SEGMENT markers. Either LISTEND or EMPTY
// terminates the slot walk (matching the loader's use of EMPTY both as
// "no type" and, in this position, as an end-of-list marker).
//
// An argument slot may itself be a complex entry (ASSEMBLY/IMPORT/SUBTYPE)
// written inline rather than indirected through CLONE, in which case its
// own argument list occupies the slots immediately following it. skipEntry
// accounts for that nesting so those slots aren't re-walked as siblings of
// the outer list.
func gatherArgs(env Env, f *Frame, list assembly.RefList, complexIndex int) ([][]*objects.RuntimeType, error) {
	segments := [][]*objects.RuntimeType{{}}
	i := complexIndex + 1
	for i < len(list) {
		e := list[i]
		switch e.Kind {
		case assembly.RefListEnd:
			return segments, nil
		case assembly.RefEmpty:
			return segments, nil
		case assembly.RefSegment:
			segments = append(segments, []*objects.RuntimeType{})
			i++
			continue
		}
		frame := *f
		frame.Types = list
		t, err := EvalType(env, &frame, i)
		if err != nil {
			return nil, err
		}
		segments[len(segments)-1] = append(segments[len(segments)-1], t)
		next, err := skipEntry(list, i)
		if err != nil {
			return nil, err
		}
		i = next
	}
	return segments, nil
}

// skipEntry returns the index of the slot following the one at i, without
// evaluating anything. For a plain terminal it is i+1; for an inline
// ASSEMBLY/IMPORT/SUBTYPE entry it also skips past that entry's own nested
// argument list, since those slots belong to the nested expression rather
// than the caller's.
func skipEntry(list assembly.RefList, i int) (int, error) {
	if i < 0 || i >= len(list) {
		return 0, lerrors.NewProgramErr(lerrors.PhaseResolve, "reflist index %d out of range (have %d)", i, len(list))
	}
	switch list[i].Kind {
	case assembly.RefAssembly, assembly.RefImport:
		return skipArgs(list, i+1)
	case assembly.RefSubtype:
		afterParent, err := skipEntry(list, i+1)
		if err != nil {
			return 0, err
		}
		return skipArgs(list, afterParent)
	default:
		return i + 1, nil
	}
}

// skipArgs mirrors gatherArgs' own termination rules (LISTEND/EMPTY ends
// the walk, SEGMENT is a one-slot marker) to advance past an inline
// argument list without evaluating any of it.
func skipArgs(list assembly.RefList, i int) (int, error) {
	for i < len(list) {
		switch list[i].Kind {
		case assembly.RefListEnd, assembly.RefEmpty:
			return i + 1, nil
		case assembly.RefSegment:
			i++
			continue
		}
		next, err := skipEntry(list, i)
		if err != nil {
			return 0, err
		}
		i = next
	}
	return i, nil
}

// gatherCloneTypeArgs is gatherArgs' function-list counterpart: every slot
// must be a REF_CLONETYPE entry naming a position in the companion Types
// list, since a function's generic arguments are always resolved as types.
func gatherCloneTypeArgs(env Env, f *Frame, complexIndex int) ([][]*objects.RuntimeType, error) {
	segments := [][]*objects.RuntimeType{{}}
	i := complexIndex + 1
	for i < len(f.Functions) {
		e := f.Functions[i]
		switch e.Kind {
		case assembly.RefListEnd, assembly.RefEmpty:
			return segments, nil
		case assembly.RefSegment:
			segments = append(segments, []*objects.RuntimeType{})
			i++
			continue
		case assembly.RefCloneType:
			t, err := EvalType(env, f, e.Index)
			if err != nil {
				return nil, err
			}
			segments[len(segments)-1] = append(segments[len(segments)-1], t)
			i++
		default:
			return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "function argument slot must be CLONETYPE, got %s", e.Kind)
		}
	}
	return segments, nil
}

// EvalFieldType resolves the type of a field, given its index into a
// type's Fields declaration (itself an index into Generic.Types).
func EvalFieldType(env Env, f *Frame, fieldTypeIndex int) (*objects.RuntimeType, error) {
	t, err := EvalType(env, f, fieldTypeIndex)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, lerrors.NewProgramErr(lerrors.PhaseLayout, "field type at index %d resolved to no type", fieldTypeIndex)
	}
	return t, nil
}
