package loader

import (
	"github.com/wippyai/rolrun/internal/lerrors"
	"github.com/wippyai/rolrun/objects"
	"github.com/wippyai/rolrun/reflist"
)

// ResolveSubtype implements reflist.Env's callback for REF_SUBTYPE
// entries: name is looked up in parent's own template's NestedTypes
// table, and the resulting reference is evaluated with Self bound to
// parent (so a nested declaration can still refer back to its enclosing
// type) and Args bound to the newly supplied arguments (so the nested
// reference's own trailing argument slots see the caller's arguments,
// not the parent's).
func (l *Loader) ResolveSubtype(parent *objects.RuntimeType, name string, args [][]*objects.RuntimeType) (*objects.RuntimeType, error) {
	if parent == nil {
		return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "subtype %q requested with no parent type", name)
	}
	tmpl, err := l.registry.Type(parent.Args.Ref())
	if err != nil {
		return nil, err
	}
	idx, ok := tmpl.NestedTypes[name]
	if !ok {
		return nil, lerrors.NewLinkErr(lerrors.PhaseResolve, "type %s has no nested type %q", parent.Args.Ref(), name)
	}
	frame := &reflist.Frame{
		AssemblyName: parent.Args.Assembly,
		Types:        tmpl.Generic.Types,
		Names:        tmpl.Generic.Names,
		Args:         objects.LoadingArguments{Assembly: parent.Args.Assembly, Arguments: args},
		Self:         parent,
	}
	return reflist.EvalType(l, frame, idx)
}
