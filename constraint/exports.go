package constraint

import "github.com/wippyai/rolrun/objects"

// Exports collects the type and function bindings a satisfied constraint
// list exported, keyed "exportname/leafname". It implements
// reflist.ConstraintExports.
type Exports struct {
	types map[string]*objects.RuntimeType
	funcs map[string]*objects.RuntimeFunction
}

func newExports() *Exports {
	return &Exports{types: map[string]*objects.RuntimeType{}, funcs: map[string]*objects.RuntimeFunction{}}
}

func (e *Exports) LookupType(name string) (*objects.RuntimeType, bool) {
	t, ok := e.types[name]
	return t, ok
}

func (e *Exports) LookupFunction(name string) (*objects.RuntimeFunction, bool) {
	f, ok := e.funcs[name]
	return f, ok
}

func (e *Exports) bindType(exportName, leaf string, t *objects.RuntimeType) {
	e.types[exportName+"/"+leaf] = t
}

func (e *Exports) bindFunction(exportName, leaf string, f *objects.RuntimeFunction) {
	e.funcs[exportName+"/"+leaf] = f
}
