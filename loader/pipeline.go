package loader

import (
	"unsafe"

	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/constraint"
	"github.com/wippyai/rolrun/internal/lerrors"
	"github.com/wippyai/rolrun/loader/internal/layout"
	"github.com/wippyai/rolrun/objects"
	"github.com/wippyai/rolrun/reflist"
)

// InstantiateType resolves args to a RuntimeType, implementing reflist.Env
// for recursive type expressions and constraint.Solve alike.
//
// Every instantiation this call triggers, however deeply nested, is staged
// in loadingTypes/loadingFuncs and becomes visible through l.types/
// l.typesByID (and hence through GetTypeById or a fresh GetType) only once
// the outermost call in the request returns successfully — see enterLoad/
// exitLoad. A field that instantiates cleanly but is followed by a field
// that fails leaves neither one reachable afterward.
//
// Reference and global-storage types publish a stub — a stable TypeId
// with no fields yet — into loadingTypes before recursing into their own
// field declarations, so a cyclic reference graph (a node type whose field
// refers back to itself) resolves to the same pointer instead of
// recursing forever. Value types cannot do this safely, since their size
// must be fully known before anything can hold one by value; a value type
// that recurses into its own instantiation is reported as a circular
// dependency instead. Both still reserve their TypeId up front, in the
// order their instantiation was first requested, matching the order the
// original loader's queue-driven pass would have assigned them.
func (l *Loader) InstantiateType(args objects.LoadingArguments) (*objects.RuntimeType, error) {
	key := argsKey(args)

	l.mu.Lock()
	if t, ok := l.types[key]; ok {
		l.mu.Unlock()
		return t, nil
	}
	if stub, loading := l.loadingTypes[key]; loading {
		l.mu.Unlock()
		if stub == nil {
			return nil, lerrors.NewCircularErr(lerrors.PhaseResolve, "type %s#%d recurses into its own instantiation before publication", args.Assembly, args.ID)
		}
		return stub, nil
	}
	l.loadingTypes[key] = nil
	l.mu.Unlock()

	top := l.enterLoad()
	succeeded := false
	defer func() { l.exitLoad(top, succeeded) }()

	tmpl, err := l.registry.Type(args.Ref())
	if err != nil {
		return nil, err
	}
	if !tmpl.Generic.ParameterShape.Matches(args.SegmentSizes()) {
		return nil, lerrors.NewGenericErr(lerrors.PhaseResolve, "type %s#%d expects a different generic argument shape", args.Assembly, args.ID)
	}

	rt := &objects.RuntimeType{Args: args, Storage: tmpl.GCMode}
	l.mu.Lock()
	l.nextTypeID++
	rt.TypeID = l.nextTypeID
	if tmpl.GCMode != assembly.GCValue {
		l.loadingTypes[key] = rt
	}
	l.mu.Unlock()

	exports, err := constraint.Solve(l, args.Assembly, &tmpl.Generic, args, rt)
	if err != nil {
		return nil, err
	}

	frame := &reflist.Frame{
		AssemblyName: args.Assembly,
		Types:        tmpl.Generic.Types,
		Functions:    tmpl.Generic.Functions,
		Names:        tmpl.Generic.Names,
		Args:         args,
		Self:         rt,
		Exports:      exports,
	}

	base, err := reflist.EvalType(l, frame, tmpl.BaseType)
	if err != nil {
		return nil, err
	}
	rt.BaseType = base

	rt.Interfaces = make([]*objects.RuntimeType, len(tmpl.Interfaces))
	for i, idx := range tmpl.Interfaces {
		rt.Interfaces[i], err = reflist.EvalType(l, frame, idx)
		if err != nil {
			return nil, err
		}
	}

	lb := layout.New()
	rt.Fields = make([]objects.FieldInfo, len(tmpl.Fields))
	for i, idx := range tmpl.Fields {
		ft, err := reflist.EvalFieldType(l, frame, idx)
		if err != nil {
			return nil, err
		}
		rt.Fields[i] = lb.Add(ft, l.opts.ptrSize())
	}
	_, rt.Size, rt.Alignment = lb.Finish()

	rt.Finalizer, err = reflist.EvalFunction(l, frame, tmpl.OnFinalize)
	if err != nil {
		return nil, err
	}
	rt.Initializer, err = reflist.EvalFunction(l, frame, tmpl.OnInitialize)
	if err != nil {
		return nil, err
	}
	if err := validateStorageBindings(tmpl, rt); err != nil {
		return nil, err
	}

	rt.PublicFields = append([]assembly.NamedField(nil), tmpl.PublicFields...)

	rt.PublicFunctions = make([]objects.NamedFunctionBinding, len(tmpl.PublicFunctions))
	for i, nf := range tmpl.PublicFunctions {
		fn, err := reflist.EvalFunction(l, frame, nf.FunctionIndex)
		if err != nil {
			return nil, err
		}
		rt.PublicFunctions[i] = objects.NamedFunctionBinding{Name: nf.Name, Function: fn}
	}
	rt.VirtualFunctions = make([]objects.NamedFunctionBinding, len(tmpl.VirtualFunctions))
	for i, nf := range tmpl.VirtualFunctions {
		fn, err := reflist.EvalFunction(l, frame, nf.FunctionIndex)
		if err != nil {
			return nil, err
		}
		rt.VirtualFunctions[i] = objects.NamedFunctionBinding{Name: nf.Name, Function: fn}
	}

	if tmpl.GCMode == assembly.GCGlobal {
		rt.StaticPointer = newAlignedStorage(rt.Size, rt.Alignment)
	}

	if err := l.bindPointerType(args, rt); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.loadingTypes[key] = rt
	l.mu.Unlock()
	succeeded = true

	return rt, nil
}

// validateStorageBindings enforces the finalizer/initializer invariants: an
// initializer only belongs on a global-storage type and takes nothing and
// returns nothing; a finalizer only belongs on a reference type and takes
// the owning type itself as its single parameter, returning nothing.
func validateStorageBindings(tmpl *assembly.Type, rt *objects.RuntimeType) error {
	if rt.Initializer != nil {
		if tmpl.GCMode != assembly.GCGlobal {
			return lerrors.NewProgramErr(lerrors.PhaseWire, "type %s#%d declares an initializer but is not global-storage", rt.Args.Assembly, rt.Args.ID)
		}
		if rt.Initializer.ReturnValue != nil || len(rt.Initializer.Parameters) != 0 {
			return lerrors.NewProgramErr(lerrors.PhaseWire, "type %s#%d initializer must take no parameters and return nothing", rt.Args.Assembly, rt.Args.ID)
		}
	}
	if rt.Finalizer != nil {
		if tmpl.GCMode != assembly.GCReference {
			return lerrors.NewProgramErr(lerrors.PhaseWire, "type %s#%d declares a finalizer but is not reference-typed", rt.Args.Assembly, rt.Args.ID)
		}
		if rt.Finalizer.ReturnValue != nil || len(rt.Finalizer.Parameters) != 1 || rt.Finalizer.Parameters[0] != rt {
			return lerrors.NewProgramErr(lerrors.PhaseWire, "type %s#%d finalizer must take the owning type as its only parameter and return nothing", rt.Args.Assembly, rt.Args.ID)
		}
	}
	return nil
}

// bindPointerType sets the element type's PointerType back-reference when
// args instantiates the well-known Core.Pointer template. The binding is
// monotonic: null becomes rt, an existing rt is a no-op, and an existing
// different value is a program error rather than being silently replaced.
func (l *Loader) bindPointerType(args objects.LoadingArguments, rt *objects.RuntimeType) error {
	if !l.wellKnown.HasPointer || args.Assembly != l.wellKnown.PointerType.Assembly || args.ID != l.wellKnown.PointerType.ID {
		return nil
	}
	elems := args.FlatArguments()
	if len(elems) != 1 || elems[0] == nil {
		return nil
	}
	elem := elems[0]

	l.mu.Lock()
	defer l.mu.Unlock()
	if elem.PointerType != nil && elem.PointerType != rt {
		return lerrors.NewProgramErr(lerrors.PhaseWire, "type %s#%d already has a different PointerType bound", elem.Args.Assembly, elem.Args.ID)
	}
	elem.PointerType = rt
	return nil
}

// newAlignedStorage allocates size+alignment bytes and returns the
// sub-slice starting at the first address inside it satisfying alignment,
// so a global's StaticPointer can back naturally-aligned native reads.
func newAlignedStorage(size, alignment int) []byte {
	if alignment <= 1 {
		return make([]byte, size)
	}
	buf := make([]byte, size+alignment)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	pad := (uintptr(alignment) - addr%uintptr(alignment)) % uintptr(alignment)
	return buf[pad : pad+uintptr(size)]
}

// InstantiateFunction resolves args to a RuntimeFunction. A stub is always
// staged in loadingFuncs before its body is resolved, since ordinary
// recursive functions are common and impose no sizing problem the way a
// self-referential value type would; like InstantiateType, it becomes
// visible through l.funcs/l.funcsByID only once the outermost call in the
// request returns successfully.
func (l *Loader) InstantiateFunction(args objects.LoadingArguments) (*objects.RuntimeFunction, error) {
	key := argsKey(args)

	l.mu.Lock()
	if f, ok := l.funcs[key]; ok {
		l.mu.Unlock()
		return f, nil
	}
	if stub, loading := l.loadingFuncs[key]; loading {
		l.mu.Unlock()
		return stub, nil
	}
	l.mu.Unlock()

	top := l.enterLoad()
	succeeded := false
	defer func() { l.exitLoad(top, succeeded) }()

	tmpl, err := l.registry.Function(args.Ref())
	if err != nil {
		return nil, err
	}
	if !tmpl.Generic.ParameterShape.Matches(args.SegmentSizes()) {
		return nil, lerrors.NewGenericErr(lerrors.PhaseResolve, "function %s#%d expects a different generic argument shape", args.Assembly, args.ID)
	}

	rf := &objects.RuntimeFunction{Args: args}
	l.mu.Lock()
	l.nextFuncID++
	rf.FunctionID = l.nextFuncID
	l.loadingFuncs[key] = rf
	l.mu.Unlock()

	exports, err := constraint.Solve(l, args.Assembly, &tmpl.Generic, args, nil)
	if err != nil {
		return nil, err
	}

	frame := &reflist.Frame{
		AssemblyName: args.Assembly,
		Types:        tmpl.Generic.Types,
		Functions:    tmpl.Generic.Functions,
		Names:        tmpl.Generic.Names,
		Args:         args,
		Exports:      exports,
	}

	rf.ReturnValue, err = reflist.EvalType(l, frame, tmpl.ReturnValue)
	if err != nil {
		return nil, err
	}
	rf.Parameters = make([]*objects.RuntimeType, len(tmpl.Parameters))
	for i, idx := range tmpl.Parameters {
		rf.Parameters[i], err = reflist.EvalType(l, frame, idx)
		if err != nil {
			return nil, err
		}
	}

	a, err := l.registry.MustAssembly(args.Assembly)
	if err != nil {
		return nil, err
	}
	rf.Code, err = l.codeCache.Clone(l, a, args.ID, tmpl.Code)
	if err != nil {
		return nil, err
	}

	succeeded = true
	return rf, nil
}
