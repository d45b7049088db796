package loader

import (
	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/internal/lerrors"
	"github.com/wippyai/rolrun/objects"
	"github.com/wippyai/rolrun/reflist"
)

// AddNativeType registers a host-provided RuntimeType under the native
// name an assembly declared eligible for it (its NativeTypes table).
// Once registered, later references to that template id resolve directly
// to the supplied storage shape instead of running the (typically empty
// or placeholder) template body: this is how a runtime supplies its
// built-in primitive types — integers, strings, raw pointers — without
// expressing their layout in the loader's own template format.
//
// The referenced template is loaded and checked rather than trusted: it
// must take no generic parameters, be value-typed, and declare neither a
// finalizer nor an initializer, since a native type's storage is supplied
// entirely by the host and the loader can neither run its lifecycle hooks
// nor honor a reference/global storage class it did not lay out.
func (l *Loader) AddNativeType(assemblyName, nativeName string, size, alignment int) (*objects.RuntimeType, error) {
	internalID, err := l.registry.FindNativeID(assemblyName, nativeName)
	if err != nil {
		return nil, err
	}

	tmpl, err := l.registry.Type(assembly.TemplateRef{Assembly: assemblyName, ID: internalID})
	if err != nil {
		return nil, err
	}
	if !tmpl.Generic.ParameterShape.IsEmpty() {
		return nil, lerrors.NewProgramErr(lerrors.PhaseNative, "native type %q in %q has generic parameters", nativeName, assemblyName)
	}
	if tmpl.GCMode != assembly.GCValue {
		return nil, lerrors.NewProgramErr(lerrors.PhaseNative, "native type %q in %q must be value-typed", nativeName, assemblyName)
	}
	frame := &reflist.Frame{AssemblyName: assemblyName, Functions: tmpl.Generic.Functions, Names: tmpl.Generic.Names}
	if fin, err := reflist.EvalFunction(l, frame, tmpl.OnFinalize); err != nil {
		return nil, err
	} else if fin != nil {
		return nil, lerrors.NewProgramErr(lerrors.PhaseNative, "native type %q in %q must not declare a finalizer", nativeName, assemblyName)
	}
	if init, err := reflist.EvalFunction(l, frame, tmpl.OnInitialize); err != nil {
		return nil, err
	} else if init != nil {
		return nil, lerrors.NewProgramErr(lerrors.PhaseNative, "native type %q in %q must not declare an initializer", nativeName, assemblyName)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.native[assemblyName+"/"+nativeName]; ok {
		return existing, nil
	}

	if size < 1 {
		size = 1
	}
	if alignment < 1 {
		alignment = 1
	}

	rt := &objects.RuntimeType{
		Args:      objects.LoadingArguments{Assembly: assemblyName, ID: internalID, Arguments: [][]*objects.RuntimeType{{}}},
		Storage:   assembly.GCValue,
		Size:      size,
		Alignment: alignment,
	}

	key := argsKey(rt.Args)
	if _, dup := l.types[key]; dup {
		return nil, lerrors.NewProgramErr(lerrors.PhaseNative, "template %s#%d already instantiated before AddNativeType(%q)", assemblyName, internalID, nativeName)
	}

	l.nextTypeID++
	rt.TypeID = l.nextTypeID

	l.types[key] = rt
	l.typesByID[rt.TypeID] = rt
	l.native[assemblyName+"/"+nativeName] = rt

	return rt, nil
}
