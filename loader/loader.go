// Package loader drives the instantiation pipeline: turning a template
// reference plus concrete generic arguments into a published RuntimeType
// or RuntimeFunction, solving the declaration's constraints and laying
// out its fields along the way.
package loader

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/internal/lerrors"
	"github.com/wippyai/rolrun/loader/internal/codecache"
	"github.com/wippyai/rolrun/objects"
)

// Options configures a Loader at construction; nothing here changes once
// New returns.
type Options struct {
	// PtrSize is the pointer width, in bytes, used to size and align
	// reference-typed fields. Defaults to 8 when zero.
	PtrSize int

	// Logger receives structured diagnostics for each phase of the
	// pipeline. Defaults to the package logger (a no-op unless SetLogger
	// was called).
	Logger *zap.Logger

	// OnTypeLoaded and OnFunctionLoaded, when set, are invoked once a
	// RuntimeType/RuntimeFunction has been fully published, before it is
	// returned to the original caller. They must not call back into the
	// same Loader: the process-wide lock is held while they run.
	OnTypeLoaded     func(*objects.RuntimeType)
	OnFunctionLoaded func(*objects.RuntimeFunction)
}

func (o Options) ptrSize() int {
	if o.PtrSize <= 0 {
		return 8
	}
	return o.PtrSize
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return Logger()
}

// Loader owns one process's worth of loaded state: the immutable template
// registry, and the mutable caches of everything instantiated from it.
// All public methods take a single process-wide lock, matching the
// concurrency model of the templates it loads from: instantiation may be
// expensive, but is never so hot a path that per-type locking pays for
// its own complexity.
type Loader struct {
	registry *assembly.Registry
	opts     Options
	wellKnown assembly.WellKnown
	codeCache *codecache.Cache

	mu        sync.Mutex
	types     map[string]*objects.RuntimeType
	typesByID map[uint32]*objects.RuntimeType
	funcs     map[string]*objects.RuntimeFunction
	funcsByID map[uint32]*objects.RuntimeFunction

	// loadingTypes and loadingFuncs hold every object touched by the
	// request currently in flight: visible to a recursive self-reference
	// or to a sibling field/argument that names the same instantiation,
	// but never to GetTypeById/GetFunctionById or a fresh GetType/
	// GetFunction call from outside the request. A nil *objects.RuntimeType
	// value marks a value-typed instantiation in progress with no stub at
	// all, so a self-reference into it is reported as circular rather
	// than handed a half-built object. They are drained into the loaded
	// tables (on success) or discarded whole (on failure) only once the
	// outermost InstantiateType/InstantiateFunction call returns — see
	// enterLoad/exitLoad — so a request that fails partway through never
	// leaves any of its intermediate work reachable.
	loadingTypes map[string]*objects.RuntimeType
	loadingFuncs map[string]*objects.RuntimeFunction

	// reqMu serializes whole request trees: it is held from the outermost
	// InstantiateType/InstantiateFunction call until that call (and every
	// nested instantiation it triggers) has returned, so two independent
	// requests never interleave their loadingTypes/loadingFuncs entries.
	// depth counts nesting within the request currently holding it; the
	// floors record where the id counters stood at the request's start,
	// so a failed request can roll them back to exactly that point.
	reqMu              sync.Mutex
	depth              int
	typeIDFloor        uint32
	funcIDFloor        uint32

	nextTypeID uint32
	nextFuncID uint32
	native     map[string]*objects.RuntimeType
}

// enterLoad marks entry into one level of (possibly nested) instantiation
// work. Its bool result is true only for the outermost call of a request,
// which is the one responsible for acquiring reqMu and opening a fresh
// commit floor; nested calls reuse the enclosing request's floor and never
// touch reqMu themselves.
func (l *Loader) enterLoad() bool {
	l.mu.Lock()
	top := l.depth == 0
	l.depth++
	l.mu.Unlock()

	if top {
		l.reqMu.Lock()
		l.mu.Lock()
		l.typeIDFloor = l.nextTypeID
		l.funcIDFloor = l.nextFuncID
		l.mu.Unlock()
	}
	return top
}

// exitLoad unwinds one level of nesting entered via enterLoad. Only the
// outermost call (top == true) does anything observable: on success it
// drains loadingTypes/loadingFuncs into the loaded tables, and on failure
// it discards them and rewinds the id counters to the request's floor, so
// nothing the request touched — however deep the recursion went — survives
// a failure anywhere in the tree.
func (l *Loader) exitLoad(top, succeeded bool) {
	l.mu.Lock()
	l.depth--
	if !top {
		l.mu.Unlock()
		return
	}

	var loadedTypes []*objects.RuntimeType
	var loadedFuncs []*objects.RuntimeFunction
	if succeeded {
		for _, rt := range l.loadingTypes {
			if rt == nil {
				continue
			}
			l.types[argsKey(rt.Args)] = rt
			l.typesByID[rt.TypeID] = rt
			loadedTypes = append(loadedTypes, rt)
		}
		for _, rf := range l.loadingFuncs {
			l.funcs[argsKey(rf.Args)] = rf
			l.funcsByID[rf.FunctionID] = rf
			loadedFuncs = append(loadedFuncs, rf)
		}
	} else {
		l.nextTypeID = l.typeIDFloor
		l.nextFuncID = l.funcIDFloor
	}
	l.loadingTypes = make(map[string]*objects.RuntimeType)
	l.loadingFuncs = make(map[string]*objects.RuntimeFunction)
	l.mu.Unlock()

	for _, rt := range loadedTypes {
		if l.opts.OnTypeLoaded != nil {
			l.opts.OnTypeLoaded(rt)
		}
		l.opts.logger().Debug("type instantiated",
			zapAssembly(rt.Args.Assembly), zapID(rt.Args.ID), zapTypeID(rt.TypeID))
	}
	for _, rf := range loadedFuncs {
		if l.opts.OnFunctionLoaded != nil {
			l.opts.OnFunctionLoaded(rf)
		}
		l.opts.logger().Debug("function instantiated",
			zapAssembly(rf.Args.Assembly), zapID(rf.Args.ID), zapFunctionID(rf.FunctionID))
	}

	l.reqMu.Unlock()
}

// New builds a Loader over registry. Registry is never mutated afterward.
func New(registry *assembly.Registry, opts Options) (*Loader, error) {
	cc, err := codecache.New()
	if err != nil {
		return nil, lerrors.NewProgramErr(lerrors.PhaseWire, "code cache init: %v", err)
	}
	return &Loader{
		registry:     registry,
		opts:         opts,
		wellKnown:    registry.FindWellKnown(),
		codeCache:    cc,
		types:        make(map[string]*objects.RuntimeType),
		typesByID:    make(map[uint32]*objects.RuntimeType),
		funcs:        make(map[string]*objects.RuntimeFunction),
		funcsByID:    make(map[uint32]*objects.RuntimeFunction),
		loadingTypes: make(map[string]*objects.RuntimeType),
		loadingFuncs: make(map[string]*objects.RuntimeFunction),
		native:       make(map[string]*objects.RuntimeType),
	}, nil
}

// Registry implements reflist.Env.
func (l *Loader) Registry() *assembly.Registry { return l.registry }

// argsKey builds a stable, comparable map key for a LoadingArguments
// value. RuntimeType instances are canonicalized (equal requests always
// return the same pointer), so keying on pointer identity of the already-
// resolved argument types is sound.
func argsKey(a objects.LoadingArguments) string {
	var b []byte
	b = append(b, a.Assembly...)
	b = fmt.Appendf(b, "#%d", a.ID)
	for _, seg := range a.Arguments {
		b = append(b, '|')
		for _, t := range seg {
			b = fmt.Appendf(b, "%p,", t)
		}
	}
	return string(b)
}

// GetType is the public entry point for resolving a template reference
// plus flat generic arguments to a published RuntimeType. The request gets
// its own correlation id, logged alongside the top-level template
// reference on the request's debug line only; the per-object log lines
// of the nested instantiations it triggers do not carry that id.
func (l *Loader) GetType(ref assembly.TemplateRef, args []*objects.RuntimeType) (*objects.RuntimeType, error) {
	l.opts.logger().Debug("get type request", zapRequestID(), zapAssembly(ref.Assembly), zapID(ref.ID))
	return l.InstantiateType(objects.LoadingArguments{Assembly: ref.Assembly, ID: ref.ID, Arguments: [][]*objects.RuntimeType{args}})
}

// GetFunction is the public entry point for resolving a function template
// reference plus flat generic arguments.
func (l *Loader) GetFunction(ref assembly.TemplateRef, args []*objects.RuntimeType) (*objects.RuntimeFunction, error) {
	l.opts.logger().Debug("get function request", zapRequestID(), zapAssembly(ref.Assembly), zapID(ref.ID))
	return l.InstantiateFunction(objects.LoadingArguments{Assembly: ref.Assembly, ID: ref.ID, Arguments: [][]*objects.RuntimeType{args}})
}

// GetTypeById looks up a previously published RuntimeType by its stable
// numeric id.
func (l *Loader) GetTypeById(id uint32) (*objects.RuntimeType, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.typesByID[id]
	return t, ok
}

// GetFunctionById looks up a previously published RuntimeFunction by its
// stable numeric id.
func (l *Loader) GetFunctionById(id uint32) (*objects.RuntimeFunction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.funcsByID[id]
	return f, ok
}

// FindExportType, FindExportFunction and FindExportTrait resolve an
// import record against the underlying registry.
func (l *Loader) FindExportType(imp assembly.ImportRecord) (assembly.TemplateRef, error) {
	return l.registry.FindExportType(imp)
}
func (l *Loader) FindExportFunction(imp assembly.ImportRecord) (assembly.TemplateRef, error) {
	return l.registry.FindExportFunction(imp)
}
func (l *Loader) FindExportTrait(imp assembly.ImportRecord) (assembly.TemplateRef, error) {
	return l.registry.FindExportTrait(imp)
}

// FindExportConstant resolves a constant export to its literal value.
func (l *Loader) FindExportConstant(assemblyName, name string) (uint32, error) {
	return l.registry.FindExportConstant(assemblyName, name)
}

// LoadImportConstant implements codecache.ConstResolver, forwarding to the
// registry.
func (l *Loader) LoadImportConstant(a *assembly.Assembly, index int) (uint32, error) {
	return l.registry.LoadImportConstant(a, index)
}

// LoadPointerType instantiates Core.Pointer<inner>, the loader's
// well-known boxed-pointer template.
func (l *Loader) LoadPointerType(inner *objects.RuntimeType) (*objects.RuntimeType, error) {
	if !l.wellKnown.HasPointer {
		return nil, lerrors.NewLinkErr(lerrors.PhaseNative, "Core.Pointer is not defined by any loaded assembly")
	}
	return l.GetType(l.wellKnown.PointerType, []*objects.RuntimeType{inner})
}

// IsPointerType reports whether t is an instantiation of Core.Pointer.
func (l *Loader) IsPointerType(t *objects.RuntimeType) bool {
	return l.wellKnown.HasPointer && t != nil && t.Args.Assembly == l.wellKnown.PointerType.Assembly && t.Args.ID == l.wellKnown.PointerType.ID
}
