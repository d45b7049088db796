package assembly

import (
	"fmt"

	"github.com/wippyai/rolrun/internal/lerrors"
)

// TemplateRef locates a template within a specific assembly: either a
// direct (assembly, id) pair or the result of following a re-export chain
// down to one.
type TemplateRef struct {
	Assembly string
	ID       int
}

// Registry owns the immutable set of assemblies loaded for a process. It
// performs no mutation after construction and requires no synchronization
// for reads.
type Registry struct {
	assemblies map[string]*Assembly
	order      []string
}

// NewRegistry builds a registry over the given assemblies. Assembly names
// must be unique.
func NewRegistry(assemblies []*Assembly) (*Registry, error) {
	r := &Registry{assemblies: make(map[string]*Assembly, len(assemblies))}
	for _, a := range assemblies {
		if _, dup := r.assemblies[a.Name]; dup {
			return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "duplicate assembly name %q", a.Name)
		}
		r.assemblies[a.Name] = a
		r.order = append(r.order, a.Name)
	}
	return r, nil
}

// Assembly returns the assembly with the given name.
func (r *Registry) Assembly(name string) (*Assembly, bool) {
	a, ok := r.assemblies[name]
	return a, ok
}

// AssemblyNames returns assembly names in registration order.
func (r *Registry) AssemblyNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// MustAssembly returns the assembly with the given name or a link error.
func (r *Registry) MustAssembly(name string) (*Assembly, error) {
	a, ok := r.Assembly(name)
	if !ok {
		return nil, lerrors.NewLinkErr(lerrors.PhaseResolve, "referenced assembly %q not found", name)
	}
	return a, nil
}

// Type returns the type template named by args, validating the id range.
func (r *Registry) Type(ref TemplateRef) (*Type, error) {
	a, err := r.MustAssembly(ref.Assembly)
	if err != nil {
		return nil, err
	}
	if ref.ID < 0 || ref.ID >= len(a.Types) {
		return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "invalid type reference %s#%d", ref.Assembly, ref.ID)
	}
	return &a.Types[ref.ID], nil
}

// Function returns the function template named by args.
func (r *Registry) Function(ref TemplateRef) (*Function, error) {
	a, err := r.MustAssembly(ref.Assembly)
	if err != nil {
		return nil, err
	}
	if ref.ID < 0 || ref.ID >= len(a.Functions) {
		return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "invalid function reference %s#%d", ref.Assembly, ref.ID)
	}
	return &a.Functions[ref.ID], nil
}

// Trait returns the trait template named by args.
func (r *Registry) Trait(ref TemplateRef) (*Trait, error) {
	a, err := r.MustAssembly(ref.Assembly)
	if err != nil {
		return nil, err
	}
	if ref.ID < 0 || ref.ID >= len(a.Traits) {
		return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "invalid trait reference %s#%d", ref.Assembly, ref.ID)
	}
	return &a.Traits[ref.ID], nil
}

// FindExportType resolves an import record to a concrete (assembly, id),
// transitively following re-exports.
func (r *Registry) FindExportType(imp ImportRecord) (TemplateRef, error) {
	return r.findExport(imp, func(a *Assembly) ([]ExportRecord, int) { return a.ExportTypes, len(a.Types) },
		func(a *Assembly) []ImportRecord { return a.ImportTypes },
		func(a *Assembly, id int) int { return a.Types[id].Generic.ParameterShape.ParameterCount() })
}

// FindExportFunction resolves an import record naming a function.
func (r *Registry) FindExportFunction(imp ImportRecord) (TemplateRef, error) {
	return r.findExport(imp, func(a *Assembly) ([]ExportRecord, int) { return a.ExportFunctions, len(a.Functions) },
		func(a *Assembly) []ImportRecord { return a.ImportFunctions },
		func(a *Assembly, id int) int { return a.Functions[id].Generic.ParameterShape.ParameterCount() })
}

// FindExportTrait resolves an import record naming a trait.
func (r *Registry) FindExportTrait(imp ImportRecord) (TemplateRef, error) {
	return r.findExport(imp, func(a *Assembly) ([]ExportRecord, int) { return a.ExportTraits, len(a.Traits) },
		func(a *Assembly) []ImportRecord { return a.ImportTraits },
		func(a *Assembly, id int) int { return a.Traits[id].Generic.ParameterShape.ParameterCount() })
}

func (r *Registry) findExport(
	imp ImportRecord,
	exportsOf func(*Assembly) ([]ExportRecord, int),
	importsOf func(*Assembly) []ImportRecord,
	arityOf func(*Assembly, int) int,
) (TemplateRef, error) {
	return r.findExportDepth(imp, exportsOf, importsOf, arityOf, 0)
}

const maxReExportDepth = 64

func (r *Registry) findExportDepth(
	imp ImportRecord,
	exportsOf func(*Assembly) ([]ExportRecord, int),
	importsOf func(*Assembly) []ImportRecord,
	arityOf func(*Assembly, int) int,
	depth int,
) (TemplateRef, error) {
	if depth > maxReExportDepth {
		return TemplateRef{}, lerrors.NewProgramErr(lerrors.PhaseResolve, "re-export chain too deep resolving %q", imp.ImportName)
	}
	a, err := r.MustAssembly(imp.AssemblyName)
	if err != nil {
		return TemplateRef{}, err
	}
	exports, tableLen := exportsOf(a)
	for _, e := range exports {
		if e.ExportName != imp.ImportName {
			continue
		}
		if e.InternalID >= tableLen {
			// Re-export: InternalId indexes past the template table into
			// this assembly's own Import* table.
			importIdx := e.InternalID - tableLen
			imports := importsOf(a)
			if importIdx < 0 || importIdx >= len(imports) {
				return TemplateRef{}, lerrors.NewLinkErr(lerrors.PhaseResolve, "re-export %q in %q has no backing import", imp.ImportName, a.Name)
			}
			ref, err := r.findExportDepth(imports[importIdx], exportsOf, importsOf, arityOf, depth+1)
			if err != nil || !imp.HasArityCheck() {
				return ref, err
			}
			target, _ := r.Assembly(ref.Assembly)
			if got := arityOf(target, ref.ID); got != imp.GenericParameters {
				return TemplateRef{}, lerrors.NewGenericErr(lerrors.PhaseResolve,
					"import %q expects %d generic parameters, export has %d",
					imp.ImportName, imp.GenericParameters, got)
			}
			return ref, nil
		}
		if imp.HasArityCheck() && arityOf(a, e.InternalID) != imp.GenericParameters {
			return TemplateRef{}, lerrors.NewGenericErr(lerrors.PhaseResolve,
				"import %q expects %d generic parameters, export has %d",
				imp.ImportName, imp.GenericParameters, arityOf(a, e.InternalID))
		}
		return TemplateRef{Assembly: a.Name, ID: e.InternalID}, nil
	}
	return TemplateRef{}, lerrors.NewLinkErr(lerrors.PhaseResolve, "export %q not found in assembly %q", imp.ImportName, a.Name)
}

// FindExportConstant resolves a constant export to its literal value.
func (r *Registry) FindExportConstant(assemblyName, name string) (uint32, error) {
	a, err := r.MustAssembly(assemblyName)
	if err != nil {
		return 0, err
	}
	for _, e := range a.ExportConstants {
		if e.ExportName == name {
			return e.Value, nil
		}
	}
	return 0, lerrors.NewLinkErr(lerrors.PhaseResolve, "constant export %q not found in %q", name, assemblyName)
}

// LoadImportConstant resolves the value of ImportConstants[index] in the
// given assembly.
func (r *Registry) LoadImportConstant(a *Assembly, index int) (uint32, error) {
	if index < 0 || index >= len(a.ImportConstants) {
		return 0, lerrors.NewProgramErr(lerrors.PhaseResolve, "invalid constant import reference %d", index)
	}
	info := a.ImportConstants[index]
	if info.GenericParameters > 0 {
		return 0, lerrors.NewProgramErr(lerrors.PhaseResolve, "constant import %q cannot be generic", info.ImportName)
	}
	return r.FindExportConstant(info.AssemblyName, info.ImportName)
}

// FindNativeID resolves a native-type export by name within an assembly.
func (r *Registry) FindNativeID(assemblyName, name string) (int, error) {
	a, err := r.MustAssembly(assemblyName)
	if err != nil {
		return 0, err
	}
	for _, e := range a.NativeTypes {
		if e.ExportName == name {
			return e.InternalID, nil
		}
	}
	return -1, lerrors.NewLinkErr(lerrors.PhaseNative, "native type %q not found in %q", name, assemblyName)
}

// WellKnown resolves the loader's two well-known Core templates. It never
// errors: absence is reported lazily, at first use.
type WellKnown struct {
	PointerType TemplateRef
	BoxType     TemplateRef
	HasPointer  bool
	HasBox      bool
}

// FindWellKnown scans the "Core" assembly, if present, for Core.Pointer and
// Core.Box, validating their shape.
func (r *Registry) FindWellKnown() WellKnown {
	var wk WellKnown
	a, ok := r.Assembly("Core")
	if !ok {
		return wk
	}
	for _, e := range a.ExportTypes {
		switch e.ExportName {
		case "Core.Pointer":
			if e.InternalID < len(a.Types) && isPointerShape(&a.Types[e.InternalID]) && !wk.HasPointer {
				wk.PointerType = TemplateRef{Assembly: "Core", ID: e.InternalID}
				wk.HasPointer = true
			}
		case "Core.Box":
			if e.InternalID < len(a.Types) && isBoxShape(&a.Types[e.InternalID]) && !wk.HasBox {
				wk.BoxType = TemplateRef{Assembly: "Core", ID: e.InternalID}
				wk.HasBox = true
			}
		}
	}
	return wk
}

func isPointerShape(t *Type) bool {
	return t.Generic.ParameterShape.ParameterCount() == 1 && t.GCMode == GCValue
}

func isBoxShape(t *Type) bool {
	return t.Generic.ParameterShape.ParameterCount() == 1 && t.GCMode == GCReference
}

// String is a debugging helper.
func (t TemplateRef) String() string { return fmt.Sprintf("%s#%d", t.Assembly, t.ID) }
