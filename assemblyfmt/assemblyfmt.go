// Package assemblyfmt is a human-authorable TOML notation for building
// assembly.Assembly fixtures in tests and the loaderctl CLI. It is not,
// and is not meant to resemble, the loader's real wire format: production
// assemblies are expected to arrive pre-parsed into assembly.Assembly by
// whatever front end targets this loader. This format exists purely so
// tests can write "a type with two fields and a base type" as text
// instead of constructing RefList slices by hand. It has no notation for
// generic constraints, public/virtual member tables, function byte code,
// or constant imports/exports; Build leaves those empty.
package assemblyfmt

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/internal/lerrors"
)

// RefEntry is the TOML spelling of an assembly.RefEntry.
type RefEntry struct {
	Kind  string `toml:"kind"`
	Index int    `toml:"index"`
	Force bool   `toml:"force"`
}

// Generic is the TOML spelling of an assembly.GenericDeclaration.
type Generic struct {
	ParamSizes []int      `toml:"param_sizes"`
	ParamVariable []bool  `toml:"param_variable"`
	Types      []RefEntry `toml:"types"`
	Functions  []RefEntry `toml:"functions"`
	Fields     []RefEntry `toml:"fields"`
	Names      []string   `toml:"names"`
}

// Import is the TOML spelling of an assembly.ImportRecord.
type Import struct {
	Assembly string `toml:"assembly"`
	Name     string `toml:"name"`
	Arity    int    `toml:"arity"` // -1 means unchecked
}

// Export is the TOML spelling of an assembly.ExportRecord.
type Export struct {
	Name       string `toml:"name"`
	InternalID int    `toml:"internal_id"`
}

// Type is the TOML spelling of an assembly.Type.
type Type struct {
	GCMode     string         `toml:"gc_mode"` // value | reference | global
	Generic    Generic        `toml:"generic"`
	BaseType   int            `toml:"base_type"`
	Interfaces []int          `toml:"interfaces"`
	Fields     []int          `toml:"fields"`
	OnFinalize int            `toml:"on_finalize"`
	OnInitialize int          `toml:"on_initialize"`
	NestedTypes map[string]int `toml:"nested_types"`
}

// Function is the TOML spelling of an assembly.Function.
type Function struct {
	Generic     Generic `toml:"generic"`
	Parameters  []int   `toml:"parameters"`
	ReturnValue int     `toml:"return_value"`
}

// Trait is the TOML spelling of an assembly.Trait.
type Trait struct {
	Generic   Generic          `toml:"generic"`
	Fields    []TraitField     `toml:"fields"`
	Functions []TraitFunction  `toml:"functions"`
}

type TraitField struct {
	Name string `toml:"name"`
	Type int    `toml:"type"`
}

type TraitFunction struct {
	Name           string `toml:"name"`
	ReturnType     int    `toml:"return_type"`
	ParameterTypes []int  `toml:"parameter_types"`
}

// Doc is the top-level document: one TOML file describes one assembly.
type Doc struct {
	Name string `toml:"name"`

	Types     []Type     `toml:"types"`
	Functions []Function `toml:"functions"`
	Traits    []Trait    `toml:"traits"`

	ImportTypes     []Import `toml:"import_types"`
	ImportFunctions []Import `toml:"import_functions"`
	ImportTraits    []Import `toml:"import_traits"`

	ExportTypes     []Export `toml:"export_types"`
	ExportFunctions []Export `toml:"export_functions"`
	ExportTraits    []Export `toml:"export_traits"`

	NativeTypes []Export `toml:"native_types"`
}

// Parse decodes a single assemblyfmt document from text.
func Parse(text string) (*Doc, error) {
	var doc Doc
	if _, err := toml.Decode(text, &doc); err != nil {
		return nil, lerrors.NewProgramErr(lerrors.PhaseResolve, "assemblyfmt: %v", err)
	}
	return &doc, nil
}

// ParseFile reads and decodes an assemblyfmt document from disk.
func ParseFile(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Build translates the document into an assembly.Assembly.
func (d *Doc) Build() (*assembly.Assembly, error) {
	a := &assembly.Assembly{Name: d.Name}

	for _, t := range d.Types {
		gc, err := gcMode(t.GCMode).build()
		if err != nil {
			return nil, err
		}
		a.Types = append(a.Types, assembly.Type{
			GCMode:       gc,
			Generic:      t.Generic.build(),
			BaseType:     t.BaseType,
			Interfaces:   t.Interfaces,
			Fields:       t.Fields,
			OnFinalize:   t.OnFinalize,
			OnInitialize: t.OnInitialize,
			NestedTypes:  t.NestedTypes,
		})
	}
	for _, f := range d.Functions {
		a.Functions = append(a.Functions, assembly.Function{
			Generic:     f.Generic.build(),
			Parameters:  f.Parameters,
			ReturnValue: f.ReturnValue,
		})
	}
	for _, t := range d.Traits {
		trait := assembly.Trait{Generic: t.Generic.build()}
		for _, tf := range t.Fields {
			trait.Fields = append(trait.Fields, assembly.TraitField{Name: tf.Name, Type: tf.Type})
		}
		for _, tfn := range t.Functions {
			trait.Functions = append(trait.Functions, assembly.TraitFunction{
				Name: tfn.Name, ReturnType: tfn.ReturnType, ParameterTypes: tfn.ParameterTypes,
			})
		}
		a.Traits = append(a.Traits, trait)
	}

	a.ImportTypes = buildImports(d.ImportTypes)
	a.ImportFunctions = buildImports(d.ImportFunctions)
	a.ImportTraits = buildImports(d.ImportTraits)

	a.ExportTypes = buildExports(d.ExportTypes)
	a.ExportFunctions = buildExports(d.ExportFunctions)
	a.ExportTraits = buildExports(d.ExportTraits)
	a.NativeTypes = buildExports(d.NativeTypes)

	return a, nil
}

func buildImports(in []Import) []assembly.ImportRecord {
	out := make([]assembly.ImportRecord, len(in))
	for i, imp := range in {
		out[i] = assembly.ImportRecord{AssemblyName: imp.Assembly, ImportName: imp.Name, GenericParameters: imp.Arity}
	}
	return out
}

func buildExports(in []Export) []assembly.ExportRecord {
	out := make([]assembly.ExportRecord, len(in))
	for i, e := range in {
		out[i] = assembly.ExportRecord{ExportName: e.Name, InternalID: e.InternalID}
	}
	return out
}

func (g Generic) build() assembly.GenericDeclaration {
	var shape assembly.ArgShape
	for i, size := range g.ParamSizes {
		variable := i < len(g.ParamVariable) && g.ParamVariable[i]
		shape.Segments = append(shape.Segments, assembly.ArgListSegment{Size: size, Variable: variable})
	}
	return assembly.GenericDeclaration{
		ParameterShape: shape,
		Types:          buildRefList(g.Types),
		Functions:      buildRefList(g.Functions),
		Fields:         buildRefList(g.Fields),
		Names:          g.Names,
	}
}

func buildRefList(in []RefEntry) assembly.RefList {
	out := make(assembly.RefList, len(in))
	for i, e := range in {
		out[i] = assembly.RefEntry{Kind: parseKind(e.Kind), Index: e.Index, ForceLoad: e.Force}
	}
	return out
}

func parseKind(s string) assembly.RefKind {
	switch s {
	case "EMPTY":
		return assembly.RefEmpty
	case "LISTEND":
		return assembly.RefListEnd
	case "SEGMENT":
		return assembly.RefSegment
	case "CLONE":
		return assembly.RefClone
	case "ASSEMBLY":
		return assembly.RefAssembly
	case "IMPORT":
		return assembly.RefImport
	case "CONSTRAINT":
		return assembly.RefConstraint
	case "ARGUMENT":
		return assembly.RefArgument
	case "SELF":
		return assembly.RefSelf
	case "SUBTYPE":
		return assembly.RefSubtype
	case "CLONETYPE":
		return assembly.RefCloneType
	case "FIELDID":
		return assembly.RefFieldID
	case "TRY":
		return assembly.RefTry
	case "ANY":
		return assembly.RefAny
	default:
		return assembly.RefEmpty
	}
}

type gcMode string

func (m gcMode) build() (assembly.GCMode, error) {
	switch m {
	case "", "value":
		return assembly.GCValue, nil
	case "reference":
		return assembly.GCReference, nil
	case "global":
		return assembly.GCGlobal, nil
	default:
		return 0, lerrors.NewProgramErr(lerrors.PhaseResolve, "assemblyfmt: unknown gc_mode %q", string(m))
	}
}
