// Package objects holds the entities that flow through the instantiation
// pipeline: LoadingArguments (the request key), and the RuntimeType /
// RuntimeFunction / RuntimeFunctionCode objects the pipeline produces. It
// exists as its own package, with no dependency on the interpreter or the
// pipeline that build these values, so that both can depend on the shapes
// without an import cycle.
package objects

import "github.com/wippyai/rolrun/assembly"

// LoadingArguments is the value-typed key of an instantiation request: an
// (assembly, template id, generic arguments) triple. Arguments is
// segmented to support variadic-segmented generics.
type LoadingArguments struct {
	Assembly  string
	ID        int
	Arguments [][]*RuntimeType
}

// FlatArguments returns the arguments as a single flattened slice, for
// callers that don't care about segment boundaries (e.g. non-segmented
// generic declarations, which always have exactly one segment).
func (a LoadingArguments) FlatArguments() []*RuntimeType {
	if len(a.Arguments) == 0 {
		return nil
	}
	if len(a.Arguments) == 1 {
		return a.Arguments[0]
	}
	var out []*RuntimeType
	for _, seg := range a.Arguments {
		out = append(out, seg...)
	}
	return out
}

// SegmentSizes returns the length of each argument segment.
func (a LoadingArguments) SegmentSizes() []int {
	sizes := make([]int, len(a.Arguments))
	for i, seg := range a.Arguments {
		sizes[i] = len(seg)
	}
	return sizes
}

// Ref returns the (assembly, id) template reference this request targets.
func (a LoadingArguments) Ref() assembly.TemplateRef {
	return assembly.TemplateRef{Assembly: a.Assembly, ID: a.ID}
}

// Equal implements the structural equality LoadingArguments needs as a map
// key stand-in: the pipeline never instantiates the same
// (assembly, id, arguments) triple twice.
func (a LoadingArguments) Equal(b LoadingArguments) bool {
	if a.Assembly != b.Assembly || a.ID != b.ID {
		return false
	}
	if len(a.Arguments) != len(b.Arguments) {
		return false
	}
	for i := range a.Arguments {
		if len(a.Arguments[i]) != len(b.Arguments[i]) {
			return false
		}
		for j := range a.Arguments[i] {
			if a.Arguments[i][j] != b.Arguments[i][j] {
				return false
			}
		}
	}
	return true
}

// FieldInfo describes one laid-out field of a RuntimeType.
type FieldInfo struct {
	Type   *RuntimeType
	Offset int
	Length int
}

// RuntimeType is a materialized instantiation of a type template. It is
// created with a stable TypeId before its fields are known, to support
// cyclic reference-type graphs, and becomes safe to read in full only once
// published.
type RuntimeType struct {
	Args    LoadingArguments
	TypeID  uint32
	Storage assembly.GCMode

	Fields    []FieldInfo
	Size      int
	Alignment int

	// BaseType and Interfaces mirror the template's declared inheritance,
	// resolved to concrete instantiations. BaseType is nil for a root type.
	BaseType   *RuntimeType
	Interfaces []*RuntimeType

	// PublicFields, PublicFunctions and VirtualFunctions resolve the
	// template's named member tables against this instantiation's own
	// fields and functions, for use by trait member resolution.
	PublicFields     []assembly.NamedField
	PublicFunctions  []NamedFunctionBinding
	VirtualFunctions []NamedFunctionBinding

	Finalizer   *RuntimeFunction
	Initializer *RuntimeFunction

	// StaticPointer is non-nil only for GCGlobal types, once wired.
	StaticPointer []byte

	// PointerType is the canonical Core.Pointer<T> instantiation for this
	// type, set at most once and never cleared.
	PointerType *RuntimeType
}

// NamedFunctionBinding pairs a member name with the concrete function it
// resolved to for one instantiation.
type NamedFunctionBinding struct {
	Name     string
	Function *RuntimeFunction
}

// StorageSize returns the size a field of this type occupies: pointer size
// for reference types, the type's own Size for value/global types.
func (t *RuntimeType) StorageSize(ptrSize int) int {
	if t.Storage == assembly.GCReference {
		return ptrSize
	}
	return t.Size
}

// StorageAlignment returns the alignment a field of this type requires.
func (t *RuntimeType) StorageAlignment(ptrSize int) int {
	if t.Storage == assembly.GCReference {
		return ptrSize
	}
	return t.Alignment
}

// RuntimeFunctionCode is the byte-code blob of one RuntimeFunction
// instantiation. Each instantiation gets its own copy from the code
// cache; two instantiations of the same template do not share one.
type RuntimeFunctionCode struct {
	Assembly      string
	ID            int
	Instructions  []byte
	ConstantData  []byte
	ConstantTable []assembly.ConstTableEntry
	Locals        []assembly.LocalVar
}

// RuntimeFunction is a materialized instantiation of a function template.
type RuntimeFunction struct {
	Args       LoadingArguments
	FunctionID uint32

	Code *RuntimeFunctionCode

	ReferencedTypes    []*RuntimeType
	ReferencedFuncs    []*RuntimeFunction
	ReturnValue        *RuntimeType
	Parameters         []*RuntimeType
}
