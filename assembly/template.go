package assembly

// GCMode is the storage/allocation strategy of a type template.
type GCMode byte

const (
	GCValue GCMode = iota
	GCReference
	GCGlobal
)

func (m GCMode) String() string {
	switch m {
	case GCValue:
		return "value"
	case GCReference:
		return "reference"
	case GCGlobal:
		return "global-storage"
	default:
		return "unknown"
	}
}

// NamedField binds a public field name to its ordinal in the type's field
// list.
type NamedField struct {
	Name       string
	FieldIndex int
}

// NamedFunction binds a public or virtual function name to its index in the
// generic declaration's Functions RefList.
type NamedFunction struct {
	Name          string
	FunctionIndex int
}

// Type is the immutable template for a type.
type Type struct {
	GCMode    GCMode
	Generic   GenericDeclaration
	BaseType  int // index into Generic.Types; RefEmpty entry means no base
	Interfaces []int // indices into Generic.Types

	// Fields lists, in declaration order, indices into Generic.Types that
	// resolve to each field's type.
	Fields []int

	PublicFields    []NamedField
	PublicFunctions []NamedFunction
	// VirtualFunctions is the type's virtual dispatch table, searched by
	// trait member resolution in addition to PublicFunctions.
	VirtualFunctions []NamedFunction

	// OnFinalize/OnInitialize index into Generic.Functions; a RefEmpty
	// entry there means the type has no finalizer/initializer.
	OnFinalize    int
	OnInitialize  int

	// NestedTypes supports the subtype resolver: name -> index
	// into Generic.Types naming the nested template's own reference (an
	// ASSEMBLY/IMPORT entry whose trailing argument slots are filled in by
	// the caller's own arguments).
	NestedTypes map[string]int
}

// ConstTableEntry describes one entry of a function's constant table
// consumed when a function is instantiated. A Length of zero marks the entry
// as an unresolved import: Offset then carries the import index into the
// owning assembly's ImportConstants table.
type ConstTableEntry struct {
	Offset int
	Length int
}

// LocalVar describes one local variable slot of a function.
type LocalVar struct {
	TypeRef int // index into Generic.Types
}

// FunctionCode is the byte-code blob shape a template carries, consumed
// (but not interpreted) by this loader.
type FunctionCode struct {
	Instructions  []byte
	ConstantData  []byte
	ConstantTable []ConstTableEntry
	Locals        []LocalVar
}

// Function is the immutable template for a function.
type Function struct {
	Generic     GenericDeclaration
	Parameters  []int // indices into Generic.Types
	ReturnValue int   // index into Generic.Types
	Code        FunctionCode
}

// TraitField is a Self-typed field a trait requires its target to expose.
type TraitField struct {
	Name string
	Type int // index into Generic.Types, evaluated with REF_SELF = target
}

// TraitFunction is a function signature a trait requires its target to
// expose.
type TraitFunction struct {
	Name           string
	ReturnType     int // index into Generic.Types
	ParameterTypes []int
}

// Trait is the immutable template for a trait.
type Trait struct {
	Generic   GenericDeclaration
	Fields    []TraitField
	Functions []TraitFunction
}
