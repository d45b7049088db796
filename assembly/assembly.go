package assembly

// ImportRecord names an entity imported from another assembly by export
// name, optionally pinning the expected generic arity. GenericParameters is
// -1 when the import does not constrain arity.
type ImportRecord struct {
	AssemblyName      string
	ImportName        string
	GenericParameters int
}

// HasArityCheck reports whether this import pins an expected generic arity.
func (r ImportRecord) HasArityCheck() bool { return r.GenericParameters >= 0 }

// ExportRecord names an entity this assembly makes available under
// ExportName. InternalId indexes either the assembly's own template table
// (when InternalId is within range) or, for re-exports, InternalId minus
// the table length indexes into the assembly's own Import* table.
type ExportRecord struct {
	ExportName string
	InternalID int
}

// ConstExportRecord exports a constant value directly by name.
type ConstExportRecord struct {
	ExportName string
	Value      uint32
}

// Assembly is an immutable bundle of templates plus import/export tables.
type Assembly struct {
	Name string

	Types     []Type
	Functions []Function
	Traits    []Trait

	ImportTypes     []ImportRecord
	ImportFunctions []ImportRecord
	ImportTraits    []ImportRecord
	ImportConstants []ImportRecord

	ExportTypes     []ExportRecord
	ExportFunctions []ExportRecord
	ExportTraits    []ExportRecord
	ExportConstants []ConstExportRecord

	// NativeTypes lists templates eligible for AddNativeType, keyed by
	// export name.
	NativeTypes []ExportRecord
}
