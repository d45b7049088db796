package assemblyfmt

import (
	"testing"

	"github.com/wippyai/rolrun/assembly"
)

func TestParseAndBuildSimpleType(t *testing.T) {
	doc, err := Parse(`
name = "Core"

[[types]]
gc_mode = "value"
base_type = 0
fields = [1]

[types.generic]
names = []

[[types.generic.types]]
kind = "EMPTY"

[[types.generic.types]]
kind = "ARGUMENT"
index = 0
`)
	if err != nil {
		t.Fatal(err)
	}
	a, err := doc.Build()
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "Core" {
		t.Fatalf("name = %q, want Core", a.Name)
	}
	if len(a.Types) != 1 {
		t.Fatalf("expected 1 type, got %d", len(a.Types))
	}
	tp := a.Types[0]
	if tp.GCMode != assembly.GCValue {
		t.Fatalf("gc_mode = %v, want GCValue", tp.GCMode)
	}
	if len(tp.Generic.Types) != 2 || tp.Generic.Types[0].Kind != assembly.RefEmpty || tp.Generic.Types[1].Kind != assembly.RefArgument {
		t.Fatalf("unexpected types reflist: %+v", tp.Generic.Types)
	}
	if len(tp.Fields) != 1 || tp.Fields[0] != 1 {
		t.Fatalf("unexpected fields: %v", tp.Fields)
	}
}

func TestParseAndBuildImportsExports(t *testing.T) {
	doc, err := Parse(`
name = "App"

[[import_types]]
assembly = "Core"
name = "Box"
arity = 1

[[export_types]]
name = "App.Widget"
internal_id = 0
`)
	if err != nil {
		t.Fatal(err)
	}
	a, err := doc.Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(a.ImportTypes) != 1 || a.ImportTypes[0].AssemblyName != "Core" || a.ImportTypes[0].ImportName != "Box" || a.ImportTypes[0].GenericParameters != 1 {
		t.Fatalf("unexpected import: %+v", a.ImportTypes)
	}
	if len(a.ExportTypes) != 1 || a.ExportTypes[0].ExportName != "App.Widget" || a.ExportTypes[0].InternalID != 0 {
		t.Fatalf("unexpected export: %+v", a.ExportTypes)
	}
}

func TestBuildRejectsUnknownGCMode(t *testing.T) {
	doc := &Doc{
		Name: "Bad",
		Types: []Type{
			{GCMode: "not-a-mode"},
		},
	}
	if _, err := doc.Build(); err == nil {
		t.Fatal("expected an error for an unrecognized gc_mode")
	}
}

func TestBuildDefaultsUnknownRefKindToEmpty(t *testing.T) {
	doc := &Doc{
		Name: "Weird",
		Types: []Type{
			{
				GCMode: "value",
				Generic: Generic{
					Types: []RefEntry{{Kind: "NOT_A_KIND"}},
				},
			},
		},
	}
	a, err := doc.Build()
	if err != nil {
		t.Fatal(err)
	}
	if a.Types[0].Generic.Types[0].Kind != assembly.RefEmpty {
		t.Fatalf("unrecognized kind should default to RefEmpty, got %v", a.Types[0].Generic.Types[0].Kind)
	}
}
