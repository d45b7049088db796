package loader

import (
	"testing"

	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/objects"
)

// buildCoreRegistry wires three templates in one assembly: a fieldless
// value type A, a value type B holding two A fields, and a
// reference-storage generic Box<T> holding one field of its own argument.
func buildCoreRegistry(t *testing.T) *assembly.Registry {
	t.Helper()

	noFuncs := assembly.RefList{{Kind: assembly.RefEmpty}} // 0: no finalizer/initializer

	a := assembly.Type{
		GCMode: assembly.GCValue,
		Generic: assembly.GenericDeclaration{
			Types:     assembly.RefList{{Kind: assembly.RefEmpty}}, // 0: base = none
			Functions: noFuncs,
		},
		BaseType: 0,
	}

	b := assembly.Type{
		GCMode: assembly.GCValue,
		Generic: assembly.GenericDeclaration{
			Types: assembly.RefList{
				{Kind: assembly.RefEmpty},               // 0: base = none
				{Kind: assembly.RefAssembly, Index: 0},  // 1: A
				{Kind: assembly.RefListEnd},              // 2: A's (empty) argument list
			},
			Functions: noFuncs,
		},
		BaseType: 0,
		Fields:   []int{1, 1},
	}

	box := assembly.Type{
		GCMode: assembly.GCReference,
		Generic: assembly.GenericDeclaration{
			ParameterShape: assembly.Single(1),
			Types: assembly.RefList{
				{Kind: assembly.RefEmpty},              // 0: base = none
				{Kind: assembly.RefArgument, Index: 0}, // 1: field type = T
			},
			Functions: noFuncs,
		},
		BaseType: 0,
		Fields:   []int{1},
	}

	reg, err := assembly.NewRegistry([]*assembly.Assembly{{
		Name:  "Core",
		Types: []assembly.Type{a, b, box},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestGetTypeDedupsIdenticalRequests(t *testing.T) {
	l, err := New(buildCoreRegistry(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	ref := assembly.TemplateRef{Assembly: "Core", ID: 0}
	a1, err := l.GetType(ref, nil)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := l.GetType(ref, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a2 {
		t.Fatal("identical requests should return the same RuntimeType pointer")
	}
	if a1.Size != 1 || a1.Alignment != 1 {
		t.Fatalf("fieldless value type: size=%d alignment=%d, want 1,1", a1.Size, a1.Alignment)
	}
}

func TestGetTypeLaysOutFieldsInOrder(t *testing.T) {
	l, err := New(buildCoreRegistry(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	a, err := l.GetType(assembly.TemplateRef{Assembly: "Core", ID: 0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := l.GetType(assembly.TemplateRef{Assembly: "Core", ID: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(b.Fields))
	}
	if b.Fields[0].Type != a || b.Fields[1].Type != a {
		t.Fatal("both fields should resolve to the same canonical A instance")
	}
	if b.Fields[0].Offset != 0 || b.Fields[1].Offset != 1 {
		t.Fatalf("unexpected offsets: %+v", b.Fields)
	}
	if b.Size != 2 {
		t.Fatalf("B size = %d, want 2", b.Size)
	}
}

func TestGetTypeGenericArgumentDedup(t *testing.T) {
	l, err := New(buildCoreRegistry(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	a, err := l.GetType(assembly.TemplateRef{Assembly: "Core", ID: 0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	boxRef := assembly.TemplateRef{Assembly: "Core", ID: 2}
	box1, err := l.GetType(boxRef, []*objects.RuntimeType{a})
	if err != nil {
		t.Fatal(err)
	}
	box2, err := l.GetType(boxRef, []*objects.RuntimeType{a})
	if err != nil {
		t.Fatal(err)
	}
	if box1 != box2 {
		t.Fatal("Box<A> requested twice should return the same instance")
	}
	if len(box1.Fields) != 1 || box1.Fields[0].Type != a {
		t.Fatalf("Box<A>.field should be A, got %+v", box1.Fields)
	}
}

// TestGetTypeReferenceCycle wires a reference type whose only field is
// itself, exercising the early-publication path: Node's TypeID and cache
// entry must exist before its Fields are resolved, or evaluating the
// self-referential field would recurse forever.
func TestGetTypeReferenceCycle(t *testing.T) {
	node := assembly.Type{
		GCMode: assembly.GCReference,
		Generic: assembly.GenericDeclaration{
			Types: assembly.RefList{
				{Kind: assembly.RefEmpty},              // 0: base = none
				{Kind: assembly.RefAssembly, Index: 0}, // 1: field type = Node itself
				{Kind: assembly.RefListEnd},              // 2: empty argument list
			},
			Functions: assembly.RefList{{Kind: assembly.RefEmpty}},
		},
		BaseType: 0,
		Fields:   []int{1},
	}
	reg, err := assembly.NewRegistry([]*assembly.Assembly{{
		Name:  "Core",
		Types: []assembly.Type{node},
	}})
	if err != nil {
		t.Fatal(err)
	}
	l, err := New(reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	rt, err := l.GetType(assembly.TemplateRef{Assembly: "Core", ID: 0}, nil)
	if err != nil {
		t.Fatalf("self-referential reference type should load, got %v", err)
	}
	if len(rt.Fields) != 1 || rt.Fields[0].Type != rt {
		t.Fatalf("Node.field should point back to Node itself, got %+v", rt.Fields)
	}
}

// TestGetTypeValueCycleFails builds a value type whose only field is
// another instantiation of itself with the same arguments (not through
// SELF, which just returns the in-flight pointer, but through a fresh
// ASSEMBLY reference back to its own template id). That re-enters
// InstantiateType with the same key while the outer call is still
// in flight, and must surface as a circular reference error: a value
// type cannot be safely stubbed, since its size depends on its own size.
func TestGetTypeValueCycleFails(t *testing.T) {
	loop := assembly.Type{
		GCMode: assembly.GCValue,
		Generic: assembly.GenericDeclaration{
			Types: assembly.RefList{
				{Kind: assembly.RefEmpty},              // 0: base = none
				{Kind: assembly.RefAssembly, Index: 0}, // 1: Loop itself
				{Kind: assembly.RefListEnd},              // 2: empty argument list
			},
			Functions: assembly.RefList{{Kind: assembly.RefEmpty}},
		},
		BaseType: 0,
		Fields:   []int{1},
	}
	reg, err := assembly.NewRegistry([]*assembly.Assembly{{
		Name:  "Core",
		Types: []assembly.Type{loop},
	}})
	if err != nil {
		t.Fatal(err)
	}
	l, err := New(reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.GetType(assembly.TemplateRef{Assembly: "Core", ID: 0}, nil); err == nil {
		t.Fatal("expected a circular reference error for a self-referential value type")
	}
}

func TestAddNativeTypeIsIdempotent(t *testing.T) {
	noFuncs := assembly.RefList{{Kind: assembly.RefEmpty}}
	reg, err := assembly.NewRegistry([]*assembly.Assembly{{
		Name: "Core",
		Types: []assembly.Type{
			{}, // 0: unused
			{
				GCMode: assembly.GCValue,
				Generic: assembly.GenericDeclaration{
					Types:     assembly.RefList{{Kind: assembly.RefEmpty}},
					Functions: noFuncs,
				},
			},
		},
		NativeTypes: []assembly.ExportRecord{
			{ExportName: "Int32", InternalID: 1},
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
	l, err := New(reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	t1, err := l.AddNativeType("Core", "Int32", 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := l.AddNativeType("Core", "Int32", 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if t1 != t2 {
		t.Fatal("re-registering the same native type should return the same instance")
	}
	if t1.Size != 4 || t1.Alignment != 4 {
		t.Fatalf("native type size/alignment = %d/%d, want 4/4", t1.Size, t1.Alignment)
	}
}

func TestAddNativeTypeRejectsGenericTemplate(t *testing.T) {
	reg, err := assembly.NewRegistry([]*assembly.Assembly{{
		Name: "Core",
		Types: []assembly.Type{
			{
				GCMode: assembly.GCValue,
				Generic: assembly.GenericDeclaration{
					ParameterShape: assembly.Single(1),
					Types:          assembly.RefList{{Kind: assembly.RefEmpty}, {Kind: assembly.RefArgument, Index: 0}},
					Functions:      assembly.RefList{{Kind: assembly.RefEmpty}},
				},
			},
		},
		NativeTypes: []assembly.ExportRecord{
			{ExportName: "Box", InternalID: 0},
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
	l, err := New(reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddNativeType("Core", "Box", 4, 4); err == nil {
		t.Fatal("expected an error for a native type backed by a generic template")
	}
}

func TestAddNativeTypeRejectsReferenceTemplate(t *testing.T) {
	reg, err := assembly.NewRegistry([]*assembly.Assembly{{
		Name: "Core",
		Types: []assembly.Type{
			{
				GCMode: assembly.GCReference,
				Generic: assembly.GenericDeclaration{
					Types:     assembly.RefList{{Kind: assembly.RefEmpty}},
					Functions: assembly.RefList{{Kind: assembly.RefEmpty}},
				},
			},
		},
		NativeTypes: []assembly.ExportRecord{
			{ExportName: "Handle", InternalID: 0},
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
	l, err := New(reg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddNativeType("Core", "Handle", 8, 8); err == nil {
		t.Fatal("expected an error for a native type backed by a reference template")
	}
}
