package objects

import (
	"testing"

	"github.com/wippyai/rolrun/assembly"
)

func TestLoadingArgumentsEqual(t *testing.T) {
	t1 := &RuntimeType{TypeID: 1}
	t2 := &RuntimeType{TypeID: 2}

	a := LoadingArguments{Assembly: "A", ID: 1, Arguments: [][]*RuntimeType{{t1, t2}}}
	b := LoadingArguments{Assembly: "A", ID: 1, Arguments: [][]*RuntimeType{{t1, t2}}}
	c := LoadingArguments{Assembly: "A", ID: 1, Arguments: [][]*RuntimeType{{t2, t1}}}

	if !a.Equal(b) {
		t.Fatal("identical argument lists should compare equal")
	}
	if a.Equal(c) {
		t.Fatal("argument order should matter")
	}
}

func TestLoadingArgumentsFlatArguments(t *testing.T) {
	t1 := &RuntimeType{}
	t2 := &RuntimeType{}
	a := LoadingArguments{Arguments: [][]*RuntimeType{{t1}, {t2}}}
	flat := a.FlatArguments()
	if len(flat) != 2 || flat[0] != t1 || flat[1] != t2 {
		t.Fatalf("got %v", flat)
	}
	if got := a.SegmentSizes(); len(got) != 2 || got[0] != 1 || got[1] != 1 {
		t.Fatalf("SegmentSizes() = %v", got)
	}
}

func TestRuntimeTypeStorageSizeReference(t *testing.T) {
	rt := &RuntimeType{Storage: assembly.GCReference, Size: 40, Alignment: 8}
	if got := rt.StorageSize(8); got != 8 {
		t.Fatalf("reference field storage size = %d, want pointer size 8", got)
	}
	if got := rt.StorageAlignment(8); got != 8 {
		t.Fatalf("reference field alignment = %d, want 8", got)
	}
}

func TestRuntimeTypeStorageSizeValue(t *testing.T) {
	rt := &RuntimeType{Storage: assembly.GCValue, Size: 12, Alignment: 4}
	if got := rt.StorageSize(8); got != 12 {
		t.Fatalf("value field storage size = %d, want 12", got)
	}
	if got := rt.StorageAlignment(8); got != 4 {
		t.Fatalf("value field alignment = %d, want 4", got)
	}
}
