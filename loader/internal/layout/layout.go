// Package layout computes field offsets, size and alignment for a type
// being instantiated: fields are added in declaration order, each padded
// up to its own alignment requirement before being placed.
package layout

import "github.com/wippyai/rolrun/objects"

// Builder accumulates fields for a single type instantiation.
type Builder struct {
	offset   int
	maxAlign int
	fields   []objects.FieldInfo
}

// New starts an empty layout.
func New() *Builder {
	return &Builder{}
}

// Add places one more field of type ft, returning its resulting FieldInfo.
func (b *Builder) Add(ft *objects.RuntimeType, ptrSize int) objects.FieldInfo {
	align := ft.StorageAlignment(ptrSize)
	if align < 1 {
		align = 1
	}
	length := ft.StorageSize(ptrSize)
	b.offset = alignUp(b.offset, align)
	info := objects.FieldInfo{Type: ft, Offset: b.offset, Length: length}
	b.fields = append(b.fields, info)
	b.offset += length
	if align > b.maxAlign {
		b.maxAlign = align
	}
	return info
}

// Finish returns the accumulated fields plus the type's total size and
// alignment. Size is never reported below 1 so that a zero-field type
// still occupies distinguishable storage; alignment is never below 1.
func (b *Builder) Finish() (fields []objects.FieldInfo, size, alignment int) {
	size = b.offset
	if size < 1 {
		size = 1
	}
	alignment = b.maxAlign
	if alignment < 1 {
		alignment = 1
	}
	return b.fields, size, alignment
}

func alignUp(offset, align int) int {
	return (offset + align - 1) / align * align
}
