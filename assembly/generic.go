package assembly

// ConstraintKind is one of the six constraint predicates a generic
// declaration may require.
type ConstraintKind byte

const (
	ConstraintExist ConstraintKind = iota
	ConstraintSame
	ConstraintBase
	ConstraintInterface
	ConstraintTraitAssembly
	ConstraintTraitImport
)

// GenericConstraint is a single predicate over a generic declaration's
// arguments.
//
// TypeReferences is a small scratch RefList private to this constraint: the
// Target and Arguments fields are indices into it (matching the original
// LibRolLang encoding, where a constraint carries its own miniature
// expression tree rather than reusing the enclosing declaration's lists).
type GenericConstraint struct {
	Kind           ConstraintKind
	Index          int // trait index (TRAIT_ASSEMBLY: into Traits; TRAIT_IMPORT: into ImportTraits)
	TypeReferences RefList
	Names          []string
	Target         int   // index into TypeReferences naming the checked type T
	Arguments      []int // indices into TypeReferences naming <T1, ...>
	ExportName     string
}

// ArgListSegment describes one segment of a (possibly variadic-segmented)
// generic argument list.
type ArgListSegment struct {
	Size     int
	Variable bool
}

// ArgShape is the declared shape of a generic declaration's parameter list.
type ArgShape struct {
	Segments []ArgListSegment
}

// IsEmpty reports whether the declaration takes no generic parameters.
func (s ArgShape) IsEmpty() bool { return len(s.Segments) == 0 }

// Single builds the common non-segmented shape of exactly n parameters.
func Single(n int) ArgShape {
	if n == 0 {
		return ArgShape{}
	}
	return ArgShape{Segments: []ArgListSegment{{Size: n}}}
}

// Matches reports whether an argument list with the given per-segment sizes
// satisfies this shape, implementing the original's GenericDefArgumentListSize::CanMatch
// backward-compatibility rule: a single all-zero segment list matches an
// empty declaration, or a declaration whose single fixed segment size is 0.
func (s ArgShape) Matches(sizes []int) bool {
	if len(sizes) == 1 && sizes[0] == 0 {
		if s.IsEmpty() {
			return true
		}
		if len(s.Segments) == 1 && !s.Segments[0].Variable && s.Segments[0].Size == 0 {
			return true
		}
		return false
	}
	if len(s.Segments) != len(sizes) {
		return false
	}
	for i, seg := range s.Segments {
		if seg.Variable {
			if sizes[i] < seg.Size {
				return false
			}
		} else if sizes[i] != seg.Size {
			return false
		}
	}
	return true
}

// ParameterCount returns the total number of parameters for a non-segmented
// (or single fixed-segment) shape; used by simple arity checks.
func (s ArgShape) ParameterCount() int {
	total := 0
	for _, seg := range s.Segments {
		total += seg.Size
	}
	return total
}

// GenericDeclaration is the parameterization shared by types, functions and
// traits.
type GenericDeclaration struct {
	ParameterShape ArgShape
	Constraints    []GenericConstraint
	Types          RefList
	Functions      RefList
	Fields         RefList
	Names          []string
}
