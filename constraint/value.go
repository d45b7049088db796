// Package constraint implements the backtracking search that decides
// whether a candidate set of generic arguments satisfies a declaration's
// constraint list, and produces the trait-member bindings a satisfied
// TRAIT_ASSEMBLY/TRAIT_IMPORT constraint exports for later CONSTRAINT
// references.
package constraint

import "github.com/wippyai/rolrun/objects"

// Kind tags the value a constraint expression evaluates to.
type Kind byte

const (
	// KindEmpty is the "no type" result, e.g. of an unset base-type slot.
	KindEmpty Kind = iota
	// KindAny is a wildcard: it is compatible with any other value and
	// carries no information of its own.
	KindAny
	// KindRT wraps a concrete, already-instantiated RuntimeType.
	KindRT
	// KindFail is the contradiction sentinel: incompatible with everything,
	// including another KindFail.
	KindFail
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindAny:
		return "any"
	case KindRT:
		return "rt"
	case KindFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Value is the result of evaluating one constraint expression node.
type Value struct {
	Kind Kind
	RT   *objects.RuntimeType
}

func Empty() Value          { return Value{Kind: KindEmpty} }
func Any() Value            { return Value{Kind: KindAny} }
func Fail() Value           { return Value{Kind: KindFail} }
func RT(t *objects.RuntimeType) Value {
	if t == nil {
		return Empty()
	}
	return Value{Kind: KindRT, RT: t}
}

func (v Value) IsFail() bool { return v.Kind == KindFail }
