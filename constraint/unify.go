package constraint

// TryDetermineEqualTypes compares two constraint values, returning 1 when
// they are known equal, -1 when known unequal, and 0 when the comparison
// is inconclusive (one side is a wildcard). RuntimeType instances are
// canonicalized by the loader — the same (assembly, id, arguments) triple
// always yields the same pointer — so equality between two KindRT values
// reduces to a pointer comparison; no structural unification is needed.
func TryDetermineEqualTypes(a, b Value) int {
	if a.Kind == KindFail || b.Kind == KindFail {
		return -1
	}
	if a.Kind == KindAny || b.Kind == KindAny {
		return 0
	}
	if a.Kind == KindEmpty && b.Kind == KindEmpty {
		return 1
	}
	if a.Kind == KindEmpty || b.Kind == KindEmpty {
		return -1
	}
	// both KindRT
	if a.RT == b.RT {
		return 1
	}
	return -1
}
