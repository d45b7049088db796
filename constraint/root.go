package constraint

// Root drives the backtracking search across the choice points a single
// solve attempt discovers: each ambiguous decision (which overload of a
// same-named trait function to bind, which TRY alternative to commit to)
// registers a choice point with the number of candidates it has to offer.
// A full search is a sequence of forward passes over the same constraint
// list in the same order; between passes DoBacktrack advances the
// choice points like an odometer, so the search explores every
// combination lexicographically before giving up.
type Root struct {
	candidates []int
	current    []int
	next       int
}

// NewRoot starts a fresh backtracking context with no committed choices.
func NewRoot() *Root {
	return &Root{}
}

// StartBacktrackPoint begins a new forward pass: choice points already
// recorded keep their current selection (so a backtrack that only rewound
// the last point doesn't lose earlier commitments); the cursor used by
// Choose resets to the front of the list.
func (r *Root) StartBacktrackPoint() {
	r.next = 0
}

// Choose returns the selection for the next choice point in this pass,
// registering it with n candidates the first time it is reached. Passing
// n<=0 means "no valid candidate here": the pass should fail immediately.
func (r *Root) Choose(n int) (int, bool) {
	if n <= 0 {
		return 0, false
	}
	idx := r.next
	r.next++
	if idx < len(r.candidates) {
		if r.candidates[idx] != n {
			// The set of candidates changed shape since the last pass
			// touched this position; re-anchor rather than desync.
			r.candidates[idx] = n
			if r.current[idx] >= n {
				r.current[idx] = 0
			}
		}
		return r.current[idx], true
	}
	r.candidates = append(r.candidates, n)
	r.current = append(r.current, 0)
	return 0, true
}

// DoBacktrack advances the odometer to the next untried combination,
// discarding choice points discovered past the point that carried, since
// a later pass may not reach that far. It reports false once every
// combination has been exhausted.
func (r *Root) DoBacktrack() bool {
	for i := len(r.candidates) - 1; i >= 0; i-- {
		r.current[i]++
		if r.current[i] < r.candidates[i] {
			r.candidates = r.candidates[:i+1]
			r.current = r.current[:i+1]
			return true
		}
		r.current[i] = 0
	}
	r.candidates = r.candidates[:0]
	r.current = r.current[:0]
	return false
}
