package domain

// Nullness is spec §4.E's lattice: bottom sqsubseteq {uninitialized}
// sqsubseteq {is-null, not-null} sqsubseteq top, grounded on
// NullnessDomain.h's NN_BOTTOM/UNINITIALIZED/IS_NULL/NOT_NULL/NN_TOP
// chain (the array-element "not yet written" state sits strictly
// between bottom and the null/not-null pair).
type Nullness int

const (
	NullnessBottom Nullness = iota
	NullnessUninitialized
	NullnessIsNull
	NullnessNotNull
	NullnessTop
)

func (n Nullness) IsBottom() bool { return n == NullnessBottom }
func (n Nullness) IsTop() bool    { return n == NullnessTop }

// Leq reports whether n sqsubseteq other in the diamond below Top.
func (n Nullness) Leq(other Nullness) bool {
	if n == other {
		return true
	}
	if n == NullnessBottom {
		return true
	}
	if other == NullnessTop {
		return true
	}
	if n == NullnessUninitialized {
		return other == NullnessIsNull || other == NullnessNotNull
	}
	return false
}

// Join computes the least upper bound: IsNull and NotNull only meet
// at Top, Uninitialized sits below both.
func (n Nullness) Join(other Nullness) Nullness {
	if n == other {
		return n
	}
	if n.Leq(other) {
		return other
	}
	if other.Leq(n) {
		return n
	}
	return NullnessTop
}

// Meet computes the greatest lower bound, the dual of Join.
func (n Nullness) Meet(other Nullness) Nullness {
	if n == other {
		return n
	}
	if n.Leq(other) {
		return n
	}
	if other.Leq(n) {
		return other
	}
	return NullnessBottom
}
