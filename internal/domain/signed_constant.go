package domain

// SignKind distinguishes a SignedConstant's representable shapes:
// bottom, an exact 64-bit value, one of five sign intervals, or top
// (spec §4.E).
type SignKind int

const (
	SignBottom SignKind = iota
	SignValue
	SignLTZ
	SignLEZ
	SignGEZ
	SignGTZ
	SignNEZ
	SignTop
)

// SignedConstant is a value in the interval-or-exact-value lattice
// spec §4.E names; Value is meaningful only when Kind == SignValue.
type SignedConstant struct {
	Kind  SignKind
	Value int64
}

func Bottom() SignedConstant { return SignedConstant{Kind: SignBottom} }
func Top() SignedConstant    { return SignedConstant{Kind: SignTop} }
func Exact(v int64) SignedConstant {
	return SignedConstant{Kind: SignValue, Value: v}
}
func Interval(k SignKind) SignedConstant { return SignedConstant{Kind: k} }

func (s SignedConstant) IsBottom() bool { return s.Kind == SignBottom }
func (s SignedConstant) IsTop() bool    { return s.Kind == SignTop }

// intervalContains reports whether v satisfies the sign interval k.
func intervalContains(k SignKind, v int64) bool {
	switch k {
	case SignLTZ:
		return v < 0
	case SignLEZ:
		return v <= 0
	case SignGEZ:
		return v >= 0
	case SignGTZ:
		return v > 0
	case SignNEZ:
		return v != 0
	default:
		return false
	}
}

// intervalLeq reports whether interval a is contained in interval b,
// matching the five named intervals' natural subset relation: GTZ is
// contained in GEZ and NEZ, LTZ in LEZ and NEZ, and otherwise only an
// interval in itself.
func intervalLeq(a, b SignKind) bool {
	if a == b {
		return true
	}
	switch b {
	case SignNEZ:
		return a == SignLTZ || a == SignGTZ
	case SignGEZ:
		return a == SignGTZ
	case SignLEZ:
		return a == SignLTZ
	default:
		return false
	}
}

// Leq reports s sqsubseteq other.
func (s SignedConstant) Leq(other SignedConstant) bool {
	if s.IsBottom() {
		return true
	}
	if other.IsTop() {
		return true
	}
	switch {
	case s.Kind == SignValue && other.Kind == SignValue:
		return s.Value == other.Value
	case s.Kind == SignValue && other.Kind != SignValue && other.Kind != SignTop && other.Kind != SignBottom:
		return intervalContains(other.Kind, s.Value)
	case s.Kind != SignValue && s.Kind != SignBottom && other.Kind != SignValue && other.Kind != SignBottom && other.Kind != SignTop:
		return intervalLeq(s.Kind, other.Kind)
	default:
		return false
	}
}

// Join computes a representable upper bound. When neither side is
// below the other, each exact value is first replaced by its sign
// interval (zero by GEZ), so joining zero with a negative value gives
// Top rather than LEZ.
func (s SignedConstant) Join(other SignedConstant) SignedConstant {
	if s.Leq(other) {
		return other
	}
	if other.Leq(s) {
		return s
	}
	if s.IsBottom() {
		return other
	}
	if other.IsBottom() {
		return s
	}

	ks, kv := s, other
	sign := func(v int64) SignKind {
		switch {
		case v < 0:
			return SignLTZ
		case v > 0:
			return SignGTZ
		default:
			return SignGEZ // zero is both GEZ and LEZ; GEZ is always picked
		}
	}
	if ks.Kind == SignValue {
		ks = SignedConstant{Kind: sign(ks.Value)}
	}
	if kv.Kind == SignValue {
		kv = SignedConstant{Kind: sign(kv.Value)}
	}
	if ks.Kind == kv.Kind {
		return ks
	}
	joined := joinSignKinds(ks.Kind, kv.Kind)
	if joined == SignTop {
		return Top()
	}
	return SignedConstant{Kind: joined}
}

func joinSignKinds(a, b SignKind) SignKind {
	if a == b {
		return a
	}
	pair := func(x, y SignKind) bool { return (a == x && b == y) || (a == y && b == x) }
	switch {
	case pair(SignLTZ, SignGTZ):
		return SignNEZ
	case pair(SignLTZ, SignGEZ):
		return SignTop
	case pair(SignGTZ, SignLEZ):
		return SignTop
	case pair(SignLEZ, SignGEZ):
		return SignTop
	case pair(SignLTZ, SignLEZ):
		return SignLEZ
	case pair(SignGTZ, SignGEZ):
		return SignGEZ
	case pair(SignLTZ, SignNEZ):
		return SignNEZ
	case pair(SignGTZ, SignNEZ):
		return SignNEZ
	default:
		return SignTop
	}
}

// Meet computes the widest representable lower bound. (Div and Rem do
// not go through Meet: they check for an exact zero divisor directly.)
func (s SignedConstant) Meet(other SignedConstant) SignedConstant {
	if s.IsBottom() || other.IsBottom() {
		return Bottom()
	}
	if s.IsTop() {
		return other
	}
	if other.IsTop() {
		return s
	}
	if s.Kind == SignValue && other.Kind == SignValue {
		if s.Value == other.Value {
			return s
		}
		return Bottom()
	}
	if s.Kind == SignValue {
		if intervalContains(other.Kind, s.Value) {
			return s
		}
		return Bottom()
	}
	if other.Kind == SignValue {
		if intervalContains(s.Kind, other.Value) {
			return other
		}
		return Bottom()
	}
	if intervalLeq(s.Kind, other.Kind) {
		return s
	}
	if intervalLeq(other.Kind, s.Kind) {
		return other
	}
	// Two distinct, non-nested intervals: narrow to their intersection
	// ({0} for LEZ and GEZ), else bottom when they are disjoint.
	switch {
	case s.Kind == SignLEZ && other.Kind == SignGEZ, s.Kind == SignGEZ && other.Kind == SignLEZ:
		return Exact(0)
	case s.Kind == SignGTZ && other.Kind == SignGEZ, s.Kind == SignGEZ && other.Kind == SignGTZ:
		return Interval(SignGTZ)
	case s.Kind == SignLTZ && other.Kind == SignLEZ, s.Kind == SignLEZ && other.Kind == SignLTZ:
		return Interval(SignLTZ)
	case s.Kind == SignNEZ && other.Kind == SignGEZ, s.Kind == SignGEZ && other.Kind == SignNEZ:
		return Interval(SignGTZ)
	case s.Kind == SignNEZ && other.Kind == SignLEZ, s.Kind == SignLEZ && other.Kind == SignNEZ:
		return Interval(SignLTZ)
	default:
		return Bottom()
	}
}

// Add narrows a+b when both are exact, otherwise returns Top unless
// either side is Bottom.
func (s SignedConstant) Add(other SignedConstant) SignedConstant {
	return binaryExactOrTop(s, other, func(a, b int64) int64 { return a + b })
}

func (s SignedConstant) Sub(other SignedConstant) SignedConstant {
	return binaryExactOrTop(s, other, func(a, b int64) int64 { return a - b })
}

func (s SignedConstant) Mul(other SignedConstant) SignedConstant {
	return binaryExactOrTop(s, other, func(a, b int64) int64 { return a * b })
}

func (s SignedConstant) And(other SignedConstant) SignedConstant {
	return binaryExactOrTop(s, other, func(a, b int64) int64 { return a & b })
}

func (s SignedConstant) Or(other SignedConstant) SignedConstant {
	return binaryExactOrTop(s, other, func(a, b int64) int64 { return a | b })
}

func (s SignedConstant) Xor(other SignedConstant) SignedConstant {
	return binaryExactOrTop(s, other, func(a, b int64) int64 { return a ^ b })
}

func (s SignedConstant) Shl(other SignedConstant) SignedConstant {
	return binaryExactOrTop(s, other, func(a, b int64) int64 { return a << uint(b&63) })
}

func (s SignedConstant) Shr(other SignedConstant) SignedConstant {
	return binaryExactOrTop(s, other, func(a, b int64) int64 { return a >> uint(b&63) })
}

func (s SignedConstant) Ushr(other SignedConstant) SignedConstant {
	return binaryExactOrTop(s, other, func(a, b int64) int64 { return int64(uint64(a) >> uint(b&63)) })
}

// Div narrows a/b when both are exact, yields Bottom when b is known
// to be exactly zero (the division-by-zero guard spec §4.E requires).
func (s SignedConstant) Div(other SignedConstant) SignedConstant {
	if other.Kind == SignValue && other.Value == 0 {
		return Bottom()
	}
	return binaryExactOrTop(s, other, func(a, b int64) int64 { return a / b })
}

func (s SignedConstant) Rem(other SignedConstant) SignedConstant {
	if other.Kind == SignValue && other.Value == 0 {
		return Bottom()
	}
	return binaryExactOrTop(s, other, func(a, b int64) int64 { return a % b })
}

func binaryExactOrTop(a, b SignedConstant, f func(int64, int64) int64) SignedConstant {
	if a.IsBottom() || b.IsBottom() {
		return Bottom()
	}
	if a.Kind == SignValue && b.Kind == SignValue {
		return Exact(f(a.Value, b.Value))
	}
	return Top()
}
