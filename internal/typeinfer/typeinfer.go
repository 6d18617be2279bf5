// Package typeinfer implements spec §4.F: a forward fixpoint over a
// per-register environment of IRType, IntegralSubtype, and an
// optional resolved reference Type, riding on internal/fixpoint and
// internal/domain. Contracts per opcode follow
// original_source/libredex/TypeInference.cpp.
package typeinfer

import (
	"redopt/internal/cfg"
	"redopt/internal/domain"
	"redopt/internal/fixpoint"
	"redopt/internal/ir"
)

// RegisterType is one register's inferred type facts: the IRType
// lattice element, its integral refinement (meaningful only while
// Type.Leq(domain.IRTypeInt) or similarly scalar), and a resolved
// reference type when the register is known to hold exactly one
// class (absent, i.e. the zero ir.Type, when unknown or not a
// reference).
type RegisterType struct {
	Type     domain.IRType
	Integral domain.IntegralSubtype
	RefType  ir.Type
}

func bottomReg() RegisterType {
	return RegisterType{Type: domain.IRTypeBottom, Integral: domain.IntegralBottom}
}

func topReg() RegisterType {
	return RegisterType{Type: domain.IRTypeTop, Integral: domain.IntegralTop}
}

func joinReg(a, b RegisterType) RegisterType {
	out := RegisterType{
		Type:     a.Type.Join(b.Type),
		Integral: a.Integral.Join(b.Integral),
	}
	if a.RefType.Valid() && a.RefType == b.RefType {
		out.RefType = a.RefType
	}
	return out
}

// Env is the per-register environment threaded through the fixpoint;
// the zero value of a missing register reads as bottom.
type Env struct {
	regs   map[ir.Register]RegisterType
	bottom bool
}

func bottomEnv() Env { return Env{bottom: true} }
func emptyEnv() Env  { return Env{regs: map[ir.Register]RegisterType{}} }

func (e Env) Get(r ir.Register) RegisterType {
	if e.bottom {
		return bottomReg()
	}
	if v, ok := e.regs[r]; ok {
		return v
	}
	return bottomReg()
}

func (e Env) Set(r ir.Register, v RegisterType) Env {
	out := Env{regs: make(map[ir.Register]RegisterType, len(e.regs)+1)}
	for k, val := range e.regs {
		out.regs[k] = val
	}
	out.regs[r] = v
	return out
}

func (e Env) IsBottom() bool { return e.bottom }

type envLattice struct{}

func (envLattice) Bottom() Env { return bottomEnv() }

func (envLattice) Join(a, b Env) Env {
	if a.bottom {
		return b
	}
	if b.bottom {
		return a
	}
	out := emptyEnv()
	seen := map[ir.Register]bool{}
	for r, v := range a.regs {
		seen[r] = true
		if w, ok := b.regs[r]; ok {
			out.regs[r] = joinReg(v, w)
		} else {
			out.regs[r] = v
		}
	}
	for r, w := range b.regs {
		if !seen[r] {
			out.regs[r] = w
		}
	}
	return out
}

func (envLattice) Equal(a, b Env) bool {
	if a.bottom != b.bottom {
		return false
	}
	if a.bottom {
		return true
	}
	if len(a.regs) != len(b.regs) {
		return false
	}
	for r, v := range a.regs {
		w, ok := b.regs[r]
		if !ok || w != v {
			return false
		}
	}
	return true
}

// Result is the analysis output: entry/exit environments addressable
// per block, for a pass to read after Run.
type Result struct {
	it *fixpoint.Iterator[Env]
}

func (r *Result) EntryAt(b *cfg.Block) Env { return r.it.GetEntryStateAt(b) }
func (r *Result) ExitAt(b *cfg.Block) Env  { return r.it.GetExitStateAt(b) }

// StatesAt returns the environment immediately before each instruction
// in b (index i is the state just before b.Insns[i]), for a pass that
// needs a specific instruction's pre-state rather than just the
// block's entry/exit, such as typecheck's per-operand evaluation.
func (r *Result) StatesAt(b *cfg.Block) []Env {
	states := make([]Env, len(b.Insns))
	state := r.EntryAt(b)
	var prev *ir.Instruction
	for i, insn := range b.Insns {
		states[i] = state
		if state.IsBottom() {
			continue
		}
		state = analyzeInstruction(b, insn, prev, state)
		prev = insn
	}
	return states
}

// Run infers per-register types across g, seeding entry with
// paramTypes for the method's formal parameters (register ->
// RegisterType, typically IRTypeReference/Int/... from LoadParam*
// opcodes). MoveException reads its catch types from the Throw edges
// entering its block (see analyzeMoveException).
func Run(g *cfg.Graph, paramTypes map[ir.Register]RegisterType) *Result {
	initial := emptyEnv()
	for r, t := range paramTypes {
		initial = initial.Set(r, t)
	}

	node := func(b *cfg.Block, entry Env) Env {
		return analyzeBlock(b, entry)
	}
	edge := func(e cfg.Edge, exit Env) (Env, bool) {
		return analyzeEdge(e, exit)
	}

	it := fixpoint.NewIterator[Env](g, envLattice{}, node, edge)
	it.Run(initial)
	return &Result{it: it}
}

func analyzeBlock(b *cfg.Block, entry Env) Env {
	state := entry
	var prev *ir.Instruction
	for _, insn := range b.Insns {
		if state.IsBottom() {
			return state
		}
		state = analyzeInstruction(b, insn, prev, state)
		prev = insn
	}
	return state
}

// analyzeEdge refines environments crossing a Branch edge out of an
// If comparing two operands; every other edge kind (including IfZ,
// whose implicit zero operand is compatible with anything) passes the
// exit state through unchanged (spec §4.F: "requires both Reference or
// both non-float scalar, otherwise the successor environment becomes
// bottom"). Grounded on TypeInference.cpp's refine_virtual/
// check_array_bounds-adjacent operand-compatibility checks for If.
func analyzeEdge(e cfg.Edge, exit Env) (Env, bool) {
	if exit.IsBottom() {
		return exit, false
	}
	if e.Kind != cfg.EdgeBranch || e.Source == nil {
		return exit, true
	}
	term := e.Source.Terminator()
	if term == nil || term.Op != ir.OpIf || len(term.Srcs) < 2 {
		return exit, true
	}
	a := exit.Get(term.Srcs[0]).Type
	b := exit.Get(term.Srcs[1]).Type
	if a.IsBottom() || b.IsBottom() {
		return exit, true
	}
	if !compatibleOperands(a, b) {
		return exit, false
	}
	return exit, true
}

// compatibleOperands implements spec §4.F's If-operand compatibility
// rule: both sides reference-like, or both non-float scalar.
func compatibleOperands(a, b domain.IRType) bool {
	if referenceLike(a) && referenceLike(b) {
		return true
	}
	return scalarNonFloat(a) && scalarNonFloat(b)
}

func referenceLike(t domain.IRType) bool { return t.Leq(domain.IRTypeReference) }

func scalarNonFloat(t domain.IRType) bool {
	return t.Leq(domain.IRTypeScalar) && t != domain.IRTypeFloat
}

func analyzeInstruction(b *cfg.Block, insn, prev *ir.Instruction, state Env) Env {
	switch insn.Op {
	case ir.OpLoadParam, ir.OpLoadParamWide, ir.OpLoadParamObject:
		return state // seeded by Run; nothing to recompute here

	case ir.OpConst:
		return setScalar(state, insn.Dst, constIRType(insn.Literal))
	case ir.OpConstWide:
		return setPair(state, insn.Dst, domain.IRTypeLong1, domain.IRTypeLong2)
	case ir.OpConstString, ir.OpConstClass:
		return setRef(state, insn.Dst, ir.Type{})
	case ir.OpConstNull:
		return setScalar(state, insn.Dst, domain.IRTypeZero)

	case ir.OpMove:
		return setFromSrc(state, insn.Dst, insn.Srcs[0])
	case ir.OpMoveWide:
		return setPair(state, insn.Dst, domain.IRTypeLong1, domain.IRTypeLong2)
	case ir.OpMoveObject:
		return setFromSrc(state, insn.Dst, insn.Srcs[0])
	case ir.OpMoveResult:
		return setScalar(state, insn.Dst, domain.IRTypeScalar)
	case ir.OpMoveResultPseudo:
		return analyzeMoveResultPseudo(insn, prev, state)
	case ir.OpMoveResultWide:
		return setPair(state, insn.Dst, domain.IRTypeScalar1, domain.IRTypeScalar2)
	case ir.OpMoveResultObject:
		return setRef(state, insn.Dst, ir.Type{})
	case ir.OpMoveException:
		return analyzeMoveException(b, insn, state)

	case ir.OpNewInstance:
		return setRef(state, insn.Dst, insn.Cls)
	case ir.OpNewArray, ir.OpFilledNewArray:
		if insn.HasDst {
			return setRef(state, insn.Dst, insn.Cls)
		}
		return state
	case ir.OpCheckCast, ir.OpInstanceOf:
		// Both are type-tested loads (spec §3): neither writes a
		// register itself, their result reaches the following
		// MoveResultPseudo instead.
		return state

	case ir.OpIget, ir.OpSget:
		return setScalar(state, insn.Dst, domain.IRTypeScalar)
	case ir.OpAget:
		return analyzeAget(state, insn)

	case ir.OpBinop, ir.OpBinopLit, ir.OpUnop, ir.OpCmp:
		if insn.HasDst {
			return setScalar(state, insn.Dst, domain.IRTypeInt)
		}
		return state

	default:
		return state
	}
}

// analyzeMoveResultPseudo types a MoveResultPseudo's destination from
// whichever type-tested load it follows (spec §3's MoveResult*
// adjacency invariant guarantees prev is that producer): InstanceOf
// always yields a boolean int; CheckCast narrows the destination to
// its tested type. A MoveResultPseudo with no recognized producer
// falls back to the same generic Scalar MoveResult got before this
// split.
func analyzeMoveResultPseudo(insn, prev *ir.Instruction, state Env) Env {
	if prev != nil {
		switch prev.Op {
		case ir.OpInstanceOf:
			return setScalar(state, insn.Dst, domain.IRTypeInt)
		case ir.OpCheckCast:
			return setRef(state, insn.Dst, prev.Cls)
		}
	}
	return setScalar(state, insn.Dst, domain.IRTypeScalar)
}

func constIRType(v int64) domain.IRType {
	if v == 0 {
		return domain.IRTypeZero
	}
	return domain.IRTypeConst
}

func setScalar(state Env, r ir.Register, t domain.IRType) Env {
	return state.Set(r, RegisterType{Type: t, Integral: integralFor(t)})
}

func integralFor(t domain.IRType) domain.IntegralSubtype {
	if t == domain.IRTypeInt || t == domain.IRTypeConst || t == domain.IRTypeZero {
		return domain.IntegralInt
	}
	return domain.IntegralBottom
}

func setPair(state Env, r ir.Register, first, second domain.IRType) Env {
	state = state.Set(r, RegisterType{Type: first})
	return state.Set(r+1, RegisterType{Type: second})
}

func setRef(state Env, r ir.Register, t ir.Type) Env {
	return state.Set(r, RegisterType{Type: domain.IRTypeReference, RefType: t})
}

func setFromSrc(state Env, dst, src ir.Register) Env {
	return state.Set(dst, state.Get(src))
}

// analyzeAget types the result as Scalar. The array's element type is
// not recovered (the array register's RefType is the array class, not
// its element), and the source and index registers are left as they
// are: neither is narrowed to Reference or Int.
func analyzeAget(state Env, insn *ir.Instruction) Env {
	return setScalar(state, insn.Dst, domain.IRTypeScalar)
}

// analyzeMoveException types the destination as a reference. Its class
// is the catch type when every Throw edge entering b names the same
// one; when any catch-all edge is present, or the catch types differ,
// the class is left unknown (the zero ir.Type): neither
// java.lang.Throwable nor a common supertype of the catch types is
// computed.
func analyzeMoveException(b *cfg.Block, insn *ir.Instruction, state Env) Env {
	var joined ir.Type
	any := false
	for _, p := range b.Preds {
		for _, e := range p.Succs {
			if e.Kind != cfg.EdgeThrow || e.Target != b {
				continue
			}
			if e.IsCatchAll {
				return setRef(state, insn.Dst, ir.Type{})
			}
			if !any {
				joined = e.ExceptionType
				any = true
			} else if joined != e.ExceptionType {
				return setRef(state, insn.Dst, ir.Type{})
			}
		}
	}
	return setRef(state, insn.Dst, joined)
}
