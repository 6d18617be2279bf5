// Package constprop implements spec §4.G: a per-register forward
// fixpoint over (SignedConstant, Nullness, SingletonObject) plus an
// AbstractHeap for locally-allocated arrays, driven by a fixed chain of
// sub-analyzers that each claim a subset of opcodes, riding on
// internal/fixpoint the way internal/typeinfer does.
package constprop

import (
	"redopt/internal/cfg"
	"redopt/internal/domain"
	"redopt/internal/fixpoint"
	"redopt/internal/ir"
)

// maxTrackedArrayLength bounds LocalArray's abstraction to small
// fixed-size arrays; a NewArray of unknown or larger length is not
// tracked (its pointer register reads as an ordinary top value).
const maxTrackedArrayLength = 64

// RegVal is one register's constant-propagation facts: a signed
// interval-or-exact value, a nullness state, a singleton-object
// identity (enum constants, boxed Boolean.TRUE/FALSE), and an optional
// abstract array pointer.
type RegVal struct {
	Const  domain.SignedConstant
	Null   domain.Nullness
	Obj    domain.SingletonObject
	Ptr    domain.Pointer
	HasPtr bool
}

func bottomVal() RegVal {
	return RegVal{Const: domain.Bottom(), Null: domain.NullnessBottom, Obj: domain.SingletonBottom()}
}

func topVal() RegVal {
	return RegVal{Const: domain.Top(), Null: domain.NullnessTop, Obj: domain.SingletonTop()}
}

func joinVal(a, b RegVal) RegVal {
	out := RegVal{
		Const: a.Const.Join(b.Const),
		Null:  a.Null.Join(b.Null),
		Obj:   a.Obj.Join(b.Obj),
	}
	if a.HasPtr && b.HasPtr && a.Ptr == b.Ptr {
		out.Ptr, out.HasPtr = a.Ptr, true
	}
	return out
}

func equalVal(a, b RegVal) bool {
	if a.Const != b.Const || a.Null != b.Null || a.Obj != b.Obj || a.HasPtr != b.HasPtr {
		return false
	}
	return !a.HasPtr || a.Ptr == b.Ptr
}

// State is the environment threaded through the fixpoint: the
// per-register map, the shared AbstractHeap, and (when analyzing a
// class initializer or instance constructor, spec §4.G's ClinitField/
// InitField sub-analyzers) a map of that class's own fields currently
// known to hold a constant value. A field absent from Statics reads as
// Top, the same "absence widens" convention AbstractHeap itself uses.
type State struct {
	Regs    map[ir.Register]RegVal
	Heap    domain.AbstractHeap
	Statics map[ir.FieldRef]domain.SignedConstant
	bottom  bool
}

func bottomState() State { return State{bottom: true} }

func emptyState() State {
	return State{
		Regs:    map[ir.Register]RegVal{},
		Heap:    domain.NewAbstractHeap(),
		Statics: map[ir.FieldRef]domain.SignedConstant{},
	}
}

func (s State) IsBottom() bool { return s.bottom }

func (s State) Get(r ir.Register) RegVal {
	if s.bottom {
		return bottomVal()
	}
	if v, ok := s.Regs[r]; ok {
		return v
	}
	return bottomVal()
}

func (s State) clone() State {
	regs := make(map[ir.Register]RegVal, len(s.Regs))
	for k, v := range s.Regs {
		regs[k] = v
	}
	statics := make(map[ir.FieldRef]domain.SignedConstant, len(s.Statics))
	for k, v := range s.Statics {
		statics[k] = v
	}
	return State{Regs: regs, Heap: s.Heap, Statics: statics}
}

func (s State) Set(r ir.Register, v RegVal) State {
	out := s.clone()
	out.Regs[r] = v
	return out
}

func (s State) SetHeap(h domain.AbstractHeap) State {
	out := s.clone()
	out.Heap = h
	return out
}

func (s State) GetStatic(f ir.FieldRef) domain.SignedConstant {
	if v, ok := s.Statics[f]; ok {
		return v
	}
	return domain.Top()
}

func (s State) SetStatic(f ir.FieldRef, v domain.SignedConstant) State {
	out := s.clone()
	out.Statics[f] = v
	return out
}

// WidenAllStatics drops every tracked field of the analyzed class,
// used when a call back into that class could have mutated any of
// them (spec §4.G: "a static call back into C widens all of C's
// fields to top").
func (s State) WidenAllStatics() State {
	out := s.clone()
	out.Statics = map[ir.FieldRef]domain.SignedConstant{}
	return out
}

type stateLattice struct{}

func (stateLattice) Bottom() State { return bottomState() }

func (stateLattice) Join(a, b State) State {
	if a.bottom {
		return b
	}
	if b.bottom {
		return a
	}
	out := emptyState()
	seen := map[ir.Register]bool{}
	for r, v := range a.Regs {
		seen[r] = true
		if w, ok := b.Regs[r]; ok {
			out.Regs[r] = joinVal(v, w)
		} else {
			out.Regs[r] = topVal()
		}
	}
	for r := range b.Regs {
		if !seen[r] {
			out.Regs[r] = topVal()
		}
	}
	out.Heap = a.Heap.Join(b.Heap)
	for f, v := range a.Statics {
		if w, ok := b.Statics[f]; ok && w == v {
			out.Statics[f] = v
		}
	}
	return out
}

func (stateLattice) Equal(a, b State) bool {
	if a.bottom != b.bottom {
		return false
	}
	if a.bottom {
		return true
	}
	if len(a.Regs) != len(b.Regs) || len(a.Statics) != len(b.Statics) {
		return false
	}
	for r, v := range a.Regs {
		w, ok := b.Regs[r]
		if !ok || !equalVal(v, w) {
			return false
		}
	}
	for f, v := range a.Statics {
		if w, ok := b.Statics[f]; !ok || w != v {
			return false
		}
	}
	return a.Heap.Equal(b.Heap)
}

// ContextMode selects which of the class-scoped sub-analyzers (spec
// §4.G's ClinitField/InitField) is active; at most one applies per
// analyzed method.
type ContextMode int

const (
	ModeNone ContextMode = iota
	ModeClinit
	ModeInitializer
)

// Context supplies the program-wide resolution and method-scoping
// information the EnumField/BoxedBoolean/ClinitField/InitField
// sub-analyzers need; a nil Context (or one with a nil Program)
// disables all of them, leaving Primitive/HeapEscape/LocalArray active.
type Context struct {
	Program *ir.Program
	Method  *ir.Method
	Mode    ContextMode
	ThisReg ir.Register
}

// Result holds the per-block environments computed by Run.
type Result struct {
	it *fixpoint.Iterator[State]
}

func (r *Result) EntryAt(b *cfg.Block) State { return r.it.GetEntryStateAt(b) }
func (r *Result) ExitAt(b *cfg.Block) State  { return r.it.GetExitStateAt(b) }

// Run analyzes g, seeding entry with paramVals for the method's formal
// parameters.
func Run(g *cfg.Graph, ctx *Context, paramVals map[ir.Register]RegVal) *Result {
	initial := emptyState()
	for r, v := range paramVals {
		initial = initial.Set(r, v)
	}

	node := func(b *cfg.Block, entry State) State {
		return analyzeBlock(b, entry, ctx)
	}

	it := fixpoint.NewIterator[State](g, stateLattice{}, node, refineEdge)
	it.Run(initial)
	return &Result{it: it}
}

// refineEdge implements spec §4.G's edge refinement, grounded on
// ConstantPropagationAnalysis.cpp's analyze_if/analyze_edge: an If/IfZ
// branch narrows (or kills) the state crossing each of its two edges
// by reasoning about the condition as if it were the taken one,
// inverting it first on the not-taken edge via Condition.Negate; a
// Switch's case-key edge narrows the tested register by meeting it
// against that case's key. A Throw edge, and every edge out of a
// terminator other than If/IfZ/Switch, passes the exit state through
// unchanged, the prior no-op behavior.
func refineEdge(e cfg.Edge, exit State) (State, bool) {
	if exit.IsBottom() {
		return exit, false
	}
	if e.Source == nil || e.Kind == cfg.EdgeThrow {
		return exit, true
	}
	term := e.Source.Terminator()
	if term == nil {
		return exit, true
	}
	switch term.Op {
	case ir.OpIf, ir.OpIfZ:
		return refineConditionalEdge(e, term, exit)
	case ir.OpSwitch:
		return refineSwitchEdge(e, term, exit)
	default:
		return exit, true
	}
}

// refineConditionalEdge treats OpIfZ as OpIf against an implicit exact
// zero right operand, so both share one code path.
func refineConditionalEdge(e cfg.Edge, term *ir.Instruction, exit State) (State, bool) {
	if len(term.Srcs) == 0 {
		return exit, true
	}
	leftReg := term.Srcs[0]
	rightVal := domain.Exact(0)
	rightReg := ir.Register(0)
	hasRightReg := false
	if term.Op == ir.OpIf {
		if len(term.Srcs) < 2 {
			return exit, true
		}
		rightReg = term.Srcs[1]
		hasRightReg = true
		rightVal = exit.Get(rightReg).Const
	}

	cond := term.Cond
	if e.Kind != cfg.EdgeBranch {
		cond = cond.Negate()
	}
	left := exit.Get(leftReg).Const

	switch cond {
	case ir.CondEq:
		merged := left.Meet(rightVal)
		if merged.IsBottom() {
			return exit, false
		}
		out := exit.Set(leftReg, withConst(exit.Get(leftReg), merged))
		if hasRightReg {
			out = out.Set(rightReg, withConst(out.Get(rightReg), merged))
		}
		return out, true
	case ir.CondNe:
		if definitelyEqual(left, rightVal) {
			return exit, false
		}
		return exit, true
	case ir.CondLt:
		if definitelyLessEqual(rightVal, left) {
			return exit, false
		}
		return exit, true
	case ir.CondGe:
		if definitelyLess(left, rightVal) {
			return exit, false
		}
		return exit, true
	case ir.CondGt:
		if definitelyLessEqual(left, rightVal) {
			return exit, false
		}
		return exit, true
	case ir.CondLe:
		if definitelyLess(rightVal, left) {
			return exit, false
		}
		return exit, true
	default:
		return exit, true
	}
}

// refineSwitchEdge narrows a Switch's case-key edge by meeting the
// tested register's constant against that case's key; the no-case-key
// (default fallthrough) edge is left alone, since this lattice does
// not track which keys the other case edges already cover.
func refineSwitchEdge(e cfg.Edge, term *ir.Instruction, exit State) (State, bool) {
	if !e.HasCaseKey || len(term.Srcs) == 0 {
		return exit, true
	}
	reg := term.Srcs[0]
	cur := exit.Get(reg)
	merged := cur.Const.Meet(domain.Exact(e.CaseKey))
	if merged.IsBottom() {
		return exit, false
	}
	return exit.Set(reg, withConst(cur, merged)), true
}

func withConst(v RegVal, c domain.SignedConstant) RegVal {
	v.Const = c
	return v
}

// definitelyEqual/definitelyLess/definitelyLessEqual decide a runtime
// comparison is impossible only when both sides are exact values (the
// runtime_equals_visitor/runtime_leq_visitor/runtime_lt_visitor
// counterparts in ConstantPropagationAnalysis.cpp additionally reason
// about disjoint sign intervals; this package does not, a deliberately
// narrower but sound simplification recorded in DESIGN.md).
func definitelyEqual(a, b domain.SignedConstant) bool {
	return a.Kind == domain.SignValue && b.Kind == domain.SignValue && a.Value == b.Value
}

func definitelyLess(a, b domain.SignedConstant) bool {
	return a.Kind == domain.SignValue && b.Kind == domain.SignValue && a.Value < b.Value
}

func definitelyLessEqual(a, b domain.SignedConstant) bool {
	return a.Kind == domain.SignValue && b.Kind == domain.SignValue && a.Value <= b.Value
}

// FoldUnreachableBranches implements the physical half of spec §8's
// constant-prop edge refinement scenario: refineEdge only tells the
// fixpoint which edges to keep narrowing through, it never touches the
// CFG itself, so a statically-decided If/IfZ/Switch still looks
// reachable on both arms to a purely structural pass. This walks every
// such terminator, and when refineEdge (the exact function Run's
// fixpoint calls) finds exactly one surviving successor given r's
// computed exit state, rewrites the terminator to an unconditional
// Goto to that successor and drops the other edge(s) -- letting a
// following internal/dce.Run's RemoveUnreachableBlocks structurally
// prune what is now a genuinely unreachable arm. Returns the number of
// terminators folded.
func FoldUnreachableBranches(g *cfg.Graph, r *Result) int {
	folded := 0
	for _, b := range g.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		switch term.Op {
		case ir.OpIf, ir.OpIfZ, ir.OpSwitch:
		default:
			continue
		}
		if len(b.Succs) < 2 {
			continue
		}
		exit := r.ExitAt(b)
		if exit.IsBottom() {
			continue
		}

		survivorIdx, liveCount := -1, 0
		for i, e := range b.Succs {
			if _, live := refineEdge(e, exit); live {
				liveCount++
				survivorIdx = i
			}
		}
		if liveCount != 1 {
			continue
		}

		for i := len(b.Succs) - 1; i >= 0; i-- {
			if i != survivorIdx {
				g.RemoveEdge(b, i)
			}
		}
		b.Succs[0].Kind = cfg.EdgeGoto
		b.Succs[0].HasCaseKey = false
		g.ReplaceInsns(cfg.Iterator{Block: b, Index: len(b.Insns) - 1}, ir.NewInstruction(ir.OpGoto))
		folded++
	}
	return folded
}

// analyzeBlock runs the analyzer chain over b's instructions in order,
// letting a sub-analyzer that recognizes an invoke-then-MoveResult*
// pair (BoxedBoolean's Boolean.valueOf/booleanValue fold, EnumField's
// equals fold) consume both in one step, the same adjacency the
// instructions are guaranteed to have per spec §3's MoveResult*
// invariant.
func analyzeBlock(b *cfg.Block, entry State, ctx *Context) State {
	state := entry
	for i := 0; i < len(b.Insns); i++ {
		if state.IsBottom() {
			return state
		}
		insn := b.Insns[i]
		var next *ir.Instruction
		if i+1 < len(b.Insns) {
			next = b.Insns[i+1]
		}
		newState, consumedNext, claimed := dispatch(insn, next, state, ctx)
		state = newState
		if !claimed {
			state = fallback(insn, state)
		}
		if consumedNext {
			i++
		}
	}
	return state
}

// analyzerFunc is one sub-analyzer's attempt at an instruction: given
// the instruction and (when present) the one right after it, it
// returns the updated state, whether it consumed the next instruction
// too, and whether it claimed this instruction at all.
type analyzerFunc func(insn, next *ir.Instruction, st State, ctx *Context) (newState State, consumedNext bool, claimed bool)

// analyzers runs most-specific first: the class/singleton-aware
// sub-analyzers get first refusal on Sget/Iget/Invoke* so they can
// recognize their own narrow patterns (a boxed Boolean constant, an
// enum singleton, a field of the class under analysis) before
// HeapEscape/LocalArray/Primitive fall back to the generic rule for
// whatever nothing more specific claimed. The spec lists the
// sub-analyzers without fixing a run order; this ordering is this
// package's resolution of that, recorded in DESIGN.md.
var analyzers = []analyzerFunc{
	boxedBooleanAnalyzer,
	enumFieldAnalyzer,
	clinitFieldAnalyzer,
	initFieldAnalyzer,
	heapEscapeAnalyzer,
	localArrayAnalyzer,
	primitiveAnalyzer,
}

func dispatch(insn, next *ir.Instruction, state State, ctx *Context) (State, bool, bool) {
	for _, a := range analyzers {
		if ns, consumed, ok := a(insn, next, state, ctx); ok {
			return ns, consumed, true
		}
	}
	return state, false, false
}

// fallback conservatively invalidates the destination of any
// instruction no sub-analyzer claimed.
func fallback(insn *ir.Instruction, state State) State {
	if insn.HasDst {
		return state.Set(insn.Dst, topVal())
	}
	return state
}

// primitiveAnalyzer implements spec §4.G's Primitive sub-analyzer:
// const-literal propagation, Move, and Cmp* evaluated when both
// operands are exact. It runs last, claiming every opcode it lists
// unconditionally so the chain always terminates. Binop/BinopLit/Unop
// are deliberately left unclaimed: the spec's Primitive sub-analyzer
// enumerates const/Move/MoveResult*/Cmp* only, not general arithmetic,
// so those opcodes fall through to fallback's conservative top. The
// arithmetic identities a Binop/BinopLit can satisfy unconditionally
// (regardless of the other operand's value) are peephole rewrites
// instead (spec §4.J), over internal/peephole's catalog.
func primitiveAnalyzer(insn, next *ir.Instruction, st State, ctx *Context) (State, bool, bool) {
	switch insn.Op {
	case ir.OpConst:
		return st.Set(insn.Dst, RegVal{Const: domain.Exact(insn.Literal), Null: domain.NullnessTop, Obj: domain.SingletonBottom()}), false, true
	case ir.OpConstWide:
		return st.Set(insn.Dst, topVal()), false, true
	case ir.OpConstNull:
		return st.Set(insn.Dst, RegVal{Const: domain.Exact(0), Null: domain.NullnessIsNull, Obj: domain.SingletonBottom()}), false, true
	case ir.OpConstString, ir.OpConstClass:
		return st.Set(insn.Dst, RegVal{Const: domain.Top(), Null: domain.NullnessNotNull, Obj: domain.SingletonBottom()}), false, true
	case ir.OpMove, ir.OpMoveObject:
		return st.Set(insn.Dst, st.Get(insn.Srcs[0])), false, true
	case ir.OpMoveWide:
		return st.Set(insn.Dst, topVal()), false, true
	case ir.OpMoveResult, ir.OpMoveResultWide, ir.OpMoveResultObject, ir.OpMoveResultPseudo:
		return st.Set(insn.Dst, topVal()), false, true
	case ir.OpCmp:
		return primitiveCmp(insn, st), false, true
	default:
		return st, false, false
	}
}

func primitiveCmp(insn *ir.Instruction, st State) State {
	if len(insn.Srcs) < 2 {
		return st.Set(insn.Dst, topVal())
	}
	a := st.Get(insn.Srcs[0]).Const
	b := st.Get(insn.Srcs[1]).Const
	if a.Kind != domain.SignValue || b.Kind != domain.SignValue {
		return st.Set(insn.Dst, topVal())
	}
	var cmp int64
	switch {
	case a.Value < b.Value:
		cmp = -1
	case a.Value > b.Value:
		cmp = 1
	}
	return st.Set(insn.Dst, RegVal{Const: domain.Exact(cmp), Null: domain.NullnessTop, Obj: domain.SingletonBottom()})
}

// heapEscapeAnalyzer implements spec §4.G's HeapEscape sub-analyzer:
// any instruction that hands a register off somewhere this analysis
// cannot follow (a field store, a static store, or any invoke
// argument) widens that register's array pointer, if it has one, to
// top.
func heapEscapeAnalyzer(insn, next *ir.Instruction, st State, ctx *Context) (State, bool, bool) {
	switch insn.Op {
	case ir.OpIput, ir.OpSput,
		ir.OpInvokeDirect, ir.OpInvokeStatic, ir.OpInvokeVirtual, ir.OpInvokeSuper, ir.OpInvokeInterface:
		return escapeSrcPointers(insn, st), false, true
	default:
		return st, false, false
	}
}

func escapeSrcPointers(insn *ir.Instruction, st State) State {
	heap := st.Heap
	changed := false
	for _, s := range insn.Srcs {
		if v := st.Get(s); v.HasPtr {
			heap = heap.Escape(v.Ptr)
			changed = true
		}
	}
	if !changed {
		return st
	}
	return st.SetHeap(heap)
}

// localArrayAnalyzer implements spec §4.G's LocalArray sub-analyzer.
// NewArray of a statically known, small, non-negative length mints a
// fresh pointer bound to a fresh ArraySlots entry (keyed by the
// instruction's own id, stable across fixpoint re-visits of the same
// NewArray); Aput/Aget on a known pointer and index read/write that
// slot; FillArrayData invalidates the whole array. Aput's register
// order is [value, array, index] and Aget's is dst = [array, index],
// the dex aput/aget vA, vB, vC convention.
func localArrayAnalyzer(insn, next *ir.Instruction, st State, ctx *Context) (State, bool, bool) {
	switch insn.Op {
	case ir.OpNewArray:
		return localArrayNew(insn, st), false, true
	case ir.OpAput:
		return localArrayPut(insn, st), false, true
	case ir.OpAget:
		return localArrayGet(insn, st), false, true
	case ir.OpFillArrayData:
		return localArrayFill(insn, st), false, true
	default:
		return st, false, false
	}
}

func localArrayNew(insn *ir.Instruction, st State) State {
	length := domain.Top()
	if len(insn.Srcs) > 0 {
		length = st.Get(insn.Srcs[0]).Const
	}
	if length.Kind != domain.SignValue || length.Value < 0 || length.Value > maxTrackedArrayLength {
		return st.Set(insn.Dst, topVal())
	}
	ptr := domain.Pointer(insn.GetID())
	heap := st.Heap.Set(ptr, domain.NewArraySlots(int(length.Value)))
	v := RegVal{Const: domain.Top(), Null: domain.NullnessNotNull, Obj: domain.SingletonBottom(), Ptr: ptr, HasPtr: true}
	return st.Set(insn.Dst, v).SetHeap(heap)
}

func localArrayPut(insn *ir.Instruction, st State) State {
	if len(insn.Srcs) < 3 {
		return st
	}
	valueReg, arrReg, idxReg := insn.Srcs[0], insn.Srcs[1], insn.Srcs[2]
	arr := st.Get(arrReg)
	if !arr.HasPtr {
		return st
	}
	idx := st.Get(idxReg).Const
	slots := st.Heap.Get(arr.Ptr)
	if idx.Kind != domain.SignValue || slots.IsTop() || idx.Value < 0 || int(idx.Value) >= len(slots.Slots) {
		return st.SetHeap(st.Heap.Escape(arr.Ptr))
	}
	updated := slots.With(int(idx.Value), st.Get(valueReg).Const)
	return st.SetHeap(st.Heap.Set(arr.Ptr, updated))
}

func localArrayGet(insn *ir.Instruction, st State) State {
	if len(insn.Srcs) < 2 {
		return st
	}
	arr := st.Get(insn.Srcs[0])
	if !arr.HasPtr {
		return st.Set(insn.Dst, topVal())
	}
	idx := st.Get(insn.Srcs[1]).Const
	if idx.Kind != domain.SignValue {
		return st.Set(insn.Dst, topVal())
	}
	v := st.Heap.Get(arr.Ptr).Get(int(idx.Value))
	return st.Set(insn.Dst, RegVal{Const: v, Null: domain.NullnessTop, Obj: domain.SingletonBottom()})
}

func localArrayFill(insn *ir.Instruction, st State) State {
	if len(insn.Srcs) == 0 {
		return st
	}
	arr := st.Get(insn.Srcs[0])
	if !arr.HasPtr {
		return st
	}
	return st.SetHeap(st.Heap.Escape(arr.Ptr))
}

// clinitFieldAnalyzer implements spec §4.G's ClinitField sub-analyzer,
// active only when ctx.Mode is ModeClinit: Sget/Sput of a field
// resolving to the analyzed class itself reads/writes State.Statics
// directly; a static invoke resolving back into that class widens
// every tracked field to top.
func clinitFieldAnalyzer(insn, next *ir.Instruction, st State, ctx *Context) (State, bool, bool) {
	if ctx == nil || ctx.Mode != ModeClinit || ctx.Program == nil {
		return st, false, false
	}
	switch insn.Op {
	case ir.OpSget:
		f, ok := ctx.Program.ResolveField(insn.Fld)
		if !ok || f.Owner != ctx.Method.Owner {
			return st, false, false
		}
		return st.Set(insn.Dst, RegVal{Const: st.GetStatic(insn.Fld), Null: domain.NullnessTop, Obj: domain.SingletonBottom()}), false, true
	case ir.OpSput:
		f, ok := ctx.Program.ResolveField(insn.Fld)
		if !ok || f.Owner != ctx.Method.Owner || len(insn.Srcs) == 0 {
			return st, false, false
		}
		return st.SetStatic(insn.Fld, st.Get(insn.Srcs[0]).Const), false, true
	case ir.OpInvokeStatic:
		m, ok := ctx.Program.ResolveMethod(ctx.Method, insn.Mth, ir.SearchStatic)
		if !ok || m.Owner != ctx.Method.Owner {
			return st, false, false
		}
		return st.WidenAllStatics(), false, true
	default:
		return st, false, false
	}
}

// initFieldAnalyzer implements spec §4.G's InitField sub-analyzer,
// active only when ctx.Mode is ModeInitializer: analogous to
// ClinitField but for instance fields of ctx.ThisReg, and widening on
// any instance invoke whose receiver is ctx.ThisReg. Iget/Iput's
// register order is dst = [object] and [value, object] respectively.
func initFieldAnalyzer(insn, next *ir.Instruction, st State, ctx *Context) (State, bool, bool) {
	if ctx == nil || ctx.Mode != ModeInitializer || ctx.Program == nil {
		return st, false, false
	}
	switch insn.Op {
	case ir.OpIget:
		if len(insn.Srcs) == 0 || insn.Srcs[0] != ctx.ThisReg {
			return st, false, false
		}
		f, ok := ctx.Program.ResolveField(insn.Fld)
		if !ok || f.Owner != ctx.Method.Owner {
			return st, false, false
		}
		return st.Set(insn.Dst, RegVal{Const: st.GetStatic(insn.Fld), Null: domain.NullnessTop, Obj: domain.SingletonBottom()}), false, true
	case ir.OpIput:
		if len(insn.Srcs) < 2 || insn.Srcs[1] != ctx.ThisReg {
			return st, false, false
		}
		f, ok := ctx.Program.ResolveField(insn.Fld)
		if !ok || f.Owner != ctx.Method.Owner {
			return st, false, false
		}
		return st.SetStatic(insn.Fld, st.Get(insn.Srcs[0]).Const), false, true
	case ir.OpInvokeDirect, ir.OpInvokeVirtual, ir.OpInvokeSuper, ir.OpInvokeInterface:
		if len(insn.Srcs) == 0 || insn.Srcs[0] != ctx.ThisReg {
			return st, false, false
		}
		return st.WidenAllStatics(), false, true
	default:
		return st, false, false
	}
}

// boxedBooleanAnalyzer implements spec §4.G's BoxedBoolean
// sub-analyzer: a static get of java.lang.Boolean.TRUE/FALSE is folded
// into a known boolean constant and singleton identity; a
// Boolean.valueOf(z) invoke followed by its MoveResultObject is folded
// the same way from the boolean operand; a booleanValue() invoke on a
// receiver with a known singleton is folded back to the primitive.
func boxedBooleanAnalyzer(insn, next *ir.Instruction, st State, ctx *Context) (State, bool, bool) {
	if ctx == nil || ctx.Program == nil {
		return st, false, false
	}
	switch insn.Op {
	case ir.OpSget:
		f, ok := ctx.Program.ResolveField(insn.Fld)
		if !ok || !isBooleanBoxType(ctx.Program, f.Owner) || (f.Name != "TRUE" && f.Name != "FALSE") {
			return st, false, false
		}
		var v int64
		if f.Name == "TRUE" {
			v = 1
		}
		return st.Set(insn.Dst, RegVal{Const: domain.Exact(v), Null: domain.NullnessNotNull, Obj: domain.SingletonOf(insn.Fld)}), false, true

	case ir.OpInvokeStatic:
		m, ok := ctx.Program.ResolveMethod(ctx.Method, insn.Mth, ir.SearchStatic)
		if !ok || !isBooleanBoxType(ctx.Program, m.Owner) || m.Name != "valueOf" || len(insn.Srcs) == 0 {
			return st, false, false
		}
		if next == nil || next.Op != ir.OpMoveResultObject {
			return st, false, false
		}
		boolVal := st.Get(insn.Srcs[0]).Const
		out := st.Set(next.Dst, RegVal{Const: boolVal, Null: domain.NullnessNotNull, Obj: boxedSingleton(ctx, boolVal)})
		return out, true, true

	case ir.OpInvokeVirtual:
		m, ok := ctx.Program.ResolveMethod(ctx.Method, insn.Mth, ir.SearchVirtual)
		if !ok || !isBooleanBoxType(ctx.Program, m.Owner) || m.Name != "booleanValue" || len(insn.Srcs) == 0 {
			return st, false, false
		}
		if next == nil || next.Op != ir.OpMoveResult {
			return st, false, false
		}
		receiver := st.Get(insn.Srcs[0])
		return st.Set(next.Dst, RegVal{Const: receiver.Const, Null: domain.NullnessTop, Obj: domain.SingletonBottom()}), true, true

	default:
		return st, false, false
	}
}

func isBooleanBoxType(p *ir.Program, t ir.Type) bool {
	return p.Interner.Descriptor(t) == "Ljava/lang/Boolean;"
}

func boxedSingleton(ctx *Context, v domain.SignedConstant) domain.SingletonObject {
	name := "FALSE"
	if v.Kind == domain.SignValue && v.Value != 0 {
		name = "TRUE"
	}
	boolType := ctx.Program.Interner.GetOrMakeType("Ljava/lang/Boolean;")
	f := ctx.Program.Interner.GetOrMakeFieldRef(boolType, name, boolType)
	return domain.SingletonOf(f)
}

// enumFieldAnalyzer implements spec §4.G's EnumField sub-analyzer.
// This IR model carries no "is enum" access flag, so a static field
// whose declared type is its own owner class is treated as an enum
// constant (the shape "private static final Foo A = ...;" inside Foo
// itself) -- a heuristic recorded in DESIGN.md, not a spec-given rule.
// Two such singletons compared with equals() fold to a known boolean
// via SingletonObject.Equals.
func enumFieldAnalyzer(insn, next *ir.Instruction, st State, ctx *Context) (State, bool, bool) {
	if ctx == nil || ctx.Program == nil {
		return st, false, false
	}
	switch insn.Op {
	case ir.OpSget:
		f, ok := ctx.Program.ResolveField(insn.Fld)
		if !ok || f.Type != f.Owner {
			return st, false, false
		}
		return st.Set(insn.Dst, RegVal{Const: domain.Top(), Null: domain.NullnessNotNull, Obj: domain.SingletonOf(insn.Fld)}), false, true

	case ir.OpInvokeVirtual:
		m, ok := ctx.Program.ResolveMethod(ctx.Method, insn.Mth, ir.SearchVirtual)
		if !ok || m.Name != "equals" || len(insn.Srcs) < 2 {
			return st, false, false
		}
		left := st.Get(insn.Srcs[0]).Obj
		if !left.Resolved() {
			return st, false, false
		}
		if next == nil || next.Op != ir.OpMoveResult {
			return st, false, false
		}
		right := st.Get(insn.Srcs[1]).Obj
		result, known := left.Equals(right)
		if !known {
			return st, false, false
		}
		var v int64
		if result {
			v = 1
		}
		return st.Set(next.Dst, RegVal{Const: domain.Exact(v), Null: domain.NullnessTop, Obj: domain.SingletonBottom()}), true, true

	default:
		return st, false, false
	}
}
