// Package throwprop implements spec §4.M: throw propagation. When an
// invoke's callee is known to never return normally (every path
// through it ends in a throw or another non-returning call), the
// instruction immediately following the invoke is unreachable; this
// pass makes that explicit by splitting the block and appending a
// synthesized throw, the way a caller can later lean on for further
// dead-code elimination. Grounded on
// original_source/libredex/ThrowPropagationImpl.{h,cpp}.
package throwprop

import (
	"redopt/internal/cfg"
	"redopt/internal/ir"
)

// NonReturningPredicate reports whether the method ref's callee is
// known to never return normally. The driver supplies this, typically
// derived once per callee from its own CFG (every leaf either throws
// or calls another non-returning method) before Run walks callers.
type NonReturningPredicate func(ref ir.MethodRef) bool

// Run rewrites every invoke of a non-returning method whose
// fall-through is not already dead, splitting the containing block and
// appending a synthesized `const 0; throw` tail. Returns the number of
// invokes rewritten.
func Run(g *cfg.Graph, nonReturning NonReturningPredicate) int {
	rewritten := 0
	for _, b := range g.Blocks {
		for i := 0; i < len(b.Insns); i++ {
			insn := b.Insns[i]
			if !isInvoke(insn.Op) || !nonReturning(insn.Mth) {
				continue
			}
			if alreadyTerminates(b, i, nonReturning) {
				continue
			}
			runOnce(g, b, i)
			rewritten++
		}
	}
	if rewritten > 0 {
		g.RemoveUnreachableBlocks()
		g.RecomputeRegistersSize()
	}
	return rewritten
}

// alreadyTerminates implements step 1: do nothing if the next
// reachable instruction (following gotos) is already a throw, another
// non-returning invoke, or unresolvable (including a goto-only cycle,
// conservatively treated the same as a loop).
func alreadyTerminates(b *cfg.Block, i int, nonReturning NonReturningPredicate) bool {
	next, ok := cfg.NextFollowingGotos(cfg.Iterator{Block: b, Index: i})
	if !ok {
		return true
	}
	if next.Op == ir.OpThrow {
		return true
	}
	if isInvoke(next.Op) && nonReturning(next.Mth) {
		return true
	}
	return false
}

// runOnce implements step 2: split b right after the invoke at i,
// detach the new tail's inherited throw-edges onto a fresh block
// carrying `const 0; throw v_temp`, and point b at it instead of the
// tail.
func runOnce(g *cfg.Graph, b *cfg.Block, i int) {
	tail := g.SplitBlock(cfg.Iterator{Block: b, Index: i + 1})
	g.RemoveEdge(b, 0)

	x := g.CreateBlock()
	for idx := 0; idx < len(tail.Succs); {
		if tail.Succs[idx].Kind != cfg.EdgeThrow {
			idx++
			continue
		}
		e := tail.Succs[idx]
		g.RemoveEdge(tail, idx)
		g.AddEdge(x, e)
	}

	temp := g.AllocateTemp(false)
	x.Insns = []*ir.Instruction{
		ir.NewInstruction(ir.OpConst).SetDst(temp).SetLiteral(0),
		ir.NewInstruction(ir.OpThrow).SetSrcs(temp),
	}
	g.AddEdge(b, cfg.Edge{Kind: cfg.EdgeGoto, Target: x})
}

func isInvoke(op ir.Opcode) bool {
	switch op {
	case ir.OpInvokeDirect, ir.OpInvokeStatic, ir.OpInvokeVirtual, ir.OpInvokeSuper, ir.OpInvokeInterface:
		return true
	default:
		return false
	}
}
