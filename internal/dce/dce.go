// Package dce implements spec §4.I: backward liveness-based local
// dead-code elimination over a bit-vector of registers plus one
// "result" bit, with a caller-supplied purity table. Structured as
// the two-phase reachability-then-liveness pass kanso's
// DeadCodeElimination uses (internal/ir/optimizations.go), generalized
// from SSA-value liveness to per-register backward bit-vector
// liveness.
package dce

import (
	"redopt/internal/cfg"
	"redopt/internal/ir"
)

// PureMethods is the caller-supplied set of methods known to have no
// observable side effects, keyed by their MethodRef (spec §4.I: "The
// pure set is caller-supplied... extensible by the driver").
type PureMethods map[ir.MethodRef]bool

// NewPureMethods seeds a minimal pure set; the driver extends it with
// AddMethod.
func NewPureMethods() PureMethods { return PureMethods{} }

func (p PureMethods) AddMethod(m ir.MethodRef) { p[m] = true }
func (p PureMethods) Contains(m ir.MethodRef) bool { return p[m] }

// liveSet is a per-block bit-vector over registers plus the result
// bit, represented as a set for simplicity; register liveness is
// sparse in practice.
type liveSet struct {
	regs   map[ir.Register]bool
	result bool
}

func emptyLive() liveSet { return liveSet{regs: map[ir.Register]bool{}} }

func (l liveSet) clone() liveSet {
	out := liveSet{regs: make(map[ir.Register]bool, len(l.regs)), result: l.result}
	for r := range l.regs {
		out.regs[r] = true
	}
	return out
}

func (l liveSet) union(other liveSet) liveSet {
	out := l.clone()
	for r := range other.regs {
		out.regs[r] = true
	}
	if other.result {
		out.result = true
	}
	return out
}

func (l liveSet) equal(other liveSet) bool {
	if l.result != other.result || len(l.regs) != len(other.regs) {
		return false
	}
	for r := range l.regs {
		if !other.regs[r] {
			return false
		}
	}
	return true
}

// Run performs the liveness fixpoint over g and removes every
// non-required instruction, MoveResult*/producer pairs together, and
// unreachable blocks, then recomputes the register count. It returns
// the number of instructions removed.
func Run(g *cfg.Graph, pure PureMethods) int {
	live := computeLiveness(g)
	removed := sweep(g, live, pure)
	g.RemoveUnreachableBlocks()
	g.RecomputeRegistersSize()
	return removed
}

// computeLiveness runs the backward fixpoint to a stable point and
// returns each block's live-out set: the state at the boundary
// between the block and its successors, i.e. the union of every
// successor's live-in (spec §4.I: "Per-block join over successors:
// union"; "Initial exit-state: empty").
func computeLiveness(g *cfg.Graph) map[*cfg.Block]liveSet {
	liveIn := map[*cfg.Block]liveSet{}
	for _, b := range g.Blocks {
		liveIn[b] = emptyLive()
	}

	for {
		changed := false
		for i := len(g.Blocks) - 1; i >= 0; i-- {
			b := g.Blocks[i]
			out := emptyLive()
			for _, e := range b.Succs {
				if e.Target != nil {
					out = out.union(liveIn[e.Target])
				}
			}
			in := backwardWalk(b, out)
			if !in.equal(liveIn[b]) {
				liveIn[b] = in
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	liveOut := map[*cfg.Block]liveSet{}
	for _, b := range g.Blocks {
		out := emptyLive()
		for _, e := range b.Succs {
			if e.Target != nil {
				out = out.union(liveIn[e.Target])
			}
		}
		liveOut[b] = out
	}
	return liveOut
}

// backwardWalk runs the per-instruction liveness transfer over b in
// reverse, starting from exitState (the state after b's last
// instruction), returning the state before b's first instruction
// (its live-in).
func backwardWalk(b *cfg.Block, exitState liveSet) liveSet {
	state := exitState.clone()
	for i := len(b.Insns) - 1; i >= 0; i-- {
		state = transfer(b.Insns[i], state)
	}
	return state
}

// transfer applies one instruction's backward liveness rule (spec
// §4.I): Return* reads its source; a destination kills before the
// instruction's own sources are marked live; invokes/FilledNewArray/
// move-result-producers kill the result bit; MoveResult* reads the
// result bit and kills its destination.
func transfer(insn *ir.Instruction, state liveSet) liveSet {
	out := state.clone()

	switch insn.Op {
	case ir.OpMoveResult, ir.OpMoveResultWide, ir.OpMoveResultObject, ir.OpMoveResultPseudo:
		delete(out.regs, insn.Dst)
		out.result = true
		return out
	}

	if insn.HasDst {
		delete(out.regs, insn.Dst)
	}
	if insn.ProducesResult() {
		out.result = false
	}
	for _, s := range insn.Srcs {
		out.regs[s] = true
	}
	return out
}

// required reports whether insn must be kept: it has observable side
// effects, its destination is live, or (for a result-producer) the
// result bit is live.
func required(insn *ir.Instruction, liveAfter liveSet) bool {
	if insn.HasSideEffects() {
		return true
	}
	if insn.HasDst {
		return liveAfter.regs[insn.Dst]
	}
	if insn.ProducesResult() {
		return liveAfter.result
	}
	return false
}

func isInvoke(op ir.Opcode) bool {
	switch op {
	case ir.OpInvokeDirect, ir.OpInvokeStatic, ir.OpInvokeVirtual, ir.OpInvokeSuper, ir.OpInvokeInterface:
		return true
	default:
		return false
	}
}

// sweep removes non-required instructions block by block, walking in
// reverse so each decision sees the already-decided suffix. A
// MoveResult* is decided purely on its own destination's liveness.
// CheckCast and any other HasSideEffects producer are always kept
// regardless of result liveness (save for the pure-invoke carve-out,
// checked first since a pure invoke also reports HasSideEffects). A
// result producer with no side effects of its own -- FilledNewArray,
// InstanceOf (spec §4.I: "required only if its result is live") -- is
// decided by whether its MoveResult* survived, not by
// the generic liveAfter.result bit: transfer's MoveResult* case sets
// that bit unconditionally (so a later pass can still see "a result
// crosses here" even when the consumer itself turns out dead), so a
// side-effect-free producer must instead ask directly whether its
// specific consumer was kept. NewInstance is not a result producer: it
// carries its own destination and is decided by that register's
// liveness like any other instruction. MoveResult* and its producer are
// adjacent by construction (spec §3's MoveResult* adjacency
// invariant), so b.Insns[i+1] is always the consumer when present.
func sweep(g *cfg.Graph, liveOut map[*cfg.Block]liveSet, pure PureMethods) int {
	removed := 0
	for _, b := range g.Blocks {
		state := liveOut[b].clone()
		keep := make([]bool, len(b.Insns))
		for i := len(b.Insns) - 1; i >= 0; i-- {
			insn := b.Insns[i]
			switch {
			case isMoveResult(insn.Op):
				keep[i] = insn.HasDst && state.regs[insn.Dst]
			case isInvoke(insn.Op) && pure.Contains(insn.Mth):
				keep[i] = i+1 < len(b.Insns) && isMoveResult(b.Insns[i+1].Op) && keep[i+1]
			case insn.HasSideEffects():
				keep[i] = true
			case insn.ProducesResult():
				keep[i] = i+1 < len(b.Insns) && isMoveResult(b.Insns[i+1].Op) && keep[i+1]
			default:
				keep[i] = required(insn, state)
			}
			state = transfer(insn, state)
		}

		var survivors []*ir.Instruction
		for i, insn := range b.Insns {
			if keep[i] {
				survivors = append(survivors, insn)
			} else {
				removed++
			}
		}
		b.Insns = survivors
	}
	return removed
}

func isMoveResult(op ir.Opcode) bool {
	switch op {
	case ir.OpMoveResult, ir.OpMoveResultWide, ir.OpMoveResultObject, ir.OpMoveResultPseudo:
		return true
	default:
		return false
	}
}
