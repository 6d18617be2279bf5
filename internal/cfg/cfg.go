// Package cfg implements spec §3/§4.C: the control-flow graph over a
// method body's instruction stream, its editable mutation API, and
// linearization back to a flat item list.
package cfg

import "redopt/internal/ir"

// EdgeKind tags the three edge flavors spec §3 names.
type EdgeKind int

const (
	EdgeGoto EdgeKind = iota
	EdgeBranch
	EdgeThrow
)

// Edge is one outgoing transfer from a block.
type Edge struct {
	Kind   EdgeKind
	Source *Block
	Target *Block

	// CaseKey is set for a Branch edge out of a Switch, carrying the
	// case value it corresponds to.
	CaseKey    int64
	HasCaseKey bool

	// ExceptionType is set for a Throw edge; the zero Type means a
	// catch-all edge (spec §3: "a catch-all edge, if present, is last").
	ExceptionType ir.Type
	IsCatchAll    bool
}

// Block is spec §3's basic block: a maximal straight-line instruction
// sequence ending in exactly one terminator (or an explicit Goto
// representing fallthrough).
type Block struct {
	id    int
	Label string

	Insns []*ir.Instruction

	Preds []*Block
	Succs []Edge

	graph *Graph
}

func (b *Block) ID() int { return b.id }

// Terminator returns the block's last instruction, or nil for an
// (illegal, but queryable) empty block.
func (b *Block) Terminator() *ir.Instruction {
	if len(b.Insns) == 0 {
		return nil
	}
	return b.Insns[len(b.Insns)-1]
}

// OutEdges returns the block's outgoing edges by kind, preserving
// insertion order (Branch cases in switch-case order, catch-all last
// for Throw edges per spec §3).
func (b *Block) OutEdges() []Edge { return b.Succs }

// GotoTarget returns the sole Goto successor, if any.
func (b *Block) GotoTarget() (*Block, bool) {
	for _, e := range b.Succs {
		if e.Kind == EdgeGoto {
			return e.Target, true
		}
	}
	return nil, false
}

// ThrowTargets returns the block's Throw edges in catch order.
func (b *Block) ThrowTargets() []Edge {
	var out []Edge
	for _, e := range b.Succs {
		if e.Kind == EdgeThrow {
			out = append(out, e)
		}
	}
	return out
}

// Graph is spec §3's CFG: owns a set of Blocks, a designated Entry
// (the first block Build creates; LoadParam instructions are not split
// into a block of their own, so Entry may also hold ordinary
// instructions), and a computed Exit that
// post-dominates every return.
type Graph struct {
	Blocks []*Block
	Entry  *Block
	Exit   *Block

	method        *ir.Method // owning method, for diagnostics
	blockIDSeq    int
	registerCount int
}

func (g *Graph) nextBlockID() int {
	id := g.blockIDSeq
	g.blockIDSeq++
	return id
}

// FindInsn locates the block and index containing insn, or ok=false.
func (g *Graph) FindInsn(insn *ir.Instruction) (block *Block, index int, ok bool) {
	for _, b := range g.Blocks {
		for i, candidate := range b.Insns {
			if candidate == insn {
				return b, i, true
			}
		}
	}
	return nil, 0, false
}
