package cfg

import "redopt/internal/ir"

// CreateBlock adds a new, initially unreachable block to the graph.
// Callers wire it in with AddEdge.
func (g *Graph) CreateBlock() *Block {
	b := &Block{id: g.nextBlockID(), graph: g}
	b.Label = blockLabel(b.id)
	g.Blocks = append(g.Blocks, b)
	return b
}

// AddEdge adds edge e from b, maintaining the predecessor list on the
// target.
func (g *Graph) AddEdge(b *Block, e Edge) {
	addEdge(b, e)
}

// SetEdgeTarget repoints the i'th outgoing edge of b, fixing up both
// endpoints' adjacency lists.
func (g *Graph) SetEdgeTarget(b *Block, i int, newTarget *Block) {
	old := b.Succs[i].Target
	b.Succs[i].Target = newTarget
	if old != nil {
		removePred(old, b)
	}
	if newTarget != nil {
		newTarget.Preds = append(newTarget.Preds, b)
	}
}

// RemoveEdge removes the i'th outgoing edge of b.
func (g *Graph) RemoveEdge(b *Block, i int) {
	e := b.Succs[i]
	b.Succs = append(b.Succs[:i], b.Succs[i+1:]...)
	if e.Target != nil {
		removePred(e.Target, b)
	}
}

func removePred(b, pred *Block) {
	for i, p := range b.Preds {
		if p == pred {
			b.Preds = append(b.Preds[:i], b.Preds[i+1:]...)
			return
		}
	}
}

// Iterator addresses one instruction slot within a block, the handle
// the editable mutation API (spec §4.C) operates on.
type Iterator struct {
	Block *Block
	Index int
}

// SplitBlock splits Block at Index: instructions [Index:] move to a
// new successor block, reachable from the original via a new Goto
// edge; the new block inherits the original's other outgoing edges.
func (g *Graph) SplitBlock(it Iterator) *Block {
	b := it.Block
	tail := &Block{id: g.nextBlockID(), graph: g}
	tail.Label = blockLabel(tail.id)
	tail.Insns = append([]*ir.Instruction{}, b.Insns[it.Index:]...)
	b.Insns = b.Insns[:it.Index]

	tail.Succs = b.Succs
	for i := range tail.Succs {
		tail.Succs[i].Source = tail
		if t := tail.Succs[i].Target; t != nil {
			removePred(t, b)
			t.Preds = append(t.Preds, tail)
		}
	}
	b.Succs = nil
	addEdge(b, Edge{Kind: EdgeGoto, Target: tail})

	idx := blockIndex(g, b)
	g.Blocks = append(g.Blocks, nil)
	copy(g.Blocks[idx+2:], g.Blocks[idx+1:])
	g.Blocks[idx+1] = tail
	return tail
}

func blockIndex(g *Graph, b *Block) int {
	for i, x := range g.Blocks {
		if x == b {
			return i
		}
	}
	return -1
}

// InsertBefore inserts insns immediately before it.Index in it.Block.
func (g *Graph) InsertBefore(it Iterator, insns ...*ir.Instruction) {
	b := it.Block
	b.Insns = append(b.Insns[:it.Index], append(append([]*ir.Instruction{}, insns...), b.Insns[it.Index:]...)...)
}

// InsertAfter inserts insns immediately after it.Index in it.Block.
func (g *Graph) InsertAfter(it Iterator, insns ...*ir.Instruction) {
	g.InsertBefore(Iterator{Block: it.Block, Index: it.Index + 1}, insns...)
}

// ReplaceInsns replaces the single instruction at it with insns (zero
// or more replacements).
func (g *Graph) ReplaceInsns(it Iterator, insns ...*ir.Instruction) {
	b := it.Block
	tail := append([]*ir.Instruction{}, b.Insns[it.Index+1:]...)
	b.Insns = append(b.Insns[:it.Index], append(append([]*ir.Instruction{}, insns...), tail...)...)
}

// RemoveInsn removes the single instruction at it.
func (g *Graph) RemoveInsn(it Iterator) {
	b := it.Block
	b.Insns = append(b.Insns[:it.Index], b.Insns[it.Index+1:]...)
}

// AllocateTemp returns a fresh register beyond the current register
// count, bumping the count; wide allocates a consecutive pair.
func (g *Graph) AllocateTemp(wide bool) ir.Register {
	r := ir.Register(g.registerCount)
	g.registerCount++
	if wide {
		g.registerCount++
	}
	return r
}

// RecomputeRegistersSize scans every instruction's operands and resets
// the graph's tracked register count to one past the highest register
// index seen.
func (g *Graph) RecomputeRegistersSize() {
	max := -1
	visit := func(r ir.Register) {
		if int(r) > max {
			max = int(r)
		}
	}
	for _, b := range g.Blocks {
		for _, insn := range b.Insns {
			if insn.HasDst {
				visit(insn.Dst)
			}
			for _, s := range insn.Srcs {
				visit(s)
			}
		}
	}
	g.registerCount = max + 1
}

func (g *Graph) RegisterCount() int { return g.registerCount }

// RemoveUnreachableBlocks drops every block (other than Entry) not
// reachable from Entry by following Succs, fixing up Preds on the
// survivors (spec §8 testable property "Reachability").
func (g *Graph) RemoveUnreachableBlocks() {
	if g.Entry == nil {
		return
	}
	reachable := map[*Block]bool{}
	var visit func(*Block)
	visit = func(b *Block) {
		if reachable[b] {
			return
		}
		reachable[b] = true
		for _, e := range b.Succs {
			if e.Target != nil {
				visit(e.Target)
			}
		}
	}
	visit(g.Entry)

	var kept []*Block
	for _, b := range g.Blocks {
		if reachable[b] {
			kept = append(kept, b)
		}
	}
	for _, b := range kept {
		var preds []*Block
		for _, p := range b.Preds {
			if reachable[p] {
				preds = append(preds, p)
			}
		}
		b.Preds = preds
	}
	g.Blocks = kept
}

// Simplify merges any chain that has become trivially joinable after a
// mutation: a block whose sole successor is an unconditional Goto to a
// block with exactly one predecessor that ends in a terminator (a
// successor that would fall through implicitly is left alone). The
// merged block's trailing goto instruction, if any, is dropped. This
// is the same rewrite
// internal/reorder's goto-folding performs as a dedicated pass;
// Simplify exists so other mutation-heavy passes (throw propagation,
// block splitting) can clean up immediately without depending on
// internal/reorder.
func (g *Graph) Simplify() bool {
	changed := false
	for {
		progressed := false
		for _, b := range g.Blocks {
			if len(b.Succs) != 1 || b.Succs[0].Kind != EdgeGoto {
				continue
			}
			target := b.Succs[0].Target
			if target == nil || target == b || len(target.Preds) != 1 || target == g.Exit {
				continue
			}
			if tt := target.Terminator(); tt == nil || !tt.IsTerminator() {
				continue
			}
			if n := len(b.Insns); n > 0 && b.Insns[n-1].Op == ir.OpGoto {
				b.Insns = b.Insns[:n-1]
			}
			b.Insns = append(b.Insns, target.Insns...)
			b.Succs = target.Succs
			for i := range b.Succs {
				b.Succs[i].Source = b
				if t := b.Succs[i].Target; t != nil {
					removePred(t, target)
					t.Preds = append(t.Preds, b)
				}
			}
			g.removeBlock(target)
			progressed = true
			changed = true
			break
		}
		if !progressed {
			break
		}
	}
	return changed
}

func (g *Graph) removeBlock(b *Block) {
	for i, x := range g.Blocks {
		if x == b {
			g.Blocks = append(g.Blocks[:i], g.Blocks[i+1:]...)
			return
		}
	}
}
