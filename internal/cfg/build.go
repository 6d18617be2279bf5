package cfg

import "redopt/internal/ir"

// activeTry tracks one nested try-region while scanning items; Catches
// is copied from the region's TryCatchMarker.
type activeTry struct {
	catches []ir.CatchEntry
}

// Build implements spec §4.C's CFG construction: partition into
// leaders, create one block per leader, then wire Goto/Branch/Throw
// edges. items is the method body's pre-CFG linear item list; target
// indices on branch instructions (Instruction.Target /
// SwitchCase.Target) refer to positions in this same slice.
func Build(method *ir.Method, items []ir.Item) *Graph {
	g := &Graph{method: method}

	leaders := computeLeaders(items)
	blocks, itemToBlock, itemToInsnIdx := partition(g, items, leaders)
	g.Blocks = blocks

	wireEdges(g, items, blocks, itemToBlock, itemToInsnIdx)

	if len(blocks) > 0 {
		g.Entry = blocks[0]
	}
	g.calculateExitBlock()
	return g
}

// computeLeaders returns the set of item indices that begin a new
// block: the first instruction, any branch target, any instruction
// following a branch/return/throw, and any try-region boundary.
func computeLeaders(items []ir.Item) map[int]bool {
	leaders := map[int]bool{}
	firstInsnIdx := -1
	for idx, it := range items {
		if it.Kind == ir.ItemInstruction {
			firstInsnIdx = idx
			break
		}
	}
	if firstInsnIdx >= 0 {
		leaders[firstInsnIdx] = true
	}

	var inTry bool
	for idx, it := range items {
		switch it.Kind {
		case ir.ItemTryStart:
			inTry = true
			if n := nextInsnIdx(items, idx); n >= 0 {
				leaders[n] = true
			}
		case ir.ItemTryEnd:
			inTry = false
			if n := nextInsnIdx(items, idx); n >= 0 {
				leaders[n] = true
			}
		case ir.ItemCatch:
			if n := nextInsnIdx(items, idx); n >= 0 {
				leaders[n] = true
			}
		case ir.ItemInstruction:
			insn := it.Insn
			if insn.Op == ir.OpGoto || insn.Op == ir.OpIf || insn.Op == ir.OpIfZ {
				if t := resolveTargetItem(items, insn.Target); t >= 0 {
					leaders[t] = true
				}
			}
			if insn.Op == ir.OpSwitch {
				for _, c := range insn.SwitchCases {
					if t := resolveTargetItem(items, c.Target); t >= 0 {
						leaders[t] = true
					}
				}
			}
			if insn.IsTerminator() {
				if n := nextInsnIdx(items, idx); n >= 0 {
					leaders[n] = true
				}
			}
		}
	}
	_ = inTry
	return leaders
}

// resolveTargetItem treats a branch Target as already being an item
// index pointing directly at an ItemInstruction.
func resolveTargetItem(items []ir.Item, target int) int {
	if target < 0 || target >= len(items) {
		return -1
	}
	if items[target].Kind == ir.ItemInstruction {
		return target
	}
	return nextInsnIdx(items, target-1)
}

func nextInsnIdx(items []ir.Item, afterIdx int) int {
	for i := afterIdx + 1; i < len(items); i++ {
		if items[i].Kind == ir.ItemInstruction {
			return i
		}
	}
	return -1
}

// partition creates one Block per leader in order, assigning every
// instruction item to the block of the nearest preceding leader.
func partition(g *Graph, items []ir.Item, leaders map[int]bool) ([]*Block, map[int]*Block, map[int]int) {
	var blocks []*Block
	itemToBlock := map[int]*Block{}
	itemToInsnIdx := map[int]int{}

	var current *Block
	for idx, it := range items {
		if it.Kind != ir.ItemInstruction {
			continue
		}
		if leaders[idx] || current == nil {
			current = &Block{id: g.nextBlockID(), graph: g}
			current.Label = blockLabel(current.id)
			blocks = append(blocks, current)
		}
		itemToInsnIdx[idx] = len(current.Insns)
		current.Insns = append(current.Insns, it.Insn)
		itemToBlock[idx] = current
	}
	return blocks, itemToBlock, itemToInsnIdx
}

func blockLabel(id int) string {
	return "B" + itoa(id)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// wireEdges adds Goto/Branch/Throw edges per spec §4.C's rules.
func wireEdges(g *Graph, items []ir.Item, blocks []*Block, itemToBlock map[int]*Block, itemToInsnIdx map[int]int) {
	// Track the active (innermost-last) try regions covering each item
	// index so every instruction inside one gets Throw edges to its
	// nearest enclosing catches.
	tryStack := []activeTry{}
	regionFor := make([]*activeTry, len(items))
	for idx, it := range items {
		switch it.Kind {
		case ir.ItemTryStart:
			marker, _ := it.Marker.(ir.TryCatchMarker)
			tryStack = append(tryStack, activeTry{catches: marker.Catches})
		case ir.ItemTryEnd:
			if len(tryStack) > 0 {
				tryStack = tryStack[:len(tryStack)-1]
			}
		}
		if len(tryStack) > 0 {
			regionFor[idx] = &tryStack[len(tryStack)-1]
		}
	}

	for bi, b := range blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		termIdx := findItemIndex(items, term)

		switch {
		case term.Op == ir.OpGoto:
			if tgt := resolveTargetItem(items, term.Target); tgt >= 0 {
				addEdge(b, Edge{Kind: EdgeGoto, Target: itemToBlock[tgt]})
			}
		case term.Op == ir.OpIf || term.Op == ir.OpIfZ:
			if tgt := resolveTargetItem(items, term.Target); tgt >= 0 {
				addEdge(b, Edge{Kind: EdgeBranch, Target: itemToBlock[tgt]})
			}
			if bi+1 < len(blocks) {
				addEdge(b, Edge{Kind: EdgeGoto, Target: blocks[bi+1]})
			}
		case term.Op == ir.OpSwitch:
			// This IR has no explicit default-case item: an unmatched key
			// always falls through to the instruction after the switch,
			// the same as a dex packed/sparse-switch with no matching
			// entry. So every Switch block gets a fallthrough Goto edge
			// in addition to one Branch edge per case.
			for _, c := range term.SwitchCases {
				if tgt := resolveTargetItem(items, c.Target); tgt >= 0 {
					addEdge(b, Edge{Kind: EdgeBranch, Target: itemToBlock[tgt], CaseKey: c.Key, HasCaseKey: true})
				}
			}
			if bi+1 < len(blocks) {
				addEdge(b, Edge{Kind: EdgeGoto, Target: blocks[bi+1]})
			}
		case !term.IsTerminator():
			if bi+1 < len(blocks) {
				addEdge(b, Edge{Kind: EdgeGoto, Target: blocks[bi+1]})
			}
		}

		// Throw edges: attach to every instruction's block inside an
		// active try region (not just the terminator), so add once per
		// block from any covered instruction, using the region
		// covering the block's terminator (blocks never straddle a
		// try-region boundary, since boundaries are leaders).
		if termIdx >= 0 && regionFor[termIdx] != nil {
			addThrowEdges(b, regionFor[termIdx].catches, itemToBlock, items)
		}
	}
}

func findItemIndex(items []ir.Item, insn *ir.Instruction) int {
	for i, it := range items {
		if it.Kind == ir.ItemInstruction && it.Insn == insn {
			return i
		}
	}
	return -1
}

func addThrowEdges(b *Block, catches []ir.CatchEntry, itemToBlock map[int]*Block, items []ir.Item) {
	for _, c := range catches {
		tgt := resolveTargetItem(items, c.TargetItem)
		if tgt < 0 {
			continue
		}
		e := Edge{Kind: EdgeThrow, Target: itemToBlock[tgt]}
		if c.Type.Valid() {
			e.ExceptionType = c.Type
		} else {
			e.IsCatchAll = true
		}
		addEdge(b, e)
	}
}

func addEdge(b *Block, e Edge) {
	e.Source = b
	b.Succs = append(b.Succs, e)
	if e.Target != nil {
		e.Target.Preds = append(e.Target.Preds, b)
	}
}

// calculateExitBlock computes the designated exit block: a synthetic
// block with no instructions, reached by a Goto edge from every block
// ending in a Return, so it post-dominates all returns per spec §3.
func (g *Graph) calculateExitBlock() {
	exit := &Block{id: g.nextBlockID(), graph: g, Label: "EXIT"}
	found := false
	for _, b := range g.Blocks {
		if term := b.Terminator(); term != nil && isReturn(term.Op) {
			addEdge(b, Edge{Kind: EdgeGoto, Target: exit})
			found = true
		}
	}
	if found {
		g.Blocks = append(g.Blocks, exit)
	}
	g.Exit = exit
}

func isReturn(op ir.Opcode) bool {
	switch op {
	case ir.OpReturnVoid, ir.OpReturn, ir.OpReturnWide, ir.OpReturnObject:
		return true
	default:
		return false
	}
}
