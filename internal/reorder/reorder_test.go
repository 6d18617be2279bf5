package reorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redopt/internal/cfg"
	"redopt/internal/ir"
)

// TestFoldGotosMergesChainOfSinglePredecessorBlocks reproduces spec §8
// scenario 6: three blocks A -> goto B -> goto C, each with a single
// predecessor from the previous. After folding, one block holds all
// three original non-goto instructions in order, both gotos gone.
func TestFoldGotosMergesChainOfSinglePredecessorBlocks(t *testing.T) {
	a0 := ir.NewInstruction(ir.OpConst).SetDst(0).SetLiteral(1)
	gotoB := ir.NewInstruction(ir.OpGoto)
	b0 := ir.NewInstruction(ir.OpConst).SetDst(1).SetLiteral(2)
	gotoC := ir.NewInstruction(ir.OpGoto)
	c0 := ir.NewInstruction(ir.OpReturnVoid)

	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: a0},
		{Kind: ir.ItemInstruction, Insn: gotoB},
		{Kind: ir.ItemInstruction, Insn: b0},
		{Kind: ir.ItemInstruction, Insn: gotoC},
		{Kind: ir.ItemInstruction, Insn: c0},
	}
	gotoB.Target = 2
	gotoC.Target = 4

	g := cfg.Build(nil, items)
	require.Len(t, g.Entry.Preds, 0)

	changed := FoldGotos(g)
	assert.True(t, changed)

	// Only the entry block and the synthetic exit should remain.
	assert.Len(t, g.Blocks, 2)
	assert.Equal(t, []*ir.Instruction{a0, b0, c0}, g.Entry.Insns)
}

func TestFoldGotosNoOpOnAlreadyFolded(t *testing.T) {
	ret := ir.NewInstruction(ir.OpReturnVoid)
	items := []ir.Item{{Kind: ir.ItemInstruction, Insn: ret}}
	g := cfg.Build(nil, items)

	assert.False(t, FoldGotos(g))
}

// TestLinearizeProfileGuidedOrdersHotBeforeColdAndInsertsGoto builds
// entry --branch--> tail, entry --(implicit fallthrough)--> armB
// --(explicit goto)--> tail. armB is cold and tail is hot, so the
// profile-guided order pulls tail ahead of armB; entry's implicit
// fallthrough to armB, no longer physically adjacent, must become an
// explicit goto, while armB's already-explicit goto needs no help.
func TestLinearizeProfileGuidedOrdersHotBeforeColdAndInsertsGoto(t *testing.T) {
	ifz := ir.NewInstruction(ir.OpIfZ).SetSrcs(0)
	armB := ir.NewInstruction(ir.OpConst).SetDst(1).SetLiteral(2)
	gotoTail := ir.NewInstruction(ir.OpGoto)
	tail := ir.NewInstruction(ir.OpReturn).SetSrcs(1)

	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: ifz},
		{Kind: ir.ItemInstruction, Insn: armB},
		{Kind: ir.ItemInstruction, Insn: gotoTail},
		{Kind: ir.ItemInstruction, Insn: tail},
	}
	ifz.Target = 3    // branch (taken) -> tail directly
	gotoTail.Target = 3 // armB's own explicit goto -> tail
	g := cfg.Build(nil, items)

	entryBlock, _, ok := g.FindInsn(ifz)
	require.True(t, ok)
	armBBlock, _, ok := g.FindInsn(armB)
	require.True(t, ok)
	tailBlock, _, ok := g.FindInsn(tail)
	require.True(t, ok)

	rates := BlockRates{
		entryBlock: 1.0,
		armBBlock:  0.0,
		tailBlock:  1.0,
	}

	out := LinearizeProfileGuided(g, rates, 0.5)

	ifzIdx, armBIdx, tailIdx := -1, -1, -1
	for i, it := range out {
		switch it.Insn {
		case ifz:
			ifzIdx = i
		case armB:
			armBIdx = i
		case tail:
			tailIdx = i
		}
	}
	require.True(t, ifzIdx >= 0 && armBIdx >= 0 && tailIdx >= 0)
	assert.True(t, tailIdx < armBIdx, "hot tail chain must be emitted before the cold armB chain")

	require.Less(t, ifzIdx+1, len(out), "a synthesized goto must follow the branch's fallthrough instruction")
	synthesized := out[ifzIdx+1].Insn
	assert.Equal(t, ir.OpGoto, synthesized.Op)
	assert.NotSame(t, gotoTail, synthesized, "the synthesized goto must be distinct from armB's own explicit goto")
}
