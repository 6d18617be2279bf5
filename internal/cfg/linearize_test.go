package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redopt/internal/ir"
)

func TestLinearizeDropsExitAndPreservesOrder(t *testing.T) {
	items := straightLineItems()
	g := Build(nil, items)

	out := g.Linearize()
	require.Len(t, out, 3)
	for _, it := range out {
		assert.Equal(t, ir.ItemInstruction, it.Kind)
	}
	assert.Equal(t, ir.OpConst, out[0].Insn.Op)
	assert.Equal(t, ir.OpReturnVoid, out[2].Insn.Op)
}

func TestRoundTripBuildLinearizeBuildPreservesBlockCount(t *testing.T) {
	items, _, _ := branchingItems()
	g1 := Build(nil, items)
	relinearized := g1.Linearize()

	g2 := Build(nil, relinearized)

	assert.Equal(t, len(g1.Blocks), len(g2.Blocks))
	assert.Equal(t, len(g1.Blocks[0].Succs), len(g2.Blocks[0].Succs))
}

func TestNextFollowingGotosCrossesEmptyBlocks(t *testing.T) {
	gotoInsn := ir.NewInstruction(ir.OpGoto)
	target := ir.NewInstruction(ir.OpReturnVoid)
	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: gotoInsn},
		{Kind: ir.ItemInstruction, Insn: target},
	}
	gotoInsn.Target = 1
	g := Build(nil, items)

	b, idx, ok := g.FindInsn(gotoInsn)
	require.True(t, ok)

	next, ok := NextFollowingGotos(Iterator{Block: b, Index: idx})
	require.True(t, ok)
	assert.Same(t, target, next)
}

func TestNextFollowingGotosTerminatesOnCycle(t *testing.T) {
	g := &Graph{}
	b1 := g.CreateBlock()
	b2 := g.CreateBlock()
	g.AddEdge(b1, Edge{Kind: EdgeGoto, Target: b2})
	g.AddEdge(b2, Edge{Kind: EdgeGoto, Target: b1})

	_, ok := NextFollowingGotos(Iterator{Block: b1, Index: -1})
	assert.False(t, ok)
}
