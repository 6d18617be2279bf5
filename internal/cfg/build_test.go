package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redopt/internal/ir"
)

// straightLineItems builds a trivial 3-instruction straight-line method body:
// const v0, #1; const v1, #2; return-void
func straightLineItems() []ir.Item {
	i0 := ir.NewInstruction(ir.OpConst).SetDst(0).SetLiteral(1)
	i1 := ir.NewInstruction(ir.OpConst).SetDst(1).SetLiteral(2)
	i2 := ir.NewInstruction(ir.OpReturnVoid)
	return []ir.Item{
		{Kind: ir.ItemInstruction, Insn: i0},
		{Kind: ir.ItemInstruction, Insn: i1},
		{Kind: ir.ItemInstruction, Insn: i2},
	}
}

func TestBuildStraightLineSingleBlock(t *testing.T) {
	items := straightLineItems()
	g := Build(nil, items)

	require.Len(t, g.Blocks, 2, "one real block plus the synthetic exit")
	assert.Len(t, g.Blocks[0].Insns, 3)
	assert.Equal(t, g.Entry, g.Blocks[0])
}

// branching builds: if-eqz v0, L2; const v1,#1; goto L3; L2: const v1,#2; L3: return-void
func branchingItems() ([]ir.Item, *ir.Instruction, *ir.Instruction) {
	ifz := ir.NewInstruction(ir.OpIfZ).SetSrcs(0)
	trueBranch := ir.NewInstruction(ir.OpConst).SetDst(1).SetLiteral(1)
	gotoEnd := ir.NewInstruction(ir.OpGoto)
	falseBranch := ir.NewInstruction(ir.OpConst).SetDst(1).SetLiteral(2)
	ret := ir.NewInstruction(ir.OpReturnVoid)

	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: ifz},
		{Kind: ir.ItemInstruction, Insn: trueBranch},
		{Kind: ir.ItemInstruction, Insn: gotoEnd},
		{Kind: ir.ItemInstruction, Insn: falseBranch},
		{Kind: ir.ItemInstruction, Insn: ret},
	}
	ifz.Target = 3   // jumps to falseBranch
	gotoEnd.Target = 4 // jumps to ret
	return items, ifz, ret
}

func TestBuildConditionalBranchHasTwoEdges(t *testing.T) {
	items, ifz, _ := branchingItems()
	g := Build(nil, items)

	entry, _, ok := g.FindInsn(ifz)
	require.True(t, ok)
	require.Len(t, entry.Succs, 2)

	kinds := map[EdgeKind]int{}
	for _, e := range entry.Succs {
		kinds[e.Kind]++
	}
	assert.Equal(t, 1, kinds[EdgeBranch])
	assert.Equal(t, 1, kinds[EdgeGoto])
}

func TestBuildProducesReachableBlocksOnly(t *testing.T) {
	items, _, _ := branchingItems()
	g := Build(nil, items)

	for _, b := range g.Blocks {
		if b == g.Entry {
			continue
		}
		assert.NotEmpty(t, b.Preds, "block %s should have a predecessor", b.Label)
	}
}

func TestCalculateExitBlockPostDominatesReturns(t *testing.T) {
	items := straightLineItems()
	g := Build(nil, items)
	require.NotNil(t, g.Exit)

	foundEdgeToExit := false
	for _, e := range g.Blocks[0].Succs {
		if e.Target == g.Exit {
			foundEdgeToExit = true
		}
	}
	assert.True(t, foundEdgeToExit)
}

func TestThrowEdgesCoverTryRegion(t *testing.T) {
	call := ir.NewInstruction(ir.OpInvokeStatic)
	moveResult := ir.NewInstruction(ir.OpMoveResultPseudo)
	ret := ir.NewInstruction(ir.OpReturnVoid)
	handlerNop := ir.NewInstruction(ir.OpNop)
	handlerRet := ir.NewInstruction(ir.OpReturnVoid)

	items := []ir.Item{
		{Kind: ir.ItemTryStart, Marker: ir.TryCatchMarker{Catches: []ir.CatchEntry{{TargetItem: 5}}}},
		{Kind: ir.ItemInstruction, Insn: call},
		{Kind: ir.ItemInstruction, Insn: moveResult},
		{Kind: ir.ItemTryEnd},
		{Kind: ir.ItemInstruction, Insn: ret},
		{Kind: ir.ItemInstruction, Insn: handlerNop},
		{Kind: ir.ItemInstruction, Insn: handlerRet},
	}

	g := Build(nil, items)
	b, _, ok := g.FindInsn(call)
	require.True(t, ok)

	throws := b.ThrowTargets()
	require.Len(t, throws, 1)
	assert.True(t, throws[0].IsCatchAll)
}
