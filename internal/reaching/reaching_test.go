package reaching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redopt/internal/cfg"
	"redopt/internal/ir"
)

func TestPlainModeTreatsMoveAsNewDef(t *testing.T) {
	c0 := ir.NewInstruction(ir.OpConst).SetDst(0).SetLiteral(1)
	mv := ir.NewInstruction(ir.OpMove).SetDst(1).SetSrcs(0)
	use := ir.NewInstruction(ir.OpReturn).SetSrcs(1)
	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: c0},
		{Kind: ir.ItemInstruction, Insn: mv},
		{Kind: ir.ItemInstruction, Insn: use},
	}
	g := cfg.Build(nil, items)

	r := Run(g, Plain)
	defs := r.UseDef(Use{Insn: use, Src: 0})
	require.Len(t, defs, 1)
	assert.Same(t, mv, defs[0])
}

func TestMoveAwareChainsThroughMoves(t *testing.T) {
	c0 := ir.NewInstruction(ir.OpConst).SetDst(0).SetLiteral(1)
	mv := ir.NewInstruction(ir.OpMove).SetDst(1).SetSrcs(0)
	use := ir.NewInstruction(ir.OpReturn).SetSrcs(1)
	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: c0},
		{Kind: ir.ItemInstruction, Insn: mv},
		{Kind: ir.ItemInstruction, Insn: use},
	}
	g := cfg.Build(nil, items)

	r := Run(g, MoveAware)
	defs := r.UseDef(Use{Insn: use, Src: 0})
	require.Len(t, defs, 1)
	assert.Same(t, c0, defs[0])
}

func TestDefUseIsInverseOfUseDef(t *testing.T) {
	c0 := ir.NewInstruction(ir.OpConst).SetDst(0).SetLiteral(1)
	use1 := ir.NewInstruction(ir.OpReturn).SetSrcs(0)
	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: c0},
		{Kind: ir.ItemInstruction, Insn: use1},
	}
	g := cfg.Build(nil, items)

	r := Run(g, Plain)
	uses := r.DefUse(c0)
	require.Len(t, uses, 1)
	assert.Same(t, use1, uses[0].Insn)
}

func TestJoinAtMergePointUnionsBothDefs(t *testing.T) {
	ifz := ir.NewInstruction(ir.OpIfZ).SetSrcs(0)
	leftDef := ir.NewInstruction(ir.OpConst).SetDst(1).SetLiteral(1)
	gotoEnd := ir.NewInstruction(ir.OpGoto)
	rightDef := ir.NewInstruction(ir.OpConst).SetDst(1).SetLiteral(2)
	use := ir.NewInstruction(ir.OpReturn).SetSrcs(1)

	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: ifz},
		{Kind: ir.ItemInstruction, Insn: leftDef},
		{Kind: ir.ItemInstruction, Insn: gotoEnd},
		{Kind: ir.ItemInstruction, Insn: rightDef},
		{Kind: ir.ItemInstruction, Insn: use},
	}
	ifz.Target = 3
	gotoEnd.Target = 4
	g := cfg.Build(nil, items)

	r := Run(g, Plain)
	defs := r.UseDef(Use{Insn: use, Src: 0})
	assert.Len(t, defs, 2)
}
