package boolreduce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redopt/internal/cfg"
	"redopt/internal/domain"
	"redopt/internal/ir"
	"redopt/internal/reaching"
	"redopt/internal/typeinfer"
)

// buildDiamond constructs: ifz v .cond -> armTaken; armFall: const
// dst,falseLit; goto join; armTaken: const dst,trueLit (falls through
// to join). Mirrors the shape spec §4.N's diamond folding targets.
func buildDiamond(cond ir.Condition, trueLit, falseLit int64) (*cfg.Graph, *ir.Instruction) {
	ifz := ir.NewInstruction(ir.OpIfZ).SetSrcs(0).SetCond(cond)
	constFall := ir.NewInstruction(ir.OpConst).SetDst(1).SetLiteral(falseLit)
	gotoJoin := ir.NewInstruction(ir.OpGoto)
	constTaken := ir.NewInstruction(ir.OpConst).SetDst(1).SetLiteral(trueLit)
	join := ir.NewInstruction(ir.OpReturn).SetSrcs(1)

	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: ifz},
		{Kind: ir.ItemInstruction, Insn: constFall},
		{Kind: ir.ItemInstruction, Insn: gotoJoin},
		{Kind: ir.ItemInstruction, Insn: constTaken},
		{Kind: ir.ItemInstruction, Insn: join},
	}
	ifz.Target = 3
	gotoJoin.Target = 4

	g := cfg.Build(nil, items)
	return g, join
}

func TestFoldDiamondBooleanNonInvertedMovesOperand(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	g, join := buildDiamond(ir.CondNe, 1, 0)

	infer := typeinfer.Run(g, map[ir.Register]typeinfer.RegisterType{
		0: {Type: domain.IRTypeInt, Integral: domain.IntegralBoolean},
	})

	diamonds, xors := Run(prog, g, infer)
	assert.Equal(t, 1, diamonds)
	assert.Equal(t, 0, xors)

	require.Len(t, g.Entry.Insns, 1)
	moveInsn := g.Entry.Insns[0]
	assert.Equal(t, ir.OpMove, moveInsn.Op)
	assert.Equal(t, ir.Register(1), moveInsn.Dst)
	assert.Equal(t, []ir.Register{0}, moveInsn.Srcs)

	require.Len(t, g.Entry.Succs, 1)
	assert.Equal(t, cfg.EdgeGoto, g.Entry.Succs[0].Kind)
	assert.Same(t, join, g.Entry.Succs[0].Target.Insns[0])
}

func TestFoldDiamondBooleanInvertedXorsOperand(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	// cond Eq: taken (armTaken, literal 1) happens when v == 0 (false);
	// fallthrough (armFall, literal 0) happens when v != 0 (true), so
	// dst = !v.
	g, _ := buildDiamond(ir.CondEq, 1, 0)

	infer := typeinfer.Run(g, map[ir.Register]typeinfer.RegisterType{
		0: {Type: domain.IRTypeInt, Integral: domain.IntegralBoolean},
	})

	diamonds, _ := Run(prog, g, infer)
	assert.Equal(t, 1, diamonds)

	require.Len(t, g.Entry.Insns, 1)
	xorInsn := g.Entry.Insns[0]
	assert.Equal(t, ir.OpBinopLit, xorInsn.Op)
	assert.Equal(t, ir.OperatorXor, xorInsn.Operator)
	assert.Equal(t, int64(1), xorInsn.Literal)
	assert.Equal(t, []ir.Register{0}, xorInsn.Srcs)
}

func TestFoldDiamondReferenceNonInvertedInsertsInstanceOfObject(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	g, _ := buildDiamond(ir.CondNe, 1, 0)

	object := in.GetOrMakeType("Ljava/lang/Object;")
	infer := typeinfer.Run(g, map[ir.Register]typeinfer.RegisterType{
		0: {Type: domain.IRTypeReference},
	})

	diamonds, _ := Run(prog, g, infer)
	assert.Equal(t, 1, diamonds)

	require.Len(t, g.Entry.Insns, 2)
	insn := g.Entry.Insns[0]
	assert.Equal(t, ir.OpInstanceOf, insn.Op)
	assert.False(t, insn.HasDst)
	assert.Equal(t, object, insn.Cls)

	mrp := g.Entry.Insns[1]
	assert.Equal(t, ir.OpMoveResultPseudo, mrp.Op)
	assert.Equal(t, ir.Register(1), mrp.Dst)
}

// TestReduceXorChainOddCollapsesToMoveAndInvertedCond reproduces an
// odd-length chain (a single xor v,1) feeding an eqz test: the chain
// collapses to testing v directly with the condition negated.
func TestReduceXorChainOddCollapsesToMoveAndInvertedCond(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)

	xorInsn := ir.NewInstruction(ir.OpBinopLit).SetOperator(ir.OperatorXor).SetDst(1).SetSrcs(0).SetLiteral(1)
	ifz := ir.NewInstruction(ir.OpIfZ).SetSrcs(1).SetCond(ir.CondEq)
	fallRet := ir.NewInstruction(ir.OpReturnVoid)
	branchRet := ir.NewInstruction(ir.OpReturnVoid)

	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: xorInsn},
		{Kind: ir.ItemInstruction, Insn: ifz},
		{Kind: ir.ItemInstruction, Insn: fallRet},
		{Kind: ir.ItemInstruction, Insn: branchRet},
	}
	ifz.Target = 3
	g := cfg.Build(nil, items)

	_, xors := Run(prog, g, nil)
	assert.Equal(t, 1, xors)

	assert.Equal(t, []ir.Register{0}, ifz.Srcs)
	assert.Equal(t, ir.CondNe, ifz.Cond)
	_, _, found := g.FindInsn(xorInsn)
	assert.False(t, found, "the collapsed xor must be removed")
}

func TestReduceXorChainStopsAtMultiUseDef(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	_ = in

	xorInsn := ir.NewInstruction(ir.OpBinopLit).SetOperator(ir.OperatorXor).SetDst(1).SetSrcs(0).SetLiteral(1)
	otherUse := ir.NewInstruction(ir.OpMonitorEnter).SetSrcs(1)
	ifz := ir.NewInstruction(ir.OpIfZ).SetSrcs(1).SetCond(ir.CondEq)
	fallRet := ir.NewInstruction(ir.OpReturnVoid)
	branchRet := ir.NewInstruction(ir.OpReturnVoid)

	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: xorInsn},
		{Kind: ir.ItemInstruction, Insn: otherUse},
		{Kind: ir.ItemInstruction, Insn: ifz},
		{Kind: ir.ItemInstruction, Insn: fallRet},
		{Kind: ir.ItemInstruction, Insn: branchRet},
	}
	ifz.Target = 4
	g := cfg.Build(nil, items)

	reach := reaching.Run(g, reaching.Plain)
	chain, _, ok := collectXorChain(reach, ifz)
	assert.False(t, ok, "a def with more than one use must not be collapsed")
	assert.Nil(t, chain)

	_, xors := Run(prog, g, nil)
	assert.Equal(t, 0, xors)
}
