package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redopt/internal/cfg"
	"redopt/internal/ir"
	"redopt/internal/typeinfer"
)

func newHierarchy() (*ir.Program, ir.Type, ir.Type) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)

	object := in.GetOrMakeType("Ljava/lang/Object;")
	foo := in.GetOrMakeType("LFoo;")
	bar := in.GetOrMakeType("LBar;")

	prog.AddClass(&ir.Class{Type: object})
	prog.AddClass(&ir.Class{Type: foo, Super: object, HasSuper: true})
	prog.AddClass(&ir.Class{Type: bar, Super: foo, HasSuper: true})
	return prog, foo, bar
}

func TestEvaluateSubtypeAlwaysSucceeds(t *testing.T) {
	prog, foo, bar := newHierarchy()
	assert.Equal(t, VerdictAlwaysSucceed, Evaluate(prog, bar, foo))
}

func TestEvaluateUnrelatedInternalClassesAlwaysFail(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	object := in.GetOrMakeType("Ljava/lang/Object;")
	a := in.GetOrMakeType("LA;")
	b := in.GetOrMakeType("LB;")
	prog.AddClass(&ir.Class{Type: object})
	prog.AddClass(&ir.Class{Type: a, Super: object, HasSuper: true})
	prog.AddClass(&ir.Class{Type: b, Super: object, HasSuper: true})

	assert.Equal(t, VerdictAlwaysFail, Evaluate(prog, a, b))
}

func TestEvaluateExternalClassIsUnknown(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	foo := in.GetOrMakeType("LFoo;")
	ext := in.GetOrMakeType("LExternal;")
	prog.AddClass(&ir.Class{Type: foo})
	prog.AddClass(&ir.Class{Type: ext, External: true})

	assert.Equal(t, VerdictUnknown, Evaluate(prog, foo, ext))
}

// TestRunFoldsTriviallyTrueInstanceOfFeedingBranch reproduces spec §8
// scenario 4: v0 typed Bar <: Foo; v1 = instance-of v0, Foo; if-eqz v1,
// L_false. After Run, the InstanceOf is gone and the branch tests v0
// directly.
func TestRunFoldsTriviallyTrueInstanceOfFeedingBranch(t *testing.T) {
	prog, foo, bar := newHierarchy()

	loadParam := ir.NewInstruction(ir.OpLoadParamObject).SetDst(0)
	instanceOf := ir.NewInstruction(ir.OpInstanceOf).SetSrcs(0).SetType(foo)
	moveResult := ir.NewInstruction(ir.OpMoveResultPseudo).SetDst(1)
	branch := ir.NewInstruction(ir.OpIfZ).SetSrcs(1).SetCond(ir.CondEq)
	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: loadParam},
		{Kind: ir.ItemInstruction, Insn: instanceOf},
		{Kind: ir.ItemInstruction, Insn: moveResult},
		{Kind: ir.ItemInstruction, Insn: branch},
	}
	g := cfg.Build(nil, items)

	infer := typeinfer.Run(g, map[ir.Register]typeinfer.RegisterType{
		0: {Type: 0, RefType: bar}, // Type lattice value unused by this test
	})

	rewrites := Run(prog, g, infer)
	assert.Equal(t, 1, rewrites)

	for _, insn := range g.Entry.Insns {
		assert.NotSame(t, instanceOf, insn)
		assert.NotSame(t, moveResult, insn)
	}
	assert.Equal(t, []ir.Register{0}, branch.Srcs, "branch must now test the object register directly")
}

// TestRunRewritesAlwaysSucceedingCheckCastToMove reproduces a
// provably-redundant check-cast: v0 typed Bar, cast to Foo (a
// supertype). Run must rewrite the trailing MoveResultPseudo into a
// move of v0 straight into its destination and drop the CheckCast.
func TestRunRewritesAlwaysSucceedingCheckCastToMove(t *testing.T) {
	prog, foo, bar := newHierarchy()

	loadParam := ir.NewInstruction(ir.OpLoadParamObject).SetDst(0)
	checkCast := ir.NewInstruction(ir.OpCheckCast).SetSrcs(0).SetType(foo)
	moveResult := ir.NewInstruction(ir.OpMoveResultPseudo).SetDst(1)
	ret := ir.NewInstruction(ir.OpReturnObject).SetSrcs(1)
	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: loadParam},
		{Kind: ir.ItemInstruction, Insn: checkCast},
		{Kind: ir.ItemInstruction, Insn: moveResult},
		{Kind: ir.ItemInstruction, Insn: ret},
	}
	g := cfg.Build(nil, items)

	infer := typeinfer.Run(g, map[ir.Register]typeinfer.RegisterType{
		0: {Type: 0, RefType: bar},
	})

	rewrites := Run(prog, g, infer)
	assert.Equal(t, 1, rewrites)

	for _, insn := range g.Entry.Insns {
		assert.NotSame(t, checkCast, insn)
	}
	require.Len(t, g.Entry.Insns, 3)
	moved := g.Entry.Insns[1]
	assert.Equal(t, ir.OpMoveObject, moved.Op)
	assert.Equal(t, ir.Register(1), moved.Dst)
	assert.Equal(t, []ir.Register{0}, moved.Srcs)
}
