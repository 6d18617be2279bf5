package throwprop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redopt/internal/cfg"
	"redopt/internal/ir"
)

func newCallee(in *ir.Interner, name string) ir.MethodRef {
	owner := in.GetOrMakeType("LThrower;")
	proto := in.GetOrMakeProto(in.GetOrMakeType("V"), nil)
	return in.GetOrMakeMethodRef(owner, name, proto)
}

// TestRunSplitsAndSynthesizesThrowAfterNonReturningInvoke reproduces the
// case where a call to a method that never returns normally is
// followed by live-looking code: the fall-through is unreachable, so
// Run splits the block and appends a synthesized throw, pruning the
// old continuation.
func TestRunSplitsAndSynthesizesThrowAfterNonReturningInvoke(t *testing.T) {
	in := ir.NewInterner()
	fail := newCallee(in, "fail")

	invoke := ir.NewInstruction(ir.OpInvokeStatic).SetMethod(fail)
	dead := ir.NewInstruction(ir.OpConst).SetDst(0).SetLiteral(5)
	ret := ir.NewInstruction(ir.OpReturn).SetSrcs(0)
	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: invoke},
		{Kind: ir.ItemInstruction, Insn: dead},
		{Kind: ir.ItemInstruction, Insn: ret},
	}
	g := cfg.Build(nil, items)

	nonReturning := func(ref ir.MethodRef) bool { return ref == fail }
	rewritten := Run(g, nonReturning)
	assert.Equal(t, 1, rewritten)

	_, _, foundDead := g.FindInsn(dead)
	assert.False(t, foundDead, "unreachable continuation must be pruned")

	invokeBlock, invokeIdx, ok := g.FindInsn(invoke)
	require.True(t, ok)
	require.Len(t, invokeBlock.Insns, invokeIdx+1, "invoke must be the block's last instruction")
	require.Len(t, invokeBlock.Succs, 1)
	require.Equal(t, cfg.EdgeGoto, invokeBlock.Succs[0].Kind)

	tail := invokeBlock.Succs[0].Target
	require.Len(t, tail.Insns, 2)
	assert.Equal(t, ir.OpConst, tail.Insns[0].Op)
	assert.Equal(t, ir.OpThrow, tail.Insns[1].Op)
	assert.Equal(t, []ir.Register{tail.Insns[0].Dst}, tail.Insns[1].Srcs)
}

// TestRunDoesNothingWhenInvokeAlreadyFallsIntoThrow covers step 1's
// guard: a non-returning invoke immediately followed by an explicit
// throw needs no synthesized continuation.
func TestRunDoesNothingWhenInvokeAlreadyFallsIntoThrow(t *testing.T) {
	in := ir.NewInterner()
	fail := newCallee(in, "fail")

	invoke := ir.NewInstruction(ir.OpInvokeStatic).SetMethod(fail)
	throwInsn := ir.NewInstruction(ir.OpThrow).SetSrcs(0)
	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: invoke},
		{Kind: ir.ItemInstruction, Insn: throwInsn},
	}
	g := cfg.Build(nil, items)
	blocksBefore := len(g.Blocks)

	nonReturning := func(ref ir.MethodRef) bool { return ref == fail }
	rewritten := Run(g, nonReturning)

	assert.Equal(t, 0, rewritten)
	assert.Len(t, g.Blocks, blocksBefore)
	assert.Same(t, throwInsn, g.Entry.Insns[len(g.Entry.Insns)-1])
}

// TestRunDoesNothingWhenInvokeFallsIntoAnotherNonReturningCall covers
// the "known non-returning construction" clause of step 1.
func TestRunDoesNothingWhenInvokeFallsIntoAnotherNonReturningCall(t *testing.T) {
	in := ir.NewInterner()
	fail := newCallee(in, "fail")

	first := ir.NewInstruction(ir.OpInvokeStatic).SetMethod(fail)
	second := ir.NewInstruction(ir.OpInvokeStatic).SetMethod(fail)
	items := []ir.Item{
		{Kind: ir.ItemInstruction, Insn: first},
		{Kind: ir.ItemInstruction, Insn: second},
	}
	g := cfg.Build(nil, items)

	nonReturning := func(ref ir.MethodRef) bool { return ref == fail }
	rewritten := Run(g, nonReturning)

	assert.Equal(t, 0, rewritten)
	assert.Same(t, second, g.Entry.Insns[len(g.Entry.Insns)-1])
}
