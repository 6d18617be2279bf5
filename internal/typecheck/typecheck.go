// Package typecheck implements spec §4.K: evaluating InstanceOf and
// CheckCast instructions against type-inference's best-known source
// type, and rewriting the ones whose outcome is statically decidable.
// Grounded on original_source/libredex/TypeUtil.cpp's check_cast
// semantics, riding on internal/typeinfer for the source type and
// internal/reaching for the InstanceOf-consumer search.
package typecheck

import (
	"redopt/internal/cfg"
	"redopt/internal/ir"
	"redopt/internal/reaching"
	"redopt/internal/typeinfer"
)

// Verdict is the outcome of evaluating check_cast(T_src, T_test).
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictAlwaysSucceed
	VerdictAlwaysFail
)

// Evaluate implements spec §4.K step 3. srcType may be the zero
// (invalid) ir.Type when type inference has no reference type on
// file for the register, in which case the result is always Unknown.
func Evaluate(prog *ir.Program, srcType, testType ir.Type) Verdict {
	if !srcType.Valid() || !testType.Valid() {
		return VerdictUnknown
	}
	if srcType == testType || prog.Interner.Descriptor(testType) == "Ljava/lang/Object;" {
		return VerdictAlwaysSucceed
	}
	if !isInternalNonInterface(prog, srcType) || !isInternalNonInterface(prog, testType) {
		return VerdictUnknown
	}
	// prog.Subtype(parent, child) holds iff child <: parent.
	if prog.Subtype(testType, srcType) { // T_src <: T_test
		return VerdictAlwaysSucceed
	}
	if !prog.Subtype(srcType, testType) { // T_test is not <: T_src either
		return VerdictAlwaysFail
	}
	return VerdictUnknown
}

func isInternalNonInterface(prog *ir.Program, t ir.Type) bool {
	c, ok := prog.Class(t)
	return ok && !c.External && !c.Access.Has(ir.AccInterface)
}

// Run evaluates every InstanceOf/CheckCast in g and rewrites the ones
// with a decidable verdict, per spec §4.K steps 4-7. It returns the
// number of rewrites applied. The caller is responsible for the
// "re-shrink" step (constant-prop + copy-prop + local DCE) spec §4.K
// says follows rewriting; this package does not schedule it.
func Run(prog *ir.Program, g *cfg.Graph, infer *typeinfer.Result) int {
	rewrites := 0
	reach := reaching.Run(g, reaching.MoveAware)

	for _, b := range g.Blocks {
		for {
			states := infer.StatesAt(b)
			changed := false
			for i := 0; i < len(b.Insns); i++ {
				insn := b.Insns[i]
				if i+1 >= len(b.Insns) || b.Insns[i+1].Op != ir.OpMoveResultPseudo {
					continue
				}
				moveResult := b.Insns[i+1]
				switch insn.Op {
				case ir.OpInstanceOf:
					if rewriteInstanceOf(prog, g, b, i, insn, moveResult, states[i], reach) {
						rewrites++
						changed = true
					}
				case ir.OpCheckCast:
					if rewriteCheckCast(prog, g, b, i, insn, moveResult, states[i]) {
						rewrites++
						changed = true
					}
				}
				if changed {
					break
				}
			}
			if !changed {
				break
			}
		}
	}
	return rewrites
}

func rewriteInstanceOf(prog *ir.Program, g *cfg.Graph, b *cfg.Block, i int, insn, moveResult *ir.Instruction, state typeinfer.Env, reach *reaching.Result) bool {
	srcReg := insn.Srcs[0]
	verdict := Evaluate(prog, state.Get(srcReg).RefType, insn.Cls)
	switch verdict {
	case VerdictAlwaysSucceed:
		return foldInstanceOfTrue(g, b, i, insn, moveResult, srcReg, reach)
	case VerdictAlwaysFail:
		g.ReplaceInsns(cfg.Iterator{Block: b, Index: i + 1}, ir.NewInstruction(ir.OpConst).SetDst(moveResult.Dst).SetLiteral(0))
		g.RemoveInsn(cfg.Iterator{Block: b, Index: i})
		return true
	default:
		return false
	}
}

// foldInstanceOfTrue implements spec §4.K step 4: if the InstanceOf's
// boolean result (carried by its trailing MoveResultPseudo) is
// consumed by exactly one conditional IfZ (eq/ne) and every other use
// is a move, rewrite the conditional to test the original object
// register directly and delete both the InstanceOf and its
// MoveResultPseudo. Move-aware reaching analysis already attributes a
// move chain's ultimate consumer back to this def, so the "all
// intermediate uses are moves" condition reduces to: among this def's
// recorded uses, every non-move use is the same single conditional.
func foldInstanceOfTrue(g *cfg.Graph, b *cfg.Block, i int, insn, moveResult *ir.Instruction, srcReg ir.Register, reach *reaching.Result) bool {
	var conditional *ir.Instruction
	for _, u := range reach.DefUse(moveResult) {
		if isMoveInsn(u.Insn) {
			continue
		}
		if conditional != nil {
			return false
		}
		conditional = u.Insn
	}
	if conditional == nil || conditional.Op != ir.OpIfZ {
		return false
	}
	if conditional.Cond != ir.CondEq && conditional.Cond != ir.CondNe {
		return false
	}
	conditional.Srcs[0] = srcReg
	g.RemoveInsn(cfg.Iterator{Block: b, Index: i + 1})
	g.RemoveInsn(cfg.Iterator{Block: b, Index: i})
	return true
}

func isMoveInsn(insn *ir.Instruction) bool {
	switch insn.Op {
	case ir.OpMove, ir.OpMoveWide, ir.OpMoveObject:
		return true
	default:
		return false
	}
}

// rewriteCheckCast implements spec §4.K steps 6-7. CheckCast is a
// type-tested load: its own instruction carries no destination, the
// cast value reaches its consumers through the trailing
// MoveResultPseudo (spec §3's MoveResult* adjacency invariant).
// "Success" rewrites that MoveResultPseudo into a genuine move of the
// source register to the destination (step 6's "rewrite to a move of
// source to destination") and drops the now-redundant CheckCast.
// "Failure" replaces the destination with const 0, per step 7.
func rewriteCheckCast(prog *ir.Program, g *cfg.Graph, b *cfg.Block, i int, insn, moveResult *ir.Instruction, state typeinfer.Env) bool {
	srcReg := insn.Srcs[0]
	verdict := Evaluate(prog, state.Get(srcReg).RefType, insn.Cls)
	switch verdict {
	case VerdictAlwaysSucceed:
		g.ReplaceInsns(cfg.Iterator{Block: b, Index: i + 1}, ir.NewInstruction(ir.OpMoveObject).SetDst(moveResult.Dst).SetSrcs(srcReg))
		g.RemoveInsn(cfg.Iterator{Block: b, Index: i})
		return true
	case VerdictAlwaysFail:
		g.ReplaceInsns(cfg.Iterator{Block: b, Index: i + 1}, ir.NewInstruction(ir.OpConst).SetDst(moveResult.Dst).SetLiteral(0))
		g.RemoveInsn(cfg.Iterator{Block: b, Index: i})
		return true
	default:
		return false
	}
}
