// Package boolreduce implements spec §4.N: the boolean-branch reducer.
// Diamond folding collapses an `if<z> v` whose two successors write
// `const 0` and `const 1` respectively into the same destination
// before rejoining; xor reduction collapses a chain of `xor v, 1` feeding a
// conditional into a single move or inverted test. New, riding on
// internal/reaching and internal/typeinfer the way the rest of the
// intraprocedural pass suite does.
package boolreduce

import (
	"redopt/internal/cfg"
	"redopt/internal/domain"
	"redopt/internal/ir"
	"redopt/internal/reaching"
	"redopt/internal/typeinfer"
)

// Run folds diamonds to a fixed point, then collapses xor chains to a
// fixed point, returning how many of each were rewritten.
func Run(prog *ir.Program, g *cfg.Graph, infer *typeinfer.Result) (diamonds, xors int) {
	for {
		folded := false
		for _, b := range g.Blocks {
			if foldDiamond(prog, g, b, infer) {
				diamonds++
				folded = true
				break
			}
		}
		if !folded {
			break
		}
	}
	if diamonds > 0 {
		g.RemoveUnreachableBlocks()
	}

	for {
		reach := reaching.Run(g, reaching.Plain)
		collapsed := false
		for _, b := range g.Blocks {
			if reduceXorChain(g, b, reach) {
				xors++
				collapsed = true
				break
			}
		}
		if !collapsed {
			break
		}
	}
	return diamonds, xors
}

// foldDiamond attempts the rewrite at head, the candidate `if<z>`
// block. Returns whether it fired.
func foldDiamond(prog *ir.Program, g *cfg.Graph, head *cfg.Block, infer *typeinfer.Result) bool {
	term := head.Terminator()
	if term == nil || term.Op != ir.OpIfZ {
		return false
	}
	if term.Cond != ir.CondEq && term.Cond != ir.CondNe {
		return false
	}
	if len(head.Succs) != 2 {
		return false
	}

	var branchEdge, fallEdge cfg.Edge
	var haveBranch, haveFall bool
	for _, e := range head.Succs {
		switch e.Kind {
		case cfg.EdgeBranch:
			branchEdge, haveBranch = e, true
		case cfg.EdgeGoto:
			fallEdge, haveFall = e, true
		default:
			return false
		}
	}
	if !haveBranch || !haveFall {
		return false
	}

	armTaken, armFall := branchEdge.Target, fallEdge.Target
	if armTaken == nil || armFall == nil || armTaken == armFall {
		return false
	}
	if len(armTaken.Preds) != 1 || len(armFall.Preds) != 1 {
		return false
	}

	constTaken, ok := soleConstInto(armTaken)
	if !ok {
		return false
	}
	constFall, ok := soleConstInto(armFall)
	if !ok || constFall.Dst != constTaken.Dst {
		return false
	}

	joinTaken, ok := armTaken.GotoTarget()
	if !ok {
		return false
	}
	joinFall, ok := armFall.GotoTarget()
	if !ok || joinFall != joinTaken {
		return false
	}
	join := joinTaken

	var trueVal, falseVal int64
	if term.Cond == ir.CondNe {
		trueVal, falseVal = constTaken.Literal, constFall.Literal
	} else {
		trueVal, falseVal = constFall.Literal, constTaken.Literal
	}
	if (trueVal != 0 && trueVal != 1) || (falseVal != 0 && falseVal != 1) || trueVal == falseVal {
		return false
	}
	invert := trueVal == 0

	v := term.Srcs[0]
	dst := constTaken.Dst
	states := infer.StatesAt(head)
	vType := states[len(head.Insns)-1].Get(v)

	switch {
	case vType.Integral == domain.IntegralBoolean:
		rewriteDiamondBoolean(g, head, v, dst, join, invert)
		return true
	case vType.Type.Leq(domain.IRTypeReference) && len(join.Preds) == 2:
		rewriteDiamondReference(prog, g, head, v, dst, join, invert)
		return true
	default:
		return false
	}
}

// soleConstInto returns b's single `const 0` or `const 1` instruction.
// b must contain nothing else, except an arm not physically adjacent
// to the join block needs an explicit trailing goto to reach it.
func soleConstInto(b *cfg.Block) (*ir.Instruction, bool) {
	if len(b.Insns) == 0 || len(b.Insns) > 2 {
		return nil, false
	}
	insn := b.Insns[0]
	if insn.Op != ir.OpConst || !insn.HasDst || insn.Payload != ir.PayloadLiteral {
		return nil, false
	}
	if len(b.Insns) == 2 && b.Insns[1].Op != ir.OpGoto {
		return nil, false
	}
	return insn, true
}

// rewriteDiamondBoolean replaces head's terminator with a move (or,
// inverted, an `xor v, 1`) into dst and repoints head directly at
// join, discarding the two arm blocks.
func rewriteDiamondBoolean(g *cfg.Graph, head *cfg.Block, v, dst ir.Register, join *cfg.Block, invert bool) {
	var repl *ir.Instruction
	if invert {
		repl = ir.NewInstruction(ir.OpBinopLit).SetOperator(ir.OperatorXor).SetDst(dst).SetSrcs(v).SetLiteral(1)
	} else {
		repl = ir.NewInstruction(ir.OpMove).SetDst(dst).SetSrcs(v)
	}
	spliceDiamondHead(g, head, join, repl)
}

// rewriteDiamondReference replaces head's terminator with the
// null-check-as-instanceof normalization spec §4.N describes:
// `InstanceOf v, Object; MoveResultPseudo dst` (inverted with a
// trailing `xor 1` through a temp). InstanceOf is a type-tested load,
// not a destination-bearing opcode (spec §3): its boolean lands in
// the paired MoveResultPseudo, the same adjacency typecheck relies on.
func rewriteDiamondReference(prog *ir.Program, g *cfg.Graph, head *cfg.Block, v, dst ir.Register, join *cfg.Block, invert bool) {
	object := prog.Interner.GetOrMakeType("Ljava/lang/Object;")
	if !invert {
		instOf := ir.NewInstruction(ir.OpInstanceOf).SetSrcs(v).SetType(object)
		mrp := ir.NewInstruction(ir.OpMoveResultPseudo).SetDst(dst)
		spliceDiamondHead(g, head, join, instOf, mrp)
		return
	}
	tmp := g.AllocateTemp(false)
	instOf := ir.NewInstruction(ir.OpInstanceOf).SetSrcs(v).SetType(object)
	mrp := ir.NewInstruction(ir.OpMoveResultPseudo).SetDst(tmp)
	xorInsn := ir.NewInstruction(ir.OpBinopLit).SetOperator(ir.OperatorXor).SetDst(dst).SetSrcs(tmp).SetLiteral(1)
	spliceDiamondHead(g, head, join, instOf, mrp, xorInsn)
}

// spliceDiamondHead replaces head's terminator with repl (one or more
// non-terminating instructions) and rewires head to jump straight to
// join, abandoning the two arm blocks (pruned by a later
// RemoveUnreachableBlocks call).
func spliceDiamondHead(g *cfg.Graph, head, join *cfg.Block, repl ...*ir.Instruction) {
	termIdx := len(head.Insns) - 1
	g.ReplaceInsns(cfg.Iterator{Block: head, Index: termIdx}, repl...)
	for len(head.Succs) > 0 {
		g.RemoveEdge(head, 0)
	}
	g.AddEdge(head, cfg.Edge{Kind: cfg.EdgeGoto, Target: join})
}

// reduceXorChain implements xor reduction at b, the candidate
// conditional block. Returns whether it fired.
func reduceXorChain(g *cfg.Graph, b *cfg.Block, reach *reaching.Result) bool {
	term := b.Terminator()
	if term == nil || term.Op != ir.OpIfZ {
		return false
	}
	if term.Cond != ir.CondEq && term.Cond != ir.CondNe {
		return false
	}
	chain, root, ok := collectXorChain(reach, term)
	if !ok {
		return false
	}

	term.Srcs[0] = root
	if len(chain)%2 == 1 {
		term.Cond = term.Cond.Negate()
	}
	for _, def := range chain {
		if db, di, found := g.FindInsn(def); found {
			g.RemoveInsn(cfg.Iterator{Block: db, Index: di})
		}
	}
	return true
}

// collectXorChain walks backward from cond's tested register through
// single-use `xor _, 1` defs, stopping at the first def that is not
// one (or that feeds more than this one use). Returns the chain in
// def-order (closest to cond first) and the chain's root operand.
func collectXorChain(reach *reaching.Result, cond *ir.Instruction) ([]*ir.Instruction, ir.Register, bool) {
	var chain []*ir.Instruction
	use := reaching.Use{Insn: cond, Src: 0}
	for {
		defs := reach.UseDef(use)
		if len(defs) != 1 {
			break
		}
		def := defs[0]
		if def.Op != ir.OpBinopLit || def.Operator != ir.OperatorXor || def.Payload != ir.PayloadLiteral || def.Literal != 1 {
			break
		}
		if len(reach.DefUse(def)) != 1 {
			break
		}
		chain = append(chain, def)
		use = reaching.Use{Insn: def, Src: 0}
	}
	if len(chain) == 0 {
		return nil, 0, false
	}
	root := chain[len(chain)-1].Srcs[0]
	return chain, root, true
}
