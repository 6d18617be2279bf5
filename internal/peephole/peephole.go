package peephole

import (
	"redopt/internal/cfg"
	"redopt/internal/ir"
	"redopt/internal/peephole/langdsl"
)

// Rule is one catalog entry: a pattern to match, an optional extra
// guard over the bound match (for checks the pattern grammar cannot
// express, e.g. "this invoke's callee is java.lang.StringBuilder's
// append"), and a builder producing the replacement instructions.
// Predicate may be nil (pattern match alone is sufficient).
type Rule struct {
	Name      string
	Pattern   *langdsl.Pattern
	Predicate func(m *Match) bool
	Build     func(m *Match) []*ir.Instruction
}

// Run applies every rule in catalog across g to a fixed point,
// returning the number of rewrites performed. Each successful rewrite
// restarts the scan of its containing block from position 0, since a
// rewrite can expose a new match starting earlier than where it fired
// (e.g. folding a StringBuilder chain one link at a time).
func Run(prog *ir.Program, g *cfg.Graph, catalog []Rule) int {
	total := 0
	for _, b := range g.Blocks {
		total += runBlock(prog, g, b, catalog)
	}
	return total
}

func runBlock(prog *ir.Program, g *cfg.Graph, b *cfg.Block, catalog []Rule) int {
	rewrites := 0
	for {
		applied := false
		for i := 0; i < len(b.Insns); i++ {
			for _, rule := range catalog {
				m, ok := tryMatch(prog, rule.Pattern, b, i)
				if !ok {
					continue
				}
				if rule.Predicate != nil && !rule.Predicate(m) {
					continue
				}
				repl := rule.Build(m)
				applyMatch(g, b, i, len(m.Insns), repl)
				rewrites++
				applied = true
				break
			}
			if applied {
				break
			}
		}
		if !applied {
			break
		}
	}
	return rewrites
}

// applyMatch replaces the matchLen instructions starting at i with
// repl. cfg.Graph.ReplaceInsns only swaps a single slot, so the
// trailing matched instructions (if any) are first dropped one at a
// time before the remaining slot is replaced with the full repl list.
func applyMatch(g *cfg.Graph, b *cfg.Block, i, matchLen int, repl []*ir.Instruction) {
	for k := 1; k < matchLen; k++ {
		g.RemoveInsn(cfg.Iterator{Block: b, Index: i + 1})
	}
	g.ReplaceInsns(cfg.Iterator{Block: b, Index: i}, repl...)
}

// Run performs no dead-code elimination of its own: per the recorded
// decision, DCE-after-peephole is the driver's job (an explicit Run
// then dce.Run call), not something hidden inside this package.
