// Package reorder implements spec §4.L: goto folding and optional
// profile-guided chain linearization. Grounded on
// faddat-wazero's ssa/pass_block_layout.go chain/cold-block split,
// riding on internal/fixpoint's weak topological order.
package reorder

import (
	"redopt/internal/cfg"
	"redopt/internal/fixpoint"
	"redopt/internal/ir"
)

// FoldGotos implements spec §4.L's goto folding: repeatedly merge a
// block whose sole terminator is an unconditional goto into a
// single-predecessor, non-fallthrough successor, dropping the goto.
// cfg.Graph.Simplify already is exactly this rewrite; this is a named,
// pass-shaped entry point onto it. Returns whether any fold happened.
func FoldGotos(g *cfg.Graph) bool {
	return g.Simplify()
}

// BlockRates is the per-block appearance-rate annotation spec §4.L's
// profile-guided linearization reads: "a chain is cold iff the first
// source-block in it has appearance below a configured threshold in
// the selected interaction profile". internal/cfg.Build does not
// thread source-block markers through to blocks (spec places archive
// parsing and profile file formats out of scope), so the driver
// resolves each block's leading source-block marker against the
// chosen interaction profile and supplies the already-resolved rate
// here.
type BlockRates map[*cfg.Block]float64

// chain is one maximal run of blocks belonging to the same top-level
// weak-topological-order component, the unit spec §4.L's cold/hot
// split operates over ("a chain-level weak topological ordering").
type chain struct {
	blocks []*cfg.Block
}

func flattenComponent(c *fixpoint.Component) []*cfg.Block {
	out := []*cfg.Block{c.Head}
	for _, body := range c.Body {
		out = append(out, flattenComponent(body)...)
	}
	return out
}

func buildChains(g *cfg.Graph) []chain {
	components := fixpoint.Components(g)
	chains := make([]chain, 0, len(components))
	for _, c := range components {
		chains = append(chains, chain{blocks: flattenComponent(c)})
	}
	return chains
}

// isCold reports whether a chain's head block's appearance rate is
// below threshold; a block the profile never observed is treated as
// cold, the conservative default for an absent sample.
func (c chain) isCold(rates BlockRates, threshold float64) bool {
	rate, ok := rates[c.blocks[0]]
	if !ok {
		return true
	}
	return rate < threshold
}

// LinearizeProfileGuided implements spec §4.L's profile-guided
// linearization: every non-cold chain is emitted first in weak
// topological order, then every cold chain, each chain's internal
// order preserved. Any fallthrough edge crossing the hot/cold
// boundary is materialized as an explicit goto, since physical
// adjacency no longer implies fallthrough once chains are reordered.
func LinearizeProfileGuided(g *cfg.Graph, rates BlockRates, threshold float64) []ir.Item {
	chains := buildChains(g)

	var hot, cold []chain
	for _, c := range chains {
		if c.isCold(rates, threshold) {
			cold = append(cold, c)
		} else {
			hot = append(hot, c)
		}
	}

	order := make([]*cfg.Block, 0, len(g.Blocks))
	for _, c := range hot {
		order = append(order, c.blocks...)
	}
	for _, c := range cold {
		order = append(order, c.blocks...)
	}

	return emitItems(g, order)
}

// emitItems serializes blocks in order to a flat item list the way
// cfg.Graph.Linearize does, additionally materializing an explicit
// goto for any implicit-fallthrough successor that is no longer the
// next block in this (possibly reordered) order.
func emitItems(g *cfg.Graph, order []*cfg.Block) []ir.Item {
	var items []ir.Item
	for i, b := range order {
		if b == g.Exit {
			continue
		}
		for _, insn := range b.Insns {
			items = append(items, ir.Item{Kind: ir.ItemInstruction, Insn: insn})
		}
		if target, ok := fallthroughTarget(b); ok && target != g.Exit {
			if !(i+1 < len(order) && order[i+1] == target) {
				items = append(items, ir.Item{Kind: ir.ItemInstruction, Insn: ir.NewInstruction(ir.OpGoto)})
				// Target item-index bookkeeping is left to the driver's
				// re-encode step (cfg.Graph.Linearize leaves the same gap
				// today): adjacency, not a resolved Target index, is
				// authoritative coming out of this package.
			}
		}
	}
	return items
}

// fallthroughTarget returns b's sole Goto successor when it represents
// an *implicit* fallthrough that must become explicit once reordered:
// an ordinary block's Goto, or an If/Switch's companion fallthrough
// edge. An explicit `goto` terminator already carries its own target
// in the instruction stream and needs nothing synthesized.
func fallthroughTarget(b *cfg.Block) (*cfg.Block, bool) {
	term := b.Terminator()
	if term == nil || term.Op == ir.OpGoto {
		return nil, false
	}
	return b.GotoTarget()
}
