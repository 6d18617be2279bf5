// Package fixpoint implements spec §4.D: a generic forward monotone
// fixpoint framework over a CFG, iterated in weak topological order.
// Concrete domains (internal/domain) and analyses (internal/typeinfer,
// internal/constprop, internal/reaching, internal/dce) instantiate it
// with their own lattice element and per-node/per-edge transfer
// functions.
package fixpoint

import "redopt/internal/cfg"

// Lattice is the contract a client state type must satisfy: a join
// that is commutative, associative, and idempotent, and an equality
// test cheap enough to call once per block per iteration.
type Lattice[E any] interface {
	Bottom() E
	Join(a, b E) E
	Equal(a, b E) bool
}

// NodeAnalyzer mutates a state by running a block's instructions
// forward across it, producing the state at the block's exit.
type NodeAnalyzer[E any] func(block *cfg.Block, entryState E) E

// EdgeAnalyzer refines the state produced at an edge's source exit
// into the state the edge's target sees at entry, letting a domain
// narrow across a typed edge (e.g. a Branch out of a conditional).
// The second return value is false when the edge is statically
// unreachable under the refined state (§4.D: "the successor
// environment becomes bottom").
type EdgeAnalyzer[E any] func(edge cfg.Edge, exitState E) (E, bool)

// Iterator runs a forward monotone fixpoint over a graph's blocks in
// weak topological order (spec §4.D). It is the exported surface a
// pass instantiates: construct one, call Run, then read per-block
// entry/exit state with GetEntryStateAt / GetExitStateAt.
type Iterator[E any] struct {
	graph    *cfg.Graph
	lattice  Lattice[E]
	analyzeNode NodeAnalyzer[E]
	analyzeEdge EdgeAnalyzer[E]

	order []*cfg.Block // weak topological order, entry first

	entryState map[*cfg.Block]E
	exitState  map[*cfg.Block]E
}

// NewIterator constructs an iterator over graph using the given
// lattice and transfer functions. Run must be called before any
// GetEntryStateAt/GetExitStateAt query.
func NewIterator[E any](graph *cfg.Graph, lattice Lattice[E], node NodeAnalyzer[E], edge EdgeAnalyzer[E]) *Iterator[E] {
	return &Iterator[E]{
		graph:       graph,
		lattice:     lattice,
		analyzeNode: node,
		analyzeEdge: edge,
		order:       WeakTopologicalOrder(graph),
		entryState:  map[*cfg.Block]E{},
		exitState:   map[*cfg.Block]E{},
	}
}

// Run iterates analyze_node/analyze_edge/join to a fixed point,
// starting the entry block with initialState. Termination is
// guaranteed for monotone node/edge functions and a finite-height
// lattice (spec §4.D): no widening operator is offered here, since
// every domain layered on this framework (internal/domain) has finite
// height.
func (it *Iterator[E]) Run(initialState E) {
	if it.graph.Entry != nil {
		it.entryState[it.graph.Entry] = initialState
	}

	for {
		changed := false
		for _, b := range it.order {
			entry := it.computeEntryState(b)
			if !it.lattice.Equal(entry, it.entryState[b]) {
				it.entryState[b] = entry
				changed = true
			}

			exit := it.analyzeNode(b, it.entryState[b])
			if old, ok := it.exitState[b]; !ok || !it.lattice.Equal(exit, old) {
				it.exitState[b] = exit
				changed = true
			} else {
				it.exitState[b] = exit
			}
		}
		if !changed {
			return
		}
	}
}

// computeEntryState joins the refined exit states of every
// predecessor edge feeding b. The designated entry block additionally
// keeps whatever was seeded directly into entryState by Run.
func (it *Iterator[E]) computeEntryState(b *cfg.Block) E {
	state := it.entryState[b]
	first := b != it.graph.Entry
	for _, p := range b.Preds {
		exit, ok := it.exitState[p]
		if !ok {
			continue
		}
		for _, e := range p.Succs {
			if e.Target != b {
				continue
			}
			refined := exit
			reachable := true
			if it.analyzeEdge != nil {
				refined, reachable = it.analyzeEdge(e, exit)
			}
			if !reachable {
				continue
			}
			if first {
				state = refined
				first = false
			} else {
				state = it.lattice.Join(state, refined)
			}
		}
	}
	if first {
		return it.lattice.Bottom()
	}
	return state
}

// GetEntryStateAt returns the state computed at b's entry after Run.
func (it *Iterator[E]) GetEntryStateAt(b *cfg.Block) E { return it.entryState[b] }

// GetExitStateAt returns the state computed at b's exit after Run.
func (it *Iterator[E]) GetExitStateAt(b *cfg.Block) E { return it.exitState[b] }
