package fixpoint

import "redopt/internal/cfg"

// Component is one node of a weak topological ordering (Bourdoncle):
// either a single block (Head set, Body empty) or a strongly
// connected component headed by Head with its nested ordering in
// Body.
type Component struct {
	Head *cfg.Block
	Body []*Component
}

// WeakTopologicalOrder computes a flat iteration order over g's
// blocks reachable from Entry: every loop head is visited before the
// rest of its component, and nested loop heads appear before their
// own nested bodies (spec §4.D, "the iterator uses a weak topological
// ordering of the CFG"). Blocks that recur inside a loop appear once
// per textual position in the order; Iterator.Run re-scans the full
// order on every outer pass until no block's state changes, so a
// flattened order is sufficient for correctness independent of how
// deeply loops are nested.
func WeakTopologicalOrder(g *cfg.Graph) []*cfg.Block {
	return flatten(Components(g))
}

// Components computes the same weak topological order as
// WeakTopologicalOrder but returns the un-flattened top-level
// partition instead of a single flat slice, letting chain-level
// passes (internal/reorder's profile-guided linearization, spec
// §4.L's "chain-level weak topological ordering") treat each
// top-level Component as one chain instead of re-deriving chain
// boundaries from the flattened block list.
func Components(g *cfg.Graph) []*Component {
	if g.Entry == nil {
		return nil
	}
	b := &wtoBuilder{
		dfn: map[*cfg.Block]int{},
	}
	var partition []*Component
	b.visit(g.Entry, &partition)
	return partition
}

func flatten(components []*Component) []*cfg.Block {
	var out []*cfg.Block
	for _, c := range components {
		out = append(out, c.Head)
		out = append(out, flatten(c.Body)...)
	}
	return out
}

const wtoInfinity = int(^uint(0) >> 1)

type wtoBuilder struct {
	dfn   map[*cfg.Block]int
	num   int
	stack []*cfg.Block
}

// visit implements Bourdoncle's recursive component construction,
// prepending completed components onto partition as it unwinds.
func (b *wtoBuilder) visit(v *cfg.Block, partition *[]*Component) int {
	b.stack = append(b.stack, v)
	b.num++
	b.dfn[v] = b.num
	head := b.dfn[v]
	loop := false

	for _, e := range v.Succs {
		w := e.Target
		if w == nil {
			continue
		}
		var min int
		if b.dfn[w] == 0 {
			min = b.visit(w, partition)
		} else {
			min = b.dfn[w]
		}
		if min <= head {
			head = min
			loop = true
		}
	}

	if head == b.dfn[v] {
		b.dfn[v] = wtoInfinity
		element := b.pop()
		if loop {
			for element != v {
				b.dfn[element] = 0
				element = b.pop()
			}
			*partition = prepend(*partition, b.component(v, partition))
		} else {
			*partition = prepend(*partition, &Component{Head: v})
		}
	} else {
		b.stack = append(b.stack, v)
	}
	return head
}

// component builds the nested body of the SCC headed by head: every
// successor of head or of an already-included member that has not yet
// been assigned to a component is recursively visited.
func (b *wtoBuilder) component(head *cfg.Block, outer *[]*Component) *Component {
	var body []*Component
	for _, e := range head.Succs {
		w := e.Target
		if w != nil && b.dfn[w] == 0 {
			b.visit(w, &body)
		}
	}
	return &Component{Head: head, Body: body}
}

func (b *wtoBuilder) pop() *cfg.Block {
	n := len(b.stack)
	v := b.stack[n-1]
	b.stack = b.stack[:n-1]
	return v
}

func prepend(list []*Component, c *Component) []*Component {
	return append([]*Component{c}, list...)
}
