// Package reaching implements spec §4.H: a per-register forward
// fixpoint over the set of defining instructions reaching each use,
// in a plain and a move-aware variant, riding on internal/fixpoint.
package reaching

import (
	"redopt/internal/cfg"
	"redopt/internal/fixpoint"
	"redopt/internal/ir"
)

// Mode selects whether a Move instruction introduces a new definition
// (Plain) or propagates the definitions of its source register
// (MoveAware, spec §4.H: "a chain of moves does not create new defs").
type Mode int

const (
	Plain Mode = iota
	MoveAware
)

// defSet is a per-register set of defining instructions, represented
// as a map for value semantics under Go's comparison and copy rules.
type defSet map[*ir.Instruction]bool

func unionDefSets(a, b defSet) defSet {
	out := make(defSet, len(a)+len(b))
	for d := range a {
		out[d] = true
	}
	for d := range b {
		out[d] = true
	}
	return out
}

func equalDefSets(a, b defSet) bool {
	if len(a) != len(b) {
		return false
	}
	for d := range a {
		if !b[d] {
			return false
		}
	}
	return true
}

// Env maps each register to the set of instructions whose definition
// of it may reach this program point.
type Env struct {
	regs map[ir.Register]defSet
}

func emptyEnv() Env { return Env{regs: map[ir.Register]defSet{}} }

func (e Env) Get(r ir.Register) defSet {
	if s, ok := e.regs[r]; ok {
		return s
	}
	return nil
}

func (e Env) set(r ir.Register, s defSet) Env {
	out := Env{regs: make(map[ir.Register]defSet, len(e.regs)+1)}
	for k, v := range e.regs {
		out.regs[k] = v
	}
	out.regs[r] = s
	return out
}

type envLattice struct{}

func (envLattice) Bottom() Env { return emptyEnv() }

func (envLattice) Join(a, b Env) Env {
	out := emptyEnv()
	seen := map[ir.Register]bool{}
	for r, s := range a.regs {
		seen[r] = true
		out.regs[r] = unionDefSets(s, b.Get(r))
	}
	for r, s := range b.regs {
		if !seen[r] {
			out.regs[r] = s
		}
	}
	return out
}

func (envLattice) Equal(a, b Env) bool {
	if len(a.regs) != len(b.regs) {
		return false
	}
	for r, s := range a.regs {
		if !equalDefSets(s, b.Get(r)) {
			return false
		}
	}
	return true
}

// Use is a (instruction, source-index) pair naming one read of a
// register (spec §4.H).
type Use struct {
	Insn *ir.Instruction
	Src  int
}

// Result holds the derived def-use and use-def maps, computed once
// after the fixpoint by re-walking every instruction.
type Result struct {
	mode  Mode
	it    *fixpoint.Iterator[Env]
	defUse map[*ir.Instruction][]Use
	useDef map[Use][]*ir.Instruction
}

func (r *Result) DefUse(def *ir.Instruction) []Use { return r.defUse[def] }
func (r *Result) UseDef(u Use) []*ir.Instruction   { return r.useDef[u] }

// Run computes reaching definitions over g in the given mode and
// derives the def-use/use-def maps in a single post-fixpoint walk.
func Run(g *cfg.Graph, mode Mode) *Result {
	node := func(b *cfg.Block, entry Env) Env {
		return analyzeBlock(b, entry, mode)
	}
	edge := func(e cfg.Edge, exit Env) (Env, bool) { return exit, true }

	it := fixpoint.NewIterator[Env](g, envLattice{}, node, edge)
	it.Run(emptyEnv())

	r := &Result{mode: mode, it: it, defUse: map[*ir.Instruction][]Use{}, useDef: map[Use][]*ir.Instruction{}}
	r.derive(g)
	return r
}

func analyzeBlock(b *cfg.Block, entry Env, mode Mode) Env {
	state := entry
	for _, insn := range b.Insns {
		state = analyzeInstruction(insn, state, mode)
	}
	return state
}

func analyzeInstruction(insn *ir.Instruction, state Env, mode Mode) Env {
	if !insn.HasDst {
		return state
	}
	if mode == MoveAware && isMove(insn.Op) && len(insn.Srcs) == 1 {
		return state.set(insn.Dst, state.Get(insn.Srcs[0]))
	}
	return state.set(insn.Dst, defSet{insn: true})
}

func isMove(op ir.Opcode) bool {
	switch op {
	case ir.OpMove, ir.OpMoveWide, ir.OpMoveObject:
		return true
	default:
		return false
	}
}

// derive re-walks every instruction with its entry environment,
// recording each source operand's reaching defs into both maps.
func (r *Result) derive(g *cfg.Graph) {
	for _, b := range g.Blocks {
		state := r.it.GetEntryStateAt(b)
		for _, insn := range b.Insns {
			for i, src := range insn.Srcs {
				defs := state.Get(src)
				u := Use{Insn: insn, Src: i}
				for d := range defs {
					r.useDef[u] = append(r.useDef[u], d)
					r.defUse[d] = append(r.defUse[d], u)
				}
			}
			state = analyzeInstruction(insn, state, r.mode)
		}
	}
}
