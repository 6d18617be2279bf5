package ir

import "sync"

// Program is the IR model root: every interned entity plus every
// known class, internal or external (spec §3's "Lifecycle": "The IR
// model is constructed once at process start by the external parser").
type Program struct {
	Interner *Interner

	mu      sync.RWMutex
	classes map[Type]*Class
}

func NewProgram(in *Interner) *Program {
	return &Program{Interner: in, classes: make(map[Type]*Class)}
}

// AddClass registers a class. Structural changes (adding/removing
// classes or methods) are batched between passes per spec §5 and must
// not race with an in-flight pass.
func (p *Program) AddClass(c *Class) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.classes[c.Type] = c
}

// Class looks up a class by type, returning (nil, false) if unknown to
// this Program (neither internal nor external) -- the "unresolved
// reference" case of spec §7.
func (p *Program) Class(t Type) (*Class, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.classes[t]
	return c, ok
}

// Classes returns a stable snapshot of all registered classes, the
// basis for a pass Scope (spec §6).
func (p *Program) Classes() []*Class {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Class, 0, len(p.classes))
	for _, c := range p.classes {
		out = append(out, c)
	}
	return out
}

// AllMethods returns every method (direct + virtual) declared across
// every class, in class-then-direct-then-virtual order. This is the
// non-parallel, non-accumulating walker of spec §4.A; internal/pass
// layers parallel/accumulating variants on top.
func (p *Program) AllMethods() []*Method {
	var out []*Method
	for _, c := range p.Classes() {
		out = append(out, c.DirectMethods...)
		out = append(out, c.VirtualMethods...)
	}
	return out
}

// AllFields returns every static + instance field declared across
// every class.
func (p *Program) AllFields() []*Field {
	var out []*Field
	for _, c := range p.Classes() {
		out = append(out, c.StaticFields...)
		out = append(out, c.InstanceFields...)
	}
	return out
}

// AllOpcodes walks every instruction in every built-or-linear method
// body and invokes visit once per instruction, the opcode-level walker
// of spec §4.A.
func (p *Program) AllOpcodes(visit func(m *Method, insn *Instruction)) {
	for _, m := range p.AllMethods() {
		if m.Body == nil {
			continue
		}
		items := m.Body.Items
		if m.Body.HasCFG() {
			items = m.Body.CFG().Linearize()
		}
		for _, it := range items {
			if it.Kind == ItemInstruction {
				visit(m, it.Insn)
			}
		}
	}
}
