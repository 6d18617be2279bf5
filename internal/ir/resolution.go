package ir

// SearchPolicy selects which method sets spec §4.A's resolution
// algorithm walks.
type SearchPolicy int

const (
	SearchDirect SearchPolicy = iota
	SearchStatic
	SearchVirtual
	SearchInterfaceVirtual
	SearchAny
)

// ResolveMethod implements spec §4.A's method resolution, memoizing
// the result on the calling method when one is supplied (nil caller
// skips caching, e.g. when resolving outside any specific method
// context).
func (p *Program) ResolveMethod(caller *Method, ref MethodRef, policy SearchPolicy) (*Method, bool) {
	if caller != nil {
		if def, ok := caller.cachedResolution(ref); ok {
			return def, def != nil
		}
	}

	rec := p.Interner.MethodRefRecord(ref)
	sig := Signature{Name: rec.name, Proto: rec.proto}

	var def *Method
	switch policy {
	case SearchDirect:
		def = p.findDirect(rec.owner, sig)
	case SearchStatic:
		def = p.walkSuperChain(rec.owner, sig, directMethods)
	case SearchVirtual:
		def = p.walkSuperChain(rec.owner, sig, virtualMethods)
	case SearchInterfaceVirtual:
		def = p.walkSuperChain(rec.owner, sig, virtualMethods)
		if def == nil {
			def = p.walkInterfaces(rec.owner, sig)
		}
	case SearchAny:
		def = p.walkSuperChain(rec.owner, sig, virtualMethods)
		if def == nil {
			def = p.findDirect(rec.owner, sig)
		}
	}

	if caller != nil {
		caller.cacheResolution(ref, def)
	}
	return def, def != nil
}

func directMethods(c *Class) []*Method  { return c.DirectMethods }
func virtualMethods(c *Class) []*Method { return c.VirtualMethods }

func (p *Program) findDirect(owner Type, sig Signature) *Method {
	c, ok := p.Class(owner)
	if !ok {
		return nil
	}
	return findSignature(c.DirectMethods, sig)
}

// walkSuperChain walks owner and its super-chain, returning the first
// definition in the given method-set selector with a matching
// signature (spec §4.A's Static/Virtual resolution).
func (p *Program) walkSuperChain(owner Type, sig Signature, methods func(*Class) []*Method) *Method {
	t := owner
	for {
		c, ok := p.Class(t)
		if !ok {
			return nil
		}
		if def := findSignature(methods(c), sig); def != nil {
			return def
		}
		if !c.HasSuper {
			return nil
		}
		t = c.Super
	}
}

// walkInterfaces searches owner's transitively implemented interfaces
// for a matching virtual method (spec §4.A's InterfaceVirtual).
func (p *Program) walkInterfaces(owner Type, sig Signature) *Method {
	seen := map[Type]bool{}
	var visit func(t Type) *Method
	visit = func(t Type) *Method {
		if seen[t] {
			return nil
		}
		seen[t] = true
		c, ok := p.Class(t)
		if !ok {
			return nil
		}
		if def := findSignature(c.VirtualMethods, sig); def != nil {
			return def
		}
		for _, iface := range c.Interfaces {
			if def := visit(iface); def != nil {
				return def
			}
		}
		if c.HasSuper {
			return visit(c.Super)
		}
		return nil
	}
	c, ok := p.Class(owner)
	if !ok {
		return nil
	}
	for _, iface := range c.Interfaces {
		if def := visit(iface); def != nil {
			return def
		}
	}
	return nil
}

func findSignature(methods []*Method, sig Signature) *Method {
	for _, m := range methods {
		if m.Signature() == sig {
			return m
		}
	}
	return nil
}

// ResolveField implements spec §4.A's field resolution: walks the
// super-chain identically for static and instance lookups, returning
// the first definition with matching name and field type.
func (p *Program) ResolveField(ref FieldRef) (*Field, bool) {
	rec := p.Interner.FieldRefRecord(ref)
	sig := fieldSig{Name: rec.name, Type: rec.typ}

	t := rec.owner
	for {
		c, ok := p.Class(t)
		if !ok {
			return nil, false
		}
		for _, f := range c.StaticFields {
			if f.fieldSignature() == sig {
				return f, true
			}
		}
		for _, f := range c.InstanceFields {
			if f.fieldSignature() == sig {
				return f, true
			}
		}
		if !c.HasSuper {
			return nil, false
		}
		t = c.Super
	}
}

// Subtype implements spec §4.A's subtype test: parent == child, or
// recursively parent == super(child); arrays reduce to element
// subtyping (when both are non-primitive element types) with the base
// case subtype(Object, any array).
func (p *Program) Subtype(parent, child Type) bool {
	if parent == child {
		return true
	}

	pr := p.Interner.TypeRecord(parent)
	cr := p.Interner.TypeRecord(child)

	if pr.IsArray() && cr.IsArray() {
		pe, _ := p.Interner.GetType(pr.ElementDescriptor())
		ce, _ := p.Interner.GetType(cr.ElementDescriptor())
		if !pe.Valid() || !ce.Valid() {
			return false
		}
		peRec := p.Interner.TypeRecord(pe)
		ceRec := p.Interner.TypeRecord(ce)
		if peRec.IsPrimitive() || ceRec.IsPrimitive() {
			return pe == ce
		}
		return p.Subtype(pe, ce)
	}

	if pr.descriptor == "Ljava/lang/Object;" && cr.IsArray() {
		return true
	}

	if cr.IsArray() || pr.IsArray() {
		return false
	}

	t := child
	for {
		c, ok := p.Class(t)
		if !ok {
			return false
		}
		if !c.HasSuper {
			return false
		}
		if c.Super == parent {
			return true
		}
		t = c.Super
	}
}

// CheckCast implements spec §4.A's cast feasibility: subtype extended
// across implemented interfaces transitively, with missing class
// information treated as "unknown" and reported as infeasible (false).
func (p *Program) CheckCast(src, target Type) bool {
	if p.Subtype(target, src) {
		return true
	}
	c, ok := p.Class(src)
	if !ok {
		return false
	}
	for _, iface := range c.Interfaces {
		if iface == target || p.Subtype(target, iface) {
			return true
		}
	}
	if c.HasSuper {
		return p.CheckCast(c.Super, target)
	}
	return false
}
