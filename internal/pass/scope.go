// Package pass implements spec §6's external-interface surface for
// pass implementors: Scope, PassManager, and (in the walk subpackage)
// the class/method/field/opcode walkers with parallel and accumulating
// variants. Grounded on kanso's OptimizationPipeline
// (internal/ir/optimizations.go), generalized from a fixed four-pass
// sequence to an externally driven, metric-reporting manager.
package pass

import "redopt/internal/ir"

// Scope is an ordered sequence of classes a pass is asked to process
// (spec §6: "An ordered sequence of classes"). Constructed once from
// the program's full class set; a driver narrows it (e.g. to a single
// store) before handing it to a pass.
type Scope struct {
	Classes []*ir.Class
}

// NewScope builds the full-program scope.
func NewScope(prog *ir.Program) *Scope {
	return &Scope{Classes: prog.Classes()}
}

// Methods flattens this scope's classes into their declared methods,
// direct then virtual per class, the same order Program.AllMethods
// uses for the whole program.
func (s *Scope) Methods() []*ir.Method {
	var out []*ir.Method
	for _, c := range s.Classes {
		out = append(out, c.DirectMethods...)
		out = append(out, c.VirtualMethods...)
	}
	return out
}

// Fields flattens this scope's classes into their declared fields,
// static then instance per class.
func (s *Scope) Fields() []*ir.Field {
	var out []*ir.Field
	for _, c := range s.Classes {
		out = append(out, c.StaticFields...)
		out = append(out, c.InstanceFields...)
	}
	return out
}
