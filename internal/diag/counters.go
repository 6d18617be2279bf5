package diag

import "go.uber.org/atomic"

// Counters accumulates the "expected and handled locally" error kind
// from spec §7: unresolved references. No diagnostic is emitted per
// occurrence; a counter is incremented instead, the way §5 requires
// process-wide state to be updated with atomic increments.
type Counters struct {
	unresolvedMethods atomic.Int64
	unresolvedFields   atomic.Int64
	unresolvedTypes    atomic.Int64
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) IncUnresolvedMethod() { c.unresolvedMethods.Inc() }
func (c *Counters) IncUnresolvedField()  { c.unresolvedFields.Inc() }
func (c *Counters) IncUnresolvedType()   { c.unresolvedTypes.Inc() }

func (c *Counters) UnresolvedMethods() int64 { return c.unresolvedMethods.Load() }
func (c *Counters) UnresolvedFields() int64  { return c.unresolvedFields.Load() }
func (c *Counters) UnresolvedTypes() int64   { return c.unresolvedTypes.Load() }
