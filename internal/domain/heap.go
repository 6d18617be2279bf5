package domain

// Pointer is an opaque identifier for one abstract heap allocation
// site, minted by internal/constprop's LocalArray sub-analyzer for
// each NewArray of known length (spec §4.G).
type Pointer int

// ArraySlots is the abstract contents of one small local array: a
// bounded vector of SignedConstant slots, or top once the array
// escapes (spec §4.E: "a pointer becomes top when the array
// escapes").
type ArraySlots struct {
	top   bool
	Slots []SignedConstant
}

func ArrayTop() ArraySlots { return ArraySlots{top: true} }

func NewArraySlots(length int) ArraySlots {
	slots := make([]SignedConstant, length)
	for i := range slots {
		slots[i] = Bottom()
	}
	return ArraySlots{Slots: slots}
}

func (a ArraySlots) IsTop() bool { return a.top }

func (a ArraySlots) Get(index int) SignedConstant {
	if a.top || index < 0 || index >= len(a.Slots) {
		return Top()
	}
	return a.Slots[index]
}

// With returns a copy of a with slot index set to v, or a itself if
// already top or out of bounds (the caller must fall back to
// escaping the whole array in that case).
func (a ArraySlots) With(index int, v SignedConstant) ArraySlots {
	if a.top || index < 0 || index >= len(a.Slots) {
		return a
	}
	out := ArraySlots{Slots: append([]SignedConstant{}, a.Slots...)}
	out.Slots[index] = v
	return out
}

// AbstractHeap is spec §4.E's map from opaque pointer identifiers to
// their ArraySlots, threaded alongside the register environment in
// internal/constprop.
type AbstractHeap struct {
	entries map[Pointer]ArraySlots
}

func NewAbstractHeap() AbstractHeap {
	return AbstractHeap{entries: map[Pointer]ArraySlots{}}
}

func (h AbstractHeap) Get(p Pointer) ArraySlots {
	if s, ok := h.entries[p]; ok {
		return s
	}
	return ArrayTop()
}

// Set returns a new heap with p bound to s, leaving h untouched (the
// environment type this rides inside is itself copy-on-write per
// block in the fixpoint iterator).
func (h AbstractHeap) Set(p Pointer, s ArraySlots) AbstractHeap {
	out := AbstractHeap{entries: make(map[Pointer]ArraySlots, len(h.entries)+1)}
	for k, v := range h.entries {
		out.entries[k] = v
	}
	out.entries[p] = s
	return out
}

// Escape widens p to top, used whenever the array pointer is stored
// to a field, passed as an argument, or written via aput-object.
func (h AbstractHeap) Escape(p Pointer) AbstractHeap {
	return h.Set(p, ArrayTop())
}

// Join merges two heaps: a pointer present and equal-valued in both
// survives, anything else (including absence on either side) widens
// to top, matching the domain's conservative escape semantics.
func (h AbstractHeap) Join(other AbstractHeap) AbstractHeap {
	out := NewAbstractHeap()
	seen := map[Pointer]bool{}
	for p, a := range h.entries {
		seen[p] = true
		b, ok := other.entries[p]
		if !ok || a.IsTop() || b.IsTop() || !sameSlots(a, b) {
			out.entries[p] = ArrayTop()
			continue
		}
		out.entries[p] = a
	}
	for p := range other.entries {
		if !seen[p] {
			out.entries[p] = ArrayTop()
		}
	}
	return out
}

// Equal reports whether two heaps bind the same pointers to
// equivalent slot states, used by internal/constprop's fixpoint
// lattice to detect convergence.
func (h AbstractHeap) Equal(other AbstractHeap) bool {
	if len(h.entries) != len(other.entries) {
		return false
	}
	for p, a := range h.entries {
		b, ok := other.entries[p]
		if !ok || a.IsTop() != b.IsTop() {
			return false
		}
		if !a.IsTop() && !sameSlots(a, b) {
			return false
		}
	}
	return true
}

func sameSlots(a, b ArraySlots) bool {
	if len(a.Slots) != len(b.Slots) {
		return false
	}
	for i := range a.Slots {
		if a.Slots[i] != b.Slots[i] {
			return false
		}
	}
	return true
}
