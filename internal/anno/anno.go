// Package anno implements spec §3/§4's Annotation model (component B),
// layered on the AnnotationSet/EncodedValue storage owned by component
// A (internal/ir): named visibility classes and convenience queries
// over typed-enum encoded values, the way the teacher layers semantic
// helpers over raw registry storage (internal/types.TypeRegistry
// wrapped by internal/semantic.ContextRegistry).
package anno

import "redopt/internal/ir"

// Visibility mirrors Dalvik annotation visibility classes; the core
// does not interpret these beyond carrying them through rewrites and
// exposing them for passes (e.g. a keep-rule pass) that care.
type Visibility int

const (
	VisibilityBuild Visibility = iota
	VisibilityRuntime
	VisibilitySystem
)

// VisibilityOf returns a's visibility class.
func VisibilityOf(a ir.Annotation) Visibility { return Visibility(a.Visibility) }

// StringElement reads a string-typed element, resolving it through the
// interner. ok is false if the element is absent or not a string.
func StringElement(in *ir.Interner, a ir.Annotation, name string) (string, bool) {
	v, ok := a.Elements[name]
	if !ok || v.Kind != ir.EncodedString {
		return "", false
	}
	return in.StringValue(v.Str), true
}

// IntElement reads an int/long-typed element.
func IntElement(a ir.Annotation, name string) (int64, bool) {
	v, ok := a.Elements[name]
	if !ok || (v.Kind != ir.EncodedInt && v.Kind != ir.EncodedLong) {
		return 0, false
	}
	return v.Int, true
}

// ArrayElement reads an array-typed element.
func ArrayElement(a ir.Annotation, name string) ([]ir.EncodedValue, bool) {
	v, ok := a.Elements[name]
	if !ok || v.Kind != ir.EncodedArray {
		return nil, false
	}
	return v.Array, true
}

// HasVisibility reports whether set contains any annotation of type t
// with the given visibility, the common "is this class/method kept /
// signature-only / build-time" query shape a keep-rule pass needs.
func HasVisibility(set *ir.AnnotationSet, t ir.Type, vis Visibility) bool {
	a, ok := set.Find(t)
	if !ok {
		return false
	}
	return VisibilityOf(a) == vis
}
