// Package refcheck implements the supplemented RefChecker feature
// (SPEC_FULL.md §12, grounded on original_source/libredex/RefChecker.{h,cpp}):
// "is it safe to reference this type/method/field from a particular
// store, assuming only a particular minimum SDK is guaranteed present."
// An external type/method/field is safe only if the configured
// minimum-SDK API is known to carry it; an internal one is safe if its
// own further references (super type, interfaces, param/return types,
// declaring type) are all safe in turn.
package refcheck

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"redopt/internal/diag"
	"redopt/internal/ir"
)

// MinSDKAPI answers "does the platform API at this minimum SDK level
// carry this type/method/field" -- a caller-supplied predicate, the
// same pattern internal/throwprop uses for NonReturningPredicate,
// since the actual Android API surface is the driver's data, not the
// core's.
type MinSDKAPI interface {
	HasType(t ir.Type) bool
	HasMethod(m *ir.Method) bool
	HasField(f *ir.Field) bool
}

// StoreTopology answers whether referencing t from storeIdx would
// cross a store boundary the multi-dex split forbids. Also caller
// supplied: store/dex partitioning lives with the driver (spec §1's
// Non-goals place archive-format and packing concerns out of core
// scope).
type StoreTopology interface {
	IllegalRef(storeIdx int, t ir.Type) bool
}

// wellKnownJDKTypes mirrors RefChecker.cpp's fallback list: types that
// must be treated as present even absent a loaded classpath entry for
// them, because almost every min-sdk API surface implies them.
var wellKnownJDKTypes = map[string]bool{
	"Ljava/lang/String;":    true,
	"Ljava/lang/Class;":     true,
	"Ljava/lang/Enum;":      true,
	"Ljava/lang/Object;":    true,
	"Ljava/lang/Void;":      true,
	"Ljava/lang/Throwable;": true,
	"Ljava/lang/Boolean;":   true,
	"Ljava/lang/Byte;":      true,
	"Ljava/lang/Short;":     true,
	"Ljava/lang/Character;": true,
	"Ljava/lang/Integer;":   true,
	"Ljava/lang/Long;":      true,
	"Ljava/lang/Float;":     true,
	"Ljava/lang/Double;":    true,
}

// CodeRefs is every type/method/field a method body references,
// gathered once and checked as a batch (spec §6's check_code_refs).
type CodeRefs struct {
	Types       []ir.Type
	Methods     []*ir.Method
	Fields      []*ir.Field
	InvalidRefs bool
}

func searchPolicyFor(op ir.Opcode) ir.SearchPolicy {
	switch op {
	case ir.OpInvokeDirect:
		return ir.SearchDirect
	case ir.OpInvokeStatic:
		return ir.SearchStatic
	case ir.OpInvokeVirtual, ir.OpInvokeSuper:
		return ir.SearchVirtual
	case ir.OpInvokeInterface:
		return ir.SearchInterfaceVirtual
	default:
		return ir.SearchAny
	}
}

// GatherCodeRefs walks caller's body (linear items, or the linearized
// form of a built CFG) and resolves every type/method/field mentioned,
// the way CodeRefs's constructor does in the original. An unresolvable
// method or field callee marks the whole result invalid, same as
// RefChecker.cpp's invalid_refs short-circuit.
func GatherCodeRefs(prog *ir.Program, caller *ir.Method) CodeRefs {
	var refs CodeRefs
	if caller.Body == nil {
		return refs
	}
	items := caller.Body.Items
	if caller.Body.HasCFG() {
		items = caller.Body.CFG().Linearize()
	}

	typesSeen := map[ir.Type]bool{}
	methodsSeen := map[*ir.Method]bool{}
	fieldsSeen := map[*ir.Field]bool{}

	for _, it := range items {
		switch it.Kind {
		case ir.ItemInstruction:
			insn := it.Insn
			switch insn.Payload {
			case ir.PayloadType:
				typesSeen[insn.Cls] = true
			case ir.PayloadMethod:
				policy := searchPolicyFor(insn.Op)
				callee, ok := prog.ResolveMethod(caller, insn.Mth, policy)
				if !ok && policy == ir.SearchVirtual {
					callee, ok = prog.ResolveMethod(caller, insn.Mth, ir.SearchInterfaceVirtual)
				}
				if !ok {
					refs.InvalidRefs = true
					return refs
				}
				if callee.Owner != prog.Interner.MethodRefOwner(insn.Mth) {
					typesSeen[prog.Interner.MethodRefOwner(insn.Mth)] = true
				}
				methodsSeen[callee] = true
			case ir.PayloadField:
				field, ok := prog.ResolveField(insn.Fld)
				if !ok {
					refs.InvalidRefs = true
					return refs
				}
				if field.Owner != prog.Interner.FieldRefOwner(insn.Fld) {
					typesSeen[prog.Interner.FieldRefOwner(insn.Fld)] = true
				}
				fieldsSeen[field] = true
			}
		case ir.ItemTryStart:
			if marker, ok := it.Marker.(ir.TryCatchMarker); ok {
				for _, c := range marker.Catches {
					if c.Type.Valid() {
						typesSeen[c.Type] = true
					}
				}
			}
		}
	}

	for t := range typesSeen {
		refs.Types = append(refs.Types, t)
	}
	for m := range methodsSeen {
		refs.Methods = append(refs.Methods, m)
	}
	for f := range fieldsSeen {
		refs.Fields = append(refs.Fields, f)
	}
	return refs
}

// RefChecker caches per-(entity, configured store/min-sdk) checks
// (SPEC_FULL.md §12, §11's golang-lru wiring) -- one RefChecker per
// (store index, min-sdk), its caches good only for that configuration.
// All methods are safe for concurrent callers (spec doc comment on the
// original: "All functions are thread-safe").
type RefChecker struct {
	prog     *ir.Program
	storeIdx int
	minSDK   MinSDKAPI     // nil means "no SDK surface configured": externals never check out
	topology StoreTopology // nil means "no store-illegal-ref check"

	typeCache   *lru.Cache[ir.Type, bool]
	methodCache *lru.Cache[*ir.Method, bool]
	fieldCache  *lru.Cache[*ir.Field, bool]
}

// DefaultCacheSize is generous enough that a single method's or
// class's worth of checking never evicts its own in-flight entries.
const DefaultCacheSize = 4096

// New builds a RefChecker scoped to storeIdx and minSDK. topology may
// be nil (no store-boundary check performed, every type treated as
// in-store).
func New(prog *ir.Program, storeIdx int, minSDK MinSDKAPI, topology StoreTopology) *RefChecker {
	typeCache, err := lru.New[ir.Type, bool](DefaultCacheSize)
	if err != nil {
		diag.Fatal(diag.Violation{Code: diag.CodeCFGInconsistent, Message: "refcheck: failed to allocate type cache"})
	}
	methodCache, err := lru.New[*ir.Method, bool](DefaultCacheSize)
	if err != nil {
		diag.Fatal(diag.Violation{Code: diag.CodeCFGInconsistent, Message: "refcheck: failed to allocate method cache"})
	}
	fieldCache, err := lru.New[*ir.Field, bool](DefaultCacheSize)
	if err != nil {
		diag.Fatal(diag.Violation{Code: diag.CodeCFGInconsistent, Message: "refcheck: failed to allocate field cache"})
	}
	return &RefChecker{
		prog:        prog,
		storeIdx:    storeIdx,
		minSDK:      minSDK,
		topology:    topology,
		typeCache:   typeCache,
		methodCache: methodCache,
		fieldCache:  fieldCache,
	}
}

// cachedBool centralizes the "compute on miss; first writer wins,
// assert equality on subsequent writes" per-pass-cache contract spec
// §5 names -- a concurrent re-computation of the same key is wasted
// work, not a race, but the two computed values had better agree.
func cachedBool[K comparable](cache *lru.Cache[K, bool], key K, compute func() bool) bool {
	if v, ok := cache.Get(key); ok {
		return v
	}
	v := compute()
	if existing, ok := cache.Peek(key); ok {
		diag.Invariant(existing == v, diag.CodeCFGInconsistent,
			"refcheck: racing recomputation disagreed on cached result", "", "")
		return existing
	}
	cache.Add(key, v)
	return v
}

func (r *RefChecker) CheckType(t ir.Type) bool {
	return cachedBool(r.typeCache, t, func() bool { return r.checkTypeInternal(t) })
}

func (r *RefChecker) CheckMethod(m *ir.Method) bool {
	return cachedBool(r.methodCache, m, func() bool { return r.checkMethodInternal(m) })
}

func (r *RefChecker) CheckField(f *ir.Field) bool {
	return cachedBool(r.fieldCache, f, func() bool { return r.checkFieldInternal(f) })
}

// CheckClass checks the class itself plus every field, method
// signature and method body it declares. No cache for the class
// definition, matching the original: a class definition is checked at
// most once per pass anyway.
func (r *RefChecker) CheckClass(c *ir.Class) bool {
	if !r.CheckType(c.Type) {
		return false
	}
	for _, f := range c.StaticFields {
		if !r.CheckField(f) {
			return false
		}
	}
	for _, f := range c.InstanceFields {
		if !r.CheckField(f) {
			return false
		}
	}
	for _, m := range append(append([]*ir.Method{}, c.DirectMethods...), c.VirtualMethods...) {
		if !r.CheckMethodAndCode(m) {
			return false
		}
	}
	return true
}

// CheckMethodAndCode checks m's own signature plus everything its body
// references.
func (r *RefChecker) CheckMethodAndCode(m *ir.Method) bool {
	if !r.CheckMethod(m) {
		return false
	}
	return r.CheckCodeRefs(GatherCodeRefs(r.prog, m))
}

func (r *RefChecker) CheckCodeRefs(refs CodeRefs) bool {
	if refs.InvalidRefs {
		return false
	}
	for _, t := range refs.Types {
		if !r.CheckType(t) {
			return false
		}
	}
	for _, m := range refs.Methods {
		if !r.CheckMethod(m) {
			return false
		}
	}
	for _, f := range refs.Fields {
		if !r.CheckField(f) {
			return false
		}
	}
	return true
}

func (r *RefChecker) checkTypeInternal(t ir.Type) bool {
	rec := r.prog.Interner.TypeRecord(t)
	if rec.IsArray() {
		elem, ok := r.prog.Interner.GetType(rec.ElementDescriptor())
		if !ok {
			return true // never materialized; vacuously fine
		}
		t = elem
		rec = r.prog.Interner.TypeRecord(t)
	}
	if rec.IsPrimitive() {
		return true
	}

	for {
		desc := r.prog.Interner.Descriptor(t)
		cls, ok := r.prog.Class(t)
		if !ok {
			return wellKnownJDKTypes[desc]
		}
		if cls.External {
			return r.minSDK != nil && r.minSDK.HasType(t)
		}
		if r.topology != nil && r.topology.IllegalRef(r.storeIdx, t) {
			return false
		}
		for _, iface := range cls.Interfaces {
			if !r.CheckType(iface) {
				return false
			}
		}
		if !cls.HasSuper {
			return true
		}
		t = cls.Super
	}
}

func (r *RefChecker) checkMethodInternal(m *ir.Method) bool {
	cls, ok := r.prog.Class(m.Owner)
	if ok && cls.External {
		return r.minSDK != nil && r.minSDK.HasMethod(m)
	}
	if !r.CheckType(m.Owner) {
		return false
	}
	for _, p := range r.prog.Interner.ProtoParams(m.Proto) {
		if !r.CheckType(p) {
			return false
		}
	}
	return r.CheckType(r.prog.Interner.ProtoReturn(m.Proto))
}

func (r *RefChecker) checkFieldInternal(f *ir.Field) bool {
	cls, ok := r.prog.Class(f.Owner)
	if ok && cls.External {
		return r.minSDK != nil && r.minSDK.HasField(f)
	}
	return r.CheckType(f.Owner) && r.CheckType(f.Type)
}
