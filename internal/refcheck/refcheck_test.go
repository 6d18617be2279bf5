package refcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redopt/internal/ir"
)

// stubSDK treats exactly the types/methods/fields named at construction
// as present in the configured min-sdk API.
type stubSDK struct {
	types   map[ir.Type]bool
	methods map[*ir.Method]bool
	fields  map[*ir.Field]bool
}

func (s *stubSDK) HasType(t ir.Type) bool     { return s.types[t] }
func (s *stubSDK) HasMethod(m *ir.Method) bool { return s.methods[m] }
func (s *stubSDK) HasField(f *ir.Field) bool  { return s.fields[f] }

func TestCheckTypePrimitiveAlwaysSafe(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	rc := New(prog, 0, nil, nil)

	assert.True(t, rc.CheckType(in.GetOrMakeType("I")))
}

func TestCheckTypeWellKnownJDKFallback(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	rc := New(prog, 0, nil, nil)

	// java.lang.String never registered as a Class in this Program at
	// all (no classpath loaded), but must still check out.
	assert.True(t, rc.CheckType(in.GetOrMakeType("Ljava/lang/String;")))
}

func TestCheckTypeUnknownNonWellKnownFails(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	rc := New(prog, 0, nil, nil)

	assert.False(t, rc.CheckType(in.GetOrMakeType("Lcom/unknown/Widget;")))
}

func TestCheckTypeExternalRequiresSDKMembership(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	extTy := in.GetOrMakeType("Lcom/ext/Ext;")
	prog.AddClass(&ir.Class{Type: extTy, External: true})

	sdk := &stubSDK{types: map[ir.Type]bool{extTy: true}}
	rc := New(prog, 0, sdk, nil)
	assert.True(t, rc.CheckType(extTy))

	rc2 := New(prog, 0, &stubSDK{types: map[ir.Type]bool{}}, nil)
	assert.False(t, rc2.CheckType(extTy))
}

func TestCheckTypeWalksSuperChainAndInterfaces(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)

	objTy := in.GetOrMakeType("Ljava/lang/Object;")
	ifaceTy := in.GetOrMakeType("Lcom/app/Iface;")
	baseTy := in.GetOrMakeType("Lcom/app/Base;")
	childTy := in.GetOrMakeType("Lcom/app/Child;")

	prog.AddClass(&ir.Class{Type: ifaceTy, Interfaces: nil})
	prog.AddClass(&ir.Class{Type: baseTy, HasSuper: true, Super: objTy})
	prog.AddClass(&ir.Class{Type: childTy, HasSuper: true, Super: baseTy, Interfaces: []ir.Type{ifaceTy}})

	rc := New(prog, 0, nil, nil)
	assert.True(t, rc.CheckType(childTy))
}

func TestCheckMethodChecksOwnerParamsAndReturn(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)

	ownerTy := in.GetOrMakeType("Lcom/app/Thing;")
	prog.AddClass(&ir.Class{Type: ownerTy})
	intTy := in.GetOrMakeType("I")
	proto := in.GetOrMakeProto(intTy, []ir.Type{intTy})
	m := &ir.Method{Owner: ownerTy, Name: "f", Proto: proto}

	rc := New(prog, 0, nil, nil)
	assert.True(t, rc.CheckMethod(m))
}

func TestCheckMethodExternalRequiresSDKMembership(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	ownerTy := in.GetOrMakeType("Lcom/ext/Ext;")
	prog.AddClass(&ir.Class{Type: ownerTy, External: true})
	voidTy := in.GetOrMakeType("V")
	proto := in.GetOrMakeProto(voidTy, nil)
	m := &ir.Method{Owner: ownerTy, Name: "g", Proto: proto}

	rc := New(prog, 0, &stubSDK{methods: map[*ir.Method]bool{m: true}}, nil)
	assert.True(t, rc.CheckMethod(m))

	rc2 := New(prog, 0, &stubSDK{}, nil)
	assert.False(t, rc2.CheckMethod(m))
}

func TestGatherCodeRefsMarksInvalidOnUnresolvedCallee(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)

	callerTy := in.GetOrMakeType("Lcom/app/Caller;")
	voidTy := in.GetOrMakeType("V")
	callerProto := in.GetOrMakeProto(voidTy, nil)
	caller := &ir.Method{Owner: callerTy, Name: "run", Proto: callerProto}

	unknownOwner := in.GetOrMakeType("Lcom/app/Nope;")
	unknownMethod := in.GetOrMakeMethodRef(unknownOwner, "missing", callerProto)
	insn := ir.NewInstruction(ir.OpInvokeStatic).SetMethod(unknownMethod)
	caller.Body = &ir.MethodBody{Items: []ir.Item{{Kind: ir.ItemInstruction, Insn: insn}}}

	refs := GatherCodeRefs(prog, caller)
	assert.True(t, refs.InvalidRefs)
}

func TestCheckCodeRefsChecksEveryGatheredEntity(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)

	calleeOwner := in.GetOrMakeType("Lcom/app/Callee;")
	voidTy := in.GetOrMakeType("V")
	calleeProto := in.GetOrMakeProto(voidTy, nil)
	calleeMethod := &ir.Method{Owner: calleeOwner, Name: "target", Proto: calleeProto}
	calleeClass := &ir.Class{Type: calleeOwner, DirectMethods: []*ir.Method{calleeMethod}}
	prog.AddClass(calleeClass)

	callerTy := in.GetOrMakeType("Lcom/app/Caller;")
	callerProto := in.GetOrMakeProto(voidTy, nil)
	caller := &ir.Method{Owner: callerTy, Name: "run", Proto: callerProto}
	methodRef := in.GetOrMakeMethodRef(calleeOwner, "target", calleeProto)
	insn := ir.NewInstruction(ir.OpInvokeDirect).SetMethod(methodRef)
	caller.Body = &ir.MethodBody{Items: []ir.Item{{Kind: ir.ItemInstruction, Insn: insn}}}

	rc := New(prog, 0, nil, nil)
	refs := GatherCodeRefs(prog, caller)
	require.False(t, refs.InvalidRefs)
	require.Len(t, refs.Methods, 1)
	assert.True(t, rc.CheckCodeRefs(refs))
}

func TestCachedBoolIsIdempotent(t *testing.T) {
	in := ir.NewInterner()
	prog := ir.NewProgram(in)
	ty := in.GetOrMakeType("I")
	rc := New(prog, 0, nil, nil)

	assert.True(t, rc.CheckType(ty))
	assert.True(t, rc.CheckType(ty)) // second call hits the cache, same answer
}
