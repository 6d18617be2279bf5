package ir

// AccessFlags mirrors the small bitset of Java/Dalvik access modifiers
// the core cares about for resolution and purity decisions.
type AccessFlags uint32

const (
	AccPublic    AccessFlags = 1 << iota
	AccPrivate
	AccProtected
	AccStatic
	AccFinal
	AccAbstract
	AccInterface
	AccNative
	AccConstructor
)

func (f AccessFlags) Has(bit AccessFlags) bool { return f&bit != 0 }

// Class models spec §3's Class: identifying type, super-type (absent
// only for java.lang.Object), implemented interfaces, fields, and the
// direct/virtual method sets.
type Class struct {
	Type       Type
	Super      Type // zero Type iff this is the root object type
	HasSuper   bool
	Interfaces []Type
	Access     AccessFlags
	Annotation *AnnotationSet

	StaticFields   []*Field
	InstanceFields []*Field
	DirectMethods  []*Method
	VirtualMethods []*Method

	// External classes have no owned body: only their signature is
	// known (spec §3). Internal classes may be mutated by the process.
	External bool
}

// Field models spec §3's Field.
type Field struct {
	Owner      Type
	Name       string
	Type       Type
	Access     AccessFlags
	Annotation *AnnotationSet
	// Constant is the encoded constant value of a static final field,
	// absent for instance fields and non-constant statics.
	Constant *EncodedValue
}

func (f *Field) IsStatic() bool { return f.Access.Has(AccStatic) }

// Parameter is one parameter of a Method, carrying its own optional
// annotation set (spec §3: "optional per-parameter annotation sets").
type Parameter struct {
	Type       Type
	Annotation *AnnotationSet
}

// Method models spec §3's Method. Body is nil for abstract/native
// methods (spec: "A body is either absent... or present").
type Method struct {
	Owner      Type
	Name       string
	Proto      Proto
	Params     []Parameter
	Access     AccessFlags
	Annotation *AnnotationSet
	Body       *MethodBody

	// resolutionCache memoizes MethodRef resolutions performed while
	// analyzing this method's body, per spec §4.A ("Resolution results
	// may be cached per caller method").
	resolutionCache map[MethodRef]*Method
}

func (m *Method) IsDirect() bool {
	return m.Access.Has(AccPrivate) || m.Access.Has(AccStatic) || m.Access.Has(AccConstructor)
}
func (m *Method) IsVirtual() bool { return !m.IsDirect() }
func (m *Method) IsAbstract() bool {
	return m.Body == nil
}

func (m *Method) cachedResolution(ref MethodRef) (*Method, bool) {
	if m.resolutionCache == nil {
		return nil, false
	}
	def, ok := m.resolutionCache[ref]
	return def, ok
}

func (m *Method) cacheResolution(ref MethodRef, def *Method) {
	if m.resolutionCache == nil {
		m.resolutionCache = make(map[MethodRef]*Method)
	}
	m.resolutionCache[ref] = def
}

// Signature returns the (name, proto) pair a resolution policy matches.
type Signature struct {
	Name  string
	Proto Proto
}

func (m *Method) Signature() Signature { return Signature{Name: m.Name, Proto: m.Proto} }
func (f *Field) fieldSignature() fieldSig {
	return fieldSig{Name: f.Name, Type: f.Type}
}

type fieldSig struct {
	Name string
	Type Type
}

// MethodBody is spec §3's per-method body: a register count, an
// ordered list of Items, and at most one of {linear list, CFG}
// authoritative at a time.
type MethodBody struct {
	RegisterCount int
	Items         []Item
	cfg           CFGHandle // set while a CFG is built; nil otherwise
}

// CFGHandle is implemented by *cfg.Graph; kept as an interface here so
// internal/ir does not import internal/cfg (which imports internal/ir),
// avoiding an import cycle while still letting MethodBody enforce the
// spec's "not simultaneously authoritative" invariant.
type CFGHandle interface {
	Linearize() []Item
}

func (b *MethodBody) HasCFG() bool { return b.cfg != nil }

func (b *MethodBody) CFG() CFGHandle { return b.cfg }

// AttachCFG installs a built CFG as the sole authority over the body,
// matching spec §3's "the CFG and the linear list are not
// simultaneously authoritative" invariant: Items is cleared.
func (b *MethodBody) AttachCFG(h CFGHandle) {
	b.cfg = h
	b.Items = nil
}

// DetachCFG clears a built CFG back to a linear item list using its
// linearization, restoring the list as sole authority.
func (b *MethodBody) DetachCFG() {
	if b.cfg == nil {
		return
	}
	b.Items = b.cfg.Linearize()
	b.cfg = nil
}

// Item is one element of a method body's linear instruction stream:
// an instruction, or one of the non-instruction markers spec §3 names.
type Item struct {
	Kind ItemKind
	Insn *Instruction // set iff Kind == ItemInstruction

	// Position/try-catch/source-block/debug markers carry opaque
	// payloads the core threads through unexamined; passes that care
	// about a specific marker kind type-assert on Marker.
	Marker interface{}
}

type ItemKind int

const (
	ItemInstruction ItemKind = iota
	ItemPosition
	ItemTryStart
	ItemTryEnd
	ItemCatch
	ItemSourceBlock
	ItemDebug
)

// TryCatchMarker pairs a try-region boundary with its ordered catch
// list, consumed by the CFG builder to add Throw edges (spec §4.C).
type TryCatchMarker struct {
	Catches []CatchEntry
}

// CatchEntry names one catch handler: a specific throwable type, or a
// catch-all when Type is the zero Type.
type CatchEntry struct {
	Type       Type // zero Type means catch-all
	TargetItem int  // index into the *pre-CFG* Items list of the handler
}
