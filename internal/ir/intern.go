package ir

import (
	"fmt"
	"sync"
)

// StringRef is an interned string-literal handle.
type StringRef struct{ id int }

func (s StringRef) Valid() bool { return s.id != 0 }

// FieldRef is an interned (declaring type, name, field type) triple, as
// used by field-access instructions before resolution.
type FieldRef struct{ id int }

func (f FieldRef) Valid() bool { return f.id != 0 }

type fieldRefRecord struct {
	owner Type
	name  string
	typ   Type
}

// MethodRef is an interned (declaring type, name, proto) triple, as
// used by invoke instructions before resolution.
type MethodRef struct{ id int }

func (m MethodRef) Valid() bool { return m.id != 0 }

type methodRefRecord struct {
	owner Type
	name  string
	proto Proto
}

// Interner is the process-scoped, concurrency-safe table backing all
// structural identity in the IR model (spec §3, §5). It is initialized
// once at process start and then only ever appended to: "writes only
// at init" per §5 does not hold literally (passes may intern new types
// created mid-pipeline, e.g. a peephole rule materializing a new
// string constant) but all operations are safe for concurrent callers.
type Interner struct {
	mu sync.Mutex

	types      map[string]Type
	typeRecs   []typeRecord // index 0 unused, so id 0 means "invalid"
	strings    map[string]StringRef
	stringRecs []string
	protos     map[string]Proto
	protoRecs  []protoRecord
	fieldRefs  map[string]FieldRef
	fieldRecs  []fieldRefRecord
	methodRefs map[string]MethodRef
	methodRecs []methodRefRecord
}

// NewInterner creates an empty interner with the reserved zero slots.
func NewInterner() *Interner {
	return &Interner{
		types:      make(map[string]Type),
		typeRecs:   []typeRecord{{}},
		strings:    make(map[string]StringRef),
		stringRecs: []string{""},
		protos:     make(map[string]Proto),
		protoRecs:  []protoRecord{{}},
		fieldRefs:  make(map[string]FieldRef),
		fieldRecs:  []fieldRefRecord{{}},
		methodRefs: make(map[string]MethodRef),
		methodRecs: []methodRefRecord{{}},
	}
}

// GetOrMakeType interns a type descriptor, creating a new entry on
// first sight. Thread-safe.
func (in *Interner) GetOrMakeType(descriptor string) Type {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.types[descriptor]; ok {
		return t
	}
	t := Type{id: len(in.typeRecs)}
	in.typeRecs = append(in.typeRecs, typeRecord{descriptor: descriptor})
	in.types[descriptor] = t
	return t
}

// GetType is the lookup-only variant: absent on miss (spec §4.A).
func (in *Interner) GetType(descriptor string) (Type, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	t, ok := in.types[descriptor]
	return t, ok
}

func (in *Interner) TypeRecord(t Type) typeRecord {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.typeRecs[t.id]
}

// Descriptor returns t's raw type descriptor.
func (in *Interner) Descriptor(t Type) string {
	return in.TypeRecord(t).descriptor
}

func (in *Interner) GetOrMakeString(s string) StringRef {
	in.mu.Lock()
	defer in.mu.Unlock()
	if r, ok := in.strings[s]; ok {
		return r
	}
	r := StringRef{id: len(in.stringRecs)}
	in.stringRecs = append(in.stringRecs, s)
	in.strings[s] = r
	return r
}

func (in *Interner) StringValue(r StringRef) string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stringRecs[r.id]
}

func protoKey(ret Type, params []Type) string {
	key := fmt.Sprintf("%d(", ret.id)
	for _, p := range params {
		key += fmt.Sprintf("%d,", p.id)
	}
	return key + ")"
}

func (in *Interner) GetOrMakeProto(ret Type, params []Type) Proto {
	key := protoKey(ret, params)
	in.mu.Lock()
	defer in.mu.Unlock()
	if p, ok := in.protos[key]; ok {
		return p
	}
	cp := make([]Type, len(params))
	copy(cp, params)
	p := Proto{id: len(in.protoRecs)}
	in.protoRecs = append(in.protoRecs, protoRecord{ret: ret, params: cp})
	in.protos[key] = p
	return p
}

func (in *Interner) ProtoRecord(p Proto) protoRecord {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.protoRecs[p.id]
}

// ProtoReturn returns p's declared return type.
func (in *Interner) ProtoReturn(p Proto) Type { return in.ProtoRecord(p).ret }

// ProtoParams returns p's declared parameter types, in order.
func (in *Interner) ProtoParams(p Proto) []Type { return in.ProtoRecord(p).params }

func fieldKey(owner Type, name string, typ Type) string {
	return fmt.Sprintf("%d#%s#%d", owner.id, name, typ.id)
}

func (in *Interner) GetOrMakeFieldRef(owner Type, name string, typ Type) FieldRef {
	key := fieldKey(owner, name, typ)
	in.mu.Lock()
	defer in.mu.Unlock()
	if f, ok := in.fieldRefs[key]; ok {
		return f
	}
	f := FieldRef{id: len(in.fieldRecs)}
	in.fieldRecs = append(in.fieldRecs, fieldRefRecord{owner: owner, name: name, typ: typ})
	in.fieldRefs[key] = f
	return f
}

func (in *Interner) FieldRefRecord(f FieldRef) fieldRefRecord {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.fieldRecs[f.id]
}

func methodKey(owner Type, name string, proto Proto) string {
	return fmt.Sprintf("%d#%s#%d", owner.id, name, proto.id)
}

func (in *Interner) GetOrMakeMethodRef(owner Type, name string, proto Proto) MethodRef {
	key := methodKey(owner, name, proto)
	in.mu.Lock()
	defer in.mu.Unlock()
	if m, ok := in.methodRefs[key]; ok {
		return m
	}
	m := MethodRef{id: len(in.methodRecs)}
	in.methodRecs = append(in.methodRecs, methodRefRecord{owner: owner, name: name, proto: proto})
	in.methodRefs[key] = m
	return m
}

func (in *Interner) MethodRefRecord(m MethodRef) methodRefRecord {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.methodRecs[m.id]
}

// MethodRefName and MethodRefOwner expose a method ref's raw name and
// declaring-type descriptor without going through resolution, valid
// even for a callee never declared in the program (a JDK library
// method a peephole rule matches by name alone).
func (in *Interner) MethodRefName(m MethodRef) string  { return in.MethodRefRecord(m).name }
func (in *Interner) MethodRefOwner(m MethodRef) Type   { return in.MethodRefRecord(m).owner }
func (in *Interner) MethodRefProto(m MethodRef) Proto  { return in.MethodRefRecord(m).proto }

// FieldRefName and FieldRefOwner are the field-ref analogues.
func (in *Interner) FieldRefName(f FieldRef) string { return in.FieldRefRecord(f).name }
func (in *Interner) FieldRefOwner(f FieldRef) Type  { return in.FieldRefRecord(f).owner }
