package ir

import "fmt"

// PayloadKind tags which of {literal, string, type, field, method} (at
// most one, per spec §3) an Instruction carries. Modeled as a tagged
// variant per the REDESIGN/design-notes §9 guidance, validated at
// construction rather than left to convention.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadLiteral
	PayloadString
	PayloadType
	PayloadField
	PayloadMethod
)

// Operator distinguishes the concrete arithmetic/logical/shift
// operation a Binop/BinopLit/Unop instruction performs. Opcode
// identity alone only says "this is some binary or unary op" (spec
// §3 folds width/kind variants into one opcode per operation); the
// operator is what peephole's arithmetic-identity rules and any
// future constant folder actually dispatch on.
type Operator int

const (
	OperatorNone Operator = iota
	OperatorAdd
	OperatorSub
	OperatorMul
	OperatorDiv
	OperatorRem
	OperatorAnd
	OperatorOr
	OperatorXor
	OperatorShl
	OperatorShr
	OperatorUshr
	OperatorNeg
	OperatorNot
)

// Condition distinguishes the comparison kind an If/IfZ terminator
// branches on (eq/ne/lt/ge/gt/le). Like Operator, opcode identity
// alone only says "this is some conditional branch"; boolreduce's
// diamond-folding and xor-reduction rewrites (and anything else that
// needs to know which way a branch goes) dispatch on Cond.
type Condition int

const (
	CondNone Condition = iota
	CondEq
	CondNe
	CondLt
	CondGe
	CondGt
	CondLe
)

var conditionNames = map[Condition]string{
	CondNone: "",
	CondEq:   "eq",
	CondNe:   "ne",
	CondLt:   "lt",
	CondGe:   "ge",
	CondGt:   "gt",
	CondLe:   "le",
}

func (c Condition) String() string { return conditionNames[c] }

// Negate returns the condition that holds exactly when c does not,
// i.e. the condition on the opposite edge of the same branch.
func (c Condition) Negate() Condition {
	switch c {
	case CondEq:
		return CondNe
	case CondNe:
		return CondEq
	case CondLt:
		return CondGe
	case CondGe:
		return CondLt
	case CondGt:
		return CondLe
	case CondLe:
		return CondGt
	default:
		return CondNone
	}
}

// Instruction is the single concrete instruction representation for
// every opcode in spec §3's opcode set. A flat struct (rather than one
// Go type per opcode) keeps the "at most one of {literal, string,
// type, field, method}" invariant enforceable in one place and keeps
// CFG/DCE/peephole code from needing a type switch per opcode family.
type Instruction struct {
	id int

	Op   Opcode
	Srcs []Register // ordered source registers
	Dst  Register   // valid iff HasDst
	HasDst bool

	// Operator is valid iff Op is OpBinop, OpBinopLit, or OpUnop;
	// OperatorNone otherwise.
	Operator Operator

	// Cond is valid iff Op is OpIf or OpIfZ; CondNone otherwise.
	Cond Condition

	Payload PayloadKind
	Literal int64 // valid iff Payload == PayloadLiteral
	Str     StringRef
	Cls     Type
	Fld     FieldRef
	Mth     MethodRef

	// SwitchCases holds (case key -> target item index) pairs for
	// OpSwitch, read by the CFG builder to add one Branch edge per case.
	SwitchCases []SwitchCase

	// Branch/ifz holds the textual target for Goto/If/IfZ before a CFG
	// is built; once a CFG exists, edges are authoritative instead.
	Target int // item index, meaningful only pre-CFG
}

type SwitchCase struct {
	Key    int64
	Target int // item index, meaningful only pre-CFG
}

// Register is a virtual-register index. Wide values occupy Register
// and Register+1 (spec §3).
type Register int

const NoRegister Register = -1

var instructionIDSeq int

// NewInstruction constructs an instruction for op with no operands.
// The register count is not checked against the opcode, here or in
// SetSrcs/SetDst; the payload setters only enforce that at most one
// payload kind is set. Full semantic validity is the analyses' job.
func NewInstruction(op Opcode) *Instruction {
	instructionIDSeq++
	return &Instruction{id: instructionIDSeq, Op: op, Dst: NoRegister}
}

func (i *Instruction) GetID() int { return i.id }

func (i *Instruction) SetSrcs(regs ...Register) *Instruction {
	i.Srcs = regs
	return i
}

func (i *Instruction) SetDst(r Register) *Instruction {
	i.Dst = r
	i.HasDst = true
	return i
}

func (i *Instruction) SetLiteral(v int64) *Instruction {
	i.requirePayload(PayloadLiteral)
	i.Payload = PayloadLiteral
	i.Literal = v
	return i
}

func (i *Instruction) SetString(s StringRef) *Instruction {
	i.requirePayload(PayloadString)
	i.Payload = PayloadString
	i.Str = s
	return i
}

func (i *Instruction) SetType(t Type) *Instruction {
	i.requirePayload(PayloadType)
	i.Payload = PayloadType
	i.Cls = t
	return i
}

func (i *Instruction) SetField(f FieldRef) *Instruction {
	i.requirePayload(PayloadField)
	i.Payload = PayloadField
	i.Fld = f
	return i
}

func (i *Instruction) SetMethod(m MethodRef) *Instruction {
	i.requirePayload(PayloadMethod)
	i.Payload = PayloadMethod
	i.Mth = m
	return i
}

func (i *Instruction) SetOperator(op Operator) *Instruction {
	i.Operator = op
	return i
}

func (i *Instruction) SetCond(c Condition) *Instruction {
	i.Cond = c
	return i
}

// requirePayload panics (a construction-time bug, not an invariant
// violation reached via malformed input) if a second payload kind is
// set on the same instruction.
func (i *Instruction) requirePayload(kind PayloadKind) {
	if i.Payload != PayloadNone && i.Payload != kind {
		panic(fmt.Sprintf("ir: instruction %s already carries payload kind %d, cannot set %d", i.Op, i.Payload, kind))
	}
}

func (i *Instruction) IsTerminator() bool    { return i.Op.IsTerminator() }
func (i *Instruction) ProducesResult() bool  { return i.Op.ProducesResult() }
func (i *Instruction) HasSideEffects() bool  { return i.Op.HasSideEffects() }

var operatorNames = map[Operator]string{
	OperatorNone: "",
	OperatorAdd:  "add",
	OperatorSub:  "sub",
	OperatorMul:  "mul",
	OperatorDiv:  "div",
	OperatorRem:  "rem",
	OperatorAnd:  "and",
	OperatorOr:   "or",
	OperatorXor:  "xor",
	OperatorShl:  "shl",
	OperatorShr:  "shr",
	OperatorUshr: "ushr",
	OperatorNeg:  "neg",
	OperatorNot:  "not",
}

func (o Operator) String() string { return operatorNames[o] }

// String renders the instruction as opcode[.operator][.cond], then
// the destination and source registers, then a placeholder for the
// payload kind (the literal value itself for a literal).
func (i *Instruction) String() string {
	s := i.Op.String()
	if i.Operator != OperatorNone {
		s += "." + i.Operator.String()
	}
	if i.Cond != CondNone {
		s += "." + i.Cond.String()
	}
	if i.HasDst {
		s += fmt.Sprintf(" v%d", i.Dst)
	}
	for _, r := range i.Srcs {
		s += fmt.Sprintf(", v%d", r)
	}
	switch i.Payload {
	case PayloadLiteral:
		s += fmt.Sprintf(", #%d", i.Literal)
	case PayloadType:
		s += ", <type>"
	case PayloadField:
		s += ", <field>"
	case PayloadMethod:
		s += ", <method>"
	case PayloadString:
		s += ", <string>"
	}
	return s
}
