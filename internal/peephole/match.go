// Package peephole implements spec §4.J: the pattern/replacement rule
// engine over a catalog of local rewrites, plus the catalog itself.
// Rule-table shape grounded on kanso's OptimizationPipeline
// (internal/ir/optimizations.go's registered-pass list); the pattern
// language the rules are written in lives in internal/peephole/langdsl.
package peephole

import (
	"redopt/internal/cfg"
	"redopt/internal/ir"
	"redopt/internal/peephole/langdsl"
)

// opcodeByName reverses ir.Opcode's String() table. Built once from
// the opcode range itself rather than duplicated by hand, since
// internal/ir exposes no reverse lookup (its public surface is
// write-then-stringify, not parse).
var opcodeByName = buildOpcodeByName()

func buildOpcodeByName() map[string]ir.Opcode {
	m := make(map[string]ir.Opcode, int(ir.OpUnreachable)+1)
	for i := 0; i <= int(ir.OpUnreachable); i++ {
		op := ir.Opcode(i)
		if name := op.String(); name != "" {
			m[name] = op
		}
	}
	return m
}

// Match carries a successful pattern match: the raw instructions it
// matched against (positionally parallel to Pattern.Insns) and the
// operand bindings accumulated while matching.
type Match struct {
	Insns []*ir.Instruction
	Prog  *ir.Program
	Block *cfg.Block
	Start int

	regs  map[string]ir.Register
	lits  map[string]int64
	strs  map[string]ir.StringRef
	types map[string]ir.Type
	flds  map[string]ir.FieldRef
	mths  map[string]ir.MethodRef
}

func newMatch(prog *ir.Program) *Match {
	return &Match{
		Prog:  prog,
		regs:  map[string]ir.Register{},
		lits:  map[string]int64{},
		strs:  map[string]ir.StringRef{},
		types: map[string]ir.Type{},
		flds:  map[string]ir.FieldRef{},
		mths:  map[string]ir.MethodRef{},
	}
}

func (m *Match) Reg(name string) ir.Register   { return m.regs[name] }
func (m *Match) Lit(name string) int64         { return m.lits[name] }
func (m *Match) Str(name string) ir.StringRef  { return m.strs[name] }
func (m *Match) Type(name string) ir.Type      { return m.types[name] }
func (m *Match) Field(name string) ir.FieldRef { return m.flds[name] }
func (m *Match) Method(name string) ir.MethodRef { return m.mths[name] }

// tryMatch attempts p against b's instructions starting at start,
// returning the bound Match on success.
func tryMatch(prog *ir.Program, p *langdsl.Pattern, b *cfg.Block, start int) (*Match, bool) {
	if start < 0 || start+len(p.Insns) > len(b.Insns) {
		return nil, false
	}
	m := newMatch(prog)
	m.Block = b
	m.Start = start
	for i, pi := range p.Insns {
		insn := b.Insns[start+i]
		if !matchInsn(m, pi, insn) {
			return nil, false
		}
		m.Insns = append(m.Insns, insn)
	}
	return m, true
}

func matchInsn(m *Match, pi *langdsl.Insn, insn *ir.Instruction) bool {
	op, ok := opcodeByName[pi.Opcode]
	if !ok || insn.Op != op {
		return false
	}
	if !matchSuffix(pi.Suffix, insn) {
		return false
	}
	if len(pi.Operands) == 0 {
		return true
	}
	roles := operandRoles(insn)
	if len(roles) != len(pi.Operands) {
		return false
	}
	for i, po := range pi.Operands {
		if !bindOperand(m, po, roles[i]) {
			return false
		}
	}
	return true
}

// matchSuffix checks a pattern instruction's optional `.suffix`
// against whichever of Operator/Cond the instruction actually carries.
// No suffix in the pattern means "don't care".
func matchSuffix(suffix string, insn *ir.Instruction) bool {
	if suffix == "" {
		return true
	}
	if insn.Operator != ir.OperatorNone {
		return insn.Operator.String() == suffix
	}
	if insn.Cond != ir.CondNone {
		return insn.Cond.String() == suffix
	}
	return false
}

type roleKind int

const (
	roleReg roleKind = iota
	roleLit
	roleStr
	roleTyp
	roleFld
	roleMth
)

type role struct {
	kind roleKind
	reg  ir.Register
	lit  int64
	str  ir.StringRef
	typ  ir.Type
	fld  ir.FieldRef
	mth  ir.MethodRef
}

// operandRoles lists an instruction's operands in the canonical order
// a pattern names them: destination (if any), sources in order, then
// the payload (if any).
func operandRoles(insn *ir.Instruction) []role {
	var roles []role
	if insn.HasDst {
		roles = append(roles, role{kind: roleReg, reg: insn.Dst})
	}
	for _, s := range insn.Srcs {
		roles = append(roles, role{kind: roleReg, reg: s})
	}
	switch insn.Payload {
	case ir.PayloadLiteral:
		roles = append(roles, role{kind: roleLit, lit: insn.Literal})
	case ir.PayloadString:
		roles = append(roles, role{kind: roleStr, str: insn.Str})
	case ir.PayloadType:
		roles = append(roles, role{kind: roleTyp, typ: insn.Cls})
	case ir.PayloadField:
		roles = append(roles, role{kind: roleFld, fld: insn.Fld})
	case ir.PayloadMethod:
		roles = append(roles, role{kind: roleMth, mth: insn.Mth})
	}
	return roles
}

func bindOperand(m *Match, po *langdsl.Operand, r role) bool {
	switch {
	case po.Register != "":
		return r.kind == roleReg && bindReg(m, po.Register, r.reg)
	case po.Literal != "":
		return r.kind == roleLit && bindLit(m, po.Literal, r.lit)
	case po.Str != "":
		return r.kind == roleStr && bindStr(m, po.Str, r.str)
	case po.Typ != "":
		return r.kind == roleTyp && bindTyp(m, po.Typ, r.typ)
	case po.Field != "":
		return r.kind == roleFld && bindFld(m, po.Field, r.fld)
	case po.Method != "":
		return r.kind == roleMth && bindMth(m, po.Method, r.mth)
	case po.Wild != "":
		return true
	default:
		return false
	}
}

func bindReg(m *Match, name string, v ir.Register) bool {
	if existing, ok := m.regs[name]; ok {
		return existing == v
	}
	m.regs[name] = v
	return true
}

func bindLit(m *Match, name string, v int64) bool {
	if existing, ok := m.lits[name]; ok {
		return existing == v
	}
	m.lits[name] = v
	return true
}

func bindStr(m *Match, name string, v ir.StringRef) bool {
	if existing, ok := m.strs[name]; ok {
		return existing == v
	}
	m.strs[name] = v
	return true
}

func bindTyp(m *Match, name string, v ir.Type) bool {
	if existing, ok := m.types[name]; ok {
		return existing == v
	}
	m.types[name] = v
	return true
}

func bindFld(m *Match, name string, v ir.FieldRef) bool {
	if existing, ok := m.flds[name]; ok {
		return existing == v
	}
	m.flds[name] = v
	return true
}

func bindMth(m *Match, name string, v ir.MethodRef) bool {
	if existing, ok := m.mths[name]; ok {
		return existing == v
	}
	m.mths[name] = v
	return true
}
