// Rule catalog: spec §4.J's enumerated rewrites. Each rule's pattern
// is matched structurally by internal/peephole/langdsl; anything the
// pattern grammar cannot express (a callee's owner/name, a literal's
// numeric shape, a nearby constant-valued operand) is checked in
// Predicate against the raw matched instructions, Match.Prog, and a
// narrow backward scan of the instructions immediately before the
// match within the same block — the local window a peephole
// optimizer looks at, deliberately short of a full dataflow fixpoint.
package peephole

import (
	"strconv"

	"redopt/internal/ir"
	"redopt/internal/peephole/langdsl"
)

// DefaultCatalog returns the standard rule set, in the order each
// rule gets first refusal at a given position (most specific first,
// matching the convention internal/constprop's analyzer chain uses).
func DefaultCatalog() []Rule {
	return []Rule{
		redundantSelfMoveRule(),
		redundantSelfMoveObjectRule(),
		mulByOneRule(),
		mulByNegOneRule(),
		addZeroRule(),
		mulPow2ToShlRule(),
		divPow2ToShrRule(),
		stringValueOfIntLiteralRule(),
		equalsOfLiteralStringsRule(),
		emptyAppendRule(),
		putThenGetRule(),
		aputThenAgetRule(),
		redundantCheckCastAfterInvokeRule(),
	}
}

// --- Redundant self-move -----------------------------------------

func redundantSelfMoveRule() Rule {
	return Rule{
		Name:    "redundant-self-move",
		Pattern: langdsl.MustParse("move $a, $a"),
		Build:   func(m *Match) []*ir.Instruction { return nil },
	}
}

func redundantSelfMoveObjectRule() Rule {
	return Rule{
		Name:    "redundant-self-move-object",
		Pattern: langdsl.MustParse("move-object $a, $a"),
		Build:   func(m *Match) []*ir.Instruction { return nil },
	}
}

// --- Arithmetic identities over a *Lit form -----------------------
//
// dst and src bind separately (a rewrite can still fire when the
// compiler happened to reuse one register for both); Build decides
// between a no-op removal and a move by comparing the bound registers.

func mulByOneRule() Rule {
	return Rule{
		Name:      "mul-by-one",
		Pattern:   langdsl.MustParse("binop-lit.mul $dst, $src, #k"),
		Predicate: func(m *Match) bool { return m.Insns[0].Literal == 1 },
		Build:     identityOrMove,
	}
}

func mulByNegOneRule() Rule {
	return Rule{
		Name:      "mul-by-neg-one",
		Pattern:   langdsl.MustParse("binop-lit.mul $dst, $src, #k"),
		Predicate: func(m *Match) bool { return m.Insns[0].Literal == -1 },
		Build: func(m *Match) []*ir.Instruction {
			return []*ir.Instruction{
				ir.NewInstruction(ir.OpUnop).SetOperator(ir.OperatorNeg).SetDst(m.Reg("dst")).SetSrcs(m.Reg("src")),
			}
		},
	}
}

func addZeroRule() Rule {
	return Rule{
		Name:      "add-zero",
		Pattern:   langdsl.MustParse("binop-lit.add $dst, $src, #k"),
		Predicate: func(m *Match) bool { return m.Insns[0].Literal == 0 },
		Build:     identityOrMove,
	}
}

func identityOrMove(m *Match) []*ir.Instruction {
	dst, src := m.Reg("dst"), m.Reg("src")
	if dst == src {
		return nil
	}
	return []*ir.Instruction{ir.NewInstruction(ir.OpMove).SetDst(dst).SetSrcs(src)}
}

func mulPow2ToShlRule() Rule {
	return Rule{
		Name:    "mul-pow2-to-shl",
		Pattern: langdsl.MustParse("binop-lit.mul $dst, $src, #k"),
		Predicate: func(m *Match) bool {
			k := m.Insns[0].Literal
			return k > 1 && isPowerOfTwo(k)
		},
		Build: func(m *Match) []*ir.Instruction {
			shift := log2(m.Insns[0].Literal)
			return []*ir.Instruction{
				ir.NewInstruction(ir.OpBinopLit).SetOperator(ir.OperatorShl).
					SetDst(m.Reg("dst")).SetSrcs(m.Reg("src")).SetLiteral(shift),
			}
		},
	}
}

func divPow2ToShrRule() Rule {
	return Rule{
		Name:    "div-pow2-to-shr",
		Pattern: langdsl.MustParse("binop-lit.div $dst, $src, #k"),
		Predicate: func(m *Match) bool {
			k := m.Insns[0].Literal
			return k > 1 && isPowerOfTwo(k)
		},
		Build: func(m *Match) []*ir.Instruction {
			shift := log2(m.Insns[0].Literal)
			return []*ir.Instruction{
				ir.NewInstruction(ir.OpBinopLit).SetOperator(ir.OperatorShr).
					SetDst(m.Reg("dst")).SetSrcs(m.Reg("src")).SetLiteral(shift),
			}
		},
	}
}

func isPowerOfTwo(k int64) bool { return k > 0 && k&(k-1) == 0 }

func log2(k int64) int64 {
	var n int64
	for k > 1 {
		k >>= 1
		n++
	}
	return n
}

// --- Field/array put-then-get --------------------------------------
//
// iput's Srcs are [value, object]; iget's are dst = [object]. Binding
// $obj and &f in both halves of the pattern forces the put and get to
// target the same object and field.

func putThenGetRule() Rule {
	return Rule{
		Name:    "put-then-get",
		Pattern: langdsl.MustParse("iput $val, $obj, &f; iget $dst, $obj, &f"),
		Build: func(m *Match) []*ir.Instruction {
			dst, val := m.Reg("dst"), m.Reg("val")
			if dst == val {
				return []*ir.Instruction{m.Insns[0]}
			}
			return []*ir.Instruction{
				m.Insns[0],
				ir.NewInstruction(ir.OpMove).SetDst(dst).SetSrcs(val),
			}
		},
	}
}

// aput's Srcs are [value, array, index]; aget's are dst = [array,
// index]. Binding $arr and $idx in both halves forces the same array
// reference and the same index register.
func aputThenAgetRule() Rule {
	return Rule{
		Name:    "aput-then-aget",
		Pattern: langdsl.MustParse("aput $val, $arr, $idx; aget $dst, $arr, $idx"),
		Build: func(m *Match) []*ir.Instruction {
			dst, val := m.Reg("dst"), m.Reg("val")
			if dst == val {
				return []*ir.Instruction{m.Insns[0]}
			}
			return []*ir.Instruction{
				m.Insns[0],
				ir.NewInstruction(ir.OpMove).SetDst(dst).SetSrcs(val),
			}
		},
	}
}

// --- String/StringBuilder folding -----------------------------------

const (
	javaLangString        = "Ljava/lang/String;"
	javaLangStringBuilder = "Ljava/lang/StringBuilder;"
)

// stringValueOfIntLiteralRule folds `String.valueOf(intLit)` into a
// const-string of the literal's decimal text, when the argument's
// nearest definition in the same block is a plain int const. Scoped
// to the int overload only: without type information for the
// argument register this rule cannot tell a boolean/char overload
// call apart from an int one by shape alone.
func stringValueOfIntLiteralRule() Rule {
	return Rule{
		Name:    "string-valueof-int-literal",
		Pattern: langdsl.MustParse("invoke-static; move-result-object $dst"),
		Predicate: func(m *Match) bool {
			call := m.Insns[0]
			if !isCallTo(m.Prog, call, javaLangString, "valueOf") || len(call.Srcs) != 1 {
				return false
			}
			_, ok := findConstLiteral(m, call.Srcs[0])
			return ok
		},
		Build: func(m *Match) []*ir.Instruction {
			lit, _ := findConstLiteral(m, m.Insns[0].Srcs[0])
			ref := m.Prog.Interner.GetOrMakeString(strconv.FormatInt(lit, 10))
			return []*ir.Instruction{
				ir.NewInstruction(ir.OpConstString).SetDst(m.Reg("dst")).SetString(ref),
			}
		},
	}
}

// equalsOfLiteralStringsRule folds `a.equals(b)` into a const boolean
// (as an int 0/1, this IR's boolean representation) when both the
// receiver and the argument resolve, by local backward scan, to known
// const-string values.
func equalsOfLiteralStringsRule() Rule {
	return Rule{
		Name:    "equals-of-literal-strings",
		Pattern: langdsl.MustParse("invoke-virtual; move-result $dst"),
		Predicate: func(m *Match) bool {
			call := m.Insns[0]
			if !isCallTo(m.Prog, call, javaLangString, "equals") || len(call.Srcs) != 2 {
				return false
			}
			_, recvOK := findConstString(m, call.Srcs[0])
			_, argOK := findConstString(m, call.Srcs[1])
			return recvOK && argOK
		},
		Build: func(m *Match) []*ir.Instruction {
			recv, _ := findConstString(m, m.Insns[0].Srcs[0])
			arg, _ := findConstString(m, m.Insns[0].Srcs[1])
			result := int64(0)
			if m.Prog.Interner.StringValue(recv) == m.Prog.Interner.StringValue(arg) {
				result = 1
			}
			return []*ir.Instruction{
				ir.NewInstruction(ir.OpConst).SetDst(m.Reg("dst")).SetLiteral(result),
			}
		},
	}
}

// emptyAppendRule drops `sb.append(s)` when s's nearest definition is
// the empty string literal: the call's only other effect is returning
// sb itself, already held by the receiver register, so the following
// move-result-object collapses to a self-move and is dropped with it.
func emptyAppendRule() Rule {
	return Rule{
		Name:    "empty-append",
		Pattern: langdsl.MustParse("invoke-virtual; move-result-object $dst"),
		Predicate: func(m *Match) bool {
			call := m.Insns[0]
			if !isCallTo(m.Prog, call, javaLangStringBuilder, "append") || len(call.Srcs) != 2 {
				return false
			}
			s, ok := findConstString(m, call.Srcs[1])
			return ok && m.Prog.Interner.StringValue(s) == ""
		},
		Build: func(m *Match) []*ir.Instruction {
			recv, dst := m.Insns[0].Srcs[0], m.Reg("dst")
			if recv == dst {
				return nil
			}
			return []*ir.Instruction{ir.NewInstruction(ir.OpMoveObject).SetDst(dst).SetSrcs(recv)}
		},
	}
}

// redundantCheckCastAfterInvokeRule drops a check-cast on a
// move-result-object's destination when the invoked method's declared
// return type is already a subtype of (or equal to) the cast target,
// keyed off the static proto on the method ref itself rather than a
// flow-sensitive type state (internal/typecheck's job for the general
// case).
func redundantCheckCastAfterInvokeRule() Rule {
	return Rule{
		Name:    "redundant-checkcast-after-invoke",
		Pattern: langdsl.MustParse("move-result-object $dst; check-cast $dst, @t; move-result-pseudo $cast"),
		Predicate: func(m *Match) bool {
			// MoveResultObject must immediately follow its producing
			// invoke (spec §3's MoveResult* adjacency invariant), so
			// the instruction right before the match is the call.
			if m.Start == 0 {
				return false
			}
			call := m.Block.Insns[m.Start-1]
			if call.Payload != ir.PayloadMethod || !call.Op.ProducesResult() {
				return false
			}
			ret := m.Prog.Interner.MethodRefProto(call.Mth)
			retType := m.Prog.Interner.ProtoReturn(ret)
			return m.Prog.Subtype(m.Type("t"), retType)
		},
		// Both the intermediate move-result-object register and the
		// check-cast's own move-result-pseudo register collapse into
		// one: the call's result lands directly in $cast, the
		// register check-cast's consumers actually read.
		Build: func(m *Match) []*ir.Instruction {
			mr := m.Insns[0]
			return []*ir.Instruction{ir.NewInstruction(mr.Op).SetDst(m.Reg("cast"))}
		},
	}
}

// findConstLiteral scans backward from the match's start for the
// nearest instruction defining r, returning its literal value if that
// instruction is a plain const.
func findConstLiteral(m *Match, r ir.Register) (int64, bool) {
	for i := m.Start - 1; i >= 0; i-- {
		insn := m.Block.Insns[i]
		if insn.HasDst && insn.Dst == r {
			if insn.Op == ir.OpConst && insn.Payload == ir.PayloadLiteral {
				return insn.Literal, true
			}
			return 0, false
		}
	}
	return 0, false
}

// findConstString is findConstLiteral's string-constant analogue.
func findConstString(m *Match, r ir.Register) (ir.StringRef, bool) {
	for i := m.Start - 1; i >= 0; i-- {
		insn := m.Block.Insns[i]
		if insn.HasDst && insn.Dst == r {
			if insn.Op == ir.OpConstString && insn.Payload == ir.PayloadString {
				return insn.Str, true
			}
			return ir.StringRef{}, false
		}
	}
	return ir.StringRef{}, false
}

// isCallTo reports whether insn is an invoke of name declared on
// ownerDescriptor, read straight from the interner (no resolution,
// since the callee is typically an unresolved JDK library method).
func isCallTo(prog *ir.Program, insn *ir.Instruction, ownerDescriptor, name string) bool {
	if insn.Payload != ir.PayloadMethod {
		return false
	}
	if prog.Interner.MethodRefName(insn.Mth) != name {
		return false
	}
	owner := prog.Interner.MethodRefOwner(insn.Mth)
	return prog.Interner.Descriptor(owner) == ownerDescriptor
}
