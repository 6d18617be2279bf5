// Package langdsl is the pattern language internal/peephole's rule
// catalog is written in: `opcode[.suffix] operand(, operand)*`
// instructions separated by `;`, one pattern per rule. Operands are
// sigiled by bind kind so the same name reappearing later in the
// pattern means "the same value again" rather than "a new binding":
// $reg a register, #lit a literal, %str a string constant, @typ a
// type, &fld a field ref, *mth a method ref, and a bare `_` a
// wildcard that binds nothing. An instruction written with no
// operands at all matches that opcode regardless of operand count or
// shape, the escape hatch a variable-arity invoke needs.
//
// Adapted from kanso's token/grammar lexer+parser-combinator pair
// (grammar.KansoLexer's lexer.MustStateful table, grammar.Program's
// struct-tag grammar built with participle.Build), repurposed from
// Kanso source syntax to this much smaller opcode-pattern grammar.
package langdsl

import (
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// PatternLexer tokenizes a pattern string. Order matters: sigiled
// rules must precede Ident so e.g. `$a` lexes as one Reg token rather
// than as punctuation followed by an identifier.
var PatternLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Reg", `\$[A-Za-z][A-Za-z0-9_]*`, nil},
		{"Lit", `#[A-Za-z][A-Za-z0-9_]*`, nil},
		{"Str", `%[A-Za-z][A-Za-z0-9_]*`, nil},
		{"Typ", `@[A-Za-z][A-Za-z0-9_]*`, nil},
		{"Fld", `&[A-Za-z][A-Za-z0-9_]*`, nil},
		{"Mth", `\*[A-Za-z][A-Za-z0-9_]*`, nil},
		{"Wild", `_`, nil},
		{"Ident", `[A-Za-z][A-Za-z0-9_-]*`, nil},
		{"Punct", `[.,;]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

// Pattern is a sequence of instruction patterns matched against a
// consecutive run of instructions within one block.
type Pattern struct {
	Insns []*Insn `@@ (";" @@)*`
}

// Insn matches one instruction: an opcode name, an optional
// `.suffix` (an Operator or Condition name, e.g. `binop-lit.mul`,
// `if-z.ne`), and either no operands (opcode-only wildcard) or an
// exact positional operand list.
type Insn struct {
	Opcode   string     `@Ident`
	Suffix   string      `("." @Ident)?`
	Operands []*Operand `( @@ ("," @@)* )?`
}

// Operand is exactly one of a register/literal/string/type/field/
// method binding or a wildcard. Binding the same name twice in one
// pattern requires the two occurrences to resolve to the same value.
type Operand struct {
	Register string `(  @Reg`
	Literal  string ` | @Lit`
	Str      string ` | @Str`
	Typ      string ` | @Typ`
	Field    string ` | @Fld`
	Method   string ` | @Mth`
	Wild     string ` | @Wild )`
}

var (
	buildOnce sync.Once
	parser    *participle.Parser[Pattern]
	buildErr  error
)

func build() {
	parser, buildErr = participle.Build[Pattern](
		participle.Lexer(PatternLexer),
		participle.Elide("Whitespace"),
	)
}

// Parse compiles a pattern string into a Pattern. Patterns are almost
// always constant rule-catalog literals, so a bad one is a programming
// error; callers that want a catalog entry to fail loudly on a typo
// should use MustParse instead.
func Parse(src string) (*Pattern, error) {
	buildOnce.Do(build)
	if buildErr != nil {
		return nil, buildErr
	}
	return parser.ParseString("", src)
}

// MustParse is Parse, panicking on error; the idiom for package-level
// pattern literals in a rule catalog.
func MustParse(src string) *Pattern {
	p, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return p
}
