package diag

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Violation describes an invariant violation or capability mismatch:
// the two fatal error kinds from spec §7. Unlike the teacher's
// CompilerError, a Violation is never "reported and continued" — it is
// always fed to Fatal, which aborts the process.
type Violation struct {
	Code    string
	Message string
	Method  string // declaring-type#name, when known
	Detail  string // offending instruction's String(), when known
}

func (v Violation) String() string {
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	s := fmt.Sprintf("%s[%s]: %s\n", red("invariant violation"), v.Code, bold(v.Message))
	if v.Method != "" {
		s += fmt.Sprintf("  %s %s\n", dim("in"), v.Method)
	}
	if v.Detail != "" {
		s += fmt.Sprintf("  %s %s\n", dim("at"), v.Detail)
	}
	return s
}

// exitFunc is overridden in tests so Fatal's abort path is exercisable
// without actually killing the test binary.
var exitFunc = os.Exit

// Fatal prints a Violation and terminates the process. There is no
// retry and no partial commit (spec §7): a pass either completes and
// mutates, or the process aborts here.
func Fatal(v Violation) {
	fmt.Fprint(os.Stderr, v.String())
	exitFunc(1)
}

// Invariant is a convenience wrapper: if cond is false, it reports and
// aborts with the given code/message. Passes call this at the point an
// internal invariant is checked rather than propagating an error value,
// matching spec §7's "fails with an assertion" model.
func Invariant(cond bool, code, message, method, detail string) {
	if cond {
		return
	}
	Fatal(Violation{Code: code, Message: message, Method: method, Detail: detail})
}

// CapabilityMismatch aborts when a pass requires a capability (e.g. an
// editable CFG) that the input does not provide.
func CapabilityMismatch(message, method string) {
	Fatal(Violation{Code: CodeCapabilityMismatch, Message: message, Method: method})
}
