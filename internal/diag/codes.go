// Package diag implements the core's three-way error model (spec §7):
// invariant violations and capability mismatches are fatal and abort
// the process; unresolved references are expected and only counted.
package diag

// Code ranges, mirroring the teacher's ranged error-code table but
// repurposed for the core's own failure modes instead of user-source
// diagnostics.
//
// D0001-D0099: invariant violations (CFG/IR consistency bugs)
// D0100-D0199: capability mismatches (pass requires a capability the
//              input doesn't have, e.g. an editable CFG)
const (
	CodeCFGInconsistent      = "D0001"
	CodeWidePairSplit        = "D0002"
	CodeMoveResultOrphan     = "D0003"
	CodeRegisterGap          = "D0004"
	CodeUnreachableEntryEdge = "D0005"
	CodeDuplicateCatchType   = "D0006"

	CodeCapabilityMismatch = "D0100"
)
