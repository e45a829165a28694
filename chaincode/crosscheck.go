package chaincode

import (
	"github.com/shopspring/decimal"
)

// Split-transfer and activation callers pass the post-state they expect a
// derived figure to reach alongside the delta to apply. The ledger recomputes
// that post-state from its own pre-state and aborts on disagreement. The
// off-chain system may hold a stale view; this turns silent accounting drift
// into a rejected call instead of a quietly wrong balance. It is an invariant
// check in its own right, not part of structural validation, and it must run
// before any state is written.

// checkExpected compares the ledger's recomputed figure with the caller's
// expectation for the named field.
func checkExpected(op, field string, computed, expected decimal.Decimal) error {
	if !computed.Equal(expected) {
		return contractErr(codeStructure, op, "Updated balance %s does not match %s %s",
			computed.String(), field, expected.String())
	}
	return nil
}
