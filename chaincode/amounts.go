package chaincode

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Balances, quantities and ratios travel as decimal strings and are computed
// with shopspring/decimal. Float arithmetic would make endorsers disagree on
// the cross-checked figures.

// parseAmount parses a caller-supplied numeric string field.
func parseAmount(op, field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, contractErr(codeRequiredField, op, "%s should not be empty", field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, contractErr(codeStructure, op, "The %s %s is not a valid number", field, s)
	}
	return d, nil
}

// parseNumber converts a decoded JSON number. Payloads pass structural
// validation first, so a bad number here is a programming error, but it is
// still reported rather than panicking inside a transaction.
func parseNumber(op, field string, n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, contractErr(codeStructure, op, "The %s %s is not a valid number", field, n.String())
	}
	return d, nil
}
