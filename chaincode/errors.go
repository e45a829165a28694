package chaincode

import (
	"encoding/json"
	"fmt"
)

// Contract error codes returned inside the failure envelope.
const (
	codeInsufficient   = 3001 // insufficient balance or credit
	codeAlreadyExists  = 3002 // duplicate record or replayed external id
	codeRequiredField  = 3005 // required field empty
	codeStructure      = 3006 // structural validation or consistency failure
	codeNotAuthorized  = 3007 // caller not authorized for this resource
	codeNotFound       = 3008 // record absent or organization unregistered
	codeNotInitialized = 4001 // contract not initialized
)

// Error is the uniform failure envelope every entrypoint returns on failure.
// Its Error() string is the JSON document itself, so the invoking peer hands
// clients a parseable reason.
type Error struct {
	Code int    `json:"contract_code"`
	Msg  string `json:"contract_msg"`
}

func (e *Error) Error() string {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"contract_code":%d,"contract_msg":%q}`, e.Code, e.Msg)
	}
	return string(b)
}

// contractErr builds an envelope error. op is the entrypoint name; it prefixes
// the detail so the failing operation is visible in the reason string.
func contractErr(code int, op, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: op + ": " + fmt.Sprintf(format, args...)}
}

// structureErr wraps a validator violation into the 3006 envelope. The
// message is prefixed by the validating step, not the entrypoint.
func structureErr(err error) *Error {
	return &Error{Code: codeStructure, Msg: "validateStructure: " + err.Error()}
}
