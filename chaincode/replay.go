package chaincode

import (
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// The off-chain order and payment systems deliver at least once, so every
// externally-identified mutation is guarded by a replay marker: a record whose
// mere existence means the id was already processed. The marker is written in
// the same proposal as the mutation it guards, so either both commit or
// neither does.

// Replay namespaces. The namespace keeps ids from different business domains
// from colliding under one marker space.
const (
	orderReplayNS       = "order"
	refundReplayNS      = "refund"
	tradeReplayNS       = "trade"
	transactionReplayNS = "transaction"
)

// ensureNotProcessed rejects an external id that already has a marker. label
// names the id in the error ("orderId", "tradeNo", ...) and verb is the
// domain's wording ("stored", "used").
func ensureNotProcessed(stub shim.ChaincodeStubInterface, op, ns, id, label, verb string) error {
	key, err := replayKey(stub, ns+id)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build replay key: %v", err)
	}
	marker, err := stub.GetState(key)
	if err != nil {
		return contractErr(codeNotFound, op, "failed to read replay marker: %v", err)
	}
	if marker != nil {
		return contractErr(codeAlreadyExists, op, "The %s %s has already been %s", label, id, verb)
	}
	return nil
}

// markProcessed writes the marker for a successfully applied external id.
func markProcessed(stub shim.ChaincodeStubInterface, op, ns, id, timestamp string) error {
	key, err := replayKey(stub, ns+id)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build replay key: %v", err)
	}
	value := []byte(timestamp)
	if len(value) == 0 {
		value = []byte{0x00}
	}
	if err := stub.PutState(key, value); err != nil {
		return contractErr(codeStructure, op, "failed to write replay marker: %v", err)
	}
	return nil
}
