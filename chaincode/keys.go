package chaincode

import (
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// Composite key categories. Every record the contract owns lives under one of
// these, built with the stub's deterministic composite key construction.
const (
	ticketKeyType        = "ticket"        // (owner, tokenID) -> Token
	ticketOwnerKeyType   = "ticketOwner"   // (tokenID) -> primary owner
	ticketBalanceKeyType = "ticketBalance" // (owner, tokenID) -> balance string
	ownerTicketKeyType   = "ownerTicket"   // (owner, tokenID) -> marker
	auditKeyType         = "audit"         // (txID) -> audit record
	orderKeyType         = "order"         // (orderID) -> Order
	refundKeyType        = "refund"        // (refundID) -> Refund
	creditKeyType        = "credit"        // (merchantID) -> Credit
	paymentKeyType       = "payment"       // (transactionID) -> Payment
	orgAdminKeyType      = "orgAdmin"      // (orgID) -> admin list
	replayKeyType        = "replay"        // (namespaced id) -> marker
)

// Plain state keys written once at Init.
const (
	nameKey    = "ticketName"
	symbolKey  = "ticketSymbol"
	baseURIKey = "ticketBaseURI"
)

func tokenKey(stub shim.ChaincodeStubInterface, owner, tokenID string) (string, error) {
	return stub.CreateCompositeKey(ticketKeyType, []string{owner, tokenID})
}

func tokenOwnerKey(stub shim.ChaincodeStubInterface, tokenID string) (string, error) {
	return stub.CreateCompositeKey(ticketOwnerKeyType, []string{tokenID})
}

func balanceKey(stub shim.ChaincodeStubInterface, owner, tokenID string) (string, error) {
	return stub.CreateCompositeKey(ticketBalanceKeyType, []string{owner, tokenID})
}

func ownerIndexKey(stub shim.ChaincodeStubInterface, owner, tokenID string) (string, error) {
	return stub.CreateCompositeKey(ownerTicketKeyType, []string{owner, tokenID})
}

func orderKey(stub shim.ChaincodeStubInterface, orderID string) (string, error) {
	return stub.CreateCompositeKey(orderKeyType, []string{orderID})
}

func refundKey(stub shim.ChaincodeStubInterface, refundID string) (string, error) {
	return stub.CreateCompositeKey(refundKeyType, []string{refundID})
}

func creditKey(stub shim.ChaincodeStubInterface, merchantID string) (string, error) {
	return stub.CreateCompositeKey(creditKeyType, []string{merchantID})
}

func paymentKey(stub shim.ChaincodeStubInterface, transactionID string) (string, error) {
	return stub.CreateCompositeKey(paymentKeyType, []string{transactionID})
}

func orgAdminKey(stub shim.ChaincodeStubInterface, orgID string) (string, error) {
	return stub.CreateCompositeKey(orgAdminKeyType, []string{orgID})
}

func replayKey(stub shim.ChaincodeStubInterface, namespacedID string) (string, error) {
	return stub.CreateCompositeKey(replayKeyType, []string{namespacedID})
}

func auditKey(stub shim.ChaincodeStubInterface, txID string) (string, error) {
	return stub.CreateCompositeKey(auditKeyType, []string{txID})
}
