// Package chaincode implements a semi-fungible ticket contract: splittable,
// ownable token batches carrying schema-governed slot metadata, settled
// against an at-least-once off-chain order and payment system. Structural
// validation gates every mutable payload, replay markers give external ids
// exactly-once semantics, and derived figures are cross-checked against the
// caller's expectation before anything is written.
package chaincode

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/shopspring/decimal"
)

// SmartContract provides the ticket, order and credit entrypoints.
type SmartContract struct {
	contractapi.Contract
}

// Init stores the collection name, symbol, and token URI base. Every other
// entrypoint fails with 4001 until this has run.
func (s *SmartContract) Init(ctx contractapi.TransactionContextInterface, name, symbol, baseURI string) (bool, error) {
	const op = "init"
	stub := ctx.GetStub()
	existing, err := stub.GetState(nameKey)
	if err != nil {
		return false, contractErr(codeNotFound, op, "failed to read contract state: %v", err)
	}
	if existing != nil {
		return false, contractErr(codeAlreadyExists, op, "The contract has already been initialized")
	}
	if name == "" || symbol == "" {
		return false, contractErr(codeRequiredField, op, "name and symbol should not be empty")
	}
	if err := stub.PutState(nameKey, []byte(name)); err != nil {
		return false, contractErr(codeStructure, op, "failed to write name: %v", err)
	}
	if err := stub.PutState(symbolKey, []byte(symbol)); err != nil {
		return false, contractErr(codeStructure, op, "failed to write symbol: %v", err)
	}
	if err := stub.PutState(baseURIKey, []byte(baseURI)); err != nil {
		return false, contractErr(codeStructure, op, "failed to write base URI: %v", err)
	}
	return true, nil
}

func requireInitialized(stub shim.ChaincodeStubInterface, op string) error {
	name, err := stub.GetState(nameKey)
	if err != nil {
		return contractErr(codeNotFound, op, "failed to read contract state: %v", err)
	}
	if name == nil {
		return contractErr(codeNotInitialized, op, "The contract has not been initialized")
	}
	return nil
}

// Name returns the collection name.
func (s *SmartContract) Name(ctx contractapi.TransactionContextInterface) (string, error) {
	return s.readInitKey(ctx, "name", nameKey)
}

// Symbol returns the collection symbol.
func (s *SmartContract) Symbol(ctx contractapi.TransactionContextInterface) (string, error) {
	return s.readInitKey(ctx, "symbol", symbolKey)
}

func (s *SmartContract) readInitKey(ctx contractapi.TransactionContextInterface, op, key string) (string, error) {
	value, err := ctx.GetStub().GetState(key)
	if err != nil {
		return "", contractErr(codeNotFound, op, "failed to read contract state: %v", err)
	}
	if value == nil {
		return "", contractErr(codeNotInitialized, op, "The contract has not been initialized")
	}
	return string(value), nil
}

// TotalSupply sums every holder's balance shard with a prefix range query.
func (s *SmartContract) TotalSupply(ctx contractapi.TransactionContextInterface) (string, error) {
	const op = "totalSupply"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return "", err
	}
	iter, err := stub.GetStateByPartialCompositeKey(ticketBalanceKeyType, []string{})
	if err != nil {
		return "", contractErr(codeNotFound, op, "failed to range balances: %v", err)
	}
	defer iter.Close()

	total := decimal.Zero
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return "", contractErr(codeNotFound, op, "failed to iterate balances: %v", err)
		}
		bal, err := parseAmount(op, "balance", string(kv.Value))
		if err != nil {
			return "", err
		}
		total = total.Add(bal)
	}
	return total.String(), nil
}

// BalanceOfValue returns the primary owner's balance of a token id.
func (s *SmartContract) BalanceOfValue(ctx contractapi.TransactionContextInterface, tokenID string) (string, error) {
	const op = "balanceOfValue"
	token, err := s.readPrimaryToken(ctx, op, tokenID)
	if err != nil {
		return "", err
	}
	return token.Balance, nil
}

// OwnerOf returns the primary owner of a token id.
func (s *SmartContract) OwnerOf(ctx contractapi.TransactionContextInterface, tokenID string) (string, error) {
	const op = "ownerOf"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return "", err
	}
	return resolvePrimaryOwner(stub, op, tokenID)
}

// SlotOf returns the structured slot metadata of a token id.
func (s *SmartContract) SlotOf(ctx contractapi.TransactionContextInterface, tokenID string) (string, error) {
	const op = "slotOf"
	token, err := s.readPrimaryToken(ctx, op, tokenID)
	if err != nil {
		return "", err
	}
	return string(token.Slot), nil
}

// TokenURI returns the metadata URI of a token id.
func (s *SmartContract) TokenURI(ctx contractapi.TransactionContextInterface, tokenID string) (string, error) {
	const op = "tokenURI"
	stub := ctx.GetStub()
	if _, err := s.readPrimaryToken(ctx, op, tokenID); err != nil {
		return "", err
	}
	base, err := stub.GetState(baseURIKey)
	if err != nil {
		return "", contractErr(codeNotFound, op, "failed to read base URI: %v", err)
	}
	return string(base) + tokenID, nil
}

// ReadTicket returns the primary owner's full token record as JSON.
func (s *SmartContract) ReadTicket(ctx contractapi.TransactionContextInterface, tokenID string) (string, error) {
	const op = "readTicket"
	token, err := s.readPrimaryToken(ctx, op, tokenID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(token)
	if err != nil {
		return "", contractErr(codeStructure, op, "failed to marshal token: %v", err)
	}
	return string(data), nil
}

// CreateTicketId derives a fresh ticket id from the transaction id and the
// stock batch number. SHA1-namespaced uuids keep the result identical across
// endorsers; a random uuid would split the endorsement.
func (s *SmartContract) CreateTicketId(ctx contractapi.TransactionContextInterface, stockBatchNumber string) (string, error) {
	const op = "createTicketId"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return "", err
	}
	if stockBatchNumber == "" {
		return "", contractErr(codeRequiredField, op, "stockBatchNumber should not be empty")
	}
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(stub.GetTxID()+stockBatchNumber))
	return id.String(), nil
}

func (s *SmartContract) readPrimaryToken(ctx contractapi.TransactionContextInterface, op, tokenID string) (*Token, error) {
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return nil, err
	}
	owner, err := resolvePrimaryOwner(stub, op, tokenID)
	if err != nil {
		return nil, err
	}
	token, err := getToken(stub, op, owner, tokenID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, contractErr(codeNotFound, op, "The tokenId %s is invalid. It does not exist", tokenID)
	}
	return token, nil
}
