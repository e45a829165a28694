package chaincode

import (
	"encoding/json"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/shopspring/decimal"

	"github.com/anziyang2000/hq-code-sub000/schema"
)

// Token is one holder's record of a semi-fungible ticket batch. Records are
// keyed (owner, tokenID); the primary-owner pointer under the token id alone
// resolves id-only lookups. Balance never exceeds TotalBalance.
type Token struct {
	TokenID           string          `json:"token_id"`
	Owner             string          `json:"owner"`
	Slot              json.RawMessage `json:"slot"`
	Balance           string          `json:"balance"`
	TotalBalance      string          `json:"total_balance"`
	AvailableTotalNum string          `json:"available_total_num"`
	Metadata          json.RawMessage `json:"metadata"`
}

// auditRecord mirrors every balance mutation for off-chain reconciliation.
type auditRecord struct {
	TxID      string `json:"tx_id"`
	Type      string `json:"type"`
	From      string `json:"from"`
	To        string `json:"to"`
	TokenID   string `json:"token_id"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
}

// Mint creates a new ticket batch for owner. The slot must pass whole-slot
// structural validation and the balance must be a positive number.
func (s *SmartContract) Mint(ctx contractapi.TransactionContextInterface, tokenID, owner, slotJSON, balance, metadataJSON, timestamp string) (bool, error) {
	const op = "mint"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}

	ownerPtr, err := tokenOwnerKey(stub, tokenID)
	if err != nil {
		return false, contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	existing, err := stub.GetState(ownerPtr)
	if err != nil {
		return false, contractErr(codeNotFound, op, "failed to read token: %v", err)
	}
	if existing != nil {
		return false, contractErr(codeAlreadyExists, op, "The tokenId %s is already minted", tokenID)
	}

	amount, err := parseAmount(op, "balance", balance)
	if err != nil {
		return false, err
	}
	if !amount.IsPositive() {
		return false, contractErr(codeInsufficient, op, "The balance %s should be a positive number", balance)
	}

	if err := schema.ValidateJSON(schema.TicketSlot, []byte(slotJSON), ""); err != nil {
		return false, structureErr(err)
	}

	token := &Token{
		TokenID:           tokenID,
		Owner:             owner,
		Slot:              json.RawMessage(slotJSON),
		Balance:           amount.String(),
		TotalBalance:      amount.String(),
		AvailableTotalNum: amount.String(),
		Metadata:          json.RawMessage(metadataJSON),
	}
	if err := putToken(stub, op, token); err != nil {
		return false, err
	}
	if err := stub.PutState(ownerPtr, []byte(owner)); err != nil {
		return false, contractErr(codeStructure, op, "failed to write owner pointer: %v", err)
	}
	return true, emitAudit(stub, op, "Mint", "", owner, tokenID, amount.String(), timestamp)
}

// Burn destroys ticket quantity held by the primary owner. An empty amount
// deletes the record and every index entry. With an amount the balance is
// decremented; a burn that lands exactly on zero keeps the zero-balance record
// so later installment activity can still address it, and only the amount-less
// burn removes state.
func (s *SmartContract) Burn(ctx contractapi.TransactionContextInterface, tokenID, amount, timestamp string) (bool, error) {
	const op = "burn"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}

	owner, err := resolvePrimaryOwner(stub, op, tokenID)
	if err != nil {
		return false, err
	}
	token, err := getToken(stub, op, owner, tokenID)
	if err != nil {
		return false, err
	}
	if token == nil {
		return false, contractErr(codeNotFound, op, "The tokenId %s is invalid. It does not exist", tokenID)
	}

	if amount == "" {
		if err := deleteToken(stub, op, token); err != nil {
			return false, err
		}
		return true, emitAudit(stub, op, "Burn", owner, "", tokenID, token.Balance, timestamp)
	}

	burn, err := parseAmount(op, "amount", amount)
	if err != nil {
		return false, err
	}
	bal, err := parseAmount(op, "balance", token.Balance)
	if err != nil {
		return false, err
	}
	if burn.GreaterThan(bal) {
		return false, contractErr(codeInsufficient, op, "The balance %s is insufficient to burn %s", token.Balance, amount)
	}
	token.Balance = bal.Sub(burn).String()
	if err := putToken(stub, op, token); err != nil {
		return false, err
	}
	return true, emitAudit(stub, op, "Burn", owner, "", tokenID, amount, timestamp)
}

// resolvePrimaryOwner maps a token id to its primary owner via the pointer
// record written at mint time.
func resolvePrimaryOwner(stub shim.ChaincodeStubInterface, op, tokenID string) (string, error) {
	key, err := tokenOwnerKey(stub, tokenID)
	if err != nil {
		return "", contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	owner, err := stub.GetState(key)
	if err != nil {
		return "", contractErr(codeNotFound, op, "failed to read owner pointer: %v", err)
	}
	if owner == nil {
		return "", contractErr(codeNotFound, op, "The tokenId %s is invalid. It does not exist", tokenID)
	}
	return string(owner), nil
}

// getToken loads one holder's record, or nil when absent.
func getToken(stub shim.ChaincodeStubInterface, op, owner, tokenID string) (*Token, error) {
	key, err := tokenKey(stub, owner, tokenID)
	if err != nil {
		return nil, contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := stub.GetState(key)
	if err != nil {
		return nil, contractErr(codeNotFound, op, "failed to read token: %v", err)
	}
	if data == nil {
		return nil, nil
	}
	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, contractErr(codeStructure, op, "failed to unmarshal token: %v", err)
	}
	return &token, nil
}

// putToken writes a holder record and keeps its balance shard and owner index
// in step.
func putToken(stub shim.ChaincodeStubInterface, op string, token *Token) error {
	key, err := tokenKey(stub, token.Owner, token.TokenID)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return contractErr(codeStructure, op, "failed to marshal token: %v", err)
	}
	if err := stub.PutState(key, data); err != nil {
		return contractErr(codeStructure, op, "failed to write token: %v", err)
	}

	balKey, err := balanceKey(stub, token.Owner, token.TokenID)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	if err := stub.PutState(balKey, []byte(token.Balance)); err != nil {
		return contractErr(codeStructure, op, "failed to write balance shard: %v", err)
	}

	idxKey, err := ownerIndexKey(stub, token.Owner, token.TokenID)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	if err := stub.PutState(idxKey, []byte{0x00}); err != nil {
		return contractErr(codeStructure, op, "failed to write owner index: %v", err)
	}
	return nil
}

// deleteToken removes a holder record, its indices, and the primary-owner
// pointer when the holder is the primary owner.
func deleteToken(stub shim.ChaincodeStubInterface, op string, token *Token) error {
	key, err := tokenKey(stub, token.Owner, token.TokenID)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	if err := stub.DelState(key); err != nil {
		return contractErr(codeStructure, op, "failed to delete token: %v", err)
	}
	balKey, err := balanceKey(stub, token.Owner, token.TokenID)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	if err := stub.DelState(balKey); err != nil {
		return contractErr(codeStructure, op, "failed to delete balance shard: %v", err)
	}
	idxKey, err := ownerIndexKey(stub, token.Owner, token.TokenID)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	if err := stub.DelState(idxKey); err != nil {
		return contractErr(codeStructure, op, "failed to delete owner index: %v", err)
	}

	ownerPtr, err := tokenOwnerKey(stub, token.TokenID)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	primary, err := stub.GetState(ownerPtr)
	if err != nil {
		return contractErr(codeNotFound, op, "failed to read owner pointer: %v", err)
	}
	if string(primary) == token.Owner {
		if err := stub.DelState(ownerPtr); err != nil {
			return contractErr(codeStructure, op, "failed to delete owner pointer: %v", err)
		}
	}
	return nil
}

// preparedTransfer is a split-transfer computed but not yet written. All
// checks run against the prepared records first; writes happen only once the
// whole operation has passed.
type preparedTransfer struct {
	sender   *Token
	receiver *Token
}

// prepareSplitTransfer moves amount of tokenID from one holder to another. A
// missing receiver record is cloned from the sender's slot and metadata with
// the transferred amount as its balance. Sender and receiver must differ:
// aliasing them would re-read the pre-decrement record as the receiver and
// conjure amount out of nothing.
func prepareSplitTransfer(stub shim.ChaincodeStubInterface, op, from, to, tokenID string, amount decimal.Decimal) (*preparedTransfer, error) {
	if from == to {
		return nil, contractErr(codeStructure, op, "The sender %s and receiver %s cannot be the same", from, to)
	}
	sender, err := getToken(stub, op, from, tokenID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, contractErr(codeNotFound, op, "The tokenId %s is invalid. It does not exist", tokenID)
	}
	senderBal, err := parseAmount(op, "balance", sender.Balance)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(senderBal) {
		return nil, contractErr(codeInsufficient, op, "The balance %s of %s is insufficient to transfer %s",
			sender.Balance, from, amount.String())
	}
	sender.Balance = senderBal.Sub(amount).String()

	receiver, err := getToken(stub, op, to, tokenID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		receiver = &Token{
			TokenID:           tokenID,
			Owner:             to,
			Slot:              sender.Slot,
			Balance:           amount.String(),
			TotalBalance:      amount.String(),
			AvailableTotalNum: "0",
			Metadata:          sender.Metadata,
		}
	} else {
		recvBal, err := parseAmount(op, "balance", receiver.Balance)
		if err != nil {
			return nil, err
		}
		recvTotal, err := parseAmount(op, "total_balance", receiver.TotalBalance)
		if err != nil {
			return nil, err
		}
		receiver.Balance = recvBal.Add(amount).String()
		receiver.TotalBalance = recvTotal.Add(amount).String()
	}
	return &preparedTransfer{sender: sender, receiver: receiver}, nil
}

// commit writes both sides of a prepared transfer.
func (p *preparedTransfer) commit(stub shim.ChaincodeStubInterface, op string) error {
	if err := putToken(stub, op, p.sender); err != nil {
		return err
	}
	return putToken(stub, op, p.receiver)
}

// emitAudit records the mutation under the transaction id and publishes it as
// a chaincode event.
func emitAudit(stub shim.ChaincodeStubInterface, op, typ, from, to, tokenID, amount, timestamp string) error {
	rec := auditRecord{
		TxID:      stub.GetTxID(),
		Type:      typ,
		From:      from,
		To:        to,
		TokenID:   tokenID,
		Amount:    amount,
		Timestamp: timestamp,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return contractErr(codeStructure, op, "failed to marshal audit record: %v", err)
	}
	key, err := auditKey(stub, stub.GetTxID())
	if err != nil {
		return contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	if err := stub.PutState(key, data); err != nil {
		return contractErr(codeStructure, op, "failed to write audit record: %v", err)
	}
	if err := stub.SetEvent(typ+"Event", data); err != nil {
		return contractErr(codeStructure, op, "failed to set event: %v", err)
	}
	return nil
}
