package chaincode

import (
	"encoding/json"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/anziyang2000/hq-code-sub000/schema"
)

// Credit is a merchant's credit line.
type Credit struct {
	MerchantID   string `json:"merchant_id"`
	Owner        string `json:"owner"`
	CreditLimit  string `json:"credit_limit"`
	PledgeAmount string `json:"pledge_amount"`
	Activated    bool   `json:"activated"`
	UpdatedAt    string `json:"updated_at"`
}

// Payment is one recorded payment transaction.
type Payment struct {
	TransactionID string `json:"transaction_id"`
	MerchantID    string `json:"merchant_id"`
	Payer         string `json:"payer"`
	Amount        string `json:"amount"`
	PayType       string `json:"pay_type"`
	PayTime       string `json:"pay_time"`
}

// StoreCreditInfo adds, modifies, or activates a merchant credit line. Which
// operation runs is driven by what exists and which fields are filled: no
// record yet is an add and requires creditLimit; an existing record with a
// non-empty pledgeAmount is an activation; an existing record otherwise is a
// limit modification and requires creditLimit again.
func (s *SmartContract) StoreCreditInfo(ctx contractapi.TransactionContextInterface, creditJSON, timestamp string) (bool, error) {
	const op = "storeCreditInfo"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	if err := schema.ValidateJSON(schema.CreditInfo, []byte(creditJSON), "CreditInfo"); err != nil {
		return false, structureErr(err)
	}

	var incoming Credit
	if err := json.Unmarshal([]byte(creditJSON), &incoming); err != nil {
		return false, contractErr(codeStructure, op, "failed to unmarshal credit info: %v", err)
	}
	if incoming.MerchantID == "" {
		return false, contractErr(codeRequiredField, op, "merchantId should not be empty")
	}

	existing, err := getCredit(stub, op, incoming.MerchantID)
	if err != nil {
		return false, err
	}

	var record *Credit
	switch {
	case existing == nil:
		if incoming.CreditLimit == "" {
			return false, contractErr(codeRequiredField, op, "creditLimit should not be empty")
		}
		if _, err := parseAmount(op, "creditLimit", incoming.CreditLimit); err != nil {
			return false, err
		}
		record = &Credit{
			MerchantID:  incoming.MerchantID,
			Owner:       incoming.Owner,
			CreditLimit: incoming.CreditLimit,
			UpdatedAt:   timestamp,
		}
	case incoming.PledgeAmount != "":
		if _, err := parseAmount(op, "pledgeAmount", incoming.PledgeAmount); err != nil {
			return false, err
		}
		existing.PledgeAmount = incoming.PledgeAmount
		existing.Activated = true
		existing.UpdatedAt = timestamp
		record = existing
	default:
		if incoming.CreditLimit == "" {
			return false, contractErr(codeRequiredField, op, "creditLimit should not be empty")
		}
		if _, err := parseAmount(op, "creditLimit", incoming.CreditLimit); err != nil {
			return false, err
		}
		existing.CreditLimit = incoming.CreditLimit
		existing.UpdatedAt = timestamp
		record = existing
	}

	if err := putCredit(stub, op, record); err != nil {
		return false, err
	}
	return true, emitAudit(stub, op, "StoreCreditInfo", "", record.MerchantID, "", record.CreditLimit, timestamp)
}

// TransferCredit moves credit limit between merchants. The payload's from must
// be the on-ledger owner of the sender's credit record; this is resource
// ownership, separate from the org-admin gate. The tradeNo is external and
// replay-guarded.
func (s *SmartContract) TransferCredit(ctx contractapi.TransactionContextInterface, transferJSON, timestamp string) (bool, error) {
	const op = "transferCredit"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	if err := schema.ValidateJSON(schema.CreditTransferInfo, []byte(transferJSON), "CreditTransferInfo"); err != nil {
		return false, structureErr(err)
	}

	var transfer struct {
		TradeNo string `json:"trade_no"`
		From    string `json:"from"`
		To      string `json:"to"`
		Amount  string `json:"amount"`
	}
	if err := json.Unmarshal([]byte(transferJSON), &transfer); err != nil {
		return false, contractErr(codeStructure, op, "failed to unmarshal transfer: %v", err)
	}
	if transfer.TradeNo == "" {
		return false, contractErr(codeRequiredField, op, "tradeNo should not be empty")
	}
	// A self-transfer would re-read the pre-decrement record as the receiver
	// and inflate the limit by the transferred amount.
	if transfer.From == transfer.To {
		return false, contractErr(codeStructure, op, "The from %s and to %s cannot be the same", transfer.From, transfer.To)
	}
	if err := ensureNotProcessed(stub, op, tradeReplayNS, transfer.TradeNo, "tradeNo", "used"); err != nil {
		return false, err
	}

	sender, err := getCredit(stub, op, transfer.From)
	if err != nil {
		return false, err
	}
	if sender == nil {
		return false, contractErr(codeNotFound, op, "The merchantId %s is invalid. It does not exist", transfer.From)
	}
	if transfer.From != sender.Owner {
		return false, contractErr(codeNotAuthorized, op, "The caller %s is not the owner of the credit record of %s", transfer.From, sender.MerchantID)
	}

	amount, err := parseAmount(op, "amount", transfer.Amount)
	if err != nil {
		return false, err
	}
	if !amount.IsPositive() {
		return false, contractErr(codeInsufficient, op, "The amount %s should be a positive number", transfer.Amount)
	}
	limit, err := parseAmount(op, "creditLimit", sender.CreditLimit)
	if err != nil {
		return false, err
	}
	if amount.GreaterThan(limit) {
		return false, contractErr(codeInsufficient, op, "The credit limit %s is insufficient to transfer %s", sender.CreditLimit, transfer.Amount)
	}
	sender.CreditLimit = limit.Sub(amount).String()
	sender.UpdatedAt = timestamp

	receiver, err := getCredit(stub, op, transfer.To)
	if err != nil {
		return false, err
	}
	if receiver == nil {
		receiver = &Credit{
			MerchantID:  transfer.To,
			Owner:       transfer.To,
			CreditLimit: amount.String(),
			UpdatedAt:   timestamp,
		}
	} else {
		recvLimit, err := parseAmount(op, "creditLimit", receiver.CreditLimit)
		if err != nil {
			return false, err
		}
		receiver.CreditLimit = recvLimit.Add(amount).String()
		receiver.UpdatedAt = timestamp
	}

	if err := putCredit(stub, op, sender); err != nil {
		return false, err
	}
	if err := putCredit(stub, op, receiver); err != nil {
		return false, err
	}
	if err := markProcessed(stub, op, tradeReplayNS, transfer.TradeNo, timestamp); err != nil {
		return false, err
	}
	return true, emitAudit(stub, op, "TransferCredit", transfer.From, transfer.To, "", transfer.Amount, timestamp)
}

// PaymentFlow records one payment, replay-guarded on the transaction id. A
// credit payment additionally consumes the payer's activated credit line.
func (s *SmartContract) PaymentFlow(ctx contractapi.TransactionContextInterface, paymentJSON, timestamp string) (bool, error) {
	const op = "paymentFlow"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	if err := schema.ValidateJSON(schema.PaymentInfo, []byte(paymentJSON), "PaymentInfo"); err != nil {
		return false, structureErr(err)
	}

	var payment Payment
	if err := json.Unmarshal([]byte(paymentJSON), &payment); err != nil {
		return false, contractErr(codeStructure, op, "failed to unmarshal payment: %v", err)
	}
	if payment.TransactionID == "" {
		return false, contractErr(codeRequiredField, op, "transactionId should not be empty")
	}
	if err := ensureNotProcessed(stub, op, transactionReplayNS, payment.TransactionID, "transaction", "used"); err != nil {
		return false, err
	}

	if payment.PayType == "credit" {
		payer, err := getCredit(stub, op, payment.Payer)
		if err != nil {
			return false, err
		}
		if payer == nil {
			return false, contractErr(codeNotFound, op, "The merchantId %s is invalid. It does not exist", payment.Payer)
		}
		if !payer.Activated {
			return false, contractErr(codeNotAuthorized, op, "The credit line of %s has not been activated", payment.Payer)
		}
		amount, err := parseAmount(op, "amount", payment.Amount)
		if err != nil {
			return false, err
		}
		limit, err := parseAmount(op, "creditLimit", payer.CreditLimit)
		if err != nil {
			return false, err
		}
		if amount.GreaterThan(limit) {
			return false, contractErr(codeInsufficient, op, "The credit limit %s is insufficient to pay %s", payer.CreditLimit, payment.Amount)
		}
		payer.CreditLimit = limit.Sub(amount).String()
		payer.UpdatedAt = timestamp
		if err := putCredit(stub, op, payer); err != nil {
			return false, err
		}
	}

	key, err := paymentKey(stub, payment.TransactionID)
	if err != nil {
		return false, contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := json.Marshal(payment)
	if err != nil {
		return false, contractErr(codeStructure, op, "failed to marshal payment: %v", err)
	}
	if err := stub.PutState(key, data); err != nil {
		return false, contractErr(codeStructure, op, "failed to write payment: %v", err)
	}
	if err := markProcessed(stub, op, transactionReplayNS, payment.TransactionID, timestamp); err != nil {
		return false, err
	}
	return true, emitAudit(stub, op, "PaymentFlow", payment.Payer, payment.MerchantID, "", payment.Amount, timestamp)
}

func getCredit(stub shim.ChaincodeStubInterface, op, merchantID string) (*Credit, error) {
	key, err := creditKey(stub, merchantID)
	if err != nil {
		return nil, contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := stub.GetState(key)
	if err != nil {
		return nil, contractErr(codeNotFound, op, "failed to read credit record: %v", err)
	}
	if data == nil {
		return nil, nil
	}
	var credit Credit
	if err := json.Unmarshal(data, &credit); err != nil {
		return nil, contractErr(codeStructure, op, "failed to unmarshal credit record: %v", err)
	}
	return &credit, nil
}

func putCredit(stub shim.ChaincodeStubInterface, op string, credit *Credit) error {
	key, err := creditKey(stub, credit.MerchantID)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := json.Marshal(credit)
	if err != nil {
		return contractErr(codeStructure, op, "failed to marshal credit record: %v", err)
	}
	if err := stub.PutState(key, data); err != nil {
		return contractErr(codeStructure, op, "failed to write credit record: %v", err)
	}
	return nil
}
