package chaincode

import (
	"encoding/json"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/shopspring/decimal"

	"github.com/anziyang2000/hq-code-sub000/schema"
)

// Order is a settled purchase delivered by the off-chain order system. Its
// batches drive the split-transfers of DistributionOrder; Distributed flips
// once distribution has run.
type Order struct {
	OrderID     string       `json:"order_id"`
	UserID      string       `json:"user_id"`
	SellerID    string       `json:"seller_id"`
	TotalAmount json.Number  `json:"total_amount"`
	OrderTime   string       `json:"order_time"`
	Batches     []OrderBatch `json:"batches"`
	Distributed bool         `json:"distributed"`
}

// OrderBatch is one stock batch of an order or refund. AvailableRatio > 0
// marks a pre-credit (installment) batch; AvailableTotalNum is the off-chain
// system's expected post-distribution available figure for the cross-check.
type OrderBatch struct {
	BatchID           string      `json:"batch_id"`
	TokenID           string      `json:"token_id"`
	Quantity          json.Number `json:"quantity"`
	AvailableRatio    json.Number `json:"available_ratio"`
	TotalPeriods      json.Number `json:"total_periods"`
	Amount            json.Number `json:"amount"`
	AvailableTotalNum json.Number `json:"available_total_num"`
}

// Refund is the reverse movement of an order, delivered by the same off-chain
// system.
type Refund struct {
	RefundID     string       `json:"refund_id"`
	OrderID      string       `json:"order_id"`
	UserID       string       `json:"user_id"`
	SellerID     string       `json:"seller_id"`
	RefundAmount json.Number  `json:"refund_amount"`
	RefundTime   string       `json:"refund_time"`
	Batches      []OrderBatch `json:"batches"`
	Distributed  bool         `json:"distributed"`
}

// StoreOrder records a settled order. The orderId is external, so it is
// replay-guarded: storing the same order twice fails the second call.
func (s *SmartContract) StoreOrder(ctx contractapi.TransactionContextInterface, orderJSON, timestamp string) (bool, error) {
	const op = "storeOrder"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	if err := schema.ValidateJSON(schema.OrderInfo, []byte(orderJSON), "OrderInfo"); err != nil {
		return false, structureErr(err)
	}

	var order Order
	if err := json.Unmarshal([]byte(orderJSON), &order); err != nil {
		return false, contractErr(codeStructure, op, "failed to unmarshal order: %v", err)
	}
	if err := ensureNotProcessed(stub, op, orderReplayNS, order.OrderID, "orderId", "stored"); err != nil {
		return false, err
	}

	key, err := orderKey(stub, order.OrderID)
	if err != nil {
		return false, contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := json.Marshal(order)
	if err != nil {
		return false, contractErr(codeStructure, op, "failed to marshal order: %v", err)
	}
	if err := stub.PutState(key, data); err != nil {
		return false, contractErr(codeStructure, op, "failed to write order: %v", err)
	}
	if err := markProcessed(stub, op, orderReplayNS, order.OrderID, timestamp); err != nil {
		return false, err
	}
	return true, emitAudit(stub, op, "StoreOrder", order.UserID, order.SellerID, "", order.TotalAmount.String(), timestamp)
}

// StoreRefund records a settled refund, replay-guarded on the refundId.
func (s *SmartContract) StoreRefund(ctx contractapi.TransactionContextInterface, refundJSON, timestamp string) (bool, error) {
	const op = "storeRefund"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	if err := schema.ValidateJSON(schema.RefundInfo, []byte(refundJSON), "RefundInfo"); err != nil {
		return false, structureErr(err)
	}

	var refund Refund
	if err := json.Unmarshal([]byte(refundJSON), &refund); err != nil {
		return false, contractErr(codeStructure, op, "failed to unmarshal refund: %v", err)
	}
	if err := ensureNotProcessed(stub, op, refundReplayNS, refund.RefundID, "refundId", "stored"); err != nil {
		return false, err
	}

	key, err := refundKey(stub, refund.RefundID)
	if err != nil {
		return false, contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := json.Marshal(refund)
	if err != nil {
		return false, contractErr(codeStructure, op, "failed to marshal refund: %v", err)
	}
	if err := stub.PutState(key, data); err != nil {
		return false, contractErr(codeStructure, op, "failed to write refund: %v", err)
	}
	if err := markProcessed(stub, op, refundReplayNS, refund.RefundID, timestamp); err != nil {
		return false, err
	}
	return true, emitAudit(stub, op, "StoreRefund", refund.SellerID, refund.UserID, "", refund.RefundAmount.String(), timestamp)
}

// ReadOrder returns a stored order as JSON.
func (s *SmartContract) ReadOrder(ctx contractapi.TransactionContextInterface, orderID string) (string, error) {
	const op = "readOrder"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return "", err
	}
	order, err := getOrder(stub, op, orderID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(order)
	if err != nil {
		return "", contractErr(codeStructure, op, "failed to marshal order: %v", err)
	}
	return string(data), nil
}

// DistributionOrder moves each batch of a stored order from the seller to the
// buyer. A second distribution of the same order fails; the order record's
// distributed flag carries the idempotency since the order id already owns a
// replay marker from StoreOrder.
func (s *SmartContract) DistributionOrder(ctx contractapi.TransactionContextInterface, orderID, timestamp string) (bool, error) {
	const op = "distributionOrder"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	order, err := getOrder(stub, op, orderID)
	if err != nil {
		return false, err
	}
	if order.Distributed {
		return false, contractErr(codeAlreadyExists, op, "The orderId %s has already been distributed", orderID)
	}

	for _, batch := range order.Batches {
		if err := distributeBatch(stub, op, order.SellerID, order.UserID, batch, false); err != nil {
			return false, err
		}
	}

	order.Distributed = true
	if err := putOrder(stub, op, order); err != nil {
		return false, err
	}
	return true, emitAudit(stub, op, "DistributionOrder", order.SellerID, order.UserID, "", order.TotalAmount.String(), timestamp)
}

// DistributionRefund moves each batch of a stored refund back from the buyer
// to the seller.
func (s *SmartContract) DistributionRefund(ctx contractapi.TransactionContextInterface, refundID, timestamp string) (bool, error) {
	const op = "distributionRefund"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	refund, err := getRefund(stub, op, refundID)
	if err != nil {
		return false, err
	}
	if refund.Distributed {
		return false, contractErr(codeAlreadyExists, op, "The refundId %s has already been distributed", refundID)
	}

	for _, batch := range refund.Batches {
		if err := distributeBatch(stub, op, refund.UserID, refund.SellerID, batch, true); err != nil {
			return false, err
		}
	}

	refund.Distributed = true
	if err := putRefund(stub, op, refund); err != nil {
		return false, err
	}
	return true, emitAudit(stub, op, "DistributionRefund", refund.UserID, refund.SellerID, "", refund.RefundAmount.String(), timestamp)
}

// distributeBatch split-transfers one batch. The buyer's available figure
// moves with the balance: by the full quantity for an ordinary batch, by
// quantity x ratio for a pre-credit batch, in which case the recomputed figure
// must match the off-chain system's expectation before anything is written.
// On a refund the buyer is the sender and the adjustment reverses.
func distributeBatch(stub shim.ChaincodeStubInterface, op, from, to string, batch OrderBatch, refund bool) error {
	qty, err := parseNumber(op, "quantity", batch.Quantity)
	if err != nil {
		return err
	}
	if !qty.IsPositive() {
		return contractErr(codeInsufficient, op, "The quantity %s should be a positive number", batch.Quantity.String())
	}
	ratio, err := parseNumber(op, "available_ratio", batch.AvailableRatio)
	if err != nil {
		return err
	}

	prepared, err := prepareSplitTransfer(stub, op, from, to, batch.TokenID, qty)
	if err != nil {
		return err
	}

	// The buyer side carries the available figure: receiver on an order,
	// sender on a refund.
	buyer := prepared.receiver
	if refund {
		buyer = prepared.sender
	}
	avail, err := parseAmount(op, "available_total_num", buyer.AvailableTotalNum)
	if err != nil {
		return err
	}

	delta := qty
	preCredit := ratio.IsPositive()
	if preCredit {
		delta = qty.Mul(ratio)
	}
	if refund {
		delta = delta.Neg()
	}
	newAvail := avail.Add(delta)

	if preCredit {
		expected, err := parseNumber(op, "available_total_num", batch.AvailableTotalNum)
		if err != nil {
			return err
		}
		if err := checkExpected(op, "available_total_num", newAvail, expected); err != nil {
			return err
		}
	}
	buyer.AvailableTotalNum = newAvail.String()

	return prepared.commit(stub, op)
}

// activateEntry is one installment release of ActivateTickets.
type activateEntry struct {
	OrderID           string      `json:"order_id"`
	BatchID           string      `json:"batch_id"`
	TokenID           string      `json:"token_id"`
	AvailableTotalNum json.Number `json:"available_total_num"`
	Periods           string      `json:"periods"`
	TotalPeriods      json.Number `json:"total_periods"`
	Amount            json.Number `json:"amount"`
	TotalRepayment    json.Number `json:"total_repayment"`
}

// ActivateTickets releases installment-held quantity. Distribution pre-credits
// quantity x ratio of a batch; the remainder is released evenly across the
// batch's periods, perPeriod = quantity x (1 - ratio) / total_periods, and one
// entry releases periods x perPeriod. The buyer's balance after the decrement
// must equal the caller-supplied available_total_num or the whole call aborts
// with nothing written.
func (s *SmartContract) ActivateTickets(ctx contractapi.TransactionContextInterface, activateJSON, timestamp string) (bool, error) {
	const op = "activateTickets"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	if err := schema.ValidateJSON(schema.ArrayOf(schema.ActivateInfo), []byte(activateJSON), "ActivateInfo"); err != nil {
		return false, structureErr(err)
	}

	var entries []activateEntry
	if err := json.Unmarshal([]byte(activateJSON), &entries); err != nil {
		return false, contractErr(codeStructure, op, "failed to unmarshal activation entries: %v", err)
	}

	// Stage every mutation, write only after the whole batch has passed.
	staged := make(map[string]*Token)
	order := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.BatchID == "" {
			return false, contractErr(codeRequiredField, op, "batch_id should not be empty")
		}
		if entry.Periods == "" {
			return false, contractErr(codeRequiredField, op, "periods should not be empty")
		}

		stored, err := getOrder(stub, op, entry.OrderID)
		if err != nil {
			return false, err
		}
		batch, ok := findBatch(stored.Batches, entry.BatchID)
		if !ok {
			return false, contractErr(codeNotFound, op, "Batch with id %s not found in order %s", entry.BatchID, entry.OrderID)
		}

		qty, err := parseNumber(op, "quantity", batch.Quantity)
		if err != nil {
			return false, err
		}
		ratio, err := parseNumber(op, "available_ratio", batch.AvailableRatio)
		if err != nil {
			return false, err
		}
		totalPeriods, err := parseNumber(op, "total_periods", batch.TotalPeriods)
		if err != nil {
			return false, err
		}
		if !totalPeriods.IsPositive() {
			return false, contractErr(codeInsufficient, op, "The total_periods %s should be a positive number", batch.TotalPeriods.String())
		}
		periods, err := parseAmount(op, "periods", entry.Periods)
		if err != nil {
			return false, err
		}

		stageKey := stored.UserID + "\x00" + entry.TokenID
		token, ok := staged[stageKey]
		if !ok {
			token, err = getToken(stub, op, stored.UserID, entry.TokenID)
			if err != nil {
				return false, err
			}
			if token == nil {
				return false, contractErr(codeNotFound, op, "The tokenId %s is invalid. It does not exist", entry.TokenID)
			}
			staged[stageKey] = token
			order = append(order, stageKey)
		}

		perPeriod := qty.Mul(decimal.NewFromInt(1).Sub(ratio)).Div(totalPeriods)
		release := perPeriod.Mul(periods)

		bal, err := parseAmount(op, "balance", token.Balance)
		if err != nil {
			return false, err
		}
		if release.GreaterThan(bal) {
			return false, contractErr(codeInsufficient, op, "The balance %s is insufficient to activate %s", token.Balance, release.String())
		}
		newBal := bal.Sub(release)
		expected, err := parseNumber(op, "available_total_num", entry.AvailableTotalNum)
		if err != nil {
			return false, err
		}
		if err := checkExpected(op, "available_total_num", newBal, expected); err != nil {
			return false, err
		}

		avail, err := parseAmount(op, "available_total_num", token.AvailableTotalNum)
		if err != nil {
			return false, err
		}
		token.Balance = newBal.String()
		token.AvailableTotalNum = avail.Add(release).String()
	}

	for _, stageKey := range order {
		if err := putToken(stub, op, staged[stageKey]); err != nil {
			return false, err
		}
	}
	return true, emitAudit(stub, op, "ActivateTickets", "", "", "", "0", timestamp)
}

func findBatch(batches []OrderBatch, batchID string) (OrderBatch, bool) {
	for _, b := range batches {
		if b.BatchID == batchID {
			return b, true
		}
	}
	return OrderBatch{}, false
}

func getOrder(stub shim.ChaincodeStubInterface, op, orderID string) (*Order, error) {
	key, err := orderKey(stub, orderID)
	if err != nil {
		return nil, contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := stub.GetState(key)
	if err != nil {
		return nil, contractErr(codeNotFound, op, "failed to read order: %v", err)
	}
	if data == nil {
		return nil, contractErr(codeNotFound, op, "The orderId %s is invalid. It does not exist", orderID)
	}
	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, contractErr(codeStructure, op, "failed to unmarshal order: %v", err)
	}
	return &order, nil
}

func putOrder(stub shim.ChaincodeStubInterface, op string, order *Order) error {
	key, err := orderKey(stub, order.OrderID)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := json.Marshal(order)
	if err != nil {
		return contractErr(codeStructure, op, "failed to marshal order: %v", err)
	}
	if err := stub.PutState(key, data); err != nil {
		return contractErr(codeStructure, op, "failed to write order: %v", err)
	}
	return nil
}

func getRefund(stub shim.ChaincodeStubInterface, op, refundID string) (*Refund, error) {
	key, err := refundKey(stub, refundID)
	if err != nil {
		return nil, contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := stub.GetState(key)
	if err != nil {
		return nil, contractErr(codeNotFound, op, "failed to read refund: %v", err)
	}
	if data == nil {
		return nil, contractErr(codeNotFound, op, "The refundId %s is invalid. It does not exist", refundID)
	}
	var refund Refund
	if err := json.Unmarshal(data, &refund); err != nil {
		return nil, contractErr(codeStructure, op, "failed to unmarshal refund: %v", err)
	}
	return &refund, nil
}

func putRefund(stub shim.ChaincodeStubInterface, op string, refund *Refund) error {
	key, err := refundKey(stub, refund.RefundID)
	if err != nil {
		return contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := json.Marshal(refund)
	if err != nil {
		return contractErr(codeStructure, op, "failed to marshal refund: %v", err)
	}
	if err := stub.PutState(key, data); err != nil {
		return contractErr(codeStructure, op, "failed to write refund: %v", err)
	}
	return nil
}
