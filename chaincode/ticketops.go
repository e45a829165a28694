package chaincode

import (
	"encoding/json"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/anziyang2000/hq-code-sub000/schema"
)

// Slot update entrypoints. BasicInformation is fixed at mint; each entrypoint
// below owns exactly one section of AdditionalInformation, validates the
// incoming payload against that section's template only, and merges it into
// the primary owner's record.

// UpdatePriceInfo replaces the price_info section.
func (s *SmartContract) UpdatePriceInfo(ctx contractapi.TransactionContextInterface, tokenID, priceJSON, timestamp string) (bool, error) {
	const op = "updatePriceInfo"
	return s.updateSlotSection(ctx, op, tokenID, "price_info", schema.PriceDetailedInfo, "PriceDetailedInfo", priceJSON, timestamp)
}

// UpdateTicketInfo replaces the ticket_data section.
func (s *SmartContract) UpdateTicketInfo(ctx contractapi.TransactionContextInterface, tokenID, dataJSON, timestamp string) (bool, error) {
	const op = "updateTicketInfo"
	return s.updateSlotSection(ctx, op, tokenID, "ticket_data", schema.TicketData, "TicketData", dataJSON, timestamp)
}

func (s *SmartContract) updateSlotSection(ctx contractapi.TransactionContextInterface, op, tokenID, section string, template schema.Schema, templateName, payload, timestamp string) (bool, error) {
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	if err := schema.ValidateJSON(template, []byte(payload), templateName); err != nil {
		return false, structureErr(err)
	}
	token, err := s.readPrimaryToken(ctx, op, tokenID)
	if err != nil {
		return false, err
	}
	if err := setAdditionalSection(op, token, section, json.RawMessage(payload)); err != nil {
		return false, err
	}
	if err := putToken(stub, op, token); err != nil {
		return false, err
	}
	return true, emitAudit(stub, op, "UpdateSlot", token.Owner, token.Owner, tokenID, "0", timestamp)
}

// VerifyTicket records a check-in and consumes the checked quantity from the
// primary owner's balance.
func (s *SmartContract) VerifyTicket(ctx contractapi.TransactionContextInterface, tokenID, checkJSON, timestamp string) (bool, error) {
	const op = "verifyTicket"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	if err := schema.ValidateJSON(schema.TicketCheckInfo, []byte(checkJSON), "TicketCheckInfo"); err != nil {
		return false, structureErr(err)
	}

	var check struct {
		CheckedNum json.Number `json:"checked_num"`
	}
	if err := json.Unmarshal([]byte(checkJSON), &check); err != nil {
		return false, contractErr(codeStructure, op, "failed to unmarshal check info: %v", err)
	}
	checked, err := parseNumber(op, "checked_num", check.CheckedNum)
	if err != nil {
		return false, err
	}
	if !checked.IsPositive() {
		return false, contractErr(codeInsufficient, op, "The checked_num %s should be a positive number", check.CheckedNum.String())
	}

	token, err := s.readPrimaryToken(ctx, op, tokenID)
	if err != nil {
		return false, err
	}
	bal, err := parseAmount(op, "balance", token.Balance)
	if err != nil {
		return false, err
	}
	if checked.GreaterThan(bal) {
		return false, contractErr(codeInsufficient, op, "The balance %s is insufficient to check %s", token.Balance, checked.String())
	}
	token.Balance = bal.Sub(checked).String()

	if err := appendCheckData(op, token, json.RawMessage(checkJSON)); err != nil {
		return false, err
	}
	if err := putToken(stub, op, token); err != nil {
		return false, err
	}
	return true, emitAudit(stub, op, "VerifyTicket", token.Owner, "", tokenID, checked.String(), timestamp)
}

// UpdateIssueTickets records an issuance batch and adds the issued quantity
// to the primary owner's balance and total balance.
func (s *SmartContract) UpdateIssueTickets(ctx contractapi.TransactionContextInterface, tokenID, issueJSON, timestamp string) (bool, error) {
	const op = "updateIssueTickets"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	if err := schema.ValidateJSON(schema.TicketIssueInfo, []byte(issueJSON), "TicketIssueInfo"); err != nil {
		return false, structureErr(err)
	}

	var issue struct {
		IssueNum json.Number `json:"issue_num"`
	}
	if err := json.Unmarshal([]byte(issueJSON), &issue); err != nil {
		return false, contractErr(codeStructure, op, "failed to unmarshal issue info: %v", err)
	}
	issued, err := parseNumber(op, "issue_num", issue.IssueNum)
	if err != nil {
		return false, err
	}
	if !issued.IsPositive() {
		return false, contractErr(codeInsufficient, op, "The issue_num %s should be a positive number", issue.IssueNum.String())
	}

	token, err := s.readPrimaryToken(ctx, op, tokenID)
	if err != nil {
		return false, err
	}
	bal, err := parseAmount(op, "balance", token.Balance)
	if err != nil {
		return false, err
	}
	total, err := parseAmount(op, "total_balance", token.TotalBalance)
	if err != nil {
		return false, err
	}
	token.Balance = bal.Add(issued).String()
	token.TotalBalance = total.Add(issued).String()

	if err := setAdditionalSection(op, token, "issue_data", json.RawMessage(issueJSON)); err != nil {
		return false, err
	}
	if err := putToken(stub, op, token); err != nil {
		return false, err
	}
	return true, emitAudit(stub, op, "IssueTickets", "", token.Owner, tokenID, issued.String(), timestamp)
}

// TimerUpdateTickets applies a batch of status updates pushed by the
// scheduled off-chain job. The whole batch is validated before any token is
// touched; any bad element rejects the call.
func (s *SmartContract) TimerUpdateTickets(ctx contractapi.TransactionContextInterface, updatesJSON, timestamp string) (bool, error) {
	const op = "timerUpdateTickets"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}
	if err := requireOrgAdmin(ctx, op); err != nil {
		return false, err
	}
	if err := schema.ValidateJSON(schema.TimerTicketUpdate, []byte(updatesJSON), "TimerTicketUpdate"); err != nil {
		return false, structureErr(err)
	}

	var updates []struct {
		TokenID    string          `json:"token_id"`
		StatusInfo json.RawMessage `json:"status_info"`
	}
	if err := json.Unmarshal([]byte(updatesJSON), &updates); err != nil {
		return false, contractErr(codeStructure, op, "failed to unmarshal updates: %v", err)
	}

	tokens := make([]*Token, 0, len(updates))
	for _, u := range updates {
		token, err := s.readPrimaryToken(ctx, op, u.TokenID)
		if err != nil {
			return false, err
		}
		if err := setAdditionalSection(op, token, "status_info", u.StatusInfo); err != nil {
			return false, err
		}
		tokens = append(tokens, token)
	}
	for _, token := range tokens {
		if err := putToken(stub, op, token); err != nil {
			return false, err
		}
	}
	return true, emitAudit(stub, op, "TimerUpdate", "", "", "", "0", timestamp)
}

// setAdditionalSection replaces one section of the slot's mutable zone.
func setAdditionalSection(op string, token *Token, section string, payload json.RawMessage) error {
	var slot map[string]json.RawMessage
	if err := json.Unmarshal(token.Slot, &slot); err != nil {
		return contractErr(codeStructure, op, "failed to unmarshal slot: %v", err)
	}
	var additional map[string]json.RawMessage
	if err := json.Unmarshal(slot["AdditionalInformation"], &additional); err != nil {
		return contractErr(codeStructure, op, "failed to unmarshal AdditionalInformation: %v", err)
	}
	additional[section] = payload

	additionalBytes, err := json.Marshal(additional)
	if err != nil {
		return contractErr(codeStructure, op, "failed to marshal AdditionalInformation: %v", err)
	}
	slot["AdditionalInformation"] = additionalBytes
	slotBytes, err := json.Marshal(slot)
	if err != nil {
		return contractErr(codeStructure, op, "failed to marshal slot: %v", err)
	}
	token.Slot = slotBytes
	return nil
}

// appendCheckData appends one check-in record to the slot's check_data list.
func appendCheckData(op string, token *Token, payload json.RawMessage) error {
	var slot map[string]json.RawMessage
	if err := json.Unmarshal(token.Slot, &slot); err != nil {
		return contractErr(codeStructure, op, "failed to unmarshal slot: %v", err)
	}
	var additional map[string]json.RawMessage
	if err := json.Unmarshal(slot["AdditionalInformation"], &additional); err != nil {
		return contractErr(codeStructure, op, "failed to unmarshal AdditionalInformation: %v", err)
	}
	var checks []json.RawMessage
	if raw, ok := additional["check_data"]; ok {
		if err := json.Unmarshal(raw, &checks); err != nil {
			return contractErr(codeStructure, op, "failed to unmarshal check_data: %v", err)
		}
	}
	checks = append(checks, payload)
	checksBytes, err := json.Marshal(checks)
	if err != nil {
		return contractErr(codeStructure, op, "failed to marshal check_data: %v", err)
	}
	additional["check_data"] = checksBytes

	additionalBytes, err := json.Marshal(additional)
	if err != nil {
		return contractErr(codeStructure, op, "failed to marshal AdditionalInformation: %v", err)
	}
	slot["AdditionalInformation"] = additionalBytes
	slotBytes, err := json.Marshal(slot)
	if err != nil {
		return contractErr(codeStructure, op, "failed to marshal slot: %v", err)
	}
	token.Slot = slotBytes
	return nil
}
