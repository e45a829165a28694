package chaincode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func additionalInfo(t *testing.T, token *Token) map[string]json.RawMessage {
	t.Helper()
	var slot map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(token.Slot, &slot))
	var additional map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(slot["AdditionalInformation"], &additional))
	return additional
}

func TestUpdatePriceInfo(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mintTicket("1", "Alice", "100")

	tl.mustTx(func() error {
		_, err := tl.contract.UpdatePriceInfo(tl.ctx,
			"1", `{"sale_price": 150, "market_price": 200, "discount": 0.75, "currency": "CNY"}`, ts())
		return err
	})

	additional := additionalInfo(t, tl.holding("Alice", "1"))
	assert.JSONEq(t, `{"sale_price": 150, "market_price": 200, "discount": 0.75, "currency": "CNY"}`,
		string(additional["price_info"]))
}

func TestUpdatePriceInfoRejectsBadType(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mintTicket("1", "Alice", "100")

	err := tl.tx(func() error {
		_, err := tl.contract.UpdatePriceInfo(tl.ctx,
			"1", `{"sale_price": "", "market_price": 200, "discount": 0.75, "currency": "CNY"}`, ts())
		return err
	})
	requireContractErr(t, err, codeStructure,
		"validateStructure: Type mismatch at PriceDetailedInfo.sale_price: expected number, got string")

	// The slot keeps its minted price.
	additional := additionalInfo(t, tl.holding("Alice", "1"))
	assert.Contains(t, string(additional["price_info"]), "180")
}

func TestUpdateTicketInfo(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mintTicket("1", "Alice", "100")

	tl.mustTx(func() error {
		_, err := tl.contract.UpdateTicketInfo(tl.ctx, "1", `{"seat_info": "A-12", "notes": "window"}`, ts())
		return err
	})
	additional := additionalInfo(t, tl.holding("Alice", "1"))
	assert.JSONEq(t, `{"seat_info": "A-12", "notes": "window"}`, string(additional["ticket_data"]))

	err := tl.tx(func() error {
		_, err := tl.contract.UpdateTicketInfo(tl.ctx, "1", `{"seat_info": "A-12"}`, ts())
		return err
	})
	requireContractErr(t, err, codeStructure, "validateStructure: Missing property notes at TicketData")
}

func TestVerifyTicketConsumesBalance(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mintTicket("1", "Alice", "100")

	check := `{"check_point": "east-gate", "checked_num": 3, "check_time": "2024-05-02 09:00:00", "operator": "gate-7"}`
	tl.mustTx(func() error {
		_, err := tl.contract.VerifyTicket(tl.ctx, "1", check, ts())
		return err
	})

	token := tl.holding("Alice", "1")
	assert.Equal(t, "97", token.Balance)
	additional := additionalInfo(t, token)
	var checks []json.RawMessage
	require.NoError(t, json.Unmarshal(additional["check_data"], &checks))
	require.Len(t, checks, 1)
	assert.Contains(t, string(checks[0]), "east-gate")

	// A second check-in appends rather than replacing.
	tl.mustTx(func() error {
		_, err := tl.contract.VerifyTicket(tl.ctx, "1", check, ts())
		return err
	})
	additional = additionalInfo(t, tl.holding("Alice", "1"))
	require.NoError(t, json.Unmarshal(additional["check_data"], &checks))
	assert.Len(t, checks, 2)
}

func TestVerifyTicketOverBalance(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mintTicket("1", "Alice", "2")

	check := `{"check_point": "east-gate", "checked_num": 3, "check_time": "2024-05-02 09:00:00", "operator": "gate-7"}`
	err := tl.tx(func() error {
		_, err := tl.contract.VerifyTicket(tl.ctx, "1", check, ts())
		return err
	})
	requireContractErr(t, err, codeInsufficient, "insufficient to check")
	assert.Equal(t, "2", tl.holding("Alice", "1").Balance)
}

func TestUpdateIssueTicketsAddsStock(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mintTicket("1", "Alice", "100")

	issue := `{"batch_id": "B002", "issue_num": 50, "issue_time": "2024-05-03", "channel": "onsite"}`
	tl.mustTx(func() error {
		_, err := tl.contract.UpdateIssueTickets(tl.ctx, "1", issue, ts())
		return err
	})

	token := tl.holding("Alice", "1")
	assert.Equal(t, "150", token.Balance)
	assert.Equal(t, "150", token.TotalBalance)
	additional := additionalInfo(t, token)
	assert.Contains(t, string(additional["issue_data"]), "B002")
}

func TestTimerUpdateTickets(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mintTicket("1", "Alice", "100")
	tl.mintTicket("2", "Bob", "50")

	updates := `[
		{"token_id": "1", "status_info": {"status": 2, "update_time": "2024-06-01"}},
		{"token_id": "2", "status_info": {"status": 2, "update_time": "2024-06-01"}}
	]`
	tl.mustTx(func() error {
		_, err := tl.contract.TimerUpdateTickets(tl.ctx, updates, ts())
		return err
	})

	for _, tc := range []struct{ owner, id string }{{"Alice", "1"}, {"Bob", "2"}} {
		additional := additionalInfo(t, tl.holding(tc.owner, tc.id))
		assert.JSONEq(t, `{"status": 2, "update_time": "2024-06-01"}`, string(additional["status_info"]))
	}
}

func TestTimerUpdateTicketsUnknownTokenRejectsBatch(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mintTicket("1", "Alice", "100")

	updates := `[
		{"token_id": "1", "status_info": {"status": 2, "update_time": "2024-06-01"}},
		{"token_id": "404", "status_info": {"status": 2, "update_time": "2024-06-01"}}
	]`
	err := tl.tx(func() error {
		_, err := tl.contract.TimerUpdateTickets(tl.ctx, updates, ts())
		return err
	})
	requireContractErr(t, err, codeNotFound, "The tokenId 404 is invalid. It does not exist")

	// The valid element was staged but never written.
	additional := additionalInfo(t, tl.holding("Alice", "1"))
	assert.JSONEq(t, `{"status": 0, "update_time": "2024-04-30"}`, string(additional["status_info"]))
}
