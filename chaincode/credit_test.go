package chaincode

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func creditJSON(merchantID, owner, creditLimit, pledgeAmount string) string {
	return fmt.Sprintf(`{"merchant_id": %q, "owner": %q, "credit_limit": %q, "pledge_amount": %q}`,
		merchantID, owner, creditLimit, pledgeAmount)
}

func transferJSON(tradeNo, from, to, amount string) string {
	return fmt.Sprintf(`{"trade_no": %q, "from": %q, "to": %q, "amount": %q}`, tradeNo, from, to, amount)
}

func paymentJSON(transactionID, merchantID, payer, amount, payType string) string {
	return fmt.Sprintf(`{"transaction_id": %q, "merchant_id": %q, "payer": %q, "amount": %q, "pay_type": %q, "pay_time": "2024-05-01 10:00:00"}`,
		transactionID, merchantID, payer, amount, payType)
}

func (tl *testLedger) credit(merchantID string) *Credit {
	tl.t.Helper()
	var credit *Credit
	tl.mustTx(func() error {
		var err error
		credit, err = getCredit(tl.stub, "test", merchantID)
		return err
	})
	return credit
}

func TestStoreCreditInfoAddRequiresLimit(t *testing.T) {
	tl := setupTestLedger(t)

	err := tl.tx(func() error {
		_, err := tl.contract.StoreCreditInfo(tl.ctx, creditJSON("M-1", "M-1", "", ""), ts())
		return err
	})
	requireContractErr(t, err, codeRequiredField, "creditLimit should not be empty")
}

func TestStoreCreditInfoAddModifyActivate(t *testing.T) {
	tl := setupTestLedger(t)

	tl.mustTx(func() error {
		_, err := tl.contract.StoreCreditInfo(tl.ctx, creditJSON("M-1", "M-1", "10000", ""), ts())
		return err
	})
	record := tl.credit("M-1")
	require.NotNil(t, record)
	assert.Equal(t, "10000", record.CreditLimit)
	assert.False(t, record.Activated)

	// Existing record with creditLimit and no pledge: modify.
	tl.mustTx(func() error {
		_, err := tl.contract.StoreCreditInfo(tl.ctx, creditJSON("M-1", "M-1", "20000", ""), ts())
		return err
	})
	record = tl.credit("M-1")
	assert.Equal(t, "20000", record.CreditLimit)
	assert.False(t, record.Activated)

	// Modify with an empty creditLimit is rejected.
	err := tl.tx(func() error {
		_, err := tl.contract.StoreCreditInfo(tl.ctx, creditJSON("M-1", "M-1", "", ""), ts())
		return err
	})
	requireContractErr(t, err, codeRequiredField, "creditLimit should not be empty")

	// Existing record with a pledgeAmount: activate.
	tl.mustTx(func() error {
		_, err := tl.contract.StoreCreditInfo(tl.ctx, creditJSON("M-1", "M-1", "", "5000"), ts())
		return err
	})
	record = tl.credit("M-1")
	assert.True(t, record.Activated)
	assert.Equal(t, "5000", record.PledgeAmount)
	assert.Equal(t, "20000", record.CreditLimit, "activation leaves the limit alone")
}

func TestTransferCredit(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mustTx(func() error {
		_, err := tl.contract.StoreCreditInfo(tl.ctx, creditJSON("M-1", "M-1", "10000", ""), ts())
		return err
	})

	tl.mustTx(func() error {
		_, err := tl.contract.TransferCredit(tl.ctx, transferJSON("T-1", "M-1", "M-2", "4000"), ts())
		return err
	})
	assert.Equal(t, "6000", tl.credit("M-1").CreditLimit)
	receiver := tl.credit("M-2")
	require.NotNil(t, receiver, "receiver record is created on first transfer")
	assert.Equal(t, "4000", receiver.CreditLimit)

	// Replay on the same tradeNo fails even with a different payload.
	err := tl.tx(func() error {
		_, err := tl.contract.TransferCredit(tl.ctx, transferJSON("T-1", "M-1", "M-2", "1"), ts())
		return err
	})
	requireContractErr(t, err, codeAlreadyExists, "The tradeNo T-1 has already been used")
}

func TestTransferCreditSelfTransferRejected(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mustTx(func() error {
		_, err := tl.contract.StoreCreditInfo(tl.ctx, creditJSON("M-1", "M-1", "10000", ""), ts())
		return err
	})

	// Sending to oneself would re-read the pre-decrement record and inflate
	// the limit by the transferred amount.
	err := tl.tx(func() error {
		_, err := tl.contract.TransferCredit(tl.ctx, transferJSON("T-SELF", "M-1", "M-1", "100"), ts())
		return err
	})
	requireContractErr(t, err, codeStructure, "The from M-1 and to M-1 cannot be the same")
	assert.Equal(t, "10000", tl.credit("M-1").CreditLimit)

	// The rejected tradeNo is not consumed.
	tl.mustTx(func() error {
		_, err := tl.contract.TransferCredit(tl.ctx, transferJSON("T-SELF", "M-1", "M-2", "100"), ts())
		return err
	})
	assert.Equal(t, "9900", tl.credit("M-1").CreditLimit)
}

func TestTransferCreditInsufficientLimit(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mustTx(func() error {
		_, err := tl.contract.StoreCreditInfo(tl.ctx, creditJSON("M-1", "M-1", "100", ""), ts())
		return err
	})

	err := tl.tx(func() error {
		_, err := tl.contract.TransferCredit(tl.ctx, transferJSON("T-1", "M-1", "M-2", "101"), ts())
		return err
	})
	requireContractErr(t, err, codeInsufficient, "The credit limit 100 is insufficient to transfer 101")
	assert.Equal(t, "100", tl.credit("M-1").CreditLimit)
}

func TestTransferCreditOwnershipCheck(t *testing.T) {
	tl := setupTestLedger(t)
	// Record owned by someone other than the declared sender.
	tl.mustTx(func() error {
		_, err := tl.contract.StoreCreditInfo(tl.ctx, creditJSON("M-1", "OtherOwner", "10000", ""), ts())
		return err
	})

	err := tl.tx(func() error {
		_, err := tl.contract.TransferCredit(tl.ctx, transferJSON("T-1", "M-1", "M-2", "100"), ts())
		return err
	})
	requireContractErr(t, err, codeNotAuthorized, "is not the owner of the credit record")
}

func TestTransferCreditUnknownSender(t *testing.T) {
	tl := setupTestLedger(t)
	err := tl.tx(func() error {
		_, err := tl.contract.TransferCredit(tl.ctx, transferJSON("T-1", "M-404", "M-2", "100"), ts())
		return err
	})
	requireContractErr(t, err, codeNotFound, "The merchantId M-404 is invalid. It does not exist")
}

func TestPaymentFlowRecordsAndReplays(t *testing.T) {
	tl := setupTestLedger(t)

	tl.mustTx(func() error {
		_, err := tl.contract.PaymentFlow(tl.ctx, paymentJSON("P-1", "M-1", "Alice", "180", "cash"), ts())
		return err
	})

	err := tl.tx(func() error {
		_, err := tl.contract.PaymentFlow(tl.ctx, paymentJSON("P-1", "M-1", "Alice", "999", "cash"), ts())
		return err
	})
	requireContractErr(t, err, codeAlreadyExists, "The transaction P-1 has already been used")
}

func TestPaymentFlowCreditConsumesLimit(t *testing.T) {
	tl := setupTestLedger(t)
	tl.mustTx(func() error {
		_, err := tl.contract.StoreCreditInfo(tl.ctx, creditJSON("M-1", "M-1", "1000", ""), ts())
		return err
	})

	// Credit payment before activation is rejected.
	err := tl.tx(func() error {
		_, err := tl.contract.PaymentFlow(tl.ctx, paymentJSON("P-1", "Shop", "M-1", "180", "credit"), ts())
		return err
	})
	requireContractErr(t, err, codeNotAuthorized, "has not been activated")

	tl.mustTx(func() error {
		_, err := tl.contract.StoreCreditInfo(tl.ctx, creditJSON("M-1", "M-1", "", "500"), ts())
		return err
	})
	tl.mustTx(func() error {
		_, err := tl.contract.PaymentFlow(tl.ctx, paymentJSON("P-2", "Shop", "M-1", "180", "credit"), ts())
		return err
	})
	assert.Equal(t, "820", tl.credit("M-1").CreditLimit)

	// Over the remaining limit.
	err = tl.tx(func() error {
		_, err := tl.contract.PaymentFlow(tl.ctx, paymentJSON("P-3", "Shop", "M-1", "900", "credit"), ts())
		return err
	})
	requireContractErr(t, err, codeInsufficient, "insufficient to pay")
}
