package chaincode

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/require"
)

// fakeIdentity satisfies cid.ClientIdentity so tests can choose the caller's
// organization and subject without building certificates.
type fakeIdentity struct {
	mspID   string
	subject string
}

func (f *fakeIdentity) GetID() (string, error) { return f.subject, nil }

func (f *fakeIdentity) GetMSPID() (string, error) { return f.mspID, nil }

func (f *fakeIdentity) GetX509Certificate() (*x509.Certificate, error) { return nil, nil }

func (f *fakeIdentity) GetAttributeValue(string) (string, bool, error) { return "", false, nil }

func (f *fakeIdentity) AssertAttributeValue(string, string) error { return nil }

// testLedger drives the contract against an in-memory mock stub, one mock
// transaction per invocation.
type testLedger struct {
	t        *testing.T
	contract *SmartContract
	stub     *shimtest.MockStub
	ctx      *contractapi.TransactionContext
	identity *fakeIdentity
	txSeq    int
}

func newTestLedger(t *testing.T) *testLedger {
	stub := shimtest.NewMockStub("ticket", nil)
	identity := &fakeIdentity{mspID: "Org1MSP", subject: "admin1"}
	ctx := &contractapi.TransactionContext{}
	ctx.SetStub(stub)
	ctx.SetClientIdentity(identity)
	return &testLedger{
		t:        t,
		contract: &SmartContract{},
		stub:     stub,
		ctx:      ctx,
		identity: identity,
	}
}

func (tl *testLedger) initContract() {
	tl.t.Helper()
	tl.mustTx(func() error {
		_, err := tl.contract.Init(tl.ctx, "Tickets", "TKT", "https://tickets.example.com/")
		return err
	})
}

// setupTestLedger returns an initialized contract with Org1MSP/admin1
// registered as caller and admin.
func setupTestLedger(t *testing.T) *testLedger {
	tl := newTestLedger(t)
	tl.initContract()
	tl.mustTx(func() error {
		_, err := tl.contract.SetOrgAdmin(tl.ctx, "Org1MSP", `["admin1"]`, ts())
		return err
	})
	return tl
}

// tx runs fn inside a fresh mock transaction and returns its error.
func (tl *testLedger) tx(fn func() error) error {
	tl.txSeq++
	tl.stub.MockTransactionStart(fmt.Sprintf("tx%04d", tl.txSeq))
	err := fn()
	tl.stub.MockTransactionEnd(fmt.Sprintf("tx%04d", tl.txSeq))
	return err
}

func (tl *testLedger) mustTx(fn func() error) {
	tl.t.Helper()
	require.NoError(tl.t, tl.tx(fn))
}

// asCaller switches the invoking identity.
func (tl *testLedger) asCaller(mspID, subject string) {
	tl.identity.mspID = mspID
	tl.identity.subject = subject
}

// holding reads one holder's token record straight off the stub.
func (tl *testLedger) holding(owner, tokenID string) *Token {
	tl.t.Helper()
	var token *Token
	tl.mustTx(func() error {
		var err error
		token, err = getToken(tl.stub, "test", owner, tokenID)
		return err
	})
	return token
}

func ts() string { return "2024-05-01 12:00:00" }

// requireContractErr asserts the error is the JSON envelope with the given
// code and a message containing detail.
func requireContractErr(t *testing.T, err error, code int, detail string) {
	t.Helper()
	require.Error(t, err)
	var envelope Error
	require.NoError(t, json.Unmarshal([]byte(err.Error()), &envelope), "error is not the JSON envelope: %s", err.Error())
	require.Equal(t, code, envelope.Code, "unexpected contract_code in %s", err.Error())
	require.Contains(t, envelope.Msg, detail)
}

const validSlot = `{
	"BasicInformation": {
		"ticket_name": "West Lake Day Pass",
		"scenic_spot": "West Lake",
		"ticket_type": "single",
		"valid_begin": "2024-05-01",
		"valid_end": "2024-05-31"
	},
	"AdditionalInformation": {
		"price_info": {"sale_price": 180, "market_price": 200, "discount": 0.9, "currency": "CNY"},
		"ticket_data": {"seat_info": "", "notes": ""},
		"check_data": [],
		"issue_data": {"batch_id": "B001", "issue_num": 100, "issue_time": "2024-04-30", "channel": "online"},
		"status_info": {"status": 0, "update_time": "2024-04-30"}
	}
}`

const validMetadata = `{"uri_suffix": "1"}`

// mintTicket mints tokenID to owner with the valid slot.
func (tl *testLedger) mintTicket(tokenID, owner, balance string) {
	tl.t.Helper()
	tl.mustTx(func() error {
		_, err := tl.contract.Mint(tl.ctx, tokenID, owner, validSlot, balance, validMetadata, ts())
		return err
	})
}
