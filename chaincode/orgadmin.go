package chaincode

import (
	"encoding/json"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Mutating entrypoints are restricted to registered organization admins. The
// caller's organization is its MSP id and its subject id the enrollment id,
// both taken from the invoking certificate.

// orgAdmins is the registered admin list of one organization.
type orgAdmins struct {
	OrgID  string   `json:"org_id"`
	Admins []string `json:"admins"`
}

// SetOrgAdmin installs the admin list for an organization. An unregistered
// organization can be bootstrapped by any caller of that same organization;
// once registered, only an existing admin may change the list.
func (s *SmartContract) SetOrgAdmin(ctx contractapi.TransactionContextInterface, orgID, adminsJSON, timestamp string) (bool, error) {
	const op = "setOrgAdmin"
	stub := ctx.GetStub()
	if err := requireInitialized(stub, op); err != nil {
		return false, err
	}

	var admins []string
	if err := json.Unmarshal([]byte(adminsJSON), &admins); err != nil {
		return false, contractErr(codeStructure, op, "failed to unmarshal admins: %v", err)
	}
	if len(admins) == 0 {
		return false, contractErr(codeRequiredField, op, "admins should not be empty")
	}

	callerOrg, err := ctx.GetClientIdentity().GetMSPID()
	if err != nil {
		return false, contractErr(codeNotAuthorized, op, "failed to get caller organization: %v", err)
	}

	key, err := orgAdminKey(stub, orgID)
	if err != nil {
		return false, contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	existing, err := stub.GetState(key)
	if err != nil {
		return false, contractErr(codeNotFound, op, "failed to read organization: %v", err)
	}
	if existing == nil {
		if callerOrg != orgID {
			return false, contractErr(codeNotAuthorized, op, "The caller of %s cannot register organization %s", callerOrg, orgID)
		}
	} else {
		if err := requireOrgAdmin(ctx, op); err != nil {
			return false, err
		}
	}

	record := orgAdmins{OrgID: orgID, Admins: admins}
	data, err := json.Marshal(record)
	if err != nil {
		return false, contractErr(codeStructure, op, "failed to marshal organization: %v", err)
	}
	if err := stub.PutState(key, data); err != nil {
		return false, contractErr(codeStructure, op, "failed to write organization: %v", err)
	}
	return true, nil
}

// GetOrgAdmins returns the registered admin list of an organization.
func (s *SmartContract) GetOrgAdmins(ctx contractapi.TransactionContextInterface, orgID string) ([]string, error) {
	const op = "getOrgAdmins"
	if err := requireInitialized(ctx.GetStub(), op); err != nil {
		return nil, err
	}
	record, err := readOrgAdmins(ctx, op, orgID)
	if err != nil {
		return nil, err
	}
	return record.Admins, nil
}

func readOrgAdmins(ctx contractapi.TransactionContextInterface, op, orgID string) (*orgAdmins, error) {
	stub := ctx.GetStub()
	key, err := orgAdminKey(stub, orgID)
	if err != nil {
		return nil, contractErr(codeStructure, op, "failed to build key: %v", err)
	}
	data, err := stub.GetState(key)
	if err != nil {
		return nil, contractErr(codeNotFound, op, "failed to read organization: %v", err)
	}
	if data == nil {
		return nil, contractErr(codeNotFound, op, "The organization %s is not registered", orgID)
	}
	var record orgAdmins
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, contractErr(codeStructure, op, "failed to unmarshal organization: %v", err)
	}
	return &record, nil
}

// requireOrgAdmin fails unless the caller's subject id is in its own
// organization's admin list.
func requireOrgAdmin(ctx contractapi.TransactionContextInterface, op string) error {
	identity := ctx.GetClientIdentity()
	org, err := identity.GetMSPID()
	if err != nil {
		return contractErr(codeNotAuthorized, op, "failed to get caller organization: %v", err)
	}
	subject, err := identity.GetID()
	if err != nil {
		return contractErr(codeNotAuthorized, op, "failed to get caller identity: %v", err)
	}
	record, err := readOrgAdmins(ctx, op, org)
	if err != nil {
		return err
	}
	for _, admin := range record.Admins {
		if admin == subject {
			return nil
		}
	}
	return contractErr(codeNotAuthorized, op, "The admin %s is not authorized for organization %s", subject, org)
}
