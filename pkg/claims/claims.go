/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package claims reads and records expense claims through the claims
// chaincode.
package claims

import (
	reqContext "context"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/client/channel"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
)

//go:generate mockgen -destination mocks/mockchannel.go -package mocks . Channel

var logger = logging.NewLogger("claimsgw.claims")

const (
	fcnQueryAllClaims = "queryAllClaims"
	fcnQueryClaim     = "queryClaim"
	fcnCreateClaim    = "createClaim"

	// KeyPrefix starts the ledger key of every claim created here.
	KeyPrefix = "CLAIM-"
)

// ErrNoPayload is returned when a query succeeds with an empty result.
var ErrNoPayload = errors.New("No payloads were returned from query")

// Claim is an expense claim as stored by the chaincode.
type Claim struct {
	ServicePerformed  string `json:"servicePerformed"`
	ServiceProviderID string `json:"serviceProviderId"`
	EmployerNo        string `json:"employerNo"`
	EmployeeNo        string `json:"employeeNo"`
	IsClaimable       bool   `json:"isClaimable,string"`
	AmountClaimed     string `json:"amountClaimed"`
	AmountProcessed   string `json:"amountProcessed"`
}

// ClaimRecord is one entry of the queryAllClaims result.
type ClaimRecord struct {
	Key    string `json:"Key"`
	Record Claim  `json:"Record"`
}

// DecodeRecords parses a queryAllClaims payload.
func DecodeRecords(payload []byte) ([]ClaimRecord, error) {
	var records []ClaimRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, errors.Wrap(err, "invalid claim records")
	}
	return records, nil
}

// Channel is the part of the channel client the service needs.
type Channel interface {
	Query(request channel.Request, options ...channel.RequestOption) (channel.Response, error)
	Execute(request channel.Request, options ...channel.RequestOption) (channel.Response, error)
}

// Service maps claim operations to chaincode functions.
type Service struct {
	channel     Channel
	chaincodeID string
	newKey      func() string
}

// New returns a Service that invokes chaincodeID over ch.
func New(ch Channel, chaincodeID string) *Service {
	return &Service{
		channel:     ch,
		chaincodeID: chaincodeID,
		newKey:      func() string { return KeyPrefix + uuid.New().String() },
	}
}

// GetClaims returns the JSON of every claim on the ledger.
func (s *Service) GetClaims(ctx reqContext.Context) ([]byte, error) {
	return s.query(ctx, fcnQueryAllClaims, "")
}

// GetClaim returns the JSON of the claim stored under id.
func (s *Service) GetClaim(ctx reqContext.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, errors.New("claim id is required")
	}
	return s.query(ctx, fcnQueryClaim, id)
}

func (s *Service) query(ctx reqContext.Context, fcn string, args ...string) ([]byte, error) {
	response, err := s.channel.Query(channel.Request{
		ChaincodeID: s.chaincodeID,
		Fcn:         fcn,
		Args:        toBytes(args),
	}, channel.WithParentContext(ctx))
	if err != nil {
		return nil, err
	}
	if len(response.Payload) == 0 {
		return nil, ErrNoPayload
	}
	return response.Payload, nil
}

// AddClaim records claim under a new key and waits for the transaction to
// be committed. The key is returned along with the error of a transaction
// that was not committed.
func (s *Service) AddClaim(ctx reqContext.Context, claim Claim) (string, error) {
	key := s.newKey()

	response, err := s.channel.Execute(channel.Request{
		ChaincodeID: s.chaincodeID,
		Fcn:         fcnCreateClaim,
		Args: toBytes([]string{
			key,
			claim.ServicePerformed,
			claim.ServiceProviderID,
			claim.EmployerNo,
			claim.EmployeeNo,
			strconv.FormatBool(claim.IsClaimable),
			claim.AmountClaimed,
			claim.AmountProcessed,
		}),
	}, channel.WithParentContext(ctx))
	if err != nil {
		logger.Warnf("claim %s was not recorded: %s", key, err)
		return key, err
	}

	logger.Infof("claim %s recorded by transaction %s", key, response.TransactionID)
	return key, nil
}

func toBytes(args []string) [][]byte {
	b := make([][]byte, len(args))
	for i, a := range args {
		b[i] = []byte(a)
	}
	return b
}
