/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	"fmt"

	"github.com/hyperledger/fabric-protos-go/common"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/txn"
)

// NoResponseReason is the reason given when there is nothing to evaluate.
const NoResponseReason = "no response received"

// Verdict is the outcome of evaluating the endorsements of a proposal.
type Verdict struct {
	// Envelope is the signed transaction, set only if the endorsements are valid
	Envelope *fab.SignedEnvelope
	// Payload is the chaincode response carried by the endorsements
	Payload []byte
	// Reason describes why the endorsements are invalid
	Reason string
	Err    error
}

// Valid returns true if the endorsements may be sent for ordering.
func (v Verdict) Valid() bool {
	return v.Envelope != nil
}

// Evaluator decides whether a set of endorsements is valid and assembles the
// transaction envelope if it is. Every endorser must have succeeded.
type Evaluator struct {
	signer msp.SigningIdentity
}

// NewEvaluator returns an evaluator that signs envelopes with signer.
func NewEvaluator(signer msp.SigningIdentity) *Evaluator {
	return &Evaluator{signer: signer}
}

// Evaluate returns a valid verdict if responses is not empty and every
// response succeeded. Otherwise the reason names the first failed response.
func (e *Evaluator) Evaluate(proposal *fab.TransactionProposal, responses []*fab.TransactionProposalResponse) Verdict {
	if len(responses) == 0 {
		return invalid(NoResponseReason,
			status.New(status.EndorserClientStatus, status.MissingEndorsement.ToInt32(), NoResponseReason, nil))
	}

	for _, r := range responses {
		if reason, err := checkResponse(r); err != nil {
			return invalid(reason, err)
		}
	}

	tx, err := txn.New(proposal, responses)
	if err != nil {
		return invalid(err.Error(),
			status.New(status.EndorserClientStatus, status.MissingEndorsement.ToInt32(), err.Error(), nil))
	}

	envelope, err := txn.CreateSignedEnvelope(e.signer, tx)
	if err != nil {
		return invalid("unable to sign transaction envelope: "+err.Error(), err)
	}

	return Verdict{Envelope: envelope, Payload: responses[0].GetResponse().GetPayload()}
}

func checkResponse(r *fab.TransactionProposalResponse) (string, error) {
	if r == nil || r.ProposalResponse == nil {
		return NoResponseReason,
			status.New(status.EndorserClientStatus, status.MissingEndorsement.ToInt32(), NoResponseReason, nil)
	}

	code := r.GetResponse().GetStatus()
	if code == int32(common.Status_SUCCESS) && r.Status != int32(common.Status_SUCCESS) {
		code = r.Status
	}
	if code == int32(common.Status_SUCCESS) {
		return "", nil
	}

	reason := fmt.Sprintf("endorser %s returned status %d: %s", r.Endorser, code, r.GetResponse().GetMessage())
	return reason, status.New(status.EndorserServerStatus, code, r.GetResponse().GetMessage(), []interface{}{r.Endorser})
}

func invalid(reason string, err error) Verdict {
	return Verdict{Reason: reason, Err: err}
}
