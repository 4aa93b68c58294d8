/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	reqContext "context"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/txn"
)

var logger = logging.NewLogger("claimsgw.client.invoke")

// EndorsementClient collects endorsements for transaction proposals.
type EndorsementClient struct {
	signer  msp.SigningIdentity
	targets []fab.ProposalProcessor
}

// NewEndorsementClient returns an endorsement client that sends proposals
// to the given default targets.
func NewEndorsementClient(signer msp.SigningIdentity, targets ...fab.ProposalProcessor) *EndorsementClient {
	return &EndorsementClient{signer: signer, targets: targets}
}

// Propose signs the proposal and sends it to all targets concurrently. The
// default targets are used if none are given. Responses are returned in
// target order.
//
// An error is returned only if the proposal could not be sent or no target
// could be reached. A target that failed while others answered is reported
// as an unsuccessful response so that it fails evaluation.
func (c *EndorsementClient) Propose(ctx reqContext.Context, proposal *fab.TransactionProposal, targets ...fab.ProposalProcessor) ([]*fab.TransactionProposalResponse, error) {
	if len(targets) == 0 {
		targets = c.targets
	}

	responses, targetErrs, err := txn.SendProposalToTargets(ctx, c.signer, proposal, targets)
	if err != nil {
		return nil, err
	}

	var errs []error
	transportFailures := 0
	for i, targetErr := range targetErrs {
		if targetErr == nil {
			continue
		}
		errs = append(errs, targetErr)
		if IsTransportError(targetErr) {
			transportFailures++
		}
		logger.Debugf("endorser %s failed: %s", targets[i].URL(), targetErr)
		responses[i] = failedResponse(targets[i].URL(), targetErr)
	}

	if transportFailures == len(targets) {
		if len(errs) == 1 {
			return nil, errs[0]
		}
		return nil, status.New(status.EndorserClientStatus, status.ConnectionFailed.ToInt32(),
			"no endorser could be reached: "+multierr.Combine(errs...).Error(), toDetails(errs))
	}
	return responses, nil
}

func failedResponse(endorser string, err error) *fab.TransactionProposalResponse {
	code := int32(common.Status_SERVICE_UNAVAILABLE)
	msg := err.Error()
	if s, ok := status.FromError(err); ok && (s.Group == status.ChaincodeStatus || s.Group == status.EndorserServerStatus) {
		code = s.Code
		msg = s.Message
	}

	return &fab.TransactionProposalResponse{
		Endorser:        endorser,
		Status:          code,
		ChaincodeStatus: code,
		ProposalResponse: &pb.ProposalResponse{
			Response: &pb.Response{Status: code, Message: msg},
		},
	}
}

// IsTransportError reports whether err means the remote side could not be
// reached, as opposed to an answer from the remote side.
func IsTransportError(err error) bool {
	cause := errors.Cause(err)
	if cause == reqContext.Canceled || cause == reqContext.DeadlineExceeded {
		return true
	}

	s, ok := status.FromError(err)
	if !ok {
		return true
	}
	switch s.Group {
	case status.GRPCTransportStatus, status.EndorserClientStatus, status.OrdererClientStatus, status.ClientStatus:
		return true
	default:
		return false
	}
}

func toDetails(errs []error) []interface{} {
	details := make([]interface{}, len(errs))
	for i, e := range errs {
		details[i] = e
	}
	return details
}
