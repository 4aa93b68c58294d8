/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	reqContext "context"
	"regexp"
	"strconv"

	"github.com/golang/protobuf/proto"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

// chaincode errors reported by older peers as gRPC status messages, e.g.
// "chaincode error (status: 500, message: claim CLAIM-1 does not exist)"
var chaincodeErrorRegexp = regexp.MustCompile(`status:\s*(\d+),\s*message:\s*(.*)\)`)

// ProcessTransactionProposal sends the signed proposal to the peer.
//
// A proposal that reaches the peer yields a response, whatever its status;
// the caller decides what a non-success status means. An error is returned
// only when no response was received.
func (p *Peer) ProcessTransactionProposal(ctx reqContext.Context, request fab.ProcessProposalRequest) (*fab.TransactionProposalResponse, error) {
	if request.SignedProposal == nil {
		return nil, errors.New("signed proposal is required")
	}

	reqCtx, cancel := reqContext.WithTimeout(ctx, p.timeout)
	defer cancel()

	logger.Debugf("Processing proposal using endorser: %s", p.url)

	resp, err := p.client.ProcessProposal(reqCtx, request.SignedProposal)
	if err != nil {
		logger.Warnf("process proposal failed on [%s]: %s", p.url, err)
		return nil, p.wrapRPCError(err)
	}

	if resp.GetResponse() == nil {
		return nil, status.New(status.EndorserServerStatus, int32(codes.Unknown), "proposal response is missing the response", []interface{}{p.url})
	}

	chaincodeStatus, err := getChaincodeResponseStatus(resp)
	if err != nil {
		return nil, errors.WithMessage(err, "chaincode response status parsing failed")
	}

	return &fab.TransactionProposalResponse{
		ProposalResponse: resp,
		Endorser:         p.url,
		ChaincodeStatus:  chaincodeStatus,
		Status:           resp.GetResponse().Status,
	}, nil
}

func (p *Peer) wrapRPCError(err error) error {
	rpcStatus, ok := grpcstatus.FromError(err)
	if !ok {
		return status.New(status.EndorserClientStatus, status.ConnectionFailed.ToInt32(), err.Error(), []interface{}{p.url})
	}

	if code, message, ok := extractChaincodeError(rpcStatus); ok {
		return status.NewFromExtractedChaincodeError(code, message)
	}

	return status.NewFromGRPCStatus(rpcStatus)
}

func extractChaincodeError(rpcStatus *grpcstatus.Status) (int, string, bool) {
	if rpcStatus.Code() != codes.Unknown || rpcStatus.Message() == "" {
		return 0, "", false
	}

	m := chaincodeErrorRegexp.FindStringSubmatch(rpcStatus.Message())
	if m == nil {
		return 0, "", false
	}

	code, err := strconv.Atoi(m[1])
	if err != nil || code == 0 || m[2] == "" {
		return 0, "", false
	}
	return code, m[2], true
}

// getChaincodeResponseStatus gets the actual response status from response.Payload.extension.Response.status, as fabric always returns actual 200
func getChaincodeResponseStatus(response *pb.ProposalResponse) (int32, error) {
	if response.Payload != nil {
		payload := &pb.ProposalResponsePayload{}
		if err := proto.Unmarshal(response.Payload, payload); err != nil {
			return 0, errors.Wrap(err, "unmarshal of proposal response payload failed")
		}

		extension := &pb.ChaincodeAction{}
		if err := proto.Unmarshal(payload.Extension, extension); err != nil {
			return 0, errors.Wrap(err, "unmarshal of chaincode action failed")
		}

		if extension.Response != nil {
			return extension.Response.Status, nil
		}
	}
	return response.Response.Status, nil
}
