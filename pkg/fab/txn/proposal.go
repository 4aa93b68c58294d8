/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	reqContext "context"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
)

// CreateChaincodeInvokeProposal creates a proposal for transaction.
func CreateChaincodeInvokeProposal(txh *TransactionHeader, request fab.ChaincodeInvokeRequest) (*fab.TransactionProposal, error) {
	if txh == nil {
		return nil, errors.New("transaction header is required")
	}
	if request.ChaincodeID == "" {
		return nil, errors.New("ChaincodeID is required")
	}
	if request.Fcn == "" {
		return nil, errors.New("Fcn is required")
	}

	// the function name is the first argument
	argsArray := make([][]byte, 0, len(request.Args)+1)
	argsArray = append(argsArray, []byte(request.Fcn))
	argsArray = append(argsArray, request.Args...)

	cis := &pb.ChaincodeInvocationSpec{ChaincodeSpec: &pb.ChaincodeSpec{
		Type:        pb.ChaincodeSpec_GOLANG,
		ChaincodeId: &pb.ChaincodeID{Name: request.ChaincodeID},
		Input:       &pb.ChaincodeInput{Args: argsArray},
	}}
	cisBytes, err := proto.Marshal(cis)
	if err != nil {
		return nil, errors.Wrap(err, "marshal of invocation spec failed")
	}

	ext, err := proto.Marshal(&pb.ChaincodeHeaderExtension{ChaincodeId: &pb.ChaincodeID{Name: request.ChaincodeID}})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of chaincode header extension failed")
	}

	channelHeader, err := CreateChannelHeader(common.HeaderType_ENDORSER_TRANSACTION, ChannelHeaderOpts{TxnHeader: txh, Extension: ext})
	if err != nil {
		return nil, err
	}
	hdr, err := CreateHeader(txh, channelHeader)
	if err != nil {
		return nil, err
	}
	hdrBytes, err := proto.Marshal(hdr)
	if err != nil {
		return nil, errors.Wrap(err, "marshal of header failed")
	}

	payloadBytes, err := proto.Marshal(&pb.ChaincodeProposalPayload{Input: cisBytes, TransientMap: request.TransientMap})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of proposal payload failed")
	}

	return &fab.TransactionProposal{
		TxnID:    txh.TransactionID(),
		Proposal: &pb.Proposal{Header: hdrBytes, Payload: payloadBytes},
	}, nil
}

// SignProposal signs the marshaled proposal with signer.
func SignProposal(signer msp.SigningIdentity, proposal *pb.Proposal) (*pb.SignedProposal, error) {
	proposalBytes, err := proto.Marshal(proposal)
	if err != nil {
		return nil, errors.Wrap(err, "marshal proposal failed")
	}

	signature, err := signer.Sign(proposalBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "sign failed")
	}

	return &pb.SignedProposal{ProposalBytes: proposalBytes, Signature: signature}, nil
}

// SendProposal signs proposal and sends it to every target concurrently.
// Responses are returned in target order, with nil holes for targets that
// failed. The returned error combines the failures of individual targets.
func SendProposal(reqCtx reqContext.Context, signer msp.SigningIdentity, proposal *fab.TransactionProposal, targets []fab.ProposalProcessor) ([]*fab.TransactionProposalResponse, error) {
	responses, errs, err := SendProposalToTargets(reqCtx, signer, proposal, targets)
	if err != nil {
		return nil, err
	}
	return responses, multierr.Combine(errs...)
}

// SendProposalToTargets is SendProposal with the failure of each target kept
// at the target's index. For every index exactly one of the response and the
// error is set. The last return value reports failures that happen before
// anything is sent.
func SendProposalToTargets(reqCtx reqContext.Context, signer msp.SigningIdentity, proposal *fab.TransactionProposal, targets []fab.ProposalProcessor) ([]*fab.TransactionProposalResponse, []error, error) {
	if proposal == nil {
		return nil, nil, errors.New("proposal is required")
	}
	if len(targets) == 0 {
		return nil, nil, status.New(status.EndorserClientStatus, status.NoPeersFound.ToInt32(), "targets are required", nil)
	}
	for _, p := range targets {
		if p == nil {
			return nil, nil, errors.New("target is nil")
		}
	}

	signedProposal, err := SignProposal(signer, proposal.Proposal)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "sign proposal failed")
	}
	request := fab.ProcessProposalRequest{SignedProposal: signedProposal}

	responses := make([]*fab.TransactionProposalResponse, len(targets))
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, p := range targets {
		wg.Add(1)
		go func(i int, processor fab.ProposalProcessor) {
			defer wg.Done()

			resp, err := processor.ProcessTransactionProposal(reqCtx, request)
			if err == nil && resp == nil {
				err = status.New(status.EndorserClientStatus, status.NoPeersFound.ToInt32(),
					"no response received from "+processor.URL(), nil)
			}
			if err != nil {
				logger.Debugf("received error response from %s: %s", processor.URL(), err)
				errs[i] = err
				return
			}
			responses[i] = resp
		}(i, p)
	}
	wg.Wait()

	return responses, errs, nil
}
