/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package txn creates, endorses and assembles Fabric transactions.
package txn

import (
	"bytes"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
)

var logger = logging.NewLogger("claimsgw.fab.txn")

// Transaction is an endorsed transaction ready to be signed into an envelope.
type Transaction struct {
	Proposal    *fab.TransactionProposal
	Transaction *pb.Transaction
}

// New assembles a transaction from a proposal and its endorsements. Every
// response must be successful and carry the same proposal response payload.
// The endorsements are copied in response order.
func New(proposal *fab.TransactionProposal, responses []*fab.TransactionProposalResponse) (*Transaction, error) {
	if len(responses) == 0 {
		return nil, errors.New("at least one proposal response is necessary")
	}
	if proposal == nil || proposal.Proposal == nil {
		return nil, errors.New("proposal is required")
	}

	hdr := &common.Header{}
	if err := proto.Unmarshal(proposal.Header, hdr); err != nil {
		return nil, errors.Wrap(err, "unmarshal proposal header failed")
	}
	propPayload := &pb.ChaincodeProposalPayload{}
	if err := proto.Unmarshal(proposal.Payload, propPayload); err != nil {
		return nil, errors.Wrap(err, "unmarshal proposal payload failed")
	}

	for _, r := range responses {
		if r == nil || r.ProposalResponse == nil || r.Endorsement == nil {
			return nil, errors.New("proposal response without endorsement")
		}
	}

	responsePayload := responses[0].Payload
	endorsements := make([]*pb.Endorsement, len(responses))
	for i, r := range responses {
		if r.GetResponse().GetStatus() != int32(common.Status_SUCCESS) {
			return nil, errors.Errorf("proposal response was not successful, error code %d, msg %s",
				r.GetResponse().GetStatus(), r.GetResponse().GetMessage())
		}
		if !bytes.Equal(responsePayload, r.Payload) {
			return nil, errors.Errorf("proposal response payloads of %s and %s differ", responses[0].Endorser, r.Endorser)
		}
		endorsements[i] = proto.Clone(r.Endorsement).(*pb.Endorsement)
	}

	// the transient map never goes into the transaction
	propPayloadBytes, err := proto.Marshal(&pb.ChaincodeProposalPayload{Input: propPayload.Input})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of proposal payload failed")
	}

	capBytes, err := proto.Marshal(&pb.ChaincodeActionPayload{
		ChaincodeProposalPayload: propPayloadBytes,
		Action: &pb.ChaincodeEndorsedAction{
			ProposalResponsePayload: responsePayload,
			Endorsements:            endorsements,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of chaincode action payload failed")
	}

	return &Transaction{
		Proposal: proposal,
		Transaction: &pb.Transaction{
			Actions: []*pb.TransactionAction{{Header: hdr.SignatureHeader, Payload: capBytes}},
		},
	}, nil
}

// CreateSignedEnvelope wraps tx in a payload carrying the proposal header and
// signs it.
func CreateSignedEnvelope(signer msp.SigningIdentity, tx *Transaction) (*fab.SignedEnvelope, error) {
	if tx == nil || tx.Proposal == nil || tx.Proposal.Proposal == nil {
		return nil, errors.New("transaction is required")
	}

	hdr := &common.Header{}
	if err := proto.Unmarshal(tx.Proposal.Header, hdr); err != nil {
		return nil, errors.Wrap(err, "unmarshal proposal header failed")
	}

	txBytes, err := proto.Marshal(tx.Transaction)
	if err != nil {
		return nil, errors.Wrap(err, "marshal of transaction failed")
	}

	envelope, err := SignPayload(signer, &common.Payload{Header: hdr, Data: txBytes})
	if err != nil {
		return nil, err
	}
	logger.Debugf("assembled envelope for transaction %s", tx.Proposal.TxnID)
	return envelope, nil
}
