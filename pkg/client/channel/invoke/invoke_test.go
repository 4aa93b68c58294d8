/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	reqContext "context"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/require"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/mocks"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/txn"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/msp"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/msp/test/mockmsp"
)

const testChannelID = "mychannel"

func newSigner(t *testing.T) *msp.SigningIdentity {
	signer, err := mockmsp.NewSigningIdentity("User1")
	require.NoError(t, err)
	return signer
}

func newProposal(t *testing.T, signer *msp.SigningIdentity) *fab.TransactionProposal {
	txh, err := txn.NewHeader(signer, testChannelID)
	require.NoError(t, err)

	proposal, err := txn.CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{
		ChaincodeID: "fabcar",
		Fcn:         "createClaim",
		Args:        [][]byte{[]byte("CLAIM-1"), []byte("X")},
	})
	require.NoError(t, err)
	return proposal
}

func newPeers(urls ...string) []*mocks.MockPeer {
	peers := make([]*mocks.MockPeer, len(urls))
	for i, url := range urls {
		peers[i] = mocks.NewMockPeer(url)
		peers[i].Payload = []byte("created")
	}
	return peers
}

func processors(peers ...*mocks.MockPeer) []fab.ProposalProcessor {
	targets := make([]fab.ProposalProcessor, len(peers))
	for i, p := range peers {
		targets[i] = p
	}
	return targets
}

func endorse(t *testing.T, peers ...*mocks.MockPeer) []*fab.TransactionProposalResponse {
	responses := make([]*fab.TransactionProposalResponse, len(peers))
	for i, p := range peers {
		r, err := p.ProcessTransactionProposal(reqContext.Background(), fab.ProcessProposalRequest{})
		require.NoError(t, err)
		responses[i] = r
	}
	return responses
}

// endorsementsOf returns the endorsements carried by a signed envelope.
func endorsementsOf(t *testing.T, envelope *fab.SignedEnvelope) []*pb.Endorsement {
	payload := &common.Payload{}
	require.NoError(t, proto.Unmarshal(envelope.Payload, payload))

	tx := &pb.Transaction{}
	require.NoError(t, proto.Unmarshal(payload.Data, tx))
	require.Len(t, tx.Actions, 1)

	actionPayload := &pb.ChaincodeActionPayload{}
	require.NoError(t, proto.Unmarshal(tx.Actions[0].Payload, actionPayload))
	return actionPayload.Action.Endorsements
}
