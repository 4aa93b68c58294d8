/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/msp"
)

func TestEvaluateEmpty(t *testing.T) {
	signer := newSigner(t)
	e := NewEvaluator(signer)

	for _, responses := range [][]*fab.TransactionProposalResponse{nil, {}} {
		v := e.Evaluate(newProposal(t, signer), responses)
		assert.False(t, v.Valid())
		assert.Equal(t, "no response received", v.Reason)
		assert.Nil(t, v.Envelope)
	}
}

func TestEvaluateAnyFailureIsInvalid(t *testing.T) {
	signer := newSigner(t)
	e := NewEvaluator(signer)
	proposal := newProposal(t, signer)

	peers := newPeers("peer0:7051", "peer1:7051", "peer2:7051")
	peers[1].Status = 500
	peers[1].ResponseMessage = "chaincode failed"
	responses := endorse(t, peers...)

	orders := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, order := range orders {
		reordered := make([]*fab.TransactionProposalResponse, len(order))
		for i, j := range order {
			reordered[i] = responses[j]
		}

		v := e.Evaluate(proposal, reordered)
		require.False(t, v.Valid(), "order %v", order)
		assert.Equal(t, "endorser peer1:7051 returned status 500: chaincode failed", v.Reason)

		s, ok := status.FromError(v.Err)
		require.True(t, ok)
		assert.Equal(t, status.EndorserServerStatus, s.Group)
		assert.EqualValues(t, 500, s.Code)
	}
}

func TestEvaluateReasonNamesFirstFailure(t *testing.T) {
	signer := newSigner(t)

	peers := newPeers("peer0:7051", "peer1:7051")
	peers[0].Status = 404
	peers[0].ResponseMessage = "first"
	peers[1].Status = 500
	peers[1].ResponseMessage = "second"

	v := NewEvaluator(signer).Evaluate(newProposal(t, signer), endorse(t, peers...))
	assert.Equal(t, "endorser peer0:7051 returned status 404: first", v.Reason)
}

func TestEvaluateAllSucceeded(t *testing.T) {
	signer := newSigner(t)
	peers := newPeers("peer0:7051", "peer1:7051", "peer2:7051")

	v := NewEvaluator(signer).Evaluate(newProposal(t, signer), endorse(t, peers...))
	require.True(t, v.Valid(), v.Reason)
	assert.Empty(t, v.Reason)
	assert.Equal(t, []byte("created"), v.Payload)

	endorsements := endorsementsOf(t, v.Envelope)
	require.Len(t, endorsements, 3, "every endorsement is preserved")
	for i, p := range peers {
		assert.Equal(t, []byte(p.MockURL), endorsements[i].Endorser)
		assert.Equal(t, []byte("signature"), endorsements[i].Signature)
	}

	ok, err := msp.VerifyECDSA(signer.PublicKey(), v.Envelope.Signature, v.Envelope.Payload)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateMissingEndorsement(t *testing.T) {
	signer := newSigner(t)
	peers := newPeers("peer0:7051", "peer1:7051")
	peers[1].NoEndorsement = true

	v := NewEvaluator(signer).Evaluate(newProposal(t, signer), endorse(t, peers...))
	require.False(t, v.Valid())

	s, ok := status.FromError(v.Err)
	require.True(t, ok)
	assert.Equal(t, status.EndorserClientStatus, s.Group)
	assert.EqualValues(t, status.MissingEndorsement, s.Code)
}

func TestEvaluatePayloadMismatch(t *testing.T) {
	signer := newSigner(t)
	peers := newPeers("peer0:7051", "peer1:7051")
	peers[1].Payload = []byte("different")

	v := NewEvaluator(signer).Evaluate(newProposal(t, signer), endorse(t, peers...))
	assert.False(t, v.Valid())
	assert.Contains(t, v.Reason, "differ")
}

func TestEvaluateNilResponse(t *testing.T) {
	signer := newSigner(t)
	responses := append(endorse(t, newPeers("peer0:7051")...), nil)

	v := NewEvaluator(signer).Evaluate(newProposal(t, signer), responses)
	assert.False(t, v.Valid())
	assert.Equal(t, "no response received", v.Reason)
}
