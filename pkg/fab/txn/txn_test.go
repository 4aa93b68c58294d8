/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/mocks"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/txn"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/msp"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/msp/test/mockmsp"
)

const (
	testChannel   = "mychannel"
	testChaincode = "fabcar"
)

func newSigner(t *testing.T) *msp.SigningIdentity {
	signer, err := mockmsp.NewSigningIdentity("User1")
	require.NoError(t, err)
	return signer
}

func newProposal(t *testing.T, signer *msp.SigningIdentity) (*txn.TransactionHeader, *fab.TransactionProposal) {
	txh, err := txn.NewHeader(signer, testChannel)
	require.NoError(t, err)

	proposal, err := txn.CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{
		ChaincodeID:  testChaincode,
		Fcn:          "createClaim",
		Args:         [][]byte{[]byte("CLAIM-1"), []byte("checkup")},
		TransientMap: map[string][]byte{"secret": []byte("value")},
	})
	require.NoError(t, err)
	return txh, proposal
}

func TestNewHeader(t *testing.T) {
	signer := newSigner(t)

	txh, err := txn.NewHeader(signer, testChannel)
	require.NoError(t, err)

	creator, err := signer.Serialize()
	require.NoError(t, err)

	assert.Len(t, txh.Nonce(), txn.NonceSize)
	assert.Equal(t, creator, txh.Creator())
	assert.Equal(t, testChannel, txh.ChannelID())

	sum := sha256.Sum256(append(append([]byte{}, txh.Nonce()...), creator...))
	assert.Equal(t, fab.TransactionID(hex.EncodeToString(sum[:])), txh.TransactionID())

	other, err := txn.NewHeader(signer, testChannel)
	require.NoError(t, err)
	assert.NotEqual(t, txh.TransactionID(), other.TransactionID(), "each header gets a fresh ID")
}

func TestCreateChaincodeInvokeProposal(t *testing.T) {
	signer := newSigner(t)
	txh, proposal := newProposal(t, signer)

	assert.Equal(t, txh.TransactionID(), proposal.TxnID)

	hdr := &common.Header{}
	require.NoError(t, proto.Unmarshal(proposal.Header, hdr))
	chdr := &common.ChannelHeader{}
	require.NoError(t, proto.Unmarshal(hdr.ChannelHeader, chdr))
	assert.Equal(t, int32(common.HeaderType_ENDORSER_TRANSACTION), chdr.Type)
	assert.Equal(t, testChannel, chdr.ChannelId)
	assert.Equal(t, string(txh.TransactionID()), chdr.TxId)
	assert.NotNil(t, chdr.Timestamp)

	ext := &pb.ChaincodeHeaderExtension{}
	require.NoError(t, proto.Unmarshal(chdr.Extension, ext))
	assert.Equal(t, testChaincode, ext.ChaincodeId.Name)

	payload := &pb.ChaincodeProposalPayload{}
	require.NoError(t, proto.Unmarshal(proposal.Payload, payload))
	assert.Equal(t, []byte("value"), payload.TransientMap["secret"])

	cis := &pb.ChaincodeInvocationSpec{}
	require.NoError(t, proto.Unmarshal(payload.Input, cis))
	args := cis.ChaincodeSpec.Input.Args
	require.Len(t, args, 3)
	assert.Equal(t, "createClaim", string(args[0]))
	assert.Equal(t, "CLAIM-1", string(args[1]))
}

func TestCreateChaincodeInvokeProposalValidation(t *testing.T) {
	signer := newSigner(t)
	txh, err := txn.NewHeader(signer, testChannel)
	require.NoError(t, err)

	_, err = txn.CreateChaincodeInvokeProposal(nil, fab.ChaincodeInvokeRequest{ChaincodeID: testChaincode, Fcn: "f"})
	assert.Error(t, err)
	_, err = txn.CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{Fcn: "f"})
	assert.Error(t, err)
	_, err = txn.CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{ChaincodeID: testChaincode})
	assert.Error(t, err)
}

func TestSendProposal(t *testing.T) {
	signer := newSigner(t)
	_, proposal := newProposal(t, signer)

	peer1 := mocks.NewMockPeer("peer1")
	peer2 := mocks.NewMockPeer("peer2")
	peer2.Error = errors.New("unreachable")

	responses, err := txn.SendProposal(context.Background(), signer, proposal, []fab.ProposalProcessor{peer1, peer2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
	require.Len(t, responses, 2)
	assert.Equal(t, "peer1", responses[0].Endorser)
	assert.Nil(t, responses[1], "failed targets leave a hole")
	assert.Equal(t, 1, peer1.Calls())
	assert.Equal(t, 1, peer2.Calls())
}

func TestSendProposalToTargets(t *testing.T) {
	signer := newSigner(t)
	_, proposal := newProposal(t, signer)

	peer1 := mocks.NewMockPeer("peer1")
	peer1.Error = errors.New("peer1 down")
	peer2 := mocks.NewMockPeer("peer2")
	peer3 := mocks.NewMockPeer("peer3")
	peer3.Error = errors.New("peer3 down")

	responses, errs, err := txn.SendProposalToTargets(context.Background(), signer, proposal, []fab.ProposalProcessor{peer1, peer2, peer3})
	require.NoError(t, err)
	require.Len(t, responses, 3)
	require.Len(t, errs, 3)

	assert.Nil(t, responses[0])
	assert.EqualError(t, errs[0], "peer1 down")
	assert.Equal(t, "peer2", responses[1].Endorser)
	assert.NoError(t, errs[1])
	assert.Nil(t, responses[2])
	assert.EqualError(t, errs[2], "peer3 down")
}

func TestSendProposalNoTargets(t *testing.T) {
	signer := newSigner(t)
	_, proposal := newProposal(t, signer)

	_, err := txn.SendProposal(context.Background(), signer, proposal, nil)
	require.Error(t, err)
	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.EndorserClientStatus, s.Group)
	assert.Equal(t, status.NoPeersFound.ToInt32(), s.Code)
}

func TestEnvelopePreservesEndorsements(t *testing.T) {
	signer := newSigner(t)
	txh, proposal := newProposal(t, signer)

	targets := []fab.ProposalProcessor{mocks.NewMockPeer("peer1"), mocks.NewMockPeer("peer2"), mocks.NewMockPeer("peer3")}
	responses, err := txn.SendProposal(context.Background(), signer, proposal, targets)
	require.NoError(t, err)

	tx, err := txn.New(proposal, responses)
	require.NoError(t, err)

	envelope, err := txn.CreateSignedEnvelope(signer, tx)
	require.NoError(t, err)

	valid, err := msp.VerifyECDSA(signer.PublicKey(), envelope.Signature, envelope.Payload)
	require.NoError(t, err)
	assert.True(t, valid, "envelope signature must verify with the signer's key")

	payload := &common.Payload{}
	require.NoError(t, proto.Unmarshal(envelope.Payload, payload))
	chdr, err := mocks.ExtractChannelHeader(envelope.Payload)
	require.NoError(t, err)
	assert.Equal(t, string(txh.TransactionID()), chdr.TxId)

	transaction := &pb.Transaction{}
	require.NoError(t, proto.Unmarshal(payload.Data, transaction))
	require.Len(t, transaction.Actions, 1)

	actionPayload := &pb.ChaincodeActionPayload{}
	require.NoError(t, proto.Unmarshal(transaction.Actions[0].Payload, actionPayload))
	require.Len(t, actionPayload.Action.Endorsements, 3)
	for i, e := range actionPayload.Action.Endorsements {
		assert.Equal(t, targets[i].URL(), string(e.Endorser))
	}

	ccpp := &pb.ChaincodeProposalPayload{}
	require.NoError(t, proto.Unmarshal(actionPayload.ChaincodeProposalPayload, ccpp))
	assert.Empty(t, ccpp.TransientMap, "transient data stays out of the transaction")
}

func TestNewTransactionErrors(t *testing.T) {
	signer := newSigner(t)
	_, proposal := newProposal(t, signer)
	ctx := context.Background()

	_, err := txn.New(proposal, nil)
	assert.Error(t, err)

	failing := mocks.NewMockPeer("peer1")
	failing.Status = 500
	responses, err := txn.SendProposal(ctx, signer, proposal, []fab.ProposalProcessor{failing})
	require.NoError(t, err)
	_, err = txn.New(proposal, responses)
	assert.Error(t, err)

	differing := mocks.NewMockPeer("peer2")
	differing.Payload = []byte("other")
	responses, err = txn.SendProposal(ctx, signer, proposal, []fab.ProposalProcessor{mocks.NewMockPeer("peer1"), differing})
	require.NoError(t, err)
	_, err = txn.New(proposal, responses)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "differ")

	unendorsed := mocks.NewMockPeer("peer3")
	unendorsed.NoEndorsement = true
	responses, err = txn.SendProposal(ctx, signer, proposal, []fab.ProposalProcessor{unendorsed})
	require.NoError(t, err)
	_, err = txn.New(proposal, responses)
	assert.Error(t, err)

	_, err = txn.CreateSignedEnvelope(signer, nil)
	assert.Error(t, err)
}
