/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orderer

import (
	"context"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	po "github.com/hyperledger/fabric-protos-go/orderer"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/mocks"
)

const testAddress = "127.0.0.1:0"

func newTestOrderer(t *testing.T, addr string) *Orderer {
	o, err := New(context.Background(), "grpc://"+addr, WithTimeout(2*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, o.Close()) })
	return o
}

func testEnvelope(t *testing.T, txID string) *fab.SignedEnvelope {
	chdr, err := proto.Marshal(&common.ChannelHeader{ChannelId: "mychannel", TxId: txID})
	require.NoError(t, err)
	payload, err := proto.Marshal(&common.Payload{Header: &common.Header{ChannelHeader: chdr}})
	require.NoError(t, err)
	return &fab.SignedEnvelope{Payload: payload, Signature: []byte("signature")}
}

func TestSendBroadcast(t *testing.T) {
	deliveries := make(chan *pb.FilteredBlock, 1)
	srv := &mocks.MockBroadcastServer{FilteredDeliveries: deliveries}
	addr := srv.Start(testAddress)
	defer srv.Stop()

	o := newTestOrderer(t, addr)
	assert.Equal(t, "grpc://"+addr, o.URL())

	s, err := o.SendBroadcast(context.Background(), testEnvelope(t, "tx1"))
	require.NoError(t, err)
	assert.Equal(t, common.Status_SUCCESS, *s)

	select {
	case fblock := <-deliveries:
		require.Len(t, fblock.FilteredTransactions, 1)
		assert.Equal(t, "tx1", fblock.FilteredTransactions[0].Txid)
		assert.Equal(t, uint64(1), fblock.Number)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a filtered block for the broadcast transaction")
	}
}

func TestSendBroadcastRejected(t *testing.T) {
	srv := &mocks.MockBroadcastServer{BroadcastCustomResponse: &po.BroadcastResponse{Status: common.Status_BAD_REQUEST, Info: "bad envelope"}}
	addr := srv.Start(testAddress)
	defer srv.Stop()

	o := newTestOrderer(t, addr)
	s, err := o.SendBroadcast(context.Background(), testEnvelope(t, "tx2"))
	require.Error(t, err)
	require.NotNil(t, s)
	assert.Equal(t, common.Status_BAD_REQUEST, *s)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.OrdererServerStatus, st.Group)
	assert.Equal(t, int32(common.Status_BAD_REQUEST), st.Code)
	assert.Equal(t, "bad envelope", st.Message)
}

func TestSendBroadcastInternalServerError(t *testing.T) {
	srv := &mocks.MockBroadcastServer{BroadcastInternalServerError: true}
	addr := srv.Start(testAddress)
	defer srv.Stop()

	o := newTestOrderer(t, addr)
	_, err := o.SendBroadcast(context.Background(), testEnvelope(t, "tx3"))
	require.Error(t, err)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.OrdererServerStatus, st.Group)
}

func TestSendBroadcastStreamError(t *testing.T) {
	srv := &mocks.MockBroadcastServer{BroadcastError: grpcstatus.Error(codes.Internal, "boom")}
	addr := srv.Start(testAddress)
	defer srv.Stop()

	o := newTestOrderer(t, addr)
	s, err := o.SendBroadcast(context.Background(), testEnvelope(t, "tx4"))
	require.Error(t, err)
	assert.Nil(t, s)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.GRPCTransportStatus, st.Group)
	assert.Equal(t, int32(codes.Internal), st.Code)
}

func TestSendBroadcastUnreachable(t *testing.T) {
	srv := &mocks.MockBroadcastServer{}
	addr := srv.Start(testAddress)
	srv.Stop()

	o := newTestOrderer(t, addr)
	_, err := o.SendBroadcast(context.Background(), testEnvelope(t, "tx5"))
	require.Error(t, err)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, status.GRPCTransportStatus, st.Group)
}

func TestSendBroadcastNilEnvelope(t *testing.T) {
	o := newTestOrderer(t, "127.0.0.1:1")
	_, err := o.SendBroadcast(context.Background(), nil)
	assert.Error(t, err)
}
