/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"io"
	"sync"

	"github.com/hyperledger/fabric-protos-go/common"
	po "github.com/hyperledger/fabric-protos-go/orderer"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

var broadcastResponseSuccess = &po.BroadcastResponse{Status: common.Status_SUCCESS}
var broadcastResponseError = &po.BroadcastResponse{Status: common.Status_INTERNAL_SERVER_ERROR}

// MockBroadcastServer mock broadcast server
type MockBroadcastServer struct {
	BroadcastError               error
	Creds                        credentials.TransportCredentials
	BroadcastCustomResponse      *po.BroadcastResponse
	BroadcastInternalServerError bool
	// FilteredDeliveries receives a filtered block for every accepted
	// envelope, marked with TxValidationCode
	FilteredDeliveries chan *pb.FilteredBlock
	TxValidationCode   pb.TxValidationCode

	blkNum atomic.Uint64
	calls  atomic.Int32
	srv    *grpc.Server
	wg     sync.WaitGroup
	// ensures parallel channel deliveries are sent in sequence
	filteredDelMtx sync.Mutex
}

// Broadcast mock broadcast
func (m *MockBroadcastServer) Broadcast(server po.AtomicBroadcast_BroadcastServer) error {
	res, err := server.Recv()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	m.calls.Inc()

	if m.BroadcastError != nil {
		return m.BroadcastError
	}

	if m.BroadcastInternalServerError {
		return server.Send(broadcastResponseError)
	}

	if m.BroadcastCustomResponse != nil {
		return server.Send(m.BroadcastCustomResponse)
	}

	err = server.Send(broadcastResponseSuccess)
	if err != nil {
		return err
	}

	return m.mockBlockDelivery(res.Payload)
}

// Deliver is not supported by the mock orderer.
func (m *MockBroadcastServer) Deliver(server po.AtomicBroadcast_DeliverServer) error {
	return errors.New("deliver not supported")
}

// Calls returns the number of envelopes received.
func (m *MockBroadcastServer) Calls() int {
	return int(m.calls.Load())
}

func (m *MockBroadcastServer) mockBlockDelivery(payload []byte) error {
	if m.FilteredDeliveries == nil {
		return nil
	}

	chdr, err := ExtractChannelHeader(payload)
	if err != nil {
		return err
	}

	go func() {
		m.filteredDelMtx.Lock()
		defer m.filteredDelMtx.Unlock()

		// increase m.blkNum to mock adding of filtered blocks to the ledger
		m.FilteredDeliveries <- NewFilteredBlock(chdr.ChannelId, m.blkNum.Inc(),
			NewFilteredTx(chdr.TxId, m.TxValidationCode),
		)
	}()
	return nil
}

// Start the mock broadcast server
func (m *MockBroadcastServer) Start(address string) string {
	if m.srv != nil {
		panic("MockBroadcastServer already started")
	}

	m.srv = newServer(m.Creds)
	po.RegisterAtomicBroadcastServer(m.srv, m)
	return serve(&m.wg, m.srv, address, "MockBroadcastServer")
}

// Stop the mock broadcast server and wait for completion.
func (m *MockBroadcastServer) Stop() {
	if m.srv == nil {
		panic("MockBroadcastServer not started")
	}
	m.srv.Stop()
	m.wg.Wait()
	m.srv = nil
}
