/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// MockDeliverServer is a mock peer deliver service. Filtered blocks written
// to FilteredDeliveries are streamed to the connected client.
type MockDeliverServer struct {
	Creds              credentials.TransportCredentials
	DeliverError       error
	FilteredDeliveries chan *pb.FilteredBlock

	connections atomic.Int32
	srv         *grpc.Server
	wg          sync.WaitGroup
}

// NewMockDeliverServer returns a deliver server with a buffered delivery channel.
func NewMockDeliverServer() *MockDeliverServer {
	return &MockDeliverServer{FilteredDeliveries: make(chan *pb.FilteredBlock, 10)}
}

// Deliver is not supported by the mock.
func (m *MockDeliverServer) Deliver(server pb.Deliver_DeliverServer) error {
	return errors.New("block delivery not supported")
}

// DeliverWithPrivateData is not supported by the mock.
func (m *MockDeliverServer) DeliverWithPrivateData(server pb.Deliver_DeliverWithPrivateDataServer) error {
	return errors.New("private data delivery not supported")
}

// DeliverFiltered waits for the seek request and then streams filtered blocks
// until the client goes away or the delivery channel is closed.
func (m *MockDeliverServer) DeliverFiltered(server pb.Deliver_DeliverFilteredServer) error {
	if m.DeliverError != nil {
		return m.DeliverError
	}

	if _, err := server.Recv(); err != nil {
		return err
	}
	m.connections.Inc()

	for {
		select {
		case <-server.Context().Done():
			return nil
		case fblock, ok := <-m.FilteredDeliveries:
			if !ok {
				return server.Send(&pb.DeliverResponse{Type: &pb.DeliverResponse_Status{Status: common.Status_SUCCESS}})
			}
			if err := server.Send(&pb.DeliverResponse{Type: &pb.DeliverResponse_FilteredBlock{FilteredBlock: fblock}}); err != nil {
				return err
			}
		}
	}
}

// Connections returns the number of seek requests received.
func (m *MockDeliverServer) Connections() int {
	return int(m.connections.Load())
}

// Start the mock deliver server
func (m *MockDeliverServer) Start(address string) string {
	if m.srv != nil {
		panic("MockDeliverServer already started")
	}

	m.srv = newServer(m.Creds)
	pb.RegisterDeliverServer(m.srv, m)
	return serve(&m.wg, m.srv, address, "MockDeliverServer")
}

// Stop the mock deliver server and wait for completion.
func (m *MockDeliverServer) Stop() {
	if m.srv == nil {
		panic("MockDeliverServer not started")
	}
	m.srv.Stop()
	m.wg.Wait()
	m.srv = nil
}
