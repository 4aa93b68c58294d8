/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"context"
	"fmt"
	"net"
	"sync"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"go.uber.org/atomic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// MockEndorserServer mock endorser server to process endorsement proposals
type MockEndorserServer struct {
	Creds         credentials.TransportCredentials
	ProposalError error
	// ChaincodeStatus is the status returned by the chaincode; 200 if unset
	ChaincodeStatus  int32
	ChaincodeMessage string
	Payload          []byte
	Endorser         []byte

	calls atomic.Int32
	wg    sync.WaitGroup
	srv   *grpc.Server
}

// ProcessProposal mock implementation that returns success if error is not set
// error if it is
func (m *MockEndorserServer) ProcessProposal(ctx context.Context, proposal *pb.SignedProposal) (*pb.ProposalResponse, error) {
	m.calls.Inc()

	if m.ProposalError != nil {
		return nil, m.ProposalError
	}

	ccStatus := m.ChaincodeStatus
	if ccStatus == 0 {
		ccStatus = 200
	}
	if ccStatus >= 400 {
		// the peer reports a failed chaincode invocation as a 500 response without endorsement
		return &pb.ProposalResponse{Response: &pb.Response{
			Status:  500,
			Message: m.ChaincodeMessage,
		}}, nil
	}

	endorser := m.Endorser
	if endorser == nil {
		endorser = []byte("endorser")
	}
	return &pb.ProposalResponse{
		Response:    &pb.Response{Status: 200, Payload: m.Payload},
		Endorsement: &pb.Endorsement{Endorser: endorser, Signature: []byte("signature")},
		Payload:     NewProposalResponsePayload(ccStatus, m.ChaincodeMessage, m.Payload),
	}, nil
}

// Calls returns the number of proposals received.
func (m *MockEndorserServer) Calls() int {
	return int(m.calls.Load())
}

// Start the mock endorser server
func (m *MockEndorserServer) Start(address string) string {
	if m.srv != nil {
		panic("MockEndorserServer already started")
	}

	m.srv = newServer(m.Creds)
	pb.RegisterEndorserServer(m.srv, m)
	return serve(&m.wg, m.srv, address, "MockEndorserServer")
}

// Stop the mock endorser server and wait for completion.
func (m *MockEndorserServer) Stop() {
	if m.srv == nil {
		panic("MockEndorserServer not started")
	}
	m.srv.Stop()
	m.wg.Wait()
	m.srv = nil
}

func newServer(creds credentials.TransportCredentials) *grpc.Server {
	// pass in TLS creds if present
	if creds != nil {
		return grpc.NewServer(grpc.Creds(creds))
	}
	return grpc.NewServer()
}

func serve(wg *sync.WaitGroup, srv *grpc.Server, address, name string) string {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		panic(fmt.Sprintf("Error starting %s %s", name, err))
	}
	addr := lis.Addr().String()

	logger.Debugf("Starting %s [%s]", name, addr)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(lis); err != nil {
			logger.Debugf("%s stopped [%s]", name, err)
		}
	}()

	return addr
}
