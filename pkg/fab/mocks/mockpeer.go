/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	reqContext "context"
	"sync"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

// MockPeer is a mock endorsing peer. It never touches the network.
type MockPeer struct {
	RWLock                  *sync.RWMutex
	Error                   error
	MockURL                 string
	Payload                 []byte
	ResponseMessage         string
	ProposalResponsePayload []byte // Overrides proposal response payload generated from other values
	Status                  int32
	ProcessProposalCalls    int
	Endorser                []byte
	Delay                   time.Duration
	// NoEndorsement returns a response without an endorsement
	NoEndorsement bool
}

// NewMockPeer creates basic mock peer
func NewMockPeer(url string) *MockPeer {
	return &MockPeer{MockURL: url, Status: 200, Endorser: []byte(url), RWLock: &sync.RWMutex{}}
}

// URL returns the mock peer's mock URL
func (p *MockPeer) URL() string {
	return p.MockURL
}

// ProcessTransactionProposal does not send anything anywhere but returns a mock ProposalResponse
func (p *MockPeer) ProcessTransactionProposal(ctx reqContext.Context, tp fab.ProcessProposalRequest) (*fab.TransactionProposalResponse, error) {
	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p.RWLock != nil {
		p.RWLock.Lock()
		defer p.RWLock.Unlock()
	}
	p.ProcessProposalCalls++

	if p.Error != nil {
		return nil, p.Error
	}

	var endorsement *pb.Endorsement
	if !p.NoEndorsement {
		endorsement = &pb.Endorsement{Endorser: p.Endorser, Signature: []byte("signature")}
	}

	return &fab.TransactionProposalResponse{
		Endorser:        p.MockURL,
		Status:          p.Status,
		ChaincodeStatus: p.Status,
		ProposalResponse: &pb.ProposalResponse{
			Response: &pb.Response{
				Message: p.ResponseMessage,
				Status:  p.Status,
				Payload: p.Payload,
			},
			Endorsement: endorsement,
			Payload:     p.getProposalResponsePayload(),
		},
	}, nil
}

// Calls returns the number of proposals processed so far.
func (p *MockPeer) Calls() int {
	if p.RWLock != nil {
		p.RWLock.RLock()
		defer p.RWLock.RUnlock()
	}
	return p.ProcessProposalCalls
}

func (p *MockPeer) getProposalResponsePayload() []byte {
	if len(p.ProposalResponsePayload) > 0 {
		return p.ProposalResponsePayload
	}
	return NewProposalResponsePayload(p.Status, p.ResponseMessage, p.Payload)
}
