/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	reqContext "context"
	"sync"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

// MockOrderer is a mock fab.Orderer.
// Note that calling broadcast doesn't deliver anything unless OnBroadcast
// is set. The broadcast side and the event side are independent from the
// mocking point of view.
type MockOrderer struct {
	OrdererURL string
	// Status is returned by the ordering service; SUCCESS if unset
	Status common.Status
	// Error is returned as a transport failure
	Error error
	Delay time.Duration
	// OnBroadcast is invoked with the tx ID of every accepted envelope
	OnBroadcast func(txID string)

	mutex     sync.Mutex
	envelopes []*fab.SignedEnvelope
}

// NewMockOrderer returns a mock orderer that accepts every envelope.
func NewMockOrderer(url string) *MockOrderer {
	return &MockOrderer{OrdererURL: url, Status: common.Status_SUCCESS}
}

// URL returns the URL of the mock Orderer
func (o *MockOrderer) URL() string {
	return o.OrdererURL
}

// SendBroadcast records the envelope and answers with the configured status.
func (o *MockOrderer) SendBroadcast(ctx reqContext.Context, envelope *fab.SignedEnvelope) (*common.Status, error) {
	o.mutex.Lock()
	o.envelopes = append(o.envelopes, envelope)
	o.mutex.Unlock()

	if o.Delay > 0 {
		select {
		case <-time.After(o.Delay):
		case <-ctx.Done():
			return nil, status.New(status.OrdererClientStatus, status.Canceled.ToInt32(), ctx.Err().Error(), nil)
		}
	}

	if o.Error != nil {
		return nil, o.Error
	}

	s := o.Status
	if s != common.Status_SUCCESS && s != common.Status_UNKNOWN {
		return &s, status.New(status.OrdererServerStatus, int32(s), "mock orderer rejected envelope", nil)
	}
	s = common.Status_SUCCESS

	if o.OnBroadcast != nil {
		chdr, err := ExtractChannelHeader(envelope.Payload)
		if err != nil {
			logger.Warnf("unable to extract channel header: %s", err)
		} else {
			o.OnBroadcast(chdr.TxId)
		}
	}
	return &s, nil
}

// Envelopes returns the envelopes received so far.
func (o *MockOrderer) Envelopes() []*fab.SignedEnvelope {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return append([]*fab.SignedEnvelope(nil), o.envelopes...)
}
