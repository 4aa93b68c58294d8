/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"sync"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

// TxStatusReg is the registration handed out by MockEventService.
type TxStatusReg struct {
	TxID    string
	Eventch chan *fab.TxStatusEvent
}

// MockEventService implements a mock event service
type MockEventService struct {
	// TxStatusRegCh receives every new registration if non-nil
	TxStatusRegCh chan *TxStatusReg
	// RegisterError fails every registration
	RegisterError error

	mutex           sync.Mutex
	regs            map[string]*TxStatusReg
	unregisterCalls int
}

// NewMockEventService returns a new mock event service
func NewMockEventService() *MockEventService {
	return &MockEventService{
		TxStatusRegCh: make(chan *TxStatusReg, 10),
		regs:          make(map[string]*TxStatusReg),
	}
}

// RegisterTxStatusEvent registers for transaction status events.
func (m *MockEventService) RegisterTxStatusEvent(txID string) (fab.Registration, <-chan *fab.TxStatusEvent, error) {
	if m.RegisterError != nil {
		return nil, nil, m.RegisterError
	}

	m.mutex.Lock()
	if m.regs == nil {
		m.regs = make(map[string]*TxStatusReg)
	}
	if _, exists := m.regs[txID]; exists {
		m.mutex.Unlock()
		return nil, nil, errors.Errorf("registration already exists for TX ID [%s]", txID)
	}
	reg := &TxStatusReg{TxID: txID, Eventch: make(chan *fab.TxStatusEvent, 1)}
	m.regs[txID] = reg
	m.mutex.Unlock()

	if m.TxStatusRegCh != nil {
		select {
		case m.TxStatusRegCh <- reg:
		default:
		}
	}
	return reg, reg.Eventch, nil
}

// Unregister removes the given registration and closes its event channel.
func (m *MockEventService) Unregister(reg fab.Registration) {
	r, ok := reg.(*TxStatusReg)
	if !ok {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.unregisterCalls++
	if current, exists := m.regs[r.TxID]; exists && current == r {
		delete(m.regs, r.TxID)
		close(r.Eventch)
	}
}

// Notify sends a status event to the registration for txID. It returns
// false if there is no such registration.
func (m *MockEventService) Notify(txID string, code pb.TxValidationCode, blockNum uint64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	reg, ok := m.regs[txID]
	if !ok {
		return false
	}
	select {
	case reg.Eventch <- &fab.TxStatusEvent{TxID: txID, TxValidationCode: code, BlockNumber: blockNum, SourceURL: "mock"}:
		return true
	default:
		return false
	}
}

// IsRegistered returns true if a registration exists for txID.
func (m *MockEventService) IsRegistered(txID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.regs[txID]
	return ok
}

// UnregisterCalls returns the number of times Unregister was called.
func (m *MockEventService) UnregisterCalls() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.unregisterCalls
}
