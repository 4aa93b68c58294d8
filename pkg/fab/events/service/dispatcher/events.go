/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

// Event is an event that's sent to the dispatcher. This includes client registration
// requests or events that come from an event producer.
type Event interface{}

// RegisterEvent is the base for all registration events.
type RegisterEvent struct {
	RegCh chan<- fab.Registration
	ErrCh chan<- error
}

// RegisterTxStatusEvent is a request to register for transaction status events
type RegisterTxStatusEvent struct {
	RegisterEvent
	Reg *TxStatusReg
}

// UnregisterEvent unregisters a registration
type UnregisterEvent struct {
	Reg fab.Registration
}

// StopEvent tells the dispatcher to stop processing
type StopEvent struct {
	ErrCh chan<- error
}

// RegistrationInfo contains a snapshot of the current event registrations
type RegistrationInfo struct {
	LastBlockReceived        uint64
	NumTxStatusRegistrations int
}

// RegistrationInfoEvent requests registration information
type RegistrationInfoEvent struct {
	RegInfoCh chan<- *RegistrationInfo
}

// NewRegisterTxStatusEvent returns a transaction status registration event
func NewRegisterTxStatusEvent(txID string, eventch chan<- *fab.TxStatusEvent, regch chan<- fab.Registration, errch chan<- error) *RegisterTxStatusEvent {
	return &RegisterTxStatusEvent{
		Reg:           &TxStatusReg{TxID: txID, Eventch: eventch},
		RegisterEvent: RegisterEvent{RegCh: regch, ErrCh: errch},
	}
}

// NewUnregisterEvent creates a new unregistration request
func NewUnregisterEvent(reg fab.Registration) *UnregisterEvent {
	return &UnregisterEvent{Reg: reg}
}

// NewStopEvent creates a new stop event
func NewStopEvent(errch chan<- error) *StopEvent {
	return &StopEvent{ErrCh: errch}
}

// NewRegistrationInfoEvent returns a new RegistrationInfoEvent
func NewRegistrationInfoEvent(regInfoCh chan<- *RegistrationInfo) *RegistrationInfoEvent {
	return &RegistrationInfoEvent{RegInfoCh: regInfoCh}
}

// NewTxStatusEvent returns a new tx status event
func NewTxStatusEvent(txID string, txValidationCode pb.TxValidationCode, blockNum uint64, sourceURL string) *fab.TxStatusEvent {
	return &fab.TxStatusEvent{
		TxID:             txID,
		TxValidationCode: txValidationCode,
		BlockNumber:      blockNum,
		SourceURL:        sourceURL,
	}
}
