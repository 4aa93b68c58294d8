/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"time"

	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/events/service/dispatcher"
)

const (
	stopTimeout = 5 * time.Second
)

var logger = logging.NewLogger("claimsgw.fab.events")

// Service allows clients to register for transaction status events. Events
// are produced by whoever submits filtered blocks through Submit.
type Service struct {
	dispatcher *dispatcher.Dispatcher
}

// New returns a new event service
func New(opts ...dispatcher.Opt) *Service {
	return &Service{dispatcher: dispatcher.New(opts...)}
}

// Start starts the event service
func (s *Service) Start() error {
	return s.dispatcher.Start()
}

// Stop stops the event service. Every registration channel is closed.
func (s *Service) Stop() {
	errch := make(chan error, 1)
	if err := s.Submit(dispatcher.NewStopEvent(errch)); err != nil {
		logger.Warnf("Error stopping event service: %s", err)
		return
	}

	select {
	case err := <-errch:
		if err != nil {
			logger.Warnf("Error while stopping dispatcher: %s", err)
		}
	case <-time.After(stopTimeout):
		logger.Infof("Timed out waiting for dispatcher to stop")
	}
}

// Submit submits an event for processing
func (s *Service) Submit(event interface{}) error {
	eventch, err := s.dispatcher.EventCh()
	if err != nil {
		return errors.WithMessage(err, "Error submitting to event dispatcher")
	}

	select {
	case eventch <- event:
		return nil
	case <-s.dispatcher.Done():
		return errors.New("event dispatcher stopped")
	}
}

// Dispatcher returns the event dispatcher
func (s *Service) Dispatcher() *dispatcher.Dispatcher {
	return s.dispatcher
}

// RegisterTxStatusEvent registers for transaction status events. Only one
// registration may exist per transaction ID.
func (s *Service) RegisterTxStatusEvent(txID string) (fab.Registration, <-chan *fab.TxStatusEvent, error) {
	if txID == "" {
		return nil, nil, errors.New("txID must be provided")
	}

	eventch := make(chan *fab.TxStatusEvent, s.dispatcher.EventConsumerBufferSize())
	regch := make(chan fab.Registration)
	errch := make(chan error)

	if err := s.Submit(dispatcher.NewRegisterTxStatusEvent(txID, eventch, regch, errch)); err != nil {
		return nil, nil, errors.WithMessage(err, "error registering for Tx Status events")
	}

	select {
	case response := <-regch:
		return response, eventch, nil
	case err := <-errch:
		return nil, nil, err
	case <-s.dispatcher.Done():
		return nil, nil, errors.New("event dispatcher stopped")
	}
}

// Unregister unregisters the given registration.
// reg - the registration handle that was returned from one of the RegisterXXX functions
func (s *Service) Unregister(reg fab.Registration) {
	if err := s.Submit(dispatcher.NewUnregisterEvent(reg)); err != nil {
		logger.Debugf("Error unregistering: %s", err)
	}
}

// RegistrationInfo returns the current registration counts and block height.
func (s *Service) RegistrationInfo() (*dispatcher.RegistrationInfo, error) {
	regInfoCh := make(chan *dispatcher.RegistrationInfo, 1)
	if err := s.Submit(dispatcher.NewRegistrationInfoEvent(regInfoCh)); err != nil {
		return nil, err
	}

	select {
	case info := <-regInfoCh:
		return info, nil
	case <-s.dispatcher.Done():
		return nil, errors.New("event dispatcher stopped")
	}
}
