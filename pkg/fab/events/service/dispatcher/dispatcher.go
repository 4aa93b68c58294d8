/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	"math"
	"reflect"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

var logger = logging.NewLogger("claimsgw.fab.events")

const (
	dispatcherStateInitial = iota
	dispatcherStateStarted
	dispatcherStateStopped
)

// Handler is the handler for a given event type.
type Handler func(Event)

// Dispatcher is responsible for handling all events, including registration events originating from the client,
// and filtered blocks originating from the deliver service. All events are processed in a single Go routine
// in order to avoid any race conditions and to ensure that events are processed in the order in which they are received.
// The registry is only ever touched by that Go routine.
type Dispatcher struct {
	params
	lastBlockNum    *atomic.Uint64
	state           *atomic.Int32
	eventch         chan interface{}
	done            chan struct{}
	handlers        map[reflect.Type]Handler
	txRegistrations map[string]*TxStatusReg
}

// New creates a new Dispatcher.
func New(opts ...Opt) *Dispatcher {
	logger.Debug("Creating new dispatcher.")

	params := defaultParams()
	for _, opt := range opts {
		opt(params)
	}

	return &Dispatcher{
		params:          *params,
		lastBlockNum:    atomic.NewUint64(math.MaxUint64),
		state:           atomic.NewInt32(dispatcherStateInitial),
		handlers:        make(map[reflect.Type]Handler),
		eventch:         make(chan interface{}, params.eventConsumerBufferSize),
		done:            make(chan struct{}),
		txRegistrations: make(map[string]*TxStatusReg),
	}
}

// RegisterHandlers registers all of the handlers by event type
func (ed *Dispatcher) RegisterHandlers() {
	ed.RegisterHandler(&RegisterTxStatusEvent{}, ed.handleRegisterTxStatusEvent)
	ed.RegisterHandler(&UnregisterEvent{}, ed.handleUnregisterEvent)
	ed.RegisterHandler(&StopEvent{}, ed.handleStopEvent)
	ed.RegisterHandler(&RegistrationInfoEvent{}, ed.handleRegistrationInfoEvent)
	ed.RegisterHandler(&fab.FilteredBlockEvent{}, ed.handleFilteredBlockEvent)
}

// RegisterHandler registers an event handler
func (ed *Dispatcher) RegisterHandler(t interface{}, h Handler) {
	htype := reflect.TypeOf(t)
	if _, ok := ed.handlers[htype]; !ok {
		logger.Debugf("Registering handler for %s on dispatcher %T", htype, ed)
		ed.handlers[htype] = h
	} else {
		logger.Debugf("Cannot register handler %s on dispatcher %T since it's already registered", htype, ed)
	}
}

// EventCh returns the channel to which events may be posted
func (ed *Dispatcher) EventCh() (chan<- interface{}, error) {
	state := ed.state.Load()
	if state == dispatcherStateStarted {
		return ed.eventch, nil
	}
	return nil, errors.Errorf("dispatcher not started - Current state [%d]", state)
}

// Done is closed once the dispatcher has stopped.
func (ed *Dispatcher) Done() <-chan struct{} {
	return ed.done
}

// Start starts dispatching events as they arrive. All events are processed in
// a single Go routine in order to avoid any race conditions
func (ed *Dispatcher) Start() error {
	if !ed.state.CompareAndSwap(dispatcherStateInitial, dispatcherStateStarted) {
		return errors.New("cannot start dispatcher since it's not in its initial state")
	}

	ed.RegisterHandlers()

	go func() {
		defer close(ed.done)

		for ed.state.Load() != dispatcherStateStopped {
			e := <-ed.eventch

			if handler, ok := ed.handlers[reflect.TypeOf(e)]; ok {
				handler(e)
			} else {
				logger.Errorf("Handler not found for: %s", reflect.TypeOf(e))
			}
		}
		logger.Debug("Exiting event dispatcher")
	}()
	return nil
}

// LastBlockNum returns the block number of the last block for which an event was received.
// math.MaxUint64 is returned if no block has been received.
func (ed *Dispatcher) LastBlockNum() uint64 {
	return ed.lastBlockNum.Load()
}

// updateLastBlockNum updates the value of lastBlockNum
func (ed *Dispatcher) updateLastBlockNum(blockNum uint64) error {
	// The Deliver Service shouldn't be sending blocks out of order.
	lastBlockNum := ed.lastBlockNum.Load()
	if lastBlockNum == math.MaxUint64 || blockNum > lastBlockNum {
		ed.lastBlockNum.Store(blockNum)
		logger.Debugf("Updated last block received to %d", blockNum)
		return nil
	}
	return errors.Errorf("Expecting a block number greater than %d but received block number %d", lastBlockNum, blockNum)
}

func (ed *Dispatcher) handleRegisterTxStatusEvent(e Event) {
	event := e.(*RegisterTxStatusEvent)

	if _, exists := ed.txRegistrations[event.Reg.TxID]; exists {
		event.ErrCh <- errors.Errorf("registration already exists for TX ID [%s]", event.Reg.TxID)
		return
	}

	logger.Debugf("Registering tx status event for TxID [%s]", event.Reg.TxID)
	ed.txRegistrations[event.Reg.TxID] = event.Reg
	event.RegCh <- event.Reg
}

func (ed *Dispatcher) handleUnregisterEvent(e Event) {
	event := e.(*UnregisterEvent)

	reg, ok := event.Reg.(*TxStatusReg)
	if !ok {
		logger.Warnf("Unsupported registration type: %+v", reflect.TypeOf(event.Reg))
		return
	}

	current, ok := ed.txRegistrations[reg.TxID]
	if !ok || current != reg {
		logger.Debugf("Registration for TxID [%s] is not current", reg.TxID)
		return
	}

	logger.Debugf("Unregistering TxID [%s]", reg.TxID)
	delete(ed.txRegistrations, reg.TxID)
	close(reg.Eventch)
}

func (ed *Dispatcher) handleStopEvent(e Event) {
	event := e.(*StopEvent)

	logger.Debugf("Stopping dispatcher...")
	ed.clearTxRegistrations()
	ed.state.Store(dispatcherStateStopped)

	event.ErrCh <- nil
}

func (ed *Dispatcher) handleRegistrationInfoEvent(e Event) {
	evt := e.(*RegistrationInfoEvent)

	evt.RegInfoCh <- &RegistrationInfo{
		LastBlockReceived:        ed.LastBlockNum(),
		NumTxStatusRegistrations: len(ed.txRegistrations),
	}
}

func (ed *Dispatcher) handleFilteredBlockEvent(e Event) {
	evt := e.(*fab.FilteredBlockEvent)

	if evt.FilteredBlock == nil {
		logger.Warn("Filtered block is nil. Event will not be published")
		return
	}

	if err := ed.updateLastBlockNum(evt.FilteredBlock.Number); err != nil {
		logger.Warnf("Ignoring filtered block: %s", err)
		return
	}

	for _, tx := range evt.FilteredBlock.FilteredTransactions {
		ed.publishTxStatusEvents(tx, evt.FilteredBlock.Number, evt.SourceURL)
	}
}

func (ed *Dispatcher) publishTxStatusEvents(tx *pb.FilteredTransaction, blockNum uint64, sourceURL string) {
	reg, ok := ed.txRegistrations[tx.Txid]
	if !ok {
		return
	}

	logger.Debugf("Sending Tx Status event for TxID [%s] to registrant...", tx.Txid)
	event := NewTxStatusEvent(tx.Txid, tx.TxValidationCode, blockNum, sourceURL)

	if ed.eventConsumerTimeout < 0 {
		select {
		case reg.Eventch <- event:
		default:
			logger.Warn("Unable to send to Tx Status event channel.")
		}
	} else if ed.eventConsumerTimeout == 0 {
		reg.Eventch <- event
	} else {
		timer := time.NewTimer(ed.eventConsumerTimeout)
		defer timer.Stop()

		select {
		case reg.Eventch <- event:
		case <-timer.C:
			logger.Warn("Timed out sending Tx Status event.")
		}
	}
}

// clearTxRegistrations removes all transaction registrations and closes the corresponding event channels.
func (ed *Dispatcher) clearTxRegistrations() {
	for _, reg := range ed.txRegistrations {
		logger.Debugf("Closing TX registration event channel for TxID [%s].", reg.TxID)
		close(reg.Eventch)
	}
	ed.txRegistrations = make(map[string]*TxStatusReg)
}
