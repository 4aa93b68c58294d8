/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	reqContext "context"
	"sync"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

// ListenerState is the state of a commit listener.
type ListenerState int32

const (
	// Subscribed means the listener is waiting for the commit event
	Subscribed ListenerState = iota
	// Valid means the transaction was committed as valid
	Valid
	// Invalid means the transaction was committed with a non-valid code
	Invalid
	// ListenerTimedOut means no commit event arrived within the window
	ListenerTimedOut
	// Canceled means listening stopped before a commit event arrived
	Canceled
)

var listenerStateNames = map[ListenerState]string{
	Subscribed:       "SUBSCRIBED",
	Valid:            "VALID",
	Invalid:          "INVALID",
	ListenerTimedOut: "TIMED_OUT",
	Canceled:         "CANCELED",
}

func (s ListenerState) String() string {
	return listenerStateNames[s]
}

// Terminal returns true for every state but Subscribed.
func (s ListenerState) Terminal() bool {
	return s != Subscribed
}

// CommitOutcome is the terminal outcome of a commit listener.
type CommitOutcome struct {
	State       ListenerState
	TxID        fab.TransactionID
	Code        pb.TxValidationCode
	BlockNumber uint64
}

// ListenerOpt configures a CommitListener.
type ListenerOpt func(l *CommitListener)

// WithReleaseHook sets a function that is called once the subscription has
// been released.
func WithReleaseHook(hook func(txID fab.TransactionID)) ListenerOpt {
	return func(l *CommitListener) {
		l.onRelease = hook
	}
}

// CommitListener waits for the commit event of one transaction. The
// subscription is released exactly once, as soon as a terminal state is
// reached.
type CommitListener struct {
	txID      fab.TransactionID
	service   fab.EventService
	reg       fab.Registration
	eventch   <-chan *fab.TxStatusEvent
	onRelease func(txID fab.TransactionID)

	cancelOnce  sync.Once
	cancelch    chan struct{}
	releaseOnce sync.Once

	mutex   sync.RWMutex
	outcome CommitOutcome
}

// Listen subscribes to the commit event of txID. It fails fast if a
// subscription for txID already exists.
func Listen(service fab.EventService, txID fab.TransactionID, opts ...ListenerOpt) (*CommitListener, error) {
	if service == nil {
		return nil, errors.New("event service is required")
	}
	if txID == fab.EmptyTransactionID {
		return nil, errors.New("transaction ID is required")
	}

	reg, eventch, err := service.RegisterTxStatusEvent(string(txID))
	if err != nil {
		return nil, errors.WithMessage(err, "error registering for TxStatus event")
	}

	l := &CommitListener{
		txID:     txID,
		service:  service,
		reg:      reg,
		eventch:  eventch,
		cancelch: make(chan struct{}),
		outcome:  CommitOutcome{State: Subscribed, TxID: txID},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// TxID returns the transaction the listener waits for.
func (l *CommitListener) TxID() fab.TransactionID {
	return l.txID
}

// State returns the current state of the listener.
func (l *CommitListener) State() ListenerState {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.outcome.State
}

// Await blocks until the commit event arrives, the timeout expires, the
// listener is canceled or ctx is done. A non-positive timeout means
// DefaultCommitTimeout. If the listener is already terminal its outcome is
// returned immediately.
func (l *CommitListener) Await(ctx reqContext.Context, timeout time.Duration) CommitOutcome {
	if l.State().Terminal() {
		return l.Outcome()
	}
	if timeout <= 0 {
		timeout = DefaultCommitTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case event, ok := <-l.eventch:
		if !ok {
			logger.Debugf("event channel for %s closed before commit", l.txID)
			return l.resolve(CommitOutcome{State: Canceled})
		}
		state := Valid
		if event.TxValidationCode != pb.TxValidationCode_VALID {
			state = Invalid
		}
		return l.resolve(CommitOutcome{State: state, Code: event.TxValidationCode, BlockNumber: event.BlockNumber})
	case <-l.cancelch:
		return l.Outcome()
	case <-timer.C:
		logger.Debugf("no commit event for %s within %s", l.txID, timeout)
		return l.resolve(CommitOutcome{State: ListenerTimedOut})
	case <-ctx.Done():
		if ctx.Err() == reqContext.DeadlineExceeded {
			return l.resolve(CommitOutcome{State: ListenerTimedOut})
		}
		return l.resolve(CommitOutcome{State: Canceled})
	}
}

// Cancel stops listening. A subscribed listener becomes Canceled; a listener
// that is already terminal is left unchanged.
func (l *CommitListener) Cancel() {
	l.cancelOnce.Do(func() {
		l.resolve(CommitOutcome{State: Canceled})
		close(l.cancelch)
	})
}

// Outcome returns the current outcome of the listener.
func (l *CommitListener) Outcome() CommitOutcome {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.outcome
}

// resolve moves the listener to a terminal state unless it is already
// terminal, and returns the outcome that won.
func (l *CommitListener) resolve(outcome CommitOutcome) CommitOutcome {
	l.mutex.Lock()
	if l.outcome.State == Subscribed {
		outcome.TxID = l.txID
		l.outcome = outcome
	}
	outcome = l.outcome
	l.mutex.Unlock()

	l.release()
	return outcome
}

func (l *CommitListener) release() {
	l.releaseOnce.Do(func() {
		l.service.Unregister(l.reg)
		if l.onRelease != nil {
			l.onRelease(l.txID)
		}
		logger.Debugf("released commit listener for %s", l.txID)
	})
}
