/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	"fmt"

	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

// ResultKind is the outcome class of a transaction submission.
type ResultKind int

const (
	// Committed means the transaction was committed as valid
	Committed ResultKind = iota
	// ProposalRejected means the endorsements were missing or unsuccessful
	ProposalRejected
	// OrderingRejected means the orderer refused the envelope or the transaction was committed as invalid
	OrderingRejected
	// TimedOut means no commit event arrived within the commit window
	TimedOut
	// TransportError means an endorser, orderer or the event source could not be reached
	TransportError
)

var resultKindNames = map[ResultKind]string{
	Committed:        "COMMITTED",
	ProposalRejected: "PROPOSAL_REJECTED",
	OrderingRejected: "ORDERING_REJECTED",
	TimedOut:         "TIMED_OUT",
	TransportError:   "TRANSPORT_ERROR",
}

func (k ResultKind) String() string {
	if s, ok := resultKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ResultKind(%d)", int(k))
}

// Result is the single outcome of a transaction submission.
type Result struct {
	Kind ResultKind
	TxID fab.TransactionID
	// Reason describes why the transaction was not committed
	Reason string
	// Err is the underlying error, usually a *status.Status
	Err error
	// Payload is the chaincode response of the endorsement
	Payload          []byte
	TxValidationCode pb.TxValidationCode
	BlockNumber      uint64
}

// Committed returns true if the transaction was committed as valid.
func (r Result) Committed() bool {
	return r.Kind == Committed
}

func (r Result) String() string {
	if r.Kind == Committed {
		return fmt.Sprintf("transaction %s committed in block %d", r.TxID, r.BlockNumber)
	}
	if r.TxID == fab.EmptyTransactionID {
		return fmt.Sprintf("%s: %s", r.Kind, r.Reason)
	}
	return fmt.Sprintf("%s: transaction %s: %s", r.Kind, r.TxID, r.Reason)
}

func committed(txID fab.TransactionID, payload []byte, outcome CommitOutcome) Result {
	return Result{
		Kind:             Committed,
		TxID:             txID,
		Payload:          payload,
		TxValidationCode: outcome.Code,
		BlockNumber:      outcome.BlockNumber,
	}
}

func failed(kind ResultKind, txID fab.TransactionID, reason string, err error) Result {
	return Result{Kind: kind, TxID: txID, Reason: reason, Err: err}
}
