/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// FilteredBlockEvent contains the data for a filtered block event
type FilteredBlockEvent struct {
	// FilteredBlock contains a filtered version of the block that was committed
	FilteredBlock *pb.FilteredBlock
	// SourceURL specifies the URL of the peer that produced the event
	SourceURL string
}

// TxStatusEvent contains the data for a transaction status event
type TxStatusEvent struct {
	// TxID is the ID of the transaction in which the event was set
	TxID string
	// TxValidationCode is the status code of the commit
	TxValidationCode pb.TxValidationCode
	// BlockNumber contains the block number in which the
	// transaction was committed
	BlockNumber uint64
	// SourceURL specifies the URL of the peer that produced the event
	SourceURL string
}

// Registration is a handle that is returned from a successful RegisterTxStatusEvent.
// This handle should be used in Unregister in order to unregister the event.
type Registration interface{}

// EventService delivers transaction status events.
type EventService interface {
	// RegisterTxStatusEvent registers for the status of txID. Only one
	// registration may exist per transaction ID; a second one fails until
	// the first is unregistered. The channel is closed by Unregister.
	RegisterTxStatusEvent(txID string) (Registration, <-chan *TxStatusEvent, error)

	// Unregister removes the given registration and closes the event channel.
	Unregister(reg Registration)
}

// EventClient is an EventService connected to a peer.
type EventClient interface {
	EventService

	// Connect connects to the event server.
	Connect() error

	// Close closes the connection and all registrations.
	Close()
}
