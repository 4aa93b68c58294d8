/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	"math"
	"testing"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

func startDispatcher(t *testing.T, opts ...Opt) (*Dispatcher, chan<- interface{}) {
	d := New(opts...)
	require.NoError(t, d.Start())
	eventch, err := d.EventCh()
	require.NoError(t, err)
	t.Cleanup(func() {
		errch := make(chan error, 1)
		select {
		case eventch <- NewStopEvent(errch):
			<-errch
		case <-d.Done():
		}
	})
	return d, eventch
}

func register(t *testing.T, eventch chan<- interface{}, txID string) (fab.Registration, chan *fab.TxStatusEvent, error) {
	txch := make(chan *fab.TxStatusEvent, 1)
	regch := make(chan fab.Registration)
	errch := make(chan error)
	eventch <- NewRegisterTxStatusEvent(txID, txch, regch, errch)

	select {
	case reg := <-regch:
		return reg, txch, nil
	case err := <-errch:
		return nil, nil, err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for registration")
	}
	return nil, nil, nil
}

func TestStartTwice(t *testing.T) {
	d, _ := startDispatcher(t)
	assert.Error(t, d.Start())
}

func TestEventChBeforeStart(t *testing.T) {
	d := New()
	_, err := d.EventCh()
	assert.Error(t, err)
	assert.Equal(t, uint64(math.MaxUint64), d.LastBlockNum())
}

func TestDuplicateRegistration(t *testing.T) {
	_, eventch := startDispatcher(t)

	_, _, err := register(t, eventch, "tx1")
	require.NoError(t, err)

	_, _, err = register(t, eventch, "tx1")
	require.Error(t, err)
	assert.Equal(t, "registration already exists for TX ID [tx1]", err.Error())

	_, _, err = register(t, eventch, "tx2")
	assert.NoError(t, err, "other tx IDs are independent")
}

func TestTxStatusDeliveredToMatchingRegistration(t *testing.T) {
	d, eventch := startDispatcher(t)

	_, txch1, err := register(t, eventch, "tx1")
	require.NoError(t, err)
	_, txch2, err := register(t, eventch, "tx2")
	require.NoError(t, err)

	eventch <- &fab.FilteredBlockEvent{
		SourceURL: "peer0",
		FilteredBlock: &pb.FilteredBlock{
			Number: 7,
			FilteredTransactions: []*pb.FilteredTransaction{
				{Txid: "tx1", TxValidationCode: pb.TxValidationCode_MVCC_READ_CONFLICT},
				{Txid: "other", TxValidationCode: pb.TxValidationCode_VALID},
			},
		},
	}

	select {
	case event := <-txch1:
		assert.Equal(t, "tx1", event.TxID)
		assert.Equal(t, pb.TxValidationCode_MVCC_READ_CONFLICT, event.TxValidationCode)
		assert.Equal(t, uint64(7), event.BlockNumber)
		assert.Equal(t, "peer0", event.SourceURL)
	case <-time.After(2 * time.Second):
		t.Fatal("expected tx status event for tx1")
	}

	select {
	case event := <-txch2:
		t.Fatalf("unexpected event for tx2: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}

	assert.Equal(t, uint64(7), d.LastBlockNum())
}

func TestOutOfOrderBlockIgnored(t *testing.T) {
	d, eventch := startDispatcher(t)

	eventch <- &fab.FilteredBlockEvent{FilteredBlock: &pb.FilteredBlock{Number: 5}}

	_, txch, err := register(t, eventch, "tx1")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), d.LastBlockNum())

	eventch <- &fab.FilteredBlockEvent{FilteredBlock: &pb.FilteredBlock{
		Number:               5,
		FilteredTransactions: []*pb.FilteredTransaction{{Txid: "tx1"}},
	}}

	select {
	case event := <-txch:
		t.Fatalf("unexpected event from a replayed block: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnregisterClosesChannel(t *testing.T) {
	_, eventch := startDispatcher(t)

	reg, txch, err := register(t, eventch, "tx1")
	require.NoError(t, err)

	eventch <- NewUnregisterEvent(reg)

	select {
	case _, ok := <-txch:
		assert.False(t, ok, "channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("expected channel to be closed")
	}

	_, _, err = register(t, eventch, "tx1")
	assert.NoError(t, err, "tx ID can be registered again after unregister")

	// a stale registration must not close the new one
	eventch <- NewUnregisterEvent(reg)
	regInfoCh := make(chan *RegistrationInfo, 1)
	eventch <- NewRegistrationInfoEvent(regInfoCh)
	assert.Equal(t, 1, (<-regInfoCh).NumTxStatusRegistrations)
}

func TestStopClosesRegistrations(t *testing.T) {
	d := New()
	require.NoError(t, d.Start())
	eventch, err := d.EventCh()
	require.NoError(t, err)

	_, txch, err := register(t, eventch, "tx1")
	require.NoError(t, err)

	errch := make(chan error, 1)
	eventch <- NewStopEvent(errch)
	assert.NoError(t, <-errch)

	_, ok := <-txch
	assert.False(t, ok)

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	_, err = d.EventCh()
	assert.Error(t, err)
}

func TestConsumerTimeout(t *testing.T) {
	_, eventch := startDispatcher(t, WithEventConsumerTimeout(10*time.Millisecond))

	txch := make(chan *fab.TxStatusEvent) // unbuffered and never read
	regch := make(chan fab.Registration)
	errch := make(chan error)
	eventch <- NewRegisterTxStatusEvent("slow", txch, regch, errch)
	<-regch

	eventch <- &fab.FilteredBlockEvent{FilteredBlock: &pb.FilteredBlock{
		Number:               1,
		FilteredTransactions: []*pb.FilteredTransaction{{Txid: "slow"}},
	}}

	// the dispatcher stays responsive after giving up on the slow consumer
	regInfoCh := make(chan *RegistrationInfo, 1)
	eventch <- NewRegistrationInfoEvent(regInfoCh)
	select {
	case info := <-regInfoCh:
		assert.Equal(t, uint64(1), info.LastBlockReceived)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher blocked on slow consumer")
	}
}
