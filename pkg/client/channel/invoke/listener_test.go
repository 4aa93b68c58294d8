/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	reqContext "context"
	"testing"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/events/service"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/mocks"
)

func listen(t *testing.T, es fab.EventService, txID string) (*CommitListener, *atomic.Int32) {
	releases := atomic.NewInt32(0)
	l, err := Listen(es, fab.TransactionID(txID), WithReleaseHook(func(fab.TransactionID) {
		releases.Inc()
	}))
	require.NoError(t, err)
	return l, releases
}

func TestListenerValid(t *testing.T) {
	es := mocks.NewMockEventService()
	l, releases := listen(t, es, "tx1")
	assert.Equal(t, Subscribed, l.State())

	require.True(t, es.Notify("tx1", pb.TxValidationCode_VALID, 12))

	outcome := l.Await(reqContext.Background(), time.Second)
	assert.Equal(t, Valid, outcome.State)
	assert.Equal(t, fab.TransactionID("tx1"), outcome.TxID)
	assert.Equal(t, pb.TxValidationCode_VALID, outcome.Code)
	assert.Equal(t, uint64(12), outcome.BlockNumber)

	assert.EqualValues(t, 1, releases.Load())
	assert.Equal(t, 1, es.UnregisterCalls())
	assert.False(t, es.IsRegistered("tx1"), "subscription is released")
}

func TestListenerInvalid(t *testing.T) {
	es := mocks.NewMockEventService()
	l, releases := listen(t, es, "tx1")

	require.True(t, es.Notify("tx1", pb.TxValidationCode_MVCC_READ_CONFLICT, 3))

	outcome := l.Await(reqContext.Background(), time.Second)
	assert.Equal(t, Invalid, outcome.State)
	assert.Equal(t, pb.TxValidationCode_MVCC_READ_CONFLICT, outcome.Code)
	assert.EqualValues(t, 1, releases.Load())
}

func TestListenerTimeout(t *testing.T) {
	es := mocks.NewMockEventService()
	l, releases := listen(t, es, "tx1")

	start := time.Now()
	outcome := l.Await(reqContext.Background(), 100*time.Millisecond)
	assert.Equal(t, ListenerTimedOut, outcome.State)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	// neither a late event nor a cancel changes the outcome or releases again
	assert.False(t, es.Notify("tx1", pb.TxValidationCode_VALID, 1))
	l.Cancel()
	assert.Equal(t, ListenerTimedOut, l.State())
	assert.Equal(t, ListenerTimedOut, l.Await(reqContext.Background(), time.Second).State)

	assert.EqualValues(t, 1, releases.Load())
	assert.Equal(t, 1, es.UnregisterCalls())
	assert.False(t, es.IsRegistered("tx1"))
}

func TestListenerCancelBeforeEvent(t *testing.T) {
	es := mocks.NewMockEventService()
	l, releases := listen(t, es, "tx1")

	l.Cancel()
	assert.Equal(t, Canceled, l.State())
	assert.EqualValues(t, 1, releases.Load())
	assert.False(t, es.IsRegistered("tx1"))

	l.Cancel()
	assert.EqualValues(t, 1, releases.Load(), "cancel is idempotent")

	start := time.Now()
	assert.Equal(t, Canceled, l.Await(reqContext.Background(), 10*time.Second).State)
	assert.Less(t, time.Since(start), time.Second, "await returns at once after cancel")
}

func TestListenerCancelWhileAwaiting(t *testing.T) {
	es := mocks.NewMockEventService()
	l, releases := listen(t, es, "tx1")

	done := make(chan CommitOutcome, 1)
	go func() {
		done <- l.Await(reqContext.Background(), 10*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	l.Cancel()

	select {
	case outcome := <-done:
		assert.Equal(t, Canceled, outcome.State)
	case <-time.After(2 * time.Second):
		t.Fatal("await did not return after cancel")
	}
	assert.EqualValues(t, 1, releases.Load())
}

func TestListenerCancelAfterResolved(t *testing.T) {
	es := mocks.NewMockEventService()
	l, releases := listen(t, es, "tx1")

	require.True(t, es.Notify("tx1", pb.TxValidationCode_VALID, 1))
	require.Equal(t, Valid, l.Await(reqContext.Background(), time.Second).State)

	l.Cancel()
	assert.Equal(t, Valid, l.State(), "cancel after resolution is a no-op")
	assert.EqualValues(t, 1, releases.Load())
}

func TestListenerDuplicateRegistration(t *testing.T) {
	es := mocks.NewMockEventService()
	l, _ := listen(t, es, "tx1")

	_, err := Listen(es, "tx1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registration already exists for TX ID [tx1]")

	l.Cancel()
	_, err = Listen(es, "tx1")
	assert.NoError(t, err, "tx ID can be reused once released")
}

func TestListenerIndependence(t *testing.T) {
	es := mocks.NewMockEventService()
	l1, _ := listen(t, es, "tx1")
	l2, _ := listen(t, es, "tx2")

	require.True(t, es.Notify("tx2", pb.TxValidationCode_VALID, 1))
	assert.Equal(t, Valid, l2.Await(reqContext.Background(), time.Second).State)
	assert.Equal(t, Subscribed, l1.State())
	assert.True(t, es.IsRegistered("tx1"))

	l1.Cancel()
}

func TestListenerContext(t *testing.T) {
	es := mocks.NewMockEventService()

	l, releases := listen(t, es, "tx1")
	ctx, cancel := reqContext.WithTimeout(reqContext.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Equal(t, ListenerTimedOut, l.Await(ctx, 10*time.Second).State)
	assert.EqualValues(t, 1, releases.Load())

	l, releases = listen(t, es, "tx2")
	ctx, cancel = reqContext.WithCancel(reqContext.Background())
	cancel()
	assert.Equal(t, Canceled, l.Await(ctx, 10*time.Second).State)
	assert.EqualValues(t, 1, releases.Load())
}

func TestListenerEventServiceStopped(t *testing.T) {
	es := service.New()
	require.NoError(t, es.Start())

	l, releases := listen(t, es, "tx1")
	es.Stop()

	assert.Equal(t, Canceled, l.Await(reqContext.Background(), 5*time.Second).State)
	assert.EqualValues(t, 1, releases.Load())
}

func TestListenValidation(t *testing.T) {
	_, err := Listen(nil, "tx1")
	assert.Error(t, err)

	_, err = Listen(mocks.NewMockEventService(), fab.EmptyTransactionID)
	assert.Error(t, err)
}
