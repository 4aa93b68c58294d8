/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"testing"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/mocks"
)

var _ fab.EventService = (*Service)(nil)

func newService(t *testing.T) *Service {
	s := New()
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

func TestRegisterTxStatusEvent(t *testing.T) {
	s := newService(t)

	_, _, err := s.RegisterTxStatusEvent("")
	assert.Error(t, err)

	reg, eventch, err := s.RegisterTxStatusEvent("tx1")
	require.NoError(t, err)

	_, _, err = s.RegisterTxStatusEvent("tx1")
	require.Error(t, err, "duplicate registration fails fast")

	require.NoError(t, s.Submit(&fab.FilteredBlockEvent{
		FilteredBlock: mocks.NewFilteredBlock("mychannel", 3, mocks.NewFilteredTx("tx1", pb.TxValidationCode_VALID)),
		SourceURL:     "peer0",
	}))

	select {
	case event := <-eventch:
		assert.Equal(t, "tx1", event.TxID)
		assert.Equal(t, pb.TxValidationCode_VALID, event.TxValidationCode)
		assert.Equal(t, uint64(3), event.BlockNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tx status event")
	}

	s.Unregister(reg)
	_, ok := <-eventch
	assert.False(t, ok)

	info, err := s.RegistrationInfo()
	require.NoError(t, err)
	assert.Equal(t, 0, info.NumTxStatusRegistrations)
	assert.Equal(t, uint64(3), info.LastBlockReceived)
}

func TestStop(t *testing.T) {
	s := New()
	require.NoError(t, s.Start())

	_, eventch, err := s.RegisterTxStatusEvent("tx1")
	require.NoError(t, err)

	s.Stop()

	_, ok := <-eventch
	assert.False(t, ok, "stop closes all registrations")

	_, _, err = s.RegisterTxStatusEvent("tx2")
	assert.Error(t, err)

	// unregister and stop after stop are harmless
	s.Unregister(&struct{}{})
	s.Stop()
}

func TestSubmitBeforeStart(t *testing.T) {
	s := New()
	assert.Error(t, s.Submit(&fab.FilteredBlockEvent{}))
}
