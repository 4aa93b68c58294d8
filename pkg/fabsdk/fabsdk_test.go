/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fabsdk

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hyperledger/fabric-lib-go/common/metrics/disabled"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/client/channel"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/client/channel/invoke"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/core/config"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/mocks"
	mspImpl "github.com/espressoclaims/hyperledger-fabric-network/pkg/msp"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/msp/test/mockmsp"
)

const (
	testAddress  = "127.0.0.1:0"
	walletLabel  = "PeerAdmin"
	configFormat = `
client:
  organization: Org1MSP
  wallet:
    path: %s
    label: %s
  logging:
    level: info
  timeouts:
    commit: 5s
    dial: 1s
    eventReconnect: 50ms
channel:
  id: mychannel
  chaincode: fabcar
peers:
  - name: peer0
    url: grpc://%s
    eventUrl: grpc://%s
    events: true
orderers:
  - name: orderer0
    url: grpc://%s
metrics:
  provider: disabled
`
)

type network struct {
	endorser  *mocks.MockEndorserServer
	broadcast *mocks.MockBroadcastServer
	deliver   *mocks.MockDeliverServer

	endorserAddr, broadcastAddr, deliverAddr string
}

func startNetwork(t *testing.T) *network {
	n := &network{
		endorser: &mocks.MockEndorserServer{Payload: []byte("claims")},
		deliver:  mocks.NewMockDeliverServer(),
	}
	n.broadcast = &mocks.MockBroadcastServer{FilteredDeliveries: n.deliver.FilteredDeliveries}

	n.endorserAddr = n.endorser.Start(testAddress)
	n.broadcastAddr = n.broadcast.Start(testAddress)
	n.deliverAddr = n.deliver.Start(testAddress)

	t.Cleanup(func() {
		n.endorser.Stop()
		n.broadcast.Stop()
		n.deliver.Stop()
	})
	return n
}

func newWallet(t *testing.T) string {
	dir := t.TempDir()
	wallet, err := mspImpl.NewFileSystemWallet(dir)
	require.NoError(t, err)

	certPEM, keyPEM, err := mockmsp.GenerateCredentials("Admin")
	require.NoError(t, err)
	require.NoError(t, wallet.Put(walletLabel, mspImpl.NewX509Identity(mockmsp.MSPID, string(certPEM), string(keyPEM))))
	return dir
}

func (n *network) config(walletPath string) []byte {
	return []byte(fmt.Sprintf(configFormat, walletPath, walletLabel, n.endorserAddr, n.deliverAddr, n.broadcastAddr))
}

func TestNew(t *testing.T) {
	n := startNetwork(t)

	sdk, err := New(config.FromRaw(n.config(newWallet(t)), "yaml"))
	require.NoError(t, err)
	defer sdk.Close()

	assert.Equal(t, "mychannel", sdk.Config().Channel.ID)
	assert.NotNil(t, sdk.ChannelClient())
	assert.IsType(t, &disabled.Provider{}, sdk.MetricsProvider())

	require.NotNil(t, sdk.EventClient())
	assert.Equal(t, "grpc://"+n.deliverAddr, sdk.EventClient().URL())
	assert.NoError(t, sdk.EventClient().HealthCheck(context.Background()))
}

func TestExecuteAndQuery(t *testing.T) {
	n := startNetwork(t)

	sdk, err := New(config.FromRaw(n.config(newWallet(t)), "yaml"))
	require.NoError(t, err)
	defer sdk.Close()

	client := sdk.ChannelClient()

	response, err := client.Query(channel.Request{ChaincodeID: "fabcar", Fcn: "queryAllClaims", Args: [][]byte{[]byte("")}})
	require.NoError(t, err)
	assert.Equal(t, []byte("claims"), response.Payload)

	response, err = client.Execute(channel.Request{ChaincodeID: "fabcar", Fcn: "createClaim", Args: [][]byte{[]byte("CLAIM-1")}})
	require.NoError(t, err)
	assert.Equal(t, pb.TxValidationCode_VALID, response.TxValidationCode)
	assert.Equal(t, 1, n.broadcast.Calls())
}

func TestExecuteInvalidated(t *testing.T) {
	n := startNetwork(t)
	n.broadcast.TxValidationCode = pb.TxValidationCode_MVCC_READ_CONFLICT

	sdk, err := New(config.FromRaw(n.config(newWallet(t)), "yaml"))
	require.NoError(t, err)
	defer sdk.Close()

	_, err = sdk.ChannelClient().Execute(channel.Request{ChaincodeID: "fabcar", Fcn: "createClaim"})
	result, ok := channel.ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, invoke.OrderingRejected, result.Kind)
	assert.Equal(t, pb.TxValidationCode_MVCC_READ_CONFLICT, result.TxValidationCode)
}

func TestNewWithSigningIdentity(t *testing.T) {
	n := startNetwork(t)
	signer, err := mockmsp.NewSigningIdentity("User1")
	require.NoError(t, err)

	sdk, err := New(config.FromRaw(n.config("/nonexistent"), "yaml"),
		WithSigningIdentity(signer), WithMetricsProvider(&disabled.Provider{}))
	require.NoError(t, err)
	sdk.Close()
}

func TestNewBadOpt(t *testing.T) {
	_, err := New(config.FromRaw([]byte("channel:\n  id: mychannel\n"), "yaml"),
		func(opts *options) error { return errors.New("Bad Opt") })
	assert.Error(t, err)

	_, err = New(config.FromRaw([]byte(""), "yaml"), WithSigningIdentity(nil))
	assert.Error(t, err)
}

func TestNewMissingIdentity(t *testing.T) {
	n := startNetwork(t)

	_, err := New(config.FromRaw(n.config(t.TempDir()), "yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load signing identity")
}

func TestNewEventPeerUnreachable(t *testing.T) {
	n := startNetwork(t)
	n.deliverAddr = "127.0.0.1:1"

	start := time.Now()
	_, err := New(config.FromRaw(n.config(newWallet(t)), "yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize event client")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestDoubleClose(t *testing.T) {
	n := startNetwork(t)

	sdk, err := New(config.FromRaw(n.config(newWallet(t)), "yaml"))
	require.NoError(t, err)
	sdk.Close()
	sdk.Close()

	assert.Error(t, sdk.EventClient().HealthCheck(context.Background()))
}
