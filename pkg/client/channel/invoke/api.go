/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package invoke submits chaincode transactions. A submission is endorsed,
// evaluated, sent to the ordering service and confirmed by a commit event.
package invoke

import (
	"time"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fabsdk/metrics"
)

// DefaultCommitTimeout is how long the commit listener waits for the commit event.
const DefaultCommitTimeout = 30 * time.Second

// Request contains the parameters to execute a transaction
type Request struct {
	ChaincodeID  string
	Fcn          string
	Args         [][]byte
	TransientMap map[string][]byte
	// Targets overrides the default endorsers when set
	Targets []fab.ProposalProcessor
}

// ClientContext contains the collaborators shared by all submissions on a channel
type ClientContext struct {
	ChannelID    string
	Signer       msp.SigningIdentity
	Endorsers    []fab.ProposalProcessor
	Orderers     []fab.Orderer
	EventService fab.EventService
	Metrics      *metrics.ClientMetrics
}
