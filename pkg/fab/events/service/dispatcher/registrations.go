/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

// TxStatusReg contains the data for a transaction status registration
type TxStatusReg struct {
	TxID    string
	Eventch chan<- *fab.TxStatusEvent
}
