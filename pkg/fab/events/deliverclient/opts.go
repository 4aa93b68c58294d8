/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package deliverclient

import (
	"time"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/comm"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/events/service/dispatcher"
)

type params struct {
	connOpts          []comm.Opt
	dispatcherOpts    []dispatcher.Opt
	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration
}

func defaultParams() *params {
	return &params{
		reconnectDelay:    2 * time.Second,
		maxReconnectDelay: 30 * time.Second,
	}
}

// Opt sets a deliver client parameter.
type Opt func(p *params)

// WithConnectionOpts sets the gRPC connection options for the event peer.
func WithConnectionOpts(opts ...comm.Opt) Opt {
	return func(p *params) {
		p.connOpts = append(p.connOpts, opts...)
	}
}

// WithDispatcherOpts sets the options of the underlying event dispatcher.
func WithDispatcherOpts(opts ...dispatcher.Opt) Opt {
	return func(p *params) {
		p.dispatcherOpts = append(p.dispatcherOpts, opts...)
	}
}

// WithReconnectDelay sets the initial delay between reconnect attempts.
// The delay doubles after every failed attempt up to max.
func WithReconnectDelay(initial, max time.Duration) Opt {
	return func(p *params) {
		if initial > 0 {
			p.reconnectDelay = initial
		}
		if max >= p.reconnectDelay {
			p.maxReconnectDelay = max
		} else {
			p.maxReconnectDelay = p.reconnectDelay
		}
	}
}
