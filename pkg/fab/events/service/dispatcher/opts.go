/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	"time"
)

type params struct {
	eventConsumerBufferSize uint
	eventConsumerTimeout    time.Duration
}

func defaultParams() *params {
	return &params{
		eventConsumerBufferSize: 100,
		eventConsumerTimeout:    500 * time.Millisecond,
	}
}

// Opt sets a dispatcher parameter.
type Opt func(p *params)

// WithEventConsumerBufferSize sets the size of the registered consumer's event channel.
func WithEventConsumerBufferSize(value uint) Opt {
	return func(p *params) {
		logger.Debugf("EventConsumerBufferSize: %d", value)
		p.eventConsumerBufferSize = value
	}
}

// WithEventConsumerTimeout is the timeout when sending events to a registered consumer.
// If < 0, if buffer full, unblocks immediately and does not send.
// If 0, if buffer full, will block and guarantee the event will be sent out.
// If > 0, if buffer full, blocks util timeout.
func WithEventConsumerTimeout(value time.Duration) Opt {
	return func(p *params) {
		logger.Debugf("EventConsumerTimeout: %s", value)
		p.eventConsumerTimeout = value
	}
}

// EventConsumerBufferSize returns the size of consumer event channels.
func (d *Dispatcher) EventConsumerBufferSize() uint {
	return d.eventConsumerBufferSize
}
