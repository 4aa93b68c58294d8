/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package retry decides whether a failed read should be attempted again.
// Writes are never retried here; the caller owns that decision.
package retry

import (
	"context"
	"time"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
)

// Opts defines the retry parameters
type Opts struct {
	// Attempts is the number of retries after the first call
	Attempts int
	// InitialBackoff is the wait before the first retry
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between retries
	MaxBackoff time.Duration
	// BackoffFactor multiplies the backoff after every retry
	BackoffFactor float64
	// RetryableCodes lists, per group, the codes that are transient
	RetryableCodes map[status.Group][]status.Code
}

// Handler decides whether a retry is required for the given error.
type Handler interface {
	Required(ctx context.Context, err error) bool
}

type impl struct {
	opts    Opts
	retries int
}

// New returns a Handler for the given opts.
func New(opts Opts) Handler {
	if len(opts.RetryableCodes) == 0 {
		opts.RetryableCodes = DefaultRetryableCodes
	}
	return &impl{opts: opts}
}

// WithDefaults returns a Handler with DefaultOpts.
func WithDefaults() Handler {
	return New(DefaultOpts)
}

// Required reports whether err is transient and attempts remain. It waits out
// the backoff before returning true, and returns false if ctx is done first.
func (i *impl) Required(ctx context.Context, err error) bool {
	if i.retries >= i.opts.Attempts {
		return false
	}

	s, ok := status.FromError(err)
	if !ok || !i.isRetryable(s.Group, s.Code) {
		return false
	}

	t := time.NewTimer(i.backoffPeriod())
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
	}

	i.retries++
	return true
}

// Invoke calls fn until it succeeds or the handler declines another attempt.
func Invoke(ctx context.Context, h Handler, fn func() (interface{}, error)) (interface{}, error) {
	for {
		resp, err := fn()
		if err == nil || !h.Required(ctx, err) {
			return resp, err
		}
	}
}

func (i *impl) backoffPeriod() time.Duration {
	backoff, max := float64(i.opts.InitialBackoff), float64(i.opts.MaxBackoff)
	for j := 0; j < i.retries && backoff < max; j++ {
		backoff *= i.opts.BackoffFactor
	}
	if backoff > max {
		backoff = max
	}
	return time.Duration(backoff)
}

func (i *impl) isRetryable(g status.Group, c int32) bool {
	for _, code := range i.opts.RetryableCodes[g] {
		if status.Code(c) == code {
			return true
		}
	}
	return false
}
