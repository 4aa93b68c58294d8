/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package channel

import (
	reqContext "context"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/client/channel/invoke"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/retry"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

// opts allows the user to specify more advanced options
type requestOptions struct {
	Targets       []fab.ProposalProcessor // targets
	Timeout       time.Duration
	Retry         retry.Opts
	ParentContext reqContext.Context //parent grpc context
}

// RequestOption func for each Opts argument
type RequestOption func(opts *requestOptions) error

// Request contains the parameters to query and execute an invocation transaction
type Request struct {
	ChaincodeID  string
	Fcn          string
	Args         [][]byte
	TransientMap map[string][]byte
}

// Response contains response parameters for query and execute an invocation transaction
type Response struct {
	Payload          []byte
	TransactionID    fab.TransactionID
	TxValidationCode pb.TxValidationCode
	BlockNumber      uint64
}

// TransactionError is returned by Execute when a transaction was not committed.
type TransactionError struct {
	invoke.Result
}

func (e *TransactionError) Error() string {
	return e.Result.String()
}

// Unwrap returns the underlying error of the result.
func (e *TransactionError) Unwrap() error {
	return e.Result.Err
}

// ResultOf returns the submission result carried by err, if any.
func ResultOf(err error) (invoke.Result, bool) {
	var txErr *TransactionError
	if errors.As(err, &txErr) {
		return txErr.Result, true
	}
	return invoke.Result{}, false
}

// WithTimeout encapsulates time.Duration to Option
func WithTimeout(timeout time.Duration) RequestOption {
	return func(o *requestOptions) error {
		o.Timeout = timeout
		return nil
	}
}

// WithTargets encapsulates ProposalProcessors to Option
func WithTargets(targets ...fab.ProposalProcessor) RequestOption {
	return func(o *requestOptions) error {
		for _, t := range targets {
			if t == nil {
				return errors.New("target is nil")
			}
		}
		o.Targets = targets
		return nil
	}
}

// WithRetry option to configure retries
func WithRetry(retryOpt retry.Opts) RequestOption {
	return func(o *requestOptions) error {
		o.Retry = retryOpt
		return nil
	}
}

// WithParentContext encapsulates grpc parent context
func WithParentContext(parentContext reqContext.Context) RequestOption {
	return func(o *requestOptions) error {
		o.ParentContext = parentContext
		return nil
	}
}
