/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package channel enables access to a channel on a Fabric network.
package channel

import (
	reqContext "context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/client/channel/invoke"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/retry"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/txn"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fabsdk/metrics"
)

var logger = logging.NewLogger("claimsgw.client.channel")

const (
	defaultQueryTimeout = 15 * time.Second
)

// Client enables access to a channel on a Fabric network.
//
// Execute submits transactions through the invoke package and waits for
// them to be committed. Query evaluates a transaction on a single endorser
// without ordering it.
type Client struct {
	channelID     string
	signer        msp.SigningIdentity
	endorsers     []fab.ProposalProcessor
	orchestrator  *invoke.Orchestrator
	metrics       *metrics.ClientMetrics
	queryTimeout  time.Duration
	commitTimeout time.Duration
	retry         retry.Opts
}

// ClientOption describes a functional parameter for the New constructor
type ClientOption func(*Client) error

// WithQueryTimeout sets the default timeout of queries
func WithQueryTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) error {
		client.queryTimeout = timeout
		return nil
	}
}

// WithCommitTimeout sets how long Execute waits for the commit event
func WithCommitTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) error {
		client.commitTimeout = timeout
		return nil
	}
}

// WithDefaultRetry sets the retry options of queries
func WithDefaultRetry(opts retry.Opts) ClientOption {
	return func(client *Client) error {
		client.retry = opts
		return nil
	}
}

// New returns a Client instance.
func New(cc *invoke.ClientContext, opts ...ClientOption) (*Client, error) {
	if cc == nil {
		return nil, errors.New("client context is required")
	}

	channelClient := Client{
		channelID:     cc.ChannelID,
		signer:        cc.Signer,
		endorsers:     cc.Endorsers,
		metrics:       cc.Metrics,
		queryTimeout:  defaultQueryTimeout,
		commitTimeout: invoke.DefaultCommitTimeout,
		retry:         retry.DefaultOpts,
	}

	for _, param := range opts {
		if err := param(&channelClient); err != nil {
			return nil, errors.WithMessage(err, "failed to apply client option")
		}
	}

	orchestrator, err := invoke.NewOrchestrator(cc, invoke.WithCommitTimeout(channelClient.commitTimeout))
	if err != nil {
		return nil, errors.WithMessage(err, "orchestrator creation failed")
	}
	channelClient.orchestrator = orchestrator

	return &channelClient, nil
}

// Execute prepares and executes transaction using request and optional options provided.
// A transaction that is not committed returns a *TransactionError.
func (cc *Client) Execute(request Request, options ...RequestOption) (Response, error) {
	txnOpts, err := cc.prepareOptsFromOptions(options...)
	if err != nil {
		return Response{}, err
	}

	ctx := parentContext(txnOpts)
	if txnOpts.Timeout > 0 {
		var cancel reqContext.CancelFunc
		ctx, cancel = reqContext.WithTimeout(ctx, txnOpts.Timeout)
		defer cancel()
	}

	result := cc.orchestrator.SubmitTransaction(ctx, invoke.Request{
		ChaincodeID:  request.ChaincodeID,
		Fcn:          request.Fcn,
		Args:         request.Args,
		TransientMap: request.TransientMap,
		Targets:      txnOpts.Targets,
	})

	response := Response{
		Payload:          result.Payload,
		TransactionID:    result.TxID,
		TxValidationCode: result.TxValidationCode,
		BlockNumber:      result.BlockNumber,
	}
	if !result.Committed() {
		logger.Debugf("transaction %s not committed: %s", result.TxID, result.Reason)
		return response, &TransactionError{Result: result}
	}
	return response, nil
}

// Query chaincode using request and optional options provided.
// The proposal is sent to the targets in turn until one of them answers.
// Transient failures are retried.
func (cc *Client) Query(request Request, options ...RequestOption) (Response, error) {
	txnOpts, err := cc.prepareOptsFromOptions(options...)
	if err != nil {
		return Response{}, err
	}
	if request.ChaincodeID == "" || request.Fcn == "" {
		return Response{}, errors.New("ChaincodeID and Fcn are required")
	}

	timeout := txnOpts.Timeout
	if timeout == 0 {
		timeout = cc.queryTimeout
	}
	ctx, cancel := reqContext.WithTimeout(parentContext(txnOpts), timeout)
	defer cancel()

	targets := txnOpts.Targets
	if len(targets) == 0 {
		targets = cc.endorsers
	}

	retryOpts := cc.retry
	if txnOpts.Retry.Attempts > 0 {
		retryOpts = txnOpts.Retry
	}

	start := time.Now()
	if cc.metrics != nil {
		cc.metrics.QueriesReceived.With("fcn", request.Fcn).Add(1)
	}

	resp, err := retry.Invoke(ctx, retry.New(retryOpts), func() (interface{}, error) {
		return cc.query(ctx, request, targets)
	})

	if cc.metrics != nil {
		cc.metrics.QueryDuration.With("fcn", request.Fcn).Observe(time.Since(start).Seconds())
		if err != nil {
			cc.metrics.QueriesFailed.With("fcn", request.Fcn).Add(1)
		}
	}
	if err != nil {
		return Response{}, err
	}
	return resp.(Response), nil
}

func (cc *Client) query(ctx reqContext.Context, request Request, targets []fab.ProposalProcessor) (interface{}, error) {
	if len(targets) == 0 {
		return nil, status.New(status.EndorserClientStatus, status.NoPeersFound.ToInt32(), "targets were not provided", nil)
	}

	txh, err := txn.NewHeader(cc.signer, cc.channelID)
	if err != nil {
		return nil, errors.WithMessage(err, "creating transaction header failed")
	}

	proposal, err := txn.CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{
		ChaincodeID:  request.ChaincodeID,
		Fcn:          request.Fcn,
		Args:         request.Args,
		TransientMap: request.TransientMap,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "creating transaction proposal failed")
	}

	var errs []error
	for _, target := range targets {
		responses, err := txn.SendProposal(ctx, cc.signer, proposal, []fab.ProposalProcessor{target})
		if err != nil {
			logger.Debugf("query on %s failed: %s", target.URL(), err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		r := responses[0]
		code := r.GetResponse().GetStatus()
		if code < 200 || code >= 400 {
			return nil, status.NewFromProposalResponse(r.ProposalResponse, r.Endorser)
		}
		return Response{Payload: r.GetResponse().GetPayload(), TransactionID: proposal.TxnID}, nil
	}

	if len(errs) == 1 {
		return nil, errs[0]
	}
	for _, e := range errs {
		if !invoke.IsTransportError(e) {
			return nil, multierr.Combine(errs...)
		}
	}
	return nil, status.New(status.EndorserClientStatus, status.ConnectionFailed.ToInt32(),
		"no endorser could be reached: "+multierr.Combine(errs...).Error(), nil)
}

// prepareOptsFromOptions reads request options from Option array
func (cc *Client) prepareOptsFromOptions(options ...RequestOption) (requestOptions, error) {
	txnOpts := requestOptions{}
	for _, option := range options {
		err := option(&txnOpts)
		if err != nil {
			return txnOpts, errors.WithMessage(err, "Failed to read opts")
		}
	}
	return txnOpts, nil
}

func parentContext(o requestOptions) reqContext.Context {
	if o.ParentContext != nil {
		return o.ParentContext
	}
	return reqContext.Background()
}
