/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	reqContext "context"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/txn"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fabsdk/metrics"
)

// Opt configures an Orchestrator.
type Opt func(o *Orchestrator)

// WithCommitTimeout sets how long to wait for the commit event.
func WithCommitTimeout(timeout time.Duration) Opt {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.commitTimeout = timeout
		}
	}
}

// WithListenerOpts sets options for every commit listener.
func WithListenerOpts(opts ...ListenerOpt) Opt {
	return func(o *Orchestrator) {
		o.listenerOpts = append(o.listenerOpts, opts...)
	}
}

// Orchestrator submits transactions: it collects endorsements, evaluates
// them, and then sends the envelope for ordering while it waits for the
// commit event.
type Orchestrator struct {
	channelID     string
	signer        msp.SigningIdentity
	endorser      *EndorsementClient
	evaluator     *Evaluator
	submitter     *OrderingSubmitter
	events        fab.EventService
	metrics       *metrics.ClientMetrics
	commitTimeout time.Duration
	listenerOpts  []ListenerOpt
}

// NewOrchestrator returns an orchestrator for the channel described by cc.
func NewOrchestrator(cc *ClientContext, opts ...Opt) (*Orchestrator, error) {
	if cc == nil {
		return nil, errors.New("client context is required")
	}
	if cc.ChannelID == "" {
		return nil, errors.New("channel ID is required")
	}
	if cc.Signer == nil {
		return nil, errors.New("signing identity is required")
	}
	if cc.EventService == nil {
		return nil, errors.New("event service is required")
	}

	o := &Orchestrator{
		channelID:     cc.ChannelID,
		signer:        cc.Signer,
		endorser:      NewEndorsementClient(cc.Signer, cc.Endorsers...),
		evaluator:     NewEvaluator(cc.Signer),
		submitter:     NewOrderingSubmitter(cc.Orderers...),
		events:        cc.EventService,
		metrics:       cc.Metrics,
		commitTimeout: DefaultCommitTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SubmitTransaction endorses, orders and commits the transaction described
// by request and returns exactly one result.
//
// Endorsement failures return without ordering and without a commit
// listener. Otherwise ordering and commit listening run concurrently. An
// ordering failure cancels the listener and returns at once; if ordering
// succeeds the commit event decides the result.
func (o *Orchestrator) SubmitTransaction(ctx reqContext.Context, request Request) (result Result) {
	start := time.Now()
	defer func() {
		o.record(result, time.Since(start))
	}()

	if request.ChaincodeID == "" || request.Fcn == "" {
		err := errors.New("chaincode ID and function are required")
		return failed(ProposalRejected, fab.EmptyTransactionID, err.Error(), err)
	}

	txh, err := txn.NewHeader(o.signer, o.channelID)
	if err != nil {
		return failed(TransportError, fab.EmptyTransactionID, "unable to create transaction header: "+err.Error(), err)
	}
	txID := txh.TransactionID()

	proposal, err := txn.CreateChaincodeInvokeProposal(txh, fab.ChaincodeInvokeRequest{
		ChaincodeID:  request.ChaincodeID,
		Fcn:          request.Fcn,
		Args:         request.Args,
		TransientMap: request.TransientMap,
	})
	if err != nil {
		return failed(ProposalRejected, txID, "unable to create proposal: "+err.Error(), err)
	}

	responses, err := o.endorser.Propose(ctx, proposal, request.Targets...)
	if err != nil {
		if IsTransportError(err) {
			return failed(TransportError, txID, "unable to reach endorsers: "+err.Error(), err)
		}
		return failed(ProposalRejected, txID, err.Error(), err)
	}

	verdict := o.evaluator.Evaluate(proposal, responses)
	if !verdict.Valid() {
		logger.Debugf("proposal for %s rejected: %s", txID, verdict.Reason)
		return failed(ProposalRejected, txID, verdict.Reason, verdict.Err)
	}

	listener, err := Listen(o.events, txID, o.listenerOpts...)
	if err != nil {
		return failed(TransportError, txID, err.Error(), err)
	}
	// releases the subscription if a task below panics
	defer listener.Cancel()

	var outcome CommitOutcome
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := o.submitter.Submit(gctx, verdict.Envelope); err != nil {
			listener.Cancel()
			return err
		}
		return nil
	})
	g.Go(func() error {
		outcome = listener.Await(gctx, o.commitTimeout)
		return nil
	})

	if err := g.Wait(); err != nil {
		return orderingFailure(ctx, txID, err)
	}
	return commitResult(ctx, txID, verdict.Payload, outcome)
}

func orderingFailure(ctx reqContext.Context, txID fab.TransactionID, err error) Result {
	if s, ok := status.FromError(err); ok && s.Group == status.OrdererServerStatus {
		return failed(OrderingRejected, txID, "orderer returned status "+common.Status(s.Code).String(), err)
	}
	if ctx.Err() == reqContext.DeadlineExceeded {
		return failed(TimedOut, txID, "deadline exceeded while sending transaction to orderer", err)
	}
	return failed(TransportError, txID, "unable to send transaction to orderer: "+err.Error(), err)
}

func commitResult(ctx reqContext.Context, txID fab.TransactionID, payload []byte, outcome CommitOutcome) Result {
	switch outcome.State {
	case Valid:
		return committed(txID, payload, outcome)
	case Invalid:
		s := status.NewFromTxValidationCode(string(txID), outcome.Code)
		r := failed(OrderingRejected, txID, s.Message, s)
		r.TxValidationCode = outcome.Code
		r.BlockNumber = outcome.BlockNumber
		return r
	case ListenerTimedOut:
		s := status.New(status.ClientStatus, status.Timeout.ToInt32(), "no commit event received", []interface{}{string(txID)})
		return failed(TimedOut, txID, s.Message, s)
	default:
		if err := ctx.Err(); err != nil {
			return failed(TransportError, txID, err.Error(), err)
		}
		s := status.New(status.ClientStatus, status.Canceled.ToInt32(), "event service closed before the commit event arrived", nil)
		return failed(TransportError, txID, s.Message, s)
	}
}

func (o *Orchestrator) record(result Result, duration time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.TxResults.With("result", result.Kind.String()).Add(1)
	o.metrics.TxDuration.Observe(duration.Seconds())
}
