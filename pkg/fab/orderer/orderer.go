/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package orderer

import (
	reqContext "context"
	"io"
	"time"

	"github.com/hyperledger/fabric-protos-go/common"
	ab "github.com/hyperledger/fabric-protos-go/orderer"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/comm"
)

var logger = logging.NewLogger("claimsgw.fab.orderer")

const defaultTimeout = 15 * time.Second

// Orderer allows a client to broadcast a transaction.
type Orderer struct {
	url      string
	timeout  time.Duration
	connOpts []comm.Opt
	conn     *grpc.ClientConn
}

// Option describes a functional parameter for the New constructor
type Option func(*Orderer) error

// New Returns a Orderer instance
func New(ctx reqContext.Context, url string, opts ...Option) (*Orderer, error) {
	orderer := &Orderer{url: url, timeout: defaultTimeout}

	for _, opt := range opts {
		if err := opt(orderer); err != nil {
			return nil, err
		}
	}

	if orderer.url == "" {
		return nil, errors.New("orderer URL is required")
	}

	conn, err := comm.Dial(ctx, orderer.url, orderer.connOpts...)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to connect to orderer [%s]", orderer.url)
	}
	orderer.conn = conn

	return orderer, nil
}

// WithTimeout sets the timeout of a single broadcast.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Orderer) error {
		if timeout > 0 {
			o.timeout = timeout
		}
		return nil
	}
}

// WithConnectionOpts sets the gRPC connection options.
func WithConnectionOpts(opts ...comm.Opt) Option {
	return func(o *Orderer) error {
		o.connOpts = append(o.connOpts, opts...)
		return nil
	}
}

// URL Get the Orderer url. Required property for the instance objects.
func (o *Orderer) URL() string {
	return o.url
}

// Close releases the underlying connection.
func (o *Orderer) Close() error {
	if o.conn == nil {
		return nil
	}
	return o.conn.Close()
}

// SendBroadcast Send the created transaction to Orderer.
//
// A status other than SUCCESS is returned together with an
// OrdererServerStatus error; stream failures are returned as transport
// errors with a nil status.
func (o *Orderer) SendBroadcast(ctx reqContext.Context, envelope *fab.SignedEnvelope) (*common.Status, error) {
	if envelope == nil {
		return nil, errors.New("envelope is required")
	}

	reqCtx, cancel := reqContext.WithTimeout(ctx, o.timeout)
	defer cancel()

	broadcastClient, err := ab.NewAtomicBroadcastClient(o.conn).Broadcast(reqCtx)
	if err != nil {
		return nil, errors.Wrap(wrapRPCError(err), "NewAtomicBroadcastClient failed")
	}

	responses := make(chan common.Status)
	errs := make(chan error, 1)

	go broadcastStream(broadcastClient, responses, errs)

	err = broadcastClient.Send(&common.Envelope{
		Payload:   envelope.Payload,
		Signature: envelope.Signature,
	})
	if err != nil {
		return nil, errors.Wrap(wrapRPCError(err), "failed to send envelope to orderer")
	}
	if err = broadcastClient.CloseSend(); err != nil {
		logger.Debugf("unable to close broadcast client [%s]", err)
	}

	return wrapStreamStatusRPC(responses, errs)
}

// wrapStreamStatusRPC returns the last response and err and blocks until the chan is closed.
func wrapStreamStatusRPC(responses chan common.Status, errs chan error) (*common.Status, error) {
	var s *common.Status
	var err error

read:
	for {
		select {
		case r, ok := <-responses:
			if !ok {
				break read
			}
			s = &r
		case e := <-errs:
			err = multierr.Append(err, e)
		}
	}

	// drain remaining errors.
	for i := 0; i < len(errs); i++ {
		err = multierr.Append(err, <-errs)
	}

	if err == nil && s == nil {
		err = status.New(status.OrdererClientStatus, status.Unknown.ToInt32(), "no response received from orderer", nil)
	}
	return s, err
}

func broadcastStream(broadcastClient ab.AtomicBroadcast_BroadcastClient, responses chan common.Status, errs chan error) {
	defer close(responses)

	for {
		broadcastResponse, err := broadcastClient.Recv()
		if err == io.EOF {
			// done
			return
		}

		if err != nil {
			errs <- errors.Wrap(wrapRPCError(err), "broadcast recv failed")
			return
		}

		if broadcastResponse.Status != common.Status_SUCCESS {
			logger.Warnf("orderer rejected envelope with status %s: %s", broadcastResponse.Status, broadcastResponse.Info)
			errs <- status.New(status.OrdererServerStatus, int32(broadcastResponse.Status), broadcastResponse.Info, nil)
		}
		responses <- broadcastResponse.Status
	}
}

func wrapRPCError(err error) error {
	if rpcStatus, ok := grpcstatus.FromError(err); ok {
		return status.NewFromGRPCStatus(rpcStatus)
	}
	return status.New(status.OrdererClientStatus, status.ConnectionFailed.ToInt32(), err.Error(), nil)
}
