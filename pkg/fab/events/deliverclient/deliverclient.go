/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package deliverclient

import (
	"context"
	"sync"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"google.golang.org/grpc"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/comm"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/events/service"
)

var logger = logging.NewLogger("claimsgw.fab.events.deliverclient")

const (
	stateDisconnected int32 = iota
	stateConnected
	stateClosed
)

// Client connects to a peer's DeliverFiltered service and turns the received
// filtered blocks into transaction status events.
type Client struct {
	*service.Service
	params

	url       string
	channelID string
	signer    msp.SigningIdentity

	state     *atomic.Int32
	conn      *grpc.ClientConn
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

var _ fab.EventClient = (*Client)(nil)

// New returns a new deliver event client for the given peer. Connect must be
// called before events are received.
func New(url, channelID string, signer msp.SigningIdentity, opts ...Opt) (*Client, error) {
	if url == "" {
		return nil, errors.New("event peer URL is required")
	}
	if channelID == "" {
		return nil, errors.New("expecting channel ID")
	}
	if signer == nil {
		return nil, errors.New("signing identity is required")
	}

	params := defaultParams()
	for _, opt := range opts {
		opt(params)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		Service:   service.New(params.dispatcherOpts...),
		params:    *params,
		url:       url,
		channelID: channelID,
		signer:    signer,
		state:     atomic.NewInt32(stateDisconnected),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}, nil
}

// URL returns the URL of the event peer.
func (c *Client) URL() string {
	return c.url
}

// Connect starts the event service, opens the filtered block stream and
// keeps it open until Close is called. The stream is reopened with backoff
// whenever it fails.
func (c *Client) Connect() error {
	if err := c.Service.Start(); err != nil {
		return errors.WithMessage(err, "unable to start event service")
	}

	conn, err := comm.Dial(c.ctx, c.url, c.connOpts...)
	if err != nil {
		c.Service.Stop()
		return status.New(status.EventServerStatus, status.ConnectionFailed.ToInt32(), err.Error(), []interface{}{c.url})
	}
	c.conn = conn

	stream, err := c.openStream()
	if err != nil {
		c.Service.Stop()
		if cerr := conn.Close(); cerr != nil {
			logger.Warnf("error closing connection to [%s]: %s", c.url, cerr)
		}
		c.conn = nil
		return errors.WithMessagef(err, "unable to connect to event peer [%s]", c.url)
	}

	c.state.Store(stateConnected)
	logger.Infof("connected to event peer [%s] on channel [%s]", c.url, c.channelID)

	go c.run(stream)
	return nil
}

// Close stops receiving events, closes all registrations and releases the
// connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		logger.Debugf("closing event client for [%s]", c.url)
		c.state.Store(stateClosed)
		c.cancel()

		if c.conn != nil {
			<-c.done
			if err := c.conn.Close(); err != nil {
				logger.Warnf("error closing connection to [%s]: %s", c.url, err)
			}
		}
		c.Service.Stop()
	})
}

// HealthCheck reports an error while the event stream is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	switch c.state.Load() {
	case stateConnected:
		return nil
	case stateClosed:
		return errors.Errorf("event client for [%s] is closed", c.url)
	default:
		return errors.Errorf("event client for [%s] is not connected", c.url)
	}
}

func (c *Client) openStream() (pb.Deliver_DeliverFilteredClient, error) {
	// fail fast: an unreachable peer must not block Connect, reconnect retries
	stream, err := pb.NewDeliverClient(c.conn).DeliverFiltered(c.ctx, grpc.WaitForReady(false))
	if err != nil {
		return nil, errors.Wrap(err, "could not create deliver filtered stream")
	}

	envelope, err := seekEnvelope(c.signer, c.channelID, seekInfo(c.Dispatcher().LastBlockNum()))
	if err != nil {
		return nil, err
	}

	if err := stream.Send(envelope); err != nil {
		return nil, errors.Wrap(err, "failed to send seek request")
	}
	return stream, nil
}

func (c *Client) run(stream pb.Deliver_DeliverFilteredClient) {
	defer close(c.done)

	for {
		err := c.receive(stream)
		if c.ctx.Err() != nil {
			logger.Debugf("event client for [%s] stopped", c.url)
			return
		}

		c.state.CompareAndSwap(stateConnected, stateDisconnected)
		logger.Warnf("event stream from [%s] terminated: %s", c.url, err)

		stream = c.reconnect()
		if stream == nil {
			return
		}
		c.state.CompareAndSwap(stateDisconnected, stateConnected)
		logger.Infof("reconnected to event peer [%s]", c.url)
	}
}

func (c *Client) reconnect() pb.Deliver_DeliverFilteredClient {
	delay := c.reconnectDelay
	for {
		timer := time.NewTimer(delay)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		stream, err := c.openStream()
		if err == nil {
			return stream
		}
		logger.Debugf("reconnect to [%s] failed: %s", c.url, err)

		delay *= 2
		if delay > c.maxReconnectDelay {
			delay = c.maxReconnectDelay
		}
	}
}

func (c *Client) receive(stream pb.Deliver_DeliverFilteredClient) error {
	for {
		resp, err := stream.Recv()
		if err != nil {
			return err
		}

		switch t := resp.Type.(type) {
		case *pb.DeliverResponse_FilteredBlock:
			event := &fab.FilteredBlockEvent{FilteredBlock: t.FilteredBlock, SourceURL: c.url}
			if err := c.Submit(event); err != nil {
				return errors.WithMessage(err, "unable to publish filtered block")
			}
		case *pb.DeliverResponse_Status:
			return errors.Errorf("deliver stream ended with status %s", t.Status)
		default:
			logger.Warnf("unsupported deliver response type: %T", resp.Type)
		}
	}
}
