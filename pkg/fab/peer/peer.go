/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	reqContext "context"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"google.golang.org/grpc"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/comm"
)

var logger = logging.NewLogger("claimsgw.fab.peer")

const defaultTimeout = 15 * time.Second

// Peer represents a node in the target blockchain network to which
// HFC sends endorsement proposals.
type Peer struct {
	name     string
	url      string
	timeout  time.Duration
	connOpts []comm.Opt
	conn     *grpc.ClientConn
	client   pb.EndorserClient
}

// Option describes a functional parameter for the New constructor
type Option func(*Peer) error

// New Returns a new Peer instance connected to the peer at url
func New(ctx reqContext.Context, url string, opts ...Option) (*Peer, error) {
	peer := &Peer{url: url, name: url, timeout: defaultTimeout}

	for _, opt := range opts {
		if err := opt(peer); err != nil {
			return nil, err
		}
	}

	if peer.url == "" {
		return nil, errors.New("peer URL is required")
	}

	conn, err := comm.Dial(ctx, peer.url, peer.connOpts...)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to connect to peer [%s]", peer.url)
	}
	peer.conn = conn
	peer.client = pb.NewEndorserClient(conn)

	logger.Debugf("created peer [%s] at [%s]", peer.name, peer.url)
	return peer, nil
}

// WithName sets the name of the peer used in logs.
func WithName(name string) Option {
	return func(p *Peer) error {
		if name != "" {
			p.name = name
		}
		return nil
	}
}

// WithTimeout sets the timeout of a single proposal round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Peer) error {
		if timeout > 0 {
			p.timeout = timeout
		}
		return nil
	}
}

// WithConnectionOpts sets the gRPC connection options.
func WithConnectionOpts(opts ...comm.Opt) Option {
	return func(p *Peer) error {
		p.connOpts = append(p.connOpts, opts...)
		return nil
	}
}

// Name returns the peer name.
func (p *Peer) Name() string {
	return p.name
}

// URL gets the Peer URL. Required property for the instance objects.
func (p *Peer) URL() string {
	return p.url
}

// Close releases the underlying connection.
func (p *Peer) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
