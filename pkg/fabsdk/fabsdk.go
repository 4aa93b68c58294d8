/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fabsdk builds the process wide connection to a Fabric network:
// the client identity, the endorsing peers, the orderers, the commit event
// client and the channel client on top of them.
package fabsdk

import (
	reqContext "context"
	"sync"

	"github.com/hyperledger/fabric-lib-go/common/metrics"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/client/channel"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/client/channel/invoke"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/core"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/core/logging/api"
	fabImpl "github.com/espressoclaims/hyperledger-fabric-network/pkg/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/events/deliverclient"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/orderer"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/peer"
	sdkMetrics "github.com/espressoclaims/hyperledger-fabric-network/pkg/fabsdk/metrics"
	mspImpl "github.com/espressoclaims/hyperledger-fabric-network/pkg/msp"
)

var logger = logging.NewLogger("claimsgw.fabsdk")

// FabricSDK provides access to the clients built from the configuration.
// It is created once at startup and closed once at shutdown.
type FabricSDK struct {
	opts            options
	config          *fabImpl.EndpointConfig
	signer          msp.SigningIdentity
	peers           []*peer.Peer
	orderers        []*orderer.Orderer
	eventClient     *deliverclient.Client
	metricsProvider metrics.Provider
	channelClient   *channel.Client
	closeOnce       sync.Once
}

type options struct {
	Logger          api.LoggerProvider
	Signer          msp.SigningIdentity
	MetricsProvider metrics.Provider
	EventOpts       []deliverclient.Opt
}

// Option configures the SDK.
type Option func(opts *options) error

// WithLoggerPkg injects the logger provider.
func WithLoggerPkg(logger api.LoggerProvider) Option {
	return func(opts *options) error {
		opts.Logger = logger
		return nil
	}
}

// WithSigningIdentity uses signer instead of the identity stored in the wallet.
func WithSigningIdentity(signer msp.SigningIdentity) Option {
	return func(opts *options) error {
		if signer == nil {
			return errors.New("signing identity is nil")
		}
		opts.Signer = signer
		return nil
	}
}

// WithMetricsProvider overrides the provider selected by metrics.provider.
func WithMetricsProvider(provider metrics.Provider) Option {
	return func(opts *options) error {
		opts.MetricsProvider = provider
		return nil
	}
}

// WithEventOpts passes options to the deliver client.
func WithEventOpts(opts ...deliverclient.Opt) Option {
	return func(o *options) error {
		o.EventOpts = append(o.EventOpts, opts...)
		return nil
	}
}

// New initializes the SDK from the configuration. It loads the identity,
// connects to peers and orderers, and opens the commit event stream. Anything
// opened before a failure is closed again.
func New(configProvider core.ConfigProvider, opts ...Option) (*FabricSDK, error) {
	sdk := &FabricSDK{}
	for _, param := range opts {
		if err := param(&sdk.opts); err != nil {
			return nil, errors.WithMessage(err, "error in option passed to New")
		}
	}

	if sdk.opts.Logger != nil {
		logging.Initialize(sdk.opts.Logger)
	}

	config, err := fabImpl.ConfigFromProvider(configProvider)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to initialize configuration")
	}
	sdk.config = config

	if level := config.Client.Logging.Level; level != "" {
		if err := logging.ActivateSpec(level); err != nil {
			return nil, errors.WithMessagef(err, "invalid logging spec [%s]", level)
		}
	}

	if err := sdk.init(); err != nil {
		sdk.Close()
		return nil, err
	}

	logger.Infof("connected to channel [%s] through %d peers and %d orderers", config.Channel.ID, len(sdk.peers), len(sdk.orderers))
	return sdk, nil
}

func (sdk *FabricSDK) init() error {
	if err := sdk.initSigner(); err != nil {
		return errors.WithMessage(err, "failed to load signing identity")
	}
	if err := sdk.initMetrics(); err != nil {
		return errors.WithMessage(err, "failed to initialize metrics")
	}
	if err := sdk.initPeers(); err != nil {
		return errors.WithMessage(err, "failed to initialize peers")
	}
	if err := sdk.initOrderers(); err != nil {
		return errors.WithMessage(err, "failed to initialize orderers")
	}
	if err := sdk.initEventClient(); err != nil {
		return errors.WithMessage(err, "failed to initialize event client")
	}
	return sdk.initChannelClient()
}

func (sdk *FabricSDK) initSigner() error {
	if sdk.opts.Signer != nil {
		sdk.signer = sdk.opts.Signer
		return nil
	}

	wallet, err := mspImpl.NewFileSystemWallet(sdk.config.Client.Wallet.Path)
	if err != nil {
		return err
	}
	signer, err := wallet.SigningIdentity(sdk.config.Client.Wallet.Label)
	if err != nil {
		return err
	}
	sdk.signer = signer
	return nil
}

func (sdk *FabricSDK) initMetrics() error {
	if sdk.opts.MetricsProvider != nil {
		sdk.metricsProvider = sdk.opts.MetricsProvider
		return nil
	}
	provider, err := sdkMetrics.NewProvider(sdk.config.Metrics.Provider)
	if err != nil {
		return err
	}
	sdk.metricsProvider = provider
	return nil
}

func (sdk *FabricSDK) initPeers() error {
	if len(sdk.config.Peers) == 0 {
		return errors.New("at least one peer is required")
	}

	timeouts := sdk.config.Client.Timeouts
	for _, p := range sdk.config.Peers {
		connOpts, err := p.ConnectionOpts(timeouts.Dial)
		if err != nil {
			return errors.WithMessagef(err, "invalid connection options for peer [%s]", p.URL)
		}
		endorser, err := peer.New(reqContext.Background(), p.URL,
			peer.WithName(p.Name),
			peer.WithTimeout(timeouts.Endorser),
			peer.WithConnectionOpts(connOpts...))
		if err != nil {
			return err
		}
		sdk.peers = append(sdk.peers, endorser)
	}
	return nil
}

func (sdk *FabricSDK) initOrderers() error {
	if len(sdk.config.Orderers) == 0 {
		return errors.New("at least one orderer is required")
	}

	timeouts := sdk.config.Client.Timeouts
	for _, o := range sdk.config.Orderers {
		connOpts, err := o.ConnectionOpts(timeouts.Dial)
		if err != nil {
			return errors.WithMessagef(err, "invalid connection options for orderer [%s]", o.URL)
		}
		ord, err := orderer.New(reqContext.Background(), o.URL,
			orderer.WithTimeout(timeouts.Orderer),
			orderer.WithConnectionOpts(connOpts...))
		if err != nil {
			return err
		}
		sdk.orderers = append(sdk.orderers, ord)
	}
	return nil
}

// initEventClient connects to the first event peer that accepts the stream.
func (sdk *FabricSDK) initEventClient() error {
	timeouts := sdk.config.Client.Timeouts

	var errs error
	for _, p := range sdk.config.EventPeers() {
		connOpts, err := p.ConnectionOpts(timeouts.Dial)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		opts := append([]deliverclient.Opt{
			deliverclient.WithConnectionOpts(connOpts...),
			deliverclient.WithReconnectDelay(timeouts.EventReconnect, 0),
		}, sdk.opts.EventOpts...)

		client, err := deliverclient.New(p.EventsURL(), sdk.config.Channel.ID, sdk.signer, opts...)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := client.Connect(); err != nil {
			logger.Warnf("unable to connect to event peer [%s]: %s", p.EventsURL(), err)
			client.Close()
			errs = multierr.Append(errs, err)
			continue
		}

		sdk.eventClient = client
		return nil
	}
	if errs == nil {
		errs = errors.New("no event peer configured")
	}
	return errs
}

func (sdk *FabricSDK) initChannelClient() error {
	endorsers := make([]fab.ProposalProcessor, len(sdk.peers))
	for i, p := range sdk.peers {
		endorsers[i] = p
	}
	orderers := make([]fab.Orderer, len(sdk.orderers))
	for i, o := range sdk.orderers {
		orderers[i] = o
	}

	timeouts := sdk.config.Client.Timeouts
	client, err := channel.New(&invoke.ClientContext{
		ChannelID:    sdk.config.Channel.ID,
		Signer:       sdk.signer,
		Endorsers:    endorsers,
		Orderers:     orderers,
		EventService: sdk.eventClient,
		Metrics:      sdkMetrics.NewClientMetrics(sdk.metricsProvider),
	}, channel.WithQueryTimeout(timeouts.Query), channel.WithCommitTimeout(timeouts.Commit))
	if err != nil {
		return errors.WithMessage(err, "failed to create channel client")
	}
	sdk.channelClient = client
	return nil
}

// Config returns the resolved configuration.
func (sdk *FabricSDK) Config() *fabImpl.EndpointConfig {
	return sdk.config
}

// ChannelClient returns the client of the configured channel.
func (sdk *FabricSDK) ChannelClient() *channel.Client {
	return sdk.channelClient
}

// EventClient returns the commit event client.
func (sdk *FabricSDK) EventClient() *deliverclient.Client {
	return sdk.eventClient
}

// MetricsProvider returns the provider the client metrics are created from.
func (sdk *FabricSDK) MetricsProvider() metrics.Provider {
	return sdk.metricsProvider
}

// Close stops the event client first, so that pending commit listeners are
// released, and then closes the peer and orderer connections.
// Calling it more than once has no effect.
func (sdk *FabricSDK) Close() {
	sdk.closeOnce.Do(func() {
		if sdk.eventClient != nil {
			sdk.eventClient.Close()
		}

		var errs error
		for _, p := range sdk.peers {
			errs = multierr.Append(errs, p.Close())
		}
		for _, o := range sdk.orderers {
			errs = multierr.Append(errs, o.Close())
		}
		if errs != nil {
			logger.Warnf("error closing connections: %s", errs)
		}
		logger.Debug("SDK closed")
	})
}
