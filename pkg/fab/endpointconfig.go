/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fab

import (
	"crypto/x509"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/core"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/core/config/lookup"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/comm"
)

var logger = logging.NewLogger("claimsgw.fab")

const (
	defaultEndorserTimeout       = time.Second * 15
	defaultOrdererTimeout        = time.Second * 15
	defaultCommitTimeout         = time.Second * 30
	defaultQueryTimeout          = time.Second * 15
	defaultDialTimeout           = time.Second * 5
	defaultEventReconnectTimeout = time.Second * 2
	defaultServerReadTimeout     = time.Second * 35
	defaultServerWriteTimeout    = time.Second * 60
	defaultServerShutdownTimeout = time.Second * 10
	defaultListenAddress         = ":8081"
	defaultRateLimit             = 50
	defaultRateBurst             = 100
	defaultMetricsProvider       = "prometheus"
	defaultWalletLabel           = "PeerAdmin"
)

// serverWriteMargin is the time left to write a response after a submission
// has used up its endorser and commit timeouts.
const serverWriteMargin = time.Second * 5

// EndpointConfig is the resolved configuration of the gateway: client
// identity and timeouts, the channel and chaincode, the network endpoints,
// and the HTTP server.
type EndpointConfig struct {
	Client   ClientConfig    `yaml:"client"`
	Channel  ChannelConfig   `yaml:"channel"`
	Peers    []PeerConfig    `yaml:"peers"`
	Orderers []OrdererConfig `yaml:"orderers"`
	Server   ServerConfig    `yaml:"server"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

// ClientConfig provides the definition of the client configuration
type ClientConfig struct {
	Organization string         `yaml:"organization"`
	Wallet       WalletConfig   `yaml:"wallet"`
	Logging      LoggingConfig  `yaml:"logging"`
	Timeouts     TimeoutsConfig `yaml:"timeouts"`
}

// WalletConfig locates the signing identity.
type WalletConfig struct {
	Path  string `yaml:"path"`
	Label string `yaml:"label"`
}

// LoggingConfig holds the flogging spec and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format,omitempty"`
}

// TimeoutsConfig contains the client-side timeouts.
type TimeoutsConfig struct {
	Endorser       time.Duration `yaml:"endorser"`
	Orderer        time.Duration `yaml:"orderer"`
	Commit         time.Duration `yaml:"commit"`
	Query          time.Duration `yaml:"query"`
	Dial           time.Duration `yaml:"dial"`
	EventReconnect time.Duration `yaml:"eventReconnect"`
}

// ChannelConfig names the channel and chaincode the gateway talks to.
type ChannelConfig struct {
	ID        string `yaml:"id"`
	Chaincode string `yaml:"chaincode"`
}

// TLSConfig holds a CA certificate given inline or by path.
type TLSConfig struct {
	Path string `yaml:"path,omitempty"`
	Pem  string `yaml:"pem,omitempty"`
}

// PeerConfig defines a peer configuration
type PeerConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// EventURL is the deliver service address when it differs from URL
	EventURL    string                 `yaml:"eventUrl,omitempty"`
	Events      bool                   `yaml:"events"`
	TLSCACerts  TLSConfig              `yaml:"tlsCACerts,omitempty"`
	GRPCOptions map[string]interface{} `yaml:"grpcOptions,omitempty"`
}

// OrdererConfig defines an orderer configuration
type OrdererConfig struct {
	Name        string                 `yaml:"name"`
	URL         string                 `yaml:"url"`
	TLSCACerts  TLSConfig              `yaml:"tlsCACerts,omitempty"`
	GRPCOptions map[string]interface{} `yaml:"grpcOptions,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listenAddress"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is in requests per second. Zero disables limiting; unset
	// means the default.
	RateLimit *float64 `yaml:"rateLimit"`
	RateBurst int      `yaml:"rateBurst"`
}

// MetricsConfig selects the metrics provider: "prometheus" or "disabled".
type MetricsConfig struct {
	Provider string `yaml:"provider"`
}

// ConfigFromBackend returns endpoint config implementation for given backend
func ConfigFromBackend(coreBackend ...core.ConfigBackend) (*EndpointConfig, error) {
	backend := lookup.New(coreBackend...)

	config := &EndpointConfig{}
	for key, target := range map[string]interface{}{
		"client":   &config.Client,
		"channel":  &config.Channel,
		"peers":    &config.Peers,
		"orderers": &config.Orderers,
		"server":   &config.Server,
		"metrics":  &config.Metrics,
	} {
		if err := backend.UnmarshalKey(key, target); err != nil {
			return nil, errors.WithMessagef(err, "failed to parse '%s' config item", key)
		}
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, errors.WithMessage(err, "network configuration load failed")
	}

	logger.Debugf("loaded configuration for channel [%s] with %d peers and %d orderers", config.Channel.ID, len(config.Peers), len(config.Orderers))
	return config, nil
}

// ConfigFromProvider resolves the backends of provider and loads the config.
func ConfigFromProvider(provider core.ConfigProvider) (*EndpointConfig, error) {
	if provider == nil {
		return nil, errors.New("config provider is required")
	}
	backends, err := provider()
	if err != nil {
		return nil, errors.WithMessage(err, "unable to load config backend")
	}
	return ConfigFromBackend(backends...)
}

// EventPeers returns the peers flagged as event sources. If none is flagged
// the first peer is used.
func (c *EndpointConfig) EventPeers() []PeerConfig {
	var peers []PeerConfig
	for _, p := range c.Peers {
		if p.Events {
			peers = append(peers, p)
		}
	}
	if len(peers) == 0 && len(c.Peers) > 0 {
		peers = append(peers, c.Peers[0])
	}
	return peers
}

// EventsURL returns the address of the peer's deliver service.
func (p PeerConfig) EventsURL() string {
	if p.EventURL != "" {
		return p.EventURL
	}
	return p.URL
}

// TLSCACert loads the certificate, or returns nil if none is configured.
func (t TLSConfig) TLSCACert() (*x509.Certificate, error) {
	pemBytes := []byte(t.Pem)
	if len(pemBytes) == 0 && t.Path != "" {
		b, err := os.ReadFile(t.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read TLS CA cert [%s]", t.Path)
		}
		pemBytes = b
	}
	if len(pemBytes) == 0 {
		return nil, nil
	}
	return comm.CertificateFromPEM(pemBytes)
}

// ConnectionOpts returns the dial options for the peer.
func (p PeerConfig) ConnectionOpts(dialTimeout time.Duration) ([]comm.Opt, error) {
	return connectionOpts(p.TLSCACerts, p.GRPCOptions, dialTimeout)
}

// ConnectionOpts returns the dial options for the orderer.
func (o OrdererConfig) ConnectionOpts(dialTimeout time.Duration) ([]comm.Opt, error) {
	return connectionOpts(o.TLSCACerts, o.GRPCOptions, dialTimeout)
}

func connectionOpts(tlsConfig TLSConfig, grpcOptions map[string]interface{}, dialTimeout time.Duration) ([]comm.Opt, error) {
	cert, err := tlsConfig.TLSCACert()
	if err != nil {
		return nil, err
	}
	opts := comm.OptsFromGRPCOptions(grpcOptions, cert)
	return append(opts, comm.WithConnectTimeout(dialTimeout)), nil
}

func (c *EndpointConfig) applyDefaults() {
	t := &c.Client.Timeouts
	t.Endorser = durationOrDefault(t.Endorser, defaultEndorserTimeout)
	t.Orderer = durationOrDefault(t.Orderer, defaultOrdererTimeout)
	t.Commit = durationOrDefault(t.Commit, defaultCommitTimeout)
	t.Query = durationOrDefault(t.Query, defaultQueryTimeout)
	t.Dial = durationOrDefault(t.Dial, defaultDialTimeout)
	t.EventReconnect = durationOrDefault(t.EventReconnect, defaultEventReconnectTimeout)

	if c.Client.Wallet.Label == "" {
		c.Client.Wallet.Label = defaultWalletLabel
	}

	s := &c.Server
	if s.ListenAddress == "" {
		s.ListenAddress = defaultListenAddress
	}
	s.ReadTimeout = durationOrDefault(s.ReadTimeout, defaultServerReadTimeout)
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = defaultServerWriteTimeout
		if minWrite := t.Endorser + t.Commit + serverWriteMargin; s.WriteTimeout < minWrite {
			s.WriteTimeout = minWrite
		}
	}
	s.ShutdownTimeout = durationOrDefault(s.ShutdownTimeout, defaultServerShutdownTimeout)
	if s.RateLimit == nil {
		limit := float64(defaultRateLimit)
		s.RateLimit = &limit
	}
	if s.RateBurst <= 0 {
		s.RateBurst = defaultRateBurst
	}

	c.Metrics.Provider = strings.ToLower(c.Metrics.Provider)
	if c.Metrics.Provider == "" {
		c.Metrics.Provider = defaultMetricsProvider
	}
}

func (c *EndpointConfig) validate() error {
	var err error
	if c.Channel.ID == "" {
		err = multierr.Append(err, errors.New("channel.id is required"))
	}
	if c.Channel.Chaincode == "" {
		err = multierr.Append(err, errors.New("channel.chaincode is required"))
	}
	for i, p := range c.Peers {
		if p.URL == "" {
			err = multierr.Append(err, errors.Errorf("peers[%d]: url is required", i))
		}
	}
	for i, o := range c.Orderers {
		if o.URL == "" {
			err = multierr.Append(err, errors.Errorf("orderers[%d]: url is required", i))
		}
	}
	if t := c.Client.Timeouts; c.Server.WriteTimeout <= t.Endorser+t.Commit {
		err = multierr.Append(err, errors.Errorf("server.writeTimeout [%s] must exceed client.timeouts.endorser + client.timeouts.commit [%s]",
			c.Server.WriteTimeout, t.Endorser+t.Commit))
	}
	if c.Server.RateLimit != nil && *c.Server.RateLimit < 0 {
		err = multierr.Append(err, errors.New("server.rateLimit must not be negative"))
	}
	switch c.Metrics.Provider {
	case "prometheus", "disabled":
	default:
		err = multierr.Append(err, errors.Errorf("unsupported metrics provider [%s]", c.Metrics.Provider))
	}
	return err
}

func durationOrDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
