/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"crypto/x509"
	"time"

	"github.com/spf13/cast"
	"google.golang.org/grpc/keepalive"
)

// Opt sets a connection parameter.
type Opt func(p *params)

type params struct {
	hostOverride    string
	certificate     *x509.Certificate
	keepAliveParams keepalive.ClientParameters
	failFast        bool
	insecure        bool
	connectTimeout  time.Duration
}

func defaultParams() *params {
	return &params{
		failFast:       true,
		connectTimeout: 3 * time.Second,
	}
}

// WithHostOverride sets the host name that will be used to resolve the TLS certificate
func WithHostOverride(value string) Opt {
	return func(p *params) {
		p.hostOverride = value
	}
}

// WithCertificate sets the X509 certificate used for the TLS connection
func WithCertificate(value *x509.Certificate) Opt {
	return func(p *params) {
		p.certificate = value
	}
}

// WithKeepAliveParams sets the GRPC keep-alive parameters
func WithKeepAliveParams(value keepalive.ClientParameters) Opt {
	return func(p *params) {
		p.keepAliveParams = value
	}
}

// WithFailFast sets the GRPC fail-fast parameter
func WithFailFast(value bool) Opt {
	return func(p *params) {
		p.failFast = value
	}
}

// WithConnectTimeout sets the GRPC connection timeout
func WithConnectTimeout(value time.Duration) Opt {
	return func(p *params) {
		if value > 0 {
			p.connectTimeout = value
		}
	}
}

// WithInsecure indicates to fall back to an insecure connection if the
// connection URL does not specify a protocol
func WithInsecure() Opt {
	return func(p *params) {
		p.insecure = true
	}
}

// OptsFromGRPCOptions returns a set of connection options from the
// grpcOptions section of a peer or orderer config.
func OptsFromGRPCOptions(grpcOptions map[string]interface{}, cert *x509.Certificate) []Opt {
	opts := []Opt{
		WithHostOverride(getServerNameOverride(grpcOptions)),
		WithFailFast(getFailFast(grpcOptions)),
		WithKeepAliveParams(getKeepAliveOptions(grpcOptions)),
		WithCertificate(cert),
	}
	if isInsecureAllowed(grpcOptions) {
		opts = append(opts, WithInsecure())
	}
	return opts
}

func getServerNameOverride(grpcOptions map[string]interface{}) string {
	if str, ok := grpcOptions["ssl-target-name-override"].(string); ok {
		return str
	}
	return ""
}

func getFailFast(grpcOptions map[string]interface{}) bool {
	if ff, ok := grpcOptions["fail-fast"]; ok {
		return cast.ToBool(ff)
	}
	return false
}

func getKeepAliveOptions(grpcOptions map[string]interface{}) keepalive.ClientParameters {
	var kap keepalive.ClientParameters
	if kaTime, ok := grpcOptions["keep-alive-time"]; ok {
		kap.Time = cast.ToDuration(kaTime)
	}
	if kaTimeout, ok := grpcOptions["keep-alive-timeout"]; ok {
		kap.Timeout = cast.ToDuration(kaTimeout)
	}
	if kaPermit, ok := grpcOptions["keep-alive-permit"]; ok {
		kap.PermitWithoutStream = cast.ToBool(kaPermit)
	}
	return kap
}

func isInsecureAllowed(grpcOptions map[string]interface{}) bool {
	if v, ok := grpcOptions["allow-insecure"]; ok {
		return cast.ToBool(v)
	}
	return false
}
