/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
)

var logger = logging.NewLogger("claimsgw.fab.comm")

const (
	// GRPC max message size (same as Fabric)
	maxCallRecvMsgSize = 100 * 1024 * 1024
	maxCallSendMsgSize = 100 * 1024 * 1024
)

var schemeRegexp = regexp.MustCompile(`^grpcs?://`)

// IsTLSEnabled is a generic function that expects a URL and verifies if it has
// a prefix HTTPS or GRPCS to return true for TLS Enabled URLs or false otherwise
func IsTLSEnabled(url string) bool {
	return strings.HasPrefix(strings.ToLower(url), "grpcs://")
}

// ToAddress is a utility function to trim the GRPC protocol prefix as it is not needed by GO
// if the GRPC protocol is not found, the url is returned unchanged
func ToAddress(url string) string {
	return schemeRegexp.ReplaceAllString(url, "")
}

// AttemptSecured is a utility function which verifies URL and returns if secured connections needs to established
// for protocol 'grpcs' in URL returns true
// for protocol 'grpc' in URL returns false
// for no protocol mentioned, returns !allowInSecure
func AttemptSecured(url string, allowInSecure bool) bool {
	ok, err := regexp.MatchString(".*(?i)s://", url)
	if ok && err == nil {
		return true
	} else if strings.Contains(url, "://") {
		return false
	}
	return !allowInSecure
}

// DialOptions returns the dial options for the given URL.
func DialOptions(url string, opts ...Opt) ([]grpc.DialOption, error) {
	params := defaultParams()
	for _, opt := range opts {
		opt(params)
	}
	return newDialOpts(url, params)
}

// Dial creates a client connection to url. The connection is established in
// the background; callers observe failures on the first RPC.
func Dial(ctx context.Context, url string, opts ...Opt) (*grpc.ClientConn, error) {
	if url == "" {
		return nil, errors.New("server URL not specified")
	}

	params := defaultParams()
	for _, opt := range opts {
		opt(params)
	}

	dialOpts, err := newDialOpts(url, params)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, params.connectTimeout)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, ToAddress(url), dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "could not connect to %s", url)
	}
	return conn, nil
}

// CertificateFromPEM decodes the first certificate in pemBytes.
func CertificateFromPEM(pemBytes []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM data found in certificate")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse certificate failed")
	}
	return cert, nil
}

func newDialOpts(url string, params *params) ([]grpc.DialOption, error) {
	var dialOpts []grpc.DialOption

	if params.keepAliveParams.Time > 0 || params.keepAliveParams.Timeout > 0 {
		dialOpts = append(dialOpts, grpc.WithKeepaliveParams(params.keepAliveParams))
	}

	dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(
		grpc.WaitForReady(!params.failFast),
		grpc.MaxCallRecvMsgSize(maxCallRecvMsgSize),
		grpc.MaxCallSendMsgSize(maxCallSendMsgSize)))

	if AttemptSecured(url, params.insecure) {
		tlsConfig, err := tlsConfig(params.certificate, params.hostOverride)
		if err != nil {
			return nil, err
		}
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
		logger.Debugf("Creating a secure connection to [%s] with TLS HostOverride [%s]", url, params.hostOverride)
	} else {
		logger.Debugf("Creating an insecure connection [%s]", url)
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	return dialOpts, nil
}

func tlsConfig(cert *x509.Certificate, serverName string) (*tls.Config, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if cert != nil {
		pool.AddCert(cert)
	}
	return &tls.Config{RootCAs: pool, ServerName: serverName, MinVersion: tls.VersionTLS12}, nil
}
