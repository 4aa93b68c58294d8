/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"

	"github.com/golang/protobuf/proto"
	pmsp "github.com/hyperledger/fabric-protos-go/msp"
	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
)

// SigningIdentity is an X.509 certificate with its ECDSA private key.
type SigningIdentity struct {
	mspID   string
	certPEM []byte
	cert    *x509.Certificate
	key     *ecdsa.PrivateKey
}

// NewSigningIdentity parses the PEM encoded certificate and private key. The
// key must be an ECDSA key matching the certificate.
func NewSigningIdentity(mspID string, certPEM, keyPEM []byte) (*SigningIdentity, error) {
	if mspID == "" {
		return nil, errors.New("MSP ID is required")
	}

	cert, err := parseCertificate(certPEM)
	if err != nil {
		return nil, err
	}
	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}

	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok || pub.X.Cmp(key.X) != 0 || pub.Y.Cmp(key.Y) != 0 {
		return nil, errors.New("private key does not match certificate")
	}

	return &SigningIdentity{mspID: mspID, certPEM: certPEM, cert: cert, key: key}, nil
}

// Identifier returns the MSP ID and the hex encoded certificate serial number.
func (s *SigningIdentity) Identifier() *msp.IdentityIdentifier {
	return &msp.IdentityIdentifier{MSPID: s.mspID, ID: hex.EncodeToString(s.cert.SerialNumber.Bytes())}
}

// Serialize returns the msp.SerializedIdentity used as transaction creator.
func (s *SigningIdentity) Serialize() ([]byte, error) {
	b, err := proto.Marshal(&pmsp.SerializedIdentity{Mspid: s.mspID, IdBytes: s.certPEM})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of serialized identity failed")
	}
	return b, nil
}

// EnrollmentCertificate returns the PEM encoded certificate.
func (s *SigningIdentity) EnrollmentCertificate() []byte {
	return s.certPEM
}

// Sign returns a low-S ECDSA signature of the SHA-256 digest of msg.
func (s *SigningIdentity) Sign(msg []byte) ([]byte, error) {
	return signECDSA(s.key, msg)
}

// PublicVersion returns the identity without its key.
func (s *SigningIdentity) PublicVersion() msp.Identity {
	return &publicIdentity{s: s}
}

// PublicKey returns the public key of the certificate.
func (s *SigningIdentity) PublicKey() *ecdsa.PublicKey {
	return &s.key.PublicKey
}

type publicIdentity struct {
	s *SigningIdentity
}

func (p *publicIdentity) Identifier() *msp.IdentityIdentifier { return p.s.Identifier() }
func (p *publicIdentity) Serialize() ([]byte, error)          { return p.s.Serialize() }
func (p *publicIdentity) EnrollmentCertificate() []byte       { return p.s.EnrollmentCertificate() }

func parseCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, errors.New("certificate is not PEM encoded")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse certificate failed")
	}
	return cert, nil
}

func parsePrivateKey(keyPEM []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.New("private key is not PEM encoded")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, errors.Errorf("unsupported private key type %T", key)
		}
		return ecKey, nil
	}

	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key failed")
	}
	return key, nil
}
