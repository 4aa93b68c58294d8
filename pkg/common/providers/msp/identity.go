/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

// Identity is a member of an MSP.
type Identity interface {
	// Identifier returns the identifier of the identity
	Identifier() *IdentityIdentifier

	// Serialize returns the proto encoded msp.SerializedIdentity
	Serialize() ([]byte, error)

	// EnrollmentCertificate returns the PEM encoded certificate
	EnrollmentCertificate() []byte
}

// SigningIdentity is an Identity that can sign.
type SigningIdentity interface {
	Identity

	// Sign signs msg and returns the DER encoded signature
	Sign(msg []byte) ([]byte, error)

	// PublicVersion returns the public parts of the identity
	PublicVersion() Identity
}

// IdentityIdentifier is a holder for the identifier of a specific
// identity, naturally namespaced, by its provider identifier.
type IdentityIdentifier struct {
	// The identifier of the associated membership service provider
	MSPID string

	// The identifier for an identity within a provider
	ID string
}
