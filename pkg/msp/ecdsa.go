/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package msp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/asn1"
	"math/big"

	"github.com/pkg/errors"
)

// curveHalfOrders holds N/2 for the supported curves. Fabric rejects
// signatures whose S is above it.
var curveHalfOrders = map[elliptic.Curve]*big.Int{
	elliptic.P224(): new(big.Int).Rsh(elliptic.P224().Params().N, 1),
	elliptic.P256(): new(big.Int).Rsh(elliptic.P256().Params().N, 1),
	elliptic.P384(): new(big.Int).Rsh(elliptic.P384().Params().N, 1),
	elliptic.P521(): new(big.Int).Rsh(elliptic.P521().Params().N, 1),
}

type ecdsaSignature struct {
	R, S *big.Int
}

func signECDSA(k *ecdsa.PrivateKey, msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)

	r, s, err := ecdsa.Sign(rand.Reader, k, digest[:])
	if err != nil {
		return nil, errors.Wrap(err, "ECDSA sign failed")
	}

	s, err = toLowS(&k.PublicKey, s)
	if err != nil {
		return nil, err
	}

	return asn1.Marshal(ecdsaSignature{R: r, S: s})
}

// VerifyECDSA checks a DER encoded signature over the SHA-256 digest of msg.
// High-S signatures are rejected.
func VerifyECDSA(k *ecdsa.PublicKey, signature, msg []byte) (bool, error) {
	sig := ecdsaSignature{}
	if _, err := asn1.Unmarshal(signature, &sig); err != nil {
		return false, errors.Wrap(err, "invalid signature encoding")
	}

	lowS, err := isLowS(k, sig.S)
	if err != nil {
		return false, err
	}
	if !lowS {
		return false, errors.New("signature S is not low")
	}

	digest := sha256.Sum256(msg)
	return ecdsa.Verify(k, digest[:], sig.R, sig.S), nil
}

func isLowS(k *ecdsa.PublicKey, s *big.Int) (bool, error) {
	halfOrder, ok := curveHalfOrders[k.Curve]
	if !ok {
		return false, errors.Errorf("curve not recognized [%s]", k.Curve.Params().Name)
	}
	return s.Cmp(halfOrder) != 1, nil
}

func toLowS(k *ecdsa.PublicKey, s *big.Int) (*big.Int, error) {
	lowS, err := isLowS(k, s)
	if err != nil {
		return nil, err
	}
	if !lowS {
		s.Sub(k.Params().N, s)
	}
	return s, nil
}
