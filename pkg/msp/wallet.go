/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package msp loads the gateway's signing identity from a filesystem wallet.
package msp

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
)

var logger = logging.NewLogger("claimsgw.msp")

const (
	dataFileExtension = ".id"
	x509Type          = "X.509"
)

// X509Identity is the wallet file layout of an X.509 identity.
type X509Identity struct {
	Version     int         `json:"version"`
	MspID       string      `json:"mspId"`
	IDType      string      `json:"type"`
	Credentials credentials `json:"credentials"`
}

type credentials struct {
	Certificate string `json:"certificate"`
	Key         string `json:"privateKey"`
}

// NewX509Identity creates an X509 identity for storage in a wallet
func NewX509Identity(mspID, certPEM, keyPEM string) *X509Identity {
	return &X509Identity{Version: 1, MspID: mspID, IDType: x509Type, Credentials: credentials{certPEM, keyPEM}}
}

// FileSystemWallet reads identities stored as <label>.id files in a directory.
type FileSystemWallet struct {
	path string
}

// NewFileSystemWallet returns a wallet rooted at path. The directory must exist.
func NewFileSystemWallet(path string) (*FileSystemWallet, error) {
	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrapf(err, "wallet directory %s is not accessible", cleanPath)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("wallet path %s is not a directory", cleanPath)
	}
	return &FileSystemWallet{path: cleanPath}, nil
}

// Put stores an identity under label.
func (w *FileSystemWallet) Put(label string, id *X509Identity) error {
	content, err := json.Marshal(id)
	if err != nil {
		return errors.Wrap(err, "marshal of identity failed")
	}
	return os.WriteFile(w.pathname(label), content, 0600)
}

// Get loads the identity stored under label.
func (w *FileSystemWallet) Get(label string) (*X509Identity, error) {
	content, err := os.ReadFile(w.pathname(label))
	if err != nil {
		return nil, errors.Wrapf(err, "identity %s not found in wallet", label)
	}

	id := &X509Identity{}
	if err := json.Unmarshal(content, id); err != nil {
		return nil, errors.Wrapf(err, "invalid identity %s", label)
	}
	if id.IDType != x509Type {
		return nil, errors.Errorf("unsupported identity type %q for %s", id.IDType, label)
	}
	return id, nil
}

// SigningIdentity loads label and builds a signing identity from it.
func (w *FileSystemWallet) SigningIdentity(label string) (*SigningIdentity, error) {
	id, err := w.Get(label)
	if err != nil {
		return nil, err
	}
	logger.Debugf("loaded identity %s of %s from wallet %s", label, id.MspID, w.path)
	return NewSigningIdentity(id.MspID, []byte(id.Credentials.Certificate), []byte(id.Credentials.Key))
}

func (w *FileSystemWallet) pathname(label string) string {
	return filepath.Clean(filepath.Join(w.path, label) + dataFileExtension)
}
