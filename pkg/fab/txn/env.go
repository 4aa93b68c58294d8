/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
)

// NonceSize is the number of random bytes in a transaction nonce.
const NonceSize = 24

// TransactionHeader contains metadata for a transaction created by the SDK.
type TransactionHeader struct {
	id        fab.TransactionID
	creator   []byte
	nonce     []byte
	channelID string
}

// TransactionID returns the transaction's computed identifier.
func (th *TransactionHeader) TransactionID() fab.TransactionID {
	return th.id
}

// Creator returns the transaction creator's identity bytes.
func (th *TransactionHeader) Creator() []byte {
	return th.creator
}

// Nonce returns the transaction's generated nonce.
func (th *TransactionHeader) Nonce() []byte {
	return th.nonce
}

// ChannelID returns the transaction's target channel identifier.
func (th *TransactionHeader) ChannelID() string {
	return th.channelID
}

// NewHeader computes a fresh TransactionHeader for signer on channelID. The
// ID is hex(sha256(nonce || creator)) so every call yields a new ID.
func NewHeader(signer msp.Identity, channelID string) (*TransactionHeader, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "nonce creation failed")
	}

	creator, err := signer.Serialize()
	if err != nil {
		return nil, errors.WithMessage(err, "identity from context failed")
	}

	return &TransactionHeader{
		id:        ComputeTxnID(nonce, creator),
		creator:   creator,
		nonce:     nonce,
		channelID: channelID,
	}, nil
}

// ComputeTxnID returns the Fabric transaction ID for nonce and creator.
func ComputeTxnID(nonce, creator []byte) fab.TransactionID {
	h := sha256.New()
	h.Write(nonce)
	h.Write(creator)
	return fab.TransactionID(hex.EncodeToString(h.Sum(nil)))
}

// ChannelHeaderOpts holds the parameters to create a ChannelHeader.
type ChannelHeaderOpts struct {
	TxnHeader *TransactionHeader
	Timestamp time.Time
	Extension []byte
}

// CreateChannelHeader builds a common.ChannelHeader of the given type.
func CreateChannelHeader(headerType common.HeaderType, opts ChannelHeaderOpts) (*common.ChannelHeader, error) {
	if opts.TxnHeader == nil {
		return nil, errors.New("transaction header is required")
	}

	if opts.Timestamp.IsZero() {
		opts.Timestamp = time.Now()
	}
	ts, err := ptypes.TimestampProto(opts.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create timestamp in channel header")
	}

	return &common.ChannelHeader{
		Type:      int32(headerType),
		ChannelId: opts.TxnHeader.channelID,
		TxId:      string(opts.TxnHeader.id),
		Timestamp: ts,
		Extension: opts.Extension,
	}, nil
}

// CreateHeader builds a common.Header from a channel header and the
// signature header of th.
func CreateHeader(th *TransactionHeader, channelHeader *common.ChannelHeader) (*common.Header, error) {
	chBytes, err := proto.Marshal(channelHeader)
	if err != nil {
		return nil, errors.Wrap(err, "marshal of channel header failed")
	}
	shBytes, err := proto.Marshal(&common.SignatureHeader{Creator: th.creator, Nonce: th.nonce})
	if err != nil {
		return nil, errors.Wrap(err, "marshal of signature header failed")
	}
	return &common.Header{ChannelHeader: chBytes, SignatureHeader: shBytes}, nil
}

// SignPayload marshals payload and signs it.
func SignPayload(signer msp.SigningIdentity, payload *common.Payload) (*fab.SignedEnvelope, error) {
	payloadBytes, err := proto.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling of payload failed")
	}

	signature, err := signer.Sign(payloadBytes)
	if err != nil {
		return nil, errors.WithMessage(err, "signing of payload failed")
	}
	return &fab.SignedEnvelope{Payload: payloadBytes, Signature: signature}, nil
}
