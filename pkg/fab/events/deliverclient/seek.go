/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package deliverclient

import (
	"math"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	ab "github.com/hyperledger/fabric-protos-go/orderer"
	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/msp"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fab/txn"
)

var (
	newestPos = &ab.SeekPosition{Type: &ab.SeekPosition_Newest{Newest: &ab.SeekNewest{}}}
	maxPos    = &ab.SeekPosition{Type: &ab.SeekPosition_Specified{Specified: &ab.SeekSpecified{Number: math.MaxUint64}}}
)

// seekInfo returns the SeekInfo to send after (re)connecting. Before any
// block has been received only new blocks are requested; afterwards delivery
// resumes right after the last block received so no commit is missed.
func seekInfo(lastBlockNum uint64) *ab.SeekInfo {
	start := newestPos
	if lastBlockNum < math.MaxUint64 {
		start = &ab.SeekPosition{Type: &ab.SeekPosition_Specified{Specified: &ab.SeekSpecified{Number: lastBlockNum + 1}}}
	}
	return &ab.SeekInfo{
		Start:    start,
		Stop:     maxPos,
		Behavior: ab.SeekInfo_BLOCK_UNTIL_READY,
	}
}

// seekEnvelope wraps seekInfo in an envelope signed by signer.
func seekEnvelope(signer msp.SigningIdentity, channelID string, seekInfo *ab.SeekInfo) (*common.Envelope, error) {
	seekInfoBytes, err := proto.Marshal(seekInfo)
	if err != nil {
		return nil, errors.Wrap(err, "marshal of seek info failed")
	}

	txh, err := txn.NewHeader(signer, channelID)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create transaction header")
	}

	channelHeader, err := txn.CreateChannelHeader(common.HeaderType_DELIVER_SEEK_INFO, txn.ChannelHeaderOpts{TxnHeader: txh})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create channel header")
	}

	hdr, err := txn.CreateHeader(txh, channelHeader)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create header")
	}

	signed, err := txn.SignPayload(signer, &common.Payload{Header: hdr, Data: seekInfoBytes})
	if err != nil {
		return nil, err
	}
	return &common.Envelope{Payload: signed.Payload, Signature: signed.Signature}, nil
}
