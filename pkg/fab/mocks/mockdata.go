/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
)

var logger = logging.NewLogger("claimsgw.fab.mocks")

// NewFilteredBlock returns a new mock filtered block initialized with the given channel
// and filtered transactions
func NewFilteredBlock(channelID string, number uint64, filteredTx ...*pb.FilteredTransaction) *pb.FilteredBlock {
	return &pb.FilteredBlock{
		ChannelId:            channelID,
		Number:               number,
		FilteredTransactions: filteredTx,
	}
}

// NewFilteredTx returns a new mock filtered transaction
func NewFilteredTx(txID string, txValidationCode pb.TxValidationCode) *pb.FilteredTransaction {
	return &pb.FilteredTransaction{
		Txid:             txID,
		TxValidationCode: txValidationCode,
		Type:             common.HeaderType_ENDORSER_TRANSACTION,
	}
}

// NewProposalResponsePayload returns a marshaled ProposalResponsePayload
// whose chaincode action carries the given response.
func NewProposalResponsePayload(status int32, message string, payload []byte) []byte {
	ccAction := &pb.ChaincodeAction{
		Response: &pb.Response{Status: status, Message: message, Payload: payload},
	}
	ccActionBytes, err := proto.Marshal(ccAction)
	if err != nil {
		panic(err)
	}
	prpBytes, err := proto.Marshal(&pb.ProposalResponsePayload{Extension: ccActionBytes})
	if err != nil {
		panic(err)
	}
	return prpBytes
}

// ExtractChannelHeader returns the channel header of a marshaled envelope payload.
func ExtractChannelHeader(payload []byte) (*common.ChannelHeader, error) {
	pl := &common.Payload{}
	if err := proto.Unmarshal(payload, pl); err != nil {
		return nil, errors.Wrap(err, "unmarshal payload failed")
	}
	if pl.Header == nil {
		return nil, errors.New("payload header is missing")
	}
	chdr := &common.ChannelHeader{}
	if err := proto.Unmarshal(pl.Header.ChannelHeader, chdr); err != nil {
		return nil, errors.Wrap(err, "unmarshal channel header failed")
	}
	return chdr, nil
}
