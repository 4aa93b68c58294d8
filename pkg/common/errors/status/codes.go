/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"strconv"

	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	grpcCodes "google.golang.org/grpc/codes"
)

// Code is a client side status code.
type Code uint32

const (
	// OK is returned on success.
	OK Code = 0

	// Unknown is an uncategorized code
	Unknown Code = 1

	// ConnectionFailed is returned when a connection to a Fabric node fails
	ConnectionFailed Code = 2

	// Timeout means an operation did not complete in time
	Timeout Code = 5

	// NoPeersFound means no targets were supplied
	NoPeersFound Code = 6

	// MultipleErrors means several errors occurred
	MultipleErrors Code = 7

	// MissingEndorsement means no usable endorsement was received
	MissingEndorsement Code = 9

	// Canceled means the caller gave up on the operation
	Canceled Code = 10

	// GenericTransient is used by tests for retryable errors
	GenericTransient Code = 12
)

var codeName = map[Code]string{
	OK:                 "OK",
	Unknown:            "UNKNOWN",
	ConnectionFailed:   "CONNECTION_FAILED",
	Timeout:            "TIMEOUT",
	NoPeersFound:       "NO_PEERS_FOUND",
	MultipleErrors:     "MULTIPLE_ERRORS",
	MissingEndorsement: "MISSING_ENDORSEMENT",
	Canceled:           "CANCELED",
	GenericTransient:   "GENERIC_TRANSIENT",
}

// ToInt32 cast to int32
func (c Code) ToInt32() int32 {
	return int32(c)
}

func (c Code) String() string {
	if s, ok := codeName[c]; ok {
		return s
	}
	return strconv.Itoa(int(c))
}

// ToGRPCStatusCode cast to gRPC status code
func ToGRPCStatusCode(c int32) grpcCodes.Code {
	return grpcCodes.Code(c)
}

// ToFabricCommonStatusCode cast to common.Status
func ToFabricCommonStatusCode(c int32) common.Status {
	return common.Status(c)
}

// ToTransactionValidationCode cast to a transaction validation code
func ToTransactionValidationCode(c int32) pb.TxValidationCode {
	return pb.TxValidationCode(c)
}
