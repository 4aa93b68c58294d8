/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status attaches a group and a code to the errors produced while
// talking to peers, orderers and the event service. Callers use the group to
// tell transport failures apart from rejections reported by a Fabric node.
package status

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	grpcstatus "google.golang.org/grpc/status"
)

// Status is the error value returned by the Fabric clients in this module.
type Status struct {
	// Group identifies the component that produced the status
	Group Group
	// Code is interpreted according to Group
	Code int32
	// Message is a human readable description
	Message string
	// Details carries extra context such as the endorser URL
	Details []interface{}
}

// Group identifies the source of a Status.
type Group int32

const (
	// UnknownStatus is the group of errors that carry no status
	UnknownStatus Group = iota

	// GRPCTransportStatus is a gRPC status returned by a connection
	GRPCTransportStatus

	// EndorserServerStatus is a status returned in a proposal response
	EndorserServerStatus
	// EventServerStatus carries the validation code of a committed transaction
	EventServerStatus
	// OrdererServerStatus is a status returned by the ordering service
	OrdererServerStatus

	// EndorserClientStatus is inferred while sending proposals or checking endorsements
	EndorserClientStatus
	// OrdererClientStatus is inferred while broadcasting to the ordering service
	OrdererClientStatus
	// ClientStatus is a generic client side status
	ClientStatus

	// ChaincodeStatus is the status returned by chaincode
	ChaincodeStatus

	// TestStatus is used by tests to create retryable codes
	TestStatus
)

var groupName = map[Group]string{
	UnknownStatus:        "Unknown",
	GRPCTransportStatus:  "gRPC Transport Status",
	EndorserServerStatus: "Endorser Server Status",
	EventServerStatus:    "Event Server Status",
	OrdererServerStatus:  "Orderer Server Status",
	EndorserClientStatus: "Endorser Client Status",
	OrdererClientStatus:  "Orderer Client Status",
	ClientStatus:         "Client Status",
	ChaincodeStatus:      "Chaincode Status",
	TestStatus:           "Test Status",
}

func (g Group) String() string {
	if s, ok := groupName[g]; ok {
		return s
	}
	return groupName[UnknownStatus]
}

// FromError returns the Status behind err. Errors wrapped with pkg/errors are
// unwrapped. An error combined by multierr becomes a MultipleErrors status
// with the individual errors in Details.
func FromError(err error) (s *Status, ok bool) {
	if err == nil {
		return &Status{Code: OK.ToInt32()}, true
	}
	if s, ok := errors.Cause(err).(*Status); ok {
		return s, true
	}

	errs := multierr.Errors(err)
	if len(errs) > 1 {
		details := make([]interface{}, len(errs))
		for i, e := range errs {
			details[i] = e
		}
		return New(ClientStatus, MultipleErrors.ToInt32(), err.Error(), details), true
	}

	return nil, false
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s Code: (%d) %s. Description: %s", s.Group, s.Code, s.codeString(), s.Message)
}

func (s *Status) codeString() string {
	switch s.Group {
	case GRPCTransportStatus:
		return ToGRPCStatusCode(s.Code).String()
	case EndorserServerStatus, OrdererServerStatus:
		return ToFabricCommonStatusCode(s.Code).String()
	case EventServerStatus:
		return ToTransactionValidationCode(s.Code).String()
	case EndorserClientStatus, OrdererClientStatus, ClientStatus:
		return Code(s.Code).String()
	default:
		return Unknown.String()
	}
}

// New returns a Status with the given fields.
func New(group Group, code int32, msg string, details []interface{}) *Status {
	return &Status{Group: group, Code: code, Message: msg, Details: details}
}

// NewFromProposalResponse returns the status carried by a proposal response.
func NewFromProposalResponse(res *pb.ProposalResponse, endorser string) *Status {
	if res == nil || res.Response == nil {
		return nil
	}
	return New(EndorserServerStatus, res.Response.Status, res.Response.Message,
		[]interface{}{endorser, res.Response.Payload})
}

// NewFromGRPCStatus converts a gRPC status.
func NewFromGRPCStatus(s *grpcstatus.Status) *Status {
	if s == nil {
		return nil
	}
	details := make([]interface{}, len(s.Proto().Details))
	for i, detail := range s.Proto().Details {
		details[i] = detail
	}
	return New(GRPCTransportStatus, s.Proto().Code, s.Message(), details)
}

// NewFromTxValidationCode returns the status of a transaction that was
// committed with the given validation code.
func NewFromTxValidationCode(txID string, code pb.TxValidationCode) *Status {
	return New(EventServerStatus, int32(code),
		fmt.Sprintf("transaction %s committed with status %s", txID, code), []interface{}{txID})
}

// NewFromExtractedChaincodeError returns the status of a chaincode error.
func NewFromExtractedChaincodeError(code int, message string) *Status {
	return New(ChaincodeStatus, int32(code), message, nil)
}
