/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package claims

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/claims/mocks"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/client/channel"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/client/channel/invoke"
)

const chaincodeID = "fabcar"

var testClaim = Claim{
	ServicePerformed:  "Dental",
	ServiceProviderID: "P1",
	EmployerNo:        "E1",
	EmployeeNo:        "EE1",
	IsClaimable:       true,
	AmountClaimed:     "100",
	AmountProcessed:   "100",
}

func args(request channel.Request) []string {
	s := make([]string, len(request.Args))
	for i, a := range request.Args {
		s[i] = string(a)
	}
	return s
}

func TestGetClaims(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ch := mocks.NewMockChannel(mockCtrl)
	ch.EXPECT().Query(gomock.Any(), gomock.Any()).DoAndReturn(
		func(request channel.Request, opts ...channel.RequestOption) (channel.Response, error) {
			assert.Equal(t, chaincodeID, request.ChaincodeID)
			assert.Equal(t, "queryAllClaims", request.Fcn)
			assert.Equal(t, []string{""}, args(request))
			return channel.Response{Payload: []byte(`[{"Key":"CLAIM0"}]`)}, nil
		})

	payload, err := New(ch, chaincodeID).GetClaims(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Key":"CLAIM0"}]`, string(payload))
}

func TestGetClaim(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ch := mocks.NewMockChannel(mockCtrl)
	ch.EXPECT().Query(gomock.Any(), gomock.Any()).DoAndReturn(
		func(request channel.Request, opts ...channel.RequestOption) (channel.Response, error) {
			assert.Equal(t, "queryClaim", request.Fcn)
			assert.Equal(t, []string{"CLAIM1"}, args(request))
			return channel.Response{Payload: []byte(`{"servicePerformed":"Dental"}`)}, nil
		})

	payload, err := New(ch, chaincodeID).GetClaim(context.Background(), "CLAIM1")
	require.NoError(t, err)
	assert.Equal(t, `{"servicePerformed":"Dental"}`, string(payload))

	_, err = New(ch, chaincodeID).GetClaim(context.Background(), "")
	assert.Error(t, err)
}

func TestQueryNoPayload(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ch := mocks.NewMockChannel(mockCtrl)
	ch.EXPECT().Query(gomock.Any(), gomock.Any()).Return(channel.Response{}, nil)

	_, err := New(ch, chaincodeID).GetClaim(context.Background(), "CLAIM9")
	assert.Equal(t, ErrNoPayload, err)
	assert.Equal(t, "No payloads were returned from query", err.Error())
}

func TestQueryError(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	queryErr := errors.New("CLAIM9 does not exist")
	ch := mocks.NewMockChannel(mockCtrl)
	ch.EXPECT().Query(gomock.Any(), gomock.Any()).Return(channel.Response{}, queryErr)

	_, err := New(ch, chaincodeID).GetClaims(context.Background())
	assert.Equal(t, queryErr, err)
}

func TestAddClaim(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	var submitted []string
	ch := mocks.NewMockChannel(mockCtrl)
	ch.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(request channel.Request, opts ...channel.RequestOption) (channel.Response, error) {
			assert.Equal(t, "createClaim", request.Fcn)
			submitted = args(request)
			return channel.Response{TransactionID: "tx1"}, nil
		})

	key, err := New(ch, chaincodeID).AddClaim(context.Background(), testClaim)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, KeyPrefix))
	assert.Len(t, key, len(KeyPrefix)+36)
	assert.Equal(t, []string{key, "Dental", "P1", "E1", "EE1", "true", "100", "100"}, submitted)
}

func TestAddClaimUniqueKeys(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ch := mocks.NewMockChannel(mockCtrl)
	ch.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(channel.Response{}, nil).Times(2)

	s := New(ch, chaincodeID)
	k1, err := s.AddClaim(context.Background(), testClaim)
	require.NoError(t, err)
	k2, err := s.AddClaim(context.Background(), testClaim)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestAddClaimNotCommitted(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	txErr := &channel.TransactionError{Result: invoke.Result{Kind: invoke.ProposalRejected, TxID: "tx1", Reason: "endorser peer0 returned status 500: bad"}}
	ch := mocks.NewMockChannel(mockCtrl)
	ch.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(channel.Response{TransactionID: "tx1"}, txErr)

	s := New(ch, chaincodeID)
	s.newKey = func() string { return "CLAIM-fixed" }

	key, err := s.AddClaim(context.Background(), testClaim)
	require.Error(t, err)
	assert.Equal(t, "CLAIM-fixed", key)

	result, ok := channel.ResultOf(err)
	require.True(t, ok)
	assert.Equal(t, invoke.ProposalRejected, result.Kind)
}

func TestClaimJSON(t *testing.T) {
	b, err := json.Marshal(testClaim)
	require.NoError(t, err)
	assert.JSONEq(t, `{"servicePerformed":"Dental","serviceProviderId":"P1","employerNo":"E1","employeeNo":"EE1",
		"isClaimable":"true","amountClaimed":"100","amountProcessed":"100"}`, string(b))
}

func TestDecodeRecords(t *testing.T) {
	records, err := DecodeRecords([]byte(`[{"Key":"CLAIM0","Record":{"servicePerformed":"Dental","isClaimable":"false","amountClaimed":"50"}}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "CLAIM0", records[0].Key)
	assert.Equal(t, "Dental", records[0].Record.ServicePerformed)
	assert.False(t, records[0].Record.IsClaimable)
	assert.Equal(t, "50", records[0].Record.AmountClaimed)

	_, err = DecodeRecords([]byte("not json"))
	assert.Error(t, err)
}
