/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/claims"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/client/channel"
)

const (
	successResponse   = "SUCCESS"
	queryErrorPrefix  = "There was an error from query, and it is "
	maxRequestBodyLen = 1 << 20
)

// Request fields of POST /addClaim, in the order they are checked.
const (
	fieldServicePerformed  = "servicePerformed"
	fieldServiceProviderID = "serviceProviderId"
	fieldEmployerNo        = "employerNo"
	fieldEmployeeNo        = "employeeNo"
	fieldIsClaimable       = "isClaimable"
	fieldAmount            = "amount"
)

var requiredFields = []string{
	fieldServicePerformed,
	fieldServiceProviderID,
	fieldEmployerNo,
	fieldEmployeeNo,
	fieldIsClaimable,
	fieldAmount,
}

// validationError is reported as 400.
type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}

func (s *Server) getClaims(w http.ResponseWriter, req *http.Request) {
	payload, err := s.claims.GetClaims(req.Context())
	writeQueryResponse(w, payload, err)
}

func (s *Server) getClaim(w http.ResponseWriter, req *http.Request) {
	payload, err := s.claims.GetClaim(req.Context(), mux.Vars(req)["id"])
	writeQueryResponse(w, payload, err)
}

func writeQueryResponse(w http.ResponseWriter, payload []byte, err error) {
	switch {
	case err == claims.ErrNoPayload:
		writeText(w, http.StatusOK, err.Error())
	case err != nil:
		logger.Warnf("query failed: %s", err)
		writeText(w, http.StatusInternalServerError, queryErrorPrefix+err.Error())
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(payload); err != nil {
			logger.Debugf("failed writing response: %s", err)
		}
	}
}

func (s *Server) addClaim(w http.ResponseWriter, req *http.Request) {
	claim, err := parseClaim(req)
	if err != nil {
		logger.Debugf("rejected claim: %s", err)
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := req.Context(), context.CancelFunc(func() {})
	if timeout := s.submitTimeout(); timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan submission, 1)
	go func() {
		key, err := s.claims.AddClaim(ctx, claim)
		done <- submission{key: key, err: err}
	}()

	var sub submission
	select {
	case sub = <-done:
	case <-ctx.Done():
		select {
		case sub = <-done:
		default:
			logger.Warnf("claim submission did not complete: %s", ctx.Err())
			writeText(w, http.StatusInternalServerError, "claim submission did not complete: "+ctx.Err().Error())
			return
		}
	}

	if sub.err != nil {
		if result, ok := channel.ResultOf(sub.err); ok {
			logger.Warnf("claim %s failed with %s", sub.key, result.Kind)
		}
		writeText(w, http.StatusInternalServerError, sub.err.Error())
		return
	}
	writeText(w, http.StatusOK, successResponse)
}

type submission struct {
	key string
	err error
}

func (s *Server) deleteClaim(w http.ResponseWriter, req *http.Request) {
	params := make(map[string]string)
	for k, v := range req.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	for k, v := range mux.Vars(req) {
		params[k] = v
	}
	writeJSON(w, http.StatusOK, params)
}

// parseClaim reads the claim from a JSON body, or from form and query
// values for any other content type.
func parseClaim(req *http.Request) (claims.Claim, error) {
	values, err := requestValues(req)
	if err != nil {
		return claims.Claim{}, err
	}

	for _, name := range requiredFields {
		if v, ok := values[name]; !ok || v == nil || strings.TrimSpace(cast.ToString(v)) == "" {
			return claims.Claim{}, &validationError{msg: "missing required field: " + name}
		}
	}

	isClaimable, err := cast.ToBoolE(values[fieldIsClaimable])
	if err != nil {
		return claims.Claim{}, &validationError{msg: fieldIsClaimable + " must be a boolean"}
	}

	amount, err := toAmount(values[fieldAmount])
	if err != nil {
		return claims.Claim{}, &validationError{msg: fieldAmount + " must be a number"}
	}

	return claims.Claim{
		ServicePerformed:  cast.ToString(values[fieldServicePerformed]),
		ServiceProviderID: cast.ToString(values[fieldServiceProviderID]),
		EmployerNo:        cast.ToString(values[fieldEmployerNo]),
		EmployeeNo:        cast.ToString(values[fieldEmployeeNo]),
		IsClaimable:       isClaimable,
		AmountClaimed:     amount,
		AmountProcessed:   amount,
	}, nil
}

func toAmount(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func requestValues(req *http.Request) (map[string]interface{}, error) {
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		body, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBodyLen))
		if err != nil {
			return nil, &validationError{msg: "failed reading request"}
		}
		values := make(map[string]interface{})
		if err := json.Unmarshal(body, &values); err != nil {
			return nil, &validationError{msg: fmt.Sprintf("invalid JSON body: %s", err)}
		}
		return values, nil
	}

	if err := req.ParseForm(); err != nil {
		return nil, &validationError{msg: errors.WithMessage(err, "invalid form").Error()}
	}
	values := make(map[string]interface{}, len(req.Form))
	for k, v := range req.Form {
		if len(v) > 0 {
			values[k] = v[0]
		}
	}
	return values, nil
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	if _, err := io.WriteString(w, msg); err != nil {
		logger.Debugf("failed writing response: %s", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debugf("failed encoding response: %s", err)
	}
}
