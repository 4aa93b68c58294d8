/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoke

import (
	reqContext "context"
	"math/rand"

	"github.com/hyperledger/fabric-protos-go/common"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/errors/status"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/fab"
)

// OrderingSubmitter broadcasts transaction envelopes to the ordering service.
type OrderingSubmitter struct {
	orderers []fab.Orderer
}

// NewOrderingSubmitter returns a submitter for the given orderers.
func NewOrderingSubmitter(orderers ...fab.Orderer) *OrderingSubmitter {
	return &OrderingSubmitter{orderers: orderers}
}

// Submit sends the envelope to one orderer, chosen at random. If an orderer
// cannot be reached the next one is tried. An orderer that answers with a
// non-success status rejects the envelope and no other orderer is tried.
//
// A nil error means the envelope was accepted. A rejection is a status error
// in group OrdererServerStatus; anything else is a transport failure.
func (s *OrderingSubmitter) Submit(ctx reqContext.Context, envelope *fab.SignedEnvelope) error {
	if envelope == nil {
		return errors.New("envelope is required")
	}
	if len(s.orderers) == 0 {
		return status.New(status.OrdererClientStatus, status.NoPeersFound.ToInt32(), "no orderers configured", nil)
	}

	var errs []error
	for _, i := range rand.Perm(len(s.orderers)) {
		o := s.orderers[i]

		resp, err := o.SendBroadcast(ctx, envelope)
		if err == nil && resp != nil && *resp != common.Status_SUCCESS {
			err = status.New(status.OrdererServerStatus, int32(*resp), "orderer rejected the envelope", []interface{}{o.URL()})
		}
		if err == nil {
			logger.Debugf("envelope accepted by orderer %s", o.URL())
			return nil
		}

		if st, ok := status.FromError(err); ok && st.Group == status.OrdererServerStatus {
			logger.Debugf("envelope rejected by orderer %s: %s", o.URL(), err)
			return err
		}

		logger.Warnf("unable to broadcast to orderer %s: %s", o.URL(), err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 1 {
		return errs[0]
	}
	return status.New(status.OrdererClientStatus, status.ConnectionFailed.ToInt32(),
		"no orderer could be reached: "+multierr.Combine(errs...).Error(), toDetails(errs))
}
