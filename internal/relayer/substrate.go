package relayer

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-chain/bridgeworker/internal/primitives"
)

// SubstrateRPC is the seam to the collaborator this spec treats as external:
// a websocket client able to submit an extrinsic and wait for finalized
// inclusion (wait_for_finalized_success, per §4.3).
type SubstrateRPC interface {
	// SubmitAndWatch submits the pay-out extrinsic and waits for finalized
	// success. alreadyRelayed signals the pallet already credited this
	// (source_chain, nonce); a non-nil err is always a *Error.
	SubmitAndWatch(ctx context.Context, chainID uint32, nonce uint64, resourceID primitives.ResourceID, payload []byte, amount *uint256.Int) (alreadyRelayed bool, err error)
}

// SubstrateRelayer implements Relayer for a substrate-family destination
// chain. A single internal mutex serializes Relay calls so the destination
// nonce sequence stays contiguous (§5); the original implementation holds
// an equivalent lock to enforce correct extrinsic nonce sequencing.
type SubstrateRelayer struct {
	mu            sync.Mutex
	client        SubstrateRPC
	destinationID string
	log           *logrus.Logger
}

// NewSubstrateRelayer builds a Relayer for a substrate-family destination.
func NewSubstrateRelayer(client SubstrateRPC, destinationID string, log *logrus.Logger) *SubstrateRelayer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SubstrateRelayer{client: client, destinationID: destinationID, log: log}
}

// DestinationID returns the relayer's unique destination key.
func (r *SubstrateRelayer) DestinationID() string { return r.destinationID }

// Relay submits the pay-out extrinsic and classifies the outcome.
func (r *SubstrateRelayer) Relay(ctx context.Context, amount *uint256.Int, nonce uint64, resourceID primitives.ResourceID, payload []byte, chainID uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	already, err := r.client.SubmitAndWatch(ctx, chainID, nonce, resourceID, payload, amount)
	if already {
		r.log.WithField("nonce", nonce).Info("destination reports pay-out already relayed")
		return NewError(AlreadyRelayed, errors.New("nonce already relayed"))
	}
	if err != nil {
		r.log.WithError(err).WithField("nonce", nonce).Warn("relay: submit and watch failed")
		var re *Error
		if !errors.As(err, &re) {
			return NewError(Other, err)
		}
		return re
	}
	r.log.WithFields(logrus.Fields{"nonce": nonce, "resource_id": resourceID}).Info("relay finalized by destination chain")
	return nil
}
