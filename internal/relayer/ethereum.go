package relayer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-chain/bridgeworker/internal/primitives"
)

// EthereumRPC is the seam to the collaborator this spec treats as external:
// a transaction-submitting client for the destination bridge contract.
type EthereumRPC interface {
	// SubmitVoteProposal sends the pay-out transaction and waits for
	// inclusion. alreadyRelayed signals the destination already credited
	// this nonce; otherwise a non-nil err is always a *Error classifying
	// Transport, Watch, or Other.
	SubmitVoteProposal(ctx context.Context, chainID uint32, nonce uint64, resourceID primitives.ResourceID, payload []byte, amount *uint256.Int) (alreadyRelayed bool, err error)
	Balance(ctx context.Context, addr common.Address) (*uint256.Int, error)
}

// EthereumRelayer implements Relayer for an EVM-style destination chain. A
// single internal mutex serializes Relay calls so the destination nonce
// sequence submitted by this relayer's signer stays contiguous (§5).
type EthereumRelayer struct {
	mu            sync.Mutex
	client        EthereumRPC
	address       common.Address
	destinationID string
	log           *logrus.Logger
	onBalance     func(addr common.Address, bal *uint256.Int)
}

// NewEthereumRelayer builds a Relayer for an ethereum-family destination.
// onBalance, if non-nil, is invoked after each successful relay with the
// signer's refreshed native-token balance, wiring §6.4's
// <relayer_address>_eth_balance gauge.
func NewEthereumRelayer(client EthereumRPC, address common.Address, destinationID string, log *logrus.Logger, onBalance func(common.Address, *uint256.Int)) *EthereumRelayer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EthereumRelayer{client: client, address: address, destinationID: destinationID, log: log, onBalance: onBalance}
}

// DestinationID returns the relayer's unique destination key.
func (r *EthereumRelayer) DestinationID() string { return r.destinationID }

// Relay submits a vote-proposal transaction and classifies the outcome.
func (r *EthereumRelayer) Relay(ctx context.Context, amount *uint256.Int, nonce uint64, resourceID primitives.ResourceID, payload []byte, chainID uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	already, err := r.client.SubmitVoteProposal(ctx, chainID, nonce, resourceID, payload, amount)
	if already {
		r.log.WithField("nonce", nonce).Info("destination reports pay-out already relayed")
		return NewError(AlreadyRelayed, fmt.Errorf("nonce %d already relayed", nonce))
	}
	if err != nil {
		r.log.WithError(err).WithField("nonce", nonce).Warn("relay: submit vote proposal failed")
		var re *Error
		if !errors.As(err, &re) {
			return NewError(Other, err)
		}
		return re
	}

	r.log.WithFields(logrus.Fields{"nonce": nonce, "resource_id": resourceID}).Info("relay accepted by destination chain")
	if r.onBalance != nil {
		if bal, err := r.client.Balance(ctx, r.address); err == nil {
			r.onBalance(r.address, bal)
		} else {
			r.log.WithError(err).Debug("relay: could not refresh balance gauge")
		}
	}
	return nil
}
