// Package relayer defines the Destination Relayer capability (C3): submit
// one pay-out to a destination chain and classify the failure (if any) the
// way the listener's retry loop expects.
package relayer

import (
	"context"
	"errors"

	"github.com/holiman/uint256"

	"github.com/synnergy-chain/bridgeworker/internal/primitives"
)

// Kind classifies a relay outcome per §4.3.
type Kind int

const (
	// Transport means the underlying transport to the destination failed.
	// The same call with the same nonce is safe to repeat.
	Transport Kind = iota
	// Watch means the transaction was submitted but confirmation could not
	// be observed; destination-side idempotence makes resubmission safe.
	Watch
	// AlreadyRelayed means the destination reports (source_chain, nonce) was
	// already credited — a success-equivalent terminal outcome.
	AlreadyRelayed
	// Other is a permanent, unexpected error. Fatal to the listener.
	Other
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Watch:
		return "watch"
	case AlreadyRelayed:
		return "already_relayed"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// Error is a classified relay failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// NewError classifies err as kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the Kind from err, defaulting to Other for an
// unclassified error (treated as permanent/fatal, the conservative choice).
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return Other
}

// Relayer submits one pay-out to a destination chain.
type Relayer interface {
	// Relay submits a pay-out for the given deposit fields. A nil error
	// means the destination accepted and (for substrate) finalized the
	// pay-out. A non-nil error is always a *Error so the caller can switch
	// on Kind.
	Relay(ctx context.Context, amount *uint256.Int, nonce uint64, resourceID primitives.ResourceID, payload []byte, chainID uint32) error

	// DestinationID returns the relayer's unique destination key (§4.3),
	// used by the router and topology validation.
	DestinationID() string
}
