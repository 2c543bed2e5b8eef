package relayer

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/synnergy-chain/bridgeworker/internal/primitives"
)

type fakeEthereumRPC struct {
	calls   int
	results []func() (bool, error)
	bal     *uint256.Int
}

func (f *fakeEthereumRPC) SubmitVoteProposal(ctx context.Context, chainID uint32, nonce uint64, resourceID primitives.ResourceID, payload []byte, amount *uint256.Int) (bool, error) {
	r := f.results[f.calls]
	f.calls++
	return r()
}

func (f *fakeEthereumRPC) Balance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	return f.bal, nil
}

func TestEthereumRelaySuccessInvokesBalanceCallback(t *testing.T) {
	rpc := &fakeEthereumRPC{results: []func() (bool, error){
		func() (bool, error) { return false, nil },
	}, bal: uint256.NewInt(7)}
	var gotAddr common.Address
	var gotBal *uint256.Int
	r := NewEthereumRelayer(rpc, common.Address{0x01}, "dst-1", nil, func(a common.Address, b *uint256.Int) {
		gotAddr, gotBal = a, b
	})
	if err := r.Relay(context.Background(), uint256.NewInt(1), 1, primitives.ResourceID{}, nil, 1); err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if gotAddr != (common.Address{0x01}) || gotBal.Uint64() != 7 {
		t.Fatalf("expected balance callback invoked, got addr=%v bal=%v", gotAddr, gotBal)
	}
}

func TestEthereumRelayAlreadyRelayed(t *testing.T) {
	rpc := &fakeEthereumRPC{results: []func() (bool, error){
		func() (bool, error) { return true, nil },
	}}
	r := NewEthereumRelayer(rpc, common.Address{}, "dst-1", nil, nil)
	err := r.Relay(context.Background(), uint256.NewInt(1), 1, primitives.ResourceID{}, nil, 1)
	if KindOf(err) != AlreadyRelayed {
		t.Fatalf("expected AlreadyRelayed, got %v", err)
	}
}

func TestEthereumRelayClassifiesTransport(t *testing.T) {
	rpc := &fakeEthereumRPC{results: []func() (bool, error){
		func() (bool, error) { return false, NewError(Transport, errors.New("conn reset")) },
	}}
	r := NewEthereumRelayer(rpc, common.Address{}, "dst-1", nil, nil)
	err := r.Relay(context.Background(), uint256.NewInt(1), 1, primitives.ResourceID{}, nil, 1)
	if KindOf(err) != Transport {
		t.Fatalf("expected Transport, got %v", err)
	}
}

func TestEthereumRelayUnclassifiedErrorDefaultsToOther(t *testing.T) {
	rpc := &fakeEthereumRPC{results: []func() (bool, error){
		func() (bool, error) { return false, errors.New("weird") },
	}}
	r := NewEthereumRelayer(rpc, common.Address{}, "dst-1", nil, nil)
	err := r.Relay(context.Background(), uint256.NewInt(1), 1, primitives.ResourceID{}, nil, 1)
	if KindOf(err) != Other {
		t.Fatalf("expected Other for unclassified error, got %v", err)
	}
}

type fakeSubstrateRPC struct {
	already bool
	err     error
}

func (f *fakeSubstrateRPC) SubmitAndWatch(ctx context.Context, chainID uint32, nonce uint64, resourceID primitives.ResourceID, payload []byte, amount *uint256.Int) (bool, error) {
	return f.already, f.err
}

func TestSubstrateRelaySuccessAndDestinationID(t *testing.T) {
	rpc := &fakeSubstrateRPC{}
	r := NewSubstrateRelayer(rpc, "dst-2", nil)
	if err := r.Relay(context.Background(), uint256.NewInt(1), 1, primitives.ResourceID{}, nil, 2); err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if r.DestinationID() != "dst-2" {
		t.Fatalf("unexpected destination id %s", r.DestinationID())
	}
}
