package router

import (
	"context"
	"testing"

	"github.com/holiman/uint256"

	"github.com/synnergy-chain/bridgeworker/internal/primitives"
	"github.com/synnergy-chain/bridgeworker/internal/relayer"
)

type stubRelayer struct{ id string }

func (s *stubRelayer) DestinationID() string { return s.id }
func (s *stubRelayer) Relay(ctx context.Context, amount *uint256.Int, nonce uint64, resourceID primitives.ResourceID, payload []byte, chainID uint32) error {
	return nil
}

func TestSingleRouteIgnoresDestinationKey(t *testing.T) {
	r := &stubRelayer{id: "only"}
	route := NewSingleRoute(r)
	if got := route.Resolve(primitives.Deposit{DestinationKey: "anything"}); got != r {
		t.Fatalf("expected single route to ignore destination_key")
	}
	if got := route.Resolve(primitives.Deposit{}); got != r {
		t.Fatalf("expected single route with empty destination_key to still resolve")
	}
}

func TestMultiRouteResolvesByKey(t *testing.T) {
	a, b := &stubRelayer{id: "a"}, &stubRelayer{id: "b"}
	route := NewMultiRoute(map[string]relayer.Relayer{"a": a, "b": b})
	if got := route.Resolve(primitives.Deposit{DestinationKey: "a"}); got != a {
		t.Fatalf("expected a")
	}
	if got := route.Resolve(primitives.Deposit{DestinationKey: "b"}); got != b {
		t.Fatalf("expected b")
	}
}

func TestMultiRouteSkipsUnknownKey(t *testing.T) {
	route := NewMultiRoute(map[string]relayer.Relayer{"a": &stubRelayer{id: "a"}})
	if got := route.Resolve(primitives.Deposit{DestinationKey: "missing"}); got != nil {
		t.Fatalf("expected nil relayer for unknown destination_key, got %v", got)
	}
}

func TestMultiRouteCacheConsistentWithMap(t *testing.T) {
	a := &stubRelayer{id: "a"}
	route := NewMultiRoute(map[string]relayer.Relayer{"a": a})
	for i := 0; i < 3; i++ {
		if got := route.Resolve(primitives.Deposit{DestinationKey: "a"}); got != a {
			t.Fatalf("expected cached resolution to stay consistent")
		}
	}
}
