// Package router implements the Relay Router (C4): it maps one deposit
// event to the relayer that should consume it.
package router

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/synnergy-chain/bridgeworker/internal/primitives"
	"github.com/synnergy-chain/bridgeworker/internal/relayer"
)

// Route selects a relayer for a deposit event. Single routes ignore the
// event's destination_key; multi routes look it up in a map and skip the
// event (no error, no retry) when the key is absent — a legitimate "not for
// me" signal when one source serves several destinations (§4.4).
type Route struct {
	single  relayer.Relayer
	multi   map[string]relayer.Relayer
	isMulti bool
	cache   *lru.Cache[string, relayer.Relayer]
}

// NewSingleRoute builds a route that always resolves to relayer r,
// regardless of the event's destination_key.
func NewSingleRoute(r relayer.Relayer) *Route {
	return &Route{single: r}
}

// NewMultiRoute builds a route keyed by destination_key. A small LRU cache
// fronts the map lookup so a listener in fast-catch-up doesn't pay a map
// probe under its own read path on every event; correctness does not depend
// on the cache (a miss simply falls through to the map).
func NewMultiRoute(relayers map[string]relayer.Relayer) *Route {
	cache, _ := lru.New[string, relayer.Relayer](64)
	return &Route{multi: relayers, isMulti: true, cache: cache}
}

// Resolve returns the relayer that should consume d, or nil if none applies
// (the event must be skipped, per §4.4).
func (rt *Route) Resolve(d primitives.Deposit) relayer.Relayer {
	if !rt.isMulti {
		return rt.single
	}
	if rt.cache != nil {
		if r, ok := rt.cache.Get(d.DestinationKey); ok {
			return r
		}
	}
	r, ok := rt.multi[d.DestinationKey]
	if !ok {
		return nil
	}
	if rt.cache != nil {
		rt.cache.Add(d.DestinationKey, r)
	}
	return r
}
