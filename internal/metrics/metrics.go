// Package metrics wires the worker's prometheus registry: one gauge per
// listener (<listener_id>_synced_block) and one gauge per relayer
// destination (<relayer_address>_eth_balance), grounded in the teacher's
// HealthLogger (core/system_health_logging.go), which registers one gauge
// per subsystem against a dedicated prometheus.Registry and serves it over
// promhttp.
package metrics

import (
	"math/big"
	"net/http"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry tracks per-listener and per-relayer gauges, created lazily as
// new ids are observed (the topology is fixed at startup, but gauges are
// registered on first use to keep construction order simple).
type Registry struct {
	reg *prometheus.Registry

	mu       sync.Mutex
	synced   map[string]prometheus.Gauge
	balances map[string]prometheus.Gauge
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		reg:      prometheus.NewRegistry(),
		synced:   make(map[string]prometheus.Gauge),
		balances: make(map[string]prometheus.Gauge),
	}
}

// SetSyncedBlock publishes <listenerID>_synced_block = block, registering
// the gauge on first use.
func (r *Registry) SetSyncedBlock(listenerID string, block uint64) {
	r.mu.Lock()
	g, ok := r.synced[listenerID]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: listenerID + "_synced_block",
			Help: "Last block fully committed to the checkpoint for this listener",
		})
		r.reg.MustRegister(g)
		r.synced[listenerID] = g
	}
	r.mu.Unlock()
	g.Set(float64(block))
}

// SetRelayerBalance publishes <relayerAddress>_eth_balance = balance,
// registering the gauge on first use. balance is truncated to float64;
// acceptable for an operator-facing gauge, not used for any accounting path.
func (r *Registry) SetRelayerBalance(relayerAddress string, balance *uint256.Int) {
	r.mu.Lock()
	g, ok := r.balances[relayerAddress]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: relayerAddress + "_eth_balance",
			Help: "Native-token balance of this relayer's signer address",
		})
		r.reg.MustRegister(g)
		r.balances[relayerAddress] = g
	}
	r.mu.Unlock()
	g.Set(uint256ToFloat64(balance))
}

// Handler serves the registry in the standard prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func uint256ToFloat64(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f := new(big.Float).SetInt(v.ToBig())
	out, _ := f.Float64()
	return out
}
