// Package topology implements the Topology Builder (C6): parsing and
// validating the declarative bridge configuration of §6.1, and
// instantiating wired listener contexts from it.
package topology

import (
	"encoding/json"
	"fmt"
)

// ChainFamily is the closed set allowed for listener_type/relayer_type (V8).
type ChainFamily string

const (
	EthereumFamily ChainFamily = "ethereum-family"
	SubstrateFamily ChainFamily = "substrate-family"
)

// Document is the top-level bridge topology configuration (§6.1).
type Document struct {
	Listeners []ListenerSpec `json:"listeners"`
	Relayers  []RelayerSpec  `json:"relayers"`
}

// ListenerSpec is one entry of the "listeners" array.
type ListenerSpec struct {
	ListenerType ChainFamily     `json:"listener_type"`
	ID           string          `json:"id"`
	ChainID      uint32          `json:"chain_id"`
	RelayerIDs   []string        `json:"relayers"`
	Config       json.RawMessage `json:"config"`
}

// RelayerSpec is one entry of the "relayers" array.
type RelayerSpec struct {
	RelayerType   ChainFamily     `json:"relayer_type"`
	ID            string          `json:"id"`
	DestinationID string          `json:"destination_id"`
	Config        json.RawMessage `json:"config"`
}

// EthereumListenerConfig is the type-specific config subtree of an
// ethereum-family listener.
type EthereumListenerConfig struct {
	NodeRPCURL            string `json:"node_rpc_url"`
	BridgeContractAddress string `json:"bridge_contract_address"`
	FinalizationGap       uint64 `json:"finalization_gap"`
}

// SubstrateListenerConfig is the type-specific config subtree of a
// substrate-family listener.
type SubstrateListenerConfig struct {
	WSRPCEndpoint string `json:"ws_rpc_endpoint"`
	Chain         string `json:"chain"` // "local" | "paseo" | "heima"
}

// EthereumRelayerConfig is the type-specific config subtree of an
// ethereum-family relayer.
type EthereumRelayerConfig struct {
	NodeRPCURL            string `json:"node_rpc_url"`
	BridgeContractAddress string `json:"bridge_contract_address"`
}

// SubstrateRelayerConfig is the type-specific config subtree of a
// substrate-family relayer.
type SubstrateRelayerConfig struct {
	WSRPCEndpoint string `json:"ws_rpc_endpoint"`
	Chain         string `json:"chain"`
}

// ParseDocument decodes the topology JSON document from raw.
func ParseDocument(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse topology document: %w", err)
	}
	return &doc, nil
}
