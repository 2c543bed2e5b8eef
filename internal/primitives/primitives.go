// Package primitives defines the chain-agnostic data model shared by every
// component of the relay engine: the deposit event, its totally ordered id,
// and the durable checkpoint that tracks how far a listener has progressed.
package primitives

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// ResourceID identifies the asset/lane negotiated between two chains.
type ResourceID [32]byte

// EventID totally orders deposit events within one source chain.
//
// EVM-style sources populate BlockNum/TxIndex/LogIndex; substrate-style
// sources populate BlockNum/EventIdx and leave TxIndex/LogIndex unset. A nil
// pointer field means "not applicable to this family". Less and String read
// a nil TxIndex or LogIndex as 0, so ids are only comparable within one
// family.
type EventID struct {
	BlockNum uint64
	TxIndex  *uint64 // EVM-style
	LogIndex *uint64 // EVM-style
	EventIdx *uint64 // substrate-style
}

// Less reports whether id orders strictly before other. Both ids are
// expected to come from the same listener (and therefore the same chain
// family); comparing across families is not meaningful.
func (id EventID) Less(other EventID) bool {
	if id.BlockNum != other.BlockNum {
		return id.BlockNum < other.BlockNum
	}
	a, b := derefTriplet(id), derefTriplet(other)
	return a[0] < b[0] || (a[0] == b[0] && a[1] < b[1])
}

func derefTriplet(id EventID) [2]uint64 {
	if id.EventIdx != nil {
		return [2]uint64{*id.EventIdx, 0}
	}
	var tx, log uint64
	if id.TxIndex != nil {
		tx = *id.TxIndex
	}
	if id.LogIndex != nil {
		log = *id.LogIndex
	}
	return [2]uint64{tx, log}
}

// String renders the id for log lines.
func (id EventID) String() string {
	if id.EventIdx != nil {
		return fmt.Sprintf("(block=%d, event=%d)", id.BlockNum, *id.EventIdx)
	}
	var tx, log uint64
	if id.TxIndex != nil {
		tx = *id.TxIndex
	}
	if id.LogIndex != nil {
		log = *id.LogIndex
	}
	return fmt.Sprintf("(block=%d, tx=%d, log=%d)", id.BlockNum, tx, log)
}

// rlpEVMEventID is the RLP-encodable shape of an EVM-style event id, used
// only to give log lines a compact, stable hex key; it carries no on-chain
// meaning.
type rlpEVMEventID struct {
	BlockNum uint64
	TxIndex  uint64
	LogIndex uint64
}

// EVMKeyHex renders an EVM-style event id as RLP-encoded hex, for a compact
// de-duplication key in log aggregation. Returns "" for a substrate-style
// (EventIdx-populated) id, which has no RLP encoding here.
func (id EventID) EVMKeyHex() string {
	if id.EventIdx != nil {
		return ""
	}
	var tx, log uint64
	if id.TxIndex != nil {
		tx = *id.TxIndex
	}
	if id.LogIndex != nil {
		log = *id.LogIndex
	}
	raw, err := rlp.EncodeToBytes(rlpEVMEventID{BlockNum: id.BlockNum, TxIndex: tx, LogIndex: log})
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", raw)
}

// Deposit is a value-carrying record emitted by a source chain.
type Deposit struct {
	EventID        EventID
	DestinationKey string // optional; empty means "not set"
	Amount         *uint256.Int
	Nonce          uint64
	ResourceID     ResourceID
	Payload        []byte
}

// HasDestinationKey reports whether the event carries a destination_key.
func (d Deposit) HasDestinationKey() bool {
	return d.DestinationKey != ""
}
