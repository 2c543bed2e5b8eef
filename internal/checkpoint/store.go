// Package checkpoint implements the durable per-listener cursor (C1):
// read returns the last committed value (or none, on first run), save is
// crash-safe — a save that returns nil is guaranteed visible to a read in a
// fresh process even across a crash between write and commit.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/synnergy-chain/bridgeworker/internal/primitives"
)

// Store is the contract consumed by the Listener: an optional read and a
// durable, overwriting save. Implementations must be safe for a single
// writer; no cross-listener coordination is required because each listener
// owns a disjoint file/prefix.
type Store interface {
	Read() (*primitives.Checkpoint, error)
	Save(cp primitives.Checkpoint) error
}

// record is the on-disk encoding. EventIdx covers substrate-style ids,
// TxIdx/LogIdx cover EVM-style ids; exactly one family is populated when the
// checkpoint is event-partial, and neither is when it is block-complete.
type record struct {
	BlockNum uint64  `json:"block_num"`
	TxIdx    *uint64 `json:"tx_idx,omitempty"`
	LogIdx   *uint64 `json:"log_idx,omitempty"`
	EventIdx *uint64 `json:"event_idx,omitempty"`
}

// FileStore persists one listener's checkpoint at
// <data_dir>/<listener_id>_last_log.bin, per §6.2.
type FileStore struct {
	path string
}

// NewFileStore returns a Store rooted at dataDir for the given listener id.
func NewFileStore(dataDir, listenerID string) *FileStore {
	return &FileStore{path: filepath.Join(dataDir, listenerID+"_last_log.bin")}
}

// Read returns nil, nil on first run (no file yet written).
func (s *FileStore) Read() (*primitives.Checkpoint, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", s.path, err)
	}
	return rec.toCheckpoint(), nil
}

// Save durably overwrites the checkpoint via write-to-temp-then-rename, so a
// crash mid-write never leaves a torn file behind for the next Read.
func (s *FileStore) Save(cp primitives.Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir checkpoint dir: %w", err)
	}
	raw, err := json.Marshal(fromCheckpoint(cp))
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tmp-checkpoint-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

func fromCheckpoint(cp primitives.Checkpoint) record {
	rec := record{BlockNum: cp.BlockNum}
	if cp.EventID == nil {
		return rec
	}
	if cp.EventID.EventIdx != nil {
		rec.EventIdx = cp.EventID.EventIdx
	} else {
		rec.TxIdx = cp.EventID.TxIndex
		rec.LogIdx = cp.EventID.LogIndex
	}
	return rec
}

func (r record) toCheckpoint() *primitives.Checkpoint {
	if r.TxIdx == nil && r.LogIdx == nil && r.EventIdx == nil {
		cp := primitives.FromBlockNum(r.BlockNum)
		return &cp
	}
	id := primitives.EventID{BlockNum: r.BlockNum, TxIndex: r.TxIdx, LogIndex: r.LogIdx, EventIdx: r.EventIdx}
	cp := primitives.FromEvent(id)
	return &cp
}
