package checkpoint

import (
	"testing"

	"github.com/synnergy-chain/bridgeworker/internal/primitives"
)

func TestFileStoreFirstReadIsNil(t *testing.T) {
	s := NewFileStore(t.TempDir(), "L1")
	cp, err := s.Read()
	if err != nil {
		t.Fatalf("read err %v", err)
	}
	if cp != nil {
		t.Fatalf("expected nil checkpoint on first run, got %+v", cp)
	}
}

func TestFileStoreRoundTripBlockComplete(t *testing.T) {
	s := NewFileStore(t.TempDir(), "L1")
	want := primitives.FromBlockNum(42)
	if err := s.Save(want); err != nil {
		t.Fatalf("save err %v", err)
	}
	got, err := s.Read()
	if err != nil {
		t.Fatalf("read err %v", err)
	}
	if got == nil || got.BlockNum != 42 || !got.IsBlockComplete() {
		t.Fatalf("unexpected checkpoint %+v", got)
	}
}

func TestFileStoreRoundTripEventPartial(t *testing.T) {
	s := NewFileStore(t.TempDir(), "L1")
	ei := uint64(3)
	want := primitives.FromEvent(primitives.EventID{BlockNum: 10, EventIdx: &ei})
	if err := s.Save(want); err != nil {
		t.Fatalf("save err %v", err)
	}
	got, err := s.Read()
	if err != nil {
		t.Fatalf("read err %v", err)
	}
	if got == nil || got.IsBlockComplete() || got.EventID.BlockNum != 10 || *got.EventID.EventIdx != 3 {
		t.Fatalf("unexpected checkpoint %+v", got)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	s := NewFileStore(t.TempDir(), "L1")
	if err := s.Save(primitives.FromBlockNum(1)); err != nil {
		t.Fatalf("save err %v", err)
	}
	if err := s.Save(primitives.FromBlockNum(2)); err != nil {
		t.Fatalf("save err %v", err)
	}
	got, err := s.Read()
	if err != nil {
		t.Fatalf("read err %v", err)
	}
	if got.BlockNum != 2 {
		t.Fatalf("expected overwrite to block 2, got %d", got.BlockNum)
	}
}

// TestFileStoreSurvivesFreshProcess simulates a process restart by constructing a new FileStore
// against the same path, as a fresh process would.
func TestFileStoreSurvivesFreshProcess(t *testing.T) {
	dir := t.TempDir()
	if err := NewFileStore(dir, "L1").Save(primitives.FromBlockNum(7)); err != nil {
		t.Fatalf("save err %v", err)
	}
	got, err := NewFileStore(dir, "L1").Read()
	if err != nil {
		t.Fatalf("read err %v", err)
	}
	if got == nil || got.BlockNum != 7 {
		t.Fatalf("unexpected checkpoint %+v", got)
	}
}
