package launcher

import (
	"path/filepath"
	"testing"
)

func TestStatus_UnknownPortIsStopped(t *testing.T) {
	m, err := NewManager(nil, t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if got := m.Status(9999); got != StatusStopped {
		t.Errorf("expected STOPPED for untracked port, got %v", got)
	}
}

func TestLaunch_UnknownSpec_ReturnsError(t *testing.T) {
	m, err := NewManager(nil, t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Launch(6001); err == nil {
		t.Error("expected error launching a port with no registered spec")
	}
}

func TestBinaryFor_SelectsCorrectName(t *testing.T) {
	m, err := NewManager([]NodeSpec{
		{Port: 6001, Kind: KindMaster},
		{Port: 5001, Kind: KindChunkserver},
	}, "/bins", t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if got := m.binaryFor(KindMaster); got != filepath.Join("/bins", "master") {
		t.Errorf("expected /bins/master, got %q", got)
	}
	if got := m.binaryFor(KindChunkserver); got != filepath.Join("/bins", "chunkserver") {
		t.Errorf("expected /bins/chunkserver, got %q", got)
	}
}

func TestStatusAll_ReportsEveryConfiguredNode(t *testing.T) {
	m, err := NewManager([]NodeSpec{
		{Port: 6001, Kind: KindMaster},
		{Port: 5001, Kind: KindChunkserver},
	}, t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	all := m.StatusAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[6001] != StatusStopped || all[5001] != StatusStopped {
		t.Errorf("expected all stopped before launch, got %v", all)
	}
}
