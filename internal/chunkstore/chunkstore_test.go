package chunkstore

import "testing"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open chunkstore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCommit_WithoutStage_ReturnsErrNoStagedData(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Commit("chunk_1", 0); err != ErrNoStagedData {
		t.Errorf("expected ErrNoStagedData, got %v", err)
	}
}

func TestStageThenCommit_PersistsContent(t *testing.T) {
	s := newTestStore(t)
	s.Stage("chunk_1", "hello")

	content, err := s.Commit("chunk_1", 100.0)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if content != "hello" {
		t.Errorf("expected hello, got %q", content)
	}

	got, err := s.Read("chunk_1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}

func TestCommit_ClearsStagingEntry(t *testing.T) {
	s := newTestStore(t)
	s.Stage("chunk_1", "hello")
	if _, err := s.Commit("chunk_1", 0); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := s.Commit("chunk_1", 0); err != ErrNoStagedData {
		t.Errorf("expected second commit without restage to fail, got %v", err)
	}
}

func TestSecondStage_OverwritesFirst(t *testing.T) {
	s := newTestStore(t)
	s.Stage("chunk_1", "first")
	s.Stage("chunk_1", "second")

	content, err := s.Commit("chunk_1", 0)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if content != "second" {
		t.Errorf("expected last staged content to win, got %q", content)
	}
}

func TestRead_MissingHandle_ReturnsErrNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Read("nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStagingSize_ReflectsOutstandingStages(t *testing.T) {
	s := newTestStore(t)
	if s.StagingSize() != 0 {
		t.Fatalf("expected 0, got %d", s.StagingSize())
	}
	s.Stage("chunk_1", "x")
	s.Stage("chunk_2", "y")
	if s.StagingSize() != 2 {
		t.Errorf("expected 2, got %d", s.StagingSize())
	}
	s.Commit("chunk_1", 0)
	if s.StagingSize() != 1 {
		t.Errorf("expected 1 after commit, got %d", s.StagingSize())
	}
}
