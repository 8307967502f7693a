package lease

import "testing"

func TestGrant_EmptyReplicaSet(t *testing.T) {
	m := NewManager()
	primary, ok := m.Grant("chunk_1", nil)
	if ok {
		t.Fatalf("expected ok=false for empty replica set, got primary=%d", primary)
	}
}

func TestGrant_FirstReplicaIsPrimary(t *testing.T) {
	m := NewManager()
	primary, ok := m.Grant("chunk_1", []int{5001, 5002, 5003})
	if !ok {
		t.Fatal("expected ok=true")
	}
	if primary != 5001 {
		t.Errorf("expected primary=5001, got %d", primary)
	}
}

func TestGrant_ReturnsExistingValidLease(t *testing.T) {
	m := NewManager()
	first, _ := m.Grant("chunk_1", []int{5001, 5002})
	second, ok := m.Grant("chunk_1", []int{5001, 5002})
	if !ok || second != first {
		t.Errorf("expected stable primary %d, got %d (ok=%v)", first, second, ok)
	}
}

func TestGrant_NewPrimaryWhenOldNotInReplicaSet(t *testing.T) {
	m := NewManager()
	m.Grant("chunk_1", []int{5001, 5002})
	primary, ok := m.Grant("chunk_1", []int{5003, 5004})
	if !ok {
		t.Fatal("expected ok=true")
	}
	if primary != 5003 {
		t.Errorf("expected new primary=5003 since old primary left replica set, got %d", primary)
	}
}
