package metastore

import (
	"database/sql"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open metastore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateUser_ThenFindByUsername(t *testing.T) {
	s := newTestStore(t)
	u, op, err := s.CreateUser("alice", "digest")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if op.Kind != OpCreateUser || op.User.Username != "alice" {
		t.Errorf("unexpected replication op: %+v", op)
	}

	got, err := s.FindUserByUsername("alice")
	if err != nil {
		t.Fatalf("FindUserByUsername: %v", err)
	}
	if got.UserID != u.UserID {
		t.Errorf("expected user_id %q, got %q", u.UserID, got.UserID)
	}
}

func TestCreateUser_DuplicateUsername_Fails(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.CreateUser("alice", "digest"); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}
	if _, _, err := s.CreateUser("alice", "digest2"); err == nil {
		t.Error("expected error on duplicate username")
	}
}

func TestFindUserByUsername_Missing_ReturnsErrNoRows(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.FindUserByUsername("nobody"); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestCreateFile_GeneratesDistinctFileIDs(t *testing.T) {
	s := newTestStore(t)
	f1, _, err := s.CreateFile("a.txt", "u1")
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	f2, _, err := s.CreateFile("a.txt", "u1")
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if f1.FileID == f2.FileID {
		t.Error("expected distinct file_ids for repeated create with same filename")
	}
}

func TestChunkMapping_RoundTripsReplicaSet(t *testing.T) {
	s := newTestStore(t)
	f, _, _ := s.CreateFile("a.txt", "u1")

	cm, op, err := s.CreateChunkMapping("chunk_1", f.FileID, 0, 5001, []int{5001, 5002, 5003})
	if err != nil {
		t.Fatalf("CreateChunkMapping: %v", err)
	}
	if op.Kind != OpCreateChunkMapping {
		t.Errorf("unexpected op kind %v", op.Kind)
	}
	if len(cm.ReplicaSet) != 3 {
		t.Fatalf("expected 3 replicas, got %v", cm.ReplicaSet)
	}

	mappings, err := s.ChunkMappingsForFile(f.FileID)
	if err != nil {
		t.Fatalf("ChunkMappingsForFile: %v", err)
	}
	if len(mappings) != 1 || len(mappings[0].ReplicaSet) != 3 {
		t.Fatalf("unexpected mappings: %+v", mappings)
	}
	if mappings[0].ReplicaSet[0] != 5001 || mappings[0].ReplicaSet[2] != 5003 {
		t.Errorf("replica order not preserved: %v", mappings[0].ReplicaSet)
	}
}

func TestPermissionFlow_RequestApproveAndListFiles(t *testing.T) {
	s := newTestStore(t)
	owner, _, _ := s.CreateUser("owner", "d")
	requester, _, _ := s.CreateUser("requester", "d")
	f, _, _ := s.CreateFile("secret.txt", owner.UserID)

	ok, err := s.HasApprovedPermission(f.FileID, requester.UserID)
	if err != nil {
		t.Fatalf("HasApprovedPermission: %v", err)
	}
	if ok {
		t.Error("expected no approved permission before request")
	}

	pr, _, err := s.CreatePermissionRequest(f.FileID, requester.UserID, "READ")
	if err != nil {
		t.Fatalf("CreatePermissionRequest: %v", err)
	}

	pending, err := s.PendingRequestsForOwner(owner.UserID)
	if err != nil {
		t.Fatalf("PendingRequestsForOwner: %v", err)
	}
	if len(pending) != 1 || pending[0].RequestID != pr.RequestID {
		t.Fatalf("unexpected pending requests: %+v", pending)
	}
	if pending[0].Filename != "secret.txt" || pending[0].RequestorName != "requester" {
		t.Errorf("unexpected joined fields: %+v", pending[0])
	}

	if _, err := s.SetPermissionStatus(pr.RequestID, StatusApproved); err != nil {
		t.Fatalf("SetPermissionStatus: %v", err)
	}

	ok, err = s.HasApprovedPermission(f.FileID, requester.UserID)
	if err != nil {
		t.Fatalf("HasApprovedPermission: %v", err)
	}
	if !ok {
		t.Error("expected approved permission after approval")
	}

	views, err := s.ListFiles(requester.UserID)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(views) != 1 || views[0].Access != "SHARED" {
		t.Fatalf("expected one shared file, got %+v", views)
	}

	ownerViews, err := s.ListFiles(owner.UserID)
	if err != nil {
		t.Fatalf("ListFiles(owner): %v", err)
	}
	if len(ownerViews) != 1 || ownerViews[0].Access != "OWNER" {
		t.Fatalf("expected one owned file, got %+v", ownerViews)
	}
}

func TestApply_ReplicatedCreateUser_IsIdempotent(t *testing.T) {
	s := newTestStore(t)
	op := Op{Kind: OpCreateUser, User: &User{UserID: "u1", Username: "bob", PasswordDigest: "d"}}

	if err := s.Apply(op); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if err := s.Apply(op); err != nil {
		t.Fatalf("second Apply (idempotent replay): %v", err)
	}

	got, err := s.FindUserByUsername("bob")
	if err != nil {
		t.Fatalf("FindUserByUsername: %v", err)
	}
	if got.UserID != "u1" {
		t.Errorf("expected u1, got %v", got.UserID)
	}
}
