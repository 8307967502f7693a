// Package metastore is the leader-authoritative metadata store: users,
// files, chunk mappings, and permission requests, plus the replication
// payloads a leader fans out to followers.
//
// Each replicable write is represented as a typed Op variant rather than a
// generic query string, so a follower running a slightly different schema
// version still applies it correctly. INSERT-OR-REPLACE / no-op-on-conflict
// semantics keep replication idempotent.
//
// Replication is fire-and-forget: the leader sends each Op to each peer
// once, drops any error, and never retries. There is no background
// reconciliation, so a follower that misses an Op stays without it.
package metastore

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// User is an authenticated account.
type User struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	PasswordDigest string `json:"password_digest"`
}

// File is a logical file record. Size is frozen at 0; nothing tracks byte
// counts across chunks.
type File struct {
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	OwnerUserID string `json:"owner_user_id"`
}

// ChunkMapping records which chunkservers hold a chunk. PrimaryLocation is
// advisory —
// the authoritative primary is whatever the leader's lease manager holds.
type ChunkMapping struct {
	ChunkHandle     string `json:"chunk_handle"`
	FileID          string `json:"file_id"`
	SequenceIndex   int    `json:"sequence_index"`
	PrimaryLocation int    `json:"primary_location"`
	ReplicaSet      []int  `json:"replica_set"`
}

// PermissionRequest is a pending or resolved access request on a file.
type PermissionRequest struct {
	RequestID  string `json:"request_id"`
	FileID     string `json:"file_id"`
	UserID     string `json:"user_id"`
	AccessType string `json:"access_type"`
	Status     string `json:"status"`
}

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Store owns one master's local sqlite metadata database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open metastore: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping metastore: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_digest TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			file_id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			owner_user_id TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunk_mapping (
			chunk_handle TEXT PRIMARY KEY,
			file_id TEXT NOT NULL,
			sequence_index INTEGER NOT NULL,
			primary_location INTEGER NOT NULL,
			replica_set TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS permission_requests (
			request_id TEXT PRIMARY KEY,
			file_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			access_type TEXT NOT NULL,
			status TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("metastore schema: %w", err)
		}
	}
	return nil
}

// ── Users ────────────────────────────────────────────────────────────────

// CreateUser inserts a new user with a freshly generated user_id, returning
// both the record and the Op to replicate to followers.
func (s *Store) CreateUser(username, passwordDigest string) (User, Op, error) {
	u := User{UserID: uuid.NewString(), Username: username, PasswordDigest: passwordDigest}
	_, err := s.db.Exec(`INSERT INTO users (user_id, username, password_digest) VALUES (?, ?, ?)`,
		u.UserID, u.Username, u.PasswordDigest)
	if err != nil {
		return User{}, Op{}, err
	}
	return u, Op{Kind: OpCreateUser, User: &u}, nil
}

// FindUserByUsername looks up a user by username. Returns sql.ErrNoRows if absent.
func (s *Store) FindUserByUsername(username string) (User, error) {
	var u User
	err := s.db.QueryRow(`SELECT user_id, username, password_digest FROM users WHERE username = ?`, username).
		Scan(&u.UserID, &u.Username, &u.PasswordDigest)
	return u, err
}

// ── Files & chunk mapping ────────────────────────────────────────────────

// CreateFile inserts a new file record with a uuid-derived file_id, avoiding
// the one-per-second collision risk of deriving an id from a timestamp.
func (s *Store) CreateFile(filename, ownerUserID string) (File, Op, error) {
	f := File{FileID: "file_" + uuid.NewString(), Filename: filename, Size: 0, OwnerUserID: ownerUserID}
	_, err := s.db.Exec(`INSERT INTO files (file_id, filename, size, owner_user_id) VALUES (?, ?, ?, ?)`,
		f.FileID, f.Filename, f.Size, f.OwnerUserID)
	if err != nil {
		return File{}, Op{}, err
	}
	return f, Op{Kind: OpCreateFile, File: &f}, nil
}

// GetFile fetches a file by id. Returns sql.ErrNoRows if absent.
func (s *Store) GetFile(fileID string) (File, error) {
	var f File
	err := s.db.QueryRow(`SELECT file_id, filename, size, owner_user_id FROM files WHERE file_id = ?`, fileID).
		Scan(&f.FileID, &f.Filename, &f.Size, &f.OwnerUserID)
	return f, err
}

// CreateChunkMapping inserts the chunk mapping for a newly created file.
func (s *Store) CreateChunkMapping(handle, fileID string, seq, primary int, replicas []int) (ChunkMapping, Op, error) {
	cm := ChunkMapping{ChunkHandle: handle, FileID: fileID, SequenceIndex: seq, PrimaryLocation: primary, ReplicaSet: replicas}
	_, err := s.db.Exec(`INSERT INTO chunk_mapping (chunk_handle, file_id, sequence_index, primary_location, replica_set)
		VALUES (?, ?, ?, ?, ?)`,
		cm.ChunkHandle, cm.FileID, cm.SequenceIndex, cm.PrimaryLocation, joinInts(cm.ReplicaSet))
	if err != nil {
		return ChunkMapping{}, Op{}, err
	}
	return cm, Op{Kind: OpCreateChunkMapping, Chunk: &cm}, nil
}

// ChunkMappingsForFile returns every chunk mapping for a file, in sequence order.
func (s *Store) ChunkMappingsForFile(fileID string) ([]ChunkMapping, error) {
	rows, err := s.db.Query(`SELECT chunk_handle, file_id, sequence_index, primary_location, replica_set
		FROM chunk_mapping WHERE file_id = ? ORDER BY sequence_index`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChunkMapping
	for rows.Next() {
		var cm ChunkMapping
		var replicasStr string
		if err := rows.Scan(&cm.ChunkHandle, &cm.FileID, &cm.SequenceIndex, &cm.PrimaryLocation, &replicasStr); err != nil {
			return nil, err
		}
		cm.ReplicaSet = splitInts(replicasStr)
		out = append(out, cm)
	}
	return out, rows.Err()
}

// ── Permissions / ACL ────────────────────────────────────────────────────

// CreatePermissionRequest inserts a PENDING request for access to a file.
func (s *Store) CreatePermissionRequest(fileID, userID, accessType string) (PermissionRequest, Op, error) {
	pr := PermissionRequest{RequestID: uuid.NewString(), FileID: fileID, UserID: userID, AccessType: accessType, Status: StatusPending}
	_, err := s.db.Exec(`INSERT INTO permission_requests (request_id, file_id, user_id, access_type, status)
		VALUES (?, ?, ?, ?, ?)`, pr.RequestID, pr.FileID, pr.UserID, pr.AccessType, pr.Status)
	if err != nil {
		return PermissionRequest{}, Op{}, err
	}
	return pr, Op{Kind: OpCreatePermissionRequest, Permission: &pr}, nil
}

// HasApprovedPermission reports whether an APPROVED request exists for (fileID, userID).
func (s *Store) HasApprovedPermission(fileID, userID string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM permission_requests WHERE file_id = ? AND user_id = ? AND status = ?`,
		fileID, userID, StatusApproved).Scan(&count)
	return count > 0, err
}

// PendingRequestView is the joined view /access/pending/{owner_user_id} returns.
type PendingRequestView struct {
	RequestID     string `json:"req_id"`
	FileID        string `json:"file_id"`
	Filename      string `json:"filename"`
	RequestorID   string `json:"requestor_id"`
	RequestorName string `json:"requestor_name"`
	AccessType    string `json:"type"`
}

// PendingRequestsForOwner lists pending requests against files owned by ownerUserID.
func (s *Store) PendingRequestsForOwner(ownerUserID string) ([]PendingRequestView, error) {
	rows, err := s.db.Query(`
		SELECT p.request_id, p.file_id, f.filename, p.user_id, COALESCE(u.username, ''), p.access_type
		FROM permission_requests p
		JOIN files f ON f.file_id = p.file_id
		LEFT JOIN users u ON u.user_id = p.user_id
		WHERE f.owner_user_id = ? AND p.status = ?`, ownerUserID, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingRequestView
	for rows.Next() {
		var v PendingRequestView
		if err := rows.Scan(&v.RequestID, &v.FileID, &v.Filename, &v.RequestorID, &v.RequestorName, &v.AccessType); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SetPermissionStatus sets a request's terminal status (APPROVED/REJECTED).
func (s *Store) SetPermissionStatus(requestID, status string) (Op, error) {
	_, err := s.db.Exec(`UPDATE permission_requests SET status = ? WHERE request_id = ?`, status, requestID)
	if err != nil {
		return Op{}, err
	}
	return Op{Kind: OpSetPermissionStatus, PermissionStatus: &SetStatusPayload{RequestID: requestID, Status: status}}, nil
}

// ── File listing ─────────────────────────────────────────────────────────

// FileView backs /file/list/{user_id}, for both owned and shared files.
type FileView struct {
	FileID   string `json:"id"`
	Filename string `json:"name"`
	Owner    string `json:"owner"`
	Access   string `json:"access"`
}

// ListFiles returns every file owned by or shared (APPROVED) with userID.
func (s *Store) ListFiles(userID string) ([]FileView, error) {
	var out []FileView

	owned, err := s.db.Query(`SELECT file_id, filename FROM files WHERE owner_user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	for owned.Next() {
		var id, name string
		if err := owned.Scan(&id, &name); err != nil {
			owned.Close()
			return nil, err
		}
		out = append(out, FileView{FileID: id, Filename: name, Owner: "me", Access: "OWNER"})
	}
	owned.Close()
	if err := owned.Err(); err != nil {
		return nil, err
	}

	shared, err := s.db.Query(`
		SELECT f.file_id, f.filename, f.owner_user_id
		FROM files f
		JOIN permission_requests p ON f.file_id = p.file_id
		WHERE p.user_id = ? AND p.status = ?`, userID, StatusApproved)
	if err != nil {
		return nil, err
	}
	defer shared.Close()
	for shared.Next() {
		var id, name, owner string
		if err := shared.Scan(&id, &name, &owner); err != nil {
			return nil, err
		}
		out = append(out, FileView{FileID: id, Filename: name, Owner: owner, Access: "SHARED"})
	}
	return out, shared.Err()
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if v, err := strconv.Atoi(p); err == nil {
			out = append(out, v)
		}
	}
	return out
}
