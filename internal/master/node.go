// Package master wires together a master node's election, liveness, lease,
// clock-sync, and metadata-store components, and implements the
// file-create / file-lookup operations that sit on top of them.
package master

import (
	"database/sql"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"distfs/internal/apierr"
	"distfs/internal/audit"
	"distfs/internal/clocksync"
	"distfs/internal/election"
	"distfs/internal/lease"
	"distfs/internal/liveness"
	"distfs/internal/metastore"
	"distfs/internal/security"
	"distfs/internal/transport"
	"distfs/internal/wsmonitor"
)

// maxReplicas caps replica placement at three copies per chunk.
const maxReplicas = 3

// createFileRetries/createFileWait implement a startup warm-up wait: up to
// ~4s in 0.5s slices for the first heartbeats to arrive.
const (
	createFileRetries = 8
	createFileWait    = 500 * time.Millisecond
)

// Node is one master process's full runtime state.
type Node struct {
	Port  int
	Peers []int

	Store     *metastore.Store
	Liveness  *liveness.Registry
	Leases    *lease.Manager
	Election  *election.Manager
	ClockSync *clocksync.Daemon
	Client    *transport.Client
	Audit     *audit.Logger
	Hub       *wsmonitor.Hub // optional: nil disables dashboard push

	requestCount int64
}

// NewNode builds a master node. dbPath is the sqlite metadata store path.
func NewNode(port int, peers []int, dbPath string, auditLog *audit.Logger, hub *wsmonitor.Hub) (*Node, error) {
	store, err := metastore.Open(dbPath)
	if err != nil {
		return nil, err
	}

	n := &Node{
		Port:     port,
		Peers:    peers,
		Store:    store,
		Liveness: liveness.NewRegistry(),
		Leases:   lease.NewManager(),
		Client:   transport.New(),
		Audit:    auditLog,
		Hub:      hub,
	}

	n.Election = election.NewManager(port, peers, election.NewPeerTransport(n.Client))
	n.ClockSync = clocksync.NewDaemon(n.Client, n.Liveness.Live, n.Election.IsLeader)

	n.Election.OnBecomeLeader = func() {
		n.ClockSync.Start()
		n.logEvent("election_victory", fmt.Sprintf("node %d is now leader", port), true)
	}
	n.Election.OnLeaderChange = func(leaderID int) {
		n.logEvent("leader_change", fmt.Sprintf("leader is now %d", leaderID), true)
	}

	return n, nil
}

// Start launches the leader-monitor background loop.
func (n *Node) Start() { n.Election.Start() }

// IncRequestCount bumps the per-node request counter (system/status metric).
func (n *Node) IncRequestCount() { atomic.AddInt64(&n.requestCount, 1) }

func (n *Node) label() string { return fmt.Sprintf("master:%d", n.Port) }

func (n *Node) logEvent(action, details string, success bool) {
	if n.Audit != nil {
		n.Audit.Log(action, n.label(), details, success)
	}
	if n.Hub != nil {
		level := "info"
		if !success {
			level = "warning"
		}
		n.Hub.Broadcast(action, map[string]interface{}{"node": n.Port, "details": details}, level)
	}
}

// IsLeader reports whether this node currently considers itself leader.
func (n *Node) IsLeader() bool { return n.Election.IsLeader() }

// grantLease wraps Leases.Grant with an audit/dashboard event, so every
// lease issuance (fresh or refreshed) is recorded.
func (n *Node) grantLease(chunkHandle string, replicas []int) (primary int, ok bool) {
	primary, ok = n.Leases.Grant(chunkHandle, replicas)
	if ok {
		n.logEvent("lease_grant", fmt.Sprintf("chunk=%s primary=%d", chunkHandle, primary), true)
	}
	return primary, ok
}

// HandleHeartbeat records a chunkserver heartbeat.
func (n *Node) HandleHeartbeat(port int) {
	n.Liveness.Touch(port)
}

// replicateAsync fans op out to every peer master, best-effort.
func (n *Node) replicateAsync(op metastore.Op) {
	if len(n.Peers) == 0 {
		return
	}
	go transport.Broadcast(n.Peers, func(peer int) error {
		var reply map[string]interface{}
		return n.Client.PostJSONWithDeadline(peer, "/system/replicate", 500*time.Millisecond,
			ReplicateBody{Op: op}, &reply)
	})
}

// ReplicateBody is the POST /system/replicate payload.
type ReplicateBody struct {
	Op metastore.Op `json:"op"`
}

// ApplyReplicated applies an Op received from the leader (follower path).
func (n *Node) ApplyReplicated(op metastore.Op) error {
	return n.Store.Apply(op)
}

// Register creates a new user (leader-only; enforced by the HTTP layer).
func (n *Node) Register(username, password string) (metastore.User, error) {
	digest, err := security.HashPassword(password)
	if err != nil {
		return metastore.User{}, apierr.New(apierr.StorageError, err.Error())
	}
	user, op, err := n.Store.CreateUser(username, digest)
	if err != nil {
		return metastore.User{}, apierr.New(apierr.Duplicate, "username exists")
	}
	n.replicateAsync(op)
	n.logEvent("user_register", fmt.Sprintf("username=%s", username), true)
	return user, nil
}

// Login validates credentials (available on any node, leader or follower).
func (n *Node) Login(username, password string) (metastore.User, error) {
	user, err := n.Store.FindUserByUsername(username)
	if err == sql.ErrNoRows {
		return metastore.User{}, apierr.New(apierr.InvalidCredentials, "invalid credentials")
	}
	if err != nil {
		return metastore.User{}, apierr.New(apierr.StorageError, err.Error())
	}
	if !security.CheckPassword(user.PasswordDigest, password) {
		return metastore.User{}, apierr.New(apierr.InvalidCredentials, "invalid credentials")
	}
	return user, nil
}

// CreateFileResult is the /file/create response.
type CreateFileResult struct {
	FileID      string `json:"file_id"`
	ChunkHandle string `json:"chunk_handle"`
	Replicas    []int  `json:"replicas"`
	Primary     int    `json:"primary"`
}

// CreateFile picks live chunkservers, grants a write lease, and persists
// the file + chunk mapping. Leader-only; enforced by the HTTP layer.
func (n *Node) CreateFile(filename, ownerUserID string) (CreateFileResult, error) {
	live := n.waitForLiveChunkservers()
	if len(live) == 0 {
		return CreateFileResult{}, apierr.New(apierr.NoServersAvailable, "no chunkservers available")
	}

	replicas := live
	if len(replicas) > maxReplicas {
		replicas = replicas[:maxReplicas]
	}

	file, fileOp, err := n.Store.CreateFile(filename, ownerUserID)
	if err != nil {
		return CreateFileResult{}, apierr.New(apierr.StorageError, err.Error())
	}

	chunkHandle := "chunk_" + file.FileID + "_0"
	primary, ok := n.grantLease(chunkHandle, replicas)
	if !ok {
		return CreateFileResult{}, apierr.New(apierr.NoServersAvailable, "no chunkservers available")
	}

	_, cmOp, err := n.Store.CreateChunkMapping(chunkHandle, file.FileID, 0, primary, replicas)
	if err != nil {
		return CreateFileResult{}, apierr.New(apierr.StorageError, err.Error())
	}

	n.replicateAsync(fileOp)
	n.replicateAsync(cmOp)
	n.logEvent("file_create", fmt.Sprintf("file=%s primary=%d", file.FileID, primary), true)

	return CreateFileResult{
		FileID:      file.FileID,
		ChunkHandle: chunkHandle,
		Replicas:    replicas,
		Primary:     primary,
	}, nil
}

func (n *Node) waitForLiveChunkservers() []int {
	live := n.Liveness.Live()
	retries := createFileRetries
	for len(live) == 0 && retries > 0 {
		time.Sleep(createFileWait)
		retries--
		live = n.Liveness.Live()
	}
	return live
}

// ChunkLocation is one entry of the /file/lookup response.
type ChunkLocation struct {
	Handle   string `json:"handle"`
	Primary  int    `json:"primary"`
	Replicas []int  `json:"replicas"`
}

// LookupFile resolves a file's chunk locations after an ACL check.
func (n *Node) LookupFile(fileID, userID string) ([]ChunkLocation, error) {
	file, err := n.Store.GetFile(fileID)
	if err == sql.ErrNoRows {
		return nil, apierr.New(apierr.NotFound, "file not found")
	}
	if err != nil {
		return nil, apierr.New(apierr.StorageError, err.Error())
	}

	if file.OwnerUserID != userID {
		approved, err := n.Store.HasApprovedPermission(fileID, userID)
		if err != nil {
			return nil, apierr.New(apierr.StorageError, err.Error())
		}
		if !approved {
			return nil, apierr.New(apierr.PermissionDenied, "permission denied")
		}
	}

	mappings, err := n.Store.ChunkMappingsForFile(fileID)
	if err != nil {
		return nil, apierr.New(apierr.StorageError, err.Error())
	}

	out := make([]ChunkLocation, 0, len(mappings))
	for _, cm := range mappings {
		primary := cm.PrimaryLocation
		if n.IsLeader() {
			if p, ok := n.grantLease(cm.ChunkHandle, cm.ReplicaSet); ok {
				primary = p
			}
		}
		out = append(out, ChunkLocation{Handle: cm.ChunkHandle, Primary: primary, Replicas: cm.ReplicaSet})
	}
	return out, nil
}

// ListFiles returns owned + shared files for userID.
func (n *Node) ListFiles(userID string) ([]metastore.FileView, error) {
	views, err := n.Store.ListFiles(userID)
	if err != nil {
		return nil, apierr.New(apierr.StorageError, err.Error())
	}
	return views, nil
}

// RequestAccess creates a PENDING permission request (leader-only).
func (n *Node) RequestAccess(fileID, userID, accessType string) error {
	if _, err := n.Store.GetFile(fileID); err == sql.ErrNoRows {
		return apierr.New(apierr.NotFound, "file not found")
	} else if err != nil {
		return apierr.New(apierr.StorageError, err.Error())
	}

	_, op, err := n.Store.CreatePermissionRequest(fileID, userID, accessType)
	if err != nil {
		return apierr.New(apierr.StorageError, err.Error())
	}
	n.replicateAsync(op)
	return nil
}

// PendingRequests lists pending requests against files owned by ownerID.
func (n *Node) PendingRequests(ownerID string) ([]metastore.PendingRequestView, error) {
	views, err := n.Store.PendingRequestsForOwner(ownerID)
	if err != nil {
		return nil, apierr.New(apierr.StorageError, err.Error())
	}
	return views, nil
}

// ApproveAccess sets a request's terminal status (leader-only).
func (n *Node) ApproveAccess(requestID, action string) error {
	op, err := n.Store.SetPermissionStatus(requestID, action)
	if err != nil {
		return apierr.New(apierr.StorageError, err.Error())
	}
	n.replicateAsync(op)
	return nil
}

// StatusSnapshot is the /system/status response.
type StatusSnapshot struct {
	NodeID             int    `json:"node_id"`
	LeaderID           int    `json:"leader_id"`
	IsLeader           bool   `json:"is_leader"`
	ActiveChunkservers []int  `json:"active_chunkservers"`
	AlgoStatus         struct {
		ElectionState string `json:"election_state"`
		ActiveThreads int    `json:"active_threads"`
		TotalRequests int64  `json:"total_requests"`
		ClockSyncRole string `json:"clock_sync_role"`
	} `json:"algo_status"`
}

// Status builds the current system/status snapshot.
func (n *Node) Status() StatusSnapshot {
	var s StatusSnapshot
	s.NodeID = n.Port
	s.LeaderID = n.Election.LeaderID()
	s.IsLeader = n.IsLeader()
	s.ActiveChunkservers = n.Liveness.Live()

	if n.Election.ElectionInProgress() {
		s.AlgoStatus.ElectionState = "VOTING"
	} else {
		s.AlgoStatus.ElectionState = "IDLE"
	}
	s.AlgoStatus.ActiveThreads = runtime.NumGoroutine()
	s.AlgoStatus.TotalRequests = atomic.LoadInt64(&n.requestCount)
	if s.IsLeader {
		s.AlgoStatus.ClockSyncRole = "DAEMON"
	} else {
		s.AlgoStatus.ClockSyncRole = "CLIENT"
	}
	return s
}

// Close releases node resources.
func (n *Node) Close() error {
	return n.Store.Close()
}
