// Package chunknode wires a chunkserver's heartbeat loop, clock offset, and
// stage/commit store together, mirroring the role internal/master.Node plays
// for masters — one struct per process holding everything the HTTP layer
// needs.
package chunknode

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"distfs/internal/apierr"
	"distfs/internal/audit"
	"distfs/internal/chunkstore"
	"distfs/internal/transport"
)

// HeartbeatPeriod is the steady-state heartbeat interval.
const HeartbeatPeriod = 5 * time.Second

// HeartbeatJitterMin/Max bound the one-time startup jitter before the
// first heartbeat.
const (
	HeartbeatJitterMin = 500 * time.Millisecond
	HeartbeatJitterMax = 3000 * time.Millisecond
)

const heartbeatDeadline = 1 * time.Second

type heartbeatBody struct {
	Port          int     `json:"port"`
	SimulatedTime float64 `json:"time"`
}

// Node is one chunkserver process's runtime state.
type Node struct {
	Port    int
	Masters []int

	Store  *chunkstore.Store
	Client *transport.Client
	Audit  *audit.Logger

	clockOffsetBits uint64 // float64 bits via math.Float64bits, accessed atomically

	requestCount int64
}

// NewNode builds a chunkserver node. dbPath is the sqlite chunk-payload
// store path.
func NewNode(port int, masters []int, dbPath string, auditLog *audit.Logger) (*Node, error) {
	store, err := chunkstore.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Node{
		Port:    port,
		Masters: masters,
		Store:   store,
		Client:  transport.New(),
		Audit:   auditLog,
	}, nil
}

// Start launches the heartbeat loop with its startup jitter.
func (n *Node) Start() {
	go n.heartbeatLoop()
}

func (n *Node) heartbeatLoop() {
	jitterRange := HeartbeatJitterMax - HeartbeatJitterMin
	jitter := HeartbeatJitterMin + time.Duration(rand.Int63n(int64(jitterRange)))
	time.Sleep(jitter)

	n.sendHeartbeats()
	ticker := time.NewTicker(HeartbeatPeriod)
	defer ticker.Stop()
	for range ticker.C {
		n.sendHeartbeats()
	}
}

func (n *Node) sendHeartbeats() {
	body := heartbeatBody{Port: n.Port, SimulatedTime: n.SimulatedTime()}
	transport.Broadcast(n.Masters, func(master int) error {
		var reply map[string]interface{}
		return n.Client.PostJSONWithDeadline(master, "/heartbeat", heartbeatDeadline, body, &reply)
	})
}

// IncRequestCount bumps the per-node request counter (admin/status metric).
func (n *Node) IncRequestCount() { atomic.AddInt64(&n.requestCount, 1) }

// SimulatedTime returns wall time plus this node's clock offset. Used only
// in chunk last_mod stamps and clock-sync messages, never for liveness or
// lease decisions.
func (n *Node) SimulatedTime() float64 {
	offset := math.Float64frombits(atomic.LoadUint64(&n.clockOffsetBits))
	return float64(time.Now().UnixNano())/1e9 + offset
}

// AdjustClock applies a clock-sync offset delta (POST /admin/adjust-clock).
func (n *Node) AdjustClock(delta float64) {
	for {
		old := atomic.LoadUint64(&n.clockOffsetBits)
		oldOffset := math.Float64frombits(old)
		newBits := math.Float64bits(oldOffset + delta)
		if atomic.CompareAndSwapUint64(&n.clockOffsetBits, old, newBits) {
			return
		}
	}
}

func (n *Node) label() string { return fmt.Sprintf("chunkserver:%d", n.Port) }

func (n *Node) logEvent(action, details string, success bool) {
	if n.Audit != nil {
		n.Audit.Log(action, n.label(), details, success)
	}
}

// Stage implements POST /chunk/stage.
func (n *Node) Stage(handle, content string) {
	n.Store.Stage(handle, content)
}

// Commit implements POST /chunk/commit, including the primary's fan-out to
// secondaries. secondaries is empty when this node is itself a secondary
// receiving a fan-out commit.
func (n *Node) Commit(handle string, secondaries []int) error {
	content, err := n.Store.Commit(handle, n.SimulatedTime())
	if err != nil {
		if err == chunkstore.ErrNoStagedData {
			return apierr.New(apierr.NoStagedData, "no staged data for handle")
		}
		return apierr.New(apierr.StorageError, err.Error())
	}

	n.logEvent("chunk_commit", fmt.Sprintf("handle=%s secondaries=%v", handle, secondaries), true)

	if len(secondaries) > 0 {
		n.fanOutCommit(handle, content, secondaries)
	}
	return nil
}

type stageBody struct {
	Handle  string `json:"handle"`
	Content string `json:"content"`
}

type commitBody struct {
	Handle      string `json:"handle"`
	Secondaries []int  `json:"secondaries,omitempty"`
}

// fanOutCommit stages then commits handle/content on every secondary, best
// effort, one at a time.
func (n *Node) fanOutCommit(handle, content string, secondaries []int) {
	for _, sec := range secondaries {
		var stageReply map[string]interface{}
		if err := n.Client.PostJSONWithDeadline(sec, "/chunk/stage", 1*time.Second,
			stageBody{Handle: handle, Content: content}, &stageReply); err != nil {
			log.Printf("[chunknode %d] stage fan-out to %d failed: %v", n.Port, sec, err)
			continue
		}
		var commitReply map[string]interface{}
		if err := n.Client.PostJSONWithDeadline(sec, "/chunk/commit", 1*time.Second,
			commitBody{Handle: handle}, &commitReply); err != nil {
			log.Printf("[chunknode %d] commit fan-out to %d failed: %v", n.Port, sec, err)
		}
	}
}

// Read implements GET /chunk/read/{handle}.
func (n *Node) Read(handle string) (string, error) {
	content, err := n.Store.Read(handle)
	if err != nil {
		if err == chunkstore.ErrNotFound {
			return "", apierr.New(apierr.NotFound, "chunk not found")
		}
		return "", apierr.New(apierr.StorageError, err.Error())
	}
	return content, nil
}

// StatusSnapshot is the GET /admin/status response.
type StatusSnapshot struct {
	Port          int     `json:"port"`
	SimulatedTime float64 `json:"simulated_time"`
	StorageUsage  int     `json:"storage_usage"`
	TotalRequests int64   `json:"total_requests"`
}

// Status builds the current admin/status snapshot.
func (n *Node) Status() StatusSnapshot {
	return StatusSnapshot{
		Port:          n.Port,
		SimulatedTime: n.SimulatedTime(),
		StorageUsage:  n.Store.StagingSize(),
		TotalRequests: atomic.LoadInt64(&n.requestCount),
	}
}

// Close releases node resources.
func (n *Node) Close() error { return n.Store.Close() }
