// Package election implements Bully-style leader election among masters.
// It carries one deliberate weakness forward: a node sends ELECTION to
// every higher peer and, if none of those sends even succeeds, declares
// itself leader immediately. It does not wait for a bounded OK reply
// before doing so.
package election

import (
	"log"
	"sync"
	"time"
)

// MonitorInterval is how often the leader-monitor loop runs.
const MonitorInterval = 3 * time.Second

// ProbeDeadline bounds a health probe of the current leader.
const ProbeDeadline = 1 * time.Second

// ElectionDeadline bounds an ELECTION message to one higher peer.
const ElectionDeadline = 1 * time.Second

// Transport is the subset of peer communication the election manager needs.
// Implemented by PeerTransport (over internal/transport.Client); kept as an interface here so
// election logic can be unit tested without real HTTP.
type Transport interface {
	// SendElection sends ELECTION(sender=self) to peer, returning whether the
	// peer was reachable at all.
	SendElection(peer, self int) bool
	// SendCoordinator sends COORDINATOR(sender=self) to peer, best-effort.
	SendCoordinator(peer, self int)
	// ProbeHealth checks whether peer answers GET /health within ProbeDeadline.
	ProbeHealth(peer int) bool
}

// Manager owns one master's election state.
type Manager struct {
	self  int
	peers []int
	tr    Transport

	mu                  sync.Mutex
	leaderID            int // 0 = none
	electionInProgress  bool

	// OnBecomeLeader fires every time this node declares victory — the
	// caller (master.Node) uses it to ensure the clock-sync daemon is
	// running. It is safe to call repeatedly; clocksync.Daemon.Start is
	// idempotent.
	OnBecomeLeader func()
	// OnLeaderChange fires whenever leaderID changes (including to none),
	// used to push cluster events to the websocket monitor / alerts.
	OnLeaderChange func(leaderID int)

	stopCh chan struct{}
}

// NewManager builds an election manager for self among peers (peer master
// ports, not including self).
func NewManager(self int, peers []int, tr Transport) *Manager {
	return &Manager{
		self:   self,
		peers:  peers,
		tr:     tr,
		stopCh: make(chan struct{}),
	}
}

// Start launches the leader-monitor background loop.
func (m *Manager) Start() {
	go m.monitorLoop()
}

// Stop halts the monitor loop.
func (m *Manager) Stop() { close(m.stopCh) }

// IsLeader reports whether this node currently considers itself leader.
func (m *Manager) IsLeader() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaderID == m.self
}

// LeaderID returns the known leader (0 if none).
func (m *Manager) LeaderID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaderID
}

// ElectionInProgress reports whether this node is mid-election.
func (m *Manager) ElectionInProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.electionInProgress
}

func (m *Manager) monitorLoop() {
	for {
		select {
		case <-m.stopCh:
			return
		case <-time.After(MonitorInterval):
		}

		m.mu.Lock()
		leader := m.leaderID
		m.mu.Unlock()

		if leader == m.self {
			continue
		}
		if leader == 0 {
			m.StartElection()
			continue
		}
		if !m.tr.ProbeHealth(leader) {
			log.Printf("[election %d] leader %d is dead", m.self, leader)
			m.setLeader(0)
			m.StartElection()
		}
	}
}

// StartElection sends ELECTION to every higher peer and decides whether to
// wait or declare victory based on who responds.
func (m *Manager) StartElection() {
	m.mu.Lock()
	m.electionInProgress = true
	m.mu.Unlock()

	log.Printf("[election %d] starting election", m.self)

	higher := m.higherPeers()
	if len(higher) == 0 {
		m.declareVictory()
		return
	}

	foundHigher := false
	for _, p := range higher {
		if m.tr.SendElection(p, m.self) {
			foundHigher = true
		}
	}

	if !foundHigher {
		m.declareVictory()
		return
	}
	// Otherwise wait passively: a higher peer is expected to become leader
	// or send ELECTION back — this is the documented weakened-Bully choice.
}

func (m *Manager) declareVictory() {
	log.Printf("[election %d] declaring victory, I am LEADER", m.self)
	m.setLeader(m.self)

	m.mu.Lock()
	m.electionInProgress = false
	m.mu.Unlock()

	if m.OnBecomeLeader != nil {
		m.OnBecomeLeader()
	}

	for _, p := range m.peers {
		go m.tr.SendCoordinator(p, m.self)
	}
}

// HandleElectionMessage processes an inbound /election/msg body and returns
// the reply status string ("OK" or "Ack", or "" for an unknown type).
func (m *Manager) HandleElectionMessage(msgType string, sender int) string {
	switch msgType {
	case "ELECTION":
		m.mu.Lock()
		electing := m.electionInProgress
		isLeader := m.leaderID == m.self
		m.mu.Unlock()
		if !electing && !isLeader {
			go m.StartElection()
		}
		return "OK"
	case "COORDINATOR":
		m.setLeader(sender)
		m.mu.Lock()
		m.electionInProgress = false
		m.mu.Unlock()
		log.Printf("[election %d] acknowledged leader %d", m.self, sender)
		return "Ack"
	default:
		return ""
	}
}

func (m *Manager) setLeader(id int) {
	m.mu.Lock()
	changed := m.leaderID != id
	m.leaderID = id
	m.mu.Unlock()
	if changed && m.OnLeaderChange != nil {
		m.OnLeaderChange(id)
	}
}

func (m *Manager) higherPeers() []int {
	var out []int
	for _, p := range m.peers {
		if p > m.self {
			out = append(out, p)
		}
	}
	return out
}
