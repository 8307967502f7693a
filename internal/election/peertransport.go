package election

import (
	"time"

	"distfs/internal/transport"
)

// electionMsg mirrors the body of POST /election/msg.
type electionMsg struct {
	Type   string `json:"type"`
	Sender int    `json:"sender"`
}

type statusReply struct {
	Status string `json:"status"`
}

// PeerTransport is the real Transport, talking HTTP to other master
// processes via internal/transport.Client.
type PeerTransport struct {
	Client *transport.Client
}

// NewPeerTransport wraps a transport.Client for use as an election Transport.
func NewPeerTransport(c *transport.Client) *PeerTransport {
	return &PeerTransport{Client: c}
}

func (t *PeerTransport) SendElection(peer, self int) bool {
	var reply statusReply
	err := t.Client.PostJSONWithDeadline(peer, "/election/msg", ElectionDeadline,
		electionMsg{Type: "ELECTION", Sender: self}, &reply)
	return err == nil
}

func (t *PeerTransport) SendCoordinator(peer, self int) {
	var reply statusReply
	_ = t.Client.PostJSONWithDeadline(peer, "/election/msg", 500*time.Millisecond,
		electionMsg{Type: "COORDINATOR", Sender: self}, &reply)
}

func (t *PeerTransport) ProbeHealth(peer int) bool {
	var health struct {
		Status string `json:"status"`
		Role   string `json:"role"`
	}
	err := t.Client.GetJSONWithDeadline(peer, "/health", ProbeDeadline, &health)
	return err == nil
}
