// Package lease implements the leader's write-lease table. Leases are
// soft: in-memory only, never persisted, never replicated — a leader
// failover simply starts a new, empty Manager, and a new leader grants
// fresh leases on demand.
package lease

import (
	"sync"
	"time"
)

// Duration is how long a granted lease remains valid.
const Duration = 60 * time.Second

type entry struct {
	primary   int
	expiresAt time.Time
}

// Manager holds one lease per chunk handle.
type Manager struct {
	mu     sync.Mutex
	leases map[string]entry
}

// NewManager returns an empty lease manager.
func NewManager() *Manager {
	return &Manager{leases: make(map[string]entry)}
}

// Grant returns the current primary for chunkHandle, granting a new lease
// if needed:
//   - a valid, still-in-replica-set lease is returned unchanged;
//   - an empty replica set grants nothing (primary == 0, ok == false);
//   - otherwise replica_set[0] becomes the new primary for Duration.
func (m *Manager) Grant(chunkHandle string, replicaSet []int) (primary int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if e, exists := m.leases[chunkHandle]; exists && e.expiresAt.After(now) && contains(replicaSet, e.primary) {
		return e.primary, true
	}

	if len(replicaSet) == 0 {
		return 0, false
	}

	primary = replicaSet[0]
	m.leases[chunkHandle] = entry{primary: primary, expiresAt: now.Add(Duration)}
	return primary, true
}

func contains(ports []int, port int) bool {
	for _, p := range ports {
		if p == port {
			return true
		}
	}
	return false
}
