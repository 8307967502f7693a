package clustermonitor

import (
	"testing"
	"time"
)

func TestObserve_InfoAlwaysFiresImmediately(t *testing.T) {
	var got []string
	m := New(time.Hour, nil, func(key, level string, data interface{}) {
		got = append(got, level)
	})

	m.observe(Observation{Key: "leader", Level: "info", Data: 6003})
	m.observe(Observation{Key: "leader", Level: "info", Data: 6003})

	if len(got) != 2 {
		t.Errorf("expected every info observation to fire, got %d", len(got))
	}
}

func TestObserve_CriticalRequiresHysteresisWindow(t *testing.T) {
	var fired int
	m := New(time.Hour, nil, func(key, level string, data interface{}) { fired++ })

	m.observe(Observation{Key: "leader", Level: "critical", Data: "no leader"})
	if fired != 0 {
		t.Errorf("expected no fire before hysteresis window elapses, got %d", fired)
	}

	m.mu.Lock()
	m.conditions["leader"].firingAt = time.Now().Add(-hysteresisWindow - time.Millisecond)
	m.mu.Unlock()

	m.observe(Observation{Key: "leader", Level: "critical", Data: "no leader"})
	if fired != 1 {
		t.Errorf("expected exactly 1 fire after hysteresis window elapses, got %d", fired)
	}
}

func TestObserve_CooldownSuppressesRepeatedFiring(t *testing.T) {
	var fired int
	m := New(time.Hour, nil, func(key, level string, data interface{}) { fired++ })

	m.mu.Lock()
	m.conditions["leader"] = &conditionState{
		isFiring:  true,
		lastLevel: "critical",
		firingAt:  time.Now().Add(-hysteresisWindow - time.Millisecond),
		lastFired: time.Now(),
	}
	m.mu.Unlock()

	m.observe(Observation{Key: "leader", Level: "critical", Data: "no leader"})
	if fired != 0 {
		t.Errorf("expected cooldown to suppress repeated firing, got %d fires", fired)
	}
}

func TestObserve_ClearResetsFiringState(t *testing.T) {
	var levels []string
	m := New(time.Hour, nil, func(key, level string, data interface{}) { levels = append(levels, level) })

	m.mu.Lock()
	m.conditions["leader"] = &conditionState{isFiring: true, lastLevel: "critical", firingAt: time.Now()}
	m.mu.Unlock()

	m.observe(Observation{Key: "leader", Level: "clear", Data: nil})
	if len(levels) != 1 || levels[0] != "clear" {
		t.Errorf("expected a clear event to fire, got %v", levels)
	}

	m.mu.Lock()
	stillFiring := m.conditions["leader"].isFiring
	m.mu.Unlock()
	if stillFiring {
		t.Error("expected isFiring to reset to false after clear")
	}
}
