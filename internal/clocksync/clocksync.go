// Package clocksync implements the Berkeley-style clock synchronization
// daemon. It is started once, on first becoming leader, and then runs
// forever at a fixed period — checking on every tick whether this node is
// still leader, rather than being stopped and restarted across leadership
// changes.
package clocksync

import (
	"log"
	"sync"
	"time"

	"distfs/internal/transport"
)

// Period is the clock-sync cycle interval.
const Period = 10 * time.Second

// PollDeadline bounds GET /admin/clock.
const PollDeadline = 1 * time.Second

// AdjustDeadline bounds POST /admin/adjust-clock.
const AdjustDeadline = 500 * time.Millisecond

type clockReply struct {
	Port          int     `json:"port"`
	SimulatedTime float64 `json:"simulated_time"`
}

type adjustBody struct {
	Offset float64 `json:"offset"`
}

// Daemon runs the Berkeley averaging round.
type Daemon struct {
	client   *transport.Client
	isLeader func() bool
	liveFn   func() []int

	once    sync.Once
	started bool
}

// NewDaemon builds a clock-sync daemon. liveFn returns currently live
// chunkserver ports (from internal/liveness); isLeader reports whether this
// master currently considers itself leader.
func NewDaemon(client *transport.Client, liveFn func() []int, isLeader func() bool) *Daemon {
	return &Daemon{client: client, liveFn: liveFn, isLeader: isLeader}
}

// Start launches the background loop exactly once; safe to call
// repeatedly on every declare-victory.
func (d *Daemon) Start() {
	d.once.Do(func() {
		d.started = true
		go d.loop()
	})
}

func (d *Daemon) loop() {
	ticker := time.NewTicker(Period)
	defer ticker.Stop()
	for range ticker.C {
		if !d.isLeader() {
			continue
		}
		d.runCycle()
	}
}

func (d *Daemon) runCycle() {
	live := d.liveFn()
	if len(live) == 0 {
		return
	}

	t0 := nowSeconds()

	diffs := make(map[int]float64, len(live))
	for _, port := range live {
		var reply clockReply
		if err := d.client.GetJSONWithDeadline(port, "/admin/clock", PollDeadline, &reply); err != nil {
			continue
		}
		diffs[port] = reply.SimulatedTime - t0
	}

	if len(diffs) == 0 {
		return
	}

	var sum float64
	for _, v := range diffs {
		sum += v
	}
	avg := sum / float64(len(diffs))

	for port, diff := range diffs {
		offset := avg - diff
		port := port
		go func(offset float64) {
			var reply map[string]interface{}
			if err := d.client.PostJSONWithDeadline(port, "/admin/adjust-clock", AdjustDeadline,
				adjustBody{Offset: offset}, &reply); err != nil {
				log.Printf("[clocksync] adjust-clock to %d failed: %v", port, err)
			}
		}(offset)
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
