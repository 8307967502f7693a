// Command master runs one metadata-master node: election, heartbeat
// liveness tracking, lease management, clock-sync (while leader), and the
// metadata store/replication HTTP surface.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"distfs/internal/alerts"
	"distfs/internal/audit"
	"distfs/internal/clustermonitor"
	"distfs/internal/httpapi"
	"distfs/internal/master"
	"distfs/internal/wsmonitor"
)

func main() {
	dataDir := flag.String("data-dir", "/var/lib/distfs", "directory for per-node sqlite stores")
	telegramBot := flag.String("telegram-bot", "", "Telegram bot token (optional, for cluster alerts)")
	telegramChat := flag.String("telegram-chat", "", "Telegram chat ID (optional, for cluster alerts)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: master [flags] <self_port> <comma_separated_peer_master_ports>")
		os.Exit(1)
	}

	selfPort, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatalf("invalid self_port %q: %v", args[0], err)
	}
	peers := parsePorts(args[1])

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}

	auditKey, err := audit.LoadOrCreateAuditKey(fmt.Sprintf("%s/master-%d-audit.key", *dataDir, selfPort))
	if err != nil {
		log.Printf("WARNING: audit HMAC key unavailable (%v) — chain disabled", err)
		auditKey = nil
	}
	auditLog, err := audit.NewLogger(fmt.Sprintf("%s/master-%d-audit.db", *dataDir, selfPort), 100, 5*time.Second, auditKey)
	if err != nil {
		log.Fatalf("opening audit log: %v", err)
	}
	auditLog.Start()
	defer auditLog.Stop()

	hub := wsmonitor.NewHub()
	go hub.Run()

	node, err := master.NewNode(selfPort, peers, fmt.Sprintf("%s/master-%d.db", *dataDir, selfPort), auditLog, hub)
	if err != nil {
		log.Fatalf("opening metastore: %v", err)
	}
	defer node.Close()

	if *telegramBot != "" && *telegramChat != "" {
		alerts.InitTelegram(*telegramBot, *telegramChat)
	}

	cm := clustermonitor.New(3*time.Second, func() []clustermonitor.Observation {
		return clusterObservations(node)
	}, func(key, level string, data interface{}) {
		hub.Broadcast(key, data, level)
		if level == "critical" {
			msg := fmt.Sprintf("%v", data)
			if err := alerts.SendAlert(alerts.TelegramAlert{
				Level:   "CRITICAL",
				Title:   clustermonitor.Title(key, level),
				Message: msg,
			}); err != nil {
				log.Printf("telegram alert failed: %v", err)
			}
		}
	})
	cm.Start()
	defer cm.Stop()

	node.Start()

	router := httpapi.NewMasterRouter(node)
	addr := fmt.Sprintf(":%d", selfPort)
	log.Printf("master %d listening on %s, peers=%v", selfPort, addr, peers)
	log.Fatal(http.ListenAndServe(addr, router))
}

func parsePorts(csv string) []int {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			log.Fatalf("invalid port %q in peer list: %v", part, err)
		}
		out = append(out, p)
	}
	return out
}

func clusterObservations(node *master.Node) []clustermonitor.Observation {
	var obs []clustermonitor.Observation
	if node.IsLeader() {
		obs = append(obs, clustermonitor.Observation{Key: "leader", Level: "info", Data: node.Port})
	} else if node.Election.LeaderID() == 0 {
		obs = append(obs, clustermonitor.Observation{Key: "leader", Level: "critical", Data: "no leader"})
	}
	for _, p := range node.Liveness.Known() {
		key := fmt.Sprintf("chunkserver:%d", p)
		if node.Liveness.IsLive(p) {
			obs = append(obs, clustermonitor.Observation{Key: key, Level: "clear", Data: p})
		} else {
			obs = append(obs, clustermonitor.Observation{Key: key, Level: "critical", Data: fmt.Sprintf("chunkserver %d down", p)})
		}
	}
	return obs
}
