// Command chunkserver runs one chunk-storage node: heartbeat loop, clock
// offset, and the stage/commit/read HTTP surface.
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

	"distfs/internal/audit"
	"distfs/internal/chunknode"
	"distfs/internal/httpapi"
)

func main() {
	dataDir := flag.String("data-dir", "/var/lib/distfs", "directory for per-node sqlite stores")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: chunkserver [flags] <self_port> <comma_separated_master_ports>")
		os.Exit(1)
	}

	selfPort, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatalf("invalid self_port %q: %v", args[0], err)
	}
	masters := parsePorts(args[1])

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}

	auditKey, err := audit.LoadOrCreateAuditKey(fmt.Sprintf("%s/chunkserver-%d-audit.key", *dataDir, selfPort))
	if err != nil {
		log.Printf("WARNING: audit HMAC key unavailable (%v) — chain disabled", err)
		auditKey = nil
	}
	auditLog, err := audit.NewLogger(fmt.Sprintf("%s/chunkserver-%d-audit.db", *dataDir, selfPort), 100, 5*time.Second, auditKey)
	if err != nil {
		log.Fatalf("opening audit log: %v", err)
	}
	auditLog.Start()
	defer auditLog.Stop()

	node, err := chunknode.NewNode(selfPort, masters, fmt.Sprintf("%s/chunkserver-%d.db", *dataDir, selfPort), auditLog)
	if err != nil {
		log.Fatalf("opening chunkstore: %v", err)
	}
	defer node.Close()

	node.Start()

	router := httpapi.NewChunkserverRouter(node)
	addr := fmt.Sprintf(":%d", selfPort)
	log.Printf("chunkserver %d listening on %s, masters=%v", selfPort, addr, masters)
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
			log.Fatalf("invalid port %q in master list: %v", part, err)
		}
		out = append(out, p)
	}
	return out
}
