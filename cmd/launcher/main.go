// Command launcher is a dev-convenience cluster process manager: it spawns
// the master/chunkserver binaries for a fixed topology and exposes
// start/stop/status control over HTTP. Not part of the coordination core.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"distfs/internal/httpapi"
	"distfs/internal/launcher"
)

func main() {
	controlAddr := flag.String("listen", ":8000", "launcher control-plane listen address")
	binDir := flag.String("bin-dir", ".", "directory containing the master/chunkserver binaries")
	logDir := flag.String("log-dir", "./logs", "directory for per-node stdout/stderr logs")
	flag.Parse()

	specs := []launcher.NodeSpec{
		{Port: 6001, Kind: launcher.KindMaster, Args: []string{"6002,6003"}},
		{Port: 6002, Kind: launcher.KindMaster, Args: []string{"6001,6003"}},
		{Port: 6003, Kind: launcher.KindMaster, Args: []string{"6001,6002"}},
		{Port: 5001, Kind: launcher.KindChunkserver, Args: []string{"6001,6002,6003"}},
		{Port: 5002, Kind: launcher.KindChunkserver, Args: []string{"6001,6002,6003"}},
		{Port: 5003, Kind: launcher.KindChunkserver, Args: []string{"6001,6002,6003"}},
		{Port: 5004, Kind: launcher.KindChunkserver, Args: []string{"6001,6002,6003"}},
	}

	mgr, err := launcher.NewManager(specs, *binDir, *logDir)
	if err != nil {
		log.Fatalf("launcher init: %v", err)
	}

	log.Println("[launcher] launching cluster...")
	if err := mgr.StartAll(); err != nil {
		log.Printf("[launcher] startup warning: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[launcher] shutting down cluster...")
		mgr.Shutdown()
		os.Exit(0)
	}()

	router := httpapi.NewLauncherRouter(mgr)
	log.Printf("[launcher] control API on %s", *controlAddr)
	log.Fatal(http.ListenAndServe(*controlAddr, router))
}
