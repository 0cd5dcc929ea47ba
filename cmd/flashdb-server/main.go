// respkv-server: a single-node, in-memory RESP key/value server.
//
// Usage:
//
//	respkv-server [flags]
//
// Flags:
//
//	-config string   Path to a JSON config file (default "config.json")
//	-port int        Override the listening port
//	-snapshot string Override the snapshot file path
//	-save-config     Write the resolved configuration to -config and exit
//	-version         Show version and exit
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashdb/respkv/internal/command"
	"github.com/flashdb/respkv/internal/config"
	"github.com/flashdb/respkv/internal/server"
	"github.com/flashdb/respkv/internal/snapshot"
	"github.com/flashdb/respkv/internal/store"
	"github.com/flashdb/respkv/internal/version"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to a JSON config file")
	port := flag.Int("port", 0, "Override the listening port")
	snapshotPath := flag.String("snapshot", "", "Override the snapshot file path")
	saveConfig := flag.Bool("save-config", false, "Write the resolved configuration and exit")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("respkv-server v%s (built %s)\n", version.Version, version.BuildTime)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *snapshotPath != "" {
		cfg.SnapshotPath = *snapshotPath
	}

	if *saveConfig {
		if err := cfg.Save(*configPath); err != nil {
			log.Fatalf("config: save: %v", err)
		}
		fmt.Printf("wrote %s\n", *configPath)
		return
	}

	fmt.Println(`
  ____  ___ ____  ____  _  ____   __
 |  _ \| __| ___||  _ \| |/ /\ \ / /
 | |_) | _| \___ \| |_) | ' /  \ V /
 |  _ <| __|  ___/|  __/| . \   | |
 |_| \_\___|_|    |_|   |_|\_\  |_|`)
	log.Printf("respkv-server v%s starting...", version.Version)
	log.Printf("port: %d, snapshot: %s", cfg.Port, cfg.SnapshotPath)

	mgr, err := snapshot.NewManager(cfg.SnapshotPath)
	if err != nil {
		log.Fatalf("snapshot: %v", err)
	}

	db := store.New(func() int64 { return time.Now().UnixMilli() })
	db.OpenWriter = mgr.OpenWriter
	db.OpenReader = mgr.OpenReader

	table := command.DefaultTable()

	srv := server.New(server.Config{
		Port:        cfg.Port,
		RingSize:    cfg.RingSize,
		SendBufSize: cfg.SendBufSize,
	}, db, table, db.Now)

	go watchForShutdownSignal()

	if err := srv.Run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// watchForShutdownSignal logs and exits on SIGINT/SIGTERM. State is
// in-memory only (spec §1 non-goals rule out durability beyond an
// explicit SAVE), so there is nothing to flush on the way out.
func watchForShutdownSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down", sig)
	os.Exit(0)
}
