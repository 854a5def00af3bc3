package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	clientDir := flag.String("client", "", "Path to client directory (overrides config)")
	dataDir := flag.String("data", "", "Directory for the database and snapshots (overrides config)")
	hashPassword := flag.String("hash-password", "", "Print a bcrypt hash for admin.password_hash and exit")
	flag.Parse()

	if *hashPassword != "" {
		h, err := HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *clientDir != "" {
		cfg.Server.ClientDir = *clientDir
	}
	if *dataDir != "" {
		cfg.Server.DataDir = *dataDir
	}

	if err := InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer SyncLogger()

	if err := run(&cfg); err != nil {
		Log.Errorw("server exited", "err", err)
		SyncLogger()
		os.Exit(1)
	}
}

func run(cfg *Config) error {
	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	db, err := OpenDB(filepath.Join(cfg.Server.DataDir, cfg.Persistence.DBPath))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	analytics := NewAnalytics(db)
	defer analytics.Stop()

	snapDir := ""
	if cfg.Persistence.SnapshotDir != "" {
		snapDir = filepath.Join(cfg.Server.DataDir, cfg.Persistence.SnapshotDir)
	}
	brains := NewBrainStore(db, snapDir, cfg.Persistence.SnapshotRetention)

	game := NewGame(cfg, GameOptions{Brains: brains, Analytics: analytics})
	go game.Run()

	hub := NewHub(game, cfg.Server, analytics)
	go hub.Run()

	admin := NewAdmin(NewAuth(db, cfg.Admin), game, hub, analytics)
	server := &http.Server{Addr: cfg.Server.Addr, Handler: SetupRoutes(hub, admin, cfg)}

	errc := make(chan error, 1)
	go func() {
		Log.Infow("server starting", "addr", cfg.Server.Addr, "client", cfg.Server.ClientDir, "bots", cfg.Bots.Count)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-stop:
		Log.Infow("shutting down", "signal", sig.String())
	case runErr = <-errc:
		Log.Errorw("listen failed", "err", runErr)
	}

	game.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		server.Close()
	}
	hub.Stop()
	return runErr
}
