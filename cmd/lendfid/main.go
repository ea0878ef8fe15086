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

	"lendfi/config"
	"lendfi/core"
	"lendfi/observability/logging"
	"lendfi/rpc"
	"lendfi/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the daemon configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("lendfid", cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("open database", "backend", cfg.StorageBackend, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	protocolCfg, err := cfg.Protocol()
	if err != nil {
		logger.Error("invalid protocol config", "err", err)
		os.Exit(1)
	}
	node := core.NewNode(db, protocolCfg, logger)
	server := rpc.NewServer(node, logger)

	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("rpc listening", "addr", cfg.RPCAddress, "backend", cfg.StorageBackend)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server failed", "err", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("rpc shutdown", "err", err)
	}
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemDB(), nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	switch cfg.StorageBackend {
	case "bolt":
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "state.bolt"))
	case "leveldb":
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
