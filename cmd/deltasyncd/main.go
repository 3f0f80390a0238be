// Command deltasyncd runs a causal delta synchronization host: the
// CORE pkg/dag engine wired to a durable badger applier, a gorilla/mux
// query-surface API, and an optional libp2p gossip adapter — the same
// wiring shape as the teacher's cmd/rechain/main.go (config -> storage
// -> security -> gossip -> API -> signal-driven shutdown).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rechain/deltasync/internal/api"
	"github.com/rechain/deltasync/internal/config"
	"github.com/rechain/deltasync/internal/store"
	"github.com/rechain/deltasync/internal/transport"
	"github.com/rechain/deltasync/pkg/dag"
	"github.com/rechain/deltasync/pkg/id"
)

func main() {
	configFile := flag.String("config", "", "path to configuration file")
	enableGossip := flag.Bool("gossip", false, "start the libp2p gossip adapter")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	nodeID := uuid.New().String()
	logger.Info("starting deltasyncd", zap.String("node_id", nodeID))

	applier, err := store.Open(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer applier.Close()

	dagStore := dag.NewLocked(dag.New(id.Root))

	var gossipHost *transport.GossipHost
	if *enableGossip {
		signer, err := transport.NewSigner()
		if err != nil {
			logger.Fatal("failed to create signer", zap.Error(err))
		}
		gossipHost, err = transport.NewGossipHost(cfg.Transport.ListenAddress, signer, dagStore, applier, logger)
		if err != nil {
			logger.Fatal("failed to start gossip host", zap.Error(err))
		}
		defer gossipHost.Close()

		for _, peerAddr := range cfg.Transport.Bootstrap {
			if err := gossipHost.AddPeer(context.Background(), peerAddr, signer.PublicKey()); err != nil {
				logger.Warn("failed to add bootstrap peer", zap.String("peer", peerAddr), zap.Error(err))
			}
		}
	}

	apiServer := api.NewServer(dagStore, applier, applier, logger, cfg.DAG.PendingSoftLimit, cfg.DAG.PendingHardLimit)
	go func() {
		if err := apiServer.Start(cfg.API.Address); err != nil {
			logger.Info("api server stopped", zap.Error(err))
		}
	}()

	stopCleanup := startCleanupLoop(dagStore, cfg.DAG.CleanupInterval, cfg.DAG.PendingMaxAge, logger)
	defer close(stopCleanup)

	waitForShutdown(logger)

	if err := apiServer.Stop(); err != nil {
		logger.Warn("error stopping api server", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}

// startCleanupLoop runs cleanup_stale (spec.md §4.7) on the
// configured cadence until the returned channel is closed.
func startCleanupLoop(store *dag.Locked, interval, maxAge time.Duration, logger *zap.Logger) chan struct{} {
	stop := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				evicted := store.CleanupStale(now, maxAge)
				if len(evicted) > 0 {
					logger.Info("cleanup_stale evicted pending deltas", zap.Int("count", len(evicted)))
				}
			}
		}
	}()
	return stop
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")
}
