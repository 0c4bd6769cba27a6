package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/devadigapratham/spoolkeeper/api"
	"github.com/devadigapratham/spoolkeeper/config"
	"github.com/devadigapratham/spoolkeeper/inventory"
	"github.com/devadigapratham/spoolkeeper/raft"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "spoolkeeper",
	Short: "Replicated filament spool inventory",
	Long:  "Tracks filament spools by weight, deducts print consumption across spools and replicates every change with Raft.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cmd.Flags())
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return cfg.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	// Weights go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := zap.L()
	if log.Core().Enabled(zap.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	allocator, err := inventory.NewAllocator(cfg.Inventory.Allocator)
	if err != nil {
		return err
	}

	// Create the export store
	store, err := raft.NewStore(filepath.Join(cfg.Node.RaftDir, "store"))
	if err != nil {
		return eris.Wrap(err, "failed to create store")
	}
	defer store.Close()

	// Create Raft node
	node, err := raft.NewNode(&raft.Config{
		NodeID:       cfg.Node.ID,
		RaftAddr:     cfg.Node.RaftAddr,
		RaftDir:      cfg.Node.RaftDir,
		Bootstrap:    cfg.Node.Bootstrap,
		Peers:        cfg.Node.Peers,
		Allocator:    allocator,
		ApplyTimeout: cfg.Node.ApplyTimeout,
	})
	if err != nil {
		return eris.Wrap(err, "failed to create Raft node")
	}

	transport := raft.NewTransport(node)
	router := api.SetupRouter(node, store, transport, cfg.HTTP.CORSOrigins)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting HTTP server",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("node_id", cfg.Node.ID),
			zap.String("allocator", allocator.Name()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "http server")
		}
		return nil
	})

	// Join the cluster if needed
	if cfg.Node.Join != "" && !cfg.Node.Bootstrap {
		g.Go(func() error {
			log.Info("joining cluster", zap.String("join", cfg.Node.Join))
			if err := transport.JoinCluster(cfg.Node.Join, cfg.Node.ID, cfg.Node.RaftAddr); err != nil {
				// Not fatal: the leader can still add this node later
				log.Warn("failed to join cluster", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("error shutting down HTTP server", zap.Error(err))
		}
		if err := node.Shutdown(); err != nil {
			log.Error("error shutting down Raft node", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
