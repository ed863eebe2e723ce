package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/landgrid/landmarket/internal/bank"
	"github.com/landgrid/landmarket/internal/clock"
	"github.com/landgrid/landmarket/internal/config"
	"github.com/landgrid/landmarket/internal/database"
	"github.com/landgrid/landmarket/internal/feed"
	"github.com/landgrid/landmarket/internal/httpapi"
	"github.com/landgrid/landmarket/internal/journal"
	"github.com/landgrid/landmarket/internal/ledger"
	"github.com/landgrid/landmarket/internal/marketplace"
	"github.com/landgrid/landmarket/internal/model"
	"github.com/landgrid/landmarket/internal/registry"
	"github.com/landgrid/landmarket/internal/sweeper"
	"github.com/landgrid/landmarket/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/marketd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting marketd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"listen_addr", cfg.API.ListenAddr,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Build the in-memory ledgers and the marketplace
	tokens := ledger.NewMemory()
	funds := bank.NewMemory()

	market, err := marketplace.New(marketplace.Config{
		Admin:     model.Address(cfg.Market.Admin),
		Custodian: model.Address(cfg.Market.Custodian),
		Registry: registry.Config{
			Admin:              model.Address(cfg.Market.Admin),
			ChunkLimit:         cfg.Market.ChunkLimit,
			MaxClaimBatch:      cfg.Market.MaxClaimBatch,
			ClaimEnabled:       cfg.Market.ClaimEnabled,
			PlotPrices:         cfg.Market.PlotPrices,
			PlotPriceDistances: cfg.Market.PlotPriceDistances,
		},
		MaxAuctionDuration: cfg.Market.MaxAuctionDuration,
	}, tokens, funds, clock.System(), logger)
	if err != nil {
		logger.Error("failed to build marketplace", "error", err)
		os.Exit(1)
	}

	// WebSocket feed hub
	var hub *feed.Hub
	if cfg.Feed.Enabled {
		hub = feed.NewHub(feed.HubConfig{
			PingInterval: cfg.Feed.PingInterval,
			WriteTimeout: cfg.Feed.WriteTimeout,
			SendBuffer:   cfg.Feed.SendBuffer,
		}, logger)
	}

	// Router fans emitted events out to the journal queues and the hub
	router := feed.NewRouter(feed.RouterConfig{
		JournalBufferSize: cfg.Journal.BufferSize,
		FlowBufferSize:    cfg.Journal.BufferSize,
	}, market.EventQueue(), market.FlowQueue(), hub, logger)

	if err := router.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}

	// Journal writers persist events and escrow flows to Postgres
	var (
		eventWriter *journal.EventWriter
		flowWriter  *journal.FlowWriter
	)
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)

		pool, err := database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		logger.Info("database connected")

		writerCfg := journal.WriterConfig{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}
		eventWriter = journal.NewEventWriter(writerCfg, router.JournalEvents(), pool, logger)
		flowWriter = journal.NewFlowWriter(writerCfg, router.JournalFlows(), pool, logger)

		if err := eventWriter.Start(ctx); err != nil {
			logger.Error("failed to start event writer", "error", err)
			os.Exit(1)
		}
		if err := flowWriter.Start(ctx); err != nil {
			logger.Error("failed to start flow writer", "error", err)
			os.Exit(1)
		}
	}

	// Sweeper finalizes expired auctions
	var sweep *sweeper.Sweeper
	if cfg.Sweeper.Enabled {
		sweep = sweeper.New(sweeper.Config{
			Interval: cfg.Sweeper.Interval,
			Actor:    model.Address(cfg.Market.Admin),
		}, market, clock.System(), logger)
		if err := sweep.Start(ctx); err != nil {
			logger.Error("failed to start sweeper", "error", err)
			os.Exit(1)
		}
	}

	// HTTP API
	var feedHandler http.HandlerFunc
	if hub != nil {
		feedHandler = hub.Handler()
	}
	api := httpapi.New(market, funds, feedHandler, logger)

	apiServer := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: api.Handler(),
	}

	go func() {
		logger.Info("starting api server", "addr", cfg.API.ListenAddr)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("api server error", "error", err)
			cancel()
		}
	}()

	logger.Info("marketd running", "instance_id", cfg.Instance.ID)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", "error", err)
	}

	if sweep != nil {
		if err := sweep.Stop(shutdownCtx); err != nil {
			logger.Error("sweeper stop error", "error", err)
		}
	}

	// Close the emit queues so the router can drain and stop
	market.Close()
	if err := router.Stop(shutdownCtx); err != nil {
		logger.Error("router stop error", "error", err)
	}

	if eventWriter != nil {
		if err := eventWriter.Stop(shutdownCtx); err != nil {
			logger.Error("event writer stop error", "error", err)
		}
	}
	if flowWriter != nil {
		if err := flowWriter.Stop(shutdownCtx); err != nil {
			logger.Error("flow writer stop error", "error", err)
		}
	}

	if hub != nil {
		hub.Close()
	}

	logger.Info("shutdown complete")
}
