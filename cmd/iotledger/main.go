package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
	"github.com/mr-ih/IoT-Blockchain-System/internal/config"
	"github.com/mr-ih/IoT-Blockchain-System/internal/forwarder"
	"github.com/mr-ih/IoT-Blockchain-System/internal/gateway"
	"github.com/mr-ih/IoT-Blockchain-System/internal/ledger"
	"github.com/mr-ih/IoT-Blockchain-System/internal/ledger/state"
	"github.com/mr-ih/IoT-Blockchain-System/internal/listener"
	"github.com/mr-ih/IoT-Blockchain-System/internal/migrations"
	"github.com/mr-ih/IoT-Blockchain-System/internal/server"
)

func main() {
	configPath := flag.String("config", "iotledger.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"database_type", cfg.Database.Type,
		"listeners_enabled", cfg.Listeners.Enabled,
		"seed_demo_data", cfg.Ledger.SeedDemoData,
	)

	// 2. Initialize World State
	var worldState state.WorldState
	var db *sql.DB
	switch cfg.Database.Type {
	case "postgres":
		pg, err := state.NewPostgres(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize world state", "error", err)
			os.Exit(1)
		}
		defer pg.Close()

		if err := migrations.RunMigrations(pg.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		worldState = pg
		db = pg.DB()
	default:
		slog.Info("Using in-memory world state; events will not survive restarts")
		worldState = state.NewMemory()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize Ledger Contracts
	registry := ledger.NewRegistry(worldState)
	if cfg.Ledger.SeedDemoData {
		for _, contract := range registry.All() {
			if err := contract.InitLedger(ctx); err != nil {
				slog.Error("Failed to seed ledger",
					"doc_type", contract.DocType(), "error", err)
				os.Exit(1)
			}
		}
	}

	// 4. Initialize Gateway + Server
	gatewaySvc := gateway.NewService(registry, cfg.Server.MaxBodySizeMB)
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), db, cfg.Server.Mode)
	gatewaySvc.RegisterRoutes(srv.Engine)

	// 5. Initialize Forwarder
	retryBackoff, _ := cfg.Forwarder.RetryBackoffDuration()
	requestTimeout, _ := cfg.Forwarder.RequestTimeoutDuration()
	fwd := forwarder.New(forwarder.Config{
		Endpoint:       cfg.Forwarder.Endpoint,
		QueueSize:      cfg.Forwarder.QueueSize,
		Workers:        cfg.Forwarder.Workers,
		MaxAttempts:    cfg.Forwarder.MaxAttempts,
		InitialBackoff: retryBackoff,
		RequestTimeout: requestTimeout,
	})

	// 6. Initialize Device Listeners
	var listeners []*listener.Listener
	if cfg.Listeners.Enabled {
		for _, deviceType := range v1.AllDeviceTypes() {
			l, err := listener.New(deviceType, cfg.Listeners.Host, cfg.Listeners.Ports[string(deviceType)], fwd)
			if err != nil {
				slog.Error("Failed to start device listener",
					"device_type", deviceType, "error", err)
				os.Exit(1)
			}
			listeners = append(listeners, l)
		}
	} else {
		slog.Info("Device listeners disabled by config")
	}

	// Signal handler -> triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// 7. Run everything until ctx is cancelled.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return fwd.Run(gctx) })
	for _, l := range listeners {
		l := l
		g.Go(func() error { return l.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
