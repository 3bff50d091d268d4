// simdevices drives the five device simulators against a running iotledger
// instance, replacing the physical sensor network during development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	v1 "github.com/mr-ih/IoT-Blockchain-System/internal/api/v1"
	"github.com/mr-ih/IoT-Blockchain-System/internal/config"
	"github.com/mr-ih/IoT-Blockchain-System/internal/simulator"
)

func main() {
	configPath := flag.String("config", "iotledger.yaml", "Path to configuration file (for listener ports)")
	host := flag.String("host", "127.0.0.1", "Listener host to send telemetry to")
	interval := flag.Duration("interval", 2*time.Second, "Delay between events per device")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, stopping simulators...")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, deviceType := range v1.AllDeviceTypes() {
		target := fmt.Sprintf("%s:%d", *host, cfg.Listeners.Ports[string(deviceType)])
		sender, err := simulator.NewSender(deviceType, target, *interval)
		if err != nil {
			slog.Error("Failed to create sender",
				"device_type", deviceType, "error", err)
			os.Exit(1)
		}
		g.Go(func() error { return sender.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		slog.Error("Simulator stopped with error", "error", err)
	}
	slog.Info("All simulators stopped")
}
