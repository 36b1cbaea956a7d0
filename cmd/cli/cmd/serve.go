package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentinel-infra/gridtwin/pkg/config"
	"github.com/sentinel-infra/gridtwin/pkg/feeds"
	"github.com/sentinel-infra/gridtwin/pkg/logger"
	"github.com/sentinel-infra/gridtwin/pkg/server"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
	"github.com/sentinel-infra/gridtwin/pkg/twin"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the twin over HTTP",
	Long: `Serve the digital twin over HTTP: REST endpoints for simulations,
stabilization and resilience, a WebSocket stream of cascade results, and
Prometheus metrics. Optionally runs the background hazard feed monitor.`,
	RunE: serveTwin,
}

func init() {
	serveCmd.Flags().String("service-config", "", "service configuration file (YAML)")
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	serveCmd.Flags().Bool("feeds", false, "enable the simulated hazard feed monitor")
}

func serveTwin(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("service-config")
	svcConfig, err := config.LoadServiceOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load service configuration: %w", err)
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		svcConfig.Server.Addr = addr
	}
	if enabled, _ := cmd.Flags().GetBool("feeds"); enabled {
		svcConfig.Feeds.Enabled = true
	}

	log := logger.New()
	engine, err := twin.New(twin.Options{
		TopologyFile:           svcConfig.Engine.TopologyFile,
		Seed:                   svcConfig.Engine.Seed,
		StabilizationThreshold: svcConfig.Stabilization.Threshold,
		RiskResolutionDeg:      svcConfig.Engine.RiskResolutionDeg,
		Log:                    log,
	})
	if err != nil {
		return fmt.Errorf("failed to build twin engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if svcConfig.Feeds.Enabled {
		seed := svcConfig.Engine.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		hazards := feeds.NewSimulatedHazardFeed(
			topology.DefaultDistricts(),
			svcConfig.Feeds.EventProbability,
			rand.New(rand.NewSource(seed)),
		)
		monitor := feeds.New(engine, svcConfig.Feeds.PollInterval, hazards).
			WithLogger(log).
			OnTick(engine.Metrics().FeedTicks.Inc)
		go func() {
			if err := monitor.Run(ctx); err != nil {
				logger.Errorf("feed monitor stopped: %v", err)
			}
		}()
		logger.Progress("Hazard feed monitor running")
	}

	srv := server.New(engine, log)
	logger.Successf("Serving twin on %s", svcConfig.Server.Addr)
	return srv.Run(ctx, server.Config{
		Addr:         svcConfig.Server.Addr,
		ReadTimeout:  svcConfig.Server.ReadTimeout,
		WriteTimeout: svcConfig.Server.WriteTimeout,
	})
}
