// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// livemetrics-demo embeds the live-metrics agent in a minimal host program:
// it simulates a trickle of request/dependency/exception telemetry and logs
// its own status periodically, serving as a manual smoke-test harness for
// the agent library.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livemetrics-go/agent/agent"
	"github.com/livemetrics-go/agent/collector"
)

const demoVersion = "0.1.0-dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file (see agent.FileConfig)")
	liveEndpoint := flag.String("live-endpoint", "", "Live Metrics service endpoint, e.g. https://rt.services.visualstudio.com")
	instrumentationKey := flag.String("instrumentation-key", "", "instrumentation key")
	roleName := flag.String("role-name", "livemetrics-demo", "role name reported to the service")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("livemetrics-demo " + demoVersion)
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := resolveConfig(*configPath, *liveEndpoint, *instrumentationKey, *roleName, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := agent.New(cfg)
	a.Start(ctx)
	defer a.Stop()

	var ikey string
	if cfg.InstrumentationKeySupplier != nil {
		ikey = cfg.InstrumentationKeySupplier()
	}

	go runStatusLoop(ctx, a, logger)
	runTelemetrySimulator(ctx, a, ikey, logger)

	return nil
}

// resolveConfig prefers an explicit config file; falls back to the
// endpoint/instrumentation-key flags when no file is given.
func resolveConfig(configPath, liveEndpoint, instrumentationKey, roleName string, logger *slog.Logger) (agent.Config, error) {
	if configPath != "" {
		cfg, err := agent.LoadConfig(configPath)
		if err != nil {
			return agent.Config{}, fmt.Errorf("loading config: %w", err)
		}
		cfg.Logger = logger
		return cfg, nil
	}

	if liveEndpoint == "" || instrumentationKey == "" {
		return agent.Config{}, fmt.Errorf("either --config or both --live-endpoint and --instrumentation-key are required")
	}

	return agent.Config{
		LiveEndpointSupplier:       func() string { return liveEndpoint },
		InstrumentationKeySupplier: func() string { return instrumentationKey },
		RoleName:                   roleName,
		Version:                    demoVersion,
		Logger:                     logger,
	}, nil
}

// runStatusLoop logs the agent's Status() every 30 seconds, the way
// cmd/bureau-telemetry-relay's main loop reports its own health.
func runStatusLoop(ctx context.Context, a *agent.Agent, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status := a.Status()
			logger.Info("agent status",
				"enabled", status.Enabled,
				"uptime_seconds", status.UptimeSeconds,
				"coordinator_state", status.CoordinatorState,
				"queue_depth", status.QueueDepth,
				"queue_dropped", status.QueueDropped,
				"batches_shipped", status.BatchesShipped,
			)
		case <-ctx.Done():
			return
		}
	}
}

// runTelemetrySimulator generates a steady trickle of request, dependency,
// and exception telemetry until ctx is cancelled, so the agent has
// something to aggregate and ship without a real host workload attached.
func runTelemetrySimulator(ctx context.Context, a *agent.Agent, ikey string, logger *slog.Logger) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			simulateOneRequest(a, ikey)
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		}
	}
}

func simulateOneRequest(a *agent.Agent, ikey string) {
	success := rand.Intn(10) != 0 // ~10% failure rate
	durationMs := 20 + rand.Intn(200)

	a.Add(collector.TelemetryItem{
		InstrumentationKey: ikey,
		Request: &collector.RequestTelemetry{
			Name:         "GET /demo",
			DurationText: msDurationText(durationMs),
			Success:      success,
			ResponseCode: responseCodeFor(success),
		},
	})

	if rand.Intn(3) == 0 {
		a.Add(collector.TelemetryItem{
			InstrumentationKey: ikey,
			RemoteDependency: &collector.RemoteDependencyTelemetry{
				Name:         "demo-db",
				Command:      "SELECT 1",
				DurationText: msDurationText(5 + rand.Intn(30)),
				Success:      true,
				ResultCode:   "0",
				Type:         "SQL",
			},
		})
	}

	if !success {
		a.Add(collector.TelemetryItem{
			InstrumentationKey: ikey,
			Exception: &collector.ExceptionTelemetry{
				Message: "simulated failure",
				Type:    "DemoError",
			},
		})
	}
}

func responseCodeFor(success bool) string {
	if success {
		return "200"
	}
	return "500"
}

func msDurationText(ms int) string {
	totalSeconds := ms / 1000
	remainderMs := ms % 1000
	hh := totalSeconds / 3600
	mm := (totalSeconds % 3600) / 60
	ss := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d0000", hh, mm, ss, remainderMs)
}
