package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/collector"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/inventory"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/metrics"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/server"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/store"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

func (a *app) serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Expose stored snapshots as Prometheus metrics",
		Description: `Serves /metrics, rendering the snapshot directory on every request, plus
/livez, /readyz, /startupz, /healthz and /version.

With --interval the collector also runs in-process at that interval.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "listen port",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "run the collector in-process at this interval (0 disables)",
			},
			&cli.BoolFlag{
				Name:  "tsnet",
				Usage: "also listen on the tailnet",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := a.cfg
			if cmd.IsSet("port") {
				cfg.Port = cmd.String("port")
			}
			if cmd.IsSet("interval") {
				cfg.CollectInterval = cmd.Duration("interval")
			}
			if cmd.IsSet("tsnet") {
				cfg.UseTsnet = cmd.Bool("tsnet")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}

			srv := server.New(cfg, s)
			if cfg.CollectInterval > 0 {
				// Inventory edits are picked up on the next cycle.
				inv, err := inventory.NewCache(cfg.InventoryFile, cfg.CollectInterval)
				if err != nil {
					return err
				}
				srv.EnableCollection(collector.New(s, collector.Options{
					ProbeTimeout:         cfg.ProbeTimeout,
					FetchTimeout:         cfg.FetchTimeout,
					MaxConcurrentDevices: cfg.MaxConcurrentDevices,
				}), inv.Devices)
			}

			slog.Info("starting fortigate-exporter",
				"version", version,
				"build_time", buildTime,
				"port", cfg.Port,
				"metrics_dir", cfg.MetricsDir,
				"use_tsnet", cfg.UseTsnet,
				"collect_interval", cfg.CollectInterval)

			if err := srv.Run(ctx); err != nil {
				return err
			}
			slog.Info("shutdown complete")
			return nil
		},
	}
}

func (a *app) renderCmd() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Print the exposition for the stored snapshots",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "category",
				Usage: "render only this category (can be repeated)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			// stdout carries the exposition
			setupLogger(a.cfg, os.Stderr)

			var categories []types.Category
			for _, name := range cmd.StringSlice("category") {
				category, err := types.ParseCategory(name)
				if err != nil {
					return err
				}
				categories = append(categories, category)
			}

			// Read only: missing directories render as empty.
			s := store.New(a.cfg.MetricsDir)
			return metrics.NewSnapshotCollector(s, categories...).Render(cmd.Root().Writer)
		},
	}
}

// healthCheckCmd probes the liveness endpoint of a running server, for
// container health checks.
func (a *app) healthCheckCmd() *cli.Command {
	return &cli.Command{
		Name:  "health-check",
		Usage: "Check the liveness endpoint of a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Usage:   "server host",
				Value:   "127.0.0.1",
				Sources: cli.EnvVars("HEALTH_CHECK_HOST"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return performHealthCheck(ctx, fmt.Sprintf("http://%s:%s/livez", cmd.String("host"), a.cfg.Port))
		},
	}
}

func performHealthCheck(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}
	return nil
}
