// Package main provides the fortigate-exporter entry point.
// The exporter polls FortiGate appliances over their management API, stores
// one JSON snapshot per device and category, and exposes the snapshots as
// Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	tsversion "tailscale.com/version"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/config"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/inventory"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/server"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/store"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/pkg/device"
)

const name = "fortigate-exporter"

var (
	// overridden during build with ldflags
	version   = "dev"
	buildTime = "unknown"
)

// app carries the configuration resolved by the root command to the
// subcommands.
type app struct {
	cfg config.Config
}

func setupLogger(cfg config.Config, w io.Writer) {
	var handler slog.Handler
	level := slog.LevelInfo

	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func (a *app) rootCmd() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "FortiGate poller and Prometheus exporter",
		Version: version,
		Description: `Polls FortiGate appliances listed in an Ansible-style inventory and
exposes the collected state as Prometheus metrics.

  collect - poll every device once, or every --interval, and store snapshots
  serve   - expose the stored snapshots on /metrics
  render  - print the exposition for the stored snapshots to stdout`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "optional YAML configuration file",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "inventory",
				Usage:   "inventory file listing the appliances",
				Sources: cli.EnvVars("INVENTORY_FILE"),
			},
			&cli.StringFlag{
				Name:    "metrics-dir",
				Usage:   "snapshot base directory",
				Sources: cli.EnvVars("METRICS_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "log format (text, json)",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			a.collectCmd(),
			a.serveCmd(),
			a.renderCmd(),
			a.healthCheckCmd(),
			versionCmd(),
		},
	}
}

// before resolves the configuration: defaults, file, environment, then flags.
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}

	if cmd.IsSet("inventory") {
		cfg.InventoryFile = cmd.String("inventory")
	}
	if cmd.IsSet("metrics-dir") {
		cfg.MetricsDir = cmd.String("metrics-dir")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = strings.ToLower(cmd.String("log-level"))
	}
	if cmd.IsSet("log-format") {
		cfg.LogFormat = strings.ToLower(cmd.String("log-format"))
	}

	if err := cfg.Validate(); err != nil {
		return ctx, fmt.Errorf("configuration validation failed: %w", err)
	}

	setupLogger(cfg, os.Stdout)
	server.SetVersion(version, buildTime)

	a.cfg = cfg
	return ctx, nil
}

// openStore prepares the snapshot directories. Failure is fatal for every
// command that writes or serves snapshots.
func (a *app) openStore() (*store.Store, error) {
	s := store.New(a.cfg.MetricsDir)
	if err := s.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("preparing snapshot directory: %w", err)
	}
	return s, nil
}

// loadDevices reads the inventory and optionally narrows it to the named
// devices.
func (a *app) loadDevices(only []string) ([]device.Device, error) {
	registry, err := inventory.Load(a.cfg.InventoryFile)
	if err != nil {
		return nil, err
	}

	if len(only) == 0 {
		return registry.Devices(), nil
	}

	devices := make([]device.Device, 0, len(only))
	for _, n := range only {
		d, ok := registry.Get(types.DeviceName(n))
		if !ok {
			return nil, fmt.Errorf("device %q not in inventory %s", n, a.cfg.InventoryFile)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(_ context.Context, cmd *cli.Command) error {
			w := cmd.Root().Writer
			fmt.Fprintf(w, "%s %s (built: %s)\n", name, version, buildTime)
			fmt.Fprintf(w, "tailscale library: %s\n", tsversion.Long())
			if info, ok := debug.ReadBuildInfo(); ok {
				fmt.Fprintf(w, "go version: %s\n", info.GoVersion)
			}
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	if err := a.rootCmd().Run(ctx, os.Args); err != nil {
		slog.Error("exiting", "error", err)
		stop()
		os.Exit(1)
	}
}
