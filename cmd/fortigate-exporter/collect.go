package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/collector"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/pkg/device"
)

func (a *app) collectCmd() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Poll every inventory device and store snapshots",
		Description: `Probes the candidate addresses of every device, picks the first reachable
one in inventory order and stores one snapshot per monitoring category.
Failed fetches store an empty document; unreachable devices store nothing.

With --interval the cycle repeats until interrupted.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "summary",
				Usage: "print a per-device table after each cycle",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "repeat the cycle at this interval (0 runs once)",
			},
			&cli.StringSliceFlag{
				Name:  "device",
				Usage: "collect only this device (can be repeated)",
			},
			&cli.IntFlag{
				Name:  "max-concurrent-devices",
				Usage: "device fan-out limit (0 is unlimited)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := a.cfg
			if cmd.IsSet("interval") {
				cfg.CollectInterval = cmd.Duration("interval")
			}
			if cmd.IsSet("max-concurrent-devices") {
				cfg.MaxConcurrentDevices = int(cmd.Int("max-concurrent-devices"))
			}

			devices, err := a.loadDevices(cmd.StringSlice("device"))
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}

			opts := collector.Options{
				ProbeTimeout:         cfg.ProbeTimeout,
				FetchTimeout:         cfg.FetchTimeout,
				MaxConcurrentDevices: cfg.MaxConcurrentDevices,
			}
			if cmd.Bool("summary") {
				out := cmd.Root().Writer
				opts.AfterCycle = func(results []collector.Result) {
					writeSummary(out, results)
				}
			}
			c := collector.New(s, opts)

			if cfg.CollectInterval <= 0 {
				c.Run(ctx, devices)
				return nil
			}
			c.Loop(ctx, func() []device.Device { return devices }, cfg.CollectInterval)
			return nil
		},
	}
}

// writeSummary renders one row per device: the chosen address and, per
// category, whether real data was stored.
func writeSummary(w io.Writer, results []collector.Result) {
	table := tablewriter.NewWriter(w)

	header := []string{"DEVICE", "ADDRESS"}
	for _, category := range types.Categories() {
		header = append(header, category.String())
	}
	header = append(header, "DURATION")
	table.SetHeader(header)

	for _, r := range results {
		row := []string{r.Device.String()}
		if !r.Reachable() {
			row = append(row, "unreachable")
		} else {
			row = append(row, r.Address)
		}

		for _, category := range types.Categories() {
			fetched, attempted := r.Fetched[category]
			switch {
			case !attempted:
				row = append(row, "-")
			case fetched:
				row = append(row, "ok")
			default:
				row = append(row, "empty")
			}
		}
		row = append(row, fmt.Sprint(r.Duration.Round(time.Millisecond)))
		table.Append(row)
	}

	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetColumnSeparator("")
	table.SetAutoFormatHeaders(false)
	table.SetHeaderLine(false)
	table.Render()
}
