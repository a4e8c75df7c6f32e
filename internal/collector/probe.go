package collector

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	fgerrors "github.com/DarkTangent01/fortigate-prometheus-exporter/internal/errors"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/metrics"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/pkg/device"
)

// SelectAddress probes every candidate address of d concurrently and returns
// the first one, in inventory order, that answered. Arrival order does not
// matter. When nothing answers the error is a fgerrors.ProbeError.
func (c *Collector) SelectAddress(ctx context.Context, d device.Device) (string, error) {
	reachable := make([]bool, len(d.Addresses))

	var g errgroup.Group
	for i, addr := range d.Addresses {
		g.Go(func() error {
			reachable[i] = c.probe(ctx, d, addr)
			return nil
		})
	}
	_ = g.Wait()

	for i, ok := range reachable {
		if ok {
			return d.Addresses[i], nil
		}
	}
	return "", fgerrors.ProbeError{
		DeviceName: d.Name.String(),
		Candidates: d.Addresses,
		Timestamp:  time.Now(),
	}
}

func (c *Collector) probe(ctx context.Context, d device.Device, addr string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	defer cancel()

	start := time.Now()
	err := c.opts.NewClient(d.BaseURL(addr), d.Token).Probe(ctx)
	metrics.APICallDuration.WithLabelValues("status", outcome(err)).Observe(time.Since(start).Seconds())

	if err != nil {
		slog.Debug("candidate address not reachable", "device", d.Name, "address", addr, "error", err)
		return false
	}
	return true
}
