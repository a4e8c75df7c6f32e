package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/pkg/device"
)

// Loop runs a cycle immediately and then every interval until ctx is done.
// devices is called before every cycle. A cycle that outlasts the interval
// delays the next one; cycles never overlap.
func (c *Collector) Loop(ctx context.Context, devices func() []device.Device, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Run(ctx, devices())

	for {
		select {
		case <-ctx.Done():
			slog.Debug("collection loop stopped")
			return
		case <-ticker.C:
			c.Run(ctx, devices())
		}
	}
}
