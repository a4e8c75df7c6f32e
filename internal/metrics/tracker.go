package metrics

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

// DeviceTracker remembers which devices the per-device self-metrics were
// recorded for, so series of devices dropped from the inventory can be
// removed.
type DeviceTracker struct {
	mu    sync.Mutex
	known map[types.DeviceName]struct{}
}

// NewDeviceTracker creates an empty tracker.
func NewDeviceTracker() *DeviceTracker {
	return &DeviceTracker{known: make(map[types.DeviceName]struct{})}
}

// Update records the current device set and deletes the self-metric series
// of every previously seen device that is not in it. It returns the removed
// devices.
func (d *DeviceTracker) Update(current []types.DeviceName) []types.DeviceName {
	seen := make(map[types.DeviceName]struct{}, len(current))
	for _, name := range current {
		seen[name] = struct{}{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var removed []types.DeviceName
	for name := range d.known {
		if _, ok := seen[name]; !ok {
			slog.Info("device no longer in inventory, cleaning up metrics", "device", name)
			CleanupDeviceMetrics(name)
			removed = append(removed, name)
		}
	}
	d.known = seen
	return removed
}

// CleanupDeviceMetrics deletes all self-metric series labelled with device.
func CleanupDeviceMetrics(device types.DeviceName) {
	labels := prometheus.Labels{"device": device.String()}
	DeviceCollectionDuration.DeletePartialMatch(labels)
	FetchFailures.DeletePartialMatch(labels)
	DeviceUnreachable.DeletePartialMatch(labels)
}
