// Package metrics turns stored FortiGate snapshots into Prometheus metrics and
// defines the exporter's own operational metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CollectionDuration tracks the wall time of a whole collection cycle.
	CollectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fortigate_exporter_collection_duration_seconds",
			Help:    "Time spent collecting snapshots from all devices",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	// DeviceCollectionDuration tracks probe plus fetch time per device.
	DeviceCollectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fortigate_exporter_device_collection_duration_seconds",
			Help:    "Time spent probing and fetching one device",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"device"},
	)

	// APICallDuration tracks single API requests by category and outcome.
	// The probe is recorded with category "status".
	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fortigate_exporter_api_call_duration_seconds",
			Help:    "FortiGate API call duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category", "outcome"},
	)

	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fortigate_exporter_fetch_failures_total",
			Help: "Category fetches that failed and were stored as empty snapshots",
		},
		[]string{"device", "category"},
	)

	DeviceUnreachable = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fortigate_exporter_device_unreachable_total",
			Help: "Collection cycles in which no candidate address of a device answered",
		},
		[]string{"device"},
	)

	LastCollectionTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fortigate_exporter_last_collection_timestamp_seconds",
			Help: "Unix timestamp of the last finished collection cycle",
		},
	)

	// DeviceCount is the number of devices in the inventory.
	DeviceCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fortigate_exporter_devices",
			Help: "Number of devices in the inventory",
		},
	)

	SnapshotErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fortigate_exporter_snapshot_errors_total",
			Help: "Snapshots skipped during rendering because they could not be read or parsed",
		},
		[]string{"category"},
	)

	RenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fortigate_exporter_render_duration_seconds",
			Help:    "Time spent turning stored snapshots into samples",
			Buckets: prometheus.DefBuckets,
		},
	)

	InventoryReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fortigate_exporter_inventory_reloads_total",
			Help: "Inventory file loads by outcome",
		},
		[]string{"outcome"},
	)
)
