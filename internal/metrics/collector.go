package metrics

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/store"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

// SnapshotCollector exposes the stored snapshots as metrics. Every Collect
// reads the store again; nothing is cached between scrapes.
//
// It is an unchecked collector: metric names depend on snapshot content and
// are not known up front. The registry groups the samples of one Gather into
// families, declaring each name once, and rejects type conflicts and
// duplicate series.
type SnapshotCollector struct {
	source     SnapshotSource
	categories []types.Category
}

// NewSnapshotCollector creates a collector reading from source. Without
// categories every category is read.
func NewSnapshotCollector(source SnapshotSource, categories ...types.Category) *SnapshotCollector {
	if len(categories) == 0 {
		categories = types.Categories()
	}
	return &SnapshotCollector{source: source, categories: categories}
}

// Describe sends nothing, which makes the collector unchecked.
func (c *SnapshotCollector) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (c *SnapshotCollector) Collect(ch chan<- prometheus.Metric) {
	start := time.Now()
	defer func() {
		RenderDuration.Observe(time.Since(start).Seconds())
	}()

	descs := make(descCache)
	for _, category := range c.categories {
		devices, err := c.source.List(category)
		if err != nil {
			slog.Warn("failed to list snapshots", "category", category, "error", err)
			SnapshotErrors.WithLabelValues(category.String()).Inc()
			continue
		}

		for _, device := range devices {
			for _, s := range c.samples(category, device) {
				ch <- s.metric(descs)
			}
		}
	}
}

func (c *SnapshotCollector) samples(category types.Category, device types.DeviceName) []Sample {
	doc, err := c.source.Read(category, device)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.Warn("failed to read snapshot", "category", category, "device", device, "error", err)
		SnapshotErrors.WithLabelValues(category.String()).Inc()
		return nil
	}

	samples, err := Transform(category, device, doc)
	if err != nil {
		slog.Warn("skipping snapshot", "category", category, "device", device, "error", err)
		SnapshotErrors.WithLabelValues(category.String()).Inc()
		return nil
	}
	return samples
}

// Render writes the current snapshots in the Prometheus text format.
// Samples the registry rejects are logged and left out.
func (c *SnapshotCollector) Render(w io.Writer) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return fmt.Errorf("registering snapshot collector: %w", err)
	}

	families, err := reg.Gather()
	if err != nil {
		slog.Warn("dropped inconsistent samples", "error", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing exposition: %w", err)
		}
	}
	return nil
}
