// Package collector polls FortiGate appliances and stores one snapshot per
// device and monitoring category.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/api"
	fgerrors "github.com/DarkTangent01/fortigate-prometheus-exporter/internal/errors"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/metrics"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/store"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/pkg/device"
)

// DeviceAPI is the part of the management API the collector needs.
type DeviceAPI interface {
	Probe(ctx context.Context) error
	Fetch(ctx context.Context, path string) ([]byte, error)
	URL(path string) string
}

// ClientFactory returns a client for one appliance address.
type ClientFactory func(baseURL, token string) DeviceAPI

// SnapshotWriter persists one snapshot.
type SnapshotWriter interface {
	Write(category types.Category, device types.DeviceName, doc []byte) error
}

// Options tune a Collector. Zero timeouts fall back to the defaults.
type Options struct {
	ProbeTimeout time.Duration
	FetchTimeout time.Duration
	// MaxConcurrentDevices bounds the device fan-out. 0 means unbounded.
	MaxConcurrentDevices int
	NewClient            ClientFactory
	// AfterCycle, when set, receives the results of every finished cycle.
	AfterCycle func([]Result)
}

const (
	DefaultProbeTimeout = 3 * time.Second
	DefaultFetchTimeout = 5 * time.Second
)

// Collector runs collection cycles. It holds no per-cycle state and can be
// reused.
type Collector struct {
	writer  SnapshotWriter
	opts    Options
	tracker *metrics.DeviceTracker

	// lastRun is the end of the latest cycle in unix nanoseconds.
	lastRun atomic.Int64
}

// Result describes what one device contributed to a cycle.
type Result struct {
	Device  types.DeviceName
	Address string
	// Fetched reports per category whether real data was stored. false
	// means an empty snapshot was written instead.
	Fetched  map[types.Category]bool
	Err      error
	Duration time.Duration
}

// Reachable reports whether an address was selected.
func (r Result) Reachable() bool {
	return r.Address != ""
}

// New creates a collector writing to w.
func New(w SnapshotWriter, opts Options) *Collector {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.NewClient == nil {
		opts.NewClient = func(baseURL, token string) DeviceAPI {
			return api.NewClient(baseURL, token)
		}
	}
	return &Collector{writer: w, opts: opts, tracker: metrics.NewDeviceTracker()}
}

// Run collects every device concurrently and returns when all of them are
// done. Results are in the order of devices. Per-device failures are
// reported in the results, never as an error.
func (c *Collector) Run(ctx context.Context, devices []device.Device) []Result {
	start := time.Now()
	results := make([]Result, len(devices))

	names := make([]types.DeviceName, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	c.tracker.Update(names)

	var g errgroup.Group
	if c.opts.MaxConcurrentDevices > 0 {
		g.SetLimit(c.opts.MaxConcurrentDevices)
	}
	for i, d := range devices {
		g.Go(func() error {
			results[i] = c.CollectDevice(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	metrics.CollectionDuration.Observe(elapsed.Seconds())
	metrics.LastCollectionTime.SetToCurrentTime()
	c.lastRun.Store(time.Now().UnixNano())
	metrics.DeviceCount.Set(float64(len(devices)))

	reachable, failed := 0, 0
	for _, r := range results {
		if r.Reachable() {
			reachable++
		}
		for _, ok := range r.Fetched {
			if !ok {
				failed++
			}
		}
	}
	slog.Info("collection cycle finished",
		"devices", len(devices),
		"reachable", reachable,
		"failed_fetches", failed,
		"duration", elapsed.Round(time.Millisecond))

	if c.opts.AfterCycle != nil {
		c.opts.AfterCycle(results)
	}
	return results
}

// LastRun returns when the latest cycle finished, or the zero time before
// the first one.
func (c *Collector) LastRun() time.Time {
	ns := c.lastRun.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// CollectDevice selects an address for d and stores all categories. An
// unreachable device gets no snapshots at all.
func (c *Collector) CollectDevice(ctx context.Context, d device.Device) Result {
	start := time.Now()
	res := Result{Device: d.Name}
	defer func() {
		metrics.DeviceCollectionDuration.WithLabelValues(d.Name.String()).Observe(time.Since(start).Seconds())
	}()

	addr, err := c.SelectAddress(ctx, d)
	if err != nil {
		slog.Error("no reachable address", "device", d.Name, "candidates", d.Addresses)
		metrics.DeviceUnreachable.WithLabelValues(d.Name.String()).Inc()
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	slog.Info("using address", "device", d.Name, "address", addr)

	res.Address = addr
	res.Fetched = make(map[types.Category]bool, len(types.Categories()))
	client := c.opts.NewClient(d.BaseURL(addr), d.Token)

	var mu sync.Mutex
	var g errgroup.Group
	for _, category := range types.Categories() {
		g.Go(func() error {
			fetched, err := c.collectCategory(ctx, client, d.Name, category)

			mu.Lock()
			defer mu.Unlock()
			res.Fetched[category] = fetched
			if err != nil {
				res.Err = errors.Join(res.Err, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	res.Duration = time.Since(start)
	return res
}

// collectCategory fetches one category and writes the body, or the empty
// document when the fetch failed. The returned error is only set when the
// snapshot could not be written.
func (c *Collector) collectCategory(ctx context.Context, client DeviceAPI, name types.DeviceName, category types.Category) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	doc, err := client.Fetch(ctx, category.Path())
	metrics.APICallDuration.WithLabelValues(category.String(), outcome(err)).Observe(time.Since(start).Seconds())

	fetched := err == nil
	if err != nil {
		status := 0
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) {
			status = statusErr.StatusCode
		}
		fetchErr := fgerrors.NewFetchError(name.String(), category.String(), client.URL(category.Path()), status, err)
		slog.Warn("fetch failed, storing empty snapshot", "device", name, "category", category, "error", fetchErr)
		metrics.FetchFailures.WithLabelValues(name.String(), category.String()).Inc()
		doc = store.EmptyDocument
	}

	if err := c.writer.Write(category, name, doc); err != nil {
		slog.Error("failed to write snapshot", "device", name, "category", category, "error", err)
		return fetched, err
	}
	return fetched, nil
}

func outcome(err error) string {
	var statusErr *api.StatusError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &statusErr):
		return "http_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, api.ErrInvalidJSON):
		return "invalid_body"
	default:
		return "transport_error"
	}
}
