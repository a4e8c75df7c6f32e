package inventory

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/metrics"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/pkg/device"
)

// Cache serves the device list of an inventory file and reloads it when the
// file changes. The file is checked at most once per ttl. When a reload
// fails the previous device list stays in use.
type Cache struct {
	path string
	ttl  time.Duration

	mutex     sync.RWMutex
	devices   []device.Device
	modTime   time.Time
	size      int64
	lastCheck time.Time
}

// NewCache loads path once. The initial load must succeed.
func NewCache(path string, ttl time.Duration) (*Cache, error) {
	c := &Cache{path: path, ttl: ttl}
	if _, err := c.Refresh(true); err != nil {
		return nil, err
	}
	return c, nil
}

// Devices returns the current device list, reloading the file first when the
// ttl has passed and it changed.
func (c *Cache) Devices() []device.Device {
	c.mutex.RLock()
	fresh := time.Since(c.lastCheck) < c.ttl
	devices := c.devices
	c.mutex.RUnlock()

	if fresh {
		return devices
	}

	if _, err := c.Refresh(false); err != nil {
		slog.Warn("inventory reload failed, keeping previous devices", "path", c.path, "error", err)
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.devices
}

// Refresh reloads the file if its size or modification time changed, or
// unconditionally with force. It reports whether a reload happened.
func (c *Cache) Refresh(force bool) (bool, error) {
	now := time.Now()

	info, err := os.Stat(c.path)
	if err != nil {
		c.markChecked(now)
		metrics.InventoryReloads.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("opening inventory: %w", err)
	}

	c.mutex.RLock()
	unchanged := !force && info.ModTime().Equal(c.modTime) && info.Size() == c.size
	c.mutex.RUnlock()

	if unchanged {
		c.markChecked(now)
		return false, nil
	}

	registry, err := Load(c.path)
	if err != nil {
		c.markChecked(now)
		metrics.InventoryReloads.WithLabelValues("failed").Inc()
		return false, err
	}

	c.mutex.Lock()
	c.devices = registry.Devices()
	c.modTime = info.ModTime()
	c.size = info.Size()
	c.lastCheck = now
	c.mutex.Unlock()

	metrics.InventoryReloads.WithLabelValues("reloaded").Inc()
	slog.Info("inventory loaded", "path", c.path, "devices", registry.Len())
	return true, nil
}

func (c *Cache) markChecked(now time.Time) {
	c.mutex.Lock()
	c.lastCheck = now
	c.mutex.Unlock()
}
