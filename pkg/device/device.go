// Package device provides types and utilities for FortiGate device representation.
package device

import (
	"fmt"
	"net"
	"strconv"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

// DefaultPort is the HTTPS management port used when the inventory omits one.
const DefaultPort = 443

// Device represents a managed appliance as listed in the inventory.
// A Device is immutable once the registry has been built.
type Device struct {
	Name      types.DeviceName `json:"name" yaml:"name"`
	Addresses []string         `json:"addresses" yaml:"addresses"`
	Port      int              `json:"port" yaml:"port"`
	Token     string           `json:"-" yaml:"-"`
}

// Validate checks if the device has valid required fields.
func (d Device) Validate() error {
	if !d.Name.IsValid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidDeviceName, d.Name)
	}
	if len(d.Addresses) == 0 {
		return fmt.Errorf("device %s: no candidate addresses", d.Name)
	}
	for _, addr := range d.Addresses {
		if err := types.ValidateAddress(addr); err != nil {
			return fmt.Errorf("device %s: %w", d.Name, err)
		}
	}
	if d.Token == "" {
		return fmt.Errorf("device %s: missing API token", d.Name)
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("device %s: invalid port %d", d.Name, d.Port)
	}
	return nil
}

// BaseURL returns the HTTPS base URL of the device at the given address.
func (d Device) BaseURL(address string) string {
	return "https://" + net.JoinHostPort(address, strconv.Itoa(d.Port))
}

// Registry is the set of devices built from the inventory, keyed by name.
type Registry struct {
	devices map[types.DeviceName]Device
	order   []types.DeviceName
}

// NewRegistry builds a registry from devices. A later device with the same
// name replaces an earlier one but keeps the earlier position.
func NewRegistry(devices []Device) *Registry {
	r := &Registry{devices: make(map[types.DeviceName]Device, len(devices))}
	for _, d := range devices {
		if _, exists := r.devices[d.Name]; !exists {
			r.order = append(r.order, d.Name)
		}
		r.devices[d.Name] = d
	}
	return r
}

// Get returns the device with the given name.
func (r *Registry) Get(name types.DeviceName) (Device, bool) {
	d, ok := r.devices[name]
	return d, ok
}

// Devices returns all devices in inventory order.
func (r *Registry) Devices() []Device {
	out := make([]Device, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.devices[name])
	}
	return out
}

// Len returns the number of devices.
func (r *Registry) Len() int {
	return len(r.order)
}
