// Package types provides core domain types and validation utilities for the exporter.
// This package defines fundamental types like DeviceName, MetricName and Category
// along with their validation logic and error definitions.
package types

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// DeviceName represents the inventory name of a FortiGate appliance.
type DeviceName string

// MetricName represents a Prometheus metric name.
type MetricName string

var (
	// ErrInvalidDeviceName is returned when a device name is invalid.
	ErrInvalidDeviceName = errors.New("invalid device name")
	// ErrInvalidAddress is returned when a candidate address is invalid.
	ErrInvalidAddress = errors.New("invalid address")

	deviceNameRegex  = regexp.MustCompile(`^[a-zA-Z0-9\-._]+$`)
	invalidMetricRun = regexp.MustCompile(`[^a-zA-Z0-9_:]`)
	hostnameRegex    = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)
)

// NewDeviceName creates a new DeviceName with validation.
// Device names end up in snapshot file names, so path separators and the
// relative directory names are rejected.
func NewDeviceName(name string) (DeviceName, error) {
	if name == "" {
		return "", fmt.Errorf("device name cannot be empty")
	}
	if len(name) > 253 {
		return "", fmt.Errorf("device name too long: %d characters", len(name))
	}
	if name == "." || name == ".." || !deviceNameRegex.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDeviceName, name)
	}
	return DeviceName(name), nil
}

// IsValid checks if the DeviceName meets validation requirements.
func (d DeviceName) IsValid() bool {
	return len(d) > 0 && len(d) <= 253 && d != "." && d != ".." && deviceNameRegex.MatchString(string(d))
}

func (d DeviceName) String() string {
	return string(d)
}

// SanitizeMetricName builds a metric name from a prefix and data-derived parts.
// Runes outside the Prometheus name alphabet become underscores.
func SanitizeMetricName(prefix string, parts ...string) MetricName {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte('_')
		b.WriteString(invalidMetricRun.ReplaceAllString(p, "_"))
	}
	return MetricName(b.String())
}

func (m MetricName) String() string {
	return string(m)
}

// ValidateAddress validates a candidate management address.
// Appliances are usually reached on private management networks, so private
// and loopback IPs are accepted.
func ValidateAddress(address string) error {
	if len(address) == 0 {
		return fmt.Errorf("%w: address cannot be empty", ErrInvalidAddress)
	}
	if len(address) > 253 {
		return fmt.Errorf("%w: address too long: %d characters", ErrInvalidAddress, len(address))
	}

	if ip := net.ParseIP(address); ip != nil {
		if ip.IsUnspecified() {
			return fmt.Errorf("%w: unspecified IP %s", ErrInvalidAddress, address)
		}
		return nil
	}

	if !hostnameRegex.MatchString(address) {
		return fmt.Errorf("%w: invalid hostname format: %s", ErrInvalidAddress, address)
	}

	return nil
}
