package types

import (
	"fmt"
	"strings"
)

// Category is one of the monitored FortiGate subsystems.
type Category string

const (
	CategoryBGP        Category = "bgp"
	CategoryIPsec      Category = "ipsec"
	CategoryInterface  Category = "interface"
	CategorySystem     Category = "system"
	CategoryVirtualWAN Category = "virtual-wan"
)

// StatusPath is the lightweight endpoint used as liveness probe.
const StatusPath = "/api/v2/monitor/system/status"

type categoryInfo struct {
	path   string
	dir    string
	prefix string
}

var categories = map[Category]categoryInfo{
	CategoryBGP:        {path: "/api/v2/cmdb/router/bgp", dir: "BGP", prefix: "bgp_status"},
	CategoryIPsec:      {path: "/api/v2/monitor/vpn/ipsec?scope=global", dir: "ipsec", prefix: "ipsec_status"},
	CategoryInterface:  {path: "/api/v2/monitor/system/interface", dir: "interface", prefix: "interface_stats"},
	CategorySystem:     {path: "/api/v2/monitor/system/resource/usage", dir: "system", prefix: "system_usage"},
	CategoryVirtualWAN: {path: "/api/v2/monitor/virtual-wan/health-check", dir: "virtual-wan", prefix: "virtual_wan_health"},
}

// Categories returns every category in a fixed order.
func Categories() []Category {
	return []Category{CategoryIPsec, CategoryBGP, CategoryInterface, CategorySystem, CategoryVirtualWAN}
}

// ParseCategory returns the category with the given name.
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown category: %q", name)
	}
	return c, nil
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	_, ok := categories[c]
	return ok
}

// Path is the API endpoint, including any query string.
func (c Category) Path() string {
	return categories[c].path
}

// Dir is the snapshot subdirectory.
func (c Category) Dir() string {
	return categories[c].dir
}

// FilePrefix is the snapshot file name prefix, without the trailing underscore.
func (c Category) FilePrefix() string {
	return categories[c].prefix
}

// FileName returns the snapshot file name for a device.
func (c Category) FileName(device DeviceName) string {
	return c.FilePrefix() + "_" + device.String() + ".json"
}

// DeviceFromFileName extracts the device name from a snapshot file name.
// ok is false for files that do not belong to the category.
func (c Category) DeviceFromFileName(fileName string) (DeviceName, bool) {
	prefix := c.FilePrefix() + "_"
	if !strings.HasPrefix(fileName, prefix) || !strings.HasSuffix(fileName, ".json") {
		return "", false
	}
	name := DeviceName(strings.TrimSuffix(strings.TrimPrefix(fileName, prefix), ".json"))
	if !name.IsValid() {
		return "", false
	}
	return name, true
}

func (c Category) String() string {
	return string(c)
}
