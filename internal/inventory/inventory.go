// Package inventory reads the device inventory file into a device registry.
//
// The file is line oriented. Each record is a device name followed by
// key=value pairs:
//
//	[fortigates]
//	fw-branch1 fortigate_ips=10.0.0.1,192.0.2.10 fortitoken=abc123 ansible_httpapi_port=8443
//
// Blank lines, comments and section headers are ignored. Records without
// addresses or token are dropped.
package inventory

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/pkg/device"
)

// Inventory keys.
const (
	KeyAddresses = "fortigate_ips"
	KeyToken     = "fortitoken"
	KeyPort      = "ansible_httpapi_port"
)

// Load opens path and parses it. An unreadable file is an error; malformed
// records are not.
func Load(path string) (*device.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening inventory: %w", err)
	}
	defer f.Close()

	devices, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading inventory %s: %w", path, err)
	}
	return device.NewRegistry(devices), nil
}

// Parse reads records from r in file order.
func Parse(r io.Reader) ([]device.Device, error) {
	var devices []device.Device
	seen := make(map[types.DeviceName]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "[") {
			continue
		}

		d, err := parseRecord(line)
		if err != nil {
			slog.Warn("skipping inventory record", "line", lineNo, "error", err)
			continue
		}
		if seen[d.Name] {
			slog.Warn("duplicate inventory record, last one wins", "device", d.Name, "line", lineNo)
		}
		seen[d.Name] = true
		devices = append(devices, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

func parseRecord(line string) (device.Device, error) {
	fields := strings.Fields(line)

	name, err := types.NewDeviceName(fields[0])
	if err != nil {
		return device.Device{}, err
	}

	params := make(map[string]string, len(fields)-1)
	for _, field := range fields[1:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		params[key] = value
	}

	d := device.Device{
		Name:      name,
		Addresses: splitAddresses(params[KeyAddresses]),
		Token:     params[KeyToken],
		Port:      device.DefaultPort,
	}

	if v, ok := params[KeyPort]; ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return device.Device{}, fmt.Errorf("device %s: invalid port %q", name, v)
		}
		d.Port = port
	}

	if err := d.Validate(); err != nil {
		return device.Device{}, err
	}
	return d, nil
}

func splitAddresses(v string) []string {
	var out []string
	for _, addr := range strings.Split(v, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
