package device

import (
	"testing"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

func TestDeviceValidate(t *testing.T) {
	validName, _ := types.NewDeviceName("fw1")

	tests := []struct {
		name    string
		device  Device
		wantErr bool
	}{
		{
			name: "valid device",
			device: Device{
				Name:      validName,
				Addresses: []string{"10.0.0.1", "fw1.example.com"},
				Port:      443,
				Token:     "secret",
			},
			wantErr: false,
		},
		{
			name: "invalid device name",
			device: Device{
				Name:      types.DeviceName("fw/1"),
				Addresses: []string{"10.0.0.1"},
				Port:      443,
				Token:     "secret",
			},
			wantErr: true,
		},
		{
			name: "no addresses",
			device: Device{
				Name:  validName,
				Port:  443,
				Token: "secret",
			},
			wantErr: true,
		},
		{
			name: "invalid address",
			device: Device{
				Name:      validName,
				Addresses: []string{"10.0.0.1", "not a host"},
				Port:      443,
				Token:     "secret",
			},
			wantErr: true,
		},
		{
			name: "missing token",
			device: Device{
				Name:      validName,
				Addresses: []string{"10.0.0.1"},
				Port:      443,
			},
			wantErr: true,
		},
		{
			name: "port out of range",
			device: Device{
				Name:      validName,
				Addresses: []string{"10.0.0.1"},
				Port:      70000,
				Token:     "secret",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.device.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Device.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeviceBaseURL(t *testing.T) {
	d := Device{Name: "fw1", Port: 8443}

	tests := []struct {
		address string
		want    string
	}{
		{"10.0.0.1", "https://10.0.0.1:8443"},
		{"fw1.example.com", "https://fw1.example.com:8443"},
		{"2001:db8::1", "https://[2001:db8::1]:8443"},
	}

	for _, tt := range tests {
		if got := d.BaseURL(tt.address); got != tt.want {
			t.Errorf("BaseURL(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry([]Device{
		{Name: "fw1", Addresses: []string{"10.0.0.1"}, Port: 443, Token: "a"},
		{Name: "fw2", Addresses: []string{"10.0.0.2"}, Port: 443, Token: "b"},
		{Name: "fw1", Addresses: []string{"10.0.0.9"}, Port: 8443, Token: "c"},
	})

	if r.Len() != 2 {
		t.Fatalf("expected 2 devices, got %d", r.Len())
	}

	devices := r.Devices()
	if devices[0].Name != "fw1" || devices[1].Name != "fw2" {
		t.Errorf("unexpected order: %v, %v", devices[0].Name, devices[1].Name)
	}

	fw1, ok := r.Get("fw1")
	if !ok {
		t.Fatal("expected fw1 to be present")
	}
	if fw1.Token != "c" || fw1.Port != 8443 {
		t.Errorf("expected last fw1 record to win, got %+v", fw1)
	}

	if _, ok := r.Get("fw3"); ok {
		t.Error("fw3 should not be present")
	}
}
