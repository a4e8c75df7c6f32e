package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/collector"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/store"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

// clearEnv unsets every variable the exporter reads for the duration of t.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "INVENTORY_FILE", "METRICS_DIR", "PORT", "PROBE_TIMEOUT",
		"FETCH_TIMEOUT", "MAX_CONCURRENT_DEVICES", "COLLECT_INTERVAL",
		"SCRAPE_RATE_LIMIT", "LOG_LEVEL", "LOG_FORMAT", "USE_TSNET",
		"TSNET_HOSTNAME", "TSNET_STATE_DIR", "TS_AUTHKEY", "HEALTH_CHECK_HOST",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{}
	cmd := a.rootCmd()
	cmd.Writer = &out
	err := cmd.Run(context.Background(), append([]string{name}, args...))
	return out.String(), err
}

func TestWriteSummary(t *testing.T) {
	fetched := map[types.Category]bool{}
	for _, category := range types.Categories() {
		fetched[category] = category != types.CategoryBGP
	}

	var buf bytes.Buffer
	writeSummary(&buf, []collector.Result{
		{Device: "fw1", Address: "10.0.0.1", Fetched: fetched, Duration: 1500 * time.Millisecond},
		{Device: "fw2", Duration: 3 * time.Second},
	})
	out := buf.String()

	for _, want := range []string{"DEVICE", "ADDRESS", "ipsec", "bgp", "fw1", "10.0.0.1", "ok", "empty", "1.5s", "fw2", "unreachable", "-"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in summary:\n%s", want, out)
		}
	}
}

func TestRenderCommand(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	s := store.New(dir)
	if err := s.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(types.CategoryBGP, "fw1", []byte(`{"results":[{"neighbor":"10.0.0.1","state":"Established"}]}`)); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--metrics-dir", dir, "render")
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if !strings.Contains(out, `fortigate_bgp_peer_up{device="fw1",peer="10.0.0.1"} 1`) {
		t.Errorf("Unexpected render output:\n%s", out)
	}
}

func TestRenderCommandCategoryFilter(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	s := store.New(dir)
	if err := s.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(types.CategoryBGP, "fw1", []byte(`{"results":[{"neighbor":"10.0.0.1","state":"Established"}]}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(types.CategorySystem, "fw1", []byte(`{"results":{"mem":30}}`)); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--metrics-dir", dir, "render", "--category", "System")
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if !strings.Contains(out, `fortigate_system_mem{device="fw1"} 30`) {
		t.Errorf("Expected system metrics, got:\n%s", out)
	}
	if strings.Contains(out, "fortigate_bgp_") {
		t.Errorf("Expected bgp to be filtered out, got:\n%s", out)
	}

	if _, err := run(t, "--metrics-dir", dir, "render", "--category", "ospf"); err == nil {
		t.Error("Expected error for unknown category")
	}
}

func TestConfigFileFromEnvironment(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	s := store.New(dir)
	if err := s.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(types.CategorySystem, "fw1", []byte(`{"results":{"mem":30}}`)); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "exporter.yaml")
	if err := os.WriteFile(path, []byte("metrics_dir: "+dir+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	out, err := run(t, "render")
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if !strings.Contains(out, `fortigate_system_mem{device="fw1"} 30`) {
		t.Errorf("Expected metrics dir from config file, got:\n%s", out)
	}
}

func TestRenderCommandMissingDirectory(t *testing.T) {
	clearEnv(t)

	out, err := run(t, "--metrics-dir", filepath.Join(t.TempDir(), "missing"), "render")
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if out != "" {
		t.Errorf("Expected empty exposition, got %q", out)
	}
}

func TestCollectCommandUnreachable(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROBE_TIMEOUT", "500ms")

	dir := t.TempDir()
	inv := filepath.Join(dir, "hosts.ini")
	content := "[fortigates]\nfw1 fortigate_ips=127.0.0.1 fortitoken=tok ansible_httpapi_port=1\n"
	if err := os.WriteFile(inv, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	metricsDir := filepath.Join(dir, "metrics")

	out, err := run(t, "--inventory", inv, "--metrics-dir", metricsDir, "collect", "--summary")
	if err != nil {
		t.Fatalf("collect error = %v", err)
	}
	if !strings.Contains(out, "fw1") || !strings.Contains(out, "unreachable") {
		t.Errorf("Expected unreachable device in summary:\n%s", out)
	}

	for _, category := range types.Categories() {
		if _, err := os.Stat(filepath.Join(metricsDir, category.Dir())); err != nil {
			t.Errorf("Expected %s directory to be created: %v", category, err)
		}
	}
	if names, _ := store.New(metricsDir).List(types.CategorySystem); len(names) != 0 {
		t.Errorf("Expected no snapshots for unreachable device, got %v", names)
	}
}

func TestCollectCommandErrors(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	inv := filepath.Join(dir, "hosts.ini")
	if err := os.WriteFile(inv, []byte("fw1 fortigate_ips=127.0.0.1 fortitoken=tok\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"missing inventory", []string{"--inventory", filepath.Join(dir, "missing.ini"), "--metrics-dir", dir, "collect"}},
		{"unknown device", []string{"--inventory", inv, "--metrics-dir", dir, "collect", "--device", "fw9"}},
		{"invalid log level", []string{"--log-level", "verbose", "collect"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestPerformHealthCheck(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	if err := performHealthCheck(context.Background(), ok.URL+"/livez"); err != nil {
		t.Errorf("Expected healthy server, got %v", err)
	}
	if err := performHealthCheck(context.Background(), down.URL+"/livez"); err == nil {
		t.Error("Expected error for unhealthy server")
	}
}
