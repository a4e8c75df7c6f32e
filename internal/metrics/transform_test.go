package metrics

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	fgerrors "github.com/DarkTangent01/fortigate-prometheus-exporter/internal/errors"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

var prometheusName = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// find returns the sample with the given name whose label values match
// labels, given as name=value pairs.
func find(t *testing.T, samples []Sample, name string, labels ...string) Sample {
	t.Helper()
	for _, s := range samples {
		if s.Name != name || !hasLabels(s, labels) {
			continue
		}
		return s
	}
	t.Fatalf("no sample %s%v in %v", name, labels, names(samples))
	return Sample{}
}

func hasLabels(s Sample, labels []string) bool {
	for _, pair := range labels {
		key, value, _ := strings.Cut(pair, "=")
		found := false
		for i, n := range s.LabelNames {
			if n == key && s.LabelValues[i] == value {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func names(samples []Sample) []string {
	out := make([]string, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.Name+"{"+strings.Join(s.LabelValues, ",")+"}")
	}
	return out
}

func transform(t *testing.T, category types.Category, doc string) []Sample {
	t.Helper()
	samples, err := Transform(category, "fw1", []byte(doc))
	if err != nil {
		t.Fatalf("Transform(%s) error = %v", category, err)
	}
	return samples
}

func TestTransformIPsec(t *testing.T) {
	samples := transform(t, types.CategoryIPsec,
		`{"results":[{"name":"vpn1","proxyid":[{"status":"up"}],"incoming_bytes":100,"outgoing_bytes":50}]}`)

	if len(samples) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(samples))
	}

	tests := []struct {
		name  string
		value float64
		typ   prometheus.ValueType
	}{
		{"fortigate_ipsec_status", 1, prometheus.GaugeValue},
		{"fortigate_ipsec_in_bytes", 100, prometheus.CounterValue},
		{"fortigate_ipsec_out_bytes", 50, prometheus.CounterValue},
	}
	for _, tt := range tests {
		s := find(t, samples, tt.name, "device=fw1", "tunnel=vpn1")
		if s.Value != tt.value {
			t.Errorf("%s = %v, want %v", tt.name, s.Value, tt.value)
		}
		if s.Type != tt.typ {
			t.Errorf("%s type = %v, want %v", tt.name, s.Type, tt.typ)
		}
	}
}

func TestTransformIPsecDefaults(t *testing.T) {
	samples := transform(t, types.CategoryIPsec, `{"results":[
		{"proxyid":[]},
		{"name":"vpn2","proxyid":[{"status":"down"},{"status":"up"}]},
		{"name":"vpn3","proxyid":[{"status":"UP"}]}
	]}`)

	if s := find(t, samples, "fortigate_ipsec_status", "tunnel=unknown"); s.Value != 0 {
		t.Errorf("Expected empty proxy list to be down, got %v", s.Value)
	}
	if s := find(t, samples, "fortigate_ipsec_in_bytes", "tunnel=unknown"); s.Value != 0 {
		t.Errorf("Expected missing byte counter to default to 0, got %v", s.Value)
	}
	if s := find(t, samples, "fortigate_ipsec_status", "tunnel=vpn2"); s.Value != 0 {
		t.Errorf("Expected only the first proxy entry to count, got %v", s.Value)
	}
	if s := find(t, samples, "fortigate_ipsec_status", "tunnel=vpn3"); s.Value != 0 {
		t.Errorf("Expected tunnel status match to be exact, got %v", s.Value)
	}
}

func TestTransformBGP(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want map[string]float64
	}{
		{
			name: "list of peers",
			doc:  `{"results":[{"neighbor":"10.0.0.1","state":"Established"}]}`,
			want: map[string]float64{"10.0.0.1": 1},
		},
		{
			name: "ip fallback and unknown",
			doc:  `{"results":[{"ip":"10.0.0.2","state":"Idle"},{"state":"ESTABLISHED"}]}`,
			want: map[string]float64{"10.0.0.2": 0, "unknown": 1},
		},
		{
			name: "neighbor preferred over ip",
			doc:  `{"results":[{"neighbor":"10.0.0.3","ip":"192.0.2.3","state":"established"}]}`,
			want: map[string]float64{"10.0.0.3": 1},
		},
		{
			name: "mapping of peers",
			doc:  `{"results":{"peers":{"10.1.0.1":{"state":"Established"},"10.1.0.2":{"state":"Active","neighbor":"peer-b"}}}}`,
			want: map[string]float64{"10.1.0.1": 1, "peer-b": 0},
		},
		{
			name: "list under peers",
			doc:  `{"results":{"peers":[{"ip":"10.2.0.1","state":"established"}]}}`,
			want: map[string]float64{"10.2.0.1": 1},
		},
		{
			name: "configuration without peers",
			doc:  `{"results":{"as":65001,"router-id":"10.0.0.254"}}`,
			want: map[string]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := transform(t, types.CategoryBGP, tt.doc)
			if len(samples) != len(tt.want) {
				t.Fatalf("Expected %d samples, got %v", len(tt.want), names(samples))
			}
			for peer, value := range tt.want {
				s := find(t, samples, "fortigate_bgp_peer_up", "device=fw1", "peer="+peer)
				if s.Value != value {
					t.Errorf("peer %s = %v, want %v", peer, s.Value, value)
				}
			}
		})
	}
}

func TestTransformInterface(t *testing.T) {
	samples := transform(t, types.CategoryInterface, `{"results":{
		"port1":{"alias":"wan","mac":"00:09:0f:00:00:01","ip":"198.51.100.2","mask":24,"link":true,
		         "rx_bytes":1000,"tx_bytes":2000,"rx_packets":10,"tx_packets":20,"rx_errors":1,"tx_errors":2},
		"port2":{"link":false}
	}}`)

	if len(samples) != 14 {
		t.Fatalf("Expected 7 samples per interface, got %d", len(samples))
	}

	port1 := []string{"interface=port1", "alias=wan", "mac=00:09:0f:00:00:01", "ip=198.51.100.2/24"}
	want := map[string]float64{
		"fortigate_interface_link_up":    1,
		"fortigate_interface_rx_bytes":   1000,
		"fortigate_interface_tx_bytes":   2000,
		"fortigate_interface_rx_packets": 10,
		"fortigate_interface_tx_packets": 20,
		"fortigate_interface_rx_errors":  1,
		"fortigate_interface_tx_errors":  2,
	}
	for name, value := range want {
		if s := find(t, samples, name, port1...); s.Value != value {
			t.Errorf("%s = %v, want %v", name, s.Value, value)
		}
	}

	port2 := find(t, samples, "fortigate_interface_link_up", "interface=port2", "alias=", "mac=", "ip=/0")
	if port2.Value != 0 {
		t.Errorf("Expected port2 link down, got %v", port2.Value)
	}
	if s := find(t, samples, "fortigate_interface_rx_bytes", "interface=port2"); s.Value != 0 {
		t.Errorf("Expected missing counters to be 0, got %v", s.Value)
	}
}

func TestTransformSystem(t *testing.T) {
	samples := transform(t, types.CategorySystem, `{"results":{
		"cpu":[{"user":10},{"user":20}],
		"mem":42.5,
		"disk":"n/a",
		"ha":true,
		"session":[{"current":7,"historical":{"1-min":[1,2]}}],
		"cores":[1,{"idle":90}],
		"npu-load":3
	}}`)

	cases := []struct {
		name   string
		labels []string
		value  float64
	}{
		{"fortigate_system_cpu_user", []string{"device=fw1", "cpu=0"}, 10},
		{"fortigate_system_cpu_user", []string{"device=fw1", "cpu=1"}, 20},
		{"fortigate_system_mem", []string{"device=fw1"}, 42.5},
		{"fortigate_system_session_current", []string{"cpu=0"}, 7},
		{"fortigate_system_cores_idle", []string{"cpu=1"}, 90},
		{"fortigate_system_npu_load", []string{"device=fw1"}, 3},
	}
	for _, c := range cases {
		if s := find(t, samples, c.name, c.labels...); s.Value != c.value {
			t.Errorf("%s%v = %v, want %v", c.name, c.labels, s.Value, c.value)
		}
	}

	if len(samples) != len(cases) {
		t.Errorf("Expected strings, booleans and nested objects to be skipped, got %v", names(samples))
	}

	mem := find(t, samples, "fortigate_system_mem")
	if mem.Help != "System metric mem" || mem.Type != prometheus.GaugeValue {
		t.Errorf("unexpected declaration %+v", mem.Declaration)
	}
	user := find(t, samples, "fortigate_system_cpu_user")
	if user.Help != "System metric cpu_user" {
		t.Errorf("unexpected help %q", user.Help)
	}
}

func TestTransformVirtualWAN(t *testing.T) {
	samples := transform(t, types.CategoryVirtualWAN, `{"results":{
		"sla_internet":{
			"wan1":{"status":"up","latency":12.5,"jitter":1.2,"packet_loss":0,"packet_sent":100,"packet_received":99,"session":4,"state":"alive"},
			"wan2":{"status":"Down"}
		},
		"sla_disabled":"none",
		"sla_partial":{"wan3":7}
	}}`)

	wan1 := []string{"device=fw1", "sla=sla_internet", "link=wan1"}
	if s := find(t, samples, "fortigate_virtual_wan_status", wan1...); s.Value != 1 {
		t.Errorf("Expected wan1 up, got %v", s.Value)
	}
	if s := find(t, samples, "fortigate_virtual_wan_status", "link=wan2"); s.Value != 0 {
		t.Errorf("Expected wan2 down, got %v", s.Value)
	}

	sent := find(t, samples, "fortigate_virtual_wan_packet_sent", wan1...)
	if sent.Value != 100 || sent.Type != prometheus.CounterValue {
		t.Errorf("unexpected packet_sent sample %+v", sent)
	}
	latency := find(t, samples, "fortigate_virtual_wan_latency", wan1...)
	if latency.Value != 12.5 || latency.Type != prometheus.GaugeValue || latency.Help != "SD-WAN latency ms" {
		t.Errorf("unexpected latency sample %+v", latency)
	}
	session := find(t, samples, "fortigate_virtual_wan_session", wan1...)
	if session.Value != 4 || session.Type != prometheus.GaugeValue {
		t.Errorf("unexpected session sample %+v", session)
	}

	// status, latency, jitter, packet_loss, packet_sent, packet_received, session + wan2 status
	if len(samples) != 8 {
		t.Errorf("Expected 8 samples, got %v", names(samples))
	}
}

func TestTransformEmptySnapshot(t *testing.T) {
	for _, category := range types.Categories() {
		for _, doc := range []string{`{}`, `{"results":null}`, `{"status":"error","http_status":401}`} {
			samples, err := Transform(category, "fw1", []byte(doc))
			if err != nil || len(samples) != 0 {
				t.Errorf("Transform(%s, %s) = %v, %v; want no samples and no error", category, doc, samples, err)
			}
		}
	}
}

func TestTransformMalformed(t *testing.T) {
	tests := []struct {
		category types.Category
		doc      string
	}{
		{types.CategoryIPsec, `{"results":`},
		{types.CategoryIPsec, `[]`},
		{types.CategoryIPsec, `{"results":{"name":"vpn1"}}`},
		{types.CategoryIPsec, `{"results":[{"name":"vpn1"},"vpn2"]}`},
		{types.CategoryBGP, `{"results":"none"}`},
		{types.CategoryBGP, `{"results":{"peers":5}}`},
		{types.CategoryBGP, `{"results":[["10.0.0.1"]]}`},
		{types.CategoryInterface, `{"results":[]}`},
		{types.CategoryInterface, `{"results":{"port1":1}}`},
		{types.CategorySystem, `{"results":[1,2]}`},
		{types.CategoryVirtualWAN, `{"results":[]}`},
	}

	for _, tt := range tests {
		samples, err := Transform(tt.category, "fw1", []byte(tt.doc))
		if samples != nil {
			t.Errorf("Transform(%s, %s) returned samples for malformed input", tt.category, tt.doc)
		}

		var snapErr fgerrors.SnapshotError
		if !errors.As(err, &snapErr) || !errors.Is(err, fgerrors.ErrMalformedSnapshot) {
			t.Errorf("Transform(%s, %s) error = %v, want SnapshotError", tt.category, tt.doc, err)
			continue
		}
		if snapErr.Category != tt.category.String() || snapErr.DeviceName != "fw1" {
			t.Errorf("unexpected error context %+v", snapErr)
		}
	}
}

func TestTransformUnknownCategory(t *testing.T) {
	if _, err := Transform("dns", "fw1", []byte(`{}`)); err == nil {
		t.Error("Expected error for unknown category")
	}
}

func TestSanitizedDynamicNames(t *testing.T) {
	samples := transform(t, types.CategorySystem, `{"results":{"disk.usage%":5,"ha-sync":[{"lag ms":3}]}}`)

	find(t, samples, "fortigate_system_disk_usage_")
	find(t, samples, "fortigate_system_ha_sync_lag_ms", "cpu=0")

	for _, s := range samples {
		if !prometheusName.MatchString(s.Name) {
			t.Errorf("invalid metric name %q", s.Name)
		}
	}
}
