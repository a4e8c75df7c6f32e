package metrics

import (
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	interfaceLinkUp = gauge("fortigate_interface_link_up", "Interface link status")

	interfaceCounters = []struct {
		decl  Declaration
		field string
	}{
		{counter("fortigate_interface_rx_bytes", "Interface RX bytes"), "rx_bytes"},
		{counter("fortigate_interface_tx_bytes", "Interface TX bytes"), "tx_bytes"},
		{counter("fortigate_interface_rx_packets", "Interface RX packets"), "rx_packets"},
		{counter("fortigate_interface_tx_packets", "Interface TX packets"), "tx_packets"},
		{counter("fortigate_interface_rx_errors", "Interface RX errors"), "rx_errors"},
		{counter("fortigate_interface_tx_errors", "Interface TX errors"), "tx_errors"},
	}

	interfaceLabels = []string{"device", "interface", "alias", "mac", "ip"}
)

func transformInterface(device string, results gjson.Result) ([]Sample, error) {
	if kind := kindOf(results); kind != kindObject {
		return nil, fmt.Errorf("results is %s, want object of interfaces", kind)
	}

	var samples []Sample
	var err error
	results.ForEach(func(name, stats gjson.Result) bool {
		if kind := kindOf(stats); kind != kindObject {
			err = fmt.Errorf("interface %s is %s, want object", name.String(), kind)
			return false
		}

		labels := []string{
			device,
			name.String(),
			stringOr(stats.Get("alias"), ""),
			stringOr(stats.Get("mac"), ""),
			stringOr(stats.Get("ip"), "") + "/" + stringOr(stats.Get("mask"), "0"),
		}

		link := 0.0
		if stats.Get("link").Bool() {
			link = 1
		}
		samples = append(samples, interfaceLinkUp.sample(interfaceLabels, labels, link))

		for _, c := range interfaceCounters {
			samples = append(samples, c.decl.sample(interfaceLabels, labels, stats.Get(c.field).Float()))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}
