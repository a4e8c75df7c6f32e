package metrics

import (
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	ipsecStatus   = gauge("fortigate_ipsec_status", "IPsec tunnel up/down status")
	ipsecInBytes  = counter("fortigate_ipsec_in_bytes", "IPsec incoming bytes")
	ipsecOutBytes = counter("fortigate_ipsec_out_bytes", "IPsec outgoing bytes")

	ipsecLabels = []string{"device", "tunnel"}
)

// A tunnel is up when its first phase 2 selector reports "up".
func transformIPsec(device string, results gjson.Result) ([]Sample, error) {
	if kind := kindOf(results); kind != kindList {
		return nil, fmt.Errorf("results is %s, want list of tunnels", kind)
	}

	var samples []Sample
	var err error
	results.ForEach(func(_, tunnel gjson.Result) bool {
		if kind := kindOf(tunnel); kind != kindObject {
			err = fmt.Errorf("tunnel entry is %s, want object", kind)
			return false
		}

		labels := []string{device, stringOr(tunnel.Get("name"), "unknown")}

		up := 0.0
		if proxy := tunnel.Get("proxyid"); proxy.IsArray() && proxy.Get("0.status").String() == "up" {
			up = 1
		}

		samples = append(samples,
			ipsecStatus.sample(ipsecLabels, labels, up),
			ipsecInBytes.sample(ipsecLabels, labels, tunnel.Get("incoming_bytes").Float()),
			ipsecOutBytes.sample(ipsecLabels, labels, tunnel.Get("outgoing_bytes").Float()),
		)
		return true
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}
