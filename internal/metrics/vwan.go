package metrics

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

const virtualWANPrefix = "fortigate_virtual_wan"

var (
	virtualWANStatus = gauge("fortigate_virtual_wan_status", "SD-WAN link status")

	// Health-check fields with a known meaning. Other numeric fields are
	// exported as gauges with a generic help text.
	virtualWANFields = map[string]Declaration{
		"latency":         gauge("fortigate_virtual_wan_latency", "SD-WAN latency ms"),
		"jitter":          gauge("fortigate_virtual_wan_jitter", "SD-WAN jitter ms"),
		"packet_loss":     gauge("fortigate_virtual_wan_packet_loss", "SD-WAN packet loss percent"),
		"packet_sent":     counter("fortigate_virtual_wan_packet_sent", "SD-WAN packets sent"),
		"packet_received": counter("fortigate_virtual_wan_packet_received", "SD-WAN packets received"),
	}

	virtualWANLabels = []string{"device", "sla", "link"}
)

// virtualWANField resolves a field by its sanitized name, so "packet-loss"
// and "packet_loss" map to the same declaration.
func virtualWANField(field string) Declaration {
	name := types.SanitizeMetricName(virtualWANPrefix, field).String()
	suffix := strings.TrimPrefix(name, virtualWANPrefix+"_")
	if d, ok := virtualWANFields[suffix]; ok {
		return d
	}
	return gauge(name, "SD-WAN health-check "+suffix)
}

// transformVirtualWAN walks SLA name -> member link -> stats. SLAs and links
// that are not objects are skipped.
func transformVirtualWAN(device string, results gjson.Result) ([]Sample, error) {
	if kind := kindOf(results); kind != kindObject {
		return nil, fmt.Errorf("results is %s, want object of SLAs", kind)
	}

	var samples []Sample
	results.ForEach(func(sla, links gjson.Result) bool {
		if kindOf(links) != kindObject {
			return true
		}
		links.ForEach(func(link, stats gjson.Result) bool {
			if kindOf(stats) != kindObject {
				return true
			}
			labels := []string{device, sla.String(), link.String()}

			up := 0.0
			if strings.ToLower(stats.Get("status").String()) == "up" {
				up = 1
			}
			samples = append(samples, virtualWANStatus.sample(virtualWANLabels, labels, up))

			stats.ForEach(func(field, v gjson.Result) bool {
				if field.String() == "status" || kindOf(v) != kindNumber {
					return true
				}
				samples = append(samples, virtualWANField(field.String()).sample(virtualWANLabels, labels, v.Num))
				return true
			})
			return true
		})
		return true
	})
	return samples, nil
}
