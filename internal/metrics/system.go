package metrics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

const systemPrefix = "fortigate_system"

var (
	systemLabels     = []string{"device"}
	systemCoreLabels = []string{"device", "cpu"}
)

// systemGauge derives the help text from the sanitized name, so raw keys that
// sanitize to the same name share one declaration.
func systemGauge(name types.MetricName) Declaration {
	return gauge(name.String(), "System metric "+strings.TrimPrefix(name.String(), systemPrefix+"_"))
}

// transformSystem names metrics after the keys the appliance reports.
// Numbers become one gauge each; lists of records become one gauge per
// numeric field with the list index as cpu label. Anything else is ignored.
func transformSystem(device string, results gjson.Result) ([]Sample, error) {
	if kind := kindOf(results); kind != kindObject {
		return nil, fmt.Errorf("results is %s, want object", kind)
	}

	var samples []Sample
	results.ForEach(func(key, value gjson.Result) bool {
		switch kindOf(value) {
		case kindNumber:
			decl := systemGauge(types.SanitizeMetricName(systemPrefix, key.String()))
			samples = append(samples, decl.sample(systemLabels, []string{device}, value.Num))

		case kindList:
			index := 0
			value.ForEach(func(_, record gjson.Result) bool {
				cpu := strconv.Itoa(index)
				index++
				if kindOf(record) != kindObject {
					return true
				}
				record.ForEach(func(field, v gjson.Result) bool {
					if kindOf(v) != kindNumber {
						return true
					}
					decl := systemGauge(types.SanitizeMetricName(systemPrefix, key.String(), field.String()))
					samples = append(samples, decl.sample(systemCoreLabels, []string{device, cpu}, v.Num))
					return true
				})
				return true
			})
		}
		return true
	})
	return samples, nil
}
