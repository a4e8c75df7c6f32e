package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/gjson"
)

// Declaration is the HELP and TYPE of a metric family.
type Declaration struct {
	Name string
	Help string
	Type prometheus.ValueType
}

// Sample is one derived value with its labels. LabelNames and LabelValues
// are parallel.
type Sample struct {
	Declaration
	LabelNames  []string
	LabelValues []string
	Value       float64
}

func gauge(name, help string) Declaration {
	return Declaration{Name: name, Help: help, Type: prometheus.GaugeValue}
}

func counter(name, help string) Declaration {
	return Declaration{Name: name, Help: help, Type: prometheus.CounterValue}
}

func (d Declaration) sample(labelNames, labelValues []string, value float64) Sample {
	return Sample{
		Declaration: d,
		LabelNames:  labelNames,
		LabelValues: labelValues,
		Value:       value,
	}
}

// descCache shares descriptors between the samples of one collection pass.
type descCache map[string]*prometheus.Desc

func (c descCache) get(s Sample) *prometheus.Desc {
	key := s.Name + "\xff" + s.Help + "\xff" + strings.Join(s.LabelNames, "\xff")
	if d, ok := c[key]; ok {
		return d
	}
	d := prometheus.NewDesc(s.Name, s.Help, s.LabelNames, nil)
	c[key] = d
	return d
}

func (s Sample) metric(descs descCache) prometheus.Metric {
	desc := descs.get(s)
	m, err := prometheus.NewConstMetric(desc, s.Type, s.Value, s.LabelValues...)
	if err != nil {
		return prometheus.NewInvalidMetric(desc, err)
	}
	return m
}

// valueKind is the shape of a JSON value as far as flattening cares.
type valueKind int

const (
	kindOther valueKind = iota
	kindNumber
	kindList
	kindObject
	kindAbsent
)

func kindOf(v gjson.Result) valueKind {
	switch {
	case !v.Exists():
		return kindAbsent
	case v.Type == gjson.Number:
		return kindNumber
	case v.IsArray():
		return kindList
	case v.IsObject():
		return kindObject
	}
	return kindOther
}

func (k valueKind) String() string {
	switch k {
	case kindNumber:
		return "number"
	case kindList:
		return "list"
	case kindObject:
		return "object"
	case kindAbsent:
		return "absent"
	}
	return "scalar"
}

// stringOr returns v as a string, or def when v is missing or null.
func stringOr(v gjson.Result, def string) string {
	if !v.Exists() || v.Type == gjson.Null {
		return def
	}
	return v.String()
}
