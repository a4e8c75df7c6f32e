package metrics

import (
	"fmt"

	"github.com/tidwall/gjson"

	fgerrors "github.com/DarkTangent01/fortigate-prometheus-exporter/internal/errors"
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

// transformer maps the "results" member of a snapshot to samples. A non-nil
// error means the whole snapshot is unusable.
type transformer func(device string, results gjson.Result) ([]Sample, error)

var transformers = map[types.Category]transformer{
	types.CategoryIPsec:      transformIPsec,
	types.CategoryBGP:        transformBGP,
	types.CategoryInterface:  transformInterface,
	types.CategorySystem:     transformSystem,
	types.CategoryVirtualWAN: transformVirtualWAN,
}

// Transform derives the samples of one snapshot. It either returns every
// sample of the document or a *SnapshotError and none.
//
// A document without results, such as the empty object stored after a
// failed fetch, yields no samples and no error.
func Transform(category types.Category, device types.DeviceName, doc []byte) ([]Sample, error) {
	fn, ok := transformers[category]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	malformed := func(reason string) error {
		return fgerrors.SnapshotError{Category: category.String(), DeviceName: device.String(), Reason: reason}
	}

	if !gjson.ValidBytes(doc) {
		return nil, malformed("invalid JSON")
	}
	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		return nil, malformed("document is not an object")
	}

	results := root.Get("results")
	if !results.Exists() || results.Type == gjson.Null {
		return nil, nil
	}

	samples, err := fn(device.String(), results)
	if err != nil {
		return nil, malformed(err.Error())
	}
	return samples, nil
}
