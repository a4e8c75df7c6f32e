package metrics

import (
	"github.com/DarkTangent01/fortigate-prometheus-exporter/internal/types"
)

// SnapshotSource lists and reads stored snapshots. Read reports a missing
// snapshot with store.ErrNotFound.
type SnapshotSource interface {
	List(category types.Category) ([]types.DeviceName, error)
	Read(category types.Category, device types.DeviceName) ([]byte, error)
}
