package inventory

import (
	"time"

	"github.com/nerrad567/pas-client-core/internal/topology"
)

// Measurements written by the Recorder.
const (
	MeasurementInventory = "topology_inventory"
	MeasurementLoad      = "topology_load"
)

// PointWriter queues time-series points. *influxdb.Client implements it.
type PointWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// Recorder writes device counts per type for every load, so changes in the
// installed hardware show up as a time series.
type Recorder struct {
	w         PointWriter
	telescope string
	now       func() time.Time
}

// NewRecorder creates a recorder tagging points with the telescope id.
func NewRecorder(w PointWriter, telescope string) *Recorder {
	return &Recorder{w: w, telescope: telescope, now: time.Now}
}

// Record writes one inventory point per device type and one load point,
// all with the same timestamp.
func (r *Recorder) Record(snap *Snapshot) {
	ts := r.now()
	for _, t := range topology.AllDeviceTypes {
		r.w.WritePointWithTime(MeasurementInventory,
			map[string]string{"telescope": r.telescope, "device_type": t.String()},
			map[string]any{"count": snap.Count(t)},
			ts)
	}
	r.w.WritePointWithTime(MeasurementLoad,
		map[string]string{"telescope": r.telescope},
		map[string]any{
			"load_id": snap.LoadID,
			"devices": len(snap.Devices),
			"skipped": len(snap.Skipped),
		},
		ts)
}
