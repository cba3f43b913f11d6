// Package topology indexes the telescope's alignment hardware and resolves
// the parent of every device.
//
// The hierarchy, leaf first:
//
//	Actuator ─┐
//	          ├─> Panel ──> Mirror
//	Sensor ───┤
//	          └─> Edge ───> Mirror
//
// Panels, actuators and sensors (MPES) come from the mapping database.
// Edges and mirrors are derived from panel position codes: the leading
// digit of a position is its mirror, the trailing two digits its sector.
//
// A Loader reads rows from a RowSource into a fresh Store and seals it.
// A sealed Store never changes, so it can be shared between goroutines;
// reloading means building a new Store and swapping it in.
//
//	loader := topology.NewLoader(topology.NewSQLRowSource(db), topology.DefaultPanelAddressing())
//	result, err := loader.Load(ctx, []string{"1121", "1122"})
//	if err != nil {
//	    return err
//	}
//	parents, err := result.Store.Parents(topology.DeviceTypeSensor, sensor)
package topology
