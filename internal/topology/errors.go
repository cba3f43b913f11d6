package topology

import "errors"

// Domain errors for the topology package.
//
// Check them with errors.Is:
//
//	if errors.Is(err, topology.ErrLookup) {
//	    // index store is inconsistent with the request
//	}
var (
	// ErrDatabase is returned when the row source fails. A load that hits it
	// is abandoned as a whole.
	ErrDatabase = errors.New("topology: database error")

	// ErrLookup is returned by the resolver when a key it requires is missing
	// from the index store. This is distinct from the documented partial
	// topology where a sensor's l-panel is not deployed.
	ErrLookup = errors.New("topology: lookup failed")

	// ErrDeviceNotFound is returned by store accessors on a miss.
	ErrDeviceNotFound = errors.New("topology: device not found")

	// ErrInvalidPosition is returned when a requested position is not numeric.
	ErrInvalidPosition = errors.New("topology: invalid position")

	// ErrInvalidParentLink is returned when a parent encoding cannot be parsed.
	ErrInvalidParentLink = errors.New("topology: invalid parent link")

	// ErrInvalidEdge is returned when an edge name cannot be decomposed into panels.
	ErrInvalidEdge = errors.New("topology: invalid edge")

	// ErrInvalidDeviceType is returned when a device type name is not recognised.
	ErrInvalidDeviceType = errors.New("topology: invalid device type")

	// ErrStoreSealed is returned when inserting into a store after loading finished.
	ErrStoreSealed = errors.New("topology: store is sealed")
)
