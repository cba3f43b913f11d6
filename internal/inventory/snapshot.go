package inventory

import (
	"errors"
	"sort"

	"github.com/nerrad567/pas-client-core/internal/topology"
)

// Device is one device of a topology snapshot with its resolved parents.
type Device struct {
	Type     topology.DeviceType `json:"-"`
	TypeName string              `json:"type"`
	Identity topology.Identity   `json:"identity"`

	// Link is the stored panel attachment of actuators and sensors, in
	// its string form ("1121", "w1121l1122").
	Link    *topology.ParentLink `json:"link,omitempty"`
	Parents []Parent             `json:"parents"`
}

// Parent is a resolved parent in wire form.
type Parent struct {
	Type     string            `json:"type"`
	Identity topology.Identity `json:"identity"`
}

// Snapshot is the full device inventory of one load, including the edges
// and mirrors derived from the loaded panels.
type Snapshot struct {
	LoadID  string
	Skipped []string
	Devices []Device
}

// Count returns the number of devices of type t in the snapshot.
func (s *Snapshot) Count(t topology.DeviceType) int {
	n := 0
	for _, d := range s.Devices {
		if d.Type == t {
			n++
		}
	}
	return n
}

// Take resolves every device of a load. Devices whose parents cannot be
// resolved are still listed, without parents; the resolution errors are
// returned joined.
func Take(result *topology.LoadResult) (*Snapshot, error) {
	store := result.Store
	snap := &Snapshot{
		LoadID:  result.ID,
		Skipped: append([]string(nil), result.Skipped...),
	}

	var errs []error
	edges := make(map[string]topology.Identity)
	mirrors := make(map[int]topology.Identity)

	add := func(t topology.DeviceType, id topology.Identity) {
		parents, err := store.Parents(t, id)
		if err != nil {
			errs = append(errs, err)
		}
		d := Device{Type: t, TypeName: t.String(), Identity: id, Parents: make([]Parent, 0, len(parents))}
		if t == topology.DeviceTypeActuator || t == topology.DeviceTypeSensor {
			link, err := store.ParentLink(t, id.SerialNumber)
			if err != nil {
				errs = append(errs, err)
			} else {
				d.Link = &link
			}
		}
		for _, p := range parents {
			d.Parents = append(d.Parents, Parent{Type: p.Type.String(), Identity: p.Identity})
			switch p.Type {
			case topology.DeviceTypeEdge:
				edges[p.Identity.Address] = p.Identity
			case topology.DeviceTypeMirror:
				mirrors[p.Identity.Position] = p.Identity
			}
		}
		snap.Devices = append(snap.Devices, d)
	}

	for _, t := range []topology.DeviceType{topology.DeviceTypePanel, topology.DeviceTypeActuator, topology.DeviceTypeSensor} {
		for _, id := range store.Devices(t) {
			add(t, id)
		}
	}

	for _, addr := range sortedKeys(edges) {
		add(topology.DeviceTypeEdge, edges[addr])
	}

	mirrorKeys := make([]int, 0, len(mirrors))
	for m := range mirrors {
		mirrorKeys = append(mirrorKeys, m)
	}
	sort.Ints(mirrorKeys)
	for _, m := range mirrorKeys {
		add(topology.DeviceTypeMirror, mirrors[m])
	}

	return snap, errors.Join(errs...)
}

func sortedKeys(m map[string]topology.Identity) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
