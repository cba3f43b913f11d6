package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gopcua/opcua/ua"

	"github.com/nerrad567/pas-client-core/internal/inventory"
	"github.com/nerrad567/pas-client-core/internal/topology"
)

// handleTopologySummary returns device counts of the current snapshot.
func (s *Server) handleTopologySummary(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot.Load()
	if snap == nil {
		writeUnavailable(w, "topology not loaded")
		return
	}

	counts := make(map[string]int, len(topology.AllDeviceTypes))
	for _, t := range topology.AllDeviceTypes {
		counts[t.String()] = snap.Count(t)
	}

	skipped := snap.Skipped
	if skipped == nil {
		skipped = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"load_id": snap.LoadID,
		"servers": s.topology.GetServers(),
		"counts":  counts,
		"skipped": skipped,
	})
}

// handleListDevices lists the snapshot's devices of one type.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	t, ok := deviceTypeParam(w, r)
	if !ok {
		return
	}
	snap := s.snapshot.Load()
	if snap == nil {
		writeUnavailable(w, "topology not loaded")
		return
	}

	devices := make([]inventory.Device, 0, snap.Count(t))
	for _, d := range snap.Devices {
		if d.Type == t {
			devices = append(devices, d)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type":    t.String(),
		"load_id": snap.LoadID,
		"count":   len(devices),
		"devices": devices,
	})
}

// handleGetDevice returns one device of the snapshot with its parents.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.deviceParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleGetParents resolves a device's parents against the live store.
func (s *Server) handleGetParents(w http.ResponseWriter, r *http.Request) {
	d, ok := s.deviceParam(w, r)
	if !ok {
		return
	}

	parents, err := s.topology.GetParents(d.Type, d.Identity)
	if err != nil {
		writeTopologyError(w, err)
		return
	}

	out := make([]inventory.Parent, 0, len(parents))
	for _, p := range parents {
		out = append(out, inventory.Parent{Type: p.Type.String(), Identity: p.Identity})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":     d.TypeName,
		"identity": d.Identity,
		"parents":  out,
	})
}

// handleGetPosition returns the position of a device by serial number.
func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	t, ok := deviceTypeParam(w, r)
	if !ok {
		return
	}
	serial, err := strconv.Atoi(chi.URLParam(r, "key"))
	if err != nil {
		writeBadRequest(w, "serial must be an integer")
		return
	}

	position, err := s.topology.GetDevicePosition(t, serial)
	if err != nil {
		writeTopologyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":     t.String(),
		"serial":   serial,
		"position": position,
	})
}

// handleLookupSerial finds the device on a panel port:
// GET /topology/ACT/lookup?panel=opc.tcp://172.17.1.21:4840&port=1
func (s *Server) handleLookupSerial(w http.ResponseWriter, r *http.Request) {
	t, ok := deviceTypeParam(w, r)
	if !ok {
		return
	}

	panel := r.URL.Query().Get("panel")
	if panel == "" {
		writeBadRequest(w, "panel is required")
		return
	}
	port, err := strconv.Atoi(r.URL.Query().Get("port"))
	if err != nil {
		writeBadRequest(w, "port must be an integer")
		return
	}

	serial, err := s.topology.GetDeviceSerial(t, panel, port)
	if err != nil {
		writeTopologyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":   t.String(),
		"panel":  panel,
		"port":   port,
		"serial": serial,
	})
}

// handleReload repeats the last device load. A failed reload leaves the
// previous topology in place. Reloads from here and from MQTT are
// serialised by the Topology.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.topology.Reload(r.Context()); err != nil {
		s.logger.Error("topology reload failed", "error", err)
		writeTopologyError(w, err)
		return
	}

	loadID := s.topology.LoadID()
	s.logger.Info("topology reloaded over HTTP", "load_id", loadID)
	writeJSON(w, http.StatusOK, map[string]any{"load_id": loadID})
}

type writeNode struct {
	Node  string `json:"node"`
	Value any    `json:"value"`
}

// handleConnection returns the OPC UA connection settings in use.
func (s *Server) handleConnection(w http.ResponseWriter, _ *http.Request) {
	conn := s.topology.Connection()

	writes := make([]writeNode, 0, len(conn.NodesToWrite))
	for i, n := range conn.NodesToWrite {
		wn := writeNode{Node: nodeString(n)}
		if i < len(conn.WriteValues) && conn.WriteValues[i] != nil {
			wn.Value = conn.WriteValues[i].Value()
		}
		writes = append(writes, wn)
	}

	namespaces := conn.NamespaceArray
	if namespaces == nil {
		namespaces = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"application_name":      conn.ApplicationName,
		"discovery_url":         conn.DiscoveryURL,
		"positioner_url":        conn.PositionerURL,
		"automatic_reconnect":   conn.AutomaticReconnect,
		"retry_initial_connect": conn.RetryInitialConnect,
		"namespaces":            namespaces,
		"nodes_to_read":         nodeStrings(conn.NodesToRead),
		"nodes_to_monitor":      nodeStrings(conn.NodesToMonitor),
		"nodes_to_write":        writes,
	})
}

// deviceTypeParam parses the {type} URL parameter, writing a 400 on failure.
func deviceTypeParam(w http.ResponseWriter, r *http.Request) (topology.DeviceType, bool) {
	t, err := topology.ParseDeviceType(chi.URLParam(r, "type"))
	if err != nil {
		writeTopologyError(w, err)
		return 0, false
	}
	return t, true
}

// deviceParam finds the snapshot device named by {type} and {key}.
// Edges are keyed by name with either "+" or "-" between panels, mirrors
// by number, everything else by serial.
func (s *Server) deviceParam(w http.ResponseWriter, r *http.Request) (inventory.Device, bool) {
	t, ok := deviceTypeParam(w, r)
	if !ok {
		return inventory.Device{}, false
	}
	snap := s.snapshot.Load()
	if snap == nil {
		writeUnavailable(w, "topology not loaded")
		return inventory.Device{}, false
	}

	key := chi.URLParam(r, "key")
	match := func(id topology.Identity) bool { return id.Address == key }
	switch t {
	case topology.DeviceTypeEdge:
		key = strings.ReplaceAll(key, "-", "+")
	case topology.DeviceTypeMirror:
	default:
		serial, err := strconv.Atoi(key)
		if err != nil {
			writeBadRequest(w, "serial must be an integer")
			return inventory.Device{}, false
		}
		match = func(id topology.Identity) bool { return id.SerialNumber == serial }
	}

	for _, d := range snap.Devices {
		if d.Type == t && match(d.Identity) {
			return d, true
		}
	}
	writeNotFound(w, t.String()+" "+chi.URLParam(r, "key")+" not in topology")
	return inventory.Device{}, false
}

func nodeString(n *ua.NodeID) string {
	if n == nil {
		return ""
	}
	return n.String()
}

func nodeStrings(nodes []*ua.NodeID) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeString(n))
	}
	return out
}
