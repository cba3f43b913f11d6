package mqtt

import "strings"

// DefaultTopicPrefix roots every topic when no prefix is configured.
const DefaultTopicPrefix = "pas"

// Topics builds the client's MQTT topics under a configurable prefix.
//
//	topics := mqtt.Topics{Prefix: "pas"}
//	topics.TopologyDevice("ACT", "2001")
//	// Returns: "pas/topology/ACT/2001"
type Topics struct {
	Prefix string
}

func (t Topics) join(parts ...string) string {
	prefix := strings.TrimSuffix(t.Prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "/" + strings.Join(parts, "/")
}

// Status returns the client status topic carrying online/offline and the LWT.
//
// Example: pas/system/status
func (t Topics) Status() string {
	return t.join("system", "status")
}

// TopologyDevice returns the retained topic describing one device.
//
// Example: pas/topology/MPES/301
func (t Topics) TopologyDevice(deviceType, serial string) string {
	return t.join("topology", deviceType, serial)
}

// TopologySummary returns the retained topic describing the last load.
//
// Example: pas/topology/summary
func (t Topics) TopologySummary() string {
	return t.join("topology", "summary")
}

// TopologyReload returns the command topic that triggers a topology reload.
//
// Example: pas/command/topology/reload
func (t Topics) TopologyReload() string {
	return t.join("command", "topology", "reload")
}
