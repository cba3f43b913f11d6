package topology

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceType identifies a class of device in the alignment hierarchy.
//
// The numeric values match the object type ids published by the panel
// servers, so a DeviceType can be compared directly against a browsed
// OPC UA object type.
type DeviceType uint32

// Device types.
const (
	DeviceTypeMirror   DeviceType = 100
	DeviceTypeEdge     DeviceType = 1000
	DeviceTypeSensor   DeviceType = 1100
	DeviceTypePanel    DeviceType = 2000
	DeviceTypeActuator DeviceType = 2100
)

// AllDeviceTypes lists the device types in hierarchy order, leaf-most last.
var AllDeviceTypes = []DeviceType{
	DeviceTypeMirror,
	DeviceTypeEdge,
	DeviceTypePanel,
	DeviceTypeSensor,
	DeviceTypeActuator,
}

// String returns the short name used in logs, topics and identity names.
func (t DeviceType) String() string {
	switch t {
	case DeviceTypeMirror:
		return "Mirror"
	case DeviceTypeEdge:
		return "Edge"
	case DeviceTypeSensor:
		return "MPES"
	case DeviceTypePanel:
		return "Panel"
	case DeviceTypeActuator:
		return "ACT"
	default:
		return "DeviceType(" + strconv.FormatUint(uint64(t), 10) + ")"
	}
}

// IsPhysical reports whether devices of this type have their own rows in the
// mapping database. Edges and mirrors are derived from panel positions.
func (t DeviceType) IsPhysical() bool {
	return t == DeviceTypePanel || t == DeviceTypeActuator || t == DeviceTypeSensor
}

// ParseDeviceType converts a short name (case-insensitive) back to a DeviceType.
// "sensor" and "actuator" are accepted as aliases of "MPES" and "ACT".
func ParseDeviceType(s string) (DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mirror":
		return DeviceTypeMirror, nil
	case "edge":
		return DeviceTypeEdge, nil
	case "mpes", "sensor":
		return DeviceTypeSensor, nil
	case "panel":
		return DeviceTypePanel, nil
	case "act", "actuator":
		return DeviceTypeActuator, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDeviceType, s)
	}
}

// Identity is the identity of a single device.
//
// Address holds the panel's endpoint URL for panels and the edge name for
// edges. It is empty for actuators and sensors, which are reached through
// their panel, and holds the decimal mirror number for mirrors.
type Identity struct {
	SerialNumber int    `json:"serial_number"`
	Position     int    `json:"position"`
	Address      string `json:"address,omitempty"`
	Name         string `json:"name,omitempty"`
}

// String formats the identity for log output.
func (id Identity) String() string {
	var b strings.Builder
	if id.Name != "" {
		b.WriteString(id.Name)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "[serial=%d position=%d", id.SerialNumber, id.Position)
	if id.Address != "" {
		fmt.Fprintf(&b, " address=%s", id.Address)
	}
	b.WriteByte(']')
	return b.String()
}

// Parent is one entry of a resolved parent set.
type Parent struct {
	Type     DeviceType `json:"type"`
	Identity Identity   `json:"identity"`
}

func panelName(position int) string {
	return "Panel_" + strconv.Itoa(position)
}

func actuatorName(serial int) string {
	return "ACT_" + strconv.Itoa(serial)
}

func sensorName(serial int) string {
	return "MPES_" + strconv.Itoa(serial)
}

func edgeName(address string) string {
	return "Edge_" + address
}
