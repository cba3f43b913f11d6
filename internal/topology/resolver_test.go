package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildStore indexes panels at the given positions plus the supplied
// actuators and sensors, then seals the store.
func buildStore(t *testing.T, panels []int, actuators []ActuatorRow, actuatorPanel int, sensors []SensorRow, sensorPanel int) *Store {
	t.Helper()

	s := newStore()
	addressing := DefaultPanelAddressing()
	for _, p := range panels {
		require.NoError(t, s.addPanel(Identity{
			SerialNumber: 1000 + p,
			Position:     p,
			Address:      addressing.Address(p, "10.0.0.1"),
			Name:         panelName(p),
		}))
	}
	for _, a := range actuators {
		addr := addressing.Address(actuatorPanel, "10.0.0.1")
		require.NoError(t, s.addAttached(DeviceTypeActuator,
			Identity{SerialNumber: a.Serial, Position: a.Position, Name: actuatorName(a.Serial)},
			addr, a.Port, MountLink(actuatorPanel)))
	}
	for _, r := range sensors {
		addr := addressing.Address(sensorPanel, "10.0.0.1")
		require.NoError(t, s.addAttached(DeviceTypeSensor,
			Identity{SerialNumber: r.Serial, Position: r.WPosition, Name: sensorName(r.Serial)},
			addr, r.Port, SensorLink(sensorPanel, r.LPanel)))
	}
	s.seal()
	return s
}

func parentTypes(parents []Parent) []DeviceType {
	types := make([]DeviceType, len(parents))
	for i, p := range parents {
		types[i] = p.Type
	}
	return types
}

func TestParentsPanel(t *testing.T) {
	s := buildStore(t, []int{1121, 2111}, nil, 0, nil, 0)

	for _, panel := range s.Devices(DeviceTypePanel) {
		parents, err := s.Parents(DeviceTypePanel, panel)
		require.NoError(t, err)
		require.Len(t, parents, 1)
		assert.Equal(t, DeviceTypeMirror, parents[0].Type)
		assert.Equal(t, Mirror(panel.Position), parents[0].Identity.Position)
		assert.Equal(t, Mirror(panel.Position), parents[0].Identity.SerialNumber)
	}
}

func TestParentsActuator(t *testing.T) {
	s := buildStore(t, []int{1121},
		[]ActuatorRow{{Serial: 2001, Position: 1, Port: 1}, {Serial: 2002, Position: 2, Port: 2}}, 1121,
		nil, 0)

	for _, act := range s.Devices(DeviceTypeActuator) {
		parents, err := s.Parents(DeviceTypeActuator, act)
		require.NoError(t, err)
		require.Len(t, parents, 1)
		assert.Equal(t, DeviceTypePanel, parents[0].Type)
		assert.Equal(t, 1121, parents[0].Identity.Position)
		assert.Equal(t, "opc.tcp://10.0.0.1:4840", parents[0].Identity.Address)
		assert.Equal(t, "Panel_1121", parents[0].Identity.Name)
	}
}

func TestParentsSensor(t *testing.T) {
	t.Run("both panels present", func(t *testing.T) {
		s := buildStore(t, []int{1121, 1122}, nil, 0,
			[]SensorRow{{Serial: 301, WPosition: 1, Port: 3, LPanel: 1122}}, 1121)

		parents, err := s.Parents(DeviceTypeSensor, s.Devices(DeviceTypeSensor)[0])
		require.NoError(t, err)
		assert.ElementsMatch(t, []DeviceType{DeviceTypePanel, DeviceTypeEdge, DeviceTypeMirror}, parentTypes(parents))

		assert.Equal(t, 1121, parents[0].Identity.Position)
		assert.Equal(t, "1121+1122", parents[1].Identity.Address)
		assert.Equal(t, "Edge_1121+1122", parents[1].Identity.Name)
		assert.Equal(t, MirrorIdentity(1121), parents[2].Identity)
	})

	t.Run("l panel absent", func(t *testing.T) {
		s := buildStore(t, []int{1121}, nil, 0,
			[]SensorRow{{Serial: 301, WPosition: 1, Port: 3, LPanel: 1122}}, 1121)

		parents, err := s.Parents(DeviceTypeSensor, s.Devices(DeviceTypeSensor)[0])
		require.NoError(t, err)
		require.Len(t, parents, 1)
		assert.Equal(t, DeviceTypePanel, parents[0].Type)
		assert.Equal(t, 1121, parents[0].Identity.Position)
	})

	t.Run("junction with third panel", func(t *testing.T) {
		s := buildStore(t, []int{101, 201, 202}, nil, 0,
			[]SensorRow{{Serial: 302, WPosition: 2, Port: 1, LPanel: 201}}, 101)

		parents, err := s.Parents(DeviceTypeSensor, s.Devices(DeviceTypeSensor)[0])
		require.NoError(t, err)
		require.Len(t, parents, 3)
		assert.Equal(t, "101+201+202", parents[1].Identity.Address)

		panels, err := PanelsFromEdge(parents[1].Identity.Address, 1)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{101, 201, 202}, panels)
	})

	t.Run("junction without third panel", func(t *testing.T) {
		s := buildStore(t, []int{101, 201}, nil, 0,
			[]SensorRow{{Serial: 302, WPosition: 2, Port: 1, LPanel: 201}}, 101)

		parents, err := s.Parents(DeviceTypeSensor, s.Devices(DeviceTypeSensor)[0])
		require.NoError(t, err)
		require.Len(t, parents, 3)
		assert.Equal(t, "101+201", parents[1].Identity.Address)
	})
}

func TestParentsEdge(t *testing.T) {
	s := NewStore()

	parents, err := s.Parents(DeviceTypeEdge, Identity{Address: "2111+1121"})
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, DeviceTypeMirror, parents[0].Type)
	assert.Equal(t, 1, parents[0].Identity.Position)

	_, err = s.Parents(DeviceTypeEdge, Identity{Address: "1121"})
	assert.True(t, errors.Is(err, ErrLookup))
	assert.True(t, errors.Is(err, ErrInvalidEdge))
}

func TestParentsMirrorHasNone(t *testing.T) {
	s := NewStore()

	parents, err := s.Parents(DeviceTypeMirror, MirrorIdentity(1121))
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestParentsLookupErrors(t *testing.T) {
	s := buildStore(t, []int{1121}, nil, 0, nil, 0)

	_, err := s.Parents(DeviceTypeActuator, Identity{SerialNumber: 9999})
	assert.True(t, errors.Is(err, ErrLookup), "unknown actuator: %v", err)

	_, err = s.Parents(DeviceTypeSensor, Identity{SerialNumber: 9999})
	assert.True(t, errors.Is(err, ErrLookup), "unknown sensor: %v", err)

	// Actuator whose mount panel never got indexed.
	orphan := newStore()
	require.NoError(t, orphan.addAttached(DeviceTypeActuator, Identity{SerialNumber: 1}, "x", 1, MountLink(1311)))
	orphan.seal()
	_, err = orphan.Parents(DeviceTypeActuator, Identity{SerialNumber: 1})
	assert.True(t, errors.Is(err, ErrLookup), "missing mount panel: %v", err)
}

func TestParentsIdempotent(t *testing.T) {
	s := buildStore(t, []int{101, 201, 202}, nil, 0,
		[]SensorRow{{Serial: 302, WPosition: 2, Port: 1, LPanel: 201}}, 101)
	sensor := s.Devices(DeviceTypeSensor)[0]

	first, err := s.Parents(DeviceTypeSensor, sensor)
	require.NoError(t, err)
	second, err := s.Parents(DeviceTypeSensor, sensor)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
