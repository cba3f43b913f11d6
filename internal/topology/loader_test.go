package topology

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves rows from memory and can fail on a chosen panel.
type fakeSource struct {
	panels    map[int][]PanelRow
	actuators map[int][]ActuatorRow
	sensors   map[int][]SensorRow
	failOn    int
	calls     []int
}

var errBoom = errors.New("connection reset")

func (f *fakeSource) PanelRows(_ context.Context, position int) ([]PanelRow, error) {
	f.calls = append(f.calls, position)
	if position == f.failOn {
		return nil, errBoom
	}
	return f.panels[position], nil
}

func (f *fakeSource) ActuatorRows(_ context.Context, panel int) ([]ActuatorRow, error) {
	return f.actuators[panel], nil
}

func (f *fakeSource) SensorRows(_ context.Context, panel int) ([]SensorRow, error) {
	return f.sensors[panel], nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		panels: map[int][]PanelRow{
			1121: {{Serial: 11, IPAddress: "172.17.1.21"}},
			1122: {{Serial: 12, IPAddress: "172.17.1.22"}},
		},
		actuators: map[int][]ActuatorRow{
			1121: {{Serial: 2001, Position: 1, Port: 1}, {Serial: 2002, Position: 2, Port: 2}},
			1122: {{Serial: 2003, Position: 1, Port: 1}},
		},
		sensors: map[int][]SensorRow{
			1121: {{Serial: 301, WPosition: 1, Port: 3, LPanel: 1122}},
		},
	}
}

func TestLoaderLoad(t *testing.T) {
	loader := NewLoader(newFakeSource(), DefaultPanelAddressing())

	result, err := loader.Load(context.Background(), []string{"1121", "1122"})
	require.NoError(t, err)
	require.NotNil(t, result.Store)
	assert.NotEmpty(t, result.ID)
	assert.Empty(t, result.Skipped)

	s := result.Store
	assert.True(t, s.Sealed())
	assert.Equal(t, 2, s.Count(DeviceTypePanel))
	assert.Equal(t, 3, s.Count(DeviceTypeActuator))
	assert.Equal(t, 1, s.Count(DeviceTypeSensor))

	addr, err := s.PanelAddress(1121)
	require.NoError(t, err)
	assert.Equal(t, "opc.tcp://172.17.1.21:4840", addr)

	serial, err := s.DeviceSerial(DeviceTypeActuator, addr, 2)
	require.NoError(t, err)
	assert.Equal(t, 2002, serial)

	pos, err := s.DevicePosition(DeviceTypePanel, 12)
	require.NoError(t, err)
	assert.Equal(t, 1122, pos)

	link, err := s.ParentLink(DeviceTypeSensor, 301)
	require.NoError(t, err)
	assert.Equal(t, "w1121l1122", link.String())

	link, err = s.ParentLink(DeviceTypeActuator, 2003)
	require.NoError(t, err)
	assert.Equal(t, "1122", link.String())

	assert.Equal(t, []string{"Panel_1121", "Panel_1122"},
		[]string{s.Devices(DeviceTypePanel)[0].Name, s.Devices(DeviceTypePanel)[1].Name})
}

// Every serial in the serial map has a position and vice versa.
func TestLoaderIndexesStayConsistent(t *testing.T) {
	result, err := NewLoader(newFakeSource(), DefaultPanelAddressing()).
		Load(context.Background(), []string{"1121", "1122"})
	require.NoError(t, err)
	s := result.Store

	for _, dt := range []DeviceType{DeviceTypeActuator, DeviceTypeSensor} {
		seen := 0
		for _, byPort := range s.serialMap[dt] {
			for _, serial := range byPort {
				_, err := s.DevicePosition(dt, serial)
				assert.NoError(t, err)
				seen++
			}
		}
		assert.Equal(t, len(s.positionMap[dt]), seen, "%s", dt)
	}
}

func TestLoaderSkipsPositionWithoutPanel(t *testing.T) {
	src := newFakeSource()
	loader := NewLoader(src, DefaultPanelAddressing())

	result, err := loader.Load(context.Background(), []string{"1121", "1311", "1122"})
	require.NoError(t, err)

	assert.Equal(t, []string{"1311"}, result.Skipped)
	assert.Equal(t, []int{1121, 1311, 1122}, src.calls)
	assert.Equal(t, 2, result.Store.Count(DeviceTypePanel))
	assert.False(t, result.Store.HasPanel(1311))
}

func TestLoaderDatabaseErrorAbortsLoad(t *testing.T) {
	src := newFakeSource()
	src.failOn = 1122
	loader := NewLoader(src, DefaultPanelAddressing())

	result, err := loader.Load(context.Background(), []string{"1121", "1122", "1123"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrDatabase))
	assert.True(t, errors.Is(err, errBoom))
	assert.Equal(t, []int{1121, 1122}, src.calls)
}

func TestLoaderInvalidPosition(t *testing.T) {
	loader := NewLoader(newFakeSource(), DefaultPanelAddressing())

	_, err := loader.Load(context.Background(), []string{"1121", "P1"})
	assert.True(t, errors.Is(err, ErrInvalidPosition))
}

func TestLoaderLastPanelRowWins(t *testing.T) {
	src := newFakeSource()
	src.panels[1121] = []PanelRow{
		{Serial: 10, IPAddress: "172.17.1.20"},
		{Serial: 11, IPAddress: "172.17.1.21"},
	}

	result, err := NewLoader(src, DefaultPanelAddressing()).Load(context.Background(), []string{"1121"})
	require.NoError(t, err)

	panels := result.Store.Devices(DeviceTypePanel)
	require.Len(t, panels, 1)
	assert.Equal(t, 11, panels[0].SerialNumber)
	assert.Equal(t, "opc.tcp://172.17.1.21:4840", panels[0].Address)
}

func TestLoaderSimMode(t *testing.T) {
	addressing := PanelAddressing{Scheme: "opc.tcp", Port: 4840, SimMode: true, SimHost: "127.0.0.1"}

	result, err := NewLoader(newFakeSource(), addressing).Load(context.Background(), []string{"1121"})
	require.NoError(t, err)

	addr, err := result.Store.PanelAddress(1121)
	require.NoError(t, err)
	assert.Equal(t, "opc.tcp://127.0.0.1:1121", addr)
}

func TestStoreSealedRejectsInserts(t *testing.T) {
	s := NewStore()

	assert.True(t, errors.Is(s.addPanel(Identity{Position: 1121}), ErrStoreSealed))
	assert.True(t, errors.Is(s.addAttached(DeviceTypeActuator, Identity{}, "", 1, MountLink(1)), ErrStoreSealed))
	assert.True(t, s.hasDeviceList(DeviceTypePanel))
	assert.False(t, s.hasDeviceList(DeviceTypeActuator))
	assert.Equal(t, []DeviceType{DeviceTypePanel}, s.Types())
}

func TestStoreMisses(t *testing.T) {
	s := NewStore()

	_, err := s.DeviceSerial(DeviceTypeActuator, "opc.tcp://x:4840", 1)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
	_, err = s.DevicePosition(DeviceTypeSensor, 1)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
	_, err = s.PanelAddress(1121)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
	_, err = s.ParentLink(DeviceTypeActuator, 1)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
}
