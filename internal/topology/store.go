package topology

import (
	"fmt"
	"sort"
)

// Store is the device index store built by a Loader.
//
// A Store is populated once and then sealed; every exported method only
// reads. A sealed Store is therefore safe for concurrent readers without
// locking. Callers that want to replace the topology at runtime build a new
// Store and swap the pointer.
type Store struct {
	deviceList     map[DeviceType][]Identity
	serialMap      map[DeviceType]map[string]map[int]int
	positionMap    map[DeviceType]map[int]int
	parentMap      map[DeviceType]map[int]ParentLink
	panelAddresses map[int]string
	sealed         bool
}

// NewStore returns an empty, sealed store. It is what a client holds before
// its first successful load.
func NewStore() *Store {
	s := newStore()
	s.seal()
	return s
}

func newStore() *Store {
	return &Store{
		deviceList: map[DeviceType][]Identity{
			DeviceTypePanel: {},
		},
		serialMap:      make(map[DeviceType]map[string]map[int]int),
		positionMap:    make(map[DeviceType]map[int]int),
		parentMap:      make(map[DeviceType]map[int]ParentLink),
		panelAddresses: make(map[int]string),
	}
}

func (s *Store) seal() {
	s.sealed = true
}

// Sealed reports whether loading into this store has finished.
func (s *Store) Sealed() bool {
	return s.sealed
}

// addPanel records a panel in the device list, position map and address map.
func (s *Store) addPanel(id Identity) error {
	if s.sealed {
		return ErrStoreSealed
	}
	s.deviceList[DeviceTypePanel] = append(s.deviceList[DeviceTypePanel], id)
	s.setPosition(DeviceTypePanel, id.SerialNumber, id.Position)
	s.panelAddresses[id.Position] = id.Address
	return nil
}

// addAttached records an actuator or sensor reached through a panel port.
func (s *Store) addAttached(t DeviceType, id Identity, panelAddress string, port int, link ParentLink) error {
	if s.sealed {
		return ErrStoreSealed
	}
	s.deviceList[t] = append(s.deviceList[t], id)

	byAddress, ok := s.serialMap[t]
	if !ok {
		byAddress = make(map[string]map[int]int)
		s.serialMap[t] = byAddress
	}
	byPort, ok := byAddress[panelAddress]
	if !ok {
		byPort = make(map[int]int)
		byAddress[panelAddress] = byPort
	}
	byPort[port] = id.SerialNumber

	s.setPosition(t, id.SerialNumber, id.Position)

	links, ok := s.parentMap[t]
	if !ok {
		links = make(map[int]ParentLink)
		s.parentMap[t] = links
	}
	links[id.SerialNumber] = link
	return nil
}

func (s *Store) setPosition(t DeviceType, serial, position int) {
	positions, ok := s.positionMap[t]
	if !ok {
		positions = make(map[int]int)
		s.positionMap[t] = positions
	}
	positions[serial] = position
}

// Devices returns the devices of a type in discovery order.
// The returned slice is a copy.
func (s *Store) Devices(t DeviceType) []Identity {
	list := s.deviceList[t]
	out := make([]Identity, len(list))
	copy(out, list)
	return out
}

// hasDeviceList reports whether a device list exists for the type. Only the
// panel list exists before anything is loaded.
func (s *Store) hasDeviceList(t DeviceType) bool {
	_, ok := s.deviceList[t]
	return ok
}

// Count returns the number of devices of a type.
func (s *Store) Count(t DeviceType) int {
	return len(s.deviceList[t])
}

// Types returns the device types that have a device list, sorted by value.
func (s *Store) Types() []DeviceType {
	types := make([]DeviceType, 0, len(s.deviceList))
	for t := range s.deviceList {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// DeviceSerial returns the serial of the device of type t on the given panel
// address and port.
func (s *Store) DeviceSerial(t DeviceType, panelAddress string, port int) (int, error) {
	serial, ok := s.serialMap[t][panelAddress][port]
	if !ok {
		return 0, fmt.Errorf("%w: %s at %s port %d", ErrDeviceNotFound, t, panelAddress, port)
	}
	return serial, nil
}

// DevicePosition returns the position of the device of type t with the given serial.
func (s *Store) DevicePosition(t DeviceType, serial int) (int, error) {
	position, ok := s.positionMap[t][serial]
	if !ok {
		return 0, fmt.Errorf("%w: %s serial %d", ErrDeviceNotFound, t, serial)
	}
	return position, nil
}

// ParentLink returns the stored parent link of the device of type t.
func (s *Store) ParentLink(t DeviceType, serial int) (ParentLink, error) {
	link, ok := s.parentMap[t][serial]
	if !ok {
		return ParentLink{}, fmt.Errorf("%w: no parent link for %s serial %d", ErrDeviceNotFound, t, serial)
	}
	return link, nil
}

// PanelAddress returns the endpoint address of the panel at a position.
func (s *Store) PanelAddress(position int) (string, error) {
	address, ok := s.panelAddresses[position]
	if !ok {
		return "", fmt.Errorf("%w: no panel at position %d", ErrDeviceNotFound, position)
	}
	return address, nil
}

// HasPanel reports whether a panel is loaded at the position.
func (s *Store) HasPanel(position int) bool {
	_, ok := s.panelAddresses[position]
	return ok
}
