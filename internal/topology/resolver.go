package topology

import (
	"fmt"
)

// Parents resolves the parents of a device.
//
//   - Actuator: the panel it is mounted on.
//   - Sensor: its w-panel, plus its edge and mirror once the l-panel is loaded.
//   - Panel: its mirror.
//   - Edge: the mirror of its lowest-numbered panel.
//
// Any other type resolves to no parents. A key that the rules above require
// but that is missing from the store yields ErrLookup. A sensor whose
// l-panel is not loaded is not an error: only its w-panel is returned.
//
// Parents does not modify the store and returns the same result for the
// same arguments.
func (s *Store) Parents(t DeviceType, id Identity) ([]Parent, error) {
	switch t {
	case DeviceTypeActuator:
		return s.actuatorParents(id)
	case DeviceTypeSensor:
		return s.sensorParents(id)
	case DeviceTypePanel:
		return []Parent{{Type: DeviceTypeMirror, Identity: MirrorIdentity(id.Position)}}, nil
	case DeviceTypeEdge:
		return edgeParents(id)
	default:
		return []Parent{}, nil
	}
}

func (s *Store) actuatorParents(id Identity) ([]Parent, error) {
	link, err := s.requireLink(DeviceTypeActuator, id.SerialNumber)
	if err != nil {
		return nil, err
	}

	position, ok := link.Position(RoleMount)
	if !ok {
		return nil, fmt.Errorf("%w: actuator %d link %q has no mount panel", ErrLookup, id.SerialNumber, link)
	}

	panel, err := s.requirePanel(position)
	if err != nil {
		return nil, err
	}
	return []Parent{{Type: DeviceTypePanel, Identity: panel}}, nil
}

func (s *Store) sensorParents(id Identity) ([]Parent, error) {
	link, err := s.requireLink(DeviceTypeSensor, id.SerialNumber)
	if err != nil {
		return nil, err
	}

	wPos, okW := link.Position(RoleW)
	lPos, okL := link.Position(RoleL)
	if !okW || !okL {
		return nil, fmt.Errorf("%w: sensor %d link %q lacks a w or l panel", ErrLookup, id.SerialNumber, link)
	}

	wPanel, err := s.requirePanel(wPos)
	if err != nil {
		return nil, err
	}

	// Edge not formed yet: the l-panel is not part of the loaded hardware.
	if !s.HasPanel(lPos) {
		return []Parent{{Type: DeviceTypePanel, Identity: wPanel}}, nil
	}

	panels := []int{wPos, lPos}
	if third, ok := ThirdPanelPosition(wPos, lPos); ok && s.HasPanel(third) {
		panels = append(panels, third)
	}

	edgeAddress := EdgeFromPanels(panels)
	edge := Identity{Address: edgeAddress, Name: edgeName(edgeAddress)}

	return []Parent{
		{Type: DeviceTypePanel, Identity: wPanel},
		{Type: DeviceTypeEdge, Identity: edge},
		{Type: DeviceTypeMirror, Identity: MirrorIdentity(wPos)},
	}, nil
}

func edgeParents(id Identity) ([]Parent, error) {
	panels, err := PanelsFromEdge(id.Address, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: edge %q: %w", ErrLookup, id.Address, err)
	}
	return []Parent{{Type: DeviceTypeMirror, Identity: MirrorIdentity(panels[0])}}, nil
}

func (s *Store) requireLink(t DeviceType, serial int) (ParentLink, error) {
	link, ok := s.parentMap[t][serial]
	if !ok {
		return ParentLink{}, fmt.Errorf("%w: no parent link for %s serial %d", ErrLookup, t, serial)
	}
	return link, nil
}

// requirePanel builds the parent identity of the panel at a position.
// Only position and address are known from the index maps.
func (s *Store) requirePanel(position int) (Identity, error) {
	address, ok := s.panelAddresses[position]
	if !ok {
		return Identity{}, fmt.Errorf("%w: no panel address for position %d", ErrLookup, position)
	}
	return Identity{Position: position, Address: address, Name: panelName(position)}, nil
}
