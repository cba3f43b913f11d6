package topology

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Position codes carry the mirror in the leading digit and the sector in the
// trailing two digits, e.g. 1121 is mirror 1, ring 1, sector 21.
const sectorModulus = 100

// edgeSeparator joins panel positions in an edge name.
const edgeSeparator = "+"

// Mirror numbers.
const (
	MirrorPrimary   = 1
	MirrorSecondary = 2
	MirrorTest      = 3
)

// Mirror returns the mirror number owning a panel position.
func Mirror(position int) int {
	if position < 0 {
		position = -position
	}
	for position >= 10 {
		position /= 10
	}
	return position
}

// MirrorName returns the display name of a mirror number.
func MirrorName(mirror int) string {
	switch mirror {
	case MirrorPrimary:
		return "PrimaryMirror"
	case MirrorSecondary:
		return "SecondaryMirror"
	case MirrorTest:
		return "TestMirror"
	default:
		return "UnknownMirror"
	}
}

// MirrorIdentity builds the synthetic identity of the mirror owning a panel
// position. Mirrors have no network identity, so the serial number and the
// address both carry the mirror number.
func MirrorIdentity(panelPosition int) Identity {
	m := Mirror(panelPosition)
	return Identity{
		SerialNumber: m,
		Position:     m,
		Address:      strconv.Itoa(m),
		Name:         MirrorName(m),
	}
}

// EdgeFromPanels returns the canonical edge name for a set of panel positions:
// the positions in ascending order joined with "+", e.g. "1121+1122".
func EdgeFromPanels(positions []int) string {
	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, edgeSeparator)
}

// PanelsFromEdge decomposes an edge name back into its panel positions.
// A non-negative dir returns them ascending, a negative dir descending.
func PanelsFromEdge(edge string, dir int) ([]int, error) {
	parts := strings.Split(edge, edgeSeparator)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: %q has fewer than two panels", ErrInvalidEdge, edge)
	}

	positions := make([]int, 0, len(parts))
	for _, part := range parts {
		p, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidEdge, edge, err)
		}
		positions = append(positions, p)
	}

	if dir < 0 {
		sort.Sort(sort.Reverse(sort.IntSlice(positions)))
	} else {
		sort.Ints(positions)
	}
	return positions, nil
}

// ThirdPanelPosition reports the third panel of a ring-transition edge.
//
// The edge between the inner and outer ring at a junction spans three
// panels. It is recognised by the outer (larger) position's sector being
// exactly 2*inner or 2*inner-1. The third panel neighbours the larger
// position: one more when that position is odd, one less when it is even.
func ThirdPanelPosition(wPosition, lPosition int) (int, bool) {
	larger, smaller := wPosition, lPosition
	if smaller > larger {
		larger, smaller = smaller, larger
	}

	outer := larger % sectorModulus
	inner := smaller % sectorModulus
	if outer != 2*inner && outer != 2*inner-1 {
		return 0, false
	}

	if larger%2 != 0 {
		return larger + 1, true
	}
	return larger - 1, true
}
