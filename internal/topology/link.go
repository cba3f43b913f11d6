package topology

import (
	"fmt"
	"strconv"
	"strings"
)

// Role tags a panel attachment of a device.
type Role uint8

// Attachment roles.
const (
	// RoleMount is the single panel an actuator is mounted on.
	RoleMount Role = iota
	// RoleW is the sensor's primary (webcam side) panel.
	RoleW
	// RoleL is the sensor's laser side panel.
	RoleL
)

// Attachment is one role-tagged panel position.
type Attachment struct {
	Role     Role
	Position int
}

// ParentLink records the panels a device is attached to.
//
// Actuators have a single RoleMount attachment; sensors have one RoleW and
// one RoleL attachment. The string form is only used at serialisation
// boundaries: "1121" for an actuator, "w1121l1122" for a sensor.
type ParentLink struct {
	Attachments []Attachment
}

// MountLink returns the link of a device mounted on one panel.
func MountLink(panel int) ParentLink {
	return ParentLink{Attachments: []Attachment{{Role: RoleMount, Position: panel}}}
}

// SensorLink returns the link of a sensor spanning the w and l panels.
func SensorLink(wPanel, lPanel int) ParentLink {
	return ParentLink{Attachments: []Attachment{
		{Role: RoleW, Position: wPanel},
		{Role: RoleL, Position: lPanel},
	}}
}

// Position returns the panel position attached with the given role.
func (l ParentLink) Position(role Role) (int, bool) {
	for _, a := range l.Attachments {
		if a.Role == role {
			return a.Position, true
		}
	}
	return 0, false
}

// String encodes the link. Role-tagged attachments are written in stored order.
func (l ParentLink) String() string {
	var b strings.Builder
	for _, a := range l.Attachments {
		switch a.Role {
		case RoleW:
			b.WriteByte('w')
		case RoleL:
			b.WriteByte('l')
		}
		b.WriteString(strconv.Itoa(a.Position))
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (l ParentLink) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *ParentLink) UnmarshalText(text []byte) error {
	parsed, err := ParseParentLink(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseParentLink decodes the string form of a link.
//
// A plain integer is a mount link. Otherwise the string must hold exactly
// one "w<N>" and one "l<M>" token, in either order.
func ParseParentLink(s string) (ParentLink, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ParentLink{}, fmt.Errorf("%w: empty", ErrInvalidParentLink)
	}

	if pos, err := strconv.Atoi(s); err == nil {
		return MountLink(pos), nil
	}

	var (
		link         ParentLink
		seenW, seenL bool
	)
	for i := 0; i < len(s); {
		var role Role
		switch s[i] {
		case 'w':
			if seenW {
				return ParentLink{}, fmt.Errorf("%w: duplicate w token in %q", ErrInvalidParentLink, s)
			}
			role, seenW = RoleW, true
		case 'l':
			if seenL {
				return ParentLink{}, fmt.Errorf("%w: duplicate l token in %q", ErrInvalidParentLink, s)
			}
			role, seenL = RoleL, true
		default:
			return ParentLink{}, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidParentLink, s[i], s)
		}

		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		pos, err := strconv.Atoi(s[i+1 : j])
		if err != nil {
			return ParentLink{}, fmt.Errorf("%w: missing position in %q", ErrInvalidParentLink, s)
		}
		link.Attachments = append(link.Attachments, Attachment{Role: role, Position: pos})
		i = j
	}

	if !seenW || !seenL {
		return ParentLink{}, fmt.Errorf("%w: need both w and l tokens in %q", ErrInvalidParentLink, s)
	}
	return link, nil
}
