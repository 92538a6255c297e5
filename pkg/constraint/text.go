package constraint

import (
	"fmt"
	"strings"
)

// MarshalText encodes the axis by name.
func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses an axis name such as "-Z" or "auto".
func (a *Axis) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	for i := AxisPosX; i <= AxisAuto; i++ {
		if strings.ToUpper(i.String()) == s {
			*a = i
			return nil
		}
	}
	return fmt.Errorf("unknown axis %q", text)
}

// MarshalText encodes the mode by name.
func (m PenetrationMode) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(m.String())), nil
}

// UnmarshalText parses "none", "surface" or "collider".
func (m *PenetrationMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "none", "":
		*m = PenetrationNone
	case "surface":
		*m = PenetrationSurface
	case "collider":
		*m = PenetrationCollider
	default:
		return fmt.Errorf("unknown penetration mode %q", text)
	}
	return nil
}

// MarshalText encodes the shape by name.
func (s ColliderShape) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText parses "sphere" or "capsule".
func (s *ColliderShape) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "sphere":
		*s = ShapeSphere
	case "capsule":
		*s = ShapeCapsule
	default:
		return fmt.Errorf("unknown collider shape %q", text)
	}
	return nil
}
