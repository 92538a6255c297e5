// Package topology turns a raw cloth mesh plus a per-vertex role selection
// into a classified vertex hierarchy: adjacency, BFS levels, normalized depth,
// parent/root links and root lines.
package topology

import (
	"fmt"
	"strings"

	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// Role is the user-selected behaviour of a vertex.
type Role uint8

const (
	RoleInvalid Role = 0 // Not simulated
	RoleFixed   Role = 1 // Follows the animated pose, anchors movable vertices
	RoleMove    Role = 2 // Simulated
	RoleExtend  Role = 3 // Fixed with no movable neighbour
)

// String returns a human-readable role name.
func (r Role) String() string {
	switch r {
	case RoleInvalid:
		return "Invalid"
	case RoleFixed:
		return "Fixed"
	case RoleMove:
		return "Move"
	case RoleExtend:
		return "Extend"
	default:
		return fmt.Sprintf("Unknown(%d)", r)
	}
}

// IsKinematic reports whether the vertex follows the pose instead of being simulated.
func (r Role) IsKinematic() bool {
	return r == RoleFixed || r == RoleExtend
}

// IsMove reports whether the vertex is simulated.
func (r Role) IsMove() bool {
	return r == RoleMove
}

// IsValid reports whether the vertex takes part in the cloth at all.
func (r Role) IsValid() bool {
	return r != RoleInvalid
}

// MarshalText encodes the role by lower-case name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(r.String())), nil
}

// UnmarshalText parses "invalid", "fixed", "move" or "extend".
func (r *Role) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for role := RoleInvalid; role <= RoleExtend; role++ {
		if strings.ToLower(role.String()) == s {
			*r = role
			return nil
		}
	}
	return fmt.Errorf("unknown role %q", text)
}

// Mesh is the source geometry of a cloth in its rest pose.
// Normals and Tangents are optional; when present they must match Positions.
type Mesh struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	Tangents  []math.Vec3
	Lines     [][2]int32
	Triangles [][3]int32
}

// VertexCount returns the number of mesh vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// Validate checks array lengths and index ranges against the role list.
func (m *Mesh) Validate(roles []Role) error {
	n := len(m.Positions)
	if n == 0 {
		return NewBuildError(CodeEmptyTopology, "mesh has no vertices")
	}
	if len(roles) != n {
		return NewBuildError(CodeVertexCountMismatch, "roles=%d positions=%d", len(roles), n)
	}
	if len(m.Normals) != 0 && len(m.Normals) != n {
		return NewBuildError(CodeVertexCountMismatch, "normals=%d positions=%d", len(m.Normals), n)
	}
	if len(m.Tangents) != 0 && len(m.Tangents) != n {
		return NewBuildError(CodeVertexCountMismatch, "tangents=%d positions=%d", len(m.Tangents), n)
	}
	for i, l := range m.Lines {
		for _, v := range l {
			if v < 0 || int(v) >= n {
				return NewBuildError(CodeInvalidIndex, "line %d references vertex %d", i, v)
			}
		}
	}
	for i, tri := range m.Triangles {
		for _, v := range tri {
			if v < 0 || int(v) >= n {
				return NewBuildError(CodeInvalidIndex, "triangle %d references vertex %d", i, v)
			}
		}
	}
	return nil
}
