package topology

import "github.com/Faultbox/midgard-cloth/pkg/math"

// NewGridMesh builds a hanging cloth sheet of cols x rows vertices in the XY
// plane, top row fixed, the rest movable.
func NewGridMesh(cols, rows int, spacing float32) (*Mesh, []Role) {
	m := &Mesh{}
	roles := make([]Role, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.Positions = append(m.Positions, math.Vec3{
				X: float32(c) * spacing,
				Y: -float32(r) * spacing,
			})
			m.Normals = append(m.Normals, math.Forward)
			m.Tangents = append(m.Tangents, math.Up)
			if r == 0 {
				roles = append(roles, RoleFixed)
			} else {
				roles = append(roles, RoleMove)
			}
		}
	}
	idx := func(c, r int) int32 { return int32(r*cols + c) }
	for r := 0; r+1 < rows; r++ {
		for c := 0; c+1 < cols; c++ {
			a, b := idx(c, r), idx(c+1, r)
			d, e := idx(c, r+1), idx(c+1, r+1)
			m.Triangles = append(m.Triangles, [3]int32{a, d, b}, [3]int32{b, d, e})
		}
	}
	if cols == 1 {
		for r := 0; r+1 < rows; r++ {
			m.Lines = append(m.Lines, [2]int32{idx(0, r), idx(0, r+1)})
		}
	}
	return m, roles
}
