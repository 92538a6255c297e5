package constraint

import (
	stdmath "math"

	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

// minBendArea is the squared normal length below which a triangle pair is
// treated as degenerate.
const minBendArea = 1e-12

// DihedralAngle returns the unsigned dihedral angle of the triangle pair
// (a, b, c) and (b, a, d) sharing edge a-b, and the winding sign of the fold
// around the edge. Coplanar pairs give 0, fully folded pairs give pi.
// ok is false for degenerate geometry.
func DihedralAngle(a, b, c, d math.Vec3) (angle, sign float32, ok bool) {
	e := b.Sub(a)
	n1 := a.Sub(c).Cross(b.Sub(c))
	n2 := b.Sub(d).Cross(a.Sub(d))
	l1 := n1.LengthSq()
	l2 := n2.LengthSq()
	if l1 < minBendArea || l2 < minBendArea || e.LengthSq() < minBendArea {
		return 0, 1, false
	}
	// weight by 1/|n|^2 so the angle does not depend on triangle size
	m1 := n1.Scale(1 / l1).Normalize()
	m2 := n2.Scale(1 / l2).Normalize()
	angle = math.Acos(m1.Dot(m2))
	sign = 1
	if e.Dot(m2.Cross(m1)) < 0 {
		sign = -1
	}
	return angle, sign, true
}

// BendGradients returns the gradient of the signed dihedral angle with
// respect to the four vertices (edge a-b, wings c and d).
func BendGradients(a, b, c, d math.Vec3) (grad [4]math.Vec3, ok bool) {
	e := b.Sub(a)
	el := e.Length()
	n1 := a.Sub(c).Cross(b.Sub(c))
	n2 := b.Sub(d).Cross(a.Sub(d))
	l1 := n1.LengthSq()
	l2 := n2.LengthSq()
	if l1 < minBendArea || l2 < minBendArea || el < math.Epsilon {
		return grad, false
	}
	inv1 := 1 / l1
	inv2 := 1 / l2
	grad[2] = n1.Scale(el * inv1)
	grad[3] = n2.Scale(el * inv2)
	grad[0] = n1.Scale(c.Sub(b).Dot(e) / el * inv1).Add(n2.Scale(d.Sub(b).Dot(e) / el * inv2))
	grad[1] = n1.Scale(c.Sub(a).Dot(e) / el * inv1).Add(n2.Scale(d.Sub(a).Dot(e) / el * inv2)).Neg()
	return grad, true
}

// WrapAngle maps an angle difference into [-pi, pi].
func WrapAngle(a float32) float32 {
	for a > stdmath.Pi {
		a -= 2 * stdmath.Pi
	}
	for a < -stdmath.Pi {
		a += 2 * stdmath.Pi
	}
	return a
}

func wingOf(tri [3]int32, e topology.Edge) int32 {
	for _, v := range tri {
		if v != e.A && v != e.B {
			return v
		}
	}
	return -1
}

// buildTriangleBend emits one record per edge shared by exactly two
// triangles and attaches a scatter slot for every movable vertex it touches.
func buildTriangleBend(t *topology.Topology) *TriangleBendData {
	verts := t.Vertices
	data := &TriangleBendData{}
	rb := NewRefBuilder(t.VertexCount())

	for _, se := range topology.FindSharedEdges(t.Triangles) {
		c := wingOf(t.Triangles[se.Triangles[0]], se.Edge)
		d := wingOf(t.Triangles[se.Triangles[1]], se.Edge)
		if c < 0 || d < 0 || c == d {
			continue
		}

		// orient the shared edge so that the first triangle reads (a, b, c)
		a, b := se.Edge.A, se.Edge.B
		if !windingMatches(t.Triangles[se.Triangles[0]], a, b) {
			a, b = b, a
		}
		vs := [4]int32{a, b, c, d}

		allKinematic := true
		for _, v := range vs {
			if !verts[v].Role.IsKinematic() {
				allKinematic = false
			}
		}
		if allKinematic {
			continue
		}

		angle, sign, ok := DihedralAngle(t.Positions[a], t.Positions[b], t.Positions[c], t.Positions[d])
		if !ok {
			continue
		}

		r := int32(len(data.Records))
		data.Records = append(data.Records, TriangleBendRecord{
			Vertices:  vs,
			RestAngle: angle,
			Sign:      sign,
			Depth:     max(verts[c].Depth, verts[d].Depth),
		})
		for k, v := range vs {
			if verts[v].Role.IsMove() {
				rb.Attach(v, r*SlotsPerTriangle+int32(k))
			}
		}
	}

	data.Refs, data.Slots = rb.Build()
	return data
}

// windingMatches reports whether tri contains the directed edge a->b, i.e.
// it winds as (a, b, wing).
func windingMatches(tri [3]int32, a, b int32) bool {
	for k := 0; k < 3; k++ {
		if tri[k] == a && tri[(k+1)%3] == b {
			return true
		}
	}
	return false
}
