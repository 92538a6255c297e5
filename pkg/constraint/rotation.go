package constraint

import (
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

// buildRotation expresses each vertex in its parent's rest frame.
func buildRotation(t *topology.Topology) *RotationData {
	n := t.VertexCount()
	data := &RotationData{
		Records: make([]RotationRecord, n),
	}
	for v := 0; v < n; v++ {
		parent := t.Vertices[v].Parent
		if parent < 0 {
			data.Records[v] = RotationRecord{Parent: -1, LocalRot: t.Rotation(int32(v))}
			continue
		}
		inv := t.Rotation(parent).Inverse()
		data.Records[v] = RotationRecord{
			Parent:   parent,
			LocalPos: inv.Rotate(t.Positions[v].Sub(t.Positions[parent])),
			LocalRot: inv.Mul(t.Rotation(int32(v))).Normalize(),
		}
	}

	h := t.Hierarchy
	data.Lines = append([]Ref(nil), h.Lines...)
	data.LineData = append([]int32(nil), h.LineData...)
	return data
}
