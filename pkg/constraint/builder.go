package constraint

import (
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

// Build compiles every enabled constraint group of a topology. Structural
// distance links are always built.
func Build(t *topology.Topology, p BuildParams) (*Data, error) {
	if t == nil || t.VertexCount() == 0 {
		return nil, topology.NewBuildError(topology.CodeEmptyTopology, "nil or empty topology")
	}

	d := &Data{
		VertexCount: t.VertexCount(),
		Distance:    buildDistance(t, p),
	}
	if p.ClampDistance {
		d.ClampDistance = buildClampDistance(t)
	}
	if p.Rotation {
		d.Rotation = buildRotation(t)
	}
	if p.TriangleBend {
		d.TriangleBend = buildTriangleBend(t)
	}
	if p.Penetration.Mode != PenetrationNone {
		d.Penetration = buildPenetration(t, p.Penetration)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
