package constraint

import (
	"slices"

	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

// buildPenetration emits surface axes or collider links for shallow movable
// vertices.
func buildPenetration(t *topology.Topology, p PenetrationParams) *PenetrationData {
	data := &PenetrationData{Mode: p.Mode}
	rb := NewRefBuilder(t.VertexCount())
	var records []PenetrationRecord

	centroid := math.Vec3{}
	for _, pos := range t.Positions {
		centroid = centroid.Add(pos)
	}
	centroid = centroid.Scale(1 / float32(len(t.Positions)))

	type link struct {
		collider int
		surface  math.Vec3
		normal   math.Vec3
		dist     float32
	}
	var links []link

	for v, vx := range t.Vertices {
		if !vx.Role.IsMove() || vx.Depth > p.MaxDepth {
			continue
		}
		pos := t.Positions[v]

		switch p.Mode {
		case PenetrationSurface:
			axis := p.Axis
			if axis >= AxisAuto {
				local := t.Rotation(int32(v)).Inverse().Rotate(centroid.Sub(pos))
				axis = NearestAxis(local.Normalize())
			}
			rb.Attach(int32(v), int32(len(records)))
			records = append(records, PenetrationRecord{Axis: axis, Collider: -1})

		case PenetrationCollider:
			connect := p.ConnectDistance.Eval(vx.Depth)
			links = links[:0]
			for ci, c := range p.Colliders {
				surface, normal, dist := c.Surface(pos)
				if dist > connect {
					continue
				}
				links = append(links, link{collider: ci, surface: surface, normal: normal, dist: dist})
			}
			slices.SortStableFunc(links, func(x, y link) int {
				switch {
				case x.dist < y.dist:
					return -1
				case x.dist > y.dist:
					return 1
				default:
					return 0
				}
			})
			for k, l := range links {
				if k >= p.MaxColliders {
					break
				}
				if k > 0 && l.dist > links[0].dist*p.RatioCutoff {
					break
				}
				c := p.Colliders[l.collider]
				inv := c.Orientation().Inverse()
				rb.Attach(int32(v), int32(len(records)))
				records = append(records, PenetrationRecord{
					Axis:     AxisAuto,
					Collider: int32(l.collider),
					LocalPos: inv.Rotate(l.surface.Sub(c.Center)),
					LocalDir: inv.Rotate(l.normal),
					Distance: l.dist,
				})
			}
		}
	}

	refs, order := rb.Build()
	data.Refs = refs
	data.Records = make([]PenetrationRecord, len(order))
	for i, r := range order {
		data.Records[i] = records[r]
	}
	return data
}
