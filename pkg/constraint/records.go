// Package constraint compiles a classified topology into immutable
// constraint record arrays and per-particle reference indices.
package constraint

import (
	"fmt"

	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

// Ref is a CSR row into a record or slot array.
type Ref = topology.Ref

// DistanceKind selects the stiffness used for a distance record.
type DistanceKind uint8

const (
	DistanceStructural DistanceKind = 0
	DistanceNear       DistanceKind = 1
	DistanceBend       DistanceKind = 2
)

// String returns a human-readable kind name.
func (k DistanceKind) String() string {
	switch k {
	case DistanceStructural:
		return "Structural"
	case DistanceNear:
		return "Near"
	case DistanceBend:
		return "Bend"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// DistanceRecord links its owning particle to Target at RestLength.
type DistanceRecord struct {
	Target     int32
	RestLength float32
	Kind       DistanceKind
}

// DistanceData holds distance records grouped by owning particle.
type DistanceData struct {
	Refs    []Ref // per particle
	Records []DistanceRecord
}

// ClampDistanceRecord is the rest distance from a particle to its root.
// Root is -1 for particles without a root.
type ClampDistanceRecord struct {
	Root       int32
	RestLength float32
}

// RotationRecord is a particle's rest offset and rotation in its parent's
// frame. Parent is -1 for particles without a parent.
type RotationRecord struct {
	Parent   int32
	LocalPos math.Vec3
	LocalRot math.Quat
}

// RotationData holds rotation records and the root lines used to walk
// clamp-rotation chains in parent-first order.
type RotationData struct {
	Records  []RotationRecord // per particle
	Lines    []Ref
	LineData []int32
}

// TriangleBendRecord is a pair of triangles sharing the edge V[0]-V[1] with
// wing vertices V[2] and V[3].
type TriangleBendRecord struct {
	Vertices  [4]int32
	RestAngle float32 // unsigned, [0, pi]
	Sign      float32 // winding of the rest pose, +1 or -1
	Depth     float32
}

// SlotsPerTriangle is the number of scatter slots a bend record writes.
const SlotsPerTriangle = 4

// TriangleBendData holds bend records and the scatter-slot reference index:
// Slots lists, per particle, the slot ids (record*4 + k) that carry its
// partial corrections.
type TriangleBendData struct {
	Records []TriangleBendRecord
	Refs    []Ref // per particle
	Slots   []int32
}

// PenetrationMode selects how penetration records are interpreted.
type PenetrationMode uint8

const (
	PenetrationNone     PenetrationMode = 0
	PenetrationSurface  PenetrationMode = 1
	PenetrationCollider PenetrationMode = 2
)

// String returns a human-readable mode name.
func (m PenetrationMode) String() string {
	switch m {
	case PenetrationNone:
		return "None"
	case PenetrationSurface:
		return "Surface"
	case PenetrationCollider:
		return "Collider"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// PenetrationRecord is either a surface axis (Surface mode) or a link to a
// collider (Collider mode).
type PenetrationRecord struct {
	Axis     Axis
	Collider int32
	LocalPos math.Vec3 // closest collider surface point, collider frame
	LocalDir math.Vec3 // push-out direction, collider frame
	Distance float32   // rest distance from the surface
}

// PenetrationData holds penetration records grouped by particle.
type PenetrationData struct {
	Mode    PenetrationMode
	Refs    []Ref // per particle
	Records []PenetrationRecord
}

// Data is the full constraint graph of one cloth topology.
// Nil members are disabled features.
type Data struct {
	VertexCount   int
	Distance      *DistanceData
	ClampDistance []ClampDistanceRecord
	Rotation      *RotationData
	TriangleBend  *TriangleBendData
	Penetration   *PenetrationData
}

// Validate checks that every per-particle array matches VertexCount and
// every index is in range.
func (d *Data) Validate() error {
	n := d.VertexCount
	if n <= 0 {
		return topology.NewBuildError(topology.CodeEmptyTopology, "constraint data has no vertices")
	}
	inRange := func(v int32) bool { return v >= 0 && int(v) < n }
	mismatch := func(what string, got int) error {
		return topology.NewBuildError(topology.CodeVertexCountMismatch, "%s=%d vertices=%d", what, got, n)
	}

	if d.Distance != nil {
		if len(d.Distance.Refs) != n {
			return mismatch("distance refs", len(d.Distance.Refs))
		}
		if err := checkRefs(d.Distance.Refs, len(d.Distance.Records)); err != nil {
			return err
		}
		for i, r := range d.Distance.Records {
			if !inRange(r.Target) {
				return topology.NewBuildError(topology.CodeInvalidIndex, "distance record %d target %d", i, r.Target)
			}
		}
	}
	if d.ClampDistance != nil {
		if len(d.ClampDistance) != n {
			return mismatch("clamp distance", len(d.ClampDistance))
		}
		for i, r := range d.ClampDistance {
			if r.Root >= 0 && !inRange(r.Root) {
				return topology.NewBuildError(topology.CodeInvalidIndex, "clamp distance %d root %d", i, r.Root)
			}
		}
	}
	if d.Rotation != nil {
		if len(d.Rotation.Records) != n {
			return mismatch("rotation", len(d.Rotation.Records))
		}
		for i, r := range d.Rotation.Records {
			if r.Parent >= 0 && !inRange(r.Parent) {
				return topology.NewBuildError(topology.CodeInvalidIndex, "rotation %d parent %d", i, r.Parent)
			}
		}
		if err := checkRefs(d.Rotation.Lines, len(d.Rotation.LineData)); err != nil {
			return err
		}
		for _, v := range d.Rotation.LineData {
			if !inRange(v) {
				return topology.NewBuildError(topology.CodeInvalidIndex, "rotation line vertex %d", v)
			}
		}
	}
	if d.TriangleBend != nil {
		if len(d.TriangleBend.Refs) != n {
			return mismatch("triangle bend refs", len(d.TriangleBend.Refs))
		}
		if err := checkRefs(d.TriangleBend.Refs, len(d.TriangleBend.Slots)); err != nil {
			return err
		}
		for i, r := range d.TriangleBend.Records {
			for _, v := range r.Vertices {
				if !inRange(v) {
					return topology.NewBuildError(topology.CodeInvalidIndex, "triangle bend %d vertex %d", i, v)
				}
			}
		}
		slotCount := int32(len(d.TriangleBend.Records) * SlotsPerTriangle)
		for _, s := range d.TriangleBend.Slots {
			if s < 0 || s >= slotCount {
				return topology.NewBuildError(topology.CodeInvalidIndex, "triangle bend slot %d", s)
			}
		}
	}
	if d.Penetration != nil {
		if len(d.Penetration.Refs) != n {
			return mismatch("penetration refs", len(d.Penetration.Refs))
		}
		if err := checkRefs(d.Penetration.Refs, len(d.Penetration.Records)); err != nil {
			return err
		}
	}
	return nil
}

func checkRefs(refs []Ref, size int) error {
	for i, r := range refs {
		if r.Start < 0 || r.Count < 0 || int(r.End()) > size {
			return topology.NewBuildError(topology.CodeInvalidIndex, "ref %d (%d,%d) exceeds %d", i, r.Start, r.Count, size)
		}
	}
	return nil
}
