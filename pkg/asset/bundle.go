// Package asset packages a compiled cloth topology as an immutable bundle:
// used vertices, their classification, rest geometry, and the constraint
// graph. Bundles are shared read-only by every team that uses them.
package asset

import (
	"fmt"

	"github.com/Faultbox/midgard-cloth/pkg/constraint"
	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

// Bundle is a baked cloth topology. All indices are local (compacted) vertex
// indices except UsedVertices, which maps back to the source mesh.
type Bundle struct {
	Name              string
	SourceVertexCount int32
	UsedVertices      []int32
	Vertices          []topology.Vertex
	Positions         []math.Vec3
	Normals           []math.Vec3
	Tangents          []math.Vec3
	MaxLevel          int32
	Lines             [][2]int32
	Triangles         [][3]int32
	Constraints       *constraint.Data

	// Hash is the data hash of the encoded payload. It is filled by Encode
	// and Decode.
	Hash uint64
}

// NewBundle packages a built topology and its constraint graph.
func NewBundle(name string, sourceVertexCount int, t *topology.Topology, d *constraint.Data) *Bundle {
	return &Bundle{
		Name:              name,
		SourceVertexCount: int32(sourceVertexCount),
		UsedVertices:      t.UsedVertices,
		Vertices:          t.Vertices,
		Positions:         t.Positions,
		Normals:           t.Normals,
		Tangents:          t.Tangents,
		MaxLevel:          t.MaxLevel,
		Lines:             t.Lines,
		Triangles:         t.Triangles,
		Constraints:       d,
	}
}

// Bake builds the topology and constraint graph of a mesh in one step.
func Bake(name string, mesh *topology.Mesh, roles []topology.Role, p constraint.BuildParams) (*Bundle, error) {
	t, err := topology.Build(mesh, roles)
	if err != nil {
		return nil, fmt.Errorf("building topology %q: %w", name, err)
	}
	d, err := constraint.Build(t, p)
	if err != nil {
		return nil, fmt.Errorf("building constraints %q: %w", name, err)
	}
	return NewBundle(name, mesh.VertexCount(), t, d), nil
}

// VertexCount returns the number of used vertices.
func (b *Bundle) VertexCount() int {
	return len(b.UsedVertices)
}

// Rotation returns the rest frame of a vertex.
func (b *Bundle) Rotation(v int32) math.Quat {
	return math.QuatLookRotation(b.Normals[v], b.Tangents[v])
}

// MoveCount returns the number of simulated vertices.
func (b *Bundle) MoveCount() int {
	n := 0
	for _, v := range b.Vertices {
		if v.Role.IsMove() {
			n++
		}
	}
	return n
}

// Validate checks that every per-vertex array agrees with the vertex count
// and that the constraint graph is consistent.
func (b *Bundle) Validate() error {
	n := b.VertexCount()
	if n == 0 {
		return topology.NewBuildError(topology.CodeEmptyTopology, "bundle %q has no vertices", b.Name)
	}
	for _, c := range []struct {
		what string
		got  int
	}{
		{"vertices", len(b.Vertices)},
		{"positions", len(b.Positions)},
		{"normals", len(b.Normals)},
		{"tangents", len(b.Tangents)},
	} {
		if c.got != n {
			return topology.NewBuildError(topology.CodeVertexCountMismatch, "%s=%d used=%d", c.what, c.got, n)
		}
	}
	for i, v := range b.UsedVertices {
		if v < 0 || v >= b.SourceVertexCount {
			return topology.NewBuildError(topology.CodeInvalidIndex, "used vertex %d maps to %d of %d", i, v, b.SourceVertexCount)
		}
	}
	inRange := func(v int32) bool { return v >= 0 && int(v) < n }
	for i, l := range b.Lines {
		if !inRange(l[0]) || !inRange(l[1]) {
			return topology.NewBuildError(topology.CodeInvalidIndex, "line %d (%d,%d)", i, l[0], l[1])
		}
	}
	for i, tri := range b.Triangles {
		if !inRange(tri[0]) || !inRange(tri[1]) || !inRange(tri[2]) {
			return topology.NewBuildError(topology.CodeInvalidIndex, "triangle %d %v", i, tri)
		}
	}
	if b.Constraints == nil {
		return topology.NewBuildError(topology.CodeEmptyTopology, "bundle %q has no constraint data", b.Name)
	}
	if b.Constraints.VertexCount != n {
		return topology.NewBuildError(topology.CodeVertexCountMismatch, "constraints=%d used=%d", b.Constraints.VertexCount, n)
	}
	return b.Constraints.Validate()
}
