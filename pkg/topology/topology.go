package topology

import (
	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// Topology is a mesh reduced to its used vertices, with classification and
// hierarchy. All indices are local (compacted) indices.
type Topology struct {
	UsedVertices []int32 // local -> mesh vertex index
	Positions    []math.Vec3
	Normals      []math.Vec3
	Tangents     []math.Vec3
	Lines        [][2]int32
	Triangles    [][3]int32

	Adjacency *Adjacency
	Vertices  []Vertex
	MaxLevel  int32
	Hierarchy *Hierarchy
}

// Build validates the mesh, drops invalid vertices, and runs classification
// and hierarchy assignment.
func Build(mesh *Mesh, roles []Role) (*Topology, error) {
	if err := mesh.Validate(roles); err != nil {
		return nil, err
	}

	n := mesh.VertexCount()
	remap := make([]int32, n)
	t := &Topology{}
	for v := 0; v < n; v++ {
		remap[v] = -1
		if roles[v].IsValid() {
			remap[v] = int32(len(t.UsedVertices))
			t.UsedVertices = append(t.UsedVertices, int32(v))
		}
	}
	if len(t.UsedVertices) == 0 {
		return nil, NewBuildError(CodeEmptyTopology, "no used vertices in %d", n)
	}

	used := len(t.UsedVertices)
	t.Positions = make([]math.Vec3, used)
	t.Normals = make([]math.Vec3, used)
	t.Tangents = make([]math.Vec3, used)
	localRoles := make([]Role, used)
	for i, v := range t.UsedVertices {
		t.Positions[i] = mesh.Positions[v]
		t.Normals[i] = math.Forward
		t.Tangents[i] = math.Up
		if len(mesh.Normals) > 0 {
			t.Normals[i] = mesh.Normals[v]
		}
		if len(mesh.Tangents) > 0 {
			t.Tangents[i] = mesh.Tangents[v]
		}
		localRoles[i] = roles[v]
	}

	for _, l := range mesh.Lines {
		a, b := remap[l[0]], remap[l[1]]
		if a >= 0 && b >= 0 {
			t.Lines = append(t.Lines, [2]int32{a, b})
		}
	}
	for _, tri := range mesh.Triangles {
		a, b, c := remap[tri[0]], remap[tri[1]], remap[tri[2]]
		if a >= 0 && b >= 0 && c >= 0 {
			t.Triangles = append(t.Triangles, [3]int32{a, b, c})
		}
	}

	t.Adjacency = BuildAdjacency(used, t.Lines, t.Triangles)
	cls := Classify(t.Adjacency, localRoles)
	t.MaxLevel = cls.MaxLevel
	t.Hierarchy = BuildHierarchy(t.Positions, t.Adjacency, cls)

	t.Vertices = make([]Vertex, used)
	for i := range t.Vertices {
		t.Vertices[i] = Vertex{
			Role:   cls.Roles[i],
			Level:  cls.Levels[i],
			Depth:  cls.Depths[i],
			Parent: t.Hierarchy.Parents[i],
			Root:   t.Hierarchy.Roots[i],
			End:    t.Hierarchy.Ends[i],
		}
	}
	return t, nil
}

// VertexCount returns the number of used vertices.
func (t *Topology) VertexCount() int {
	return len(t.UsedVertices)
}

// Rotation returns the rest frame of a vertex: +Z along the normal, +Y along
// the tangent.
func (t *Topology) Rotation(v int32) math.Quat {
	return math.QuatLookRotation(t.Normals[v], t.Tangents[v])
}

// MoveCount returns the number of simulated vertices.
func (t *Topology) MoveCount() int {
	n := 0
	for _, v := range t.Vertices {
		if v.Role.IsMove() {
			n++
		}
	}
	return n
}
