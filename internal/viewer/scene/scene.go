// Package scene mirrors simulated cloth teams into vertex arrays and holds
// the orbit camera used to look at them.
package scene

import (
	"slices"

	"github.com/Faultbox/midgard-cloth/pkg/asset"
	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/physics"
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

// Edge joins two particles of a team.
type Edge [2]int32

// MeshEdges returns the unique edges of a bundle's lines and triangles,
// smaller index first, sorted.
func MeshEdges(b *asset.Bundle) []Edge {
	seen := make(map[Edge]struct{})
	add := func(a, c int32) {
		if a == c {
			return
		}
		if a > c {
			a, c = c, a
		}
		seen[Edge{a, c}] = struct{}{}
	}
	for _, l := range b.Lines {
		add(l[0], l[1])
	}
	for _, t := range b.Triangles {
		add(t[0], t[1])
		add(t[1], t[2])
		add(t[2], t[0])
	}
	edges := make([]Edge, 0, len(seen))
	for e := range seen {
		edges = append(edges, e)
	}
	slices.SortFunc(edges, func(x, y Edge) int {
		if x[0] != y[0] {
			return int(x[0] - y[0])
		}
		return int(x[1] - y[1])
	})
	return edges
}

// ParentEdges returns one edge per vertex that has a parent.
func ParentEdges(b *asset.Bundle) []Edge {
	var edges []Edge
	for v, vx := range b.Vertices {
		if vx.Parent >= 0 {
			edges = append(edges, Edge{vx.Parent, int32(v)})
		}
	}
	return edges
}

var (
	colorFixed   = [3]float32{0.95, 0.3, 0.25}
	colorExtend  = [3]float32{0.95, 0.65, 0.2}
	colorShallow = [3]float32{0.3, 0.55, 1.0}
	colorDeep    = [3]float32{0.4, 1.0, 0.85}
	colorPlain   = [3]float32{0.85, 0.85, 0.85}
	colorEdge    = [3]float32{0.45, 0.45, 0.5}
	colorParent  = [3]float32{0.9, 0.85, 0.3}
)

// VertexColor picks a particle color: fixed and extend vertices get their
// own colors, movable ones fade with depth.
func VertexColor(v topology.Vertex) [3]float32 {
	switch v.Role {
	case topology.RoleFixed:
		return colorFixed
	case topology.RoleExtend:
		return colorExtend
	}
	d := math.Clamp01(v.Depth)
	var c [3]float32
	for k := range c {
		c[k] = colorShallow[k] + (colorDeep[k]-colorShallow[k])*d
	}
	return c
}

type teamView struct {
	id      physics.TeamID
	bundle  *asset.Bundle
	edges   []Edge
	parents []Edge
	pose    []physics.Transform
}

// Scene mirrors simulated teams into interleaved position/color vertex
// arrays, six floats per vertex.
type Scene struct {
	ShowEdges   bool
	ShowParents bool
	ShowRoles   bool

	teams  []teamView
	Points []float32
	Lines  []float32
}

// NewScene returns an empty scene drawing mesh edges.
func NewScene(showRoles bool) *Scene {
	return &Scene{ShowEdges: true, ShowRoles: showRoles}
}

// Add starts mirroring a team.
func (s *Scene) Add(id physics.TeamID, b *asset.Bundle) {
	s.teams = append(s.teams, teamView{
		id:      id,
		bundle:  b,
		edges:   MeshEdges(b),
		parents: ParentEdges(b),
		pose:    make([]physics.Transform, b.VertexCount()),
	})
}

// Remove stops mirroring a team.
func (s *Scene) Remove(id physics.TeamID) {
	s.teams = slices.DeleteFunc(s.teams, func(t teamView) bool { return t.id == id })
}

// Teams returns the mirrored team ids.
func (s *Scene) Teams() []physics.TeamID {
	ids := make([]physics.TeamID, len(s.teams))
	for i, t := range s.teams {
		ids[i] = t.id
	}
	return ids
}

// Update reads the latest pose of every team and rebuilds the vertex arrays.
func (s *Scene) Update(sim *physics.Simulation) error {
	s.Points = s.Points[:0]
	s.Lines = s.Lines[:0]
	for i := range s.teams {
		t := &s.teams[i]
		if err := sim.WriteTransforms(t.id, t.pose, false); err != nil {
			return err
		}
		for v, tr := range t.pose {
			c := colorPlain
			if s.ShowRoles {
				c = VertexColor(t.bundle.Vertices[v])
			}
			s.Points = appendVertex(s.Points, tr.Pos, c)
		}
		if s.ShowEdges {
			s.Lines = appendEdges(s.Lines, t.pose, t.edges, colorEdge)
		}
		if s.ShowParents {
			s.Lines = appendEdges(s.Lines, t.pose, t.parents, colorParent)
		}
	}
	return nil
}

// Bounds returns the box around the current points.
func (s *Scene) Bounds() (lo, hi math.Vec3, ok bool) {
	for k := 0; k+2 < len(s.Points); k += 6 {
		p := math.Vec3{X: s.Points[k], Y: s.Points[k+1], Z: s.Points[k+2]}
		if !ok {
			lo, hi, ok = p, p, true
			continue
		}
		lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	return lo, hi, ok
}

func appendVertex(buf []float32, p math.Vec3, c [3]float32) []float32 {
	return append(buf, p.X, p.Y, p.Z, c[0], c[1], c[2])
}

func appendEdges(buf []float32, pose []physics.Transform, edges []Edge, c [3]float32) []float32 {
	for _, e := range edges {
		buf = appendVertex(buf, pose[e[0]].Pos, c)
		buf = appendVertex(buf, pose[e[1]].Pos, c)
	}
	return buf
}
