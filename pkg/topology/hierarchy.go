package topology

import (
	"slices"

	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// Ref is a CSR row: Count items starting at Start.
type Ref struct {
	Start int32
	Count int32
}

// End returns the exclusive end index of the row.
func (r Ref) End() int32 {
	return r.Start + r.Count
}

// Hierarchy holds the parent tree derived from levels.
type Hierarchy struct {
	Parents   []int32
	Roots     []int32
	Ends      []bool
	Children  []Ref
	ChildData []int32
	// Root lines: each direct child of a root starts a line holding its
	// subtree in breadth-first order.
	Lines    []Ref
	LineData []int32
}

// BuildHierarchy assigns each movable vertex a parent with a greedy direction
// heuristic: among neighbours with a strictly smaller level, the one whose
// direction best matches the direction toward the nearest fixed vertex.
// Ties keep the lowest neighbour index. Candidates that would close a cycle
// are rejected.
func BuildHierarchy(positions []math.Vec3, adj *Adjacency, c *Classification) *Hierarchy {
	n := len(c.Roles)
	h := &Hierarchy{
		Parents: make([]int32, n),
		Roots:   make([]int32, n),
		Ends:    make([]bool, n),
	}
	for i := range h.Parents {
		h.Parents[i] = -1
		h.Roots[i] = -1
	}

	anchors := anchorVertices(c.Roles)

	order := make([]int32, 0, n)
	for v := 0; v < n; v++ {
		if c.Roles[v] == RoleMove && c.Levels[v] > 0 {
			order = append(order, int32(v))
		}
	}
	slices.SortStableFunc(order, func(a, b int32) int {
		return int(c.Levels[a] - c.Levels[b])
	})

	for _, v := range order {
		pos := positions[v]
		toAnchor := math.Vec3{}
		if f := nearestVertex(positions, anchors, pos); f >= 0 {
			toAnchor = positions[f].Sub(pos).Normalize()
		}

		parent := int32(-1)
		bestDot := float32(0)
		for _, nb := range adj.Of(v) {
			lv := c.Levels[nb]
			if lv <= 0 || lv >= c.Levels[v] {
				continue
			}
			d := positions[nb].Sub(pos).Normalize().Dot(toAnchor)
			if parent >= 0 && d <= bestDot {
				continue
			}
			if createsCycle(h.Parents, nb, v) {
				continue
			}
			parent = nb
			bestDot = d
		}
		h.Parents[v] = parent
	}

	for v := 0; v < n; v++ {
		if h.Parents[v] < 0 {
			continue
		}
		r := int32(v)
		for steps := 0; h.Parents[r] >= 0 && steps < n; steps++ {
			r = h.Parents[r]
		}
		h.Roots[v] = r
	}

	h.Children, h.ChildData = buildChildren(h.Parents)
	for v := 0; v < n; v++ {
		h.Ends[v] = c.Roles[v] == RoleMove && h.Children[v].Count == 0
	}
	h.buildLines()
	return h
}

// anchorVertices returns Fixed vertices, or Extend vertices if there are none.
func anchorVertices(roles []Role) []int32 {
	var fixed, extend []int32
	for v, r := range roles {
		switch r {
		case RoleFixed:
			fixed = append(fixed, int32(v))
		case RoleExtend:
			extend = append(extend, int32(v))
		}
	}
	if len(fixed) > 0 {
		return fixed
	}
	return extend
}

func nearestVertex(positions []math.Vec3, candidates []int32, p math.Vec3) int32 {
	best := int32(-1)
	bestDist := float32(0)
	for _, c := range candidates {
		d := positions[c].Sub(p).LengthSq()
		if best < 0 || d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

// createsCycle walks the tentative parent chain from candidate and reports
// whether it reaches v.
func createsCycle(parents []int32, candidate, v int32) bool {
	for p, steps := candidate, 0; p >= 0 && steps <= len(parents); steps++ {
		if p == v {
			return true
		}
		p = parents[p]
	}
	return false
}

func buildChildren(parents []int32) ([]Ref, []int32) {
	n := len(parents)
	refs := make([]Ref, n)
	total := int32(0)
	for _, p := range parents {
		if p >= 0 {
			refs[p].Count++
			total++
		}
	}
	start := int32(0)
	for i := range refs {
		refs[i].Start = start
		start += refs[i].Count
	}
	data := make([]int32, total)
	fill := make([]int32, n)
	for v, p := range parents {
		if p < 0 {
			continue
		}
		data[refs[p].Start+fill[p]] = int32(v)
		fill[p]++
	}
	return refs, data
}

func (h *Hierarchy) buildLines() {
	var queue []int32
	for r := range h.Parents {
		if h.Parents[r] >= 0 {
			continue
		}
		ref := h.Children[r]
		for _, head := range h.ChildData[ref.Start:ref.End()] {
			line := Ref{Start: int32(len(h.LineData))}
			queue = append(queue[:0], head)
			for len(queue) > 0 {
				v := queue[0]
				queue = queue[1:]
				h.LineData = append(h.LineData, v)
				cr := h.Children[v]
				queue = append(queue, h.ChildData[cr.Start:cr.End()]...)
			}
			line.Count = int32(len(h.LineData)) - line.Start
			h.Lines = append(h.Lines, line)
		}
	}
}
