package topology

import (
	"slices"
)

// Edge is an undirected edge with A < B.
type Edge struct {
	A, B int32
}

// MakeEdge orders the endpoints of an edge.
func MakeEdge(a, b int32) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Key packs the edge into a sortable integer.
func (e Edge) Key() uint64 {
	return uint64(uint32(e.A))<<32 | uint64(uint32(e.B))
}

func edgeFromKey(k uint64) Edge {
	return Edge{A: int32(uint32(k >> 32)), B: int32(uint32(k))}
}

// Adjacency is a CSR neighbour table built from a sorted edge list.
type Adjacency struct {
	Offsets   []int32 // len = vertexCount+1
	Neighbors []int32
	Edges     []Edge // sorted by Key, unique
}

// BuildAdjacency collects edges from lines and triangles.
// Self-edges are ignored.
func BuildAdjacency(vertexCount int, lines [][2]int32, triangles [][3]int32) *Adjacency {
	keys := make([]uint64, 0, len(lines)+len(triangles)*3)
	add := func(a, b int32) {
		if a == b {
			return
		}
		keys = append(keys, MakeEdge(a, b).Key())
	}
	for _, l := range lines {
		add(l[0], l[1])
	}
	for _, t := range triangles {
		add(t[0], t[1])
		add(t[1], t[2])
		add(t[2], t[0])
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	adj := &Adjacency{
		Offsets:   make([]int32, vertexCount+1),
		Neighbors: make([]int32, len(keys)*2),
		Edges:     make([]Edge, len(keys)),
	}

	for i, k := range keys {
		e := edgeFromKey(k)
		adj.Edges[i] = e
		adj.Offsets[e.A+1]++
		adj.Offsets[e.B+1]++
	}
	for i := 1; i <= vertexCount; i++ {
		adj.Offsets[i] += adj.Offsets[i-1]
	}

	fill := make([]int32, vertexCount)
	copy(fill, adj.Offsets[:vertexCount])
	for _, e := range adj.Edges {
		adj.Neighbors[fill[e.A]] = e.B
		fill[e.A]++
		adj.Neighbors[fill[e.B]] = e.A
		fill[e.B]++
	}
	for v := 0; v < vertexCount; v++ {
		slices.Sort(adj.Neighbors[adj.Offsets[v]:adj.Offsets[v+1]])
	}
	return adj
}

// VertexCount returns the number of vertices in the table.
func (a *Adjacency) VertexCount() int {
	return len(a.Offsets) - 1
}

// Of returns the sorted neighbours of v.
func (a *Adjacency) Of(v int32) []int32 {
	return a.Neighbors[a.Offsets[v]:a.Offsets[v+1]]
}

// Degree returns the neighbour count of v.
func (a *Adjacency) Degree(v int32) int {
	return int(a.Offsets[v+1] - a.Offsets[v])
}

// HasEdge reports whether u and v are directly connected.
func (a *Adjacency) HasEdge(u, v int32) bool {
	_, ok := slices.BinarySearch(a.Of(u), v)
	return ok
}

// SharedEdge is an edge used by exactly two triangles.
type SharedEdge struct {
	Edge      Edge
	Triangles [2]int32
}

// FindSharedEdges returns every edge shared by exactly two triangles, in edge
// key order.
func FindSharedEdges(triangles [][3]int32) []SharedEdge {
	type entry struct {
		key uint64
		tri int32
	}
	entries := make([]entry, 0, len(triangles)*3)
	for i, t := range triangles {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			if a == b {
				continue
			}
			entries = append(entries, entry{key: MakeEdge(a, b).Key(), tri: int32(i)})
		}
	}
	slices.SortFunc(entries, func(x, y entry) int {
		switch {
		case x.key < y.key:
			return -1
		case x.key > y.key:
			return 1
		default:
			return int(x.tri - y.tri)
		}
	})

	var out []SharedEdge
	for i := 0; i < len(entries); {
		j := i + 1
		for j < len(entries) && entries[j].key == entries[i].key {
			j++
		}
		if j-i == 2 && entries[i].tri != entries[i+1].tri {
			out = append(out, SharedEdge{
				Edge:      edgeFromKey(entries[i].key),
				Triangles: [2]int32{entries[i].tri, entries[i+1].tri},
			})
		}
		i = j
	}
	return out
}

// PairSet is a sorted set of undirected vertex pairs.
type PairSet struct {
	keys []uint64
}

// NewPairSet creates a set seeded with the given edges.
func NewPairSet(edges []Edge) *PairSet {
	s := &PairSet{keys: make([]uint64, len(edges))}
	for i, e := range edges {
		s.keys[i] = MakeEdge(e.A, e.B).Key()
	}
	slices.Sort(s.keys)
	s.keys = slices.Compact(s.keys)
	return s
}

// Has reports whether the pair is in the set.
func (s *PairSet) Has(a, b int32) bool {
	_, ok := slices.BinarySearch(s.keys, MakeEdge(a, b).Key())
	return ok
}

// Add inserts the pair and reports whether it was new.
func (s *PairSet) Add(a, b int32) bool {
	k := MakeEdge(a, b).Key()
	i, ok := slices.BinarySearch(s.keys, k)
	if ok {
		return false
	}
	s.keys = slices.Insert(s.keys, i, k)
	return true
}

// Len returns the number of pairs.
func (s *PairSet) Len() int {
	return len(s.keys)
}
