package constraint

import (
	"slices"

	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

type distancePair struct {
	a, b int32
	kind DistanceKind
}

type candidate struct {
	a, b  int32
	score float32
}

func sortCandidates(c []candidate) {
	slices.SortStableFunc(c, func(x, y candidate) int {
		switch {
		case x.score < y.score:
			return -1
		case x.score > y.score:
			return 1
		default:
			return 0
		}
	})
}

// buildDistance emits structural, near and bend links in that order. Each
// link becomes one record per movable endpoint.
func buildDistance(t *topology.Topology, p BuildParams) *DistanceData {
	verts := t.Vertices
	links := topology.NewPairSet(nil)
	var pairs []distancePair

	for _, e := range t.Adjacency.Edges {
		if verts[e.A].Role.IsKinematic() && verts[e.B].Role.IsKinematic() {
			continue
		}
		links.Add(e.A, e.B)
		pairs = append(pairs, distancePair{a: e.A, b: e.B, kind: DistanceStructural})
	}

	if p.Near.Enabled && p.Near.MaxCount > 0 {
		pairs = appendNear(t, p.Near, links, pairs)
	}
	if p.Bend.Enabled && p.Bend.MaxCount > 0 {
		pairs = appendBend(t, p.Bend, links, pairs)
	}

	var records []DistanceRecord
	rb := NewRefBuilder(t.VertexCount())
	add := func(owner, target int32, rest float32, kind DistanceKind) {
		if !verts[owner].Role.IsMove() {
			return
		}
		rb.Attach(owner, int32(len(records)))
		records = append(records, DistanceRecord{Target: target, RestLength: rest, Kind: kind})
	}
	for _, pr := range pairs {
		rest := t.Positions[pr.a].Distance(t.Positions[pr.b])
		add(pr.a, pr.b, rest, pr.kind)
		add(pr.b, pr.a, rest, pr.kind)
	}

	refs, order := rb.Build()
	data := &DistanceData{
		Refs:    refs,
		Records: make([]DistanceRecord, len(order)),
	}
	for i, r := range order {
		data.Records[i] = records[r]
	}
	return data
}

func nearQualifies(v topology.Vertex, maxDepth float32) bool {
	return v.Role.IsMove() && v.Depth <= maxDepth
}

func appendNear(t *topology.Topology, p NearParams, links *topology.PairSet, pairs []distancePair) []distancePair {
	verts := t.Vertices
	var cands []candidate
	for v := range verts {
		if !nearQualifies(verts[v], p.MaxDepth) {
			continue
		}
		limit := p.Distance.Eval(verts[v].Depth)
		cands = cands[:0]
		for u := range verts {
			if u == v || !nearQualifies(verts[u], p.MaxDepth) {
				continue
			}
			if links.Has(int32(v), int32(u)) {
				continue
			}
			d := t.Positions[v].Distance(t.Positions[u])
			if d > limit {
				continue
			}
			cands = append(cands, candidate{a: int32(v), b: int32(u), score: d})
		}
		sortCandidates(cands)
		added := 0
		for _, c := range cands {
			if added >= p.MaxCount {
				break
			}
			if !links.Add(c.a, c.b) {
				continue
			}
			pairs = append(pairs, distancePair{a: c.a, b: c.b, kind: DistanceNear})
			added++
		}
	}
	return pairs
}

// appendBend links pairs of a vertex's neighbours, preferring pairs whose
// segment passes closest to the vertex.
func appendBend(t *topology.Topology, p BendParams, links *topology.PairSet, pairs []distancePair) []distancePair {
	verts := t.Vertices
	var cands []candidate
	for v := range verts {
		nbs := t.Adjacency.Of(int32(v))
		cands = cands[:0]
		for i := 0; i < len(nbs); i++ {
			for j := i + 1; j < len(nbs); j++ {
				a, b := nbs[i], nbs[j]
				if verts[a].Role.IsKinematic() && verts[b].Role.IsKinematic() {
					continue
				}
				if links.Has(a, b) {
					continue
				}
				score := math.PointSegmentDistance(t.Positions[v], t.Positions[a], t.Positions[b])
				cands = append(cands, candidate{a: a, b: b, score: score})
			}
		}
		sortCandidates(cands)
		added := 0
		for _, c := range cands {
			if added >= p.MaxCount {
				break
			}
			if !links.Add(c.a, c.b) {
				continue
			}
			pairs = append(pairs, distancePair{a: c.a, b: c.b, kind: DistanceBend})
			added++
		}
	}
	return pairs
}

// buildClampDistance stores the rest distance from each movable vertex to
// its root.
func buildClampDistance(t *topology.Topology) []ClampDistanceRecord {
	out := make([]ClampDistanceRecord, t.VertexCount())
	for v, vx := range t.Vertices {
		out[v] = ClampDistanceRecord{Root: -1}
		if !vx.Role.IsMove() || vx.Root < 0 {
			continue
		}
		out[v] = ClampDistanceRecord{
			Root:       vx.Root,
			RestLength: t.Positions[v].Distance(t.Positions[vx.Root]),
		}
	}
	return out
}
