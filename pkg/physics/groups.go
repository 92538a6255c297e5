package physics

import (
	"github.com/Faultbox/midgard-cloth/pkg/arena"
	"github.com/Faultbox/midgard-cloth/pkg/constraint"
)

// group is the descriptor of one team's records inside a module. The meaning
// of the three chunks depends on the module; unused chunks stay empty.
type group struct {
	team    int32
	refs    arena.Chunk
	records arena.Chunk
	extra   arena.Chunk
}

// groupView is a resolved group: slices into the module buffers.
type groupView[R any] struct {
	refs        []constraint.Ref
	records     []R
	extra       []int32
	recordStart int32
}

// groupStore keeps the records of every team for one module in three flat
// buffers, addressed through generational handles so compaction can move
// data without invalidating the handles teams hold.
type groupStore[R any] struct {
	groups  arena.Pool[group]
	refs    arena.Buffer[constraint.Ref]
	records arena.Buffer[R]
	extra   arena.Buffer[int32]
}

// add copies one team's data in and returns its group handle.
func (g *groupStore[R]) add(team int32, refs []constraint.Ref, records []R, extra []int32) arena.Handle {
	return g.groups.Add(group{
		team:    team,
		refs:    g.refs.Add(refs),
		records: g.records.Add(records),
		extra:   g.extra.Add(extra),
	})
}

// remove frees a group. Stale or nil handles are ignored.
func (g *groupStore[R]) remove(h arena.Handle) {
	d, ok := g.groups.Get(h)
	if !ok {
		return
	}
	g.refs.Remove(d.refs)
	g.records.Remove(d.records)
	g.extra.Remove(d.extra)
	g.groups.Remove(h)
}

func (g *groupStore[R]) view(h arena.Handle) (groupView[R], bool) {
	d, ok := g.groups.Get(h)
	if !ok {
		return groupView[R]{}, false
	}
	return groupView[R]{
		refs:        g.refs.Slice(d.refs),
		records:     g.records.Slice(d.records),
		extra:       g.extra.Slice(d.extra),
		recordStart: d.records.Start,
	}, true
}

// compact packs all three buffers and patches the descriptors.
func (g *groupStore[R]) compact() {
	var refs, records, extra []arena.Chunk
	g.groups.Each(func(_ arena.Handle, d *group) {
		refs = append(refs, d.refs)
		records = append(records, d.records)
		extra = append(extra, d.extra)
	})
	refMoves := g.refs.Compact(refs)
	recordMoves := g.records.Compact(records)
	extraMoves := g.extra.Compact(extra)
	g.groups.Each(func(_ arena.Handle, d *group) {
		d.refs = arena.Relocate(d.refs, refMoves)
		d.records = arena.Relocate(d.records, recordMoves)
		d.extra = arena.Relocate(d.extra, extraMoves)
	})
}

func (g *groupStore[R]) fragmentation() float32 {
	return max(g.refs.Fragmentation(), g.records.Fragmentation(), g.extra.Fragmentation())
}
