package arena

import (
	"slices"
	"testing"
)

func TestPoolHandles(t *testing.T) {
	var p Pool[string]

	a := p.Add("a")
	b := p.Add("b")
	if a.IsNil() || b.IsNil() {
		t.Fatal("live handles must not be nil")
	}
	if v, ok := p.Get(b); !ok || *v != "b" {
		t.Errorf("Get(b) = %v, %v", v, ok)
	}

	if !p.Remove(a) {
		t.Fatal("Remove(a) failed")
	}
	if p.Valid(a) {
		t.Error("removed handle still valid")
	}
	if p.Remove(a) {
		t.Error("second Remove should be ignored")
	}

	c := p.Add("c")
	if c.Index != a.Index {
		t.Errorf("expected slot %d to be reused, got %d", a.Index, c.Index)
	}
	if c.Gen == a.Gen {
		t.Error("reused slot must bump its generation")
	}
	if _, ok := p.Get(a); ok {
		t.Error("stale handle resolved to the new item")
	}
	if p.Len() != 2 {
		t.Errorf("Len = %d, want 2", p.Len())
	}

	var nilHandle Handle
	if !nilHandle.IsNil() || p.Valid(nilHandle) {
		t.Error("zero handle must be nil and invalid")
	}
	if p.Valid(Handle{Index: 99, Gen: 1}) {
		t.Error("out of range handle must be invalid")
	}

	var seen []string
	p.Each(func(h Handle, v *string) { seen = append(seen, *v) })
	if !slices.Equal(seen, []string{"c", "b"}) {
		t.Errorf("Each visited %v", seen)
	}
}

func TestChunkAllocator(t *testing.T) {
	var a ChunkAllocator

	c1 := a.Alloc(4)
	c2 := a.Alloc(3)
	c3 := a.Alloc(5)
	if c1 != (Chunk{0, 4}) || c2 != (Chunk{4, 3}) || c3 != (Chunk{7, 5}) {
		t.Fatalf("unexpected chunks %v %v %v", c1, c2, c3)
	}
	if a.Size() != 12 || a.Used() != 12 {
		t.Fatalf("size/used = %d/%d", a.Size(), a.Used())
	}

	a.Free(c2)
	if got := a.Alloc(2); got != (Chunk{4, 2}) {
		t.Errorf("expected first-fit reuse at 4, got %v", got)
	}
	if got := a.Alloc(2); got != (Chunk{12, 2}) {
		t.Errorf("expected append at 12 (hole is 1 wide), got %v", got)
	}

	// freeing the tail shrinks the buffer down to the last live chunk
	a.Free(Chunk{12, 2})
	a.Free(c3)
	if a.Size() != 6 {
		t.Errorf("size after tail free = %d, want 6", a.Size())
	}

	if got := a.Alloc(0); !got.IsEmpty() {
		t.Errorf("zero alloc = %v", got)
	}
}

func TestChunkAllocatorMerge(t *testing.T) {
	var a ChunkAllocator
	chunks := []Chunk{a.Alloc(2), a.Alloc(2), a.Alloc(2), a.Alloc(2)}

	a.Free(chunks[0])
	a.Free(chunks[2])
	a.Free(chunks[1])
	if len(a.free) != 1 || a.free[0] != (Chunk{0, 6}) {
		t.Errorf("expected one merged hole {0 6}, got %v", a.free)
	}
	if f := a.Fragmentation(); f != 0.75 {
		t.Errorf("fragmentation = %v, want 0.75", f)
	}
}

func TestBufferCompactKeepsHandlesStable(t *testing.T) {
	type group struct {
		chunk Chunk
		tag   int
	}
	var pool Pool[group]
	var buf Buffer[int]

	add := func(tag, n int) Handle {
		items := make([]int, n)
		for i := range items {
			items[i] = tag*100 + i
		}
		return pool.Add(group{chunk: buf.Add(items), tag: tag})
	}
	h1 := add(1, 3)
	h2 := add(2, 4)
	h3 := add(3, 2)
	h4 := add(4, 5)

	for _, h := range []Handle{h1, h3} {
		g, _ := pool.Get(h)
		buf.Remove(g.chunk)
		pool.Remove(h)
	}
	if buf.Fragmentation() == 0 {
		t.Fatal("expected holes before compaction")
	}

	var live []Chunk
	pool.Each(func(_ Handle, g *group) { live = append(live, g.chunk) })
	moves := buf.Compact(live)
	pool.Each(func(_ Handle, g *group) { g.chunk = Relocate(g.chunk, moves) })

	if len(buf.Data) != 9 || buf.Fragmentation() != 0 {
		t.Errorf("after compaction len=%d fragmentation=%v", len(buf.Data), buf.Fragmentation())
	}
	for _, h := range []Handle{h2, h4} {
		g, ok := pool.Get(h)
		if !ok {
			t.Fatalf("handle %v lost across compaction", h)
		}
		for i, v := range buf.Slice(g.chunk) {
			if v != g.tag*100+i {
				t.Errorf("group %d element %d = %d", g.tag, i, v)
			}
		}
	}

	// new data goes after the packed region
	h5 := add(5, 1)
	g5, _ := pool.Get(h5)
	if g5.chunk.Start != 9 {
		t.Errorf("new chunk start = %d, want 9", g5.chunk.Start)
	}
}
