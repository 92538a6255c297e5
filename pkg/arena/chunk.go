package arena

import "slices"

// Chunk is a contiguous range of a flat buffer.
type Chunk struct {
	Start int32
	Count int32
}

// End returns the index one past the chunk.
func (c Chunk) End() int32 {
	return c.Start + c.Count
}

// IsEmpty reports whether the chunk holds nothing.
func (c Chunk) IsEmpty() bool {
	return c.Count <= 0
}

// Move records that a live chunk was relocated by Compact.
type Move struct {
	From Chunk
	To   int32
}

// ChunkAllocator hands out ranges of a flat buffer. Freed ranges are kept in
// a sorted, merged free list and reused first-fit.
type ChunkAllocator struct {
	size int32
	used int32
	free []Chunk
}

// Alloc reserves n elements. Zero-length requests return an empty chunk at
// the current end.
func (a *ChunkAllocator) Alloc(n int) Chunk {
	if n <= 0 {
		return Chunk{Start: a.size}
	}
	count := int32(n)
	for i, f := range a.free {
		if f.Count < count {
			continue
		}
		c := Chunk{Start: f.Start, Count: count}
		if f.Count == count {
			a.free = slices.Delete(a.free, i, i+1)
		} else {
			a.free[i] = Chunk{Start: f.Start + count, Count: f.Count - count}
		}
		a.used += count
		return c
	}
	c := Chunk{Start: a.size, Count: count}
	a.size += count
	a.used += count
	return c
}

// Free returns a chunk to the allocator. A free range touching the end of
// the buffer shrinks it.
func (a *ChunkAllocator) Free(c Chunk) {
	if c.IsEmpty() {
		return
	}
	a.used -= c.Count
	i, _ := slices.BinarySearchFunc(a.free, c.Start, func(f Chunk, start int32) int {
		return int(f.Start - start)
	})
	a.free = slices.Insert(a.free, i, c)

	// merge with the right neighbour, then the left one
	if i+1 < len(a.free) && a.free[i].End() == a.free[i+1].Start {
		a.free[i].Count += a.free[i+1].Count
		a.free = slices.Delete(a.free, i+1, i+2)
	}
	if i > 0 && a.free[i-1].End() == a.free[i].Start {
		a.free[i-1].Count += a.free[i].Count
		a.free = slices.Delete(a.free, i, i+1)
		i--
	}
	if a.free[i].End() == a.size {
		a.size = a.free[i].Start
		a.free = a.free[:i]
	}
}

// Size returns the length the backing buffer must have.
func (a *ChunkAllocator) Size() int {
	return int(a.size)
}

// Used returns the number of allocated elements.
func (a *ChunkAllocator) Used() int {
	return int(a.used)
}

// Fragmentation returns the share of the buffer sitting in free holes.
func (a *ChunkAllocator) Fragmentation() float32 {
	if a.size == 0 {
		return 0
	}
	return float32(a.size-a.used) / float32(a.size)
}

// Compact packs the given live chunks to the front of the buffer in start
// order and returns the moves, sorted by destination. Applying the moves in
// order never overwrites a chunk that has not been moved yet.
func (a *ChunkAllocator) Compact(live []Chunk) []Move {
	sorted := slices.Clone(live)
	slices.SortFunc(sorted, func(x, y Chunk) int {
		return int(x.Start - y.Start)
	})

	var moves []Move
	next := int32(0)
	for _, c := range sorted {
		if c.IsEmpty() {
			continue
		}
		if c.Start != next {
			moves = append(moves, Move{From: c, To: next})
		}
		next += c.Count
	}
	a.size = next
	a.used = next
	a.free = a.free[:0]
	return moves
}
