package arena

// Buffer is a flat slice whose ranges are managed by a ChunkAllocator.
type Buffer[T any] struct {
	Data  []T
	alloc ChunkAllocator
}

// Add copies items into a newly allocated chunk.
func (b *Buffer[T]) Add(items []T) Chunk {
	c := b.alloc.Alloc(len(items))
	if need := b.alloc.Size(); need > len(b.Data) {
		b.Data = append(b.Data, make([]T, need-len(b.Data))...)
	}
	copy(b.Data[c.Start:c.End()], items)
	return c
}

// Remove frees a chunk and clears its elements.
func (b *Buffer[T]) Remove(c Chunk) {
	if c.IsEmpty() {
		return
	}
	clear(b.Data[c.Start:c.End()])
	b.alloc.Free(c)
	b.Data = b.Data[:b.alloc.Size()]
}

// Slice returns the elements of a chunk.
func (b *Buffer[T]) Slice(c Chunk) []T {
	if c.IsEmpty() {
		return nil
	}
	return b.Data[c.Start:c.End()]
}

// Len returns the number of allocated elements.
func (b *Buffer[T]) Len() int {
	return b.alloc.Used()
}

// Fragmentation returns the share of Data sitting in free holes.
func (b *Buffer[T]) Fragmentation() float32 {
	return b.alloc.Fragmentation()
}

// Compact packs the live chunks, moving their elements, and returns the
// moves so owners can patch their chunk descriptors.
func (b *Buffer[T]) Compact(live []Chunk) []Move {
	moves := b.alloc.Compact(live)
	for _, m := range moves {
		copy(b.Data[m.To:m.To+m.From.Count], b.Data[m.From.Start:m.From.End()])
	}
	size := b.alloc.Size()
	clear(b.Data[size:])
	b.Data = b.Data[:size]
	return moves
}

// Relocate returns the chunk c after a compaction that produced moves.
func Relocate(c Chunk, moves []Move) Chunk {
	for _, m := range moves {
		if m.From == c {
			return Chunk{Start: m.To, Count: c.Count}
		}
	}
	return c
}
