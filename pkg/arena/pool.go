// Package arena provides storage with stable handles: a generational object
// pool and a growable flat buffer carved into chunks.
package arena

// Handle identifies a pool slot. Gen is bumped every time the slot is freed,
// so handles to removed items stop resolving. The zero Handle is the nil
// handle.
type Handle struct {
	Index int32
	Gen   uint32
}

// IsNil reports whether h is the nil handle.
func (h Handle) IsNil() bool {
	return h.Gen == 0
}

// Pool stores values behind generational handles. Freed slots are reused.
type Pool[T any] struct {
	items []T
	gens  []uint32
	live  []bool
	free  []int32
	count int
}

// Add stores v and returns its handle.
func (p *Pool[T]) Add(v T) Handle {
	var idx int32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		idx = int32(len(p.items))
		var zero T
		p.items = append(p.items, zero)
		p.gens = append(p.gens, 1)
		p.live = append(p.live, false)
	}
	p.items[idx] = v
	p.live[idx] = true
	p.count++
	return Handle{Index: idx, Gen: p.gens[idx]}
}

// Valid reports whether h refers to a live item.
func (p *Pool[T]) Valid(h Handle) bool {
	if h.Gen == 0 || h.Index < 0 || int(h.Index) >= len(p.items) {
		return false
	}
	return p.live[h.Index] && p.gens[h.Index] == h.Gen
}

// Get returns a pointer to the item behind h. The pointer is valid until the
// next Add.
func (p *Pool[T]) Get(h Handle) (*T, bool) {
	if !p.Valid(h) {
		return nil, false
	}
	return &p.items[h.Index], true
}

// Remove frees the slot behind h. Stale handles are ignored.
func (p *Pool[T]) Remove(h Handle) bool {
	if !p.Valid(h) {
		return false
	}
	var zero T
	p.items[h.Index] = zero
	p.live[h.Index] = false
	p.gens[h.Index]++
	if p.gens[h.Index] == 0 {
		p.gens[h.Index] = 1
	}
	p.free = append(p.free, h.Index)
	p.count--
	return true
}

// Len returns the number of live items.
func (p *Pool[T]) Len() int {
	return p.count
}

// Each calls fn for every live item in slot order.
func (p *Pool[T]) Each(fn func(h Handle, v *T)) {
	for i := range p.items {
		if p.live[i] {
			fn(Handle{Index: int32(i), Gen: p.gens[i]}, &p.items[i])
		}
	}
}
