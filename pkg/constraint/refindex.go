package constraint

import "slices"

// RefBuilder collects (owner, item) attachments and emits a CSR index:
// one Ref per owner and a flat item list grouped by owner, preserving
// attachment order within an owner.
type RefBuilder struct {
	owners int
	pairs  []refPair
}

type refPair struct {
	owner int32
	item  int32
}

// NewRefBuilder creates a builder for owners particles.
func NewRefBuilder(owners int) *RefBuilder {
	return &RefBuilder{owners: owners}
}

// Attach records that item touches owner.
func (b *RefBuilder) Attach(owner, item int32) {
	b.pairs = append(b.pairs, refPair{owner: owner, item: item})
}

// Len returns the number of attachments.
func (b *RefBuilder) Len() int {
	return len(b.pairs)
}

// Build returns the per-owner refs and the grouped item list.
func (b *RefBuilder) Build() ([]Ref, []int32) {
	slices.SortStableFunc(b.pairs, func(x, y refPair) int {
		return int(x.owner - y.owner)
	})
	refs := make([]Ref, b.owners)
	items := make([]int32, len(b.pairs))
	for i, p := range b.pairs {
		if refs[p.owner].Count == 0 {
			refs[p.owner].Start = int32(i)
		}
		refs[p.owner].Count++
		items[i] = p.item
	}
	// empty rows point at the running offset so Start stays monotonic
	next := int32(0)
	for i := range refs {
		if refs[i].Count == 0 {
			refs[i].Start = next
		}
		next = refs[i].End()
	}
	return refs, items
}
