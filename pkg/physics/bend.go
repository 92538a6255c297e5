package physics

import (
	"github.com/Faultbox/midgard-cloth/pkg/arena"
	"github.com/Faultbox/midgard-cloth/pkg/asset"
	"github.com/Faultbox/midgard-cloth/pkg/constraint"
	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// bendRecord is a triangle pair tagged with its team. owner is slot+1 so
// cleared entries read as unowned.
type bendRecord struct {
	constraint.TriangleBendRecord
	owner int32
}

// triangleBendModule restores rest dihedral angles. Pass one evaluates each
// triangle pair into four private slots; pass two averages the slots that
// touch a particle into its predicted position.
type triangleBendModule struct {
	grouped[bendRecord]
	slots []math.Vec3
}

func (*triangleBendModule) id() moduleID { return modTriangleBend }

func (*triangleBendModule) iterations(p *ClothParams) int {
	if !p.TriangleBend.Enabled {
		return 0
	}
	return p.TriangleBend.Iterations
}

func (m *triangleBendModule) addTeam(slot int32, b *asset.Bundle) arena.Handle {
	d := b.Constraints.TriangleBend
	if d == nil || len(d.Records) == 0 {
		return arena.Handle{}
	}
	records := make([]bendRecord, len(d.Records))
	for i, r := range d.Records {
		records[i] = bendRecord{TriangleBendRecord: r, owner: slot + 1}
	}
	return m.store.add(slot, d.Refs, records, d.Slots)
}

func (m *triangleBendModule) prepare(s *Simulation) {
	m.resolve(s, modTriangleBend)
	n := len(m.store.records.Data) * constraint.SlotsPerTriangle
	if cap(m.slots) < n {
		m.slots = make([]math.Vec3, n)
	}
	m.slots = m.slots[:n]
}

func (m *triangleBendModule) solve(s *Simulation) {
	st := &s.store
	ctx := s.ctx
	records := m.store.records.Data
	s.pool.ParallelFor(len(records), s.settings.BatchSize, func(start, end int) {
		for r := start; r < end; r++ {
			out := m.slots[r*constraint.SlotsPerTriangle : (r+1)*constraint.SlotsPerTriangle]
			clear(out)
			rec := &records[r]
			slot := rec.owner - 1
			if slot < 0 || int(slot) >= len(s.frames) {
				continue
			}
			tf := &s.frames[slot]
			if !tf.runs(modTriangleBend, ctx) {
				continue
			}
			m.evaluate(st, tf, &rec.TriangleBendRecord, out)
		}
	})

	s.directPass(modTriangleBend, func(tf *teamFrame, i int32) math.Vec3 {
		p := st.Next[i]
		v, ok := m.view(tf)
		if !ok {
			return p
		}
		ref := v.refs[i-tf.start]
		if ref.Count == 0 {
			return p
		}
		base := v.recordStart * constraint.SlotsPerTriangle
		sum := math.Vec3{}
		for _, sl := range v.extra[ref.Start:ref.End()] {
			sum = sum.Add(m.slots[base+sl])
		}
		return p.Add(sum.Scale(1 / float32(ref.Count)))
	})
}

// evaluate writes the correction of each record vertex into out. Degenerate
// pairs leave out zeroed.
func (m *triangleBendModule) evaluate(st *ParticleStore, tf *teamFrame, rec *constraint.TriangleBendRecord, out []math.Vec3) {
	var idx [4]int32
	var pos [4]math.Vec3
	for k, v := range rec.Vertices {
		idx[k] = tf.start + v
		pos[k] = st.Next[idx[k]]
	}
	angle, sign, ok := constraint.DihedralAngle(pos[0], pos[1], pos[2], pos[3])
	if !ok {
		return
	}
	grad, ok := constraint.BendGradients(pos[0], pos[1], pos[2], pos[3])
	if !ok {
		return
	}
	c := constraint.WrapAngle(angle*sign - rec.RestAngle*rec.Sign)
	var w [4]float32
	denom := float32(0)
	for k := range idx {
		if !st.kinematic(idx[k]) {
			w[k] = 1
		}
		denom += w[k] * grad[k].LengthSq()
	}
	if denom < math.Epsilon {
		return
	}
	k := stiffness(tf.params.TriangleBend.Stiffness.Eval(rec.Depth), tf.power)
	s := -k * c / denom
	for j := range out {
		out[j] = grad[j].Scale(w[j] * s)
	}
}
