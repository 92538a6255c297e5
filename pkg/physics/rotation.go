package physics

import (
	gomath "math"

	"github.com/Faultbox/midgard-cloth/pkg/arena"
	"github.com/Faultbox/midgard-cloth/pkg/asset"
	"github.com/Faultbox/midgard-cloth/pkg/constraint"
	"github.com/Faultbox/midgard-cloth/pkg/math"
)

const degToRad = gomath.Pi / 180

// restoreRotationModule pulls each particle toward the position its rest
// offset gives in the parent's current frame.
type restoreRotationModule struct {
	grouped[constraint.RotationRecord]
}

func (*restoreRotationModule) id() moduleID { return modRestoreRotation }

func (*restoreRotationModule) iterations(p *ClothParams) int {
	if !p.RestoreRotation.Enabled {
		return 0
	}
	return p.RestoreRotation.Iterations
}

func (m *restoreRotationModule) addTeam(slot int32, b *asset.Bundle) arena.Handle {
	d := b.Constraints.Rotation
	if d == nil {
		return arena.Handle{}
	}
	return m.store.add(slot, nil, d.Records, nil)
}

func (m *restoreRotationModule) prepare(s *Simulation) {
	m.resolve(s, modRestoreRotation)
}

func (m *restoreRotationModule) solve(s *Simulation) {
	st := &s.store
	s.directPass(modRestoreRotation, func(tf *teamFrame, i int32) math.Vec3 {
		p := st.Next[i]
		v, ok := m.view(tf)
		if !ok {
			return p
		}
		rec := v.records[i-tf.start]
		if rec.Parent < 0 {
			return p
		}
		rp := tf.params.RestoreRotation
		parent := tf.start + rec.Parent
		target := st.Next[parent].Add(st.rotationOf(parent).Rotate(rec.LocalPos.Scale(tf.scale)))
		k := stiffness(rp.Stiffness.Eval(st.Depth[i]), tf.power)
		delta := target.Sub(p).Scale(k)
		st.VelPos[i] = st.VelPos[i].Add(delta.Scale(1 - rp.VelocityInfluence))
		return p.Add(delta)
	})
}

// clampRotationModule limits the angle between each particle's direction
// from its parent and the rest direction. Lines are walked parent first so
// a corrected parent carries its children along.
type clampRotationModule struct {
	grouped[constraint.RotationRecord]
	lines []lineRef
}

// lineRef is one root line of one team.
type lineRef struct {
	slot int32
	line int32
}

func (*clampRotationModule) id() moduleID { return modClampRotation }

func (*clampRotationModule) iterations(p *ClothParams) int {
	if !p.ClampRotation.Enabled {
		return 0
	}
	return p.ClampRotation.Iterations
}

func (m *clampRotationModule) addTeam(slot int32, b *asset.Bundle) arena.Handle {
	d := b.Constraints.Rotation
	if d == nil || len(d.Lines) == 0 {
		return arena.Handle{}
	}
	return m.store.add(slot, d.Lines, d.Records, d.LineData)
}

func (m *clampRotationModule) prepare(s *Simulation) {
	m.resolve(s, modClampRotation)
	m.lines = m.lines[:0]
	for slot, ok := range m.has {
		if !ok {
			continue
		}
		for l := range m.views[slot].refs {
			m.lines = append(m.lines, lineRef{slot: int32(slot), line: int32(l)})
		}
	}
}

func (m *clampRotationModule) solve(s *Simulation) {
	st := &s.store
	ctx := s.ctx
	s.pool.ParallelFor(len(m.lines), 1, func(start, end int) {
		for _, lr := range m.lines[start:end] {
			tf := &s.frames[lr.slot]
			if !tf.runs(modClampRotation, ctx) {
				continue
			}
			v := &m.views[lr.slot]
			ref := v.refs[lr.line]
			for _, local := range v.extra[ref.Start:ref.End()] {
				m.clamp(st, tf, v, tf.start+local)
			}
		}
	})
}

// clamp corrects one particle in place. Lines are disjoint, so only the
// walking goroutine touches its particles.
func (m *clampRotationModule) clamp(st *ParticleStore, tf *teamFrame, v *groupView[constraint.RotationRecord], i int32) {
	if !st.Role[i].IsMove() {
		return
	}
	rec := v.records[i-tf.start]
	if rec.Parent < 0 {
		return
	}
	cp := tf.params.ClampRotation
	parent := tf.start + rec.Parent
	p := st.Next[i]
	dir := p.Sub(st.Next[parent])
	l := dir.Length()
	rest := st.rotationOf(parent).Rotate(rec.LocalPos)
	if l < math.Epsilon || rest.LengthSq() < math.Epsilon {
		return
	}
	limit := cp.MaxAngle.Eval(st.Depth[i]) * degToRad
	angle := math.Angle(rest, dir)
	if angle <= limit {
		return
	}
	q := math.QuatIdentity().Slerp(math.QuatFromToRotation(rest, dir), limit/angle)
	out := st.Next[parent].Add(q.Rotate(rest).Normalize().Scale(l))
	st.VelPos[i] = st.VelPos[i].Add(out.Sub(p).Scale(1 - cp.VelocityInfluence))
	st.Next[i] = out
}
