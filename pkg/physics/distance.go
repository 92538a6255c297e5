package physics

import (
	"github.com/Faultbox/midgard-cloth/pkg/arena"
	"github.com/Faultbox/midgard-cloth/pkg/asset"
	"github.com/Faultbox/midgard-cloth/pkg/constraint"
	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// distanceModule restores rest lengths along structural, near and bend
// links. Each particle moves by the average of its record corrections.
type distanceModule struct {
	grouped[constraint.DistanceRecord]
}

func (*distanceModule) id() moduleID { return modDistance }

func (*distanceModule) iterations(p *ClothParams) int {
	return p.Distance.Iterations
}

func (m *distanceModule) addTeam(slot int32, b *asset.Bundle) arena.Handle {
	d := b.Constraints.Distance
	if d == nil || len(d.Records) == 0 {
		return arena.Handle{}
	}
	return m.store.add(slot, d.Refs, d.Records, nil)
}

func (m *distanceModule) prepare(s *Simulation) {
	m.resolve(s, modDistance)
}

func (m *distanceModule) solve(s *Simulation) {
	st := &s.store
	s.directPass(modDistance, func(tf *teamFrame, i int32) math.Vec3 {
		p := st.Next[i]
		v, ok := m.view(tf)
		if !ok {
			return p
		}
		ref := v.refs[i-tf.start]
		if ref.Count == 0 {
			return p
		}
		dp := tf.params.Distance
		depth := st.Depth[i]
		var k [3]float32
		k[constraint.DistanceStructural] = stiffness(dp.Stiffness.Eval(depth), tf.power)
		k[constraint.DistanceNear] = stiffness(dp.NearStiffness.Eval(depth), tf.power)
		k[constraint.DistanceBend] = stiffness(dp.BendStiffness.Eval(depth), tf.power)

		corr := math.Vec3{}
		n := 0
		for _, rec := range v.records[ref.Start:ref.End()] {
			t := tf.start + rec.Target
			d := st.Next[t].Sub(p)
			l := d.Length()
			if l < math.Epsilon {
				continue
			}
			// a kinematic target cannot move, so this side takes all of it
			w := float32(0.5)
			if st.kinematic(t) {
				w = 1
			}
			kind := min(int(rec.Kind), len(k)-1)
			rest := rec.RestLength * tf.scale
			corr = corr.Add(d.Scale((l - rest) / l * k[kind] * w))
			n++
		}
		if n == 0 {
			return p
		}
		return p.Add(corr.Scale(1 / float32(n)))
	})
}

// clampDistanceModule keeps every particle inside a distance band around its
// root.
type clampDistanceModule struct {
	grouped[constraint.ClampDistanceRecord]
}

func (*clampDistanceModule) id() moduleID { return modClampDistance }

func (*clampDistanceModule) iterations(p *ClothParams) int {
	if !p.ClampDistance.Enabled {
		return 0
	}
	return p.ClampDistance.Iterations
}

func (m *clampDistanceModule) addTeam(slot int32, b *asset.Bundle) arena.Handle {
	d := b.Constraints.ClampDistance
	if len(d) == 0 {
		return arena.Handle{}
	}
	return m.store.add(slot, nil, d, nil)
}

func (m *clampDistanceModule) prepare(s *Simulation) {
	m.resolve(s, modClampDistance)
}

func (m *clampDistanceModule) solve(s *Simulation) {
	st := &s.store
	s.directPass(modClampDistance, func(tf *teamFrame, i int32) math.Vec3 {
		p := st.Next[i]
		v, ok := m.view(tf)
		if !ok {
			return p
		}
		rec := v.records[i-tf.start]
		if rec.Root < 0 {
			return p
		}
		cp := tf.params.ClampDistance
		root := st.Next[tf.start+rec.Root]
		d := p.Sub(root)
		l := d.Length()
		if l < math.Epsilon {
			return p
		}
		rest := rec.RestLength * tf.scale
		clamped := math.Clamp(l, rest*cp.MinRatio, rest*cp.MaxRatio)
		if clamped == l {
			return p
		}
		out := root.Add(d.Scale(clamped / l))
		st.VelPos[i] = st.VelPos[i].Add(out.Sub(p).Scale(1 - cp.VelocityInfluence))
		return out
	})
}
