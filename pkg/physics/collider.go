package physics

import (
	"github.com/Faultbox/midgard-cloth/pkg/arena"
	"github.com/Faultbox/midgard-cloth/pkg/asset"
	"github.com/Faultbox/midgard-cloth/pkg/constraint"
	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// extrusionModule pushes predicted positions that ended up inside a
// collider back to its surface along the core direction.
type extrusionModule struct {
	stateless
}

func (*extrusionModule) id() moduleID { return modExtrusion }

func (*extrusionModule) iterations(p *ClothParams) int {
	if !p.Collision.Enabled || !p.Collision.Extrusion {
		return 0
	}
	return 1
}

func (m *extrusionModule) solve(s *Simulation) {
	st := &s.store
	s.directPass(modExtrusion, func(tf *teamFrame, i int32) math.Vec3 {
		p := st.Next[i]
		if len(tf.colliders) == 0 {
			return p
		}
		r := tf.params.Collision.Radius.Eval(st.Depth[i]) * tf.scale
		out := p
		for _, c := range tf.colliders {
			core := c.Core(out)
			v := out.Sub(core)
			l := v.Length()
			limit := c.Radius + r
			if l >= limit || l < math.Epsilon {
				continue
			}
			out = core.Add(v.Scale(limit / l))
		}
		// extrusion is a teleport, not a velocity change
		st.VelPos[i] = st.VelPos[i].Add(out.Sub(p))
		return out
	})
}

// collisionModule keeps particles on the outside of a separating plane built
// from the collider core point closest to the pre-step position.
type collisionModule struct {
	stateless
}

func (*collisionModule) id() moduleID { return modCollision }

func (*collisionModule) iterations(p *ClothParams) int {
	if !p.Collision.Enabled {
		return 0
	}
	return p.Collision.Iterations
}

func (m *collisionModule) solve(s *Simulation) {
	st := &s.store
	s.directPass(modCollision, func(tf *teamFrame, i int32) math.Vec3 {
		p := st.Next[i]
		if len(tf.colliders) == 0 {
			return p
		}
		cp := tf.params.Collision
		r := cp.Radius.Eval(st.Depth[i]) * tf.scale
		prev := st.Pos[i]
		normal := math.Vec3{}
		hit := false
		for _, c := range tf.colliders {
			core := c.Core(prev)
			n := prev.Sub(core)
			if n.LengthSq() < math.Epsilon {
				n = p.Sub(core)
			}
			if n.LengthSq() < math.Epsilon {
				n = c.Orientation().Rotate(math.Up)
			}
			n = n.Normalize()
			plane := core.Add(n.Scale(c.Radius + r))
			out, ok := collidePlane(prev, p, plane, n)
			if !ok {
				continue
			}
			p = out
			normal = normal.Add(n)
			hit = true
		}
		if hit {
			st.Friction[i] = max(st.Friction[i], cp.Friction)
			st.CollisionNormal[i] = normal.Normalize()
		}
		return p
	})
}

// penetrationModule limits how far particles sink into the body: in
// surface mode against a sphere below the base pose, in collider mode
// against inverse spheres placed off linked colliders.
type penetrationModule struct {
	grouped[constraint.PenetrationRecord]
}

func (*penetrationModule) id() moduleID { return modPenetration }

func (*penetrationModule) iterations(p *ClothParams) int {
	if !p.Penetration.Enabled {
		return 0
	}
	return p.Penetration.Iterations
}

func (m *penetrationModule) addTeam(slot int32, b *asset.Bundle) arena.Handle {
	pd := b.Constraints.Penetration
	if pd == nil || pd.Mode == constraint.PenetrationNone || len(pd.Records) == 0 {
		return arena.Handle{}
	}
	return m.store.add(slot, pd.Refs, pd.Records, nil)
}

func (m *penetrationModule) prepare(s *Simulation) {
	m.resolve(s, modPenetration)
}

func (m *penetrationModule) solve(s *Simulation) {
	st := &s.store
	s.directPass(modPenetration, func(tf *teamFrame, i int32) math.Vec3 {
		p := st.Next[i]
		v, ok := m.view(tf)
		if !ok {
			return p
		}
		ref := v.refs[i-tf.start]
		if ref.Count == 0 {
			return p
		}
		pp := tf.params.Penetration
		depth := st.Depth[i]
		dist := pp.Distance.Eval(depth) * tf.scale
		radius := pp.Radius.Eval(depth) * tf.scale

		var out math.Vec3
		switch tf.penMode {
		case constraint.PenetrationSurface:
			rec := v.records[ref.Start]
			dir := st.StepBaseRot[i].Rotate(rec.Axis.Vector())
			center := st.StepBasePos[i].Add(dir.Scale(dist - radius))
			out = clampInside(p, center, radius)
		case constraint.PenetrationCollider:
			n := 0
			for _, rec := range v.records[ref.Start:ref.End()] {
				if rec.Collider < 0 || int(rec.Collider) >= len(tf.own) {
					continue
				}
				c := tf.own[rec.Collider]
				rot := c.Orientation()
				surface := c.Center.Add(rot.Rotate(rec.LocalPos))
				normal := rot.Rotate(rec.LocalDir)
				center := surface.Add(normal.Scale(rec.Distance*tf.scale - dist + radius))
				out = out.Add(clampInside(p, center, radius))
				n++
			}
			if n == 0 {
				return p
			}
			out = out.Scale(1 / float32(n))
		default:
			return p
		}
		return out
	})
}

// collidePlane keeps the motion from prev to p on the positive side of the
// plane through point with normal n. A segment that crosses the plane stops at
// the crossing; a particle that already started behind it is projected out.
func collidePlane(prev, p, point, n math.Vec3) (math.Vec3, bool) {
	d := p.Sub(point).Dot(n)
	if d >= 0 {
		return p, false
	}
	d0 := prev.Sub(point).Dot(n)
	if d0 <= 0 {
		return p.Sub(n.Scale(d)), true
	}
	t := d0 / (d0 - d)
	return prev.Add(p.Sub(prev).Scale(t)), true
}

// clampInside moves p onto the sphere surface when it lies outside.
func clampInside(p, center math.Vec3, radius float32) math.Vec3 {
	v := p.Sub(center)
	if l := v.Length(); l > radius {
		return center.Add(v.Scale(radius / l))
	}
	return p
}
