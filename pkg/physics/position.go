package physics

import (
	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// springModule keeps particles within a radius of their step base pose and
// pulls them back toward it.
type springModule struct {
	stateless
}

func (*springModule) id() moduleID { return modSpring }

func (*springModule) iterations(p *ClothParams) int {
	if !p.Spring.Enabled {
		return 0
	}
	return p.Spring.Iterations
}

func (m *springModule) solve(s *Simulation) {
	st := &s.store
	s.directPass(modSpring, func(tf *teamFrame, i int32) math.Vec3 {
		sp := tf.params.Spring
		base := st.StepBasePos[i]
		d := st.Next[i].Sub(base).ClampLength(sp.Radius * tf.scale)
		k := stiffness(sp.Power, tf.power)
		return base.Add(d.Scale(1 - k))
	})
}

// clampPositionModule keeps each particle inside an ellipsoid around its
// step base pose, shaped by the axis ratio in the base frame.
type clampPositionModule struct {
	stateless
}

func (*clampPositionModule) id() moduleID { return modClampPosition }

func (*clampPositionModule) iterations(p *ClothParams) int {
	if !p.ClampPosition.Enabled {
		return 0
	}
	return p.ClampPosition.Iterations
}

func (m *clampPositionModule) solve(s *Simulation) {
	st := &s.store
	s.directPass(modClampPosition, func(tf *teamFrame, i int32) math.Vec3 {
		cp := tf.params.ClampPosition
		p := st.Next[i]
		base := st.StepBasePos[i]
		rot := st.StepBaseRot[i]
		maxLen := cp.MaxLength.Eval(st.Depth[i]) * tf.scale
		local := rot.Inverse().Rotate(p.Sub(base))
		clamped, moved := clampEllipsoid(local, cp.AxisRatio.Scale(maxLen))
		if !moved {
			return p
		}
		out := base.Add(rot.Rotate(clamped))
		st.VelPos[i] = st.VelPos[i].Add(out.Sub(p).Scale(1 - cp.VelocityInfluence))
		return out
	})
}

// clampEllipsoid projects v radially onto the ellipsoid with the given
// semi-axes when it lies outside. Collapsed axes pin that component to zero.
func clampEllipsoid(v, radii math.Vec3) (math.Vec3, bool) {
	moved := false
	axis := func(c, r float32) (float32, float32) {
		if r <= math.Epsilon {
			if c != 0 {
				moved = true
			}
			return 0, 0
		}
		return c, c / r
	}
	var n math.Vec3
	v.X, n.X = axis(v.X, radii.X)
	v.Y, n.Y = axis(v.Y, radii.Y)
	v.Z, n.Z = axis(v.Z, radii.Z)
	if l := n.Length(); l > 1 {
		return v.Scale(1 / l), true
	}
	return v, moved
}
