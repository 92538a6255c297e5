package physics

import (
	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// applyWorld carries the non-inertial share of team motion into the
// particles, or snaps them to the base pose after a reset.
func (s *Simulation) applyWorld() {
	st := &s.store
	s.pool.ParallelFor(st.Len(), s.settings.BatchSize, func(start, end int) {
		for i := start; i < end; i++ {
			slot := st.Team[i]
			if slot < 0 || int(slot) >= len(s.frames) {
				continue
			}
			tf := &s.frames[slot]
			if !tf.live || tf.steps == 0 {
				continue
			}
			switch {
			case tf.reset:
				st.Pos[i] = st.BasePos[i]
				st.Rot[i] = st.BaseRot[i]
				st.Next[i] = st.BasePos[i]
				st.VelPos[i] = st.BasePos[i]
				st.Velocity[i] = math.Vec3{}
				st.OldBasePos[i] = st.BasePos[i]
				st.OldBaseRot[i] = st.BaseRot[i]
				st.StepBasePos[i] = st.BasePos[i]
				st.StepBaseRot[i] = st.BaseRot[i]
				st.Friction[i] = 0
				st.CollisionNormal[i] = math.Vec3{}
			case tf.shift && !st.kinematic(int32(i)):
				st.Pos[i] = tf.shiftPoint(st.Pos[i])
				st.VelPos[i] = tf.shiftPoint(st.VelPos[i])
				st.Velocity[i] = tf.shiftRot.Rotate(st.Velocity[i])
				st.Rot[i] = tf.shiftRot.Mul(st.Rot[i]).Normalize()
			}
		}
	})
}

func (tf *teamFrame) shiftPoint(p math.Vec3) math.Vec3 {
	return tf.pivot.Add(tf.shiftMove).Add(tf.shiftRot.Rotate(p.Sub(tf.pivot)))
}

// integrate interpolates the step base pose and predicts the next position
// of every dynamic particle from its velocity and the external forces.
func (s *Simulation) integrate() {
	st := &s.store
	dt := s.stepDt
	s.forParticles(func(tf *teamFrame, i int32) {
		st.StepBasePos[i] = st.OldBasePos[i].Lerp(st.BasePos[i], tf.ratio)
		st.StepBaseRot[i] = st.OldBaseRot[i].Slerp(st.BaseRot[i], tf.ratio).Normalize()
		st.Friction[i] = 0
		st.CollisionNormal[i] = math.Vec3{}

		if st.kinematic(i) {
			st.Next[i] = st.StepBasePos[i]
			st.VelPos[i] = st.StepBasePos[i]
			return
		}

		p := &tf.params
		depth := st.Depth[i]
		vel := st.Velocity[i]
		drag := math.Clamp01(p.Drag.Eval(depth))
		vel = vel.Scale(math.Pow(1-drag, tf.power))
		vel = vel.Add(tf.gravity.Scale(dt))

		if tf.first && tf.forceMode != ForceNone {
			mass := p.Mass.Eval(depth)
			if mass <= math.Epsilon {
				mass = 1
			}
			vel = applyForce(vel, tf.force, tf.forceMode, mass)
		}
		if p.MaxVelocity > 0 {
			vel = vel.ClampLength(p.MaxVelocity * tf.scale)
		}

		st.Velocity[i] = vel
		st.VelPos[i] = st.Pos[i]
		st.Next[i] = st.Pos[i].Add(vel.Scale(dt))
	})
}

// applyForce applies a one-shot force as a velocity change.
func applyForce(vel, force math.Vec3, mode ForceMode, mass float32) math.Vec3 {
	switch mode {
	case ForceAddWithMass:
		return vel.Add(force.Scale(1 / mass))
	case ForceAddWithoutMass:
		return vel.Add(force)
	case ForceReplaceWithMass:
		return force.Scale(1 / mass)
	case ForceReplaceWithoutMass:
		return force
	default:
		return vel
	}
}

// finalize derives velocities from the solved positions and commits them.
func (s *Simulation) finalize() {
	st := &s.store
	invDt := 1 / s.stepDt
	s.forParticles(func(tf *teamFrame, i int32) {
		if st.kinematic(i) {
			st.Pos[i] = st.Next[i]
			st.Velocity[i] = math.Vec3{}
			return
		}
		vel := st.Next[i].Sub(st.VelPos[i]).Scale(invDt)
		if f := st.Friction[i]; f > 0 {
			n := st.CollisionNormal[i]
			normal := n.Scale(vel.Dot(n))
			vel = normal.Add(vel.Sub(normal).Scale(1 - math.Clamp01(f)))
		}
		st.Velocity[i] = vel
		st.Pos[i] = st.Next[i]
	})
}

// updateRotations derives particle rotations: first from the direction to
// the first child, then for chain ends from the parent's new rotation.
func (s *Simulation) updateRotations() {
	st := &s.store
	s.forParticles(func(tf *teamFrame, i int32) {
		base := st.StepBaseRot[i]
		c := st.FirstChild[i]
		if st.kinematic(i) || c < 0 {
			st.Rot[i] = base
			return
		}
		from := base.Rotate(st.ChildLocal[i])
		to := st.Pos[c].Sub(st.Pos[i])
		if from.LengthSq() < math.Epsilon || to.LengthSq() < math.Epsilon {
			st.Rot[i] = base
			return
		}
		st.Rot[i] = math.QuatFromToRotation(from, to).Mul(base).Normalize()
	})
	s.forParticles(func(tf *teamFrame, i int32) {
		if st.kinematic(i) || st.FirstChild[i] >= 0 {
			return
		}
		if p := st.Parent[i]; p >= 0 {
			st.Rot[i] = st.Rot[p].Mul(st.LocalRot[i]).Normalize()
		}
	})
}

// writeResults blends simulated and base poses into the back result buffer.
func (s *Simulation) writeResults() {
	st := &s.store
	back := 1 - s.front
	outPos, outRot := st.ResultPos[back], st.ResultRot[back]
	s.pool.ParallelFor(st.Len(), s.settings.BatchSize, func(start, end int) {
		for i := start; i < end; i++ {
			slot := st.Team[i]
			if slot < 0 || int(slot) >= len(s.frames) || !s.frames[slot].live {
				continue
			}
			tf := &s.frames[slot]
			if tf.steps > 0 {
				st.OldBasePos[i] = st.BasePos[i]
				st.OldBaseRot[i] = st.BaseRot[i]
			}
			if st.kinematic(int32(i)) {
				outPos[i] = st.BasePos[i]
				outRot[i] = st.BaseRot[i]
				continue
			}
			w := tf.params.BlendWeight
			outPos[i] = st.BasePos[i].Lerp(st.Pos[i], w)
			outRot[i] = st.BaseRot[i].Slerp(st.Rot[i], w).Normalize()
		}
	})
}
