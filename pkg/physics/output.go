package physics

import (
	"fmt"

	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// Transform is a position and rotation pair.
type Transform struct {
	Pos math.Vec3
	Rot math.Quat
}

// WriteTransforms copies the latest completed pose of a team into out,
// which must hold one entry per particle. With parentLocal set, particles
// that have a parent are expressed in their parent's frame.
func (s *Simulation) WriteTransforms(id TeamID, out []Transform, parentLocal bool) error {
	t, err := s.team(id)
	if err != nil {
		return err
	}
	n := int(t.Particles.Count)
	if len(out) != n {
		return fmt.Errorf("%w: got %d transforms, want %d", ErrPoseLength, len(out), n)
	}
	st := &s.store
	pos, rot := st.ResultPos[s.front], st.ResultRot[s.front]
	for k := range out {
		i := t.Particles.Start + int32(k)
		out[k] = Transform{Pos: pos[i], Rot: rot[i]}
		if !parentLocal {
			continue
		}
		if p := st.Parent[i]; p >= 0 {
			inv := rot[p].Inverse()
			out[k] = Transform{
				Pos: inv.Rotate(pos[i].Sub(pos[p])),
				Rot: inv.Mul(rot[i]).Normalize(),
			}
		}
	}
	return nil
}

// MeshBuffer receives mesh output in team-local space, one entry per used
// vertex. BoneWeights is filled only when non-nil.
type MeshBuffer struct {
	Positions   []math.Vec3
	Normals     []math.Vec3
	Tangents    []math.Vec3
	BoneWeights []float32
}

// NewMeshBuffer allocates a buffer for n vertices.
func NewMeshBuffer(n int, boneWeights bool) *MeshBuffer {
	m := &MeshBuffer{
		Positions: make([]math.Vec3, n),
		Normals:   make([]math.Vec3, n),
		Tangents:  make([]math.Vec3, n),
	}
	if boneWeights {
		m.BoneWeights = make([]float32, n)
	}
	return m
}

// WriteMesh converts the latest completed pose of a team into team-local
// vertex data. The normal is the particle's forward axis and the tangent its
// up axis. Bone weights are 0 for kinematic vertices and the blend weight for
// simulated ones.
func (s *Simulation) WriteMesh(id TeamID, m *MeshBuffer) error {
	t, err := s.team(id)
	if err != nil {
		return err
	}
	n := int(t.Particles.Count)
	if len(m.Positions) != n || len(m.Normals) != n || len(m.Tangents) != n ||
		(m.BoneWeights != nil && len(m.BoneWeights) != n) {
		return fmt.Errorf("%w: mesh buffer does not hold %d vertices", ErrPoseLength, n)
	}
	st := &s.store
	pos, rot := st.ResultPos[s.front], st.ResultRot[s.front]
	inv := t.Rotation.Inverse()
	invScale := 1 / t.Scale
	for k := 0; k < n; k++ {
		i := t.Particles.Start + int32(k)
		r := inv.Mul(rot[i])
		m.Positions[k] = inv.Rotate(pos[i].Sub(t.Position)).Scale(invScale)
		m.Normals[k] = r.Rotate(math.Forward)
		m.Tangents[k] = r.Rotate(math.Up)
		if m.BoneWeights != nil {
			w := float32(0)
			if !st.kinematic(i) {
				w = t.Params.BlendWeight
			}
			m.BoneWeights[k] = w
		}
	}
	return nil
}
