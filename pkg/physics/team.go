package physics

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-cloth/pkg/arena"
	"github.com/Faultbox/midgard-cloth/pkg/asset"
	"github.com/Faultbox/midgard-cloth/pkg/constraint"
	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// TeamID identifies a team. IDs of removed teams never resolve again.
type TeamID = arena.Handle

// Team is one simulated cloth instance: a bundle placed in the world with
// its own parameters and clock.
type Team struct {
	Name      string
	Bundle    *asset.Bundle
	Params    ClothParams
	Particles arena.Chunk
	Active    bool
	TimeScale float32

	Position  math.Vec3
	Rotation  math.Quat
	Scale     float32
	Colliders []constraint.Collider

	prevPosition math.Vec3
	prevRotation math.Quat
	force        math.Vec3
	forceMode    ForceMode
	time         float32
	staged       bool
	reset        bool
	groups       [moduleCount]arena.Handle
}

// TeamOptions places a new team.
type TeamOptions struct {
	Name     string
	Position math.Vec3
	Rotation math.Quat
	Scale    float32
}

// AddTeam allocates particles for a bundle and registers its records with
// every module. The team starts active at its rest pose.
func (s *Simulation) AddTeam(b *asset.Bundle, p ClothParams, opt TeamOptions) (TeamID, error) {
	if b == nil {
		return TeamID{}, fmt.Errorf("adding team %q: nil bundle", opt.Name)
	}
	if err := b.Validate(); err != nil {
		return TeamID{}, fmt.Errorf("adding team %q: %w", opt.Name, err)
	}
	if err := p.Validate(); err != nil {
		return TeamID{}, fmt.Errorf("adding team %q: %w", opt.Name, err)
	}
	s.wait()

	if opt.Rotation == (math.Quat{}) {
		opt.Rotation = math.QuatIdentity()
	}
	if opt.Scale <= 0 {
		opt.Scale = 1
	}
	if opt.Name == "" {
		opt.Name = b.Name
	}

	n := b.VertexCount()
	t := Team{
		Name:         opt.Name,
		Bundle:       b,
		Params:       p,
		Particles:    s.store.Alloc(n),
		Active:       true,
		TimeScale:    1,
		Position:     opt.Position,
		Rotation:     opt.Rotation.Normalize(),
		Scale:        opt.Scale,
		prevPosition: opt.Position,
		prevRotation: opt.Rotation.Normalize(),
	}
	id := s.teams.Add(t)
	team, _ := s.teams.Get(id)
	s.fillParticles(id.Index, team)
	for _, m := range s.modules {
		team.groups[m.id()] = m.addTeam(id.Index, b)
	}

	s.log.Debug("team added",
		zap.String("team", team.Name),
		zap.Int("particles", n),
		zap.Int32("start", team.Particles.Start))
	return id, nil
}

// fillParticles writes the per-particle columns of a new team and places
// it at its rest pose.
func (s *Simulation) fillParticles(slot int32, t *Team) {
	st := &s.store
	b := t.Bundle
	start := t.Particles.Start
	for v := range b.Vertices {
		i := start + int32(v)
		vx := b.Vertices[v]
		st.Team[i] = slot
		st.Role[i] = vx.Role
		st.Depth[i] = vx.Depth
		st.Parent[i] = -1
		st.FirstChild[i] = -1
		st.RestPos[i] = b.Positions[v]
		st.RestRot[i] = b.Rotation(int32(v))
	}
	for v := range b.Vertices {
		i := start + int32(v)
		parent := b.Vertices[v].Parent
		if parent < 0 {
			continue
		}
		p := start + parent
		st.Parent[i] = p
		st.LocalRot[i] = st.RestRot[p].Inverse().Mul(st.RestRot[i]).Normalize()
		// children are visited in index order, so the first one wins
		if st.FirstChild[p] < 0 {
			st.FirstChild[p] = i
			st.ChildLocal[p] = st.RestRot[p].Inverse().Rotate(st.RestPos[i].Sub(st.RestPos[p]))
		}
	}
	s.placeAtRest(t)
}

// placeAtRest snaps every particle of a team to the transformed rest pose.
func (s *Simulation) placeAtRest(t *Team) {
	st := &s.store
	for i := t.Particles.Start; i < t.Particles.End(); i++ {
		pos := t.Position.Add(t.Rotation.Rotate(st.RestPos[i].Scale(t.Scale)))
		rot := t.Rotation.Mul(st.RestRot[i]).Normalize()
		st.BasePos[i], st.BaseRot[i] = pos, rot
		st.OldBasePos[i], st.OldBaseRot[i] = pos, rot
		st.StepBasePos[i], st.StepBaseRot[i] = pos, rot
		st.Pos[i], st.Rot[i] = pos, rot
		st.Next[i], st.VelPos[i] = pos, pos
		st.Velocity[i] = math.Vec3{}
		st.Friction[i] = 0
		st.CollisionNormal[i] = math.Vec3{}
		for k := range st.ResultPos {
			st.ResultPos[k][i] = pos
			st.ResultRot[k][i] = rot
		}
	}
}

// RemoveTeam frees a team's particles and records.
func (s *Simulation) RemoveTeam(id TeamID) error {
	if id == s.global {
		return ErrGlobalTeam
	}
	t, ok := s.teams.Get(id)
	if !ok {
		return ErrUnknownTeam
	}
	s.wait()
	for _, m := range s.modules {
		m.removeGroup(t.groups[m.id()])
	}
	s.store.Free(t.Particles)
	name := t.Name
	s.teams.Remove(id)
	s.log.Debug("team removed", zap.String("team", name))
	return nil
}

// Team returns a copy of a team's public state.
func (s *Simulation) Team(id TeamID) (Team, bool) {
	t, ok := s.teams.Get(id)
	if !ok {
		return Team{}, false
	}
	return *t, true
}

// Teams returns the ids of all teams except the global one.
func (s *Simulation) Teams() []TeamID {
	var ids []TeamID
	s.teams.Each(func(id TeamID, _ *Team) {
		if id != s.global {
			ids = append(ids, id)
		}
	})
	return ids
}

func (s *Simulation) team(id TeamID) (*Team, error) {
	if id == s.global {
		return nil, ErrGlobalTeam
	}
	t, ok := s.teams.Get(id)
	if !ok {
		return nil, ErrUnknownTeam
	}
	return t, nil
}

// ResetTeam snaps a team back to its base pose on the next step and clears
// its velocities.
func (s *Simulation) ResetTeam(id TeamID) error {
	t, err := s.team(id)
	if err != nil {
		return err
	}
	t.reset = true
	t.time = 0
	return nil
}

// SetTeamActive pauses or resumes a team. Paused particles keep their
// state and storage.
func (s *Simulation) SetTeamActive(id TeamID, active bool) error {
	t, err := s.team(id)
	if err != nil {
		return err
	}
	if active && !t.Active {
		// resume without inheriting the motion made while paused
		t.prevPosition = t.Position
		t.prevRotation = t.Rotation
		t.time = 0
	}
	t.Active = active
	return nil
}

// SetTeamTransform moves the team. Staged until the next Tick.
func (s *Simulation) SetTeamTransform(id TeamID, pos math.Vec3, rot math.Quat, scale float32) error {
	t, err := s.team(id)
	if err != nil {
		return err
	}
	if rot == (math.Quat{}) {
		rot = math.QuatIdentity()
	}
	if scale <= 0 {
		scale = 1
	}
	t.Position = pos
	t.Rotation = rot.Normalize()
	t.Scale = scale
	return nil
}

// SetBasePose stages a world-space base pose for every particle of the team,
// replacing the transformed rest pose for the next Tick.
func (s *Simulation) SetBasePose(id TeamID, pos []math.Vec3, rot []math.Quat) error {
	t, err := s.team(id)
	if err != nil {
		return err
	}
	n := int(t.Particles.Count)
	if len(pos) != n || (rot != nil && len(rot) != n) {
		return fmt.Errorf("%w: got %d positions %d rotations, want %d", ErrPoseLength, len(pos), len(rot), n)
	}
	st := &s.store
	for k := 0; k < n; k++ {
		i := t.Particles.Start + int32(k)
		st.StagedPos[i] = pos[k]
		if rot != nil {
			st.StagedRot[i] = rot[k]
		} else {
			st.StagedRot[i] = t.Rotation.Mul(st.RestRot[i]).Normalize()
		}
	}
	t.staged = true
	return nil
}

// SetColliders replaces a team's colliders. Colliders on the global team
// affect every team. Collider-mode penetration records index the team's own
// list in bake order.
func (s *Simulation) SetColliders(id TeamID, colliders []constraint.Collider) error {
	t, ok := s.teams.Get(id)
	if !ok {
		return ErrUnknownTeam
	}
	t.Colliders = append([]constraint.Collider(nil), colliders...)
	return nil
}

// SetExternalForce applies a one-shot force on the first step of the next
// Tick that steps the team.
func (s *Simulation) SetExternalForce(id TeamID, force math.Vec3, mode ForceMode) error {
	t, err := s.team(id)
	if err != nil {
		return err
	}
	t.force = force
	t.forceMode = mode
	return nil
}

// SetParams replaces a team's parameters.
func (s *Simulation) SetParams(id TeamID, p ClothParams) error {
	t, err := s.team(id)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	t.Params = p
	return nil
}

// SetTimeScale scales a team's clock; 0 freezes it.
func (s *Simulation) SetTimeScale(id TeamID, scale float32) error {
	t, err := s.team(id)
	if err != nil {
		return err
	}
	t.TimeScale = max(scale, 0)
	return nil
}
