package physics

import (
	"github.com/Faultbox/midgard-cloth/pkg/arena"
	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

// ParticleStore holds every particle of a simulation as flat arrays. Each
// team owns one contiguous chunk. Indices into the arrays are global; a
// particle's local index is its offset inside its team's chunk.
type ParticleStore struct {
	alloc arena.ChunkAllocator

	Team       []int32 // team slot, -1 for unused entries
	Role       []topology.Role
	Depth      []float32
	Parent     []int32 // global index, -1 if none
	FirstChild []int32 // global index, -1 if none
	ChildLocal []math.Vec3
	LocalRot   []math.Quat

	// rest pose in team space
	RestPos []math.Vec3
	RestRot []math.Quat

	Pos      []math.Vec3
	Rot      []math.Quat
	Next     []math.Vec3
	Scratch  []math.Vec3
	VelPos   []math.Vec3
	Velocity []math.Vec3

	BasePos     []math.Vec3
	BaseRot     []math.Quat
	OldBasePos  []math.Vec3
	OldBaseRot  []math.Quat
	StepBasePos []math.Vec3
	StepBaseRot []math.Quat
	StagedPos   []math.Vec3
	StagedRot   []math.Quat

	Friction        []float32
	CollisionNormal []math.Vec3

	// double-buffered output; front is readable while a chain writes back
	ResultPos [2][]math.Vec3
	ResultRot [2][]math.Quat
}

type column interface {
	resize(n int)
	apply(moves []arena.Move)
}

type col[T any] struct {
	s    *[]T
	fill T
}

func (c col[T]) resize(n int) {
	s := *c.s
	if n <= len(s) {
		*c.s = s[:n]
		return
	}
	for len(s) < n {
		s = append(s, c.fill)
	}
	*c.s = s
}

func (c col[T]) apply(moves []arena.Move) {
	s := *c.s
	for _, m := range moves {
		copy(s[m.To:m.To+m.From.Count], s[m.From.Start:m.From.End()])
	}
}

func (s *ParticleStore) columns() []column {
	identity := math.QuatIdentity()
	return []column{
		col[int32]{&s.Team, -1},
		col[topology.Role]{&s.Role, topology.RoleInvalid},
		col[float32]{&s.Depth, 0},
		col[int32]{&s.Parent, -1},
		col[int32]{&s.FirstChild, -1},
		col[math.Vec3]{&s.ChildLocal, math.Vec3{}},
		col[math.Quat]{&s.LocalRot, identity},
		col[math.Vec3]{&s.RestPos, math.Vec3{}},
		col[math.Quat]{&s.RestRot, identity},
		col[math.Vec3]{&s.Pos, math.Vec3{}},
		col[math.Quat]{&s.Rot, identity},
		col[math.Vec3]{&s.Next, math.Vec3{}},
		col[math.Vec3]{&s.Scratch, math.Vec3{}},
		col[math.Vec3]{&s.VelPos, math.Vec3{}},
		col[math.Vec3]{&s.Velocity, math.Vec3{}},
		col[math.Vec3]{&s.BasePos, math.Vec3{}},
		col[math.Quat]{&s.BaseRot, identity},
		col[math.Vec3]{&s.OldBasePos, math.Vec3{}},
		col[math.Quat]{&s.OldBaseRot, identity},
		col[math.Vec3]{&s.StepBasePos, math.Vec3{}},
		col[math.Quat]{&s.StepBaseRot, identity},
		col[math.Vec3]{&s.StagedPos, math.Vec3{}},
		col[math.Quat]{&s.StagedRot, identity},
		col[float32]{&s.Friction, 0},
		col[math.Vec3]{&s.CollisionNormal, math.Vec3{}},
		col[math.Vec3]{&s.ResultPos[0], math.Vec3{}},
		col[math.Vec3]{&s.ResultPos[1], math.Vec3{}},
		col[math.Quat]{&s.ResultRot[0], identity},
		col[math.Quat]{&s.ResultRot[1], identity},
	}
}

// Len returns the length of every particle array.
func (s *ParticleStore) Len() int {
	return len(s.Team)
}

// Count returns the number of allocated particles.
func (s *ParticleStore) Count() int {
	return s.alloc.Used()
}

// Alloc reserves n particles and grows the arrays to fit.
func (s *ParticleStore) Alloc(n int) arena.Chunk {
	c := s.alloc.Alloc(n)
	if size := s.alloc.Size(); size > s.Len() {
		for _, col := range s.columns() {
			col.resize(size)
		}
	}
	return c
}

// Free releases a chunk and marks its entries unused.
func (s *ParticleStore) Free(c arena.Chunk) {
	if c.IsEmpty() {
		return
	}
	for i := c.Start; i < c.End(); i++ {
		s.Team[i] = -1
		s.Role[i] = topology.RoleInvalid
	}
	s.alloc.Free(c)
	for _, col := range s.columns() {
		col.resize(s.alloc.Size())
	}
}

// Compact packs the live chunks to the front of the arrays. Parent and child
// links inside moved chunks are rebased.
func (s *ParticleStore) Compact(live []arena.Chunk) []arena.Move {
	moves := s.alloc.Compact(live)
	if len(moves) == 0 {
		for _, col := range s.columns() {
			col.resize(s.alloc.Size())
		}
		return nil
	}
	for _, col := range s.columns() {
		col.apply(moves)
		col.resize(s.alloc.Size())
	}
	for _, m := range moves {
		shift := m.To - m.From.Start
		for i := m.To; i < m.To+m.From.Count; i++ {
			if s.Parent[i] >= 0 {
				s.Parent[i] += shift
			}
			if s.FirstChild[i] >= 0 {
				s.FirstChild[i] += shift
			}
		}
	}
	return moves
}

// Fragmentation returns the share of the arrays sitting in free holes.
func (s *ParticleStore) Fragmentation() float32 {
	return s.alloc.Fragmentation()
}

func (s *ParticleStore) kinematic(i int32) bool {
	return s.Role[i].IsKinematic()
}

// rotationOf returns the best known rotation of a particle during a step:
// the step base pose for kinematic particles, the last committed rotation
// otherwise.
func (s *ParticleStore) rotationOf(i int32) math.Quat {
	if s.kinematic(i) {
		return s.StepBaseRot[i]
	}
	return s.Rot[i]
}
