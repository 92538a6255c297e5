package physics

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/Faultbox/midgard-cloth/pkg/asset"
	"github.com/Faultbox/midgard-cloth/pkg/constraint"
	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

const eps = 1e-4

func approxEqual(a, b, tol float32) bool {
	return float32(gomath.Abs(float64(a-b))) <= tol
}

func vecApprox(a, b math.Vec3, tol float32) bool {
	return a.Sub(b).Length() <= tol
}

func bakeGrid(t *testing.T, cols, rows int, p constraint.BuildParams) *asset.Bundle {
	t.Helper()
	mesh, roles := topology.NewGridMesh(cols, rows, 0.1)
	b, err := asset.Bake("test", mesh, roles, p)
	if err != nil {
		t.Fatalf("Bake failed: %v", err)
	}
	return b
}

// quietParams disables everything except integration.
func quietParams() ClothParams {
	p := DefaultClothParams()
	p.Gravity = 0
	p.Drag = math.ConstCurve(0)
	p.Distance.Iterations = 0
	p.ClampDistance.Enabled = false
	p.RestoreRotation.Enabled = false
	p.ClampRotation.Enabled = false
	p.TriangleBend.Enabled = false
	p.Collision.Enabled = false
	return p
}

func newSim(t *testing.T, settings Settings) *Simulation {
	t.Helper()
	s := NewSimulation(settings)
	t.Cleanup(s.Close)
	return s
}

func addTeam(t *testing.T, s *Simulation, b *asset.Bundle, p ClothParams) TeamID {
	t.Helper()
	id, err := s.AddTeam(b, p, TeamOptions{})
	if err != nil {
		t.Fatalf("AddTeam failed: %v", err)
	}
	return id
}

func transforms(t *testing.T, s *Simulation, id TeamID) []Transform {
	t.Helper()
	tm, _ := s.Team(id)
	out := make([]Transform, tm.Particles.Count)
	if err := s.WriteTransforms(id, out, false); err != nil {
		t.Fatalf("WriteTransforms failed: %v", err)
	}
	return out
}

func stepDt(s *Simulation) float32 {
	return 1 / float32(s.Settings().Frequency)
}

func TestClampDistanceContainment(t *testing.T) {
	b := bakeGrid(t, 1, 5, constraint.DefaultBuildParams())
	p := quietParams()
	p.Gravity = 9.8
	p.ClampDistance.Enabled = true

	s := newSim(t, DefaultSettings())
	id := addTeam(t, s, b, p)
	for i := 0; i < 30; i++ {
		s.Tick(stepDt(s))
	}

	out := transforms(t, s, id)
	root := out[0].Pos
	for v, rec := range b.Constraints.ClampDistance {
		if rec.Root < 0 {
			continue
		}
		d := out[v].Pos.Distance(root)
		lo := rec.RestLength * p.ClampDistance.MinRatio
		hi := rec.RestLength * p.ClampDistance.MaxRatio
		if d < lo-eps || d > hi+eps {
			t.Errorf("vertex %d: distance to root %v outside [%v, %v]", v, d, lo, hi)
		}
	}
	// gravity must have moved the chain
	if out[4].Pos.Y > b.Positions[4].Y-eps {
		t.Errorf("tip did not fall: y=%v rest=%v", out[4].Pos.Y, b.Positions[4].Y)
	}
}

func TestRestPoseIsStable(t *testing.T) {
	bp := constraint.DefaultBuildParams()
	bp.Bend.Enabled = true
	bp.Near.Enabled = true
	b := bakeGrid(t, 3, 4, bp)
	p := DefaultClothParams()
	p.Gravity = 0

	s := newSim(t, DefaultSettings())
	id := addTeam(t, s, b, p)
	for i := 0; i < 20; i++ {
		s.Tick(stepDt(s))
	}

	for v, tr := range transforms(t, s, id) {
		if !vecApprox(tr.Pos, b.Positions[v], 1e-5) {
			t.Errorf("vertex %d drifted: got %+v, rest %+v", v, tr.Pos, b.Positions[v])
		}
	}
}

func TestDistanceReducesStretch(t *testing.T) {
	b := bakeGrid(t, 1, 2, constraint.DefaultBuildParams())
	settings := DefaultSettings()
	settings.Frequency = 60

	stretchAfter := func(iterations int, k float32) float32 {
		p := quietParams()
		p.Distance.Iterations = iterations
		p.Distance.Stiffness = math.ConstCurve(k)
		s := newSim(t, settings)
		id := addTeam(t, s, b, p)
		if err := s.SetExternalForce(id, math.Vec3{Y: -3}, ForceReplaceWithoutMass); err != nil {
			t.Fatalf("SetExternalForce failed: %v", err)
		}
		s.Tick(stepDt(s))
		out := transforms(t, s, id)
		return out[1].Pos.Distance(out[0].Pos) - 0.1
	}

	free := stretchAfter(0, 1)
	if !approxEqual(free, 0.05, eps) {
		t.Fatalf("unconstrained stretch = %v, want 0.05", free)
	}
	if rigid := stretchAfter(4, 1); !approxEqual(rigid, 0, eps) {
		t.Errorf("stiffness 1 stretch = %v, want 0", rigid)
	}
	// per pass the remaining stretch shrinks by (1-0.5)^(90/60)
	soft := stretchAfter(4, 0.5)
	if soft <= 0 || soft >= free {
		t.Fatalf("stiffness 0.5 stretch = %v, want in (0, %v)", soft, free)
	}
	if want := float32(0.05 / 64); !approxEqual(soft, want, 1e-5) {
		t.Errorf("stiffness 0.5 stretch = %v, want %v", soft, want)
	}
}

func TestSurfacePenetrationClamp(t *testing.T) {
	bp := constraint.DefaultBuildParams()
	bp.Penetration.Mode = constraint.PenetrationSurface
	bp.Penetration.Axis = constraint.AxisNegZ
	b := bakeGrid(t, 1, 2, bp)

	p := quietParams()
	p.MaxVelocity = 0
	p.Penetration.Enabled = true
	p.Penetration.Distance = math.ConstCurve(0.1)
	p.Penetration.Radius = math.ConstCurve(0.3)

	s := newSim(t, DefaultSettings())
	id := addTeam(t, s, b, p)
	if err := s.SetExternalForce(id, math.Vec3{Z: -30}, ForceReplaceWithoutMass); err != nil {
		t.Fatalf("SetExternalForce failed: %v", err)
	}
	s.Tick(stepDt(s))

	got := transforms(t, s, id)[1].Pos
	base := b.Positions[1]
	center := base.Add(math.Vec3{Z: 0.2})
	if d := got.Distance(center); !approxEqual(d, 0.3, eps) {
		t.Errorf("distance from sphere centre = %v, want 0.3", d)
	}
	if want := base.Add(math.Vec3{Z: -0.1}); !vecApprox(got, want, eps) {
		t.Errorf("clamped position = %+v, want %+v", got, want)
	}
}

func TestPenetrationInsideSphereUntouched(t *testing.T) {
	bp := constraint.DefaultBuildParams()
	bp.Penetration.Mode = constraint.PenetrationSurface
	b := bakeGrid(t, 1, 2, bp)

	p := quietParams()
	p.Penetration.Enabled = true
	s := newSim(t, DefaultSettings())
	id := addTeam(t, s, b, p)
	// 0.9 m/s for one 90 Hz step stays well inside the allowed depth
	if err := s.SetExternalForce(id, math.Vec3{Z: -0.9}, ForceReplaceWithoutMass); err != nil {
		t.Fatalf("SetExternalForce failed: %v", err)
	}
	s.Tick(stepDt(s))

	got := transforms(t, s, id)[1].Pos
	if want := b.Positions[1].Add(math.Vec3{Z: -0.01}); !vecApprox(got, want, eps) {
		t.Errorf("position = %+v, want %+v", got, want)
	}
}

func TestDeferredLagsOneFrame(t *testing.T) {
	b := bakeGrid(t, 3, 4, constraint.DefaultBuildParams())
	p := DefaultClothParams()

	sync := newSim(t, DefaultSettings())
	syncID := addTeam(t, sync, b, p)
	sync.Tick(stepDt(sync))
	want := transforms(t, sync, syncID)

	settings := DefaultSettings()
	settings.Deferred = true
	def := newSim(t, settings)
	defID := addTeam(t, def, b, p)

	def.Tick(stepDt(def))
	for v, tr := range transforms(t, def, defID) {
		if !vecApprox(tr.Pos, b.Positions[v], 1e-6) {
			t.Fatalf("vertex %d visible before the chain was published: %+v", v, tr.Pos)
		}
	}

	def.Tick(stepDt(def))
	got := transforms(t, def, defID)
	moved := false
	for v := range want {
		if !vecApprox(got[v].Pos, want[v].Pos, 1e-6) {
			t.Errorf("vertex %d: deferred %+v, sync %+v", v, got[v].Pos, want[v].Pos)
		}
		if !vecApprox(want[v].Pos, b.Positions[v], 1e-6) {
			moved = true
		}
	}
	if !moved {
		t.Error("sync step did not move any particle")
	}
}

func TestCompactKeepsTeams(t *testing.T) {
	b := bakeGrid(t, 3, 4, constraint.DefaultBuildParams())
	s := newSim(t, DefaultSettings())

	a := addTeam(t, s, b, DefaultClothParams())
	mid := addTeam(t, s, b, DefaultClothParams())
	c := addTeam(t, s, b, DefaultClothParams())
	for i := 0; i < 5; i++ {
		s.Tick(stepDt(s))
	}
	before := transforms(t, s, c)

	if err := s.RemoveTeam(mid); err != nil {
		t.Fatalf("RemoveTeam failed: %v", err)
	}
	if f := s.Fragmentation(); f <= 0 {
		t.Errorf("fragmentation after remove = %v, want > 0", f)
	}
	s.Compact()
	if f := s.Fragmentation(); f != 0 {
		t.Errorf("fragmentation after compact = %v, want 0", f)
	}

	tc, ok := s.Team(c)
	if !ok {
		t.Fatal("team c lost after compaction")
	}
	if tc.Particles.Start != int32(b.VertexCount()) {
		t.Errorf("team c starts at %d, want %d", tc.Particles.Start, b.VertexCount())
	}
	after := transforms(t, s, c)
	for v := range before {
		if before[v] != after[v] {
			t.Errorf("vertex %d changed by compaction: %+v -> %+v", v, before[v], after[v])
		}
	}

	s.Tick(stepDt(s))
	if _, ok := s.Team(a); !ok {
		t.Error("team a lost after compaction")
	}
	if got := s.Stats().Particles; got != 2*b.VertexCount() {
		t.Errorf("particles = %d, want %d", got, 2*b.VertexCount())
	}
}

func TestTeamErrors(t *testing.T) {
	b := bakeGrid(t, 2, 2, constraint.DefaultBuildParams())
	s := newSim(t, DefaultSettings())
	id := addTeam(t, s, b, DefaultClothParams())

	if err := s.RemoveTeam(s.GlobalTeam()); !errors.Is(err, ErrGlobalTeam) {
		t.Errorf("RemoveTeam(global) = %v, want ErrGlobalTeam", err)
	}
	if err := s.SetBasePose(id, make([]math.Vec3, 1), nil); !errors.Is(err, ErrPoseLength) {
		t.Errorf("SetBasePose(short) = %v, want ErrPoseLength", err)
	}
	if err := s.RemoveTeam(id); err != nil {
		t.Fatalf("RemoveTeam failed: %v", err)
	}
	if err := s.RemoveTeam(id); !errors.Is(err, ErrUnknownTeam) {
		t.Errorf("RemoveTeam(stale) = %v, want ErrUnknownTeam", err)
	}
	if err := s.SetColliders(s.GlobalTeam(), []constraint.Collider{{Radius: 1}}); err != nil {
		t.Errorf("SetColliders(global) = %v", err)
	}

	bad := DefaultClothParams()
	bad.BlendWeight = 2
	if _, err := s.AddTeam(b, bad, TeamOptions{}); err == nil {
		t.Error("AddTeam accepted blend weight 2")
	}
	if _, err := s.AddTeam(nil, DefaultClothParams(), TeamOptions{}); err == nil {
		t.Error("AddTeam accepted a nil bundle")
	}
}

func TestUpdateCountCapped(t *testing.T) {
	b := bakeGrid(t, 2, 2, constraint.DefaultBuildParams())
	s := newSim(t, DefaultSettings())
	addTeam(t, s, b, DefaultClothParams())

	s.Tick(1)
	if got := s.Stats().Steps; got != 3 {
		t.Errorf("steps = %d, want 3", got)
	}
	s.Tick(stepDt(s))
	if got := s.Stats().Steps; got != 1 {
		t.Errorf("steps after cap reset = %d, want 1", got)
	}
}

func TestInactiveTeamIsFrozen(t *testing.T) {
	b := bakeGrid(t, 2, 3, constraint.DefaultBuildParams())
	s := newSim(t, DefaultSettings())
	id := addTeam(t, s, b, DefaultClothParams())
	if err := s.SetTeamActive(id, false); err != nil {
		t.Fatalf("SetTeamActive failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		s.Tick(stepDt(s))
	}
	for v, tr := range transforms(t, s, id) {
		if !vecApprox(tr.Pos, b.Positions[v], 1e-6) {
			t.Errorf("inactive vertex %d moved to %+v", v, tr.Pos)
		}
	}
}

func TestWriteMeshTeamLocal(t *testing.T) {
	b := bakeGrid(t, 3, 3, constraint.DefaultBuildParams())
	s := newSim(t, DefaultSettings())
	id, err := s.AddTeam(b, DefaultClothParams(), TeamOptions{
		Position: math.Vec3{X: 1, Y: 2, Z: 3},
		Rotation: math.QuatFromAxisAngle(math.Up, gomath.Pi/2),
		Scale:    2,
	})
	if err != nil {
		t.Fatalf("AddTeam failed: %v", err)
	}

	m := NewMeshBuffer(b.VertexCount(), true)
	if err := s.WriteMesh(id, m); err != nil {
		t.Fatalf("WriteMesh failed: %v", err)
	}
	for v := range m.Positions {
		if !vecApprox(m.Positions[v], b.Positions[v], eps) {
			t.Errorf("vertex %d: local position %+v, want %+v", v, m.Positions[v], b.Positions[v])
		}
		if !vecApprox(m.Normals[v], b.Normals[v], eps) {
			t.Errorf("vertex %d: normal %+v, want %+v", v, m.Normals[v], b.Normals[v])
		}
		want := float32(1)
		if b.Vertices[v].Role.IsKinematic() {
			want = 0
		}
		if m.BoneWeights[v] != want {
			t.Errorf("vertex %d: bone weight %v, want %v", v, m.BoneWeights[v], want)
		}
	}

	if err := s.WriteMesh(id, NewMeshBuffer(2, false)); !errors.Is(err, ErrPoseLength) {
		t.Errorf("WriteMesh(short) = %v, want ErrPoseLength", err)
	}
}

func TestParentLocalTransforms(t *testing.T) {
	b := bakeGrid(t, 1, 3, constraint.DefaultBuildParams())
	s := newSim(t, DefaultSettings())
	id := addTeam(t, s, b, DefaultClothParams())

	out := make([]Transform, b.VertexCount())
	if err := s.WriteTransforms(id, out, true); err != nil {
		t.Fatalf("WriteTransforms failed: %v", err)
	}
	for v, vx := range b.Vertices {
		if vx.Parent < 0 {
			continue
		}
		want := b.Positions[v].Sub(b.Positions[vx.Parent])
		if !vecApprox(out[v].Pos, want, eps) {
			t.Errorf("vertex %d: parent-local %+v, want %+v", v, out[v].Pos, want)
		}
	}
}

func TestApplyForce(t *testing.T) {
	vel := math.Vec3{X: 1}
	force := math.Vec3{Y: 4}
	tests := []struct {
		mode ForceMode
		want math.Vec3
	}{
		{ForceNone, math.Vec3{X: 1}},
		{ForceAddWithMass, math.Vec3{X: 1, Y: 2}},
		{ForceAddWithoutMass, math.Vec3{X: 1, Y: 4}},
		{ForceReplaceWithMass, math.Vec3{Y: 2}},
		{ForceReplaceWithoutMass, math.Vec3{Y: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if got := applyForce(vel, force, tt.mode, 2); !vecApprox(got, tt.want, 1e-6) {
				t.Errorf("applyForce = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClampEllipsoid(t *testing.T) {
	tests := []struct {
		name  string
		v     math.Vec3
		radii math.Vec3
		want  math.Vec3
		moved bool
	}{
		{"inside", math.Vec3{X: 0.5}, math.Vec3{X: 1, Y: 1, Z: 1}, math.Vec3{X: 0.5}, false},
		{"outside sphere", math.Vec3{X: 2}, math.Vec3{X: 1, Y: 1, Z: 1}, math.Vec3{X: 1}, true},
		// scaled by 1/|(0, 2, 0.1)|, landing on the surface rather than at y = 0.25
		{"flat axis", math.Vec3{Y: 0.5, Z: 0.1}, math.Vec3{X: 1, Y: 0.25, Z: 1}, math.Vec3{Y: 0.2496881, Z: 0.0499376}, true},
		{"collapsed axis", math.Vec3{X: 0.2, Z: 0.3}, math.Vec3{X: 1, Y: 1}, math.Vec3{X: 0.2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, moved := clampEllipsoid(tt.v, tt.radii)
			if moved != tt.moved || !vecApprox(got, tt.want, 1e-6) {
				t.Errorf("clampEllipsoid = %+v, %v; want %+v, %v", got, moved, tt.want, tt.moved)
			}
		})
	}
}

func TestStiffness(t *testing.T) {
	tests := []struct {
		k, power, want float32
	}{
		{1, 1.5, 1},
		{0.3, 1, 0.3},
		{0.5, 2, 0.75},
		{0, 2, 0},
		{-1, 1, 0},
	}
	for _, tt := range tests {
		if got := stiffness(tt.k, tt.power); !approxEqual(got, tt.want, 1e-6) {
			t.Errorf("stiffness(%v, %v) = %v, want %v", tt.k, tt.power, got, tt.want)
		}
	}
}

func TestClothParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ClothParams)
		ok     bool
	}{
		{"defaults", func(*ClothParams) {}, true},
		{"negative iterations", func(p *ClothParams) { p.SolverIterations = -1 }, false},
		{"negative max velocity", func(p *ClothParams) { p.MaxVelocity = -1 }, false},
		{"inverted clamp band", func(p *ClothParams) { p.ClampDistance.MinRatio = 2 }, false},
		{"blend weight", func(p *ClothParams) { p.BlendWeight = 1.5 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultClothParams()
			tt.modify(&p)
			if err := p.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, ok want %v", err, tt.ok)
			}
		})
	}
}
