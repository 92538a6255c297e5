package topology

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/Faultbox/midgard-cloth/pkg/math"
)

func TestBuildAdjacency(t *testing.T) {
	adj := BuildAdjacency(4, [][2]int32{{0, 3}, {3, 0}, {1, 1}}, [][3]int32{{0, 1, 2}})

	if got := len(adj.Edges); got != 4 {
		t.Fatalf("expected 4 unique edges, got %d (%v)", got, adj.Edges)
	}

	tests := []struct {
		v    int32
		want []int32
	}{
		{0, []int32{1, 2, 3}},
		{1, []int32{0, 2}},
		{2, []int32{0, 1}},
		{3, []int32{0}},
	}
	for _, tt := range tests {
		got := adj.Of(tt.v)
		if len(got) != len(tt.want) {
			t.Errorf("neighbours of %d = %v, want %v", tt.v, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("neighbours of %d = %v, want %v", tt.v, got, tt.want)
				break
			}
		}
	}

	if !adj.HasEdge(3, 0) || adj.HasEdge(1, 3) {
		t.Error("HasEdge returned wrong result")
	}
}

func TestFindSharedEdges(t *testing.T) {
	// two triangles sharing 1-2, plus a fan of three around 0-3
	tris := [][3]int32{
		{0, 1, 2},
		{2, 1, 3},
		{0, 3, 4},
		{3, 0, 5},
		{0, 3, 6},
	}
	shared := FindSharedEdges(tris)
	if len(shared) != 1 {
		t.Fatalf("expected 1 shared edge, got %d: %v", len(shared), shared)
	}
	if shared[0].Edge != (Edge{1, 2}) {
		t.Errorf("shared edge = %v, want {1 2}", shared[0].Edge)
	}
	if shared[0].Triangles != [2]int32{0, 1} {
		t.Errorf("shared triangles = %v, want [0 1]", shared[0].Triangles)
	}
}

func TestPairSet(t *testing.T) {
	s := NewPairSet([]Edge{{0, 1}, {1, 0}})
	if s.Len() != 1 {
		t.Fatalf("expected 1 pair, got %d", s.Len())
	}
	if !s.Has(1, 0) {
		t.Error("expected pair 1-0")
	}
	if !s.Add(4, 2) || s.Add(2, 4) {
		t.Error("Add should report only the first insertion")
	}
	if !s.Has(2, 4) {
		t.Error("expected pair 2-4 after Add")
	}
}

func TestClassifyGrid(t *testing.T) {
	mesh, roles := NewGridMesh(3, 4, 1)
	topo, err := Build(mesh, roles)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if topo.MaxLevel != 4 {
		t.Errorf("MaxLevel = %d, want 4", topo.MaxLevel)
	}
	for i, v := range topo.Vertices {
		row := i / 3
		if v.Level != int32(row+1) {
			t.Errorf("vertex %d level = %d, want %d", i, v.Level, row+1)
		}
		want := float32(row) / 3
		if d := v.Depth - want; d > 1e-6 || d < -1e-6 {
			t.Errorf("vertex %d depth = %v, want %v", i, v.Depth, want)
		}
	}
}

func TestClassifyExtendAndUnreachable(t *testing.T) {
	// 0 fixed - 1 move ; 2 fixed - 3 fixed ; 4 move alone
	mesh := &Mesh{
		Positions: make([]math.Vec3, 5),
		Lines:     [][2]int32{{0, 1}, {2, 3}},
	}
	roles := []Role{RoleFixed, RoleMove, RoleFixed, RoleFixed, RoleMove}
	topo, err := Build(mesh, roles)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []Role{RoleFixed, RoleMove, RoleExtend, RoleExtend, RoleMove}
	for i, v := range topo.Vertices {
		if v.Role != want[i] {
			t.Errorf("vertex %d role = %v, want %v", i, v.Role, want[i])
		}
	}
	if topo.Vertices[4].Level != 0 || topo.Vertices[4].Depth != 0 {
		t.Errorf("unreachable vertex should stay at level 0, got %+v", topo.Vertices[4])
	}
	if topo.Vertices[4].Parent != -1 {
		t.Errorf("unreachable vertex should have no parent, got %d", topo.Vertices[4].Parent)
	}
}

func TestBuildDropsInvalidVertices(t *testing.T) {
	mesh, roles := NewGridMesh(2, 3, 1)
	roles[5] = RoleInvalid

	topo, err := Build(mesh, roles)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if topo.VertexCount() != 5 {
		t.Fatalf("expected 5 used vertices, got %d", topo.VertexCount())
	}
	for _, v := range topo.UsedVertices {
		if v == 5 {
			t.Error("invalid vertex should not be used")
		}
	}
	for _, tri := range topo.Triangles {
		for _, v := range tri {
			if v < 0 || int(v) >= topo.VertexCount() {
				t.Errorf("triangle index %d out of local range", v)
			}
		}
	}
}

func TestBuildErrors(t *testing.T) {
	mesh, roles := NewGridMesh(2, 2, 1)

	tests := []struct {
		name  string
		mesh  *Mesh
		roles []Role
		code  ResultCode
		want  error
	}{
		{"empty", &Mesh{}, nil, CodeEmptyTopology, ErrEmptyTopology},
		{"role mismatch", mesh, roles[:3], CodeVertexCountMismatch, ErrVertexCountMismatch},
		{"normal mismatch", &Mesh{Positions: mesh.Positions, Normals: mesh.Normals[:1]}, roles, CodeVertexCountMismatch, ErrVertexCountMismatch},
		{"bad index", &Mesh{Positions: mesh.Positions, Triangles: [][3]int32{{0, 1, 9}}}, roles, CodeInvalidIndex, ErrInvalidIndex},
		{"all invalid", mesh, make([]Role, 4), CodeEmptyTopology, ErrEmptyTopology},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.mesh, tt.roles)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var be *BuildError
			if !errors.As(err, &be) || be.Code != tt.code {
				t.Errorf("expected code %v, got %v", tt.code, err)
			}
		})
	}
}

func TestHierarchyGrid(t *testing.T) {
	mesh, roles := NewGridMesh(3, 4, 1)
	topo, err := Build(mesh, roles)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// straight up is the best aligned direction toward the nearest fixed vertex
	for i := 3; i < 12; i++ {
		if got := topo.Vertices[i].Parent; got != int32(i-3) {
			t.Errorf("vertex %d parent = %d, want %d", i, got, i-3)
		}
		col := int32(i % 3)
		if got := topo.Vertices[i].Root; got != col {
			t.Errorf("vertex %d root = %d, want %d", i, got, col)
		}
	}
	for i := 0; i < 12; i++ {
		wantEnd := i >= 9
		if topo.Vertices[i].End != wantEnd {
			t.Errorf("vertex %d end = %v, want %v", i, topo.Vertices[i].End, wantEnd)
		}
	}

	h := topo.Hierarchy
	if len(h.Lines) != 3 {
		t.Fatalf("expected 3 root lines, got %d", len(h.Lines))
	}
	for i, line := range h.Lines {
		got := h.LineData[line.Start:line.End()]
		want := []int32{int32(3 + i), int32(6 + i), int32(9 + i)}
		for k := range want {
			if got[k] != want[k] {
				t.Errorf("line %d = %v, want %v", i, got, want)
				break
			}
		}
	}
}

func TestHierarchyInvariantsRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 25; trial++ {
		n := 10 + rng.Intn(40)
		mesh := &Mesh{Positions: make([]math.Vec3, n)}
		roles := make([]Role, n)
		for i := range mesh.Positions {
			mesh.Positions[i] = math.Vec3{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32()}
			roles[i] = RoleMove
			if rng.Intn(6) == 0 {
				roles[i] = RoleFixed
			}
		}
		for i := 0; i < n*2; i++ {
			mesh.Triangles = append(mesh.Triangles, [3]int32{
				int32(rng.Intn(n)), int32(rng.Intn(n)), int32(rng.Intn(n)),
			})
		}

		topo, err := Build(mesh, roles)
		if err != nil {
			t.Fatalf("trial %d: Build failed: %v", trial, err)
		}

		for v, vx := range topo.Vertices {
			if vx.Role.IsKinematic() && vx.Level != 1 {
				t.Errorf("trial %d: kinematic vertex %d has level %d", trial, v, vx.Level)
			}
			if vx.Parent >= 0 && topo.Vertices[vx.Parent].Level >= vx.Level {
				t.Errorf("trial %d: vertex %d level %d not above parent level %d",
					trial, v, vx.Level, topo.Vertices[vx.Parent].Level)
			}

			// walking up must terminate within n steps
			p := int32(v)
			for steps := 0; p >= 0; steps++ {
				if steps > n {
					t.Fatalf("trial %d: cycle through vertex %d", trial, v)
				}
				p = topo.Vertices[p].Parent
			}
		}
	}
}

func TestRoleString(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleInvalid, "Invalid"},
		{RoleFixed, "Fixed"},
		{RoleMove, "Move"},
		{RoleExtend, "Extend"},
		{Role(9), "Unknown(9)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.role.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
