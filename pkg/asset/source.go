package asset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-cloth/pkg/constraint"
	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/topology"
)

// Source is the YAML description of a cloth mesh: rest geometry, one role
// per vertex, and the build settings.
type Source struct {
	Name      string                 `yaml:"name"`
	Positions [][3]float32           `yaml:"positions"`
	Normals   [][3]float32           `yaml:"normals,omitempty"`
	Tangents  [][3]float32           `yaml:"tangents,omitempty"`
	Roles     []topology.Role        `yaml:"roles"`
	Lines     [][2]int32             `yaml:"lines,omitempty"`
	Triangles [][3]int32             `yaml:"triangles,omitempty"`
	Build     constraint.BuildParams `yaml:"build"`
}

// ParseSource decodes a YAML source. Build settings missing from the
// document keep their defaults.
func ParseSource(data []byte) (*Source, error) {
	s := &Source{Build: constraint.DefaultBuildParams()}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing cloth source: %w", err)
	}
	return s, nil
}

// LoadSource reads a YAML source from disk.
func LoadSource(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cloth source: %w", err)
	}
	return ParseSource(data)
}

// Save writes the source as YAML.
func (s *Source) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding cloth source: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cloth source: %w", err)
	}
	return nil
}

// NewSource describes an existing mesh.
func NewSource(name string, mesh *topology.Mesh, roles []topology.Role) *Source {
	s := &Source{
		Name:      name,
		Roles:     roles,
		Lines:     mesh.Lines,
		Triangles: mesh.Triangles,
		Build:     constraint.DefaultBuildParams(),
	}
	s.Positions = toArrays(mesh.Positions)
	s.Normals = toArrays(mesh.Normals)
	s.Tangents = toArrays(mesh.Tangents)
	return s
}

// GridSource describes a rectangular sheet hanging from its top row.
func GridSource(cols, rows int, spacing float32) *Source {
	mesh, roles := topology.NewGridMesh(cols, rows, spacing)
	return NewSource(fmt.Sprintf("grid_%dx%d", cols, rows), mesh, roles)
}

// Mesh converts the source into a topology mesh and role list.
func (s *Source) Mesh() (*topology.Mesh, []topology.Role) {
	return &topology.Mesh{
		Positions: fromArrays(s.Positions),
		Normals:   fromArrays(s.Normals),
		Tangents:  fromArrays(s.Tangents),
		Lines:     s.Lines,
		Triangles: s.Triangles,
	}, s.Roles
}

// Bake compiles the source into a bundle.
func (s *Source) Bake() (*Bundle, error) {
	mesh, roles := s.Mesh()
	return Bake(s.Name, mesh, roles, s.Build)
}

func toArrays(vs []math.Vec3) [][3]float32 {
	if len(vs) == 0 {
		return nil
	}
	out := make([][3]float32, len(vs))
	for i, v := range vs {
		out[i] = [3]float32{v.X, v.Y, v.Z}
	}
	return out
}

func fromArrays(as [][3]float32) []math.Vec3 {
	if len(as) == 0 {
		return nil
	}
	out := make([]math.Vec3, len(as))
	for i, a := range as {
		out[i] = math.Vec3{X: a[0], Y: a[1], Z: a[2]}
	}
	return out
}
