package constraint

import (
	"fmt"

	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// Axis is one of the six canonical axes of a vertex rest frame.
type Axis uint8

const (
	AxisPosX Axis = 0
	AxisNegX Axis = 1
	AxisPosY Axis = 2
	AxisNegY Axis = 3
	AxisPosZ Axis = 4
	AxisNegZ Axis = 5
	// AxisAuto picks, per vertex, the axis most aligned with the direction
	// toward the centroid of the used vertices.
	AxisAuto Axis = 6
)

var axisVectors = [6]math.Vec3{
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}

// Vector returns the unit vector of a canonical axis.
func (a Axis) Vector() math.Vec3 {
	if a >= AxisAuto {
		return math.Vec3{}
	}
	return axisVectors[a]
}

// String returns a human-readable axis name.
func (a Axis) String() string {
	names := [...]string{"+X", "-X", "+Y", "-Y", "+Z", "-Z", "Auto"}
	if int(a) < len(names) {
		return names[a]
	}
	return fmt.Sprintf("Unknown(%d)", a)
}

// NearestAxis returns the canonical axis with the largest dot product with dir.
func NearestAxis(dir math.Vec3) Axis {
	best := AxisPosX
	bestDot := float32(-2)
	for i, v := range axisVectors {
		if d := v.Dot(dir); d > bestDot {
			best = Axis(i)
			bestDot = d
		}
	}
	return best
}

// BendParams configures bend distance links.
type BendParams struct {
	Enabled  bool `yaml:"enabled"`
	MaxCount int  `yaml:"max_count"`
}

// NearParams configures near distance links.
type NearParams struct {
	Enabled  bool       `yaml:"enabled"`
	MaxDepth float32    `yaml:"max_depth"`
	Distance math.Curve `yaml:"distance"`
	MaxCount int        `yaml:"max_count"`
}

// PenetrationParams configures penetration records.
type PenetrationParams struct {
	Mode            PenetrationMode `yaml:"mode"`
	Axis            Axis            `yaml:"axis"`
	MaxDepth        float32         `yaml:"max_depth"`
	ConnectDistance math.Curve      `yaml:"connect_distance"`
	MaxColliders    int             `yaml:"max_colliders"`
	RatioCutoff     float32         `yaml:"ratio_cutoff"`
	Colliders       []Collider      `yaml:"colliders"`
}

// BuildParams selects which constraint groups are compiled.
type BuildParams struct {
	Bend          BendParams        `yaml:"bend"`
	Near          NearParams        `yaml:"near"`
	ClampDistance bool              `yaml:"clamp_distance"`
	Rotation      bool              `yaml:"rotation"`
	TriangleBend  bool              `yaml:"triangle_bend"`
	Penetration   PenetrationParams `yaml:"penetration"`
}

// DefaultBuildParams returns the build settings used by the CLI tools.
func DefaultBuildParams() BuildParams {
	return BuildParams{
		Bend: BendParams{
			Enabled:  false,
			MaxCount: 2,
		},
		Near: NearParams{
			Enabled:  false,
			MaxDepth: 0.5,
			Distance: math.LinearCurve(0.1, 0.05),
			MaxCount: 3,
		},
		ClampDistance: true,
		Rotation:      true,
		TriangleBend:  true,
		Penetration: PenetrationParams{
			Mode:            PenetrationNone,
			Axis:            AxisNegZ,
			MaxDepth:        1,
			ConnectDistance: math.ConstCurve(0.3),
			MaxColliders:    2,
			RatioCutoff:     1.5,
		},
	}
}
