// Package physics advances baked cloth bundles with a position-based solver:
// force integration, an ordered chain of constraint modules, and pose and
// mesh output. Each Simulation owns its particles, teams and worker pool.
package physics

import (
	"fmt"

	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// ReferenceFrequency is the step rate at which stiffness values apply as
// written. Other rates rescale them through the update power.
const ReferenceFrequency = 90

// ForceMode selects how an external force changes particle velocity.
type ForceMode uint8

const (
	ForceNone ForceMode = iota
	ForceAddWithMass
	ForceAddWithoutMass
	ForceReplaceWithMass
	ForceReplaceWithoutMass
)

// String returns a human-readable mode name.
func (m ForceMode) String() string {
	switch m {
	case ForceNone:
		return "None"
	case ForceAddWithMass:
		return "AddWithMass"
	case ForceAddWithoutMass:
		return "AddWithoutMass"
	case ForceReplaceWithMass:
		return "ReplaceWithMass"
	case ForceReplaceWithoutMass:
		return "ReplaceWithoutMass"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// DistanceParams configures the restore-distance module.
type DistanceParams struct {
	Stiffness     math.Curve `yaml:"stiffness"`
	NearStiffness math.Curve `yaml:"near_stiffness"`
	BendStiffness math.Curve `yaml:"bend_stiffness"`
	Iterations    int        `yaml:"iterations"`
}

// ClampDistanceParams configures the root distance band.
type ClampDistanceParams struct {
	Enabled           bool    `yaml:"enabled"`
	MinRatio          float32 `yaml:"min_ratio"`
	MaxRatio          float32 `yaml:"max_ratio"`
	VelocityInfluence float32 `yaml:"velocity_influence"`
	Iterations        int     `yaml:"iterations"`
}

// ClampPositionParams configures the ellipsoid around the base pose.
type ClampPositionParams struct {
	Enabled           bool       `yaml:"enabled"`
	MaxLength         math.Curve `yaml:"max_length"`
	AxisRatio         math.Vec3  `yaml:"axis_ratio"`
	VelocityInfluence float32    `yaml:"velocity_influence"`
	Iterations        int        `yaml:"iterations"`
}

// RestoreRotationParams configures the pull toward the parent-local rest pose.
type RestoreRotationParams struct {
	Enabled           bool       `yaml:"enabled"`
	Stiffness         math.Curve `yaml:"stiffness"`
	VelocityInfluence float32    `yaml:"velocity_influence"`
	Iterations        int        `yaml:"iterations"`
}

// ClampRotationParams limits the angle to the rest direction from the parent.
type ClampRotationParams struct {
	Enabled           bool       `yaml:"enabled"`
	MaxAngle          math.Curve `yaml:"max_angle"` // degrees
	VelocityInfluence float32    `yaml:"velocity_influence"`
	Iterations        int        `yaml:"iterations"`
}

// TriangleBendParams configures the dihedral bend module.
type TriangleBendParams struct {
	Enabled    bool       `yaml:"enabled"`
	Stiffness  math.Curve `yaml:"stiffness"`
	Iterations int        `yaml:"iterations"`
}

// PenetrationParams configures penetration limiting. In surface mode
// Distance is the allowed depth along the axis and Radius the sphere radius;
// in collider mode Distance is the allowed penetration and Radius the move
// radius.
type PenetrationParams struct {
	Enabled    bool       `yaml:"enabled"`
	Distance   math.Curve `yaml:"distance"`
	Radius     math.Curve `yaml:"radius"`
	Iterations int        `yaml:"iterations"`
}

// CollisionParams configures collider extrusion and collision.
type CollisionParams struct {
	Enabled    bool       `yaml:"enabled"`
	Extrusion  bool       `yaml:"extrusion"`
	Radius     math.Curve `yaml:"radius"` // particle radius
	Friction   float32    `yaml:"friction"`
	Iterations int        `yaml:"iterations"`
}

// SpringParams keeps particles near their base pose.
type SpringParams struct {
	Enabled    bool    `yaml:"enabled"`
	Radius     float32 `yaml:"radius"`
	Power      float32 `yaml:"power"`
	Iterations int     `yaml:"iterations"`
}

// WorldParams controls how much team motion reaches the particles.
type WorldParams struct {
	MovementInfluence float32 `yaml:"movement_influence"`
	RotationInfluence float32 `yaml:"rotation_influence"`
	MaxMoveSpeed      float32 `yaml:"max_move_speed"`    // 0 = unlimited
	TeleportDistance  float32 `yaml:"teleport_distance"` // 0 = off
}

// ClothParams are the runtime knobs of one team.
type ClothParams struct {
	Gravity          float32    `yaml:"gravity"`
	GravityDirection math.Vec3  `yaml:"gravity_direction"`
	Mass             math.Curve `yaml:"mass"`
	Drag             math.Curve `yaml:"drag"`
	MaxVelocity      float32    `yaml:"max_velocity"`
	SolverIterations int        `yaml:"solver_iterations"`
	BlendWeight      float32    `yaml:"blend_weight"`

	Distance        DistanceParams        `yaml:"distance"`
	ClampDistance   ClampDistanceParams   `yaml:"clamp_distance"`
	ClampPosition   ClampPositionParams   `yaml:"clamp_position"`
	RestoreRotation RestoreRotationParams `yaml:"restore_rotation"`
	ClampRotation   ClampRotationParams   `yaml:"clamp_rotation"`
	TriangleBend    TriangleBendParams    `yaml:"triangle_bend"`
	Penetration     PenetrationParams     `yaml:"penetration"`
	Collision       CollisionParams       `yaml:"collision"`
	Spring          SpringParams          `yaml:"spring"`
	World           WorldParams           `yaml:"world"`
}

// DefaultClothParams returns settings suited to a hanging sheet.
func DefaultClothParams() ClothParams {
	return ClothParams{
		Gravity:          9.8,
		GravityDirection: math.Vec3{Y: -1},
		Mass:             math.ConstCurve(1),
		Drag:             math.ConstCurve(0.01),
		MaxVelocity:      5,
		SolverIterations: 1,
		BlendWeight:      1,
		Distance: DistanceParams{
			Stiffness:     math.ConstCurve(1),
			NearStiffness: math.ConstCurve(0.5),
			BendStiffness: math.ConstCurve(0.5),
			Iterations:    4,
		},
		ClampDistance: ClampDistanceParams{
			Enabled:           true,
			MinRatio:          0.7,
			MaxRatio:          1.05,
			VelocityInfluence: 0.2,
			Iterations:        1,
		},
		ClampPosition: ClampPositionParams{
			MaxLength:         math.LinearCurve(0, 0.3),
			AxisRatio:         math.Vec3{X: 1, Y: 1, Z: 1},
			VelocityInfluence: 0.2,
			Iterations:        1,
		},
		RestoreRotation: RestoreRotationParams{
			Enabled:           true,
			Stiffness:         math.LinearCurve(0.1, 0.02),
			VelocityInfluence: 0.3,
			Iterations:        1,
		},
		ClampRotation: ClampRotationParams{
			Enabled:           true,
			MaxAngle:          math.ConstCurve(60),
			VelocityInfluence: 0.2,
			Iterations:        1,
		},
		TriangleBend: TriangleBendParams{
			Enabled:    true,
			Stiffness:  math.ConstCurve(0.5),
			Iterations: 1,
		},
		Penetration: PenetrationParams{
			Distance:   math.ConstCurve(0.1),
			Radius:     math.ConstCurve(0.3),
			Iterations: 1,
		},
		Collision: CollisionParams{
			Enabled:    true,
			Extrusion:  true,
			Radius:     math.ConstCurve(0.02),
			Friction:   0.1,
			Iterations: 1,
		},
		Spring: SpringParams{
			Radius:     0.1,
			Power:      0.02,
			Iterations: 1,
		},
		World: WorldParams{
			MovementInfluence: 1,
			RotationInfluence: 1,
		},
	}
}

// Validate reports settings the solver cannot run with.
func (p *ClothParams) Validate() error {
	if p.SolverIterations < 0 {
		return fmt.Errorf("solver_iterations must not be negative: %d", p.SolverIterations)
	}
	if p.MaxVelocity < 0 {
		return fmt.Errorf("max_velocity must not be negative: %v", p.MaxVelocity)
	}
	if p.ClampDistance.Enabled && p.ClampDistance.MinRatio > p.ClampDistance.MaxRatio {
		return fmt.Errorf("clamp_distance min_ratio %v exceeds max_ratio %v",
			p.ClampDistance.MinRatio, p.ClampDistance.MaxRatio)
	}
	if p.BlendWeight < 0 || p.BlendWeight > 1 {
		return fmt.Errorf("blend_weight must be in [0, 1]: %v", p.BlendWeight)
	}
	return nil
}

// stiffness converts a per-step stiffness at ReferenceFrequency to the
// current step rate.
func stiffness(k, power float32) float32 {
	k = math.Clamp01(k)
	if k >= 1 {
		return 1
	}
	return 1 - math.Pow(1-k, power)
}
