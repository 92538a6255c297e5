package physics

import (
	"github.com/Faultbox/midgard-cloth/pkg/arena"
	"github.com/Faultbox/midgard-cloth/pkg/asset"
)

type moduleID int

// Solver order. Modules run in this order inside every solver iteration.
const (
	modExtrusion moduleID = iota
	modPenetration
	modCollision
	modClampDistance
	modSpring
	modDistance
	modRestoreRotation
	modTriangleBend
	modClampPosition
	modClampRotation
	moduleCount
)

var moduleNames = [moduleCount]string{
	"collider_extrusion",
	"penetration",
	"collider_collision",
	"clamp_distance",
	"spring",
	"restore_distance",
	"restore_rotation",
	"triangle_bend",
	"clamp_position",
	"clamp_rotation",
}

func (m moduleID) String() string {
	if m >= 0 && m < moduleCount {
		return moduleNames[m]
	}
	return "unknown"
}

// module is one constraint stage of the solver chain.
type module interface {
	id() moduleID
	// addTeam copies the team's records in. Modules without per-team data
	// return a nil handle.
	addTeam(slot int32, b *asset.Bundle) arena.Handle
	removeGroup(h arena.Handle)
	compact()
	fragmentation() float32
	// iterations is the inner pass count for a team, 0 when disabled.
	iterations(p *ClothParams) int
	// prepare resolves group views once per tick, before the chain runs.
	prepare(s *Simulation)
	// solve runs one inner pass for every team taking part in it.
	solve(s *Simulation)
}

func newModules() []module {
	return []module{
		&extrusionModule{},
		&penetrationModule{},
		&collisionModule{},
		&clampDistanceModule{},
		&springModule{},
		&distanceModule{},
		&restoreRotationModule{},
		&triangleBendModule{},
		&clampPositionModule{},
		&clampRotationModule{},
	}
}

// stateless is embedded by modules that keep no per-team records.
type stateless struct{}

func (stateless) addTeam(int32, *asset.Bundle) arena.Handle { return arena.Handle{} }
func (stateless) removeGroup(arena.Handle)                  {}
func (stateless) compact()                                  {}
func (stateless) fragmentation() float32                    { return 0 }
func (stateless) prepare(*Simulation)                       {}

// grouped is embedded by modules that keep per-team records. views is
// indexed by team slot and rebuilt by resolve at the start of each tick.
type grouped[R any] struct {
	store groupStore[R]
	views []groupView[R]
	has   []bool
}

func (g *grouped[R]) removeGroup(h arena.Handle) {
	g.store.remove(h)
}

func (g *grouped[R]) compact() {
	g.store.compact()
}

func (g *grouped[R]) fragmentation() float32 {
	return g.store.fragmentation()
}

func (g *grouped[R]) resolve(s *Simulation, mod moduleID) {
	n := len(s.frames)
	g.views = g.views[:0]
	g.has = g.has[:0]
	for slot := 0; slot < n; slot++ {
		tf := &s.frames[slot]
		var v groupView[R]
		ok := false
		if tf.live && tf.steps > 0 {
			v, ok = g.store.view(tf.groups[mod])
		}
		g.views = append(g.views, v)
		g.has = append(g.has, ok)
	}
}

// view returns the group view of a team, if it has one.
func (g *grouped[R]) view(tf *teamFrame) (*groupView[R], bool) {
	if int(tf.slot) >= len(g.has) || !g.has[tf.slot] {
		return nil, false
	}
	return &g.views[tf.slot], true
}

// Fragmentation returns the worst free-hole share over particle storage and
// every module buffer.
func (s *Simulation) Fragmentation() float32 {
	f := s.store.Fragmentation()
	for _, m := range s.modules {
		f = max(f, m.fragmentation())
	}
	return f
}
