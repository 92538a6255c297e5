package physics

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-cloth/pkg/arena"
	"github.com/Faultbox/midgard-cloth/pkg/constraint"
	"github.com/Faultbox/midgard-cloth/pkg/jobs"
	"github.com/Faultbox/midgard-cloth/pkg/math"
)

// Simulation errors.
var (
	ErrUnknownTeam = errors.New("unknown team")
	ErrGlobalTeam  = errors.New("operation not allowed on the global team")
	ErrPoseLength  = errors.New("pose length does not match team particle count")
)

// Settings are the simulation-wide timing and scheduling knobs.
type Settings struct {
	Frequency         int     `yaml:"frequency"`
	MaxUpdatePerFrame int     `yaml:"max_update_per_frame"`
	TimeScale         float32 `yaml:"time_scale"`
	Workers           int     `yaml:"workers"`
	BatchSize         int     `yaml:"batch_size"`
	Deferred          bool    `yaml:"deferred"`
}

// DefaultSettings returns 90 Hz stepping with at most three steps a frame.
func DefaultSettings() Settings {
	return Settings{
		Frequency:         ReferenceFrequency,
		MaxUpdatePerFrame: 3,
		TimeScale:         1,
		BatchSize:         64,
	}
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulation) {
		s.log = l
	}
}

// WithPool shares an existing worker pool instead of starting one.
func WithPool(p *jobs.Pool) Option {
	return func(s *Simulation) {
		s.pool = p
		s.ownPool = false
	}
}

// Stats summarizes the last tick.
type Stats struct {
	Frame         uint64
	Steps         int
	Teams         int
	Particles     int
	Fragmentation float32
}

// Simulation is one independent cloth world: particles, teams, constraint
// modules and the worker pool that runs the kernels. All methods must be
// called from one goroutine.
type Simulation struct {
	settings Settings
	log      *zap.Logger
	pool     *jobs.Pool
	ownPool  bool

	store   ParticleStore
	teams   arena.Pool[Team]
	global  TeamID
	modules []module
	frames  []teamFrame

	stepDt   float32
	maxSteps int
	ctx      solveContext

	front   int
	pending bool
	done    chan struct{}

	frame     uint64
	lastSteps int
}

// NewSimulation creates a simulation with an empty global team.
func NewSimulation(settings Settings, opts ...Option) *Simulation {
	def := DefaultSettings()
	if settings.Frequency <= 0 {
		settings.Frequency = def.Frequency
	}
	if settings.MaxUpdatePerFrame <= 0 {
		settings.MaxUpdatePerFrame = def.MaxUpdatePerFrame
	}
	if settings.TimeScale < 0 {
		settings.TimeScale = 0
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = def.BatchSize
	}

	s := &Simulation{
		settings: settings,
		log:      zap.NewNop(),
		ownPool:  true,
		stepDt:   1 / float32(settings.Frequency),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = jobs.NewPool(settings.Workers)
	}
	s.modules = newModules()
	s.global = s.teams.Add(Team{
		Name:      "global",
		Active:    true,
		TimeScale: 1,
		Scale:     1,
		Rotation:  math.QuatIdentity(),
		Params:    DefaultClothParams(),
	})

	s.log.Debug("simulation created",
		zap.Int("frequency", settings.Frequency),
		zap.Int("workers", s.pool.Workers()),
		zap.Bool("deferred", settings.Deferred))
	return s
}

// Close waits for any running chain and stops the worker pool.
func (s *Simulation) Close() {
	s.wait()
	if s.ownPool {
		s.pool.Close()
	}
}

// GlobalTeam returns the permanent team whose colliders affect every team.
func (s *Simulation) GlobalTeam() TeamID {
	return s.global
}

// Settings returns the active settings.
func (s *Simulation) Settings() Settings {
	return s.settings
}

// Stats returns counters from the last tick.
func (s *Simulation) Stats() Stats {
	return Stats{
		Frame:         s.frame,
		Steps:         s.lastSteps,
		Teams:         s.teams.Len(),
		Particles:     s.store.Count(),
		Fragmentation: s.Fragmentation(),
	}
}

// Tick advances the simulation by dt seconds of frame time. In deferred mode
// the chain runs in the background and its result becomes visible on the
// next Tick, so outputs lag one frame behind.
func (s *Simulation) Tick(dt float32) {
	if dt <= 0 {
		return
	}
	s.wait()
	s.frame++

	if s.settings.Deferred {
		if s.pending {
			s.front = 1 - s.front
			s.pending = false
		}
		s.stage(dt)
		done := make(chan struct{})
		s.done = done
		s.pending = true
		go func() {
			defer close(done)
			s.run()
		}()
		return
	}

	s.stage(dt)
	s.run()
	s.front = 1 - s.front
}

// Wait blocks until a background chain started by Tick has finished. Its
// result still becomes visible only on the next Tick.
func (s *Simulation) Wait() {
	s.wait()
}

func (s *Simulation) wait() {
	if s.done != nil {
		<-s.done
		s.done = nil
	}
}

// Compact packs particle and module storage after teams were removed.
// Team handles stay valid.
func (s *Simulation) Compact() {
	s.wait()
	before := s.store.Fragmentation()

	var live []arena.Chunk
	s.teams.Each(func(_ TeamID, t *Team) {
		live = append(live, t.Particles)
	})
	moves := s.store.Compact(live)
	s.teams.Each(func(_ TeamID, t *Team) {
		t.Particles = arena.Relocate(t.Particles, moves)
	})
	for _, m := range s.modules {
		m.compact()
	}
	s.log.Debug("storage compacted",
		zap.Float32("fragmentation", before),
		zap.Int("moves", len(moves)))
}

// solveContext is the position of the solver loop, read by kernels to decide
// which teams take part in the current pass.
type solveContext struct {
	outer int
	pass  int
}

// teamFrame is the per-tick snapshot of a team. Kernels read only frames and
// the particle store, never Team, so setters stay safe while a deferred
// chain runs.
type teamFrame struct {
	live      bool
	slot      int32
	start     int32
	count     int32
	steps     int
	params    ClothParams
	scale     float32
	power     float32
	gravity   math.Vec3
	colliders []constraint.Collider // team then global
	own       []constraint.Collider // team only, indexed by penetration records
	penMode   constraint.PenetrationMode
	groups    [moduleCount]arena.Handle
	iters     [moduleCount]int

	force     math.Vec3
	forceMode ForceMode

	reset     bool
	shift     bool
	pivot     math.Vec3
	shiftRot  math.Quat
	shiftMove math.Vec3

	// per step
	stepping bool
	first    bool
	ratio    float32
}

// runs reports whether the team takes part in the current pass of mod.
func (tf *teamFrame) runs(mod moduleID, ctx solveContext) bool {
	return tf.stepping && ctx.outer < tf.params.SolverIterations && ctx.pass < tf.iters[mod]
}

// stage snapshots every team and copies staged inputs into the particle
// store. It runs on the calling goroutine before the chain starts.
func (s *Simulation) stage(dt float32) {
	st := &s.store
	var global []constraint.Collider
	if g, ok := s.teams.Get(s.global); ok {
		global = g.Colliders
	}

	s.frames = s.frames[:0]
	s.maxSteps = 0
	s.teams.Each(func(id TeamID, t *Team) {
		for int(id.Index) >= len(s.frames) {
			s.frames = append(s.frames, teamFrame{})
		}
		tf := &s.frames[id.Index]
		*tf = teamFrame{
			live:    true,
			slot:    id.Index,
			start:   t.Particles.Start,
			count:   t.Particles.Count,
			params:  t.Params,
			scale:   t.Scale,
			power:   float32(ReferenceFrequency) / float32(s.settings.Frequency),
			own:     t.Colliders,
			groups:  t.groups,
			penMode: constraint.PenetrationNone,
		}
		if id == s.global || t.Bundle == nil {
			return
		}
		tf.colliders = append(append([]constraint.Collider(nil), t.Colliders...), global...)
		if pen := t.Bundle.Constraints.Penetration; pen != nil {
			tf.penMode = pen.Mode
		}
		tf.gravity = t.Params.GravityDirection.Normalize().Scale(t.Params.Gravity * t.Scale)
		for i, m := range s.modules {
			tf.iters[i] = m.iterations(&tf.params)
		}

		if !t.Active || t.Particles.IsEmpty() {
			return
		}

		t.time += dt * s.settings.TimeScale * t.TimeScale
		steps := int(t.time / s.stepDt)
		if steps > s.settings.MaxUpdatePerFrame {
			s.log.Debug("update count capped",
				zap.String("team", t.Name),
				zap.Int("wanted", steps),
				zap.Int("max", s.settings.MaxUpdatePerFrame))
			steps = s.settings.MaxUpdatePerFrame
			t.time = 0
		} else {
			t.time -= float32(steps) * s.stepDt
		}
		tf.steps = steps

		// base pose: staged input, or the rest pose carried by the team transform
		for i := t.Particles.Start; i < t.Particles.End(); i++ {
			if t.staged {
				st.BasePos[i] = st.StagedPos[i]
				st.BaseRot[i] = st.StagedRot[i]
			} else {
				st.BasePos[i] = t.Position.Add(t.Rotation.Rotate(st.RestPos[i].Scale(t.Scale)))
				st.BaseRot[i] = t.Rotation.Mul(st.RestRot[i])
			}
		}
		t.staged = false

		if steps == 0 {
			return
		}
		s.stageWorld(t, tf, dt)
		tf.force, tf.forceMode = t.force, t.forceMode
		t.force, t.forceMode = math.Vec3{}, ForceNone
		s.maxSteps = max(s.maxSteps, steps)
	})

	for _, m := range s.modules {
		m.prepare(s)
	}
	s.lastSteps = s.maxSteps
}

// stageWorld decides how much of the team's motion since the last simulated
// frame is carried into the particles, and whether the team teleported.
func (s *Simulation) stageWorld(t *Team, tf *teamFrame, dt float32) {
	w := t.Params.World
	move := t.Position.Sub(t.prevPosition)
	if t.reset || (w.TeleportDistance > 0 && move.Length() > w.TeleportDistance) {
		if !t.reset {
			s.log.Debug("team teleported", zap.String("team", t.Name), zap.Float32("distance", move.Length()))
		}
		tf.reset = true
		t.reset = false
	} else {
		// the inertial share stays in world space; the rest follows the team
		inertial := move.Scale(math.Clamp01(w.MovementInfluence))
		if w.MaxMoveSpeed > 0 {
			inertial = inertial.ClampLength(w.MaxMoveSpeed * dt)
		}
		rotDelta := t.Rotation.Mul(t.prevRotation.Inverse()).Normalize()
		tf.shiftMove = move.Sub(inertial)
		tf.shiftRot = math.QuatIdentity().Slerp(rotDelta, 1-math.Clamp01(w.RotationInfluence)).Normalize()
		tf.pivot = t.prevPosition
		tf.shift = !tf.shiftMove.IsZero() || tf.shiftRot.W < 0.999999
	}
	t.prevPosition = t.Position
	t.prevRotation = t.Rotation
}

// run executes the kernel chain for one frame and writes the back result
// buffer.
func (s *Simulation) run() {
	if s.maxSteps > 0 {
		s.applyWorld()
	}
	for step := 0; step < s.maxSteps; step++ {
		for i := range s.frames {
			tf := &s.frames[i]
			tf.stepping = tf.live && step < tf.steps
			tf.first = step == 0
			if tf.steps > 0 {
				tf.ratio = float32(step+1) / float32(tf.steps)
			}
		}
		s.integrate()
		s.solve()
		s.finalize()
		s.updateRotations()
	}
	for i := range s.frames {
		s.frames[i].stepping = false
	}
	s.writeResults()
}

// solve runs every module in the fixed order for the configured outer and
// inner iterations.
func (s *Simulation) solve() {
	outer := 0
	for i := range s.frames {
		if s.frames[i].stepping {
			outer = max(outer, s.frames[i].params.SolverIterations)
		}
	}
	for o := 0; o < outer; o++ {
		for mi, m := range s.modules {
			passes := 0
			for i := range s.frames {
				if s.frames[i].stepping {
					passes = max(passes, s.frames[i].iters[mi])
				}
			}
			for p := 0; p < passes; p++ {
				s.ctx = solveContext{outer: o, pass: p}
				m.solve(s)
			}
		}
	}
}

// forParticles runs fn in parallel for every particle of a stepping team.
func (s *Simulation) forParticles(fn func(tf *teamFrame, i int32)) {
	st := &s.store
	s.pool.ParallelFor(st.Len(), s.settings.BatchSize, func(start, end int) {
		for i := start; i < end; i++ {
			slot := st.Team[i]
			if slot < 0 || int(slot) >= len(s.frames) {
				continue
			}
			tf := &s.frames[slot]
			if tf.stepping {
				fn(tf, int32(i))
			}
		}
	})
}

// directPass runs a Jacobi pass: fn reads the predicted buffer and returns
// the new position of one movable particle; results go to a private buffer
// that is swapped in afterwards.
func (s *Simulation) directPass(mod moduleID, fn func(tf *teamFrame, i int32) math.Vec3) {
	st := &s.store
	next, out := st.Next, st.Scratch
	ctx := s.ctx
	s.pool.ParallelFor(st.Len(), s.settings.BatchSize, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = next[i]
			slot := st.Team[i]
			if slot < 0 || int(slot) >= len(s.frames) || !st.Role[i].IsMove() {
				continue
			}
			tf := &s.frames[slot]
			if tf.runs(mod, ctx) {
				out[i] = fn(tf, int32(i))
			}
		}
	})
	st.Next, st.Scratch = out, next
}
