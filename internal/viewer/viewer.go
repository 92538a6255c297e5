package viewer

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-cloth/internal/config"
	"github.com/Faultbox/midgard-cloth/internal/logger"
	"github.com/Faultbox/midgard-cloth/internal/viewer/scene"
	"github.com/Faultbox/midgard-cloth/pkg/asset"
	"github.com/Faultbox/midgard-cloth/pkg/math"
	"github.com/Faultbox/midgard-cloth/pkg/physics"
)

// gust is the velocity change applied to every team by the F key.
var gust = math.Vec3{Z: -3}

// FrameFunc runs before each simulation tick. t is the elapsed unpaused time.
type FrameFunc func(t, dt float32) error

// Viewer owns the window and drives a simulation interactively.
//
// Controls: left drag orbits, wheel zooms, WASD and PageUp/PageDown pan,
// Home refits the camera. Space pauses and N steps one frame while paused.
// R resets teams, F blows a gust. E, P and C toggle mesh edges, parent
// links and role colors. Esc quits.
type Viewer struct {
	cfg    config.ViewerConfig
	sim    *physics.Simulation
	window *Window
	render *Renderer
	camera *scene.OrbitCamera
	scene  *scene.Scene
	log    *zap.Logger

	paused   bool
	step     bool
	fitted   bool
	dragging bool
	held     map[sdl.Keycode]bool
}

// New opens the window and GL renderer for sim.
func New(cfg config.ViewerConfig, sim *physics.Simulation) (*Viewer, error) {
	w, err := NewWindow(WindowConfig{
		Title:  "clothview",
		Width:  cfg.Width,
		Height: cfg.Height,
		VSync:  cfg.VSync,
	})
	if err != nil {
		return nil, err
	}
	r, err := NewRenderer(cfg.PointSize)
	if err != nil {
		w.Close()
		return nil, err
	}
	dw, dh := w.DrawableSize()
	r.Resize(dw, dh)

	return &Viewer{
		cfg:    cfg,
		sim:    sim,
		window: w,
		render: r,
		camera: scene.NewOrbitCamera(cfg.CameraDistance),
		scene:  scene.NewScene(cfg.ShowRoles),
		log:    logger.Named("viewer"),
		held:   make(map[sdl.Keycode]bool),
	}, nil
}

// Close releases the renderer and window.
func (v *Viewer) Close() {
	v.render.Close()
	v.window.Close()
}

// AddTeam shows a simulated team.
func (v *Viewer) AddTeam(id physics.TeamID, b *asset.Bundle) {
	v.scene.Add(id, b)
	v.fitted = false
}

// Run loops until the window closes. Each unpaused frame calls frame, ticks
// the simulation by the wall-clock delta and redraws.
func (v *Viewer) Run(frame FrameFunc) error {
	var (
		last    = time.Now()
		elapsed float32
		fpsTime time.Time
		frames  int
	)
	var minFrame time.Duration
	if v.cfg.FPSLimit > 0 {
		minFrame = time.Second / time.Duration(v.cfg.FPSLimit)
	}

	for {
		if quit := v.handleEvents(); quit {
			return nil
		}
		v.handleKeys()

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now
		// a stalled frame should not turn into a long catch-up
		dt = min(dt, 0.1)

		if !v.paused || v.step {
			if v.step {
				dt = 1 / float32(v.sim.Settings().Frequency)
				v.step = false
			}
			elapsed += dt
			if frame != nil {
				if err := frame(elapsed, dt); err != nil {
					return err
				}
			}
			v.sim.Tick(dt)
		}

		if err := v.scene.Update(v.sim); err != nil {
			return err
		}
		if !v.fitted {
			if lo, hi, ok := v.scene.Bounds(); ok {
				v.camera.FitToBounds(lo, hi)
				v.fitted = true
			}
		}

		w, h := v.window.DrawableSize()
		v.render.Draw(v.scene, v.camera.ViewProjection(w, h))
		v.window.SwapBuffers()

		frames++
		if since := now.Sub(fpsTime); since >= time.Second {
			st := v.sim.Stats()
			v.window.SetTitle(fmt.Sprintf("clothview  %d teams  %d particles  %.0f fps%s",
				st.Teams, st.Particles, float64(frames)/since.Seconds(), pausedSuffix(v.paused)))
			frames = 0
			fpsTime = now
		}

		if minFrame > 0 {
			if rest := minFrame - time.Since(now); rest > 0 {
				time.Sleep(rest)
			}
		}
	}
}

func pausedSuffix(paused bool) string {
	if paused {
		return "  [paused]"
	}
	return ""
}

// handleEvents drains the SDL queue and reports whether to quit.
func (v *Viewer) handleEvents() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				v.render.Resize(v.window.DrawableSize())
			}

		case *sdl.MouseButtonEvent:
			if e.Button == sdl.BUTTON_LEFT {
				v.dragging = e.State == sdl.PRESSED
			}

		case *sdl.MouseMotionEvent:
			if v.dragging {
				v.camera.HandleDrag(float32(e.XRel), float32(e.YRel))
			}

		case *sdl.MouseWheelEvent:
			v.camera.HandleZoom(float32(e.Y))

		case *sdl.KeyboardEvent:
			pressed := e.State == sdl.PRESSED
			v.held[e.Keysym.Sym] = pressed
			if !pressed || e.Repeat != 0 {
				continue
			}
			if v.handleKey(e.Keysym.Sym) {
				return true
			}
		}
	}
	return false
}

// handleKey applies a one-shot key command and reports whether to quit.
func (v *Viewer) handleKey(key sdl.Keycode) bool {
	switch key {
	case sdl.K_ESCAPE:
		return true
	case sdl.K_SPACE:
		v.paused = !v.paused
	case sdl.K_n:
		v.step = true
	case sdl.K_r:
		for _, id := range v.scene.Teams() {
			if err := v.sim.ResetTeam(id); err != nil {
				v.log.Warn("reset failed", zap.Error(err))
			}
		}
	case sdl.K_f:
		for _, id := range v.scene.Teams() {
			if err := v.sim.SetExternalForce(id, gust, physics.ForceAddWithoutMass); err != nil {
				v.log.Warn("gust failed", zap.Error(err))
			}
		}
	case sdl.K_e:
		v.scene.ShowEdges = !v.scene.ShowEdges
	case sdl.K_p:
		v.scene.ShowParents = !v.scene.ShowParents
	case sdl.K_c:
		v.scene.ShowRoles = !v.scene.ShowRoles
	case sdl.K_HOME:
		v.fitted = false
	}
	return false
}

// handleKeys pans the camera while movement keys are held.
func (v *Viewer) handleKeys() {
	axis := func(pos, neg sdl.Keycode) float32 {
		var a float32
		if v.held[pos] {
			a++
		}
		if v.held[neg] {
			a--
		}
		return a
	}
	forward := axis(sdl.K_w, sdl.K_s)
	right := axis(sdl.K_d, sdl.K_a)
	up := axis(sdl.K_PAGEUP, sdl.K_PAGEDOWN)
	if forward != 0 || right != 0 || up != 0 {
		v.camera.HandlePan(forward, right, up)
	}
}
