package viewer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-cloth/internal/logger"
	"github.com/Faultbox/midgard-cloth/internal/viewer/scene"
	"github.com/Faultbox/midgard-cloth/pkg/math"
)

const vertexStride = 6 * 4

// batch is a dynamic vertex buffer drawn with one primitive type.
type batch struct {
	vao, vbo uint32
	capacity int
	count    int32
}

func newBatch() *batch {
	b := &batch{}
	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(1, &b.vbo)
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, vertexStride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, vertexStride, 3*4)
	gl.BindVertexArray(0)
	return b
}

// upload replaces the buffer contents, growing the store when needed.
func (b *batch) upload(data []float32) {
	b.count = int32(len(data) / 6)
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	if len(data) > b.capacity {
		b.capacity = len(data) * 2
		gl.BufferData(gl.ARRAY_BUFFER, b.capacity*4, nil, gl.DYNAMIC_DRAW)
	}
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, gl.Ptr(data))
}

func (b *batch) draw(mode uint32) {
	if b.count == 0 {
		return
	}
	gl.BindVertexArray(b.vao)
	gl.DrawArrays(mode, 0, b.count)
}

func (b *batch) delete() {
	gl.DeleteVertexArrays(1, &b.vao)
	gl.DeleteBuffers(1, &b.vbo)
}

// Renderer draws a scene.Scene as lines and round points.
type Renderer struct {
	program   uint32
	locVP     int32
	locSize   int32
	locRound  int32
	pointSize float32

	lines  *batch
	points *batch
}

// NewRenderer initializes OpenGL. It must be called after the window's
// context exists.
func NewRenderer(pointSize float32) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.Enable(gl.MULTISAMPLE)

	program, err := compileProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}
	return &Renderer{
		program:   program,
		locVP:     uniform(program, "uViewProj"),
		locSize:   uniform(program, "uPointSize"),
		locRound:  uniform(program, "uRoundPoints"),
		pointSize: pointSize,
		lines:     newBatch(),
		points:    newBatch(),
	}, nil
}

// Close releases GL objects.
func (r *Renderer) Close() {
	r.lines.delete()
	r.points.delete()
	gl.DeleteProgram(r.program)
}

// Resize updates the viewport.
func (r *Renderer) Resize(width, height int32) {
	gl.Viewport(0, 0, width, height)
	logger.Debug("renderer resized", zap.Int32("width", width), zap.Int32("height", height))
}

// Draw clears the frame and draws the scene with the given view-projection.
func (r *Renderer) Draw(s *scene.Scene, viewProj math.Mat4) {
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	r.lines.upload(s.Lines)
	r.points.upload(s.Points)

	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.locVP, 1, false, viewProj.Ptr())
	// point size is in pixels at one meter
	gl.Uniform1f(r.locSize, r.pointSize)

	gl.Uniform1f(r.locRound, 0)
	r.lines.draw(gl.LINES)
	gl.Uniform1f(r.locRound, 1)
	r.points.draw(gl.POINTS)
	gl.BindVertexArray(0)
}
