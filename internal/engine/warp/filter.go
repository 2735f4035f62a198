package warp

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/thetawarp/internal/engine/calib"
	"github.com/Faultbox/thetawarp/internal/engine/framebuffer"
	"github.com/Faultbox/thetawarp/internal/engine/gpu"
	"github.com/Faultbox/thetawarp/internal/engine/mesh"
	"github.com/Faultbox/thetawarp/internal/engine/shader"
	"github.com/Faultbox/thetawarp/internal/logger"
)

// Rotation angle limits in degrees.
const (
	MinAngle = -180
	MaxAngle = 180
)

// DefaultRotation is the view rotation applied when none is configured.
var DefaultRotation = [3]float32{0, -90, 0}

// Properties configures a Filter.
type Properties struct {
	// Rotation holds X, Y, Z angles in degrees, each in [-180, 180].
	Rotation [3]float32
	// TableLeft and TableRight are calibration files, required unless
	// DisableStitch is set.
	TableLeft  string
	TableRight string
	// VertexShader and FragmentShader replace the built-in stages when set.
	VertexShader   string
	FragmentShader string
	DisableStitch  bool
	// MeshX and MeshY set the output grid density.
	MeshX int
	MeshY int
	// AspectRatio scales calibration v coordinates.
	AspectRatio float32
}

// DefaultProperties returns the properties of a freshly created filter.
func DefaultProperties() Properties {
	return Properties{
		Rotation:    DefaultRotation,
		MeshX:       mesh.DefaultXCount,
		MeshY:       mesh.DefaultYCount,
		AspectRatio: calib.DefaultAspectRatio,
	}
}

// ValidAngle reports whether a lies within [MinAngle, MaxAngle].
// NaN and infinities do not.
func ValidAngle(a float32) bool {
	return a >= MinAngle && a <= MaxAngle
}

func checkAngles(angles [3]float32) error {
	for axis, a := range angles {
		if !ValidAngle(a) {
			return fmt.Errorf("%w: axis %c = %g, must be within [%d, %d]",
				ErrAngleOutOfRange, "XYZ"[axis], a, MinAngle, MaxAngle)
		}
	}
	return nil
}

// Filter runs the warp for a stream: Start once, Process per frame, Stop once.
type Filter struct {
	mu      sync.RWMutex
	props   Properties
	control *Control

	// GL thread only.
	program   uint32
	resources *Resources
	renderer  *Renderer
}

// NewFilter validates props and returns an idle filter.
func NewFilter(props Properties) (*Filter, error) {
	if err := checkAngles(props.Rotation); err != nil {
		return nil, err
	}
	return &Filter{props: props}, nil
}

// Properties returns a copy of the current properties.
func (f *Filter) Properties() Properties {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.props
}

// SetRotation sets all three angles. Out-of-range values are rejected and
// the previous rotation kept.
func (f *Filter) SetRotation(angles [3]float32) error {
	if err := checkAngles(angles); err != nil {
		return err
	}
	f.mu.Lock()
	f.props.Rotation = angles
	f.mu.Unlock()
	return nil
}

// SetAngle sets one axis (0 = X, 1 = Y, 2 = Z).
func (f *Filter) SetAngle(axis int, degrees float32) error {
	if axis < 0 || axis > 2 {
		return fmt.Errorf("%w: axis %d", ErrAngleOutOfRange, axis)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	angles := f.props.Rotation
	angles[axis] = degrees
	if err := checkAngles(angles); err != nil {
		return err
	}
	f.props.Rotation = angles
	return nil
}

// Rotation returns the current angles.
func (f *Filter) Rotation() [3]float32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.props.Rotation
}

// SetStitchDisabled toggles the passthrough path. The calibration table is
// chosen at Start; enabling stitching on a filter started without tables
// samples the zeroed placeholder.
func (f *Filter) SetStitchDisabled(disabled bool) {
	f.mu.Lock()
	f.props.DisableStitch = disabled
	f.mu.Unlock()
}

// StitchDisabled reports whether stitching is off.
func (f *Filter) StitchDisabled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.props.DisableStitch
}

// SetControl attaches a rotation track; nil detaches it.
func (f *Filter) SetControl(c *Control) {
	f.mu.Lock()
	f.control = c
	f.mu.Unlock()
}

// Started reports whether Start succeeded and Stop has not run.
func (f *Filter) Started() bool {
	return f.renderer != nil
}

// Start loads shaders, the calibration table and the mesh, and compiles the
// program. It must run on the GL thread. Errors wrap ErrFatalStartup or
// ErrResourceAllocation; a failed Start leaves nothing allocated.
func (f *Filter) Start(ctx gpu.Context) error {
	if f.Started() {
		return nil
	}
	props := f.Properties()

	table, err := loadTable(props)
	if err != nil {
		return err
	}

	m, err := mesh.Generate(props.MeshX, props.MeshY)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResourceAllocation, err)
	}

	src, err := shader.Load(props.VertexShader, props.FragmentShader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFatalStartup, err)
	}
	program, err := ctx.CompileProgram(src.Vertex, src.Fragment)
	if err != nil {
		return fmt.Errorf("%w: compiling warp shader: %w", ErrFatalStartup, err)
	}

	f.program = program
	f.resources = NewResources(m, table)
	f.renderer = NewRenderer(program, f.resources)

	logger.Info("warp filter started",
		zap.Int("mesh_x", m.XCount),
		zap.Int("mesh_y", m.YCount),
		zap.Int("table_width", table.Width),
		zap.Int("table_height", table.Height),
		zap.Bool("stitch_disabled", props.DisableStitch),
		zap.Bool("custom_vertex", props.VertexShader != ""),
		zap.Bool("custom_fragment", props.FragmentShader != ""),
	)
	return nil
}

func loadTable(props Properties) (*calib.Table, error) {
	if props.DisableStitch {
		logger.Info("stitching disabled, using placeholder calibration table")
		return calib.Placeholder(), nil
	}
	if props.TableLeft == "" || props.TableRight == "" {
		return nil, fmt.Errorf("%w: calibration table paths not set", ErrFatalStartup)
	}
	t, err := calib.Load(props.TableLeft, props.TableRight, props.AspectRatio)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFatalStartup, err)
	}
	return t, nil
}

// Snapshot returns the parameters for a frame at pts, applying the control
// track when one is attached.
func (f *Filter) Snapshot(pts time.Duration) Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.control != nil {
		f.props.Rotation = f.control.At(pts)
	}
	return Params{
		Rotation:       f.props.Rotation,
		StitchDisabled: f.props.DisableStitch,
	}
}

// Process renders one frame. in is the input texture, out the target.
func (f *Filter) Process(ctx gpu.Context, in uint32, out *framebuffer.Framebuffer, pts time.Duration) error {
	if !f.Started() {
		return fmt.Errorf("%w: %w", ErrTransientFrame, ErrNotStarted)
	}
	params := f.Snapshot(pts)
	if err := f.renderer.Render(ctx, Frame{Input: in, Output: out, Params: params}); err != nil {
		logger.Warn("frame dropped", zap.Duration("pts", pts), zap.Error(err))
		return err
	}
	return nil
}

// Stop releases the GPU resources and the program. Safe to call repeatedly
// and without Start.
func (f *Filter) Stop(ctx gpu.Context) {
	if f.resources != nil {
		f.resources.Release(ctx)
		f.resources = nil
	}
	if f.program != 0 {
		ctx.DeleteProgram(f.program)
		f.program = 0
	}
	if f.renderer != nil {
		f.renderer = nil
		logger.Info("warp filter stopped")
	}
}
