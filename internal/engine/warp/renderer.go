package warp

import (
	"fmt"

	"github.com/Faultbox/thetawarp/internal/engine/framebuffer"
	"github.com/Faultbox/thetawarp/internal/engine/gpu"
	"github.com/Faultbox/thetawarp/pkg/math"
)

// GapCount is the number of vec2 seam offsets, one per latitude band.
const GapCount = 14

// Texture units and the sampler uniforms bound to them.
const (
	ImageUnit = 0
	TableUnit = 1
)

// ClearColor is the color the output is cleared to before each draw.
var ClearColor = [4]float32{1, 0, 0, 0}

// Params is the per-frame snapshot of the live properties.
type Params struct {
	// Rotation holds X, Y, Z angles in degrees.
	Rotation       [3]float32
	StitchDisabled bool
	// Gaps holds GapCount (x, y) seam offsets, passed through unchanged.
	Gaps [GapCount * 2]float32
}

// Frame is one render request.
type Frame struct {
	// Input is the RGBA texture holding the dual-fisheye frame.
	Input  uint32
	Output *framebuffer.Framebuffer
	Params Params
}

type uniformLocations struct {
	image, tbl, rmat, gap, skipStitch int32
}

// Renderer issues the draw for one frame.
type Renderer struct {
	program   uint32
	resources *Resources
	locs      *uniformLocations
}

// NewRenderer returns a renderer drawing with program over resources.
func NewRenderer(program uint32, resources *Resources) *Renderer {
	return &Renderer{program: program, resources: resources}
}

func (r *Renderer) locations(ctx gpu.Context) *uniformLocations {
	if r.locs == nil {
		r.locs = &uniformLocations{
			image:      ctx.UniformLocation(r.program, "image"),
			tbl:        ctx.UniformLocation(r.program, "tbl"),
			rmat:       ctx.UniformLocation(r.program, "rmat"),
			gap:        ctx.UniformLocation(r.program, "gap"),
			skipStitch: ctx.UniformLocation(r.program, "skip_stitch"),
		}
	}
	return r.locs
}

// Render draws f.Input into f.Output. The first call creates the GPU
// resources. A failed draw returns ErrTransientFrame and leaves the
// resources in place for the next frame.
func (r *Renderer) Render(ctx gpu.Context, f Frame) error {
	if f.Output == nil {
		return fmt.Errorf("%w: no output framebuffer", ErrTransientFrame)
	}

	f.Output.Bind()
	defer f.Output.Unbind()
	f.Output.Clear(ClearColor[0], ClearColor[1], ClearColor[2], ClearColor[3])

	ctx.UseProgram(r.program)
	if err := r.resources.Ensure(ctx, r.program); err != nil {
		return err
	}

	rmat := math.EulerXYZ(f.Params.Rotation)

	ctx.ActiveTexture(ImageUnit)
	ctx.BindTexture(f.Input)
	ctx.TexWrap(gpu.MirroredRepeat, gpu.Repeat)

	ctx.ActiveTexture(TableUnit)
	ctx.BindTexture(r.resources.TableTexture())
	ctx.ActiveTexture(ImageUnit)

	locs := r.locations(ctx)
	ctx.Uniform1i(locs.image, ImageUnit)
	ctx.Uniform1i(locs.tbl, TableUnit)
	ctx.UniformMatrix3fv(locs.rmat, true, rmat.Slice())
	ctx.Uniform2fv(locs.gap, f.Params.Gaps[:])
	skip := int32(0)
	if f.Params.StitchDisabled {
		skip = 1
	}
	ctx.Uniform1i(locs.skipStitch, skip)

	ctx.BindVertexArray(r.resources.VertexArray())
	ctx.DrawTriangles(r.resources.IndexCount())
	ctx.BindVertexArray(0)
	ctx.UseProgram(0)

	if err := ctx.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrTransientFrame, err)
	}
	return nil
}
