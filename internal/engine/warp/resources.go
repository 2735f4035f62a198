package warp

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/thetawarp/internal/engine/calib"
	"github.com/Faultbox/thetawarp/internal/engine/gpu"
	"github.com/Faultbox/thetawarp/internal/engine/mesh"
	"github.com/Faultbox/thetawarp/internal/logger"
)

// PositionAttrib is the vertex attribute carrying mesh positions.
const PositionAttrib = "pv"

type resourceState int

const (
	stateUninitialized resourceState = iota
	stateReady
)

// Resources owns the mesh buffers and the calibration table texture.
// Handles are either all unset or all set.
type Resources struct {
	mesh  *mesh.Mesh
	table *calib.Table
	state resourceState

	vao        uint32
	vbo        uint32
	ebo        uint32
	tableTex   uint32
	indexCount int32
	tableW     int32
	tableH     int32
}

// NewResources prepares resources for m and t. Nothing touches the GPU until Ensure.
func NewResources(m *mesh.Mesh, t *calib.Table) *Resources {
	return &Resources{mesh: m, table: t}
}

// Ready reports whether the GPU objects exist.
func (r *Resources) Ready() bool {
	return r.state == stateReady
}

// Ensure creates the GPU objects on its first successful call and is a no-op
// afterwards. On failure everything created so far is deleted and the next
// call starts over.
func (r *Resources) Ensure(ctx gpu.Context, program uint32) error {
	if r.state == stateReady {
		return nil
	}
	if err := r.validate(); err != nil {
		return err
	}

	loc := ctx.AttribLocation(program, PositionAttrib)
	if loc < 0 {
		return fmt.Errorf("%w: attribute %q is not active in the program", ErrResourceAllocation, PositionAttrib)
	}

	r.vao = ctx.GenVertexArray()
	ctx.BindVertexArray(r.vao)

	r.vbo = ctx.GenBuffer()
	ctx.BindBuffer(gpu.ArrayBuffer, r.vbo)
	ctx.BufferFloat32(gpu.ArrayBuffer, r.mesh.Vertices)
	ctx.VertexAttribPointer(uint32(loc), 2)
	ctx.EnableVertexAttribArray(uint32(loc))

	r.ebo = ctx.GenBuffer()
	ctx.BindBuffer(gpu.ElementArrayBuffer, r.ebo)
	ctx.BufferUint16(gpu.ElementArrayBuffer, r.mesh.Indices)

	ctx.BindVertexArray(0)
	if err := ctx.Error(); err != nil {
		r.Release(ctx)
		return fmt.Errorf("%w: mesh buffers: %w", ErrResourceAllocation, err)
	}

	r.tableW = int32(r.table.Width)
	r.tableH = int32(r.table.PaddedHeight)
	r.tableTex = ctx.GenTexture()
	ctx.BindTexture(r.tableTex)
	ctx.TexImageRGBA32F(r.tableW, r.tableH, r.table.Samples)
	ctx.TexWrap(gpu.MirroredRepeat, gpu.MirroredRepeat)
	ctx.TexFilter(gpu.Linear, gpu.Linear)
	ctx.BindTexture(0)
	if err := ctx.Error(); err != nil {
		r.Release(ctx)
		return fmt.Errorf("%w: table texture %dx%d: %w", ErrResourceAllocation, r.tableW, r.tableH, err)
	}

	r.indexCount = int32(r.mesh.IndexCount())
	r.state = stateReady

	logger.Debug("warp resources created",
		zap.Int("vertices", r.mesh.VertexCount()),
		zap.Int32("indices", r.indexCount),
		zap.Int32("table_width", r.tableW),
		zap.Int32("table_height", r.tableH),
	)

	// CPU copies are no longer needed.
	r.mesh.Release()
	r.table.Release()
	return nil
}

func (r *Resources) validate() error {
	if r.mesh == nil || r.table == nil {
		return fmt.Errorf("%w: mesh or calibration table missing", ErrResourceAllocation)
	}
	if n := r.mesh.VertexCount() * 2; len(r.mesh.Vertices) != n {
		return fmt.Errorf("%w: mesh has %d position floats, expected %d", ErrResourceAllocation, len(r.mesh.Vertices), n)
	}
	if n := r.mesh.IndexCount(); len(r.mesh.Indices) != n {
		return fmt.Errorf("%w: mesh has %d indices, expected %d", ErrResourceAllocation, len(r.mesh.Indices), n)
	}
	if n := r.table.Width * r.table.PaddedHeight * calib.Channels; n == 0 || len(r.table.Samples) != n {
		return fmt.Errorf("%w: table has %d floats, expected %d", ErrResourceAllocation, len(r.table.Samples), n)
	}
	return nil
}

// Release deletes every GPU object. It is safe to call repeatedly and
// before Ensure.
func (r *Resources) Release(ctx gpu.Context) {
	if r.vao != 0 {
		ctx.DeleteVertexArray(r.vao)
		r.vao = 0
	}
	if r.vbo != 0 {
		ctx.DeleteBuffer(r.vbo)
		r.vbo = 0
	}
	if r.ebo != 0 {
		ctx.DeleteBuffer(r.ebo)
		r.ebo = 0
	}
	if r.tableTex != 0 {
		ctx.DeleteTexture(r.tableTex)
		r.tableTex = 0
	}
	r.state = stateUninitialized
}

// VertexArray returns the mesh vertex array, 0 until Ensure succeeds.
func (r *Resources) VertexArray() uint32 {
	return r.vao
}

// TableTexture returns the calibration table texture, 0 until Ensure succeeds.
func (r *Resources) TableTexture() uint32 {
	return r.tableTex
}

// IndexCount returns the number of indices drawn per frame.
func (r *Resources) IndexCount() int32 {
	return r.indexCount
}

// TableSize returns the table texture dimensions.
func (r *Resources) TableSize() (width, height int32) {
	return r.tableW, r.tableH
}
