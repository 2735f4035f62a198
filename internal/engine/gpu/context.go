// Package gpu defines the graphics context the warp engine draws through.
//
// Every call must happen on the thread that owns the underlying context.
// The engine never keeps a package-level context; callers pass one in.
package gpu

import "errors"

// ErrGL is wrapped by errors reported from the driver error queue.
var ErrGL = errors.New("gl error")

// ErrIncompleteFramebuffer is returned when a render target cannot be drawn to.
var ErrIncompleteFramebuffer = errors.New("framebuffer incomplete")

// BufferTarget selects the buffer binding point.
type BufferTarget int

// Buffer binding points.
const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
)

// Wrap is a texture coordinate wrap mode.
type Wrap int

// Wrap modes.
const (
	Repeat Wrap = iota
	MirroredRepeat
	ClampToEdge
)

// String returns the GL name of the wrap mode.
func (w Wrap) String() string {
	switch w {
	case Repeat:
		return "REPEAT"
	case MirroredRepeat:
		return "MIRRORED_REPEAT"
	case ClampToEdge:
		return "CLAMP_TO_EDGE"
	default:
		return "UNKNOWN"
	}
}

// Filter is a texture sampling filter.
type Filter int

// Texture filters.
const (
	Nearest Filter = iota
	Linear
)

// Context is the subset of OpenGL the engine uses.
type Context interface {
	CompileProgram(vertexSrc, fragmentSrc string) (uint32, error)
	UseProgram(program uint32)
	DeleteProgram(program uint32)
	AttribLocation(program uint32, name string) int32
	UniformLocation(program uint32, name string) int32
	Uniform1i(location int32, v int32)
	// Uniform2fv sets a vec2 array; len(v)/2 elements are written.
	Uniform2fv(location int32, v []float32)
	UniformMatrix3fv(location int32, transpose bool, m []float32)

	GenVertexArray() uint32
	BindVertexArray(vao uint32)
	DeleteVertexArray(vao uint32)
	GenBuffer() uint32
	BindBuffer(target BufferTarget, buf uint32)
	// BufferFloat32 and BufferUint16 upload static (write once, draw many) data.
	BufferFloat32(target BufferTarget, data []float32)
	BufferUint16(target BufferTarget, data []uint16)
	DeleteBuffer(buf uint32)
	// VertexAttribPointer describes a tightly packed float attribute at offset 0.
	VertexAttribPointer(index uint32, size int32)
	EnableVertexAttribArray(index uint32)
	// DrawTriangles draws count uint16 indices from the bound element buffer.
	DrawTriangles(count int32)

	GenTexture() uint32
	ActiveTexture(unit uint32)
	BindTexture(tex uint32)
	TexWrap(s, t Wrap)
	TexFilter(min, mag Filter)
	TexImageRGBA32F(width, height int32, data []float32)
	TexImageRGBA8(width, height int32, data []byte)
	DeleteTexture(tex uint32)

	GenFramebuffer() uint32
	BindFramebuffer(fbo uint32)
	// AttachColor attaches tex as color target of the bound framebuffer.
	AttachColor(tex uint32) error
	DeleteFramebuffer(fbo uint32)
	Viewport(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	Clear()
	// ReadPixels reads RGBA8 pixels of the bound framebuffer, bottom row first.
	ReadPixels(width, height int32) []byte
	// BlitToScreen copies the color buffer of fbo to the default framebuffer.
	BlitToScreen(fbo uint32, srcW, srcH, dstW, dstH int32)

	// Error returns the first pending driver error and clears the queue.
	Error() error
}
