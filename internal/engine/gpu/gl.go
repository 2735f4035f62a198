package gpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/thetawarp/internal/engine/shader"
	"github.com/Faultbox/thetawarp/internal/logger"
)

// GL is a Context backed by the current OpenGL 4.1 core context.
type GL struct{}

// NewGL loads the OpenGL function pointers.
// IMPORTANT: Must be called AFTER the OpenGL context is made current!
func NewGL() (*GL, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)
	return &GL{}, nil
}

func glTarget(t BufferTarget) uint32 {
	if t == ElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func glWrap(w Wrap) int32 {
	switch w {
	case MirroredRepeat:
		return gl.MIRRORED_REPEAT
	case ClampToEdge:
		return gl.CLAMP_TO_EDGE
	default:
		return gl.REPEAT
	}
}

func glFilter(f Filter) int32 {
	if f == Linear {
		return gl.LINEAR
	}
	return gl.NEAREST
}

// CompileProgram implements Context.
func (*GL) CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	return shader.CompileProgram(vertexSrc, fragmentSrc)
}

// UseProgram implements Context.
func (*GL) UseProgram(program uint32) { gl.UseProgram(program) }

// DeleteProgram implements Context.
func (*GL) DeleteProgram(program uint32) { gl.DeleteProgram(program) }

// AttribLocation implements Context.
func (*GL) AttribLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
}

// UniformLocation implements Context.
func (*GL) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

// Uniform1i implements Context.
func (*GL) Uniform1i(location int32, v int32) { gl.Uniform1i(location, v) }

// Uniform2fv implements Context.
func (*GL) Uniform2fv(location int32, v []float32) {
	if len(v) < 2 {
		return
	}
	gl.Uniform2fv(location, int32(len(v)/2), &v[0])
}

// UniformMatrix3fv implements Context.
func (*GL) UniformMatrix3fv(location int32, transpose bool, m []float32) {
	gl.UniformMatrix3fv(location, 1, transpose, &m[0])
}

// GenVertexArray implements Context.
func (*GL) GenVertexArray() uint32 {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return vao
}

// BindVertexArray implements Context.
func (*GL) BindVertexArray(vao uint32) { gl.BindVertexArray(vao) }

// DeleteVertexArray implements Context.
func (*GL) DeleteVertexArray(vao uint32) { gl.DeleteVertexArrays(1, &vao) }

// GenBuffer implements Context.
func (*GL) GenBuffer() uint32 {
	var buf uint32
	gl.GenBuffers(1, &buf)
	return buf
}

// BindBuffer implements Context.
func (*GL) BindBuffer(target BufferTarget, buf uint32) { gl.BindBuffer(glTarget(target), buf) }

// BufferFloat32 implements Context.
func (*GL) BufferFloat32(target BufferTarget, data []float32) {
	gl.BufferData(glTarget(target), len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
}

// BufferUint16 implements Context.
func (*GL) BufferUint16(target BufferTarget, data []uint16) {
	gl.BufferData(glTarget(target), len(data)*2, gl.Ptr(data), gl.STATIC_DRAW)
}

// DeleteBuffer implements Context.
func (*GL) DeleteBuffer(buf uint32) { gl.DeleteBuffers(1, &buf) }

// VertexAttribPointer implements Context.
func (*GL) VertexAttribPointer(index uint32, size int32) {
	gl.VertexAttribPointerWithOffset(index, size, gl.FLOAT, false, 0, 0)
}

// EnableVertexAttribArray implements Context.
func (*GL) EnableVertexAttribArray(index uint32) { gl.EnableVertexAttribArray(index) }

// DrawTriangles implements Context.
func (*GL) DrawTriangles(count int32) {
	gl.DrawElementsWithOffset(gl.TRIANGLES, count, gl.UNSIGNED_SHORT, 0)
}

// GenTexture implements Context.
func (*GL) GenTexture() uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	return tex
}

// ActiveTexture implements Context.
func (*GL) ActiveTexture(unit uint32) { gl.ActiveTexture(gl.TEXTURE0 + unit) }

// BindTexture implements Context.
func (*GL) BindTexture(tex uint32) { gl.BindTexture(gl.TEXTURE_2D, tex) }

// TexWrap implements Context.
func (*GL) TexWrap(s, t Wrap) {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(s))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(t))
}

// TexFilter implements Context.
func (*GL) TexFilter(min, mag Filter) {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(min))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(mag))
}

// TexImageRGBA32F implements Context.
func (*GL) TexImageRGBA32F(width, height int32, data []float32) {
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	var ptr = gl.Ptr(nil)
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, width, height, 0, gl.RGBA, gl.FLOAT, ptr)
}

// TexImageRGBA8 implements Context.
func (*GL) TexImageRGBA8(width, height int32, data []byte) {
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	var ptr = gl.Ptr(nil)
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
}

// DeleteTexture implements Context.
func (*GL) DeleteTexture(tex uint32) { gl.DeleteTextures(1, &tex) }

// GenFramebuffer implements Context.
func (*GL) GenFramebuffer() uint32 {
	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	return fbo
}

// BindFramebuffer implements Context.
func (*GL) BindFramebuffer(fbo uint32) { gl.BindFramebuffer(gl.FRAMEBUFFER, fbo) }

// AttachColor implements Context.
func (*GL) AttachColor(tex uint32) error {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: 0x%x", ErrIncompleteFramebuffer, status)
	}
	return nil
}

// DeleteFramebuffer implements Context.
func (*GL) DeleteFramebuffer(fbo uint32) { gl.DeleteFramebuffers(1, &fbo) }

// Viewport implements Context.
func (*GL) Viewport(x, y, width, height int32) { gl.Viewport(x, y, width, height) }

// ClearColor implements Context.
func (*GL) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

// Clear implements Context.
func (*GL) Clear() { gl.Clear(gl.COLOR_BUFFER_BIT) }

// ReadPixels implements Context.
func (*GL) ReadPixels(width, height int32) []byte {
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
	gl.ReadPixels(0, 0, width, height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}

// BlitToScreen implements Context.
func (*GL) BlitToScreen(fbo uint32, srcW, srcH, dstW, dstH int32) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, srcW, srcH, 0, 0, dstW, dstH, gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Error implements Context.
func (*GL) Error() error {
	first := uint32(gl.NO_ERROR)
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		if first == gl.NO_ERROR {
			first = code
		}
	}
	if first != gl.NO_ERROR {
		return fmt.Errorf("%w: 0x%x", ErrGL, first)
	}
	return nil
}
