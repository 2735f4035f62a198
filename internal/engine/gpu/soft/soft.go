// Package soft is a CPU implementation of gpu.Context.
//
// It keeps every object the engine creates in memory, rasterizes indexed
// triangle draws into framebuffer textures and runs a Go rendition of the
// built-in warp fragment stage. It exists so the engine can be exercised
// without a display or a driver; sampling is nearest-texel only.
package soft

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/thetawarp/internal/engine/gpu"
)

// Errors recorded in the context error queue, mirroring GL error codes.
var (
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidValue     = errors.New("invalid value")
	ErrDrawFailed       = errors.New("draw failed")
)

const maxTextureUnits = 8

type texture struct {
	width, height int32
	// rgba holds 4 floats per texel, row 0 first (bottom row in GL terms).
	rgba       []float32
	float      bool
	wrapS      gpu.Wrap
	wrapT      gpu.Wrap
	minFilter  gpu.Filter
	magFilter  gpu.Filter
	hasStorage bool
}

type buffer struct {
	floats []float32
	shorts []uint16
}

type attrib struct {
	buffer  uint32
	size    int32
	enabled bool
}

type vertexArray struct {
	elements uint32
	attribs  map[uint32]*attrib
}

type program struct {
	vertex, fragment string
	attribs          map[string]int32
	uniformNames     map[string]int32
	ints             map[int32]int32
	floats           map[int32][]float32
	transposed       map[int32]bool
}

type framebuffer struct {
	color uint32
}

// Context is an in-memory gpu.Context. The zero value is not usable; call New.
type Context struct {
	nextID uint32

	programs     map[uint32]*program
	vertexArrays map[uint32]*vertexArray
	buffers      map[uint32]*buffer
	textures     map[uint32]*texture
	framebuffers map[uint32]*framebuffer

	curProgram uint32
	curVAO     uint32
	curArray   uint32
	curFBO     uint32
	activeUnit uint32
	units      [maxTextureUnits]uint32

	clearColor [4]float32
	viewport   [4]int32

	err error

	// Draws counts successful DrawTriangles calls.
	Draws int
	// Blits counts BlitToScreen calls.
	Blits int
	// DoubleDeletes counts deletions of handles that were not live.
	DoubleDeletes int
	// FailDraws makes every DrawTriangles call record ErrDrawFailed.
	FailDraws bool
	// FailCompile makes CompileProgram fail as a driver would on bad source.
	FailCompile bool
}

// New returns an empty context.
func New() *Context {
	return &Context{
		programs:     make(map[uint32]*program),
		vertexArrays: make(map[uint32]*vertexArray),
		buffers:      make(map[uint32]*buffer),
		textures:     make(map[uint32]*texture),
		framebuffers: make(map[uint32]*framebuffer),
	}
}

var _ gpu.Context = (*Context)(nil)

func (c *Context) id() uint32 {
	c.nextID++
	return c.nextID
}

func (c *Context) setErr(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Error implements gpu.Context.
func (c *Context) Error() error {
	err := c.err
	c.err = nil
	if err != nil {
		return fmt.Errorf("%w: %w", gpu.ErrGL, err)
	}
	return nil
}

// Live returns the number of live objects of every kind.
func (c *Context) Live() int {
	return len(c.programs) + len(c.vertexArrays) + len(c.buffers) + len(c.textures) + len(c.framebuffers)
}

// IsTexture reports whether tex names a live texture.
func (c *Context) IsTexture(tex uint32) bool {
	_, ok := c.textures[tex]
	return ok
}

// IsVertexArray reports whether vao names a live vertex array.
func (c *Context) IsVertexArray(vao uint32) bool {
	_, ok := c.vertexArrays[vao]
	return ok
}

// TextureInfo reports the size, format and sampling state of a live texture.
func (c *Context) TextureInfo(tex uint32) (width, height int32, float bool, wrapS, wrapT gpu.Wrap, min, mag gpu.Filter, ok bool) {
	t, ok := c.textures[tex]
	if !ok {
		return 0, 0, false, 0, 0, 0, 0, false
	}
	return t.width, t.height, t.float, t.wrapS, t.wrapT, t.minFilter, t.magFilter, true
}

// TextureData returns the texels of a live texture, 4 floats each.
func (c *Context) TextureData(tex uint32) []float32 {
	if t, ok := c.textures[tex]; ok {
		return t.rgba
	}
	return nil
}

// BoundTexture returns the texture bound to a unit.
func (c *Context) BoundTexture(unit uint32) uint32 {
	return c.units[unit]
}

// parseDecls collects "<keyword> <type> <name>" declarations from GLSL source.
func parseDecls(src, keyword string) []string {
	var names []string
	for _, line := range strings.Split(src, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 3 || fields[0] != keyword {
			continue
		}
		name := strings.TrimRight(fields[2], ";")
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		names = append(names, name)
	}
	return names
}

// CompileProgram implements gpu.Context. Sources without an entry point fail
// the way a driver reports them.
func (c *Context) CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	if c.FailCompile {
		return 0, errors.New("fragment shader: ERROR: 0:1: compilation rejected")
	}
	if !strings.Contains(vertexSrc, "void main") {
		return 0, errors.New("vertex shader: ERROR: 0:1: 'main' : function not defined")
	}
	if !strings.Contains(fragmentSrc, "void main") {
		return 0, errors.New("fragment shader: ERROR: 0:1: 'main' : function not defined")
	}

	p := &program{
		vertex:       vertexSrc,
		fragment:     fragmentSrc,
		attribs:      make(map[string]int32),
		uniformNames: make(map[string]int32),
		ints:         make(map[int32]int32),
		floats:       make(map[int32][]float32),
		transposed:   make(map[int32]bool),
	}
	for i, name := range parseDecls(vertexSrc, "in") {
		p.attribs[name] = int32(i)
	}
	loc := int32(0)
	for _, src := range []string{vertexSrc, fragmentSrc} {
		for _, name := range parseDecls(src, "uniform") {
			if _, seen := p.uniformNames[name]; !seen {
				p.uniformNames[name] = loc
				loc++
			}
		}
	}

	id := c.id()
	c.programs[id] = p
	return id, nil
}

// UseProgram implements gpu.Context.
func (c *Context) UseProgram(prog uint32) {
	if _, ok := c.programs[prog]; !ok && prog != 0 {
		c.setErr(ErrInvalidValue)
		return
	}
	c.curProgram = prog
}

// DeleteProgram implements gpu.Context.
func (c *Context) DeleteProgram(prog uint32) {
	if prog == 0 {
		return
	}
	if _, ok := c.programs[prog]; !ok {
		c.DoubleDeletes++
		return
	}
	delete(c.programs, prog)
	if c.curProgram == prog {
		c.curProgram = 0
	}
}

// AttribLocation implements gpu.Context.
func (c *Context) AttribLocation(prog uint32, name string) int32 {
	p, ok := c.programs[prog]
	if !ok {
		c.setErr(ErrInvalidValue)
		return -1
	}
	if loc, ok := p.attribs[name]; ok {
		return loc
	}
	return -1
}

// UniformLocation implements gpu.Context.
func (c *Context) UniformLocation(prog uint32, name string) int32 {
	p, ok := c.programs[prog]
	if !ok {
		c.setErr(ErrInvalidValue)
		return -1
	}
	if loc, ok := p.uniformNames[name]; ok {
		return loc
	}
	return -1
}

func (c *Context) current() *program {
	p := c.programs[c.curProgram]
	if p == nil {
		c.setErr(ErrInvalidOperation)
	}
	return p
}

// Uniform1i implements gpu.Context.
func (c *Context) Uniform1i(location int32, v int32) {
	if p := c.current(); p != nil && location >= 0 {
		p.ints[location] = v
	}
}

// Uniform2fv implements gpu.Context.
func (c *Context) Uniform2fv(location int32, v []float32) {
	if p := c.current(); p != nil && location >= 0 {
		p.floats[location] = append([]float32(nil), v[:len(v)/2*2]...)
	}
}

// UniformMatrix3fv implements gpu.Context.
func (c *Context) UniformMatrix3fv(location int32, transpose bool, m []float32) {
	if len(m) < 9 {
		c.setErr(ErrInvalidValue)
		return
	}
	if p := c.current(); p != nil && location >= 0 {
		p.floats[location] = append([]float32(nil), m[:9]...)
		p.transposed[location] = transpose
	}
}

// UniformInt returns the last integer set on a named uniform of prog.
func (c *Context) UniformInt(prog uint32, name string) (int32, bool) {
	p, ok := c.programs[prog]
	if !ok {
		return 0, false
	}
	loc, ok := p.uniformNames[name]
	if !ok {
		return 0, false
	}
	v, ok := p.ints[loc]
	return v, ok
}

// UniformFloats returns the last float values set on a named uniform of prog
// and whether a matrix upload asked for transposition.
func (c *Context) UniformFloats(prog uint32, name string) ([]float32, bool) {
	p, ok := c.programs[prog]
	if !ok {
		return nil, false
	}
	loc, ok := p.uniformNames[name]
	if !ok {
		return nil, false
	}
	return p.floats[loc], p.transposed[loc]
}

// GenVertexArray implements gpu.Context.
func (c *Context) GenVertexArray() uint32 {
	id := c.id()
	c.vertexArrays[id] = &vertexArray{attribs: make(map[uint32]*attrib)}
	return id
}

// BindVertexArray implements gpu.Context.
func (c *Context) BindVertexArray(vao uint32) {
	if _, ok := c.vertexArrays[vao]; !ok && vao != 0 {
		c.setErr(ErrInvalidOperation)
		return
	}
	c.curVAO = vao
}

// DeleteVertexArray implements gpu.Context.
func (c *Context) DeleteVertexArray(vao uint32) {
	if vao == 0 {
		return
	}
	if _, ok := c.vertexArrays[vao]; !ok {
		c.DoubleDeletes++
		return
	}
	delete(c.vertexArrays, vao)
	if c.curVAO == vao {
		c.curVAO = 0
	}
}

// GenBuffer implements gpu.Context.
func (c *Context) GenBuffer() uint32 {
	id := c.id()
	c.buffers[id] = &buffer{}
	return id
}

// BindBuffer implements gpu.Context. Element buffer bindings are vertex array state.
func (c *Context) BindBuffer(target gpu.BufferTarget, buf uint32) {
	if _, ok := c.buffers[buf]; !ok && buf != 0 {
		c.setErr(ErrInvalidOperation)
		return
	}
	if target == gpu.ArrayBuffer {
		c.curArray = buf
		return
	}
	if vao := c.vertexArrays[c.curVAO]; vao != nil {
		vao.elements = buf
	}
}

func (c *Context) bound(target gpu.BufferTarget) *buffer {
	if target == gpu.ArrayBuffer {
		return c.buffers[c.curArray]
	}
	if vao := c.vertexArrays[c.curVAO]; vao != nil {
		return c.buffers[vao.elements]
	}
	return nil
}

// BufferFloat32 implements gpu.Context.
func (c *Context) BufferFloat32(target gpu.BufferTarget, data []float32) {
	b := c.bound(target)
	if b == nil {
		c.setErr(ErrInvalidOperation)
		return
	}
	b.floats = append([]float32(nil), data...)
	b.shorts = nil
}

// BufferUint16 implements gpu.Context.
func (c *Context) BufferUint16(target gpu.BufferTarget, data []uint16) {
	b := c.bound(target)
	if b == nil {
		c.setErr(ErrInvalidOperation)
		return
	}
	b.shorts = append([]uint16(nil), data...)
	b.floats = nil
}

// DeleteBuffer implements gpu.Context.
func (c *Context) DeleteBuffer(buf uint32) {
	if buf == 0 {
		return
	}
	if _, ok := c.buffers[buf]; !ok {
		c.DoubleDeletes++
		return
	}
	delete(c.buffers, buf)
	if c.curArray == buf {
		c.curArray = 0
	}
}

// VertexAttribPointer implements gpu.Context.
func (c *Context) VertexAttribPointer(index uint32, size int32) {
	vao := c.vertexArrays[c.curVAO]
	if vao == nil || c.curArray == 0 {
		c.setErr(ErrInvalidOperation)
		return
	}
	a := vao.attribs[index]
	if a == nil {
		a = &attrib{}
		vao.attribs[index] = a
	}
	a.buffer = c.curArray
	a.size = size
}

// EnableVertexAttribArray implements gpu.Context.
func (c *Context) EnableVertexAttribArray(index uint32) {
	vao := c.vertexArrays[c.curVAO]
	if vao == nil {
		c.setErr(ErrInvalidOperation)
		return
	}
	a := vao.attribs[index]
	if a == nil {
		a = &attrib{}
		vao.attribs[index] = a
	}
	a.enabled = true
}

// VertexArrayInfo reports the element count and position layout of a vertex array.
func (c *Context) VertexArrayInfo(vao uint32) (indices, vertexFloats int, size int32, ok bool) {
	v, ok := c.vertexArrays[vao]
	if !ok {
		return 0, 0, 0, false
	}
	if b := c.buffers[v.elements]; b != nil {
		indices = len(b.shorts)
	}
	if a := v.attribs[0]; a != nil && a.enabled {
		if b := c.buffers[a.buffer]; b != nil {
			vertexFloats = len(b.floats)
		}
		size = a.size
	}
	return indices, vertexFloats, size, true
}

// GenTexture implements gpu.Context.
func (c *Context) GenTexture() uint32 {
	id := c.id()
	c.textures[id] = &texture{wrapS: gpu.Repeat, wrapT: gpu.Repeat, minFilter: gpu.Linear, magFilter: gpu.Linear}
	return id
}

// ActiveTexture implements gpu.Context.
func (c *Context) ActiveTexture(unit uint32) {
	if unit >= maxTextureUnits {
		c.setErr(ErrInvalidValue)
		return
	}
	c.activeUnit = unit
}

// BindTexture implements gpu.Context.
func (c *Context) BindTexture(tex uint32) {
	if _, ok := c.textures[tex]; !ok && tex != 0 {
		c.setErr(ErrInvalidOperation)
		return
	}
	c.units[c.activeUnit] = tex
}

func (c *Context) boundTexture() *texture {
	t := c.textures[c.units[c.activeUnit]]
	if t == nil {
		c.setErr(ErrInvalidOperation)
	}
	return t
}

// TexWrap implements gpu.Context.
func (c *Context) TexWrap(s, t gpu.Wrap) {
	if tex := c.boundTexture(); tex != nil {
		tex.wrapS, tex.wrapT = s, t
	}
}

// TexFilter implements gpu.Context.
func (c *Context) TexFilter(min, mag gpu.Filter) {
	if tex := c.boundTexture(); tex != nil {
		tex.minFilter, tex.magFilter = min, mag
	}
}

// TexImageRGBA32F implements gpu.Context.
func (c *Context) TexImageRGBA32F(width, height int32, data []float32) {
	tex := c.boundTexture()
	if tex == nil {
		return
	}
	n := int(width) * int(height) * 4
	if width <= 0 || height <= 0 || (data != nil && len(data) < n) {
		c.setErr(ErrInvalidValue)
		return
	}
	tex.width, tex.height, tex.float, tex.hasStorage = width, height, true, true
	tex.rgba = make([]float32, n)
	copy(tex.rgba, data)
}

// TexImageRGBA8 implements gpu.Context.
func (c *Context) TexImageRGBA8(width, height int32, data []byte) {
	tex := c.boundTexture()
	if tex == nil {
		return
	}
	n := int(width) * int(height) * 4
	if width <= 0 || height <= 0 || (data != nil && len(data) < n) {
		c.setErr(ErrInvalidValue)
		return
	}
	tex.width, tex.height, tex.float, tex.hasStorage = width, height, false, true
	tex.rgba = make([]float32, n)
	for i := 0; i < n && i < len(data); i++ {
		tex.rgba[i] = float32(data[i]) / 255
	}
}

// DeleteTexture implements gpu.Context.
func (c *Context) DeleteTexture(tex uint32) {
	if tex == 0 {
		return
	}
	if _, ok := c.textures[tex]; !ok {
		c.DoubleDeletes++
		return
	}
	delete(c.textures, tex)
	for i := range c.units {
		if c.units[i] == tex {
			c.units[i] = 0
		}
	}
}

// GenFramebuffer implements gpu.Context.
func (c *Context) GenFramebuffer() uint32 {
	id := c.id()
	c.framebuffers[id] = &framebuffer{}
	return id
}

// BindFramebuffer implements gpu.Context.
func (c *Context) BindFramebuffer(fbo uint32) {
	if _, ok := c.framebuffers[fbo]; !ok && fbo != 0 {
		c.setErr(ErrInvalidOperation)
		return
	}
	c.curFBO = fbo
}

// AttachColor implements gpu.Context.
func (c *Context) AttachColor(tex uint32) error {
	fb := c.framebuffers[c.curFBO]
	if fb == nil {
		return fmt.Errorf("%w: no framebuffer bound", gpu.ErrIncompleteFramebuffer)
	}
	t := c.textures[tex]
	if t == nil || !t.hasStorage {
		return fmt.Errorf("%w: attachment %d has no storage", gpu.ErrIncompleteFramebuffer, tex)
	}
	fb.color = tex
	return nil
}

// DeleteFramebuffer implements gpu.Context.
func (c *Context) DeleteFramebuffer(fbo uint32) {
	if fbo == 0 {
		return
	}
	if _, ok := c.framebuffers[fbo]; !ok {
		c.DoubleDeletes++
		return
	}
	delete(c.framebuffers, fbo)
	if c.curFBO == fbo {
		c.curFBO = 0
	}
}

// Viewport implements gpu.Context.
func (c *Context) Viewport(x, y, width, height int32) {
	c.viewport = [4]int32{x, y, width, height}
}

// ClearColor implements gpu.Context.
func (c *Context) ClearColor(r, g, b, a float32) {
	c.clearColor = [4]float32{r, g, b, a}
}

func (c *Context) target() *texture {
	fb := c.framebuffers[c.curFBO]
	if fb == nil {
		return nil
	}
	return c.textures[fb.color]
}

// Clear implements gpu.Context. Clearing the default framebuffer is a no-op.
func (c *Context) Clear() {
	t := c.target()
	if t == nil {
		return
	}
	for i := 0; i < len(t.rgba); i += 4 {
		copy(t.rgba[i:i+4], c.clearColor[:])
	}
}

// ReadPixels implements gpu.Context.
func (c *Context) ReadPixels(width, height int32) []byte {
	pixels := make([]byte, int(width)*int(height)*4)
	t := c.target()
	if t == nil {
		c.setErr(ErrInvalidOperation)
		return pixels
	}
	for y := int32(0); y < height && y < t.height; y++ {
		for x := int32(0); x < width && x < t.width; x++ {
			src := (int(y)*int(t.width) + int(x)) * 4
			dst := (int(y)*int(width) + int(x)) * 4
			for ch := 0; ch < 4; ch++ {
				pixels[dst+ch] = toByte(t.rgba[src+ch])
			}
		}
	}
	return pixels
}

// BlitToScreen implements gpu.Context.
func (c *Context) BlitToScreen(fbo uint32, srcW, srcH, dstW, dstH int32) {
	if _, ok := c.framebuffers[fbo]; !ok {
		c.setErr(ErrInvalidOperation)
		return
	}
	c.Blits++
	c.curFBO = 0
}

func toByte(v float32) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return byte(v*255 + 0.5)
	}
}
