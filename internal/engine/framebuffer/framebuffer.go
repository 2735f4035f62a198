// Package framebuffer provides offscreen render targets for the warp output.
package framebuffer

import (
	"fmt"
	"image"

	"github.com/Faultbox/thetawarp/internal/engine/gpu"
)

// Framebuffer manages an offscreen render target with an RGBA8 color attachment.
type Framebuffer struct {
	ctx          gpu.Context
	fbo          uint32
	colorTexture uint32
	width        int32
	height       int32
}

// New creates a new framebuffer with the specified dimensions.
func New(ctx gpu.Context, width, height int32) (*Framebuffer, error) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	fb := &Framebuffer{
		ctx:    ctx,
		width:  width,
		height: height,
	}

	if err := fb.create(); err != nil {
		return nil, fmt.Errorf("creating framebuffer: %w", err)
	}

	return fb, nil
}

func (fb *Framebuffer) create() error {
	fb.fbo = fb.ctx.GenFramebuffer()
	fb.ctx.BindFramebuffer(fb.fbo)

	fb.colorTexture = fb.ctx.GenTexture()
	fb.ctx.BindTexture(fb.colorTexture)
	fb.ctx.TexImageRGBA8(fb.width, fb.height, nil)
	fb.ctx.TexFilter(gpu.Linear, gpu.Linear)
	fb.ctx.TexWrap(gpu.ClampToEdge, gpu.ClampToEdge)

	if err := fb.ctx.AttachColor(fb.colorTexture); err != nil {
		fb.Destroy()
		return err
	}

	fb.ctx.BindFramebuffer(0)
	return nil
}

// Bind makes this framebuffer the current render target.
func (fb *Framebuffer) Bind() {
	fb.ctx.BindFramebuffer(fb.fbo)
	fb.ctx.Viewport(0, 0, fb.width, fb.height)
}

// Unbind restores the default framebuffer.
func (fb *Framebuffer) Unbind() {
	fb.ctx.BindFramebuffer(0)
}

// Clear clears the color buffer with the specified color.
func (fb *Framebuffer) Clear(r, g, b, a float32) {
	fb.ctx.ClearColor(r, g, b, a)
	fb.ctx.Clear()
}

// ColorTexture returns the color attachment texture ID.
func (fb *Framebuffer) ColorTexture() uint32 {
	return fb.colorTexture
}

// FBO returns the underlying framebuffer object ID.
func (fb *Framebuffer) FBO() uint32 {
	return fb.fbo
}

// Size returns the framebuffer dimensions.
func (fb *Framebuffer) Size() (width, height int32) {
	return fb.width, fb.height
}

// Resize updates the framebuffer dimensions if they have changed.
func (fb *Framebuffer) Resize(width, height int32) {
	if width == fb.width && height == fb.height {
		return
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	fb.width = width
	fb.height = height

	fb.ctx.BindTexture(fb.colorTexture)
	fb.ctx.TexImageRGBA8(fb.width, fb.height, nil)
}

// ReadPixels reads the color attachment as RGBA bytes, bottom row first.
// It leaves the default framebuffer bound.
func (fb *Framebuffer) ReadPixels() []byte {
	fb.ctx.BindFramebuffer(fb.fbo)
	pixels := fb.ctx.ReadPixels(fb.width, fb.height)
	fb.ctx.BindFramebuffer(0)
	return pixels
}

// Image reads the color attachment into an image with the top row first.
func (fb *Framebuffer) Image() *image.RGBA {
	return FlipRows(fb.ReadPixels(), int(fb.width), int(fb.height))
}

// FlipRows copies bottom-row-first RGBA pixels into a top-row-first image.
func FlipRows(pixels []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		srcOffset := (height - 1 - y) * rowSize
		dstOffset := y * img.Stride
		copy(img.Pix[dstOffset:dstOffset+rowSize], pixels[srcOffset:srcOffset+rowSize])
	}
	return img
}

// Destroy releases the framebuffer and its color texture. Safe to call twice.
func (fb *Framebuffer) Destroy() {
	if fb.fbo != 0 {
		fb.ctx.DeleteFramebuffer(fb.fbo)
		fb.fbo = 0
	}
	if fb.colorTexture != 0 {
		fb.ctx.DeleteTexture(fb.colorTexture)
		fb.colorTexture = 0
	}
}
