// Package texture decodes still frames and keeps them as RGBA8 input textures.
package texture

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"os"

	_ "golang.org/x/image/bmp" // BMP decoder registration
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // TIFF decoder registration

	"github.com/Faultbox/thetawarp/internal/engine/gpu"
)

// ErrSizeMismatch is returned when pixel data does not match the frame size.
var ErrSizeMismatch = errors.New("pixel data size mismatch")

// DecodeFile reads a PNG, JPEG, BMP or TIFF image.
func DecodeFile(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return ToRGBA(img), nil
}

// ToRGBA converts img to a tightly packed RGBA image with a zero origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == b.Dx()*4 {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Texture is an RGBA8 texture holding one input frame, top row first.
type Texture struct {
	ctx    gpu.Context
	id     uint32
	width  int32
	height int32
}

// New allocates an empty texture.
func New(ctx gpu.Context, width, height int32) *Texture {
	t := &Texture{ctx: ctx, id: ctx.GenTexture()}
	ctx.BindTexture(t.id)
	ctx.TexFilter(gpu.Linear, gpu.Linear)
	t.width, t.height = width, height
	ctx.TexImageRGBA8(width, height, nil)
	return t
}

// FromImage uploads img into a new texture.
func FromImage(ctx gpu.Context, img image.Image) *Texture {
	rgba := ToRGBA(img)
	b := rgba.Bounds()
	t := New(ctx, int32(b.Dx()), int32(b.Dy()))
	t.ctx.TexImageRGBA8(t.width, t.height, rgba.Pix)
	return t
}

// Update replaces the texture contents, reallocating storage when the
// frame size changes.
func (t *Texture) Update(pixels []byte, width, height int32) error {
	if len(pixels) != int(width)*int(height)*4 {
		return fmt.Errorf("%w: expected %d, got %d", ErrSizeMismatch, int(width)*int(height)*4, len(pixels))
	}
	t.ctx.BindTexture(t.id)
	t.width, t.height = width, height
	t.ctx.TexImageRGBA8(width, height, pixels)
	return nil
}

// ID returns the GL texture name.
func (t *Texture) ID() uint32 {
	return t.id
}

// Size returns the texture dimensions.
func (t *Texture) Size() (width, height int32) {
	return t.width, t.height
}

// Destroy deletes the texture. Safe to call twice.
func (t *Texture) Destroy() {
	if t.id != 0 {
		t.ctx.DeleteTexture(t.id)
		t.id = 0
	}
}
