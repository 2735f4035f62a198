package warp

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/thetawarp/internal/engine/framebuffer"
	"github.com/Faultbox/thetawarp/internal/engine/gpu/soft"
	"github.com/Faultbox/thetawarp/internal/engine/texture"
	"github.com/Faultbox/thetawarp/pkg/formats"
)

// constantGrid returns a grid whose every cell maps to (u, v).
func constantGrid(width, height uint16, u, v float32) *formats.CalibrationGrid {
	g := &formats.CalibrationGrid{Width: width, Height: height}
	for cell := 0; cell < int(width)*int(height); cell++ {
		g.Coords = append(g.Coords, u, v)
	}
	return g
}

func writeGrid(t *testing.T, dir, name string, g *formats.CalibrationGrid) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := g.WriteTo(&buf); err != nil {
		t.Fatalf("encoding %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// tablePair writes matching left/right tables pointing at the center of each eye.
func tablePair(t *testing.T) (left, right string) {
	t.Helper()
	dir := t.TempDir()
	left = writeGrid(t, dir, "left.tbl", constantGrid(8, 4, 0.5, 0.5))
	right = writeGrid(t, dir, "right.tbl", constantGrid(8, 4, 0.5, 0.5))
	return left, right
}

// stripes builds an image whose columns are filled with cols left to right.
func stripes(width, height int, cols ...color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, cols[x*len(cols)/width])
		}
	}
	return img
}

// target returns a 32x16 output; with a 5x3 mesh every vertex lands on a
// whole pixel so coverage is exact.
func target(t *testing.T, ctx *soft.Context) *framebuffer.Framebuffer {
	t.Helper()
	fb, err := framebuffer.New(ctx, 32, 16)
	if err != nil {
		t.Fatalf("framebuffer.New: %v", err)
	}
	t.Cleanup(fb.Destroy)
	return fb
}

func inputTexture(t *testing.T, ctx *soft.Context, img image.Image) *texture.Texture {
	t.Helper()
	tex := texture.FromImage(ctx, img)
	t.Cleanup(tex.Destroy)
	return tex
}

func testProperties() Properties {
	p := DefaultProperties()
	p.MeshX, p.MeshY = 5, 3
	return p
}

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

func newOutput(ctx *soft.Context) (*framebuffer.Framebuffer, error) {
	return framebuffer.New(ctx, 32, 16)
}
