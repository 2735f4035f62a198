package framebuffer

import (
	"testing"

	"github.com/Faultbox/thetawarp/internal/engine/gpu/soft"
)

func TestNewClampsSize(t *testing.T) {
	ctx := soft.New()
	fb, err := New(ctx, 0, -3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer fb.Destroy()

	if w, h := fb.Size(); w != 1 || h != 1 {
		t.Errorf("Size() = %dx%d, want 1x1", w, h)
	}
	if !ctx.IsTexture(fb.ColorTexture()) {
		t.Error("color texture not allocated")
	}
}

func TestClearAndImage(t *testing.T) {
	ctx := soft.New()
	fb, err := New(ctx, 3, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer fb.Destroy()

	fb.Bind()
	fb.Clear(0, 0, 1, 1)
	fb.Unbind()

	img := fb.Image()
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Fatalf("image bounds = %v, want 3x2", img.Bounds())
	}
	for i := 0; i < len(img.Pix); i += 4 {
		got := [4]byte{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
		if got != [4]byte{0, 0, 255, 255} {
			t.Fatalf("pixel %d = %v, want opaque blue", i/4, got)
		}
	}
}

func TestFlipRows(t *testing.T) {
	// Bottom row first: bottom is red, top is green.
	pixels := []byte{
		255, 0, 0, 255,
		0, 255, 0, 255,
	}
	img := FlipRows(pixels, 1, 2)

	if r := img.RGBAAt(0, 0); r.G != 255 {
		t.Errorf("top pixel = %v, want green", r)
	}
	if r := img.RGBAAt(0, 1); r.R != 255 {
		t.Errorf("bottom pixel = %v, want red", r)
	}
}

func TestResize(t *testing.T) {
	ctx := soft.New()
	fb, err := New(ctx, 4, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer fb.Destroy()

	fb.Resize(8, 2)
	if w, h := fb.Size(); w != 8 || h != 2 {
		t.Errorf("Size() = %dx%d, want 8x2", w, h)
	}
	if w, h, _, _, _, _, _, _ := ctx.TextureInfo(fb.ColorTexture()); w != 8 || h != 2 {
		t.Errorf("texture = %dx%d, want 8x2", w, h)
	}
}

func TestDestroyTwice(t *testing.T) {
	ctx := soft.New()
	fb, err := New(ctx, 2, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fb.Destroy()
	fb.Destroy()

	if ctx.Live() != 0 {
		t.Errorf("Live() = %d after Destroy, want 0", ctx.Live())
	}
	if ctx.DoubleDeletes != 0 {
		t.Errorf("DoubleDeletes = %d, want 0", ctx.DoubleDeletes)
	}
}
