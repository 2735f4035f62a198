package viewer

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/thetawarp/internal/config"
	"github.com/Faultbox/thetawarp/internal/engine/warp"
	"github.com/Faultbox/thetawarp/internal/source"
)

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 2))); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenSource(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Pipeline = ""

	if _, err := OpenSource(context.Background(), cfg); !errors.Is(err, ErrNoSource) {
		t.Errorf("OpenSource() error = %v, want ErrNoSource", err)
	}

	cfg.Source.Image = writePNG(t, t.TempDir())
	src, err := OpenSource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	defer src.Close()
	if _, ok := src.(*source.Still); !ok {
		t.Errorf("OpenSource() = %T, want *source.Still", src)
	}
}

func TestNewFilter(t *testing.T) {
	dir := t.TempDir()
	control := filepath.Join(dir, "control.yaml")
	data := "keyframes:\n  - {time: 0s, rot_x: 0, rot_y: 0, rot_z: 0}\n  - {time: 2s, rot_x: 0, rot_y: 0, rot_z: 90}\n"
	if err := os.WriteFile(control, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Warp.ControlFile = control
	f, err := NewFilter(cfg)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if got := f.Snapshot(0).Rotation; got != [3]float32{} {
		t.Errorf("rotation at 0s = %v, want zero", got)
	}

	cfg.Warp.ControlFile = filepath.Join(dir, "missing.yaml")
	if _, err := NewFilter(cfg); err == nil {
		t.Error("expected error for missing control file")
	}

	cfg.Warp.ControlFile = ""
	cfg.Warp.Rotation = [3]float32{0, 200, 0}
	if _, err := NewFilter(cfg); !errors.Is(err, warp.ErrAngleOutOfRange) {
		t.Errorf("NewFilter() error = %v, want ErrAngleOutOfRange", err)
	}
}

func TestFirstFrame(t *testing.T) {
	still, err := source.NewStill(writePNG(t, t.TempDir()))
	if err != nil {
		t.Fatalf("NewStill: %v", err)
	}
	defer still.Close()

	frame, err := firstFrame(still)
	if err != nil {
		t.Fatalf("firstFrame: %v", err)
	}
	if frame.Width != 4 || frame.Height != 2 {
		t.Errorf("frame = %dx%d, want 4x2", frame.Width, frame.Height)
	}

	if _, err := firstFrame(still); !errors.Is(err, ErrNoFrame) {
		t.Errorf("firstFrame() on consumed still = %v, want ErrNoFrame", err)
	}
}
