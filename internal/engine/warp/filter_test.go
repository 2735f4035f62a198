package warp

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Faultbox/thetawarp/internal/engine/calib"
	"github.com/Faultbox/thetawarp/internal/engine/gpu/soft"
	"github.com/Faultbox/thetawarp/internal/engine/shader"
)

func TestNewFilterRejectsAngles(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name     string
		rotation [3]float32
	}{
		{"too large", [3]float32{0, 181, 0}},
		{"not a number", [3]float32{nan, 0, 0}},
		{"infinite", [3]float32{0, 0, float32(math.Inf(-1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProperties()
			p.Rotation = tt.rotation
			if _, err := NewFilter(p); !errors.Is(err, ErrAngleOutOfRange) {
				t.Errorf("NewFilter() = %v, want ErrAngleOutOfRange", err)
			}
		})
	}
}

func TestSetRotation(t *testing.T) {
	f, err := NewFilter(DefaultProperties())
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if f.Rotation() != DefaultRotation {
		t.Errorf("Rotation() = %v, want %v", f.Rotation(), DefaultRotation)
	}

	tests := []struct {
		name    string
		angles  [3]float32
		wantErr bool
	}{
		{"in range", [3]float32{45, -45, 180}, false},
		{"lower bound", [3]float32{-180, -180, -180}, false},
		{"x too large", [3]float32{180.5, 0, 0}, true},
		{"z too small", [3]float32{0, 0, -181}, true},
		{"y not a number", [3]float32{0, float32(math.NaN()), 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.Rotation()
			err := f.SetRotation(tt.angles)
			if tt.wantErr {
				if !errors.Is(err, ErrAngleOutOfRange) {
					t.Errorf("SetRotation() = %v, want ErrAngleOutOfRange", err)
				}
				if f.Rotation() != before {
					t.Errorf("rotation changed to %v on rejected set", f.Rotation())
				}
				return
			}
			if err != nil {
				t.Fatalf("SetRotation: %v", err)
			}
			if f.Rotation() != tt.angles {
				t.Errorf("Rotation() = %v, want %v", f.Rotation(), tt.angles)
			}
		})
	}
}

func TestSetAngle(t *testing.T) {
	f, _ := NewFilter(DefaultProperties())

	if err := f.SetAngle(2, 30); err != nil {
		t.Fatalf("SetAngle: %v", err)
	}
	if got := f.Rotation(); got != [3]float32{0, -90, 30} {
		t.Errorf("Rotation() = %v, want [0 -90 30]", got)
	}
	if err := f.SetAngle(3, 0); !errors.Is(err, ErrAngleOutOfRange) {
		t.Errorf("SetAngle(3) = %v, want ErrAngleOutOfRange", err)
	}
	if err := f.SetAngle(0, -200); !errors.Is(err, ErrAngleOutOfRange) {
		t.Errorf("SetAngle(-200) = %v, want ErrAngleOutOfRange", err)
	}
	if err := f.SetAngle(0, float32(math.NaN())); !errors.Is(err, ErrAngleOutOfRange) {
		t.Errorf("SetAngle(NaN) = %v, want ErrAngleOutOfRange", err)
	}
	if got := f.Rotation(); got != [3]float32{0, -90, 30} {
		t.Errorf("Rotation() = %v after rejected sets, want [0 -90 30]", got)
	}
}

func TestStartStitchDisabledWithoutTables(t *testing.T) {
	ctx := soft.New()
	p := testProperties()
	p.DisableStitch = true
	f, _ := NewFilter(p)

	if err := f.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.Stop(ctx)

	out := target(t, ctx)
	in := inputTexture(t, ctx, stripes(4, 2, red, red, blue, blue))
	if err := f.Process(ctx, in.ID(), out, 0); err != nil {
		t.Fatalf("Process: %v", err)
	}

	w, h := f.resources.TableSize()
	if w != calib.PlaceholderWidth || h != calib.PlaceholderHeight+1 {
		t.Errorf("placeholder table = %dx%d, want %dx%d", w, h, calib.PlaceholderWidth, calib.PlaceholderHeight+1)
	}

	// Passthrough keeps the input layout.
	img := out.Image()
	if got := img.RGBAAt(0, 8); got != red {
		t.Errorf("left pixel = %v, want red", got)
	}
	if got := img.RGBAAt(31, 8); got != blue {
		t.Errorf("right pixel = %v, want blue", got)
	}
}

func TestStartErrors(t *testing.T) {
	left, right := tablePair(t)
	dir := t.TempDir()
	short := writeGrid(t, dir, "short.tbl", constantGrid(8, 3, 0.5, 0.5))

	tests := []struct {
		name    string
		setup   func(p *Properties, ctx *soft.Context)
		wantErr []error
	}{
		{
			name:    "no table paths",
			setup:   func(p *Properties, _ *soft.Context) {},
			wantErr: []error{ErrFatalStartup},
		},
		{
			name: "missing table",
			setup: func(p *Properties, _ *soft.Context) {
				p.TableLeft, p.TableRight = filepath.Join(dir, "nope.tbl"), right
			},
			wantErr: []error{ErrFatalStartup, os.ErrNotExist},
		},
		{
			name: "mismatched tables",
			setup: func(p *Properties, _ *soft.Context) {
				p.TableLeft, p.TableRight = left, short
			},
			wantErr: []error{ErrFatalStartup, calib.ErrDimensionMismatch},
		},
		{
			name: "missing fragment override",
			setup: func(p *Properties, _ *soft.Context) {
				p.TableLeft, p.TableRight = left, right
				p.FragmentShader = filepath.Join(dir, "warp.frag")
			},
			wantErr: []error{ErrFatalStartup, shader.ErrShaderNotFound},
		},
		{
			name: "compile failure",
			setup: func(p *Properties, ctx *soft.Context) {
				p.TableLeft, p.TableRight = left, right
				ctx.FailCompile = true
			},
			wantErr: []error{ErrFatalStartup},
		},
		{
			name: "mesh too dense",
			setup: func(p *Properties, _ *soft.Context) {
				p.TableLeft, p.TableRight = left, right
				p.MeshX, p.MeshY = 1000, 1000
			},
			wantErr: []error{ErrResourceAllocation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := soft.New()
			p := testProperties()
			tt.setup(&p, ctx)
			f, _ := NewFilter(p)

			err := f.Start(ctx)
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("Start() = %v, want %v", err, want)
				}
			}
			if f.Started() {
				t.Error("filter started despite error")
			}
			if ctx.Live() != 0 {
				t.Errorf("Live() = %d after failed start, want 0", ctx.Live())
			}
		})
	}
}

func TestProcessBeforeStart(t *testing.T) {
	ctx := soft.New()
	f, _ := NewFilter(testProperties())

	err := f.Process(ctx, 0, target(t, ctx), 0)
	if !errors.Is(err, ErrNotStarted) || !errors.Is(err, ErrTransientFrame) {
		t.Errorf("Process() = %v, want ErrNotStarted", err)
	}
}

func TestStopTwice(t *testing.T) {
	ctx := soft.New()
	left, right := tablePair(t)
	p := testProperties()
	p.TableLeft, p.TableRight = left, right
	f, _ := NewFilter(p)

	// Stop before Start is a no-op.
	f.Stop(ctx)

	if err := f.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := newOutput(ctx)
	if err != nil {
		t.Fatal(err)
	}
	in := inputTexture(t, ctx, stripes(2, 2, red))
	if err := f.Process(ctx, in.ID(), out, 0); err != nil {
		t.Fatalf("Process: %v", err)
	}
	out.Destroy()
	in.Destroy()

	f.Stop(ctx)
	f.Stop(ctx)

	if f.Started() {
		t.Error("still started after Stop")
	}
	if ctx.Live() != 0 {
		t.Errorf("Live() = %d after Stop, want 0", ctx.Live())
	}
	if ctx.DoubleDeletes != 0 {
		t.Errorf("DoubleDeletes = %d, want 0", ctx.DoubleDeletes)
	}
}

func TestProcessAppliesControl(t *testing.T) {
	ctx := soft.New()
	p := testProperties()
	p.DisableStitch = true
	f, _ := NewFilter(p)
	if err := f.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.Stop(ctx)

	f.SetControl(&Control{Keyframes: []Keyframe{
		{Time: 0, RotY: -90},
		{Time: 2 * time.Second, RotY: 90},
	}})

	out := target(t, ctx)
	in := inputTexture(t, ctx, stripes(2, 2, red))
	if err := f.Process(ctx, in.ID(), out, time.Second); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := f.Rotation(); got != [3]float32{0, 0, 0} {
		t.Errorf("Rotation() = %v, want [0 0 0] halfway through the track", got)
	}
}

func TestConcurrentProperties(t *testing.T) {
	ctx := soft.New()
	p := testProperties()
	p.DisableStitch = true
	f, _ := NewFilter(p)
	if err := f.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.Stop(ctx)
	out := target(t, ctx)
	in := inputTexture(t, ctx, stripes(2, 2, red))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = f.SetRotation([3]float32{float32(i), 0, 0})
			f.SetStitchDisabled(i%2 == 0)
		}
	}()

	for i := 0; i < 10; i++ {
		if err := f.Process(ctx, in.ID(), out, time.Duration(i)*time.Millisecond); err != nil {
			t.Errorf("Process: %v", err)
		}
	}
	wg.Wait()
}
