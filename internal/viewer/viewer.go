// Package viewer runs the warp against a frame source in an SDL window.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/thetawarp/internal/config"
	"github.com/Faultbox/thetawarp/internal/engine/debug"
	"github.com/Faultbox/thetawarp/internal/engine/framebuffer"
	"github.com/Faultbox/thetawarp/internal/engine/gpu"
	"github.com/Faultbox/thetawarp/internal/engine/input"
	"github.com/Faultbox/thetawarp/internal/engine/texture"
	"github.com/Faultbox/thetawarp/internal/engine/warp"
	"github.com/Faultbox/thetawarp/internal/engine/window"
	"github.com/Faultbox/thetawarp/internal/logger"
	"github.com/Faultbox/thetawarp/internal/source"
	"github.com/Faultbox/thetawarp/pkg/math"
)

// Rotation steps in degrees.
const (
	RotationStep    = 5
	DragSensitivity = 0.25
)

var (
	// ErrNoSource is returned when neither an image nor a pipeline is configured.
	ErrNoSource = errors.New("no frame source configured")
	// ErrNoFrame is returned when a source has nothing left to deliver.
	ErrNoFrame = errors.New("source has no frame")
)

// Viewer is the interactive warp preview.
type Viewer struct {
	cfg    *config.Config
	window *window.Window
	gl     *gpu.GL
	filter *warp.Filter
	source source.Source
	output *framebuffer.Framebuffer
	input  *input.Input
	shots  *debug.ScreenshotCapture

	frame   *texture.Texture
	pts     time.Duration
	started time.Time
	running bool
}

// OpenSource returns the source the config selects: a still image when one
// is set, otherwise the GStreamer pipeline.
func OpenSource(ctx context.Context, cfg *config.Config) (source.Source, error) {
	switch {
	case cfg.Source.Image != "":
		return source.NewStill(cfg.Source.Image)
	case cfg.Source.Pipeline != "":
		return source.NewPipeline(ctx, source.PipelineConfig{
			Launch: cfg.Source.Pipeline,
			Width:  cfg.Source.Width,
			Height: cfg.Source.Height,
		})
	default:
		return nil, ErrNoSource
	}
}

// NewFilter creates the warp filter for cfg with its control track attached.
func NewFilter(cfg *config.Config) (*warp.Filter, error) {
	f, err := warp.NewFilter(cfg.Warp.Properties())
	if err != nil {
		return nil, err
	}
	if cfg.Warp.ControlFile != "" {
		c, err := warp.LoadControl(cfg.Warp.ControlFile)
		if err != nil {
			return nil, err
		}
		f.SetControl(c)
		logger.Info("rotation control loaded",
			zap.String("path", cfg.Warp.ControlFile),
			zap.Int("keyframes", len(c.Keyframes)),
		)
	}
	return f, nil
}

// New opens the window and source and starts the warp.
func New(ctx context.Context, cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:   cfg,
		input: input.New(),
		shots: debug.NewScreenshotCapture("screenshots", "thetaview"),
	}

	var err error
	v.filter, err = NewFilter(cfg)
	if err != nil {
		return nil, err
	}

	v.window, err = window.New(window.Config{
		Title:      "thetaview",
		Width:      cfg.Output.Width,
		Height:     cfg.Output.Height,
		Fullscreen: cfg.Output.Fullscreen,
		VSync:      cfg.Output.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Everything below needs the GL context created by the window.
	if v.gl, err = gpu.NewGL(); err != nil {
		v.Close()
		return nil, err
	}
	if err := v.filter.Start(v.gl); err != nil {
		v.Close()
		return nil, err
	}
	v.output, err = framebuffer.New(v.gl, int32(cfg.Output.Width), int32(cfg.Output.Height))
	if err != nil {
		v.Close()
		return nil, err
	}
	v.source, err = OpenSource(ctx, cfg)
	if err != nil {
		v.Close()
		return nil, err
	}

	logger.Info("viewer initialized")
	return v, nil
}

// Run drives the render loop until the window closes or Esc is pressed.
func (v *Viewer) Run(ctx context.Context) error {
	v.running = true
	v.started = time.Now()

	frameCount := 0
	fpsTimer := time.Now()

	for v.running {
		if ctx.Err() != nil || v.input.Update() {
			break
		}
		v.handleCommands()
		if dx, dy := v.input.Drag(); dx != 0 || dy != 0 {
			if err := v.filter.SetRotation(input.DragRotation(v.filter.Rotation(), dx, dy, DragSensitivity)); err != nil {
				logger.Warn("drag", zap.Error(err))
			}
		}

		if err := v.source.Err(); err != nil {
			return err
		}
		if err := v.pullFrame(); err != nil {
			return err
		}

		if v.frame != nil {
			err := v.filter.Process(v.gl, v.frame.ID(), v.output, v.pts)
			if err != nil && !errors.Is(err, warp.ErrTransientFrame) {
				return err
			}
			w, h := v.output.Size()
			dw, dh := v.window.DrawableSize()
			v.gl.BlitToScreen(v.output.FBO(), w, h, dw, dh)
		}

		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			rot := v.filter.Rotation()
			lon, lat := math.ViewCenter(rot)
			v.window.SetTitle(fmt.Sprintf("thetaview - %d fps - center %.0f, %.0f", frameCount, lon, lat))
			logger.Debug("fps",
				zap.Int("count", frameCount),
				zap.Any("rotation", rot),
				zap.Float32("center_lon", lon),
				zap.Float32("center_lat", lat),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleCommands() {
	for _, cmd := range v.input.Commands(input.DefaultBindings) {
		switch cmd {
		case input.CommandQuit:
			v.running = false
		case input.CommandToggleStitch:
			v.filter.SetStitchDisabled(!v.filter.StitchDisabled())
			logger.Info("stitching toggled", zap.Bool("disabled", v.filter.StitchDisabled()))
		case input.CommandReset:
			if err := v.filter.SetRotation(v.cfg.Warp.Rotation); err != nil {
				logger.Warn("reset rotation", zap.Error(err))
			}
		case input.CommandScreenshot:
			path, err := v.shots.Capture(v.output.Image())
			if err != nil {
				logger.Warn("screenshot failed", zap.Error(err))
				continue
			}
			logger.Info("screenshot saved", zap.String("path", path))
		default:
			if err := v.filter.SetRotation(input.Rotate(v.filter.Rotation(), cmd, RotationStep)); err != nil {
				logger.Warn("rotate", zap.Error(err))
			}
		}
	}
}

// pullFrame uploads the newest source frame. Stills carry no timing, so the
// wall clock drives the control track for them.
func (v *Viewer) pullFrame() error {
	if _, still := v.source.(*source.Still); still {
		v.pts = time.Since(v.started)
	}

	f, ok := v.source.Next()
	if !ok {
		return nil
	}
	if v.frame == nil {
		v.frame = texture.New(v.gl, int32(f.Width), int32(f.Height))
	}
	if err := v.frame.Update(f.Pixels, int32(f.Width), int32(f.Height)); err != nil {
		return err
	}
	if _, still := v.source.(*source.Still); !still {
		v.pts = f.PTS
	}
	return nil
}

// Close stops the warp and releases everything in reverse order.
func (v *Viewer) Close() {
	logger.Debug("closing viewer")

	if v.source != nil {
		if err := v.source.Close(); err != nil {
			logger.Warn("closing source", zap.Error(err))
		}
	}
	if v.gl != nil {
		if v.frame != nil {
			v.frame.Destroy()
		}
		if v.output != nil {
			v.output.Destroy()
		}
		v.filter.Stop(v.gl)
	}
	if v.window != nil {
		v.window.Close()
	}
}
