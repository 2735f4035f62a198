package viewer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/thetawarp/internal/config"
	"github.com/Faultbox/thetawarp/internal/engine/debug"
	"github.com/Faultbox/thetawarp/internal/engine/framebuffer"
	"github.com/Faultbox/thetawarp/internal/engine/gpu"
	"github.com/Faultbox/thetawarp/internal/engine/texture"
	"github.com/Faultbox/thetawarp/internal/engine/window"
	"github.com/Faultbox/thetawarp/internal/logger"
	"github.com/Faultbox/thetawarp/internal/source"
)

// Convert warps the configured still image into an equirectangular image at
// outPath, rendering at pts in a hidden window.
func Convert(ctx context.Context, cfg *config.Config, outPath string, pts time.Duration) error {
	if cfg.Source.Image == "" {
		return fmt.Errorf("%w: convert needs an input image", ErrNoSource)
	}

	filter, err := NewFilter(cfg)
	if err != nil {
		return err
	}
	still, err := source.NewStill(cfg.Source.Image)
	if err != nil {
		return err
	}
	defer still.Close()

	frame, err := firstFrame(still)
	if err != nil {
		return err
	}

	win, err := window.New(window.Config{
		Title:  "thetawarp",
		Width:  cfg.Output.Width,
		Height: cfg.Output.Height,
		Hidden: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create GL context: %w", err)
	}
	defer win.Close()

	gl, err := gpu.NewGL()
	if err != nil {
		return err
	}
	if err := filter.Start(gl); err != nil {
		return err
	}
	defer filter.Stop(gl)

	out, err := framebuffer.New(gl, int32(cfg.Output.Width), int32(cfg.Output.Height))
	if err != nil {
		return err
	}
	defer out.Destroy()

	in := texture.New(gl, int32(frame.Width), int32(frame.Height))
	defer in.Destroy()
	if err := in.Update(frame.Pixels, int32(frame.Width), int32(frame.Height)); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := filter.Process(gl, in.ID(), out, pts); err != nil {
		return err
	}
	if err := debug.SaveImage(outPath, out.Image()); err != nil {
		return err
	}

	logger.Info("panorama written",
		zap.String("input", cfg.Source.Image),
		zap.String("output", outPath),
		zap.Int("width", cfg.Output.Width),
		zap.Int("height", cfg.Output.Height),
		zap.Any("rotation", filter.Rotation()),
	)
	return nil
}

// firstFrame takes the next frame from src, failing when none is ready.
func firstFrame(src source.Source) (source.Frame, error) {
	frame, ok := src.Next()
	if !ok {
		if err := src.Err(); err != nil {
			return source.Frame{}, err
		}
		return source.Frame{}, ErrNoFrame
	}
	return frame, nil
}
