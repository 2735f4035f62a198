package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Output width")
	flagHeight     = flag.Int("height", 0, "Output height")
	flagTableLeft  = flag.String("table-left", "", "Left lens calibration table")
	flagTableRight = flag.String("table-right", "", "Right lens calibration table")
	flagRotation   = flag.String("rotation", "", "View rotation as x,y,z degrees")
	flagNoStitch   = flag.Bool("no-stitch", false, "Disable stitching (passthrough)")
	flagImage      = flag.String("image", "", "Still image to warp instead of a pipeline")
	flagPipeline   = flag.String("pipeline", "", "GStreamer launch description of the source")
	flagControl    = flag.String("control", "", "Rotation keyframe file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// ParseRotation parses "x,y,z" degrees.
func ParseRotation(s string) ([3]float32, error) {
	var r [3]float32
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r, fmt.Errorf("rotation %q: want x,y,z", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return r, fmt.Errorf("rotation %q: %w", s, err)
		}
		r[i] = float32(v)
	}
	return r, nil
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) error {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWindowed {
		cfg.Output.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Output.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Output.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Output.Height = *flagHeight
	}
	if *flagTableLeft != "" {
		cfg.Warp.TableLeft = *flagTableLeft
	}
	if *flagTableRight != "" {
		cfg.Warp.TableRight = *flagTableRight
	}
	if *flagRotation != "" {
		r, err := ParseRotation(*flagRotation)
		if err != nil {
			return err
		}
		cfg.Warp.Rotation = r
	}
	if *flagNoStitch {
		cfg.Warp.DisableStitch = true
	}
	if *flagImage != "" {
		cfg.Source.Image = *flagImage
	}
	if *flagPipeline != "" {
		cfg.Source.Pipeline = *flagPipeline
	}
	if *flagControl != "" {
		cfg.Warp.ControlFile = *flagControl
	}
	return nil
}
