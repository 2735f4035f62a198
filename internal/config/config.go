// Package config handles warp configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/thetawarp/internal/engine/calib"
	"github.com/Faultbox/thetawarp/internal/engine/mesh"
	"github.com/Faultbox/thetawarp/internal/engine/warp"
	"github.com/Faultbox/thetawarp/internal/logger"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all settings.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Warp    WarpConfig    `yaml:"warp"`
	Source  SourceConfig  `yaml:"source"`
	Logging LoggingConfig `yaml:"logging"`
}

// OutputConfig holds the equirectangular output and window settings.
type OutputConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// WarpConfig holds the warp filter properties.
type WarpConfig struct {
	Rotation       [3]float32 `yaml:"rotation,flow"` // X, Y, Z degrees
	TableLeft      string     `yaml:"table_left"`
	TableRight     string     `yaml:"table_right"`
	VertexShader   string     `yaml:"vertex_shader"`
	FragmentShader string     `yaml:"fragment_shader"`
	DisableStitch  bool       `yaml:"disable_stitch"`
	MeshX          int        `yaml:"mesh_x"`
	MeshY          int        `yaml:"mesh_y"`
	AspectRatio    float32    `yaml:"aspect_ratio"`
	ControlFile    string     `yaml:"control_file"` // Rotation keyframe track
}

// SourceConfig selects where frames come from. Image wins over Pipeline.
type SourceConfig struct {
	Pipeline string `yaml:"pipeline"` // gst-launch description
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Image    string `yaml:"image"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Width:      1920,
			Height:     960,
			Fullscreen: false,
			VSync:      true,
		},
		Warp: WarpConfig{
			Rotation:    warp.DefaultRotation,
			MeshX:       mesh.DefaultXCount,
			MeshY:       mesh.DefaultYCount,
			AspectRatio: calib.DefaultAspectRatio,
		},
		Source: SourceConfig{
			Width:  1920,
			Height: 960,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks values that would otherwise fail late on the GL thread.
func (c *Config) Validate() error {
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("%w: output size %dx%d", ErrInvalid, c.Output.Width, c.Output.Height)
	}
	for axis, a := range c.Warp.Rotation {
		if !warp.ValidAngle(a) {
			return fmt.Errorf("%w: rotation %c = %g outside [%d, %d]", ErrInvalid, "XYZ"[axis], a, warp.MinAngle, warp.MaxAngle)
		}
	}
	if c.Warp.MeshX < 2 || c.Warp.MeshY < 2 {
		return fmt.Errorf("%w: mesh %dx%d", ErrInvalid, c.Warp.MeshX, c.Warp.MeshY)
	}
	if c.Warp.AspectRatio <= 0 {
		return fmt.Errorf("%w: aspect ratio %g", ErrInvalid, c.Warp.AspectRatio)
	}
	if !c.Warp.DisableStitch && (c.Warp.TableLeft == "" || c.Warp.TableRight == "") {
		return fmt.Errorf("%w: table_left and table_right are required unless disable_stitch is set", ErrInvalid)
	}
	if c.Source.Image == "" && c.Source.Pipeline != "" && (c.Source.Width <= 0 || c.Source.Height <= 0) {
		return fmt.Errorf("%w: source size %dx%d", ErrInvalid, c.Source.Width, c.Source.Height)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Properties converts the warp section into filter properties.
func (w WarpConfig) Properties() warp.Properties {
	return warp.Properties{
		Rotation:       w.Rotation,
		TableLeft:      w.TableLeft,
		TableRight:     w.TableRight,
		VertexShader:   w.VertexShader,
		FragmentShader: w.FragmentShader,
		DisableStitch:  w.DisableStitch,
		MeshX:          w.MeshX,
		MeshY:          w.MeshY,
		AspectRatio:    w.AspectRatio,
	}
}
