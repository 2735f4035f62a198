// Package calib merges left/right lens calibration grids into the single
// interleaved table the warp shader samples.
package calib

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/thetawarp/internal/logger"
	"github.com/Faultbox/thetawarp/pkg/formats"
)

// Table errors.
var (
	ErrDimensionMismatch = errors.New("calibration tables differ in size")
	ErrTableTooNarrow    = errors.New("calibration table too narrow for seam padding")
)

// DefaultAspectRatio scales v coordinates of a 1920x1080 dual-fisheye frame,
// where each eye covers a 960 pixel wide half.
const DefaultAspectRatio = float32(960.0 / 1080.0)

// Placeholder grid size used when stitching is disabled.
const (
	PlaceholderWidth  = 120
	PlaceholderHeight = 60
)

// minPaddedWidth is the narrowest row the seam padding can mirror.
const minPaddedWidth = 3

// Channels is the number of floats per table cell: uL, vL, uR, vR.
const Channels = 4

// Table is the merged calibration table, uploaded as an RGBA32F texture.
type Table struct {
	Width  int
	Height int
	// PaddedHeight counts the extra seam row; it is the texture height.
	PaddedHeight int
	// Samples holds Width*PaddedHeight cells of (uL, vL, uR, vR), row-major.
	Samples []float32
}

// Load reads the left and right calibration files and merges them.
func Load(pathLeft, pathRight string, aspectRatio float32) (*Table, error) {
	left, err := formats.ParseCalibrationFile(pathLeft)
	if err != nil {
		return nil, fmt.Errorf("left table: %w", err)
	}
	right, err := formats.ParseCalibrationFile(pathRight)
	if err != nil {
		return nil, fmt.Errorf("right table: %w", err)
	}

	t, err := Merge(left, right, aspectRatio)
	if err != nil {
		return nil, fmt.Errorf("merging %s and %s: %w", pathLeft, pathRight, err)
	}

	logger.Info("calibration table loaded",
		zap.String("left", pathLeft),
		zap.String("right", pathRight),
		zap.Int("width", t.Width),
		zap.Int("height", t.Height),
		zap.Float32("aspect", aspectRatio),
	)
	return t, nil
}

// Merge interleaves two grids of identical size and appends the seam row.
func Merge(left, right *formats.CalibrationGrid, aspectRatio float32) (*Table, error) {
	if left.Width != right.Width || left.Height != right.Height {
		return nil, fmt.Errorf("%w: left %dx%d, right %dx%d",
			ErrDimensionMismatch, left.Width, left.Height, right.Width, right.Height)
	}

	w, h := int(left.Width), int(left.Height)
	if w < minPaddedWidth {
		return nil, fmt.Errorf("%w: width %d, need at least %d", ErrTableTooNarrow, w, minPaddedWidth)
	}

	t := &Table{
		Width:        w,
		Height:       h,
		PaddedHeight: h + 1,
		Samples:      make([]float32, 0, w*(h+1)*Channels),
	}

	put := func(cell int) {
		t.Samples = append(t.Samples,
			left.Coords[cell*2], left.Coords[cell*2+1]*aspectRatio,
			right.Coords[cell*2], right.Coords[cell*2+1]*aspectRatio,
		)
	}

	for cell := 0; cell < w*h; cell++ {
		put(cell)
	}

	// Seam row: the last row mirrored in two half scans, so mirrored-repeat
	// addressing past the bottom edge continues smoothly instead of jumping to row 0.
	last := (h - 1) * w
	for k := 0; k < w/2; k++ {
		put(last + (w - 1) - k)
	}
	for k := 0; k < w/2; k++ {
		put(last + (w - 1) - 2 - k)
	}
	if w%2 == 1 {
		put(last)
	}

	return t, nil
}

// Placeholder returns a zeroed table for running with stitching disabled.
// The shader never reads it, but the sampler binding stays valid.
func Placeholder() *Table {
	return &Table{
		Width:        PlaceholderWidth,
		Height:       PlaceholderHeight,
		PaddedHeight: PlaceholderHeight + 1,
		Samples:      make([]float32, PlaceholderWidth*(PlaceholderHeight+1)*Channels),
	}
}

// Cell returns the four channels stored at (col, row), row < PaddedHeight.
func (t *Table) Cell(col, row int) [Channels]float32 {
	i := (row*t.Width + col) * Channels
	return [Channels]float32{t.Samples[i], t.Samples[i+1], t.Samples[i+2], t.Samples[i+3]}
}

// Release drops the CPU copy once the table lives on the GPU.
func (t *Table) Release() {
	t.Samples = nil
}
