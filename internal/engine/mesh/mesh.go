// Package mesh builds the output grid the warp shader is drawn over.
package mesh

import (
	"errors"
	"fmt"
	"math"
)

// Default grid density. It tessellates the output frame and is unrelated to
// the calibration table resolution.
const (
	DefaultXCount = 121
	DefaultYCount = 61
)

// ErrInvalidGrid is returned for grids that cannot be drawn with 16-bit indices.
var ErrInvalidGrid = errors.New("invalid mesh grid")

// Mesh is a row-major grid of NDC positions plus a triangle list.
type Mesh struct {
	XCount int
	YCount int
	// Vertices holds XCount*YCount (x, y) pairs.
	Vertices []float32
	// Indices holds 6 indices per cell.
	Indices []uint16
}

// Generate builds an xCount by yCount grid spanning [-1,1] horizontally and
// [1,-1] vertically (top row first).
func Generate(xCount, yCount int) (*Mesh, error) {
	if xCount < 2 || yCount < 2 {
		return nil, fmt.Errorf("%w: %dx%d, need at least 2x2", ErrInvalidGrid, xCount, yCount)
	}
	if xCount*yCount > math.MaxUint16+1 {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d vertices", ErrInvalidGrid, xCount, yCount, math.MaxUint16+1)
	}

	m := &Mesh{
		XCount:   xCount,
		YCount:   yCount,
		Vertices: make([]float32, 0, xCount*yCount*2),
		Indices:  make([]uint16, 0, (xCount-1)*(yCount-1)*6),
	}

	xs := make([]float32, xCount)
	for x := range xCount {
		xs[x] = float32(-1.0 + 2.0*float64(x)/float64(xCount-1))
	}

	for y := range yCount {
		yval := float32(1.0 - 2.0*float64(y)/float64(yCount-1))
		for x := range xCount {
			m.Vertices = append(m.Vertices, xs[x], yval)
		}
	}

	// Two counter-clockwise triangles per cell: (TL, BR, TR), (TL, BL, BR).
	for y := range yCount - 1 {
		for x := range xCount - 1 {
			i := uint16(y*xCount + x)
			stride := uint16(xCount)
			m.Indices = append(m.Indices,
				i, i+stride+1, i+1,
				i, i+stride, i+stride+1,
			)
		}
	}

	return m, nil
}

// VertexCount returns the number of grid vertices.
func (m *Mesh) VertexCount() int {
	return m.XCount * m.YCount
}

// IndexCount returns the number of triangle-list indices.
// It stays valid after Release.
func (m *Mesh) IndexCount() int {
	return (m.XCount - 1) * (m.YCount - 1) * 6
}

// Release drops the CPU buffers once they have been uploaded.
func (m *Mesh) Release() {
	m.Vertices = nil
	m.Indices = nil
}
