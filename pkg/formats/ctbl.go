package formats

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Calibration table errors.
var (
	ErrTruncatedCalibrationHeader = errors.New("truncated calibration header")
	ErrTruncatedCalibration       = errors.New("truncated calibration payload")
	ErrEmptyCalibration           = errors.New("empty calibration grid")
)

// calibrationHeaderSize is two little-endian uint16 values: width, height.
const calibrationHeaderSize = 4

// CalibrationGrid is one lens mapping file: for every cell of the output grid
// the normalized (u, v) coordinate the fisheye image is sampled at.
type CalibrationGrid struct {
	Width  uint16
	Height uint16
	// Coords holds Width*Height (u, v) pairs, row-major.
	Coords []float32
}

// PayloadSize returns the number of coordinate bytes a grid of the given size carries.
func PayloadSize(width, height uint16) int {
	return int(width) * int(height) * 2 * 4
}

// At returns the coordinate stored for the cell at (col, row).
func (g *CalibrationGrid) At(col, row int) (u, v float32) {
	i := (row*int(g.Width) + col) * 2
	return g.Coords[i], g.Coords[i+1]
}

// ReadCalibration decodes a calibration grid from r.
// Bytes after the payload are ignored.
func ReadCalibration(r io.Reader) (*CalibrationGrid, error) {
	var hdr [calibrationHeaderSize]byte
	if n, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: read %d of %d bytes", ErrTruncatedCalibrationHeader, n, calibrationHeaderSize)
	}

	g := &CalibrationGrid{
		Width:  binary.LittleEndian.Uint16(hdr[0:2]),
		Height: binary.LittleEndian.Uint16(hdr[2:4]),
	}
	if g.Width == 0 || g.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyCalibration, g.Width, g.Height)
	}

	expected := PayloadSize(g.Width, g.Height)
	payload := make([]byte, expected)
	n, err := io.ReadFull(r, payload)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: payload is %d bytes, expected %d for %dx%d grid",
				ErrTruncatedCalibration, n, expected, g.Width, g.Height)
		}
		return nil, fmt.Errorf("reading calibration payload: %w", err)
	}

	g.Coords = make([]float32, expected/4)
	for i := range g.Coords {
		g.Coords[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return g, nil
}

// ParseCalibrationFile decodes the calibration grid stored at path.
func ParseCalibrationFile(path string) (*CalibrationGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening calibration file: %w", err)
	}
	defer f.Close()

	g, err := ReadCalibration(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// WriteTo encodes the grid in the calibration file format.
func (g *CalibrationGrid) WriteTo(w io.Writer) (int64, error) {
	if want := PayloadSize(g.Width, g.Height) / 4; len(g.Coords) != want {
		return 0, fmt.Errorf("calibration grid %dx%d holds %d floats, expected %d",
			g.Width, g.Height, len(g.Coords), want)
	}

	buf := make([]byte, calibrationHeaderSize+len(g.Coords)*4)
	binary.LittleEndian.PutUint16(buf[0:2], g.Width)
	binary.LittleEndian.PutUint16(buf[2:4], g.Height)
	for i, c := range g.Coords {
		binary.LittleEndian.PutUint32(buf[calibrationHeaderSize+i*4:], math.Float32bits(c))
	}

	n, err := w.Write(buf)
	return int64(n), err
}
