package calib

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/thetawarp/pkg/formats"
)

// testGrid builds a grid where u = base + cell index and v = -(base + cell index),
// so every merged sample can be traced back to its source cell.
func testGrid(width, height uint16, base float32) *formats.CalibrationGrid {
	g := &formats.CalibrationGrid{Width: width, Height: height}
	for cell := 0; cell < int(width)*int(height); cell++ {
		g.Coords = append(g.Coords, base+float32(cell), -(base + float32(cell)))
	}
	return g
}

func writeGrid(t *testing.T, dir, name string, g *formats.CalibrationGrid) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := g.WriteTo(&buf); err != nil {
		t.Fatalf("encoding %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// expectCell checks a merged cell against left cell l and right cell r.
func expectCell(t *testing.T, tbl *Table, col, row, l, r int, aspect float32) {
	t.Helper()
	got := tbl.Cell(col, row)
	want := [Channels]float32{
		float32(l), -float32(l) * aspect,
		100 + float32(r), -(100 + float32(r)) * aspect,
	}
	if got != want {
		t.Errorf("cell (%d,%d) = %v, want %v", col, row, got, want)
	}
}

func TestMerge_Interleaves(t *testing.T) {
	const aspect = float32(0.5)
	tbl, err := Merge(testGrid(4, 2, 0), testGrid(4, 2, 100), aspect)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if tbl.Width != 4 || tbl.Height != 2 || tbl.PaddedHeight != 3 {
		t.Errorf("expected 4x2 (padded 3), got %dx%d (padded %d)", tbl.Width, tbl.Height, tbl.PaddedHeight)
	}
	if len(tbl.Samples) != 4*3*Channels {
		t.Fatalf("expected %d floats, got %d", 4*3*Channels, len(tbl.Samples))
	}

	for row := 0; row < 2; row++ {
		for col := 0; col < 4; col++ {
			cell := row*4 + col
			expectCell(t, tbl, col, row, cell, cell, aspect)
		}
	}
}

func TestMerge_SeamRowMirrorsLastRow(t *testing.T) {
	tbl, err := Merge(testGrid(4, 2, 0), testGrid(4, 2, 100), 1)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// Last source row holds cells 4..7; the seam row reads it right to left.
	for col, src := range []int{7, 6, 5, 4} {
		expectCell(t, tbl, col, 2, src, src, 1)
	}
}

func TestMerge_SeamRowHalfScans(t *testing.T) {
	tbl, err := Merge(testGrid(6, 3, 0), testGrid(6, 3, 100), 1)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// last row starts at cell 12: first half 17,16,15 then second half from 17-2.
	for col, src := range []int{17, 16, 15, 15, 14, 13} {
		expectCell(t, tbl, col, 3, src, src, 1)
	}
}

func TestMerge_OddWidthFillsRow(t *testing.T) {
	tbl, err := Merge(testGrid(5, 2, 0), testGrid(5, 2, 100), 1)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if len(tbl.Samples) != 5*3*Channels {
		t.Fatalf("expected %d floats, got %d", 5*3*Channels, len(tbl.Samples))
	}

	for col, src := range []int{9, 8, 7, 6, 5} {
		expectCell(t, tbl, col, 2, src, src, 1)
	}
}

func TestMerge_NarrowestWidth(t *testing.T) {
	tbl, err := Merge(testGrid(3, 2, 0), testGrid(3, 2, 100), 1)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if len(tbl.Samples) != 3*3*Channels {
		t.Fatalf("expected %d floats, got %d", 3*3*Channels, len(tbl.Samples))
	}

	for col, src := range []int{5, 3, 3} {
		expectCell(t, tbl, col, 2, src, src, 1)
	}
}

func TestMerge_DimensionMismatch(t *testing.T) {
	tests := []struct {
		name        string
		left, right *formats.CalibrationGrid
	}{
		{"width", testGrid(4, 2, 0), testGrid(6, 2, 100)},
		{"height", testGrid(4, 2, 0), testGrid(4, 3, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Merge(tt.left, tt.right, 1)
			if !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
			if tbl != nil {
				t.Error("expected no table on mismatch")
			}
		})
	}
}

func TestMerge_TooNarrow(t *testing.T) {
	_, err := Merge(testGrid(2, 2, 0), testGrid(2, 2, 100), 1)
	if !errors.Is(err, ErrTableTooNarrow) {
		t.Errorf("expected ErrTableTooNarrow, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	left := writeGrid(t, dir, "l.dat", testGrid(8, 4, 0))
	right := writeGrid(t, dir, "r.dat", testGrid(8, 4, 100))

	tbl, err := Load(left, right, DefaultAspectRatio)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(tbl.Samples) != 8*5*Channels {
		t.Errorf("expected %d floats, got %d", 8*5*Channels, len(tbl.Samples))
	}
	expectCell(t, tbl, 3, 2, 19, 19, DefaultAspectRatio)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	left := writeGrid(t, dir, "l.dat", testGrid(8, 4, 0))
	mismatched := writeGrid(t, dir, "r_small.dat", testGrid(8, 3, 100))

	if _, err := Load(left, mismatched, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	if _, err := Load(left, filepath.Join(dir, "absent.dat"), 1); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist for missing right table, got %v", err)
	}

	truncated := filepath.Join(dir, "r_trunc.dat")
	data, _ := os.ReadFile(left)
	if err := os.WriteFile(truncated, data[:len(data)-8], 0644); err != nil {
		t.Fatalf("writing truncated fixture: %v", err)
	}
	if _, err := Load(left, truncated, 1); !errors.Is(err, formats.ErrTruncatedCalibration) {
		t.Errorf("expected ErrTruncatedCalibration, got %v", err)
	}
}

func TestPlaceholder(t *testing.T) {
	tbl := Placeholder()

	if tbl.Width != PlaceholderWidth || tbl.PaddedHeight != PlaceholderHeight+1 {
		t.Errorf("unexpected placeholder size %dx%d", tbl.Width, tbl.PaddedHeight)
	}
	if len(tbl.Samples) != tbl.Width*tbl.PaddedHeight*Channels {
		t.Errorf("placeholder holds %d floats, expected %d", len(tbl.Samples), tbl.Width*tbl.PaddedHeight*Channels)
	}
	for i, v := range tbl.Samples {
		if v != 0 {
			t.Fatalf("placeholder sample %d = %f, want 0", i, v)
		}
	}
}

func TestRelease(t *testing.T) {
	tbl := Placeholder()
	tbl.Release()
	if tbl.Samples != nil {
		t.Error("expected samples to be released")
	}
	if tbl.Width != PlaceholderWidth {
		t.Error("release must keep dimensions for the GPU texture")
	}
}
