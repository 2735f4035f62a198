// tbltool is a CLI utility for lens calibration tables.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/Faultbox/thetawarp/internal/engine/calib"
	"github.com/Faultbox/thetawarp/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "check":
		cmdCheck(args)
	case "identity", "gen":
		cmdIdentity(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tbltool - lens calibration table utility

Usage:
  tbltool <command> [options]

Commands:
  info <file.tbl>                      Show grid size and coordinate range
  check <left.tbl> <right.tbl>         Verify a pair merges into a warp table
  identity [-w N] [-h N] <left> <right> Write an ideal fisheye table pair

Examples:
  tbltool info left.tbl
  tbltool check left.tbl right.tbl
  tbltool identity -w 240 -h 120 left.tbl right.tbl`)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tbltool info <file.tbl>")
		os.Exit(1)
	}

	grid, err := formats.ParseCalibrationFile(args[0])
	if err != nil {
		fail(err)
	}

	minU, minV := float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxU, maxV := -minU, -minV
	for row := 0; row < int(grid.Height); row++ {
		for col := 0; col < int(grid.Width); col++ {
			u, v := grid.At(col, row)
			minU, maxU = min(minU, u), max(maxU, u)
			minV, maxV = min(minV, v), max(maxV, v)
		}
	}

	fmt.Printf("File:   %s\n", args[0])
	fmt.Printf("Grid:   %d x %d\n", grid.Width, grid.Height)
	fmt.Printf("Bytes:  %d\n", formats.PayloadSize(grid.Width, grid.Height)+4)
	fmt.Printf("U:      %.4f .. %.4f\n", minU, maxU)
	fmt.Printf("V:      %.4f .. %.4f\n", minV, maxV)
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	aspect := fs.Float64("aspect", float64(calib.DefaultAspectRatio), "Vertical aspect scale")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: tbltool check [-aspect F] <left.tbl> <right.tbl>")
		os.Exit(1)
	}

	t, err := calib.Load(fs.Arg(0), fs.Arg(1), float32(*aspect))
	if err != nil {
		fail(err)
	}
	fmt.Printf("OK: %d x %d table, %d rows with seam padding\n", t.Width, t.Height, t.PaddedHeight)
}

func cmdIdentity(args []string) {
	fs := flag.NewFlagSet("identity", flag.ExitOnError)
	width := fs.Int("w", calib.PlaceholderWidth, "Grid width")
	height := fs.Int("h", calib.PlaceholderHeight, "Grid height")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: tbltool identity [-w N] [-h N] <left.tbl> <right.tbl>")
		os.Exit(1)
	}
	if *width < 1 || *height < 1 || *width > math.MaxUint16 || *height > math.MaxUint16 {
		fail(fmt.Errorf("grid size %dx%d out of range", *width, *height))
	}

	// Both lenses get the same ideal projection.
	grid := equidistant(uint16(*width), uint16(*height))
	for _, path := range fs.Args()[:2] {
		if err := writeGrid(path, grid); err != nil {
			fail(err)
		}
		fmt.Printf("Wrote %d x %d grid to %s\n", *width, *height, path)
	}
}

func writeGrid(path string, grid *formats.CalibrationGrid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := grid.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// equidistant maps the front hemisphere of each grid cell onto an ideal
// 180 degree equidistant fisheye centered in the unit square.
func equidistant(width, height uint16) *formats.CalibrationGrid {
	g := &formats.CalibrationGrid{
		Width:  width,
		Height: height,
		Coords: make([]float32, 0, int(width)*int(height)*2),
	}
	for row := 0; row < int(height); row++ {
		lat := math.Pi * (0.5 - (float64(row)+0.5)/float64(height))
		for col := 0; col < int(width); col++ {
			lon := math.Pi * ((float64(col)+0.5)/float64(width) - 0.5)
			x := math.Cos(lat) * math.Sin(lon)
			y := math.Sin(lat)
			z := math.Cos(lat) * math.Cos(lon)
			theta := math.Acos(max(-1, min(1, z)))
			r := theta / math.Pi
			phi := math.Atan2(y, x)
			g.Coords = append(g.Coords,
				float32(0.5+r*math.Cos(phi)),
				float32(0.5-r*math.Sin(phi)),
			)
		}
	}
	return g
}
