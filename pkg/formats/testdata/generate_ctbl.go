//go:build ignore

// This program generates a test calibration table for unit tests.
// Run with: go run generate_ctbl.go
package main

import (
	"bytes"
	"encoding/binary"
	"os"
)

func main() {
	// 4x2 grid, u = col/4, v = row/2
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(4)) // width
	binary.Write(&buf, binary.LittleEndian, uint16(2)) // height

	for row := 0; row < 2; row++ {
		for col := 0; col < 4; col++ {
			binary.Write(&buf, binary.LittleEndian, float32(col)/4)
			binary.Write(&buf, binary.LittleEndian, float32(row)/2)
		}
	}

	if err := os.WriteFile("grid_4x2.dat", buf.Bytes(), 0644); err != nil {
		panic(err)
	}
}
