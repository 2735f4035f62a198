// Package source supplies dual-fisheye RGBA frames to the warp.
package source

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrFrameSize is returned when a buffer does not hold a full RGBA frame.
var ErrFrameSize = errors.New("frame size mismatch")

// Frame is one RGBA frame, top row first.
type Frame struct {
	Seq     uint64
	PTS     time.Duration
	Width   int
	Height  int
	Pixels  []byte
	TraceID string
}

// Source is polled once per rendered frame from the GL thread.
type Source interface {
	// Next returns the newest frame that arrived since the previous call.
	Next() (Frame, bool)
	// Err reports a terminal source failure, nil while healthy or at clean EOS.
	Err() error
	Close() error
}

// newFrame copies data into a Frame, checking it holds width*height pixels.
func newFrame(seq uint64, pts time.Duration, width, height int, data []byte) (Frame, error) {
	if want := width * height * 4; len(data) != want {
		return Frame{}, fmt.Errorf("%w: %d bytes, expected %d for %dx%d RGBA", ErrFrameSize, len(data), want, width, height)
	}
	pixels := make([]byte, len(data))
	copy(pixels, data)
	return Frame{
		Seq:     seq,
		PTS:     pts,
		Width:   width,
		Height:  height,
		Pixels:  pixels,
		TraceID: uuid.New().String(),
	}, nil
}
