// Package warp draws dual-fisheye frames as an equirectangular panorama.
//
// A Filter owns the start-up sequence (shaders, mesh, calibration table),
// the live properties and the per-frame render. All gpu.Context calls must
// come from the thread that owns the context; property setters may be
// called from any goroutine.
package warp

import "errors"

// Error classes. Every error returned by this package wraps one of them.
var (
	// ErrFatalStartup covers missing, unreadable or mismatched calibration
	// tables and shader compile or link failures.
	ErrFatalStartup = errors.New("warp start-up failed")
	// ErrResourceAllocation covers GPU buffer and texture construction.
	ErrResourceAllocation = errors.New("gpu resource allocation failed")
	// ErrTransientFrame is a failure confined to one frame.
	ErrTransientFrame = errors.New("frame render failed")
)

// Property errors.
var (
	ErrAngleOutOfRange = errors.New("rotation angle out of range")
	ErrNotStarted      = errors.New("filter not started")
)
