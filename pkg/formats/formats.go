// Package formats provides codecs for the binary files the warp engine consumes.
package formats

// Note: lens calibration tables (.dat pairs) are implemented in ctbl.go
