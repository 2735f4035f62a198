package warp

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidControl is returned for malformed rotation control tracks.
var ErrInvalidControl = errors.New("invalid rotation control")

// Keyframe pins the rotation at a stream time.
type Keyframe struct {
	Time time.Duration `yaml:"time"`
	RotX float32       `yaml:"rot_x"`
	RotY float32       `yaml:"rot_y"`
	RotZ float32       `yaml:"rot_z"`
}

// Rotation returns the keyframe angles as X, Y, Z.
func (k Keyframe) Rotation() [3]float32 {
	return [3]float32{k.RotX, k.RotY, k.RotZ}
}

// Control is a rotation track sampled at each frame's presentation time.
// Between keyframes each angle moves linearly along the shorter arc, so
// 170 to -170 crosses 180 rather than sweeping through 0. A difference of
// exactly 180 keeps its sign. Before the first and after the last keyframe
// the angles hold.
type Control struct {
	Keyframes []Keyframe `yaml:"keyframes"`
}

// LoadControl reads a control track from a YAML file.
func LoadControl(path string) (*Control, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading control file: %w", err)
	}
	c, err := ParseControl(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseControl decodes and validates a control track.
func ParseControl(data []byte) (*Control, error) {
	var c Control
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidControl, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ordering and angle ranges.
func (c *Control) Validate() error {
	if len(c.Keyframes) == 0 {
		return fmt.Errorf("%w: no keyframes", ErrInvalidControl)
	}
	for i, k := range c.Keyframes {
		if err := checkAngles(k.Rotation()); err != nil {
			return fmt.Errorf("%w: keyframe %d: %w", ErrInvalidControl, i, err)
		}
		if i > 0 && k.Time <= c.Keyframes[i-1].Time {
			return fmt.Errorf("%w: keyframe %d at %v is not after %v", ErrInvalidControl, i, k.Time, c.Keyframes[i-1].Time)
		}
	}
	return nil
}

// At returns the rotation at pts.
func (c *Control) At(pts time.Duration) [3]float32 {
	keys := c.Keyframes
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > pts })
	switch {
	case i == 0:
		return keys[0].Rotation()
	case i == len(keys):
		return keys[len(keys)-1].Rotation()
	}

	a, b := keys[i-1], keys[i]
	t := float32(pts-a.Time) / float32(b.Time-a.Time)
	ra, rb := a.Rotation(), b.Rotation()
	var out [3]float32
	for axis := range out {
		out[axis] = wrapDegrees(ra[axis] + shortestArc(ra[axis], rb[axis])*t)
	}
	return out
}

// shortestArc returns the signed step from a to b within [-180, 180].
func shortestArc(a, b float32) float32 {
	d := b - a
	switch {
	case d > 180:
		d -= 360
	case d < -180:
		d += 360
	}
	return d
}

func wrapDegrees(a float32) float32 {
	switch {
	case a > MaxAngle:
		a -= 360
	case a < MinAngle:
		a += 360
	}
	return a
}
