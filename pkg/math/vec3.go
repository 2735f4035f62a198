// Package math provides the small vector and matrix types the warp engine needs.
package math

import "math"

// Vec3 is a direction on the view sphere. X points at the panorama center,
// Z up.
type Vec3 struct {
	X, Y, Z float32
}

// Direction returns the unit vector at longitude lon and latitude lat,
// both in degrees. It matches the vertex stage: d = (cos lat cos lon,
// cos lat sin lon, sin lat).
func Direction(lon, lat float32) Vec3 {
	l := float64(lon) * math.Pi / 180
	p := float64(lat) * math.Pi / 180
	return Vec3{
		float32(math.Cos(p) * math.Cos(l)),
		float32(math.Cos(p) * math.Sin(l)),
		float32(math.Sin(p)),
	}
}

// LonLat returns the longitude and latitude of v in degrees.
func (v Vec3) LonLat() (lon, lat float32) {
	n := v.Normalize()
	z := math.Max(-1, math.Min(1, float64(n.Z)))
	return float32(math.Atan2(float64(n.Y), float64(n.X)) * 180 / math.Pi),
		float32(math.Asin(z) * 180 / math.Pi)
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Normalize returns v scaled to unit length. The zero vector is returned as is.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// ViewCenter returns where the panorama center looks after rotating by
// angles (degrees, intrinsic X then Y then Z).
func ViewCenter(angles [3]float32) (lon, lat float32) {
	return EulerXYZ(angles).MulVec3(Direction(0, 0)).LonLat()
}
