package math

import "math"

// Mat3 is a 3x3 matrix in row-major order:
//
//	[m0 m1 m2]
//	[m3 m4 m5]
//	[m6 m7 m8]
//
// GLSL mat3 is column-major, so upload it with transpose enabled.
type Mat3 [9]float32

// Identity3 returns the 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// EulerXYZ returns the rotation for intrinsic X, then Y, then Z rotations.
// Angles are in degrees.
func EulerXYZ(angles [3]float32) Mat3 {
	var s, c [3]float64
	for i, a := range angles {
		rad := float64(a) * math.Pi / 180.0
		s[i] = math.Sin(rad)
		c[i] = math.Cos(rad)
	}

	return Mat3{
		float32(c[1] * c[2]),
		float32(-c[1] * s[2]),
		float32(s[1]),
		float32(s[0]*s[1]*c[2] + c[0]*s[2]),
		float32(-s[0]*s[1]*s[2] + c[0]*c[2]),
		float32(-s[0] * c[1]),
		float32(-c[0]*s[1]*c[2] + s[0]*s[2]),
		float32(c[0]*s[1]*s[2] + s[0]*c[2]),
		float32(c[0] * c[1]),
	}
}

// Mul returns m * other.
func (m Mat3) Mul(other Mat3) Mat3 {
	var result Mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			result[row*3+col] =
				m[row*3+0]*other[0*3+col] +
					m[row*3+1]*other[1*3+col] +
					m[row*3+2]*other[2*3+col]
		}
	}
	return result
}

// MulVec3 returns m * v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Transpose returns the transposed matrix (the inverse, for rotations).
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// Slice returns the matrix as a slice for uniform upload.
func (m *Mat3) Slice() []float32 {
	return m[:]
}
