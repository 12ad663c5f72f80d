package common

import (
	"github.com/chewxy/math32"
)

// Vec3 is a three component float32 vector.
type Vec3 = [3]float32

// Mat4 is a 4x4 float32 matrix stored in column-major order (WebGPU convention).
type Mat4 = [16]float32

// Identity4 returns the 4x4 identity matrix.
//
// Returns:
//   - Mat4: the identity matrix
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul4 multiplies two column-major 4x4 matrices.
// Result: a * b
//
// Parameters:
//   - a: left-hand matrix
//   - b: right-hand matrix
//
// Returns:
//   - Mat4: the product matrix
func Mul4(a, b Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Transpose4 returns the transpose of m.
func Transpose4(m Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[row*4+col] = m[col*4+row]
		}
	}
	return out
}

// Invert4 computes the inverse of a column-major 4x4 matrix by cofactor expansion.
// A singular matrix yields the identity and false.
//
// Parameters:
//   - m: the matrix to invert
//
// Returns:
//   - Mat4: the inverse, or identity when m is singular
//   - bool: true if m was invertible
func Invert4(m Mat4) (Mat4, bool) {
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if math32.Abs(det) < 1e-12 {
		return Identity4(), false
	}
	inv := 1 / det

	return Mat4{
		(m[5]*c5 - m[6]*c4 + m[7]*c3) * inv,
		(-m[1]*c5 + m[2]*c4 - m[3]*c3) * inv,
		(m[13]*s5 - m[14]*s4 + m[15]*s3) * inv,
		(-m[9]*s5 + m[10]*s4 - m[11]*s3) * inv,

		(-m[4]*c5 + m[6]*c2 - m[7]*c1) * inv,
		(m[0]*c5 - m[2]*c2 + m[3]*c1) * inv,
		(-m[12]*s5 + m[14]*s2 - m[15]*s1) * inv,
		(m[8]*s5 - m[10]*s2 + m[11]*s1) * inv,

		(m[4]*c4 - m[5]*c2 + m[7]*c0) * inv,
		(-m[0]*c4 + m[1]*c2 - m[3]*c0) * inv,
		(m[12]*s4 - m[13]*s2 + m[15]*s0) * inv,
		(-m[8]*s4 + m[9]*s2 - m[11]*s0) * inv,

		(-m[4]*c3 + m[5]*c1 - m[6]*c0) * inv,
		(m[0]*c3 - m[1]*c1 + m[2]*c0) * inv,
		(-m[12]*s3 + m[13]*s1 - m[14]*s0) * inv,
		(m[8]*s3 - m[9]*s1 + m[10]*s0) * inv,
	}, true
}

// NormalMatrix returns the inverse-transpose of a world matrix with the
// translation removed, padded to a full 4x4 for uniform upload.
func NormalMatrix(world Mat4) Mat4 {
	world[12], world[13], world[14] = 0, 0, 0
	inv, _ := Invert4(world)
	return Transpose4(inv)
}

// Perspective builds a right-handed perspective projection mapping depth to the
// WebGPU clip range [0, 1].
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport width / height
//   - near: near plane distance (> 0)
//   - far: far plane distance (> near)
//
// Returns:
//   - Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovY/2)
	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, far / (near - far), -1,
		0, 0, (near * far) / (near - far), 0,
	}
}

// Orthographic builds a right-handed orthographic projection mapping depth to [0, 1].
func Orthographic(left, right, bottom, top, near, far float32) Mat4 {
	rl := right - left
	tb := top - bottom
	fn := far - near
	return Mat4{
		2 / rl, 0, 0, 0,
		0, 2 / tb, 0, 0,
		0, 0, -1 / fn, 0,
		-(right + left) / rl, -(top + bottom) / tb, -near / fn, 1,
	}
}

// LookAt builds a view matrix for an eye looking at center.
//
// Parameters:
//   - eye: camera position in world space
//   - center: point the camera looks at
//   - up: approximate up direction
//
// Returns:
//   - Mat4: the world-to-view matrix
func LookAt(eye, center, up Vec3) Mat4 {
	z := Normalize3(Sub3(eye, center))
	x := Normalize3(Cross3(up, z))
	y := Cross3(z, x)
	return Mat4{
		x[0], y[0], z[0], 0,
		x[1], y[1], z[1], 0,
		x[2], y[2], z[2], 0,
		-Dot3(x, eye), -Dot3(y, eye), -Dot3(z, eye), 1,
	}
}

// ModelMatrix composes translation, Euler rotation (Y * X * Z) and scale.
//
// Parameters:
//   - pos: translation
//   - rot: rotation in radians around X, Y, Z
//   - scale: per-axis scale
//
// Returns:
//   - Mat4: the local-to-parent matrix
func ModelMatrix(pos, rot, scale Vec3) Mat4 {
	cx, sx := math32.Cos(rot[0]), math32.Sin(rot[0])
	cy, sy := math32.Cos(rot[1]), math32.Sin(rot[1])
	cz, sz := math32.Cos(rot[2]), math32.Sin(rot[2])

	return Mat4{
		(cy*cz + sy*sx*sz) * scale[0], (cx * sz) * scale[0], (-sy*cz + cy*sx*sz) * scale[0], 0,
		(-cy*sz + sy*sx*cz) * scale[1], (cx * cz) * scale[1], (sy*sz + cy*sx*cz) * scale[1], 0,
		(sy * cx) * scale[2], (-sx) * scale[2], (cy * cx) * scale[2], 0,
		pos[0], pos[1], pos[2], 1,
	}
}

// TransformPoint applies m to the point p (w = 1) and performs the perspective divide.
func TransformPoint(m Mat4, p Vec3) Vec3 {
	x := m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12]
	y := m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13]
	z := m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14]
	w := m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// Translation extracts the translation column of m.
func Translation(m Mat4) Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// Sub3 returns a - b.
func Sub3(a, b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Dot3 returns the dot product of a and b.
func Dot3(a, b Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Cross3 returns the cross product a x b.
func Cross3(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Length3 returns the Euclidean length of v.
func Length3(v Vec3) float32 {
	return math32.Sqrt(Dot3(v, v))
}

// Distance3 returns the Euclidean distance between a and b.
func Distance3(a, b Vec3) float32 {
	return Length3(Sub3(a, b))
}

// Normalize3 returns v scaled to unit length. A zero vector is returned unchanged.
func Normalize3(v Vec3) Vec3 {
	l := Length3(v)
	if l == 0 {
		return v
	}
	return Vec3{v[0] / l, v[1] / l, v[2] / l}
}

// QuatMatrix returns the rotation matrix of the unit quaternion q = (x, y, z, w).
func QuatMatrix(q [4]float32) Mat4 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	return Mat4{
		1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w), 0,
		2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w), 0,
		2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

// Decompose splits an affine matrix into the translation, Euler rotation and scale ModelMatrix
// composes. Shear is lost. At an X rotation of ±90 degrees the Z angle is folded into Y.
//
// Parameters:
//   - m: the matrix
//
// Returns:
//   - Vec3: translation
//   - Vec3: rotation in radians around X, Y, Z
//   - Vec3: per-axis scale
func Decompose(m Mat4) (Vec3, Vec3, Vec3) {
	pos := Vec3{m[12], m[13], m[14]}
	scale := Vec3{
		Length3(Vec3{m[0], m[1], m[2]}),
		Length3(Vec3{m[4], m[5], m[6]}),
		Length3(Vec3{m[8], m[9], m[10]}),
	}
	var r Mat4
	for c := range 3 {
		s := scale[c]
		if s == 0 {
			s = 1
		}
		for i := range 3 {
			r[c*4+i] = m[c*4+i] / s
		}
	}

	var rot Vec3
	rot[0] = math32.Asin(max(-1, min(1, -r[9])))
	if math32.Abs(math32.Cos(rot[0])) > 1e-6 {
		rot[1] = math32.Atan2(r[8], r[10])
		rot[2] = math32.Atan2(r[1], r[5])
	} else {
		rot[1] = math32.Atan2(-r[2], r[0])
	}
	return pos, rot, scale
}
