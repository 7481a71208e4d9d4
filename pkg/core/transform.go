package core

import "math"

// Mat4 is a row-major 4x4 transformation matrix
type Mat4 [4][4]float64

// Mat4Identity returns the identity matrix
func Mat4Identity() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Mul returns the matrix product m * other
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				result[i][j] += m[i][k] * other[k][j]
			}
		}
	}
	return result
}

// Transpose returns the transposed matrix
func (m Mat4) Transpose() Mat4 {
	return Mat4{
		{m[0][0], m[1][0], m[2][0], m[3][0]},
		{m[0][1], m[1][1], m[2][1], m[3][1]},
		{m[0][2], m[1][2], m[2][2], m[3][2]},
		{m[0][3], m[1][3], m[2][3], m[3][3]},
	}
}

// Inverse returns the inverse matrix using Gauss-Jordan elimination with
// partial pivoting. Singular matrices return the identity.
func (m Mat4) Inverse() Mat4 {
	a := m
	inv := Mat4Identity()

	for col := 0; col < 4; col++ {
		// Find pivot row
		pivot := col
		for row := col + 1; row < 4; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if a[pivot][col] == 0 {
			return Mat4Identity()
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		// Normalize pivot row
		d := 1.0 / a[col][col]
		for j := 0; j < 4; j++ {
			a[col][j] *= d
			inv[col][j] *= d
		}

		// Eliminate other rows
		for row := 0; row < 4; row++ {
			if row == col {
				continue
			}
			f := a[row][col]
			if f == 0 {
				continue
			}
			for j := 0; j < 4; j++ {
				a[row][j] -= f * a[col][j]
				inv[row][j] -= f * inv[col][j]
			}
		}
	}

	return inv
}

// Quaternion represents a rotation as a unit quaternion
type Quaternion struct {
	X, Y, Z, W float64
}

// QuaternionIdentity returns the identity rotation
func QuaternionIdentity() Quaternion {
	return Quaternion{W: 1}
}

// QuaternionFromAxisAngle builds a quaternion rotating angle radians about axis
func QuaternionFromAxisAngle(axis Vec3, angle float64) Quaternion {
	axis = axis.Normalize()
	s := math.Sin(angle / 2)
	return Quaternion{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: math.Cos(angle / 2),
	}
}

// Mul returns the quaternion product q * other
func (q Quaternion) Mul(other Quaternion) Quaternion {
	return Quaternion{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// Normalize returns the unit quaternion
func (q Quaternion) Normalize() Quaternion {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return QuaternionIdentity()
	}
	return Quaternion{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// ToMat4 converts the quaternion to a rotation matrix
func (q Quaternion) ToMat4() Mat4 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	return Mat4{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w), 0},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w), 0},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y), 0},
		{0, 0, 0, 1},
	}
}

// Transform pairs a matrix with its inverse for object-to-world mappings.
// Normals transform by the inverse transpose.
type Transform struct {
	M    Mat4
	MInv Mat4
}

// NewTransform creates a transform from a matrix, computing the inverse
func NewTransform(m Mat4) Transform {
	return Transform{M: m, MInv: m.Inverse()}
}

// IdentityTransform returns the identity transform
func IdentityTransform() Transform {
	return Transform{M: Mat4Identity(), MInv: Mat4Identity()}
}

// Translate returns a translation transform
func Translate(delta Vec3) Transform {
	m := Mat4Identity()
	m[0][3] = delta.X
	m[1][3] = delta.Y
	m[2][3] = delta.Z
	inv := Mat4Identity()
	inv[0][3] = -delta.X
	inv[1][3] = -delta.Y
	inv[2][3] = -delta.Z
	return Transform{M: m, MInv: inv}
}

// Scale returns a scaling transform
func Scale(s Vec3) Transform {
	m := Mat4Identity()
	m[0][0] = s.X
	m[1][1] = s.Y
	m[2][2] = s.Z
	inv := Mat4Identity()
	inv[0][0] = 1 / s.X
	inv[1][1] = 1 / s.Y
	inv[2][2] = 1 / s.Z
	return Transform{M: m, MInv: inv}
}

// Rotate returns a rotation transform of angle radians about axis
func Rotate(axis Vec3, angle float64) Transform {
	m := QuaternionFromAxisAngle(axis, angle).ToMat4()
	return Transform{M: m, MInv: m.Transpose()}
}

// LookAt returns the camera-to-world transform for an eye position, a look-at
// target, and an up vector
func LookAt(eye, look, up Vec3) Transform {
	dir := look.Subtract(eye).Normalize()
	right := up.Normalize().Cross(dir).Normalize()
	newUp := dir.Cross(right)

	m := Mat4{
		{right.X, newUp.X, dir.X, eye.X},
		{right.Y, newUp.Y, dir.Y, eye.Y},
		{right.Z, newUp.Z, dir.Z, eye.Z},
		{0, 0, 0, 1},
	}
	return Transform{M: m, MInv: m.Inverse()}
}

// Compose returns the transform t then u (u * t as matrices)
func (t Transform) Compose(u Transform) Transform {
	return Transform{M: u.M.Mul(t.M), MInv: t.MInv.Mul(u.MInv)}
}

// Inverse returns the inverse transform
func (t Transform) Inverse() Transform {
	return Transform{M: t.MInv, MInv: t.M}
}

// IsIdentity reports whether the transform is the identity
func (t Transform) IsIdentity() bool {
	return t.M == Mat4Identity()
}

// Point transforms a point (applies translation)
func (t Transform) Point(p Vec3) Vec3 {
	m := &t.M
	x := m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3]
	y := m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3]
	z := m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3]
	w := m[3][0]*p.X + m[3][1]*p.Y + m[3][2]*p.Z + m[3][3]
	if w != 1 && w != 0 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// Vector transforms a direction (ignores translation)
func (t Transform) Vector(v Vec3) Vec3 {
	m := &t.M
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Normal transforms a surface normal by the inverse transpose
func (t Transform) Normal(n Vec3) Vec3 {
	m := &t.MInv
	return Vec3{
		X: m[0][0]*n.X + m[1][0]*n.Y + m[2][0]*n.Z,
		Y: m[0][1]*n.X + m[1][1]*n.Y + m[2][1]*n.Z,
		Z: m[0][2]*n.X + m[1][2]*n.Y + m[2][2]*n.Z,
	}
}

// Ray transforms a ray, preserving its parametric range
func (t Transform) Ray(r Ray) Ray {
	nr := NewRayBounded(t.Point(r.Origin), t.Vector(r.Direction), r.TMax)
	nr.Medium = r.Medium
	return nr
}

// AABB transforms a bounding box by taking the union of its transformed corners
func (t Transform) AABB(b AABB) AABB {
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := Vec3{
			X: pick(i&1 == 0, b.Min.X, b.Max.X),
			Y: pick(i&2 == 0, b.Min.Y, b.Max.Y),
			Z: pick(i&4 == 0, b.Min.Z, b.Max.Z),
		}
		out = out.AddPoint(t.Point(corner))
	}
	return out
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

// SwapsHandedness reports whether the transform changes coordinate handedness
func (t Transform) SwapsHandedness() bool {
	m := &t.M
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	return det < 0
}
