package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

const Epsilon = 1e-9

// result in radians, xyz order
func QuatToEuler(q mgl64.Quat) (e mgl64.Vec3) {
	sinr_cosp := 2 * (q.W*q.X() + q.Y()*q.Z())
	cosr_cosp := 1 - 2*(q.X()*q.X()+q.Y()*q.Y())

	e[0] = math.Atan2(sinr_cosp, cosr_cosp)

	sinp := 2 * (q.W*q.Y() - q.Z()*q.X())
	if math.Abs(sinp) >= 1 {
		e[1] = math.Copysign(math.Pi/2, sinp)
	} else {
		e[1] = math.Asin(sinp)
	}

	siny_cosp := 2 * (q.W*q.Z() + q.X()*q.Y())
	cosy_cosp := 1 - 2*(q.Y()*q.Y()+q.Z()*q.Z())
	e[2] = math.Atan2(siny_cosp, cosy_cosp)

	return e
}

// input in radians, inverse of QuatToEuler
func EulerToQuat(v mgl64.Vec3) (q mgl64.Quat) {
	sx, cx := math.Sincos(v[0] * 0.5)
	sy, cy := math.Sincos(v[1] * 0.5)
	sz, cz := math.Sincos(v[2] * 0.5)

	q.V[0] = sx*cy*cz - cx*sy*sz
	q.V[1] = cx*sy*cz + sx*cy*sz
	q.V[2] = cx*cy*sz - sx*sy*cz
	q.W = cx*cy*cz + sx*sy*sz

	return q.Normalize()
}

func DegreeToRadiansV3(v mgl64.Vec3) mgl64.Vec3 {
	return v.Mul(math.Pi / 180.0)
}

func RadiansToDegreeV3(v mgl64.Vec3) mgl64.Vec3 {
	return v.Mul(180.0 / math.Pi)
}

// NormalizeQuat returns identity for degenerate input instead of NaNs.
func NormalizeQuat(q mgl64.Quat) mgl64.Quat {
	l := q.Len()
	if l < Epsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.QuatIdent()
	}
	return mgl64.Quat{W: q.W / l, V: q.V.Mul(1 / l)}
}

// CanonicalQuat keeps W non negative, so q and -q compare equal.
func CanonicalQuat(q mgl64.Quat) mgl64.Quat {
	if q.W < 0 {
		return mgl64.Quat{W: -q.W, V: q.V.Mul(-1)}
	}
	return q
}

func QuatApproxEqual(a, b mgl64.Quat, eps float64) bool {
	a, b = CanonicalQuat(a), CanonicalQuat(b)
	return math.Abs(a.W-b.W) <= eps &&
		math.Abs(a.X()-b.X()) <= eps &&
		math.Abs(a.Y()-b.Y()) <= eps &&
		math.Abs(a.Z()-b.Z()) <= eps
}

// MinArc is the shortest rotation taking direction from onto direction to.
// Zero length inputs yield identity.
func MinArc(from, to mgl64.Vec3) mgl64.Quat {
	fl, tl := from.Len(), to.Len()
	if fl < Epsilon || tl < Epsilon {
		return mgl64.QuatIdent()
	}
	from, to = from.Mul(1/fl), to.Mul(1/tl)

	d := from.Dot(to)
	if d >= 1-1e-12 {
		return mgl64.QuatIdent()
	}
	if d <= -1+1e-12 {
		axis := mgl64.Vec3{1, 0, 0}.Cross(from)
		if axis.Len() < 1e-6 {
			axis = mgl64.Vec3{0, 1, 0}.Cross(from)
		}
		return mgl64.QuatRotate(math.Pi, axis.Normalize())
	}
	return NormalizeQuat(mgl64.QuatBetweenVectors(from, to))
}

func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < Epsilon {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// AngleBetween returns the angle between two directions in radians.
func AngleBetween(a, b mgl64.Vec3) float64 {
	a, b = SafeNormalize(a), SafeNormalize(b)
	d := a.Dot(b)
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d)
}

func ComposeMat4(pos mgl64.Vec3, rot mgl64.Quat, scale mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(pos[0], pos[1], pos[2]).
		Mul4(rot.Mat4()).
		Mul4(mgl64.Scale3D(scale[0], scale[1], scale[2]))
}

// DecomposeMat4 splits an affine matrix into translation, rotation and scale.
// Mirrored matrices get a negative x scale.
func DecomposeMat4(m mgl64.Mat4) (pos mgl64.Vec3, rot mgl64.Quat, scale mgl64.Vec3) {
	pos = m.Col(3).Vec3()

	x, y, z := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	scale = mgl64.Vec3{x.Len(), y.Len(), z.Len()}
	if m.Mat3().Det() < 0 {
		scale[0] = -scale[0]
	}

	var basis mgl64.Mat4
	for i, col := range [3]mgl64.Vec3{x, y, z} {
		s := scale[i]
		if math.Abs(s) < Epsilon {
			s = 1
		}
		basis.SetCol(i, col.Mul(1/s).Vec4(0))
	}
	basis.Set(3, 3, 1)
	rot = NormalizeQuat(mgl64.Mat4ToQuat(basis))
	return pos, rot, scale
}

func RotationOfMat4(m mgl64.Mat4) mgl64.Quat {
	_, rot, _ := DecomposeMat4(m)
	return rot
}

func Vec3To32(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

func Vec3From32(v [3]float32) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

// gltf stores quaternions as xyzw
func QuatTo32(q mgl64.Quat) [4]float32 {
	return [4]float32{float32(q.X()), float32(q.Y()), float32(q.Z()), float32(q.W)}
}

func QuatFrom32(v [4]float32) mgl64.Quat {
	return mgl64.Quat{W: float64(v[3]), V: mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}}
}

func Mat4From32(m mgl32.Mat4) mgl64.Mat4 {
	var r mgl64.Mat4
	for i := range m {
		r[i] = float64(m[i])
	}
	return r
}

func FloatArray64to32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
