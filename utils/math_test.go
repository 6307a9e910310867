package utils

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestEulerRoundTrip(t *testing.T) {
	deg := mgl64.Vec3{20, -35, 110}
	q := EulerToQuat(DegreeToRadiansV3(deg))
	back := RadiansToDegreeV3(QuatToEuler(q))
	for i := range deg {
		assert.InDelta(t, deg[i], back[i], 1e-9)
	}

	x := EulerToQuat(mgl64.Vec3{math.Pi / 2, 0, 0})
	assert.True(t, QuatApproxEqual(x, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{1, 0, 0}), 1e-12))
}

func TestQuatHelpers(t *testing.T) {
	assert.Equal(t, mgl64.QuatIdent(), NormalizeQuat(mgl64.Quat{}))
	assert.Equal(t, mgl64.QuatIdent(), NormalizeQuat(mgl64.Quat{W: math.NaN()}))
	assert.InDelta(t, 1, NormalizeQuat(mgl64.Quat{W: 2, V: mgl64.Vec3{2, 0, 0}}).Len(), 1e-12)

	q := mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0})
	neg := mgl64.Quat{W: -q.W, V: q.V.Mul(-1)}
	assert.True(t, QuatApproxEqual(q, neg, 1e-12))
	assert.False(t, QuatApproxEqual(q, mgl64.QuatIdent(), 1e-3))
}

func TestMinArc(t *testing.T) {
	x, y := mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 2, 0}
	r := MinArc(x, y)
	assert.True(t, r.Rotate(x).ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-9))

	flip := MinArc(x, x.Mul(-3))
	assert.True(t, flip.Rotate(x).ApproxEqualThreshold(mgl64.Vec3{-1, 0, 0}, 1e-9))

	assert.Equal(t, mgl64.QuatIdent(), MinArc(mgl64.Vec3{}, y))
	assert.InDelta(t, math.Pi/2, AngleBetween(x, y), 1e-12)
	assert.InDelta(t, math.Pi, AngleBetween(x, x.Mul(-1)), 1e-12)
}

func TestComposeDecompose(t *testing.T) {
	pos := mgl64.Vec3{1, 2, 3}
	rot := mgl64.QuatRotate(1.2, mgl64.Vec3{1, 1, 0}.Normalize())
	scale := mgl64.Vec3{2, 2, 2}

	p, r, s := DecomposeMat4(ComposeMat4(pos, rot, scale))
	assert.True(t, p.ApproxEqualThreshold(pos, 1e-9))
	assert.True(t, s.ApproxEqualThreshold(scale, 1e-9))
	assert.True(t, QuatApproxEqual(r, rot, 1e-9))
}
