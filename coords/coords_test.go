package coords

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/retargeter/skeleton"
)

func TestParseAxis(t *testing.T) {
	var tests = []struct {
		in   string
		axis Axis
		ok   bool
	}{
		{"Y", AxisY, true},
		{"z", AxisZ, true},
		{"Z_UP", AxisZ, true},
		{"+X", AxisX, true},
		{"", AxisY, false},
		{"W", AxisY, false},
	}
	for _, test := range tests {
		axis, ok := ParseAxis(test.in)
		assert.Equal(t, test.axis, axis, test.in)
		assert.Equal(t, test.ok, ok, test.in)
	}
}

func TestCorrectionMapsUpToY(t *testing.T) {
	for _, axis := range []Axis{AxisY, AxisZ, AxisX} {
		v := Correction(axis).Rotate(axis.vector())
		assert.InDelta(t, 1, v.Y(), 1e-12, axis.String())
	}
}

func TestDetectFromBoundingBox(t *testing.T) {
	r := Detect(Frame{Min: mgl64.Vec3{-0.3, -0.2, 0}, Max: mgl64.Vec3{0.3, 0.2, 1.8}})
	assert.Equal(t, AxisZ, r.Up)
	assert.True(t, r.RightHanded)
	assert.True(t, r.Correction.ApproxEqualThreshold(mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0}), 1e-12))

	r = Detect(Frame{Min: mgl64.Vec3{-0.3, 0, -0.2}, Max: mgl64.Vec3{0.3, 1.8, 0.2}})
	assert.Equal(t, AxisY, r.Up)
	assert.True(t, r.Correction.ApproxEqualThreshold(mgl64.QuatIdent(), 1e-12))
}

func TestDetectMetadataThroughRoot(t *testing.T) {
	// Z-up content already turned upright by its root node
	fixed := Frame{UpAxis: "Z", RootRotation: mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0})}
	assert.Equal(t, AxisY, Detect(fixed).Up)

	raw := Frame{UpAxis: "Z", RootRotation: mgl64.QuatIdent(), Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{0, 2, 0}}
	assert.Equal(t, AxisZ, Detect(raw).Up)
}

func TestDetectMirroredRoot(t *testing.T) {
	r := Detect(Frame{Max: mgl64.Vec3{0, 1, 0}, RootScale: mgl64.Vec3{-1, 1, 1}})
	assert.False(t, r.RightHanded)
}

func TestFrameFromSkeleton(t *testing.T) {
	hips := skeleton.IdentityTransform()
	hips.Position = mgl64.Vec3{0, 0, 1}
	head := skeleton.IdentityTransform()
	head.Position = mgl64.Vec3{0, 0, 0.8}
	s, err := skeleton.New([]skeleton.BoneDesc{
		{Name: "Hips", Parent: -1, Local: hips},
		{Name: "Head", Parent: 0, Local: head},
	})
	require.NoError(t, err)
	s.UpAxis = "Z"

	f := FrameFromSkeleton(s)
	assert.InDelta(t, 1.8, f.Max.Z(), 1e-12)
	assert.InDelta(t, 1.0, f.Min.Z(), 1e-12)
	assert.Equal(t, AxisZ, Detect(f).Up)

	s.RootWorld = mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0}).Mat4()
	assert.Equal(t, AxisY, Detect(FrameFromSkeleton(s)).Up)
}

func wideTPose(t *testing.T) *skeleton.Skeleton {
	at := func(x, y, z float64) skeleton.Transform {
		tr := skeleton.IdentityTransform()
		tr.Position = mgl64.Vec3{x, y, z}
		return tr
	}
	s, err := skeleton.New([]skeleton.BoneDesc{
		{Name: "Hips", Parent: -1, Local: at(0, 0.9, 0)},
		{Name: "Spine", Parent: 0, Local: at(0, 0.2, 0)},
		{Name: "Neck", Parent: 1, Local: at(0, 0.4, 0)},
		{Name: "Head", Parent: 2, Local: at(0, 0.1, 0)},
		{Name: "LeftArm", Parent: 1, Local: at(0.15, 0.3, 0)},
		{Name: "LeftHand", Parent: 4, Local: at(0.8, 0, 0)},
		{Name: "RightArm", Parent: 1, Local: at(-0.15, 0.3, 0)},
		{Name: "RightHand", Parent: 6, Local: at(-0.8, 0, 0)},
		{Name: "LeftUpLeg", Parent: 0, Local: at(0.1, 0, 0)},
		{Name: "LeftFoot", Parent: 8, Local: at(0, -0.85, 0)},
		{Name: "RightUpLeg", Parent: 0, Local: at(-0.1, 0, 0)},
		{Name: "RightFoot", Parent: 10, Local: at(0, -0.85, 0)},
	})
	require.NoError(t, err)
	return s
}

func TestDetectWideTPoseUsesSpine(t *testing.T) {
	s := wideTPose(t)
	f := FrameFromSkeleton(s)
	size := f.Max.Sub(f.Min)
	require.Greater(t, size.X(), size.Y())
	assert.InDelta(t, 0.6, f.Spine.Y(), 1e-12)

	r := Detect(f)
	assert.Equal(t, AxisY, r.Up)
	assert.True(t, r.Correction.ApproxEqualThreshold(mgl64.QuatIdent(), 1e-12))

	// same rig lying on its back with no metadata
	s.RootWorld = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{1, 0, 0}).Mat4()
	assert.Equal(t, AxisZ, Detect(FrameFromSkeleton(s)).Up)
}

func TestDetectSpineBeatsBoundingBox(t *testing.T) {
	f := Frame{Min: mgl64.Vec3{-1, 0, -0.1}, Max: mgl64.Vec3{1, 1.6, 0.1}, Spine: mgl64.Vec3{0, 0.5, 0.05}}
	assert.Equal(t, AxisY, Detect(f).Up)

	f.Spine = mgl64.Vec3{}
	assert.Equal(t, AxisX, Detect(f).Up)
}
