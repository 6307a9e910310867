// Package coords detects the up axis and handedness of a model and the rotation
// bringing it to the canonical Y-up right-handed frame.
package coords

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/retargeter/pose"
	"github.com/mogaika/retargeter/skeleton"
	"github.com/mogaika/retargeter/utils"
)

type Axis int

const (
	AxisY Axis = iota
	AxisZ
	AxisX
)

func (a Axis) String() string {
	switch a {
	case AxisZ:
		return "Z"
	case AxisX:
		return "X"
	}
	return "Y"
}

func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a Axis) vector() mgl64.Vec3 {
	switch a {
	case AxisZ:
		return mgl64.Vec3{0, 0, 1}
	case AxisX:
		return mgl64.Vec3{1, 0, 0}
	}
	return mgl64.Vec3{0, 1, 0}
}

// ParseAxis understands "Y", "z", "Z_UP", "+Z". Empty or unknown strings are not ok.
func ParseAxis(s string) (Axis, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(strings.ToUpper(s)), "+")
	s = strings.TrimSuffix(s, "_UP")
	switch s {
	case "Y":
		return AxisY, true
	case "Z":
		return AxisZ, true
	case "X":
		return AxisX, true
	}
	return AxisY, false
}

// Frame is what detection looks at. Min and Max bound the bones in scene space.
// Spine runs from the hips to the neck or head in scene space, zero when unknown.
type Frame struct {
	Min          mgl64.Vec3
	Max          mgl64.Vec3
	Spine        mgl64.Vec3
	RootRotation mgl64.Quat
	RootScale    mgl64.Vec3
	UpAxis       string
}

type Result struct {
	Up          Axis       `json:"up"`
	RightHanded bool       `json:"rightHanded"`
	Correction  mgl64.Quat `json:"correction"`
}

func FrameFromSkeleton(s *skeleton.Skeleton) Frame {
	f := Frame{UpAxis: s.UpAxis}
	_, f.RootRotation, f.RootScale = utils.DecomposeMat4(s.RootWorld)
	for i := range s.Bones {
		p := s.SceneWorld(i).Col(3).Vec3()
		if i == 0 {
			f.Min, f.Max = p, p
			continue
		}
		for k := 0; k < 3; k++ {
			f.Min[k] = math.Min(f.Min[k], p[k])
			f.Max[k] = math.Max(f.Max[k], p[k])
		}
	}
	f.Spine = spineOf(s)
	return f
}

func spineOf(s *skeleton.Skeleton) mgl64.Vec3 {
	roles := pose.Roles(s)
	start, ok := roles[pose.Hips]
	if !ok {
		return mgl64.Vec3{}
	}
	end, ok := roles[pose.Neck]
	if !ok {
		if end, ok = roles[pose.Head]; !ok {
			return mgl64.Vec3{}
		}
	}
	v := s.SceneWorld(end).Col(3).Vec3().Sub(s.SceneWorld(start).Col(3).Vec3())
	if v.Len() < utils.Epsilon {
		return mgl64.Vec3{}
	}
	return v
}

func dominant(v mgl64.Vec3) Axis {
	ax, ay, az := math.Abs(v.X()), math.Abs(v.Y()), math.Abs(v.Z())
	switch {
	case az > ay && az >= ax:
		return AxisZ
	case ax > ay && ax > az:
		return AxisX
	}
	return AxisY
}

// Correction rotates up onto +Y: Z-up by -90° about X, X-up by +90° about Z.
func Correction(up Axis) mgl64.Quat {
	switch up {
	case AxisZ:
		return mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0})
	case AxisX:
		return mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	}
	return mgl64.QuatIdent()
}

// Detect prefers up axis metadata seen through the root rotation, then the spine
// direction, then the longest side of the bounding box. Arm span of a T-pose can
// exceed the height, so the box is the last resort.
// Mirroring cannot be undone by a rotation, so left-handedness is only reported.
func Detect(f Frame) Result {
	root := f.RootRotation
	if root.Len() < utils.Epsilon {
		root = mgl64.QuatIdent()
	}

	var up Axis
	if meta, ok := ParseAxis(f.UpAxis); ok {
		up = dominant(root.Rotate(meta.vector()))
	} else if f.Spine.Len() > utils.Epsilon {
		up = dominant(f.Spine)
	} else {
		up = dominant(f.Max.Sub(f.Min))
	}

	scale := f.RootScale
	if scale == (mgl64.Vec3{}) {
		scale = mgl64.Vec3{1, 1, 1}
	}
	return Result{
		Up:          up,
		RightHanded: scale.X()*scale.Y()*scale.Z() >= 0,
		Correction:  Correction(up),
	}
}
