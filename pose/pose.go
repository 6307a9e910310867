// Package pose detects and imposes canonical T and A bind poses on skeletons.
package pose

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/retargeter/bonename"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/rig"
	"github.com/mogaika/retargeter/skeleton"
	"github.com/mogaika/retargeter/utils"
)

type Type int

const (
	Unknown Type = iota
	TPose
	APose
)

func (t Type) String() string {
	switch t {
	case TPose:
		return "T-pose"
	case APose:
		return "A-pose"
	}
	return "unknown"
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

type Role string

const (
	Hips       Role = "Hips"
	Spine      Role = "Spine"
	Neck       Role = "Neck"
	Head       Role = "Head"
	LeftUpLeg  Role = "LeftUpLeg"
	LeftFoot   Role = "LeftFoot"
	RightUpLeg Role = "RightUpLeg"
	RightFoot  Role = "RightFoot"
	LeftArm    Role = "LeftArm"
	LeftHand   Role = "LeftHand"
	RightArm   Role = "RightArm"
	RightHand  Role = "RightHand"
)

var roleKeys = []struct {
	role Role
	keys []bonename.Key
}{
	{Spine, []bonename.Key{{Role: bonename.RoleSpine}, {Role: bonename.RoleSpine1}, {Role: bonename.RoleSpine2}}},
	{Neck, []bonename.Key{{Role: bonename.RoleNeck}}},
	{Head, []bonename.Key{{Role: bonename.RoleHead}}},
	{LeftUpLeg, []bonename.Key{{Side: bonename.Left, Role: bonename.RoleUpLeg}}},
	{LeftFoot, []bonename.Key{{Side: bonename.Left, Role: bonename.RoleFoot}}},
	{RightUpLeg, []bonename.Key{{Side: bonename.Right, Role: bonename.RoleUpLeg}}},
	{RightFoot, []bonename.Key{{Side: bonename.Right, Role: bonename.RoleFoot}}},
	{LeftArm, []bonename.Key{{Side: bonename.Left, Role: bonename.RoleArm}}},
	{LeftHand, []bonename.Key{{Side: bonename.Left, Role: bonename.RoleHand}}},
	{RightArm, []bonename.Key{{Side: bonename.Right, Role: bonename.RoleArm}}},
	{RightHand, []bonename.Key{{Side: bonename.Right, Role: bonename.RoleHand}}},
}

// Roles resolves canonical roles to bone indices. Unresolved roles are absent.
func Roles(s *skeleton.Skeleton) map[Role]int {
	keys := make([]bonename.Key, s.Len())
	for i := range s.Bones {
		keys[i] = bonename.Canonical(s.Bones[i].Name)
	}

	roles := make(map[Role]int)
	if hips := rig.FunctionalRoot(s); hips >= 0 {
		roles[Hips] = hips
	}
	for _, rk := range roleKeys {
	search:
		for _, want := range rk.keys {
			for i, k := range keys {
				if k == want {
					roles[rk.role] = i
					break search
				}
			}
		}
	}
	return roles
}

func scenePosition(s *skeleton.Skeleton, i int) mgl64.Vec3 {
	return s.SceneWorld(i).Col(3).Vec3()
}

func sceneRotation(s *skeleton.Skeleton, i int) mgl64.Quat {
	return utils.RotationOfMat4(s.SceneWorld(i))
}

func sceneParentRotation(s *skeleton.Skeleton, i int) mgl64.Quat {
	if p := s.Bones[i].Parent; p != skeleton.NoParent {
		return sceneRotation(s, p)
	}
	return utils.RotationOfMat4(s.RootWorld)
}

// spineEnd is the top of the spine used as the spine axis end.
func spineEnd(roles map[Role]int) (int, bool) {
	if i, ok := roles[Neck]; ok {
		return i, true
	}
	i, ok := roles[Head]
	return i, ok
}

func spineStart(roles map[Role]int) (int, bool) {
	if i, ok := roles[Spine]; ok {
		return i, true
	}
	i, ok := roles[Hips]
	return i, ok
}

const (
	tPoseAngle     = 90.0
	aPoseAngle     = 135.0
	angleTolerance = 20.0
)

func classifyAngle(deg float64) Type {
	switch {
	case math.Abs(deg-tPoseAngle) <= angleTolerance:
		return TPose
	case math.Abs(deg-aPoseAngle) <= angleTolerance:
		return APose
	}
	return Unknown
}

// Detect classifies the live pose by the angle between each arm and the spine axis.
// Arms disagreeing with each other give Unknown.
func Detect(s *skeleton.Skeleton) Type {
	roles := Roles(s)
	start, ok1 := spineStart(roles)
	end, ok2 := spineEnd(roles)
	if !ok1 || !ok2 || start == end {
		return Unknown
	}
	up := scenePosition(s, end).Sub(scenePosition(s, start))
	if up.Len() < utils.Epsilon {
		return Unknown
	}

	result := Unknown
	arms := 0
	for _, side := range [][2]Role{{LeftArm, LeftHand}, {RightArm, RightHand}} {
		a, okA := roles[side[0]]
		h, okH := roles[side[1]]
		if !okA || !okH {
			continue
		}
		dir := scenePosition(s, h).Sub(scenePosition(s, a))
		t := classifyAngle(mgl64.RadToDeg(utils.AngleBetween(dir, up)))
		if arms != 0 && t != result {
			return Unknown
		}
		result = t
		arms++
	}
	return result
}

// Corrections maps bone index to the delta inverse(old)*new of its local rotation.
type Corrections map[int]mgl64.Quat

// Merge composes later corrections onto c.
func (c Corrections) Merge(later Corrections) {
	for i, d := range later {
		if prev, ok := c[i]; ok {
			c[i] = utils.NormalizeQuat(prev.Mul(d))
		} else {
			c[i] = d
		}
	}
}

// Named re-keys corrections by bone name.
func (c Corrections) Named(s *skeleton.Skeleton) map[string]mgl64.Quat {
	out := make(map[string]mgl64.Quat, len(c))
	for i, q := range c {
		out[s.Bones[i].Name] = q
	}
	return out
}

func (c Corrections) record(s *skeleton.Skeleton, i int, newLocal mgl64.Quat) {
	old := s.Bones[i].Local.Rotation
	newLocal = utils.NormalizeQuat(newLocal)
	c.Merge(Corrections{i: utils.NormalizeQuat(old.Inverse().Mul(newLocal))})
	s.SetLocalRotation(i, newLocal)
	s.UpdateWorld()
}

// rotateWorld applies a scene space rotation delta to bone i, keeping its position.
func rotateWorld(s *skeleton.Skeleton, i int, delta mgl64.Quat, c Corrections) {
	parent := sceneParentRotation(s, i)
	world := delta.Mul(sceneRotation(s, i))
	c.record(s, i, parent.Inverse().Mul(world))
}

// chain returns bones from start down to end, both included; nil if end is not below start.
func chain(s *skeleton.Skeleton, start, end int) []int {
	var rev []int
	for i := end; i != skeleton.NoParent; i = s.Bones[i].Parent {
		rev = append(rev, i)
		if i == start {
			res := make([]int, len(rev))
			for k := range rev {
				res[k] = rev[len(rev)-1-k]
			}
			return res
		}
	}
	return nil
}

// ExtendChain straightens bones from start towards end so every bone points along
// the line from start to end. The start bone is included, end is not rotated.
func ExtendChain(s *skeleton.Skeleton, start, end int) (Corrections, error) {
	bones := chain(s, start, end)
	if bones == nil {
		return nil, diag.Errorf(diag.InvalidInput, "bone %q is not below %q", s.Bones[end].Name, s.Bones[start].Name)
	}
	c := make(Corrections)
	line := scenePosition(s, end).Sub(scenePosition(s, start))
	if line.Len() < utils.Epsilon {
		return c, nil
	}
	for k := 0; k+1 < len(bones); k++ {
		b, next := bones[k], bones[k+1]
		dir := scenePosition(s, next).Sub(scenePosition(s, b))
		if dir.Len() < utils.Epsilon {
			continue
		}
		rotateWorld(s, b, utils.MinArc(dir, line), c)
	}
	return c, nil
}

// AlignBoneToAxis rotates origin so the direction from origin to end equals axis.
func AlignBoneToAxis(s *skeleton.Skeleton, origin, end int, axis mgl64.Vec3) Corrections {
	c := make(Corrections)
	dir := scenePosition(s, end).Sub(scenePosition(s, origin))
	if dir.Len() < utils.Epsilon || axis.Len() < utils.Epsilon {
		return c
	}
	rotateWorld(s, origin, utils.MinArc(dir, axis), c)
	return c
}

var (
	AxisUp     = mgl64.Vec3{0, 1, 0}
	AxisDown   = mgl64.Vec3{0, -1, 0}
	AxisLeftT  = mgl64.Vec3{1, 0, 0}
	AxisRightT = mgl64.Vec3{-1, 0, 0}
	AxisLeftA  = mgl64.Vec3{1, -1, 0}.Normalize()
	AxisRightA = mgl64.Vec3{-1, -1, 0}.Normalize()
)

var ErrNoLimbs = diag.Errorf(diag.InvalidInput, "skeleton has no recognizable spine, arms or legs")

type segment struct {
	from, to Role
	axis     mgl64.Vec3
}

// spineTop is a pseudo role bound to the neck or head.
const spineTop Role = "SpineTop"

func segments(leftArm, rightArm mgl64.Vec3) []segment {
	return []segment{
		{Spine, spineTop, AxisUp},
		{LeftArm, LeftHand, leftArm},
		{RightArm, RightHand, rightArm},
		{LeftUpLeg, LeftFoot, AxisDown},
		{RightUpLeg, RightFoot, AxisDown},
	}
}

// ApplyTPose straightens spine, legs and arms, then points arms along ±X (left +X), legs down and spine up.
func ApplyTPose(s *skeleton.Skeleton) (Corrections, error) {
	return apply(s, segments(AxisLeftT, AxisRightT))
}

// ApplyAPose is ApplyTPose with arms 45 degrees down.
func ApplyAPose(s *skeleton.Skeleton) (Corrections, error) {
	return apply(s, segments(AxisLeftA, AxisRightA))
}

func apply(s *skeleton.Skeleton, segs []segment) (Corrections, error) {
	roles := Roles(s)
	if end, ok := spineEnd(roles); ok {
		roles[spineTop] = end
	}

	c := make(Corrections)
	touched := 0
	for _, seg := range segs {
		a, okA := roles[seg.from]
		b, okB := roles[seg.to]
		if !okA || !okB || a == b {
			continue
		}
		if ext, err := ExtendChain(s, a, b); err == nil {
			c.Merge(ext)
		}
		c.Merge(AlignBoneToAxis(s, a, b, seg.axis))
		touched++
	}
	if touched == 0 {
		return c, ErrNoLimbs
	}
	return c, nil
}
