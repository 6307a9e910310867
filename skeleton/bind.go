package skeleton

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/utils"
)

// Embed carries the scene transform folded into a bind snapshot.
type Embed struct {
	Forward mgl64.Mat4
	Inverse mgl64.Mat4
}

// BindPose is a frozen rest pose: locals, worlds and parent indices.
type BindPose struct {
	Names  []string
	Local  []Transform
	World  []mgl64.Mat4
	Parent []int
	Embed  *Embed

	worldRot []mgl64.Quat
	byName   map[string]int
}

// Snapshot freezes a rest pose. PoseDefault uses the frozen bind locals,
// PoseCurrent the live locals. With embedWorld the root scene transform is
// part of every world matrix.
func (s *Skeleton) Snapshot(mode config.PoseMode, embedWorld bool) *BindPose {
	n := len(s.Bones)
	bp := &BindPose{
		Names:    make([]string, n),
		Local:    make([]Transform, n),
		World:    make([]mgl64.Mat4, n),
		Parent:   make([]int, n),
		worldRot: make([]mgl64.Quat, n),
		byName:   make(map[string]int, n),
	}

	base := mgl64.Ident4()
	if embedWorld {
		bp.Embed = &Embed{Forward: s.RootWorld, Inverse: s.RootWorld.Inv()}
		base = s.RootWorld
	}

	for i := range s.Bones {
		b := &s.Bones[i]
		bp.Names[i] = b.Name
		bp.Parent[i] = b.Parent
		if mode == config.PoseCurrent {
			bp.Local[i] = b.Local
		} else {
			bp.Local[i] = b.BindLocal
		}
		if b.Parent == NoParent {
			bp.World[i] = base.Mul4(bp.Local[i].Mat4())
		} else {
			bp.World[i] = bp.World[b.Parent].Mul4(bp.Local[i].Mat4())
		}
		bp.worldRot[i] = utils.RotationOfMat4(bp.World[i])
		if _, exists := bp.byName[b.Name]; !exists {
			bp.byName[b.Name] = i
		}
	}
	return bp
}

func (bp *BindPose) Len() int { return len(bp.Names) }

func (bp *BindPose) Index(name string) int {
	if i, ok := bp.byName[name]; ok {
		return i
	}
	return -1
}

func (bp *BindPose) WorldRotation(i int) mgl64.Quat {
	return bp.worldRot[i]
}

// ParentWorldRotation is identity for roots unless the snapshot embeds a scene transform.
func (bp *BindPose) ParentWorldRotation(i int) mgl64.Quat {
	if p := bp.Parent[i]; p != NoParent {
		return bp.worldRot[p]
	}
	if bp.Embed != nil {
		return utils.RotationOfMat4(bp.Embed.Forward)
	}
	return mgl64.QuatIdent()
}

func (bp *BindPose) WorldPosition(i int) mgl64.Vec3 {
	return bp.World[i].Col(3).Vec3()
}

func (bp *BindPose) FirstChild(i int) int {
	for j := i + 1; j < len(bp.Parent); j++ {
		if bp.Parent[j] == i {
			return j
		}
	}
	return -1
}

// BoneLength is the distance to the first child, zero for leaves.
func (bp *BindPose) BoneLength(i int) float64 {
	c := bp.FirstChild(i)
	if c < 0 {
		return 0
	}
	return bp.WorldPosition(c).Sub(bp.WorldPosition(i)).Len()
}
