package skeleton

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/retargeter/utils"
)

type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

func (t Transform) Mat4() mgl64.Mat4 {
	return utils.ComposeMat4(t.Position, t.Rotation, t.Scale)
}

func TransformFromMat4(m mgl64.Mat4) Transform {
	pos, rot, scale := utils.DecomposeMat4(m)
	return Transform{Position: pos, Rotation: rot, Scale: scale}
}
