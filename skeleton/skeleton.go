// Package skeleton keeps bones as flat arrays ordered parents first.
package skeleton

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/utils"
)

const NoParent = -1

type BoneDesc struct {
	Name   string
	Parent int
	Local  Transform
}

type Bone struct {
	Id     int
	Name   string
	Parent int

	Local Transform
	World mgl64.Mat4

	BindLocal Transform
	BindWorld mgl64.Mat4
}

type Skeleton struct {
	Bones []Bone
	// Not every loader provides them; indexed like Bones when present.
	InverseBind []mgl64.Mat4
	// Transform of scene nodes above the skeleton roots.
	RootWorld mgl64.Mat4
	UpAxis    string
	Meshes    map[int][]string

	byName map[string]int
}

// New orders descs so that parents precede children, validates the hierarchy,
// computes world matrices and freezes the result as the bind pose.
func New(descs []BoneDesc) (*Skeleton, error) {
	if len(descs) == 0 {
		return nil, diag.Errorf(diag.InvalidInput, "skeleton has no bones")
	}

	children := make([][]int, len(descs))
	roots := make([]int, 0, 1)
	for i, d := range descs {
		if d.Name == "" {
			return nil, diag.Errorf(diag.InvalidInput, "bone %d has empty name", i)
		}
		switch {
		case d.Parent < 0:
			roots = append(roots, i)
		case d.Parent >= len(descs) || d.Parent == i:
			return nil, diag.Errorf(diag.InvalidInput, "bone %q has invalid parent %d", d.Name, d.Parent)
		default:
			children[d.Parent] = append(children[d.Parent], i)
		}
	}
	if len(roots) == 0 {
		return nil, diag.Errorf(diag.InvalidInput, "skeleton has no root bone")
	}

	order := make([]int, 0, len(descs))
	remap := make([]int, len(descs))
	stack := make([]int, 0, 32)
	for ri := len(roots) - 1; ri >= 0; ri-- {
		stack = append(stack, roots[ri])
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		remap[i] = len(order)
		order = append(order, i)
		for ci := len(children[i]) - 1; ci >= 0; ci-- {
			stack = append(stack, children[i][ci])
		}
	}
	if len(order) != len(descs) {
		return nil, diag.Errorf(diag.InvalidInput, "skeleton hierarchy contains a cycle (%d of %d bones reachable)",
			len(order), len(descs))
	}

	s := &Skeleton{
		Bones:     make([]Bone, len(descs)),
		RootWorld: mgl64.Ident4(),
		Meshes:    make(map[int][]string),
	}
	for newId, oldId := range order {
		d := descs[oldId]
		parent := NoParent
		if d.Parent >= 0 {
			parent = remap[d.Parent]
		}
		local := d.Local
		if local.Rotation.Len() < utils.Epsilon {
			local.Rotation = mgl64.QuatIdent()
		}
		if local.Scale == (mgl64.Vec3{}) {
			local.Scale = mgl64.Vec3{1, 1, 1}
		}
		s.Bones[newId] = Bone{
			Id:     newId,
			Name:   d.Name,
			Parent: parent,
			Local:  local,
		}
	}
	s.reindex()
	s.UpdateWorld()
	s.Freeze()
	return s, nil
}

func (s *Skeleton) reindex() {
	s.byName = make(map[string]int, len(s.Bones))
	for i := range s.Bones {
		if _, exists := s.byName[s.Bones[i].Name]; !exists {
			s.byName[s.Bones[i].Name] = i
		}
	}
}

func (s *Skeleton) Len() int { return len(s.Bones) }

// Index returns the first bone with name, or -1.
func (s *Skeleton) Index(name string) int {
	if i, ok := s.byName[name]; ok {
		return i
	}
	return -1
}

func (s *Skeleton) Names() []string {
	names := make([]string, len(s.Bones))
	for i := range s.Bones {
		names[i] = s.Bones[i].Name
	}
	return names
}

func (s *Skeleton) Parents() []int {
	parents := make([]int, len(s.Bones))
	for i := range s.Bones {
		parents[i] = s.Bones[i].Parent
	}
	return parents
}

func (s *Skeleton) Children(i int) []int {
	var res []int
	for j := i + 1; j < len(s.Bones); j++ {
		if s.Bones[j].Parent == i {
			res = append(res, j)
		}
	}
	return res
}

func (s *Skeleton) Depth(i int) int {
	depth := 0
	for p := s.Bones[i].Parent; p != NoParent; p = s.Bones[p].Parent {
		depth++
	}
	return depth
}

// UpdateWorld refreshes world matrices from locals, in skeleton space.
func (s *Skeleton) UpdateWorld() {
	for i := range s.Bones {
		b := &s.Bones[i]
		if b.Parent == NoParent {
			b.World = b.Local.Mat4()
		} else {
			b.World = s.Bones[b.Parent].World.Mul4(b.Local.Mat4())
		}
	}
}

// Freeze records the current pose as the bind pose.
func (s *Skeleton) Freeze() {
	for i := range s.Bones {
		s.Bones[i].BindLocal = s.Bones[i].Local
		s.Bones[i].BindWorld = s.Bones[i].World
	}
}

func (s *Skeleton) ResetToBind() {
	for i := range s.Bones {
		s.Bones[i].Local = s.Bones[i].BindLocal
	}
	s.UpdateWorld()
}

func (s *Skeleton) SceneWorld(i int) mgl64.Mat4 {
	return s.RootWorld.Mul4(s.Bones[i].World)
}

func (s *Skeleton) WorldPosition(i int) mgl64.Vec3 {
	return s.Bones[i].World.Col(3).Vec3()
}

func (s *Skeleton) WorldRotation(i int) mgl64.Quat {
	return utils.RotationOfMat4(s.Bones[i].World)
}

func (s *Skeleton) ParentWorldRotation(i int) mgl64.Quat {
	if p := s.Bones[i].Parent; p != NoParent {
		return s.WorldRotation(p)
	}
	return mgl64.QuatIdent()
}

// SetLocalRotation does not refresh world matrices.
func (s *Skeleton) SetLocalRotation(i int, q mgl64.Quat) {
	s.Bones[i].Local.Rotation = utils.NormalizeQuat(q)
}

func (s *Skeleton) Clone() *Skeleton {
	c := &Skeleton{
		Bones:     make([]Bone, len(s.Bones)),
		RootWorld: s.RootWorld,
		UpAxis:    s.UpAxis,
		Meshes:    make(map[int][]string, len(s.Meshes)),
	}
	copy(c.Bones, s.Bones)
	if s.InverseBind != nil {
		c.InverseBind = make([]mgl64.Mat4, len(s.InverseBind))
		copy(c.InverseBind, s.InverseBind)
	}
	for k, v := range s.Meshes {
		c.Meshes[k] = append([]string(nil), v...)
	}
	c.reindex()
	return c
}
