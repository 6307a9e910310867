package skeleton

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/diag"
)

func at(x, y, z float64) Transform {
	t := IdentityTransform()
	t.Position = mgl64.Vec3{x, y, z}
	return t
}

func TestNewOrdersParentsFirst(t *testing.T) {
	s, err := New([]BoneDesc{
		{Name: "Child2", Parent: 2, Local: at(0, 1, 0)},
		{Name: "Root", Parent: -1, Local: at(0, 1, 0)},
		{Name: "Child1", Parent: 1, Local: at(0, 1, 0)},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Root", "Child1", "Child2"}, s.Names())
	assert.Equal(t, []int{-1, 0, 1}, s.Parents())
	assert.Equal(t, 2, s.Depth(2))
	assert.Equal(t, []int{1}, s.Children(0))
	assert.Equal(t, 2, s.Index("Child2"))
	assert.Equal(t, -1, s.Index("missing"))

	assert.InDelta(t, 3.0, s.WorldPosition(2).Y(), 1e-12)
}

func TestNewRejectsBrokenHierarchies(t *testing.T) {
	var tests = []struct {
		name  string
		bones []BoneDesc
	}{
		{"empty", nil},
		{"no root", []BoneDesc{{Name: "A", Parent: 1}, {Name: "B", Parent: 0}}},
		{"cycle", []BoneDesc{{Name: "R", Parent: -1}, {Name: "A", Parent: 2}, {Name: "B", Parent: 1}}},
		{"self parent", []BoneDesc{{Name: "R", Parent: -1}, {Name: "A", Parent: 1}}},
		{"out of range", []BoneDesc{{Name: "R", Parent: -1}, {Name: "A", Parent: 7}}},
		{"empty name", []BoneDesc{{Name: "", Parent: -1}}},
	}
	for _, test := range tests {
		_, err := New(test.bones)
		if assert.Error(t, err, test.name) {
			assert.Equal(t, diag.InvalidInput, diag.KindOf(err), test.name)
		}
	}
}

func TestWorldRotationChains(t *testing.T) {
	rot := IdentityTransform()
	rot.Rotation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	child := at(1, 0, 0)

	s, err := New([]BoneDesc{
		{Name: "A", Parent: -1, Local: rot},
		{Name: "B", Parent: 0, Local: child},
	})
	require.NoError(t, err)

	pos := s.WorldPosition(1)
	assert.InDelta(t, 0, pos.X(), 1e-9)
	assert.InDelta(t, 1, pos.Y(), 1e-9)
	assert.True(t, s.WorldRotation(1).ApproxEqualThreshold(rot.Rotation, 1e-9))
	assert.True(t, s.ParentWorldRotation(0).ApproxEqualThreshold(mgl64.QuatIdent(), 1e-12))
}

func TestSnapshotModes(t *testing.T) {
	s, err := New([]BoneDesc{
		{Name: "Hips", Parent: -1, Local: at(0, 1, 0)},
		{Name: "Spine", Parent: 0, Local: at(0, 0.2, 0)},
	})
	require.NoError(t, err)

	moved := mgl64.QuatRotate(0.3, mgl64.Vec3{1, 0, 0})
	s.SetLocalRotation(1, moved)
	s.UpdateWorld()

	def := s.Snapshot(config.PoseDefault, false)
	cur := s.Snapshot(config.PoseCurrent, false)

	assert.True(t, def.Local[1].Rotation.ApproxEqualThreshold(mgl64.QuatIdent(), 1e-12))
	assert.True(t, cur.Local[1].Rotation.ApproxEqualThreshold(moved, 1e-12))
	assert.InDelta(t, 0.2, def.BoneLength(0), 1e-12)
	assert.Equal(t, 1, def.FirstChild(0))
	assert.Equal(t, 0.0, def.BoneLength(1))

	s.ResetToBind()
	assert.True(t, s.Bones[1].Local.Rotation.ApproxEqualThreshold(mgl64.QuatIdent(), 1e-12))
}

func TestSnapshotEmbedsRootWorld(t *testing.T) {
	s, err := New([]BoneDesc{{Name: "Hips", Parent: -1, Local: at(0, 1, 0)}})
	require.NoError(t, err)

	embed := mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0})
	s.RootWorld = embed.Mat4()

	plain := s.Snapshot(config.PoseDefault, false)
	embedded := s.Snapshot(config.PoseDefault, true)

	assert.Nil(t, plain.Embed)
	require.NotNil(t, embedded.Embed)
	assert.True(t, embedded.ParentWorldRotation(0).ApproxEqualThreshold(embed, 1e-9))
	assert.True(t, embedded.WorldRotation(0).ApproxEqualThreshold(embed, 1e-9))
	assert.InDelta(t, -1, embedded.WorldPosition(0).Z(), 1e-9)
}

func TestCloneIsIndependent(t *testing.T) {
	s, err := New([]BoneDesc{{Name: "Hips", Parent: -1, Local: at(0, 1, 0)}})
	require.NoError(t, err)
	s.Meshes[0] = []string{"Body"}

	c := s.Clone()
	c.Bones[0].Local.Position = mgl64.Vec3{5, 5, 5}
	c.Meshes[0][0] = "Other"

	assert.Equal(t, 1.0, s.Bones[0].Local.Position.Y())
	assert.Equal(t, "Body", s.Meshes[0][0])
	assert.Equal(t, 0, c.Index("Hips"))
}
