package gltfio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/skeleton"
	"github.com/mogaika/retargeter/utils"
)

func testSkeleton(t *testing.T) *skeleton.Skeleton {
	hips := skeleton.IdentityTransform()
	hips.Position = mgl64.Vec3{0, 1, 0}
	spine := skeleton.IdentityTransform()
	spine.Position = mgl64.Vec3{0, 0.25, 0}
	spine.Rotation = mgl64.QuatRotate(0.5, mgl64.Vec3{1, 0, 0})
	s, err := skeleton.New([]skeleton.BoneDesc{
		{Name: "mixamorig:Hips", Parent: -1, Local: hips},
		{Name: "mixamorig:Spine", Parent: 0, Local: spine},
	})
	require.NoError(t, err)
	s.RootWorld = mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0}).Mat4()
	s.UpAxis = "Z"
	return s
}

func TestExportDecodeRoundTrip(t *testing.T) {
	s := testSkeleton(t)
	q := mgl64.QuatRotate(1, mgl64.Vec3{0, 1, 0})
	in := clip.New("walk", 1, []*clip.Track{
		clip.NewQuaternionTrack("mixamorig:Hips.rotation", []float64{0, 1}, []float64{0, 0, 0, 1, q.V[0], q.V[1], q.V[2], q.W}),
		clip.NewVectorTrack("mixamorig:Hips.position", []float64{0, 0.5, 1}, []float64{0, 1, 0, 0, 1, 0.5, 0, 1, 1}),
		clip.NewNumberTrack("Face.morphTargetInfluences[0]", []float64{0}, []float64{1}),
	})
	step := clip.NewVectorTrack("mixamorig:Spine.scale", []float64{0, 1}, []float64{1, 1, 1, 2, 2, 2})
	step.Interpolation = clip.InterpolateDiscrete
	in.Tracks = append(in.Tracks, step)

	l := diag.NewLog("test")
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, s, []*clip.Clip{in}, l))
	assert.Equal(t, 1, l.Count(diag.TrackDropped))

	m, err := Decode("walk", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"mixamorig:Hips", "mixamorig:Spine"}, m.Skeleton.Names())
	assert.Equal(t, []int{-1, 0}, m.Skeleton.Parents())
	assert.Equal(t, "mixamorig:Hips", m.Root)
	assert.Equal(t, "Z", m.UpAxis)
	assert.Equal(t, buf.Bytes(), m.Source)

	spine := m.Skeleton.Bones[1].BindLocal
	assert.InDelta(t, 0.25, spine.Position.Y(), 1e-6)
	assert.True(t, utils.QuatApproxEqual(s.Bones[1].BindLocal.Rotation, spine.Rotation, 1e-6))
	assert.True(t, m.WorldTransform.ApproxEqualThreshold(s.RootWorld, 1e-6))

	require.Len(t, m.Clips, 1)
	c := m.Clips[0]
	assert.Equal(t, "walk", c.Name)
	assert.InDelta(t, 1, c.Duration, 1e-6)
	require.Len(t, c.Tracks, 3)
	assert.Equal(t, "mixamorig:Hips.quaternion", c.Tracks[0].Name)
	assert.True(t, utils.QuatApproxEqual(q, c.Tracks[0].Quat(1), 1e-6))
	assert.Equal(t, "mixamorig:Hips.position", c.Tracks[1].Name)
	assert.InDeltaSlice(t, in.Tracks[1].Values, c.Tracks[1].Values, 1e-6)
	assert.Equal(t, "mixamorig:Spine.scale", c.Tracks[2].Name)
	assert.Equal(t, clip.InterpolateDiscrete, c.Tracks[2].Interpolation)
}

func TestExportRejectsEmptySkeleton(t *testing.T) {
	err := Export(&bytes.Buffer{}, nil, nil, nil)
	assert.True(t, diag.Is(err, diag.InvalidInput))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode("junk", []byte("not a gltf"))
	assert.True(t, diag.Is(err, diag.IOAdjacent))
}

func TestReadAccessorNormalizedAndStrided(t *testing.T) {
	data := make([]byte, 0, 64)
	// two ubyte vec2 elements with a stride of 4
	data = append(data, 0, 255, 9, 9, 255, 0, 9, 9)
	f := make([]byte, 8)
	binary.LittleEndian.PutUint32(f, math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(f[4:], math.Float32bits(-2))
	data = append(data, f...)

	doc := &gltf.Document{
		Buffers: []*gltf.Buffer{{ByteLength: uint32(len(data)), Data: data}},
		BufferViews: []*gltf.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 8, ByteStride: 4},
			{Buffer: 0, ByteOffset: 8, ByteLength: 8},
		},
		Accessors: []*gltf.Accessor{
			{BufferView: gltf.Index(0), ComponentType: gltf.ComponentUbyte, Normalized: true, Count: 2, Type: gltf.AccessorVec2},
			{BufferView: gltf.Index(1), ComponentType: gltf.ComponentFloat, Count: 2, Type: gltf.AccessorScalar},
			{ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorVec3},
			{BufferView: gltf.Index(1), ComponentType: gltf.ComponentFloat, Count: 3, Type: gltf.AccessorScalar},
		},
	}

	v, comps, err := readAccessor(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, comps)
	assert.Equal(t, []float64{0, 1, 1, 0}, v)

	v, _, err = readAccessor(doc, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2}, v)

	v, comps, err = readAccessor(doc, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, comps)
	assert.Len(t, v, 9)

	_, _, err = readAccessor(doc, 3)
	assert.Error(t, err, "reads past the view")
	_, _, err = readAccessor(doc, 9)
	assert.Error(t, err)
}

func TestSplineValues(t *testing.T) {
	// two scalar keys of in, value, out
	assert.Equal(t, []float64{2, 5}, splineValues([]float64{1, 2, 3, 4, 5, 6}, 2))
}

func TestReadMaterials(t *testing.T) {
	doc := &gltf.Document{
		Buffers:     []*gltf.Buffer{{ByteLength: 6, Data: []byte{0, 0, 0x89, 'P', 'N', 'G'}}},
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteOffset: 2, ByteLength: 4}},
		Images: []*gltf.Image{
			{Name: "skin", MimeType: "image/png", BufferView: gltf.Index(0)},
			{URI: "textures/eyes.jpg"},
		},
		Textures: []*gltf.Texture{{Source: gltf.Index(0)}, {Source: gltf.Index(1)}, {}},
		Materials: []*gltf.Material{
			{
				Name: "body",
				PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
					BaseColorTexture:         &gltf.TextureInfo{Index: 0},
					MetallicRoughnessTexture: &gltf.TextureInfo{Index: 0},
				},
				EmissiveTexture: &gltf.TextureInfo{Index: 1},
			},
			{EmissiveTexture: &gltf.TextureInfo{Index: 2}},
		},
	}

	mats, images := readMaterials(doc)
	require.Len(t, mats, 2)
	assert.Equal(t, "body", mats[0].Name)
	assert.Equal(t, []string{"eyes.jpg", "skin.png"}, mats[0].Textures)
	assert.Equal(t, "material1", mats[1].Name)
	assert.Empty(t, mats[1].Textures)
	assert.Equal(t, map[string][]byte{"skin.png": {0x89, 'P', 'N', 'G'}}, images)
}

func TestDecodeDefaultsToYUp(t *testing.T) {
	s := testSkeleton(t)
	s.UpAxis = ""
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, s, nil, nil))

	m, err := Decode("plain", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Y", m.UpAxis)
	assert.Equal(t, "Y", m.Skeleton.UpAxis)
}

func TestRotationChannelWithWrongComponentsSkipped(t *testing.T) {
	s := testSkeleton(t)
	doc := gltf.NewDocument()
	exp := ExportSkeleton(doc, s)

	keys := modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, []float32{0, 1})
	vec3 := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}})
	doc.Animations = append(doc.Animations, &gltf.Animation{
		Name: "bad",
		Samplers: []*gltf.AnimationSampler{
			{Input: gltf.Index(uint32(keys)), Output: gltf.Index(uint32(vec3))},
		},
		Channels: []*gltf.Channel{{
			Sampler: gltf.Index(0),
			Target:  gltf.ChannelTarget{Node: gltf.Index(exp.JointNodes[0]), Path: gltf.TRSRotation},
		}},
	})

	var m *Model
	var err error
	require.NotPanics(t, func() { m, err = FromDocument("bad", doc) })
	require.NoError(t, err)
	require.Len(t, m.Clips, 1)
	assert.Empty(t, m.Clips[0].Tracks)
}
