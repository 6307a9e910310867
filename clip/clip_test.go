package clip

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/retargeter/diag"
)

func TestTrimLeadingSilence(t *testing.T) {
	values := []float64{0, 0, 0, 1, 0, 0.7071, 0, 0.7071, 0, 0, 0, 1}
	c := New("walk", 3.0, []*Track{NewQuaternionTrack("Hips.quaternion", []float64{1, 2, 3}, values)})

	trimmed := c.Trim()
	require.NotSame(t, c, trimmed)
	assert.Equal(t, 2.0, trimmed.Duration)
	assert.Equal(t, []float64{0, 1, 2}, trimmed.Tracks[0].Times)
	assert.Equal(t, values, trimmed.Tracks[0].Values)
	assert.Equal(t, KindQuaternion, trimmed.Tracks[0].Kind)

	assert.Equal(t, []float64{1, 2, 3}, c.Tracks[0].Times, "source clip is untouched")
	assert.Same(t, trimmed, trimmed.Trim())
}

func TestTrimKeepsShortLeadIn(t *testing.T) {
	var tests = []float64{0, 0.005, TrimThreshold}
	for _, start := range tests {
		c := New("idle", 1, []*Track{NewVectorTrack("Hips.position", []float64{start, 1}, make([]float64, 6))})
		assert.Same(t, c, c.Trim(), "start %v", start)
	}
	empty := New("empty", 1, nil)
	assert.Same(t, empty, empty.Trim())
}

func TestTrimUsesEarliestTrack(t *testing.T) {
	c := New("", 5, []*Track{
		NewNumberTrack("a.morphTargetInfluences[0]", []float64{2, 5}, []float64{0, 1}),
		NewNumberTrack("b.morphTargetInfluences[0]", []float64{0.5, 4}, []float64{0, 1}),
	})
	tr := c.Trim()
	assert.Equal(t, 4.5, tr.Duration)
	assert.Equal(t, []float64{1.5, 4.5}, tr.Tracks[0].Times)
	assert.Equal(t, []float64{0, 3.5}, tr.Tracks[1].Times)
}

func TestValidate(t *testing.T) {
	assert.Equal(t, diag.InvalidInput, diag.KindOf(New("x", 1, nil).Validate()))

	bad := New("x", 1, []*Track{NewQuaternionTrack("a.quaternion", []float64{0, 1}, []float64{0, 0, 0, 1})})
	assert.Equal(t, diag.InvalidInput, diag.KindOf(bad.Validate()))

	good := New("x", 1, []*Track{
		NewQuaternionTrack("a.quaternion", []float64{0, 1}, []float64{0, 0, 0, 1, 0, 0, 0, 1}),
		NewNumberTrack("f.morphTargetInfluences", []float64{0, 1}, []float64{0, 0, 1, 1}),
		{Kind: KindBoolean, Name: "a.visible", Times: []float64{0}, Bools: []bool{true}},
	})
	assert.NoError(t, good.Validate())
	assert.Equal(t, 2, good.Tracks[1].ItemSize())
}

func TestNewDerivesDuration(t *testing.T) {
	c := New("x", -1, []*Track{NewVectorTrack("a.position", []float64{0, 2.5}, make([]float64, 6))})
	assert.Equal(t, 2.5, c.Duration)
}

func TestSample(t *testing.T) {
	half := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	q := NewQuaternionTrack("a.quaternion", []float64{0, 1}, []float64{0, 0, 0, 1, half.V[0], half.V[1], half.V[2], half.W})

	mid := q.SampleQuat(0.5)
	expect := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0})
	assert.True(t, mid.ApproxEqualThreshold(expect, 1e-9))
	assert.True(t, q.SampleQuat(-1).ApproxEqualThreshold(mgl64.QuatIdent(), 1e-12))
	assert.True(t, q.SampleQuat(5).ApproxEqualThreshold(half, 1e-12))

	v := NewVectorTrack("a.position", []float64{0, 1, 3}, []float64{0, 0, 0, 1, 2, 3, 3, 2, 1})
	assert.Equal(t, mgl64.Vec3{0.5, 1, 1.5}, v.SampleVec3(0.5))
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, v.SampleVec3(1))
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, v.SampleVec3(2))

	v.Interpolation = InterpolateDiscrete
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, v.SampleVec3(0.9))

	b := &Track{Kind: KindBoolean, Name: "a.visible", Times: []float64{0, 1}, Bools: []bool{true, false}}
	assert.Equal(t, -1, b.SampleDiscrete(-0.1))
	assert.Equal(t, 0, b.SampleDiscrete(0.5))
	assert.Equal(t, 1, b.SampleDiscrete(1))
	assert.Nil(t, b.Sample(0.5))
}

func TestParsePath(t *testing.T) {
	var tests = []struct {
		in   string
		path Path
		out  string
	}{
		{"Hips.quaternion", Path{Node: "Hips", Property: PropRotation}, "Hips.rotation"},
		{"mixamorig:Hips.position", Path{Node: "mixamorig:Hips", Property: PropPosition}, "mixamorig:Hips.position"},
		{".bones[Spine].quaternion", Path{Object: "bones", Node: "Spine", Property: PropRotation}, "Spine.rotation"},
		{"Face.morphTargetInfluences[3]", Path{Node: "Face", Property: PropWeights, Index: "3"}, "Face.morphTargetInfluences[3]"},
		{"Bone.001.translation", Path{Node: "Bone.001", Property: PropPosition}, "Bone.001.position"},
		{"Lamp.intensity", Path{Node: "Lamp", Property: "intensity"}, "Lamp.intensity"},
	}
	for _, test := range tests {
		p, err := ParsePath(test.in)
		require.NoError(t, err, test.in)
		assert.Equal(t, test.path, p, test.in)
		assert.Equal(t, test.out, p.String(), test.in)
	}

	for _, bad := range []string{"", "Hips", "Hips.", ".bones[Spine", "Hips.rotation]", "a[1].b[2]x"} {
		_, err := ParsePath(bad)
		assert.Equal(t, diag.InvalidInput, diag.KindOf(err), bad)
	}

	p, _ := ParsePath("Hips.quaternion")
	assert.True(t, p.IsTransform())
	assert.Equal(t, "pelvis.rotation", p.WithNode("pelvis").String())
}

func TestCodecTagDispatch(t *testing.T) {
	c := New("dance", 2, []*Track{
		NewQuaternionTrack("Hips.quaternion", []float64{0, 2}, []float64{0, 0, 0, 1, 0, 0, 0, 1}),
		NewVectorTrack("Hips.position", []float64{0}, []float64{1, 2, 3}),
		{Kind: KindColor, Name: "Mat.color", Times: []float64{0}, Values: []float64{1, 0, 0}},
		{Kind: KindBoolean, Name: "Hat.visible", Times: []float64{0, 1}, Bools: []bool{true, false}},
		{Kind: KindString, Name: "Face.material", Times: []float64{0}, Strings: []string{"smile"}, Interpolation: InterpolateDiscrete},
	})

	data, err := Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"quaternion"`)
	assert.Contains(t, string(data), `"type":"bool"`)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, c, back)

	_, err = Unmarshal([]byte(`{"name":"x","tracks":[{"type":"matrix","name":"a.b","times":[0],"values":[1]}]}`))
	assert.Equal(t, diag.IOAdjacent, diag.KindOf(err))

	derived, err := Unmarshal([]byte(`{"name":"x","tracks":[{"type":"number","name":"a.b","times":[0,4],"values":[1,2]}]}`))
	require.NoError(t, err)
	assert.Equal(t, 4.0, derived.Duration)
}

func TestCollection(t *testing.T) {
	walk := New("walk", 1, []*Track{NewVectorTrack("Hips.position", []float64{0}, []float64{1, 2, 3})})
	col := NewCollection(walk, New("", 2, nil))

	assert.Equal(t, []string{"walk", UnnamedClip}, col.Names())

	i, found := col.Find("walk")
	assert.Equal(t, 0, i)
	assert.Same(t, walk, found)
	i, _ = col.Find("Walk")
	assert.Equal(t, -1, i)

	_, err := col.Rename(0, "   ")
	assert.Equal(t, diag.InvalidInput, diag.KindOf(err))
	renamed, err := col.Rename(0, "  run ")
	require.NoError(t, err)
	assert.Equal(t, "run", renamed.Name)
	assert.Equal(t, "walk", walk.Name)

	di, err := col.Duplicate(0)
	require.NoError(t, err)
	dup, _ := col.At(di)
	assert.Equal(t, "run (copy)", dup.Name)
	dup.Tracks[0].Values[0] = 42
	assert.Equal(t, 1.0, walk.Tracks[0].Values[0])

	di, err = col.Duplicate(1)
	require.NoError(t, err)
	dup, _ = col.At(di)
	assert.Equal(t, "Unnamed (copy)", dup.Name)

	require.NoError(t, col.Remove(1))
	assert.Equal(t, 3, col.Len())
	assert.Error(t, col.Remove(3))
	_, err = col.At(-1)
	assert.Error(t, err)

	col.Load(nil)
	assert.Equal(t, 0, col.Len())
}

func TestUnmarshalDurationCoversLastKey(t *testing.T) {
	short, err := Unmarshal([]byte(`{"name":"x","duration":1,"tracks":[{"type":"number","name":"a.b","times":[0,4],"values":[1,2]}]}`))
	require.NoError(t, err)
	assert.Equal(t, 4.0, short.Duration)

	long, err := Unmarshal([]byte(`{"name":"x","duration":6,"tracks":[{"type":"number","name":"a.b","times":[0,4],"values":[1,2]}]}`))
	require.NoError(t, err)
	assert.Equal(t, 6.0, long.Duration)
}
