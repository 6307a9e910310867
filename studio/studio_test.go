package studio

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/retargeter/bonemap"
	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/gltfio"
	"github.com/mogaika/retargeter/host"
	"github.com/mogaika/retargeter/playback"
	"github.com/mogaika/retargeter/skeleton"
	"github.com/mogaika/retargeter/utils"
)

var wave = mgl64.QuatRotate(1, mgl64.Vec3{0, 1, 0})

func chain(t *testing.T, prefix string) *skeleton.Skeleton {
	names := []string{"Hips", "Spine", "Head"}
	descs := make([]skeleton.BoneDesc, len(names))
	for i, name := range names {
		tr := skeleton.IdentityTransform()
		tr.Position = mgl64.Vec3{0, 0.25, 0}
		if i == 0 {
			tr.Position = mgl64.Vec3{0, 1, 0}
		}
		descs[i] = skeleton.BoneDesc{Name: prefix + name, Parent: i - 1, Local: tr}
	}
	s, err := skeleton.New(descs)
	require.NoError(t, err)
	return s
}

func writeGLB(t *testing.T, h *host.Local, name string, s *skeleton.Skeleton, clips ...*clip.Clip) {
	var buf bytes.Buffer
	require.NoError(t, gltfio.Export(&buf, s, clips, nil))
	_, err := h.SaveFile(name, buf.Bytes())
	require.NoError(t, err)
}

func rotationOf(p FramePose, bone string) mgl64.Quat {
	for _, b := range p.Bones {
		if b.Name == bone {
			return mgl64.Quat{W: b.Rotation[3], V: mgl64.Vec3{b.Rotation[0], b.Rotation[1], b.Rotation[2]}}
		}
	}
	return mgl64.Quat{}
}

func newSession(t *testing.T) (*Studio, *host.Local) {
	dir := t.TempDir()
	h := host.NewLocal(dir, nil)
	writeGLB(t, h, "target.glb", chain(t, ""))
	writeGLB(t, h, "source.glb", chain(t, "mixamorig:"), clip.New("wave", 1, []*clip.Track{
		clip.NewQuaternionTrack("mixamorig:Spine.quaternion", []float64{0, 1},
			[]float64{0, 0, 0, 1, wave.V[0], wave.V[1], wave.V[2], wave.W}),
	}))

	lib, err := bonemap.OpenLibrary(filepath.Join(dir, "mappings"))
	require.NoError(t, err)
	return New(config.Default(), h, lib), h
}

func TestRetargetSession(t *testing.T) {
	st, _ := newSession(t)

	_, err := st.Retarget()
	assert.True(t, diag.Is(err, diag.InvalidInput), "nothing loaded")

	sum, err := st.LoadTarget("target.glb")
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Stats.BoneCount)
	assert.Equal(t, "Hips", sum.Stats.FunctionalRoot)

	_, err = st.LoadTarget("missing.glb")
	assert.True(t, diag.Is(err, diag.IOAdjacent))

	sum, err = st.LoadSource("source.glb")
	require.NoError(t, err)
	require.Len(t, sum.Clips, 1)
	assert.Equal(t, map[string]string{
		"mixamorig:Hips":  "Hips",
		"mixamorig:Spine": "Spine",
		"mixamorig:Head":  "Head",
	}, bonemap.FromEntries(st.Mapping()).Map())

	indices, err := st.Retarget()
	require.NoError(t, err)
	assert.Equal(t, []int{0}, indices)

	out, err := st.Clip(0)
	require.NoError(t, err)
	assert.Equal(t, "wave", out.Name)
	spine := out.Track("Spine.rotation")
	require.NotNil(t, spine)
	assert.True(t, utils.QuatApproxEqual(wave, spine.Quat(1), 1e-6))

	info := st.Info()
	require.NotNil(t, info.Compatibility)
	assert.True(t, info.Compatibility.Compatible)
	assert.Equal(t, 3, info.Mapping)
	assert.NotNil(t, st.Context())
}

func TestPlayback(t *testing.T) {
	st, _ := newSession(t)
	_, err := st.Play(0)
	assert.True(t, diag.Is(err, diag.NotInitialized))

	_, err = st.LoadTarget("target.glb")
	require.NoError(t, err)
	_, err = st.LoadSource("source.glb")
	require.NoError(t, err)
	_, err = st.Retarget()
	require.NoError(t, err)

	p, err := st.Play(0)
	require.NoError(t, err)
	assert.Equal(t, playback.StatePlaying, p.State)
	assert.False(t, p.Loop)

	p = st.Tick(0.5)
	assert.InDelta(t, 0.5, p.Time, 1e-9)
	pose, err := st.Pose()
	require.NoError(t, err)
	half := mgl64.QuatSlerp(mgl64.QuatIdent(), wave, 0.5)
	assert.True(t, utils.QuatApproxEqual(half, rotationOf(pose, "Spine"), 1e-6))

	p = st.Tick(2)
	assert.Equal(t, playback.StateStopped, p.State, "LoopOnce finished")
	pose, err = st.Pose()
	require.NoError(t, err)
	assert.True(t, utils.QuatApproxEqual(wave, rotationOf(pose, "Spine"), 1e-6), "holds the last frame")

	p, err = st.Resume()
	require.NoError(t, err)
	assert.Equal(t, playback.StatePlaying, p.State)
	assert.InDelta(t, 0, p.Time, 1e-9, "restarted")

	p = st.Scrub(0.25)
	assert.InDelta(t, 0.25, p.Time, 1e-9)
	assert.InDelta(t, 0.25, p.Progress, 1e-9)

	assert.True(t, st.ToggleLoop().Loop)
	assert.Equal(t, playback.StatePaused, st.Pause().State)
	assert.Equal(t, playback.StateStopped, st.Stop().State)

	frames, err := st.Frames(0, 4)
	require.NoError(t, err)
	require.Len(t, frames, 5)
	assert.InDelta(t, 1, frames[4].Time, 1e-9)
	assert.True(t, utils.QuatApproxEqual(wave, rotationOf(frames[4], "Spine"), 1e-6))
	_, err = st.Frames(0, 0)
	assert.True(t, diag.Is(err, diag.InvalidInput))
}

func TestClipsAndExport(t *testing.T) {
	st, _ := newSession(t)
	_, err := st.LoadTarget("target.glb")
	require.NoError(t, err)
	_, err = st.LoadSource("source.glb")
	require.NoError(t, err)
	_, err = st.Retarget()
	require.NoError(t, err)

	dup, err := st.DuplicateClip(0)
	require.NoError(t, err)
	assert.Equal(t, 1, dup.Index)
	_, err = st.RenameClip(1, "  ")
	assert.True(t, diag.Is(err, diag.InvalidInput))
	renamed, err := st.RenameClip(1, "wave fast")
	require.NoError(t, err)
	assert.Equal(t, "wave fast", renamed.Name)

	data, _, err := st.Export(nil)
	require.NoError(t, err)
	m, err := gltfio.Decode("export", data)
	require.NoError(t, err)
	assert.Len(t, m.Clips, 2)
	assert.Equal(t, []string{"Hips", "Spine", "Head"}, m.Skeleton.Names())

	_, _, err = st.Export([]int{5})
	assert.Error(t, err)

	require.NoError(t, st.RemoveClip(0))
	assert.Len(t, st.Clips(), 1)
	assert.Equal(t, "wave fast", st.Clips()[0].Name)
}

func TestPresetsAndProject(t *testing.T) {
	st, h := newSession(t)
	_, err := st.LoadTarget("target.glb")
	require.NoError(t, err)
	_, err = st.LoadSource("source.glb")
	require.NoError(t, err)

	require.NoError(t, st.SavePreset("mixamo to plain"))
	assert.Contains(t, st.Presets(), "mixamo to plain")

	_, err = st.ClearMapping()
	require.NoError(t, err)
	assert.Empty(t, st.Mapping())
	missing, err := st.ApplyPreset("mixamo to plain")
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Len(t, st.Mapping(), 3)

	_, err = st.MapBone("mixamorig:Head", "Tail")
	assert.True(t, diag.Is(err, diag.InvalidInput))

	_, err = st.Retarget()
	require.NoError(t, err)
	opts := st.Options()
	opts.UseWorldSpaceTransformation = true
	st.SetOptions(opts)
	_, err = st.Play(0)
	require.NoError(t, err)
	st.Tick(0.5)

	data, err := st.SaveProject("hero.rtproj")
	require.NoError(t, err)
	saved, err := h.ReadFile("hero.rtproj")
	require.NoError(t, err)
	assert.Equal(t, data, saved)

	other := New(config.Default(), h, nil)
	info, err := other.OpenProject(data)
	require.NoError(t, err)
	require.NotNil(t, info.Target)
	assert.Nil(t, info.Source)
	assert.Equal(t, 3, info.Target.Stats.BoneCount)
	assert.Len(t, info.Clips, 1)
	assert.Equal(t, 3, info.Mapping)
	assert.True(t, info.Options.UseWorldSpaceTransformation)
	assert.Equal(t, playback.StatePaused, info.Playback.State)
	assert.InDelta(t, 0.5, info.Playback.Time, 1e-9)

	_, err = other.OpenProject([]byte("garbage"))
	assert.True(t, diag.Is(err, diag.IOAdjacent))
}
