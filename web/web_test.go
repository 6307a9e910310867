package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/retargeter/clip"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/gltfio"
	"github.com/mogaika/retargeter/host"
	"github.com/mogaika/retargeter/skeleton"
	"github.com/mogaika/retargeter/status"
	"github.com/mogaika/retargeter/studio"
)

func chain(t *testing.T, prefix string) *skeleton.Skeleton {
	descs := []skeleton.BoneDesc{}
	for i, name := range []string{"Hips", "Spine", "Head"} {
		tr := skeleton.IdentityTransform()
		tr.Position = mgl64.Vec3{0, 0.25, 0}
		descs = append(descs, skeleton.BoneDesc{Name: prefix + name, Parent: i - 1, Local: tr})
	}
	s, err := skeleton.New(descs)
	require.NoError(t, err)
	return s
}

func newServer(t *testing.T) *httptest.Server {
	h := host.NewLocal(t.TempDir(), nil)
	save := func(name string, s *skeleton.Skeleton, clips ...*clip.Clip) {
		var buf bytes.Buffer
		require.NoError(t, gltfio.Export(&buf, s, clips, nil))
		_, err := h.SaveFile(name, buf.Bytes())
		require.NoError(t, err)
	}
	save("target.glb", chain(t, ""))
	q := mgl64.QuatRotate(1, mgl64.Vec3{1, 0, 0})
	save("source.glb", chain(t, "mixamorig:"), clip.New("nod", 1, []*clip.Track{
		clip.NewQuaternionTrack("mixamorig:Head.quaternion", []float64{0, 1},
			[]float64{0, 0, 0, 1, q.V[0], q.V[1], q.V[2], q.W}),
	}))

	hub := status.NewHub()
	s := &Server{Studio: studio.New(config.Default(), h, nil), Hub: hub, Host: h}
	srv := httptest.NewServer(s.Router(""))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, url string, v interface{}) *http.Response {
	resp, err := http.Get(srv.URL + url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if v != nil {
		require.NoError(t, json.Unmarshal(data, v), string(data))
	}
	return resp
}

func TestApiFlow(t *testing.T) {
	srv := newServer(t)

	var jerr struct{ Error, Kind string }
	resp := get(t, srv, "/action/clip/0/play", &jerr)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "not_initialized", jerr.Kind)

	var files []string
	get(t, srv, "/json/files", &files)
	assert.Equal(t, []string{"source.glb", "target.glb"}, files)

	resp = get(t, srv, "/action/load/target", &jerr)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, srv, "/action/load/target?file=target.glb", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = get(t, srv, "/action/load/source?file=source.glb", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var mapping []map[string]string
	get(t, srv, "/json/mapping", &mapping)
	assert.Len(t, mapping, 3)

	resp = get(t, srv, "/action/retarget", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var clips []studio.ClipInfo
	get(t, srv, "/json/clips", &clips)
	require.Len(t, clips, 1)
	assert.Equal(t, "nod", clips[0].Name)

	var pb map[string]interface{}
	get(t, srv, "/action/clip/0/play", &pb)
	assert.Equal(t, "playing", pb["state"])
	get(t, srv, "/action/playback/scrub?progress=0.5", &pb)
	assert.InDelta(t, 0.5, pb["time"], 1e-9)
	resp = get(t, srv, "/action/playback/scrub?progress=half", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	get(t, srv, "/action/playback/pause", &pb)
	assert.Equal(t, "paused", pb["state"])

	var frames []studio.FramePose
	get(t, srv, "/dump/frames/0?fps=2", &frames)
	assert.Len(t, frames, 3)

	resp, err := http.Get(srv.URL + "/dump/export.glb")
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "target.glb")
	m, err := gltfio.Decode("export", data)
	require.NoError(t, err)
	assert.Len(t, m.Clips, 1)
}

func TestOptionsAndProjectUpload(t *testing.T) {
	srv := newServer(t)
	get(t, srv, "/action/load/target?file=target.glb", nil)

	resp, err := http.Post(srv.URL+"/json/options", "application/json",
		strings.NewReader(`{"useWorldSpaceTransformation": true}`))
	require.NoError(t, err)
	resp.Body.Close()
	var opts config.RetargetOptions
	get(t, srv, "/json/options", &opts)
	assert.True(t, opts.UseWorldSpaceTransformation)
	assert.True(t, opts.PreserveRootMotion, "fields missing in the body keep their values")

	resp, err = http.Get(srv.URL + "/dump/project")
	require.NoError(t, err)
	archive, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("data", "hero.zip")
	require.NoError(t, err)
	fw.Write(archive)
	require.NoError(t, mw.Close())

	resp, err = http.Post(srv.URL+"/upload/project", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var info struct {
		Target  *struct{ Name string }
		Options config.RetargetOptions
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.NotNil(t, info.Target)
	assert.Equal(t, "target", info.Target.Name)
	assert.True(t, info.Options.UseWorldSpaceTransformation)
}
