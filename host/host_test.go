package host

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/retargeter/diag"
	"github.com/mogaika/retargeter/status"
)

func TestLocalFiles(t *testing.T) {
	l := NewLocal(t.TempDir(), nil)

	full, err := l.SaveFile("animations/walk.glb", []byte("glb"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.Dir, "animations", "walk.glb"), full)
	_, err = l.SaveFile("model.GLTF", []byte("{}"))
	require.NoError(t, err)
	_, err = l.SaveFile("notes.txt", []byte("x"))
	require.NoError(t, err)

	files, err := l.OpenFileDialog([]string{".glb", ".gltf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"animations/walk.glb", "model.GLTF"}, files)

	all, err := l.OpenFileDialog(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	data, err := l.ReadFile("animations/walk.glb")
	require.NoError(t, err)
	assert.Equal(t, "glb", string(data))

	_, err = l.ReadFile("missing.glb")
	assert.True(t, diag.Is(err, diag.IOAdjacent))
	_, err = l.ReadFile("../outside")
	assert.True(t, diag.Is(err, diag.InvalidInput))
}

func TestLocalNotifications(t *testing.T) {
	hub := status.NewHub()
	var h Host = NewLocal(t.TempDir(), hub)
	h.ShowNotification(Warning, "2 tracks dropped")

	// the hub keeps the last message for clients connecting later
	s := lastStatus(t, hub)
	assert.Equal(t, "2 tracks dropped", s.Message)
	assert.Equal(t, status.WARNING, s.Type)

	NewLocal(t.TempDir(), nil).ShowNotification(Error, "no hub")
}

func lastStatus(t *testing.T, hub *status.Hub) status.Status {
	var s status.Status
	require.NoError(t, json.Unmarshal(hub.Last(), &s))
	return s
}
