package status

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	return conn
}

func readStatus(t *testing.T, conn *websocket.Conn) Status {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var s Status
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	h.Info("loaded %d bones", 52)

	conn := dial(t, srv)
	defer conn.Close()

	s := readStatus(t, conn)
	assert.Equal(t, "loaded 52 bones", s.Message, "last message replayed on connect")
	assert.Equal(t, INFO, s.Type)

	require.Eventually(t, func() bool { return h.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)
	h.Progress(0.5, "retargeting %s", "walk")
	s = readStatus(t, conn)
	assert.Equal(t, PROGRESS, s.Type)
	assert.Equal(t, float32(0.5), s.Progress)
}

func TestPublishSanitizesProgress(t *testing.T) {
	h := NewHub()
	h.Progress(float32(1)/float32(zero()), "x")
	var s Status
	require.NoError(t, json.Unmarshal(h.Last(), &s))
	assert.Equal(t, float32(0), s.Progress)
	assert.False(t, s.Time.IsZero())
}

func zero() float64 { return 0 }
