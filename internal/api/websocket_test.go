// internal/api/websocket_test.go
package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *ChangeHub) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestChangeHubBroadcast(t *testing.T) {
	hub := NewChangeHub()
	t.Cleanup(hub.Stop)
	conn := dialHub(t, hub)

	hello := readMessage(t, conn)
	assert.Equal(t, "connected", hello["type"])

	hub.NotifyChange("project", map[string]interface{}{"chapter_id": "c1"})
	msg := readMessage(t, conn)
	assert.Equal(t, "state_changed", msg["type"])
	assert.Equal(t, "project", msg["topic"])
	data, ok := msg["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "c1", data["chapter_id"])

	assert.Eventually(t, func() bool {
		return hub.Status()["clients"] == 1
	}, time.Second, 10*time.Millisecond)
}

func TestChangeHubStopClosesFeeds(t *testing.T) {
	hub := NewChangeHub()
	conn := dialHub(t, hub)
	readMessage(t, conn)

	hub.Stop()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// notifying a stopped hub must not block
	done := make(chan struct{})
	go func() {
		hub.NotifyChange("view", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyChange blocked after Stop")
	}
}
