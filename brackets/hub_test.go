package brackets

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, r.URL.Query().Get("room"))
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, room string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?room=" + room
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastToRoom(t *testing.T) {
	hub, srv := startHub(t)
	room := TournamentRoom(7)
	conn := dial(t, srv, room)

	require.Eventually(t, func() bool { return hub.ClientCount(room) == 1 }, time.Second, 10*time.Millisecond)

	delivered := hub.BroadcastToRoom(room, Message{Type: EventMatchConfirmed, Payload: map[string]int{"match_id": 3}, RoomID: room})
	assert.Equal(t, 1, delivered)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
		RoomID  string         `json:"room_id"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, EventMatchConfirmed, msg.Type)
	assert.Equal(t, 3, msg.Payload["match_id"])
	assert.Equal(t, room, msg.RoomID)
}

func TestHubNotifyWithoutSubscribers(t *testing.T) {
	hub, _ := startHub(t)
	err := hub.Notify(context.Background(), 42, "hello")
	assert.ErrorIs(t, err, ErrNoSubscribers)
}

func TestHubNotifyUserRoom(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, UserRoom(42))
	require.Eventually(t, func() bool { return hub.ClientCount(UserRoom(42)) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Notify(context.Background(), 42, "deadline soon"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "deadline soon")
	assert.Contains(t, string(data), EventNotification)
}
