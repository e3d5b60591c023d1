package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrooms/internal/chat"
	"github.com/Tyrowin/chatrooms/internal/protocol"
	"github.com/Tyrowin/chatrooms/internal/server"
)

const testOrigin = "http://localhost:8080"

func startServer(t *testing.T) (*server.Hub, *httptest.Server) {
	t.Helper()
	cfg := server.NewConfig()
	hub := server.NewHub(chat.NewEngine(), cfg)
	go hub.Run()

	ts := httptest.NewServer(server.SetupRoutes(hub))
	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
	})
	return hub, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	headers := http.Header{}
	headers.Set("Origin", testOrigin)
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, resp, err := dialer.Dial(wsURL(ts), headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func command(t *testing.T, conn *websocket.Conn, cmd protocol.Command) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(cmd))
}

func next(t *testing.T, conn *websocket.Conn) protocol.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	evt, err := protocol.DecodeEvent(data)
	require.NoError(t, err)
	return evt
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame %s", data)
}

func TestWebSocketLobbyScenario(t *testing.T) {
	_, ts := startServer(t)
	alice, bob := dial(t, ts), dial(t, ts)

	command(t, alice, protocol.Command{Action: protocol.ActionCreate, Room: "lobby", User: "alice"})
	assert.Equal(t, protocol.Event{Event: "RoomCreated", Room: "lobby", Args: []string{"lobby"}}, next(t, alice))
	assert.Equal(t, protocol.Event{Event: "UserJoined", Room: "lobby", Args: []string{"alice"}}, next(t, alice))

	command(t, bob, protocol.Command{Action: protocol.ActionJoin, Room: "lobby", User: "bob"})
	assert.Equal(t, []string{"bob"}, next(t, alice).Args)
	assert.Equal(t, []string{"bob"}, next(t, bob).Args)

	command(t, alice, protocol.Command{Action: protocol.ActionSend, Room: "lobby", User: "alice", Message: "hi"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		evt := next(t, conn)
		assert.Equal(t, "ReceiveMessage", evt.Event)
		assert.Equal(t, []string{"alice", "hi"}, evt.Args)
	}

	command(t, bob, protocol.Command{Action: protocol.ActionLeave, Room: "lobby", User: "bob"})
	assert.Equal(t, "UserLeft", next(t, bob).Event)
	assert.Equal(t, "UserLeft", next(t, alice).Event)

	command(t, bob, protocol.Command{Action: protocol.ActionSend, Room: "lobby", User: "bob", Message: "hi"})
	evt := next(t, bob)
	assert.Equal(t, protocol.EventError, evt.Event)
	assert.Equal(t, "SenderNotMember", evt.Args[0])
	expectSilence(t, alice)
}

func TestWebSocketDisconnectCleanup(t *testing.T) {
	hub, ts := startServer(t)
	alice, bob := dial(t, ts), dial(t, ts)

	command(t, alice, protocol.Command{Action: protocol.ActionCreate, Room: "lobby", User: "alice"})
	next(t, alice)
	next(t, alice)
	command(t, bob, protocol.Command{Action: protocol.ActionJoin, Room: "lobby", User: "bob"})
	next(t, alice)
	next(t, bob)

	require.NoError(t, bob.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.NoError(t, bob.Close())

	evt := next(t, alice)
	assert.Equal(t, "UserLeft", evt.Event)
	assert.Equal(t, []string{"bob"}, evt.Args)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	members, err := hub.Engine().Members("lobby")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)
}

func TestWebSocketRejectsMalformedFrames(t *testing.T) {
	_, ts := startServer(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	evt := next(t, conn)
	assert.Equal(t, protocol.EventError, evt.Event)
	assert.Equal(t, protocol.KindBadRequest, evt.Args[0])

	command(t, conn, protocol.Command{Action: protocol.ActionJoin, Room: "missing", User: "x"})
	assert.Equal(t, "RoomNotFound", next(t, conn).Args[0], "connection stays usable after a bad frame")
}

func TestWebSocketDisallowedOrigin(t *testing.T) {
	_, ts := startServer(t)
	headers := http.Header{}
	headers.Set("Origin", "https://evil.example.com")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), headers)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketEndpointRejectsPost(t *testing.T) {
	_, ts := startServer(t)
	resp, err := http.Post(ts.URL+"/ws", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRoomsEndpoint(t *testing.T) {
	hub, ts := startServer(t)
	require.NoError(t, hub.Engine().CreateRoom("lobby", "alice"))
	_, err := hub.Engine().JoinRoom("lobby", "bob")
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var rooms []chat.RoomSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	assert.Equal(t, []chat.RoomSummary{{Name: "lobby", Participants: []string{"alice", "bob"}}}, rooms)
}

func TestHealthAndTestPage(t *testing.T) {
	_, ts := startServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))

	resp, err = http.Get(ts.URL + "/test")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
}

func TestServeStopsOnContextCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := server.NewConfig()
	cfg.ShutdownTimeout = 2 * time.Second
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- server.Serve(ctx, cfg, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
