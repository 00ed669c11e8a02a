package hass

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jwulff/deckhand/internal/domain"
	"github.com/stretchr/testify/require"
)

const testToken = "secret-token"

var upgrader = websocket.Upgrader{}

// fakeServer speaks just enough of the Home Assistant websocket API.
type fakeServer struct {
	srv    *httptest.Server
	token  string
	states []domain.EntityState
	silent bool
	conns  chan *fakeConn
}

type fakeConn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	frames chan map[string]any
	done   chan struct{}
}

func newFakeServer(t *testing.T, states ...domain.EntityState) *fakeServer {
	fs := &fakeServer{
		token:  testToken,
		states: states,
		conns:  make(chan *fakeConn, 8),
	}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) URL() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http") + "/api/websocket"
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	c := &fakeConn{ws: ws, frames: make(chan map[string]any, 64), done: make(chan struct{})}
	defer close(c.done)

	if fs.silent {
		_, _, _ = ws.ReadMessage()
		return
	}

	c.send(map[string]any{"type": "auth_required", "ha_version": "2026.1.0"})
	var auth map[string]any
	if err := ws.ReadJSON(&auth); err != nil {
		return
	}
	if auth["type"] != "auth" || auth["access_token"] != fs.token {
		c.send(map[string]any{"type": "auth_invalid", "message": "Invalid access token"})
		return
	}
	c.send(map[string]any{"type": "auth_ok"})
	fs.conns <- c

	for {
		var frame map[string]any
		if err := ws.ReadJSON(&frame); err != nil {
			return
		}
		c.frames <- frame
		id := frame["id"]
		switch frame["type"] {
		case TypeGetStates:
			c.send(map[string]any{"id": id, "type": "result", "success": true, "result": fs.states})
		case TypeSubscribeEvents, TypeCallService:
			c.send(map[string]any{"id": id, "type": "result", "success": true, "result": nil})
		}
	}
}

func (fs *fakeServer) accept(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-fs.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no authenticated connection")
		return nil
	}
}

func (c *fakeConn) send(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteJSON(v)
}

func (c *fakeConn) sendRaw(data string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteMessage(websocket.TextMessage, []byte(data))
}

func (c *fakeConn) sendStateChanged(id string, state string, attrs map[string]any) {
	c.send(map[string]any{
		"id":   2,
		"type": "event",
		"event": map[string]any{
			"event_type": "state_changed",
			"data": map[string]any{
				"entity_id": id,
				"new_state": map[string]any{"entity_id": id, "state": state, "attributes": attrs},
			},
		},
	})
}

func (c *fakeConn) close() {
	_ = c.ws.Close()
}

func (c *fakeConn) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case f := <-c.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

// expectSubscribed consumes the get_states and subscribe_events requests.
func (c *fakeConn) expectSubscribed(t *testing.T) {
	t.Helper()
	first := c.next(t)
	require.Equal(t, TypeGetStates, first["type"])
	require.Equal(t, float64(1), first["id"])

	second := c.next(t)
	require.Equal(t, TypeSubscribeEvents, second["type"])
	require.Equal(t, float64(2), second["id"])
	require.Equal(t, EventStateChanged, second["event_type"])
}

type notifyRecorder struct {
	ch chan domain.EntityState
}

func newNotifyRecorder() *notifyRecorder {
	return &notifyRecorder{ch: make(chan domain.EntityState, 64)}
}

func (n *notifyRecorder) Notify(state domain.EntityState) {
	n.ch <- state
}

func (n *notifyRecorder) next(t *testing.T) domain.EntityState {
	t.Helper()
	select {
	case s := <-n.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
		return domain.EntityState{}
	}
}

func testConfig(url string) Config {
	cfg := DefaultConfig(url, testToken)
	cfg.AuthTimeout = time.Second
	cfg.ReconnectDelay = 50 * time.Millisecond
	cfg.PingInterval = 0
	return cfg
}
