/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

var nopLog = zerolog.Nop()

type mockNavigator struct {
	mock.Mock
}

func (m *mockNavigator) Notice(msg string) {
	m.Called(msg)
}

func (m *mockNavigator) ToLobby() {
	m.Called()
}

// serverConn is one websocket accepted by the fake room server. frames is
// closed when the client goes away.
type serverConn struct {
	conn   *websocket.Conn
	frames chan Envelope
}

func (c *serverConn) send(t *testing.T, typ EventType, payload any) {
	t.Helper()

	data, err := encodeFrame(typ, payload)
	require.NoError(t, err)
	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, data))
}

func (c *serverConn) sendRaw(t *testing.T, data string) {
	t.Helper()

	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

func (c *serverConn) next(t *testing.T) Envelope {
	t.Helper()

	select {
	case env, ok := <-c.frames:
		require.True(t, ok, "connection closed before a frame arrived")
		return env
	case <-time.After(waitTimeout):
		require.FailNow(t, "timed out waiting for a client frame")
	}
	return Envelope{}
}

// waitClosed drains frames until the client side hangs up.
func (c *serverConn) waitClosed(t *testing.T) {
	t.Helper()

	deadline := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-c.frames:
			if !ok {
				return
			}
		case <-deadline:
			require.FailNow(t, "timed out waiting for the client to close")
		}
	}
}

// fakeRoomServer speaks just enough of the room service for the client:
// the /ws endpoint and the join and leave calls.
type fakeRoomServer struct {
	srv   *httptest.Server
	base  *url.URL
	conns chan *serverConn

	gate chan struct{}

	mu    sync.Mutex
	open  []*websocket.Conn
	join  func(code string, req JoinRoomRequest) (int, any)
	joins atomic.Int32
}

func newFakeRoomServer(t *testing.T) *fakeRoomServer {
	t.Helper()

	f := &fakeRoomServer{
		conns: make(chan *serverConn, 8),
		gate:  make(chan struct{}),
	}
	close(f.gate)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	mux := httprouter.New()

	mux.GET("/ws", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		f.mu.Lock()
		gate := f.gate
		f.mu.Unlock()

		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		f.mu.Lock()
		f.open = append(f.open, conn)
		f.mu.Unlock()

		sc := &serverConn{conn: conn, frames: make(chan Envelope, 64)}
		go func() {
			defer close(sc.frames)
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var env Envelope
				if json.Unmarshal(data, &env) == nil {
					sc.frames <- env
				}
			}
		}()

		f.conns <- sc
	})

	mux.POST("/rooms/:code/join", func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		f.joins.Add(1)

		var req JoinRoomRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		status, body := http.StatusNotFound, any(map[string]string{"error": "Room not found"})
		f.mu.Lock()
		join := f.join
		f.mu.Unlock()
		if join != nil {
			status, body = join(p.ByName("code"), req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		f.release()
		f.mu.Lock()
		for _, c := range f.open {
			_ = c.Close()
		}
		f.mu.Unlock()
		f.srv.Close()
	})

	base, err := url.Parse(f.srv.URL)
	require.NoError(t, err)
	f.base = base

	return f
}

// hold keeps websocket handshakes pending until release is called, leaving
// clients stuck in connecting.
func (f *fakeRoomServer) hold() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gate = make(chan struct{})
}

func (f *fakeRoomServer) release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case <-f.gate:
	default:
		close(f.gate)
	}
}

func (f *fakeRoomServer) wsURL() string {
	return websocketURL(f.base)
}

func (f *fakeRoomServer) onJoin(fn func(code string, req JoinRoomRequest) (int, any)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.join = fn
}

func (f *fakeRoomServer) accept(t *testing.T) *serverConn {
	t.Helper()

	select {
	case sc := <-f.conns:
		return sc
	case <-time.After(waitTimeout):
		require.FailNow(t, "timed out waiting for a websocket connection")
	}
	return nil
}

func (f *fakeRoomServer) expectNoConn(t *testing.T, within time.Duration) {
	t.Helper()

	select {
	case <-f.conns:
		require.FailNow(t, "unexpected websocket connection")
	case <-time.After(within):
	}
}

func decodeRef(t *testing.T, env Envelope) roomRef {
	t.Helper()

	var ref roomRef
	require.NoError(t, json.Unmarshal(env.Payload, &ref))
	return ref
}

func testRoom(code string, status RoomStatus, players ...PlayerSummary) *RoomSnapshot {
	return &RoomSnapshot{
		ID:         "room-" + code,
		Code:       code,
		HostID:     "p1",
		Status:     status,
		MaxPlayers: 4,
		Players:    players,
		CreatedAt:  "2024-01-01T00:00:00",
	}
}

func testGame(status GameStatus) GameStateSnapshot {
	return GameStateSnapshot{
		RoomID:       "room-ABCD",
		Status:       status,
		PlayersOrder: []string{"p1", "p2"},
		CurrentTurn:  "p1",
	}
}

func newTestStores(t *testing.T) (*IdentityStore, *SessionCache) {
	t.Helper()

	return NewIdentityStore(NewVolatileStorage(), nopLog), NewSessionCache(NewVolatileStorage(), nopLog)
}

func withTimeout(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
