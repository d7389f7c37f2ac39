package twitch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"StreamPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lgr
}

func newChatServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// A server that goes quiet must surface a read error through the error
// channel so the adapter can reconnect, not take the process down.
func TestReadSurfacesIdleTimeout(t *testing.T) {
	url := newChatServer(t, func(conn *websocket.Conn) {
		// drain the handshake and keep-alive probes, never answer
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New("token", "nick", "general", url, 200*time.Millisecond, testLogger(t))
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()
	if err := c.Join(ctx); err != nil {
		t.Fatalf("join: %v", err)
	}

	_, errs := c.Read(ctx)
	select {
	case err := <-errs:
		if err == nil {
			t.Fatalf("error channel closed without an error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("idle connection never surfaced a read error")
	}
}

// Keep-alive probes answered by the server must hold the connection open
// across several idle windows, so a message arriving late is still delivered.
func TestKeepAliveSustainsQuietConnection(t *testing.T) {
	var pings atomic.Int64
	url := newChatServer(t, func(conn *websocket.Conn) {
		quietUntil := time.Now().Add(600 * time.Millisecond)
		for time.Now().Before(quietUntil) {
			_, b, err := conn.ReadMessage()
			if err != nil {
				return
			}
			for _, line := range strings.Split(string(b), "\r\n") {
				if strings.HasPrefix(line, "PING") {
					pings.Add(1)
					if err := conn.WriteMessage(websocket.TextMessage,
						[]byte("PONG :streampulse\r\n")); err != nil {
						return
					}
				}
			}
		}
		if err := conn.WriteMessage(websocket.TextMessage,
			[]byte(":alice!alice@alice.tmi.twitch.tv PRIVMSG #general :late but alive\r\n")); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New("token", "nick", "general", url, 200*time.Millisecond, testLogger(t))
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()
	if err := c.Join(ctx); err != nil {
		t.Fatalf("join: %v", err)
	}

	msgs, errs := c.Read(ctx)
	select {
	case m := <-msgs:
		if m.Author != "alice" || m.Text != "late but alive" {
			t.Fatalf("unexpected message %+v", m)
		}
	case err := <-errs:
		t.Fatalf("connection dropped before the late message: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatalf("late message never delivered")
	}

	if pings.Load() == 0 {
		t.Fatalf("no keep-alive probes reached the server")
	}
}
