package api

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

	"github.com/alexeynau/rdev/internal/input"
	"github.com/alexeynau/rdev/internal/protocol"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, token string) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(Options{
		Token:   token,
		Version: "test",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Shutdown(context.Background())
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env protocol.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestHealthSkipsAuth(t *testing.T) {
	_, ts := newTestServer(t, "secret")

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestStatusRequiresToken(t *testing.T) {
	s, ts := newTestServer(t, "secret")
	s.SetSession("abc", true, true)

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 with token, got %d", resp.StatusCode)
	}

	var status protocol.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Session != "abc" || !status.Listening || !status.KeyboardOnly || status.Version != "test" {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestStatusAcceptsQueryToken(t *testing.T) {
	_, ts := newTestServer(t, "secret")

	resp, err := http.Get(ts.URL + "/api/status?token=secret")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestWebSocketHelloThenEvents(t *testing.T) {
	s, ts := newTestServer(t, "")
	s.SetSession("session-1", true, false)

	conn := dial(t, ts, nil)

	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeHello {
		t.Fatalf("Expected hello first, got %q", env.Type)
	}
	var hello protocol.HelloPayload
	json.Unmarshal(env.Payload, &hello)
	if hello.Session != "session-1" || hello.Version != "test" {
		t.Errorf("Unexpected hello %+v", hello)
	}

	s.BroadcastEvent(input.Event{Type: input.EventType{Kind: input.KindKeyPress, Key: "A"}, PlatformCode: 65})
	s.BroadcastEvent(input.Event{Type: input.EventType{Kind: input.KindKeyRelease, Key: "A"}, PlatformCode: 65})

	for i, want := range []input.EventKind{input.KindKeyPress, input.KindKeyRelease} {
		env := readEnvelope(t, conn)
		if env.Type != protocol.TypeEvent {
			t.Fatalf("Expected event, got %q", env.Type)
		}
		var p protocol.EventPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if p.Event.Type.Kind != want || p.Seq != uint64(i+1) || p.Session != "session-1" {
			t.Errorf("event %d: unexpected payload %+v", i, p)
		}
	}

	if got := s.Status().Clients; got != 1 {
		t.Errorf("Expected 1 client, got %d", got)
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	_, ts := newTestServer(t, "secret")

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, http.Header{"Authorization": {"Bearer wrong"}})
	if err == nil {
		t.Fatal("Expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 response, got %+v", resp)
	}
}

func TestShutdownClosesSubscribers(t *testing.T) {
	s, ts := newTestServer(t, "")
	conn := dial(t, ts, nil)
	readEnvelope(t, conn) // hello

	s.Shutdown(context.Background())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("Expected connection closed after shutdown")
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, ts := newTestServer(t, "")

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(u, header)
	if err == nil {
		t.Fatal("Expected handshake to fail for a foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}

	// The page served by the feed itself connects from the same origin
	conn := dial(t, ts, http.Header{"Origin": {ts.URL}})
	if env := readEnvelope(t, conn); env.Type != protocol.TypeHello {
		t.Errorf("Expected hello, got %q", env.Type)
	}
}

func TestUIRejectsForeignOriginPost(t *testing.T) {
	var reached bool
	s := NewServer(Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		UI:     http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true }),
	})
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	h := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "http://127.0.0.1:18090/api/config", strings.NewReader(`{}`))
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden || reached {
		t.Errorf("Expected 403 before the UI, got %d (reached=%v)", rec.Code, reached)
	}

	req = httptest.NewRequest(http.MethodPost, "http://127.0.0.1:18090/api/config", strings.NewReader(`{}`))
	req.Header.Set("Origin", "http://127.0.0.1:18090")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if !reached {
		t.Errorf("Expected same-origin request to reach the UI, got %d", rec.Code)
	}
}

func TestNoTokenRequiresLoopbackHost(t *testing.T) {
	s := NewServer(Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	h := s.Handler()

	tests := map[string]int{
		"127.0.0.1:18090":       http.StatusOK,
		"localhost:18090":       http.StatusOK,
		"[::1]:18090":           http.StatusOK,
		"rebound.example:18090": http.StatusForbidden,
		"192.168.1.20:18090":    http.StatusForbidden,
	}
	for host, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s: expected %d, got %d", host, want, rec.Code)
		}
	}

	// With a token any host may connect
	withToken := NewServer(Options{Token: "secret", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(func() { withToken.Shutdown(context.Background()) })
	req := httptest.NewRequest(http.MethodGet, "/api/status?token=secret", nil)
	req.Host = "192.168.1.20:18090"
	rec := httptest.NewRecorder()
	withToken.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", rec.Code)
	}
}

func TestListenAddr(t *testing.T) {
	if got := ListenAddr(18090, ""); got != "127.0.0.1:18090" {
		t.Errorf("Expected loopback bind without token, got %q", got)
	}
	if got := ListenAddr(18090, "secret"); got != ":18090" {
		t.Errorf("Expected all interfaces with token, got %q", got)
	}
}
