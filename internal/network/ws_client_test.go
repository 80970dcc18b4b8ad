package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexeynau/rdev/internal/input"
	"github.com/alexeynau/rdev/internal/protocol"

	"github.com/gorilla/websocket"
)

// feedServer writes a hello and one event to every connection carrying the
// expected token.
func feedServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(protocol.Status{Version: "test", Session: "s1", Listening: true})
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(protocol.Message{Type: protocol.TypeHello, Payload: protocol.HelloPayload{Version: "test", Session: "s1"}})
		conn.WriteJSON(protocol.Message{Type: protocol.TypeEvent, Payload: protocol.EventPayload{
			Session: "s1",
			Seq:     1,
			Event:   input.Event{Type: input.EventType{Kind: input.KindWheel, DeltaY: 1}},
		}})
		// Hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestWSClientReceivesHelloAndEvents(t *testing.T) {
	ts := feedServer(t, "tok")

	hellos := make(chan protocol.HelloPayload, 1)
	events := make(chan protocol.EventPayload, 1)

	c := NewWSClient(strings.TrimPrefix(ts.URL, "http://"), "tok", discardLogger())
	c.OnHello = func(p protocol.HelloPayload) { hellos <- p }
	c.OnEvent = func(p protocol.EventPayload) { events <- p }
	c.Start()
	defer c.Close()

	select {
	case h := <-hellos:
		if h.Session != "s1" {
			t.Errorf("Expected session s1, got %q", h.Session)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hello")
	}

	select {
	case p := <-events:
		if p.Event.Type.Kind != input.KindWheel || p.Event.Type.DeltaY != 1 {
			t.Errorf("Unexpected event %+v", p.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	if !c.IsConnected() {
		t.Error("Expected client connected")
	}
}

func TestFetchStatus(t *testing.T) {
	ts := feedServer(t, "tok")
	addr := strings.TrimPrefix(ts.URL, "http://")

	status, err := FetchStatus(context.Background(), addr, "tok")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if status.Session != "s1" || !status.Listening {
		t.Errorf("Unexpected status %+v", status)
	}

	if _, err := FetchStatus(context.Background(), addr, "wrong"); err == nil {
		t.Error("Expected error with wrong token")
	}
}

func TestWSClientCloseWaitsForDelivery(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for seq := uint64(1); ; seq++ {
			err := conn.WriteJSON(protocol.Message{Type: protocol.TypeEvent, Payload: protocol.EventPayload{
				Session: "s1",
				Seq:     seq,
				Event:   input.Event{Type: input.EventType{Kind: input.KindMouseMove}},
			}})
			if err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)

	var closed, late atomic.Bool
	var delivered atomic.Int64
	c := NewWSClient(strings.TrimPrefix(ts.URL, "http://"), "", discardLogger())
	c.OnEvent = func(protocol.EventPayload) {
		if closed.Load() {
			late.Store(true)
		}
		delivered.Add(1)
	}
	c.Start()

	waitFor(t, func() bool { return delivered.Load() > 0 })
	c.Close()
	closed.Store(true)

	time.Sleep(50 * time.Millisecond)
	if late.Load() {
		t.Error("OnEvent called after Close returned")
	}
}
