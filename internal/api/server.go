// Package api serves the live event feed over HTTP and WebSocket.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/alexeynau/rdev/internal/input"
	"github.com/alexeynau/rdev/internal/network"
	"github.com/alexeynau/rdev/internal/protocol"
)

// Options configures a Server.
type Options struct {
	// Token, when set, must be presented as "Authorization: Bearer <token>"
	// or as the token query parameter.
	Token   string
	Version string
	Logger  *slog.Logger

	// UI, when set, serves every path the feed does not handle.
	UI http.Handler
}

// Server publishes captured events to WebSocket subscribers.
type Server struct {
	token   string
	version string
	logger  *slog.Logger
	wsMgr   *WSManager
	ui      http.Handler
	events  atomic.Uint64

	mu           sync.RWMutex
	session      string
	listening    bool
	keyboardOnly bool

	srv *http.Server
	ln  net.Listener
}

// NewServer creates a new API server and starts its WebSocket hub.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		token:   opts.Token,
		version: opts.Version,
		logger:  logger.With("component", "api"),
		ui:      opts.UI,
	}
	s.wsMgr = newWSManager(s)
	go s.wsMgr.start()
	return s
}

// Handler returns the routed, authenticated handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	if s.ui != nil {
		mux.Handle("/", s.ui)
	}
	return s.originMiddleware(s.authMiddleware(s.recoverMiddleware(mux)))
}

// ListenAddr returns the address the feed binds for port. Without a token
// the feed is reachable from this machine only.
func ListenAddr(port int, token string) string {
	if token == "" {
		return fmt.Sprintf("127.0.0.1:%d", port)
	}
	return fmt.Sprintf(":%d", port)
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	if ips, err := network.GetLocalIPs(); err == nil {
		s.logger.Debug("local addresses", "ips", ips)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error("failed to listen", "addr", addr, "error", err)
		return err
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.Handler()}

	s.logger.Info("event feed listening", "addr", ln.Addr().String())
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops the HTTP server and disconnects every subscriber.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.srv != nil {
		err = s.srv.Shutdown(ctx)
	}
	s.wsMgr.stop()
	return err
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("handler panic", "path", r.URL.Path, "panic", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// originMiddleware rejects requests a browser sends on behalf of another
// site. Without a token the Host must also name this machine, which stops
// DNS rebinding from turning a foreign page into a same-origin one.
func (s *Server) originMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" && !isLoopbackHost(r.Host) {
			s.logger.Warn("rejected request for foreign host", "host", r.Host, "remote", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if !sameOrigin(r) {
			s.logger.Warn("rejected cross-origin request", "origin", r.Header.Get("Origin"), "path", r.URL.Path)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sameOrigin reports whether the Origin header, when present, names the
// host the request was sent to. Non-browser clients send no Origin.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func isLoopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// authMiddleware checks API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)

		// Skip auth for health check
		if r.URL.Path == "/health" || s.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		presented := r.URL.Query().Get("token")
		if h := r.Header.Get("Authorization"); h != "" {
			presented, _ = strings.CutPrefix(h, "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Status())
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Status reports the current session and feed counters.
func (s *Server) Status() protocol.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return protocol.Status{
		Version:      s.version,
		Session:      s.session,
		Listening:    s.listening,
		KeyboardOnly: s.keyboardOnly,
		Clients:      s.wsMgr.clientCount(),
		Events:       s.events.Load(),
	}
}

func (s *Server) hello() protocol.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return protocol.Message{
		Type: protocol.TypeHello,
		Payload: protocol.HelloPayload{
			Version:      s.version,
			Session:      s.session,
			KeyboardOnly: s.keyboardOnly,
		},
	}
}

// SetSession records the listening session and announces it to subscribers.
func (s *Server) SetSession(id string, active, keyboardOnly bool) {
	s.mu.Lock()
	s.session = id
	s.listening = active
	s.keyboardOnly = keyboardOnly
	s.mu.Unlock()

	s.wsMgr.publish(protocol.Message{
		Type: protocol.TypeSession,
		Payload: protocol.SessionPayload{
			Session:      id,
			Active:       active,
			KeyboardOnly: keyboardOnly,
		},
	})
}

// BroadcastEvent queues ev for every subscriber. It never blocks; events
// are dropped when the hub is saturated.
func (s *Server) BroadcastEvent(ev input.Event) {
	seq := s.events.Add(1)
	s.mu.RLock()
	session := s.session
	s.mu.RUnlock()

	s.wsMgr.publish(protocol.Message{
		Type: protocol.TypeEvent,
		Payload: protocol.EventPayload{
			Session: session,
			Seq:     seq,
			Event:   ev,
		},
	})
}
