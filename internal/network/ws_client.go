package network

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/alexeynau/rdev/internal/protocol"

	"github.com/gorilla/websocket"
)

const (
	reconnectDelay = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	writeWait      = 10 * time.Second
)

// WSClient follows the event feed of a remote listener and reconnects
// when the connection drops.
type WSClient struct {
	addr   string
	token  string
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *slog.Logger

	// dialCtx aborts a dial in progress when the client is closed
	dialCtx    context.Context
	cancelDial context.CancelFunc

	// ReconnectDelay is how long to wait between connection attempts.
	ReconnectDelay time.Duration

	// Callbacks
	OnHello func(protocol.HelloPayload)
	OnEvent func(protocol.EventPayload)

	mu          sync.Mutex
	conn        *websocket.Conn
	isConnected bool
}

// NewWSClient creates a client for the feed at addr ("host:port").
func NewWSClient(addr, token string, logger *slog.Logger) *WSClient {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WSClient{
		addr:           addr,
		token:          token,
		done:           make(chan struct{}),
		logger:         logger.With("component", "ws-client"),
		dialCtx:        ctx,
		cancelDial:     cancel,
		ReconnectDelay: reconnectDelay,
	}
}

// Start begins the client loop (connect & process)
func (c *WSClient) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop()
	}()
}

func (c *WSClient) loop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}
		c.connect()

		// If connect returns, it means we disconnected. Wait a bit and retry.
		select {
		case <-c.done:
			return
		case <-time.After(c.ReconnectDelay):
			c.logger.Info("attempting reconnection")
		}
	}
}

func (c *WSClient) connect() {
	u := url.URL{Scheme: "ws", Host: c.addr, Path: "/ws"}
	c.logger.Info("connecting", "url", u.String())

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(c.dialCtx, u.String(), header)
	if err != nil {
		c.logger.Warn("connection failed", "error", err)
		return
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.isConnected = true
	c.mu.Unlock()

	c.logger.Info("connected")

	readDone := make(chan struct{})
	pingDone := make(chan struct{})
	go func() {
		defer close(pingDone)
		c.pingLoop(conn, readDone)
	}()

	c.readPump(conn)
	close(readDone)

	c.mu.Lock()
	c.isConnected = false
	c.conn = nil
	c.mu.Unlock()

	<-pingDone
}

func (c *WSClient) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("read error", "error", err)
			}
			return
		}

		var msg protocol.Envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("invalid message", "error", err)
			continue
		}

		c.handleMessage(msg)
	}
}

// pingLoop keeps the connection alive until the read side fails.
func (c *WSClient) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			conn.Close()
			return
		case <-stop:
			return
		}
	}
}

func (c *WSClient) handleMessage(msg protocol.Envelope) {
	switch msg.Type {
	case protocol.TypeHello:
		var payload protocol.HelloPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.logger.Warn("invalid hello payload", "error", err)
			return
		}
		c.logger.Info("feed hello", "version", payload.Version, "session", payload.Session)
		if c.OnHello != nil {
			c.OnHello(payload)
		}

	case protocol.TypeEvent:
		var payload protocol.EventPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.logger.Warn("invalid event payload", "error", err)
			return
		}
		if c.OnEvent != nil {
			c.OnEvent(payload)
		}

	case protocol.TypeSession:
		var payload protocol.SessionPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return
		}
		c.logger.Info("remote session changed", "session", payload.Session, "active", payload.Active)
	}
}

// IsConnected returns true if the client is connected to the feed
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}

// Close stops the client and waits for its goroutines. No callback runs
// once Close returns.
func (c *WSClient) Close() {
	c.once.Do(func() {
		close(c.done)
		c.cancelDial()
	})
	c.wg.Wait()
}
