// Package network forwards captured events to remote subscribers and
// provides the clients that consume them.
package network

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexeynau/rdev/internal/input"
	"github.com/alexeynau/rdev/internal/protocol"
)

const (
	subscriberTimeout = 30 * time.Second
	cleanupInterval   = 10 * time.Second
)

// UDPSender fans captured events out to every registered subscriber with
// minimal overhead.
type UDPSender struct {
	conn     *net.UDPConn
	port     int
	subs     map[string]*udpSubscriber
	subsMu   sync.RWMutex
	seq      uint32 // atomic, monotonically increasing
	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

type udpSubscriber struct {
	addr     *net.UDPAddr
	lastSeen time.Time
}

// NewUDPSender creates a sender bound to port once started. Port 0 picks
// an ephemeral port.
func NewUDPSender(port int, logger *slog.Logger) *UDPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &UDPSender{
		port:   port,
		subs:   make(map[string]*udpSubscriber),
		done:   make(chan struct{}),
		logger: logger.With("component", "udp-sender"),
	}
}

// Start binds the UDP socket and begins listening for subscriber registrations.
func (s *UDPSender) Start() error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: s.port})
	if err != nil {
		return err
	}
	s.conn = conn

	// 1 MB write buffer for burst writes
	conn.SetWriteBuffer(1 << 20)
	// 64 KB read buffer for register/heartbeat
	conn.SetReadBuffer(1 << 16)

	s.logger.Info("listening", "addr", conn.LocalAddr().String())

	go s.readLoop()
	go s.cleanupLoop()

	return nil
}

// Addr returns the bound local address, or nil before Start.
func (s *UDPSender) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// readLoop listens for register and heartbeat packets from subscribers.
func (s *UDPSender) readLoop() {
	buf := make([]byte, 64)
	for {
		n, remoteAddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		pkt, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			continue
		}

		switch pkt.Type {
		case protocol.UDPPacketRegister:
			s.touch(remoteAddr, "register")

			// Reply with Ack so the subscriber can confirm UDP connectivity
			ack, _ := protocol.EncodeUDPPacket(&protocol.UDPPacket{
				Type:      protocol.UDPPacketAck,
				Timestamp: time.Now().UnixNano(),
			})
			s.conn.WriteToUDP(ack, remoteAddr)

		case protocol.UDPPacketHeartbeat:
			s.touch(remoteAddr, "heartbeat")
		}
	}
}

func (s *UDPSender) touch(addr *net.UDPAddr, via string) {
	key := addr.String()
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if _, exists := s.subs[key]; !exists {
		s.logger.Info("subscriber registered", "addr", key, "via", via)
	}
	s.subs[key] = &udpSubscriber{addr: addr, lastSeen: time.Now()}
}

// cleanupLoop removes subscribers that haven't sent a heartbeat recently.
func (s *UDPSender) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.expire(time.Now())
		case <-s.done:
			return
		}
	}
}

func (s *UDPSender) expire(now time.Time) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for key, sub := range s.subs {
		if now.Sub(sub.lastSeen) > subscriberTimeout {
			s.logger.Info("removing stale subscriber", "addr", key)
			delete(s.subs, key)
		}
	}
}

// SendEvent encodes ev and sends it to all registered subscribers. Press
// and release events are sent several times since UDP has no delivery
// guarantee; receivers drop the duplicates by sequence number.
func (s *UDPSender) SendEvent(ev input.Event) {
	if !s.HasSubscribers() {
		return
	}

	seq := atomic.AddUint32(&s.seq, 1)
	data, err := protocol.EncodeUDPPacket(protocol.NewEventPacket(seq, ev))
	if err != nil {
		s.logger.Warn("dropping event", "key", ev.Type.Key, "error", err)
		return
	}
	s.broadcast(data, redundancy(ev.Type.Kind))
}

func redundancy(kind input.EventKind) int {
	switch kind {
	case input.KindKeyPress, input.KindKeyRelease, input.KindButtonPress, input.KindButtonRelease:
		return 3
	case input.KindWheel:
		return 2
	}
	return 1
}

// broadcast sends data to all registered subscribers.
func (s *UDPSender) broadcast(data []byte, redundancy int) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	for _, sub := range s.subs {
		for i := 0; i < redundancy; i++ {
			s.conn.WriteToUDP(data, sub.addr)
		}
	}
}

// HasSubscribers returns true if at least one subscriber is registered.
func (s *UDPSender) HasSubscribers() bool {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	return len(s.subs) > 0
}

// Stop shuts down the UDP sender.
func (s *UDPSender) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}
