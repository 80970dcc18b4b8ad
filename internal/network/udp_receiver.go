package network

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/alexeynau/rdev/internal/input"
	"github.com/alexeynau/rdev/internal/protocol"
)

const (
	heartbeatInterval = 5 * time.Second
	probeAttempts     = 3
	probeTimeout      = 500 * time.Millisecond
	maxPacketSize     = 512
)

// UDPReceiver subscribes to a remote UDPSender and delivers the events it
// forwards.
type UDPReceiver struct {
	addr     string // sender address in "ip:port" format
	conn     *net.UDPConn
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *slog.Logger

	// OnEvent is called for each received event, once per sequence number.
	OnEvent input.Handler

	// dedup ring buffer for redundant packets
	dedup seqDedup
}

// seqDedup tracks recently seen sequence numbers to discard redundant packets.
// Uses a fixed-size ring buffer, no allocation, O(1) lookup.
type seqDedup struct {
	ring [512]uint32
	pos  int
	seen map[uint32]struct{}
}

func newSeqDedup() seqDedup {
	return seqDedup{seen: make(map[uint32]struct{}, 512)}
}

func (d *seqDedup) isDuplicate(seq uint32) bool {
	if _, ok := d.seen[seq]; ok {
		return true
	}
	// Evict oldest entry
	old := d.ring[d.pos]
	if old != 0 {
		delete(d.seen, old)
	}
	d.ring[d.pos] = seq
	d.seen[seq] = struct{}{}
	d.pos = (d.pos + 1) % len(d.ring)
	return false
}

// NewUDPReceiver creates a receiver for the sender at addr ("ip:port").
func NewUDPReceiver(addr string, logger *slog.Logger) *UDPReceiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &UDPReceiver{
		addr:   addr,
		done:   make(chan struct{}),
		dedup:  newSeqDedup(),
		logger: logger.With("component", "udp-receiver"),
	}
}

// Probe tests whether UDP connectivity to the sender is available.
// It sends register packets and waits for an Ack response.
func (r *UDPReceiver) Probe() bool {
	senderAddr, err := net.ResolveUDPAddr("udp", r.addr)
	if err != nil {
		r.logger.Warn("probe: failed to resolve sender", "addr", r.addr, "error", err)
		return false
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		r.logger.Warn("probe: failed to bind", "error", err)
		return false
	}
	defer conn.Close()

	buf := make([]byte, maxPacketSize)
	for attempt := 0; attempt < probeAttempts; attempt++ {
		writeControl(conn, protocol.UDPPacketRegister, senderAddr)

		conn.SetReadDeadline(time.Now().Add(probeTimeout))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue // timeout or error, retry
		}
		resp, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			continue
		}
		if resp.Type == protocol.UDPPacketAck {
			r.logger.Info("probe: sender replied", "attempt", attempt+1)
			return true
		}
	}

	r.logger.Warn("probe: no ack received, UDP path blocked", "attempts", probeAttempts)
	return false
}

// Start opens a UDP socket, registers with the sender, and begins receiving.
func (r *UDPReceiver) Start() error {
	senderAddr, err := net.ResolveUDPAddr("udp", r.addr)
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		return err
	}
	r.conn = conn

	// Large read buffer for burst receives
	conn.SetReadBuffer(1 << 20) // 1 MB

	r.logger.Info("listening", "local", conn.LocalAddr().String(), "sender", r.addr)

	writeControl(conn, protocol.UDPPacketRegister, senderAddr)

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.heartbeatLoop(senderAddr)
	}()
	go func() {
		defer r.wg.Done()
		r.readLoop()
	}()

	return nil
}

// heartbeatLoop sends periodic heartbeat packets to keep the registration alive.
func (r *UDPReceiver) heartbeatLoop(senderAddr *net.UDPAddr) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			writeControl(r.conn, protocol.UDPPacketHeartbeat, senderAddr)
		case <-r.done:
			return
		}
	}
}

// writeControl sends a header-only packet.
func writeControl(conn *net.UDPConn, pktType uint8, addr *net.UDPAddr) {
	data, _ := protocol.EncodeUDPPacket(&protocol.UDPPacket{
		Type:      pktType,
		Timestamp: time.Now().UnixNano(),
	})
	conn.WriteToUDP(data, addr)
}

// readLoop reads and dispatches incoming event packets.
func (r *UDPReceiver) readLoop() {
	buf := make([]byte, maxPacketSize)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.done:
				return
			default:
				continue
			}
		}

		pkt, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil || pkt.Type != protocol.UDPPacketEvent {
			continue
		}

		// Deduplicate redundant packets (same seq number)
		if r.dedup.isDuplicate(pkt.Seq) {
			continue
		}

		if r.OnEvent != nil {
			r.OnEvent(pkt.Event)
		}
	}
}

// Stop shuts down the UDP receiver. OnEvent is not called once Stop
// returns.
func (r *UDPReceiver) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		if r.conn != nil {
			r.conn.Close()
		}
	})
	r.wg.Wait()
}
