package protocol

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/alexeynau/rdev/internal/input"
)

// UDP Packet types
const (
	UDPPacketEvent     uint8 = 0x01
	UDPPacketRegister  uint8 = 0x10
	UDPPacketHeartbeat uint8 = 0x11
	UDPPacketAck       uint8 = 0x12 // Sender -> subscriber: confirms UDP path is open
)

// Header: [type(1)] [seq(4)] [timestamp(8)] = 13 bytes
const UDPHeaderSize = 13

// Event body without the key name:
// kind(1) platform(4) position(4) extra(8) x(4) y(4) dx(4) dy(4) button(1) keyLen(1)
const udpEventFixedSize = 35

const maxKeyLen = 255

var (
	errShortPacket  = errors.New("udp: packet too short")
	errShortEvent   = errors.New("udp: event payload too short")
	errUnknownType  = errors.New("udp: unknown packet type")
	errKeyTooLong   = errors.New("udp: key name too long")
	errUnknownEvent = errors.New("udp: unknown event kind")
)

// UDPPacket represents a binary-encoded input event for low-latency UDP transport.
//
// Wire format per type:
//
//	Event     (0x01): header + fixed event body (35) + key name (keyLen bytes)
//	Register  (0x10): header only = 13 bytes
//	Heartbeat (0x11): header only = 13 bytes
//	Ack       (0x12): header only = 13 bytes
//
// The header timestamp is the event time in Unix nanoseconds for events and
// the send time for control packets.
type UDPPacket struct {
	Type      uint8
	Seq       uint32
	Timestamp int64
	Event     input.Event
}

// EncodeUDPPacket serializes a UDPPacket to wire format.
func EncodeUDPPacket(pkt *UDPPacket) ([]byte, error) {
	size := UDPHeaderSize
	key := string(pkt.Event.Type.Key)
	if pkt.Type == UDPPacketEvent {
		if len(key) > maxKeyLen {
			return nil, errKeyTooLong
		}
		size += udpEventFixedSize + len(key)
	}

	buf := make([]byte, size)
	buf[0] = pkt.Type
	binary.BigEndian.PutUint32(buf[1:5], pkt.Seq)
	binary.BigEndian.PutUint64(buf[5:13], uint64(pkt.Timestamp))

	if pkt.Type != UDPPacketEvent {
		return buf, nil
	}

	ev := pkt.Event
	p := buf[UDPHeaderSize:]
	p[0] = uint8(ev.Type.Kind)
	binary.BigEndian.PutUint32(p[1:5], ev.PlatformCode)
	binary.BigEndian.PutUint32(p[5:9], ev.PositionCode)
	binary.BigEndian.PutUint64(p[9:17], uint64(ev.ExtraData))
	binary.BigEndian.PutUint32(p[17:21], uint32(int32(ev.Type.X)))
	binary.BigEndian.PutUint32(p[21:25], uint32(int32(ev.Type.Y)))
	binary.BigEndian.PutUint32(p[25:29], uint32(int32(ev.Type.DeltaX)))
	binary.BigEndian.PutUint32(p[29:33], uint32(int32(ev.Type.DeltaY)))
	p[33] = uint8(ev.Type.Button)
	p[34] = uint8(len(key))
	copy(p[udpEventFixedSize:], key)

	return buf, nil
}

// NewEventPacket wraps an event for sending.
func NewEventPacket(seq uint32, ev input.Event) *UDPPacket {
	return &UDPPacket{
		Type:      UDPPacketEvent,
		Seq:       seq,
		Timestamp: ev.Time.UnixNano(),
		Event:     ev,
	}
}

// DecodeUDPPacket deserializes wire bytes into a UDPPacket.
func DecodeUDPPacket(data []byte) (*UDPPacket, error) {
	if len(data) < UDPHeaderSize {
		return nil, errShortPacket
	}

	pkt := &UDPPacket{
		Type:      data[0],
		Seq:       binary.BigEndian.Uint32(data[1:5]),
		Timestamp: int64(binary.BigEndian.Uint64(data[5:13])),
	}

	switch pkt.Type {
	case UDPPacketEvent:
		p := data[UDPHeaderSize:]
		if len(p) < udpEventFixedSize {
			return nil, errShortEvent
		}
		keyLen := int(p[34])
		if len(p) < udpEventFixedSize+keyLen {
			return nil, errShortEvent
		}
		kind := input.EventKind(p[0])
		if kind < input.KindKeyPress || kind > input.KindWheel {
			return nil, errUnknownEvent
		}
		pkt.Event = input.Event{
			Type: input.EventType{
				Kind:   kind,
				Key:    input.Key(p[udpEventFixedSize : udpEventFixedSize+keyLen]),
				Button: input.Button(p[33]),
				X:      float64(int32(binary.BigEndian.Uint32(p[17:21]))),
				Y:      float64(int32(binary.BigEndian.Uint32(p[21:25]))),
				DeltaX: int64(int32(binary.BigEndian.Uint32(p[25:29]))),
				DeltaY: int64(int32(binary.BigEndian.Uint32(p[29:33]))),
			},
			Time:         time.Unix(0, pkt.Timestamp),
			PlatformCode: binary.BigEndian.Uint32(p[1:5]),
			PositionCode: binary.BigEndian.Uint32(p[5:9]),
			ExtraData:    uintptr(binary.BigEndian.Uint64(p[9:17])),
		}
	case UDPPacketRegister, UDPPacketHeartbeat, UDPPacketAck:
		// no payload
	default:
		return nil, errUnknownType
	}

	return pkt, nil
}
