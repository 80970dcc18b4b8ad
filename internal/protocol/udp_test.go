package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alexeynau/rdev/internal/input"
)

func TestEventPacketRoundTrip(t *testing.T) {
	at := time.Unix(1700000000, 123456789)
	tests := []struct {
		name string
		ev   input.Event
	}{
		{
			name: "key press",
			ev: input.Event{
				Type:         input.EventType{Kind: input.KindKeyPress, Key: "A"},
				Time:         at,
				PlatformCode: 65,
				PositionCode: 30,
				ExtraData:    7,
			},
		},
		{
			name: "negative mouse position",
			ev: input.Event{
				Type: input.EventType{Kind: input.KindMouseMove, X: -1920, Y: 40},
				Time: at,
			},
		},
		{
			name: "wheel",
			ev: input.Event{
				Type: input.EventType{Kind: input.KindWheel, DeltaY: -2},
				Time: at,
			},
		},
		{
			name: "button",
			ev: input.Event{
				Type:         input.EventType{Kind: input.KindButtonRelease, Button: input.ButtonX2, X: 10, Y: 20},
				Time:         at,
				PlatformCode: uint32(input.ButtonX2),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeUDPPacket(NewEventPacket(9, tt.ev))
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			pkt, err := DecodeUDPPacket(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if pkt.Type != UDPPacketEvent || pkt.Seq != 9 {
				t.Errorf("Expected event packet seq 9, got type=%d seq=%d", pkt.Type, pkt.Seq)
			}
			if !pkt.Event.Time.Equal(tt.ev.Time) {
				t.Errorf("Expected time %v, got %v", tt.ev.Time, pkt.Event.Time)
			}
			got := pkt.Event
			got.Time = tt.ev.Time
			if got != tt.ev {
				t.Errorf("Expected %+v, got %+v", tt.ev, got)
			}
		})
	}
}

func TestControlPacketsAreHeaderOnly(t *testing.T) {
	for _, typ := range []uint8{UDPPacketRegister, UDPPacketHeartbeat, UDPPacketAck} {
		data, err := EncodeUDPPacket(&UDPPacket{Type: typ, Timestamp: 1})
		if err != nil {
			t.Fatalf("encode %d: %v", typ, err)
		}
		if len(data) != UDPHeaderSize {
			t.Errorf("Expected %d bytes for type %d, got %d", UDPHeaderSize, typ, len(data))
		}
		pkt, err := DecodeUDPPacket(data)
		if err != nil || pkt.Type != typ {
			t.Errorf("Expected type %d back, got %+v (%v)", typ, pkt, err)
		}
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	good, _ := EncodeUDPPacket(NewEventPacket(1, input.Event{Type: input.EventType{Kind: input.KindKeyPress, Key: "ENTER"}}))

	unknownKind := append([]byte(nil), good...)
	unknownKind[UDPHeaderSize] = 99

	unknownType := append([]byte(nil), good[:UDPHeaderSize]...)
	unknownType[0] = 0x7f

	cases := map[string][]byte{
		"short header":  good[:5],
		"short body":    good[:UDPHeaderSize+10],
		"truncated key": good[:len(good)-1],
		"unknown kind":  unknownKind,
		"unknown type":  unknownType,
	}
	for name, data := range cases {
		if _, err := DecodeUDPPacket(data); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestEncodeRejectsLongKey(t *testing.T) {
	ev := input.Event{Type: input.EventType{Kind: input.KindKeyPress, Key: input.Key(strings.Repeat("K", 256))}}
	if _, err := EncodeUDPPacket(NewEventPacket(1, ev)); err == nil {
		t.Error("Expected error for key name over 255 bytes")
	}
}

func TestEventMessageJSON(t *testing.T) {
	msg := Message{
		Type: TypeEvent,
		Payload: EventPayload{
			Session: "s1",
			Seq:     3,
			Event:   input.Event{Type: input.EventType{Kind: input.KindKeyPress, Key: "A"}, PlatformCode: 65},
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != TypeEvent {
		t.Fatalf("Expected event type, got %q", env.Type)
	}
	var p EventPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Session != "s1" || p.Seq != 3 || p.Event.Type.Key != "A" || p.Event.Type.Kind != input.KindKeyPress {
		t.Errorf("Unexpected payload %+v", p)
	}
}
