// Package protocol defines the messages the event feed and the UDP
// forwarder put on the wire.
package protocol

import (
	"encoding/json"

	"github.com/alexeynau/rdev/internal/input"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeHello is sent by the server right after a client connects
	TypeHello MessageType = "hello"

	// TypeEvent carries one captured input event
	TypeEvent MessageType = "event"

	// TypeSession announces that a listening session started or ended
	TypeSession MessageType = "session"

	// TypePing can be used for application-level heartbeats if needed
	TypePing MessageType = "ping"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Envelope is a received Message whose payload is decoded by type
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HelloPayload is the payload for TypeHello
type HelloPayload struct {
	Version      string `json:"version"`
	Session      string `json:"session,omitempty"`
	KeyboardOnly bool   `json:"keyboard_only"`
}

// EventPayload is the payload for TypeEvent
type EventPayload struct {
	Session string      `json:"session"`
	Seq     uint64      `json:"seq"`
	Event   input.Event `json:"event"`
}

// SessionPayload is the payload for TypeSession
type SessionPayload struct {
	Session      string `json:"session"`
	Active       bool   `json:"active"`
	KeyboardOnly bool   `json:"keyboard_only"`
}

// Status is the body of GET /api/status
type Status struct {
	Version      string `json:"version"`
	Session      string `json:"session,omitempty"`
	Listening    bool   `json:"listening"`
	KeyboardOnly bool   `json:"keyboard_only"`
	Clients      int    `json:"clients"`
	Events       uint64 `json:"events"`
}
