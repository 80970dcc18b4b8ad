// Package input captures global keyboard and mouse activity through the
// operating system's low-level hooks and hands every observed event to a
// single process-wide handler.
package input

import (
	"fmt"
	"time"
)

// EventKind identifies the variant carried by an EventType.
type EventKind uint8

const (
	KindKeyPress EventKind = iota + 1
	KindKeyRelease
	KindButtonPress
	KindButtonRelease
	KindMouseMove
	KindWheel
)

var kindNames = map[EventKind]string{
	KindKeyPress:      "key_press",
	KindKeyRelease:    "key_release",
	KindButtonPress:   "button_press",
	KindButtonRelease: "button_release",
	KindMouseMove:     "mouse_move",
	KindWheel:         "wheel",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name produced by MarshalText.
func (k *EventKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", text)
}

// Key is the abstract name of a keyboard key, e.g. "A", "CTRL", "F5".
type Key string

// Button identifies a mouse button.
type Button uint8

const (
	ButtonLeft   Button = 1
	ButtonRight  Button = 2
	ButtonMiddle Button = 3
	ButtonX1     Button = 4
	ButtonX2     Button = 5
)

// EventType is the classified action of one notification.
// Only the fields relevant to Kind are set.
type EventType struct {
	Kind   EventKind `json:"kind"`
	Key    Key       `json:"key,omitempty"`
	Button Button    `json:"button,omitempty"`
	X      float64   `json:"x,omitempty"`
	Y      float64   `json:"y,omitempty"`
	DeltaX int64     `json:"dx,omitempty"`
	DeltaY int64     `json:"dy,omitempty"`
}

// Event is one observed input action.
type Event struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`
	// Unicode is the decoded text of a key press. The hook path never
	// decodes text, so it is always empty here.
	Unicode      string  `json:"unicode,omitempty"`
	PlatformCode uint32  `json:"platform_code"`
	PositionCode uint32  `json:"position_code"`
	ExtraData    uintptr `json:"extra_data"`
}

// Handler receives events on the thread that pumps OS notifications.
// It must return quickly: the OS waits for it before passing the
// notification on to other processes.
type Handler func(Event)

// DeviceClass is a class of input device with its own hook.
type DeviceClass uint8

const (
	Keyboard DeviceClass = iota
	Mouse

	numDeviceClasses
)

func (c DeviceClass) String() string {
	switch c {
	case Keyboard:
		return "keyboard"
	case Mouse:
		return "mouse"
	}
	return fmt.Sprintf("device(%d)", uint8(c))
}

// HookHandle is the opaque OS handle of an installed hook.
type HookHandle uintptr
