package input

import "fmt"

// Classifier maps a hook message and its payload to an event type and the
// platform code reported with it. ok is false for notifications that carry
// no event of interest.
type Classifier func(msg uintptr, p Payload) (typ EventType, code uint32, ok bool)

// Convert is the default Classifier for Windows low-level hook messages.
func Convert(msg uintptr, p Payload) (EventType, uint32, bool) {
	switch p := p.(type) {
	case *KeyboardPayload:
		return convertKey(msg, p)
	case *MousePayload:
		return convertMouse(msg, p)
	}
	return EventType{}, 0, false
}

func convertKey(msg uintptr, p *KeyboardPayload) (EventType, uint32, bool) {
	var kind EventKind
	switch msg {
	case WM_KEYDOWN, WM_SYSKEYDOWN:
		kind = KindKeyPress
	case WM_KEYUP, WM_SYSKEYUP:
		kind = KindKeyRelease
	default:
		return EventType{}, 0, false
	}
	return EventType{Kind: kind, Key: KeyFromCode(p.VkCode)}, p.VkCode, true
}

func convertMouse(msg uintptr, p *MousePayload) (EventType, uint32, bool) {
	button := func(kind EventKind, b Button) (EventType, uint32, bool) {
		return EventType{Kind: kind, Button: b, X: float64(p.Pt.X), Y: float64(p.Pt.Y)}, uint32(b), true
	}

	switch msg {
	case WM_LBUTTONDOWN:
		return button(KindButtonPress, ButtonLeft)
	case WM_LBUTTONUP:
		return button(KindButtonRelease, ButtonLeft)
	case WM_RBUTTONDOWN:
		return button(KindButtonPress, ButtonRight)
	case WM_RBUTTONUP:
		return button(KindButtonRelease, ButtonRight)
	case WM_MBUTTONDOWN:
		return button(KindButtonPress, ButtonMiddle)
	case WM_MBUTTONUP:
		return button(KindButtonRelease, ButtonMiddle)
	case WM_XBUTTONDOWN:
		return button(KindButtonPress, xButton(p))
	case WM_XBUTTONUP:
		return button(KindButtonRelease, xButton(p))
	case WM_MOUSEMOVE:
		return EventType{Kind: KindMouseMove, X: float64(p.Pt.X), Y: float64(p.Pt.Y)}, 0, true
	case WM_MOUSEWHEEL:
		return EventType{Kind: KindWheel, DeltaY: int64(p.highWord()) / wheelDelta}, 0, true
	case WM_MOUSEHWHEEL:
		return EventType{Kind: KindWheel, DeltaX: int64(p.highWord()) / wheelDelta}, 0, true
	}
	return EventType{}, 0, false
}

func xButton(p *MousePayload) Button {
	if p.highWord() == 1 {
		return ButtonX1
	}
	return ButtonX2
}

// SkipInjected wraps a classifier so that notifications the OS flagged as
// injected yield no event.
func SkipInjected(classify Classifier) Classifier {
	return func(msg uintptr, p Payload) (EventType, uint32, bool) {
		if p.Injected() {
			return EventType{}, 0, false
		}
		return classify(msg, p)
	}
}

// KeyFromCode names a virtual-key code. Codes without a name map to
// "VK_0x.." so they stay distinguishable.
func KeyFromCode(vk uint32) Key {
	switch vk {
	case 0x11, 0xA2, 0xA3:
		return "CTRL"
	case 0x12, 0xA4, 0xA5:
		return "ALT"
	case 0x10, 0xA0, 0xA1:
		return "SHIFT"
	case 0x5B, 0x5C:
		return "CMD"
	case 0x20:
		return "SPACE"
	case 0x0D:
		return "ENTER"
	case 0x1B:
		return "ESC"
	case 0x08:
		return "BACKSPACE"
	case 0x09:
		return "TAB"
	case 0x14:
		return "CAPSLOCK"
	case 0x90:
		return "NUMLOCK"
	case 0x21:
		return "PAGEUP"
	case 0x22:
		return "PAGEDOWN"
	case 0x23:
		return "END"
	case 0x24:
		return "HOME"
	case 0x25:
		return "LEFT"
	case 0x26:
		return "UP"
	case 0x27:
		return "RIGHT"
	case 0x28:
		return "DOWN"
	case 0x2C:
		return "PRINTSCREEN"
	case 0x2D:
		return "INSERT"
	case 0x2E:
		return "DELETE"
	case 0x13:
		return "PAUSE"
	case 0x91:
		return "SCROLLLOCK"
	case 0x5D:
		return "MENU"
	case 0xBA:
		return "SEMICOLON"
	case 0xBB:
		return "EQUAL"
	case 0xBC:
		return "COMMA"
	case 0xBD:
		return "MINUS"
	case 0xBE:
		return "DOT"
	case 0xBF:
		return "SLASH"
	case 0xC0:
		return "BACKQUOTE"
	case 0xDB:
		return "LEFTBRACKET"
	case 0xDC:
		return "BACKSLASH"
	case 0xDD:
		return "RIGHTBRACKET"
	case 0xDE:
		return "QUOTE"
	case 0x6A:
		return "KP_MULTIPLY"
	case 0x6B:
		return "KP_PLUS"
	case 0x6D:
		return "KP_MINUS"
	case 0x6E:
		return "KP_DECIMAL"
	case 0x6F:
		return "KP_DIVIDE"
	}

	// Letters A-Z and digits 0-9
	if (vk >= 0x41 && vk <= 0x5A) || (vk >= 0x30 && vk <= 0x39) {
		return Key(rune(vk))
	}

	// Numpad 0-9
	if vk >= 0x60 && vk <= 0x69 {
		return Key(fmt.Sprintf("KP%d", vk-0x60))
	}

	// F1-F24
	if vk >= 0x70 && vk <= 0x87 {
		return Key(fmt.Sprintf("F%d", vk-0x6F))
	}

	return Key(fmt.Sprintf("VK_0x%02X", vk))
}
