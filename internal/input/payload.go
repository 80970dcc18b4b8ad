package input

// Hook codes and messages delivered to low-level hook procedures.
const (
	hcAction = 0

	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105
	WM_MOUSEMOVE   = 0x0200
	WM_LBUTTONDOWN = 0x0201
	WM_LBUTTONUP   = 0x0202
	WM_RBUTTONDOWN = 0x0204
	WM_RBUTTONUP   = 0x0205
	WM_MBUTTONDOWN = 0x0207
	WM_MBUTTONUP   = 0x0208
	WM_MOUSEWHEEL  = 0x020A
	WM_XBUTTONDOWN = 0x020B
	WM_XBUTTONUP   = 0x020C
	WM_MOUSEHWHEEL = 0x020E

	LLKHF_INJECTED = 0x00000010
	LLMHF_INJECTED = 0x00000001

	wheelDelta = 120
)

// Payload is the structure a low-level hook receives through lParam.
type Payload interface {
	// PositionCode is the hardware scan code, or 0 when the layout has none.
	PositionCode() uint32
	// ExtraInfo is the dwExtraInfo tag, passed through unexamined.
	ExtraInfo() uintptr
	// Injected reports whether the OS flagged the input as synthesized.
	Injected() bool
}

// KeyboardPayload mirrors KBDLLHOOKSTRUCT.
type KeyboardPayload struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

func (p *KeyboardPayload) PositionCode() uint32 { return p.ScanCode }
func (p *KeyboardPayload) ExtraInfo() uintptr { return p.DwExtraInfo }
func (p *KeyboardPayload) Injected() bool { return p.Flags&LLKHF_INJECTED != 0 }

// MousePayload mirrors MSLLHOOKSTRUCT.
type MousePayload struct {
	Pt          struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

func (p *MousePayload) PositionCode() uint32 { return 0 }
func (p *MousePayload) ExtraInfo() uintptr { return p.DwExtraInfo }
func (p *MousePayload) Injected() bool { return p.Flags&LLMHF_INJECTED != 0 }

// highWord returns the signed high-order word of MouseData.
func (p *MousePayload) highWord() int16 {
	return int16(p.MouseData >> 16)
}
