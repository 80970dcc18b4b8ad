package input

import "testing"

func TestConvertKeyboard(t *testing.T) {
	tests := []struct {
		msg  uintptr
		vk   uint32
		kind EventKind
		key  Key
	}{
		{WM_KEYDOWN, 0x41, KindKeyPress, "A"},
		{WM_KEYUP, 0x41, KindKeyRelease, "A"},
		{WM_SYSKEYDOWN, 0xA4, KindKeyPress, "ALT"},
		{WM_SYSKEYUP, 0xA4, KindKeyRelease, "ALT"},
		{WM_KEYDOWN, 0x1B, KindKeyPress, "ESC"},
		{WM_KEYDOWN, 0x74, KindKeyPress, "F5"},
	}

	for _, tt := range tests {
		typ, code, ok := Convert(tt.msg, &KeyboardPayload{VkCode: tt.vk})
		if !ok {
			t.Errorf("msg 0x%X vk 0x%X: expected an event", tt.msg, tt.vk)
			continue
		}
		if typ.Kind != tt.kind || typ.Key != tt.key {
			t.Errorf("msg 0x%X vk 0x%X: expected %s %s, got %s %s", tt.msg, tt.vk, tt.kind, tt.key, typ.Kind, typ.Key)
		}
		if code != tt.vk {
			t.Errorf("Expected platform code 0x%X, got 0x%X", tt.vk, code)
		}
	}
}

func TestConvertMouseButtons(t *testing.T) {
	tests := []struct {
		msg       uintptr
		mouseData uint32
		kind      EventKind
		button    Button
	}{
		{WM_LBUTTONDOWN, 0, KindButtonPress, ButtonLeft},
		{WM_LBUTTONUP, 0, KindButtonRelease, ButtonLeft},
		{WM_RBUTTONDOWN, 0, KindButtonPress, ButtonRight},
		{WM_RBUTTONUP, 0, KindButtonRelease, ButtonRight},
		{WM_MBUTTONDOWN, 0, KindButtonPress, ButtonMiddle},
		{WM_MBUTTONUP, 0, KindButtonRelease, ButtonMiddle},
		{WM_XBUTTONDOWN, 1 << 16, KindButtonPress, ButtonX1},
		{WM_XBUTTONUP, 2 << 16, KindButtonRelease, ButtonX2},
	}

	for _, tt := range tests {
		typ, code, ok := Convert(tt.msg, &MousePayload{MouseData: tt.mouseData, Pt: struct{ X, Y int32 }{12, -34}})
		if !ok {
			t.Errorf("msg 0x%X: expected an event", tt.msg)
			continue
		}
		if typ.Kind != tt.kind || typ.Button != tt.button {
			t.Errorf("msg 0x%X: expected %s button %d, got %s button %d", tt.msg, tt.kind, tt.button, typ.Kind, typ.Button)
		}
		if typ.X != 12 || typ.Y != -34 {
			t.Errorf("msg 0x%X: expected position (12,-34), got (%v,%v)", tt.msg, typ.X, typ.Y)
		}
		if code != uint32(tt.button) {
			t.Errorf("msg 0x%X: expected platform code %d, got %d", tt.msg, tt.button, code)
		}
	}
}

func TestConvertWheel(t *testing.T) {
	notches := int16(-240)
	down := uint32(uint16(notches)) << 16
	typ, _, ok := Convert(WM_MOUSEWHEEL, &MousePayload{MouseData: down})
	if !ok || typ.Kind != KindWheel {
		t.Fatalf("Expected wheel event, got %+v ok=%v", typ, ok)
	}
	if typ.DeltaY != -2 || typ.DeltaX != 0 {
		t.Errorf("Expected vertical delta -2, got dx=%d dy=%d", typ.DeltaX, typ.DeltaY)
	}

	typ, _, _ = Convert(WM_MOUSEHWHEEL, &MousePayload{MouseData: 120 << 16})
	if typ.DeltaX != 1 || typ.DeltaY != 0 {
		t.Errorf("Expected horizontal delta 1, got dx=%d dy=%d", typ.DeltaX, typ.DeltaY)
	}
}

func TestConvertUnknownMessage(t *testing.T) {
	if _, _, ok := Convert(0x0999, &KeyboardPayload{VkCode: 0x41}); ok {
		t.Error("Expected unknown keyboard message to yield nothing")
	}
	if _, _, ok := Convert(0x0999, &MousePayload{}); ok {
		t.Error("Expected unknown mouse message to yield nothing")
	}
}

func TestSkipInjected(t *testing.T) {
	classify := SkipInjected(Convert)

	if _, _, ok := classify(WM_KEYDOWN, &KeyboardPayload{VkCode: 0x41, Flags: LLKHF_INJECTED}); ok {
		t.Error("Expected injected key to yield nothing")
	}
	if _, _, ok := classify(WM_LBUTTONDOWN, &MousePayload{Flags: LLMHF_INJECTED}); ok {
		t.Error("Expected injected click to yield nothing")
	}
	if _, _, ok := classify(WM_KEYDOWN, &KeyboardPayload{VkCode: 0x41}); !ok {
		t.Error("Expected physical key to be classified")
	}
}

func TestKeyFromCode(t *testing.T) {
	tests := map[uint32]Key{
		0x30: "0",
		0x5A: "Z",
		0x60: "KP0",
		0x69: "KP9",
		0x70: "F1",
		0x87: "F24",
		0xA2: "CTRL",
		0xFF: "VK_0xFF",
	}
	for vk, want := range tests {
		if got := KeyFromCode(vk); got != want {
			t.Errorf("KeyFromCode(0x%X): expected %q, got %q", vk, want, got)
		}
	}
}

func TestEventKindText(t *testing.T) {
	for kind := KindKeyPress; kind <= KindWheel; kind++ {
		text, _ := kind.MarshalText()
		var back EventKind
		if err := back.UnmarshalText(text); err != nil || back != kind {
			t.Errorf("kind %d: round trip through %q gave %d (%v)", kind, text, back, err)
		}
	}
	var k EventKind
	if err := k.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("Expected error for unknown kind name")
	}
}
