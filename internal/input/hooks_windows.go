//go:build windows

package input

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPeekMessage         = user32.NewProc("PeekMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14
	WM_QUIT        = 0x0012
	WM_USER        = 0x0400
	PM_NOREMOVE    = 0x0000
)

type msg struct {
	Hwnd    windows.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// Trampolines are created once per process; the runtime caps the number
// of callbacks a process may create.
var (
	keyboardProc = windows.NewCallback(func(code, wParam, lParam uintptr) uintptr {
		return dispatch(int32(code), wParam, lParam, (*KeyboardPayload)(unsafe.Pointer(lParam)))
	})
	mouseProc = windows.NewCallback(func(code, wParam, lParam uintptr) uintptr {
		return dispatch(int32(code), wParam, lParam, (*MousePayload)(unsafe.Pointer(lParam)))
	})
)

type winHooks struct{}

func platformHooks() hookAPI {
	return winHooks{}
}

func (winHooks) setHook(class DeviceClass) (HookHandle, error) {
	id, proc := uintptr(WH_KEYBOARD_LL), keyboardProc
	if class == Mouse {
		id, proc = WH_MOUSE_LL, mouseProc
	}

	hMod, _, _ := procGetModuleHandle.Call(0)
	h, _, err := procSetWindowsHookEx.Call(id, proc, hMod, 0)
	if h == 0 {
		return 0, &HookError{Class: class, Code: errnoCode(err)}
	}
	return HookHandle(h), nil
}

func (winHooks) unhook(h HookHandle) bool {
	ret, _, _ := procUnhookWindowsHookEx.Call(uintptr(h))
	return ret != 0
}

func (winHooks) callNext(code int32, wParam, lParam uintptr) uintptr {
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(int(code)), wParam, lParam)
	return ret
}

func (winHooks) threadID() uint32 {
	// A thread has no message queue until it calls a queue function;
	// PostThreadMessage fails against such a thread.
	var m msg
	procPeekMessage.Call(uintptr(unsafe.Pointer(&m)), 0, WM_USER, WM_USER, PM_NOREMOVE)
	return windows.GetCurrentThreadId()
}

func (winHooks) pump() int32 {
	var m msg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			return int32(ret)
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (winHooks) postQuit(thread uint32) error {
	ret, _, err := procPostThreadMessage.Call(uintptr(thread), WM_QUIT, 0, 0)
	if ret == 0 {
		return fmt.Errorf("input: PostThreadMessage: %w", err)
	}
	return nil
}

func errnoCode(err error) uint32 {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return uint32(errno)
	}
	return 0
}
