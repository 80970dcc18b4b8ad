package input

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyListening is returned by Listen while another session is active.
	ErrAlreadyListening = errors.New("input: a listening session is already active")

	// ErrHookActive is returned when a hook for the device class is still installed.
	ErrHookActive = errors.New("input: hook already installed for device class")

	// ErrNilHandler is returned by Listen when no handler is given.
	ErrNilHandler = errors.New("input: nil handler")

	// ErrNotListening is returned by Stop when no message loop is running.
	ErrNotListening = errors.New("input: no active message loop")

	// ErrUnhooked is returned by Listen when Unhook ran before the hooks
	// were in place, leaving the session without a handler.
	ErrUnhooked = errors.New("input: unhooked while starting")

	// ErrUnsupported is returned on platforms without low-level hooks.
	ErrUnsupported = errors.New("input: global hooks not supported on this platform")
)

// HookError reports that the OS rejected a hook registration.
type HookError struct {
	Class DeviceClass
	// Code is the OS error code (GetLastError) reported with the rejection.
	Code uint32
}

func (e *HookError) Error() string {
	return fmt.Sprintf("input: %s hook failed: os error %d", e.Class, e.Code)
}

// ListenErrorKind identifies which hook made Listen fail.
type ListenErrorKind uint8

const (
	KeyHookError ListenErrorKind = iota + 1
	MouseHookError
)

func (k ListenErrorKind) String() string {
	switch k {
	case KeyHookError:
		return "key hook error"
	case MouseHookError:
		return "mouse hook error"
	}
	return "listen error"
}

// ListenError is returned by Listen when the session could not start.
type ListenError struct {
	Kind ListenErrorKind
	Code uint32
	err  *HookError
}

func (e *ListenError) Error() string {
	return fmt.Sprintf("input: listen: %s (os error %d)", e.Kind, e.Code)
}

func (e *ListenError) Unwrap() error {
	if e.err == nil {
		return nil
	}
	return e.err
}

func listenErrorFrom(err *HookError) *ListenError {
	kind := KeyHookError
	if err.Class == Mouse {
		kind = MouseHookError
	}
	return &ListenError{Kind: kind, Code: err.Code, err: err}
}
