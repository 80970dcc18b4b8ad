package input

import (
	"errors"
	"time"
)

// hookAPI is the OS side of the listener: hook registration, the hook
// chain and the thread message queue.
type hookAPI interface {
	// setHook installs the low-level hook for class, routed through the
	// package trampoline for that class.
	setHook(class DeviceClass) (HookHandle, error)
	// unhook removes an installed hook and reports whether the OS confirmed.
	unhook(h HookHandle) bool
	// callNext forwards a notification to the next hook in the chain.
	callNext(code int32, msg, lParam uintptr) uintptr
	// threadID returns the calling thread's id, making sure the thread
	// owns a message queue that postQuit can reach.
	threadID() uint32
	// pump retrieves and dispatches messages until the queue yields a
	// terminal value (0 for WM_QUIT, -1 on failure), which it returns.
	pump() int32
	// postQuit asks the pump running on thread to return.
	postQuit(thread uint32) error
}

var (
	osHooks  hookAPI = platformHooks()
	slot     callbackSlot
	registry handleRegistry
)

// register installs the hook for class and records its handle.
func register(class DeviceClass) (HookHandle, error) {
	if _, live := registry.get(class); live {
		return 0, ErrHookActive
	}
	h, err := osHooks.setHook(class)
	if err != nil {
		return 0, err
	}
	if err := registry.store(class, h); err != nil {
		osHooks.unhook(h)
		return 0, err
	}
	return h, nil
}

// unregister removes the hook recorded for class. attempted is false when
// no hook was installed.
func unregister(class DeviceClass) (attempted, removed bool) {
	h, live := registry.take(class)
	if !live {
		return false, true
	}
	return true, osHooks.unhook(h)
}

// installHooks registers the keyboard hook and, unless keyboardOnly, the
// mouse hook. On failure every hook installed so far is removed.
func installHooks(keyboardOnly bool) error {
	if _, err := register(Keyboard); err != nil {
		return startupError(err)
	}
	if keyboardOnly {
		return nil
	}
	if _, err := register(Mouse); err != nil {
		unregister(Keyboard)
		return startupError(err)
	}
	return nil
}

// removeHooks unregisters every installed hook and reports whether each
// removal the OS attempted succeeded.
func removeHooks() bool {
	ok := true
	for class := DeviceClass(0); class < numDeviceClasses; class++ {
		if attempted, removed := unregister(class); attempted && !removed {
			ok = false
		}
	}
	return ok
}

func startupError(err error) error {
	var hookErr *HookError
	if errors.As(err, &hookErr) {
		return listenErrorFrom(hookErr)
	}
	return err
}

// dispatch is the body shared by the hook trampolines. The notification is
// always forwarded and the chain's result returned, whatever happened here.
func dispatch(code int32, msg, lParam uintptr, p Payload) uintptr {
	if o := slot.load(); o != nil {
		if ev, ok := Translate(code, msg, p, o.classify, time.Now()); ok {
			o.invoke(ev)
		}
	}
	return osHooks.callNext(code, msg, lParam)
}
