package input

import "sync/atomic"

// handleRegistry stores at most one live hook handle per device class.
// A zero slot means no hook is installed for that class.
type handleRegistry struct {
	slots [numDeviceClasses]atomic.Uintptr
}

// store records h for class. It fails with ErrHookActive when the class
// already holds a handle; the previous handle is never overwritten.
func (r *handleRegistry) store(class DeviceClass, h HookHandle) error {
	if !r.slots[class].CompareAndSwap(0, uintptr(h)) {
		return ErrHookActive
	}
	return nil
}

func (r *handleRegistry) get(class DeviceClass) (HookHandle, bool) {
	h := r.slots[class].Load()
	return HookHandle(h), h != 0
}

// take empties the slot for class and returns what it held. Concurrent
// callers never receive the same handle twice.
func (r *handleRegistry) take(class DeviceClass) (HookHandle, bool) {
	h := r.slots[class].Swap(0)
	return HookHandle(h), h != 0
}
