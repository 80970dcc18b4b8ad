//go:build !windows

package input

// Stub implementation for platforms without low-level hooks

type unsupportedHooks struct{}

func platformHooks() hookAPI {
	return unsupportedHooks{}
}

func (unsupportedHooks) setHook(DeviceClass) (HookHandle, error) {
	return 0, ErrUnsupported
}

func (unsupportedHooks) unhook(HookHandle) bool {
	return false
}

func (unsupportedHooks) callNext(int32, uintptr, uintptr) uintptr {
	return 0
}

func (unsupportedHooks) threadID() uint32 {
	return 0
}

func (unsupportedHooks) pump() int32 {
	return -1
}

func (unsupportedHooks) postQuit(uint32) error {
	return ErrUnsupported
}
