package input

import (
	"sync"
	"testing"
)

const fakeNextResult = 42

type forwarded struct {
	code   int32
	msg    uintptr
	lParam uintptr
}

// fakeHooks stands in for the OS: it records hook calls and runs queued
// notifications from inside pump, the way the OS calls hook procedures
// from inside GetMessage.
type fakeHooks struct {
	mu          sync.Mutex
	next        HookHandle
	setErr      map[DeviceClass]error
	unhookFail  map[DeviceClass]bool
	handles     map[HookHandle]DeviceClass
	setCalls    []DeviceClass
	unhookCalls []DeviceClass
	forwards    []forwarded

	// beforeSet runs at the start of every setHook call
	beforeSet func(DeviceClass)

	queue    chan func()
	ready    chan struct{}
	quit     chan struct{}
	readyOne sync.Once
	quitOne  sync.Once
}

func installFakeHooks(t *testing.T) *fakeHooks {
	t.Helper()
	f := &fakeHooks{
		next:       100,
		setErr:     make(map[DeviceClass]error),
		unhookFail: make(map[DeviceClass]bool),
		handles:    make(map[HookHandle]DeviceClass),
		queue:      make(chan func()),
		ready:      make(chan struct{}),
		quit:       make(chan struct{}),
	}
	prev := osHooks
	osHooks = f
	t.Cleanup(func() {
		osHooks = prev
		for class := DeviceClass(0); class < numDeviceClasses; class++ {
			registry.take(class)
		}
		slot.clear()
		keyboardOnly.Store(false)
	})
	return f
}

func (f *fakeHooks) setHook(class DeviceClass) (HookHandle, error) {
	if f.beforeSet != nil {
		f.beforeSet(class)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, class)
	if err := f.setErr[class]; err != nil {
		return 0, err
	}
	f.next++
	f.handles[f.next] = class
	return f.next, nil
}

func (f *fakeHooks) unhook(h HookHandle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	class := f.handles[h]
	f.unhookCalls = append(f.unhookCalls, class)
	delete(f.handles, h)
	return !f.unhookFail[class]
}

func (f *fakeHooks) callNext(code int32, msg, lParam uintptr) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwards = append(f.forwards, forwarded{code: code, msg: msg, lParam: lParam})
	return fakeNextResult
}

func (f *fakeHooks) threadID() uint32 {
	return 7
}

func (f *fakeHooks) pump() int32 {
	f.readyOne.Do(func() { close(f.ready) })
	for {
		select {
		case fn := <-f.queue:
			fn()
		case <-f.quit:
			return 0
		}
	}
}

func (f *fakeHooks) postQuit(thread uint32) error {
	f.quitOne.Do(func() { close(f.quit) })
	return nil
}

// deliver runs a notification on the pumping goroutine and waits for it.
func (f *fakeHooks) deliver(code int32, msg, lParam uintptr, p Payload) {
	done := make(chan struct{})
	f.queue <- func() {
		dispatch(code, msg, lParam, p)
		close(done)
	}
	<-done
}

func (f *fakeHooks) installedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

func (f *fakeHooks) unhooked() []DeviceClass {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DeviceClass(nil), f.unhookCalls...)
}

func (f *fakeHooks) forwardLog() []forwarded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]forwarded(nil), f.forwards...)
}
