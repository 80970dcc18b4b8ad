package input

import (
	"log/slog"
	"sync/atomic"
)

// occupant is what a session stores in the callback slot.
type occupant struct {
	handler  Handler
	classify Classifier
	logger   *slog.Logger
}

// callbackSlot holds the handler of the active session. Hook trampolines
// have no context parameter, so the handler lives here for the whole
// session: installed once before the hooks, read on every notification,
// cleared at teardown.
type callbackSlot struct {
	cur atomic.Pointer[occupant]
}

func (s *callbackSlot) install(o *occupant) error {
	if !s.cur.CompareAndSwap(nil, o) {
		return ErrAlreadyListening
	}
	return nil
}

func (s *callbackSlot) load() *occupant {
	return s.cur.Load()
}

func (s *callbackSlot) clear() {
	s.cur.Store(nil)
}

// invoke runs the handler. A panicking handler is logged and swallowed so
// the notification still reaches the rest of the hook chain.
func (o *occupant) invoke(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("input: handler panicked", "panic", r, "kind", ev.Type.Kind)
		}
	}()
	o.handler(ev)
}
