package input

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
)

var (
	keyboardOnly atomic.Bool
	active       atomic.Bool
	pumpThread   atomic.Uint32
)

// SetKeyboardOnly controls whether sessions started afterwards install the
// mouse hook.
func SetKeyboardOnly(v bool) {
	keyboardOnly.Store(v)
}

// KeyboardOnly reports the current keyboard-only setting.
func KeyboardOnly() bool {
	return keyboardOnly.Load()
}

type options struct {
	logger         *slog.Logger
	classify       Classifier
	ignoreInjected bool
	sessionID      string
}

// Option configures a listening session.
type Option func(*options)

// WithLogger sets the logger for session lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClassifier replaces Convert as the session's classifier.
func WithClassifier(c Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.classify = c
		}
	}
}

// WithIgnoreInjected drops notifications the OS flags as injected.
func WithIgnoreInjected(v bool) Option {
	return func(o *options) {
		o.ignoreInjected = v
	}
}

// WithSessionID tags the session's log lines.
func WithSessionID(id string) Option {
	return func(o *options) {
		o.sessionID = id
	}
}

// Listen installs handler, registers the keyboard hook (and the mouse hook
// unless keyboard-only is set) and pumps OS notifications on the calling
// goroutine, which stays locked to its OS thread until Listen returns.
//
// Listen blocks until the message loop ends: after Stop, after ctx is
// cancelled, or when the OS ends the loop. It returns a non-nil error only
// when the session could not start; registration failures are reported as
// *ListenError. Hooks still installed when the loop ends are removed.
func Listen(ctx context.Context, handler Handler, opts ...Option) error {
	if handler == nil {
		return ErrNilHandler
	}
	o := options{logger: slog.Default(), classify: Convert}
	for _, opt := range opts {
		opt(&o)
	}
	classify := o.classify
	if o.ignoreInjected {
		classify = SkipInjected(classify)
	}
	log := o.logger
	if o.sessionID != "" {
		log = log.With("session", o.sessionID)
	}

	if !active.CompareAndSwap(false, true) {
		return ErrAlreadyListening
	}
	defer active.Store(false)

	if err := slot.install(&occupant{handler: handler, classify: classify, logger: log}); err != nil {
		return err
	}
	defer slot.clear()

	// Low-level hooks are called on the thread that installed them, and
	// only while that thread is retrieving messages.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	kbOnly := keyboardOnly.Load()
	if err := installHooks(kbOnly); err != nil {
		log.Error("input: failed to install hooks", "error", err)
		return err
	}
	if slot.load() == nil {
		removeHooks()
		log.Warn("input: unhooked before the message loop started")
		return ErrUnhooked
	}

	thread := osHooks.threadID()
	pumpThread.Store(thread)
	defer pumpThread.Store(0)

	stop := context.AfterFunc(ctx, func() {
		if err := osHooks.postQuit(thread); err != nil {
			log.Warn("input: failed to post quit", "error", err)
		}
	})
	defer stop()

	log.Info("input: listening", "keyboard_only", kbOnly)
	if ret := osHooks.pump(); ret < 0 {
		log.Warn("input: message loop failed", "ret", ret)
	}

	if !removeHooks() {
		log.Warn("input: hook removal not confirmed")
	}
	log.Info("input: listener stopped")
	return nil
}

// Unhook removes the installed hooks and clears the handler. It reports
// whether the OS confirmed every removal it attempted; a keyboard-only
// session never attempts the mouse removal. Unhook does not end the message
// loop, use Stop for that. When it races a starting session, Listen
// returns ErrUnhooked instead of pumping without a handler.
func Unhook() bool {
	ok := removeHooks()
	slot.clear()
	return ok
}

// Stop asks the message loop of the active session to return. It is safe
// to call from any goroutine.
func Stop() error {
	thread := pumpThread.Load()
	if thread == 0 {
		return ErrNotListening
	}
	return osHooks.postQuit(thread)
}

// Listening reports whether a session is active.
func Listening() bool {
	return active.Load()
}
