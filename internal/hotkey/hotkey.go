// Package hotkey matches key and mouse button combinations against the
// events delivered by the global listener.
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alexeynau/rdev/internal/input"
)

// ErrEmptyHotkey is returned when registering a blank combination.
var ErrEmptyHotkey = errors.New("hotkey: empty combination")

// Manager handles hotkey registration and matching
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]map[uint32]struct{} // name -> physical codes held down
	logger       *slog.Logger
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "ALT", "MOUSE4"]
	original string
	callback func()
	held     bool // combination fully pressed; cleared on any release
}

// NewManager creates a new hotkey manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		currentState: make(map[string]map[uint32]struct{}),
		logger:       logger,
	}
}

// Register registers a hotkey string (e.g. "Ctrl+Alt+1", "Mouse2+Mouse3") and a callback.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if strings.TrimSpace(hotkeyStr) == "" {
		return 0, ErrEmptyHotkey
	}

	parts := strings.Split(strings.ToUpper(hotkeyStr), "+")
	for i, p := range parts {
		parts[i] = normalizePart(strings.TrimSpace(p))
		if parts[i] == "" {
			return 0, fmt.Errorf("hotkey: malformed combination %q", hotkeyStr)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})

	return len(m.hotkeys) - 1, nil
}

// normalizePart maps the aliases users type to the names the listener
// reports.
func normalizePart(p string) string {
	switch p {
	case "CONTROL":
		return "CTRL"
	case "ESCAPE":
		return "ESC"
	case "WIN", "SUPER", "META":
		return "CMD"
	case "RETURN":
		return "ENTER"
	}
	return p
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// Observe feeds a listener event into the key state. Left and right
// modifiers share a name but are tracked by platform code, so releasing
// one side keeps the name held while the other is down.
func (m *Manager) Observe(ev input.Event) {
	switch ev.Type.Kind {
	case input.KindKeyPress:
		m.updateState(string(ev.Type.Key), ev.PlatformCode, true)
	case input.KindKeyRelease:
		m.updateState(string(ev.Type.Key), ev.PlatformCode, false)
	case input.KindButtonPress:
		m.updateState(buttonName(ev.Type.Button), uint32(ev.Type.Button), true)
	case input.KindButtonRelease:
		m.updateState(buttonName(ev.Type.Button), uint32(ev.Type.Button), false)
	}
}

func buttonName(b input.Button) string {
	switch b {
	case input.ButtonLeft:
		return "MOUSE1"
	case input.ButtonMiddle:
		return "MOUSE2"
	case input.ButtonRight:
		return "MOUSE3"
	case input.ButtonX1:
		return "MOUSE4"
	case input.ButtonX2:
		return "MOUSE5"
	}
	return fmt.Sprintf("MOUSE%d", b)
}

// UpdateState updates the internal state of a key or button and checks for matches.
func (m *Manager) UpdateState(key string, isDown bool) {
	m.updateState(key, 0, isDown)
}

func (m *Manager) updateState(key string, code uint32, isDown bool) {
	key = strings.ToUpper(key)

	m.mu.Lock()
	if isDown {
		held := m.currentState[key]
		if held == nil {
			held = make(map[uint32]struct{})
			m.currentState[key] = held
		}
		held[code] = struct{}{}
	} else {
		if held := m.currentState[key]; held != nil {
			delete(held, code)
			if len(held) == 0 {
				delete(m.currentState, key)
			}
		}
		for _, hk := range m.hotkeys {
			hk.held = false
		}
	}
	m.mu.Unlock()

	if isDown {
		m.checkMatches()
	}
}

func (m *Manager) checkMatches() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, hk := range m.hotkeys {
		if hk.held {
			// Auto-repeat of a held combination
			continue
		}
		match := true
		// All parts of the hotkey must be in currentState
		for _, part := range hk.parts {
			if len(m.currentState[part]) == 0 {
				match = false
				break
			}
		}

		if match {
			hk.held = true
			// Callbacks run off the hook thread
			m.logger.Info("hotkey: triggered", "hotkey", hk.original)
			go hk.callback()
		}
	}
}
