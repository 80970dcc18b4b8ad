// Package tray shows the listener's state in the system tray using
// getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID        int
	Title     string
	Checkable bool
	Checked   bool
	Disabled  bool
	Callback  func()
	item      *systray.MenuItem
}

// Tray manages the system tray icon and menu
type Tray struct {
	mu        sync.Mutex
	items     []*MenuItem
	tooltip   string
	listening bool
	ready     bool
	quitCh    chan struct{}
	quitOnce  sync.Once
}

// New creates a new system tray
func New(tooltip string) *Tray {
	return &Tray{
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem adds a menu item to the tray
func (t *Tray) AddMenuItem(title string, callback func()) int {
	return t.add(&MenuItem{Title: title, Callback: callback})
}

// AddCheckboxItem adds a menu item with a check mark
func (t *Tray) AddCheckboxItem(title string, checked bool, callback func()) int {
	return t.add(&MenuItem{Title: title, Checkable: true, Checked: checked, Callback: callback})
}

// AddStatusItem adds a disabled item used to display text
func (t *Tray) AddStatusItem(title string) int {
	return t.add(&MenuItem{Title: title, Disabled: true})
}

func (t *Tray) add(mi *MenuItem) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	mi.ID = len(t.items)
	t.items = append(t.items, mi)
	return mi.ID
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil) // nil indicates separator
}

func (t *Tray) lookup(id int) *MenuItem {
	if id >= 0 && id < len(t.items) {
		return t.items[id]
	}
	return nil
}

// SetItemChecked sets the checked state of a menu item
func (t *Tray) SetItemChecked(id int, checked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mi := t.lookup(id)
	if mi == nil {
		return
	}
	mi.Checked = checked
	if mi.item != nil {
		if checked {
			mi.item.Check()
		} else {
			mi.item.Uncheck()
		}
	}
}

// SetItemTitle changes the text of a menu item
func (t *Tray) SetItemTitle(id int, title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mi := t.lookup(id)
	if mi == nil {
		return
	}
	mi.Title = title
	if mi.item != nil {
		mi.item.SetTitle(title)
	}
}

// SetListening switches the icon between the active and idle variants
func (t *Tray) SetListening(listening bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listening = listening
	if t.ready {
		systray.SetIcon(icon(listening))
	}
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, t.onExit)
}

func (t *Tray) onExit() {
	t.quitOnce.Do(func() { close(t.quitCh) })
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	t.mu.Lock()
	defer t.mu.Unlock()

	systray.SetTitle("rdev")
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(icon(t.listening))
	t.ready = true

	for _, menuItem := range t.items {
		if menuItem == nil {
			systray.AddSeparator()
			continue
		}

		var item *systray.MenuItem
		if menuItem.Checkable {
			item = systray.AddMenuItemCheckbox(menuItem.Title, "", menuItem.Checked)
		} else {
			item = systray.AddMenuItem(menuItem.Title, "")
		}
		if menuItem.Disabled {
			item.Disable()
		}
		menuItem.item = item

		// Handle clicks in goroutine
		if menuItem.Callback != nil {
			go func(mi *MenuItem, clicked <-chan struct{}) {
				for {
					select {
					case <-clicked:
						mi.Callback()
					case <-t.quitCh:
						return
					}
				}
			}(menuItem, item.ClickedCh)
		}
	}
}

// Done is closed once the tray has exited
func (t *Tray) Done() <-chan struct{} {
	return t.quitCh
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

const iconSize = 16

// icon returns a 16x16 32-bit ICO: a filled square when listening, an
// outline when idle.
func icon(listening bool) []byte {
	const (
		pixelBytes = iconSize * iconSize * 4
		maskBytes  = iconSize * 4 // 1 bpp rows padded to 32 bits
		dibSize    = 40
		offset     = 22
	)
	ico := make([]byte, offset+dibSize+pixelBytes+maskBytes)
	// ICO Header
	copy(ico[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon Directory: 16x16, 32 bpp, 1128 bytes at offset 22
	copy(ico[6:22], []byte{
		iconSize, iconSize, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x68, 0x04, 0x00, 0x00,
		offset, 0x00, 0x00, 0x00,
	})
	// DIB Header
	copy(ico[22:62], []byte{
		dibSize, 0x00, 0x00, 0x00,
		iconSize, 0x00, 0x00, 0x00,
		iconSize * 2, 0x00, 0x00, 0x00, // height doubled for the mask
		0x01, 0x00, // Planes
		0x20, 0x00, // BPP
		0x00, 0x00, 0x00, 0x00, // Compression
		0x00, 0x04, 0x00, 0x00, // Image Size
	})

	pixels := ico[offset+dibSize : offset+dibSize+pixelBytes]
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			edge := x < 2 || y < 2 || x >= iconSize-2 || y >= iconSize-2
			if !edge && !listening {
				continue
			}
			p := pixels[(y*iconSize+x)*4:]
			// BGRA
			if listening {
				p[0], p[1], p[2] = 0x40, 0xb0, 0x30
			} else {
				p[0], p[1], p[2] = 0x80, 0x80, 0x80
			}
			p[3] = 0xff
		}
	}
	return ico
}
