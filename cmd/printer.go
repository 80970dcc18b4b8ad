package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alexeynau/rdev/internal/input"
)

const printQueue = 4096

// printer writes events off the hook thread.
type printer struct {
	w      io.Writer
	asJSON bool
	events chan input.Event
	done   chan struct{}
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	p := &printer{
		w:      w,
		asJSON: asJSON,
		events: make(chan input.Event, printQueue),
		done:   make(chan struct{}),
	}
	go p.loop()
	return p
}

// enqueue never blocks; events are dropped when the writer falls behind
// or the printer is closed.
func (p *printer) enqueue(ev input.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
	}
}

// close flushes queued events and stops the printer.
func (p *printer) close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.events)
		p.mu.Unlock()
		<-p.done
	})
}

func (p *printer) loop() {
	defer close(p.done)
	enc := json.NewEncoder(p.w)
	for ev := range p.events {
		if p.asJSON {
			enc.Encode(ev)
			continue
		}
		fmt.Fprintln(p.w, formatEvent(ev))
	}
}

// formatEvent renders one event as a human readable line.
func formatEvent(ev input.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-14s", ev.Time.Format("15:04:05.000"), ev.Type.Kind)

	t := ev.Type
	switch t.Kind {
	case input.KindKeyPress, input.KindKeyRelease:
		fmt.Fprintf(&b, " %-10s code=%d pos=%d", t.Key, ev.PlatformCode, ev.PositionCode)
		if ev.Unicode != "" {
			fmt.Fprintf(&b, " text=%q", ev.Unicode)
		}
	case input.KindButtonPress, input.KindButtonRelease:
		fmt.Fprintf(&b, " button=%d x=%.0f y=%.0f", t.Button, t.X, t.Y)
	case input.KindMouseMove:
		fmt.Fprintf(&b, " x=%.0f y=%.0f", t.X, t.Y)
	case input.KindWheel:
		fmt.Fprintf(&b, " dx=%d dy=%d", t.DeltaX, t.DeltaY)
	}
	if ev.ExtraData != 0 {
		fmt.Fprintf(&b, " extra=%#x", ev.ExtraData)
	}
	return b.String()
}
