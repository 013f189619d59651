// Package input is the raw input-polling adapter: it drains tcell key
// events into logical button states behaviors can query during update
// phases. Terminals deliver no key-up events, so "held" means "pressed
// since the previous poll".
package input

import (
	"github.com/gdamore/tcell/v2"
)

// Button is a logical input the game queries, decoupled from physical keys
type Button uint8

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonUp
	ButtonDown
	ButtonAction
	ButtonQuit
	buttonCount
)

// Poller drains tcell events once per frame into button states
type Poller struct {
	events  chan tcell.Event
	pressed [buttonCount]bool
}

// NewPoller starts reading events from the screen. The feeding
// goroutine exits when the screen is finalized.
func NewPoller(screen tcell.Screen) *Poller {
	p := &Poller{events: make(chan tcell.Event, 64)}
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(p.events)
				return
			}
			p.events <- ev
		}
	}()
	return p
}

// Update clears last frame's states and drains pending events. Called
// once per frame by the host before the scene update phases.
func (p *Poller) Update() {
	for i := range p.pressed {
		p.pressed[i] = false
	}
	for {
		select {
		case ev, ok := <-p.events:
			if !ok {
				return
			}
			p.handle(ev)
		default:
			return
		}
	}
}

func (p *Poller) handle(ev tcell.Event) {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return
	}
	switch key.Key() {
	case tcell.KeyLeft:
		p.pressed[ButtonLeft] = true
	case tcell.KeyRight:
		p.pressed[ButtonRight] = true
	case tcell.KeyUp:
		p.pressed[ButtonUp] = true
	case tcell.KeyDown:
		p.pressed[ButtonDown] = true
	case tcell.KeyEscape, tcell.KeyCtrlC:
		p.pressed[ButtonQuit] = true
	case tcell.KeyRune:
		switch key.Rune() {
		case 'h', 'a':
			p.pressed[ButtonLeft] = true
		case 'l', 'd':
			p.pressed[ButtonRight] = true
		case 'k', 'w':
			p.pressed[ButtonUp] = true
		case 'j', 's':
			p.pressed[ButtonDown] = true
		case ' ':
			p.pressed[ButtonAction] = true
		case 'q':
			p.pressed[ButtonQuit] = true
		}
	}
}

// Held reports whether the button was pressed since the previous poll
func (p *Poller) Held(b Button) bool {
	return p.pressed[b]
}
