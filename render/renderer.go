// Package render is the terminal rendering adapter. The runtime core
// never draws; this package reads Sprite components and world poses
// each frame and projects them onto a tcell screen through the primary
// camera.
package render

import (
	"sort"

	"github.com/gdamore/tcell/v2"

	"github.com/clokk/bonkgo/engine"
	"github.com/clokk/bonkgo/vmath"
)

// World units per terminal cell. Terminal cells are roughly twice as
// tall as wide; Y is compressed to keep squares square-ish.
const (
	cellWidth  = 10.0
	cellHeight = 20.0
)

// Renderer draws a scene onto a tcell screen
type Renderer struct {
	screen tcell.Screen
	owned  bool
}

// New initializes a fresh terminal screen
func New() (*Renderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()
	return &Renderer{screen: screen, owned: true}, nil
}

// NewWithScreen wraps an existing screen (e.g. a simulation screen in tests)
func NewWithScreen(screen tcell.Screen) *Renderer {
	return &Renderer{screen: screen}
}

// Screen exposes the underlying tcell screen for input polling
func (r *Renderer) Screen() tcell.Screen { return r.screen }

type drawCall struct {
	x, y  int
	glyph rune
	z     int
	order int
}

// Draw renders every visible sprite, lowest zIndex first
func (r *Renderer) Draw(scene *engine.Scene) {
	r.screen.Clear()

	width, height := r.screen.Size()
	center := r.cameraCenter(scene)
	zoom := r.cameraZoom(scene)

	var calls []drawCall
	order := 0
	for _, e := range sceneEntities(scene) {
		sprite, ok := engine.ComponentOf[*engine.Sprite](e)
		if !ok || !sprite.Visible() || !e.Enabled() {
			continue
		}
		world := e.Transform().WorldPosition()
		// World origin maps to screen center; world Y points up
		sx := width/2 + int((world.X-center.X)*zoom/cellWidth)
		sy := height/2 - int((world.Y-center.Y)*zoom/cellHeight)
		if sx < 0 || sx >= width || sy < 0 || sy >= height {
			continue
		}
		glyph := sprite.Glyph
		if glyph == 0 {
			glyph = '#'
		}
		calls = append(calls, drawCall{x: sx, y: sy, glyph: glyph, z: e.Transform().ZIndex, order: order})
		order++
	}

	sort.SliceStable(calls, func(i, j int) bool { return calls[i].z < calls[j].z })
	style := tcell.StyleDefault
	for _, c := range calls {
		r.screen.SetContent(c.x, c.y, c.glyph, nil, style)
	}

	r.screen.Show()
}

// cameraCenter returns the world position of the first enabled primary
// camera, or the first enabled camera, or the origin.
func (r *Renderer) cameraCenter(scene *engine.Scene) vmath.Vec2 {
	var fallback *engine.Entity
	for _, e := range sceneEntities(scene) {
		cam, ok := engine.ComponentOf[*engine.Camera](e)
		if !ok || !cam.Enabled() {
			continue
		}
		if cam.Primary {
			return e.Transform().WorldPosition()
		}
		if fallback == nil {
			fallback = e
		}
	}
	if fallback != nil {
		return fallback.Transform().WorldPosition()
	}
	return vmath.Vec2{}
}

func (r *Renderer) cameraZoom(scene *engine.Scene) float64 {
	for _, e := range sceneEntities(scene) {
		if cam, ok := engine.ComponentOf[*engine.Camera](e); ok && cam.Enabled() && cam.Zoom > 0 {
			return cam.Zoom
		}
	}
	return 1
}

func sceneEntities(scene *engine.Scene) []*engine.Entity {
	var all []*engine.Entity
	var walk func(*engine.Entity)
	walk = func(e *engine.Entity) {
		all = append(all, e)
		for _, c := range e.Children() {
			walk(c)
		}
	}
	for _, root := range scene.Roots() {
		walk(root)
	}
	return all
}

// Close restores the terminal if this renderer owns the screen
func (r *Renderer) Close() {
	if r.owned {
		r.screen.Fini()
	}
}
