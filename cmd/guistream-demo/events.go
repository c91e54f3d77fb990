package main

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/irfansharif/guistream"
	"github.com/irfansharif/guistream/internal/app"
	"github.com/irfansharif/guistream/internal/geom"
)

const (
	repeatInterval  = 125 * time.Millisecond // between repeated actions while a key is held
	basePanDistance = 100.0
	panelSpacing    = 360.0 // grid spacing for batch-created panels
	zoomStep        = 0.15
)

// repeater fires an action on press and then every repeatInterval until
// release. GLFW's own key repeat is ignored for consistent timing.
type repeater struct {
	held bool
	last time.Time
	fire func()
}

func (r *repeater) press(fire func()) {
	r.held, r.fire = true, fire
	fire()
	r.last = time.Now()
}

func (r *repeater) release() { r.held = false }

func (r *repeater) tick(now time.Time) {
	if !r.held || now.Sub(r.last) < repeatInterval {
		return
	}
	r.fire()
	r.last = now
}

// EventHandlers maps window input onto the application.
//
//	Space / Shift+Space  regenerate the closest panel (held: repeat)
//	C / D                create / delete panels ("N" or "N,items" typed first)
//	Tab / Shift+Tab      cycle through panels
//	R                    reset the view onto the closest panel
//	H J K L              pan (held: repeat)
//	S                    toggle the statistics overlay
//	T                    toggle the sync timeout between default and zero
//	drag, scroll         pan, zoom around the cursor
type EventHandlers struct {
	application *app.App
	window      *glfw.Window

	regen, pan repeater

	// Drag state, captured on mouse press.
	dragging                     bool
	dragStart                    geom.Point // cursor, window coordinates
	dragStartPanX, dragStartPanY float64

	mouse       geom.Point // cursor, canvas coordinates
	inputBuffer string     // digits and commas typed before an action key

	pressBindings map[glfw.Key]func(mods glfw.ModifierKey)
}

// NewEventHandlers installs the window callbacks.
func NewEventHandlers(application *app.App, window *glfw.Window) *EventHandlers {
	eh := &EventHandlers{application: application, window: window}
	eh.pressBindings = map[glfw.Key]func(glfw.ModifierKey){
		glfw.KeyR:   func(glfw.ModifierKey) { eh.resetView() },
		glfw.KeyC:   func(glfw.ModifierKey) { eh.createPanels() },
		glfw.KeyD:   func(glfw.ModifierKey) { eh.deletePanels() },
		glfw.KeyS:   func(glfw.ModifierKey) { application.ShowStats = !application.ShowStats },
		glfw.KeyT:   func(glfw.ModifierKey) { eh.toggleSyncTimeout() },
		glfw.KeyTab: func(mods glfw.ModifierKey) { eh.navigate(mods&glfw.ModShift == 0) },
		glfw.KeyEqual: func(mods glfw.ModifierKey) {
			if mods&glfw.ModSuper != 0 {
				eh.zoom(1)
			}
		},
		glfw.KeyMinus: func(mods glfw.ModifierKey) {
			if mods&glfw.ModSuper != 0 {
				eh.zoom(-1)
			}
		},
	}

	window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		eh.handleKey(key, action, mods)
	})
	window.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		eh.handleMouseButton(button, action)
	})
	window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		eh.handleCursorPos(x, y)
	})
	window.SetScrollCallback(func(_ *glfw.Window, _, dy float64) {
		eh.zoom(dy)
	})
	window.SetSizeCallback(func(_ *glfw.Window, w, h int) {
		application.View.SetViewport(w, h)
	})
	return eh
}

// tick drives held-key repeats; call it once per frame.
func (eh *EventHandlers) tick(now time.Time) {
	eh.regen.tick(now)
	eh.pan.tick(now)
}

func (eh *EventHandlers) handleKey(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Release {
		switch key {
		case glfw.KeySpace:
			eh.regen.release()
		case glfw.KeyH, glfw.KeyJ, glfw.KeyK, glfw.KeyL:
			eh.pan.release()
		}
		return
	}
	if action != glfw.Press {
		return
	}

	switch {
	case key >= glfw.Key0 && key <= glfw.Key9:
		eh.inputBuffer += string(rune('0' + int(key-glfw.Key0)))
		return
	case key == glfw.KeyComma:
		eh.inputBuffer += ","
		return
	case key == glfw.KeyEscape:
		eh.inputBuffer = ""
		return
	}

	switch key {
	case glfw.KeySpace:
		_, items := eh.parseInput(false)
		forward := mods&glfw.ModShift == 0
		eh.regen.press(func() { eh.application.RegenerateClosest(eh.mouse.X, eh.mouse.Y, items, forward) })
		return
	case glfw.KeyH:
		eh.pan.press(func() { eh.panBy(1, 0) })
	case glfw.KeyJ:
		eh.pan.press(func() { eh.panBy(0, -1) })
	case glfw.KeyK:
		eh.pan.press(func() { eh.panBy(0, 1) })
	case glfw.KeyL:
		eh.pan.press(func() { eh.panBy(-1, 0) })
	}

	if bind, ok := eh.pressBindings[key]; ok {
		bind(mods)
	}
	if key != glfw.KeyC && key != glfw.KeyD {
		eh.inputBuffer = ""
	}
}

// panBy pans one step, scaled so a step covers the same screen distance at
// every zoom level.
func (eh *EventHandlers) panBy(dx, dy float64) {
	view := eh.application.View
	step := basePanDistance / view.Zoom
	view.SetPan(view.PanX+dx*step, view.PanY+dy*step)
	eh.refreshMouse()
}

func (eh *EventHandlers) refreshMouse() {
	x, y := eh.window.GetCursorPos()
	eh.mouse = eh.application.View.ToCanvas(geom.MakePoint(x, y))
}

// resetView centers the closest panel at zoom 1 and selects it for Tab.
func (eh *EventHandlers) resetView() {
	if panels := eh.application.Panels.FindClosestPanels(eh.mouse.X, eh.mouse.Y); len(panels) > 0 {
		eh.application.View.ResetTo(panels[0].Center())
		eh.application.Panels.SetCurrentPanel(panels[0])
	}
	eh.refreshMouse()
}

func (eh *EventHandlers) toggleSyncTimeout() {
	r := eh.application.Renderer
	if r.SyncTimeout() == 0 {
		r.ConfigureSyncTimeout(guistream.DefaultSyncTimeout)
	} else {
		r.ConfigureSyncTimeout(0)
	}
}

func (eh *EventHandlers) handleMouseButton(button glfw.MouseButton, action glfw.Action) {
	if button != glfw.MouseButtonLeft {
		return
	}
	switch action {
	case glfw.Press:
		eh.dragging = true
		x, y := eh.window.GetCursorPos()
		eh.dragStart = geom.MakePoint(x, y)
		eh.dragStartPanX, eh.dragStartPanY = eh.application.View.PanX, eh.application.View.PanY
	case glfw.Release:
		eh.dragging = false
	}
}

// handleCursorPos tracks the cursor in canvas coordinates and pans while
// dragging. Cursor positions are window coordinates, the space panels are laid
// out in, so no content scale applies.
func (eh *EventHandlers) handleCursorPos(x, y float64) {
	view := eh.application.View
	if eh.dragging {
		view.SetPan(eh.dragStartPanX+x-eh.dragStart.X, eh.dragStartPanY+y-eh.dragStart.Y)
	}
	eh.mouse = view.ToCanvas(geom.MakePoint(x, y))
}

// zoom scales the view keeping the canvas point under the cursor fixed.
func (eh *EventHandlers) zoom(delta float64) {
	view := eh.application.View
	x, y := eh.window.GetCursorPos()
	cursor := geom.MakePoint(x, y)
	anchor := view.ToCanvas(cursor)

	view.SetZoom(view.Zoom * (1 + delta*zoomStep))

	// Solve ToScreen(anchor) == cursor for the pan.
	moved := view.ToScreen(anchor)
	view.SetPan(view.PanX+cursor.X-moved.X, view.PanY+cursor.Y-moved.Y)
	eh.mouse = anchor
}

// createPanels creates one panel at the cursor, or a grid of them.
func (eh *EventHandlers) createPanels() {
	count, items := eh.parseInput(false)
	cols := int(math.Sqrt(float64(count))) + 1
	for i := 0; i < count; i++ {
		col, row := i%cols, i/cols
		x := eh.mouse.X + float64(col)*panelSpacing + rand.Float64()*panelSpacing/10
		y := eh.mouse.Y + float64(row)*panelSpacing + rand.Float64()*panelSpacing/10
		eh.application.CreatePanel(x, y, items)
	}
}

// deletePanels deletes the closest panel, or the N closest.
func (eh *EventHandlers) deletePanels() {
	count, _ := eh.parseInput(true)
	panels := eh.application.Panels.FindClosestPanels(eh.mouse.X, eh.mouse.Y)
	for _, p := range panels[:min(count, len(panels))] {
		eh.application.Panels.RemovePanel(p.ID)
	}
}

// navigate selects the next or previous panel and centers it, moving the
// canvas cursor there for subsequent regenerations and deletions.
func (eh *EventHandlers) navigate(next bool) {
	panel := eh.application.Panels.IterPanel(next)
	if panel == nil {
		return
	}
	eh.application.View.ResetTo(panel.Center())
	eh.mouse = panel.Center()
}

// parseInput consumes the input buffer. "N,M" is a count and an item count;
// a lone number is the count when countOnly is set and the item count
// otherwise. The count defaults to 1.
func (eh *EventHandlers) parseInput(countOnly bool) (count int, items *int) {
	input := eh.inputBuffer
	eh.inputBuffer = ""
	count = 1

	countStr, itemsStr, hasComma := strings.Cut(input, ",")
	if !hasComma {
		if countOnly {
			itemsStr = ""
		} else {
			countStr, itemsStr = "", input
		}
	}
	if v, err := strconv.Atoi(strings.TrimSpace(countStr)); err == nil {
		count = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(itemsStr)); err == nil {
		items = &v
	}
	return count, items
}
