package app

import (
	"math"
	"sort"

	"github.com/irfansharif/guistream/internal/geom"
)

// PanelID identifies a panel for its lifetime.
type PanelID int

// Kind selects what a panel draws in its body.
type Kind int

const (
	KindBars    Kind = iota // filled rectangles
	KindPolygon             // concave star, triangulated with earcut
	KindCircles             // filled circles
	KindText                // lines of text
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindBars:
		return "bars"
	case KindPolygon:
		return "polygon"
	case KindCircles:
		return "circles"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Panel is a single window-like widget on the canvas.
type Panel struct {
	ID     PanelID   // unique identifier
	Bounds geom.Rect // position and size in canvas coordinates
	Kind   Kind      // body contents
	Seed   int64     // seed for palette and layout (for reproducibility)
	Items  *int      // number of body items, nil for seeded randomization
}

// Center returns the center of the panel in canvas coordinates.
func (p *Panel) Center() geom.Point {
	return geom.Point{X: p.Bounds.X + p.Bounds.W/2, Y: p.Bounds.Y + p.Bounds.H/2}
}

// SetSeed updates the panel's seed.
func (p *Panel) SetSeed(seed int64) {
	p.Seed = seed
}

func (p *Panel) SetItems(items *int) {
	p.Items = items
}

// PanelManager manages multiple panels across the canvas.
type PanelManager struct {
	panels         map[PanelID]*Panel // map of panel IDs to panels
	currentPanelID PanelID            // ID of the current panel
	currentSeed    int64              // current seed
	nextID         PanelID            // next panel ID to assign
}

// NewPanelManager creates a new panel manager.
func NewPanelManager(seed int64) *PanelManager {
	return &PanelManager{
		panels:         make(map[PanelID]*Panel),
		currentPanelID: -1,
		currentSeed:    seed,
	}
}

// AddPanel adds a new panel to the manager.
func (pm *PanelManager) AddPanel(bounds geom.Rect, kind Kind, seed int64, items *int) *Panel {
	panel := &Panel{
		ID:     pm.nextID,
		Bounds: bounds,
		Kind:   kind,
		Seed:   seed,
		Items:  items,
	}
	pm.panels[panel.ID] = panel
	pm.nextID++
	return panel
}

// RemovePanel removes a panel by ID.
func (pm *PanelManager) RemovePanel(id PanelID) bool {
	if _, ok := pm.panels[id]; ok {
		delete(pm.panels, id)
		return true
	}
	return false
}

// Len returns the number of panels.
func (pm *PanelManager) Len() int { return len(pm.panels) }

// GetPanels returns all panels sorted by ID (ascending), which is also their
// drawing order.
func (pm *PanelManager) GetPanels() []*Panel {
	panels := make([]*Panel, 0, len(pm.panels))
	for _, panel := range pm.panels {
		panels = append(panels, panel)
	}
	sort.SliceStable(panels, func(i, j int) bool { return panels[i].ID < panels[j].ID })
	return panels
}

// FindClosestPanels returns all panels sorted by the distance of their center
// to the given point (closest first). For panels at equal distance, sorts by
// ID (highest first).
func (pm *PanelManager) FindClosestPanels(canvasX, canvasY float64) []*Panel {
	type sortKey struct {
		distance float64
		ID       PanelID
	}

	var sortKeys []sortKey
	for _, panel := range pm.panels {
		c := panel.Center()
		dx := c.X - canvasX
		dy := c.Y - canvasY
		sortKeys = append(sortKeys, sortKey{math.Sqrt(dx*dx + dy*dy), panel.ID})
	}

	sort.Slice(sortKeys, func(i, j int) bool {
		if math.Abs(sortKeys[i].distance-sortKeys[j].distance) < 1e-4 {
			return sortKeys[i].ID > sortKeys[j].ID
		}
		return sortKeys[i].distance < sortKeys[j].distance
	})

	result := make([]*Panel, len(sortKeys))
	for i, sortKey := range sortKeys {
		result[i] = pm.panels[sortKey.ID]
	}
	return result
}

// SetCurrentPanel sets the current panel directly.
func (pm *PanelManager) SetCurrentPanel(panel *Panel) {
	if panel == nil {
		pm.currentPanelID = -1
	} else {
		pm.currentPanelID = panel.ID
	}
}

// Current returns the panel last selected by IterPanel or SetCurrentPanel,
// or nil.
func (pm *PanelManager) Current() *Panel {
	return pm.panels[pm.currentPanelID]
}

// IncrementSeed increments the seed by 1 and returns it.
func (pm *PanelManager) IncrementSeed() int64 {
	pm.currentSeed++
	return pm.currentSeed
}

// IterPanel iterates to the next or previous panel in creation order,
// wrapping around.
func (pm *PanelManager) IterPanel(next bool) *Panel {
	if len(pm.panels) == 0 {
		pm.currentPanelID = -1
		return nil
	}

	direction := 1
	if !next {
		direction = -1
	}

	ids := make([]PanelID, 0, len(pm.panels))
	for id := range pm.panels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var currentID PanelID
	if pm.currentPanelID >= 0 {
		currentID = pm.currentPanelID
	} else if next {
		currentID = ids[len(ids)-1]
	} else {
		currentID = ids[0]
	}

	pos := -1
	for i, id := range ids {
		if id == currentID {
			pos = i
			break
		}
	}
	if pos == -1 {
		pos = len(ids) - 1 // current panel was deleted, restart from the matching end
		if !next {
			pos = 0
		}
	}

	newID := ids[(pos+direction+len(ids))%len(ids)]
	pm.currentPanelID = newID
	return pm.panels[newID]
}
