// Package app is the demo application: a pannable, zoomable canvas of
// panels drawn through the streaming renderer.
package app

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/irfansharif/guistream"
	"github.com/irfansharif/guistream/drawlist"
	"github.com/irfansharif/guistream/internal/geom"
	"github.com/irfansharif/guistream/internal/palette"
)

const (
	minPanelSize   = 160.0 // smallest panel edge in canvas units
	maxPanelExtent = 160.0 // random extra added to each edge
	panelPadding   = 6
	circleSegments = 24
)

// App encapsulates the main application state and logic.
type App struct {
	Renderer *guistream.Renderer
	UI       *drawlist.Context
	View     *View
	Panels   *PanelManager

	// ShowStats toggles the statistics overlay.
	ShowStats bool

	shimmer *rand.Rand // jitters the selected panel's accents every frame
	logger  *zap.Logger
}

// NewApp creates a new application instance. The renderer must be
// initialized (see MeasureCapacity) before the first Frame.
func NewApp(renderer *guistream.Renderer, ui *drawlist.Context, view *View, seed int64, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		Renderer:  renderer,
		UI:        ui,
		View:      view,
		Panels:    NewPanelManager(seed),
		ShowStats: true,
		shimmer:   rand.New(rand.NewSource(seed)),
		logger:    logger,
	}
}

// CreatePanel creates a new panel centered at the specified canvas position.
func (app *App) CreatePanel(canvasX, canvasY float64, items *int) *Panel {
	seed := app.Panels.IncrementSeed()
	r := rand.New(rand.NewSource(seed))
	w := minPanelSize + r.Float64()*maxPanelExtent
	h := minPanelSize + r.Float64()*maxPanelExtent
	kind := Kind(r.Intn(int(numKinds)))
	bounds := geom.MakeRect(canvasX-w/2, canvasY-h/2, w, h)
	return app.Panels.AddPanel(bounds, kind, seed, items)
}

// RegenerateClosest advances the seed of the closest panel to the given
// position, picking a new body kind and palette. A non-nil items replaces the
// panel's item count.
func (app *App) RegenerateClosest(canvasX, canvasY float64, items *int, forward bool) {
	panels := app.Panels.FindClosestPanels(canvasX, canvasY)
	if len(panels) == 0 {
		return // nothing to do
	}
	panel := panels[0]
	if forward {
		panel.SetSeed(panel.Seed + 1)
	} else {
		panel.SetSeed(panel.Seed - 1)
	}
	panel.Kind = Kind(rand.New(rand.NewSource(panel.Seed)).Intn(int(numKinds)))
	if items != nil {
		panel.SetItems(items)
	}
}

// MeasureCapacity builds one frame of the current scene without rendering it
// and returns capacity hints for Renderer.Initialize.
func (app *App) MeasureCapacity(params drawlist.FrameParams) (vertices, indices int, err error) {
	if err := app.UI.NewFrame(params); err != nil {
		return 0, 0, err
	}
	app.BuildUI()
	data, err := app.UI.Render()
	if err != nil {
		return 0, 0, err
	}
	vertices, indices = guistream.Measure(guistream.DefaultHeadroom, data)
	return vertices, indices, nil
}

// Frame runs one full frame: begin, build, render and synchronize. A frame
// dropped for overflowing the geometry slots grows them so that the next
// frame fits.
func (app *App) Frame(params drawlist.FrameParams) (guistream.FrameResult, error) {
	if err := app.Renderer.BeginFrame(app.UI, params); err != nil {
		return guistream.FrameResult{}, err
	}
	app.BuildUI()
	res, rerr := app.Renderer.RenderFrame(app.UI)
	if _, err := app.Renderer.SynchronizeFrame(); err != nil {
		return res, err
	}

	var oerr *guistream.OverflowError
	if errors.As(rerr, &oerr) {
		return res, app.grow(oerr)
	}
	return res, rerr
}

// grow re-initializes the renderer with room for at least the write that
// overflowed, doubling the overflowing buffer.
func (app *App) grow(oerr *guistream.OverflowError) error {
	s := app.Renderer.Stats()
	vertices, indices := s.VertexCapacity, s.IndexCapacity
	needed := oerr.Offset + oerr.Count
	if oerr.Buffer == guistream.VertexBuffer {
		vertices = max(2*vertices, needed)
	} else {
		indices = max(2*indices, needed)
	}

	app.logger.Warn("frame dropped, growing geometry slots",
		zap.Error(oerr),
		zap.Int("vertex_capacity", vertices),
		zap.Int("index_capacity", indices),
	)
	app.Renderer.Shutdown()
	if err := app.Renderer.Initialize(app.UI, vertices, indices); err != nil {
		return fmt.Errorf("growing geometry slots: %w", err)
	}
	return nil
}

// BuildUI emits one list per panel in creation order, followed by the
// statistics overlay. It must be called between the UI's NewFrame and Render.
func (app *App) BuildUI() {
	for _, panel := range app.Panels.GetPanels() {
		app.drawPanel(app.UI.NewList(), panel)
	}
	if app.ShowStats {
		app.drawStats(app.UI.NewList())
	}
}

func vec(x, y float64) drawlist.Vec2 {
	return drawlist.Vec2{X: float32(x), Y: float32(y)}
}

func (app *App) drawPanel(l *drawlist.List, p *Panel) {
	r := rand.New(rand.NewSource(p.Seed))
	pal := palette.RandomPalette(r)
	if p == app.Panels.Current() {
		pal = palette.Shimmered(pal, int(app.UI.Frame()), app.shimmer)
	}
	cols := pal.Packed()

	sr := app.View.RectToScreen(p.Bounds)
	lo, hi := vec(sr.X, sr.Y), vec(sr.Right(), sr.Bottom())
	l.PushClipRect(drawlist.Rect{Min: lo, Max: hi}, true)
	defer l.PopClipRect()

	lineHeight := app.UI.FontAtlas().LineHeight()
	titleH := lineHeight + 4
	l.AddRectFilled(lo, hi, cols[palette.Background])
	l.AddRectFilled(lo, drawlist.Vec2{X: hi.X, Y: lo.Y + titleH}, cols[palette.Surface])
	title := fmt.Sprintf("#%d %s", p.ID, p.Kind)
	l.AddText(drawlist.Vec2{X: lo.X + 4, Y: lo.Y + 2}, drawlist.ColorFromRGBA(palette.Contrast(pal[palette.Surface])), title)
	l.AddRect(lo, hi, cols[palette.Accent], 1)

	body := drawlist.Rect{
		Min: drawlist.Vec2{X: lo.X + panelPadding, Y: lo.Y + titleH + panelPadding},
		Max: drawlist.Vec2{X: hi.X - panelPadding, Y: hi.Y - panelPadding},
	}
	if body.Max.X <= body.Min.X || body.Max.Y <= body.Min.Y {
		return
	}
	l.PushClipRect(body, true)
	defer l.PopClipRect()

	n := r.Intn(12) + 4
	if p.Items != nil {
		n = *p.Items
	}
	accent := func(i int) uint32 { return cols[palette.Accent+i%3] }

	bw, bh := body.Max.X-body.Min.X, body.Max.Y-body.Min.Y
	switch p.Kind {
	case KindBars:
		if n <= 0 {
			return
		}
		step := bw / float32(n)
		for i := 0; i < n; i++ {
			h := bh * (0.1 + 0.9*r.Float32())
			x := body.Min.X + float32(i)*step
			l.AddRectFilled(
				drawlist.Vec2{X: x + 1, Y: body.Max.Y - h},
				drawlist.Vec2{X: x + step - 1, Y: body.Max.Y},
				accent(i),
			)
		}

	case KindPolygon:
		points := star(
			float64(body.Min.X+bw/2), float64(body.Min.Y+bh/2),
			float64(min(bw, bh))/2, max(n, 3),
		)
		if err := l.AddPolyFilled(points, accent(0)); err != nil {
			app.logger.Debug("skipping polygon", zap.Int64("seed", p.Seed), zap.Error(err))
		}

	case KindCircles:
		maxRadius := min(bw, bh) / 4
		for i := 0; i < n; i++ {
			radius := 2 + r.Float32()*maxRadius
			center := drawlist.Vec2{
				X: body.Min.X + r.Float32()*bw,
				Y: body.Min.Y + r.Float32()*bh,
			}
			l.AddCircleFilled(center, radius, accent(i), circleSegments)
		}

	case KindText:
		text := drawlist.ColorFromRGBA(palette.Contrast(pal[palette.Background]))
		for i := 0; i < n; i++ {
			y := body.Min.Y + float32(i)*lineHeight
			l.AddText(drawlist.Vec2{X: body.Min.X, Y: y}, text, fmt.Sprintf("item %02d  %.3f", i, r.Float64()))
		}
	}
}

// star returns the outline of an n-pointed star, a concave polygon.
func star(cx, cy, radius float64, n int) []drawlist.Vec2 {
	points := make([]drawlist.Vec2, 0, 2*n)
	for i := 0; i < 2*n; i++ {
		rr := radius
		if i%2 == 1 {
			rr *= 0.45
		}
		a := math.Pi*float64(i)/float64(n) - math.Pi/2
		points = append(points, vec(cx+rr*math.Cos(a), cy+rr*math.Sin(a)))
	}
	return points
}

// drawStats draws the renderer statistics in the top-left corner.
func (app *App) drawStats(l *drawlist.List) {
	lines := strings.Split(app.Renderer.Stats().String(), "\n")
	lineHeight := app.UI.FontAtlas().LineHeight()

	width := float32(0)
	for _, line := range lines {
		width = max(width, l.TextSize(line).X)
	}
	origin := drawlist.Vec2{X: 8, Y: 8}
	l.AddRectFilled(
		origin,
		drawlist.Vec2{X: origin.X + width + 8, Y: origin.Y + float32(len(lines))*lineHeight + 8},
		drawlist.RGBA(0, 0, 0, 200),
	)
	for i, line := range lines {
		l.AddText(drawlist.Vec2{X: origin.X + 4, Y: origin.Y + 4 + float32(i)*lineHeight}, drawlist.RGBA(255, 255, 255, 255), line)
	}
}
