// Package export turns a geometry into downloadable artifacts: a printable
// PNG floor plan, GeoJSON and an XLSX takeoff sheet. Exports never modify the
// geometry they read.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/floorpro/measure-backend-go/internal/measure/metrics"
	"github.com/floorpro/measure-backend-go/internal/measure/openings"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/spatial"
)

// Default canvas size in pixels
const (
	DefaultWidth  = 1600
	DefaultHeight = 1200
)

const (
	margin      = 60
	legendWidth = 300
	wallStroke  = 4.0
	openStroke  = 7.0
	pointRadius = 5.0
	minGridPx   = 8.0
)

var ErrInvalidCanvas = errors.New("canvas must be at least 400x300")

var (
	colorBackground = color.RGBA{255, 255, 255, 255}
	colorGrid       = color.RGBA{229, 231, 235, 255}
	colorGridMajor  = color.RGBA{209, 213, 219, 255}
	colorWall       = color.RGBA{31, 41, 55, 255}
	colorDerived    = color.RGBA{156, 163, 175, 255}
	colorDoor       = color.RGBA{139, 69, 19, 255}
	colorWindow     = color.RGBA{30, 144, 255, 255}
	colorPoint      = color.RGBA{17, 24, 39, 255}
	colorLocked     = color.RGBA{220, 38, 38, 255}
	colorText       = color.RGBA{17, 24, 39, 255}
	colorPanel      = color.RGBA{249, 250, 251, 255}
	colorPanelEdge  = color.RGBA{107, 114, 128, 255}

	// dash pattern in pixels, on then off
	openingDash = []float64{14, 8}
)

// Options control the rendered canvas
type Options struct {
	Width  int
	Height int
	Title  string
}

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	return o
}

// OpeningColor keys an opening type to its stroke color
func OpeningColor(kind string) color.RGBA {
	if kind == models.OpeningWindow {
		return colorWindow
	}
	return colorDoor
}

// view maps plan inches to canvas pixels with y pointing up in the plan
type view struct {
	scale      float64
	minX, maxY float64
	left, top  float64
}

func (v view) px(x, y float64) (float64, float64) {
	return v.left + (x-v.minX)*v.scale, v.top + (v.maxY-y)*v.scale
}

func fit(points []models.Point, plan image.Rectangle) view {
	if len(points) == 0 {
		return view{scale: 2, left: float64(plan.Min.X), top: float64(plan.Min.Y)}
	}

	ring := make([]spatial.Point, len(points))
	for i, p := range points {
		ring[i] = spatial.Point{X: p.X, Y: p.Y}
	}
	box := spatial.BoundingBox(ring)
	w, h := box.X.Length(), box.Y.Length()

	scale := math.Inf(1)
	if w > 0 {
		scale = float64(plan.Dx()) / w
	}
	if h > 0 {
		scale = math.Min(scale, float64(plan.Dy())/h)
	}
	if math.IsInf(scale, 1) {
		scale = 2
	}

	// center the outline in the plan area
	left := float64(plan.Min.X) + (float64(plan.Dx())-w*scale)/2
	top := float64(plan.Min.Y) + (float64(plan.Dy())-h*scale)/2
	return view{scale: scale, minX: box.X.Lo, maxY: box.Y.Hi, left: left, top: top}
}

// Render rasterizes g: grid, walls with length labels, dashed openings,
// point markers and a legend.
func Render(g *models.Geometry, opts Options) (*image.RGBA, error) {
	opts = opts.withDefaults()
	if opts.Width < 400 || opts.Height < 300 {
		return nil, ErrInvalidCanvas
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)

	plan := image.Rect(margin, margin, opts.Width-legendWidth-margin, opts.Height-margin)
	v := fit(g.Points, plan)

	drawGrid(img, plan, v)
	drawWalls(img, g, v)
	if err := drawOpenings(img, g, v); err != nil {
		return nil, err
	}
	drawPoints(img, g.Points, v)
	drawLegend(img, g, opts)
	return img, nil
}

// EncodePNG renders g and writes it as PNG
func EncodePNG(w io.Writer, g *models.Geometry, opts Options) error {
	img, err := Render(g, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func drawGrid(img *image.RGBA, plan image.Rectangle, v view) {
	step := spatial.InchesPerFoot * v.scale
	major := 5
	for step < minGridPx {
		step *= 5
		major = 1
	}

	hline := func(y int, c color.Color) {
		draw.Draw(img, image.Rect(plan.Min.X, y, plan.Max.X, y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
	vline := func(x int, c color.Color) {
		draw.Draw(img, image.Rect(x, plan.Min.Y, x+1, plan.Max.Y), image.NewUniform(c), image.Point{}, draw.Src)
	}

	ox, oy := v.px(0, 0)
	first := func(origin float64, lo int) (float64, int) {
		k := math.Floor((float64(lo) - origin) / step)
		return origin + k*step, int(k)
	}

	x, kx := first(ox, plan.Min.X)
	for ; x < float64(plan.Max.X); x, kx = x+step, kx+1 {
		if x < float64(plan.Min.X) {
			continue
		}
		c := colorGrid
		if kx%major == 0 {
			c = colorGridMajor
		}
		vline(int(math.Round(x)), c)
	}

	y, ky := first(oy, plan.Min.Y)
	for ; y < float64(plan.Max.Y); y, ky = y+step, ky+1 {
		if y < float64(plan.Min.Y) {
			continue
		}
		c := colorGrid
		if ky%major == 0 {
			c = colorGridMajor
		}
		hline(int(math.Round(y)), c)
	}
}

func newDasher(img *image.RGBA, width float64, c color.Color, dashes []float64) *rasterx.Dasher {
	b := img.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
	d := rasterx.NewDasher(b.Dx(), b.Dy(), scanner)
	d.SetStroke(fixed.Int26_6(width*64), 0, rasterx.ButtCap, rasterx.ButtCap, rasterx.RoundGap, rasterx.ArcClip, dashes, 0)
	d.SetColor(c)
	return d
}

func strokeLine(d *rasterx.Dasher, x1, y1, x2, y2 float64) {
	d.Start(rasterx.ToFixedP(x1, y1))
	d.Line(rasterx.ToFixedP(x2, y2))
	d.Stop(false)
}

func drawWalls(img *image.RGBA, g *models.Geometry, v view) {
	solid := newDasher(img, wallStroke, colorWall, nil)
	derived := newDasher(img, wallStroke, colorDerived, nil)

	type label struct {
		text string
		x, y float64
	}
	var labels []label

	for _, s := range g.Segments {
		a, okA := g.PointByID(s.A)
		b, okB := g.PointByID(s.B)
		if !okA || !okB {
			continue
		}
		x1, y1 := v.px(a.X, a.Y)
		x2, y2 := v.px(b.X, b.Y)

		d := solid
		if s.Source == models.SourceDerived {
			d = derived
		}
		strokeLine(d, x1, y1, x2, y2)

		// label sits just outside the wall midpoint
		mx, my := (x1+x2)/2, (y1+y2)/2
		nx, ny := y2-y1, -(x2 - x1)
		if n := math.Hypot(nx, ny); n > 0 {
			mx += nx / n * 14
			my += ny / n * 14
		}
		labels = append(labels, label{text: spatial.FormatFeetInches(s.Length), x: mx, y: my})
	}

	solid.Draw()
	derived.Draw()

	for _, l := range labels {
		drawTextCentered(img, l.text, l.x, l.y, colorText)
	}
}

func drawOpenings(img *image.RGBA, g *models.Geometry, v view) error {
	byType := map[string]*rasterx.Dasher{}
	for _, o := range g.Openings {
		s, ok := g.SegmentByID(o.SegmentID)
		if !ok {
			return fmt.Errorf("opening %s: %w", o.ID, openings.ErrUnknownSegment)
		}
		a, okA := g.PointByID(s.A)
		b, okB := g.PointByID(s.B)
		if !okA || !okB || s.Length <= 0 {
			continue
		}

		pa := spatial.Point{X: a.X, Y: a.Y}
		pb := spatial.Point{X: b.X, Y: b.Y}
		// offsets are measured along the stored wall length
		start := spatial.Lerp(pa, pb, o.OffsetFromA/s.Length)
		end := spatial.Lerp(pa, pb, (o.OffsetFromA+o.Width)/s.Length)

		d, ok := byType[o.Type]
		if !ok {
			d = newDasher(img, openStroke, OpeningColor(o.Type), openingDash)
			byType[o.Type] = d
		}
		x1, y1 := v.px(start.X, start.Y)
		x2, y2 := v.px(end.X, end.Y)
		strokeLine(d, x1, y1, x2, y2)
	}
	for _, d := range byType {
		d.Draw()
	}
	return nil
}

func drawPoints(img *image.RGBA, points []models.Point, v view) {
	b := img.Bounds()
	for _, p := range points {
		c := colorPoint
		if p.Locked {
			c = colorLocked
		}
		scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
		f := rasterx.NewFiller(b.Dx(), b.Dy(), scanner)
		f.SetColor(c)
		x, y := v.px(p.X, p.Y)
		rasterx.AddCircle(x, y, pointRadius, f)
		f.Draw()
	}
}

func drawLegend(img *image.RGBA, g *models.Geometry, opts Options) {
	panel := image.Rect(opts.Width-legendWidth, margin, opts.Width-margin/2, margin+300)
	draw.Draw(img, panel, image.NewUniform(colorPanelEdge), image.Point{}, draw.Src)
	draw.Draw(img, panel.Inset(1), image.NewUniform(colorPanel), image.Point{}, draw.Src)

	calc := metrics.Calculate(g)
	conf := metrics.Score(g.Segments)
	counts := openings.Count(g.Openings)

	lines := []string{}
	if opts.Title != "" {
		lines = append(lines, opts.Title, "")
	}
	lines = append(lines,
		fmt.Sprintf("Area:       %.1f sq ft", calc.Area),
		fmt.Sprintf("Perimeter:  %.1f ft", calc.Perimeter),
		fmt.Sprintf("Baseboard:  %.1f lf", calc.BaseboardLf),
		fmt.Sprintf("Confidence: %d%%", conf.Score),
		"",
		fmt.Sprintf("Doors: %d   Windows: %d", counts.Doors, counts.Windows),
		fmt.Sprintf("Points: %d  Walls: %d", len(g.Points), len(g.Segments)),
	)

	x := panel.Min.X + 16
	y := panel.Min.Y + 28
	for _, l := range lines {
		drawText(img, l, x, y, colorText)
		y += 20
	}

	y += 10
	for _, key := range []struct {
		name string
		c    color.RGBA
	}{{"Door", colorDoor}, {"Window", colorWindow}} {
		d := newDasher(img, openStroke, key.c, openingDash)
		strokeLine(d, float64(x), float64(y-4), float64(x+40), float64(y-4))
		d.Draw()
		drawText(img, key.name, x+52, y, colorText)
		y += 22
	}
}

func drawText(img *image.RGBA, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func drawTextCentered(img *image.RGBA, s string, x, y float64, c color.Color) {
	w := font.MeasureString(basicfont.Face7x13, s).Round()
	drawText(img, s, int(math.Round(x))-w/2, int(math.Round(y))+4, c)
}
