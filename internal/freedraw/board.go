// Package freedraw is the finger-drawing board: freehand strokes on a snap
// grid, placeable door and arc shapes, a pan/zoom view and linear undo/redo.
// It is independent of the point/segment geometry model.
package freedraw

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/floorpro/measure-backend-go/internal/spatial"
)

const (
	PixelsPerFoot   = 20.0
	MinZoom         = 0.25
	MaxZoom         = 8.0
	DefaultGridSize = 20.0
	MaxHistory      = 200
)

// Shape kinds
const (
	ShapeDoor    = "door"
	ShapeOpening = "opening"
	ShapeArc     = "arc"
)

// Stroke distance sources
const (
	SourceEstimated = "estimated"
	SourceLaser     = "laser"
)

var (
	ErrEmptyStroke     = errors.New("stroke needs at least two points")
	ErrNotDrawing      = errors.New("no stroke in progress")
	ErrNoPendingStroke = errors.New("no stroke is waiting for a laser reading")
	ErrInvalidShape    = errors.New("shape kind must be door, opening or arc with positive size")
	ErrShapeNotFound   = errors.New("shape not found")
)

// Point is a board position in world pixels
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one committed finger-drawn wall
type Stroke struct {
	ID         string  `json:"id"`
	Points     []Point `json:"points"`
	LengthPx   float64 `json:"lengthPx"`
	DistanceIn float64 `json:"distanceIn"`
	Source     string  `json:"source"`
	Pending    bool    `json:"pending,omitempty"` // waiting for a laser reading
	ReadingID  string  `json:"readingId,omitempty"`
}

// Shape is a placed primitive. It has no link to any stroke.
type Shape struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"` // degrees
}

// View maps world pixels to screen pixels: screen = world*zoom + pan
type View struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

// Snapshot is one history entry
type Snapshot struct {
	Strokes []Stroke `json:"strokes"`
	Shapes  []Shape  `json:"shapes"`
}

// Board is the persisted board document
type Board struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	JobID       string     `json:"jobId"`
	RoomID      string     `json:"roomId,omitempty"`
	GridSize    float64    `json:"gridSize"`
	Snap        bool       `json:"snap"`
	View        View       `json:"view"`
	Strokes     []Stroke   `json:"strokes"`
	Shapes      []Shape    `json:"shapes"`
	History     []Snapshot `json:"history"`
	Cursor      int        `json:"cursor"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	drawing []Point
	newID   func() string
}

// New returns an empty board with snapping on
func New(workspaceID, jobID, roomID string) *Board {
	b := &Board{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		JobID:       jobID,
		RoomID:      roomID,
		GridSize:    DefaultGridSize,
		Snap:        true,
		View:        View{Zoom: 1},
		Strokes:     []Stroke{},
		Shapes:      []Shape{},
	}
	b.History = []Snapshot{b.snapshot()}
	return b
}

func (b *Board) id() string {
	if b.newID != nil {
		return b.newID()
	}
	return uuid.NewString()
}

// ToWorld converts a screen position through the current view
func (b *Board) ToWorld(screen Point) Point {
	zoom := b.View.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return Point{X: (screen.X - b.View.PanX) / zoom, Y: (screen.Y - b.View.PanY) / zoom}
}

// SnapPoint rounds p to the nearest grid intersection when snapping is on
func (b *Board) SnapPoint(p Point) Point {
	if !b.Snap || b.GridSize <= 0 {
		return p
	}
	g := b.GridSize
	return Point{X: math.Round(p.X/g) * g, Y: math.Round(p.Y/g) * g}
}

// BeginStroke starts a stroke at a screen position
func (b *Board) BeginStroke(screen Point) {
	b.drawing = []Point{b.SnapPoint(b.ToWorld(screen))}
}

// ExtendStroke adds a screen position to the stroke in progress.
// Consecutive duplicates after snapping are dropped.
func (b *Board) ExtendStroke(screen Point) error {
	if b.drawing == nil {
		return ErrNotDrawing
	}
	p := b.SnapPoint(b.ToWorld(screen))
	if last := b.drawing[len(b.drawing)-1]; last != p {
		b.drawing = append(b.drawing, p)
	}
	return nil
}

// CommitStroke finishes the stroke in progress. With a laser connected the
// stroke waits for AttachReading; otherwise its distance is estimated from
// its drawn length at PixelsPerFoot.
func (b *Board) CommitStroke(laserConnected bool) (Stroke, error) {
	if b.drawing == nil {
		return Stroke{}, ErrNotDrawing
	}
	points := b.drawing
	b.drawing = nil
	if len(points) < 2 {
		return Stroke{}, ErrEmptyStroke
	}

	s := Stroke{ID: b.id(), Points: points, LengthPx: pathLength(points)}
	if laserConnected {
		s.Pending = true
	} else {
		s.Source = SourceEstimated
		s.DistanceIn = EstimateInches(s.LengthPx)
	}

	b.Strokes = append(b.Strokes, s)
	b.push()
	return s, nil
}

// AddStroke draws a whole stroke from screen positions in one call
func (b *Board) AddStroke(screen []Point, laserConnected bool) (Stroke, error) {
	if len(screen) == 0 {
		return Stroke{}, ErrEmptyStroke
	}
	b.BeginStroke(screen[0])
	for _, p := range screen[1:] {
		if err := b.ExtendStroke(p); err != nil {
			return Stroke{}, err
		}
	}
	return b.CommitStroke(laserConnected)
}

// AttachReading gives the oldest pending stroke its laser distance
func (b *Board) AttachReading(readingID string, inches float64) (Stroke, error) {
	for i := range b.Strokes {
		s := &b.Strokes[i]
		if !s.Pending {
			continue
		}
		s.Pending = false
		s.Source = SourceLaser
		s.DistanceIn = inches
		s.ReadingID = readingID
		b.push()
		return *s, nil
	}
	return Stroke{}, ErrNoPendingStroke
}

// PendingStrokes counts strokes waiting for a reading
func (b *Board) PendingStrokes() int {
	n := 0
	for _, s := range b.Strokes {
		if s.Pending {
			n++
		}
	}
	return n
}

// PlaceShape adds a shape at a world position
func (b *Board) PlaceShape(kind string, x, y, width, height, rotation float64) (Shape, error) {
	switch kind {
	case ShapeDoor, ShapeOpening, ShapeArc:
	default:
		return Shape{}, ErrInvalidShape
	}
	if width <= 0 || height <= 0 {
		return Shape{}, ErrInvalidShape
	}

	s := Shape{ID: b.id(), Kind: kind, X: x, Y: y, Width: width, Height: height, Rotation: math.Mod(rotation, 360)}
	b.Shapes = append(b.Shapes, s)
	b.push()
	return s, nil
}

// MoveShape repositions a shape and sets its rotation
func (b *Board) MoveShape(id string, x, y, rotation float64) (Shape, error) {
	for i := range b.Shapes {
		if b.Shapes[i].ID == id {
			b.Shapes[i].X, b.Shapes[i].Y = x, y
			b.Shapes[i].Rotation = math.Mod(rotation, 360)
			b.push()
			return b.Shapes[i], nil
		}
	}
	return Shape{}, ErrShapeNotFound
}

// RemoveShape deletes a shape
func (b *Board) RemoveShape(id string) error {
	for i, s := range b.Shapes {
		if s.ID == id {
			b.Shapes = append(b.Shapes[:i:i], b.Shapes[i+1:]...)
			b.push()
			return nil
		}
	}
	return ErrShapeNotFound
}

// Clear removes every stroke and shape as one undoable edit
func (b *Board) Clear() {
	b.Strokes = []Stroke{}
	b.Shapes = []Shape{}
	b.push()
}

// Pan moves the view by a screen delta
func (b *Board) Pan(dx, dy float64) {
	b.View.PanX += dx
	b.View.PanY += dy
}

// ZoomAt scales the view by factor keeping the screen point (cx, cy) fixed.
// Zoom is clamped to [MinZoom, MaxZoom].
func (b *Board) ZoomAt(factor, cx, cy float64) {
	if factor <= 0 {
		return
	}
	old := b.View.Zoom
	if old == 0 {
		old = 1
	}
	zoom := clampZoom(old * factor)
	anchor := b.ToWorld(Point{X: cx, Y: cy})
	b.View.Zoom = zoom
	b.View.PanX = cx - anchor.X*zoom
	b.View.PanY = cy - anchor.Y*zoom
}

// SetView replaces the view, clamping zoom
func (b *Board) SetView(v View) {
	v.Zoom = clampZoom(v.Zoom)
	b.View = v
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// CanUndo reports whether Undo has an earlier snapshot
func (b *Board) CanUndo() bool { return b.Cursor > 0 }

// CanRedo reports whether Redo has a later snapshot
func (b *Board) CanRedo() bool { return b.Cursor < len(b.History)-1 }

// Undo restores the previous snapshot
func (b *Board) Undo() bool {
	if !b.CanUndo() {
		return false
	}
	b.Cursor--
	b.restore(b.History[b.Cursor])
	return true
}

// Redo restores the next snapshot
func (b *Board) Redo() bool {
	if !b.CanRedo() {
		return false
	}
	b.Cursor++
	b.restore(b.History[b.Cursor])
	return true
}

// push records the current state, dropping any redo tail
func (b *Board) push() {
	if len(b.History) == 0 {
		b.History = []Snapshot{{Strokes: []Stroke{}, Shapes: []Shape{}}}
		b.Cursor = 0
	}
	b.History = append(b.History[:b.Cursor+1], b.snapshot())
	if len(b.History) > MaxHistory {
		b.History = b.History[len(b.History)-MaxHistory:]
	}
	b.Cursor = len(b.History) - 1
}

func (b *Board) snapshot() Snapshot {
	return Snapshot{Strokes: copyStrokes(b.Strokes), Shapes: append([]Shape{}, b.Shapes...)}
}

func (b *Board) restore(s Snapshot) {
	b.Strokes = copyStrokes(s.Strokes)
	b.Shapes = append([]Shape{}, s.Shapes...)
}

func copyStrokes(in []Stroke) []Stroke {
	out := make([]Stroke, len(in))
	for i, s := range in {
		s.Points = append([]Point(nil), s.Points...)
		out[i] = s
	}
	return out
}

// EstimateInches converts a drawn length to inches at PixelsPerFoot
func EstimateInches(lengthPx float64) float64 {
	return lengthPx / PixelsPerFoot * spatial.InchesPerFoot
}

func pathLength(points []Point) float64 {
	path := make([]spatial.Point, len(points))
	for i, p := range points {
		path[i] = spatial.Point{X: p.X, Y: p.Y}
	}
	return spatial.PathLength(path)
}

// Outline chains the strokes into a room outline in inches. Each stroke
// contributes its drawn direction scaled to its distance, so laser readings
// override drawn length. Pending strokes use their estimate.
func (b *Board) Outline() []spatial.Point {
	if len(b.Strokes) == 0 {
		return nil
	}
	first := b.Strokes[0].Points[0]
	cursor := spatial.Point{X: EstimateInches(first.X), Y: EstimateInches(first.Y)}
	out := []spatial.Point{cursor}

	for i, s := range b.Strokes {
		a, z := s.Points[0], s.Points[len(s.Points)-1]
		dir := spatial.Point{X: z.X - a.X, Y: z.Y - a.Y}
		n := dir.Norm()
		if n == 0 {
			continue
		}
		dist := s.DistanceIn
		if s.Pending {
			dist = EstimateInches(s.LengthPx)
		}
		cursor = cursor.Add(dir.Mul(dist / n))
		if i == len(b.Strokes)-1 && spatial.Distance(cursor, out[0]) < spatial.InchesPerFoot/2 {
			// the last stroke returned to the start
			break
		}
		out = append(out, cursor)
	}
	return out
}
