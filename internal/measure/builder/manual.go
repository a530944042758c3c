package builder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/spatial"
)

var (
	ErrPointLocked   = errors.New("point is locked and cannot be moved")
	ErrUnknownPoint  = errors.New("point not found")
	ErrPolygonClosed = errors.New("outline is already closed")
	ErrTooFewPoints  = errors.New("at least 3 points are needed to close the outline")
)

// Manual builds an outline from clicked points. Each point after the first is
// joined to its predecessor by a manual segment. The outline is only closed
// when the operator asks for it.
type Manual struct {
	points   []models.Point
	segments []models.Segment
	next     int
}

// NewManual starts an empty manual outline
func NewManual() *Manual {
	return &Manual{}
}

// ResumeManual continues editing an existing outline
func ResumeManual(points []models.Point, segments []models.Segment) *Manual {
	m := &Manual{
		points:   append([]models.Point(nil), points...),
		segments: append([]models.Segment(nil), segments...),
	}
	for _, p := range points {
		if n, err := strconv.Atoi(strings.TrimPrefix(p.ID, "p")); err == nil && n >= m.next {
			m.next = n + 1
		}
	}
	return m
}

// AddPoint appends a point at x, y
func (m *Manual) AddPoint(x, y float64) (models.Point, error) {
	if m.Closed() {
		return models.Point{}, ErrPolygonClosed
	}

	p := models.Point{ID: pointID(m.next), X: x, Y: y}
	if len(m.points) > 0 {
		prev := m.points[len(m.points)-1]
		m.segments = append(m.segments, models.Segment{
			ID:     segmentID(m.next),
			A:      prev.ID,
			B:      p.ID,
			Length: spatial.Distance(toSpatial(prev), toSpatial(p)),
			Source: models.SourceManual,
		})
	}
	m.points = append(m.points, p)
	m.next++
	return p, nil
}

// Close joins the last point back to the first
func (m *Manual) Close() error {
	if m.Closed() {
		return ErrPolygonClosed
	}
	if len(m.points) < 3 {
		return ErrTooFewPoints
	}
	m.segments = closeRing(m.points, m.segments, models.SourceManual)
	return nil
}

// Closed reports whether the closing segment exists
func (m *Manual) Closed() bool {
	for _, s := range m.segments {
		if s.ID == ClosingSegmentID {
			return true
		}
	}
	return false
}

// Undo removes the closing segment if present, otherwise the last point and
// every segment touching it.
func (m *Manual) Undo() {
	if m.Closed() {
		m.segments = removeSegments(m.segments, func(s models.Segment) bool { return s.ID == ClosingSegmentID })
		return
	}
	if len(m.points) == 0 {
		return
	}
	last := m.points[len(m.points)-1]
	m.points = m.points[:len(m.points)-1]
	m.segments = removeSegments(m.segments, func(s models.Segment) bool { return s.A == last.ID || s.B == last.ID })
}

// MovePoint relocates a point in the manual outline
func (m *Manual) MovePoint(id string, x, y float64) error {
	points, segments, err := MovePoint(m.points, m.segments, id, x, y)
	if err != nil {
		return err
	}
	m.points, m.segments = points, segments
	return nil
}

// Points returns a copy of the current points
func (m *Manual) Points() []models.Point {
	return append([]models.Point(nil), m.points...)
}

// Segments returns a copy of the current segments
func (m *Manual) Segments() []models.Segment {
	return append([]models.Segment(nil), m.segments...)
}

// MovePoint returns copies of points and segments with one point moved.
// Lengths of manual and derived segments touching the point are recomputed;
// laser lengths stay as measured.
func MovePoint(points []models.Point, segments []models.Segment, id string, x, y float64) ([]models.Point, []models.Segment, error) {
	outPoints := append([]models.Point(nil), points...)
	idx := -1
	for i, p := range outPoints {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPoint, id)
	}
	if outPoints[idx].Locked {
		return nil, nil, fmt.Errorf("%w: %s", ErrPointLocked, id)
	}
	outPoints[idx].X, outPoints[idx].Y = x, y

	byID := make(map[string]models.Point, len(outPoints))
	for _, p := range outPoints {
		byID[p.ID] = p
	}

	outSegments := append([]models.Segment(nil), segments...)
	for i, s := range outSegments {
		if s.Source == models.SourceLaser || (s.A != id && s.B != id) {
			continue
		}
		a, okA := byID[s.A]
		b, okB := byID[s.B]
		if okA && okB {
			outSegments[i].Length = spatial.Distance(toSpatial(a), toSpatial(b))
		}
	}
	return outPoints, outSegments, nil
}

func removeSegments(segments []models.Segment, drop func(models.Segment) bool) []models.Segment {
	out := segments[:0]
	for _, s := range segments {
		if !drop(s) {
			out = append(out, s)
		}
	}
	return out
}
