// Package builder reconstructs room outlines from ordered laser readings or
// from manually placed points. Every function here is pure: the same input
// always yields the same points and segments, ids included.
package builder

import (
	"fmt"

	"github.com/golang/geo/s1"

	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/spatial"
)

// DefaultTurnDeg is the heading change applied after each leg when the reading
// does not carry its own turn. It models walking a rectangular room turning
// right at every corner.
const DefaultTurnDeg = -90.0

// ClosingSegmentID is the id of the segment that closes a polygon
const ClosingSegmentID = "s-close"

// Leg is one distance reading in walking order
type Leg struct {
	ReadingID  string
	DistanceIn float64
	TurnDeg    *float64 // nil means DefaultTurnDeg
}

// Options tune a rebuild
type Options struct {
	// Locked points keep their stored position when the rebuild emits the same id
	Locked map[string]models.Point
}

// Result is the reconstructed outline plus closure diagnostics
type Result struct {
	Origin      models.Origin
	Points      []models.Point
	Segments    []models.Segment
	FinalCursor spatial.Point
	// ClosureError is the distance in inches between where the walk ended
	// and where it started. Zero for a perfectly closed walk.
	ClosureError float64
}

// LegsFromReadings maps readings to legs, preserving capture order
func LegsFromReadings(readings []models.Reading) []Leg {
	legs := make([]Leg, 0, len(readings))
	for _, r := range readings {
		legs = append(legs, Leg{
			ReadingID:  r.ID,
			DistanceIn: r.Reading.Value,
			TurnDeg:    r.TurnDeg,
		})
	}
	return legs
}

// FromReadings walks the legs from the origin with heading 0. Each leg emits a
// point at the new cursor position and, after the first, a laser segment from
// the previous point. Three or more points get a derived closing segment.
func FromReadings(legs []Leg, opts Options) Result {
	res := Result{
		Points:   make([]models.Point, 0, len(legs)),
		Segments: make([]models.Segment, 0, len(legs)),
	}

	origin := spatial.Point{}
	cursor := origin
	heading := s1.Angle(0)

	for i, leg := range legs {
		cursor = spatial.Project(cursor, heading, leg.DistanceIn)

		p := models.Point{ID: pointID(i), X: cursor.X, Y: cursor.Y}
		if locked, ok := opts.Locked[p.ID]; ok && locked.Locked {
			p = locked
		}
		res.Points = append(res.Points, p)

		if i > 0 {
			res.Segments = append(res.Segments, models.Segment{
				ID:        segmentID(i),
				A:         pointID(i - 1),
				B:         p.ID,
				Length:    leg.DistanceIn,
				Source:    models.SourceLaser,
				ReadingID: leg.ReadingID,
			})
		}

		turn := DefaultTurnDeg
		if leg.TurnDeg != nil {
			turn = *leg.TurnDeg
		}
		heading += s1.Angle(turn) * s1.Degree
	}

	res.FinalCursor = cursor
	res.ClosureError = spatial.Distance(cursor, origin)
	res.Segments = closeRing(res.Points, res.Segments, models.SourceDerived)
	return res
}

// Rect builds a rectangle from a width and a length reading. Only the first
// two walls are laser measured; the opposite walls are derived.
func Rect(width, length Leg) Result {
	w, l := width.DistanceIn, length.DistanceIn
	points := []models.Point{
		{ID: pointID(0), X: 0, Y: 0},
		{ID: pointID(1), X: w, Y: 0},
		{ID: pointID(2), X: w, Y: -l},
		{ID: pointID(3), X: 0, Y: -l},
	}
	segments := []models.Segment{
		{ID: segmentID(1), A: "p0", B: "p1", Length: w, Source: models.SourceLaser, ReadingID: width.ReadingID},
		{ID: segmentID(2), A: "p1", B: "p2", Length: l, Source: models.SourceLaser, ReadingID: length.ReadingID},
		{ID: segmentID(3), A: "p2", B: "p3", Length: w, Source: models.SourceDerived},
	}
	return Result{
		Points:   points,
		Segments: closeRing(points, segments, models.SourceDerived),
	}
}

// Build dispatches on capture mode. Manual sessions produce no geometry from
// readings; their outline comes from Manual.
func Build(mode string, readings []models.Reading, opts Options) Result {
	legs := LegsFromReadings(readings)
	switch mode {
	case models.ModeRectBySize:
		switch len(legs) {
		case 0:
			return Result{}
		case 1:
			return FromReadings(legs, opts)
		}
		return Rect(legs[0], legs[1])
	case models.ModeWalkRoom, models.ModeAssistedDraw:
		return FromReadings(legs, opts)
	}
	return Result{}
}

// LockedPoints collects the locked points of a previous geometry
func LockedPoints(points []models.Point) map[string]models.Point {
	locked := make(map[string]models.Point)
	for _, p := range points {
		if p.Locked {
			locked[p.ID] = p
		}
	}
	return locked
}

func closeRing(points []models.Point, segments []models.Segment, source string) []models.Segment {
	if len(points) < 3 {
		return segments
	}
	first, last := points[0], points[len(points)-1]
	return append(segments, models.Segment{
		ID:     ClosingSegmentID,
		A:      last.ID,
		B:      first.ID,
		Length: spatial.Distance(toSpatial(last), toSpatial(first)),
		Source: source,
	})
}

func pointID(i int) string   { return fmt.Sprintf("p%d", i) }
func segmentID(i int) string { return fmt.Sprintf("s%d", i) }

func toSpatial(p models.Point) spatial.Point {
	return spatial.Point{X: p.X, Y: p.Y}
}
