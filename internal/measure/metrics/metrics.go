// Package metrics derives area, perimeter, baseboard and confidence from the
// current outline. Nothing is cached; every value is recomputed on demand.
package metrics

import (
	"math"

	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/spatial"
)

// Confidence scores
const (
	ScoreLaser  = 95
	ScoreManual = 70
)

// AreaSqFt applies the shoelace formula to points in polygon order and
// converts to square feet. Fewer than 3 points have no area.
func AreaSqFt(points []models.Point) float64 {
	if len(points) < 3 {
		return 0
	}
	return spatial.PolygonArea(ring(points)) / spatial.SquareInchesPerFoot
}

// PerimeterIn sums every segment length in inches
func PerimeterIn(segments []models.Segment) float64 {
	var total float64
	for _, s := range segments {
		total += s.Length
	}
	return total
}

// PerimeterFt sums every segment length in feet
func PerimeterFt(segments []models.Segment) float64 {
	return PerimeterIn(segments) / spatial.InchesPerFoot
}

// BaseboardLf is the perimeter minus every opening width, in feet.
// All opening types interrupt the trim equally.
func BaseboardLf(segments []models.Segment, openings []models.Opening) float64 {
	total := PerimeterIn(segments)
	for _, o := range openings {
		total -= o.Width
	}
	return math.Max(total, 0) / spatial.InchesPerFoot
}

// Calculate computes every derived quantity of a geometry
func Calculate(g *models.Geometry) models.Calculations {
	return models.Calculations{
		Area:        AreaSqFt(g.Points),
		Perimeter:   PerimeterFt(g.Segments),
		BaseboardLf: BaseboardLf(g.Segments, g.Openings),
	}
}

// Score keeps the two-tier heuristic: laser measured plans score 95,
// anything else 70.
func Score(segments []models.Segment) models.Confidence {
	var b models.ConfidenceBreakdown
	var laserIn, totalIn float64
	for _, s := range segments {
		switch s.Source {
		case models.SourceLaser:
			b.LaserSegments++
			laserIn += s.Length
		case models.SourceManual:
			b.ManualSegments++
		case models.SourceDerived:
			b.DerivedSegments++
		}
		totalIn += s.Length
	}
	if totalIn > 0 {
		b.LaserCoveragePct = math.Round(laserIn/totalIn*1000) / 10
	}

	score := ScoreManual
	if b.LaserSegments > 0 {
		score = ScoreLaser
	}
	return models.Confidence{Score: score, Breakdown: b}
}

// Evaluate fills calculations and confidence on g. closureError comes from the
// builder and is zero for manual outlines.
func Evaluate(g *models.Geometry, closureError float64) {
	g.Calculations = Calculate(g)
	g.Confidence = Score(g.Segments)
	g.Confidence.Breakdown.ClosureError = math.Round(closureError*100) / 100
	g.Confidence.Breakdown.SelfIntersecting = spatial.SelfIntersecting(ring(g.Points))
}

// RoomOutline is anything that can produce a room outline in inches
type RoomOutline interface {
	Outline() []spatial.Point
}

// OutlineArea returns the shoelace area of an outline in square feet
func OutlineArea(o RoomOutline) float64 {
	return spatial.PolygonArea(o.Outline()) / spatial.SquareInchesPerFoot
}

// GeometryOutline adapts a geometry to RoomOutline
type GeometryOutline struct {
	Geometry *models.Geometry
}

// Outline returns the geometry points in polygon order
func (g GeometryOutline) Outline() []spatial.Point {
	return ring(g.Geometry.Points)
}

func ring(points []models.Point) []spatial.Point {
	out := make([]spatial.Point, len(points))
	for i, p := range points {
		out[i] = spatial.Point{X: p.X, Y: p.Y}
	}
	return out
}
