package spatial

import (
	"math"

	"github.com/golang/geo/r2"
)

// Point is a position on the local plan, in inches
type Point = r2.Point

// Distance returns the straight-line distance between two points
func Distance(a, b Point) float64 {
	return a.Sub(b).Norm()
}

// SignedArea returns the shoelace sum over a closed ring, halved.
// Positive for counter-clockwise rings.
func SignedArea(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < len(points); i++ {
		j := (i + 1) % len(points)
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return sum / 2.0
}

// PolygonArea returns the absolute shoelace area of a ring in square inches.
// Rings with fewer than 3 points have no area.
func PolygonArea(points []Point) float64 {
	return math.Abs(SignedArea(points))
}

// PathLength calculates the total length of an open path
func PathLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// BoundingBox returns the smallest rectangle containing all points
func BoundingBox(points []Point) r2.Rect {
	if len(points) == 0 {
		return r2.EmptyRect()
	}
	return r2.RectFromPoints(points...)
}

// Lerp returns the point at fraction t along a->b
func Lerp(a, b Point, t float64) Point {
	return a.Add(b.Sub(a).Mul(t))
}

// SegmentsIntersect reports whether the closed segments p1-p2 and q1-q2 share a point
func SegmentsIntersect(p1, p2, q1, q2 Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear touching cases
	if d1 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if d2 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	return false
}

// SelfIntersecting reports whether a closed ring crosses itself.
// Edges that share a vertex in ring order are not compared.
func SelfIntersecting(ring []Point) bool {
	n := len(ring)
	if n < 4 {
		return false
	}

	for i := 0; i < n; i++ {
		a1, a2 := ring[i], ring[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := ring[j], ring[(j+1)%n]
			if SegmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

const epsilon = 1e-9

func orientation(a, b, c Point) int {
	v := b.Sub(a).Cross(c.Sub(a))
	switch {
	case v > epsilon:
		return 1
	case v < -epsilon:
		return -1
	}
	return 0
}

func onSegment(a, b, p Point) bool {
	return math.Min(a.X, b.X)-epsilon <= p.X && p.X <= math.Max(a.X, b.X)+epsilon &&
		math.Min(a.Y, b.Y)-epsilon <= p.Y && p.Y <= math.Max(a.Y, b.Y)+epsilon
}
