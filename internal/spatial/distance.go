package spatial

import (
	"math"
	"strconv"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
)

// Project moves distance inches from p along heading
func Project(p Point, heading s1.Angle, distance float64) Point {
	rad := heading.Radians()
	return p.Add(r2.Point{X: distance * math.Cos(rad), Y: distance * math.Sin(rad)})
}

// Length conversions
const (
	InchesPerFoot       = 12.0
	SquareInchesPerFoot = 144.0
	InchesPerMeter      = 39.37007874015748
)

// FormatFeetInches renders inches as a tape-measure string like 12' 4 1/2"
// rounded to the nearest eighth.
func FormatFeetInches(inches float64) string {
	sign := ""
	if inches < 0 {
		sign = "-"
		inches = -inches
	}

	eighths := int(math.Round(inches * 8))
	feet := eighths / (12 * 8)
	rem := eighths % (12 * 8)
	whole := rem / 8
	frac := rem % 8

	s := sign + strconv.Itoa(feet) + "' " + strconv.Itoa(whole)
	if frac != 0 {
		num, den := frac, 8
		for num%2 == 0 {
			num /= 2
			den /= 2
		}
		s += " " + strconv.Itoa(num) + "/" + strconv.Itoa(den)
	}
	return s + "\""
}
