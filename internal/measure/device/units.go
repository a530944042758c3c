package device

import (
	"fmt"

	"github.com/floorpro/measure-backend-go/internal/spatial"
)

// Unit is a length unit a device can display
type Unit string

const (
	Feet        Unit = "ft"
	Inches      Unit = "in"
	Meters      Unit = "m"
	Centimeters Unit = "cm"
	Millimeters Unit = "mm"
)

// DefaultUnit is the device-side display unit the app standardizes on
const DefaultUnit = Feet

var inchesPer = map[Unit]float64{
	Feet:        spatial.InchesPerFoot,
	Inches:      1,
	Meters:      spatial.InchesPerMeter,
	Centimeters: spatial.InchesPerMeter / 100,
	Millimeters: spatial.InchesPerMeter / 1000,
}

// ParseUnit validates a unit name
func ParseUnit(s string) (Unit, error) {
	u := Unit(s)
	if _, ok := inchesPer[u]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedUnit, s)
	}
	return u, nil
}

// ToInches converts a value in unit to canonical inches
func ToInches(value float64, unit Unit) (float64, error) {
	f, ok := inchesPer[unit]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
	return value * f, nil
}

// FromMeters converts meters to unit
func FromMeters(meters float64, unit Unit) (float64, error) {
	f, ok := inchesPer[unit]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
	return meters * spatial.InchesPerMeter / f, nil
}
