package builder

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floorpro/measure-backend-go/internal/models"
)

func legs(inches ...float64) []Leg {
	out := make([]Leg, len(inches))
	for i, d := range inches {
		out[i] = Leg{ReadingID: pointID(i) + "-r", DistanceIn: d}
	}
	return out
}

func TestFromReadings_ClosesWithOneDerivedSegment(t *testing.T) {
	for n := 3; n <= 8; n++ {
		in := make([]float64, n)
		for i := range in {
			in[i] = float64(100 + 10*i)
		}
		res := FromReadings(legs(in...), Options{})

		require.Len(t, res.Points, n)
		assert.Len(t, res.Segments, n, "closed polygon has as many segments as points")

		derived := 0
		for _, s := range res.Segments {
			if s.Source == models.SourceDerived {
				derived++
				assert.Equal(t, res.Points[n-1].ID, s.A)
				assert.Equal(t, res.Points[0].ID, s.B)
			}
		}
		assert.Equal(t, 1, derived)
	}
}

func TestFromReadings_Rectangle(t *testing.T) {
	// 20' x 10' room walked turning right at each corner
	res := FromReadings(legs(240, 120, 240, 120), Options{})

	want := []models.Point{
		{ID: "p0", X: 240, Y: 0},
		{ID: "p1", X: 240, Y: -120},
		{ID: "p2", X: 0, Y: -120},
		{ID: "p3", X: 0, Y: 0},
	}
	if diff := cmp.Diff(want, res.Points, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, res.Segments, 4)
	assert.Equal(t, models.SourceLaser, res.Segments[0].Source)
	assert.Equal(t, "p1-r", res.Segments[0].ReadingID)
	assert.Equal(t, 120.0, res.Segments[0].Length)
	assert.Equal(t, ClosingSegmentID, res.Segments[3].ID)
	assert.InDelta(t, 240.0, res.Segments[3].Length, 1e-9)
	assert.InDelta(t, 0, res.ClosureError, 1e-9)
}

func TestFromReadings_ShortSequences(t *testing.T) {
	res := FromReadings(nil, Options{})
	assert.Empty(t, res.Points)
	assert.Empty(t, res.Segments)

	res = FromReadings(legs(100), Options{})
	assert.Len(t, res.Points, 1)
	assert.Empty(t, res.Segments)

	res = FromReadings(legs(100, 50), Options{})
	assert.Len(t, res.Points, 2)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, models.SourceLaser, res.Segments[0].Source)
}

func TestFromReadings_Idempotent(t *testing.T) {
	in := legs(144, 96, 30, 48, 114, 144)
	a := FromReadings(in, Options{})
	b := FromReadings(in, Options{})
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("rebuild is not deterministic:\n%s", diff)
	}
}

func TestFromReadings_PerLegTurn(t *testing.T) {
	left := 90.0
	in := legs(100, 100, 100)
	in[0].TurnDeg = &left
	res := FromReadings(in, Options{})

	// first leg east, then turn left (north), then default right turn (east)
	assert.InDelta(t, 100, res.Points[0].X, 1e-9)
	assert.InDelta(t, 0, res.Points[0].Y, 1e-9)
	assert.InDelta(t, 100, res.Points[1].X, 1e-9)
	assert.InDelta(t, 100, res.Points[1].Y, 1e-9)
	assert.InDelta(t, 200, res.Points[2].X, 1e-9)
	assert.InDelta(t, 100, res.Points[2].Y, 1e-9)
}

func TestFromReadings_ClosureError(t *testing.T) {
	res := FromReadings(legs(240, 120, 240), Options{})
	assert.InDelta(t, 120, res.ClosureError, 1e-9)
}

func TestFromReadings_KeepsLockedPoints(t *testing.T) {
	locked := map[string]models.Point{"p1": {ID: "p1", X: 250, Y: -118, Locked: true}}
	res := FromReadings(legs(240, 120, 240, 120), Options{Locked: locked})

	assert.Equal(t, locked["p1"], res.Points[1])
	// later points still follow the readings
	assert.InDelta(t, 0, res.Points[2].X, 1e-9)
}

func TestRect(t *testing.T) {
	res := Rect(Leg{ReadingID: "w", DistanceIn: 144}, Leg{ReadingID: "l", DistanceIn: 120})
	require.Len(t, res.Points, 4)
	require.Len(t, res.Segments, 4)

	laser := 0
	for _, s := range res.Segments {
		if s.Source == models.SourceLaser {
			laser++
		}
	}
	assert.Equal(t, 2, laser)
	assert.InDelta(t, 120, res.Segments[3].Length, 1e-9)
}

func TestBuild_Modes(t *testing.T) {
	readings := []models.Reading{
		{ID: "r1", Reading: models.ReadingValue{Value: 144}},
		{ID: "r2", Reading: models.ReadingValue{Value: 120}},
	}
	assert.Len(t, Build(models.ModeRectBySize, readings, Options{}).Points, 4)
	assert.Len(t, Build(models.ModeWalkRoom, readings, Options{}).Points, 2)
	assert.Empty(t, Build(models.ModeManual, readings, Options{}).Points)
}
