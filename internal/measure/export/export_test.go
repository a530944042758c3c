package export

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/floorpro/measure-backend-go/internal/measure/openings"
	"github.com/floorpro/measure-backend-go/internal/models"
)

// tenFootRoom is a 120in square, walked clockwise from the origin
func tenFootRoom() *models.Geometry {
	return &models.Geometry{
		ID:      "geo-1",
		RoomID:  "kitchen",
		Version: 3,
		Points: []models.Point{
			{ID: "p0", X: 0, Y: 0},
			{ID: "p1", X: 120, Y: 0, Locked: true},
			{ID: "p2", X: 120, Y: -120},
			{ID: "p3", X: 0, Y: -120},
		},
		Segments: []models.Segment{
			{ID: "s1", A: "p0", B: "p1", Length: 120, Source: models.SourceLaser},
			{ID: "s2", A: "p1", B: "p2", Length: 120, Source: models.SourceLaser},
			{ID: "s3", A: "p2", B: "p3", Length: 120, Source: models.SourceLaser},
			{ID: "s-close", A: "p3", B: "p0", Length: 120, Source: models.SourceDerived},
		},
		Openings: []models.Opening{
			{ID: "o1", SegmentID: "s1", Type: models.OpeningDoor, Width: 36, OffsetFromA: 24},
			{ID: "o2", SegmentID: "s3", Type: models.OpeningWindow, Width: 48, OffsetFromA: 36},
		},
	}
}

func near(t *testing.T, want color.RGBA, got color.Color) {
	t.Helper()
	r, g, b, _ := got.RGBA()
	assert.InDelta(t, float64(want.R), float64(r>>8), 12, "red")
	assert.InDelta(t, float64(want.G), float64(g>>8), 12, "green")
	assert.InDelta(t, float64(want.B), float64(b>>8), 12, "blue")
}

func TestRender(t *testing.T) {
	g := tenFootRoom()
	img, err := Render(g, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, img.Bounds().Dx())
	assert.Equal(t, DefaultHeight, img.Bounds().Dy())

	// 9 px per inch, top-left corner of the room at (110, 60)
	near(t, colorWall, img.At(900, 60))
	near(t, colorDoor, img.At(330, 60))
	near(t, colorLocked, img.At(1190, 60))
	near(t, colorPoint, img.At(110, 60))
	near(t, colorPanel, img.At(1560, 350))
	near(t, colorBackground, img.At(700, 650))
}

func TestRender_DoesNotMutate(t *testing.T) {
	g := tenFootRoom()
	before := *tenFootRoom()
	_, err := Render(g, Options{Width: 800, Height: 600})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(before, *g))
}

func TestRender_Errors(t *testing.T) {
	_, err := Render(tenFootRoom(), Options{Width: 100, Height: 100})
	assert.ErrorIs(t, err, ErrInvalidCanvas)

	g := tenFootRoom()
	g.Openings = append(g.Openings, models.Opening{ID: "o3", SegmentID: "missing", Type: models.OpeningDoor, Width: 10})
	_, err = Render(g, Options{})
	assert.ErrorIs(t, err, openings.ErrUnknownSegment)
}

func TestRender_EmptyAndDegenerate(t *testing.T) {
	_, err := Render(&models.Geometry{}, Options{})
	require.NoError(t, err)

	_, err = Render(&models.Geometry{Points: []models.Point{{ID: "p0"}}}, Options{})
	require.NoError(t, err)
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, tenFootRoom(), Options{Width: 800, Height: 600}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
}

func TestGeoJSON(t *testing.T) {
	fc := GeoJSON(tenFootRoom())
	// room + 4 walls + 2 openings + 4 points
	require.Len(t, fc.Features, 11)

	room := fc.Features[0]
	assert.Equal(t, KindRoom, room.Properties["kind"])
	poly, ok := room.Geometry.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, poly[0], 5)
	assert.Equal(t, poly[0][0], poly[0][4])
	assert.InDelta(t, 100.0, room.Properties["areaSqFt"], 1e-9)

	door := fc.Features[5]
	assert.Equal(t, KindOpening, door.Properties["kind"])
	assert.Equal(t, orb.LineString{{24, 0}, {60, 0}}, door.Geometry)

	data, err := MarshalGeoJSON(tenFootRoom())
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])
}

func TestGeoJSON_OpenOutlineHasNoRoom(t *testing.T) {
	g := &models.Geometry{Points: []models.Point{{ID: "p0"}, {ID: "p1", X: 10}}}
	fc := GeoJSON(g)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, KindPoint, fc.Features[0].Properties["kind"])
}

func TestTakeoff(t *testing.T) {
	data, err := Takeoff(tenFootRoom())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetWalls, SheetOpenings}, f.GetSheetList())

	area, err := f.GetCellValue(SheetSummary, "B4")
	require.NoError(t, err)
	assert.Equal(t, "100", area)

	baseboard, err := f.GetCellValue(SheetSummary, "B6")
	require.NoError(t, err)
	assert.Equal(t, "33", baseboard)

	walls, err := f.GetRows(SheetWalls)
	require.NoError(t, err)
	require.Len(t, walls, 5)
	assert.Equal(t, []string{"s-close", "p3", "p0", "120", `10' 0"`, "derived"}, walls[4])

	rows, err := f.GetRows(SheetOpenings)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "window", rows[2][1])
}
