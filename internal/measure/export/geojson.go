package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/floorpro/measure-backend-go/internal/measure/metrics"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/spatial"
)

// Feature kinds carried in the "kind" property
const (
	KindRoom    = "room"
	KindWall    = "wall"
	KindOpening = "opening"
	KindPoint   = "point"
)

// GeoJSON describes the plan as a feature collection in local plan inches.
// The room polygon is present only when the outline has 3 or more points.
func GeoJSON(g *models.Geometry) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	calc := metrics.Calculate(g)

	if len(g.Points) >= 3 {
		ring := make(orb.Ring, 0, len(g.Points)+1)
		for _, p := range g.Points {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		ring = append(ring, ring[0])

		f := geojson.NewFeature(orb.Polygon{ring})
		f.ID = g.ID
		f.Properties["kind"] = KindRoom
		f.Properties["geometryId"] = g.ID
		f.Properties["roomId"] = g.RoomID
		f.Properties["version"] = g.Version
		f.Properties["units"] = models.UnitsInches
		f.Properties["areaSqFt"] = calc.Area
		f.Properties["perimeterFt"] = calc.Perimeter
		f.Properties["baseboardLf"] = calc.BaseboardLf
		fc.Append(f)
	}

	for _, s := range g.Segments {
		a, okA := g.PointByID(s.A)
		b, okB := g.PointByID(s.B)
		if !okA || !okB {
			continue
		}
		f := geojson.NewFeature(orb.LineString{{a.X, a.Y}, {b.X, b.Y}})
		f.ID = s.ID
		f.Properties["kind"] = KindWall
		f.Properties["source"] = s.Source
		f.Properties["length"] = s.Length
		f.Properties["display"] = spatial.FormatFeetInches(s.Length)
		if s.ReadingID != "" {
			f.Properties["readingId"] = s.ReadingID
		}
		fc.Append(f)
	}

	for _, o := range g.Openings {
		line, ok := openingLine(g, o)
		if !ok {
			continue
		}
		f := geojson.NewFeature(line)
		f.ID = o.ID
		f.Properties["kind"] = KindOpening
		f.Properties["type"] = o.Type
		f.Properties["segmentId"] = o.SegmentID
		f.Properties["width"] = o.Width
		f.Properties["offsetFromA"] = o.OffsetFromA
		fc.Append(f)
	}

	for _, p := range g.Points {
		f := geojson.NewFeature(orb.Point{p.X, p.Y})
		f.ID = p.ID
		f.Properties["kind"] = KindPoint
		f.Properties["locked"] = p.Locked
		fc.Append(f)
	}
	return fc
}

// MarshalGeoJSON encodes GeoJSON(g)
func MarshalGeoJSON(g *models.Geometry) ([]byte, error) {
	data, err := GeoJSON(g).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode geojson: %w", err)
	}
	return data, nil
}

func openingLine(g *models.Geometry, o models.Opening) (orb.LineString, bool) {
	s, ok := g.SegmentByID(o.SegmentID)
	if !ok || s.Length <= 0 {
		return nil, false
	}
	a, okA := g.PointByID(s.A)
	b, okB := g.PointByID(s.B)
	if !okA || !okB {
		return nil, false
	}
	pa, pb := spatial.Point{X: a.X, Y: a.Y}, spatial.Point{X: b.X, Y: b.Y}
	start := spatial.Lerp(pa, pb, o.OffsetFromA/s.Length)
	end := spatial.Lerp(pa, pb, (o.OffsetFromA+o.Width)/s.Length)
	return orb.LineString{{start.X, start.Y}, {end.X, end.Y}}, true
}
