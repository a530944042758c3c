package models

import "time"

// Point is a vertex of a room outline. Coordinates are inches on a local plane.
type Point struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Locked bool    `json:"locked,omitempty"` // reconstruction must not move it
}

// Segment is one wall edge between two points
type Segment struct {
	ID        string  `json:"id"`
	A         string  `json:"a"`      // point id
	B         string  `json:"b"`      // point id
	Length    float64 `json:"length"` // inches
	Source    string  `json:"source"` // laser, manual, derived
	ReadingID string  `json:"readingId,omitempty"`
}

// Opening is a door or window cut into a wall segment
type Opening struct {
	ID          string  `json:"id"`
	SegmentID   string  `json:"segmentId"`
	Type        string  `json:"type"`        // door, window
	Width       float64 `json:"width"`       // inches
	OffsetFromA float64 `json:"offsetFromA"` // inches from the segment's A point
}

// Area names a sub-region of the plan by its point ids
type Area struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	PointIDs []string `json:"pointIds"`
}

// Label is free text pinned to the plan
type Label struct {
	ID   string  `json:"id"`
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Origin is the local plane origin used when the geometry was built
type Origin struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Calculations holds metrics derived from points, segments and openings.
// It is recomputed on every save and never edited by hand.
type Calculations struct {
	Area        float64 `json:"area"`        // square feet
	Perimeter   float64 `json:"perimeter"`   // feet
	BaseboardLf float64 `json:"baseboardLf"` // linear feet
}

// ConfidenceBreakdown explains the confidence score
type ConfidenceBreakdown struct {
	LaserCoveragePct float64 `json:"laserCoveragePct"`
	LaserSegments    int     `json:"laserSegments"`
	ManualSegments   int     `json:"manualSegments"`
	DerivedSegments  int     `json:"derivedSegments"`
	ClosureError     float64 `json:"closureError"` // inches between final cursor and start
	SelfIntersecting bool    `json:"selfIntersecting"`
}

// Confidence is a 0-100 heuristic of how much of the plan was laser measured
type Confidence struct {
	Score     int                 `json:"score"`
	Breakdown ConfidenceBreakdown `json:"breakdown"`
}

// Geometry is the measured floor plan of one room
type Geometry struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	JobID       string `json:"jobId"`
	RoomID      string `json:"roomId"`
	SessionID   string `json:"sessionId,omitempty"`

	Version int    `json:"version"`
	Status  string `json:"status"` // draft, final
	Units   string `json:"units"`  // always "in"
	Origin  Origin `json:"origin"`

	Points   []Point   `json:"points"`
	Segments []Segment `json:"segments"`
	Openings []Opening `json:"openings"`
	Areas    []Area    `json:"areas"`
	Labels   []Label   `json:"labels"`

	Calculations Calculations `json:"calculations"`
	Confidence   Confidence   `json:"confidence"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PointByID returns the point with the given id
func (g *Geometry) PointByID(id string) (Point, bool) {
	for _, p := range g.Points {
		if p.ID == id {
			return p, true
		}
	}
	return Point{}, false
}

// SegmentByID returns the segment with the given id
func (g *Geometry) SegmentByID(id string) (Segment, bool) {
	for _, s := range g.Segments {
		if s.ID == id {
			return s, true
		}
	}
	return Segment{}, false
}

// Segment sources
const (
	SourceLaser   = "laser"
	SourceManual  = "manual"
	SourceDerived = "derived"
)

// Opening types
const (
	OpeningDoor   = "door"
	OpeningWindow = "window"
)

// Geometry status values
const (
	GeometryDraft = "draft"
	GeometryFinal = "final"
)

// UnitsInches is the canonical unit of all stored lengths
const UnitsInches = "in"
