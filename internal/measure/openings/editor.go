// Package openings manages doors and windows attached to wall segments.
// Invalid openings are rejected when they are added and never stored.
package openings

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/floorpro/measure-backend-go/internal/models"
)

var (
	ErrUnknownSegment = errors.New("wall segment not found")
	ErrOutOfBounds    = errors.New("opening does not fit on the wall")
	ErrOverlap        = errors.New("opening overlaps another opening on the same wall")
	ErrInvalidWidth   = errors.New("opening width must be greater than zero")
	ErrInvalidType    = errors.New("opening type must be door or window")
	ErrUnknownOpening = errors.New("opening not found")
)

// Counts summarizes openings by type
type Counts struct {
	Doors   int `json:"doors"`
	Windows int `json:"windows"`
}

// Editor validates and holds the openings of one outline. Segments are read only.
type Editor struct {
	segments map[string]models.Segment
	openings []models.Opening
	newID    func() string
}

// NewEditor creates an editor over segments and the openings already on them
func NewEditor(segments []models.Segment, existing []models.Opening) *Editor {
	bySegment := make(map[string]models.Segment, len(segments))
	for _, s := range segments {
		bySegment[s.ID] = s
	}
	return &Editor{
		segments: bySegment,
		openings: append([]models.Opening(nil), existing...),
		newID:    uuid.NewString,
	}
}

// Add validates and appends a new opening
func (e *Editor) Add(segmentID, kind string, width, offsetFromA float64) (models.Opening, error) {
	o := models.Opening{
		SegmentID:   segmentID,
		Type:        kind,
		Width:       width,
		OffsetFromA: offsetFromA,
	}
	if err := e.check(o, e.openings); err != nil {
		return models.Opening{}, err
	}

	o.ID = e.newID()
	e.openings = append(e.openings, o)
	return o, nil
}

// Remove deletes an opening. Segments and points are not touched.
func (e *Editor) Remove(id string) error {
	for i, o := range e.openings {
		if o.ID == id {
			e.openings = append(e.openings[:i], e.openings[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownOpening, id)
}

// Openings returns a copy of the current list
func (e *Editor) Openings() []models.Opening {
	return append([]models.Opening(nil), e.openings...)
}

// BySegment groups openings by wall, each group ordered by offset
func (e *Editor) BySegment() map[string][]models.Opening {
	return GroupBySegment(e.openings)
}

// Counts returns door and window totals
func (e *Editor) Counts() Counts {
	return Count(e.openings)
}

func (e *Editor) check(o models.Opening, existing []models.Opening) error {
	seg, ok := e.segments[o.SegmentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSegment, o.SegmentID)
	}
	if o.Type != models.OpeningDoor && o.Type != models.OpeningWindow {
		return fmt.Errorf("%w: %q", ErrInvalidType, o.Type)
	}
	if o.Width <= 0 {
		return ErrInvalidWidth
	}
	if o.OffsetFromA < 0 || o.OffsetFromA+o.Width > seg.Length {
		return fmt.Errorf("%w: %.2f\" + %.2f\" exceeds wall length %.2f\"",
			ErrOutOfBounds, o.OffsetFromA, o.Width, seg.Length)
	}
	for _, other := range existing {
		if other.SegmentID != o.SegmentID || (o.ID != "" && other.ID == o.ID) {
			continue
		}
		if overlaps(o, other) {
			return fmt.Errorf("%w: [%.2f, %.2f) intersects [%.2f, %.2f)", ErrOverlap,
				o.OffsetFromA, o.OffsetFromA+o.Width,
				other.OffsetFromA, other.OffsetFromA+other.Width)
		}
	}
	return nil
}

// overlaps tests half-open intervals [offset, offset+width)
func overlaps(a, b models.Opening) bool {
	return a.OffsetFromA < b.OffsetFromA+b.Width && b.OffsetFromA < a.OffsetFromA+a.Width
}

// Validate re-checks a complete opening list against segments, in order.
// Used on save so a stored geometry never carries an invalid opening.
func Validate(segments []models.Segment, list []models.Opening) error {
	e := NewEditor(segments, nil)
	for i, o := range list {
		if err := e.check(o, list[:i]); err != nil {
			return fmt.Errorf("opening %s: %w", o.ID, err)
		}
	}
	return nil
}

// GroupBySegment groups openings by wall, each group ordered by offset
func GroupBySegment(list []models.Opening) map[string][]models.Opening {
	groups := make(map[string][]models.Opening)
	for _, o := range list {
		groups[o.SegmentID] = append(groups[o.SegmentID], o)
	}
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].OffsetFromA < g[j].OffsetFromA })
	}
	return groups
}

// Count returns door and window totals
func Count(list []models.Opening) Counts {
	var c Counts
	for _, o := range list {
		switch o.Type {
		case models.OpeningDoor:
			c.Doors++
		case models.OpeningWindow:
			c.Windows++
		}
	}
	return c
}
