package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/database"
	"github.com/floorpro/measure-backend-go/internal/events"
	"github.com/floorpro/measure-backend-go/internal/measure/builder"
	"github.com/floorpro/measure-backend-go/internal/measure/metrics"
	"github.com/floorpro/measure-backend-go/internal/measure/openings"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/repository"
)

// GeometryService handles saving, versioning and editing floor plans
type GeometryService struct {
	db         *sql.DB
	geometries *repository.GeometryRepository
	sessions   *repository.SessionRepository
	events     events.Publisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewGeometryService creates a new geometry service
func NewGeometryService(db *sql.DB, geometries *repository.GeometryRepository, sessions *repository.SessionRepository, publisher events.Publisher, logger *zap.Logger) *GeometryService {
	return &GeometryService{
		db:         db,
		geometries: geometries,
		sessions:   sessions,
		events:     publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// Validate checks referential integrity and openings
func Validate(g *models.Geometry) error {
	ids := make(map[string]bool, len(g.Points))
	for _, p := range g.Points {
		if p.ID == "" || ids[p.ID] {
			return fmt.Errorf("%w: point ids must be unique and non-empty", ErrInvalidGeometry)
		}
		ids[p.ID] = true
	}
	for _, s := range g.Segments {
		if !ids[s.A] || !ids[s.B] {
			return fmt.Errorf("%w: segment %s references a missing point", ErrInvalidGeometry, s.ID)
		}
		if s.Length < 0 {
			return fmt.Errorf("%w: segment %s has a negative length", ErrInvalidGeometry, s.ID)
		}
	}
	return openings.Validate(g.Segments, g.Openings)
}

// Save writes g. A new geometry starts at version 1; every later save bumps
// the version by exactly one. Calculations and confidence are always
// recomputed here, closure error included: a client-drawn outline has none.
// expectedVersion > 0 enables an optimistic check; zero keeps
// last-write-wins. in is never modified.
func (s *GeometryService) Save(ctx context.Context, in *models.Geometry, expectedVersion int) (*models.Geometry, error) {
	return s.save(ctx, in, expectedVersion, 0)
}

// save is Save with the closure error measured by the builder
func (s *GeometryService) save(ctx context.Context, in *models.Geometry, expectedVersion int, closureError float64) (*models.Geometry, error) {
	next := *in
	g := &next
	if err := Validate(g); err != nil {
		return nil, err
	}

	metrics.Evaluate(g, closureError)
	if g.Confidence.Breakdown.SelfIntersecting {
		return nil, ErrSelfIntersecting
	}
	if g.Units == "" {
		g.Units = models.UnitsInches
	}
	if g.Status == "" {
		g.Status = models.GeometryDraft
	}

	now := s.now().UTC()
	err := database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.geometries.WithTx(tx)

		var stored *models.Geometry
		if g.ID != "" {
			var err error
			stored, err = repo.GetByID(ctx, g.ID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		if stored == nil {
			if expectedVersion > 0 {
				return ErrVersionConflict
			}
			g.Version = 1
			g.CreatedAt = now
			g.UpdatedAt = now
			return repo.Create(ctx, g)
		}

		if stored.WorkspaceID != g.WorkspaceID {
			return ErrNotFound
		}
		if expectedVersion > 0 && expectedVersion != stored.Version {
			return ErrVersionConflict
		}
		g.Version = stored.Version + 1
		g.CreatedAt = stored.CreatedAt
		g.UpdatedAt = now
		return repo.Update(ctx, g)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Geometry saved",
		zap.String("geometry_id", g.ID),
		zap.Int("version", g.Version),
		zap.Float64("area_sqft", g.Calculations.Area),
	)
	s.events.Publish(ctx, events.TypeGeometrySave, map[string]any{
		"geometryId":  g.ID,
		"workspaceId": g.WorkspaceID,
		"version":     g.Version,
	})
	return g, nil
}

// Get retrieves a geometry inside a workspace
func (s *GeometryService) Get(ctx context.Context, workspaceID, id string) (*models.Geometry, error) {
	g, err := s.geometries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	return g, nil
}

// List retrieves geometries for a job or room
func (s *GeometryService) List(ctx context.Context, filter models.GeometryFilter) ([]models.Geometry, error) {
	return s.geometries.List(ctx, filter)
}

// Preview builds a manual outline with metrics without saving it
func (s *GeometryService) Preview(points [][2]float64, closed bool, list []models.Opening) (*models.Geometry, error) {
	m := builder.NewManual()
	for _, p := range points {
		if _, err := m.AddPoint(p[0], p[1]); err != nil {
			return nil, err
		}
	}
	if closed {
		if err := m.Close(); err != nil {
			return nil, err
		}
	}

	g := &models.Geometry{
		Units:    models.UnitsInches,
		Status:   models.GeometryDraft,
		Points:   m.Points(),
		Segments: m.Segments(),
		Openings: list,
	}
	if g.Openings == nil {
		g.Openings = []models.Opening{}
	}
	if err := openings.Validate(g.Segments, g.Openings); err != nil {
		return nil, err
	}
	metrics.Evaluate(g, 0)
	return g, nil
}

// AddOpening cuts a door or window into a wall and saves the result
func (s *GeometryService) AddOpening(ctx context.Context, workspaceID, id, segmentID, kind string, width, offsetFromA float64, expectedVersion int) (*models.Geometry, models.Opening, error) {
	g, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, models.Opening{}, err
	}

	editor := openings.NewEditor(g.Segments, g.Openings)
	o, err := editor.Add(segmentID, kind, width, offsetFromA)
	if err != nil {
		return nil, models.Opening{}, err
	}
	g.Openings = editor.Openings()

	saved, err := s.resave(ctx, g, expectedVersion)
	if err != nil {
		return nil, models.Opening{}, err
	}
	return saved, o, nil
}

// RemoveOpening deletes an opening and saves the result
func (s *GeometryService) RemoveOpening(ctx context.Context, workspaceID, id, openingID string, expectedVersion int) (*models.Geometry, error) {
	g, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}

	editor := openings.NewEditor(g.Segments, g.Openings)
	if err := editor.Remove(openingID); err != nil {
		return nil, err
	}
	g.Openings = editor.Openings()
	return s.resave(ctx, g, expectedVersion)
}

// resave writes an edit of a stored geometry, keeping its closure error
func (s *GeometryService) resave(ctx context.Context, g *models.Geometry, expectedVersion int) (*models.Geometry, error) {
	return s.save(ctx, g, expectedVersion, g.Confidence.Breakdown.ClosureError)
}

// PointUpdate changes one point. X and Y move it and must be given
// together; Locked pins or releases it. An unlock applies before the move and
// a lock after, so one update can release, drag and pin a point.
type PointUpdate struct {
	X      *float64
	Y      *float64
	Locked *bool
}

// UpdatePoint applies u to one point and saves once, so the version moves by
// exactly one. A rejected update stores nothing.
func (s *GeometryService) UpdatePoint(ctx context.Context, workspaceID, id, pointID string, u PointUpdate, expectedVersion int) (*models.Geometry, error) {
	if (u.X == nil) != (u.Y == nil) {
		return nil, fmt.Errorf("%w: x and y must be given together", ErrInvalidGeometry)
	}
	if u.X == nil && u.Locked == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidGeometry)
	}

	g, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range g.Points {
		if g.Points[i].ID == pointID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", builder.ErrUnknownPoint, pointID)
	}

	points := append([]models.Point(nil), g.Points...)
	if u.Locked != nil && !*u.Locked {
		points[idx].Locked = false
	}
	if u.X != nil {
		outline := builder.ResumeManual(points, g.Segments)
		if err := outline.MovePoint(pointID, *u.X, *u.Y); err != nil {
			return nil, err
		}
		points, g.Segments = outline.Points(), outline.Segments()
	}
	if u.Locked != nil && *u.Locked {
		points[idx].Locked = true
	}
	g.Points = points

	return s.resave(ctx, g, expectedVersion)
}

// MovePoint drags an unlocked point and saves the result. Laser lengths
// are kept; other wall lengths follow the new position.
func (s *GeometryService) MovePoint(ctx context.Context, workspaceID, id, pointID string, x, y float64, expectedVersion int) (*models.Geometry, error) {
	return s.UpdatePoint(ctx, workspaceID, id, pointID, PointUpdate{X: &x, Y: &y}, expectedVersion)
}

// SetPointLock pins or releases a point so reconstruction keeps it in place
func (s *GeometryService) SetPointLock(ctx context.Context, workspaceID, id, pointID string, locked bool, expectedVersion int) (*models.Geometry, error) {
	return s.UpdatePoint(ctx, workspaceID, id, pointID, PointUpdate{Locked: &locked}, expectedVersion)
}

// BuildFromSession reconstructs the outline from one session's readings and
// saves it. When the room already has a geometry for this session it becomes
// a new version and its locked points stay where they are.
func (s *GeometryService) BuildFromSession(ctx context.Context, workspaceID, sessionID string) (*models.Geometry, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	switch {
	case session.Status == models.SessionDiscarded:
		return nil, ErrSessionDiscarded
	case session.Mode == models.ModeManual || session.Mode == models.ModeFreeDraw:
		return nil, ErrWrongSessionMode
	}

	readings, err := s.sessions.Readings(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var existing *models.Geometry
	prior, err := s.geometries.List(ctx, models.GeometryFilter{WorkspaceID: workspaceID, JobID: session.JobID, RoomID: session.RoomID, Limit: 20})
	if err != nil {
		return nil, err
	}
	for i := range prior {
		if prior[i].SessionID == sessionID {
			existing = &prior[i]
			break
		}
	}

	opts := builder.Options{}
	if existing != nil {
		opts.Locked = builder.LockedPoints(existing.Points)
	}
	res := builder.Build(session.Mode, readings, opts)
	if len(res.Points) < 3 {
		return nil, ErrNothingToBuild
	}

	g := &models.Geometry{
		WorkspaceID: workspaceID,
		JobID:       session.JobID,
		RoomID:      session.RoomID,
		SessionID:   sessionID,
		Origin:      res.Origin,
		Points:      res.Points,
		Segments:    res.Segments,
		Openings:    []models.Opening{},
		Areas:       []models.Area{},
		Labels:      []models.Label{},
	}
	if existing != nil {
		g.ID = existing.ID
		g.Status = existing.Status
		g.Areas, g.Labels = existing.Areas, existing.Labels
		// openings whose wall survived the rebuild are kept
		for _, o := range existing.Openings {
			if openings.Validate(g.Segments, append(g.Openings, o)) == nil {
				g.Openings = append(g.Openings, o)
			}
		}
	}
	return s.save(ctx, g, 0, res.ClosureError)
}
