package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/floorpro/measure-backend-go/internal/models"
)

// GeometryRepository handles database operations for geometries
type GeometryRepository struct {
	docs documents[models.Geometry]
}

// NewGeometryRepository creates a new geometry repository
func NewGeometryRepository(db DBTX) *GeometryRepository {
	return &GeometryRepository{
		docs: newDocuments[models.Geometry](db, "geometries", "workspace_id", "job_id", "room_id", "session_id", "status", "version"),
	}
}

// WithTx returns a repository bound to tx
func (r *GeometryRepository) WithTx(tx DBTX) *GeometryRepository {
	return &GeometryRepository{docs: r.docs.withTx(tx)}
}

// Create inserts g, assigning an id when it has none
func (r *GeometryRepository) Create(ctx context.Context, g *models.Geometry) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return r.docs.create(ctx, g.ID, g)
}

// GetByID retrieves a geometry
func (r *GeometryRepository) GetByID(ctx context.Context, id string) (*models.Geometry, error) {
	return r.docs.get(ctx, id)
}

// Update overwrites the stored geometry
func (r *GeometryRepository) Update(ctx context.Context, g *models.Geometry) error {
	return r.docs.replace(ctx, g.ID, g)
}

// List retrieves geometries matching filter, most recently created first
func (r *GeometryRepository) List(ctx context.Context, filter models.GeometryFilter) ([]models.Geometry, error) {
	return r.docs.query(ctx, Query{
		Where: []Condition{
			{"workspace_id", filter.WorkspaceID},
			{"job_id", filter.JobID},
			{"room_id", filter.RoomID},
			{"status", filter.Status},
		},
		Desc:  true,
		Limit: models.ClampLimit(filter.Limit),
	})
}
