package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/floorpro/measure-backend-go/internal/models"
)

// ExportRepository records rendered artifacts
type ExportRepository struct {
	docs documents[models.Export]
}

func NewExportRepository(db DBTX) *ExportRepository {
	return &ExportRepository{docs: newDocuments[models.Export](db, "exports", "workspace_id", "geometry_id")}
}

func (r *ExportRepository) Create(ctx context.Context, e *models.Export) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return r.docs.create(ctx, e.ID, e)
}

// ListByGeometry returns a geometry's exports, newest first
func (r *ExportRepository) ListByGeometry(ctx context.Context, workspaceID, geometryID string, limit int) ([]models.Export, error) {
	return r.docs.query(ctx, Query{
		Where: []Condition{
			{"workspace_id", workspaceID},
			{"geometry_id", geometryID},
		},
		Desc:  true,
		Limit: models.ClampLimit(limit),
	})
}
