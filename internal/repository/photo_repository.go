package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/floorpro/measure-backend-go/internal/models"
)

// PhotoRepository handles room photo records
type PhotoRepository struct {
	docs documents[models.Photo]
}

func NewPhotoRepository(db DBTX) *PhotoRepository {
	return &PhotoRepository{docs: newDocuments[models.Photo](db, "photos", "workspace_id", "geometry_id", "room_id", "segment_id")}
}

func (r *PhotoRepository) Create(ctx context.Context, p *models.Photo) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return r.docs.create(ctx, p.ID, p)
}

func (r *PhotoRepository) List(ctx context.Context, filter models.PhotoFilter) ([]models.Photo, error) {
	return r.docs.query(ctx, Query{
		Where: []Condition{
			{"workspace_id", filter.WorkspaceID},
			{"geometry_id", filter.GeometryID},
			{"room_id", filter.RoomID},
			{"segment_id", filter.SegmentID},
		},
		Desc:  true,
		Limit: models.ClampLimit(filter.Limit),
	})
}
