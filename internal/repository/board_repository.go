package repository

import (
	"context"

	"github.com/floorpro/measure-backend-go/internal/freedraw"
	"github.com/floorpro/measure-backend-go/internal/models"
)

// BoardRepository persists free-draw boards with their history
type BoardRepository struct {
	docs documents[freedraw.Board]
}

func NewBoardRepository(db DBTX) *BoardRepository {
	return &BoardRepository{docs: newDocuments[freedraw.Board](db, "boards", "workspace_id", "job_id", "room_id")}
}

func (r *BoardRepository) Create(ctx context.Context, b *freedraw.Board) error {
	return r.docs.create(ctx, b.ID, b)
}

func (r *BoardRepository) GetByID(ctx context.Context, id string) (*freedraw.Board, error) {
	return r.docs.get(ctx, id)
}

func (r *BoardRepository) Update(ctx context.Context, b *freedraw.Board) error {
	return r.docs.replace(ctx, b.ID, b)
}

// ListByJob returns a job's boards, newest first
func (r *BoardRepository) ListByJob(ctx context.Context, workspaceID, jobID string) ([]freedraw.Board, error) {
	return r.docs.query(ctx, Query{
		Where: []Condition{
			{"workspace_id", workspaceID},
			{"job_id", jobID},
		},
		Desc:  true,
		Limit: models.ClampLimit(0),
	})
}
