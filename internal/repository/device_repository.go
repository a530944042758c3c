package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/floorpro/measure-backend-go/internal/models"
)

// DeviceRepository handles database operations for paired lasers
type DeviceRepository struct {
	docs documents[models.Device]
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db DBTX) *DeviceRepository {
	return &DeviceRepository{docs: newDocuments[models.Device](db, "devices", "workspace_id", "status")}
}

func (r *DeviceRepository) Create(ctx context.Context, d *models.Device) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return r.docs.create(ctx, d.ID, d)
}

func (r *DeviceRepository) GetByID(ctx context.Context, id string) (*models.Device, error) {
	return r.docs.get(ctx, id)
}

// List returns the active devices of a workspace, oldest first
func (r *DeviceRepository) List(ctx context.Context, workspaceID string) ([]models.Device, error) {
	return r.docs.query(ctx, Query{
		Where: []Condition{
			{"workspace_id", workspaceID},
			{"status", models.DeviceActive},
		},
		Limit: models.ClampLimit(0),
	})
}

// Disable soft-deletes a device
func (r *DeviceRepository) Disable(ctx context.Context, id string) error {
	return r.docs.merge(ctx, id, map[string]any{"status": models.DeviceDisabled})
}

// MarkConnected records a successful connection: the device is active again
// and lastSeenAt moves to at
func (r *DeviceRepository) MarkConnected(ctx context.Context, id string, at time.Time) error {
	return r.docs.merge(ctx, id, map[string]any{"status": models.DeviceActive, "lastSeenAt": at})
}
