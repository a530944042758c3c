package repository

import (
	"context"
	"time"

	"github.com/floorpro/measure-backend-go/internal/models"
)

// SessionRepository handles database operations for capture sessions and
// their readings
type SessionRepository struct {
	sessions documents[models.Session]
	readings documents[models.Reading]
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{
		sessions: newDocuments[models.Session](db, "sessions", "workspace_id", "job_id", "room_id", "status"),
		readings: newDocuments[models.Reading](db, "readings", "session_id", "seq"),
	}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	return r.sessions.create(ctx, s.ID, s)
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	return r.sessions.get(ctx, id)
}

// Finish records a terminal status
func (r *SessionRepository) Finish(ctx context.Context, id, status string, endedAt time.Time) error {
	return r.sessions.merge(ctx, id, map[string]any{"status": status, "endedAt": endedAt})
}

// List retrieves sessions matching filter, newest first
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	return r.sessions.query(ctx, Query{
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

// RecordReading stores an immutable reading
func (r *SessionRepository) RecordReading(ctx context.Context, reading models.Reading) error {
	return r.readings.create(ctx, reading.ID, &reading)
}

// Readings returns a session's readings in capture order
func (r *SessionRepository) Readings(ctx context.Context, sessionID string) ([]models.Reading, error) {
	return r.readings.query(ctx, Query{
		Where:   []Condition{{"session_id", sessionID}},
		OrderBy: "seq",
	})
}
