package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/events"
	"github.com/floorpro/measure-backend-go/internal/freedraw"
	"github.com/floorpro/measure-backend-go/internal/measure/builder"
	"github.com/floorpro/measure-backend-go/internal/measure/capture"
	"github.com/floorpro/measure-backend-go/internal/measure/device"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/repository"
)

// ErrBoardRequired is returned when a free_draw session names no board
var ErrBoardRequired = errors.New("free_draw sessions need a boardId")

// StartRequest describes a new capture session
type StartRequest struct {
	WorkspaceID string `json:"-"`
	JobID       string `json:"jobId" binding:"required"`
	RoomID      string `json:"roomId"`
	BoardID     string `json:"boardId"`
	Mode        string `json:"mode" binding:"required"`
}

// CaptureService runs live capture sessions against the shared device link
type CaptureService struct {
	manager  *capture.Manager
	link     *device.Link
	sessions *repository.SessionRepository
	boards   *BoardService
	events   events.Publisher
	logger   *zap.Logger
}

// NewCaptureService creates a new capture service. link may be nil when no
// gateway is configured; only manual sessions can start then.
func NewCaptureService(manager *capture.Manager, link *device.Link, sessions *repository.SessionRepository, boards *BoardService, publisher events.Publisher, logger *zap.Logger) *CaptureService {
	return &CaptureService{
		manager:  manager,
		link:     link,
		sessions: sessions,
		boards:   boards,
		events:   publisher,
		logger:   logger,
	}
}

func (s *CaptureService) device() capture.Device {
	if s.link == nil {
		return nil
	}
	return s.link
}

// Start opens and persists a session, then installs its reading handler
func (s *CaptureService) Start(ctx context.Context, req StartRequest) (models.Session, error) {
	if req.Mode == models.ModeFreeDraw {
		if req.BoardID == "" {
			return models.Session{}, ErrBoardRequired
		}
		if _, err := s.boards.Get(ctx, req.WorkspaceID, req.BoardID); err != nil {
			return models.Session{}, err
		}
	}

	info := models.Session{
		ID:          uuid.NewString(),
		WorkspaceID: req.WorkspaceID,
		JobID:       req.JobID,
		RoomID:      req.RoomID,
		BoardID:     req.BoardID,
	}
	session, err := s.manager.Start(info, req.Mode, s.device(), s.sessions)
	if err != nil {
		return models.Session{}, err
	}

	info = session.Info()
	if err := s.sessions.Create(ctx, &info); err != nil {
		if _, ferr := s.manager.Finish(info.ID, true); ferr != nil {
			s.logger.Warn("Failed to discard unsaved session", zap.String("session_id", info.ID), zap.Error(ferr))
		}
		return models.Session{}, fmt.Errorf("failed to save session: %w", err)
	}

	session.SetHandler(s.handler(info))
	return info, nil
}

// handler publishes every reading and routes free_draw readings to the board
func (s *CaptureService) handler(info models.Session) capture.Handler {
	return capture.HandlerFunc(func(_ *capture.Session, r models.Reading) {
		ctx := context.Background()
		s.events.Publish(ctx, events.TypeReading, events.ReadingEvent{
			WorkspaceID: info.WorkspaceID,
			JobID:       info.JobID,
			RoomID:      info.RoomID,
			Reading:     r,
		})

		if info.Mode != models.ModeFreeDraw {
			return
		}
		_, stroke, err := s.boards.AttachReading(ctx, info.WorkspaceID, info.BoardID, r.ID, r.Reading.Value)
		switch {
		case errors.Is(err, freedraw.ErrNoPendingStroke):
			s.logger.Debug("Reading arrived with no pending stroke", zap.String("reading_id", r.ID))
		case err != nil:
			s.logger.Error("Failed to attach reading to board", zap.String("board_id", info.BoardID), zap.Error(err))
		default:
			s.logger.Debug("Reading attached to stroke", zap.String("stroke_id", stroke.ID), zap.Float64("inches", r.Reading.Value))
		}
	})
}

func (s *CaptureService) live(workspaceID, id string) (*capture.Session, error) {
	session, err := s.manager.Get(id)
	if err != nil {
		return nil, err
	}
	if session.Info().WorkspaceID != workspaceID {
		return nil, capture.ErrSessionNotFound
	}
	return session, nil
}

// Capture takes one single-shot reading
func (s *CaptureService) Capture(ctx context.Context, workspaceID, id string, opts capture.CaptureOptions) (models.Reading, error) {
	session, err := s.live(workspaceID, id)
	if err != nil {
		return models.Reading{}, err
	}
	return session.CaptureReading(ctx, opts)
}

// StartContinuous streams device readings into a live session
func (s *CaptureService) StartContinuous(workspaceID, id string) error {
	session, err := s.live(workspaceID, id)
	if err != nil {
		return err
	}
	return session.StartContinuous()
}

// StopContinuous stops streaming
func (s *CaptureService) StopContinuous(workspaceID, id string) error {
	session, err := s.live(workspaceID, id)
	if err != nil {
		return err
	}
	session.StopContinuous()
	return nil
}

// End finishes a session
func (s *CaptureService) End(ctx context.Context, workspaceID, id string) (models.Session, error) {
	return s.finish(ctx, workspaceID, id, false)
}

// Discard abandons a session; its readings are kept for audit only
func (s *CaptureService) Discard(ctx context.Context, workspaceID, id string) (models.Session, error) {
	return s.finish(ctx, workspaceID, id, true)
}

func (s *CaptureService) finish(ctx context.Context, workspaceID, id string, discard bool) (models.Session, error) {
	if _, err := s.live(workspaceID, id); err != nil {
		return models.Session{}, err
	}
	info, err := s.manager.Finish(id, discard)
	if err != nil {
		return models.Session{}, err
	}
	if err := s.sessions.Finish(ctx, info.ID, info.Status, *info.EndedAt); err != nil {
		return models.Session{}, err
	}

	s.events.Publish(ctx, events.TypeSessionEnded, map[string]any{
		"sessionId":   info.ID,
		"workspaceId": info.WorkspaceID,
		"status":      info.Status,
	})
	return info, nil
}

// Get returns the live session or, once finished, the stored record
func (s *CaptureService) Get(ctx context.Context, workspaceID, id string) (models.Session, error) {
	if session, err := s.live(workspaceID, id); err == nil {
		return session.Info(), nil
	}
	info, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return models.Session{}, err
	}
	if info.WorkspaceID != workspaceID {
		return models.Session{}, ErrNotFound
	}
	return *info, nil
}

// Readings lists a session's readings in capture order
func (s *CaptureService) Readings(ctx context.Context, workspaceID, id string) ([]models.Reading, error) {
	if session, err := s.live(workspaceID, id); err == nil {
		return session.Readings(), nil
	}
	if _, err := s.Get(ctx, workspaceID, id); err != nil {
		return nil, err
	}
	return s.sessions.Readings(ctx, id)
}

// Geometry recomputes the outline of a session from all of its readings
func (s *CaptureService) Geometry(ctx context.Context, workspaceID, id string) (builder.Result, error) {
	if session, err := s.live(workspaceID, id); err == nil {
		return session.Geometry(builder.Options{}), nil
	}

	info, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return builder.Result{}, err
	}
	readings, err := s.sessions.Readings(ctx, id)
	if err != nil {
		return builder.Result{}, err
	}
	return capture.Restore(info, readings, s.logger).Geometry(builder.Options{}), nil
}

// List retrieves stored sessions
func (s *CaptureService) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	return s.sessions.List(ctx, filter)
}

// Shutdown ends every live session and records the end
func (s *CaptureService) Shutdown(ctx context.Context) {
	active := s.manager.Active()
	s.manager.Shutdown()
	for _, info := range active {
		if err := s.sessions.Finish(ctx, info.ID, models.SessionEnded, time.Now()); err != nil {
			s.logger.Warn("Failed to record session end", zap.String("session_id", info.ID), zap.Error(err))
		}
	}
}
