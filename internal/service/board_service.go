package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/freedraw"
	"github.com/floorpro/measure-backend-go/internal/repository"
)

// BoardService persists free-draw boards. Edits to one board are serialized.
type BoardService struct {
	repo   *repository.BoardRepository
	logger *zap.Logger
	now    func() time.Time

	// laserConnected reports whether committed strokes should wait for a reading
	laserConnected func() bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewBoardService creates a new board service
func NewBoardService(repo *repository.BoardRepository, laserConnected func() bool, logger *zap.Logger) *BoardService {
	if laserConnected == nil {
		laserConnected = func() bool { return false }
	}
	return &BoardService{
		repo:           repo,
		logger:         logger,
		now:            time.Now,
		laserConnected: laserConnected,
		locks:          make(map[string]*sync.Mutex),
	}
}

func (s *BoardService) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Create stores an empty board
func (s *BoardService) Create(ctx context.Context, workspaceID, jobID, roomID string) (*freedraw.Board, error) {
	b := freedraw.New(workspaceID, jobID, roomID)
	b.CreatedAt = s.now().UTC()
	b.UpdatedAt = b.CreatedAt
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get retrieves a board inside a workspace
func (s *BoardService) Get(ctx context.Context, workspaceID, id string) (*freedraw.Board, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	return b, nil
}

// ListByJob retrieves a job's boards
func (s *BoardService) ListByJob(ctx context.Context, workspaceID, jobID string) ([]freedraw.Board, error) {
	return s.repo.ListByJob(ctx, workspaceID, jobID)
}

// update loads, edits and stores a board under its lock. Nothing is stored
// when fn fails.
func (s *BoardService) update(ctx context.Context, workspaceID, id string, fn func(b *freedraw.Board) error) (*freedraw.Board, error) {
	unlock := s.lock(id)
	defer unlock()

	b, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	b.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// AddStroke commits a finger-drawn stroke given in screen pixels. With a
// connected laser the stroke waits for a reading.
func (s *BoardService) AddStroke(ctx context.Context, workspaceID, id string, screen []freedraw.Point) (*freedraw.Board, freedraw.Stroke, error) {
	var stroke freedraw.Stroke
	b, err := s.update(ctx, workspaceID, id, func(b *freedraw.Board) error {
		var err error
		stroke, err = b.AddStroke(screen, s.laserConnected())
		return err
	})
	return b, stroke, err
}

// AttachReading gives the board's oldest pending stroke a laser distance
func (s *BoardService) AttachReading(ctx context.Context, workspaceID, id, readingID string, inches float64) (*freedraw.Board, freedraw.Stroke, error) {
	var stroke freedraw.Stroke
	b, err := s.update(ctx, workspaceID, id, func(b *freedraw.Board) error {
		var err error
		stroke, err = b.AttachReading(readingID, inches)
		return err
	})
	return b, stroke, err
}

// PlaceShape adds a door, opening or arc
func (s *BoardService) PlaceShape(ctx context.Context, workspaceID, id string, shape freedraw.Shape) (*freedraw.Board, freedraw.Shape, error) {
	var placed freedraw.Shape
	b, err := s.update(ctx, workspaceID, id, func(b *freedraw.Board) error {
		var err error
		placed, err = b.PlaceShape(shape.Kind, shape.X, shape.Y, shape.Width, shape.Height, shape.Rotation)
		return err
	})
	return b, placed, err
}

// MoveShape repositions a placed shape
func (s *BoardService) MoveShape(ctx context.Context, workspaceID, id, shapeID string, x, y, rotation float64) (*freedraw.Board, error) {
	return s.update(ctx, workspaceID, id, func(b *freedraw.Board) error {
		_, err := b.MoveShape(shapeID, x, y, rotation)
		return err
	})
}

// RemoveShape deletes a placed shape
func (s *BoardService) RemoveShape(ctx context.Context, workspaceID, id, shapeID string) (*freedraw.Board, error) {
	return s.update(ctx, workspaceID, id, func(b *freedraw.Board) error {
		return b.RemoveShape(shapeID)
	})
}

// Clear removes every stroke and shape; it can be undone
func (s *BoardService) Clear(ctx context.Context, workspaceID, id string) (*freedraw.Board, error) {
	return s.update(ctx, workspaceID, id, func(b *freedraw.Board) error {
		b.Clear()
		return nil
	})
}

// Undo steps back one edit. A board with nothing to undo is returned as is.
func (s *BoardService) Undo(ctx context.Context, workspaceID, id string) (*freedraw.Board, error) {
	return s.update(ctx, workspaceID, id, func(b *freedraw.Board) error {
		b.Undo()
		return nil
	})
}

// Redo re-applies the last undone edit
func (s *BoardService) Redo(ctx context.Context, workspaceID, id string) (*freedraw.Board, error) {
	return s.update(ctx, workspaceID, id, func(b *freedraw.Board) error {
		b.Redo()
		return nil
	})
}

// SetView stores the pan/zoom of a board
func (s *BoardService) SetView(ctx context.Context, workspaceID, id string, view freedraw.View) (*freedraw.Board, error) {
	return s.update(ctx, workspaceID, id, func(b *freedraw.Board) error {
		b.SetView(view)
		return nil
	})
}
