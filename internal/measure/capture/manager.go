package capture

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/models"
)

var (
	ErrSessionActive   = errors.New("room already has an active session")
	ErrSessionNotFound = errors.New("session not found")
)

// Manager tracks live sessions. A room has at most one active session.
type Manager struct {
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	rooms    map[string]string
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:   logger,
		sessions: make(map[string]*Session),
		rooms:    make(map[string]string),
	}
}

func roomKey(info models.Session) string {
	if info.RoomID != "" {
		return info.JobID + "/" + info.RoomID
	}
	if info.BoardID != "" {
		return info.JobID + "/board/" + info.BoardID
	}
	return ""
}

// Start creates and activates a session for the room in info
func (m *Manager) Start(info models.Session, mode string, link Device, recorder Recorder) (*Session, error) {
	key := roomKey(info)

	m.mu.Lock()
	defer m.mu.Unlock()

	if key != "" {
		if id, ok := m.rooms[key]; ok {
			if s, ok := m.sessions[id]; ok && s.Active() {
				return nil, ErrSessionActive
			}
		}
	}

	s := New(info, recorder, m.logger)
	if err := s.Start(mode, link); err != nil {
		return nil, err
	}
	m.sessions[s.info.ID] = s
	if key != "" {
		m.rooms[key] = s.info.ID
	}
	return s, nil
}

// Get returns a live session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Finish ends or discards a session and forgets it
func (m *Manager) Finish(id string, discard bool) (models.Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return models.Session{}, err
	}

	var info models.Session
	if discard {
		info, err = s.Discard()
	} else {
		info, err = s.End()
	}
	if err != nil {
		return models.Session{}, err
	}

	m.forget(s)
	return info, nil
}

// Active lists sessions still accepting readings
func (m *Manager) Active() []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if s.Active() {
			out = append(out, s.Info())
		}
	}
	return out
}

// Shutdown ends every live session
func (m *Manager) Shutdown() {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		if _, err := s.End(); err == nil {
			m.logger.Info("Session ended on shutdown", zap.String("session_id", s.Info().ID))
		}
		m.forget(s)
	}
}

func (m *Manager) forget(s *Session) {
	info := s.Info()
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, info.ID)
	if key := roomKey(info); key != "" && m.rooms[key] == info.ID {
		delete(m.rooms, key)
	}
}
