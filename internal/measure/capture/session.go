// Package capture owns the lifecycle of one measurement pass for a room.
//
// Device readings, single shot or continuous, enter through one path: they are
// stamped, recorded and handed to the session's current Handler. Continuous
// notifications are queued on a channel drained by a single goroutine so the
// handler always sees the session as it is now, not as it was when the
// subscription started.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/measure/builder"
	"github.com/floorpro/measure-backend-go/internal/measure/device"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/spatial"
)

var (
	ErrNoDeviceConnected  = errors.New("connect a laser before starting a measuring session")
	ErrDeviceNotConnected = device.ErrDeviceNotConnected
	ErrSessionNotActive   = errors.New("session is not active")
	ErrSessionStarted     = errors.New("session was already started")
	ErrInvalidMode        = errors.New("unknown capture mode")
)

const queueSize = 64

// Device is the part of a device link a session needs
type Device interface {
	Connected() bool
	Status() device.Status
	Measure(ctx context.Context) (device.Measurement, error)
	Stream(cb func(device.Measurement)) (*device.Stream, error)
}

// Handler decides what a new reading means for the session's current state
type Handler interface {
	HandleReading(s *Session, r models.Reading)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(s *Session, r models.Reading)

// HandleReading implements Handler
func (f HandlerFunc) HandleReading(s *Session, r models.Reading) { f(s, r) }

// Recorder persists readings as they are captured
type Recorder interface {
	RecordReading(ctx context.Context, r models.Reading) error
}

// CaptureOptions annotate a single captured reading
type CaptureOptions struct {
	TurnDeg    *float64
	CapturedBy string
}

// Session is the state machine uninitialized -> active -> ended | discarded
type Session struct {
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	info     models.Session
	link     Device
	readings []models.Reading
	handler  Handler
	started  bool
	stream   *device.Stream

	// ctx is cancelled by End and Discard; it bounds pending measurements
	ctx    context.Context
	cancel context.CancelFunc

	dispatchMu sync.Mutex

	queue    chan device.Measurement
	stopLoop chan struct{}
	loopDone chan struct{}
}

// New prepares a session. It does nothing until Start.
func New(info models.Session, recorder Recorder, logger *zap.Logger) *Session {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	return &Session{
		logger:   logger.With(zap.String("session_id", info.ID)),
		recorder: recorder,
		now:      time.Now,
		newID:    uuid.NewString,
		info:     info,
	}
}

// Restore rebuilds a session from stored state, for geometry reconstruction
// after a restart. Restored sessions accept no new readings.
func Restore(info models.Session, readings []models.Reading, logger *zap.Logger) *Session {
	s := New(info, nil, logger)
	s.started = true
	s.readings = append([]models.Reading(nil), readings...)
	return s
}

// Start activates the session in mode. Every mode except manual needs a
// connected laser.
func (s *Session) Start(mode string, link Device) error {
	if !models.ValidMode(mode) {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrSessionStarted
	}
	if mode != models.ModeManual && (link == nil || !link.Connected()) {
		return ErrNoDeviceConnected
	}

	s.started = true
	s.link = link
	s.info.Mode = mode
	s.info.Status = models.SessionActive
	s.info.StartedAt = s.now()
	if link != nil {
		s.info.DeviceID = link.Status().DeviceID
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.queue = make(chan device.Measurement, queueSize)
	s.stopLoop = make(chan struct{})
	s.loopDone = make(chan struct{})
	go s.loop()

	s.logger.Info("Capture session started", zap.String("mode", mode), zap.String("room_id", s.info.RoomID))
	return nil
}

// Info returns a snapshot of the session record
func (s *Session) Info() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Active reports whether readings are being accepted
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info.Status == models.SessionActive
}

// SetHandler replaces the handler for subsequent readings
func (s *Session) SetHandler(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Readings returns the readings in capture order
func (s *Session) Readings() []models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Reading(nil), s.readings...)
}

// Geometry rebuilds the outline from the full ordered reading list
func (s *Session) Geometry(opts builder.Options) builder.Result {
	s.mu.Lock()
	mode := s.info.Mode
	readings := append([]models.Reading(nil), s.readings...)
	s.mu.Unlock()
	return builder.Build(mode, readings, opts)
}

// CaptureReading takes one single-shot measurement and appends it. Nothing is
// retried: a dropped link fails with ErrDeviceNotConnected. Ending the session
// cancels a measurement still waiting for the device.
func (s *Session) CaptureReading(ctx context.Context, opts CaptureOptions) (models.Reading, error) {
	s.mu.Lock()
	active := s.info.Status == models.SessionActive
	link := s.link
	sessionCtx := s.ctx
	s.mu.Unlock()

	if !active {
		return models.Reading{}, ErrSessionNotActive
	}
	if link == nil || !link.Connected() {
		return models.Reading{}, ErrDeviceNotConnected
	}

	measureCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sessionCtx, cancel)
	defer stop()

	m, err := link.Measure(measureCtx)
	if err != nil {
		if sessionCtx.Err() != nil {
			return models.Reading{}, ErrSessionNotActive
		}
		return models.Reading{}, err
	}

	r, err := s.append(ctx, m, models.ReadingSingle, opts)
	if err != nil {
		return models.Reading{}, err
	}
	s.dispatch(r)
	return r, nil
}

// StartContinuous streams device measurements into the session. The stream
// belongs to this session; stopping it never touches another session's.
func (s *Session) StartContinuous() error {
	s.mu.Lock()
	active := s.info.Status == models.SessionActive
	link := s.link
	current := s.stream
	queue, stop := s.queue, s.stopLoop
	s.mu.Unlock()

	if !active {
		return ErrSessionNotActive
	}
	if link == nil || !link.Connected() {
		return ErrDeviceNotConnected
	}
	if current != nil && current.Active() {
		return device.ErrContinuousActive
	}

	st, err := link.Stream(func(m device.Measurement) {
		select {
		case queue <- m:
		case <-stop:
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.info.Status != models.SessionActive {
		s.mu.Unlock()
		st.Stop()
		return ErrSessionNotActive
	}
	s.stream = st
	s.mu.Unlock()
	return nil
}

// StopContinuous stops the session's own device stream
func (s *Session) StopContinuous() {
	s.mu.Lock()
	st := s.stream
	s.stream = nil
	s.mu.Unlock()
	if st != nil {
		st.Stop()
	}
}

// End finishes the session. Its readings may now be saved as a geometry.
func (s *Session) End() (models.Session, error) {
	return s.finish(models.SessionEnded)
}

// Discard abandons the session. Readings stay stored for audit but must never
// feed a saved geometry.
func (s *Session) Discard() (models.Session, error) {
	return s.finish(models.SessionDiscarded)
}

// finish is the only terminal transition. When it returns, pending single
// shots are cancelled, the session's stream is stopped, the queue goroutine
// has exited and no handler call is in flight.
func (s *Session) finish(status string) (models.Session, error) {
	s.mu.Lock()
	if s.info.Status != models.SessionActive {
		s.mu.Unlock()
		return models.Session{}, ErrSessionNotActive
	}
	endedAt := s.now()
	s.info.Status = status
	s.info.EndedAt = &endedAt
	st := s.stream
	s.stream = nil
	stop, done := s.stopLoop, s.loopDone
	info := s.info
	s.mu.Unlock()

	s.cancel()
	if st != nil {
		st.Stop()
	}
	close(stop)
	<-done

	s.dispatchMu.Lock()
	s.dispatchMu.Unlock()

	s.logger.Info("Capture session finished", zap.String("status", status), zap.Int("readings", len(s.Readings())))
	return info, nil
}

func (s *Session) loop() {
	defer close(s.loopDone)
	for {
		select {
		case m := <-s.queue:
			r, err := s.append(context.Background(), m, models.ReadingContinuous, CaptureOptions{})
			if err != nil {
				if !errors.Is(err, ErrSessionNotActive) {
					s.logger.Error("Failed to record continuous reading", zap.Error(err))
				}
				continue
			}
			s.dispatch(r)
		case <-s.stopLoop:
			return
		}
	}
}

// append stamps and records a reading. Readings are immutable once appended.
func (s *Session) append(ctx context.Context, m device.Measurement, kind string, opts CaptureOptions) (models.Reading, error) {
	inches, err := device.ToInches(m.Distance, m.Unit)
	if err != nil {
		return models.Reading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info.Status != models.SessionActive {
		return models.Reading{}, ErrSessionNotActive
	}

	r := models.Reading{
		ID:        s.newID(),
		SessionID: s.info.ID,
		DeviceID:  s.info.DeviceID,
		Seq:       len(s.readings),
		TurnDeg:   opts.TurnDeg,
		Reading: models.ReadingValue{
			Value:         inches,
			Unit:          string(m.Unit),
			Display:       spatial.FormatFeetInches(inches),
			Type:          kind,
			SignalQuality: m.SignalStrength,
			TiltAngleDeg:  m.TiltX,
		},
		CapturedAt: m.Timestamp,
		CapturedBy: opts.CapturedBy,
	}
	if r.CapturedAt.IsZero() {
		r.CapturedAt = s.now()
	}

	if s.recorder != nil {
		if err := s.recorder.RecordReading(ctx, r); err != nil {
			return models.Reading{}, fmt.Errorf("failed to record reading: %w", err)
		}
	}
	s.readings = append(s.readings, r)
	return r, nil
}

// dispatch hands a reading to whichever handler is current at delivery time
func (s *Session) dispatch(r models.Reading) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	h := s.handler
	active := s.info.Status == models.SessionActive
	s.mu.Unlock()

	if h != nil && active {
		h.HandleReading(s, r)
	}
}
